package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/shareframe/backend/internal/logging"
	"github.com/shareframe/backend/internal/models"
)

// Message kinds.
const (
	KindWelcome       = "welcome"
	KindPasswordReset = "password_reset"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "welcome"}}<p>Hi {{.Name}},</p>
<p>Welcome to ShareFrame. Your account {{.Email}} is ready; sign in to start uploading videos.</p>{{end}}
{{define "reset"}}<p>Hi {{.Name}},</p>
<p>We received a request to reset the password for {{.Email}}.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>If you did not ask for this, you can ignore this e-mail.</p>{{end}}
`))

type mailData struct {
	Name  string
	Email string
	Link  string
}

// Enqueuer accepts messages for background delivery.
type Enqueuer interface {
	Enqueue(msg Message)
}

// Mailer renders account e-mails and hands them to the dispatcher.
type Mailer struct {
	queue     Enqueuer
	publicURL string
}

// NewMailer returns a Mailer building links against publicURL.
func NewMailer(queue Enqueuer, publicURL string) *Mailer {
	return &Mailer{queue: queue, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// Welcome queues the registration e-mail.
func (m *Mailer) Welcome(ctx context.Context, user models.User) {
	m.send(ctx, KindWelcome, "Welcome to ShareFrame", "welcome", user, "")
}

// PasswordReset queues an e-mail carrying the reset link for token.
func (m *Mailer) PasswordReset(ctx context.Context, user models.User, token string) {
	link := fmt.Sprintf("%s/update-password/%s", m.publicURL, url.PathEscape(token))
	m.send(ctx, KindPasswordReset, "Reset your password", "reset", user, link)
}

func (m *Mailer) send(ctx context.Context, kind, subject, tmpl string, user models.User, link string) {
	name := user.DisplayName
	if name == "" {
		name = user.Email
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, mailData{Name: name, Email: user.Email, Link: link}); err != nil {
		logging.FromContext(ctx).Error("render mail", "kind", kind, "error", err)
		return
	}

	m.queue.Enqueue(Message{Kind: kind, To: user.Email, Subject: subject, HTMLBody: body.String()})
}
