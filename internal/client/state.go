package client

import (
	"context"
	"errors"
	"sync"

	"github.com/shareframe/backend/internal/catalog"
)

// State is everything the client knows about the current session. The zero
// value is the signed-out initial state.
type State struct {
	Token        string
	SigningIn    bool
	Error        string
	User         *User
	PublicVideos []Video
	OwnedVideos  []Video
}

// SignedIn reports whether a session token is held.
func (s State) SignedIn() bool {
	return s.Token != ""
}

// Action is a state transition. The set is closed.
type Action interface {
	action()
}

type (
	SignInStarted   struct{}
	SignInSucceeded struct{ Token string }
	SignInFailed    struct{ Message string }
	SignedOut       struct{}
	ProfileLoaded   struct{ User User }

	PublicVideosLoaded struct{ Videos []Video }
	OwnedVideosLoaded  struct{ Videos []Video }
)

func (SignInStarted) action()      {}
func (SignInSucceeded) action()    {}
func (SignInFailed) action()       {}
func (SignedOut) action()          {}
func (ProfileLoaded) action()      {}
func (PublicVideosLoaded) action() {}
func (OwnedVideosLoaded) action()  {}

// Reduce returns the state after applying a to s. It never modifies s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SignInStarted:
		s.SigningIn = true
		s.Error = ""
	case SignInSucceeded:
		s.Token = a.Token
		s.SigningIn = false
		s.Error = ""
	case SignInFailed:
		return State{Error: a.Message, PublicVideos: s.PublicVideos}
	case SignedOut:
		return State{PublicVideos: s.PublicVideos}
	case ProfileLoaded:
		if !s.SignedIn() {
			return s
		}
		user := a.User
		s.User = &user
	case PublicVideosLoaded:
		s.PublicVideos = append([]Video(nil), a.Videos...)
	case OwnedVideosLoaded:
		if !s.SignedIn() {
			return s
		}
		s.OwnedVideos = append([]Video(nil), a.Videos...)
	}
	return s
}

// Store serializes dispatches against a single State.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners []func(State)
}

func NewStore() *Store {
	return &Store{}
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to receive every new state after a dispatch.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Dispatch applies a and notifies subscribers outside the lock.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	listeners := append(([]func(State))(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// Search matches query against every loaded video, public and owned, with
// each video counted once.
func (s *Store) Search(query string) []Video {
	state := s.State()

	seen := make(map[string]struct{}, len(state.PublicVideos)+len(state.OwnedVideos))
	var matched []Video
	for _, group := range [][]Video{state.OwnedVideos, state.PublicVideos} {
		for _, v := range group {
			if _, dup := seen[v.ID]; dup {
				continue
			}
			seen[v.ID] = struct{}{}
			if catalog.Matches(v.Title, v.Description, query) {
				matched = append(matched, v)
			}
		}
	}
	return matched
}

// SignIn runs the sign-in flow against api, then loads the profile and the
// caller's videos. Failures end in SignInFailed.
func (s *Store) SignIn(ctx context.Context, api *Client, email, password string) error {
	s.Dispatch(SignInStarted{})

	session, err := api.SignIn(ctx, email, password)
	if err != nil {
		s.Dispatch(SignInFailed{Message: failureMessage(err)})
		return err
	}
	s.Dispatch(SignInSucceeded{Token: session.Token})

	authed := api.WithToken(session.Token)
	user, err := authed.Profile(ctx)
	if err != nil {
		s.Dispatch(SignInFailed{Message: failureMessage(err)})
		return err
	}
	s.Dispatch(ProfileLoaded{User: user})

	owned, err := authed.MyVideos(ctx)
	if err != nil {
		return err
	}
	s.Dispatch(OwnedVideosLoaded{Videos: owned})
	return nil
}

// Refresh reloads the public feed.
func (s *Store) Refresh(ctx context.Context, api *Client) error {
	videos, err := api.PublicVideos(ctx)
	if err != nil {
		return err
	}
	s.Dispatch(PublicVideosLoaded{Videos: videos})
	return nil
}

func failureMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
