package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeadLetterKey is the Redis list undeliverable messages are pushed onto.
const DeadLetterKey = "shareframe:mail:deadletter"

// deadLetter is the stored record. The body is left out because reset mails
// carry a live credential.
type deadLetter struct {
	Kind     string    `json:"kind"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failedAt"`
}

type listPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisDeadLetters pushes undeliverable messages onto a Redis list for later inspection or replay.
type RedisDeadLetters struct {
	client listPusher
	key    string
	now    func() time.Time
}

// NewRedisDeadLetters records dead letters through client.
func NewRedisDeadLetters(client *redis.Client) *RedisDeadLetters {
	return newRedisDeadLetters(client)
}

func newRedisDeadLetters(client listPusher) *RedisDeadLetters {
	return &RedisDeadLetters{client: client, key: DeadLetterKey, now: time.Now}
}

// Record pushes msg and its failure cause onto the dead-letter list.
func (r *RedisDeadLetters) Record(ctx context.Context, msg Message, cause error) error {
	payload, err := json.Marshal(deadLetter{
		Kind:     msg.Kind,
		To:       msg.To,
		Subject:  msg.Subject,
		Error:    errorString(cause),
		FailedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}

	if err := r.client.LPush(ctx, r.key, payload).Err(); err != nil {
		return fmt.Errorf("push dead letter: %w", err)
	}
	return nil
}

// ConnectRedis parses url, connects and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// LogDeadLetters only logs undeliverable messages.
type LogDeadLetters struct {
	logger *slog.Logger
}

// NewLogDeadLetters returns a sink writing to logger.
func NewLogDeadLetters(logger *slog.Logger) *LogDeadLetters {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDeadLetters{logger: logger}
}

func (l *LogDeadLetters) Record(_ context.Context, msg Message, cause error) error {
	l.logger.Warn("dead letter", "kind", msg.Kind, "to", msg.To, "subject", msg.Subject, "error", errorString(cause))
	return nil
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
