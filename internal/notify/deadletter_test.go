package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakePusher struct {
	key    string
	values []interface{}
	err    error
}

func (f *fakePusher) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "lpush", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.key = key
	f.values = append(f.values, values...)
	cmd.SetVal(int64(len(f.values)))
	return cmd
}

func TestRedisDeadLettersRecord(t *testing.T) {
	pusher := &fakePusher{}
	sink := newRedisDeadLetters(pusher)
	sink.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	msg := Message{Kind: KindPasswordReset, To: "a@x.com", Subject: "Reset your password", HTMLBody: "secret-token"}
	if err := sink.Record(context.Background(), msg, errors.New("smtp refused")); err != nil {
		t.Fatalf("record: %v", err)
	}

	if pusher.key != DeadLetterKey || len(pusher.values) != 1 {
		t.Fatalf("unexpected push %q %v", pusher.key, pusher.values)
	}
	raw, ok := pusher.values[0].([]byte)
	if !ok {
		t.Fatalf("expected json payload got %T", pusher.values[0])
	}
	if strings.Contains(string(raw), "secret-token") {
		t.Fatal("dead letters must not store the message body")
	}

	var stored deadLetter
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.Kind != KindPasswordReset || stored.To != "a@x.com" || stored.Error != "smtp refused" {
		t.Fatalf("unexpected record %+v", stored)
	}
}

func TestRedisDeadLettersPushFailure(t *testing.T) {
	sink := newRedisDeadLetters(&fakePusher{err: errors.New("connection refused")})
	if err := sink.Record(context.Background(), Message{}, nil); err == nil {
		t.Fatal("expected push error")
	}
}
