package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shareframe/backend/internal/logging"
)

type recordingSender struct {
	mu      sync.Mutex
	sent    []Message
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type recordingSink struct {
	mu     sync.Mutex
	msgs   []Message
	causes []error
}

func (s *recordingSink) Record(_ context.Context, msg Message, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	s.causes = append(s.causes, cause)
	return nil
}

func (s *recordingSink) snapshot() ([]Message, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.msgs...), append([]error(nil), s.causes...)
}

func shutdown(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestDispatcherDelivers(t *testing.T) {
	sender := &recordingSender{}
	sink := &recordingSink{}
	d := NewDispatcher(sender, sink, Config{QueueSize: 4, Workers: 2}, logging.Discard())

	for i := 0; i < 3; i++ {
		d.Enqueue(Message{Kind: KindWelcome, To: "a@x.com"})
	}
	shutdown(t, d)

	if sender.count() != 3 {
		t.Fatalf("expected 3 sent got %d", sender.count())
	}
	if msgs, _ := sink.snapshot(); len(msgs) != 0 {
		t.Fatalf("expected no dead letters got %d", len(msgs))
	}
}

func TestDispatcherDeadLettersSendFailures(t *testing.T) {
	boom := errors.New("smtp refused")
	sink := &recordingSink{}
	d := NewDispatcher(&recordingSender{err: boom}, sink, Config{QueueSize: 1, Workers: 1}, logging.Discard())

	d.Enqueue(Message{Kind: KindPasswordReset, To: "a@x.com"})
	shutdown(t, d)

	msgs, causes := sink.snapshot()
	if len(msgs) != 1 || msgs[0].Kind != KindPasswordReset {
		t.Fatalf("expected the failed message to be dead-lettered got %+v", msgs)
	}
	if !errors.Is(causes[0], boom) {
		t.Fatalf("expected send error as cause got %v", causes[0])
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	sender := &recordingSender{started: make(chan struct{}, 4), release: make(chan struct{})}
	sink := &recordingSink{}
	d := NewDispatcher(sender, sink, Config{QueueSize: 1, Workers: 1}, logging.Discard())

	d.Enqueue(Message{To: "first@x.com"})
	<-sender.started

	d.Enqueue(Message{To: "queued@x.com"})
	d.Enqueue(Message{To: "dropped@x.com"})

	msgs, causes := sink.snapshot()
	if len(msgs) != 1 || msgs[0].To != "dropped@x.com" || !errors.Is(causes[0], errQueueFull) {
		t.Fatalf("expected overflow to be dead-lettered got %+v %v", msgs, causes)
	}

	close(sender.release)
	shutdown(t, d)

	if sender.count() != 2 {
		t.Fatalf("expected queued messages to drain got %d", sender.count())
	}
}

func TestDispatcherClosed(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(&recordingSender{}, sink, Config{}, logging.Discard())
	shutdown(t, d)

	d.Enqueue(Message{To: "late@x.com"})

	msgs, causes := sink.snapshot()
	if len(msgs) != 1 || !errors.Is(causes[0], errDispatcherClosed) {
		t.Fatalf("expected late message to be dead-lettered got %+v %v", msgs, causes)
	}

	// A second shutdown is a no-op.
	shutdown(t, d)
}
