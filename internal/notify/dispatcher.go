// Package notify delivers account e-mails in the background. Delivery never
// fails the operation that triggered it; failures go to a dead-letter sink.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Message is one outbound e-mail.
type Message struct {
	Kind     string
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DeadLetterSink records messages that could not be delivered.
type DeadLetterSink interface {
	Record(ctx context.Context, msg Message, cause error) error
}

// Config sizes the worker pool.
type Config struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

var (
	errQueueFull        = errors.New("notification queue full")
	errDispatcherClosed = errors.New("notification dispatcher closed")
)

// Dispatcher runs a bounded queue drained by a fixed pool of workers.
type Dispatcher struct {
	sender      Sender
	deadLetters DeadLetterSink
	logger      *slog.Logger
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan Message
	wg     sync.WaitGroup
}

// NewDispatcher starts cfg.Workers workers delivering through sender.
func NewDispatcher(sender Sender, deadLetters DeadLetterSink, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if deadLetters == nil {
		deadLetters = NewLogDeadLetters(logger)
	}

	d := &Dispatcher{
		sender:      sender,
		deadLetters: deadLetters,
		logger:      logger,
		sendTimeout: cfg.SendTimeout,
		jobs:        make(chan Message, cfg.QueueSize),
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}

	return d
}

// Enqueue schedules msg for delivery without waiting for it. A full queue or a
// closed dispatcher sends the message straight to the dead-letter sink.
func (d *Dispatcher) Enqueue(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.fail(msg, errDispatcherClosed)
		return
	}

	select {
	case d.jobs <- msg:
	default:
		d.fail(msg, errQueueFull)
	}
}

// Shutdown stops accepting messages and waits for queued ones to be delivered.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for msg := range d.jobs {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.fail(msg, err)
		return
	}
	d.logger.Debug("notification sent", "kind", msg.Kind, "to", msg.To)
}

func (d *Dispatcher) fail(msg Message, cause error) {
	d.logger.Error("notification not delivered", "kind", msg.Kind, "to", msg.To, "error", cause)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.deadLetters.Record(ctx, msg, cause); err != nil {
		d.logger.Error("record dead letter", "kind", msg.Kind, "to", msg.To, "error", err)
	}
}
