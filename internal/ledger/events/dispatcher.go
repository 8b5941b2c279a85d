// Package events fans committed ledger events out to sinks, either inline or
// from a bounded buffer drained by a background worker.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"tipjar/internal/ledger/models"
)

var (
	ErrClosed     = errors.New("event dispatcher closed")
	ErrBufferFull = errors.New("event buffer full")
)

// Sink receives committed events. Publish must not mutate the event.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event *models.Event) error
}

// Dispatcher delivers each event to every sink. With a buffer it never
// blocks the caller: a full buffer drops the event, which stays readable
// from the ledger journal.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
	buffer int

	mu      sync.RWMutex
	inbox   chan *models.Event
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithBuffer makes delivery asynchronous through a buffer of size n.
func WithBuffer(n int) Option {
	return func(d *Dispatcher) {
		d.buffer = n
	}
}

func NewDispatcher(sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{sinks: sinks, done: make(chan struct{})}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	if d.buffer > 0 {
		d.inbox = make(chan *models.Event, d.buffer)
	} else {
		close(d.done)
	}
	return d
}

// Publish delivers inline when unbuffered and returns every sink error
// joined. Buffered, it only enqueues.
func (d *Dispatcher) Publish(ctx context.Context, event *models.Event) error {
	if d.inbox == nil {
		return d.deliver(ctx, event)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.inbox <- event:
		return nil
	default:
		d.dropped.Add(1)
		return ErrBufferFull
	}
}

// Run drains the buffer until Close is called or ctx ends. Events still
// buffered when ctx ends are delivered before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.inbox == nil {
		return nil
	}
	defer close(d.done)
	for {
		select {
		case event, ok := <-d.inbox:
			if !ok {
				return nil
			}
			d.deliverLogged(ctx, event)
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			return nil
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case event, ok := <-d.inbox:
			if !ok {
				return
			}
			d.deliverLogged(ctx, event)
		default:
			return
		}
	}
}

// Close stops accepting events and waits for Run to finish delivering the
// buffer, or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d.inbox == nil {
		return nil
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.inbox)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many events were discarded on a full buffer.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Dispatcher) deliver(ctx context.Context, event *models.Event) error {
	var errs []error
	for _, sink := range d.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) deliverLogged(ctx context.Context, event *models.Event) {
	if err := d.deliver(ctx, event); err != nil {
		d.logger.WarnContext(ctx, "event delivery failed",
			"error", err,
			"kind", string(event.Kind),
			"seq", event.Seq,
		)
	}
}
