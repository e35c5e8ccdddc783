// Package coordinator serializes asynchronous requests per (entity kind,
// operation) with latest-wins semantics. Issuing a request for a key
// supersedes every earlier in-flight request for the same key: the earlier
// request's context is cancelled and its outcome is dropped, so only the
// newest result is ever routed to state.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/xraph/gatekeeper/lifecycle"
)

// ErrSuperseded is returned by Run when a newer request for the same key was
// issued before this one finished.
var ErrSuperseded = errors.New("gatekeeper: request superseded")

// Key identifies a request slot.
type Key struct {
	Kind string
	Op   lifecycle.Operation
}

// String returns "kind/op".
func (k Key) String() string { return k.Kind + "/" + string(k.Op) }

// Sink receives the lifecycle transitions of a request. *lifecycle.Store
// satisfies it. Hold defers listener callbacks until release is called, so
// transitions can be applied under the slot lock and announced after it.
type Sink interface {
	Begin(op lifecycle.Operation)
	Fail(op lifecycle.Operation, err error)
	Hold() (release func())
}

// Observer is told how each request ended.
type Observer interface {
	Succeeded(key Key)
	Failed(key Key, err error)
	Superseded(key Key)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.logger = l } }

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option { return func(c *Coordinator) { c.observer = o } }

type slot struct {
	// mu orders ticket issue against result routing for one key.
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Coordinator tracks the current request generation of every key.
type Coordinator struct {
	mu       sync.Mutex
	slots    map[Key]*slot
	logger   *slog.Logger
	observer Observer
}

// New creates a Coordinator.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		slots:  make(map[Key]*slot),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) slot(key Key) *slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[key]
	if !ok {
		s = &slot{}
		c.slots[key] = s
	}
	return s
}

// Generation returns the number of requests issued for key so far.
func (c *Coordinator) Generation(key Key) uint64 {
	s := c.slot(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Cancel supersedes the in-flight request for key without issuing a new one.
func (c *Coordinator) Cancel(key Key) {
	s := c.slot(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Run issues a request for key. It begins key.Op on sink, performs call with
// a context that is cancelled when a newer request for key is issued, and
// routes the outcome: onSuccess on success, sink.Fail on error. A result
// that is no longer current is dropped and ErrSuperseded returned.
//
// Transitions are applied while the key's slot is locked but sink listeners
// run after it is released, so a listener may issue a new request for the
// same key. onSuccess must only change state through sink.
func Run[R any](
	ctx context.Context,
	c *Coordinator,
	key Key,
	sink Sink,
	call func(ctx context.Context) (R, error),
	onSuccess func(R),
) (R, error) {
	s := c.slot(key)

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	release := sink.Hold()
	sink.Begin(key.Op)
	s.mu.Unlock()
	release()

	res, err := call(reqCtx)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		c.logger.Debug("gatekeeper: dropping superseded result",
			"key", key.String(), "generation", gen, "error", err)
		if c.observer != nil {
			c.observer.Superseded(key)
		}
		var zero R
		return zero, ErrSuperseded
	}
	s.cancel = nil
	release = sink.Hold()
	if err != nil {
		sink.Fail(key.Op, err)
	} else if onSuccess != nil {
		onSuccess(res)
	}
	s.mu.Unlock()
	release()

	if c.observer != nil {
		if err != nil {
			c.observer.Failed(key, err)
		} else {
			c.observer.Succeeded(key)
		}
	}
	return res, err
}
