package lifecycle

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/xraph/gatekeeper/pagination"
)

// DefaultClearDelay is how long a success or error signal stays visible.
const DefaultClearDelay = 2 * time.Second

// Snapshot is a consistent copy of a Store's state.
type Snapshot[T any] struct {
	Kind   string               `json:"kind"`
	Items  []T                  `json:"items"`
	Detail *T                   `json:"detail,omitempty"`
	Page   pagination.Page      `json:"page"`
	Ops    map[Operation]Status `json:"ops"`
}

// Option configures a Store.
type Option func(*options)

type options struct {
	clock      clock.Clock
	clearDelay time.Duration
	logger     *slog.Logger
}

// WithClock sets the clock that drives auto-clear timers.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithClearDelay sets how long transient signals last. Zero keeps them until
// the next dispatch.
func WithClearDelay(d time.Duration) Option { return func(o *options) { o.clearDelay = d } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

type opState struct {
	status Status
	epoch  uint64
	timer  clock.Timer
}

// Store holds the state of one entity kind. Its list is mutated only by
// success transitions. It is safe for concurrent use; listeners run on the
// goroutine that caused the change, outside the store's lock.
type Store[T any] struct {
	mu        sync.Mutex
	kind      string
	keyOf     func(T) string
	opts      options
	items     []T
	detail    *T
	page      pagination.Page
	ops       map[Operation]*opState
	listeners map[int]func(Snapshot[T])
	nextID    int
	holds     int
	dirty     bool
}

// NewStore creates a store for kind. keyOf returns an entity's unique ID and
// is used to merge and prune list entries.
func NewStore[T any](kind string, keyOf func(T) string, opts ...Option) *Store[T] {
	o := options{
		clock:      clock.WallClock,
		clearDelay: DefaultClearDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		kind:      kind,
		keyOf:     keyOf,
		opts:      o,
		ops:       make(map[Operation]*opState),
		listeners: make(map[int]func(Snapshot[T])),
	}
}

// Kind returns the entity kind this store tracks.
func (s *Store[T]) Kind() string { return s.kind }

// ──────────────────────────────────────────────────
// Transitions
// ──────────────────────────────────────────────────

// Begin moves op to Pending. Transient signals of every operation on this
// kind are cleared, so a stale toast never outlives the next action.
func (s *Store[T]) Begin(op Operation) {
	s.mu.Lock()
	for _, st := range s.ops {
		s.clearLocked(st)
	}
	st := s.stateLocked(op)
	st.epoch++
	st.status = Status{Pending: true}
	s.mu.Unlock()
	s.notify()
}

// Succeed completes op without touching data.
func (s *Store[T]) Succeed(op Operation) {
	s.succeed(op, nil)
}

// SucceedList completes op by replacing the list and its page metadata.
func (s *Store[T]) SucceedList(op Operation, items []T, page pagination.Page) {
	s.succeed(op, func() {
		s.items = append([]T(nil), items...)
		s.page = page
	})
}

// SucceedDetail completes op by setting the detail entity. If the entity is
// already listed, its entry is replaced.
func (s *Store[T]) SucceedDetail(op Operation, item T) {
	s.succeed(op, func() {
		v := item
		s.detail = &v
		key := s.keyOf(item)
		for i := range s.items {
			if s.keyOf(s.items[i]) == key {
				s.items[i] = item
				return
			}
		}
	})
}

// SucceedUpsert completes op by replacing the listed entity with the same
// ID, or appending it.
func (s *Store[T]) SucceedUpsert(op Operation, item T) {
	s.succeed(op, func() {
		key := s.keyOf(item)
		if s.detail != nil && s.keyOf(*s.detail) == key {
			v := item
			s.detail = &v
		}
		for i := range s.items {
			if s.keyOf(s.items[i]) == key {
				s.items[i] = item
				return
			}
		}
		s.items = append(s.items, item)
		s.resizeLocked(1)
	})
}

// SucceedRemove completes op by pruning the entity with key.
func (s *Store[T]) SucceedRemove(op Operation, key string) {
	s.succeed(op, func() {
		if s.detail != nil && s.keyOf(*s.detail) == key {
			s.detail = nil
		}
		for i := range s.items {
			if s.keyOf(s.items[i]) == key {
				s.items = append(s.items[:i:i], s.items[i+1:]...)
				s.resizeLocked(-1)
				return
			}
		}
	})
}

// Fail moves op to Failed with a message extracted from err.
func (s *Store[T]) Fail(op Operation, err error) {
	s.mu.Lock()
	st := s.stateLocked(op)
	st.status = Status{Error: ErrorMessage(err), Code: ErrorCode(err)}
	s.scheduleClearLocked(op, st)
	s.mu.Unlock()
	s.opts.logger.Debug("gatekeeper: operation failed",
		"kind", s.kind, "op", string(op), "error", err)
	s.notify()
}

// Reset returns op to Idle immediately.
func (s *Store[T]) Reset(op Operation) {
	s.mu.Lock()
	if st, ok := s.ops[op]; ok {
		s.clearLocked(st)
		st.status.Pending = false
	}
	s.mu.Unlock()
	s.notify()
}

// Close stops every pending auto-clear timer.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.ops {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
	}
}

func (s *Store[T]) succeed(op Operation, apply func()) {
	s.mu.Lock()
	if apply != nil {
		apply()
	}
	st := s.stateLocked(op)
	st.status = Status{Succeeded: true}
	s.scheduleClearLocked(op, st)
	s.mu.Unlock()
	s.notify()
}

func (s *Store[T]) stateLocked(op Operation) *opState {
	st, ok := s.ops[op]
	if !ok {
		st = &opState{}
		s.ops[op] = st
	}
	return st
}

// clearLocked drops the transient signals of st and stops its timer.
func (s *Store[T]) clearLocked(st *opState) {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	st.status.Succeeded = false
	st.status.Error = ""
	st.status.Code = 0
}

func (s *Store[T]) scheduleClearLocked(op Operation, st *opState) {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	if s.opts.clearDelay <= 0 {
		return
	}
	epoch := st.epoch
	st.timer = s.opts.clock.AfterFunc(s.opts.clearDelay, func() {
		s.mu.Lock()
		cur, ok := s.ops[op]
		if !ok || cur.epoch != epoch || cur.status.Pending {
			s.mu.Unlock()
			return
		}
		cur.timer = nil
		cur.status = Status{}
		s.mu.Unlock()
		s.notify()
	})
}

func (s *Store[T]) resizeLocked(delta int64) {
	total := s.page.TotalItems + delta
	if total < 0 {
		total = 0
	}
	s.page = pagination.NewPage(s.page.CurrentPage, s.page.Size, total)
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// Items returns a copy of the list.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

// Page returns the pagination metadata of the last fetch.
func (s *Store[T]) Page() pagination.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Detail returns the last fetched single entity.
func (s *Store[T]) Detail() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil {
		var zero T
		return zero, false
	}
	return *s.detail, true
}

// Find returns the listed entity with key.
func (s *Store[T]) Find(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if s.keyOf(it) == key {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Status returns the current status of op.
func (s *Store[T]) Status(op Operation) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.ops[op]; ok {
		return st.status
	}
	return Status{}
}

// Busy reports whether any operation is pending.
func (s *Store[T]) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.ops {
		if st.status.Pending {
			return true
		}
	}
	return false
}

// Snapshot returns a consistent copy of the whole state.
func (s *Store[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store[T]) snapshotLocked() Snapshot[T] {
	snap := Snapshot[T]{
		Kind:  s.kind,
		Items: append([]T(nil), s.items...),
		Page:  s.page,
		Ops:   make(map[Operation]Status, len(s.ops)),
	}
	if s.detail != nil {
		v := *s.detail
		snap.Detail = &v
	}
	for op, st := range s.ops {
		snap.Ops[op] = st.status
	}
	return snap
}

// ──────────────────────────────────────────────────
// Listeners
// ──────────────────────────────────────────────────

// Subscribe registers fn to receive a snapshot after every change. The
// returned func unregisters it.
func (s *Store[T]) Subscribe(fn func(Snapshot[T])) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Hold defers listener callbacks until the returned release func is called.
// Transitions made while held are still applied at once; listeners then see
// one snapshot of the final state. Holds nest, and release is idempotent.
func (s *Store[T]) Hold() (release func()) {
	s.mu.Lock()
	s.holds++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.holds--
			fire := s.holds == 0 && s.dirty
			if fire {
				s.dirty = false
			}
			s.mu.Unlock()
			if fire {
				s.notify()
			}
		})
	}
}

func (s *Store[T]) notify() {
	s.mu.Lock()
	if s.holds > 0 {
		s.dirty = true
		s.mu.Unlock()
		return
	}
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot[T]), len(ids))
	for i, id := range ids {
		fns[i] = s.listeners[id]
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
