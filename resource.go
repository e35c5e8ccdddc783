package gatekeeper

import (
	"context"

	"github.com/xraph/gatekeeper/coordinator"
	"github.com/xraph/gatekeeper/lifecycle"
	"github.com/xraph/gatekeeper/pagination"
	"github.com/xraph/gatekeeper/transport"
)

// Resource is the state bundle of one entity kind: a lifecycle store, a
// pagination adapter, and the coordinator key space for its operations.
// T is the entity and P its create/update payload.
type Resource[T, P any] struct {
	kind    string
	console *Console
	store   *lifecycle.Store[T]
	adapter *pagination.Adapter[T]
}

var _ pagination.Fetcher = (*Resource[struct{}, struct{}])(nil)

func newResource[T, P any](
	c *Console,
	kind string,
	keyOf func(T) string,
	fields func(T) []string,
	sortKey func(T, string) string,
) *Resource[T, P] {
	r := &Resource[T, P]{kind: kind, console: c}
	r.store = lifecycle.NewStore[T](kind, keyOf,
		lifecycle.WithClock(c.clock),
		lifecycle.WithClearDelay(c.config.SuccessClearDelay),
		lifecycle.WithLogger(c.logger),
	)
	r.adapter = pagination.NewAdapter[T](r.store, r,
		pagination.WithMode[T](c.config.ModeFor(kind)),
		pagination.WithPageSize[T](c.config.PageSize),
		pagination.WithSearchFields[T](fields),
		pagination.WithSortKey[T](sortKey),
		pagination.WithScheduler[T](c.debouncer, kind+":search"),
		pagination.WithLogger[T](c.logger),
	)
	return r
}

// Kind returns the entity kind, for example "roles".
func (r *Resource[T, P]) Kind() string { return r.kind }

// Store returns the underlying lifecycle store.
func (r *Resource[T, P]) Store() *lifecycle.Store[T] { return r.store }

// Status returns the current status of op.
func (r *Resource[T, P]) Status(op lifecycle.Operation) lifecycle.Status { return r.store.Status(op) }

// Busy reports whether any operation on this kind is pending.
func (r *Resource[T, P]) Busy() bool { return r.store.Busy() }

// Subscribe registers fn to receive a snapshot after every state change.
// The returned func unregisters it.
func (r *Resource[T, P]) Subscribe(fn func(lifecycle.Snapshot[T])) func() {
	return r.store.Subscribe(fn)
}

// ──────────────────────────────────────────────────
// Lists
// ──────────────────────────────────────────────────

// Mode returns the pagination mode of this kind.
func (r *Resource[T, P]) Mode() pagination.Mode { return r.adapter.Mode() }

// Query returns the current list query.
func (r *Resource[T, P]) Query() pagination.Query { return r.adapter.Query() }

// Fetch loads the list. In client mode the collection is fetched once; use
// Refresh to fetch it again.
func (r *Resource[T, P]) Fetch(ctx context.Context) error { return r.adapter.Load(ctx) }

// Refresh drops any cached snapshot and fetches the list again.
func (r *Resource[T, P]) Refresh(ctx context.Context) error {
	r.console.invalidate(r.kind)
	return r.adapter.Reload(ctx)
}

// SetPage moves to page n.
func (r *Resource[T, P]) SetPage(ctx context.Context, n int) error { return r.adapter.SetPage(ctx, n) }

// SetSize changes the page size and returns to the first page.
func (r *Resource[T, P]) SetSize(ctx context.Context, n int) error { return r.adapter.SetSize(ctx, n) }

// SetSort changes the sort field and direction.
func (r *Resource[T, P]) SetSort(ctx context.Context, field string, dir pagination.Direction) error {
	return r.adapter.SetSort(ctx, field, dir)
}

// SetSearch changes the search term and returns to the first page. In
// server mode the fetch is sent after the debounce delay.
func (r *Resource[T, P]) SetSearch(term string) { r.adapter.SetSearch(term) }

// View returns the page a list screen renders.
func (r *Resource[T, P]) View() pagination.View[T] { return r.adapter.View() }

// FetchPage loads one server-side page. It implements pagination.Fetcher.
func (r *Resource[T, P]) FetchPage(ctx context.Context, q pagination.Query) error {
	_, err := coordinator.Run(ctx, r.console.coord, keyOp(r.kind, lifecycle.OpFetch), r.store,
		func(ctx context.Context) (*transport.PageResponse[T], error) {
			resp := &transport.PageResponse[T]{}
			if err := r.console.transport.List(ctx, r.kind, q, resp); err != nil {
				return nil, err
			}
			return resp, nil
		},
		func(resp *transport.PageResponse[T]) {
			r.store.SucceedList(lifecycle.OpFetch, resp.Items, resp.Page(q.Size))
		},
	)
	return err
}

// FetchAll loads the whole collection. It implements pagination.Fetcher.
func (r *Resource[T, P]) FetchAll(ctx context.Context) error {
	_, err := coordinator.Run(ctx, r.console.coord, keyOp(r.kind, lifecycle.OpFetch), r.store,
		func(ctx context.Context) ([]T, error) {
			return loadAll[T](ctx, r.console, r.kind)
		},
		func(items []T) {
			n := len(items)
			r.store.SucceedList(lifecycle.OpFetch, items, pagination.NewPage(pagination.FirstPage, n, int64(n)))
		},
	)
	return err
}

// ──────────────────────────────────────────────────
// Single-entity operations
// ──────────────────────────────────────────────────

// Get fetches one entity into the detail slot.
func (r *Resource[T, P]) Get(ctx context.Context, id string) (T, error) {
	return coordinator.Run(ctx, r.console.coord, keyOp(r.kind, lifecycle.OpGet), r.store,
		func(ctx context.Context) (T, error) {
			var out T
			err := r.console.transport.Get(ctx, r.kind, id, &out)
			return out, err
		},
		func(v T) { r.store.SucceedDetail(lifecycle.OpGet, v) },
	)
}

// Create validates payload and creates an entity. A validation failure is
// returned as *ValidationError without dispatching.
func (r *Resource[T, P]) Create(ctx context.Context, payload P) (T, error) {
	if err := r.console.validatePayload(payload); err != nil {
		var zero T
		return zero, err
	}
	return r.mutate(ctx, lifecycle.OpCreate, func(ctx context.Context, out *T) error {
		return r.console.transport.Create(ctx, r.kind, payload, out)
	})
}

// Update validates payload and updates the entity with id.
func (r *Resource[T, P]) Update(ctx context.Context, id string, payload P) (T, error) {
	if err := r.console.validatePayload(payload); err != nil {
		var zero T
		return zero, err
	}
	return r.mutate(ctx, lifecycle.OpUpdate, func(ctx context.Context, out *T) error {
		return r.console.transport.Update(ctx, r.kind, id, payload, out)
	})
}

// Delete removes the entity with id.
func (r *Resource[T, P]) Delete(ctx context.Context, id string) error {
	_, err := coordinator.Run(ctx, r.console.coord, keyOp(r.kind, lifecycle.OpDelete), r.store,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.console.transport.Delete(ctx, r.kind, id)
		},
		func(struct{}) {
			r.console.invalidate(r.kind)
			r.store.SucceedRemove(lifecycle.OpDelete, id)
		},
	)
	return err
}

// mutate runs op, decoding the changed entity and merging it into the list.
func (r *Resource[T, P]) mutate(ctx context.Context, op lifecycle.Operation, call func(ctx context.Context, out *T) error) (T, error) {
	return coordinator.Run(ctx, r.console.coord, keyOp(r.kind, op), r.store,
		func(ctx context.Context) (T, error) {
			var out T
			err := call(ctx, &out)
			return out, err
		},
		func(v T) {
			r.console.invalidate(r.kind)
			r.store.SucceedUpsert(op, v)
		},
	)
}
