package pagination

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Source exposes the data a fetch has loaded. In server mode Items is the
// current page and Page carries the server's totals; in client mode Items
// is the whole collection and Page is ignored.
type Source[T any] interface {
	Items() []T
	Page() Page
}

// Fetcher loads data into a Source.
type Fetcher interface {
	// FetchPage loads one page described by q (server mode).
	FetchPage(ctx context.Context, q Query) error
	// FetchAll loads the whole collection (client mode).
	FetchAll(ctx context.Context) error
}

// Scheduler coalesces bursts of calls under a key into one delayed call.
type Scheduler interface {
	Trigger(key string, fn func())
}

// View is what a list screen renders.
type View[T any] struct {
	Items []T   `json:"items"`
	Page  Page  `json:"page"`
	Query Query `json:"query"`
}

// AdapterOption configures an Adapter.
type AdapterOption[T any] func(*Adapter[T])

// WithMode sets the paging mode. The default is ServerMode.
func WithMode[T any](m Mode) AdapterOption[T] {
	return func(a *Adapter[T]) { a.mode = m }
}

// WithPageSize sets the initial page size.
func WithPageSize[T any](n int) AdapterOption[T] {
	return func(a *Adapter[T]) { a.query.Size = n }
}

// WithSort sets the initial sort.
func WithSort[T any](field string, dir Direction) AdapterOption[T] {
	return func(a *Adapter[T]) {
		a.query.SortBy = field
		a.query.Direction = dir
	}
}

// WithSearchFields sets the fields matched by client-mode search.
func WithSearchFields[T any](fields func(T) []string) AdapterOption[T] {
	return func(a *Adapter[T]) { a.fields = fields }
}

// WithSortKey sets how client mode reads a sort field from an item. Without
// it client mode keeps the loaded order.
func WithSortKey[T any](key func(item T, field string) string) AdapterOption[T] {
	return func(a *Adapter[T]) { a.sortKey = key }
}

// WithScheduler debounces server-mode search fetches under key.
func WithScheduler[T any](s Scheduler, key string) AdapterOption[T] {
	return func(a *Adapter[T]) {
		a.scheduler = s
		a.debounceKey = key
	}
}

// WithLogger sets the structured logger.
func WithLogger[T any](l *slog.Logger) AdapterOption[T] {
	return func(a *Adapter[T]) { a.logger = l }
}

// Adapter tracks the list query for one screen and turns it into a View in
// either mode. Changing the page size or the search term always returns to
// FirstPage.
type Adapter[T any] struct {
	mu          sync.Mutex
	mode        Mode
	query       Query
	loaded      bool
	source      Source[T]
	fetcher     Fetcher
	fields      func(T) []string
	sortKey     func(T, string) string
	scheduler   Scheduler
	debounceKey string
	logger      *slog.Logger
}

// NewAdapter creates an adapter over source, loading through fetcher.
func NewAdapter[T any](source Source[T], fetcher Fetcher, opts ...AdapterOption[T]) *Adapter[T] {
	a := &Adapter[T]{
		mode:    ServerMode,
		query:   Query{Page: FirstPage, Size: DefaultSize, Direction: Asc},
		source:  source,
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.query = a.query.Normalize()
	return a
}

// Mode returns the configured mode.
func (a *Adapter[T]) Mode() Mode { return a.mode }

// Query returns the current query.
func (a *Adapter[T]) Query() Query {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query
}

// Load performs the initial fetch. In client mode it fetches the collection
// only once; later calls are no-ops until Reload.
func (a *Adapter[T]) Load(ctx context.Context) error {
	a.mu.Lock()
	if a.mode == ClientMode && a.loaded {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()
	return a.Reload(ctx)
}

// Reload fetches again regardless of what is loaded.
func (a *Adapter[T]) Reload(ctx context.Context) error {
	if a.mode == ClientMode {
		if err := a.fetcher.FetchAll(ctx); err != nil {
			return err
		}
		a.mu.Lock()
		a.loaded = true
		a.mu.Unlock()
		return nil
	}
	return a.fetcher.FetchPage(ctx, a.Query())
}

// SetPage moves to page n.
func (a *Adapter[T]) SetPage(ctx context.Context, n int) error {
	if n < FirstPage {
		n = FirstPage
	}
	return a.update(ctx, func(q *Query) { q.Page = n })
}

// SetSize changes the page size and returns to the first page.
func (a *Adapter[T]) SetSize(ctx context.Context, n int) error {
	if n <= 0 {
		n = DefaultSize
	}
	return a.update(ctx, func(q *Query) {
		q.Size = n
		q.Page = FirstPage
	})
}

// SetSort changes the sort field and direction.
func (a *Adapter[T]) SetSort(ctx context.Context, field string, dir Direction) error {
	return a.update(ctx, func(q *Query) {
		q.SortBy = field
		q.Direction = dir
	})
}

// SetSearch changes the search term and returns to the first page. In
// server mode the fetch is debounced through the scheduler when one is set;
// its outcome is reported through the Fetcher, not returned here.
func (a *Adapter[T]) SetSearch(term string) {
	a.mu.Lock()
	a.query.Search = term
	a.query.Page = FirstPage
	a.mu.Unlock()

	if a.mode != ServerMode {
		return
	}
	fetch := func() {
		if err := a.fetcher.FetchPage(context.Background(), a.Query()); err != nil {
			a.logger.Debug("gatekeeper: search fetch failed", "search", term, "error", err)
		}
	}
	if a.scheduler == nil {
		fetch()
		return
	}
	a.scheduler.Trigger(a.debounceKey, fetch)
}

func (a *Adapter[T]) update(ctx context.Context, fn func(*Query)) error {
	a.mu.Lock()
	fn(&a.query)
	a.query = a.query.Normalize()
	q := a.query
	a.mu.Unlock()

	if a.mode == ServerMode {
		return a.fetcher.FetchPage(ctx, q)
	}
	return nil
}

// View renders the current page.
func (a *Adapter[T]) View() View[T] {
	q := a.Query()
	if a.mode == ServerMode {
		return View[T]{Items: a.source.Items(), Page: a.source.Page(), Query: q}
	}

	filtered := a.filter(a.source.Items(), q.Search)
	a.sort(filtered, q)

	// A page past the end shows the last page.
	page := NewPage(q.Page, q.Size, int64(len(filtered)))
	if q.Page > page.TotalPages {
		q.Page = max(page.TotalPages, FirstPage)
		page.CurrentPage = q.Page
	}
	start := q.Offset()
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + q.Size
	if end > len(filtered) {
		end = len(filtered)
	}
	return View[T]{Items: filtered[start:end], Page: page, Query: q}
}

// filter keeps items where any search field contains term, compared with
// Unicode case folding. The term is matched as given, spaces included.
func (a *Adapter[T]) filter(items []T, term string) []T {
	if term == "" || a.fields == nil {
		return append([]T(nil), items...)
	}
	folder := cases.Fold()
	needle := folder.String(term)
	out := make([]T, 0, len(items))
	for _, item := range items {
		for _, f := range a.fields(item) {
			if strings.Contains(folder.String(f), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

func (a *Adapter[T]) sort(items []T, q Query) {
	if a.sortKey == nil || q.SortBy == "" {
		return
	}
	folder := cases.Fold()
	sort.SliceStable(items, func(i, j int) bool {
		ki := folder.String(a.sortKey(items[i], q.SortBy))
		kj := folder.String(a.sortKey(items[j], q.SortBy))
		if q.Direction == Desc {
			return ki > kj
		}
		return ki < kj
	})
}
