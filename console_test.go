package gatekeeper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/lifecycle"
	"github.com/xraph/gatekeeper/pagination"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/selection"
	"github.com/xraph/gatekeeper/transport"
	"github.com/xraph/gatekeeper/user"
)

// ──────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────

// fakeTransport serves fixed collections and records calls. A channel in
// gates blocks the matching call ("get:<id>") until it is closed. A
// "listAll:<kind>" gate blocks only the next ListAll of kind, and a cancelled
// wait returns late so that concurrent callers can join the shared load.
type fakeTransport struct {
	mu           sync.Mutex
	roles        []role.Role
	perms        []permission.Permission
	users        []user.User
	listQueries  []pagination.Query
	listAllCalls map[string]int
	createErr    error
	lastRoleIn   *role.Input
	availReqs    []user.AvailabilityRequest
	gates        map[string]chan struct{}
	failGets     int
}

var _ Transport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		listAllCalls: make(map[string]int),
		gates:        make(map[string]chan struct{}),
	}
}

func fill(out, v any) error {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeTransport) collection(kind string) []any {
	var out []any
	switch kind {
	case KindRoles:
		for _, r := range f.roles {
			out = append(out, r)
		}
	case KindPermissions:
		for _, p := range f.perms {
			out = append(out, p)
		}
	case KindUsers:
		for _, u := range f.users {
			out = append(out, u)
		}
	}
	return out
}

func (f *fakeTransport) List(_ context.Context, kind string, q pagination.Query, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q = q.Normalize()
	f.listQueries = append(f.listQueries, q)
	all := f.collection(kind)
	start := q.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + q.Size
	if end > len(all) {
		end = len(all)
	}
	items := all[start:end]
	if items == nil {
		items = []any{}
	}
	p := pagination.NewPage(q.Page, q.Size, int64(len(all)))
	return fill(out, map[string]any{
		"items":       items,
		"currentPage": p.CurrentPage,
		"totalItems":  p.TotalItems,
		"totalPages":  p.TotalPages,
	})
}

func (f *fakeTransport) ListAll(ctx context.Context, kind string, out any) error {
	f.mu.Lock()
	f.listAllCalls[kind]++
	gate := f.gates["listAll:"+kind]
	delete(f.gates, "listAll:"+kind)
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			time.Sleep(50 * time.Millisecond)
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return fill(out, f.collection(kind))
}

func (f *fakeTransport) Get(ctx context.Context, kind, entityID string, out any) error {
	f.mu.Lock()
	gate := f.gates["get:"+entityID]
	if f.failGets > 0 {
		f.failGets--
		f.mu.Unlock()
		return &transport.Error{Status: http.StatusServiceUnavailable, Message: "backend unavailable"}
	}
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.collection(kind) {
		var probe struct {
			ID string `json:"id"`
		}
		_ = fill(&probe, v)
		if probe.ID == entityID {
			return fill(out, v)
		}
	}
	return &transport.Error{Status: http.StatusNotFound, Message: "not found"}
}

func (f *fakeTransport) Create(_ context.Context, kind string, in, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	now := time.Now()
	switch p := in.(type) {
	case role.Input:
		r := role.Role{ID: id.NewRoleID(), Name: p.Name, Description: p.Description, CreatedAt: now, UpdatedAt: now}
		f.roles = append(f.roles, r)
		return fill(out, r)
	case permission.Input:
		pm := permission.Permission{ID: id.NewPermissionID(), Name: p.Name, Description: p.Description, CreatedAt: now, UpdatedAt: now}
		f.perms = append(f.perms, pm)
		return fill(out, pm)
	}
	return errors.New("fake: unsupported create for " + kind)
}

func (f *fakeTransport) Update(_ context.Context, kind, entityID string, in, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := in.(role.Input)
	if !ok || kind != KindRoles {
		return errors.New("fake: unsupported update")
	}
	f.lastRoleIn = &p
	for i := range f.roles {
		if f.roles[i].ID.String() != entityID {
			continue
		}
		ids, err := id.ParseAll(p.PermissionIDs, id.PrefixPermission)
		if err != nil {
			return &transport.Error{Status: http.StatusBadRequest, Message: err.Error()}
		}
		f.roles[i].Name = p.Name
		f.roles[i].Description = p.Description
		f.roles[i].PermissionIDs = ids
		return fill(out, f.roles[i])
	}
	return &transport.Error{Status: http.StatusNotFound, Message: "role not found"}
}

func (f *fakeTransport) Delete(_ context.Context, kind, entityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == KindRoles {
		for i := range f.roles {
			if f.roles[i].ID.String() == entityID {
				f.roles = append(f.roles[:i], f.roles[i+1:]...)
				return nil
			}
		}
	}
	return &transport.Error{Status: http.StatusNotFound, Message: "not found"}
}

func (f *fakeTransport) Action(_ context.Context, kind, entityID, action string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.users {
		if f.users[i].ID.String() != entityID {
			continue
		}
		switch action {
		case transport.ActionLock:
			f.users[i].Locked = true
		case transport.ActionUnlock:
			f.users[i].Locked = false
		case transport.ActionResetPassword:
			f.users[i].MustResetPassword = true
		}
		return fill(out, f.users[i])
	}
	return &transport.Error{Status: http.StatusNotFound, Message: kind + " not found"}
}

func (f *fakeTransport) SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string, out any) error {
	f.mu.Lock()
	var in role.Input
	for _, r := range f.roles {
		if r.ID.String() == roleID {
			in = role.Input{Name: r.Name, Description: r.Description, PermissionIDs: permissionIDs}
		}
	}
	f.mu.Unlock()
	return f.Update(ctx, KindRoles, roleID, in, out)
}

func (f *fakeTransport) CheckAvailability(_ context.Context, req user.AvailabilityRequest) (*user.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availReqs = append(f.availReqs, req)
	out := &user.Availability{}
	if req.Username != "" {
		free := true
		for _, u := range f.users {
			if u.Username == req.Username && u.ID.String() != req.ExcludeID {
				free = false
			}
		}
		out.UsernameAvailable = &free
	}
	return out, nil
}

func (f *fakeTransport) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

// mapCache is an in-process Cache that records deletes.
type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes int
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
}

func (m *mapCache) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deletes++
}

func newTestConsole(t *testing.T, ft *fakeTransport, opts ...Option) (*Console, *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Now())
	opts = append([]Option{WithTransport(ft), WithClock(clk)}, opts...)
	c, err := NewConsole(opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, clk
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func seedRoles(ft *fakeTransport, n int) {
	for i := 0; i < n; i++ {
		ft.roles = append(ft.roles, role.Role{
			ID:        id.NewRoleID(),
			Name:      "role-" + string(rune('a'+i)),
			CreatedAt: time.Now(),
		})
	}
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestNewConsoleRequiresTransport(t *testing.T) {
	if _, err := NewConsole(); err == nil {
		t.Fatal("expected error without transport")
	}
}

func TestServerModeFetch(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	seedRoles(ft, 12)
	c, _ := newTestConsole(t, ft)

	if err := c.Roles.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	v := c.Roles.View()
	if len(v.Items) != 10 || v.Page.TotalItems != 12 || v.Page.TotalPages != 2 {
		t.Fatalf("unexpected first page: %d items, %+v", len(v.Items), v.Page)
	}
	if err := c.Roles.SetPage(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if v := c.Roles.View(); len(v.Items) != 2 || v.Page.CurrentPage != 2 {
		t.Fatalf("unexpected second page: %+v", v.Page)
	}
	if !c.Roles.Status(lifecycle.OpFetch).Succeeded {
		t.Fatal("fetch should report success")
	}
}

func TestServerModeSearchIsDebounced(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	seedRoles(ft, 3)
	c, clk := newTestConsole(t, ft)

	_ = c.Roles.Fetch(ctx)
	_ = c.Roles.SetPage(ctx, 2)
	c.Roles.SetSearch("ro")
	c.Roles.SetSearch("role")

	ft.mu.Lock()
	before := len(ft.listQueries)
	ft.mu.Unlock()

	clk.Advance(DefaultConfig().DebounceDelay)
	waitFor(t, func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		return len(ft.listQueries) == before+1
	})

	ft.mu.Lock()
	q := ft.listQueries[len(ft.listQueries)-1]
	ft.mu.Unlock()
	if q.Search != "role" || q.Page != pagination.FirstPage {
		t.Fatalf("expected one search fetch on page 1, got %+v", q)
	}
}

func TestLatestGetWins(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	seedRoles(ft, 2)
	c, _ := newTestConsole(t, ft)

	first, second := ft.roles[0], ft.roles[1]
	release := ft.gate("get:" + first.ID.String())

	errFirst := make(chan error, 1)
	go func() {
		_, err := c.Roles.Get(ctx, first.ID.String())
		errFirst <- err
	}()
	waitFor(t, func() bool { return c.Roles.Status(lifecycle.OpGet).Pending })

	got, err := c.Roles.Get(ctx, second.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != second.ID {
		t.Fatal("second get returned the wrong role")
	}
	close(release)

	if err := <-errFirst; !IsSuperseded(err) {
		t.Fatalf("expected the first get to be superseded, got %v", err)
	}
	d, ok := c.Roles.Store().Detail()
	if !ok || d.ID != second.ID {
		t.Fatal("detail should reflect the latest request")
	}
}

func TestListenerRetriesFailedGet(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	seedRoles(ft, 1)
	ft.failGets = 1
	c, _ := newTestConsole(t, ft)
	target := ft.roles[0].ID.String()

	var (
		retried  sync.Once
		retryErr error
	)
	c.Roles.Subscribe(func(snap lifecycle.Snapshot[role.Role]) {
		if snap.Ops[lifecycle.OpGet].Error == "" {
			return
		}
		retried.Do(func() {
			_, retryErr = c.Roles.Get(ctx, target)
		})
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Roles.Get(ctx, target)
		done <- err
	}()

	select {
	case err := <-done:
		var te *transport.Error
		if !errors.As(err, &te) || te.Status != http.StatusServiceUnavailable {
			t.Fatalf("expected the first get to fail, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("get did not return when a listener re-dispatched it")
	}
	if retryErr != nil {
		t.Fatalf("retry from listener failed: %v", retryErr)
	}
	d, ok := c.Roles.Store().Detail()
	if !ok || d.ID.String() != target {
		t.Fatal("retried get should set the detail")
	}
	if st := c.Roles.Status(lifecycle.OpGet); !st.Succeeded || st.Error != "" {
		t.Fatalf("expected the retry to settle as success, got %+v", st)
	}
}

func TestClientModeRefreshSupersedesSharedLoad(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	seedRoles(ft, 3)
	cfg := DefaultConfig()
	cfg.KindModes = map[string]pagination.Mode{KindRoles: pagination.ClientMode}
	c, _ := newTestConsole(t, ft, WithConfig(cfg))
	ft.gate("listAll:" + KindRoles)

	errFirst := make(chan error, 1)
	go func() { errFirst <- c.Roles.Refresh(ctx) }()
	waitFor(t, func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		return ft.listAllCalls[KindRoles] == 1
	})

	if err := c.Roles.Refresh(ctx); err != nil {
		t.Fatalf("newer refresh should succeed, got %v", err)
	}
	if err := <-errFirst; !IsSuperseded(err) {
		t.Fatalf("expected the older refresh to be superseded, got %v", err)
	}

	ft.mu.Lock()
	calls := ft.listAllCalls[KindRoles]
	ft.mu.Unlock()
	if calls != 2 {
		t.Fatalf("newer refresh should reach the transport, got %d calls", calls)
	}
	if v := c.Roles.View(); v.Page.TotalItems != 3 || len(v.Items) != 3 {
		t.Fatalf("expected all roles listed, got %+v", v.Page)
	}
	if st := c.Roles.Status(lifecycle.OpFetch); !st.Succeeded || st.Error != "" {
		t.Fatalf("expected a settled fetch, got %+v", st)
	}
}

func TestCreateValidationSkipsDispatch(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	c, _ := newTestConsole(t, ft)

	_, err := c.Roles.Create(ctx, role.Input{Description: "no name"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if _, ok := ve.Field("name"); !ok {
		t.Fatalf("expected a name field error, got %+v", ve.Fields)
	}
	if len(ft.roles) != 0 {
		t.Fatal("invalid payload must not reach the transport")
	}
	if c.Roles.Status(lifecycle.OpCreate).Phase() != lifecycle.Idle {
		t.Fatal("invalid payload must not start the lifecycle")
	}

	_, err = c.Users.Create(ctx, user.Input{Username: "al", Email: "not-an-email"})
	if !errors.As(err, &ve) || len(ve.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
}

func TestCreateConflictAndAutoClear(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	ft.createErr = &transport.Error{Status: http.StatusConflict, Message: "role name already exists"}
	c, clk := newTestConsole(t, ft)

	_, err := c.Roles.Create(ctx, role.Input{Name: "admin"})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	st := c.Roles.Status(lifecycle.OpCreate)
	if !st.Conflict() || st.Error != "role name already exists" {
		t.Fatalf("unexpected status %+v", st)
	}

	ft.mu.Lock()
	ft.createErr = nil
	ft.mu.Unlock()

	r, err := c.Roles.Create(ctx, role.Input{Name: "admin"})
	if err != nil {
		t.Fatal(err)
	}
	if st := c.Roles.Status(lifecycle.OpCreate); !st.Succeeded || st.Error != "" {
		t.Fatalf("retry should replace the error with success, got %+v", st)
	}
	if _, ok := c.Roles.Store().Find(r.ID.String()); !ok {
		t.Fatal("created role should be merged into the list")
	}

	clk.Advance(DefaultConfig().SuccessClearDelay)
	waitFor(t, func() bool { return c.Roles.Status(lifecycle.OpCreate).Phase() == lifecycle.Idle })
}

func TestClientModeUsesSnapshotCache(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	for _, n := range []string{"users:create", "users:delete", "posts:edit", "Posts:publish"} {
		ft.perms = append(ft.perms, permission.Permission{ID: id.NewPermissionID(), Name: n})
	}
	cache := &mapCache{}
	cfg := DefaultConfig()
	cfg.KindModes = map[string]pagination.Mode{KindPermissions: pagination.ClientMode}
	c, _ := newTestConsole(t, ft, WithConfig(cfg), WithCache(cache))

	if err := c.Permissions.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Permissions.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if ft.listAllCalls[KindPermissions] != 1 || len(ft.listQueries) != 0 {
		t.Fatalf("client mode should fetch once, got %d", ft.listAllCalls[KindPermissions])
	}

	c.Permissions.SetSearch("POSTS")
	v := c.Permissions.View()
	if v.Page.TotalItems != 2 {
		t.Fatalf("case-insensitive search should match 2, got %d", v.Page.TotalItems)
	}

	// A second console sharing the cache never reaches the transport.
	c2, _ := newTestConsole(t, ft, WithConfig(cfg), WithCache(cache))
	if err := c2.Permissions.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if ft.listAllCalls[KindPermissions] != 1 {
		t.Fatal("cached snapshot should be reused")
	}

	if _, err := c.Permissions.Create(ctx, permission.Input{Name: "posts:archive"}); err != nil {
		t.Fatal(err)
	}
	if cache.deletes == 0 {
		t.Fatal("mutation should invalidate the snapshot")
	}
	if v := c.Permissions.View(); v.Page.TotalItems != 3 {
		t.Fatalf("new permission should appear in the filtered view, got %d", v.Page.TotalItems)
	}
}

func TestEditAndSaveRole(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	pCreate := permission.Permission{ID: id.NewPermissionID(), Name: "users:create"}
	pDelete := permission.Permission{ID: id.NewPermissionID(), Name: "users:delete"}
	pEdit := permission.Permission{ID: id.NewPermissionID(), Name: "posts:edit"}
	stale := id.NewPermissionID()
	ft.perms = []permission.Permission{pCreate, pDelete, pEdit}
	r := role.Role{ID: id.NewRoleID(), Name: "editor", PermissionIDs: []id.PermissionID{pCreate.ID, stale}}
	ft.roles = []role.Role{r}
	c, _ := newTestConsole(t, ft)

	ed, err := c.EditRole(ctx, r.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if st, _ := ed.State("users"); st != selection.Partial {
		t.Fatalf("expected users to be partial, got %s", st)
	}
	if unk := ed.Unknown(); len(unk) != 1 || unk[0] != stale.String() {
		t.Fatalf("expected the stale id to be unknown, got %v", unk)
	}
	if ed.Label(stale.String()) != selection.UnknownLabel {
		t.Fatal("stale id should render as unknown")
	}

	ed.ToggleGroup("users", true)
	if st, _ := ed.State("users"); st != selection.Full {
		t.Fatalf("expected users to be full, got %s", st)
	}

	saved, err := c.SaveRole(ctx, ed)
	if err != nil {
		t.Fatal(err)
	}
	want := id.Strings([]id.ID{pCreate.ID, pDelete.ID})
	got := ft.lastRoleIn.PermissionIDs
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected payload %v, got %v", want, got)
	}
	if len(saved.PermissionIDs) != 2 {
		t.Fatalf("expected 2 permissions on the saved role, got %d", len(saved.PermissionIDs))
	}
	if !c.Roles.Status(lifecycle.OpUpdate).Succeeded {
		t.Fatal("save should report success")
	}

	updated, err := c.SetRolePermissions(ctx, r.ID.String(), []string{pEdit.ID.String()})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.PermissionIDs) != 1 || updated.PermissionIDs[0] != pEdit.ID {
		t.Fatalf("unexpected permissions %v", updated.PermissionIDs)
	}
}

func TestUserActionsAndAvailability(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	alice := user.User{ID: id.NewUserID(), Username: "alice", Email: "alice@example.com"}
	ft.users = []user.User{alice}
	c, clk := newTestConsole(t, ft)

	if err := c.Users.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Users.Lock(ctx, alice.ID.String()); err != nil {
		t.Fatal(err)
	}
	if u, _ := c.Users.Store().Find(alice.ID.String()); !u.Locked {
		t.Fatal("lock should update the listed user")
	}
	if err := c.Users.ResetPassword(ctx, alice.ID.String()); err != nil {
		t.Fatal(err)
	}
	if !c.Users.Status(lifecycle.OpResetPassword).Succeeded {
		t.Fatal("reset should report success")
	}
	if _, err := c.Users.Unlock(ctx, "user_missing"); err == nil {
		t.Fatal("expected not found")
	}
	if c.Users.Status(lifecycle.OpUnlock).Code != http.StatusNotFound {
		t.Fatal("unlock failure should keep the status code")
	}

	c.Users.CheckAvailability(user.AvailabilityRequest{Username: "al"})
	c.Users.CheckAvailability(user.AvailabilityRequest{Username: "alic"})
	c.Users.CheckAvailability(user.AvailabilityRequest{Username: "alice"})
	if c.Users.Availability() != nil {
		t.Fatal("availability should not be checked before the debounce delay")
	}
	clk.Advance(DefaultConfig().DebounceDelay)
	waitFor(t, func() bool { return c.Users.Availability() != nil })

	a := c.Users.Availability()
	if a.UsernameAvailable == nil || *a.UsernameAvailable {
		t.Fatal("alice should be taken")
	}
	if len(ft.availReqs) != 1 || ft.availReqs[0].Username != "alice" {
		t.Fatalf("expected one request for the last value, got %+v", ft.availReqs)
	}

	got, err := c.Users.CheckAvailabilityNow(ctx, user.AvailabilityRequest{Username: "alice", ExcludeID: alice.ID.String()})
	if err != nil {
		t.Fatal(err)
	}
	if !*got.UsernameAvailable {
		t.Fatal("excluding alice should free her username")
	}
}

type failurePlugin struct {
	mu     sync.Mutex
	failed []lifecycle.Operation
}

func (p *failurePlugin) Name() string { return "failures" }

func (p *failurePlugin) OnOperationFailed(_ context.Context, _ string, op lifecycle.Operation, _ error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, op)
	return nil
}

func TestPluginsObserveFailures(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	fp := &failurePlugin{}
	c, _ := newTestConsole(t, ft, WithPlugin(fp))

	if err := c.Roles.Delete(ctx, "role_missing"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(fp.failed) != 1 || fp.failed[0] != lifecycle.OpDelete {
		t.Fatalf("expected one delete failure, got %v", fp.failed)
	}
}
