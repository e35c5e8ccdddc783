package selection

import (
	"reflect"
	"testing"

	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
)

func perms(names ...string) []permission.Permission {
	out := make([]permission.Permission, len(names))
	for i, n := range names {
		out[i] = permission.Permission{ID: id.NewPermissionID(), Name: n}
	}
	return out
}

func TestGroupByNamespace(t *testing.T) {
	ps := perms("users:create", "users:delete", "posts:edit")
	groups := Group(ps)

	if got := groups.Keys(); !reflect.DeepEqual(got, []string{"users", "posts"}) {
		t.Fatalf("expected [users posts], got %v", got)
	}
	users, ok := groups.Get("users")
	if !ok {
		t.Fatal("users group missing")
	}
	if len(users.Members) != 2 || users.Members[0].Name != "users:create" || users.Members[1].Name != "users:delete" {
		t.Fatalf("unexpected users members: %+v", users.Members)
	}
	posts, _ := groups.Get("posts")
	if len(posts.Members) != 1 || posts.Members[0].Name != "posts:edit" {
		t.Fatalf("unexpected posts members: %+v", posts.Members)
	}
}

func TestGroupOtherAndCaseSensitivity(t *testing.T) {
	groups := Group(perms("dashboard", "Users:read", "users:read", ":orphan", "a:b:c"))

	want := []string{OtherKey, "Users", "users", "", "a"}
	if got := groups.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	other, _ := groups.Get(OtherKey)
	if len(other.Members) != 1 || other.Members[0].Name != "dashboard" {
		t.Fatalf("expected only dashboard in other, got %+v", other.Members)
	}
	empty, _ := groups.Get("")
	if len(empty.Members) != 1 || empty.Members[0].Name != ":orphan" {
		t.Fatalf("expected :orphan under the empty key, got %+v", empty.Members)
	}
}

func TestKeyOf(t *testing.T) {
	cases := map[string]string{
		"users:create": "users",
		"a:b:c":        "a",
		"dashboard":    OtherKey,
		":x":           "",
		"":             OtherKey,
	}
	for name, want := range cases {
		if got := KeyOf(name); got != want {
			t.Errorf("KeyOf(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestGroupEmptyAndDeterministic(t *testing.T) {
	if got := Group(nil); len(got) != 0 {
		t.Fatalf("expected no groups, got %d", len(got))
	}

	ps := perms("b:1", "a:1", "b:2", "c", "a:2")
	first, second := Group(ps), Group(ps)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("grouping is not deterministic")
	}
}

// subsets enumerates every subset of ids.
func subsets(ids []string) []Set {
	out := make([]Set, 0, 1<<len(ids))
	for mask := 0; mask < 1<<len(ids); mask++ {
		s := Set{}
		for i, v := range ids {
			if mask&(1<<i) != 0 {
				s[v] = struct{}{}
			}
		}
		out = append(out, s)
	}
	return out
}

func TestStatusOverAllSubsets(t *testing.T) {
	ps := perms("users:a", "users:b", "users:c", "users:d", "posts:x")
	g, _ := Group(ps).Get("users")
	outsider := ps[4].ID.String()

	for _, s := range subsets(g.IDs()) {
		for _, withOutsider := range []bool{false, true} {
			sel := s.Clone()
			if withOutsider {
				sel[outsider] = struct{}{}
			}
			got := Status(sel, g)

			var want State
			switch len(s) {
			case 0:
				want = Empty
			case len(g.Members):
				want = Full
			default:
				want = Partial
			}
			if got != want {
				t.Fatalf("status(%v) = %s, want %s", sel.Sorted(), got, want)
			}
		}
	}
}

func TestToggleGroupInvariantOverAllSubsets(t *testing.T) {
	ps := perms("users:a", "users:b", "users:c", "posts:x", "posts:y")
	g, _ := Group(ps).Get("users")
	members := NewSet(g.IDs()...)
	extra := []string{ps[3].ID.String(), ps[4].ID.String()}

	for _, s := range subsets(append(g.IDs(), extra...)) {
		st := Status(s, g)

		cleared := ToggleGroup(s, g, false)
		removedAllMembersOnly := true
		for id := range s {
			if members.Has(id) == cleared.Has(id) {
				removedAllMembersOnly = false
			}
		}
		if (st == Full) != (removedAllMembersOnly && len(s)-len(cleared) == len(members)) {
			t.Fatalf("full invariant violated for %v", s.Sorted())
		}

		filled := ToggleGroup(s, g, true)
		addedAllMembersOnly := len(filled)-len(s) == len(members)
		if (st == Empty) != addedAllMembersOnly {
			t.Fatalf("empty invariant violated for %v", s.Sorted())
		}
	}
}

func TestToggleGroupIdempotent(t *testing.T) {
	ps := perms("users:a", "users:b", "posts:x")
	g, _ := Group(ps).Get("users")
	start := NewSet(ps[0].ID.String(), ps[2].ID.String())

	for _, sel := range []bool{true, false} {
		once := ToggleGroup(start, g, sel)
		twice := ToggleGroup(once, g, sel)
		if !once.Equal(twice) {
			t.Fatalf("toggle(%v) not idempotent: %v vs %v", sel, once.Sorted(), twice.Sorted())
		}
	}
}

func TestTogglesDoNotMutateInput(t *testing.T) {
	ps := perms("users:a", "users:b")
	g, _ := Group(ps).Get("users")
	start := NewSet(ps[0].ID.String())

	_ = ToggleGroup(start, g, true)
	_ = ToggleLeaf(start, ps[1].ID.String(), true)
	_ = ToggleLeaf(start, ps[0].ID.String(), false)

	if len(start) != 1 || !start.Has(ps[0].ID.String()) {
		t.Fatalf("input set was mutated: %v", start.Sorted())
	}
}

func TestBulkThenLeafConsistency(t *testing.T) {
	ps := perms("users:a", "users:b", "users:c", "solo:only")
	groups := Group(ps)

	for _, g := range groups {
		full := ToggleGroup(Set{}, g, true)
		if Status(full, g) != Full {
			t.Fatalf("group %s not full after select", g.Key)
		}
		after := ToggleLeaf(full, g.Members[0].ID.String(), false)
		want := Partial
		if len(g.Members) == 1 {
			want = Empty
		}
		if got := Status(after, g); got != want {
			t.Fatalf("group %s: expected %s after leaf toggle, got %s", g.Key, want, got)
		}
	}
}

func TestExampleScenario(t *testing.T) {
	ps := perms("users:create", "users:delete", "posts:edit")
	users, _ := Group(ps).Get("users")

	s := NewSet(ps[0].ID.String())
	if Status(s, users) != Partial {
		t.Fatal("expected partial")
	}
	s = ToggleGroup(s, users, true)
	if !s.Equal(NewSet(ps[0].ID.String(), ps[1].ID.String())) {
		t.Fatalf("unexpected set %v", s.Sorted())
	}
	if Status(s, users) != Full {
		t.Fatal("expected full")
	}
}

func TestBulkHelpersAndButtons(t *testing.T) {
	ps := perms("users:a", "posts:b")
	g, _ := Group(ps).Get("users")

	all := SelectAll(ps)
	if len(all) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(all))
	}
	if CanSelectAll(all, ps) {
		t.Fatal("select all should be disabled when everything is selected")
	}
	if CanSelectGroup(all, g) {
		t.Fatal("group select should be disabled when group is full")
	}
	if !CanClear(all) {
		t.Fatal("clear should be enabled")
	}
	if none := ClearAll(); CanClear(none) || len(none) != 0 {
		t.Fatal("clear should be disabled on an empty set")
	}
}

func TestEditorUnknownAndPayload(t *testing.T) {
	ps := perms("users:create", "users:delete", "posts:edit")
	stale := id.NewPermissionID()
	r := &role.Role{
		ID:            id.NewRoleID(),
		Name:          "editor",
		PermissionIDs: []id.PermissionID{ps[0].ID, stale},
	}
	e := NewEditor(r, ps)

	if got := e.Unknown(); !reflect.DeepEqual(got, []string{stale.String()}) {
		t.Fatalf("expected stale id reported, got %v", got)
	}
	if e.Label(stale.String()) != UnknownLabel {
		t.Fatal("stale id should render as unknown")
	}
	if e.Label(ps[0].ID.String()) != "users:create" {
		t.Fatal("known id should render its name")
	}
	if st, _ := e.State("users"); st != Partial {
		t.Fatalf("expected partial users group, got %s", st)
	}
	if e.Dirty() {
		t.Fatal("fresh editor should not be dirty")
	}

	if !e.ToggleGroup("users", true) {
		t.Fatal("expected users group to exist")
	}
	if e.ToggleGroup("missing", true) {
		t.Fatal("unknown group should report false")
	}
	e.ToggleLeaf(ps[2].ID.String(), true)
	if !e.Dirty() {
		t.Fatal("editor should be dirty after toggling")
	}

	views := e.Groups()
	if len(views) != 2 || views[0].State != Full || views[1].State != Full {
		t.Fatalf("unexpected views %+v", views)
	}

	payload := e.Payload()
	if payload.Name != "editor" {
		t.Fatalf("expected role name in payload, got %q", payload.Name)
	}
	if len(payload.PermissionIDs) != 3 {
		t.Fatalf("expected 3 known ids in payload, got %v", payload.PermissionIDs)
	}
	for _, pid := range payload.PermissionIDs {
		if pid == stale.String() {
			t.Fatal("payload must not carry unknown ids")
		}
	}
}

func TestEditorSelectAllAndClear(t *testing.T) {
	ps := perms("users:a", "users:b")
	stale := id.NewPermissionID()
	e := NewEditor(&role.Role{ID: id.NewRoleID(), PermissionIDs: []id.PermissionID{stale}}, ps)

	if !e.CanSelectAll() {
		t.Fatal("select all should be enabled")
	}
	e.SelectAll()
	if e.CanSelectAll() {
		t.Fatal("select all should be disabled after selecting all")
	}
	if len(e.Selected()) != 3 {
		t.Fatalf("expected known ids plus stale id, got %v", e.Selected().Sorted())
	}

	e.ClearAll()
	if e.CanClear() || len(e.Unknown()) != 0 {
		t.Fatal("expected an empty selection after clear")
	}
}
