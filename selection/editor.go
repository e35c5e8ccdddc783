package selection

import (
	"sort"

	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
)

// UnknownLabel is shown for a selected ID that no fetched permission has.
const UnknownLabel = "Unknown Permission"

// Member is one permission row in a GroupView.
type Member struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Selected    bool   `json:"selected"`
}

// GroupView is the render model of one group.
type GroupView struct {
	Key     string   `json:"key"`
	Members []Member `json:"members"`
	State   State    `json:"state"`
}

// Editor holds the selected-ID set for a single role being edited. It is
// owned by one editing session and is not safe for concurrent use.
type Editor struct {
	role     role.Role
	perms    []permission.Permission
	groups   Groups
	byID     map[string]int
	initial  Set
	selected Set
}

// NewEditor starts an editing session seeded with r's current permissions.
// IDs in r that are missing from perms stay selected and show up in Unknown.
func NewEditor(r *role.Role, perms []permission.Permission) *Editor {
	e := &Editor{
		role:   *r,
		perms:  append([]permission.Permission(nil), perms...),
		groups: Group(perms),
		byID:   make(map[string]int, len(perms)),
	}
	for i := range e.perms {
		e.byID[e.perms[i].ID.String()] = i
	}
	initial := make(Set, len(r.PermissionIDs))
	for _, pid := range r.PermissionIDs {
		initial[pid.String()] = struct{}{}
	}
	e.initial = initial
	e.selected = initial.Clone()
	return e
}

// RoleID returns the ID of the role being edited.
func (e *Editor) RoleID() string { return e.role.ID.String() }

// Role returns the role as loaded.
func (e *Editor) Role() role.Role { return e.role }

// Groups renders every group with per-member selection and derived state.
func (e *Editor) Groups() []GroupView {
	out := make([]GroupView, len(e.groups))
	for i, g := range e.groups {
		members := make([]Member, len(g.Members))
		for j := range g.Members {
			p := &g.Members[j]
			members[j] = Member{
				ID:          p.ID.String(),
				Name:        p.Name,
				Description: p.Description,
				Selected:    e.selected.Has(p.ID.String()),
			}
		}
		out[i] = GroupView{Key: g.Key, Members: members, State: Status(e.selected, g)}
	}
	return out
}

// State returns the derived state of the group with key, and false for an
// unknown key.
func (e *Editor) State(key string) (State, bool) {
	g, ok := e.groups.Get(key)
	if !ok {
		return Empty, false
	}
	return Status(e.selected, g), true
}

// ToggleLeaf selects or deselects one permission.
func (e *Editor) ToggleLeaf(permID string, checked bool) {
	e.selected = ToggleLeaf(e.selected, permID, checked)
}

// ToggleGroup selects or deselects a whole group. It reports false when key
// names no group.
func (e *Editor) ToggleGroup(key string, sel bool) bool {
	g, ok := e.groups.Get(key)
	if !ok {
		return false
	}
	e.selected = ToggleGroup(e.selected, g, sel)
	return true
}

// SelectAll selects every known permission. Unknown IDs already selected
// are kept.
func (e *Editor) SelectAll() {
	all := SelectAll(e.perms)
	for id := range e.selected {
		all[id] = struct{}{}
	}
	e.selected = all
}

// ClearAll deselects everything.
func (e *Editor) ClearAll() { e.selected = ClearAll() }

// CanSelectAll reports whether any known permission is still unselected.
func (e *Editor) CanSelectAll() bool { return CanSelectAll(e.selected, e.perms) }

// CanClear reports whether anything is selected.
func (e *Editor) CanClear() bool { return CanClear(e.selected) }

// Selected returns a copy of the current selection.
func (e *Editor) Selected() Set { return e.selected.Clone() }

// Dirty reports whether the selection differs from the loaded role.
func (e *Editor) Dirty() bool { return !e.selected.Equal(e.initial) }

// Unknown returns selected IDs that match no fetched permission, sorted.
func (e *Editor) Unknown() []string {
	var out []string
	for id := range e.selected {
		if _, ok := e.byID[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Label returns the permission name for id, or UnknownLabel.
func (e *Editor) Label(permID string) string {
	if i, ok := e.byID[permID]; ok {
		return e.perms[i].Name
	}
	return UnknownLabel
}

// Payload builds the role update for submission. Unknown IDs are dropped
// because the backend cannot grant a permission that no longer exists.
func (e *Editor) Payload() role.Input {
	ids := make([]string, 0, len(e.selected))
	for _, id := range e.selected.Sorted() {
		if _, ok := e.byID[id]; ok {
			ids = append(ids, id)
		}
	}
	return role.Input{
		Name:          e.role.Name,
		Description:   e.role.Description,
		PermissionIDs: ids,
	}
}
