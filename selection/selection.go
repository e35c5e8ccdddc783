package selection

import (
	"sort"

	"github.com/xraph/gatekeeper/permission"
)

// State is the tri-state summary of a group's selection.
type State int

const (
	// Empty means no member of the group is selected.
	Empty State = iota
	// Partial means some but not all members are selected.
	Partial
	// Full means every member is selected.
	Full
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Partial:
		return "partial"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Set is a set of permission IDs. Operations in this package never mutate
// a Set they receive; they return a new one.
type Set map[string]struct{}

// NewSet builds a Set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, v := range ids {
		s[v] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same members.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if _, ok := o[k]; !ok {
			return false
		}
	}
	return true
}

// ToggleLeaf adds (checked) or removes exactly one id.
func ToggleLeaf(selected Set, id string, checked bool) Set {
	out := selected.Clone()
	if checked {
		out[id] = struct{}{}
	} else {
		delete(out, id)
	}
	return out
}

// ToggleGroup unions every member of g into selected, or subtracts them all
// when sel is false. Applying the same toggle twice equals applying it once.
func ToggleGroup(selected Set, g GroupEntry, sel bool) Set {
	out := selected.Clone()
	for i := range g.Members {
		key := g.Members[i].ID.String()
		if sel {
			out[key] = struct{}{}
		} else {
			delete(out, key)
		}
	}
	return out
}

// Status derives g's State from selected. A group with no members is Empty.
func Status(selected Set, g GroupEntry) State {
	if len(g.Members) == 0 {
		return Empty
	}
	n := 0
	for i := range g.Members {
		if selected.Has(g.Members[i].ID.String()) {
			n++
		}
	}
	switch n {
	case 0:
		return Empty
	case len(g.Members):
		return Full
	default:
		return Partial
	}
}

// SelectAll returns a set holding every permission in all.
func SelectAll(all []permission.Permission) Set {
	out := make(Set, len(all))
	for i := range all {
		out[all[i].ID.String()] = struct{}{}
	}
	return out
}

// ClearAll returns an empty set.
func ClearAll() Set { return Set{} }

// CanSelectGroup reports whether a "select all" control for g is enabled.
func CanSelectGroup(selected Set, g GroupEntry) bool {
	return Status(selected, g) != Full
}

// CanSelectAll reports whether the global "select all" control is enabled.
func CanSelectAll(selected Set, all []permission.Permission) bool {
	for i := range all {
		if !selected.Has(all[i].ID.String()) {
			return true
		}
	}
	return false
}

// CanClear reports whether a "clear" control is enabled.
func CanClear(selected Set) bool { return len(selected) > 0 }
