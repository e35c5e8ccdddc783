// Package selection derives namespace groups and tri-state selection from a
// flat permission list and a set of selected permission IDs.
//
// Everything here is a pure function of its inputs. A group's State is never
// stored; it is recomputed from the selected set whenever it is needed.
//
//	groups := selection.Group(perms)
//	users, _ := groups.Get("users")
//	next := selection.ToggleGroup(selected, users, true)
//	selection.Status(next, users) // selection.Full
package selection

import (
	"strings"

	"github.com/xraph/gatekeeper/permission"
)

// OtherKey is the reserved group for permissions without a namespace.
const OtherKey = "other"

// KeyOf returns the group key for a permission name: the token before the
// first ':' or OtherKey when there is none. Keys are case-sensitive, and a
// name starting with ':' belongs to the empty key.
func KeyOf(name string) string {
	ns, _, ok := strings.Cut(name, permission.Delimiter)
	if !ok {
		return OtherKey
	}
	return ns
}

// GroupEntry is one namespace and its members in input order.
type GroupEntry struct {
	Key     string                  `json:"key"`
	Members []permission.Permission `json:"members"`
}

// IDs returns the member IDs in order.
func (g GroupEntry) IDs() []string {
	out := make([]string, len(g.Members))
	for i := range g.Members {
		out[i] = g.Members[i].ID.String()
	}
	return out
}

// Groups is an ordered mapping from key to group. Groups appear in the order
// their first member appeared in the input.
type Groups []GroupEntry

// Get returns the group with the given key.
func (gs Groups) Get(key string) (GroupEntry, bool) {
	for _, g := range gs {
		if g.Key == key {
			return g, true
		}
	}
	return GroupEntry{}, false
}

// Keys returns group keys in order.
func (gs Groups) Keys() []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.Key
	}
	return out
}

// Group partitions perms by namespace. It is deterministic and keeps input
// order both across and within groups. Empty input yields empty Groups.
func Group(perms []permission.Permission) Groups {
	if len(perms) == 0 {
		return Groups{}
	}
	index := make(map[string]int)
	var out Groups
	for _, p := range perms {
		key := KeyOf(p.Name)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, GroupEntry{Key: key})
		}
		out[i].Members = append(out[i].Members, p)
	}
	return out
}
