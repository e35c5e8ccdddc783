package sqlite

import (
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/gatekeeper"
	"github.com/xraph/gatekeeper/store"
	"github.com/xraph/gatekeeper/user"
)

func TestUniqueViolationMapping(t *testing.T) {
	cases := map[string]error{
		"UNIQUE constraint failed: gatekeeper_roles.name":       gatekeeper.ErrDuplicateRole,
		"UNIQUE constraint failed: gatekeeper_permissions.name": gatekeeper.ErrDuplicatePermission,
		"UNIQUE constraint failed: gatekeeper_users.username":   gatekeeper.ErrDuplicateUsername,
		"UNIQUE constraint failed: gatekeeper_users.email":      gatekeeper.ErrDuplicateEmail,
	}
	for msg, want := range cases {
		err := fmt.Errorf("exec insert: %w", errors.New(msg+" (2067)"))
		if got := uniqueViolation(err); !errors.Is(got, want) {
			t.Fatalf("%q: expected %v, got %v", msg, want, got)
		}
	}

	if got := uniqueViolation(errors.New("FOREIGN KEY constraint failed")); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestOrderBy(t *testing.T) {
	if got := orderBy("fullName", "desc", store.UserSortColumns); got != "full_name DESC, id DESC" {
		t.Fatalf("unexpected order %q", got)
	}
	if got := orderBy("", "", store.PermissionSortColumns); got != "created_at ASC, id ASC" {
		t.Fatalf("unexpected default order %q", got)
	}
}

func TestUserConditions(t *testing.T) {
	if conds := userConditions(nil); len(conds) != 0 {
		t.Fatalf("expected no conditions, got %d", len(conds))
	}
	locked := true
	conds := userConditions(&user.ListFilter{Search: "Ali", Locked: &locked})
	if len(conds) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(conds))
	}
	if len(conds[1].args) != 3 || conds[1].args[0] != "%ali%" {
		t.Fatalf("unexpected search args %v", conds[1].args)
	}
}
