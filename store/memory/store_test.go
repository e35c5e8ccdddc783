package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/gatekeeper"
	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/user"
)

func TestRoleCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	perm := &permission.Permission{ID: id.NewPermissionID(), Name: "users:read"}
	if err := s.CreatePermission(ctx, perm); err != nil {
		t.Fatal(err)
	}

	r := &role.Role{
		ID:            id.NewRoleID(),
		Name:          "admin",
		PermissionIDs: []id.PermissionID{perm.ID},
	}

	// Create
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	if r.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be stamped")
	}

	// Get
	got, err := s.GetRole(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "admin" || !got.HasPermission(perm.ID) {
		t.Fatalf("unexpected role %+v", got)
	}

	// GetByName
	got, err = s.GetRoleByName(ctx, "ADMIN")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != r.ID {
		t.Fatal("name lookup mismatch")
	}

	// Duplicate
	dup := &role.Role{ID: id.NewRoleID(), Name: "Admin"}
	if err := s.CreateRole(ctx, dup); !errors.Is(err, gatekeeper.ErrDuplicateRole) {
		t.Fatalf("expected ErrDuplicateRole, got %v", err)
	}

	// Update keeps the permission set.
	r.Name = "super-admin"
	if err := s.UpdateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetRole(ctx, r.ID)
	if got.Name != "super-admin" || len(got.PermissionIDs) != 1 {
		t.Fatalf("update failed: %+v", got)
	}

	// Count
	count, _ := s.CountRoles(ctx, &role.ListFilter{Search: "super", Limit: 0})
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	// Delete
	if err := s.DeleteRole(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRole(ctx, r.ID); !errors.Is(err, gatekeeper.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
	if err := s.DeleteRole(ctx, r.ID); !errors.Is(err, gatekeeper.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound on second delete, got %v", err)
	}
}

func TestSetRolePermissions(t *testing.T) {
	ctx := context.Background()
	s := New()

	p1 := &permission.Permission{ID: id.NewPermissionID(), Name: "users:read"}
	p2 := &permission.Permission{ID: id.NewPermissionID(), Name: "users:write"}
	for _, p := range []*permission.Permission{p1, p2} {
		if err := s.CreatePermission(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	r := &role.Role{ID: id.NewRoleID(), Name: "editor"}
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}

	if err := s.SetRolePermissions(ctx, r.ID, []id.PermissionID{p1.ID, p2.ID}); err != nil {
		t.Fatal(err)
	}
	ids, err := s.ListRolePermissions(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 permissions, got %d", len(ids))
	}

	// Unknown permission rejects the whole set.
	err = s.SetRolePermissions(ctx, r.ID, []id.PermissionID{p1.ID, id.NewPermissionID()})
	if !errors.Is(err, gatekeeper.ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}

	// Deleting a permission detaches it from roles.
	if err := s.DeletePermission(ctx, p1.ID); err != nil {
		t.Fatal(err)
	}
	ids, _ = s.ListRolePermissions(ctx, r.ID)
	if len(ids) != 1 || ids[0] != p2.ID {
		t.Fatalf("expected only %s, got %v", p2.ID, ids)
	}
}

func TestPermissionListSortAndPage(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, name := range []string{"roles:read", "audit:view", "users:create", "users:delete"} {
		if err := s.CreatePermission(ctx, &permission.Permission{ID: id.NewPermissionID(), Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.CreatePermission(ctx, &permission.Permission{ID: id.NewPermissionID(), Name: "audit:view"}); !errors.Is(err, gatekeeper.ErrDuplicatePermission) {
		t.Fatalf("expected ErrDuplicatePermission, got %v", err)
	}

	list, err := s.ListPermissions(ctx, &permission.ListFilter{SortBy: "name", Direction: "desc", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "users:delete" || list[1].Name != "users:create" {
		t.Fatalf("unexpected first page %v", names(list))
	}

	list, _ = s.ListPermissions(ctx, &permission.ListFilter{SortBy: "name", Direction: "desc", Limit: 2, Offset: 2})
	if len(list) != 2 || list[0].Name != "roles:read" || list[1].Name != "audit:view" {
		t.Fatalf("unexpected second page %v", names(list))
	}

	list, _ = s.ListPermissions(ctx, &permission.ListFilter{Search: "USERS"})
	if len(list) != 2 {
		t.Fatalf("expected 2 search hits, got %d", len(list))
	}

	count, _ := s.CountPermissions(ctx, &permission.ListFilter{Limit: 1})
	if count != 4 {
		t.Fatalf("count should ignore limit, got %d", count)
	}
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := &role.Role{ID: id.NewRoleID(), Name: "viewer"}
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}

	u := &user.User{
		ID:       id.NewUserID(),
		Username: "alice",
		Email:    "alice@example.com",
		RoleIDs:  []id.RoleID{r.ID},
	}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	clash := &user.User{ID: id.NewUserID(), Username: "Alice", Email: "other@example.com"}
	if err := s.CreateUser(ctx, clash); !errors.Is(err, gatekeeper.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	clash = &user.User{ID: id.NewUserID(), Username: "bob", Email: "ALICE@example.com"}
	if err := s.CreateUser(ctx, clash); !errors.Is(err, gatekeeper.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	taken, _ := s.UsernameTaken(ctx, "alice", id.Nil)
	if !taken {
		t.Fatal("expected username to be taken")
	}
	taken, _ = s.UsernameTaken(ctx, "alice", u.ID)
	if taken {
		t.Fatal("excluded user should not count")
	}
	taken, _ = s.EmailTaken(ctx, "nobody@example.com", id.Nil)
	if taken {
		t.Fatal("expected email to be free")
	}

	if err := s.SetUserLocked(ctx, u.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkPasswordReset(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetUser(ctx, u.ID)
	if !got.Locked || !got.MustResetPassword {
		t.Fatalf("expected locked user with pending reset, got %+v", got)
	}

	locked := true
	list, _ := s.ListUsers(ctx, &user.ListFilter{Locked: &locked})
	if len(list) != 1 {
		t.Fatalf("expected 1 locked user, got %d", len(list))
	}

	// Deleting a role drops it from users.
	if err := s.DeleteRole(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetUser(ctx, u.ID)
	if len(got.RoleIDs) != 0 {
		t.Fatalf("expected role to be detached, got %v", got.RoleIDs)
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetUser(ctx, u.ID); !errors.Is(err, gatekeeper.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func names(list []*permission.Permission) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.Name
	}
	return out
}
