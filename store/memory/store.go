// Package memory provides an in-memory implementation of the gatekeeper
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xraph/gatekeeper"
	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/store"
	"github.com/xraph/gatekeeper/user"
)

// Compile-time interface checks.
var (
	_ role.Store       = (*Store)(nil)
	_ permission.Store = (*Store)(nil)
	_ user.Store       = (*Store)(nil)
	_ store.Store      = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all gatekeeper entities.
type Store struct {
	mu sync.RWMutex

	roles           map[string]*role.Role
	permissions     map[string]*permission.Permission
	rolePermissions map[string]map[string]struct{} // roleID -> set of permIDs
	users           map[string]*user.User
	now             func() time.Time
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		roles:           make(map[string]*role.Role),
		permissions:     make(map[string]*permission.Permission),
		rolePermissions: make(map[string]map[string]struct{}),
		users:           make(map[string]*user.User),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if strings.EqualFold(existing.Name, r.Name) {
			return fmt.Errorf("role %q: %w", r.Name, gatekeeper.ErrDuplicateRole)
		}
	}
	s.stamp(&r.CreatedAt, &r.UpdatedAt)
	s.roles[r.ID.String()] = copyRole(r)
	s.setRolePermissions(r.ID, r.PermissionIDs)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrRoleNotFound)
	}
	return s.withPermissions(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if strings.EqualFold(r.Name, name) {
			return s.withPermissions(r), nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, gatekeeper.ErrRoleNotFound)
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.roles[r.ID.String()]
	if !ok {
		return fmt.Errorf("role %s: %w", r.ID, gatekeeper.ErrRoleNotFound)
	}
	for k, other := range s.roles {
		if k != r.ID.String() && strings.EqualFold(other.Name, r.Name) {
			return fmt.Errorf("role %q: %w", r.Name, gatekeeper.ErrDuplicateRole)
		}
	}
	existing.Name = r.Name
	existing.Description = r.Description
	existing.UpdatedAt = s.now()
	r.CreatedAt, r.UpdatedAt = existing.CreatedAt, existing.UpdatedAt
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk := roleID.String()
	if _, ok := s.roles[rk]; !ok {
		return fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrRoleNotFound)
	}
	delete(s.roles, rk)
	delete(s.rolePermissions, rk)
	for _, u := range s.users {
		u.RoleIDs = removeID(u.RoleIDs, roleID)
	}
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	var search, sortBy, dir string
	if filter != nil {
		search, sortBy, dir = filter.Search, filter.SortBy, filter.Direction
	}
	for _, r := range s.roles {
		if !matches(search, r.Name, r.Description) {
			continue
		}
		result = append(result, s.withPermissions(r))
	}
	col := store.SortColumn(sortBy, store.RoleSortColumns)
	sortBy2(result, dir, func(r *role.Role) (string, time.Time) {
		switch col {
		case "name":
			return strings.ToLower(r.Name), time.Time{}
		case "updated_at":
			return "", r.UpdatedAt
		default:
			return "", r.CreatedAt
		}
	})
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	var f role.ListFilter
	if filter != nil {
		f.Search = filter.Search
	}
	list, err := s.ListRoles(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListRolePermissions(_ context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.roles[roleID.String()]; !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrRoleNotFound)
	}
	return s.permissionIDs(roleID.String()), nil
}

func (s *Store) SetRolePermissions(_ context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrRoleNotFound)
	}
	for _, pid := range permIDs {
		if _, ok := s.permissions[pid.String()]; !ok {
			return fmt.Errorf("permission %s: %w", pid, gatekeeper.ErrPermissionNotFound)
		}
	}
	s.setRolePermissions(roleID, permIDs)
	r.UpdatedAt = s.now()
	return nil
}

// setRolePermissions replaces the link set. Must hold write lock.
func (s *Store) setRolePermissions(roleID id.RoleID, permIDs []id.PermissionID) {
	perms := make(map[string]struct{}, len(permIDs))
	for _, pid := range permIDs {
		perms[pid.String()] = struct{}{}
	}
	s.rolePermissions[roleID.String()] = perms
}

// permissionIDs returns a role's links in a stable order. Must hold a lock.
func (s *Store) permissionIDs(roleKey string) []id.PermissionID {
	perms := s.rolePermissions[roleKey]
	keys := make([]string, 0, len(perms))
	for pid := range perms {
		keys = append(keys, pid)
	}
	sort.Strings(keys)
	result := make([]id.PermissionID, 0, len(keys))
	for _, pid := range keys {
		if parsed, err := id.ParsePermissionID(pid); err == nil {
			result = append(result, parsed)
		}
	}
	return result
}

func (s *Store) withPermissions(r *role.Role) *role.Role {
	cp := copyRole(r)
	cp.PermissionIDs = s.permissionIDs(r.ID.String())
	return cp
}

// ──────────────────────────────────────────────────
// Permission Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.permissions {
		if existing.Name == p.Name {
			return fmt.Errorf("permission %q: %w", p.Name, gatekeeper.ErrDuplicatePermission)
		}
	}
	s.stamp(&p.CreatedAt, &p.UpdatedAt)
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) GetPermission(_ context.Context, permID id.PermissionID) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permID.String()]
	if !ok {
		return nil, fmt.Errorf("permission %s: %w", permID, gatekeeper.ErrPermissionNotFound)
	}
	return copyPermission(p), nil
}

func (s *Store) GetPermissionByName(_ context.Context, name string) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permissions {
		if p.Name == name {
			return copyPermission(p), nil
		}
	}
	return nil, fmt.Errorf("permission %q: %w", name, gatekeeper.ErrPermissionNotFound)
}

func (s *Store) UpdatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.permissions[p.ID.String()]
	if !ok {
		return fmt.Errorf("permission %s: %w", p.ID, gatekeeper.ErrPermissionNotFound)
	}
	for k, other := range s.permissions {
		if k != p.ID.String() && other.Name == p.Name {
			return fmt.Errorf("permission %q: %w", p.Name, gatekeeper.ErrDuplicatePermission)
		}
	}
	existing.Name = p.Name
	existing.Description = p.Description
	existing.UpdatedAt = s.now()
	p.CreatedAt, p.UpdatedAt = existing.CreatedAt, existing.UpdatedAt
	return nil
}

func (s *Store) DeletePermission(_ context.Context, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := permID.String()
	if _, ok := s.permissions[pk]; !ok {
		return fmt.Errorf("permission %s: %w", permID, gatekeeper.ErrPermissionNotFound)
	}
	delete(s.permissions, pk)
	for _, perms := range s.rolePermissions {
		delete(perms, pk)
	}
	return nil
}

func (s *Store) ListPermissions(_ context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*permission.Permission, 0, len(s.permissions))
	var search, sortBy, dir string
	if filter != nil {
		search, sortBy, dir = filter.Search, filter.SortBy, filter.Direction
	}
	for _, p := range s.permissions {
		if !matches(search, p.Name, p.Description) {
			continue
		}
		result = append(result, copyPermission(p))
	}
	col := store.SortColumn(sortBy, store.PermissionSortColumns)
	sortBy2(result, dir, func(p *permission.Permission) (string, time.Time) {
		switch col {
		case "name":
			return strings.ToLower(p.Name), time.Time{}
		case "updated_at":
			return "", p.UpdatedAt
		default:
			return "", p.CreatedAt
		}
	})
	var pag pagOpts
	if filter != nil {
		pag = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, pag), nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	var f permission.ListFilter
	if filter != nil {
		f.Search = filter.Search
	}
	list, err := s.ListPermissions(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// User Store
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUserUnique(u); err != nil {
		return err
	}
	s.stamp(&u.CreatedAt, &u.UpdatedAt)
	s.users[u.ID.String()] = copyUser(u)
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID.String()]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, gatekeeper.ErrUserNotFound)
	}
	return copyUser(u), nil
}

func (s *Store) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID.String()]
	if !ok {
		return fmt.Errorf("user %s: %w", u.ID, gatekeeper.ErrUserNotFound)
	}
	if err := s.checkUserUnique(u); err != nil {
		return err
	}
	existing.Username = u.Username
	existing.Email = u.Email
	existing.FullName = u.FullName
	existing.RoleIDs = append([]id.RoleID(nil), u.RoleIDs...)
	existing.UpdatedAt = s.now()
	*u = *copyUser(existing)
	return nil
}

func (s *Store) DeleteUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID.String()]; !ok {
		return fmt.Errorf("user %s: %w", userID, gatekeeper.ErrUserNotFound)
	}
	delete(s.users, userID.String())
	return nil
}

func (s *Store) ListUsers(_ context.Context, filter *user.ListFilter) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*user.User, 0, len(s.users))
	var search, sortBy, dir string
	var locked *bool
	if filter != nil {
		search, sortBy, dir, locked = filter.Search, filter.SortBy, filter.Direction, filter.Locked
	}
	for _, u := range s.users {
		if locked != nil && u.Locked != *locked {
			continue
		}
		if !matches(search, u.Username, u.Email, u.FullName) {
			continue
		}
		result = append(result, copyUser(u))
	}
	col := store.SortColumn(sortBy, store.UserSortColumns)
	sortBy2(result, dir, func(u *user.User) (string, time.Time) {
		switch col {
		case "username":
			return strings.ToLower(u.Username), time.Time{}
		case "email":
			return strings.ToLower(u.Email), time.Time{}
		case "full_name":
			return strings.ToLower(u.FullName), time.Time{}
		case "updated_at":
			return "", u.UpdatedAt
		default:
			return "", u.CreatedAt
		}
	})
	var pag pagOpts
	if filter != nil {
		pag = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, pag), nil
}

func (s *Store) CountUsers(ctx context.Context, filter *user.ListFilter) (int64, error) {
	var f user.ListFilter
	if filter != nil {
		f.Search, f.Locked = filter.Search, filter.Locked
	}
	list, err := s.ListUsers(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) SetUserLocked(_ context.Context, userID id.UserID, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID.String()]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, gatekeeper.ErrUserNotFound)
	}
	u.Locked = locked
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) MarkPasswordReset(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID.String()]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, gatekeeper.ErrUserNotFound)
	}
	u.MustResetPassword = true
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) UsernameTaken(_ context.Context, username string, exclude id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, u := range s.users {
		if k != exclude.String() && strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) EmailTaken(_ context.Context, email string, exclude id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, u := range s.users {
		if k != exclude.String() && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// checkUserUnique must hold a lock.
func (s *Store) checkUserUnique(u *user.User) error {
	for k, other := range s.users {
		if k == u.ID.String() {
			continue
		}
		if strings.EqualFold(other.Username, u.Username) {
			return fmt.Errorf("user %q: %w", u.Username, gatekeeper.ErrDuplicateUsername)
		}
		if strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("user %q: %w", u.Email, gatekeeper.ErrDuplicateEmail)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (s *Store) stamp(created, updated *time.Time) {
	now := s.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// sortBy2 orders items by a string key or, when the key is empty, a time key.
// Ties fall back to insertion time so pages stay stable.
func sortBy2[T any](items []T, direction string, key func(T) (string, time.Time)) {
	desc := store.SortDirection(direction) == store.Desc
	sort.SliceStable(items, func(i, j int) bool {
		si, ti := key(items[i])
		sj, tj := key(items[j])
		if si != sj {
			if desc {
				return si > sj
			}
			return si < sj
		}
		if desc {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})
}

func removeID(ids []id.ID, target id.ID) []id.ID {
	out := ids[:0]
	for _, v := range ids {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

func copyRole(r *role.Role) *role.Role {
	cp := *r
	cp.PermissionIDs = append([]id.PermissionID(nil), r.PermissionIDs...)
	return &cp
}

func copyPermission(p *permission.Permission) *permission.Permission {
	cp := *p
	return &cp
}

func copyUser(u *user.User) *user.User {
	cp := *u
	cp.RoleIDs = append([]id.RoleID(nil), u.RoleIDs...)
	return &cp
}

type pagOpts struct {
	limit  int
	offset int
}

func paginationOpts(f *role.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func applyPagination[T any](items []T, p pagOpts) []T {
	if p.offset > 0 {
		if p.offset >= len(items) {
			return items[:0]
		}
		items = items[p.offset:]
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
