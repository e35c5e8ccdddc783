// Package postgres provides a PostgreSQL implementation of the gatekeeper
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/gatekeeper"
	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/store"
	"github.com/xraph/gatekeeper/user"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a PostgreSQL implementation of the composite gatekeeper store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("gatekeeper/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("gatekeeper/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// uniqueViolation maps a unique_violation (23505) to its duplicate sentinel
// using the violated constraint's name. It returns nil for any other error.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case "gatekeeper_roles_name_key":
		return gatekeeper.ErrDuplicateRole
	case "gatekeeper_permissions_name_key":
		return gatekeeper.ErrDuplicatePermission
	case "gatekeeper_users_username_key":
		return gatekeeper.ErrDuplicateUsername
	case "gatekeeper_users_email_key":
		return gatekeeper.ErrDuplicateEmail
	}
	return nil
}

func orderBy(sortBy, direction string, allowed map[string]string) string {
	col := store.SortColumn(sortBy, allowed)
	dir := strings.ToUpper(store.SortDirection(direction))
	return col + " " + dir + ", id " + dir
}

// likePattern escapes LIKE wildcards in search.
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gatekeeper: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := tx.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return fmt.Errorf("role %q: %w", r.Name, dup)
		}
		return fmt.Errorf("gatekeeper: create role: %w", err)
	}
	if len(r.PermissionIDs) > 0 {
		models := rolePermissionModels(r.ID, r.PermissionIDs)
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("gatekeeper: create role permissions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gatekeeper: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrRoleNotFound)
		}
		return nil, fmt.Errorf("gatekeeper: get role: %w", err)
	}
	return s.withPermissions(ctx, m)
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).Where("LOWER(name) = LOWER(?)", name).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %q: %w", name, gatekeeper.ErrRoleNotFound)
		}
		return nil, fmt.Errorf("gatekeeper: get role by name: %w", err)
	}
	return s.withPermissions(ctx, m)
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	r.UpdatedAt = time.Now().UTC()
	res, err := s.pgdb.NewUpdate((*roleModel)(nil)).
		Set("name = ?", r.Name).
		Set("description = ?", r.Description).
		Set("updated_at = ?", r.UpdatedAt).
		Where("id = ?", r.ID.String()).
		Exec(ctx)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return fmt.Errorf("role %q: %w", r.Name, dup)
		}
		return fmt.Errorf("gatekeeper: update role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows affected
		return fmt.Errorf("role %s: %w", r.ID, gatekeeper.ErrRoleNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gatekeeper: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := tx.NewDelete((*rolePermissionModel)(nil)).
		Where("role_id = ?", roleID.String()).Exec(ctx); err != nil {
		return fmt.Errorf("gatekeeper: delete role permissions: %w", err)
	}
	if _, err := tx.NewDelete((*userRoleModel)(nil)).
		Where("role_id = ?", roleID.String()).Exec(ctx); err != nil {
		return fmt.Errorf("gatekeeper: delete role members: %w", err)
	}
	res, err := tx.NewDelete((*roleModel)(nil)).
		Where("id = ?", roleID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatekeeper: delete role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows affected
		return fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrRoleNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gatekeeper: commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	if filter == nil {
		filter = &role.ListFilter{}
	}
	var models []roleModel
	q := s.pgdb.NewSelect(&models).
		OrderExpr(orderBy(filter.SortBy, filter.Direction, store.RoleSortColumns))
	if filter.Search != "" {
		pat := likePattern(filter.Search)
		q = q.Where("(name ILIKE ? OR description ILIKE ?)", pat, pat)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gatekeeper: list roles: %w", err)
	}

	result := make([]*role.Role, len(models))
	keys := make([]string, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
		keys[i] = models[i].ID
	}
	links, err := s.permissionLinks(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: list roles: %w", err)
	}
	for _, r := range result {
		r.PermissionIDs = links[r.ID.String()]
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*roleModel)(nil))
	if filter != nil && filter.Search != "" {
		pat := likePattern(filter.Search)
		q = q.Where("(name ILIKE ? OR description ILIKE ?)", pat, pat)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatekeeper: count roles: %w", err)
	}
	return count, nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	links, err := s.permissionLinks(ctx, []string{roleID.String()})
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: list role permissions: %w", err)
	}
	return links[roleID.String()], nil
}

func (s *Store) SetRolePermissions(ctx context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	res, err := s.pgdb.NewUpdate((*roleModel)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", roleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatekeeper: touch role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows affected
		return fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrRoleNotFound)
	}

	keys := id.Strings(permIDs)
	if len(keys) > 0 {
		found, err := s.pgdb.NewSelect((*permissionModel)(nil)).
			Where("id IN (?)", keys).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("gatekeeper: check permissions: %w", err)
		}
		if found != int64(len(keys)) {
			return fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrPermissionNotFound)
		}
	}

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gatekeeper: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	_, err = tx.NewDelete((*rolePermissionModel)(nil)).
		Where("role_id = ?", roleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatekeeper: clear role permissions: %w", err)
	}

	if len(keys) > 0 {
		models := rolePermissionModels(roleID, permIDs)
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("gatekeeper: set role permissions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gatekeeper: commit tx: %w", err)
	}
	return nil
}

func (s *Store) withPermissions(ctx context.Context, m *roleModel) (*role.Role, error) {
	r := roleFromModel(m)
	links, err := s.permissionLinks(ctx, []string{m.ID})
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: load role permissions: %w", err)
	}
	r.PermissionIDs = links[m.ID]
	return r, nil
}

// permissionLinks loads the permission IDs of every role in roleKeys.
func (s *Store) permissionLinks(ctx context.Context, roleKeys []string) (map[string][]id.PermissionID, error) {
	out := make(map[string][]id.PermissionID, len(roleKeys))
	if len(roleKeys) == 0 {
		return out, nil
	}
	var models []rolePermissionModel
	err := s.pgdb.NewSelect(&models).
		Where("role_id IN (?)", roleKeys).
		OrderExpr("permission_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range models {
		pid, err := id.ParsePermissionID(m.PermissionID)
		if err == nil {
			out[m.RoleID] = append(out[m.RoleID], pid)
		}
	}
	return out, nil
}

func rolePermissionModels(roleID id.RoleID, permIDs []id.PermissionID) []rolePermissionModel {
	keys := id.Strings(permIDs)
	models := make([]rolePermissionModel, len(keys))
	for i, pid := range keys {
		models[i] = rolePermissionModel{
			RoleID:       roleID.String(),
			PermissionID: pid,
		}
	}
	return models
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.pgdb.NewInsert(permissionToModel(p)).Exec(ctx); err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return fmt.Errorf("permission %q: %w", p.Name, dup)
		}
		return fmt.Errorf("gatekeeper: create permission: %w", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", permID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("permission %s: %w", permID, gatekeeper.ErrPermissionNotFound)
		}
		return nil, fmt.Errorf("gatekeeper: get permission: %w", err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) GetPermissionByName(ctx context.Context, name string) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.pgdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("permission %q: %w", name, gatekeeper.ErrPermissionNotFound)
		}
		return nil, fmt.Errorf("gatekeeper: get permission by name: %w", err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.pgdb.NewUpdate((*permissionModel)(nil)).
		Set("name = ?", p.Name).
		Set("description = ?", p.Description).
		Set("updated_at = ?", p.UpdatedAt).
		Where("id = ?", p.ID.String()).
		Exec(ctx)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return fmt.Errorf("permission %q: %w", p.Name, dup)
		}
		return fmt.Errorf("gatekeeper: update permission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows affected
		return fmt.Errorf("permission %s: %w", p.ID, gatekeeper.ErrPermissionNotFound)
	}
	return nil
}

func (s *Store) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gatekeeper: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := tx.NewDelete((*rolePermissionModel)(nil)).
		Where("permission_id = ?", permID.String()).Exec(ctx); err != nil {
		return fmt.Errorf("gatekeeper: detach permission: %w", err)
	}
	res, err := tx.NewDelete((*permissionModel)(nil)).
		Where("id = ?", permID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatekeeper: delete permission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows affected
		return fmt.Errorf("permission %s: %w", permID, gatekeeper.ErrPermissionNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gatekeeper: commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	if filter == nil {
		filter = &permission.ListFilter{}
	}
	var models []permissionModel
	q := s.pgdb.NewSelect(&models).
		OrderExpr(orderBy(filter.SortBy, filter.Direction, store.PermissionSortColumns))
	if filter.Search != "" {
		pat := likePattern(filter.Search)
		q = q.Where("(name ILIKE ? OR description ILIKE ?)", pat, pat)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gatekeeper: list permissions: %w", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		result[i] = permissionFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*permissionModel)(nil))
	if filter != nil && filter.Search != "" {
		pat := likePattern(filter.Search)
		q = q.Where("(name ILIKE ? OR description ILIKE ?)", pat, pat)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatekeeper: count permissions: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// User operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gatekeeper: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := tx.NewInsert(userToModel(u)).Exec(ctx); err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return fmt.Errorf("user %q: %w", u.Username, dup)
		}
		return fmt.Errorf("gatekeeper: create user: %w", err)
	}
	if len(u.RoleIDs) > 0 {
		models := userRoleModels(u.ID, u.RoleIDs)
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("gatekeeper: create user roles: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gatekeeper: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m := new(userModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", userID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user %s: %w", userID, gatekeeper.ErrUserNotFound)
		}
		return nil, fmt.Errorf("gatekeeper: get user: %w", err)
	}
	u := userFromModel(m)
	links, err := s.roleLinks(ctx, []string{m.ID})
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: get user roles: %w", err)
	}
	u.RoleIDs = links[m.ID]
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.pgdb.NewUpdate((*userModel)(nil)).
		Set("username = ?", u.Username).
		Set("email = ?", u.Email).
		Set("full_name = ?", u.FullName).
		Set("updated_at = ?", u.UpdatedAt).
		Where("id = ?", u.ID.String()).
		Exec(ctx)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return fmt.Errorf("user %q: %w", u.Username, dup)
		}
		return fmt.Errorf("gatekeeper: update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows affected
		return fmt.Errorf("user %s: %w", u.ID, gatekeeper.ErrUserNotFound)
	}

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gatekeeper: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := tx.NewDelete((*userRoleModel)(nil)).
		Where("user_id = ?", u.ID.String()).Exec(ctx); err != nil {
		return fmt.Errorf("gatekeeper: clear user roles: %w", err)
	}
	if len(u.RoleIDs) > 0 {
		models := userRoleModels(u.ID, u.RoleIDs)
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("gatekeeper: set user roles: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gatekeeper: commit tx: %w", err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gatekeeper: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := tx.NewDelete((*userRoleModel)(nil)).
		Where("user_id = ?", userID.String()).Exec(ctx); err != nil {
		return fmt.Errorf("gatekeeper: delete user roles: %w", err)
	}
	res, err := tx.NewDelete((*userModel)(nil)).
		Where("id = ?", userID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatekeeper: delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows affected
		return fmt.Errorf("user %s: %w", userID, gatekeeper.ErrUserNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gatekeeper: commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, filter *user.ListFilter) ([]*user.User, error) {
	if filter == nil {
		filter = &user.ListFilter{}
	}
	var models []userModel
	q := s.pgdb.NewSelect(&models).
		OrderExpr(orderBy(filter.SortBy, filter.Direction, store.UserSortColumns))
	for _, w := range userConditions(filter) {
		q = q.Where(w.expr, w.args...)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gatekeeper: list users: %w", err)
	}

	result := make([]*user.User, len(models))
	keys := make([]string, len(models))
	for i := range models {
		result[i] = userFromModel(&models[i])
		keys[i] = models[i].ID
	}
	links, err := s.roleLinks(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: list users: %w", err)
	}
	for _, u := range result {
		u.RoleIDs = links[u.ID.String()]
	}
	return result, nil
}

func (s *Store) CountUsers(ctx context.Context, filter *user.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*userModel)(nil))
	for _, w := range userConditions(filter) {
		q = q.Where(w.expr, w.args...)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatekeeper: count users: %w", err)
	}
	return count, nil
}

type condition struct {
	expr string
	args []any
}

func userConditions(filter *user.ListFilter) []condition {
	if filter == nil {
		return nil
	}
	var conds []condition
	if filter.Locked != nil {
		conds = append(conds, condition{"locked = ?", []any{*filter.Locked}})
	}
	if filter.Search != "" {
		pat := likePattern(filter.Search)
		conds = append(conds, condition{
			"(username ILIKE ? OR email ILIKE ? OR full_name ILIKE ?)",
			[]any{pat, pat, pat},
		})
	}
	return conds
}

func (s *Store) SetUserLocked(ctx context.Context, userID id.UserID, locked bool) error {
	return s.touchUser(ctx, userID, "locked = ?", locked)
}

func (s *Store) MarkPasswordReset(ctx context.Context, userID id.UserID) error {
	return s.touchUser(ctx, userID, "must_reset_password = ?", true)
}

func (s *Store) touchUser(ctx context.Context, userID id.UserID, set string, value any) error {
	res, err := s.pgdb.NewUpdate((*userModel)(nil)).
		Set(set, value).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", userID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatekeeper: update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows affected
		return fmt.Errorf("user %s: %w", userID, gatekeeper.ErrUserNotFound)
	}
	return nil
}

func (s *Store) UsernameTaken(ctx context.Context, username string, exclude id.UserID) (bool, error) {
	return s.taken(ctx, "LOWER(username) = LOWER(?)", username, exclude)
}

func (s *Store) EmailTaken(ctx context.Context, email string, exclude id.UserID) (bool, error) {
	return s.taken(ctx, "LOWER(email) = LOWER(?)", email, exclude)
}

func (s *Store) taken(ctx context.Context, where, value string, exclude id.UserID) (bool, error) {
	q := s.pgdb.NewSelect((*userModel)(nil)).Where(where, value)
	if !exclude.IsNil() {
		q = q.Where("id != ?", exclude.String())
	}
	count, err := q.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("gatekeeper: check availability: %w", err)
	}
	return count > 0, nil
}

// roleLinks loads the role IDs of every user in userKeys.
func (s *Store) roleLinks(ctx context.Context, userKeys []string) (map[string][]id.RoleID, error) {
	out := make(map[string][]id.RoleID, len(userKeys))
	if len(userKeys) == 0 {
		return out, nil
	}
	var models []userRoleModel
	err := s.pgdb.NewSelect(&models).
		Where("user_id IN (?)", userKeys).
		OrderExpr("role_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range models {
		rid, err := id.ParseRoleID(m.RoleID)
		if err == nil {
			out[m.UserID] = append(out[m.UserID], rid)
		}
	}
	return out, nil
}

func userRoleModels(userID id.UserID, roleIDs []id.RoleID) []userRoleModel {
	keys := id.Strings(roleIDs)
	models := make([]userRoleModel, len(keys))
	for i, rid := range keys {
		models[i] = userRoleModel{
			UserID: userID.String(),
			RoleID: rid,
		}
	}
	return models
}
