// Package mongo provides a MongoDB implementation of the gatekeeper
// composite store. Permission links live on the role document and role
// links on the user document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/gatekeeper"
	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/store"
	"github.com/xraph/gatekeeper/user"
)

// Collection name constants.
const (
	colRoles       = "gatekeeper_roles"
	colPermissions = "gatekeeper_permissions"
	colUsers       = "gatekeeper_users"
)

// Unique index names. Duplicate-key errors are mapped back through them.
const (
	idxRoleName       = "gatekeeper_roles_name_key"
	idxPermissionName = "gatekeeper_permissions_name_key"
	idxUsername       = "gatekeeper_users_username_key"
	idxEmail          = "gatekeeper_users_email_key"
)

// caseInsensitive is the collation used for role names, usernames and emails.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite gatekeeper store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all gatekeeper collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("gatekeeper/mongo: migrate %s indexes: %w", col, err)
		}
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

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// duplicateKey maps a duplicate-key error to its sentinel by index name.
func duplicateKey(err error) error {
	if !mongod.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, idxRoleName):
		return gatekeeper.ErrDuplicateRole
	case strings.Contains(msg, idxPermissionName):
		return gatekeeper.ErrDuplicatePermission
	case strings.Contains(msg, idxUsername):
		return gatekeeper.ErrDuplicateUsername
	case strings.Contains(msg, idxEmail):
		return gatekeeper.ErrDuplicateEmail
	}
	return nil
}

// migrationIndexes returns the index definitions for all gatekeeper collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colRoles: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxRoleName).SetCollation(caseInsensitive),
			},
			{Keys: bson.D{{Key: "permission_ids", Value: 1}}},
		},
		colPermissions: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxPermissionName),
			},
		},
		colUsers: {
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxUsername).SetCollation(caseInsensitive),
			},
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxEmail).SetCollation(caseInsensitive),
			},
			{Keys: bson.D{{Key: "role_ids", Value: 1}}},
			{Keys: bson.D{{Key: "locked", Value: 1}}},
		},
	}
}

// searchFilter matches search case-insensitively against any of fields.
func searchFilter(f bson.M, search string, fields ...string) {
	if search == "" {
		return
	}
	pattern := regexp.QuoteMeta(search)
	or := make(bson.A, len(fields))
	for i, field := range fields {
		or[i] = bson.M{field: bson.M{"$regex": pattern, "$options": "i"}}
	}
	f["$or"] = or
}

func sortSpec(sortBy, direction string, allowed map[string]string) bson.D {
	order := 1
	if store.SortDirection(direction) == store.Desc {
		order = -1
	}
	return bson.D{
		{Key: store.SortColumn(sortBy, allowed), Value: order},
		{Key: "_id", Value: order},
	}
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	t := now()
	r.CreatedAt = t
	r.UpdatedAt = t
	if _, err := s.mdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		if dup := duplicateKey(err); dup != nil {
			return fmt.Errorf("role %q: %w", r.Name, dup)
		}
		return fmt.Errorf("gatekeeper: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrRoleNotFound)
		}
		return nil, fmt.Errorf("gatekeeper: get role: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	var m roleModel
	err := s.mdb.Collection(colRoles).
		FindOne(ctx, bson.M{"name": name}, options.FindOne().SetCollation(caseInsensitive)).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %q: %w", name, gatekeeper.ErrRoleNotFound)
		}
		return nil, fmt.Errorf("gatekeeper: get role by name: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	r.UpdatedAt = now()
	res, err := s.mdb.Collection(colRoles).UpdateOne(ctx,
		bson.M{"_id": r.ID.String()},
		bson.M{"$set": bson.M{
			"name":        r.Name,
			"description": r.Description,
			"updated_at":  r.UpdatedAt,
		}},
	)
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return fmt.Errorf("role %q: %w", r.Name, dup)
		}
		return fmt.Errorf("gatekeeper: update role: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("role %s: %w", r.ID, gatekeeper.ErrRoleNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	res, err := s.mdb.NewDelete((*roleModel)(nil)).
		Filter(bson.M{"_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatekeeper: delete role: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrRoleNotFound)
	}
	key := roleID.String()
	if _, err := s.mdb.Collection(colUsers).UpdateMany(ctx,
		bson.M{"role_ids": key},
		bson.M{"$pull": bson.M{"role_ids": key}},
	); err != nil {
		return fmt.Errorf("gatekeeper: detach role from users: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	if filter == nil {
		filter = &role.ListFilter{}
	}
	var models []roleModel
	f := bson.M{}
	searchFilter(f, filter.Search, "name", "description")
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(sortSpec(filter.SortBy, filter.Direction, store.RoleSortColumns))
	if filter.Limit > 0 {
		q = q.Limit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Skip(int64(filter.Offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gatekeeper: list roles: %w", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	f := bson.M{}
	if filter != nil {
		searchFilter(f, filter.Search, "name", "description")
	}
	count, err := s.mdb.NewFind((*roleModel)(nil)).
		Filter(f).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatekeeper: count roles: %w", err)
	}
	return count, nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	r, err := s.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return r.PermissionIDs, nil
}

func (s *Store) SetRolePermissions(ctx context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	keys := id.Strings(permIDs)
	if len(keys) > 0 {
		found, err := s.mdb.Collection(colPermissions).
			CountDocuments(ctx, bson.M{"_id": bson.M{"$in": keys}})
		if err != nil {
			return fmt.Errorf("gatekeeper: check permissions: %w", err)
		}
		if found != int64(len(keys)) {
			return fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrPermissionNotFound)
		}
	}

	res, err := s.mdb.Collection(colRoles).UpdateOne(ctx,
		bson.M{"_id": roleID.String()},
		bson.M{"$set": bson.M{"permission_ids": keys, "updated_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("gatekeeper: set role permissions: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("role %s: %w", roleID, gatekeeper.ErrRoleNotFound)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	t := now()
	p.CreatedAt = t
	p.UpdatedAt = t
	if _, err := s.mdb.NewInsert(permissionToModel(p)).Exec(ctx); err != nil {
		if dup := duplicateKey(err); dup != nil {
			return fmt.Errorf("permission %q: %w", p.Name, dup)
		}
		return fmt.Errorf("gatekeeper: create permission: %w", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": permID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %s: %w", permID, gatekeeper.ErrPermissionNotFound)
		}
		return nil, fmt.Errorf("gatekeeper: get permission: %w", err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) GetPermissionByName(ctx context.Context, name string) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"name": name}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %q: %w", name, gatekeeper.ErrPermissionNotFound)
		}
		return nil, fmt.Errorf("gatekeeper: get permission by name: %w", err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	p.UpdatedAt = now()
	res, err := s.mdb.Collection(colPermissions).UpdateOne(ctx,
		bson.M{"_id": p.ID.String()},
		bson.M{"$set": bson.M{
			"name":        p.Name,
			"description": p.Description,
			"updated_at":  p.UpdatedAt,
		}},
	)
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return fmt.Errorf("permission %q: %w", p.Name, dup)
		}
		return fmt.Errorf("gatekeeper: update permission: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("permission %s: %w", p.ID, gatekeeper.ErrPermissionNotFound)
	}
	return nil
}

func (s *Store) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	res, err := s.mdb.NewDelete((*permissionModel)(nil)).
		Filter(bson.M{"_id": permID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatekeeper: delete permission: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("permission %s: %w", permID, gatekeeper.ErrPermissionNotFound)
	}
	key := permID.String()
	if _, err := s.mdb.Collection(colRoles).UpdateMany(ctx,
		bson.M{"permission_ids": key},
		bson.M{"$pull": bson.M{"permission_ids": key}},
	); err != nil {
		return fmt.Errorf("gatekeeper: detach permission from roles: %w", err)
	}
	return nil
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	if filter == nil {
		filter = &permission.ListFilter{}
	}
	var models []permissionModel
	f := bson.M{}
	searchFilter(f, filter.Search, "name", "description")
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(sortSpec(filter.SortBy, filter.Direction, store.PermissionSortColumns))
	if filter.Limit > 0 {
		q = q.Limit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Skip(int64(filter.Offset))
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
	f := bson.M{}
	if filter != nil {
		searchFilter(f, filter.Search, "name", "description")
	}
	count, err := s.mdb.NewFind((*permissionModel)(nil)).
		Filter(f).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatekeeper: count permissions: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// User operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	t := now()
	u.CreatedAt = t
	u.UpdatedAt = t
	if _, err := s.mdb.NewInsert(userToModel(u)).Exec(ctx); err != nil {
		if dup := duplicateKey(err); dup != nil {
			return fmt.Errorf("user %q: %w", u.Username, dup)
		}
		return fmt.Errorf("gatekeeper: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("user %s: %w", userID, gatekeeper.ErrUserNotFound)
		}
		return nil, fmt.Errorf("gatekeeper: get user: %w", err)
	}
	return userFromModel(&m), nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	u.UpdatedAt = now()
	res, err := s.mdb.Collection(colUsers).UpdateOne(ctx,
		bson.M{"_id": u.ID.String()},
		bson.M{"$set": bson.M{
			"username":   u.Username,
			"email":      u.Email,
			"full_name":  u.FullName,
			"role_ids":   id.Strings(u.RoleIDs),
			"updated_at": u.UpdatedAt,
		}},
	)
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return fmt.Errorf("user %q: %w", u.Username, dup)
		}
		return fmt.Errorf("gatekeeper: update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", u.ID, gatekeeper.ErrUserNotFound)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	res, err := s.mdb.NewDelete((*userModel)(nil)).
		Filter(bson.M{"_id": userID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatekeeper: delete user: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("user %s: %w", userID, gatekeeper.ErrUserNotFound)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, filter *user.ListFilter) ([]*user.User, error) {
	if filter == nil {
		filter = &user.ListFilter{}
	}
	var models []userModel
	q := s.mdb.NewFind(&models).
		Filter(userFilter(filter)).
		Sort(sortSpec(filter.SortBy, filter.Direction, store.UserSortColumns))
	if filter.Limit > 0 {
		q = q.Limit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Skip(int64(filter.Offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gatekeeper: list users: %w", err)
	}
	result := make([]*user.User, len(models))
	for i := range models {
		result[i] = userFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountUsers(ctx context.Context, filter *user.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*userModel)(nil)).
		Filter(userFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatekeeper: count users: %w", err)
	}
	return count, nil
}

func userFilter(filter *user.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.Locked != nil {
		f["locked"] = *filter.Locked
	}
	searchFilter(f, filter.Search, "username", "email", "full_name")
	return f
}

func (s *Store) SetUserLocked(ctx context.Context, userID id.UserID, locked bool) error {
	return s.setUserField(ctx, userID, "locked", locked)
}

func (s *Store) MarkPasswordReset(ctx context.Context, userID id.UserID) error {
	return s.setUserField(ctx, userID, "must_reset_password", true)
}

func (s *Store) setUserField(ctx context.Context, userID id.UserID, field string, value any) error {
	res, err := s.mdb.Collection(colUsers).UpdateOne(ctx,
		bson.M{"_id": userID.String()},
		bson.M{"$set": bson.M{field: value, "updated_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("gatekeeper: update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID, gatekeeper.ErrUserNotFound)
	}
	return nil
}

func (s *Store) UsernameTaken(ctx context.Context, username string, exclude id.UserID) (bool, error) {
	return s.taken(ctx, "username", username, exclude)
}

func (s *Store) EmailTaken(ctx context.Context, email string, exclude id.UserID) (bool, error) {
	return s.taken(ctx, "email", email, exclude)
}

func (s *Store) taken(ctx context.Context, field, value string, exclude id.UserID) (bool, error) {
	f := bson.M{field: value}
	if !exclude.IsNil() {
		f["_id"] = bson.M{"$ne": exclude.String()}
	}
	count, err := s.mdb.Collection(colUsers).
		CountDocuments(ctx, f, options.Count().SetCollation(caseInsensitive).SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("gatekeeper: check availability: %w", err)
	}
	return count > 0, nil
}
