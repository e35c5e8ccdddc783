package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/user"
)

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:gatekeeper_roles"`
	ID              string    `grove:"id,pk"          bson:"_id"`
	Name            string    `grove:"name"           bson:"name"`
	Description     string    `grove:"description"    bson:"description"`
	IsSystem        bool      `grove:"is_system"      bson:"is_system"`
	PermissionIDs   []string  `grove:"permission_ids" bson:"permission_ids"`
	CreatedAt       time.Time `grove:"created_at"     bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"     bson:"updated_at"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:            r.ID.String(),
		Name:          r.Name,
		Description:   r.Description,
		IsSystem:      r.IsSystem,
		PermissionIDs: id.Strings(r.PermissionIDs),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid

	perms, _ := id.ParseAll(m.PermissionIDs, id.PrefixPermission) //nolint:errcheck // stored IDs are always valid
	return &role.Role{
		ID:            rid,
		Name:          m.Name,
		Description:   m.Description,
		IsSystem:      m.IsSystem,
		PermissionIDs: perms,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:gatekeeper_permissions"`
	ID              string    `grove:"id,pk"       bson:"_id"`
	Name            string    `grove:"name"        bson:"name"`
	Description     string    `grove:"description" bson:"description"`
	CreatedAt       time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"  bson:"updated_at"`
}

func permissionToModel(p *permission.Permission) *permissionModel {
	return &permissionModel{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func permissionFromModel(m *permissionModel) *permission.Permission {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &permission.Permission{
		ID:          pid,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// User model
// ──────────────────────────────────────────────────

type userModel struct {
	grove.BaseModel   `grove:"table:gatekeeper_users"`
	ID                string    `grove:"id,pk"               bson:"_id"`
	Username          string    `grove:"username"            bson:"username"`
	Email             string    `grove:"email"               bson:"email"`
	FullName          string    `grove:"full_name"           bson:"full_name"`
	RoleIDs           []string  `grove:"role_ids"            bson:"role_ids"`
	Locked            bool      `grove:"locked"              bson:"locked"`
	MustResetPassword bool      `grove:"must_reset_password" bson:"must_reset_password"`
	CreatedAt         time.Time `grove:"created_at"          bson:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"          bson:"updated_at"`
}

func userToModel(u *user.User) *userModel {
	return &userModel{
		ID:                u.ID.String(),
		Username:          u.Username,
		Email:             u.Email,
		FullName:          u.FullName,
		RoleIDs:           id.Strings(u.RoleIDs),
		Locked:            u.Locked,
		MustResetPassword: u.MustResetPassword,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func userFromModel(m *userModel) *user.User {
	uid, _ := id.ParseUserID(m.ID) //nolint:errcheck // stored IDs are always valid

	roles, _ := id.ParseAll(m.RoleIDs, id.PrefixRole) //nolint:errcheck // stored IDs are always valid
	return &user.User{
		ID:                uid,
		Username:          m.Username,
		Email:             m.Email,
		FullName:          m.FullName,
		RoleIDs:           roles,
		Locked:            m.Locked,
		MustResetPassword: m.MustResetPassword,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
