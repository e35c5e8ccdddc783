package api

import (
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/user"
)

// ──────────────────────────────────────────────────
// Shared requests
// ──────────────────────────────────────────────────

// ListRequest holds the query parameters every list endpoint accepts.
type ListRequest struct {
	Page      int    `query:"page" description:"1-based page number (default: 1)"`
	Size      int    `query:"size" description:"Page size (default: 10)"`
	SortBy    string `query:"sortBy" description:"Field to sort by"`
	Direction string `query:"direction" description:"Sort direction (asc, desc)"`
	Search    string `query:"search" description:"Case-insensitive search term"`
	All       bool   `query:"all" description:"Return the whole collection as an array"`
}

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// RoleRequest is the body for creating or updating a role. A null
// permissionIds on update leaves the role's permission set unchanged.
type RoleRequest = role.Input

// GetRoleRequest is the path parameter for addressing a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// SetRolePermissionsRequest replaces a role's permission set.
type SetRolePermissionsRequest struct {
	PermissionIDs []string `json:"permissionIds" validate:"dive,required" description:"Complete set of permission IDs"`
}

// ──────────────────────────────────────────────────
// Permission requests
// ──────────────────────────────────────────────────

// PermissionRequest is the body for creating or updating a permission.
type PermissionRequest = permission.Input

// GetPermissionRequest is the path parameter for addressing a permission.
type GetPermissionRequest struct {
	PermissionID string `path:"permissionId" description:"Permission ID"`
}

// ──────────────────────────────────────────────────
// User requests
// ──────────────────────────────────────────────────

// UserRequest is the body for creating or updating a user.
type UserRequest = user.Input

// GetUserRequest is the path parameter for addressing a user.
type GetUserRequest struct {
	UserID string `path:"userId" description:"User ID"`
}

// ListUsersRequest adds a lock-state filter to ListRequest.
type ListUsersRequest struct {
	ListRequest
	Locked string `query:"locked" description:"Filter by lock state (true, false)"`
}

// AvailabilityRequest holds the query for a username/email availability check.
type AvailabilityRequest = user.AvailabilityRequest
