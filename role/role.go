// Package role defines the Role entity and its store interface.
package role

import (
	"time"

	"github.com/xraph/gatekeeper/id"
)

// Role groups a set of permissions under a name. PermissionIDs is a set;
// its order carries no meaning.
type Role struct {
	ID            id.RoleID         `json:"id" db:"id"`
	Name          string            `json:"name" db:"name"`
	Description   string            `json:"description" db:"description"`
	IsSystem      bool              `json:"isSystem" db:"is_system"`
	PermissionIDs []id.PermissionID `json:"permissionIds" db:"-"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time         `json:"updatedAt" db:"updated_at"`
}

// HasPermission reports whether permID is in the role's set.
func (r *Role) HasPermission(permID id.PermissionID) bool {
	for _, p := range r.PermissionIDs {
		if p == permID {
			return true
		}
	}
	return false
}

// ListFilter contains filters for listing roles.
type ListFilter struct {
	Search    string `json:"search,omitempty"`
	SortBy    string `json:"sortBy,omitempty"`
	Direction string `json:"direction,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// Input is the create/update payload for a role.
type Input struct {
	Name          string   `json:"name" validate:"required,max=100" description:"Role name"`
	Description   string   `json:"description" validate:"max=500" description:"Human-readable description"`
	PermissionIDs []string `json:"permissionIds" validate:"dive,required" description:"Permission IDs granted to the role"`
}
