// Package permission defines the Permission entity and its store interface.
package permission

import (
	"strings"
	"time"

	"github.com/xraph/gatekeeper/id"
)

// Delimiter separates a permission's namespace from the rest of its name,
// as in "users:create".
const Delimiter = ":"

// Permission is a named capability that can be granted to roles.
// Only Name and Description change after creation.
type Permission struct {
	ID          id.PermissionID `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// Namespace returns the token before the first Delimiter and whether the
// name contained one.
func (p *Permission) Namespace() (string, bool) {
	ns, _, found := strings.Cut(p.Name, Delimiter)
	return ns, found
}

// ListFilter contains filters for listing permissions.
type ListFilter struct {
	Search    string `json:"search,omitempty"`
	SortBy    string `json:"sortBy,omitempty"`
	Direction string `json:"direction,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// Input is the create/update payload for a permission.
type Input struct {
	Name        string `json:"name" validate:"required,max=150" description:"Permission name (e.g. users:create)"`
	Description string `json:"description" validate:"max=500" description:"Human-readable description"`
}
