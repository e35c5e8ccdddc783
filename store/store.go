// Package store defines the aggregate persistence interface. The role,
// permission and user packages each define their own store interface and a
// single backend (memory, sqlite, postgres, mongo) implements all of them.
package store

import (
	"context"

	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/user"
)

// Store is the aggregate persistence interface.
type Store interface {
	role.Store
	permission.Store
	user.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}

// Sort directions accepted by ListFilter.Direction.
const (
	Asc  = "asc"
	Desc = "desc"
)

// SortColumn maps a wire-level sort field to a column name from allowed,
// falling back to created_at. Unknown fields never reach a query string.
func SortColumn(sortBy string, allowed map[string]string) string {
	if col, ok := allowed[sortBy]; ok {
		return col
	}
	return "created_at"
}

// SortDirection normalizes a direction to Asc or Desc.
func SortDirection(direction string) string {
	if direction == Desc || direction == "DESC" {
		return Desc
	}
	return Asc
}

// Sortable columns per entity, keyed by wire-level field name.
var (
	RoleSortColumns = map[string]string{
		"name":      "name",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	}
	PermissionSortColumns = map[string]string{
		"name":      "name",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	}
	UserSortColumns = map[string]string{
		"username":  "username",
		"email":     "email",
		"fullName":  "full_name",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	}
)
