package gatekeeper

import (
	"errors"
	"net/http"

	"github.com/xraph/gatekeeper/coordinator"
	"github.com/xraph/gatekeeper/transport"
)

var (
	// ErrRoleNotFound is returned when a role cannot be found.
	ErrRoleNotFound = errors.New("gatekeeper: role not found")

	// ErrPermissionNotFound is returned when a permission cannot be found.
	ErrPermissionNotFound = errors.New("gatekeeper: permission not found")

	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("gatekeeper: user not found")

	// ErrDuplicateRole is returned when a role name is already taken.
	ErrDuplicateRole = errors.New("gatekeeper: role name already exists")

	// ErrDuplicatePermission is returned when a permission name is already taken.
	ErrDuplicatePermission = errors.New("gatekeeper: permission name already exists")

	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("gatekeeper: username already exists")

	// ErrDuplicateEmail is returned when an email address is already taken.
	ErrDuplicateEmail = errors.New("gatekeeper: email already exists")

	// ErrSystemRoleImmutable is returned when trying to modify a system role.
	ErrSystemRoleImmutable = errors.New("gatekeeper: system role cannot be modified")

	// ErrInvalidID is returned when an identifier does not parse.
	ErrInvalidID = errors.New("gatekeeper: invalid id")

	// ErrSuperseded is returned when a newer request for the same entity
	// kind and operation replaced this one. It is never shown to operators.
	ErrSuperseded = coordinator.ErrSuperseded
)

// IsConflict reports whether err means the request collided with existing
// state: an HTTP 409 from the API or one of the duplicate sentinels.
func IsConflict(err error) bool {
	if transport.IsStatus(err, http.StatusConflict) {
		return true
	}
	return errors.Is(err, ErrDuplicateRole) ||
		errors.Is(err, ErrDuplicatePermission) ||
		errors.Is(err, ErrDuplicateUsername) ||
		errors.Is(err, ErrDuplicateEmail)
}

// IsNotFound reports whether err is an HTTP 404 or a not-found sentinel.
func IsNotFound(err error) bool {
	if transport.IsStatus(err, http.StatusNotFound) {
		return true
	}
	return errors.Is(err, ErrRoleNotFound) ||
		errors.Is(err, ErrPermissionNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsSuperseded reports whether err is ErrSuperseded.
func IsSuperseded(err error) bool { return errors.Is(err, ErrSuperseded) }
