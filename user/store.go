package user

import (
	"context"

	"github.com/xraph/gatekeeper/id"
)

// Store defines persistence operations for users.
type Store interface {
	// CreateUser persists a new user. Duplicate usernames or emails fail with
	// gatekeeper.ErrDuplicateUsername or gatekeeper.ErrDuplicateEmail.
	CreateUser(ctx context.Context, u *User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID id.UserID) (*User, error)

	// UpdateUser persists profile and role changes.
	UpdateUser(ctx context.Context, u *User) error

	// DeleteUser removes a user.
	DeleteUser(ctx context.Context, userID id.UserID) error

	// ListUsers returns users matching the filter.
	ListUsers(ctx context.Context, filter *ListFilter) ([]*User, error)

	// CountUsers returns the number of users matching the filter.
	CountUsers(ctx context.Context, filter *ListFilter) (int64, error)

	// SetUserLocked locks or unlocks a user account.
	SetUserLocked(ctx context.Context, userID id.UserID, locked bool) error

	// MarkPasswordReset flags the user to choose a new password at next login.
	MarkPasswordReset(ctx context.Context, userID id.UserID) error

	// UsernameTaken reports whether another user (not exclude) has username.
	UsernameTaken(ctx context.Context, username string, exclude id.UserID) (bool, error)

	// EmailTaken reports whether another user (not exclude) has email.
	EmailTaken(ctx context.Context, email string, exclude id.UserID) (bool, error)
}
