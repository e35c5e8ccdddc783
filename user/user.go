// Package user defines the User entity and its store interface.
package user

import (
	"time"

	"github.com/xraph/gatekeeper/id"
)

// User is an operator account. Username and Email are unique.
type User struct {
	ID                id.UserID   `json:"id" db:"id"`
	Username          string      `json:"username" db:"username"`
	Email             string      `json:"email" db:"email"`
	FullName          string      `json:"fullName" db:"full_name"`
	RoleIDs           []id.RoleID `json:"roleIds" db:"-"`
	Locked            bool        `json:"locked" db:"locked"`
	MustResetPassword bool        `json:"mustResetPassword" db:"must_reset_password"`
	CreatedAt         time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time   `json:"updatedAt" db:"updated_at"`
}

// ListFilter contains filters for listing users.
type ListFilter struct {
	Search    string `json:"search,omitempty"`
	SortBy    string `json:"sortBy,omitempty"`
	Direction string `json:"direction,omitempty"`
	Locked    *bool  `json:"locked,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// Input is the create/update payload for a user.
type Input struct {
	Username string   `json:"username" validate:"required,min=3,max=64" description:"Unique login name"`
	Email    string   `json:"email" validate:"required,email" description:"Unique email address"`
	FullName string   `json:"fullName" validate:"max=200" description:"Display name"`
	RoleIDs  []string `json:"roleIds" validate:"dive,required" description:"Role IDs assigned to the user"`
}

// AvailabilityRequest asks whether a username and/or email is free. ExcludeID
// skips the user being edited.
type AvailabilityRequest struct {
	Username  string `json:"username,omitempty" query:"username" description:"Username to check"`
	Email     string `json:"email,omitempty" query:"email" description:"Email to check"`
	ExcludeID string `json:"excludeId,omitempty" query:"excludeId" description:"User ID to ignore"`
}

// Availability answers an AvailabilityRequest. A nil field was not asked.
type Availability struct {
	UsernameAvailable *bool `json:"usernameAvailable,omitempty" description:"Whether the username is free"`
	EmailAvailable    *bool `json:"emailAvailable,omitempty" description:"Whether the email is free"`
}
