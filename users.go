package gatekeeper

import (
	"context"
	"sync"

	"github.com/xraph/gatekeeper/coordinator"
	"github.com/xraph/gatekeeper/lifecycle"
	"github.com/xraph/gatekeeper/transport"
	"github.com/xraph/gatekeeper/user"
)

const availabilityKey = KindUsers + ":availability"

// UserResource is the user state plus account actions and the debounced
// username/email availability check.
type UserResource struct {
	*Resource[user.User, user.Input]

	mu           sync.Mutex
	availability *user.Availability
}

// Lock locks the user account with id.
func (u *UserResource) Lock(ctx context.Context, id string) (user.User, error) {
	return u.action(ctx, lifecycle.OpLock, id, transport.ActionLock)
}

// Unlock unlocks the user account with id.
func (u *UserResource) Unlock(ctx context.Context, id string) (user.User, error) {
	return u.action(ctx, lifecycle.OpUnlock, id, transport.ActionUnlock)
}

// ResetPassword requests a password reset for the user with id. It changes
// no listed data.
func (u *UserResource) ResetPassword(ctx context.Context, id string) error {
	_, err := coordinator.Run(ctx, u.console.coord, keyOp(u.kind, lifecycle.OpResetPassword), u.store,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, u.console.transport.Action(ctx, u.kind, id, transport.ActionResetPassword, nil)
		},
		func(struct{}) { u.store.Succeed(lifecycle.OpResetPassword) },
	)
	return err
}

func (u *UserResource) action(ctx context.Context, op lifecycle.Operation, id, action string) (user.User, error) {
	return u.mutate(ctx, op, func(ctx context.Context, out *user.User) error {
		return u.console.transport.Action(ctx, u.kind, id, action, out)
	})
}

// CheckAvailability schedules an availability check after the debounce
// delay. Every call restarts the wait and replaces the request, so only the
// last request of a burst is sent. The answer is read through Availability.
func (u *UserResource) CheckAvailability(req user.AvailabilityRequest) {
	u.console.debouncer.Trigger(availabilityKey, func() {
		if _, err := u.CheckAvailabilityNow(context.Background(), req); err != nil {
			u.console.logger.Debug("gatekeeper: availability check failed", "error", err)
		}
	})
}

// CheckAvailabilityNow sends an availability check immediately. A request
// with neither username nor email clears the previous answer.
func (u *UserResource) CheckAvailabilityNow(ctx context.Context, req user.AvailabilityRequest) (*user.Availability, error) {
	if req.Username == "" && req.Email == "" {
		u.console.coord.Cancel(keyOp(u.kind, lifecycle.OpCheckAvailability))
		u.store.Reset(lifecycle.OpCheckAvailability)
		u.setAvailability(nil)
		return &user.Availability{}, nil
	}
	return coordinator.Run(ctx, u.console.coord, keyOp(u.kind, lifecycle.OpCheckAvailability), u.store,
		func(ctx context.Context) (*user.Availability, error) {
			return u.console.transport.CheckAvailability(ctx, req)
		},
		func(a *user.Availability) {
			u.setAvailability(a)
			u.store.Succeed(lifecycle.OpCheckAvailability)
		},
	)
}

// Availability returns the answer to the latest availability check, or nil.
func (u *UserResource) Availability() *user.Availability {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.availability == nil {
		return nil
	}
	a := *u.availability
	return &a
}

func (u *UserResource) setAvailability(a *user.Availability) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.availability = a
}
