package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/user"
)

func (a *API) registerUserRoutes(router forge.Router) error {
	g := router.Group(a.prefix(), forge.WithGroupTags("users"))

	if err := g.GET("/users/availability", a.checkAvailability,
		forge.WithSummary("Check availability"),
		forge.WithDescription("Reports whether a username and/or email is free."),
		forge.WithOperationID("checkUserAvailability"),
		forge.WithRequestSchema(AvailabilityRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Availability", &user.Availability{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/users", a.createUser,
		forge.WithSummary("Create user"),
		forge.WithOperationID("createUser"),
		forge.WithRequestSchema(UserRequest{}),
		forge.WithCreatedResponse(&user.User{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users/:userId", a.getUser,
		forge.WithSummary("Get user"),
		forge.WithOperationID("getUser"),
		forge.WithResponseSchema(http.StatusOK, "User details", &user.User{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/users/:userId", a.updateUser,
		forge.WithSummary("Update user"),
		forge.WithOperationID("updateUser"),
		forge.WithRequestSchema(UserRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated user", &user.User{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/users/:userId", a.deleteUser,
		forge.WithSummary("Delete user"),
		forge.WithOperationID("deleteUser"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users", a.listUsers,
		forge.WithSummary("List users"),
		forge.WithDescription("Lists one page of users, or all of them with all=true."),
		forge.WithOperationID("listUsers"),
		forge.WithRequestSchema(ListUsersRequest{}),
		forge.WithResponseSchema(http.StatusOK, "User page", &PageResponse[*user.User]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/users/:userId/lock", a.lockUser,
		forge.WithSummary("Lock user"),
		forge.WithOperationID("lockUser"),
		forge.WithResponseSchema(http.StatusOK, "Locked user", &user.User{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/users/:userId/unlock", a.unlockUser,
		forge.WithSummary("Unlock user"),
		forge.WithOperationID("unlockUser"),
		forge.WithResponseSchema(http.StatusOK, "Unlocked user", &user.User{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/users/:userId/reset-password", a.resetPassword,
		forge.WithSummary("Reset password"),
		forge.WithDescription("Flags the user to choose a new password at next sign-in."),
		forge.WithOperationID("resetUserPassword"),
		forge.WithResponseSchema(http.StatusOK, "Updated user", &user.User{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createUser(ctx forge.Context, req *UserRequest) (*user.User, error) {
	normalizeUser(req)
	if err := a.validatePayload(req); err != nil {
		return nil, err
	}
	roleIDs, err := a.existingRoles(ctx.Context(), req.RoleIDs)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:       id.NewUserID(),
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		RoleIDs:  roleIDs,
	}
	if err := a.store.CreateUser(ctx.Context(), u); err != nil {
		return nil, fail(ctx, err)
	}

	a.plugins.EmitUserCreated(ctx.Context(), u)

	return u, ctx.JSON(http.StatusCreated, u)
}

func (a *API) getUser(ctx forge.Context, _ *GetUserRequest) (*user.User, error) {
	userID, err := parseID("user", ctx.Param("userId"), id.ParseUserID)
	if err != nil {
		return nil, err
	}

	u, err := a.store.GetUser(ctx.Context(), userID)
	if err != nil {
		return nil, mapError(err)
	}

	return u, ctx.JSON(http.StatusOK, u)
}

func (a *API) updateUser(ctx forge.Context, req *UserRequest) (*user.User, error) {
	userID, err := parseID("user", ctx.Param("userId"), id.ParseUserID)
	if err != nil {
		return nil, err
	}
	normalizeUser(req)
	if err := a.validatePayload(req); err != nil {
		return nil, err
	}

	u, err := a.store.GetUser(ctx.Context(), userID)
	if err != nil {
		return nil, mapError(err)
	}
	u.Username = req.Username
	u.Email = req.Email
	u.FullName = req.FullName
	if req.RoleIDs != nil {
		if u.RoleIDs, err = a.existingRoles(ctx.Context(), req.RoleIDs); err != nil {
			return nil, err
		}
	}

	if err := a.store.UpdateUser(ctx.Context(), u); err != nil {
		return nil, fail(ctx, err)
	}

	a.plugins.EmitUserUpdated(ctx.Context(), u)

	return u, ctx.JSON(http.StatusOK, u)
}

func (a *API) deleteUser(ctx forge.Context, _ *GetUserRequest) (*struct{}, error) {
	userID, err := parseID("user", ctx.Param("userId"), id.ParseUserID)
	if err != nil {
		return nil, err
	}

	if err := a.store.DeleteUser(ctx.Context(), userID); err != nil {
		return nil, mapError(err)
	}

	a.plugins.EmitUserDeleted(ctx.Context(), userID)

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listUsers(ctx forge.Context, req *ListUsersRequest) (*PageResponse[*user.User], error) {
	filter := &user.ListFilter{
		Search:    strings.TrimSpace(req.Search),
		SortBy:    req.SortBy,
		Direction: req.Direction,
	}
	if req.Locked != "" {
		locked, err := strconv.ParseBool(req.Locked)
		if err != nil {
			return nil, forge.BadRequest("locked must be true or false")
		}
		filter.Locked = &locked
	}

	if req.All {
		users, err := a.store.ListUsers(ctx.Context(), filter)
		if err != nil {
			return nil, mapError(err)
		}
		if users == nil {
			users = []*user.User{}
		}
		return nil, ctx.JSON(http.StatusOK, users)
	}

	q, limit, offset := pageWindow(&req.ListRequest)
	filter.Limit, filter.Offset = limit, offset

	users, err := a.store.ListUsers(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.store.CountUsers(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := newPageResponse(users, q, total)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) lockUser(ctx forge.Context, _ *GetUserRequest) (*user.User, error) {
	return a.userAction(ctx, func(c context.Context, userID id.UserID) error {
		if err := a.store.SetUserLocked(c, userID, true); err != nil {
			return err
		}
		a.plugins.EmitUserLocked(c, userID)
		return nil
	})
}

func (a *API) unlockUser(ctx forge.Context, _ *GetUserRequest) (*user.User, error) {
	return a.userAction(ctx, func(c context.Context, userID id.UserID) error {
		if err := a.store.SetUserLocked(c, userID, false); err != nil {
			return err
		}
		a.plugins.EmitUserUnlocked(c, userID)
		return nil
	})
}

func (a *API) resetPassword(ctx forge.Context, _ *GetUserRequest) (*user.User, error) {
	return a.userAction(ctx, func(c context.Context, userID id.UserID) error {
		if err := a.store.MarkPasswordReset(c, userID); err != nil {
			return err
		}
		a.plugins.EmitPasswordReset(c, userID)
		return nil
	})
}

func (a *API) checkAvailability(ctx forge.Context, req *AvailabilityRequest) (*user.Availability, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" && email == "" {
		return nil, forge.BadRequest("username or email is required")
	}

	var exclude id.UserID
	if req.ExcludeID != "" {
		var err error
		if exclude, err = parseID("user", req.ExcludeID, id.ParseUserID); err != nil {
			return nil, err
		}
	}

	out := &user.Availability{}
	if username != "" {
		taken, err := a.store.UsernameTaken(ctx.Context(), username, exclude)
		if err != nil {
			return nil, mapError(err)
		}
		free := !taken
		out.UsernameAvailable = &free
	}
	if email != "" {
		taken, err := a.store.EmailTaken(ctx.Context(), email, exclude)
		if err != nil {
			return nil, mapError(err)
		}
		free := !taken
		out.EmailAvailable = &free
	}

	return out, ctx.JSON(http.StatusOK, out)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// userAction runs fn against the user in the path and responds with the
// reloaded user.
func (a *API) userAction(ctx forge.Context, fn func(context.Context, id.UserID) error) (*user.User, error) {
	userID, err := parseID("user", ctx.Param("userId"), id.ParseUserID)
	if err != nil {
		return nil, err
	}
	if err := fn(ctx.Context(), userID); err != nil {
		return nil, mapError(err)
	}
	u, err := a.store.GetUser(ctx.Context(), userID)
	if err != nil {
		return nil, mapError(err)
	}
	return u, ctx.JSON(http.StatusOK, u)
}

// existingRoles parses raw and verifies every role exists.
func (a *API) existingRoles(ctx context.Context, raw []string) ([]id.RoleID, error) {
	roleIDs, err := parseIDs("role", raw, id.PrefixRole)
	if err != nil {
		return nil, err
	}
	for _, roleID := range roleIDs {
		if _, err := a.store.GetRole(ctx, roleID); err != nil {
			return nil, mapError(err)
		}
	}
	return roleIDs, nil
}

func normalizeUser(req *UserRequest) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
}
