package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/gatekeeper"
	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/pagination"
)

// fail maps domain errors to HTTP responses. Conflicts are written directly
// as a {status, message} body so clients can show the message inline.
func fail(ctx forge.Context, err error) error {
	if err == nil {
		return nil
	}
	if gatekeeper.IsConflict(err) {
		return ctx.JSON(http.StatusConflict, conflictBody(err))
	}
	return mapError(err)
}

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if gatekeeper.IsNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, gatekeeper.ErrSystemRoleImmutable) || errors.Is(err, gatekeeper.ErrInvalidID) {
		return forge.BadRequest(err.Error())
	}
	return err
}

func conflictBody(err error) *ErrorResponse {
	return &ErrorResponse{
		Status:  http.StatusConflict,
		Message: strings.TrimPrefix(rootCause(err).Error(), "gatekeeper: "),
	}
}

// rootCause returns the innermost wrapped error.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func (a *API) validatePayload(payload any) error {
	if err := a.validate.Struct(payload); err != nil {
		return forge.BadRequest(err.Error())
	}
	return nil
}

func parseID(kind string, raw string, parse func(string) (id.ID, error)) (id.ID, error) {
	parsed, err := parse(raw)
	if err != nil {
		return id.ID{}, forge.BadRequest(fmt.Sprintf("invalid %s ID: %v", kind, err))
	}
	return parsed, nil
}

func parseIDs(kind string, raw []string, prefix id.Prefix) ([]id.ID, error) {
	ids, err := id.ParseAll(raw, prefix)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid %s ID: %v", kind, err))
	}
	return ids, nil
}

// pageWindow turns list query parameters into a normalized query plus the
// limit and offset the store expects.
func pageWindow(req *ListRequest) (q pagination.Query, limit, offset int) {
	q = pagination.Query{
		Page:      req.Page,
		Size:      req.Size,
		SortBy:    req.SortBy,
		Direction: pagination.Direction(strings.ToLower(req.Direction)),
		Search:    strings.TrimSpace(req.Search),
	}.Normalize()
	if q.Size > maxPageSize {
		q.Size = maxPageSize
	}
	return q, q.Size, q.Offset()
}

const maxPageSize = 1000

// diffIDs reports which ids were added to and removed from before.
func diffIDs(before, after []id.ID) (added, removed []id.ID) {
	in := func(set []id.ID, x id.ID) bool {
		for _, s := range set {
			if s == x {
				return true
			}
		}
		return false
	}
	for _, x := range after {
		if !in(before, x) && !in(added, x) {
			added = append(added, x)
		}
	}
	for _, x := range before {
		if !in(after, x) && !in(removed, x) {
			removed = append(removed, x)
		}
	}
	return added, removed
}
