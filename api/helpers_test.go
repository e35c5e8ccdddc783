package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/gatekeeper"
	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/pagination"
)

func TestPageWindow(t *testing.T) {
	q, limit, offset := pageWindow(&ListRequest{Page: 3, Size: 20, Direction: "DESC", Search: "  ops "})
	if q.Page != 3 || limit != 20 || offset != 40 {
		t.Fatalf("unexpected window page=%d limit=%d offset=%d", q.Page, limit, offset)
	}
	if q.Direction != pagination.Desc || q.Search != "ops" {
		t.Fatalf("unexpected query %+v", q)
	}

	q, limit, offset = pageWindow(&ListRequest{})
	if q.Page != pagination.FirstPage || limit != pagination.DefaultSize || offset != 0 {
		t.Fatalf("expected defaults, got page=%d limit=%d offset=%d", q.Page, limit, offset)
	}

	_, limit, _ = pageWindow(&ListRequest{Size: 5000})
	if limit != maxPageSize {
		t.Fatalf("expected size capped at %d, got %d", maxPageSize, limit)
	}
}

func TestNewPageResponse(t *testing.T) {
	q := pagination.Query{Page: 2, Size: 10}
	resp := newPageResponse[string](nil, q, 25)
	if resp.Items == nil {
		t.Fatal("items must encode as an empty array")
	}
	if resp.CurrentPage != 2 || resp.TotalItems != 25 || resp.TotalPages != 3 {
		t.Fatalf("unexpected page %+v", resp)
	}
}

func TestDiffIDs(t *testing.T) {
	a, b, c := id.NewPermissionID(), id.NewPermissionID(), id.NewPermissionID()

	added, removed := diffIDs([]id.ID{a, b}, []id.ID{b, c, c})
	if len(added) != 1 || added[0] != c {
		t.Fatalf("expected %s added, got %v", c, added)
	}
	if len(removed) != 1 || removed[0] != a {
		t.Fatalf("expected %s removed, got %v", a, removed)
	}

	added, removed = diffIDs([]id.ID{a}, []id.ID{a})
	if len(added) != 0 || len(removed) != 0 {
		t.Fatalf("expected empty diff, got +%v -%v", added, removed)
	}
}

func TestConflictBody(t *testing.T) {
	err := fmt.Errorf("role %q: %w", "Admin", gatekeeper.ErrDuplicateRole)
	body := conflictBody(err)
	if body.Status != 409 {
		t.Fatalf("expected 409, got %d", body.Status)
	}
	if body.Message != "role name already exists" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestMapErrorPassesThroughUnknown(t *testing.T) {
	boom := errors.New("boom")
	if got := mapError(boom); got != boom {
		t.Fatalf("expected passthrough, got %v", got)
	}
	if mapError(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
