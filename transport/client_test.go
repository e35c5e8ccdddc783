package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xraph/gatekeeper/lifecycle"
	"github.com/xraph/gatekeeper/pagination"
	"github.com/xraph/gatekeeper/user"
)

type thing struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/v1", WithHeader("Authorization", "Bearer test"))
}

func TestListSendsQuery(t *testing.T) {
	ctx := context.Background()
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/roles" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("size") != "5" || q.Get("search") != "adm" ||
			q.Get("sortBy") != "name" || q.Get("direction") != "desc" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer test" {
			t.Error("missing default header")
		}
		_ = json.NewEncoder(w).Encode(PageResponse[thing]{
			Items:       []thing{{ID: "r1", Name: "admin"}},
			CurrentPage: 2,
			TotalItems:  6,
			TotalPages:  2,
		})
	})

	var out PageResponse[thing]
	err := c.List(ctx, KindRoles, pagination.Query{Page: 2, Size: 5, SortBy: "name", Direction: pagination.Desc, Search: "adm"}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Items) != 1 || out.TotalItems != 6 {
		t.Fatalf("unexpected page %+v", out)
	}
	if p := out.Page(5); p.TotalPages != 2 || p.CurrentPage != 2 || p.Size != 5 {
		t.Fatalf("unexpected page metadata %+v", p)
	}
}

func TestListAllAndMutations(t *testing.T) {
	ctx := context.Background()
	var seen []string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("all") != "true" {
				t.Errorf("expected all=true")
			}
			_ = json.NewEncoder(w).Encode([]thing{{ID: "a"}, {ID: "b"}})
		case http.MethodPost, http.MethodPut:
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("missing content type")
			}
			var in thing
			_ = json.NewDecoder(r.Body).Decode(&in)
			in.ID = "new"
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(in)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	var all []thing
	if err := c.ListAll(ctx, KindPermissions, &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}

	var created thing
	if err := c.Create(ctx, KindPermissions, thing{Name: "users:create"}, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID != "new" || created.Name != "users:create" {
		t.Fatalf("unexpected created entity %+v", created)
	}
	if err := c.Update(ctx, KindPermissions, "p1", thing{Name: "x"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, KindPermissions, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := c.Action(ctx, KindUsers, "u1", ActionResetPassword, nil); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"GET /v1/permissions",
		"POST /v1/permissions",
		"PUT /v1/permissions/p1",
		"DELETE /v1/permissions/p1",
		"POST /v1/users/u1/reset-password",
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %d requests, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("request %d: expected %q, got %q", i, want[i], seen[i])
		}
	}
}

func TestErrorMessageExtraction(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		body string
		want string
	}{
		{`{"status":409,"message":"role name already exists"}`, "role name already exists"},
		{`{"error":"bad input"}`, "bad input"},
		{`{"detail":"gone"}`, "gone"},
		{`not json`, ""},
	}
	for _, tt := range tests {
		body := tt.body
		c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(body))
		})
		err := c.Get(ctx, KindRoles, "r1", nil)
		var te *Error
		if !errors.As(err, &te) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if te.Status != http.StatusConflict || te.Message != tt.want {
			t.Fatalf("body %s: got status %d message %q", tt.body, te.Status, te.Message)
		}
		if !IsStatus(err, http.StatusConflict) {
			t.Fatal("IsStatus should match 409")
		}
		if tt.want != "" && lifecycle.ErrorMessage(err) != tt.want {
			t.Fatalf("lifecycle should prefer the server message, got %q", lifecycle.ErrorMessage(err))
		}
		if lifecycle.ErrorCode(err) != http.StatusConflict {
			t.Fatal("lifecycle should see the status code")
		}
	}
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/availability" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("username") != "alice" || q.Get("excludeId") != "user_1" || q.Has("email") {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"usernameAvailable":false}`))
	})

	got, err := c.CheckAvailability(ctx, user.AvailabilityRequest{Username: "alice", ExcludeID: "user_1"})
	if err != nil {
		t.Fatal(err)
	}
	if got.UsernameAvailable == nil || *got.UsernameAvailable {
		t.Fatal("expected username to be taken")
	}
	if got.EmailAvailable != nil {
		t.Fatal("email was not asked")
	}
}
