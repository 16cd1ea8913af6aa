package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientLookupSuccess(t *testing.T) {
	var gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tokens/user" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotHeader = r.Header.Get(TokenHeader)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotBody = body["token"]

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"id":            7,
				"first_name":    "Ada",
				"is_superadmin": true,
				"circles":       []map[string]any{{"id": 3, "parent_id": 99}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	user, err := client.Lookup(context.Background(), "valid-token")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if gotHeader != "valid-token" || gotBody != "valid-token" {
		t.Fatalf("token not forwarded verbatim: header=%q body=%q", gotHeader, gotBody)
	}
	if user.ID != 7 || !user.Superadmin || user.FirstName != "Ada" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if len(user.Circles) != 1 || user.Circles[0].ParentID != 99 {
		t.Fatalf("circles not mapped: %+v", user.Circles)
	}
	// Absent collections are defaulted, never nil.
	if user.Special == nil {
		t.Fatalf("special rights must default to an empty slice")
	}
}

func TestClientLookupDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	_, err := client.Lookup(context.Background(), "bad-token")
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestClientLookupTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, 0)
	_, err := client.Lookup(context.Background(), "token")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestClientLookupMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	_, err := client.Lookup(context.Background(), "token")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestNewClientJoinsPort(t *testing.T) {
	client := NewClient("http://core/", 4000)
	if client.baseURL != "http://core:4000" {
		t.Fatalf("unexpected base url: %s", client.baseURL)
	}
}

func TestTransformUserDefaultsCollections(t *testing.T) {
	user, err := transformUser(json.RawMessage(`{"id":1,"is_superadmin":false}`))
	if err != nil {
		t.Fatalf("transformUser: %v", err)
	}
	if user.Circles == nil || user.Special == nil {
		t.Fatalf("collections must never be nil: %+v", user)
	}
	if len(user.Circles) != 0 || len(user.Special) != 0 {
		t.Fatalf("expected empty defaults: %+v", user)
	}
}
