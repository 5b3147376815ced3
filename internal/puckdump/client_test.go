package puckdump

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestClientGetRequestShape(t *testing.T) {
	var gotPath, gotFormat, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormat = r.URL.Query().Get("format")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"fantasy_content":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), WithBaseURL(srv.URL), WithRateLimit(100))
	body, err := c.Get(context.Background(), "league/nhl.l.12345/metadata", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(string(body), "fantasy_content") {
		t.Errorf("body = %s", body)
	}
	if gotPath != "/league/nhl.l.12345/metadata" {
		t.Errorf("path = %q", gotPath)
	}
	if gotFormat != "json" {
		t.Errorf("format = %q, want json", gotFormat)
	}
	if gotAccept != "application/json" {
		t.Errorf("accept = %q", gotAccept)
	}
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), WithBaseURL(srv.URL), WithRateLimit(100))
	_, err := c.Get(context.Background(), "league/nhl.l.1/metadata", nil)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("got %T (%v), want *APIError", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if len(apiErr.Message) > 300 {
		t.Errorf("message not truncated: %d bytes", len(apiErr.Message))
	}
	if apiErr.Endpoint != "league/nhl.l.1/metadata" {
		t.Errorf("endpoint = %q", apiErr.Endpoint)
	}
}

func TestClientExtraParams(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), WithBaseURL(srv.URL), WithRateLimit(100))
	params := url.Values{}
	params.Set("foo", "bar")
	if _, err := c.Get(context.Background(), "game/nhl", params); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Get("foo") != "bar" || got.Get("format") != "json" {
		t.Errorf("query = %v", got)
	}
}

func TestEndpointPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), WithBaseURL(srv.URL), WithRateLimit(100))
	ctx := context.Background()
	lk := "nhl.l.12345"

	c.Scoreboard(ctx, lk, 5)
	c.Transactions(ctx, lk, "add,drop", 25, 25)
	c.LeaguePlayers(ctx, lk, "FA", 50)
	c.TeamRoster(ctx, lk+".t.1", "2026-01-15")

	want := []string{
		"/league/nhl.l.12345/scoreboard;week=5",
		"/league/nhl.l.12345/transactions;types=add,drop;start=25;count=25",
		"/league/nhl.l.12345/players;status=FA;start=50;count=25/stats",
		"/team/nhl.l.12345.t.1/roster;date=2026-01-15",
	}
	if len(paths) != len(want) {
		t.Fatalf("got %d requests, want %d", len(paths), len(want))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d = %q, want %q", i, paths[i], want[i])
		}
	}
}
