package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kittipatv/should-i-move/agent/contract"
)

func TestRedditSearchEnrichDeduplicates(t *testing.T) {
	t.Parallel()

	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "test-key" {
			t.Errorf("missing subscription token, got %q", got)
		}
		queries = append(queries, r.URL.Query().Get("q"))
		// Same hit in every response plus one unique per query.
		resp := braveResponse{}
		resp.Web.Results = []searchHit{
			{Title: "Shared thread", URL: "https://reddit.com/r/Austin/shared", Description: "seen everywhere"},
			{Title: "Unique thread", URL: fmt.Sprintf("https://reddit.com/r/Austin/%d", len(queries)), Description: "one per query"},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	search := NewRedditSearch(RedditSearchConfig{APIKey: "test-key", BaseURL: srv.URL})
	profile := contract.Profile{CurrentCity: "Dallas", DesiredCity: "Austin"}

	out, err := search.Enrich(context.Background(), profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 4 {
		t.Fatalf("expected 4 query variants, got %d", len(queries))
	}
	for _, q := range queries {
		if !strings.HasPrefix(q, "site:reddit.com") {
			t.Errorf("query %q not scoped to reddit", q)
		}
	}
	// 4 queries x 2 hits, but the shared URL counts once: 5 unique.
	if !strings.Contains(out, "Found 5 community discussions") {
		t.Fatalf("expected 5 deduplicated hits, got output:\n%s", out)
	}
}

func TestRedditSearchUnavailableWithoutKey(t *testing.T) {
	t.Parallel()

	search := NewRedditSearch(RedditSearchConfig{})
	_, err := search.Enrich(context.Background(), contract.Profile{CurrentCity: "Dallas", DesiredCity: "Austin"})
	if !errors.Is(err, contract.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
}

func TestRedditSearchUnavailableWhenEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(braveResponse{})
	}))
	defer srv.Close()

	search := NewRedditSearch(RedditSearchConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := search.Enrich(context.Background(), contract.Profile{CurrentCity: "Dallas", DesiredCity: "Austin"})
	if !errors.Is(err, contract.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
}

func TestRedditSearchSurvivesFailedQueries(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 4 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		resp := braveResponse{}
		resp.Web.Results = []searchHit{
			{Title: "Late thread", URL: "https://reddit.com/r/Austin/late", Description: "finally"},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	search := NewRedditSearch(RedditSearchConfig{APIKey: "test-key", BaseURL: srv.URL})
	out, err := search.Enrich(context.Background(), contract.Profile{CurrentCity: "Dallas", DesiredCity: "Austin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Late thread") {
		t.Fatalf("expected the surviving hit in output, got:\n%s", out)
	}
}
