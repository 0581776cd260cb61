package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kittipatv/should-i-move/agent/contract"
)

const defaultBraveBaseURL = "https://api.search.brave.com/res/v1/web/search"

// RedditSearchConfig configures the relocation discussion search.
type RedditSearchConfig struct {
	APIKey     string        `envconfig:"BRAVE_API_KEY"`
	BaseURL    string        `envconfig:"BRAVE_BASE_URL"`
	MaxResults int           `envconfig:"BRAVE_MAX_RESULTS" default:"10"`
	Timeout    time.Duration `envconfig:"BRAVE_TIMEOUT" default:"10s"`
	// QueryDelay spaces consecutive queries for rate-limited API tiers.
	QueryDelay time.Duration `envconfig:"BRAVE_QUERY_DELAY" default:"1100ms"`
}

// RedditSearch finds first-hand relocation accounts on discussion
// communities through the Brave Search API.
type RedditSearch struct {
	cfg RedditSearchConfig
	c   *http.Client
}

var _ contract.Tool = (*RedditSearch)(nil)

// NewRedditSearch builds the search tool. An empty API key is allowed; the
// tool then reports unavailability at call time and the worker degrades.
func NewRedditSearch(cfg RedditSearchConfig) *RedditSearch {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBraveBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RedditSearch{cfg: cfg, c: &http.Client{Timeout: timeout}}
}

func (t *RedditSearch) Name() string { return "reddit_relocation_search" }

type searchHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type braveResponse struct {
	Web struct {
		Results []searchHit `json:"results"`
	} `json:"web"`
}

// Enrich runs the query variants for the profile's city pair, deduplicates
// hits by URL and formats them for the migration worker's prompt.
func (t *RedditSearch) Enrich(ctx context.Context, profile contract.Profile) (string, error) {
	if t.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: search API key not configured", contract.ErrToolUnavailable)
	}

	cur, dst := profile.CurrentCity, profile.DesiredCity
	queries := []string{
		fmt.Sprintf("site:reddit.com should I move from %s to %s", cur, dst),
		fmt.Sprintf("site:reddit.com moved from %s to %s", cur, dst),
		fmt.Sprintf("site:reddit.com %s to %s relocation", cur, dst),
		fmt.Sprintf("site:reddit.com %s vs %s", dst, cur),
	}

	var hits []searchHit
	seen := make(map[string]struct{})
	for i, q := range queries {
		if i > 0 && t.cfg.QueryDelay > 0 {
			select {
			case <-time.After(t.cfg.QueryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		results, err := t.search(ctx, q)
		if err != nil {
			log.Warn().Err(err).Str("query", q).Msg("discussion search query failed")
			continue
		}
		for _, r := range results {
			if r.URL == "" {
				continue
			}
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			hits = append(hits, r)
		}
	}

	if len(hits) == 0 {
		return "", fmt.Errorf("%w: no discussions found for %s to %s", contract.ErrToolUnavailable, cur, dst)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d community discussions about moving from %s to %s:\n", len(hits), cur, dst)
	for i, h := range hits {
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n   %s\n", i+1, h.Title, h.URL, h.Description)
	}
	return b.String(), nil
}

func (t *RedditSearch) search(ctx context.Context, query string) ([]searchHit, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(t.cfg.MaxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", t.cfg.APIKey)

	resp, err := t.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("search API rejected the configured key")
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("search API rate limit reached")
	default:
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return parsed.Web.Results, nil
}
