package tool

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/kittipatv/should-i-move/agent/contract"
)

const (
	defaultCompareBaseURL = "https://www.nerdwallet.com/cost-of-living-calculator/compare"
	maxExtractedChars     = 6000
)

// CostLookupConfig configures the cost-of-living comparison lookup.
type CostLookupConfig struct {
	BaseURL string        `envconfig:"COST_BASE_URL"`
	Timeout time.Duration `envconfig:"COST_TIMEOUT" default:"15s"`
}

// CostLookup fetches a published cost-of-living comparison page for the
// user's city pair and extracts its text for the cost worker's prompt.
type CostLookup struct {
	baseURL string
	client  *http.Client
	cities  *CityDB
}

var _ contract.Tool = (*CostLookup)(nil)

// NewCostLookup builds the lookup over the embedded city database.
func NewCostLookup(cfg CostLookupConfig, cities *CityDB) *CostLookup {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultCompareBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CostLookup{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
		cities:  cities,
	}
}

func (t *CostLookup) Name() string { return "cost_of_living_comparison" }

// CompareURL returns the comparison page URL for the profile's city pair.
func (t *CostLookup) CompareURL(profile contract.Profile) string {
	return fmt.Sprintf("%s/%s-vs-%s",
		t.baseURL, t.cities.Slug(profile.CurrentCity), t.cities.Slug(profile.DesiredCity))
}

// Enrich fetches the comparison page and returns its text prefixed with the
// source URL. Any failure is reported as tool unavailability; the worker
// degrades rather than aborts.
func (t *CostLookup) Enrich(ctx context.Context, profile contract.Profile) (string, error) {
	pageURL := t.CompareURL(profile)
	log.Debug().Str("url", pageURL).Msg("fetching cost of living comparison")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %s", contract.ErrToolUnavailable, err)
	}
	req.Header.Set("User-Agent", "should-i-move/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", contract.ErrToolUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: comparison page returned status %d", contract.ErrToolUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: parse page: %s", contract.ErrToolUnavailable, err)
	}

	selection := doc.Find("main")
	if selection.Length() == 0 {
		selection = doc.Find("body")
	}
	text := strings.Join(strings.Fields(selection.Text()), " ")
	if text == "" {
		return "", fmt.Errorf("%w: comparison page had no extractable text", contract.ErrToolUnavailable)
	}
	if len(text) > maxExtractedChars {
		text = text[:maxExtractedChars]
	}

	return fmt.Sprintf("Cost of living comparison data (source: %s):\n%s", pageURL, text), nil
}
