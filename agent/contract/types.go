package contract

import (
	"encoding/json"
	"strings"
)

// WorkerName enumerates the fixed set of analysis workers. There is no
// dynamic registry; each worker is a known variant with one output schema.
type WorkerName string

const (
	WorkerCost      WorkerName = "cost_analyst"
	WorkerSentiment WorkerName = "sentiment_analyst"
	WorkerMigration WorkerName = "migration_researcher"
)

// Protocol selects how the team composes its workers for one request.
type Protocol string

const (
	ProtocolCoordinate Protocol = "coordinate"
	ProtocolRoute      Protocol = "route"
	ProtocolCooperate  Protocol = "cooperate"
)

// PriorityFactor is the single dominant decision criterion the user stated,
// normalized to the routing vocabulary.
type PriorityFactor string

const (
	PriorityCost        PriorityFactor = "cost"
	PriorityCulture     PriorityFactor = "culture"
	PriorityExperience  PriorityFactor = "experience"
	PriorityUnspecified PriorityFactor = "unspecified"
)

// NormalizePriority maps a free-form stated priority onto the routing
// vocabulary. Anything unrecognized resolves to unspecified and is handled
// by the route tie-break.
func NormalizePriority(raw string) PriorityFactor {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return PriorityUnspecified
	case strings.Contains(s, "cost") || strings.Contains(s, "financ") ||
		strings.Contains(s, "afford") || strings.Contains(s, "money") ||
		strings.Contains(s, "budget"):
		return PriorityCost
	case strings.Contains(s, "culture") || strings.Contains(s, "lifestyle") ||
		strings.Contains(s, "vibe"):
		return PriorityCulture
	case strings.Contains(s, "experience") || strings.Contains(s, "people") ||
		strings.Contains(s, "stories"):
		return PriorityExperience
	default:
		return PriorityUnspecified
	}
}

// Profile is the validated record of user context produced by elicitation.
// CurrentCity and DesiredCity must be specific place names, never a bare
// state or region.
type Profile struct {
	CurrentCity     string   `json:"current_city"`
	DesiredCity     string   `json:"desired_city"`
	AnnualIncome    float64  `json:"annual_income,omitempty"`
	MonthlyExpenses float64  `json:"monthly_expenses,omitempty"`
	CityPreferences []string `json:"city_preferences,omitempty"`
	CurrentLikes    []string `json:"current_city_likes,omitempty"`
	CurrentDislikes []string `json:"current_city_dislikes,omitempty"`
	PriorityFactor  string   `json:"priority_factor,omitempty"`
}

// HasFinancialSignal reports whether the profile carries any financial
// context. Route uses this for its tie-break when no priority is stated.
func (p Profile) HasFinancialSignal() bool {
	if p.AnnualIncome > 0 || p.MonthlyExpenses > 0 {
		return true
	}
	for _, pref := range p.CityPreferences {
		s := strings.ToLower(pref)
		if strings.Contains(s, "cost") || strings.Contains(s, "afford") ||
			strings.Contains(s, "budget") || strings.Contains(s, "cheap") {
			return true
		}
	}
	return false
}

// Priority returns the normalized priority factor.
func (p Profile) Priority() PriorityFactor {
	return NormalizePriority(p.PriorityFactor)
}

// Turn is one question/answer round of the elicitation transcript.
// Transcripts are append-only.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// CostAnalysis is the cost worker's typed output.
type CostAnalysis struct {
	OverallCostDifference    string   `json:"overall_cost_difference"`
	HousingComparison        string   `json:"housing_comparison"`
	FoodComparison           string   `json:"food_comparison"`
	TransportationComparison string   `json:"transportation_comparison"`
	TaxesComparison          string   `json:"taxes_comparison"`
	KeyInsights              []string `json:"key_insights"`
	Recommendation           string   `json:"recommendation"`
}

// SentimentAnalysis is the sentiment worker's typed output.
type SentimentAnalysis struct {
	OverallSentiment         string   `json:"overall_sentiment"`
	VibeDescription          string   `json:"vibe_description"`
	LivabilityScore          string   `json:"livability_score"`
	AlignmentWithPreferences string   `json:"alignment_with_preferences"`
	NotablePros              []string `json:"notable_pros"`
	NotableCons              []string `json:"notable_cons"`
	Recommendation           string   `json:"recommendation"`
}

// MigrationInsights is the migration worker's typed output.
type MigrationInsights struct {
	NumberOfSources        int      `json:"number_of_sources"`
	RedditInsightsIncluded bool     `json:"reddit_insights_included"`
	RedditorPerspectives   string   `json:"redditor_perspectives"`
	CommonReasonsForMoving []string `json:"common_reasons_for_moving"`
	CommonChallenges       []string `json:"common_challenges"`
	CommonPositiveOutcomes []string `json:"common_positive_outcomes"`
	RegretsOrWarnings      []string `json:"regrets_or_warnings"`
	Summary                string   `json:"summary"`
	Recommendation         string   `json:"recommendation"`
}

// WorkerResult is one worker's schema-validated output plus the uniform
// projection the orchestrator composes over. Exactly one of the typed
// payloads is non-nil, matching the worker that produced it.
type WorkerResult struct {
	Worker         WorkerName      `json:"worker"`
	Summary        string          `json:"summary"`
	Recommendation string          `json:"recommendation"`
	Supporting     []string        `json:"supporting,omitempty"`
	Concerns       []string        `json:"concerns,omitempty"`
	Degraded       []string        `json:"degraded,omitempty"`
	Raw            json.RawMessage `json:"raw,omitempty"`

	Cost      *CostAnalysis      `json:"cost,omitempty"`
	Sentiment *SentimentAnalysis `json:"sentiment,omitempty"`
	Migration *MigrationInsights `json:"migration,omitempty"`
}

// DebateSummary reports what the cooperating workers agreed and disagreed
// on. The fields are populated by synthesis from whatever the workers
// stated; genuine disagreement is not independently verified.
type DebateSummary struct {
	KeyPointsOfAgreement    []string `json:"key_points_of_agreement"`
	KeyPointsOfDisagreement []string `json:"key_points_of_disagreement"`
	PriorityInfluence       string   `json:"priority_influence"`
}

// Decision is the orchestrator's final recommendation. It is immutable once
// returned and every field referencing a sub-analysis is traceable to one of
// the contributing WorkerResults.
type Decision struct {
	Recommendation          string   `json:"recommendation"`
	ConfidenceLevel         string   `json:"confidence_level"`
	KeySupportingFactors    []string `json:"key_supporting_factors"`
	KeyConcerns             []string `json:"key_concerns"`
	FinancialImpactSummary  string   `json:"financial_impact_summary"`
	LifestyleImpactSummary  string   `json:"lifestyle_impact_summary"`
	CostAnalysisReport      string   `json:"cost_analysis_report,omitempty"`
	SentimentAnalysisReport string   `json:"sentiment_analysis_report,omitempty"`
	MigrationAnalysisReport string   `json:"migration_analysis_report,omitempty"`
	NextSteps               []string `json:"next_steps"`
	MissingPerspectives     []string `json:"missing_perspectives,omitempty"`

	Debate *DebateSummary `json:"debate,omitempty"`
}
