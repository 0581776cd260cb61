package team

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kittipatv/should-i-move/agent/contract"
)

// workerRank fixes the composition order so the synthesized decision is
// identical for any arrival order of the results.
var workerRank = map[contract.WorkerName]int{
	contract.WorkerCost:      0,
	contract.WorkerSentiment: 1,
	contract.WorkerMigration: 2,
}

// synthesize merges the available worker results into a decision. It is
// purely mechanical: every statement in the decision is traceable to one of
// the results, and permuting the results changes nothing.
func synthesize(profile contract.Profile, protocol contract.Protocol, results []contract.WorkerResult, missing []string, routingNote string) contract.Decision {
	sorted := append([]contract.WorkerResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool {
		return workerRank[sorted[i].Worker] < workerRank[sorted[j].Worker]
	})
	sort.Strings(missing)

	byWorker := make(map[contract.WorkerName]*contract.WorkerResult, len(sorted))
	for i := range sorted {
		byWorker[sorted[i].Worker] = &sorted[i]
	}

	var supporting, concerns []string
	for _, r := range sorted {
		supporting = append(supporting, r.Supporting...)
		concerns = append(concerns, r.Concerns...)
		for _, note := range r.Degraded {
			concerns = append(concerns, "Analysis gap: "+note)
		}
	}

	favorable := 0
	for _, r := range sorted {
		if leansFavorable(r.Recommendation) {
			favorable++
		}
	}

	d := contract.Decision{
		Recommendation:       overallRecommendation(profile, sorted, favorable, routingNote),
		ConfidenceLevel:      confidence(sorted, missing),
		KeySupportingFactors: supporting,
		KeyConcerns:          concerns,
		NextSteps:            nextSteps(profile, missing),
		MissingPerspectives:  missing,
	}
	if len(d.KeySupportingFactors) == 0 {
		d.KeySupportingFactors = []string{"No supporting factors were identified."}
	}
	if len(d.KeyConcerns) == 0 {
		d.KeyConcerns = []string{"No specific concerns were identified."}
	}

	if r, ok := byWorker[contract.WorkerCost]; ok {
		d.FinancialImpactSummary = r.Summary
		d.CostAnalysisReport = renderCostReport(r)
	} else {
		d.FinancialImpactSummary = "No cost perspective was available for this analysis."
	}

	lifestyle := make([]string, 0, 2)
	if r, ok := byWorker[contract.WorkerSentiment]; ok {
		lifestyle = append(lifestyle, r.Summary)
		d.SentimentAnalysisReport = renderSentimentReport(r)
	}
	if r, ok := byWorker[contract.WorkerMigration]; ok {
		lifestyle = append(lifestyle, r.Summary)
		d.MigrationAnalysisReport = renderMigrationReport(r)
	}
	if len(lifestyle) == 0 {
		d.LifestyleImpactSummary = "No lifestyle perspective was available for this analysis."
	} else {
		d.LifestyleImpactSummary = strings.Join(lifestyle, " ")
	}

	if protocol == contract.ProtocolCooperate {
		d.Debate = debate(profile, sorted)
	}
	return d
}

// leansFavorable classifies a recommendation's direction by scanning for
// negation markers. Mechanical on purpose; synthesis never re-reasons.
func leansFavorable(recommendation string) bool {
	s := strings.ToLower(recommendation)
	negative := []string{"not recommend", "don't move", "do not move", "against the move",
		"stay in", "staying in", "avoid", "reconsider", "advise against", "hold off"}
	for _, marker := range negative {
		if strings.Contains(s, marker) {
			return false
		}
	}
	return true
}

func overallRecommendation(profile contract.Profile, sorted []contract.WorkerResult, favorable int, routingNote string) string {
	var b strings.Builder
	total := len(sorted)
	switch {
	case favorable == total:
		fmt.Fprintf(&b, "All %d consulted perspectives support moving from %s to %s.",
			total, profile.CurrentCity, profile.DesiredCity)
	case favorable == 0:
		fmt.Fprintf(&b, "None of the %d consulted perspectives support moving from %s to %s.",
			total, profile.CurrentCity, profile.DesiredCity)
	default:
		fmt.Fprintf(&b, "%d of %d consulted perspectives support moving from %s to %s.",
			favorable, total, profile.CurrentCity, profile.DesiredCity)
	}
	for _, r := range sorted {
		fmt.Fprintf(&b, " %s: %s", displayName(r.Worker), r.Recommendation)
	}
	if routingNote != "" {
		b.WriteString(" (")
		b.WriteString(routingNote)
		b.WriteString(")")
	}
	return b.String()
}

func confidence(sorted []contract.WorkerResult, missing []string) string {
	degraded := 0
	for _, r := range sorted {
		degraded += len(r.Degraded)
	}
	switch {
	case len(sorted) == 3 && degraded == 0:
		return "High"
	case len(sorted) >= 2:
		return "Medium"
	default:
		return "Low"
	}
}

func nextSteps(profile contract.Profile, missing []string) []string {
	steps := []string{
		fmt.Sprintf("Visit %s before committing to the move.", profile.DesiredCity),
		"Compare concrete rent listings against the cost figures above.",
	}
	if len(missing) > 0 {
		steps = append(steps, "Re-run the analysis for the perspectives that were unavailable.")
	}
	if profile.AnnualIncome == 0 && profile.MonthlyExpenses == 0 {
		steps = append(steps, "Gather income and expense figures for a sharper financial picture.")
	}
	return steps
}

// debate reports where the cooperating perspectives agree and where they
// pull apart, based purely on each one's stated direction.
func debate(profile contract.Profile, sorted []contract.WorkerResult) *contract.DebateSummary {
	agree, disagree := []string{}, []string{}
	favorable := 0
	for _, r := range sorted {
		if leansFavorable(r.Recommendation) {
			favorable++
		}
	}
	majorityFavorable := favorable*2 >= len(sorted)
	for _, r := range sorted {
		line := fmt.Sprintf("%s: %s", displayName(r.Worker), r.Recommendation)
		if leansFavorable(r.Recommendation) == majorityFavorable {
			agree = append(agree, line)
		} else {
			disagree = append(disagree, line)
		}
	}

	influence := "The user stated no single priority; perspectives were weighted equally."
	if p := profile.Priority(); p != contract.PriorityUnspecified {
		influence = fmt.Sprintf("Each perspective weighted its view toward the user's stated priority (%s).", p)
	}
	return &contract.DebateSummary{
		KeyPointsOfAgreement:    agree,
		KeyPointsOfDisagreement: disagree,
		PriorityInfluence:       influence,
	}
}

func displayName(w contract.WorkerName) string {
	switch w {
	case contract.WorkerCost:
		return "Cost analysis"
	case contract.WorkerSentiment:
		return "Sentiment analysis"
	case contract.WorkerMigration:
		return "Migration research"
	default:
		return string(w)
	}
}

func renderCostReport(r *contract.WorkerResult) string {
	if r.Cost == nil {
		return r.Summary
	}
	c := r.Cost
	var b strings.Builder
	fmt.Fprintf(&b, "Overall: %s\n", c.OverallCostDifference)
	fmt.Fprintf(&b, "Housing: %s\n", c.HousingComparison)
	fmt.Fprintf(&b, "Food: %s\n", c.FoodComparison)
	fmt.Fprintf(&b, "Transportation: %s\n", c.TransportationComparison)
	fmt.Fprintf(&b, "Taxes: %s\n", c.TaxesComparison)
	for _, k := range c.KeyInsights {
		fmt.Fprintf(&b, "- %s\n", k)
	}
	fmt.Fprintf(&b, "Recommendation: %s", c.Recommendation)
	return b.String()
}

func renderSentimentReport(r *contract.WorkerResult) string {
	if r.Sentiment == nil {
		return r.Summary
	}
	s := r.Sentiment
	var b strings.Builder
	fmt.Fprintf(&b, "Overall sentiment: %s\n", s.OverallSentiment)
	fmt.Fprintf(&b, "Vibe: %s\n", s.VibeDescription)
	fmt.Fprintf(&b, "Livability: %s\n", s.LivabilityScore)
	fmt.Fprintf(&b, "Fit with stated preferences: %s\n", s.AlignmentWithPreferences)
	for _, p := range s.NotablePros {
		fmt.Fprintf(&b, "+ %s\n", p)
	}
	for _, c := range s.NotableCons {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	fmt.Fprintf(&b, "Recommendation: %s", s.Recommendation)
	return b.String()
}

func renderMigrationReport(r *contract.WorkerResult) string {
	if r.Migration == nil {
		return r.Summary
	}
	m := r.Migration
	var b strings.Builder
	fmt.Fprintf(&b, "Summary: %s\n", m.Summary)
	if m.RedditInsightsIncluded {
		fmt.Fprintf(&b, "Grounded in %d community sources.\n", m.NumberOfSources)
		fmt.Fprintf(&b, "Community perspectives: %s\n", m.RedditorPerspectives)
	} else {
		b.WriteString("No community discussions were available; based on general relocation patterns.\n")
	}
	for _, c := range m.CommonChallenges {
		fmt.Fprintf(&b, "Challenge: %s\n", c)
	}
	for _, o := range m.CommonPositiveOutcomes {
		fmt.Fprintf(&b, "Positive: %s\n", o)
	}
	for _, w := range m.RegretsOrWarnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	fmt.Fprintf(&b, "Recommendation: %s", m.Recommendation)
	return b.String()
}
