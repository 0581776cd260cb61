package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kittipatv/should-i-move/agent/contract"
)

// timestampLayout is the filename timestamp, second resolution.
const timestampLayout = "20060102_150405"

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeCity lowercases a city name and collapses every run of
// non-alphanumeric characters into a single underscore.
func NormalizeCity(city string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(city), "_")
	return strings.Trim(s, "_")
}

// Filename builds the report filename for a city pair and generation time:
// {current}_to_{target}_{timestamp}_analysis.md.
func Filename(currentCity, desiredCity string, ts time.Time) string {
	return fmt.Sprintf("%s_to_%s_%s_analysis.md",
		NormalizeCity(currentCity), NormalizeCity(desiredCity), ts.Format(timestampLayout))
}

// Render produces the full markdown report for a finished analysis.
func Render(profile contract.Profile, protocol contract.Protocol, decision contract.Decision, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Should You Move from %s to %s?\n\n", profile.CurrentCity, profile.DesiredCity)
	fmt.Fprintf(&b, "## Report Generated\n\n")
	fmt.Fprintf(&b, "**Date:** %s\n", generatedAt.Format("January 2, 2006 at 3:04 PM"))
	fmt.Fprintf(&b, "**Analysis Pattern:** %s\n\n", patternName(protocol))
	b.WriteString("---\n\n")

	b.WriteString("## User Profile\n\n")
	fmt.Fprintf(&b, "- **Current City:** %s\n", profile.CurrentCity)
	fmt.Fprintf(&b, "- **Desired City:** %s\n", profile.DesiredCity)
	if profile.AnnualIncome > 0 {
		fmt.Fprintf(&b, "- **Annual Income:** $%.0f\n", profile.AnnualIncome)
	}
	if profile.MonthlyExpenses > 0 {
		fmt.Fprintf(&b, "- **Monthly Expenses:** $%.0f\n", profile.MonthlyExpenses)
	}
	if len(profile.CityPreferences) > 0 {
		fmt.Fprintf(&b, "- **Preferences:** %s\n", strings.Join(profile.CityPreferences, ", "))
	}
	if profile.PriorityFactor != "" {
		fmt.Fprintf(&b, "- **Stated Priority:** %s\n", profile.PriorityFactor)
	}
	b.WriteString("\n---\n\n")

	b.WriteString("## Recommendation\n\n")
	fmt.Fprintf(&b, "%s\n\n", decision.Recommendation)
	fmt.Fprintf(&b, "**Confidence:** %s\n\n", decision.ConfidenceLevel)

	writeList(&b, "### Key Supporting Factors", decision.KeySupportingFactors)
	writeList(&b, "### Key Concerns", decision.KeyConcerns)

	b.WriteString("### Financial Impact\n\n")
	fmt.Fprintf(&b, "%s\n\n", decision.FinancialImpactSummary)
	b.WriteString("### Lifestyle Impact\n\n")
	fmt.Fprintf(&b, "%s\n\n", decision.LifestyleImpactSummary)

	writeSection(&b, "## Cost Analysis", decision.CostAnalysisReport)
	writeSection(&b, "## Sentiment Analysis", decision.SentimentAnalysisReport)
	writeSection(&b, "## Migration Research", decision.MigrationAnalysisReport)

	if decision.Debate != nil {
		b.WriteString("## Perspective Debate\n\n")
		writeList(&b, "### Points of Agreement", decision.Debate.KeyPointsOfAgreement)
		writeList(&b, "### Points of Disagreement", decision.Debate.KeyPointsOfDisagreement)
		fmt.Fprintf(&b, "%s\n\n", decision.Debate.PriorityInfluence)
	}

	if len(decision.MissingPerspectives) > 0 {
		writeList(&b, "## Missing Perspectives", decision.MissingPerspectives)
	}

	writeList(&b, "## Next Steps", decision.NextSteps)

	b.WriteString("---\n\n")
	b.WriteString("*This report was generated by an automated analysis system. Use it as one input in your decision and verify all figures independently.*\n")
	return b.String()
}

func writeSection(b *strings.Builder, heading, body string) {
	if body == "" {
		return
	}
	b.WriteString(heading)
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading)
	b.WriteString("\n\n")
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func patternName(p contract.Protocol) string {
	switch p {
	case contract.ProtocolCoordinate:
		return "Coordination (sequential specialists)"
	case contract.ProtocolRoute:
		return "Routing (single specialist)"
	case contract.ProtocolCooperate:
		return "Cooperation (parallel specialists)"
	default:
		return string(p)
	}
}
