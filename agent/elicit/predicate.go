package elicit

import (
	"strings"

	"github.com/kittipatv/should-i-move/agent/contract"
)

// PredicateConfig holds the keyword vocabulary the completeness predicate
// scans answers with. The zero value is unusable; use DefaultPredicate.
type PredicateConfig struct {
	Income      []string
	Expenses    []string
	Preferences []string
	Likes       []string
	Dislikes    []string
	Priority    []string
}

// DefaultPredicate returns the stock vocabulary.
func DefaultPredicate() PredicateConfig {
	return PredicateConfig{
		Income:      []string{"income", "salary", "earn", "make", "$"},
		Expenses:    []string{"expense", "spend", "budget", "cost"},
		Preferences: []string{"prefer", "like", "love", "value", "important", "want", "need"},
		Likes:       []string{"like about", "love about", "enjoy", "appreciate", "good thing"},
		Dislikes:    []string{"dislike", "hate", "don't like", "problem with", "issue with", "bad thing"},
		Priority:    []string{"most important", "biggest priority", "key factor", "mainly concerned", "priority is", "matters most", "primary concern"},
	}
}

// Coverage reports which information categories the conversation has touched
// so far. Location coverage additionally requires that the extracted profile
// names a specific place, not just that a place word appeared in an answer.
type Coverage struct {
	CurrentCity bool
	DesiredCity bool
	Financial   bool
	Preferences bool
	Opinions    bool
	Priority    bool
}

// Complete reports whether enough categories are covered to stop asking.
// requirePriority is set by protocols that route or weight on the user's
// stated priority.
func (c Coverage) Complete(requirePriority bool) bool {
	if !c.CurrentCity || !c.DesiredCity || !c.Financial || !c.Preferences || !c.Opinions {
		return false
	}
	if requirePriority && !c.Priority {
		return false
	}
	return true
}

// Missing lists the uncovered categories in question-priority order.
func (c Coverage) Missing(requirePriority bool) []string {
	var out []string
	if !c.CurrentCity {
		out = append(out, "the specific city they live in now")
	}
	if !c.DesiredCity {
		out = append(out, "the specific city they want to move to")
	}
	if !c.Financial {
		out = append(out, "their income or monthly expenses")
	}
	if !c.Preferences {
		out = append(out, "what they want from a city")
	}
	if !c.Opinions {
		out = append(out, "what they like and dislike about their current city")
	}
	if requirePriority && !c.Priority {
		out = append(out, "the single most important factor in their decision")
	}
	return out
}

// Assess scans the transcript answers for category keywords and combines
// them with the fields of the latest extracted profile.
func (p PredicateConfig) Assess(transcript []contract.Turn, profile contract.Profile) Coverage {
	var b strings.Builder
	for _, t := range transcript {
		b.WriteString(strings.ToLower(t.Answer))
		b.WriteByte('\n')
	}
	text := b.String()

	hasAny := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	return Coverage{
		CurrentCity: SpecificPlace(profile.CurrentCity),
		DesiredCity: SpecificPlace(profile.DesiredCity),
		Financial: profile.AnnualIncome > 0 || profile.MonthlyExpenses > 0 ||
			hasAny(p.Income) || hasAny(p.Expenses),
		Preferences: len(profile.CityPreferences) > 0 || hasAny(p.Preferences),
		Opinions: len(profile.CurrentLikes) > 0 || len(profile.CurrentDislikes) > 0 ||
			hasAny(p.Likes) || hasAny(p.Dislikes),
		Priority: profile.PriorityFactor != "" || hasAny(p.Priority),
	}
}

// vagueRegions are places too broad to compare the cost of living of.
// "new york" and "washington" are absent on purpose; as bare names they far
// more often mean the city.
var vagueRegions = map[string]struct{}{
	"alabama": {}, "alaska": {}, "arizona": {}, "arkansas": {},
	"california": {}, "colorado": {}, "connecticut": {}, "delaware": {},
	"florida": {}, "georgia": {}, "hawaii": {}, "idaho": {},
	"illinois": {}, "indiana": {}, "iowa": {}, "kansas": {},
	"kentucky": {}, "louisiana": {}, "maine": {}, "maryland": {},
	"massachusetts": {}, "michigan": {}, "minnesota": {}, "mississippi": {},
	"missouri": {}, "montana": {}, "nebraska": {}, "nevada": {},
	"new hampshire": {}, "new jersey": {}, "new mexico": {},
	"north carolina": {}, "north dakota": {}, "ohio": {}, "oklahoma": {},
	"oregon": {}, "pennsylvania": {}, "rhode island": {},
	"south carolina": {}, "south dakota": {}, "tennessee": {},
	"texas": {}, "utah": {}, "vermont": {}, "virginia": {},
	"west virginia": {}, "wisconsin": {}, "wyoming": {},
	"usa": {}, "america": {}, "united states": {},
	"the south": {}, "the midwest": {}, "midwest": {},
	"east coast": {}, "west coast": {}, "pacific northwest": {},
	"new england": {}, "somewhere warm": {}, "somewhere cheap": {},
}

// SpecificPlace reports whether s plausibly names a single city. A valid
// place is non-empty, at most four tokens, and not a bare state or region.
func SpecificPlace(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Unknown) {
		return false
	}
	if len(strings.Fields(s)) > 4 {
		return false
	}
	norm := strings.ToLower(s)
	norm = strings.TrimPrefix(norm, "the state of ")
	norm = strings.TrimSuffix(norm, " state")
	if _, vague := vagueRegions[norm]; vague {
		return false
	}
	return true
}
