package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/question.txt
	questionRaw string

	//go:embed template/extract.txt
	extractRaw string

	//go:embed template/cost.txt
	costRaw string

	//go:embed template/sentiment.txt
	sentimentRaw string

	//go:embed template/migration.txt
	migrationRaw string

	//go:embed template/cooperate.txt
	cooperateRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Question  string
	Extract   string
	Cost      string
	Sentiment string
	Migration string
	Cooperate string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Question:  strings.TrimSpace(questionRaw),
		Extract:   strings.TrimSpace(extractRaw),
		Cost:      strings.TrimSpace(costRaw),
		Sentiment: strings.TrimSpace(sentimentRaw),
		Migration: strings.TrimSpace(migrationRaw),
		Cooperate: strings.TrimSpace(cooperateRaw),
	}
}

// WithPriority substitutes the user's stated priority into the cooperation
// weighting addendum.
func (p PromptSet) WithPriority(priority string) string {
	return strings.ReplaceAll(p.Cooperate, "{priority}", priority)
}
