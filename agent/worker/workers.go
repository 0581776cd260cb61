package worker

import (
	"github.com/kittipatv/should-i-move/agent/contract"
	"github.com/kittipatv/should-i-move/agent/prompt"
)

// NewCostWorker analyzes the cost-of-living difference between the two
// cities, optionally enriched with comparison page data.
func NewCostWorker(capability contract.Capability, tools ...contract.Tool) *AnalysisWorker {
	ps := prompt.LoadPromptSet()
	return &AnalysisWorker{
		name:       contract.WorkerCost,
		capability: capability,
		system:     ps.Cost,
		tools:      tools,
		prompts:    ps,
	}
}

// NewSentimentWorker assesses how residents feel about the desired city
// against the user's stated preferences.
func NewSentimentWorker(capability contract.Capability, tools ...contract.Tool) *AnalysisWorker {
	ps := prompt.LoadPromptSet()
	return &AnalysisWorker{
		name:       contract.WorkerSentiment,
		capability: capability,
		system:     ps.Sentiment,
		tools:      tools,
		prompts:    ps,
	}
}

// NewMigrationWorker summarizes first-hand accounts of people who made the
// same move, optionally enriched with community discussion search results.
func NewMigrationWorker(capability contract.Capability, tools ...contract.Tool) *AnalysisWorker {
	ps := prompt.LoadPromptSet()
	return &AnalysisWorker{
		name:       contract.WorkerMigration,
		capability: capability,
		system:     ps.Migration,
		tools:      tools,
		prompts:    ps,
	}
}
