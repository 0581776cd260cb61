package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kittipatv/should-i-move/agent/contract"
	"github.com/kittipatv/should-i-move/agent/llm"
	"github.com/kittipatv/should-i-move/agent/prompt"
	"github.com/kittipatv/should-i-move/agent/schema"
)

// AnalysisWorker wraps one reasoning capability with a role prompt, an
// output schema and optional enrichment tools. A failing tool degrades the
// task input; a schema-violating reply gets one corrective retry.
type AnalysisWorker struct {
	name       contract.WorkerName
	capability contract.Capability
	system     string
	tools      []contract.Tool
	prompts    prompt.PromptSet
}

var _ contract.Worker = (*AnalysisWorker)(nil)

func (w *AnalysisWorker) Name() contract.WorkerName { return w.name }

// Run executes the worker's analysis for the task.
func (w *AnalysisWorker) Run(ctx context.Context, task contract.Task) (contract.WorkerResult, error) {
	user, degraded := w.buildInput(ctx, task)

	system := w.system
	if task.PriorityWeighted && task.Priority != contract.PriorityUnspecified {
		stated := task.Profile.PriorityFactor
		if stated == "" {
			stated = string(task.Priority)
		}
		system += "\n\n" + w.prompts.WithPriority(stated)
	}

	raw, err := w.complete(ctx, system, user)
	if err != nil {
		return contract.WorkerResult{}, fmt.Errorf("worker %s: %w", w.name, err)
	}

	res, err := w.project(raw)
	if err != nil {
		return contract.WorkerResult{}, fmt.Errorf("worker %s: %w", w.name, err)
	}
	res.Degraded = degraded
	return res, nil
}

// buildInput renders the profile, accumulated context and tool enrichments
// into the user message. Tool failures become degradation notes instead of
// errors.
func (w *AnalysisWorker) buildInput(ctx context.Context, task contract.Task) (string, []string) {
	var b strings.Builder

	b.WriteString("User profile:\n")
	if pj, err := json.MarshalIndent(task.Profile, "", "  "); err == nil {
		b.Write(pj)
	}
	b.WriteByte('\n')

	for _, prior := range task.Context {
		fmt.Fprintf(&b, "\nEarlier analysis from %s:\nSummary: %s\nRecommendation: %s\n",
			prior.Worker, prior.Summary, prior.Recommendation)
	}

	var degraded []string
	for _, t := range w.tools {
		enriched, err := t.Enrich(ctx, task.Profile)
		if err != nil {
			note := fmt.Sprintf("%s unavailable, analysis relies on general knowledge", t.Name())
			log.Warn().Err(err).Str("worker", string(w.name)).Str("tool", t.Name()).
				Msg("enrichment tool failed, degrading")
			degraded = append(degraded, note)
			fmt.Fprintf(&b, "\nNote: %s.\n", note)
			continue
		}
		b.WriteString("\n")
		b.WriteString(enriched)
		b.WriteByte('\n')
	}

	return b.String(), degraded
}

// complete invokes the capability and validates the reply against the
// worker's schema, retrying once with corrective guidance on a contract
// violation.
func (w *AnalysisWorker) complete(ctx context.Context, system, user string) (json.RawMessage, error) {
	raw, err := w.invoke(ctx, system, user)
	if err == nil {
		return raw, nil
	}

	var violation *schema.ContractViolation
	if !errors.As(err, &violation) {
		return nil, err
	}

	log.Warn().Str("worker", string(w.name)).Strs("fields", violation.Fields()).
		Msg("output violated contract, retrying with guidance")
	return w.invoke(ctx, system, user+"\n\n"+violation.Guidance())
}

func (w *AnalysisWorker) invoke(ctx context.Context, system, user string) (json.RawMessage, error) {
	reply, err := w.capability.Complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", contract.ErrModelInvoke, err)
	}
	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(schema.ForWorker(w.name), raw, nil); err != nil {
		return nil, err
	}
	return raw, nil
}

// project decodes the validated payload into the worker's typed output and
// the uniform result fields the orchestrator composes over.
func (w *AnalysisWorker) project(raw json.RawMessage) (contract.WorkerResult, error) {
	res := contract.WorkerResult{Worker: w.name, Raw: raw}

	switch w.name {
	case contract.WorkerCost:
		var out contract.CostAnalysis
		if err := json.Unmarshal(raw, &out); err != nil {
			return res, err
		}
		res.Cost = &out
		res.Summary = out.OverallCostDifference
		res.Recommendation = out.Recommendation
		res.Supporting = out.KeyInsights
	case contract.WorkerSentiment:
		var out contract.SentimentAnalysis
		if err := json.Unmarshal(raw, &out); err != nil {
			return res, err
		}
		res.Sentiment = &out
		res.Summary = out.OverallSentiment
		res.Recommendation = out.Recommendation
		res.Supporting = out.NotablePros
		res.Concerns = out.NotableCons
	case contract.WorkerMigration:
		var out contract.MigrationInsights
		if err := json.Unmarshal(raw, &out); err != nil {
			return res, err
		}
		res.Migration = &out
		res.Summary = out.Summary
		res.Recommendation = out.Recommendation
		res.Supporting = out.CommonPositiveOutcomes
		res.Concerns = append(append([]string(nil), out.CommonChallenges...), out.RegretsOrWarnings...)
	default:
		return res, fmt.Errorf("unknown worker %q", w.name)
	}
	return res, nil
}
