package team

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kittipatv/should-i-move/agent/contract"
	"github.com/kittipatv/should-i-move/agent/elicit"
	"github.com/kittipatv/should-i-move/agent/schema"
)

const defaultWorkerTimeout = 90 * time.Second

// Config bounds the team's execution.
type Config struct {
	// WorkerTimeout caps each cooperating worker independently. A worker
	// that exceeds it is reported as a missing perspective; the others
	// keep running.
	WorkerTimeout time.Duration `envconfig:"WORKER_TIMEOUT" default:"90s"`
}

func (c Config) withDefaults() Config {
	if c.WorkerTimeout <= 0 {
		c.WorkerTimeout = defaultWorkerTimeout
	}
	return c
}

// Team composes the three analysis workers under one of the collaboration
// protocols. Workers never talk to each other; all composition happens
// here.
type Team struct {
	cost      contract.Worker
	sentiment contract.Worker
	migration contract.Worker
	cfg       Config
}

// New builds a team from its three workers.
func New(cost, sentiment, migration contract.Worker, cfg Config) *Team {
	return &Team{cost: cost, sentiment: sentiment, migration: migration, cfg: cfg.withDefaults()}
}

// Analyze runs the selected protocol over a complete profile and returns
// the synthesized decision.
func (t *Team) Analyze(ctx context.Context, profile contract.Profile, protocol contract.Protocol) (contract.Decision, error) {
	if !elicit.SpecificPlace(profile.CurrentCity) || !elicit.SpecificPlace(profile.DesiredCity) {
		return contract.Decision{}, fmt.Errorf("%w: both cities must name a specific place", contract.ErrProfileIncomplete)
	}

	var (
		decision contract.Decision
		err      error
	)
	switch protocol {
	case contract.ProtocolCoordinate:
		decision, err = t.coordinate(ctx, profile)
	case contract.ProtocolRoute:
		decision, err = t.route(ctx, profile)
	case contract.ProtocolCooperate:
		decision, err = t.cooperate(ctx, profile)
	default:
		return contract.Decision{}, fmt.Errorf("%w: unknown protocol %q", contract.ErrValidation, protocol)
	}
	if err != nil {
		return contract.Decision{}, err
	}

	// The outbound contract holds for synthesized output too.
	raw, merr := json.Marshal(decision)
	if merr != nil {
		return contract.Decision{}, fmt.Errorf("%w: encode decision: %v", contract.ErrValidation, merr)
	}
	if verr := schema.Validate(schema.Decision, raw, nil); verr != nil {
		return contract.Decision{}, fmt.Errorf("synthesized decision: %w", verr)
	}
	return decision, nil
}

// coordinate runs the workers sequentially, each seeing everything the
// ones before it produced. A failing worker becomes a missing perspective;
// the chain keeps going with whatever context it has.
func (t *Team) coordinate(ctx context.Context, profile contract.Profile) (contract.Decision, error) {
	var (
		results []contract.WorkerResult
		missing []string
	)
	for _, w := range []contract.Worker{t.cost, t.sentiment, t.migration} {
		res, err := w.Run(ctx, contract.Task{Profile: profile, Context: results})
		if err != nil {
			log.Warn().Err(err).Str("worker", string(w.Name())).Msg("coordinated worker failed, continuing without it")
			missing = append(missing, fmt.Sprintf("%s: analysis failed", w.Name()))
			continue
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		return contract.Decision{}, fmt.Errorf("all workers failed for %s to %s", profile.CurrentCity, profile.DesiredCity)
	}
	return synthesize(profile, contract.ProtocolCoordinate, results, missing, ""), nil
}

// route resolves the single worker whose specialty matches the user's
// priority and invokes only it.
func (t *Team) route(ctx context.Context, profile contract.Profile) (contract.Decision, error) {
	target, note := t.resolveRoute(profile)
	if target == nil {
		return contract.Decision{}, fmt.Errorf("%w: no worker for priority %q", contract.ErrRoutingAmbiguous, profile.PriorityFactor)
	}

	res, err := target.Run(ctx, contract.Task{Profile: profile, Priority: profile.Priority()})
	if err != nil {
		return contract.Decision{}, fmt.Errorf("routed worker %s: %w", target.Name(), err)
	}

	missing := missingBesides(res.Worker)
	return synthesize(profile, contract.ProtocolRoute, []contract.WorkerResult{res}, missing, note), nil
}

// resolveRoute maps the normalized priority to a worker. An unspecified
// priority falls back to cost when the profile carries financial signal,
// sentiment otherwise.
func (t *Team) resolveRoute(profile contract.Profile) (contract.Worker, string) {
	switch profile.Priority() {
	case contract.PriorityCost:
		return t.cost, ""
	case contract.PriorityCulture:
		return t.sentiment, ""
	case contract.PriorityExperience:
		return t.migration, ""
	default:
		if profile.HasFinancialSignal() {
			return t.cost, "no stated priority; routed to cost analysis on financial signal"
		}
		return t.sentiment, "no stated priority and no financial signal; routed to sentiment analysis"
	}
}

// cooperate fans the workers out in parallel. Each runs under its own
// deadline derived from the parent context; one timing out never cancels
// the others.
func (t *Team) cooperate(ctx context.Context, profile contract.Profile) (contract.Decision, error) {
	task := contract.Task{
		Profile:          profile,
		Priority:         profile.Priority(),
		PriorityWeighted: true,
	}

	type outcome struct {
		worker contract.WorkerName
		res    contract.WorkerResult
		err    error
	}

	workers := []contract.Worker{t.cost, t.sentiment, t.migration}
	outcomes := make(chan outcome, len(workers))
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w contract.Worker) {
			defer wg.Done()
			wctx, cancel := context.WithTimeout(ctx, t.cfg.WorkerTimeout)
			defer cancel()
			res, err := w.Run(wctx, task)
			if wctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				err = fmt.Errorf("%w: exceeded %s", contract.ErrWorkerTimeout, t.cfg.WorkerTimeout)
			}
			outcomes <- outcome{worker: w.Name(), res: res, err: err}
		}(w)
	}
	wg.Wait()
	close(outcomes)

	var (
		results []contract.WorkerResult
		missing []string
	)
	for o := range outcomes {
		switch {
		case o.err == nil:
			results = append(results, o.res)
		case isDeadline(o.err):
			log.Warn().Str("worker", string(o.worker)).Dur("timeout", t.cfg.WorkerTimeout).
				Msg("cooperating worker timed out")
			missing = append(missing, fmt.Sprintf("%s: timed out after %s", o.worker, t.cfg.WorkerTimeout))
		default:
			log.Warn().Err(o.err).Str("worker", string(o.worker)).Msg("cooperating worker failed")
			missing = append(missing, fmt.Sprintf("%s: analysis failed", o.worker))
		}
	}
	if len(results) == 0 {
		return contract.Decision{}, fmt.Errorf("all workers failed for %s to %s", profile.CurrentCity, profile.DesiredCity)
	}
	return synthesize(profile, contract.ProtocolCooperate, results, missing, ""), nil
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, contract.ErrWorkerTimeout)
}

func missingBesides(ran contract.WorkerName) []string {
	var missing []string
	for _, w := range []contract.WorkerName{contract.WorkerCost, contract.WorkerSentiment, contract.WorkerMigration} {
		if w != ran {
			missing = append(missing, fmt.Sprintf("%s: not consulted under routing", w))
		}
	}
	return missing
}
