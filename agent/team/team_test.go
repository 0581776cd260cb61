package team

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kittipatv/should-i-move/agent/contract"
)

type fakeWorker struct {
	name   contract.WorkerName
	result contract.WorkerResult
	err    error
	delay  time.Duration

	mu    sync.Mutex
	calls int
	tasks []contract.Task
}

func (f *fakeWorker) Name() contract.WorkerName { return f.name }

func (f *fakeWorker) Run(ctx context.Context, task contract.Task) (contract.WorkerResult, error) {
	f.mu.Lock()
	f.calls++
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return contract.WorkerResult{}, fmt.Errorf("%w: %v", contract.ErrModelInvoke, ctx.Err())
		}
	}
	if f.err != nil {
		return contract.WorkerResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeWorker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func costResult() contract.WorkerResult {
	return contract.WorkerResult{
		Worker:         contract.WorkerCost,
		Summary:        "Austin is about 3% more expensive than Dallas",
		Recommendation: "The move is affordable at the stated income",
		Supporting:     []string{"Housing drives most of the difference"},
		Cost: &contract.CostAnalysis{
			OverallCostDifference:    "about 3% higher",
			HousingComparison:        "rent about 5% higher",
			FoodComparison:           "comparable",
			TransportationComparison: "comparable",
			TaxesComparison:          "identical state treatment",
			KeyInsights:              []string{"Housing drives most of the difference"},
			Recommendation:           "The move is affordable at the stated income",
		},
	}
}

func sentimentResult() contract.WorkerResult {
	return contract.WorkerResult{
		Worker:         contract.WorkerSentiment,
		Summary:        "Residents speak warmly of the city",
		Recommendation: "Good cultural fit for the stated preferences",
		Supporting:     []string{"Strong live music scene"},
		Concerns:       []string{"Summers are brutal"},
		Sentiment: &contract.SentimentAnalysis{
			OverallSentiment:         "largely positive",
			VibeDescription:          "laid back, music forward",
			LivabilityScore:          "8/10",
			AlignmentWithPreferences: "matches the stated preference for live music",
			NotablePros:              []string{"Strong live music scene"},
			NotableCons:              []string{"Summers are brutal"},
			Recommendation:           "Good cultural fit for the stated preferences",
		},
	}
}

func migrationResult() contract.WorkerResult {
	return contract.WorkerResult{
		Worker:         contract.WorkerMigration,
		Summary:        "Most movers report a smooth transition",
		Recommendation: "People who made this move rarely regret it",
		Supporting:     []string{"Shorter commutes after the move"},
		Concerns:       []string{"Apartment hunting is competitive"},
		Migration: &contract.MigrationInsights{
			NumberOfSources:        6,
			RedditInsightsIncluded: true,
			RedditorPerspectives:   "mostly positive firsthand accounts",
			CommonChallenges:       []string{"Apartment hunting is competitive"},
			CommonPositiveOutcomes: []string{"Shorter commutes after the move"},
			Summary:                "Most movers report a smooth transition",
			Recommendation:         "People who made this move rarely regret it",
		},
	}
}

var analysisProfile = contract.Profile{
	CurrentCity:     "Dallas",
	DesiredCity:     "Austin",
	AnnualIncome:    85000,
	MonthlyExpenses: 3200,
	CityPreferences: []string{"live music"},
}

func newTestTeam(cost, sentiment, migration *fakeWorker, cfg Config) *Team {
	return New(cost, sentiment, migration, cfg)
}

func TestAnalyzeRejectsIncompleteProfile(t *testing.T) {
	t.Parallel()

	team := newTestTeam(
		&fakeWorker{name: contract.WorkerCost},
		&fakeWorker{name: contract.WorkerSentiment},
		&fakeWorker{name: contract.WorkerMigration},
		Config{},
	)

	for _, p := range []contract.Profile{
		{CurrentCity: "Dallas"},
		{CurrentCity: "Dallas", DesiredCity: "Florida"},
		{CurrentCity: "Unknown", DesiredCity: "Austin"},
	} {
		_, err := team.Analyze(context.Background(), p, contract.ProtocolCoordinate)
		if !errors.Is(err, contract.ErrProfileIncomplete) {
			t.Fatalf("profile %+v: expected ErrProfileIncomplete, got %v", p, err)
		}
	}
}

func TestCoordinateRunsAllWorkersInOrderWithContext(t *testing.T) {
	t.Parallel()

	cost := &fakeWorker{name: contract.WorkerCost, result: costResult()}
	sentiment := &fakeWorker{name: contract.WorkerSentiment, result: sentimentResult()}
	migration := &fakeWorker{name: contract.WorkerMigration, result: migrationResult()}
	team := newTestTeam(cost, sentiment, migration, Config{})

	d, err := team.Analyze(context.Background(), analysisProfile, contract.ProtocolCoordinate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, w := range []*fakeWorker{cost, sentiment, migration} {
		if w.callCount() != 1 {
			t.Fatalf("worker %s called %d times, want 1", w.name, w.callCount())
		}
	}
	if n := len(sentiment.tasks[0].Context); n != 1 {
		t.Fatalf("sentiment should see 1 prior result, saw %d", n)
	}
	if n := len(migration.tasks[0].Context); n != 2 {
		t.Fatalf("migration should see 2 prior results, saw %d", n)
	}
	if d.CostAnalysisReport == "" || d.SentimentAnalysisReport == "" || d.MigrationAnalysisReport == "" {
		t.Fatal("expected all three analysis reports to be populated")
	}
	if len(d.MissingPerspectives) != 0 {
		t.Fatalf("expected no missing perspectives, got %v", d.MissingPerspectives)
	}
	if d.ConfidenceLevel != "High" {
		t.Fatalf("expected High confidence, got %s", d.ConfidenceLevel)
	}
}

func TestCoordinateContainsSingleWorkerFailure(t *testing.T) {
	t.Parallel()

	cost := &fakeWorker{name: contract.WorkerCost, err: errors.New("boom")}
	sentiment := &fakeWorker{name: contract.WorkerSentiment, result: sentimentResult()}
	migration := &fakeWorker{name: contract.WorkerMigration, result: migrationResult()}
	team := newTestTeam(cost, sentiment, migration, Config{})

	d, err := team.Analyze(context.Background(), analysisProfile, contract.ProtocolCoordinate)
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if len(d.MissingPerspectives) != 1 || !strings.Contains(d.MissingPerspectives[0], "cost_analyst") {
		t.Fatalf("expected the cost perspective reported missing, got %v", d.MissingPerspectives)
	}
	if !strings.Contains(d.FinancialImpactSummary, "No cost perspective") {
		t.Fatalf("expected an explicit financial gap, got %q", d.FinancialImpactSummary)
	}
}

func TestRouteCulturePriorityInvokesOnlySentiment(t *testing.T) {
	t.Parallel()

	cost := &fakeWorker{name: contract.WorkerCost, result: costResult()}
	sentiment := &fakeWorker{name: contract.WorkerSentiment, result: sentimentResult()}
	migration := &fakeWorker{name: contract.WorkerMigration, result: migrationResult()}
	team := newTestTeam(cost, sentiment, migration, Config{})

	profile := analysisProfile
	profile.PriorityFactor = "culture"
	d, err := team.Analyze(context.Background(), profile, contract.ProtocolRoute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sentiment.callCount() != 1 {
		t.Fatalf("sentiment called %d times, want 1", sentiment.callCount())
	}
	if cost.callCount() != 0 || migration.callCount() != 0 {
		t.Fatalf("other workers invoked: cost=%d migration=%d", cost.callCount(), migration.callCount())
	}
	if len(d.MissingPerspectives) != 2 {
		t.Fatalf("expected 2 not-consulted perspectives, got %v", d.MissingPerspectives)
	}
}

func TestRoutePriorityTargets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		priority string
		want     contract.WorkerName
	}{
		{"cost of living", contract.WorkerCost},
		{"the culture and lifestyle", contract.WorkerSentiment},
		{"hearing real experiences", contract.WorkerMigration},
	}
	for _, tc := range cases {
		cost := &fakeWorker{name: contract.WorkerCost, result: costResult()}
		sentiment := &fakeWorker{name: contract.WorkerSentiment, result: sentimentResult()}
		migration := &fakeWorker{name: contract.WorkerMigration, result: migrationResult()}
		team := newTestTeam(cost, sentiment, migration, Config{})

		profile := analysisProfile
		profile.PriorityFactor = tc.priority
		if _, err := team.Analyze(context.Background(), profile, contract.ProtocolRoute); err != nil {
			t.Fatalf("priority %q: unexpected error: %v", tc.priority, err)
		}

		total := cost.callCount() + sentiment.callCount() + migration.callCount()
		if total != 1 {
			t.Fatalf("priority %q: %d workers invoked, want exactly 1", tc.priority, total)
		}
		byName := map[contract.WorkerName]*fakeWorker{
			contract.WorkerCost:      cost,
			contract.WorkerSentiment: sentiment,
			contract.WorkerMigration: migration,
		}
		if byName[tc.want].callCount() != 1 {
			t.Fatalf("priority %q: expected %s to run", tc.priority, tc.want)
		}
	}
}

func TestRouteUnspecifiedTieBreak(t *testing.T) {
	t.Parallel()

	// Financial signal present: cost wins the tie-break.
	cost := &fakeWorker{name: contract.WorkerCost, result: costResult()}
	sentiment := &fakeWorker{name: contract.WorkerSentiment, result: sentimentResult()}
	migration := &fakeWorker{name: contract.WorkerMigration, result: migrationResult()}
	team := newTestTeam(cost, sentiment, migration, Config{})

	if _, err := team.Analyze(context.Background(), analysisProfile, contract.ProtocolRoute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cost.callCount() != 1 || sentiment.callCount() != 0 {
		t.Fatalf("expected cost tie-break, got cost=%d sentiment=%d", cost.callCount(), sentiment.callCount())
	}

	// No financial signal at all: sentiment wins.
	cost2 := &fakeWorker{name: contract.WorkerCost, result: costResult()}
	sentiment2 := &fakeWorker{name: contract.WorkerSentiment, result: sentimentResult()}
	migration2 := &fakeWorker{name: contract.WorkerMigration, result: migrationResult()}
	team2 := newTestTeam(cost2, sentiment2, migration2, Config{})

	bare := contract.Profile{CurrentCity: "Dallas", DesiredCity: "Austin", CityPreferences: []string{"live music"}}
	if _, err := team2.Analyze(context.Background(), bare, contract.ProtocolRoute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sentiment2.callCount() != 1 || cost2.callCount() != 0 {
		t.Fatalf("expected sentiment tie-break, got cost=%d sentiment=%d", cost2.callCount(), sentiment2.callCount())
	}
}

func TestCooperateRunsAllInParallelWithWeighting(t *testing.T) {
	t.Parallel()

	cost := &fakeWorker{name: contract.WorkerCost, result: costResult()}
	sentiment := &fakeWorker{name: contract.WorkerSentiment, result: sentimentResult()}
	migration := &fakeWorker{name: contract.WorkerMigration, result: migrationResult()}
	team := newTestTeam(cost, sentiment, migration, Config{})

	profile := analysisProfile
	profile.PriorityFactor = "cost of living"
	d, err := team.Analyze(context.Background(), profile, contract.ProtocolCooperate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, w := range []*fakeWorker{cost, sentiment, migration} {
		if w.callCount() != 1 {
			t.Fatalf("worker %s called %d times, want 1", w.name, w.callCount())
		}
		if !w.tasks[0].PriorityWeighted {
			t.Fatalf("worker %s task not priority weighted", w.name)
		}
		if w.tasks[0].Priority != contract.PriorityCost {
			t.Fatalf("worker %s got priority %q", w.name, w.tasks[0].Priority)
		}
	}
	if d.Debate == nil {
		t.Fatal("expected a debate summary under cooperation")
	}
	if len(d.Debate.KeyPointsOfAgreement) == 0 {
		t.Fatal("expected agreement points from aligned recommendations")
	}
}

func TestCooperateTimeoutYieldsRemainingPerspectives(t *testing.T) {
	t.Parallel()

	cost := &fakeWorker{name: contract.WorkerCost, result: costResult()}
	sentiment := &fakeWorker{name: contract.WorkerSentiment, result: sentimentResult()}
	migration := &fakeWorker{name: contract.WorkerMigration, result: migrationResult(), delay: 500 * time.Millisecond}
	team := newTestTeam(cost, sentiment, migration, Config{WorkerTimeout: 50 * time.Millisecond})

	d, err := team.Analyze(context.Background(), analysisProfile, contract.ProtocolCooperate)
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if d.CostAnalysisReport == "" || d.SentimentAnalysisReport == "" {
		t.Fatal("expected the two surviving perspectives in the decision")
	}
	if d.MigrationAnalysisReport != "" {
		t.Fatal("timed-out perspective should not appear in the decision")
	}
	if len(d.MissingPerspectives) != 1 || !strings.Contains(d.MissingPerspectives[0], "migration_researcher") {
		t.Fatalf("expected the timeout reported as a missing perspective, got %v", d.MissingPerspectives)
	}
	if d.ConfidenceLevel != "Medium" {
		t.Fatalf("expected Medium confidence with 2 perspectives, got %s", d.ConfidenceLevel)
	}
}

func TestSynthesizeCommutative(t *testing.T) {
	t.Parallel()

	results := []contract.WorkerResult{costResult(), sentimentResult(), migrationResult()}
	missing := []string{"example: unavailable"}

	base := synthesize(analysisProfile, contract.ProtocolCooperate, results, append([]string(nil), missing...), "")
	permutations := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range permutations {
		permuted := []contract.WorkerResult{results[p[0]], results[p[1]], results[p[2]]}
		got := synthesize(analysisProfile, contract.ProtocolCooperate, permuted, append([]string(nil), missing...), "")
		if !reflect.DeepEqual(base, got) {
			t.Fatalf("synthesis not invariant under permutation %v", p)
		}
	}
}

func TestSynthesizeDisagreementSplitsDebate(t *testing.T) {
	t.Parallel()

	dissent := sentimentResult()
	dissent.Recommendation = "I would not recommend this move given the culture fit"
	results := []contract.WorkerResult{costResult(), dissent, migrationResult()}

	d := synthesize(analysisProfile, contract.ProtocolCooperate, results, nil, "")
	if d.Debate == nil {
		t.Fatal("expected a debate summary")
	}
	if len(d.Debate.KeyPointsOfAgreement) != 2 {
		t.Fatalf("expected 2 agreeing perspectives, got %v", d.Debate.KeyPointsOfAgreement)
	}
	if len(d.Debate.KeyPointsOfDisagreement) != 1 {
		t.Fatalf("expected 1 dissenting perspective, got %v", d.Debate.KeyPointsOfDisagreement)
	}
	if !strings.Contains(d.Recommendation, "2 of 3") {
		t.Fatalf("expected a 2 of 3 split in the recommendation, got %q", d.Recommendation)
	}
}

func TestAnalyzeAllWorkersFailedIsFatal(t *testing.T) {
	t.Parallel()

	fail := errors.New("downstream offline")
	team := newTestTeam(
		&fakeWorker{name: contract.WorkerCost, err: fail},
		&fakeWorker{name: contract.WorkerSentiment, err: fail},
		&fakeWorker{name: contract.WorkerMigration, err: fail},
		Config{},
	)

	if _, err := team.Analyze(context.Background(), analysisProfile, contract.ProtocolCoordinate); err == nil {
		t.Fatal("expected an error when every worker fails")
	}
	if _, err := team.Analyze(context.Background(), analysisProfile, contract.ProtocolCooperate); err == nil {
		t.Fatal("expected an error when every worker fails")
	}
}
