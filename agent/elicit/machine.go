package elicit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kittipatv/should-i-move/agent/contract"
	"github.com/kittipatv/should-i-move/agent/llm"
	"github.com/kittipatv/should-i-move/agent/prompt"
	"github.com/kittipatv/should-i-move/agent/schema"
)

// Unknown is the sentinel recorded for profile fields the conversation
// never resolved.
const Unknown = "Unknown"

// OpeningQuestion invites the free-form narrative that seeds the
// conversation before the first generated question.
const OpeningQuestion = "Tell me about the move you're considering. Where do you live now, where are you thinking of going, and what's driving the idea?"

// State is the elicitation phase.
type State string

const (
	StateGathering  State = "gathering"
	StateExtracting State = "extracting"
	StateComplete   State = "complete"
	StateExhausted  State = "exhausted"
)

const (
	defaultMaxTurns  = 8
	defaultMinRounds = 3
)

// Config bounds the conversation.
type Config struct {
	// MaxTurns caps the number of question/answer rounds before the
	// machine gives up and degrades.
	MaxTurns int
	// MinRounds is the number of rounds that must elapse before the
	// machine is allowed to declare the profile complete.
	MinRounds int
	// RequirePriority also demands the user's single most important
	// factor before completing.
	RequirePriority bool
}

func (c Config) withDefaults() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = defaultMaxTurns
	}
	if c.MinRounds <= 0 {
		c.MinRounds = defaultMinRounds
	}
	return c
}

// Machine drives the bounded elicitation conversation and produces a
// validated profile. One Machine serves one conversation.
type Machine struct {
	capability contract.Capability
	asker      contract.Asker
	prompts    prompt.PromptSet
	predicate  PredicateConfig
	cfg        Config
}

// NewMachine builds a Machine over the given reasoning capability and
// answer source.
func NewMachine(capability contract.Capability, asker contract.Asker, cfg Config) *Machine {
	return &Machine{
		capability: capability,
		asker:      asker,
		prompts:    prompt.LoadPromptSet(),
		predicate:  DefaultPredicate(),
		cfg:        cfg.withDefaults(),
	}
}

// Result is the outcome of one conversation. State is Complete when the
// profile satisfied the coverage predicate, Exhausted when the turn bound
// was reached first; exhausted profiles carry Unknown sentinels for
// unresolved cities.
type Result struct {
	Profile    contract.Profile
	Transcript []contract.Turn
	State      State
}

// Run executes the conversation until the profile is complete or the turn
// bound is exhausted. A non-empty opening is recorded as the answer to
// OpeningQuestion, so the first generated question reacts to the user's
// own narrative. Failed extraction attempts are contained; the
// conversation keeps gathering. Exhaustion returns the degraded result
// together with ErrElicitationExhausted; any other error means the answer
// source or the context failed.
func (m *Machine) Run(ctx context.Context, opening string) (Result, error) {
	var (
		transcript []contract.Turn
		profile    contract.Profile
		raw        []byte
	)
	if o := strings.TrimSpace(opening); o != "" {
		transcript = append(transcript, contract.Turn{Question: OpeningQuestion, Answer: o})
	}

	for turn := 0; turn < m.cfg.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return Result{Transcript: transcript, State: StateGathering}, err
		}

		cov := m.predicate.Assess(transcript, profile)
		question := m.nextQuestion(ctx, transcript, cov)

		answer, err := m.asker.Ask(ctx, question)
		if err != nil {
			return Result{Transcript: transcript, State: StateGathering}, fmt.Errorf("ask user: %w", err)
		}
		transcript = append(transcript, contract.Turn{Question: question, Answer: answer})

		if turn+1 < m.cfg.MinRounds {
			continue
		}

		r, p, err := m.extract(ctx, transcript)
		if err != nil {
			log.Warn().Err(err).Int("turn", turn+1).Msg("profile extraction attempt failed")
			continue
		}
		profile, raw = p, r

		cov = m.predicate.Assess(transcript, profile)
		if !cov.Complete(m.cfg.RequirePriority) {
			continue
		}
		var validated contract.Profile
		if err := schema.Validate(schema.UserProfile, raw, &validated); err != nil {
			log.Warn().Err(err).Msg("extracted profile failed contract validation")
			continue
		}
		return Result{Profile: validated, Transcript: transcript, State: StateComplete}, nil
	}

	log.Warn().Int("max_turns", m.cfg.MaxTurns).Msg("elicitation exhausted, degrading profile")
	if !SpecificPlace(profile.CurrentCity) {
		profile.CurrentCity = Unknown
	}
	if !SpecificPlace(profile.DesiredCity) {
		profile.DesiredCity = Unknown
	}
	return Result{Profile: profile, Transcript: transcript, State: StateExhausted},
		fmt.Errorf("%w: no complete profile after %d turns", contract.ErrElicitationExhausted, m.cfg.MaxTurns)
}

func (m *Machine) nextQuestion(ctx context.Context, transcript []contract.Turn, cov Coverage) string {
	missing := cov.Missing(m.cfg.RequirePriority)
	user := renderTranscript(transcript)
	if len(missing) > 0 {
		user += "\nStill missing: " + strings.Join(missing, "; ") + "\n"
	}
	user += "\nAsk the next question."

	q, err := m.capability.Complete(ctx, m.prompts.Question, user)
	if err != nil || strings.TrimSpace(q) == "" {
		log.Warn().Err(err).Msg("question generation failed, using fallback")
		return fallbackQuestion(missing)
	}
	return strings.TrimSpace(q)
}

func fallbackQuestion(missing []string) string {
	if len(missing) == 0 {
		return "Is there anything else about this move you want me to factor in?"
	}
	return "Could you tell me about " + missing[0] + "?"
}

// extract asks the model for a structured profile from the transcript. The
// parse is lenient; strict contract validation happens at the completion
// gate so partial mid-conversation profiles are usable as coverage signal.
func (m *Machine) extract(ctx context.Context, transcript []contract.Turn) ([]byte, contract.Profile, error) {
	reply, err := m.capability.Complete(ctx, m.prompts.Extract, renderTranscript(transcript))
	if err != nil {
		return nil, contract.Profile{}, fmt.Errorf("%w: %s", contract.ErrModelInvoke, err)
	}
	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		return nil, contract.Profile{}, err
	}
	var p contract.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, contract.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	p.CurrentCity = strings.TrimSpace(p.CurrentCity)
	p.DesiredCity = strings.TrimSpace(p.DesiredCity)
	return raw, p, nil
}

func renderTranscript(transcript []contract.Turn) string {
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, t := range transcript {
		b.WriteString("Q: ")
		b.WriteString(t.Question)
		b.WriteString("\nA: ")
		b.WriteString(t.Answer)
		b.WriteByte('\n')
	}
	return b.String()
}
