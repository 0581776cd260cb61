package contract

import "context"

// Capability is the uniform call contract through which all reasoning
// happens. Implementations are opaque external services; callers never
// assume anything about how text is produced.
type Capability interface {
	Complete(ctx context.Context, system string, user string) (string, error)
}

// Worker is a role-scoped wrapper around a Capability, bound to exactly one
// output schema and zero or more enrichment tools. Workers never mutate
// shared state outside their returned WorkerResult.
type Worker interface {
	Name() WorkerName
	Run(ctx context.Context, task Task) (WorkerResult, error)
}

// Task is the immutable input handed to a worker: the profile snapshot plus
// whatever context the protocol accumulated before this worker ran.
type Task struct {
	Profile  Profile
	Context  []WorkerResult
	Priority PriorityFactor
	// PriorityWeighted instructs the worker to weight its analysis by the
	// stated priority rather than its own specialty (cooperate protocol).
	PriorityWeighted bool
}

// Tool is a deterministic external lookup a worker may use to enrich its
// prompt with factual context. A failing tool is recoverable; the worker
// proceeds with a degraded-input note.
type Tool interface {
	Name() string
	Enrich(ctx context.Context, profile Profile) (string, error)
}

// Asker supplies the next user answer during elicitation. The terminal flow
// blocks on stdin; tests script it.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}
