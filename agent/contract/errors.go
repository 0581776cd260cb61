package contract

import "errors"

var (
	ErrModelInvoke          = errors.New("model invoke failed")
	ErrContractViolation    = errors.New("output violates contract schema")
	ErrToolUnavailable      = errors.New("enrichment tool unavailable")
	ErrWorkerTimeout        = errors.New("worker exceeded deadline")
	ErrRoutingAmbiguous     = errors.New("no priority factor resolvable")
	ErrElicitationExhausted = errors.New("elicitation turn bound reached")
	ErrProfileIncomplete    = errors.New("profile is not complete")
	ErrSessionNotFound      = errors.New("analysis session not found")
	ErrValidation           = errors.New("validation failed")
)
