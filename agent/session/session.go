package session

import (
	"time"

	"github.com/kittipatv/should-i-move/agent/contract"
)

// Status is the lifecycle state of one analysis session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is one analysis session. Everything observable through the API
// lives here; the Decision is set exactly once, on completion.
type Record struct {
	ID                  string             `json:"analysis_id"`
	Status              Status             `json:"status"`
	Protocol            contract.Protocol  `json:"protocol"`
	Profile             contract.Profile   `json:"profile"`
	Decision            *contract.Decision `json:"decision,omitempty"`
	ReportPath          string             `json:"report_path,omitempty"`
	Error               string             `json:"error,omitempty"`
	EstimatedCompletion string             `json:"estimated_completion_time"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// Repository stores analysis sessions. Transitions are atomic with respect
// to concurrent readers, and terminal records never change again.
type Repository interface {
	Create(rec *Record) error
	Get(id string) (*Record, error)
	// MarkProcessing moves pending to processing.
	MarkProcessing(id string) error
	// Complete moves processing to completed and attaches the decision.
	Complete(id string, decision *contract.Decision, reportPath string) error
	// Fail moves pending or processing to failed with a reason.
	Fail(id string, reason string) error
	Delete(id string) error
}
