// Package schema is the typed-contract boundary between free-form model
// output and the orchestrator. Each worker result and the final decision has
// a declarative JSON Schema document embedded here; Validate is the only way
// raw model output becomes a typed value.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kittipatv/should-i-move/agent/contract"
)

// Name identifies one of the embedded schema documents.
type Name string

const (
	CostAnalysis      Name = "cost_analysis"
	SentimentAnalysis Name = "sentiment_analysis"
	MigrationInsights Name = "migration_insights"
	UserProfile       Name = "profile"
	Decision          Name = "decision"
)

var (
	//go:embed documents/cost_analysis.json
	costAnalysisRaw string

	//go:embed documents/sentiment_analysis.json
	sentimentAnalysisRaw string

	//go:embed documents/migration_insights.json
	migrationInsightsRaw string

	//go:embed documents/profile.json
	profileRaw string

	//go:embed documents/decision.json
	decisionRaw string
)

var documents = map[Name]string{
	CostAnalysis:      costAnalysisRaw,
	SentimentAnalysis: sentimentAnalysisRaw,
	MigrationInsights: migrationInsightsRaw,
	UserProfile:       profileRaw,
	Decision:          decisionRaw,
}

// Violation describes one failed constraint.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ContractViolation enumerates every violated constraint, not just the
// first, so a retry can target corrections. It wraps
// contract.ErrContractViolation for errors.Is checks.
type ContractViolation struct {
	Schema     Name
	Violations []Violation
}

func (e *ContractViolation) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return fmt.Sprintf("%s: schema=%s [%s]", contract.ErrContractViolation, e.Schema, strings.Join(parts, "; "))
}

func (e *ContractViolation) Unwrap() error {
	return contract.ErrContractViolation
}

// Fields returns the violated field names, sorted and de-duplicated.
func (e *ContractViolation) Fields() []string {
	seen := make(map[string]struct{}, len(e.Violations))
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if _, ok := seen[v.Field]; ok {
			continue
		}
		seen[v.Field] = struct{}{}
		out = append(out, v.Field)
	}
	sort.Strings(out)
	return out
}

// Guidance renders the violations as correction instructions for a retry
// prompt.
func (e *ContractViolation) Guidance() string {
	var b strings.Builder
	b.WriteString("Your previous response did not satisfy the required output schema. Fix the following and respond again with the full JSON object:\n")
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "- %s: %s\n", v.Field, v.Message)
	}
	return b.String()
}

// Validate checks raw JSON against the named schema and unmarshals it into
// out on success. A schema failure returns a *ContractViolation; anything
// else (unknown schema, malformed JSON) wraps contract.ErrValidation.
func Validate(name Name, raw []byte, out any) error {
	doc, ok := documents[name]
	if !ok {
		return fmt.Errorf("%w: unknown schema %q", contract.ErrValidation, name)
	}

	var candidate any
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return &ContractViolation{
			Schema:     name,
			Violations: []Violation{{Field: "(root)", Message: fmt.Sprintf("response is not valid JSON: %v", err)}},
		}
	}

	schemaLoader := gojsonschema.NewStringLoader(doc)
	documentLoader := gojsonschema.NewGoLoader(candidate)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("%w: schema validate: %v", contract.ErrValidation, err)
	}

	if !result.Valid() {
		violations := make([]Violation, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, Violation{
				Field:   violatedField(desc),
				Message: desc.Description(),
			})
		}
		return &ContractViolation{Schema: name, Violations: violations}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: unmarshal validated payload: %v", contract.ErrValidation, err)
		}
	}
	return nil
}

// violatedField names the offending field. Required-property failures report
// the missing property itself rather than its parent object.
func violatedField(desc gojsonschema.ResultError) string {
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok && prop != "" {
			parent := desc.Field()
			if parent == "" || parent == "(root)" {
				return prop
			}
			return parent + "." + prop
		}
	}
	return desc.Field()
}

// Document returns the raw schema JSON, e.g. for inclusion in a prompt.
func Document(name Name) string {
	return documents[name]
}

// ForWorker maps a worker to its declared output schema.
func ForWorker(w contract.WorkerName) Name {
	switch w {
	case contract.WorkerCost:
		return CostAnalysis
	case contract.WorkerSentiment:
		return SentimentAnalysis
	case contract.WorkerMigration:
		return MigrationInsights
	default:
		return ""
	}
}
