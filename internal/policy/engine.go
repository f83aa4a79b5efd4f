// Package policy validates search filter parameters with OPA.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/rego"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from rego source. The module must define
// data.search_policy.deny as a set of messages.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.search_policy.deny"),
		rego.Module("search_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the sorted deny messages for input.
func (e *Engine) Evaluate(ctx context.Context, input any) ([]string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}

	set, ok := results[0].Expressions[0].Value.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}
	reasons := make([]string, 0, len(set))
	for _, v := range set {
		reasons = append(reasons, fmt.Sprint(v))
	}
	sort.Strings(reasons)
	return reasons, nil
}

// ValidateQuery checks q against the policy and returns a domain.ErrValidation
// listing every violation.
func (e *Engine) ValidateQuery(ctx context.Context, q domain.SearchQuery) error {
	input, err := toInput(q)
	if err != nil {
		return err
	}
	reasons, err := e.Evaluate(ctx, input)
	if err != nil {
		return err
	}
	if len(reasons) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(reasons, "; "))
	}
	return nil
}

func toInput(q domain.SearchQuery) (map[string]any, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to decode query: %w", err)
	}
	return input, nil
}

// DefaultPolicy is the filter policy used by the service.
const DefaultPolicy = `
package search_policy

time_modes = {"", "yesterday", "today", "last_n_days", "range"}

max_days = 365

deny[msg] {
	not time_modes[input.time]
	msg := sprintf("time %q is not a known mode", [input.time])
}

deny[msg] {
	input.time == "last_n_days"
	input.n > max_days
	msg := sprintf("n must not exceed %d days", [max_days])
}

deny[msg] {
	input.n < 0
	msg := "n must not be negative"
}

deny[msg] {
	input.time == "range"
	not input.range
	msg := "range mode requires a range"
}

deny[msg] {
	input.range.start > input.range.end
	msg := "range start must not be after range end"
}

deny[msg] {
	input.range.start < 0
	msg := "range start must not be negative"
}

deny[msg] {
	count(input.query) > 200
	msg := "query must be at most 200 characters"
}

deny[msg] {
	count(input.tags) > 50
	msg := "at most 50 tags may be requested"
}
`
