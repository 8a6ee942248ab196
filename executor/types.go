package executor

import (
	"context"
	"errors"
	"time"

	"github.com/nisops/lzops/types"
)

// ErrConfirmationRequired is returned when a mutating run has neither
// force nor a confirmation capability. It is surfaced to the caller,
// never auto-resolved.
var ErrConfirmationRequired = errors.New("confirmation required: run with force or supply a confirmer")

// Confirmer is the confirmation capability the caller injects. The
// executor never performs terminal I/O itself.
type Confirmer interface {
	Confirm(ctx context.Context, description string) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, description string) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, description string) (bool, error) {
	return f(ctx, description)
}

// Mutator is the provider boundary for mutating calls.
type Mutator interface {
	Tag(ctx context.Context, r types.Resource, tags map[string]string) error
	Start(ctx context.Context, r types.Resource) error
	Stop(ctx context.Context, r types.Resource) error
	Delete(ctx context.Context, r types.Resource) error
}

// Options configure one Apply invocation.
type Options struct {
	DryRun        bool              `json:"dry_run"`
	Force         bool              `json:"force"`
	Tags          map[string]string `json:"tags,omitempty"`
	RetryAttempts int               `json:"retry_attempts"`
	RetryBackoff  time.Duration     `json:"retry_backoff"`
	CallTimeout   time.Duration     `json:"call_timeout"`
}

// Status is the terminal state of one resource outcome.
type Status string

const (
	StatusApplied    Status = "applied"
	StatusAlreadySet Status = "already_set"
	StatusSkipped    Status = "skipped"
	StatusSimulated  Status = "simulated"
	StatusFailed     Status = "failed"
)

// Outcome records the result of the action on one resource.
type Outcome struct {
	Resource types.Resource `json:"resource"`
	Status   Status         `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Result aggregates a batch. Skips are counted separately from
// failures; ineligible state is not an error.
type Result struct {
	Action     types.Action `json:"action"`
	DryRun     bool         `json:"dry_run"`
	Applied    int          `json:"applied"`
	AlreadySet int          `json:"already_set"`
	Skipped    int          `json:"skipped"`
	Simulated  int          `json:"simulated"`
	Failed     int          `json:"failed"`
	Outcomes   []Outcome    `json:"outcomes"`
}

func (r *Result) add(o Outcome) {
	switch o.Status {
	case StatusApplied:
		r.Applied++
	case StatusAlreadySet:
		r.AlreadySet++
	case StatusSkipped:
		r.Skipped++
	case StatusSimulated:
		r.Simulated++
	case StatusFailed:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}
