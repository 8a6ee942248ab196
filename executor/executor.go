// Package executor applies mutating actions (tag, start, stop,
// delete) to a resolved resource set under the dry-run/confirm/force
// execution gates. Batch semantics are best effort: per-item failures
// are recorded and never abort the rest of the batch.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/nisops/lzops/telemetry"
	"github.com/nisops/lzops/types"
)

// Executor applies one action per invocation.
type Executor struct {
	mutator   Mutator
	confirmer Confirmer
	logger    *telemetry.Logger
}

// New builds an executor with real AWS clients from the zone's scoped
// credentials. confirmer may be nil when every run is forced or dry.
func New(cfg aws.Config, confirmer Confirmer, logger *telemetry.Logger) *Executor {
	return &Executor{
		mutator:   newAWSMutator(cfg),
		confirmer: confirmer,
		logger:    logger,
	}
}

// NewWithMutator wires an explicit mutator; used by tests.
func NewWithMutator(m Mutator, confirmer Confirmer, logger *telemetry.Logger) *Executor {
	return &Executor{mutator: m, confirmer: confirmer, logger: logger}
}

// Apply runs the action over the resource set. With dry-run it returns
// the would-be-affected set as simulated outcomes and makes no
// provider call. Without force it requires the injected confirmation
// capability before touching anything.
func (e *Executor) Apply(ctx context.Context, action types.Action, resources []types.Resource, opts Options) (*Result, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}
	if action == types.ActionTag && len(opts.Tags) == 0 {
		return nil, fmt.Errorf("tag action requires at least one tag")
	}

	result := &Result{Action: action, DryRun: opts.DryRun}

	if opts.DryRun {
		for _, r := range resources {
			result.add(e.simulate(action, r, opts))
		}
		e.logBatch(action, result)
		return result, nil
	}

	if !opts.Force {
		if e.confirmer == nil {
			return nil, ErrConfirmationRequired
		}
		description := fmt.Sprintf("%s %d resource(s)", action, len(resources))
		confirmed, err := e.confirmer.Confirm(ctx, description)
		if err != nil {
			return nil, fmt.Errorf("confirmation: %w", err)
		}
		if !confirmed {
			for _, r := range resources {
				result.add(e.record(action, Outcome{Resource: r, Status: StatusSkipped, Reason: "confirmation declined"}))
			}
			e.logBatch(action, result)
			return result, nil
		}
	}

	for _, r := range resources {
		result.add(e.applyOne(ctx, action, r, opts))
	}
	e.logBatch(action, result)
	return result, nil
}

// simulate computes the outcome a real run would reach, without any
// provider call.
func (e *Executor) simulate(action types.Action, r types.Resource, opts Options) Outcome {
	if ok, reason := eligible(action, r); !ok {
		return e.record(action, Outcome{Resource: r, Status: StatusSkipped, Reason: reason})
	}
	if action == types.ActionTag && tagsAlreadySet(r, opts.Tags) {
		return e.record(action, Outcome{Resource: r, Status: StatusAlreadySet, Reason: "tags already present"})
	}
	return e.record(action, Outcome{Resource: r, Status: StatusSimulated})
}

func (e *Executor) applyOne(ctx context.Context, action types.Action, r types.Resource, opts Options) Outcome {
	if ok, reason := eligible(action, r); !ok {
		return e.record(action, Outcome{Resource: r, Status: StatusSkipped, Reason: reason})
	}

	// Idempotence: tagging with values already in place is a no-op
	// success, recorded distinctly from a fresh application.
	if action == types.ActionTag && tagsAlreadySet(r, opts.Tags) {
		return e.record(action, Outcome{Resource: r, Status: StatusAlreadySet, Reason: "tags already present"})
	}

	err := e.withRetry(ctx, opts, func(callCtx context.Context) error {
		switch action {
		case types.ActionTag:
			return e.mutator.Tag(callCtx, r, opts.Tags)
		case types.ActionStart:
			return e.mutator.Start(callCtx, r)
		case types.ActionStop:
			return e.mutator.Stop(callCtx, r)
		case types.ActionDelete:
			return e.mutator.Delete(callCtx, r)
		default:
			return fmt.Errorf("unknown action: %s", action)
		}
	})
	if err != nil {
		return e.record(action, Outcome{Resource: r, Status: StatusFailed, Error: err.Error()})
	}
	return e.record(action, Outcome{Resource: r, Status: StatusApplied})
}

// withRetry retries transient provider failures up to the configured
// bound with linear backoff. Non-transient failures return
// immediately. Each attempt gets its own call timeout.
func (e *Executor) withRetry(ctx context.Context, opts Options, call func(context.Context) error) error {
	attempts := opts.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if opts.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, opts.CallTimeout)
		}
		err = call(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt < attempts {
			e.logger.Warn().
				Int("attempt", attempt).
				Err(err).
				Msg("transient failure, retrying")
			select {
			case <-time.After(time.Duration(attempt) * opts.RetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

// record emits the one log line per resource outcome. No other
// component writes these records.
func (e *Executor) record(action types.Action, o Outcome) Outcome {
	event := e.logger.Info()
	if o.Status == StatusFailed {
		event = e.logger.Error()
	}
	event.
		Str("action", string(action)).
		Str("arn", o.Resource.ARN).
		Str("service", o.Resource.Service).
		Str("status", string(o.Status))
	if o.Reason != "" {
		event.Str("reason", o.Reason)
	}
	if o.Error != "" {
		event.Str("error", o.Error)
	}
	event.Msg("action outcome")
	return o
}

func (e *Executor) logBatch(action types.Action, result *Result) {
	e.logger.Info().
		Str("action", string(action)).
		Bool("dry_run", result.DryRun).
		Int("applied", result.Applied).
		Int("already_set", result.AlreadySet).
		Int("skipped", result.Skipped).
		Int("simulated", result.Simulated).
		Int("failed", result.Failed).
		Msg("action batch complete")
}

// eligible applies the state gate. Ineligible resources are skipped,
// not failed, and never reach the provider.
func eligible(action types.Action, r types.Resource) (bool, string) {
	required := action.RequiredState()
	if required == "" || r.State == required {
		return true, ""
	}
	return false, fmt.Sprintf("state %q, %s requires %q", r.State, action, required)
}

func tagsAlreadySet(r types.Resource, tags map[string]string) bool {
	if len(tags) == 0 {
		return false
	}
	for k, v := range tags {
		if !r.HasTag(k, v) {
			return false
		}
	}
	return true
}
