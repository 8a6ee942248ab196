package orchestrator

import (
	"time"

	"github.com/nisops/lzops/executor"
	"github.com/nisops/lzops/match"
	"github.com/nisops/lzops/scanner"
	"github.com/nisops/lzops/types"
)

// ZoneStatus tracks one zone through its lifecycle within a run.
type ZoneStatus string

const (
	ZonePending    ZoneStatus = "pending"
	ZoneInProgress ZoneStatus = "in_progress"
	ZoneCompleted  ZoneStatus = "completed"
	ZoneFailed     ZoneStatus = "failed"
)

// Request describes one run: which zones, which services, what to do
// with the matching resources.
type Request struct {
	Zones           []types.Zone     `json:"zones"`
	Services        []string         `json:"services"`
	Policy          match.Policy     `json:"policy,omitempty"`
	ReplaceDefaults bool             `json:"replace_defaults"`
	Action          types.Action     `json:"action"`
	Options         executor.Options `json:"options"`
}

// ZoneResult is the outcome of one zone within a run. A failed zone
// carries Error; a completed zone carries its matched resources and,
// for mutating actions, the action result.
type ZoneResult struct {
	Zone      types.Zone             `json:"zone"`
	Status    ZoneStatus             `json:"status"`
	Resources []types.Resource       `json:"resources,omitempty"`
	Action    *executor.Result       `json:"action,omitempty"`
	ScanErrs  []scanner.ServiceError `json:"-"`
	Error     string                 `json:"error,omitempty"`
	Elapsed   time.Duration          `json:"elapsed"`
}

// RunResult aggregates a whole run. A run always completes: zone
// failures are recorded here, never propagated as run failure. The
// action counters roll up every zone's outcome counts so callers can
// distinguish a clean run from one with hard per-resource failures.
type RunResult struct {
	CorrelationID    string        `json:"correlation_id"`
	Action           types.Action  `json:"action"`
	DryRun           bool          `json:"dry_run"`
	ZonesProcessed   int           `json:"zones_processed"`
	ZonesFailed      int           `json:"zones_failed"`
	ResourcesFound   int           `json:"resources_found"`
	ActionsSucceeded int           `json:"actions_succeeded"`
	ActionsFailed    int           `json:"actions_failed"`
	PerZone          []ZoneResult  `json:"per_zone"`
	Errors           []string      `json:"errors,omitempty"`
	Elapsed          time.Duration `json:"elapsed"`
}
