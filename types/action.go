package types

import "fmt"

// Action is an operation applied to a resource set. Scan is
// read-only; the rest mutate.
type Action string

const (
	ActionScan   Action = "scan"
	ActionTag    Action = "tag"
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionDelete Action = "delete"
)

// IsDestructive reports whether the action removes resources.
func (a Action) IsDestructive() bool {
	return a == ActionDelete
}

// Validate rejects actions that cannot be applied to resources.
// Scan is handled before the apply path and is not accepted here.
func (a Action) Validate() error {
	switch a {
	case ActionTag, ActionStart, ActionStop, ActionDelete:
		return nil
	default:
		return fmt.Errorf("unknown action: %s", a)
	}
}

// RequiredState returns the lifecycle state a resource must be in for
// the action to apply, or empty when the action has no precondition.
func (a Action) RequiredState() string {
	switch a {
	case ActionStart:
		return StateStopped
	case ActionStop:
		return StateRunning
	default:
		return ""
	}
}
