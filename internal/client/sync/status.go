package sync

import "fmt"

// CycleState is the orchestrator's internal state machine position.
type CycleState int

const (
	StateIdle CycleState = iota
	StateDraining
	StatePulling
	StateApplying
	// StateError is entered on an unrecoverable failure (Unauthorized).
	// Resume returns the machine to Idle once re-authentication completed.
	StateError
)

func (s CycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StatePulling:
		return "pulling"
	case StateApplying:
		return "applying"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Indicator is the user-visible sync condition shown by the UI. It is
// non-blocking by contract: consumers render it, they never gate the app
// on it.
type Indicator string

const (
	IndicatorSynced   Indicator = "synced"
	IndicatorPending  Indicator = "pending"
	IndicatorRetrying Indicator = "retrying"
	IndicatorFailed   Indicator = "failed"
)

// Status is one observation published to subscribers.
type Status struct {
	Indicator Indicator
	// Pending is the number of journal entries awaiting delivery.
	Pending int
	// Failed is the number of journal entries in the terminal failed state.
	Failed int
	// LastError describes the most recent cycle failure, if any.
	LastError string
}

func (s Status) String() string {
	switch s.Indicator {
	case IndicatorPending:
		return fmt.Sprintf("pending(%d)", s.Pending)
	case IndicatorFailed:
		return fmt.Sprintf("failed(%d)", s.Failed)
	default:
		return string(s.Indicator)
	}
}
