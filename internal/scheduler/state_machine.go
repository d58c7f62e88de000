package scheduler

import "fmt"

// LaneState represents a job lane's state in the state machine.
type LaneState string

const (
	StateIdle           LaneState = "idle"
	StateAuthenticating LaneState = "authenticating"
	StateChecking       LaneState = "checking"
	StatePosting        LaneState = "posting"
	StateDone           LaneState = "done"
	StateFailed         LaneState = "failed"
)

// ValidateStateTransition checks if a lane state transition is valid.
// Returns an error if the transition is not allowed.
func ValidateStateTransition(from, to LaneState) error {
	validTransitions := map[LaneState][]LaneState{
		StateIdle: {
			StateAuthenticating, // Fire time reached
		},
		StateAuthenticating: {
			StateChecking, // Session acquired
			StateFailed,   // Authentication error
		},
		StateChecking: {
			StatePosting,        // Not yet recorded today
			StateDone,           // Duplicate found, attempt skipped
			StateFailed,         // Log fetch error
			StateAuthenticating, // Session rejected, refresh restarts the pipeline
		},
		StatePosting: {
			StateDone,           // Portal accepted the posting
			StateFailed,         // Portal rejected or transport error
			StateAuthenticating, // Session rejected, refresh restarts the pipeline
		},
		StateDone: {
			StateIdle, // Next calendar day
		},
		StateFailed: {
			StateIdle, // Ready for the next fire time
		},
	}

	allowedStates, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}

	for _, allowed := range allowedStates {
		if allowed == to {
			return nil
		}
	}

	return fmt.Errorf("invalid state transition from %s to %s", from, to)
}

// IsTerminalForToday checks if a lane has finished its daily cycle.
func IsTerminalForToday(state LaneState) bool {
	return state == StateDone || state == StateFailed
}

// IsActiveState checks if a lane currently has an attempt running.
func IsActiveState(state LaneState) bool {
	return state == StateAuthenticating ||
		state == StateChecking ||
		state == StatePosting
}
