package search

import "fmt"

// State is the orchestrator's lifecycle state.
type State int32

const (
	// StateUninitialized rejects searches until Initialize is called.
	StateUninitialized State = iota
	// StateReady means the most recent generation pass had no failures.
	StateReady
	// StateDegraded means the most recent generation pass had failures. Searches still run.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for _, c := range []State{StateUninitialized, StateReady, StateDegraded} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown search state %q", b)
}
