package bridge

import "fmt"

// State is the lifecycle of one user-initiated call.
//
//	Idle -> Detecting -> Executing -> Injected | Failed
//
// Injected and Failed are terminal for an activation; a new activation
// moves the call back to Executing.
type State int

const (
	StateIdle State = iota
	StateDetecting
	StateExecuting
	StateInjected
	StateFailed
)

// String returns a human readable representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDetecting:
		return "Detecting"
	case StateExecuting:
		return "Executing"
	case StateInjected:
		return "Injected"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether an activation has finished.
func (s State) Terminal() bool {
	return s == StateInjected || s == StateFailed
}

// attr is the value written to the affordance's state attribute.
func (s State) attr() string {
	switch s {
	case StateExecuting:
		return "executing"
	case StateInjected:
		return "injected"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// transitions lists the allowed moves between states.
var transitions = map[State][]State{
	StateIdle:      {StateDetecting},
	StateDetecting: {StateExecuting},
	StateExecuting: {StateInjected, StateFailed},
	StateInjected:  {StateExecuting},
	StateFailed:    {StateExecuting},
}

func (s State) transition(to State) error {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("invalid call state transition %s -> %s", s, to)
}
