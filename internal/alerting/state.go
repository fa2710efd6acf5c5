package alerting

import "fmt"

// Messages for the conditions that bypass the state machine
const (
	MessageNoQuorum = "None of the RPC endpoints can be reached!"
	MessageNodeDown = "Node is down or cannot be reached!"
)

// State is the persisted memory of the state machine.
//
// LastAlertLevel is the level of the most recently reported condition and
// PreviousHeightDiff the diff recorded with it. Both only change on a level
// transition.
type State struct {
	PreviousHeightDiff *int64 `json:"previous_height_diff" yaml:"previous_height_diff" toml:"previous_height_diff,omitempty"`
	LastAlertLevel     Level  `json:"last_alert_level" yaml:"last_alert_level" toml:"last_alert_level"`
}

// DefaultState is the state of a first run: level 0 and no previous diff.
func DefaultState() State {
	return State{LastAlertLevel: LevelNominal}
}

// HasPreviousDiff reports whether a previous diff is on record
func (s State) HasPreviousDiff() bool {
	return s.PreviousHeightDiff != nil
}

// Equal compares two states by value
func (s State) Equal(other State) bool {
	if s.LastAlertLevel != other.LastAlertLevel {
		return false
	}
	if s.PreviousHeightDiff == nil || other.PreviousHeightDiff == nil {
		return s.PreviousHeightDiff == nil && other.PreviousHeightDiff == nil
	}
	return *s.PreviousHeightDiff == *other.PreviousHeightDiff
}

// String renders the state for logs and the CLI
func (s State) String() string {
	if s.PreviousHeightDiff == nil {
		return fmt.Sprintf("level=%d previous_diff=none", s.LastAlertLevel)
	}
	return fmt.Sprintf("level=%d previous_diff=%d", s.LastAlertLevel, *s.PreviousHeightDiff)
}

// Transition describes how a cycle's level relates to the stored level
type Transition int

const (
	// TransitionUnchanged means the level did not move
	TransitionUnchanged Transition = iota
	// TransitionEscalation means the level went up
	TransitionEscalation
	// TransitionDeescalation means the level went down
	TransitionDeescalation
)

// String returns the string representation of Transition
func (t Transition) String() string {
	switch t {
	case TransitionUnchanged:
		return "unchanged"
	case TransitionEscalation:
		return "escalation"
	case TransitionDeescalation:
		return "deescalation"
	default:
		return "unknown"
	}
}

// Decision is the outcome of evaluating one cycle
type Decision struct {
	Transition Transition
	Level      Level
	// Message is empty when nothing should be sent
	Message string
	// Persist is set when Next must be written to the store
	Persist bool
	// Next is the state after this cycle. It equals the input state when Persist is false.
	Next State
}

// Notify reports whether the decision carries a message
func (d Decision) Notify() bool {
	return d.Message != ""
}

// Evaluate runs the state machine for one cycle.
//
// An escalation always reports. A de-escalation reports only when a previous
// diff is on record, but the stored level advances either way. An unchanged
// level leaves the state exactly as it was, including the stored diff.
func Evaluate(state State, diff int64, thresholds Thresholds) Decision {
	current := thresholds.Classify(diff)
	previous := state.LastAlertLevel

	decision := Decision{
		Transition: TransitionUnchanged,
		Level:      current,
		Next:       state,
	}

	switch {
	case current > previous:
		decision.Transition = TransitionEscalation
		decision.Message = fmt.Sprintf("Alert Level %d: Block height difference is %d blocks!", current, diff)
	case current < previous:
		decision.Transition = TransitionDeescalation
		if state.HasPreviousDiff() {
			decision.Message = fmt.Sprintf(
				"Alert Level Improving to %d: Block height difference has decreased from %d to %d blocks!",
				current, *state.PreviousHeightDiff, diff)
		}
	default:
		return decision
	}

	recorded := diff
	decision.Persist = true
	decision.Next = State{PreviousHeightDiff: &recorded, LastAlertLevel: current}
	return decision
}
