package monitor

import (
	"time"

	"github.com/wemix/lagwatch/internal/alerting"
	"github.com/wemix/lagwatch/internal/height"
)

// Outcome classifies how a cycle ended
type Outcome string

// Cycle outcomes
const (
	OutcomeOK              Outcome = "ok"
	OutcomeNoQuorum        Outcome = "no_quorum"
	OutcomeNodeUnreachable Outcome = "node_unreachable"
	OutcomeError           Outcome = "error"
)

// CycleResult represents the result of a single check cycle
type CycleResult struct {
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Outcome   Outcome       `json:"outcome"`

	Endpoints []height.EndpointResult `json:"endpoints"`
	// Gap is nil unless both the quorum and the node were read
	Gap *height.Gap `json:"gap,omitempty"`

	Level      alerting.Level `json:"level"`
	Transition string         `json:"transition,omitempty"`
	Message    string         `json:"message,omitempty"`
	Notified   int            `json:"notified"`

	// State is the stored state after the cycle
	State     alerting.State `json:"state"`
	Persisted bool           `json:"persisted"`

	Error string `json:"error,omitempty"`
}

// Healthy reports whether the node was measured successfully
func (r *CycleResult) Healthy() bool {
	return r != nil && r.Outcome == OutcomeOK
}
