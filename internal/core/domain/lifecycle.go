package domain

import (
	"encoding/json"
)

// Phase identifies the state of an analysis request.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseInFlight  Phase = "in_flight"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Lifecycle is an immutable snapshot of the analysis request state.
// The zero value is idle.
type Lifecycle struct {
	phase   Phase
	seq     uint64
	result  *AnalysisResult
	failure string
}

// LifecycleIdle returns the idle state.
func LifecycleIdle() Lifecycle {
	return Lifecycle{phase: PhaseIdle}
}

// LifecycleInFlight returns the in-flight state of attempt seq.
func LifecycleInFlight(seq uint64) Lifecycle {
	return Lifecycle{phase: PhaseInFlight, seq: seq}
}

// LifecycleSucceeded returns the succeeded state of attempt seq.
func LifecycleSucceeded(seq uint64, result AnalysisResult) Lifecycle {
	r := result.Clone()
	return Lifecycle{phase: PhaseSucceeded, seq: seq, result: &r}
}

// LifecycleFailed returns the failed state of attempt seq.
func LifecycleFailed(seq uint64, message string) Lifecycle {
	return Lifecycle{phase: PhaseFailed, seq: seq, failure: message}
}

// Phase returns the current phase.
func (l Lifecycle) Phase() Phase {
	if l.phase == "" {
		return PhaseIdle
	}
	return l.phase
}

// Seq returns the attempt number that produced this state; 0 when idle.
func (l Lifecycle) Seq() uint64 {
	return l.seq
}

// IsInFlight reports whether a request is outstanding.
func (l Lifecycle) IsInFlight() bool {
	return l.phase == PhaseInFlight
}

// Result returns a copy of the result when the phase is succeeded.
func (l Lifecycle) Result() (AnalysisResult, bool) {
	if l.phase != PhaseSucceeded || l.result == nil {
		return AnalysisResult{}, false
	}
	return l.result.Clone(), true
}

// Failure returns the failure message when the phase is failed.
func (l Lifecycle) Failure() (string, bool) {
	if l.phase != PhaseFailed {
		return "", false
	}
	return l.failure, true
}

// MarshalJSON encodes the lifecycle as a tagged object.
func (l Lifecycle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Phase   Phase           `json:"phase"`
		Seq     uint64          `json:"seq,omitempty"`
		Result  *AnalysisResult `json:"result,omitempty"`
		Message string          `json:"message,omitempty"`
	}{
		Phase:   l.Phase(),
		Seq:     l.seq,
		Result:  l.result,
		Message: l.failure,
	})
}
