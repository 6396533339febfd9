package domain

import (
	"encoding/json"
	"testing"
)

func TestLifecycle_ZeroValueIsIdle(t *testing.T) {
	var l Lifecycle
	if l.Phase() != PhaseIdle {
		t.Errorf("Phase() = %q, want idle", l.Phase())
	}
	if l.IsInFlight() {
		t.Error("IsInFlight() = true for zero value")
	}
	if _, ok := l.Result(); ok {
		t.Error("Result() ok = true for zero value")
	}
}

func TestLifecycle_Variants(t *testing.T) {
	result := AnalysisResult{FinalReport: "ok", AgentHistory: []string{"step"}}

	inFlight := LifecycleInFlight(3)
	if !inFlight.IsInFlight() || inFlight.Seq() != 3 {
		t.Errorf("LifecycleInFlight(3) = %+v", inFlight)
	}

	succeeded := LifecycleSucceeded(3, result)
	got, ok := succeeded.Result()
	if !ok || got.FinalReport != "ok" {
		t.Errorf("Result() = %+v, %v", got, ok)
	}
	if _, ok := succeeded.Failure(); ok {
		t.Error("Failure() ok = true on succeeded")
	}

	failed := LifecycleFailed(4, "Analysis failed")
	msg, ok := failed.Failure()
	if !ok || msg != "Analysis failed" {
		t.Errorf("Failure() = %q, %v", msg, ok)
	}
	if failed.IsInFlight() {
		t.Error("failed lifecycle reports in flight")
	}
}

func TestLifecycle_SnapshotIsImmutable(t *testing.T) {
	result := AnalysisResult{AgentHistory: []string{"parsed query"}}
	l := LifecycleSucceeded(1, result)

	result.AgentHistory[0] = "mutated"
	got, _ := l.Result()
	got.AgentHistory = append(got.AgentHistory, "extra")

	again, _ := l.Result()
	if len(again.AgentHistory) != 1 || again.AgentHistory[0] != "parsed query" {
		t.Errorf("AgentHistory = %v, want [parsed query]", again.AgentHistory)
	}
}

func TestLifecycle_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(LifecycleFailed(2, "detail"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"phase":"failed","seq":2,"message":"detail"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
