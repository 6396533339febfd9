package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
	"github.com/tjfontaine/compliance-copilot/internal/journal/memory"
	"github.com/tjfontaine/compliance-copilot/internal/notify"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   []domain.AnalysisRequest
	analyze func(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.analyze(ctx, req)
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		FinalReport:       "Final",
		RiskAssessment:    "RISK LEVEL: HIGH\nReason: amount",
		ExtractedPolicies: "Policy 1",
		Verification:      "Verified",
		AgentHistory:      []string{"step 1", "step 2"},
	}
}

func succeed(context.Context, domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	return sampleResult(), nil
}

func TestOrchestrator_StartsIdle(t *testing.T) {
	o := New(&fakeAnalyzer{analyze: succeed})
	if got := o.Lifecycle().Phase(); got != domain.PhaseIdle {
		t.Errorf("Phase() = %q, want idle", got)
	}
}

func TestOrchestrator_AnalyzeSuccess(t *testing.T) {
	an := &fakeAnalyzer{analyze: succeed}
	inbox := notify.NewInbox(0)
	store := memory.New()
	o := New(an, WithNotifier(inbox), WithJournal(store), WithSessionID("sess-1"))

	if err := o.Analyze(context.Background(), "  Is this reportable?  ", domain.TransactionAttributes{Amount: domain.Attribute("100")}); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	lc := o.Lifecycle()
	if lc.Phase() != domain.PhaseSucceeded {
		t.Fatalf("Phase() = %q, want succeeded", lc.Phase())
	}
	res, ok := lc.Result()
	if !ok || res.RiskAssessment != "RISK LEVEL: HIGH\nReason: amount" {
		t.Errorf("Result() = %+v, %v", res, ok)
	}
	if an.calls[0].Query != "Is this reportable?" {
		t.Errorf("query sent = %q, want trimmed", an.calls[0].Query)
	}

	notes := inbox.Drain()
	if len(notes) != 1 || notes[0].Message != SuccessMessage || notes[0].Level != domain.NotificationSuccess {
		t.Errorf("notifications = %+v", notes)
	}

	entries, err := store.List(context.Background(), ports.ListOptions{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Status != domain.JournalSucceeded || entries[0].Result == nil {
		t.Errorf("journal = %+v", entries)
	}
}

func TestOrchestrator_AnalyzeFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"service detail", domain.NewError(domain.ErrorKindService, "Vector store is empty").WithStatusCode(500), "Vector store is empty"},
		{"service without detail", domain.NewError(domain.ErrorKindService, "").WithStatusCode(502), "Analysis failed"},
		{"transport", domain.NewError(domain.ErrorKindTransport, "").WithCause(errors.New("refused")), "Analysis failed"},
		{"malformed body", domain.NewError(domain.ErrorKindService, "").WithCause(errors.New("bad json")), "Analysis failed"},
		{"plain error", errors.New("unexpected"), "Analysis failed"},
		{"timeout", domain.NewError(domain.ErrorKindTimeout, ""), "Analysis timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			an := &fakeAnalyzer{analyze: func(context.Context, domain.AnalysisRequest) (*domain.AnalysisResult, error) {
				return nil, tt.err
			}}
			inbox := notify.NewInbox(0)
			store := memory.New()
			o := New(an, WithNotifier(inbox), WithJournal(store))

			if err := o.Analyze(context.Background(), "q", domain.TransactionAttributes{}); err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}

			lc := o.Lifecycle()
			msg, ok := lc.Failure()
			if !ok || msg != tt.wantMsg {
				t.Errorf("Failure() = %q, %v, want %q", msg, ok, tt.wantMsg)
			}
			notes := inbox.Drain()
			if len(notes) != 1 || notes[0].Level != domain.NotificationError || notes[0].Message != tt.wantMsg {
				t.Errorf("notifications = %+v", notes)
			}
			entries, _ := store.List(context.Background(), ports.ListOptions{})
			if len(entries) != 1 || entries[0].Failure != tt.wantMsg {
				t.Errorf("journal = %+v", entries)
			}
		})
	}
}

func TestOrchestrator_FailureThenRetrySucceeds(t *testing.T) {
	fail := true
	an := &fakeAnalyzer{analyze: func(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
		if fail {
			return nil, domain.NewError(domain.ErrorKindTransport, "")
		}
		return sampleResult(), nil
	}}
	o := New(an)

	_ = o.Analyze(context.Background(), "q", domain.TransactionAttributes{})
	if o.Lifecycle().Phase() != domain.PhaseFailed {
		t.Fatalf("Phase() = %q, want failed", o.Lifecycle().Phase())
	}

	fail = false
	if err := o.Analyze(context.Background(), "q", domain.TransactionAttributes{}); err != nil {
		t.Fatalf("second Analyze() error = %v", err)
	}
	lc := o.Lifecycle()
	if lc.Phase() != domain.PhaseSucceeded {
		t.Errorf("Phase() = %q, want succeeded", lc.Phase())
	}
	if lc.Seq() != 2 {
		t.Errorf("Seq() = %d, want 2", lc.Seq())
	}
}

func TestOrchestrator_RejectsBlankQuery(t *testing.T) {
	an := &fakeAnalyzer{analyze: succeed}
	o := New(an)

	if err := o.Analyze(context.Background(), "   ", domain.TransactionAttributes{}); !errors.Is(err, domain.ErrEmptyQuery) {
		t.Errorf("Analyze() error = %v, want ErrEmptyQuery", err)
	}
	if an.callCount() != 0 {
		t.Errorf("analyzer called %d times, want 0", an.callCount())
	}
	if o.Lifecycle().Phase() != domain.PhaseIdle {
		t.Errorf("Phase() = %q, want idle", o.Lifecycle().Phase())
	}
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	an := &fakeAnalyzer{analyze: func(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
		close(started)
		<-release
		return sampleResult(), nil
	}}
	o := New(an)

	done, err := o.Start(context.Background(), "first", domain.TransactionAttributes{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !o.InFlight() {
		t.Error("InFlight() = false after Start returned")
	}
	<-started

	if _, err := o.Start(context.Background(), "second", domain.TransactionAttributes{}); !errors.Is(err, domain.ErrAnalysisInFlight) {
		t.Errorf("second Start() error = %v, want ErrAnalysisInFlight", err)
	}
	if err := o.Analyze(context.Background(), "third", domain.TransactionAttributes{}); !errors.Is(err, domain.ErrAnalysisInFlight) {
		t.Errorf("Analyze() error = %v, want ErrAnalysisInFlight", err)
	}

	close(release)
	settled := <-done
	if settled.Phase() != domain.PhaseSucceeded {
		t.Errorf("settled Phase() = %q, want succeeded", settled.Phase())
	}
	if _, open := <-done; open {
		t.Error("channel not closed after settling")
	}
	if an.callCount() != 1 {
		t.Errorf("analyzer called %d times, want 1", an.callCount())
	}
}

func TestOrchestrator_StartDetachesFromCallerContext(t *testing.T) {
	release := make(chan struct{})
	an := &fakeAnalyzer{analyze: func(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return sampleResult(), nil
	}}
	o := New(an)

	ctx, cancel := context.WithCancel(context.Background())
	done, err := o.Start(ctx, "q", domain.TransactionAttributes{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()
	close(release)

	if got := (<-done).Phase(); got != domain.PhaseSucceeded {
		t.Errorf("Phase() = %q, want succeeded despite caller cancellation", got)
	}
}

func TestOrchestrator_Timeout(t *testing.T) {
	an := &fakeAnalyzer{analyze: func(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	inbox := notify.NewInbox(0)
	o := New(an, WithTimeout(20*time.Millisecond), WithNotifier(inbox))

	if err := o.Analyze(context.Background(), "q", domain.TransactionAttributes{}); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	msg, ok := o.Lifecycle().Failure()
	if !ok || msg != domain.TimeoutMessage {
		t.Errorf("Failure() = %q, %v, want %q", msg, ok, domain.TimeoutMessage)
	}
	if notes := inbox.Drain(); len(notes) != 1 || notes[0].Message != domain.TimeoutMessage {
		t.Errorf("notifications = %+v", notes)
	}
}

func TestOrchestrator_NilResultFails(t *testing.T) {
	an := &fakeAnalyzer{analyze: func(context.Context, domain.AnalysisRequest) (*domain.AnalysisResult, error) {
		return nil, nil
	}}
	o := New(an)

	_ = o.Analyze(context.Background(), "q", domain.TransactionAttributes{})
	if msg, ok := o.Lifecycle().Failure(); !ok || msg != domain.FallbackAnalysisMessage {
		t.Errorf("Failure() = %q, %v", msg, ok)
	}
}

func TestOrchestrator_Span(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(rec))

	o := New(&fakeAnalyzer{analyze: succeed}, WithTracerProvider(tp), WithSessionID("sess-9"), WithJournal(memory.New()))
	_ = o.Analyze(context.Background(), "q", domain.TransactionAttributes{})

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "analysis" {
		t.Errorf("span name = %q, want analysis", spans[0].Name())
	}

	var sawSession, sawEntry bool
	for _, kv := range spans[0].Attributes() {
		switch string(kv.Key) {
		case "session.id":
			sawSession = kv.Value.AsString() == "sess-9"
		case "journal.entry_id":
			sawEntry = kv.Value.AsString() != ""
		}
	}
	if !sawSession || !sawEntry {
		t.Errorf("span attributes = %v", spans[0].Attributes())
	}
}
