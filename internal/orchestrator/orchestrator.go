// Package orchestrator owns the analysis request lifecycle.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
	"github.com/tjfontaine/compliance-copilot/internal/journal"
	"github.com/tjfontaine/compliance-copilot/internal/notify"
)

// DefaultTimeout is applied to each analysis unless overridden.
const DefaultTimeout = 120 * time.Second

// SuccessMessage is the notification sent when an analysis succeeds.
const SuccessMessage = "Analysis completed successfully!"

const tracerName = "github.com/tjfontaine/compliance-copilot/internal/orchestrator"

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the notification sink.
func WithNotifier(n ports.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithJournal records every settled attempt in store.
func WithJournal(store ports.JournalStore) Option {
	return func(o *Orchestrator) {
		o.journal = store
	}
}

// WithTimeout bounds each analysis. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSessionID tags journal entries and spans with the owning session.
func WithSessionID(id string) Option {
	return func(o *Orchestrator) {
		o.sessionID = id
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// Orchestrator issues analysis requests and owns the resulting lifecycle.
// At most one analysis is in flight at a time.
type Orchestrator struct {
	analyzer  ports.ComplianceAnalyzer
	notifier  ports.Notifier
	journal   ports.JournalStore
	logger    *slog.Logger
	tracer    trace.Tracer
	timeout   time.Duration
	sessionID string

	mu        sync.Mutex
	lifecycle domain.Lifecycle
	seq       uint64
}

// New creates an orchestrator in the idle state.
func New(analyzer ports.ComplianceAnalyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer:  analyzer,
		notifier:  notify.Discard,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		timeout:   DefaultTimeout,
		lifecycle: domain.LifecycleIdle(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Lifecycle returns the current lifecycle value.
func (o *Orchestrator) Lifecycle() domain.Lifecycle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lifecycle
}

// InFlight reports whether an analysis is outstanding.
func (o *Orchestrator) InFlight() bool {
	return o.Lifecycle().IsInFlight()
}

// Analyze runs one analysis and blocks until it settles. The returned error
// is non-nil only when the request was rejected before reaching the
// analyzer; service failures are reported through the lifecycle.
func (o *Orchestrator) Analyze(ctx context.Context, query string, attrs domain.TransactionAttributes) error {
	req, seq, err := o.begin(query, attrs)
	if err != nil {
		return err
	}
	o.run(ctx, seq, req)
	return nil
}

// Start moves the lifecycle to in-flight and runs the analysis in the
// background, detached from ctx cancellation. The channel yields the
// settled lifecycle once and is then closed.
func (o *Orchestrator) Start(ctx context.Context, query string, attrs domain.TransactionAttributes) (<-chan domain.Lifecycle, error) {
	req, seq, err := o.begin(query, attrs)
	if err != nil {
		return nil, err
	}

	done := make(chan domain.Lifecycle, 1)
	go func() {
		defer close(done)
		done <- o.run(context.WithoutCancel(ctx), seq, req)
	}()
	return done, nil
}

func (o *Orchestrator) begin(query string, attrs domain.TransactionAttributes) (domain.AnalysisRequest, uint64, error) {
	req, err := domain.NewAnalysisRequest(query, attrs)
	if err != nil {
		return domain.AnalysisRequest{}, 0, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.lifecycle.IsInFlight() {
		return domain.AnalysisRequest{}, 0, domain.ErrAnalysisInFlight
	}
	o.seq++
	o.lifecycle = domain.LifecycleInFlight(o.seq)
	return req, o.seq, nil
}

func (o *Orchestrator) run(ctx context.Context, seq uint64, req domain.AnalysisRequest) domain.Lifecycle {
	ctx, span := o.tracer.Start(ctx, "analysis", trace.WithAttributes(
		attribute.Int64("analysis.seq", int64(seq)),
		attribute.String("session.id", o.sessionID),
		attribute.Int("analysis.query_length", len(req.Query)),
	))
	defer span.End()

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := o.analyzer.Analyze(callCtx, req)
	if err == nil && result == nil {
		err = domain.NewError(domain.ErrorKindService, "").WithCause(errors.New("analyzer returned no result"))
	}
	if err != nil && callCtx.Err() == context.DeadlineExceeded && domain.KindOf(err) != domain.ErrorKindTimeout {
		err = domain.NewError(domain.ErrorKindTimeout, "").WithCause(err)
	}
	elapsed := time.Since(start)

	var next domain.Lifecycle
	entry := &domain.JournalEntry{
		SessionID:  o.sessionID,
		Query:      req.Query,
		Attributes: req.Attributes,
		Duration:   elapsed,
	}

	if err != nil {
		msg := domain.UserMessageWithTimeout(err, domain.TimeoutMessage, domain.FallbackAnalysisMessage)
		next = domain.LifecycleFailed(seq, msg)
		entry.Status = domain.JournalFailed
		entry.Failure = msg

		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		o.logger.Error("analysis failed",
			slog.String("session_id", o.sessionID),
			slog.Uint64("seq", seq),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
	} else {
		next = domain.LifecycleSucceeded(seq, *result)
		r := result.Clone()
		entry.Status = domain.JournalSucceeded
		entry.Result = &r

		span.SetStatus(codes.Ok, "")
		o.logger.Info("analysis completed",
			slog.String("session_id", o.sessionID),
			slog.Uint64("seq", seq),
			slog.Duration("duration", elapsed),
			slog.Int("agent_steps", len(result.AgentHistory)),
		)
	}

	o.mu.Lock()
	if o.seq == seq {
		o.lifecycle = next
	}
	o.mu.Unlock()

	if o.journal != nil {
		id := journal.Record(ctx, o.journal, entry, o.logger)
		span.SetAttributes(attribute.String("journal.entry_id", id))
	}

	if err != nil {
		msg, _ := next.Failure()
		o.notifier.Notify(ctx, domain.Failure(msg))
	} else {
		o.notifier.Notify(ctx, domain.Success(SuccessMessage))
	}

	return next
}
