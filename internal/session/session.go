// Package session bundles the per-browser copilot state and keeps an
// in-memory registry of live sessions.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tjfontaine/compliance-copilot/internal/analysis"
	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
	"github.com/tjfontaine/compliance-copilot/internal/notify"
	"github.com/tjfontaine/compliance-copilot/internal/orchestrator"
	"github.com/tjfontaine/compliance-copilot/internal/results"
	"github.com/tjfontaine/compliance-copilot/internal/upload"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Uploader        ports.DocumentUploader
	Analyzer        ports.ComplianceAnalyzer
	Journal         ports.JournalStore
	Logger          *slog.Logger
	AnalysisTimeout time.Duration
}

// Session is one browser's upload list, analysis form, request lifecycle
// and result view.
type Session struct {
	ID           string
	Uploads      *upload.Coordinator
	Builder      *analysis.Builder
	Orchestrator *orchestrator.Orchestrator
	Inbox        *notify.Inbox

	mu           sync.Mutex
	presenter    *results.Presenter
	presenterSeq uint64
	lastSeen     time.Time
}

func newSession(id string, deps Deps, now time.Time) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("session_id", id))

	inbox := notify.NewInbox(notify.DefaultInboxCapacity)
	notifier := notify.Fanout(inbox, notify.NewLogger(logger))

	timeout := deps.AnalysisTimeout
	if timeout == 0 {
		timeout = orchestrator.DefaultTimeout
	}

	orch := orchestrator.New(deps.Analyzer,
		orchestrator.WithNotifier(notifier),
		orchestrator.WithJournal(deps.Journal),
		orchestrator.WithTimeout(timeout),
		orchestrator.WithLogger(logger),
		orchestrator.WithSessionID(id),
	)

	s := &Session{
		ID:           id,
		Uploads:      upload.NewCoordinator(deps.Uploader, notifier, upload.WithLogger(logger)),
		Orchestrator: orch,
		Inbox:        inbox,
		lastSeen:     now,
	}
	s.Builder = analysis.NewBuilder(s.startAnalysis, orch.InFlight)
	return s
}

func (s *Session) startAnalysis(ctx context.Context, query string, attrs domain.TransactionAttributes) error {
	_, err := s.Orchestrator.Start(ctx, query, attrs)
	return err
}

// Presenter returns the presenter for the current result, or nil when the
// lifecycle has not succeeded. A new result replaces the presenter and
// resets the selected view.
func (s *Session) Presenter() *results.Presenter {
	lc := s.Orchestrator.Lifecycle()
	result, ok := lc.Result()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presenter == nil || s.presenterSeq != lc.Seq() {
		s.presenter = results.NewPresenter(result)
		s.presenterSeq = lc.Seq()
	}
	return s.presenter
}

// Busy reports whether an upload or analysis is outstanding.
func (s *Session) Busy() bool {
	return s.Uploads.Uploading() || s.Orchestrator.InFlight()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns when the session was last accessed.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Snapshot is the JSON view of a session.
type Snapshot struct {
	ID           string           `json:"id"`
	Lifecycle    domain.Lifecycle `json:"lifecycle"`
	Uploads      upload.Snapshot  `json:"uploads"`
	Form         analysis.Fields  `json:"form"`
	CanSubmit    bool             `json:"can_submit"`
	SubmitLabel  string           `json:"submit_label"`
	SelectedView results.View     `json:"selected_view,omitempty"`
}

// Snapshot captures the session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:          s.ID,
		Lifecycle:   s.Orchestrator.Lifecycle(),
		Uploads:     s.Uploads.Snapshot(),
		Form:        s.Builder.Fields(),
		CanSubmit:   s.Builder.CanSubmit(),
		SubmitLabel: s.Builder.SubmitLabel(),
	}
	if p := s.Presenter(); p != nil {
		snap.SelectedView = p.Selected()
	}
	return snap
}
