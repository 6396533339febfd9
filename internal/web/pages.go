package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tjfontaine/compliance-copilot/internal/analysis"
	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
	"github.com/tjfontaine/compliance-copilot/internal/results"
	"github.com/tjfontaine/compliance-copilot/internal/server"
	"github.com/tjfontaine/compliance-copilot/internal/upload"
)

var templateFuncs = template.FuncMap{
	"duration": func(d time.Duration) string {
		return d.Round(time.Millisecond).String()
	},
	"clock": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04:05")
	},
}

type healthView struct {
	Status  string
	Healthy bool
}

type resultsView struct {
	History []string
	Tabs    []results.Tab
	Title   string
	Content string
}

type searchView struct {
	Query   string
	Limit   int
	Matches []domain.DocumentMatch
	Error   string
}

type pageData struct {
	Health        *healthView
	Notifications []domain.Notification
	Uploads       upload.Snapshot
	MaxUploadMB   int64
	Form          analysis.Fields
	SubmitLabel   string
	InFlight      bool
	RefreshSecs   int
	Failure       string
	Results       *resultsView
	Journal       []*domain.JournalEntry
	Search        *searchView
	SearchDefault int
	SearchMax     int
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, nil)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, search *searchView) {
	s := sessionFrom(r.Context())
	lc := s.Orchestrator.Lifecycle()

	data := pageData{
		Health:        h.checkHealth(r.Context()),
		Notifications: s.Inbox.Drain(),
		Uploads:       s.Uploads.Snapshot(),
		MaxUploadMB:   h.maxUpload >> 20,
		Form:          s.Builder.Fields(),
		SubmitLabel:   s.Builder.SubmitLabel(),
		InFlight:      lc.IsInFlight(),
		Journal:       h.recentJournal(r.Context(), s.ID),
		Search:        search,
		SearchDefault: h.searchDefault,
		SearchMax:     h.searchMax,
	}
	if data.InFlight {
		data.RefreshSecs = inFlightRefreshSecs
	}
	if msg, ok := lc.Failure(); ok {
		data.Failure = msg
	}
	if p := s.Presenter(); p != nil {
		data.Results = &resultsView{
			History: p.History(),
			Tabs:    p.Tabs(),
			Title:   p.Selected().Title(),
			Content: p.Content(),
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.tmpl.ExecuteTemplate(w, "page.html", data); err != nil {
		server.AddError(r.Context(), err)
		h.logger.ErrorContext(r.Context(), "failed to render page", slog.String("error", err.Error()))
	}
}

func (h *Handler) checkHealth(ctx context.Context) *healthView {
	if h.health == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	status, err := h.health.Health(ctx)
	if err != nil {
		h.logger.DebugContext(ctx, "health check failed", slog.String("error", err.Error()))
		return &healthView{Status: "unreachable"}
	}
	return &healthView{Status: status.Status, Healthy: status.Healthy()}
}

func (h *Handler) recentJournal(ctx context.Context, sessionID string) []*domain.JournalEntry {
	if h.journal == nil {
		return nil
	}
	entries, err := h.journal.List(ctx, ports.ListOptions{SessionID: sessionID, Limit: recentJournalLimit})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list journal", slog.String("error", err.Error()))
		return nil
	}
	return entries
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.Inbox.Notify(ctx, domain.Failure(fmt.Sprintf("File too large (max %d MB)", h.maxUpload>>20)))
		} else {
			s.Inbox.Notify(ctx, domain.Failure(domain.FallbackUploadMessage))
		}
		server.AddError(ctx, err)
		redirectHome(w, r)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.Inbox.Notify(ctx, domain.Failure("Please choose a file to upload"))
		redirectHome(w, r)
		return
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		s.Inbox.Notify(ctx, domain.Failure(fmt.Sprintf("File too large (max %d MB)", h.maxUpload>>20)))
		redirectHome(w, r)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		server.AddError(ctx, err)
		s.Inbox.Notify(ctx, domain.Failure(domain.FallbackUploadMessage))
		redirectHome(w, r)
		return
	}

	doc := domain.Document{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}
	server.AddLogField(ctx, "filename", doc.Filename)

	// The coordinator notifies the outcome itself.
	if err := s.Uploads.SelectFile(ctx, doc); err != nil {
		if errors.Is(err, domain.ErrUploadInProgress) {
			s.Inbox.Notify(ctx, domain.Failure("An upload is already in progress"))
		}
		server.AddError(ctx, err)
	}
	redirectHome(w, r)
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	s.Builder.SetFields(analysis.Fields{
		Query:           r.PostFormValue("query"),
		TransactionType: r.PostFormValue("transaction_type"),
		Amount:          r.PostFormValue("amount"),
		Region:          r.PostFormValue("region"),
		CustomerType:    r.PostFormValue("customer_type"),
	})

	if err := s.Builder.Submit(r.Context()); err != nil {
		// Blank queries and double submits are no-ops.
		if !domain.IsValidation(err) {
			server.AddError(r.Context(), err)
		}
		h.logger.DebugContext(r.Context(), "analysis not started", slog.String("reason", err.Error()))
	}
	redirectHome(w, r)
}

func (h *Handler) handleSelectView(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	if p := s.Presenter(); p != nil {
		p.SelectView(r.PostFormValue("view"))
	}
	redirectHome(w, r)
}

func (h *Handler) handleResultsText(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	p := s.Presenter()
	if p == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="compliance-analysis.txt"`)
	if err := p.WriteText(w); err != nil {
		server.AddError(r.Context(), err)
	}
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	view := &searchView{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit: h.searchLimit(r.URL.Query().Get("k")),
	}

	if view.Query != "" && h.searcher != nil {
		matches, err := h.searcher.SearchDocuments(r.Context(), view.Query, view.Limit)
		if err != nil {
			server.AddError(r.Context(), err)
			view.Error = domain.UserMessageWithTimeout(err, domain.SearchTimeoutMessage, domain.FallbackSearchMessage)
		} else {
			view.Matches = matches
		}
	}

	h.render(w, r, view)
}

// searchLimit parses k, falling back to the default and clamping to the max.
func (h *Handler) searchLimit(raw string) int {
	k, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || k <= 0 {
		return h.searchDefault
	}
	return min(k, h.searchMax)
}
