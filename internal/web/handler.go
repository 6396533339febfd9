// Package web serves the copilot pages and the session JSON API.
package web

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
	"github.com/tjfontaine/compliance-copilot/internal/server"
	"github.com/tjfontaine/compliance-copilot/internal/session"
)

// SessionCookie names the cookie holding the session id.
const SessionCookie = "copilot_session"

// UploadPath receives document uploads. It runs under upload.timeout
// instead of the general request timeout.
const UploadPath = "/documents"

const (
	defaultMaxUpload    = 32 << 20
	defaultSearchLimit  = 5
	defaultSearchMax    = 20
	recentJournalLimit  = 10
	healthCheckTimeout  = 2 * time.Second
	inFlightRefreshSecs = 2
)

//go:embed templates/*.html
var templateFS embed.FS

// Options configures a Handler.
type Options struct {
	Sessions *session.Registry
	Searcher ports.DocumentSearcher
	Health   ports.HealthChecker
	Journal  ports.JournalStore
	Logger   *slog.Logger

	MaxUploadBytes     int64
	SearchDefaultLimit int
	SearchMaxLimit     int
	CookieSecure       bool
	AllowedOrigins     []string
}

// Handler serves the copilot web surface.
type Handler struct {
	sessions *session.Registry
	searcher ports.DocumentSearcher
	health   ports.HealthChecker
	journal  ports.JournalStore
	logger   *slog.Logger

	maxUpload      int64
	searchDefault  int
	searchMax      int
	cookieSecure   bool
	allowedOrigins []string

	tmpl *template.Template
}

// New creates a handler. Searcher, Health and Journal are optional.
func New(opts Options) *Handler {
	h := &Handler{
		sessions:       opts.Sessions,
		searcher:       opts.Searcher,
		health:         opts.Health,
		journal:        opts.Journal,
		logger:         opts.Logger,
		maxUpload:      opts.MaxUploadBytes,
		searchDefault:  opts.SearchDefaultLimit,
		searchMax:      opts.SearchMaxLimit,
		cookieSecure:   opts.CookieSecure,
		allowedOrigins: opts.AllowedOrigins,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUpload
	}
	if h.searchDefault <= 0 {
		h.searchDefault = defaultSearchLimit
	}
	if h.searchMax < h.searchDefault {
		h.searchMax = max(defaultSearchMax, h.searchDefault)
	}
	if len(h.allowedOrigins) == 0 {
		h.allowedOrigins = []string{"*"}
	}
	h.tmpl = template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
	return h
}

// Routes returns the router for the web surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)
		r.Get("/", h.handleIndex)
		r.Post(UploadPath, h.handleUpload)
		r.Post("/analyze", h.handleAnalyze)
		r.Post("/results/view", h.handleSelectView)
		r.Get("/results.txt", h.handleResultsText)
		r.Get("/search", h.handleSearch)
	})

	// Preflight requests are answered before a session is resolved.
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", server.RequestIDHeader},
			ExposedHeaders:   []string{server.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Get("/health", h.handleHealthJSON)
		r.With(h.sessionMiddleware).Get("/session", h.handleSessionJSON)
	})

	return r
}

type sessionKey struct{}

// sessionMiddleware resolves the session cookie, minting a new session for
// unknown or missing ids.
func (h *Handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}

		s, created := h.sessions.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   h.cookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		server.AddLogField(r.Context(), "session_id", s.ID)

		ctx := context.WithValue(r.Context(), sessionKey{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey{}).(*session.Session)
	return s
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
