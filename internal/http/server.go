package http

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mergington/signup/internal/config"
	"mergington/signup/internal/export"
	"mergington/signup/internal/render"
	"mergington/signup/internal/ui"
)

//go:embed templates/page.html
var templates embed.FS

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Console is the page the server draws and forwards gestures to.
type Console interface {
	Dispatch(ctx context.Context, name ui.EventName, ev ui.Event) error
	Reload(ctx context.Context) render.View
	Page() ui.Page
}

type Server struct {
	cfg     config.Config
	console Console
	page    *template.Template
	logger  *zap.Logger
}

func NewServer(cfg config.Config, console Console, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	page, err := template.ParseFS(templates, "templates/page.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, console: console, page: page, logger: logger.Named("http")}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", s.handlePage)
	r.Get("/view", s.handleView)
	r.With(s.sameOriginOnly).Post("/events/{event}", s.handleEvent)
	r.Get("/roster.xlsx", s.handleRoster)

	return r
}

// sameOriginOnly refuses gestures posted from another site. The console acts
// with the teacher's token, so a foreign page must not be able to drive it.
func (s *Server) sameOriginOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sameOrigin(r) {
			s.logger.Warn("cross-origin event refused",
				zap.String("origin", r.Header.Get("Origin")),
				zap.String("referer", r.Header.Get("Referer")),
				zap.String("request_id", middleware.GetReqID(r.Context())))
			writeError(w, http.StatusForbidden, "cross_origin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// detached keeps the request's values but not its cancellation: a browser
// that goes away must not abort a mutation or the refresh that follows it.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.console.Reload(detached(r))

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, s.console.Page()); err != nil {
		s.logger.Error("render page", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render_failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.console.Reload(detached(r))
	writeJSON(w, http.StatusOK, s.console.Page())
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	name := ui.EventName(chi.URLParam(r, "event"))
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form")
		return
	}
	ev := ui.Event{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Activity: r.PostFormValue("activity"),
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Key:      r.PostFormValue("key"),
	}

	err := s.console.Dispatch(detached(r), name, ev)
	switch {
	case errors.Is(err, ui.ErrUnknownEvent):
		writeError(w, http.StatusNotFound, "unknown_event")
		return
	case err != nil:
		// The handler already put a notice on the page.
		s.logger.Warn("event failed",
			zap.String("event", string(name)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, s.console.Page())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	view := s.console.Reload(detached(r))

	var buf bytes.Buffer
	if err := export.WriteRoster(&buf, view); err != nil {
		if errors.Is(err, export.ErrNoCatalog) {
			writeError(w, http.StatusServiceUnavailable, "catalog_unavailable")
			return
		}
		s.logger.Error("export roster", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export_failed")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="roster.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// sameOrigin accepts requests without any browser provenance headers, such as
// scripts on the same machine.
func sameOrigin(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
	default:
		return false
	}
	source := r.Header.Get("Origin")
	if source == "" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		return true
	}
	parsed, err := url.Parse(source)
	if err != nil || parsed.Host == "" {
		return false
	}
	return strings.EqualFold(parsed.Host, r.Host)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
