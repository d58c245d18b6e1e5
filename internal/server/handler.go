package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
	"github.com/joseph-ayodele/form-extractor/internal/repository"
	"github.com/joseph-ayodele/form-extractor/internal/storage"
)

// Pipeline is the caller surface of the orchestrator.
type Pipeline interface {
	ExtractText(ctx context.Context, doc entity.Document) (entity.TextResult, error)
	ExtractForm(ctx context.Context, doc entity.Document) (entity.FormResult, error)
	ExtractFormEntities(ctx context.Context, doc entity.Document) (entity.EntityResult, error)
	ResumeText(ctx context.Context, h entity.JobHandle) (entity.TextResult, error)
	ResumeForm(ctx context.Context, h entity.JobHandle) (entity.FormResult, error)
	ResumeFormEntities(ctx context.Context, h entity.JobHandle) (entity.EntityResult, error)
}

type Handler struct {
	pipeline  Pipeline
	jobs      repository.ExtractJobRepository
	store     storage.Store
	prefix    string
	maxUpload int64
	logger    *slog.Logger
}

type Option func(*Handler)

// WithArchive stores every upload before recognition; the stored location
// is handed to the backend so the document is not staged twice.
func WithArchive(store storage.Store, prefix string) Option {
	return func(h *Handler) {
		h.store = store
		if prefix != "" {
			h.prefix = prefix
		}
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func New(p Pipeline, jobs repository.ExtractJobRepository, opts ...Option) *Handler {
	h := &Handler{
		pipeline:  p,
		jobs:      jobs,
		prefix:    "uploads",
		maxUpload: 10 << 20,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	if h.jobs == nil {
		h.jobs = repository.NewNoopExtractJobRepository()
	}
	return h
}

func (h *Handler) Attach(r chi.Router) {
	r.Get("/", h.handleIndex)

	r.Post("/upload-text", h.handleUploadText)
	r.Post("/upload-form", h.handleUploadForm)
	r.Post("/upload-form-entities", h.handleUploadFormEntities)

	r.Get("/jobs/{id}", h.handleGetJob)
	r.Post("/jobs/{jobID}/resume", h.handleResume)
}

// NewRouter mounts the handler behind request logging and CORS.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	h.Attach(r)
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", common.RequestIDFromContext(r.Context()),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

// requestID honors an incoming X-Request-Id and echoes the effective id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get("X-Request-Id"); id != "" {
			ctx = common.WithRequestID(ctx, id)
		}
		ctx, id := common.EnsureRequestID(ctx)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJson(w, http.StatusOK, map[string]any{
		"service": "form-extractor",
		"routes": []string{
			"POST /upload-text",
			"POST /upload-form",
			"POST /upload-form-entities",
			"GET /jobs/{id}",
			"POST /jobs/{jobID}/resume?variant=text|form|form_entities",
		},
	})
}

func writeJson(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	_ = enc.Encode(v)
}
