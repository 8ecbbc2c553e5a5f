// Package api serves the clipboard history over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Service is the set of history operations the API exposes
type Service interface {
	Backend() string
	StartCapture()
	StopCapture()
	IsCapturing() bool
	AddText(ctx context.Context, text string) (int64, bool, error)
	List(ctx context.Context, q types.Query) (*types.Page, error)
	Get(ctx context.Context, id int64) (*types.Item, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Clear(ctx context.Context, keepFavorites bool) (int, error)
	ToggleFavorite(ctx context.Context, id int64) (bool, error)
	Copy(ctx context.Context, id int64) (*types.Item, error)
	AddTag(ctx context.Context, id int64, tag string) ([]string, error)
	RemoveTag(ctx context.Context, id int64, tag string) ([]string, error)
	SetTags(ctx context.Context, id int64, tags []string) ([]string, error)
	AllTags(ctx context.Context) ([]string, error)
}

type handlers struct {
	svc    Service
	logger *zap.Logger
}

// NewRouter creates the HTTP handler for the API
func NewRouter(svc Service, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		h.registerItemRoutes(r)
		h.registerTagRoutes(r)
		h.registerCaptureRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, codeNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})

	return r
}

func (h *handlers) registerItemRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.listItems)
		r.Post("/", h.addItem)
		r.Post("/clear", h.clearItems)
	})

	r.Route("/item/{id}", func(r chi.Router) {
		r.Get("/", h.getItem)
		r.Delete("/", h.deleteItem)
		r.Post("/favorite", h.toggleFavorite)
		r.Post("/copy", h.copyItem)
		r.Get("/tags", h.getItemTags)
		r.Post("/tags", h.addItemTag)
		r.Put("/tags", h.setItemTags)
		r.Delete("/tags/{tag}", h.removeItemTag)
	})
}

func (h *handlers) registerTagRoutes(r chi.Router) {
	r.Get("/tags", h.allTags)
}

func (h *handlers) registerCaptureRoutes(r chi.Router) {
	r.Route("/capture", func(r chi.Router) {
		r.Get("/", h.captureStatus)
		r.Post("/start", h.startCapture)
		r.Post("/stop", h.stopCapture)
	})
}
