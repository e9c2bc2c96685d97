package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"sjsage522/vendingsearch/internal/crawler"
	"sjsage522/vendingsearch/logger"
	"sjsage522/vendingsearch/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Searcher runs a single vending search
type Searcher interface {
	Search(ctx context.Context, query string, budget crawler.SearchBudget) (*crawler.SearchResult, error)
}

// Options configures the HTTP surface
type Options struct {
	AllowedOrigins []string
	Budget         crawler.SearchBudget
	SearchTimeout  time.Duration
}

// Handlers serves search requests
type Handlers struct {
	searcher Searcher
	opts     Options
	log      *logger.Logger
}

// NewHandlers creates the request handlers
func NewHandlers(searcher Searcher, opts Options) *Handlers {
	return &Handlers{
		searcher: searcher,
		opts:     opts,
		log:      logger.ForServer(),
	}
}

// NewRouter mounts the search and health endpoints behind the standard middleware
func NewRouter(searcher Searcher, opts Options) http.Handler {
	h := NewHandlers(searcher, opts)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/search", h.Search)
	r.Post("/search", h.Search)

	return r
}

// Search handles GET /search?item=<query>
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("item")
	if _, err := crawler.ValidateQuery(query); err != nil {
		h.respondError(w, http.StatusBadRequest, `parameter "item" is required`)
		return
	}

	ctx := r.Context()
	if h.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.SearchTimeout)
		defer cancel()
	}

	log := h.log.WithFields(logger.Fields{
		"search_term": query,
		"request_id":  middleware.GetReqID(r.Context()),
	})

	result, err := h.searcher.Search(ctx, query, h.opts.Budget)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeValidation) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("Search failed")
		h.respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "internal server error",
			"message": err.Error(),
		})
		return
	}

	log.Info().
		Int("vendings", len(result.Vendings)).
		Bool("partial", result.Partial).
		Msg("Search served")
	h.respondJSON(w, http.StatusOK, result)
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
