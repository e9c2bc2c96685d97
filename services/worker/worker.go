package worker

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"sjsage522/vendingsearch/internal/crawler"
	"sjsage522/vendingsearch/logger"
	"sjsage522/vendingsearch/services/publisher"
)

// Searcher runs a single vending search
type Searcher interface {
	Search(ctx context.Context, query string, budget crawler.SearchBudget) (*crawler.SearchResult, error)
}

// Worker repeats a fixed list of searches and publishes their results
type Worker struct {
	ctx           context.Context
	searcher      Searcher
	publisher     publisher.Publisher
	queries       []string
	budget        crawler.SearchBudget
	interval      time.Duration
	searchTimeout time.Duration
	log           *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(
	ctx context.Context,
	searcher Searcher,
	pub publisher.Publisher,
	queries []string,
	budget crawler.SearchBudget,
	interval time.Duration,
	searchTimeout time.Duration,
) *Worker {
	return &Worker{
		ctx:           ctx,
		searcher:      searcher,
		publisher:     pub,
		queries:       queries,
		budget:        budget,
		interval:      interval,
		searchTimeout: searchTimeout,
		log:           logger.ForWorker(),
	}
}

// Start runs every query once, then again each interval, until the worker's context ends
func (w *Worker) Start() error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		w.RunOnce()
		if os.Getenv("VENDING_ENVIRONMENT") != "production" {
			w.log.Info().Dur("elapsed", time.Since(start)).Int("queries", len(w.queries)).Msg("Watch round finished")
		}

		select {
		case <-w.ctx.Done():
			w.log.Info().Msg("Worker stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce searches each query in turn, then trims the streams.
// Queries run one after another so the origin never sees two crawls at once.
func (w *Worker) RunOnce() {
	for _, query := range w.queries {
		if w.ctx.Err() != nil {
			return
		}
		w.searchAndPublish(query)
	}

	if err := w.publisher.TrimStreams(); err != nil {
		w.log.Error().Err(err).Msg("Failed to trim streams")
	}
}

func (w *Worker) searchAndPublish(query string) {
	log := w.log.WithField("search_term", query)

	ctx := w.ctx
	if w.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(w.ctx, w.searchTimeout)
		defer cancel()
	}

	result, err := w.searcher.Search(ctx, query, w.budget)
	if err != nil {
		log.Error().Err(err).Msg("Search failed")
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode result")
		return
	}

	if err := w.publisher.Publish(query, data); err != nil {
		log.Error().Err(err).Msg("Failed to publish result")
		return
	}

	log.Debug().
		Str("search_id", result.SearchID).
		Int("vendings", len(result.Vendings)).
		Bool("partial", result.Partial).
		Msg("Result published")
}
