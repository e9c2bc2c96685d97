package crawler

import (
	"context"
	stderrors "errors"
	"math"
	"strconv"
	"strings"
	"time"

	"sjsage522/vendingsearch/logger"
	"sjsage522/vendingsearch/pkg/errors"
	"sjsage522/vendingsearch/services/cache"

	"github.com/google/uuid"
)

// ErrInvalidQuery is returned before any crawling when the query is blank
var ErrInvalidQuery = errors.NewValidation("search", "query is required")

// QueryMode tells how a query is compared against items
type QueryMode int

const (
	// NameQuery matches case-insensitive substrings of item names
	NameQuery QueryMode = iota
	// IDQuery matches item ids exactly
	IDQuery
)

func (m QueryMode) String() string {
	if m == IDQuery {
		return "id"
	}
	return "name"
}

// ValidateQuery trims the query and rejects it when nothing is left
func ValidateQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrInvalidQuery
	}
	return query, nil
}

// ClassifyQuery reports IDQuery when the whole query parses as a number:
// decimal or exponent forms ("501", "1e3", "-2.5") and 0x/0o/0b integers.
// NaN, infinities and digit separators stay name queries.
func ClassifyQuery(query string) QueryMode {
	if query == "" || strings.ContainsRune(query, '_') {
		return NameQuery
	}
	f, err := strconv.ParseFloat(query, 64)
	if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return IDQuery
	}
	if stderrors.Is(err, strconv.ErrRange) {
		return IDQuery
	}
	if _, err := strconv.ParseInt(query, 0, 64); err == nil {
		return IDQuery
	}
	return NameQuery
}

// Matcher reports whether an item satisfies a query
type Matcher func(Item) bool

// NewMatcher builds the predicate for a validated query
func NewMatcher(query string) Matcher {
	if ClassifyQuery(query) == IDQuery {
		return func(item Item) bool {
			return item.ID != nil && strconv.Itoa(*item.ID) == query
		}
	}

	needle := strings.ToLower(query)
	return func(item Item) bool {
		return item.Name != "" && strings.Contains(strings.ToLower(item.Name), needle)
	}
}

// Searcher drives the directory crawl, the per-store fetches and the matching pass
type Searcher struct {
	directory *DirectoryCrawler
	items     *ItemFetcher
	log       *logger.Logger
	newID     func() string
	now       func() time.Time
}

// NewSearcher wires the crawlers used by every search
func NewSearcher(config CrawlerConfig, fetcher Fetcher, cacheSvc cache.CacheService) *Searcher {
	return &Searcher{
		directory: NewDirectoryCrawler(config, fetcher, cacheSvc),
		items:     NewItemFetcher(config, fetcher, cacheSvc),
		log:       logger.ForSearch(),
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Search crawls the vending listing and returns every listing matching query.
// Fetches are strictly sequential and paced by budget.RequestDelay. Failed pages and
// stores are skipped. When ctx ends the crawl stops and what was found so far is
// returned with Partial set. Only a blank query or an unexpected internal failure
// yields an error.
func (s *Searcher) Search(ctx context.Context, query string, budget SearchBudget) (*SearchResult, error) {
	query, err := ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	budget = budget.normalized()
	matches := NewMatcher(query)
	pacer := NewPacer(budget.RequestDelay)

	log := s.log.WithFields(logger.Fields{
		"search_term": query,
		"mode":        ClassifyQuery(query).String(),
	})
	log.Info().Int("max_pages", budget.MaxPages).Int("max_stores", budget.MaxStores).Msg("Starting search")
	started := s.now()

	listing, err := s.directory.ListStores(ctx, budget, pacer)
	if err != nil {
		log.Error().Err(err).Msg("Search aborted while listing stores")
		return nil, err
	}

	result := &SearchResult{
		SearchID:     s.newID(),
		Vendings:     []VendingEntry{},
		TotalPages:   listing.TotalPages,
		PagesScanned: listing.PagesScanned,
		SearchTerm:   query,
		Partial:      listing.Partial,
	}

	stores := listing.Stores
	if len(stores) > budget.MaxStores {
		log.Info().Int("stores", len(stores)).Int("max_stores", budget.MaxStores).Msg("Truncating stores to budget")
		stores = stores[:budget.MaxStores]
	}

	for _, store := range stores {
		if ctx.Err() != nil {
			result.Partial = true
			break
		}

		items, err := s.items.ListItems(ctx, store.ID, pacer)
		if err != nil {
			if errors.IsType(err, errors.ErrorTypeInternal) {
				log.Error().Err(err).Int("store_id", store.ID).Str("store", store.Name).Msg("Search aborted")
				return nil, err
			}
			if finished(ctx, err) {
				result.Partial = true
				break
			}
			log.Warn().Err(err).Int("store_id", store.ID).Str("store", store.Name).Msg("Skipping store")
			result.StoresScanned++
			continue
		}
		result.StoresScanned++

		for _, item := range items {
			if !matches(item) {
				continue
			}
			if result.Item == nil {
				result.Item = &FoundItem{ID: item.ID, Name: item.Name}
			}
			result.Vendings = append(result.Vendings, VendingEntry{
				Store:      store.Name,
				StoreID:    store.ID,
				Refinement: item.Refinement,
				Cards:      item.Cards,
				Price:      item.Price,
				Quantity:   item.Quantity,
				SellType:   item.SellType,
			})
			log.Debug().Str("item", item.Name).Str("store", store.Name).Msg("Match found")
		}
	}

	result.Timestamp = s.now().UTC()
	log.Info().
		Bool("found", result.Item != nil).
		Int("vendings", len(result.Vendings)).
		Int("stores_scanned", result.StoresScanned).
		Bool("partial", result.Partial).
		Dur("elapsed", result.Timestamp.Sub(started)).
		Msg("Search finished")
	return result, nil
}
