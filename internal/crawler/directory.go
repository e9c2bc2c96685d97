package crawler

import (
	"context"
	"fmt"

	"sjsage522/vendingsearch/pkg/errors"
	"sjsage522/vendingsearch/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// DirectoryCrawler walks the paginated store listing
type DirectoryCrawler struct {
	BaseCrawler
}

// NewDirectoryCrawler creates a new directory crawler
func NewDirectoryCrawler(config CrawlerConfig, fetcher Fetcher, cacheSvc cache.CacheService) *DirectoryCrawler {
	return &DirectoryCrawler{
		BaseCrawler: newBaseCrawler("DirectoryCrawler", config, fetcher, cacheSvc),
	}
}

// ListStores collects stores page by page up to budget.MaxPages.
// A page that fails contributes nothing; a finished context ends the walk and marks the listing partial.
// Only an internal failure while reading a page aborts with an error.
// Pass nil for pacer to pace with budget.RequestDelay.
func (c *DirectoryCrawler) ListStores(ctx context.Context, budget SearchBudget, pacer *Pacer) (*StoreListing, error) {
	budget = budget.normalized()
	if pacer == nil {
		pacer = NewPacer(budget.RequestDelay)
	}

	listing := &StoreListing{}
	seen := make(map[int]bool)

	// Page 1 answers both the page count and its own stores
	listing.TotalPages = budget.FallbackPages
	if err := c.crawlPage(ctx, pacer, listing, seen, 1); err != nil {
		if errors.IsType(err, errors.ErrorTypeInternal) {
			return nil, err
		}
		if finished(ctx, err) {
			listing.Partial = true
			return listing, nil
		}
		c.log.Warn().Err(err).Int("page", 1).Int("fallback_pages", budget.FallbackPages).Msg("First listing page failed, using fallback page count")
	}
	listing.PagesScanned = 1

	last := min(listing.TotalPages, budget.MaxPages)
	if listing.TotalPages > budget.MaxPages {
		c.log.Info().Int("total_pages", listing.TotalPages).Int("max_pages", budget.MaxPages).Msg("Truncating listing to page budget")
	}

	for page := 2; page <= last; page++ {
		if err := c.crawlPage(ctx, pacer, listing, seen, page); err != nil {
			if errors.IsType(err, errors.ErrorTypeInternal) {
				return nil, err
			}
			if finished(ctx, err) {
				listing.Partial = true
				break
			}
			c.log.Warn().Err(err).Int("page", page).Msg("Skipping listing page")
		}
		listing.PagesScanned++
	}

	c.log.Info().
		Int("stores", len(listing.Stores)).
		Int("pages_scanned", listing.PagesScanned).
		Int("total_pages", listing.TotalPages).
		Bool("partial", listing.Partial).
		Msg("Store directory crawled")
	return listing, nil
}

// crawlPage fetches one listing page and appends its stores, skipping ids seen on earlier links.
// The page count is only read from page 1.
func (c *DirectoryCrawler) crawlPage(ctx context.Context, pacer *Pacer, listing *StoreListing, seen map[int]bool, page int) error {
	body, err := c.fetchPage(ctx, pacer, c.listingURL(page))
	if err != nil {
		return err
	}

	return c.extract(fmt.Sprintf("extracting listing page %d", page), body, func(doc *goquery.Document) {
		if page == 1 {
			listing.TotalPages = ExtractMaxPage(doc, c.Selectors)
		}

		links := ExtractStoreLinks(doc, c.Selectors)
		for _, link := range links {
			if seen[link.ID] {
				continue
			}
			seen[link.ID] = true

			name := link.Text
			if name == "" {
				name = fmt.Sprintf("Store %d", link.ID)
			}
			listing.Stores = append(listing.Stores, Store{ID: link.ID, Name: name})
		}
		c.log.Debug().Int("page", page).Int("stores", len(links)).Msg("Listing page extracted")
	})
}

// normalized clamps a budget to values the crawl can run with
func (b SearchBudget) normalized() SearchBudget {
	if b.MaxPages < 1 {
		b.MaxPages = 1
	}
	if b.MaxStores < 1 {
		b.MaxStores = 1
	}
	if b.FallbackPages < 1 {
		b.FallbackPages = 1
	}
	if b.RequestDelay < 0 {
		b.RequestDelay = 0
	}
	return b
}
