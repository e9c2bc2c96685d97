package crawler

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"sjsage522/vendingsearch/logger"
	"sjsage522/vendingsearch/pkg/errors"
	"sjsage522/vendingsearch/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// BaseCrawler provides common functionality for the vending crawlers
type BaseCrawler struct {
	Name      string
	BaseURL   string
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration
	Fetcher   Fetcher
	Selectors Selectors
	log       *logger.Logger
}

func newBaseCrawler(name string, config CrawlerConfig, fetcher Fetcher, cacheSvc cache.CacheService) BaseCrawler {
	selectors := config.Selectors
	if selectors == (Selectors{}) {
		selectors = DefaultSelectors
	}
	return BaseCrawler{
		Name:      name,
		BaseURL:   config.BaseURL,
		CacheKey:  config.CacheKey,
		CacheSvc:  cacheSvc,
		BlockTime: config.BlockTime,
		Fetcher:   fetcher,
		Selectors: selectors,
		log:       logger.ForCrawler(name),
	}
}

// listingURL is the URL of one page of the store directory
func (c *BaseCrawler) listingURL(page int) string {
	return c.pageURL(fmt.Sprintf("module=vending&p=%d", page))
}

// storeURL is the URL of a store's detail page
func (c *BaseCrawler) storeURL(storeID int) string {
	return c.pageURL(fmt.Sprintf("module=vending&action=viewshop&id=%d", storeID))
}

func (c *BaseCrawler) pageURL(query string) string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL + "?" + query
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.RawQuery = query
	u.Fragment = ""
	return u.String()
}

// fetchWithCache fetches a URL unless the origin told us to back off recently
func (c *BaseCrawler) fetchWithCache(ctx context.Context, target string) (io.Reader, error) {
	if err := c.blocked(); err != nil {
		return nil, err
	}

	body, err := c.Fetcher.Fetch(ctx, target)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeRateLimit) && c.CacheSvc != nil && c.CacheKey != "" {
			value := []byte(fmt.Sprintf("%d", c.BlockTime/time.Second))
			if setErr := c.CacheSvc.Set(c.CacheKey, value, c.BlockTime); setErr != nil {
				c.log.Warn().Err(setErr).Str("cache_key", c.CacheKey).Msg("Failed to store rate limit block")
			}
		}
		return nil, err
	}
	return body, nil
}

// blocked returns a rate limit error while the block flag is set
func (c *BaseCrawler) blocked() error {
	if c.CacheSvc == nil || c.CacheKey == "" {
		return nil
	}
	if _, err := c.CacheSvc.Get(c.CacheKey); err == nil {
		return errors.NewRateLimit(c.Name, c.BlockTime)
	}
	return nil
}

// fetchPage paces and fetches one page.
// A finished context is returned as is so callers can tell a deadline from a failed page.
// While the origin block is set the page fails before waiting on the pacer.
func (c *BaseCrawler) fetchPage(ctx context.Context, pacer *Pacer, target string) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.blocked(); err != nil {
		return nil, err
	}
	if pacer != nil {
		if err := pacer.Throttle(ctx); err != nil {
			return nil, err
		}
	}

	c.log.Debug().Str("url", target).Msg("Fetching page")
	return c.fetchWithCache(ctx, target)
}

// extract parses body and hands the tree to fn.
// A parse failure is a parsing error; a panic in either step is an internal error naming what.
func (c *BaseCrawler) extract(what string, body io.Reader, fn func(*goquery.Document)) error {
	var parseErr error
	err := guard(c.Name, what, func() {
		doc, err := ParseDocument(body)
		if err != nil {
			parseErr = err
			return
		}
		fn(doc)
	})
	if err != nil {
		return err
	}
	return parseErr
}

// guard turns a panic inside fn into an internal error naming what was being processed
func guard(provider, what string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewInternal(provider, what, fmt.Errorf("panic: %v", r))
		}
	}()
	fn()
	return nil
}

// finished reports whether err means the crawl ran out of time rather than a page failing
func finished(ctx context.Context, err error) bool {
	return ctx.Err() != nil || stderrors.Is(err, ErrOutOfTime)
}
