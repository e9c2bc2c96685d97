package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"sjsage522/vendingsearch/pkg/errors"
	"sjsage522/vendingsearch/services/cache"
)

const testBaseURL = "https://vending.test/"

func listingURL(page int) string {
	return fmt.Sprintf("%s?module=vending&p=%d", testBaseURL, page)
}

func storeURL(id int) string {
	return fmt.Sprintf("%s?module=vending&action=viewshop&id=%d", testBaseURL, id)
}

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

var _ cache.CacheService = (*MockCacheService)(nil)

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

// fakeFetcher serves canned markup keyed by URL and records every request
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	errs    map[string]error
	readers map[string]io.Reader
	calls   []string
	onFetch func(url string)
}

var _ Fetcher = (*fakeFetcher)(nil)

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:   make(map[string]string),
		errs:    make(map[string]error),
		readers: make(map[string]io.Reader),
	}
}

func (f *fakeFetcher) page(url, html string) *fakeFetcher {
	f.pages[url] = html
	return f
}

func (f *fakeFetcher) fail(url string, err error) *fakeFetcher {
	f.errs[url] = err
	return f
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (io.Reader, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewNetwork(url, "failed to fetch URL", err)
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if r, ok := f.readers[url]; ok {
		return r, nil
	}
	if html, ok := f.pages[url]; ok {
		return strings.NewReader(html), nil
	}
	return nil, errors.NewNetwork(url, "unexpected status code: 404", nil)
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// panicReader blows up inside the HTML parser
type panicReader struct{}

func (panicReader) Read([]byte) (int, error) {
	panic("reader exploded")
}

// listingHTML renders a directory page linking to stores, with pagination up to pages (none when 0)
func listingHTML(pages int, stores ...Store) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Vending - Hero</title></head><body><table class="horizontal-table">`)
	b.WriteString(`<tr><th>Shop</th><th>Owner</th></tr>`)
	for _, s := range stores {
		fmt.Fprintf(&b, `<tr><td><a href="?module=vending&amp;action=viewshop&amp;id=%d"><span>%s</span></a></td><td>someone</td></tr>`, s.ID, s.Name)
	}
	b.WriteString(`</table>`)
	if pages > 0 {
		b.WriteString(`<div class="pagination">`)
		for p := 1; p <= pages; p++ {
			fmt.Fprintf(&b, `<a href="?module=vending&amp;p=%d">%d</a> `, p, p)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// storeHTML renders a store page whose item table has a header row followed by rows
func storeHTML(rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Shop</title></head><body><table class="vending">`)
	b.WriteString(`<tr><th>Item ID</th><th>Name</th><th>Amount</th><th>Price</th><th>Refine</th><th>Cards</th><th>Type</th></tr>`)
	for _, row := range rows {
		b.WriteString(`<tr>`)
		for _, cell := range row {
			fmt.Fprintf(&b, `<td>%s</td>`, cell)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

func testConfig() CrawlerConfig {
	return CrawlerConfig{
		BaseURL:   testBaseURL,
		CacheKey:  "vending_rate_limited",
		BlockTime: time.Minute,
	}
}

func fastBudget() SearchBudget {
	return SearchBudget{
		MaxPages:      10,
		MaxStores:     50,
		FallbackPages: 1,
	}
}
