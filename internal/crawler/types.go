package crawler

import (
	"context"
	"io"
	"time"
)

// Store is a vendor discovered on the vending listing
type Store struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Item is one row of a store's for-sale table.
// Price is kept as displayed since the origin mixes formats and currency markers.
type Item struct {
	ID         *int   `json:"id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Price      string `json:"price"`
	Refinement string `json:"refinement"`
	Cards      string `json:"cards"`
	SellType   string `json:"sellType"`
}

// VendingEntry joins one matching Item with the store selling it
type VendingEntry struct {
	Store      string `json:"store"`
	StoreID    int    `json:"storeId"`
	Refinement string `json:"refinement"`
	Cards      string `json:"cards"`
	Price      string `json:"price"`
	Quantity   int    `json:"quantity"`
	SellType   string `json:"sellType"`
}

// FoundItem is the identity of the first item that matched a search
type FoundItem struct {
	ID   *int   `json:"id"`
	Name string `json:"name"`
}

// SearchResult is what a search returns to its caller
type SearchResult struct {
	SearchID      string         `json:"id"`
	Item          *FoundItem     `json:"item"`
	Vendings      []VendingEntry `json:"vendings"`
	TotalPages    int            `json:"totalPages"`
	PagesScanned  int            `json:"pagesScanned"`
	StoresScanned int            `json:"storesScanned"`
	SearchTerm    string         `json:"searchTerm"`
	Partial       bool           `json:"partial"`
	Timestamp     time.Time      `json:"timestamp"`
}

// SearchBudget bounds the work done by a single search
type SearchBudget struct {
	MaxPages      int
	MaxStores     int
	RequestDelay  time.Duration
	FallbackPages int
}

// DefaultBudget mirrors the limits the crawler has always shipped with
func DefaultBudget() SearchBudget {
	return SearchBudget{
		MaxPages:      10,
		MaxStores:     50,
		RequestDelay:  500 * time.Millisecond,
		FallbackPages: 1,
	}
}

// StoreListing is the outcome of a directory crawl
type StoreListing struct {
	Stores       []Store
	TotalPages   int
	PagesScanned int
	Partial      bool
}

// Fetcher retrieves the raw markup behind a URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.Reader, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, url string) (io.Reader, error)

// Fetch calls f(ctx, url)
func (f FetcherFunc) Fetch(ctx context.Context, url string) (io.Reader, error) {
	return f(ctx, url)
}

// Selectors contains CSS selectors for the vending pages
type Selectors struct {
	StoreLink  string
	ItemTable  string
	Pagination string
}

// DefaultSelectors match the markup of the vending module
var DefaultSelectors = Selectors{
	StoreLink:  `a[href*="action=viewshop"]`,
	ItemTable:  "table.vending",
	Pagination: ".pagination",
}

// CrawlerConfig contains configuration for the vending crawlers
type CrawlerConfig struct {
	BaseURL   string
	CacheKey  string
	BlockTime time.Duration
	Selectors Selectors
}
