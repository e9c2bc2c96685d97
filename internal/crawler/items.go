package crawler

import (
	"context"
	"fmt"
	"strings"

	"sjsage522/vendingsearch/helpers"
	"sjsage522/vendingsearch/services/cache"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultRefinement = "0"
	defaultSellType   = "CASH"
)

// ItemFetcher reads the item table of a single store
type ItemFetcher struct {
	BaseCrawler
}

// NewItemFetcher creates a new item fetcher
func NewItemFetcher(config CrawlerConfig, fetcher Fetcher, cacheSvc cache.CacheService) *ItemFetcher {
	return &ItemFetcher{
		BaseCrawler: newBaseCrawler("ItemFetcher", config, fetcher, cacheSvc),
	}
}

// ListItems returns the store's items in table order.
// Fetch failures come back as errors so the caller can log and skip the store;
// a page without an item table is simply an empty store.
func (c *ItemFetcher) ListItems(ctx context.Context, storeID int, pacer *Pacer) ([]Item, error) {
	body, err := c.fetchPage(ctx, pacer, c.storeURL(storeID))
	if err != nil {
		return nil, err
	}

	var items []Item
	err = c.extract(fmt.Sprintf("extracting items of store %d", storeID), body, func(doc *goquery.Document) {
		rows := ExtractItemRows(doc, c.Selectors)
		items = make([]Item, 0, len(rows))
		for _, cells := range rows {
			items = append(items, itemFromCells(cells))
		}
	})
	if err != nil {
		return nil, err
	}

	c.log.Debug().Int("store_id", storeID).Int("items", len(items)).Msg("Store items extracted")
	return items, nil
}

// itemFromCells maps a row positionally: id, name, quantity, price, refinement, cards, sell type
func itemFromCells(cells []string) Item {
	item := Item{
		Refinement: defaultRefinement,
		SellType:   defaultSellType,
	}

	if id, ok := helpers.FirstNumber(cells[0]); ok {
		item.ID = &id
	}
	item.Name = strings.TrimSpace(cells[1])
	item.Quantity = helpers.DigitsOnly(cells[2])
	item.Price = strings.TrimSpace(cells[3])

	if len(cells) > 4 {
		item.Refinement = strings.TrimSpace(cells[4])
	}
	if len(cells) > 5 {
		item.Cards = strings.TrimSpace(cells[5])
	}
	if len(cells) > 6 {
		item.SellType = strings.TrimSpace(cells[6])
	}
	return item
}
