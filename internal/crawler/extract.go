package crawler

import (
	"io"
	"strings"

	"sjsage522/vendingsearch/helpers"
	"sjsage522/vendingsearch/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// minItemCells is the number of cells a row needs to be read as an item
const minItemCells = 4

// StoreLink is a store anchor found on a listing page
type StoreLink struct {
	ID   int
	Text string
}

// ParseDocument builds a navigable tree from raw markup
func ParseDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, errors.NewParsing("extractor", "failed to parse HTML", err)
	}
	return doc, nil
}

// ExtractStoreLinks returns every store anchor carrying a numeric id, in document order.
// Anchors without a usable id are skipped.
func ExtractStoreLinks(doc *goquery.Document, sel Selectors) []StoreLink {
	if doc == nil {
		return nil
	}

	var links []StoreLink
	doc.Find(sel.StoreLink).Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		id, ok := helpers.QueryParamInt(href, "id")
		if !ok || id <= 0 {
			return
		}
		links = append(links, StoreLink{
			ID:   id,
			Text: strings.TrimSpace(s.Text()),
		})
	})
	return links
}

// ExtractItemRows returns the trimmed cell texts of each data row of the item table.
// Row 0 is the header and is always dropped; rows with fewer than four cells are dropped too.
func ExtractItemRows(doc *goquery.Document, sel Selectors) [][]string {
	if doc == nil {
		return nil
	}

	table := doc.Find(sel.ItemTable).First()
	if table.Length() == 0 {
		return nil
	}
	tableNode := table.Get(0)

	var rows [][]string
	index := 0
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// rows of tables nested inside a cell belong to that cell
		if tr.Closest("table").Get(0) != tableNode {
			return
		}
		position := index
		index++
		if position == 0 {
			return
		}

		cells := tr.ChildrenFiltered("td")
		if cells.Length() < minItemCells {
			return
		}

		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, texts)
	})
	return rows
}

// ExtractMaxPage returns the highest page number linked from the pagination block, or 1.
func ExtractMaxPage(doc *goquery.Document, sel Selectors) int {
	maxPage := 1
	if doc == nil {
		return maxPage
	}

	pagination := doc.Find(sel.Pagination).First()
	if pagination.Length() == 0 {
		return maxPage
	}

	pagination.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if page, ok := helpers.QueryParamInt(href, "p"); ok && page > maxPage {
			maxPage = page
		}
	})
	return maxPage
}
