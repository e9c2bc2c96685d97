package crawler

import (
	"context"
	"testing"

	"sjsage522/vendingsearch/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestItemFromCells(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  Item
	}{
		{
			name:  "all seven columns",
			cells: []string{"501", "Red Potion", "10", "50z", "+7", "Poring Card", "ZENY"},
			want: Item{
				ID: intPtr(501), Name: "Red Potion", Quantity: 10, Price: "50z",
				Refinement: "+7", Cards: "Poring Card", SellType: "ZENY",
			},
		},
		{
			name:  "four columns take defaults",
			cells: []string{"607", "Yggdrasil Berry", "3", "5,000"},
			want: Item{
				ID: intPtr(607), Name: "Yggdrasil Berry", Quantity: 3, Price: "5,000",
				Refinement: "0", Cards: "", SellType: "CASH",
			},
		},
		{
			name:  "id embedded in text",
			cells: []string{"#1101 (slot)", "Sword", "1", "100z"},
			want: Item{
				ID: intPtr(1101), Name: "Sword", Quantity: 1, Price: "100z",
				Refinement: "0", SellType: "CASH",
			},
		},
		{
			name:  "missing id and odd quantity",
			cells: []string{"", "Mystery Box", "1,200 ea", "1.000.000 z"},
			want: Item{
				Name: "Mystery Box", Quantity: 1200, Price: "1.000.000 z",
				Refinement: "0", SellType: "CASH",
			},
		},
		{
			name:  "quantity without digits",
			cells: []string{"909", "Jellopy", "n/a", "1z", "", "", ""},
			want: Item{
				ID: intPtr(909), Name: "Jellopy", Quantity: 0, Price: "1z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, itemFromCells(tt.cells))
		})
	}
}

func TestListItems(t *testing.T) {
	fetcher := newFakeFetcher().page(storeURL(7), storeHTML(
		[]string{"501", "Red Potion", "10", "50z"},
		[]string{"502", "Orange Potion", "5"},
		[]string{"503", "Yellow Potion", "2", "90z", "0", "", "CASH"},
	))
	f := NewItemFetcher(testConfig(), fetcher, NewMockCacheService())

	items, err := f.ListItems(context.Background(), 7, NewPacer(0))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Red Potion", items[0].Name)
	assert.Equal(t, "Yellow Potion", items[1].Name)
	assert.Equal(t, []string{storeURL(7)}, fetcher.Calls())
}

func TestListItemsWithoutTable(t *testing.T) {
	fetcher := newFakeFetcher().page(storeURL(7), `<html><body>Shop closed</body></html>`)
	f := NewItemFetcher(testConfig(), fetcher, NewMockCacheService())

	items, err := f.ListItems(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestListItemsFetchFailure(t *testing.T) {
	fetcher := newFakeFetcher().fail(storeURL(7), errors.NewNetwork("origin", "timeout", nil))
	f := NewItemFetcher(testConfig(), fetcher, NewMockCacheService())

	items, err := f.ListItems(context.Background(), 7, nil)
	require.Error(t, err)
	assert.Nil(t, items)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
}

func TestListItemsPanicIsInternal(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.readers[storeURL(7)] = panicReader{}
	f := NewItemFetcher(testConfig(), fetcher, NewMockCacheService())

	_, err := f.ListItems(context.Background(), 7, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
	assert.Contains(t, err.Error(), "store 7")
}
