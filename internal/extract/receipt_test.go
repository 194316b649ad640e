package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

const groceryReceipt = `WHOLE FOODS MARKET
ORGANIC BANANAS
1.18
2 @ 0.59
MILK
$3.49
SUBTOTAL
4.67
TAX
0.00
TOTAL
4.67
VISA
4.67`

func TestExtractItemsGrocery(t *testing.T) {
	items := ExtractItems(groceryReceipt)
	require.Len(t, items, 2)

	assert.Equal(t, "ORGANIC BANANAS", items[0].Name)
	assert.Equal(t, 2, items[0].Qty)
	assertMoney(t, "0.59", items[0].UnitPrice)
	assertMoney(t, "1.18", items[0].Total)

	assert.Equal(t, "MILK", items[1].Name)
	assert.Equal(t, 1, items[1].Qty)
	assertMoney(t, "3.49", items[1].UnitPrice)
	assertMoney(t, "3.49", items[1].Total)

	for _, it := range items {
		assert.Equal(t, "USD", it.Currency)
	}
}

func TestExtractItemsQtyLineWithoutPriorItem(t *testing.T) {
	items := ExtractItems("APPLES\n3 @ 2.50")
	require.Len(t, items, 1)
	assert.Equal(t, "APPLES", items[0].Name)
	assert.Equal(t, 3, items[0].Qty)
	assertMoney(t, "7.50", items[0].Total)

	assert.Empty(t, ExtractItems("3 @ 2.50"), "stub without a name is dropped")
}

func TestExtractItemsQtyTotalsAreExact(t *testing.T) {
	tests := []struct {
		line  string
		qty   int
		total string
	}{
		{"7 @ 1.99", 7, "13.93"},
		{"3 @ $0.10", 3, "0.30"},
		{"12 @ 0.35", 12, "4.20"},
		{"1 @ 19.99", 1, "19.99"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			items := ExtractItems("WIDGET\n" + tt.line)
			require.Len(t, items, 1)
			it := items[0]
			assert.Equal(t, tt.qty, it.Qty)
			assertMoney(t, tt.total, it.Total)
			assert.True(t, it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))).Round(2).Equal(it.Total))
		})
	}
}

func TestExtractItemsConsecutivePriceLinesDoNotReuseName(t *testing.T) {
	items := ExtractItems("COFFEE BEANS\n12.99\n12.99\nFILTERS\n4.50")
	require.Len(t, items, 2)
	assert.Equal(t, "COFFEE BEANS", items[0].Name)
	assert.Equal(t, "FILTERS", items[1].Name)
}

func TestExtractItemsNeverNamedBySummaryLines(t *testing.T) {
	text := strings.Join([]string{
		"TOTAL SAVINGS", "5.00",
		"Items in transaction: 3", "1.00",
		"CASH TENDERED", "20.00",
		"Mastercard", "9.99",
		"EGGS", "2.99",
	}, "\n")
	items := ExtractItems(text)
	require.Len(t, items, 1)
	assert.Equal(t, "EGGS", items[0].Name)
	for _, it := range items {
		assert.False(t, IsSummaryLine(it.Name))
	}
}

func TestExtractItemsLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 70; i++ {
		fmt.Fprintf(&b, "ITEM %d\n1.00\n", i)
	}
	assert.Len(t, ExtractItems(b.String()), DefaultItemLimit)
	assert.Len(t, ExtractItems(b.String(), WithItemLimit(5)), 5)
	assert.Len(t, ExtractItems(b.String(), WithItemLimit(0)), DefaultItemLimit)
}

func TestExtractItemsCurrencyOption(t *testing.T) {
	items := ExtractItems("TEA\n2.00", WithCurrency("cad"))
	require.Len(t, items, 1)
	assert.Equal(t, "CAD", items[0].Currency)
}
