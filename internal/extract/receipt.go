package extract

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type receiptOptions struct {
	limit    int
	currency string
}

// ReceiptOption tunes ExtractItems.
type ReceiptOption func(*receiptOptions)

// WithItemLimit caps the number of emitted items. Non-positive values keep the default.
func WithItemLimit(n int) ReceiptOption {
	return func(o *receiptOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithCurrency overrides the currency stamped on every item.
func WithCurrency(code string) ReceiptOption {
	return func(o *receiptOptions) {
		if c := strings.ToUpper(strings.TrimSpace(code)); c != "" {
			o.currency = c
		}
	}
}

type receiptState int

const (
	awaitingName receiptState = iota
	awaitingPriceOrQty
)

// receiptScanner is the two-state machine behind ExtractItems. pendingName is
// the latest description line not yet consumed by a price line; lastIdx points
// at the most recently emitted item, -1 before the first one.
type receiptScanner struct {
	opts        receiptOptions
	state       receiptState
	pendingName string
	lastIdx     int
	items       []ReceiptItem
}

// ExtractItems turns normalized receipt text into line items in document order.
func ExtractItems(text string, opts ...ReceiptOption) []ReceiptItem {
	o := receiptOptions{limit: DefaultItemLimit, currency: DefaultCurrency}
	for _, fn := range opts {
		fn(&o)
	}

	sc := &receiptScanner{opts: o, state: awaitingName, lastIdx: -1}
	for _, line := range Lines(text) {
		if len(sc.items) >= o.limit {
			break
		}
		sc.feed(line)
	}

	out := make([]ReceiptItem, 0, len(sc.items))
	for _, it := range sc.items {
		if strings.TrimSpace(it.Name) == "" || IsSummaryLine(it.Name) {
			continue
		}
		out = append(out, it)
		if len(out) >= o.limit {
			break
		}
	}
	return out
}

func (sc *receiptScanner) feed(line string) {
	if IsSummaryLine(line) {
		return
	}

	if qtyStr, unitStr, ok := QtyAtPrice(line); ok {
		qty, err := strconv.Atoi(qtyStr)
		if err != nil || qty < 1 {
			return
		}
		unit, err := decimal.NewFromString(unitStr)
		if err != nil {
			return
		}
		total := unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)

		if sc.lastIdx >= 0 {
			it := &sc.items[sc.lastIdx]
			it.Qty, it.UnitPrice, it.Total = qty, unit, total
			return
		}
		sc.emit(ReceiptItem{Name: sc.takeName(), Qty: qty, UnitPrice: unit, Total: total})
		return
	}

	if amount, ok := PriceOnly(line); ok {
		p, err := decimal.NewFromString(amount)
		if err != nil {
			return
		}
		sc.emit(ReceiptItem{Name: sc.takeName(), Qty: 1, UnitPrice: p, Total: p})
		return
	}

	sc.pendingName = line
	sc.state = awaitingPriceOrQty
}

// takeName consumes the pending description; "" when none is waiting.
func (sc *receiptScanner) takeName() string {
	if sc.state != awaitingPriceOrQty {
		return ""
	}
	name := strings.TrimSpace(sc.pendingName)
	sc.pendingName = ""
	sc.state = awaitingName
	return name
}

func (sc *receiptScanner) emit(it ReceiptItem) {
	it.Currency = sc.opts.currency
	sc.items = append(sc.items, it)
	sc.lastIdx = len(sc.items) - 1
}
