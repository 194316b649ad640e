package extract

import (
	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/common"
)

// Document is the structured result of one extraction. Exactly one of Items,
// Energy or Trip is set, matching Kind.
type Document struct {
	Kind        constants.DocumentKind `json:"kind"`
	CleanedText string                 `json:"cleaned_text,omitempty"`
	LikelyItems []string               `json:"likely_items,omitempty"`
	Items       []ReceiptItem          `json:"items,omitempty"`
	Energy      *EnergyBillRecord      `json:"energy,omitempty"`
	Trip        *TransportTripRecord   `json:"trip,omitempty"`
}

// Options tune Parse.
type Options struct {
	ItemLimit int
}

// Parse normalizes raw text and runs the extractor for kind.
func Parse(kind constants.DocumentKind, raw string, opts Options) (Document, error) {
	cleaned := Normalize(raw)
	doc := Document{Kind: kind, CleanedText: cleaned}

	switch kind {
	case constants.KindReceipt:
		doc.LikelyItems = LikelyItemLines(cleaned, opts.ItemLimit)
		doc.Items = ExtractItems(cleaned, WithItemLimit(opts.ItemLimit))
	case constants.KindEnergy:
		rec := ExtractEnergy(cleaned)
		doc.Energy = &rec
	case constants.KindTransport:
		rec := ExtractTrip(cleaned)
		doc.Trip = &rec
	default:
		return Document{}, common.ValidationErrorf("unsupported document kind %q", kind)
	}
	return doc, nil
}
