package carbon

import "encoding/json"

// Item is one thing to estimate.
type Item struct {
	Name    string `json:"name"`
	Context string `json:"context,omitempty"`
}

// Evidence is a raw search hit attached to an estimate.
type Evidence struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Estimate is the normalized result for one item. Strategy is always concrete.
// Null emissions with no error means the providers answered but gave no usable number.
type Estimate struct {
	ItemName        string          `json:"item_name"`
	Strategy        Strategy        `json:"strategy"`
	EmissionsKgCO2e *float64        `json:"emissions_kg_co2e"`
	Confidence      *float64        `json:"confidence"`
	Methodology     *string         `json:"methodology"`
	References      []string        `json:"references"`
	Evidence        []Evidence      `json:"evidence,omitempty"`
	RawResponse     json.RawMessage `json:"raw_response,omitempty"`
}

// ItemEmission is one entry of the simplified receipt batch.
type ItemEmission struct {
	ItemName        string   `json:"item_name"`
	EmissionsKgCO2e *float64 `json:"emissions_kg_co2e"`
}
