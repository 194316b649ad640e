package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral chat completion request.
type Request struct {
	Messages    []Message
	Temperature float32
	// JSON asks the provider for a JSON-object response.
	JSON bool
}

// Completer is the language-model collaborator. It returns the raw content of
// the first choice; decoding is the caller's job.
type Completer interface {
	Complete(ctx context.Context, req Request) ([]byte, error)
}

// EstimateFields is the decoded single-item estimate a model returns.
type EstimateFields struct {
	ItemName        string   `json:"item_name,omitempty"`
	EmissionsKgCO2e *float64 `json:"emissions_kg_co2e"`
	Confidence      *float64 `json:"confidence"`
	Methodology     *string  `json:"methodology"`
	References      []string `json:"references"`
}

// BatchItem is one entry in a receipt batch prompt.
type BatchItem struct {
	ItemName string `json:"item_name"`
	Context  string `json:"context,omitempty"`
}

// ItemEmission is one entry of a batch response.
type ItemEmission struct {
	ItemName        string   `json:"item_name"`
	EmissionsKgCO2e *float64 `json:"emissions_kg_co2e"`
}
