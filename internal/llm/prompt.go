package llm

import (
	"encoding/json"
	"strings"
)

// DefaultTemperature keeps estimates close to deterministic.
const DefaultTemperature float32 = 0.2

const (
	analystPrompt = "You are a sustainability analyst producing factual carbon footprint estimates. " +
		"Cite trustworthy public sources whenever possible."

	batchAnalystPrompt = "You are a sustainability analyst producing factual carbon footprint estimates. " +
		"Try your best to find the estimate for each item. " +
		"If absolutely unsure even about the estimate, only then return 1.0 kg CO2e."
)

// BuildEstimateRequest composes the single-item estimate request. Evidence
// lines are rendered as a bullet list after any extra context.
func BuildEstimateRequest(itemName, context string, evidence []string) Request {
	var b strings.Builder
	b.WriteString("Estimate the carbon emissions for the product '")
	b.WriteString(itemName)
	b.WriteString("'. Prefer quantitative answers in kilograms of CO2e. ")
	b.WriteString("Return a JSON object with keys item_name, emissions_kg_co2e, confidence (0-1), ")
	b.WriteString("methodology, and references (list of URLs).")

	if c := strings.TrimSpace(context); c != "" {
		b.WriteString("\nAdditional context:\n")
		b.WriteString(c)
	}
	if len(evidence) > 0 {
		b.WriteString("\nSupporting evidence:")
		for _, e := range evidence {
			b.WriteString("\n- ")
			b.WriteString(e)
		}
	}

	return Request{
		Temperature: DefaultTemperature,
		JSON:        true,
		Messages: []Message{
			{Role: "system", Content: analystPrompt},
			{Role: "user", Content: b.String()},
		},
	}
}

// BuildBatchRequest composes one request covering every named item. Items
// without a name are skipped; an empty result means there is nothing to ask.
func BuildBatchRequest(items []BatchItem, sharedContext string) (Request, []BatchItem) {
	kept := make([]BatchItem, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.ItemName)
		if name == "" {
			continue
		}
		c := strings.TrimSpace(it.Context)
		if c == "" {
			c = strings.TrimSpace(sharedContext)
		}
		kept = append(kept, BatchItem{ItemName: name, Context: c})
	}
	if len(kept) == 0 {
		return Request{}, nil
	}

	itemsJSON, _ := json.Marshal(kept)
	user := "You are given a list of grocery or retail items. " +
		"Estimate the carbon emissions per item (kg CO2e). " +
		`Respond with JSON: {"items":[{"item_name":<str>,"emissions_kg_co2e":<number|null>}]}.` +
		"\nItems JSON:\n" + string(itemsJSON)

	return Request{
		Temperature: DefaultTemperature,
		JSON:        true,
		Messages: []Message{
			{Role: "system", Content: batchAnalystPrompt},
			{Role: "user", Content: user},
		},
	}, kept
}
