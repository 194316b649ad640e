package llm

// EstimateSchema describes a single-item estimate. Everything but the shape is
// optional: models routinely omit fields and a partial answer is still useful.
func EstimateSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"item_name":         map[string]any{"type": "string"},
			"emissions_kg_co2e": nullable("number", map[string]any{"minimum": 0.0}),
			"confidence":        nullable("number", map[string]any{"minimum": 0.0, "maximum": 1.0}),
			"methodology":       nullable("string", nil),
			"references": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}

// BatchSchema describes the receipt batch response.
func BatchSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"items"},
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"item_name"},
					"properties": map[string]any{
						"item_name":         map[string]any{"type": "string"},
						"emissions_kg_co2e": nullable("number", nil),
					},
				},
			},
		},
	}
}

func nullable(typ string, extra map[string]any) map[string]any {
	p := map[string]any{"type": []string{typ, "null"}}
	for k, v := range extra {
		p[k] = v
	}
	return p
}
