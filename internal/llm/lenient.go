package llm

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var errNotObject = errors.New("reply is not a JSON object")

// SanitizeEstimate coerces the usual model slips in an estimate object so it can
// pass EstimateSchema: numbers sent as strings ("1.2 kg"), "null" strings,
// percentages for confidence, a bare string for references. Unknown keys are
// left alone. It returns the cleaned document and the keys it touched.
func SanitizeEstimate(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}
	if m == nil {
		return nil, nil, errNotObject
	}
	var changed []string
	touch := func(k string, v any) {
		m[k] = v
		changed = append(changed, k)
	}

	if v, ok := m["item_name"]; ok {
		if _, isStr := v.(string); !isStr {
			delete(m, "item_name")
			changed = append(changed, "item_name")
		}
	}

	if v, ok := m["emissions_kg_co2e"]; ok {
		f, isNum := v.(float64)
		n := coerceNumber(v)
		switch {
		case n != nil && *n < 0:
			touch("emissions_kg_co2e", nil)
		case n == nil && v != nil:
			touch("emissions_kg_co2e", nil)
		case n != nil && (!isNum || f != *n):
			touch("emissions_kg_co2e", *n)
		}
	}

	if v, ok := m["confidence"]; ok {
		n := coerceNumber(v)
		if n != nil && *n > 1 && *n <= 100 {
			pct := *n / 100
			n = &pct
		}
		switch {
		case n == nil || *n < 0 || *n > 1:
			if v != nil {
				touch("confidence", nil)
			}
		default:
			if f, isNum := v.(float64); !isNum || f != *n {
				touch("confidence", *n)
			}
		}
	}

	if v, ok := m["methodology"]; ok && v != nil {
		if _, isStr := v.(string); !isStr {
			touch("methodology", nil)
		}
	}

	if v, ok := m["references"]; ok {
		switch t := v.(type) {
		case []any:
			refs := make([]any, 0, len(t))
			for _, r := range t {
				if s, isStr := r.(string); isStr && strings.TrimSpace(s) != "" {
					refs = append(refs, strings.TrimSpace(s))
				}
			}
			if len(refs) != len(t) {
				touch("references", refs)
			}
		case string:
			if s := strings.TrimSpace(t); s != "" {
				touch("references", []any{s})
			} else {
				touch("references", []any{})
			}
		default:
			touch("references", []any{})
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, changed, nil
}

// SanitizeBatch applies the number coercion to every entry of a batch response
// and drops entries whose name is missing or not a string.
func SanitizeBatch(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}
	if m == nil {
		return nil, nil, errNotObject
	}
	var changed []string

	raw, _ := m["items"].([]any)
	items := make([]any, 0, len(raw))
	for _, e := range raw {
		entry, ok := e.(map[string]any)
		if !ok {
			changed = append(changed, "items[]")
			continue
		}
		if s, isStr := entry["item_name"].(string); !isStr || strings.TrimSpace(s) == "" {
			changed = append(changed, "items[].item_name")
			continue
		}
		if v, has := entry["emissions_kg_co2e"]; has {
			if n := coerceNumber(v); n != nil {
				entry["emissions_kg_co2e"] = *n
			} else {
				entry["emissions_kg_co2e"] = nil
			}
		}
		items = append(items, entry)
	}
	m["items"] = items

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, changed, nil
}

// coerceNumber reads a JSON value as a number. Strings may carry a unit suffix
// ("0.8 kg", "1,200 kg co2e"). Anything else yields nil.
func coerceNumber(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		s = strings.TrimSuffix(s, "co2e")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "kg"))
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		s = strings.ReplaceAll(s, ",", "")
		if s == "" || s == "null" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
