package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// DecodeEstimate validates a model response against EstimateSchema, falling back
// to SanitizeEstimate when strict validation fails. An error means the response
// is unusable; callers turn that into a null estimate.
func DecodeEstimate(raw []byte, logger *slog.Logger) (EstimateFields, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc, err := validateOrSanitize(EstimateSchema(), raw, SanitizeEstimate, logger)
	if err != nil {
		return EstimateFields{}, err
	}
	var out EstimateFields
	if err := json.Unmarshal(doc, &out); err != nil {
		return EstimateFields{}, fmt.Errorf("unmarshal estimate: %w", err)
	}
	if out.References == nil {
		out.References = []string{}
	}
	return out, nil
}

// DecodeBatch decodes a receipt batch response. Entries without a name are dropped.
func DecodeBatch(raw []byte, logger *slog.Logger) ([]ItemEmission, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc, err := validateOrSanitize(BatchSchema(), raw, SanitizeBatch, logger)
	if err != nil {
		return nil, err
	}
	var out struct {
		Items []ItemEmission `json:"items"`
	}
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("unmarshal batch: %w", err)
	}
	items := make([]ItemEmission, 0, len(out.Items))
	for _, it := range out.Items {
		if strings.TrimSpace(it.ItemName) == "" {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

type sanitizer func([]byte) ([]byte, []string, error)

func validateOrSanitize(schema map[string]any, raw []byte, sanitize sanitizer, logger *slog.Logger) ([]byte, error) {
	content := []byte(stripFences(string(raw)))
	err := ValidateJSONAgainstSchema(schema, content)
	if err == nil {
		return content, nil
	}

	cleaned, changed, sErr := sanitize(content)
	if sErr != nil {
		logger.Warn("llm.decode.sanitize_failed", "error", sErr, "raw_bytes", len(content))
		return nil, fmt.Errorf("sanitize failed: %w", sErr)
	}
	if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
		logger.Warn("llm.decode.schema_validation_failed", "error", vErr, "content", string(content))
		return nil, fmt.Errorf("schema validation failed: %w", vErr)
	}
	logger.Warn("llm.decode.lenient_sanitize_applied", "changed", changed)
	return cleaned, nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
