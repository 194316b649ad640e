package carbon

import (
	"context"
	"encoding/json"

	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/llm"
)

// estimateLLM asks the model for a structured estimate. A reply that cannot be
// decoded becomes a null estimate, not an error.
func (s *Service) estimateLLM(ctx context.Context, name, extra string, evidence []string) (Estimate, error) {
	if s.model == nil {
		return Estimate{}, common.ProviderUnavailable("llm", errNotConfigured)
	}
	raw, err := s.complete(ctx, llm.BuildEstimateRequest(name, extra, evidence))
	if err != nil {
		return Estimate{}, err
	}

	est := Estimate{ItemName: name, References: []string{}, RawResponse: rawJSON(raw)}
	fields, err := llm.DecodeEstimate(raw, s.log)
	if err != nil {
		s.log.Warn("carbon.llm.malformed_response", "item", name, "error", err)
		return est, nil
	}
	if fields.ItemName != "" {
		est.ItemName = fields.ItemName
	}
	est.EmissionsKgCO2e = fields.EmissionsKgCO2e
	est.Confidence = fields.Confidence
	est.Methodology = fields.Methodology
	est.References = fields.References
	return est, nil
}

// rawJSON keeps valid JSON as-is and wraps anything else as a JSON string.
func rawJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	b, _ := json.Marshal(string(raw))
	return b
}
