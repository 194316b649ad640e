package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/llm"
	"github.com/joseph-ayodele/ecoscore/internal/utils"
)

const providerName = "openai"

var errNotConfigured = errors.New("OPENAI_API_KEY is not configured")

// Complete implements llm.Completer against chat/completions. Transport
// failures, timeouts and non-2xx replies are provider-unavailable errors.
func (c *Client) Complete(ctx context.Context, req llm.Request) ([]byte, error) {
	if !c.Configured() {
		return nil, common.ProviderUnavailable(providerName, errNotConfigured)
	}
	rid := uuid.New().String()
	start := time.Now()

	temp := req.Temperature
	if temp == 0 {
		temp = c.cfg.Temperature
	}
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": temp,
		"messages":    req.Messages,
	}
	if req.JSON {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	c.log.Info("llm.complete.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", temp,
		"messages", len(req.Messages),
	)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := utils.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.complete.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.ProviderUnavailable(providerName, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.complete.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.ProviderUnavailable(providerName, fmt.Errorf("decode openai response: %w", err))
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.complete.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.ProviderUnavailable(providerName, errors.New("no choices in openai response"))
	}

	content := contentText(cc.Choices[0].Message.Content)
	c.log.Info("llm.complete.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return []byte(content), nil
}

// contentText flattens message content, which is either a string or a list of
// parts with a "text" field.
func contentText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, p := range parts {
			b.WriteString(p.Text)
		}
		return strings.TrimSpace(b.String())
	}
	return ""
}
