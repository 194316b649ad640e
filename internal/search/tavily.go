package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/utils"
)

const tavilyName = "tavily"

// TavilyConfig configures the Tavily client.
type TavilyConfig struct {
	APIKey  string
	APIURL  string // default https://api.tavily.com/search
	Timeout time.Duration
	Limiter *rate.Limiter
}

// Tavily queries the Tavily search API.
type Tavily struct {
	cfg        TavilyConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewTavily(cfg TavilyConfig, logger *slog.Logger) *Tavily {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.tavily.com/search"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tavily{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}, log: logger}
}

func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if t.cfg.APIKey == "" {
		return nil, common.ProviderUnavailable(tavilyName, errors.New("TAVILY_API_KEY is not configured"))
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if err := t.cfg.Limiter.Wait(ctx); err != nil {
		return nil, common.ProviderUnavailable(tavilyName, fmt.Errorf("rate limit wait: %w", err))
	}

	start := time.Now()
	body := map[string]any{
		"api_key":      t.cfg.APIKey,
		"query":        query,
		"search_depth": "advanced",
		"max_results":  maxResults,
	}
	raw, status, err := utils.SendJSON(ctx, t.httpClient, t.cfg.APIURL, body, nil, t.log)
	if err != nil {
		t.log.Error("search.tavily.error", "status", status, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.ProviderUnavailable(tavilyName, err)
	}

	var resp struct {
		Results []struct {
			Title   *string `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, common.ProviderUnavailable(tavilyName, fmt.Errorf("decode tavily response: %w", err))
	}

	out := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		title := "Untitled"
		if r.Title != nil {
			title = *r.Title
		}
		out = append(out, Result{Title: title, URL: r.URL, Snippet: r.Content})
	}
	t.log.Info("search.tavily.ok", "results", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}
