package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/ecoscore/internal/common"
)

// DefaultMaxResults is used when a caller passes a non-positive limit.
const DefaultMaxResults = 5

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher is the web search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// New builds the configured searcher wrapped in the result cache. It returns
// nil, nil when search is disabled or lacks credentials.
func New(cfg common.SearchConfig, logger *slog.Logger) (Searcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	limiter := newLimiter(cfg.RPS)

	var s Searcher
	switch cfg.Provider {
	case "tavily":
		if cfg.APIKey == "" {
			logger.Warn("search.disabled", "provider", cfg.Provider, "reason", "TAVILY_API_KEY not set")
			return nil, nil
		}
		s = NewTavily(TavilyConfig{
			APIKey:  cfg.APIKey,
			APIURL:  cfg.APIURL,
			Timeout: cfg.Timeout,
			Limiter: limiter,
		}, logger)
	case "duckduckgo":
		s = NewDuckDuckGo(DuckDuckGoConfig{Timeout: cfg.Timeout, Limiter: limiter}, logger)
	case "", "none":
		return nil, nil
	default:
		return nil, common.ValidationErrorf("unknown search provider %q", cfg.Provider)
	}

	if cfg.CacheTTL > 0 {
		s = NewCached(s, cfg.CacheTTL)
	}
	logger.Info("search.enabled", "provider", cfg.Provider, "cache_ttl", cfg.CacheTTL.String())
	return s, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(float64(time.Second)/rps)), 1)
}
