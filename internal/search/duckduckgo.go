package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/ecoscore/internal/common"
)

const duckDuckGoName = "duckduckgo"

// DuckDuckGoConfig configures the keyless HTML search provider.
type DuckDuckGoConfig struct {
	BaseURL string // default https://html.duckduckgo.com/html/
	Timeout time.Duration
	Limiter *rate.Limiter
}

// DuckDuckGo scrapes the DuckDuckGo HTML results page.
type DuckDuckGo struct {
	cfg        DuckDuckGoConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewDuckDuckGo(cfg DuckDuckGoConfig, logger *slog.Logger) *DuckDuckGo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://html.duckduckgo.com/html/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DuckDuckGo{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}, log: logger}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if err := d.cfg.Limiter.Wait(ctx); err != nil {
		return nil, common.ProviderUnavailable(duckDuckGoName, fmt.Errorf("rate limit wait: %w", err))
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.BaseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ecoscore/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.log.Error("search.duckduckgo.error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.ProviderUnavailable(duckDuckGoName, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			d.log.Warn("search.duckduckgo.body_close_error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, common.ProviderUnavailable(duckDuckGoName, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	out, err := parseDuckDuckGoHTML(resp.Body, maxResults)
	if err != nil {
		return nil, common.ProviderUnavailable(duckDuckGoName, err)
	}
	d.log.Info("search.duckduckgo.ok", "results", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func parseDuckDuckGoHTML(body io.Reader, maxResults int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	out := []Result{}
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(link.Text()),
			URL:     resolveRedirect(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(out) < maxResults
	})
	return out, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
