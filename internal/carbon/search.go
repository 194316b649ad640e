package carbon

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/search"
)

const (
	searchConfidence   = 0.4
	fallbackReferences = 3
	noValueMethodology = "no numeric value detected"
)

var reEmission = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(g|kg)\s*co2e?`)

func searchQuery(name string) string {
	return name + " product carbon footprint kg CO2e"
}

func (s *Service) search(ctx context.Context, name string) ([]search.Result, error) {
	if s.searcher == nil {
		return nil, common.ProviderUnavailable("search", errNotConfigured)
	}
	start := time.Now()
	results, err := s.searcher.Search(ctx, searchQuery(name), s.maxResults)
	s.metrics.CollaboratorCall("search", time.Since(start), err)
	if err != nil {
		if !common.IsProviderUnavailable(err) {
			err = common.ProviderUnavailable("search", err)
		}
		return nil, err
	}
	return results, nil
}

func (s *Service) estimateSearch(ctx context.Context, name string) (Estimate, error) {
	results, err := s.search(ctx, name)
	if err != nil {
		return Estimate{}, err
	}
	return mineResults(name, results), nil
}

// mineResults scans snippets in order for the first "<n> g|kg co2e" figure.
// Grams are converted to kilograms.
func mineResults(name string, results []search.Result) Estimate {
	est := Estimate{ItemName: name, References: []string{}, Evidence: toEvidence(results)}

	for _, r := range results {
		m := reEmission.FindStringSubmatch(r.Snippet)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if strings.EqualFold(m[2], "g") {
			v /= 1000
		}
		conf := searchConfidence
		method := fmt.Sprintf("Parsed %q from search result %q", strings.TrimSpace(m[0]), r.Title)
		est.EmissionsKgCO2e = &v
		est.Confidence = &conf
		est.Methodology = &method
		if r.URL != "" {
			est.References = []string{r.URL}
		}
		return est
	}

	method := noValueMethodology
	est.Methodology = &method
	for _, r := range results {
		if len(est.References) == fallbackReferences {
			break
		}
		if r.URL != "" {
			est.References = append(est.References, r.URL)
		}
	}
	return est
}

func toEvidence(results []search.Result) []Evidence {
	if len(results) == 0 {
		return nil
	}
	out := make([]Evidence, len(results))
	for i, r := range results {
		out[i] = Evidence{Title: r.Title, URL: r.URL, Snippet: r.Snippet}
	}
	return out
}
