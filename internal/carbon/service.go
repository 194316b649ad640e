package carbon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/llm"
	"github.com/joseph-ayodele/ecoscore/internal/observability"
	"github.com/joseph-ayodele/ecoscore/internal/search"
)

var errNotConfigured = errors.New("not configured")

// Option tunes a Service.
type Option func(*Service)

// WithConcurrency bounds how many items of a batch are estimated at once.
// Values below 2 keep batches sequential.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxResults sets how many search hits each estimate asks for.
func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithMetrics records estimate outcomes and collaborator latency.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service orchestrates carbon estimates over an optional language model and an
// optional web searcher. Either may be nil.
type Service struct {
	model    llm.Completer
	searcher search.Searcher
	log      *slog.Logger
	metrics  *observability.Metrics

	concurrency int
	maxResults  int
}

func NewService(model llm.Completer, searcher search.Searcher, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		model:       model,
		searcher:    searcher,
		log:         logger,
		concurrency: 1,
		maxResults:  search.DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether any estimation strategy can run.
func (s *Service) Enabled() bool { return s.model != nil || s.searcher != nil }

// Estimate produces one estimate for name using the requested strategy.
func (s *Service) Estimate(ctx context.Context, name, extra string, requested Strategy) (Estimate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Estimate{}, common.ValidationErrorf("item name is required")
	}
	strategy, err := s.Resolve(requested)
	if err != nil {
		return Estimate{}, err
	}
	return s.estimate(ctx, name, extra, strategy)
}

// EstimateBatch estimates every item in input order. All names are checked
// before any provider call; one missing name fails the whole batch.
func (s *Service) EstimateBatch(ctx context.Context, items []Item, requested Strategy, fallbackContext string) ([]Estimate, error) {
	if err := validateNames(items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []Estimate{}, nil
	}
	strategy, err := s.Resolve(requested)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	s.log.Info("carbon.batch.start", "items", len(items), "strategy", strategy, "concurrency", s.concurrency)

	out := make([]Estimate, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, it := range items {
		extra := strings.TrimSpace(it.Context)
		if extra == "" {
			extra = fallbackContext
		}
		g.Go(func() error {
			est, err := s.estimate(gctx, strings.TrimSpace(it.Name), extra, strategy)
			if err != nil {
				return fmt.Errorf("item #%d %q: %w", i+1, it.Name, err)
			}
			out[i] = est
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("carbon.batch.error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	s.log.Info("carbon.batch.ok", "items", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// EstimateReceiptItems asks the model once for every item and returns the
// name/emission pairs it answered with. Items the model leaves out are absent;
// callers reconcile by name. An unreadable reply yields an empty list.
func (s *Service) EstimateReceiptItems(ctx context.Context, items []Item, fallbackContext string) ([]ItemEmission, error) {
	if err := validateNames(items); err != nil {
		return nil, err
	}
	if s.model == nil {
		return nil, common.ProviderUnavailable("llm", errNotConfigured)
	}

	batch := make([]llm.BatchItem, len(items))
	for i, it := range items {
		batch[i] = llm.BatchItem{ItemName: it.Name, Context: it.Context}
	}
	req, kept := llm.BuildBatchRequest(batch, fallbackContext)
	if len(kept) == 0 {
		return []ItemEmission{}, nil
	}

	start := time.Now()
	raw, err := s.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	decoded, err := llm.DecodeBatch(raw, s.log)
	if err != nil {
		s.log.Warn("carbon.receipt_batch.malformed", "error", err, "items", len(kept))
		return []ItemEmission{}, nil
	}

	out := make([]ItemEmission, len(decoded))
	for i, d := range decoded {
		out[i] = ItemEmission{ItemName: d.ItemName, EmissionsKgCO2e: d.EmissionsKgCO2e}
	}
	s.log.Info("carbon.receipt_batch.ok",
		"requested", len(kept), "answered", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func validateNames(items []Item) error {
	v := common.NewValidator()
	for i, it := range items {
		v.Field(fmt.Sprintf("items[%d].name", i), strings.TrimSpace(it.Name), common.Required)
	}
	return v.Error()
}

func (s *Service) estimate(ctx context.Context, name, extra string, strategy Strategy) (Estimate, error) {
	start := time.Now()
	var (
		est Estimate
		err error
	)
	switch strategy {
	case StrategySearch:
		est, err = s.estimateSearch(ctx, name)
	case StrategyLLM:
		est, err = s.estimateLLM(ctx, name, extra, nil)
	case StrategyLLMSearch:
		est, err = s.estimateLLMSearch(ctx, name, extra)
	default:
		return Estimate{}, common.ValidationErrorf("unknown strategy %q", strategy)
	}

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case est.EmissionsKgCO2e == nil:
		outcome = "null"
	}
	s.metrics.EstimateDone(string(strategy), outcome, time.Since(start))
	if err != nil {
		s.log.Error("carbon.estimate.error", "item", name, "strategy", strategy, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Estimate{}, err
	}
	est.Strategy = strategy
	s.log.Debug("carbon.estimate.ok", "item", name, "strategy", strategy, "outcome", outcome,
		"elapsed_ms", time.Since(start).Milliseconds())
	return est, nil
}

func (s *Service) estimateLLMSearch(ctx context.Context, name, extra string) (Estimate, error) {
	if s.model == nil {
		return Estimate{}, common.ProviderUnavailable("llm", errNotConfigured)
	}
	results, err := s.search(ctx, name)
	if err != nil {
		return Estimate{}, err
	}
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = fmt.Sprintf("%s: %s (%s)", r.Title, r.Snippet, r.URL)
	}
	est, err := s.estimateLLM(ctx, name, extra, lines)
	if err != nil {
		return Estimate{}, err
	}
	est.Evidence = toEvidence(results)
	return est, nil
}

func (s *Service) complete(ctx context.Context, req llm.Request) ([]byte, error) {
	start := time.Now()
	raw, err := s.model.Complete(ctx, req)
	s.metrics.CollaboratorCall("llm", time.Since(start), err)
	if err != nil && !common.IsProviderUnavailable(err) {
		err = common.ProviderUnavailable("llm", err)
	}
	return raw, err
}
