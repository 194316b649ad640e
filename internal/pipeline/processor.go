package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/carbon"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/events"
	"github.com/joseph-ayodele/ecoscore/internal/extract"
	"github.com/joseph-ayodele/ecoscore/internal/observability"
	"github.com/joseph-ayodele/ecoscore/internal/ocr"
	"github.com/joseph-ayodele/ecoscore/internal/repository"
)

// TextSource turns document bytes into raw text. *ocr.Extractor implements it.
type TextSource interface {
	Extract(ctx context.Context, format string, data []byte) (ocr.Result, error)
}

// Estimator is the slice of *carbon.Service the pipeline needs.
type Estimator interface {
	Enabled() bool
	Estimate(ctx context.Context, name, extra string, requested carbon.Strategy) (carbon.Estimate, error)
	EstimateReceiptItems(ctx context.Context, items []carbon.Item, fallbackContext string) ([]carbon.ItemEmission, error)
}

// Input is one document to process. Data is OCR'd according to Format unless
// Text is already set.
type Input struct {
	UserID       string
	Kind         constants.DocumentKind
	Format       string
	Data         []byte
	Text         string
	Context      string
	VehicleType  string
	SkipEstimate bool
	SkipPersist  bool
}

// Result is everything learned about one document.
type Result struct {
	Kind          constants.DocumentKind       `json:"kind"`
	OCRMethod     string                       `json:"ocr_method,omitempty"`
	OCRConfidence float32                      `json:"ocr_confidence,omitempty"`
	CleanedText   string                       `json:"cleaned_text"`
	LikelyItems   []string                     `json:"likely_items,omitempty"`
	Items         []extract.ReceiptItem        `json:"items,omitempty"`
	Energy        *extract.EnergyBillRecord    `json:"energy,omitempty"`
	Trip          *extract.TransportTripRecord `json:"trip,omitempty"`
	ItemEmissions []carbon.ItemEmission        `json:"item_emissions,omitempty"`
	Estimate      *carbon.Estimate             `json:"estimate,omitempty"`
	Emissions     *float64                     `json:"emissions_kg_co2e"`
	VehicleType   constants.VehicleType        `json:"vehicle_type,omitempty"`
	RecordID      *uuid.UUID                   `json:"record_id,omitempty"`
	Status        constants.JobStatus          `json:"status"`
}

type Option func(*Processor)

func WithItemLimit(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.itemLimit = n
		}
	}
}

func WithOCRTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.ocrTimeout = d
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithStrategy sets the strategy used for energy and ride estimates. Empty
// keeps auto.
func WithStrategy(st carbon.Strategy) Option {
	return func(p *Processor) {
		if st != "" {
			p.strategy = st
		}
	}
}

// Processor runs OCR, extraction, estimation, persistence and publishing for
// one document. Any collaborator may be nil; the matching stage is skipped
// (or, for OCR of binary input, reported as provider-unavailable).
type Processor struct {
	text       TextSource
	carbon     Estimator
	records    repository.RecordRepository
	publisher  events.Publisher
	metrics    *observability.Metrics
	log        *slog.Logger
	itemLimit  int
	ocrTimeout time.Duration
	strategy   carbon.Strategy
}

func NewProcessor(text TextSource, est Estimator, records repository.RecordRepository, pub events.Publisher, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.Noop{}
	}
	p := &Processor{
		text:      text,
		carbon:    est,
		records:   records,
		publisher: pub,
		log:       logger,
		itemLimit: extract.DefaultItemLimit,
		strategy:  carbon.StrategyAuto,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessText runs the pipeline on text that was already recovered.
func (p *Processor) ProcessText(ctx context.Context, userID string, kind constants.DocumentKind, text, extra string) (*Result, error) {
	return p.Process(ctx, Input{UserID: userID, Kind: kind, Text: text, Context: extra})
}

// Process handles one document end to end.
func (p *Processor) Process(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	res, err := p.process(ctx, in)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		p.log.Error("pipeline.failed",
			"req_id", common.RequestIDFromContext(ctx),
			"kind", in.Kind,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	} else {
		p.log.Info("pipeline.ok",
			"req_id", common.RequestIDFromContext(ctx),
			"kind", res.Kind,
			"status", res.Status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
	p.metrics.DocumentProcessed(string(in.Kind), outcome)
	return res, err
}

func (p *Processor) process(ctx context.Context, in Input) (*Result, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	res := &Result{Kind: in.Kind, Status: constants.JobStatusRunning}

	raw := in.Text
	if raw == "" {
		if p.text == nil {
			return nil, common.ProviderUnavailable("ocr", errors.New("no text source configured"))
		}
		octx, cancel := p.withOCRTimeout(ctx)
		o, err := p.text.Extract(octx, in.Format, in.Data)
		cancel()
		if err != nil {
			return nil, err
		}
		raw = o.Text
		res.OCRMethod, res.OCRConfidence = o.Method, o.Confidence
		res.Status = constants.JobStatusOCROK
	}

	doc, err := extract.Parse(in.Kind, raw, extract.Options{ItemLimit: p.itemLimit})
	if err != nil {
		return nil, err
	}
	res.CleanedText = doc.CleanedText
	res.LikelyItems = doc.LikelyItems
	res.Items = doc.Items
	res.Energy = doc.Energy
	res.Trip = doc.Trip
	if in.Kind == constants.KindTransport {
		res.VehicleType, _ = constants.CanonicalizeVehicle(in.VehicleType)
	}
	res.Status = constants.JobStatusParsed

	if !in.SkipEstimate && p.carbon != nil && p.carbon.Enabled() {
		if err := p.estimate(ctx, in, res); err != nil {
			return nil, err
		}
	}

	if !in.SkipPersist && p.records != nil && strings.TrimSpace(in.UserID) != "" {
		rec := toRecord(in.UserID, res)
		if err := p.records.Append(ctx, rec); err != nil {
			return nil, err
		}
		res.RecordID = &rec.ID
		if err := p.publisher.Publish(ctx, rec); err != nil {
			p.log.Warn("pipeline.publish.failed", "record_id", rec.ID, "error", err)
		}
	}
	return res, nil
}

func validateInput(in Input) error {
	v := common.NewValidator().
		Field("kind", string(in.Kind), common.Required, common.OneOf(constants.Kinds()...))
	if in.Text == "" {
		v.Field("format", in.Format, common.Required, common.OneOf(constants.FileTypes...))
	}
	return v.Error()
}

func (p *Processor) withOCRTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.ocrTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.ocrTimeout)
}

func (p *Processor) estimate(ctx context.Context, in Input, res *Result) error {
	switch in.Kind {
	case constants.KindReceipt:
		if len(res.Items) == 0 {
			return nil
		}
		items := make([]carbon.Item, len(res.Items))
		for i, it := range res.Items {
			items[i] = carbon.Item{Name: it.Name}
		}
		fallback := in.Context
		if strings.TrimSpace(fallback) == "" {
			fallback = res.CleanedText
		}
		got, err := p.carbon.EstimateReceiptItems(ctx, items, fallback)
		if err != nil {
			return err
		}
		res.ItemEmissions = reconcile(res.Items, got)
		res.Emissions = sumEmissions(res.ItemEmissions)
	case constants.KindEnergy:
		name, extra, ok := energyQuery(res.Energy)
		if !ok {
			return common.ValidationErrorf("energy bill: total kWh not found")
		}
		return p.estimateOne(ctx, name, joinContext(extra, in.Context), res)
	case constants.KindTransport:
		name, extra, ok := tripQuery(res.Trip, res.VehicleType)
		if !ok {
			return nil
		}
		return p.estimateOne(ctx, name, joinContext(extra, in.Context), res)
	}
	return nil
}

func (p *Processor) estimateOne(ctx context.Context, name, extra string, res *Result) error {
	est, err := p.carbon.Estimate(ctx, name, extra, p.strategy)
	if err != nil {
		return fmt.Errorf("estimate %q: %w", name, err)
	}
	res.Estimate = &est
	res.Emissions = est.EmissionsKgCO2e
	if est.EmissionsKgCO2e != nil {
		res.Status = constants.JobStatusEstimated
	}
	return nil
}

// reconcile lines model answers up with extracted items by name. Items the
// model skipped keep a nil emission.
func reconcile(items []extract.ReceiptItem, got []carbon.ItemEmission) []carbon.ItemEmission {
	byName := make(map[string][]*float64, len(got))
	for _, g := range got {
		k := nameKey(g.ItemName)
		byName[k] = append(byName[k], g.EmissionsKgCO2e)
	}
	out := make([]carbon.ItemEmission, len(items))
	for i, it := range items {
		out[i] = carbon.ItemEmission{ItemName: it.Name}
		k := nameKey(it.Name)
		if vals := byName[k]; len(vals) > 0 {
			out[i].EmissionsKgCO2e = vals[0]
			byName[k] = vals[1:]
		}
	}
	return out
}

func nameKey(s string) string { return strings.ToLower(strings.Join(strings.Fields(s), " ")) }

func sumEmissions(items []carbon.ItemEmission) *float64 {
	var sum float64
	known := false
	for _, it := range items {
		if it.EmissionsKgCO2e != nil {
			sum += *it.EmissionsKgCO2e
			known = true
		}
	}
	if !known {
		return nil
	}
	return &sum
}

func joinContext(parts ...string) string {
	var keep []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			keep = append(keep, s)
		}
	}
	return strings.Join(keep, "; ")
}
