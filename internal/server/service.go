package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/carbon"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/entity"
	"github.com/joseph-ayodele/ecoscore/internal/extract"
	"github.com/joseph-ayodele/ecoscore/internal/ocr"
	"github.com/joseph-ayodele/ecoscore/internal/pipeline"
	"github.com/joseph-ayodele/ecoscore/internal/repository"
	"github.com/joseph-ayodele/ecoscore/internal/utils"
)

type DocumentProcessor interface {
	Process(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

type CarbonEstimator interface {
	Estimate(ctx context.Context, name, extra string, requested carbon.Strategy) (carbon.Estimate, error)
	EstimateBatch(ctx context.Context, items []carbon.Item, requested carbon.Strategy, fallbackContext string) ([]carbon.Estimate, error)
	EstimateReceiptItems(ctx context.Context, items []carbon.Item, fallbackContext string) ([]carbon.ItemEmission, error)
}

type Exporter interface {
	ExportRecordsXLSX(ctx context.Context, userID string, from, to *time.Time) ([]byte, error)
}

// Deps are the collaborators behind the RPCs. Nil members make their RPCs
// report Unavailable.
type Deps struct {
	Processor DocumentProcessor
	Text      pipeline.TextSource
	Carbon    CarbonEstimator
	Records   repository.RecordRepository
	Exporter  Exporter
}

// Service implements ecoscore.v1.EcoScore over google.protobuf.Struct messages.
type Service struct {
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

func NewService(deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, logger: logger, now: time.Now}
}

type documentRequest struct {
	Kind         string `json:"kind"`
	Format       string `json:"format"`
	Filename     string `json:"filename"`
	Content      string `json:"content_base64"`
	Text         string `json:"text"`
	Context      string `json:"context"`
	VehicleType  string `json:"vehicle_type"`
	SkipEstimate bool   `json:"skip_estimate"`
	DryRun       bool   `json:"dry_run"`
}

// ProcessDocument runs the full pipeline on an uploaded document or on text.
func (s *Service) ProcessDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Processor == nil {
		return nil, unavailable("document processing")
	}
	var r documentRequest
	if err := utils.FromStruct(req, &r); err != nil {
		return nil, common.ToStatus(common.ValidationErrorf("%v", err))
	}
	kind, ok := constants.ParseKind(r.Kind)
	if !ok {
		return nil, common.ToStatus(common.ValidationErrorf("kind must be one of %s", strings.Join(constants.Kinds(), ", ")))
	}
	if err := common.NewValidator().Field("context", r.Context, common.MaxLength(maxContextRunes)).Error(); err != nil {
		return nil, common.ToStatus(err)
	}

	in := pipeline.Input{
		UserID:       common.UserIDFromContext(ctx),
		Kind:         kind,
		Context:      r.Context,
		VehicleType:  r.VehicleType,
		SkipEstimate: r.SkipEstimate,
		SkipPersist:  r.DryRun,
	}
	if strings.TrimSpace(r.Text) != "" {
		in.Text = r.Text
	} else {
		format, data, err := decodeDocument(r)
		if err != nil {
			return nil, common.ToStatus(err)
		}
		if format == constants.TXT {
			in.Text = string(data)
		} else {
			in.Format, in.Data = format, data
		}
	}

	res, err := s.deps.Processor.Process(ctx, in)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(res)
}

// ExtractText returns raw OCR text plus the normalized text and likely item lines.
func (s *Service) ExtractText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Text == nil {
		return nil, unavailable("ocr")
	}
	var r documentRequest
	if err := utils.FromStruct(req, &r); err != nil {
		return nil, common.ToStatus(common.ValidationErrorf("%v", err))
	}
	format, data, err := decodeDocument(r)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	res, err := s.deps.Text.Extract(ctx, format, data)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	cleaned := extract.Normalize(res.Text)
	return toStruct(map[string]any{
		"text":         res.Text,
		"cleaned_text": cleaned,
		"likely_items": orEmpty(extract.LikelyItemLines(cleaned, extract.DefaultItemLimit)),
		"method":       res.Method,
		"confidence":   res.Confidence,
		"chars":        len([]rune(cleaned)),
	})
}

const maxContextRunes = 2000

type estimateRequest struct {
	ItemName string `json:"item_name"`
	Context  string `json:"context"`
	Strategy string `json:"strategy"`
}

func (s *Service) EstimateCarbon(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Carbon == nil {
		return nil, unavailable("carbon estimation")
	}
	var r estimateRequest
	if err := utils.FromStruct(req, &r); err != nil {
		return nil, common.ToStatus(common.ValidationErrorf("%v", err))
	}
	strategy, err := carbon.ParseStrategy(r.Strategy)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	est, err := s.deps.Carbon.Estimate(ctx, r.ItemName, r.Context, strategy)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(est)
}

type batchRequest struct {
	Items    []carbon.Item `json:"items"`
	Strategy string        `json:"strategy"`
	Context  string        `json:"context"`
}

func (s *Service) EstimateBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Carbon == nil {
		return nil, unavailable("carbon estimation")
	}
	var r batchRequest
	if err := utils.FromStruct(req, &r); err != nil {
		return nil, common.ToStatus(common.ValidationErrorf("%v", err))
	}
	strategy, err := carbon.ParseStrategy(r.Strategy)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	out, err := s.deps.Carbon.EstimateBatch(ctx, r.Items, strategy, r.Context)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"results": orEmpty(out)})
}

func (s *Service) EstimateReceiptItems(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Carbon == nil {
		return nil, unavailable("carbon estimation")
	}
	var r batchRequest
	if err := utils.FromStruct(req, &r); err != nil {
		return nil, common.ToStatus(common.ValidationErrorf("%v", err))
	}
	out, err := s.deps.Carbon.EstimateReceiptItems(ctx, r.Items, r.Context)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"items": orEmpty(out)})
}

func (s *Service) ListRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Records == nil {
		return nil, unavailable("records")
	}
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	var r struct {
		Kind string `json:"kind"`
	}
	if err := utils.FromStruct(req, &r); err != nil {
		return nil, common.ToStatus(common.ValidationErrorf("%v", err))
	}
	var kind constants.DocumentKind
	if strings.TrimSpace(r.Kind) != "" {
		k, ok := constants.ParseKind(r.Kind)
		if !ok {
			return nil, common.ToStatus(common.ValidationErrorf("unknown kind %q", r.Kind))
		}
		kind = k
	}
	recs, err := s.deps.Records.List(ctx, userID, kind)
	if err != nil {
		s.logger.Error("failed to list records", "user_id", userID, "error", err)
		return nil, common.ToStatus(err)
	}
	s.logger.Info("records listed", "user_id", userID, "kind", kind, "count", len(recs))
	return toStruct(map[string]any{"records": orEmpty[*entity.Record](recs)})
}

func (s *Service) ExportRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Exporter == nil {
		return nil, unavailable("export")
	}
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	var r struct {
		FromDate string `json:"from_date"`
		ToDate   string `json:"to_date"`
	}
	if err := utils.FromStruct(req, &r); err != nil {
		return nil, common.ToStatus(common.ValidationErrorf("%v", err))
	}
	from, err := utils.ParseOptionalYMD(r.FromDate)
	if err != nil {
		return nil, common.ToStatus(common.ValidationErrorf("from_date must be YYYY-MM-DD"))
	}
	to, err := utils.ParseOptionalYMD(r.ToDate)
	if err != nil {
		return nil, common.ToStatus(common.ValidationErrorf("to_date must be YYYY-MM-DD"))
	}
	// only from given: export through today
	if from != nil && to == nil {
		today, _ := utils.ParseYMD(s.now().UTC().Format("2006-01-02"))
		to = &today
	}

	xlsx, err := s.deps.Exporter.ExportRecordsXLSX(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "user_id", userID, "error", err)
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{
		"filename":       fmt.Sprintf("ecoscore-%s.xlsx", s.now().UTC().Format("20060102")),
		"mime_type":      "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"content_base64": base64.StdEncoding.EncodeToString(xlsx),
	})
}

// decodeDocument resolves the format and decodes the base64 body.
func decodeDocument(r documentRequest) (string, []byte, error) {
	format := resolveFormat(r)
	if format == "" {
		return "", nil, common.ValidationErrorf("format is required (one of %s) or derivable from filename", strings.Join(constants.FileTypes, ", "))
	}
	data, err := ocr.DecodeBase64Payload(r.Content)
	if err != nil {
		return "", nil, err
	}
	return format, data, nil
}

func resolveFormat(r documentRequest) string {
	if f := strings.ToUpper(strings.TrimSpace(r.Format)); f != "" {
		for _, known := range constants.FileTypes {
			if f == known {
				return f
			}
		}
		return constants.MapExtToFormat(f)
	}
	if r.Filename != "" {
		if i := strings.LastIndex(r.Filename, "."); i >= 0 {
			return constants.MapExtToFormat(r.Filename[i+1:])
		}
	}
	content := strings.TrimSpace(r.Content)
	switch {
	case strings.HasPrefix(content, "data:application/pdf"):
		return constants.PDF
	case strings.HasPrefix(content, "data:image/"):
		return constants.IMAGE
	case strings.HasPrefix(content, "data:text/plain"):
		return constants.TXT
	}
	return ""
}

func requireUser(ctx context.Context) (string, error) {
	userID := common.UserIDFromContext(ctx)
	if userID == "" {
		return "", common.ToStatus(common.NewAppError("UNAUTHENTICATED", "caller identity required", common.ErrUnauthorized))
	}
	return userID, nil
}

func unavailable(what string) error {
	return common.ToStatus(common.ProviderUnavailable(what, nil))
}

func toStruct(v any) (*structpb.Struct, error) {
	s, err := utils.ToStruct(v)
	if err != nil {
		return nil, common.ToStatus(fmt.Errorf("%w: %v", common.ErrInternal, err))
	}
	return s, nil
}

// orEmpty keeps JSON arrays from rendering as null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
