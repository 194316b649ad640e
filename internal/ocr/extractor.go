package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/observability"
)

// TextDetector turns image bytes into raw text.
type TextDetector interface {
	DetectText(ctx context.Context, image []byte) (string, error)
}

// PDFReader pulls the text layer out of a PDF.
type PDFReader interface {
	PDFText(ctx context.Context, pdf []byte) (string, error)
}

// Result is raw recognized text plus bookkeeping.
type Result struct {
	Text       string
	Format     string // constants.IMAGE | constants.PDF
	Method     string
	Bytes      int
	Confidence float32
	Duration   time.Duration
}

// Extractor enforces the size guards and delegates to the configured collaborators.
type Extractor struct {
	detector TextDetector
	pdf      PDFReader
	log      *slog.Logger
	metrics  *observability.Metrics
}

// NewExtractor wires an image detector and a PDF reader. Either may be nil, in
// which case that input kind is provider-unavailable.
func NewExtractor(detector TextDetector, pdf PDFReader, logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{detector: detector, pdf: pdf, log: logger, metrics: metrics}
}

// Extract dispatches on format (constants.IMAGE or constants.PDF).
func (e *Extractor) Extract(ctx context.Context, format string, data []byte) (Result, error) {
	switch format {
	case constants.IMAGE:
		return e.ExtractImage(ctx, data)
	case constants.PDF:
		return e.ExtractPDF(ctx, data)
	case constants.TXT:
		if err := guardSize(constants.TXT, data); err != nil {
			return Result{}, err
		}
		return Result{Text: string(data), Format: constants.TXT, Method: "plain-text", Bytes: len(data), Confidence: 1}, nil
	default:
		return Result{}, common.ValidationErrorf("unsupported document format %q", format)
	}
}

// ExtractImage runs document text detection on an image of at most 10 MiB.
func (e *Extractor) ExtractImage(ctx context.Context, data []byte) (Result, error) {
	if err := guardSize(constants.IMAGE, data); err != nil {
		return Result{}, err
	}
	if e.detector == nil {
		return Result{}, common.ProviderUnavailable("ocr", errors.New("no image text detector configured"))
	}
	start := time.Now()
	text, err := e.detector.DetectText(ctx, data)
	e.metrics.CollaboratorCall("ocr", time.Since(start), err)
	if err != nil {
		e.log.Error("ocr.image.error", "bytes", len(data), "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Result{}, asProviderError("ocr", err)
	}
	res := Result{
		Text:       text,
		Format:     constants.IMAGE,
		Method:     "image-ocr",
		Bytes:      len(data),
		Confidence: heuristicConfidence(text),
		Duration:   time.Since(start),
	}
	e.log.Info("ocr.image.ok", "bytes", len(data), "chars", len(text), "confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}

// ExtractPDF reads the text layer of a PDF of at most 20 MiB. Scanned PDFs
// without a text layer are reported as a provider error.
func (e *Extractor) ExtractPDF(ctx context.Context, data []byte) (Result, error) {
	if err := guardSize(constants.PDF, data); err != nil {
		return Result{}, err
	}
	if e.pdf == nil {
		return Result{}, common.ProviderUnavailable("pdf", errors.New("no pdf reader configured"))
	}
	start := time.Now()
	text, err := e.pdf.PDFText(ctx, data)
	e.metrics.CollaboratorCall("pdf", time.Since(start), err)
	if err != nil {
		e.log.Error("ocr.pdf.error", "bytes", len(data), "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Result{}, asProviderError("pdf", err)
	}
	res := Result{
		Text:       text,
		Format:     constants.PDF,
		Method:     "pdf-text",
		Bytes:      len(data),
		Confidence: heuristicConfidence(text),
		Duration:   time.Since(start),
	}
	e.log.Info("ocr.pdf.ok", "bytes", len(data), "chars", len(text), "elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}

func guardSize(format string, data []byte) error {
	if len(data) == 0 {
		return common.NewAppError("EMPTY_INPUT", fmt.Sprintf("empty %s", formatNoun(format)), common.ErrEmptyInput)
	}
	if limit := constants.MaxBytesForFormat(format); limit > 0 && len(data) > limit {
		return common.NewAppError("PAYLOAD_TOO_LARGE",
			fmt.Sprintf("%s too large (>%dMB)", formatNoun(format), limit>>20), common.ErrPayloadTooLarge)
	}
	return nil
}

func formatNoun(format string) string {
	switch format {
	case constants.PDF:
		return "pdf"
	case constants.TXT:
		return "text"
	default:
		return "image"
	}
}

func asProviderError(provider string, err error) error {
	if common.IsProviderUnavailable(err) {
		return err
	}
	return common.ProviderUnavailable(provider, err)
}
