package ocr

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/api/option"

	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/observability"
)

// NewFromConfig builds an Extractor with the configured image detector and a
// PDF reader that falls back to pdftotext when the in-process reader finds nothing.
func NewFromConfig(ctx context.Context, cfg common.OCRConfig, logger *slog.Logger, metrics *observability.Metrics) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	runner := ExecRunner{Logger: logger}

	var detector TextDetector
	switch strings.ToLower(cfg.Provider) {
	case "", "vision":
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		v, err := NewVisionDetector(ctx, logger, opts...)
		if err != nil {
			return nil, common.ProviderUnavailable("vision", err)
		}
		detector = v
	case "tesseract":
		detector = TesseractDetector{
			Bin:         cfg.Tesseract,
			Lang:        cfg.TesseractLang,
			TessdataDir: cfg.TessdataDir,
			Runner:      runner,
		}
	case "none":
	default:
		return nil, common.ValidationErrorf("unknown OCR provider %q", cfg.Provider)
	}

	pdfReader := FallbackPDFReader{
		PDFTextReader{},
		PdftotextReader{Bin: cfg.Pdftotext, Runner: runner},
	}
	return NewExtractor(detector, pdfReader, logger, metrics), nil
}
