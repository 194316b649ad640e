package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

const documentTextDetection = "DOCUMENT_TEXT_DETECTION"

// VisionDetector calls Cloud Vision document text detection with an English hint.
type VisionDetector struct {
	svc *vision.Service
	log *slog.Logger
}

// NewVisionDetector builds the Vision client. Credentials come from opts or
// application default credentials.
func NewVisionDetector(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*VisionDetector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionDetector{svc: svc, log: logger}, nil
}

func (d *VisionDetector) DetectText(ctx context.Context, image []byte) (string, error) {
	start := time.Now()
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:        &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features:     []*vision.Feature{{Type: documentTextDetection}},
			ImageContext: &vision.ImageContext{LanguageHints: []string{"en"}},
		}},
	}
	resp, err := d.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", errors.New("vision annotate: empty response")
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return "", fmt.Errorf("vision annotate: %s", r.Error.Message)
	}
	text := ""
	if r.FullTextAnnotation != nil {
		text = r.FullTextAnnotation.Text
	}
	d.log.Debug("ocr.vision.ok", "chars", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
