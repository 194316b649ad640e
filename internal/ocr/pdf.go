package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoTextLayer is returned for PDFs that have no extractable text.
var ErrNoTextLayer = errors.New("pdf has no text layer; scanned pdfs must be converted to images first")

// PDFTextReader reads the embedded text layer in-process.
type PDFTextReader struct{}

func (PDFTextReader) PDFText(ctx context.Context, data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		b.WriteString(txt)
		b.WriteString("\n")
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrNoTextLayer
	}
	return text, nil
}

// PdftotextReader runs poppler's pdftotext, which copes with layouts the
// in-process reader mangles.
type PdftotextReader struct {
	Bin    string
	Runner Runner
}

func (p PdftotextReader) PDFText(ctx context.Context, data []byte) (string, error) {
	f, err := os.CreateTemp("", "ecoscore-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("pdftotext temp file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("pdftotext temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("pdftotext temp file: %w", err)
	}

	bin := p.Bin
	if bin == "" {
		bin = "pdftotext"
	}
	runner := p.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	stdout, stderr, err := runner.Run(ctx, bin, "-layout", "-enc", "UTF-8", "-eol", "unix", f.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w; stderr=%s", err, truncate(string(stderr), 2048))
	}
	text := strings.TrimSpace(string(stdout))
	if text == "" {
		return "", ErrNoTextLayer
	}
	return text, nil
}

// FallbackPDFReader tries each reader in order and returns the first
// non-empty text.
type FallbackPDFReader []PDFReader

func (f FallbackPDFReader) PDFText(ctx context.Context, data []byte) (string, error) {
	var errs []error
	for _, r := range f {
		text, err := r.PDFText(ctx, data)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", errors.New("no pdf readers configured")
	}
	return "", errors.Join(errs...)
}
