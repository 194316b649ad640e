package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TesseractDetector shells out to the tesseract CLI.
type TesseractDetector struct {
	Bin         string
	Lang        string
	TessdataDir string
	Runner      Runner
}

func (d TesseractDetector) DetectText(ctx context.Context, image []byte) (string, error) {
	f, err := os.CreateTemp("", "ecoscore-ocr-*")
	if err != nil {
		return "", fmt.Errorf("tesseract temp file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("tesseract temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("tesseract temp file: %w", err)
	}

	args := []string{f.Name(), "stdout", "-l", d.lang()}
	if d.TessdataDir != "" {
		args = append(args, "--tessdata-dir", d.TessdataDir)
	}
	stdout, stderr, err := d.runner().Run(ctx, d.bin(), args...)
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w; stderr=%s", err, truncate(string(stderr), 2048))
	}
	return strings.TrimSpace(string(stdout)), nil
}

func (d TesseractDetector) bin() string {
	if d.Bin == "" {
		return "tesseract"
	}
	return d.Bin
}

func (d TesseractDetector) lang() string {
	if d.Lang == "" {
		return "eng"
	}
	return d.Lang
}

func (d TesseractDetector) runner() Runner {
	if d.Runner == nil {
		return ExecRunner{}
	}
	return d.Runner
}
