package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/pipeline"
)

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path         string                 `json:"path"`
	Kind         constants.DocumentKind `json:"kind,omitempty"`
	Format       string                 `json:"format,omitempty"`
	HashHex      string                 `json:"sha256,omitempty"`
	Deduplicated bool                   `json:"deduplicated,omitempty"`
	Queued       bool                   `json:"queued,omitempty"`
	Result       *pipeline.Result       `json:"result,omitempty"`
	Err          string                 `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Queued       uint32 `json:"queued"`
	Failed       uint32 `json:"failed"`
}

// DocumentProcessor is satisfied by *pipeline.Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

// AllowedExt checks a file extension against constants.AllowedExtensions.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// KindFromPath infers the document kind from the nearest parent directory
// whose name is a known kind alias (e.g. receipts/, energy/, rides/).
func KindFromPath(path string) (constants.DocumentKind, bool) {
	dir := filepath.Dir(path)
	for {
		if k, ok := constants.ParseKind(filepath.Base(dir)); ok {
			return k, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
