package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/async"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/pipeline"
)

// FSIngestor feeds local files through the document pipeline. Content already
// processed in this run (by SHA-256) is skipped unless forced.
type FSIngestor struct {
	proc   DocumentProcessor
	log    *slog.Logger
	userID string
	kind   constants.DocumentKind // empty: infer per file

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewFSIngestor(proc DocumentProcessor, userID string, kind constants.DocumentKind, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{proc: proc, log: logger, userID: userID, kind: kind, seen: map[string]struct{}{}}
}

// Handle lets the ingestor back an async.ProcessorQueue.
func (i *FSIngestor) Handle(ctx context.Context, job async.Job) error {
	r, err := i.ingest(ctx, job.Path, job.Kind, job.UserID, job.Force)
	if err != nil {
		return err
	}
	if r.Deduplicated {
		i.log.Info("ingest.dedup", "path", r.Path, "sha256", r.HashHex)
	}
	return nil
}

// IngestPath processes one file.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (FileResult, error) {
	return i.ingest(ctx, path, "", "", false)
}

func (i *FSIngestor) ingest(ctx context.Context, path string, kind constants.DocumentKind, userID string, force bool) (FileResult, error) {
	out := FileResult{Path: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.Path = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, common.ValidationErrorf("unsupported or missing extension %q", ext)
	}
	out.Format = constants.MapExtToFormat(ext)

	kind, err = i.resolveKind(abs, kind)
	if err != nil {
		return out, err
	}
	out.Kind = kind

	info, err := os.Stat(abs)
	if err != nil {
		return out, err
	}
	if limit := constants.MaxBytesForFormat(out.Format); limit > 0 && info.Size() > int64(limit) {
		return out, common.NewAppError("PAYLOAD_TOO_LARGE",
			fmt.Sprintf("%s exceeds %dMB", filepath.Base(abs), limit>>20), common.ErrPayloadTooLarge)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return out, err
	}

	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])
	if !force && !i.markSeen(out.HashHex) {
		out.Deduplicated = true
		return out, nil
	}

	if userID == "" {
		userID = i.userID
	}
	in := pipeline.Input{UserID: userID, Kind: kind, Format: out.Format}
	if out.Format == constants.TXT {
		in.Text = string(data)
	} else {
		in.Data = data
	}
	res, err := i.proc.Process(ctx, in)
	if err != nil {
		i.forget(out.HashHex)
		return out, err
	}
	out.Result = res
	return out, nil
}

func (i *FSIngestor) resolveKind(path string, kind constants.DocumentKind) (constants.DocumentKind, error) {
	if kind != "" {
		return kind, nil
	}
	if i.kind != "" {
		return i.kind, nil
	}
	if k, ok := KindFromPath(path); ok {
		return k, nil
	}
	return "", common.ValidationErrorf("cannot infer document kind for %s; pass one explicitly", filepath.Base(path))
}

func (i *FSIngestor) markSeen(hash string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[hash]; ok {
		return false
	}
	i.seen[hash] = struct{}{}
	return true
}

func (i *FSIngestor) forget(hash string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.seen, hash)
}

// IngestDirectory walks root, skips hidden entries if requested, and processes
// each allowed file. When q is non-nil files are enqueued instead of being
// processed inline.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool, q async.Queue) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		if q != nil {
			if err := q.Enqueue(ctx, async.Job{Path: path, UserID: i.userID, Kind: i.kind}); err != nil {
				results = append(results, FileResult{Path: path, Err: err.Error()})
				stats.Failed++
				return nil
			}
			results = append(results, FileResult{Path: path, Queued: true})
			stats.Queued++
			return nil
		}

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			i.log.Warn("ingest.file.failed", "path", path, "error", err)
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.log.Info("ingest.directory.done", "root", root, "matched", stats.Matched, "failed", stats.Failed)
	return results, stats, nil
}
