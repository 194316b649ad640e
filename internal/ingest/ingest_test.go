package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/async"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/pipeline"
)

type fakeProcessor struct {
	mu     sync.Mutex
	inputs []pipeline.Input
	err    error
}

func (f *fakeProcessor) Process(_ context.Context, in pipeline.Input) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{Kind: in.Kind}, nil
}

type recordingQueue struct {
	jobs []async.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Shutdown(context.Context) {}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestKindFromPath(t *testing.T) {
	k, ok := KindFromPath(filepath.Join("data", "rides", "2025", "trip.png"))
	require.True(t, ok)
	assert.Equal(t, constants.KindTransport, k)

	k, ok = KindFromPath(filepath.Join("in", "Energy", "bill.pdf"))
	require.True(t, ok)
	assert.Equal(t, constants.KindEnergy, k)

	_, ok = KindFromPath(filepath.Join("misc", "scan.png"))
	assert.False(t, ok)
}

func TestIngestDirectoryInline(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "receipts", "a.txt"), "MILK\n3.49")
	write(t, filepath.Join(root, "receipts", "dup.txt"), "MILK\n3.49")
	write(t, filepath.Join(root, "energy", "bill.png"), "png-bytes")
	write(t, filepath.Join(root, "energy", "notes.docx"), "ignored")
	write(t, filepath.Join(root, ".cache", "receipts", "x.txt"), "hidden")
	write(t, filepath.Join(root, "unknown", "scan.png"), "no kind")

	proc := &fakeProcessor{}
	ing := NewFSIngestor(proc, "u1", "", nil)

	results, stats, err := ing.IngestDirectory(context.Background(), root, true, nil)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Len(t, results, 4)

	require.Len(t, proc.inputs, 2)
	for _, in := range proc.inputs {
		assert.Equal(t, "u1", in.UserID)
		switch in.Kind {
		case constants.KindReceipt:
			assert.Equal(t, "MILK\n3.49", in.Text)
			assert.Nil(t, in.Data)
		case constants.KindEnergy:
			assert.Equal(t, constants.IMAGE, in.Format)
			assert.Equal(t, []byte("png-bytes"), in.Data)
		default:
			t.Fatalf("unexpected kind %q", in.Kind)
		}
	}
}

func TestIngestPathErrors(t *testing.T) {
	root := t.TempDir()
	ing := NewFSIngestor(&fakeProcessor{}, "u", constants.KindReceipt, nil)

	_, err := ing.IngestPath(context.Background(), filepath.Join(root, "a.docx"))
	assert.True(t, common.IsValidation(err))

	big := filepath.Join(root, "big.png")
	require.NoError(t, os.WriteFile(big, make([]byte, constants.MaxImageBytes+1), 0o644))
	_, err = ing.IngestPath(context.Background(), big)
	assert.ErrorIs(t, err, common.ErrPayloadTooLarge)

	failing := &fakeProcessor{err: errors.New("ocr down")}
	ing = NewFSIngestor(failing, "u", constants.KindReceipt, nil)
	p := filepath.Join(root, "r.txt")
	write(t, p, "TEA\n2.00")
	_, err = ing.IngestPath(context.Background(), p)
	require.Error(t, err)
	_, err = ing.IngestPath(context.Background(), p)
	require.Error(t, err, "failed content is not remembered as seen")
	assert.Len(t, failing.inputs, 2)
}

func TestIngestDirectoryEnqueues(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a.pdf"), "%PDF")
	write(t, filepath.Join(root, "b.jpg"), "jpg")

	q := &recordingQueue{}
	ing := NewFSIngestor(&fakeProcessor{}, "u", constants.KindEnergy, nil)
	_, stats, err := ing.IngestDirectory(context.Background(), root, false, q)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), stats.Queued)
	require.Len(t, q.jobs, 2)
	assert.Equal(t, constants.KindEnergy, q.jobs[0].Kind)
}

func TestHandleBacksProcessorQueue(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "rides", "trip.txt")
	write(t, p, "Uber\n4.2 mi")

	proc := &fakeProcessor{}
	ing := NewFSIngestor(proc, "u", "", nil)
	q := async.NewProcessorQueue(ing, nil, async.WithWorkers(2))
	require.NoError(t, q.Enqueue(context.Background(), async.Job{Path: p, UserID: "other"}))
	require.NoError(t, q.Enqueue(context.Background(), async.Job{Path: p, UserID: "other", Force: true}))
	q.Shutdown(context.Background())

	require.Len(t, proc.inputs, 2)
	assert.Equal(t, "other", proc.inputs[0].UserID)
	assert.Equal(t, constants.KindTransport, proc.inputs[0].Kind)
	assert.Equal(t, async.Stats{Succeeded: 2}, q.Stats())
}

func TestWatcherEmitsNewFiles(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "existing.pdf"), "%PDF")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	evCh, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true})
	require.NoError(t, err)

	select {
	case p := <-evCh:
		assert.Equal(t, filepath.Join(root, "existing.pdf"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not emit")
	}

	write(t, filepath.Join(root, "new.png"), "png")
	write(t, filepath.Join(root, "skip.docx"), "x")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-evCh:
			require.NotEqual(t, filepath.Join(root, "skip.docx"), p)
			if p == filepath.Join(root, "new.png") {
				return
			}
		case <-deadline:
			t.Fatal("watcher did not emit new file")
		}
	}
}
