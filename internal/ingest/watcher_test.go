package ingest

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	paths []string
}

func (h *recordingHandler) IngestChunkFile(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
	return nil
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatcher_IngestsNewChunkFiles(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}

	w, err := NewWatcher(handler, Config{
		DebounceDuration: 20 * time.Millisecond,
		Logger:           testLogger(),
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch(dir))

	chunkPath := filepath.Join(dir, "data_part_01_of_01.txt")
	require.NoError(t, os.WriteFile(chunkPath, []byte("record"), 0644))

	waitFor(t, 2*time.Second, func() bool {
		return len(handler.seen()) == 1
	})
	assert.Equal(t, chunkPath, handler.seen()[0])
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}

	w, err := NewWatcher(handler, Config{
		DebounceDuration: 20 * time.Millisecond,
		Logger:           testLogger(),
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte("img"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunk.txt"), []byte("record"), 0644))

	waitFor(t, 2*time.Second, func() bool {
		return len(handler.seen()) == 1
	})

	time.Sleep(100 * time.Millisecond)
	seen := handler.seen()
	require.Len(t, seen, 1)
	assert.Equal(t, filepath.Join(dir, "chunk.txt"), seen[0])
}

func TestWatcher_WatchRejectsBadPaths(t *testing.T) {
	handler := &recordingHandler{}

	w, err := NewWatcher(handler, Config{Logger: testLogger()})
	require.NoError(t, err)
	defer w.Close()

	assert.ErrorIs(t, w.Watch(filepath.Join(t.TempDir(), "missing")), ErrInvalidPath)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.ErrorIs(t, w.Watch(file), ErrNotADirectory)
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(&recordingHandler{}, Config{Logger: testLogger()})
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWatcher_WatchAfterClose(t *testing.T) {
	w, err := NewWatcher(&recordingHandler{}, Config{Logger: testLogger()})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Watch(t.TempDir()), ErrWatcherClosed)
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Debounce("same-key", func() { calls.Add(1) })
	}

	waitFor(t, time.Second, func() bool {
		return calls.Load() == 1
	})

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncer_SeparateKeys(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	d.Debounce("a", func() { calls.Add(1) })
	d.Debounce("b", func() { calls.Add(1) })

	waitFor(t, time.Second, func() bool {
		return calls.Load() == 2
	})
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	d.Debounce("key", func() { calls.Add(1) })
	d.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDebouncer_NoCallbackAfterStopReturns(t *testing.T) {
	// Race Stop against a firing timer: whatever count Stop observed on
	// return must never grow afterwards.
	for i := 0; i < 50; i++ {
		d := NewDebouncer(time.Millisecond)

		var calls atomic.Int32
		d.Debounce("key", func() { calls.Add(1) })

		time.Sleep(time.Duration(i%3) * time.Millisecond)
		d.Stop()
		atStop := calls.Load()

		time.Sleep(5 * time.Millisecond)
		assert.Equal(t, atStop, calls.Load())
	}
}
