package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"qrt/internal/util/logger/sl"
)

const (
	DefaultDebounceDuration = 500 * time.Millisecond
	DefaultBufferSize       = 64
)

// Handler consumes a chunk file that appeared in the watched directory.
type Handler interface {
	IngestChunkFile(path string) error
}

type Config struct {
	DebounceDuration time.Duration
	BufferSize       int
	// Extensions filters which files count as chunk files. Defaults to .txt.
	Extensions []string
	Logger     *slog.Logger
}

// Watcher feeds newly arrived chunk files to a Handler. The chunk directory
// is flat, so watching is non-recursive.
type Watcher struct {
	watcher   *fsnotify.Watcher
	handler   Handler
	config    Config
	log       *slog.Logger
	debouncer *Debouncer
	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewWatcher(h Handler, config Config) (*Watcher, error) {
	if config.DebounceDuration == 0 {
		config.DebounceDuration = DefaultDebounceDuration
	}
	if config.BufferSize == 0 {
		config.BufferSize = DefaultBufferSize
	}
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".txt"}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:   watcher,
		handler:   h,
		config:    config,
		log:       config.Logger,
		debouncer: NewDebouncer(config.DebounceDuration),
		stopChan:  make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Watch starts watching a chunk directory.
func (w *Watcher) Watch(dir string) error {
	select {
	case <-w.stopChan:
		return ErrWatcherClosed
	default:
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w.log.Info("watching for chunk files", slog.String("dir", dir))
	return nil
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopChan)
		w.debouncer.Stop()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.shouldProcess(event) {
				w.processEvent(event)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", sl.Err(err))
		}
	}
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, want := range w.config.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvent(event fsnotify.Event) {
	path := event.Name
	w.debouncer.Debounce(path, func() {
		if err := w.handler.IngestChunkFile(path); err != nil {
			w.log.Warn("failed to ingest chunk file",
				slog.String("path", path),
				sl.Err(err),
			)
		}
	})
}
