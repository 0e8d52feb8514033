package transfer

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"qrt/internal/codec"
	"qrt/internal/reassembler"
)

// Ingestor accumulates chunk records as files land in a watched directory,
// optionally persisting them to a scan session and rebuilding a file the
// moment its set completes. It satisfies ingest.Handler.
type Ingestor struct {
	svc       *Service
	sessionID string
	auto      bool
	rebuild   RebuildOptions

	mu      sync.Mutex
	batch   *reassembler.Batch
	rebuilt map[string]bool
	log     *slog.Logger
}

// NewIngestor creates an ingestor. sessionID may be empty to skip persistence;
// auto triggers a rebuild with opts whenever a file's last part arrives.
func (s *Service) NewIngestor(sessionID string, auto bool, opts RebuildOptions) *Ingestor {
	return &Ingestor{
		svc:       s,
		sessionID: sessionID,
		auto:      auto,
		rebuild:   opts,
		batch:     reassembler.NewBatch(s.log),
		rebuilt:   make(map[string]bool),
		log:       s.log,
	}
}

func (ing *Ingestor) IngestChunkFile(path string) error {
	const op = "transfer.IngestChunkFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rec, err := codec.Decode(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if ing.sessionID != "" && ing.svc.store != nil {
		if err := ing.svc.store.PutRecord(ing.sessionID, rec, path); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	ing.mu.Lock()
	defer ing.mu.Unlock()

	ing.batch.Add(rec)
	set := ing.batch.Set(rec.Filename)

	ing.log.Info("ingested chunk",
		slog.String("file", rec.Filename),
		slog.Int("part", rec.Index),
		slog.Int("total", rec.Total),
		slog.Int("have", set.Len()),
	)

	if !ing.auto || !set.Complete() || ing.rebuilt[rec.Filename] {
		return nil
	}

	if set.Encrypted() && ing.rebuild.Password == "" {
		ing.log.Warn("set complete but encrypted; rebuild manually with a password",
			slog.String("file", rec.Filename))
		return nil
	}

	r := reassembler.New(ing.svc.engine, ing.log)
	res, err := r.Rebuild(set, reassembler.Options{
		Password:   ing.rebuild.Password,
		OutputDir:  ing.rebuild.OutputDir,
		OutputName: ing.rebuild.OutputName,
		Overwrite:  ing.rebuild.Overwrite,
		VerifyOnly: ing.rebuild.VerifyOnly,
	})
	if err != nil {
		// Leave the set intact; a corrected chunk can still arrive.
		ing.log.Error("auto rebuild failed",
			slog.String("file", rec.Filename),
			slog.String("error", err.Error()),
		)
		return nil
	}

	ing.rebuilt[rec.Filename] = true
	ing.log.Info("auto rebuild complete",
		slog.String("file", res.Filename),
		slog.String("output", res.OutputPath),
	)

	return nil
}

// Batch exposes the accumulated records, for a final sweep when the watch
// loop shuts down.
func (ing *Ingestor) Batch() *reassembler.Batch {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.batch
}
