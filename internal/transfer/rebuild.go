package transfer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"qrt/internal/codec"
	"qrt/internal/crypto"
	"qrt/internal/reassembler"
	"qrt/internal/util/logger/sl"
)

type CollectOptions struct {
	// ChunkDir is scanned for *.txt chunk record files.
	ChunkDir string
	// SessionID pulls previously ingested records from the session store.
	SessionID string
}

// CollectRecords gathers chunk records from a directory, a stored session, or
// both, grouped per filename. Records that fail to parse are logged and
// skipped; the rest of the batch is unaffected.
func (s *Service) CollectRecords(opts CollectOptions) (*reassembler.Batch, error) {
	const op = "transfer.CollectRecords"

	batch := reassembler.NewBatch(s.log)

	if opts.ChunkDir != "" {
		if err := s.collectDir(batch, opts.ChunkDir); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if opts.SessionID != "" {
		if s.store == nil {
			return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
		}
		stored, err := s.store.Records(opts.SessionID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, sr := range stored {
			batch.Add(sr.Record)
		}
	}

	if batch.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoChunksFound)
	}

	return batch, nil
}

func (s *Service) collectDir(batch *reassembler.Batch, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read chunk dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("skipping unreadable chunk file",
				slog.String("path", path), sl.Err(err))
			continue
		}

		rec, err := codec.Decode(string(data))
		if err != nil {
			s.log.Warn("skipping malformed chunk file",
				slog.String("path", path), sl.Err(err))
			continue
		}

		batch.Add(rec)
	}

	return nil
}

type RebuildOptions struct {
	OutputDir string
	// OutputName overrides the restored filename; honored only when the
	// batch holds a single file.
	OutputName string
	Password   string
	Overwrite  bool
	VerifyOnly bool
}

// RebuildSummary reports per-file outcomes of a batch rebuild.
type RebuildSummary struct {
	Results  []*reassembler.Result
	Failures map[string]error
	// Aborted is set when a decryption failure stopped the remaining files:
	// the same wrong password would fail every one of them.
	Aborted bool
}

func (rs *RebuildSummary) Failed() bool { return len(rs.Failures) > 0 }

// RebuildBatch rebuilds every file in the batch independently. One file's
// failure does not touch its siblings, except for a wrong password, which
// aborts the run.
func (s *Service) RebuildBatch(batch *reassembler.Batch, opts RebuildOptions) (*RebuildSummary, error) {
	filenames := batch.Filenames()

	if opts.OutputName != "" && len(filenames) > 1 {
		s.log.Warn("output name ignored for multi-file batch",
			slog.String("name", opts.OutputName),
			slog.Int("files", len(filenames)),
		)
		opts.OutputName = ""
	}

	r := reassembler.New(s.engine, s.log)
	summary := &RebuildSummary{Failures: make(map[string]error)}

	for _, name := range filenames {
		res, err := r.Rebuild(batch.Set(name), reassembler.Options{
			Password:   opts.Password,
			OutputDir:  opts.OutputDir,
			OutputName: opts.OutputName,
			Overwrite:  opts.Overwrite,
			VerifyOnly: opts.VerifyOnly,
		})
		if err != nil {
			summary.Failures[name] = err
			s.log.Error("rebuild failed",
				slog.String("file", name), sl.Err(err))

			if errors.Is(err, crypto.ErrDecryptionFailed) {
				summary.Aborted = true
				break
			}
			continue
		}

		summary.Results = append(summary.Results, res)
	}

	return summary, nil
}
