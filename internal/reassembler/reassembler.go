package reassembler

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"qrt/internal/crypto"
	"qrt/internal/hasher"

	"qrt/internal/util/logger/sl"
)

const encryptedSuffix = "_encrypted"

// Reassembler turns a complete record set back into the original file.
// A nil engine means decryption capability is absent: encrypted sets fail
// with ErrNoDecryptEngine instead of a runtime flag check somewhere deep.
type Reassembler struct {
	engine *crypto.Engine
	log    *slog.Logger
}

func New(engine *crypto.Engine, log *slog.Logger) *Reassembler {
	if log == nil {
		log = slog.Default()
	}
	return &Reassembler{engine: engine, log: log}
}

// Options control one reconstruction run. Overwrite is an explicit policy
// decision made by the caller, never an interactive prompt down here.
type Options struct {
	Password   string
	OutputDir  string
	OutputName string
	Overwrite  bool
	VerifyOnly bool
}

type Result struct {
	Filename   string
	OutputPath string
	FileHash   string
	Bytes      int
	Encrypted  bool
}

// Rebuild validates one set end to end and, unless VerifyOnly is set, writes
// the reconstructed file. The order of checks is fixed: metadata consistency,
// completeness, per-chunk integrity (with decryption), whole-file integrity,
// then the write.
func (r *Reassembler) Rebuild(set *Set, opts Options) (*Result, error) {
	if !set.hasMeta {
		return nil, ErrEmptySet
	}
	if err := set.Err(); err != nil {
		return nil, err
	}

	if missing := set.MissingParts(); len(missing) > 0 {
		return nil, &MissingPartsError{Filename: set.filename, Missing: missing}
	}

	if set.encrypted {
		if r.engine == nil {
			return nil, ErrNoDecryptEngine
		}
		if opts.Password == "" {
			return nil, ErrPasswordRequired
		}
	}

	var content strings.Builder
	for i := 1; i <= set.total; i++ {
		rec := set.records[i]

		body, err := r.chunkBody(rec.Payload, set.encrypted, opts.Password)
		if err != nil {
			return nil, fmt.Errorf("part %d of %s: %w", i, set.filename, err)
		}

		if calculated := hasher.ChunkHash(body); calculated != rec.ChunkHash {
			return nil, &ChunkIntegrityError{
				Filename: set.filename,
				Index:    i,
				Want:     rec.ChunkHash,
				Got:      calculated,
			}
		}

		content.WriteString(body)
	}

	reconstructed := content.String()
	if calculated := hasher.FileHash(reconstructed); calculated != set.fileHash {
		return nil, &FileIntegrityError{
			Filename: set.filename,
			Want:     set.fileHash,
			Got:      calculated,
		}
	}

	result := &Result{
		Filename:  set.filename,
		FileHash:  set.fileHash,
		Bytes:     len(reconstructed),
		Encrypted: set.encrypted,
	}

	if opts.VerifyOnly {
		r.log.Info("file integrity verified",
			slog.String("file", set.filename),
			slog.Int("bytes", result.Bytes),
		)
		return result, nil
	}

	outputPath, err := r.writeOutput(set, reconstructed, opts)
	if err != nil {
		return nil, err
	}
	result.OutputPath = outputPath

	r.log.Info("file reconstructed",
		slog.String("file", set.filename),
		slog.String("output", outputPath),
		slog.Int("bytes", result.Bytes),
	)
	return result, nil
}

func (r *Reassembler) chunkBody(payload string, encrypted bool, password string) (string, error) {
	if !encrypted {
		return payload, nil
	}

	ciphertext, salt, iv, err := crypto.DecodeTransport(payload)
	if err != nil {
		return "", err
	}
	return r.engine.Decrypt(ciphertext, salt, iv, password)
}

// writeOutput writes next to the final path and renames on success, so an
// interrupted run never leaves a half-written file at the destination.
func (r *Reassembler) writeOutput(set *Set, content string, opts Options) (string, error) {
	name := opts.OutputName
	if name == "" {
		name = set.filename
		if set.encrypted && strings.HasSuffix(name, encryptedSuffix) {
			name = strings.TrimSuffix(name, encryptedSuffix)
		}
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, name)
	if _, err := os.Stat(outputPath); err == nil && !opts.Overwrite {
		return "", fmt.Errorf("%s: %w", outputPath, ErrOutputExists)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".partial-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move output into place: %w", err)
	}

	if err := os.Chmod(outputPath, 0644); err != nil {
		r.log.Warn("failed to set output permissions", sl.Err(err))
	}

	return outputPath, nil
}
