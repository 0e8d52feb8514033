package transfer

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"qrt/internal/chunker"
	"qrt/internal/codec"
	"qrt/internal/crypto"
	"qrt/internal/encoder"
	"qrt/internal/hasher"
	"qrt/internal/util/logger/sl"
)

const encryptedSuffix = "_encrypted"

type GenerateOptions struct {
	OutputDir string
	Encrypt   bool
	Password  string
	// Force skips the capacity threshold check.
	Force bool
	// RenderSymbols also writes one PNG per chunk when a symbol encoder is
	// configured.
	RenderSymbols bool
}

type GenerateResult struct {
	Filename    string
	FileHash    string
	Parts       int
	Bytes       int
	Encrypted   bool
	ChunkFiles  []string
	SymbolFiles []string
}

// GenerateFile splits the file at path into chunk records and writes them as
// text files under opts.OutputDir. Nothing is written until every chunk has
// been encoded.
func (s *Service) GenerateFile(path string, opts GenerateOptions) (*GenerateResult, error) {
	const op = "transfer.GenerateFile"

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: read source: %w", op, err)
	}

	content := chunker.Sanitize(raw)
	if content == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyFile)
	}

	if opts.Encrypt {
		if s.engine == nil {
			return nil, fmt.Errorf("%s: %w", op, ErrEncryptionUnavailable)
		}
		if err := crypto.ValidatePassword(opts.Password); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	fileHash := hasher.FileHash(content)
	bodies := chunker.Split(content, s.maxChunkBytes)
	total := len(bodies)

	if total > s.capacityWarn && !opts.Force {
		return nil, &CapacityError{Parts: total, Limit: s.capacityWarn}
	}

	filename := filepath.Base(path)
	chunks := make([]codec.Chunk, total)
	for i, body := range bodies {
		chunks[i] = codec.Chunk{
			Index:    i + 1,
			Total:    total,
			Filename: filename,
			FileHash: fileHash,
			Body:     body,
		}
	}

	enc := s.engine
	if !opts.Encrypt {
		enc = nil
	}

	records, err := encoder.EncodeAll(chunks, func(c codec.Chunk) (string, error) {
		return codec.Encode(c, enc, opts.Password)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("%s: create output dir: %w", op, err)
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if opts.Encrypt {
		base += encryptedSuffix
	}

	res := &GenerateResult{
		Filename:  filename,
		FileHash:  fileHash,
		Parts:     total,
		Bytes:     len(content),
		Encrypted: opts.Encrypt,
	}

	for i, record := range records {
		name := fmt.Sprintf("%s_part_%02d_of_%02d.txt", base, i+1, total)
		dst := filepath.Join(outDir, name)
		if err := os.WriteFile(dst, []byte(record), 0644); err != nil {
			return nil, fmt.Errorf("%s: write chunk %d: %w", op, i+1, err)
		}
		res.ChunkFiles = append(res.ChunkFiles, dst)
	}

	if opts.RenderSymbols && s.symbols != nil {
		for i, record := range records {
			dst, err := s.renderSymbol(outDir, base, i+1, total, record)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			res.SymbolFiles = append(res.SymbolFiles, dst)
		}
	}

	s.log.Info("generated chunk files",
		slog.String("file", filename),
		slog.Int("parts", total),
		slog.Bool("encrypted", opts.Encrypt),
		slog.String("dir", outDir),
	)

	return res, nil
}

func (s *Service) renderSymbol(dir, base string, index, total int, payload string) (string, error) {
	img, err := s.symbols.EncodeSymbol(payload, s.symbolOpts)
	if err != nil {
		return "", fmt.Errorf("render symbol %d: %w", index, err)
	}

	name := fmt.Sprintf("%s_part_%02d_of_%02d.png", base, index, total)
	dst := filepath.Join(dir, name)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create symbol file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		s.log.Error("encode symbol image", sl.Err(err))
		return "", fmt.Errorf("encode symbol %d: %w", index, err)
	}

	return dst, nil
}
