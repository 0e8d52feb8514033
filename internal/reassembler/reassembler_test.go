package reassembler

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrt/internal/chunker"
	"qrt/internal/codec"
	"qrt/internal/crypto"
	"qrt/internal/hasher"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// encodeFile runs the forward pipeline and parses the records back, giving a
// realistic input for reconstruction tests.
func encodeFile(t *testing.T, filename, content string, cap int, engine *crypto.Engine, password string) []codec.WireRecord {
	t.Helper()

	bodies := chunker.Split(content, cap)
	fileHash := hasher.FileHash(content)

	records := make([]codec.WireRecord, 0, len(bodies))
	for i, body := range bodies {
		wire, err := codec.Encode(codec.Chunk{
			Index:    i + 1,
			Total:    len(bodies),
			Filename: filename,
			FileHash: fileHash,
			Body:     body,
		}, engine, password)
		require.NoError(t, err)

		rec, err := codec.Decode(wire)
		require.NoError(t, err)
		records = append(records, rec)
	}
	return records
}

func newSetFrom(records ...codec.WireRecord) *Set {
	set := NewSet(testLogger())
	for _, rec := range records {
		set.Add(rec)
	}
	return set
}

func TestRebuild_RoundTrip(t *testing.T) {
	content := "AAAA\nBBBB\nCCCC\n"
	records := encodeFile(t, "data.txt", content, 6, nil, "")
	require.Len(t, records, 3)

	// Scan order is never chunk order.
	set := newSetFrom(records[2], records[0], records[1])
	require.True(t, set.Complete())

	dir := t.TempDir()
	r := New(nil, testLogger())

	result, err := r.Rebuild(set, Options{OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "data.txt", result.Filename)
	assert.Equal(t, len(content), result.Bytes)

	written, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(written))
	assert.Equal(t, hasher.FileHash(content), result.FileHash)
}

func TestRebuild_MissingPart(t *testing.T) {
	records := encodeFile(t, "data.txt", "AAAA\nBBBB\nCCCC\n", 6, nil, "")

	set := newSetFrom(records[0], records[2]) // part 2 withheld

	dir := t.TempDir()
	r := New(nil, testLogger())

	_, err := r.Rebuild(set, Options{OutputDir: dir})
	require.Error(t, err)

	var missing *MissingPartsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []int{2}, missing.Missing)

	// Never reconstruct a partial file.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Re-adding the withheld part makes the set rebuildable.
	set.Add(records[1])
	_, err = r.Rebuild(set, Options{OutputDir: dir})
	require.NoError(t, err)
}

func TestRebuild_EmptySet(t *testing.T) {
	r := New(nil, testLogger())

	_, err := r.Rebuild(NewSet(testLogger()), Options{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrEmptySet)
}

func TestSet_InconsistentTotal(t *testing.T) {
	records := encodeFile(t, "data.txt", "AAAA\nBBBB\n", 6, nil, "")

	conflicting := records[1]
	conflicting.Total = 5

	set := newSetFrom(records[0], conflicting)

	r := New(nil, testLogger())
	_, err := r.Rebuild(set, Options{OutputDir: t.TempDir()})

	var inconsistent *InconsistentMetadataError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, "total", inconsistent.Field)
}

func TestSet_InconsistentFileHash(t *testing.T) {
	records := encodeFile(t, "data.txt", "AAAA\nBBBB\n", 6, nil, "")

	conflicting := records[1]
	conflicting.FileHash = strings.Repeat("0", 64)

	set := newSetFrom(records[0], conflicting)

	r := New(nil, testLogger())
	_, err := r.Rebuild(set, Options{OutputDir: t.TempDir()})

	var inconsistent *InconsistentMetadataError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, "file_hash", inconsistent.Field)
}

func TestSet_MixedEncryptionIsFatal(t *testing.T) {
	engine := crypto.NewEngine()
	plain := encodeFile(t, "data.txt", "AAAA\nBBBB\n", 6, nil, "")
	encrypted := encodeFile(t, "data.txt", "AAAA\nBBBB\n", 6, engine, "password123")

	// Both pipelines hash the same plaintext, so only the encrypted flag
	// conflicts here.
	set := newSetFrom(plain[0], encrypted[1])

	r := New(engine, testLogger())
	_, err := r.Rebuild(set, Options{OutputDir: t.TempDir(), Password: "password123"})

	var inconsistent *InconsistentMetadataError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, "encrypted", inconsistent.Field)
}

func TestSet_DuplicateLastWriteWins(t *testing.T) {
	records := encodeFile(t, "data.txt", "AAAA\n", 100, nil, "")

	set := newSetFrom(records[0], records[0])
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Complete())
}

func TestSet_ExtraPartTolerated(t *testing.T) {
	records := encodeFile(t, "data.txt", "AAAA\n", 100, nil, "")

	extra := records[0]
	extra.Index = 7

	set := newSetFrom(records[0], extra)
	assert.True(t, set.Complete())

	r := New(nil, testLogger())
	result, err := r.Rebuild(set, Options{OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, len("AAAA\n"), result.Bytes)
}

func TestRebuild_ChunkCorruption(t *testing.T) {
	records := encodeFile(t, "data.txt", "AAAA\nBBBB\nCCCC\n", 6, nil, "")

	// Flip a byte in a stored record's body without updating its hash.
	records[1].Payload = "XBBB\n"

	set := newSetFrom(records...)

	r := New(nil, testLogger())
	_, err := r.Rebuild(set, Options{OutputDir: t.TempDir()})

	var integrity *ChunkIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, 2, integrity.Index)
}

func TestRebuild_FileHashMismatch(t *testing.T) {
	// Every record agrees on a declared file hash that does not match the
	// concatenated content, while each chunk hash still verifies.
	bodies := chunker.Split("AAAA\nBBBB\nCCCC\n", 6)
	declared := hasher.FileHash("something else entirely")

	set := NewSet(testLogger())
	for i, body := range bodies {
		wire, err := codec.Encode(codec.Chunk{
			Index:    i + 1,
			Total:    len(bodies),
			Filename: "data.txt",
			FileHash: declared,
			Body:     body,
		}, nil, "")
		require.NoError(t, err)

		rec, err := codec.Decode(wire)
		require.NoError(t, err)
		set.Add(rec)
	}
	require.True(t, set.Complete())

	dir := t.TempDir()
	r := New(nil, testLogger())

	_, err := r.Rebuild(set, Options{OutputDir: dir})

	var integrity *FileIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, declared, integrity.Want)
	assert.Equal(t, hasher.FileHash("AAAA\nBBBB\nCCCC\n"), integrity.Got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRebuild_EncryptedRoundTrip(t *testing.T) {
	engine := crypto.NewEngine()
	content := "line one\nline two\nline three\n"
	records := encodeFile(t, "secret.txt", content, 10, engine, "password123")
	require.Greater(t, len(records), 1)

	set := newSetFrom(records...)
	require.True(t, set.Encrypted())

	dir := t.TempDir()
	r := New(engine, testLogger())

	result, err := r.Rebuild(set, Options{OutputDir: dir, Password: "password123"})
	require.NoError(t, err)

	written, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(written))
}

func TestRebuild_WrongPassword(t *testing.T) {
	engine := crypto.NewEngine()
	records := encodeFile(t, "secret.txt", "top secret\n", 100, engine, "password123")

	set := newSetFrom(records...)

	r := New(engine, testLogger())
	_, err := r.Rebuild(set, Options{OutputDir: t.TempDir(), Password: "password456"})
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}

func TestRebuild_PasswordRequired(t *testing.T) {
	engine := crypto.NewEngine()
	records := encodeFile(t, "secret.txt", "top secret\n", 100, engine, "password123")

	set := newSetFrom(records...)

	r := New(engine, testLogger())
	_, err := r.Rebuild(set, Options{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestRebuild_NoEngineForEncryptedSet(t *testing.T) {
	engine := crypto.NewEngine()
	records := encodeFile(t, "secret.txt", "top secret\n", 100, engine, "password123")

	set := newSetFrom(records...)

	r := New(nil, testLogger())
	_, err := r.Rebuild(set, Options{OutputDir: t.TempDir(), Password: "password123"})
	assert.ErrorIs(t, err, ErrNoDecryptEngine)
}

func TestRebuild_VerifyOnly(t *testing.T) {
	records := encodeFile(t, "data.txt", "AAAA\nBBBB\n", 6, nil, "")

	set := newSetFrom(records...)

	dir := t.TempDir()
	r := New(nil, testLogger())

	result, err := r.Rebuild(set, Options{OutputDir: dir, VerifyOnly: true})
	require.NoError(t, err)
	assert.Empty(t, result.OutputPath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRebuild_RefusesSilentOverwrite(t *testing.T) {
	records := encodeFile(t, "data.txt", "AAAA\n", 100, nil, "")

	dir := t.TempDir()
	existing := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(existing, []byte("precious"), 0644))

	set := newSetFrom(records...)
	r := New(nil, testLogger())

	_, err := r.Rebuild(set, Options{OutputDir: dir})
	assert.ErrorIs(t, err, ErrOutputExists)

	kept, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(kept))

	result, err := r.Rebuild(set, Options{OutputDir: dir, Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, existing, result.OutputPath)
}

func TestRebuild_StripsEncryptedSuffix(t *testing.T) {
	engine := crypto.NewEngine()
	records := encodeFile(t, "notes.txt_encrypted", "body\n", 100, engine, "password123")

	set := newSetFrom(records...)

	dir := t.TempDir()
	r := New(engine, testLogger())

	result, err := r.Rebuild(set, Options{OutputDir: dir, Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "notes.txt"), result.OutputPath)
}

func TestBatch_GroupsByFilename(t *testing.T) {
	a := encodeFile(t, "a.txt", "AAAA\n", 100, nil, "")
	b := encodeFile(t, "b.txt", "BBBB\nCCCC\n", 6, nil, "")

	batch := NewBatch(testLogger())
	for _, rec := range append(a, b...) {
		batch.Add(rec)
	}

	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, []string{"a.txt", "b.txt"}, batch.Filenames())
	assert.True(t, batch.Set("a.txt").Complete())
	assert.True(t, batch.Set("b.txt").Complete())
	assert.False(t, batch.Encrypted())
}
