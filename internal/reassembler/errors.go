package reassembler

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySet         = errors.New("no usable records collected")
	ErrOutputExists     = errors.New("output file already exists")
	ErrPasswordRequired = errors.New("encrypted records require a password")
	ErrNoDecryptEngine  = errors.New("encrypted records found but no crypto engine was provided")
)

// MissingPartsError lists every absent index; reconstruction never proceeds
// with a partial set.
type MissingPartsError struct {
	Filename string
	Missing  []int
}

func (e *MissingPartsError) Error() string {
	return fmt.Sprintf("%s: missing parts %v", e.Filename, e.Missing)
}

// InconsistentMetadataError reports records of one filename disagreeing on a
// metadata field.
type InconsistentMetadataError struct {
	Filename string
	Field    string
	Want     string
	Got      string
}

func (e *InconsistentMetadataError) Error() string {
	return fmt.Sprintf("%s: records disagree on %s: %q vs %q", e.Filename, e.Field, e.Want, e.Got)
}

// ChunkIntegrityError means a chunk's plaintext body does not hash to its
// declared chunk hash.
type ChunkIntegrityError struct {
	Filename string
	Index    int
	Want     string
	Got      string
}

func (e *ChunkIntegrityError) Error() string {
	return fmt.Sprintf("%s: part %d failed integrity check: declared %s, calculated %s",
		e.Filename, e.Index, e.Want, e.Got)
}

// FileIntegrityError means the concatenated plaintext does not hash to the
// declared file hash even though every part verified individually. With
// completeness and per-chunk checks both enforced this should be unreachable.
type FileIntegrityError struct {
	Filename string
	Want     string
	Got      string
}

func (e *FileIntegrityError) Error() string {
	return fmt.Sprintf("%s: whole-file integrity check failed: declared %s, calculated %s",
		e.Filename, e.Want, e.Got)
}
