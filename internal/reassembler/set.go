package reassembler

import (
	"log/slog"
	"sort"
	"strconv"

	"qrt/internal/codec"
)

// Set is the reconstruction state for one filename: records keyed by index,
// collected in arbitrary order from any source.
type Set struct {
	filename  string
	total     int
	fileHash  string
	encrypted bool
	hasMeta   bool
	records   map[int]codec.WireRecord
	invalid   error
	log       *slog.Logger
}

func NewSet(log *slog.Logger) *Set {
	if log == nil {
		log = slog.Default()
	}
	return &Set{
		records: make(map[int]codec.WireRecord),
		log:     log,
	}
}

// Add inserts a record. The first record fixes the declared metadata; later
// records must agree, a disagreement latches the set as failed. A duplicate
// index overwrites with a warning; an index beyond the declared total is
// tolerated with a warning and ignored at rebuild time.
func (s *Set) Add(rec codec.WireRecord) {
	if !s.hasMeta {
		s.filename = rec.Filename
		s.total = rec.Total
		s.fileHash = rec.FileHash
		s.encrypted = rec.Encrypted
		s.hasMeta = true
	} else if s.invalid == nil {
		switch {
		case rec.Total != s.total:
			s.invalid = &InconsistentMetadataError{
				Filename: s.filename, Field: "total",
				Want: strconv.Itoa(s.total), Got: strconv.Itoa(rec.Total),
			}
		case rec.FileHash != s.fileHash:
			s.invalid = &InconsistentMetadataError{
				Filename: s.filename, Field: "file_hash",
				Want: s.fileHash, Got: rec.FileHash,
			}
		case rec.Encrypted != s.encrypted:
			// Mixed encrypted and plain records for one filename is not a
			// defined case; fail rather than guess.
			s.invalid = &InconsistentMetadataError{
				Filename: s.filename, Field: "encrypted",
				Want: boolStr(s.encrypted), Got: boolStr(rec.Encrypted),
			}
		}
		if s.invalid != nil {
			s.log.Warn("inconsistent record metadata",
				slog.String("file", s.filename),
				slog.Int("part", rec.Index),
			)
		}
	}

	if _, exists := s.records[rec.Index]; exists {
		s.log.Warn("duplicate part, overwriting",
			slog.String("file", s.filename),
			slog.Int("part", rec.Index),
		)
	}
	if rec.Index > s.total {
		s.log.Warn("extra part beyond declared total",
			slog.String("file", s.filename),
			slog.Int("part", rec.Index),
			slog.Int("total", s.total),
		)
	}
	s.records[rec.Index] = rec
}

func (s *Set) Filename() string { return s.filename }
func (s *Set) Total() int       { return s.total }
func (s *Set) FileHash() string { return s.fileHash }
func (s *Set) Encrypted() bool  { return s.encrypted }
func (s *Set) Len() int         { return len(s.records) }

// Err returns the latched metadata inconsistency, if any.
func (s *Set) Err() error { return s.invalid }

// MissingParts returns the sorted indices of 1..total not yet observed.
func (s *Set) MissingParts() []int {
	var missing []int
	for i := 1; i <= s.total; i++ {
		if _, ok := s.records[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// Complete reports whether every declared part has arrived and the metadata
// never conflicted.
func (s *Set) Complete() bool {
	return s.hasMeta && s.invalid == nil && len(s.MissingParts()) == 0
}

// Batch groups records by filename; one chunk directory or scan session may
// carry several files.
type Batch struct {
	sets map[string]*Set
	log  *slog.Logger
}

func NewBatch(log *slog.Logger) *Batch {
	if log == nil {
		log = slog.Default()
	}
	return &Batch{
		sets: make(map[string]*Set),
		log:  log,
	}
}

func (b *Batch) Add(rec codec.WireRecord) {
	set, ok := b.sets[rec.Filename]
	if !ok {
		set = NewSet(b.log)
		b.sets[rec.Filename] = set
	}
	set.Add(rec)
}

func (b *Batch) Set(filename string) *Set { return b.sets[filename] }
func (b *Batch) Len() int                 { return len(b.sets) }

// Filenames returns the collected filenames in sorted order for deterministic
// batch processing.
func (b *Batch) Filenames() []string {
	names := make([]string, 0, len(b.sets))
	for name := range b.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encrypted reports whether any collected set carries encrypted records, so a
// password can be obtained once per reconstruction run.
func (b *Batch) Encrypted() bool {
	for _, set := range b.sets {
		if set.encrypted {
			return true
		}
	}
	return false
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
