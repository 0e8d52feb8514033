package store

import (
	"time"

	"qrt/internal/codec"
)

// Session groups the records of one scanning run. Scanning a big sheet stack
// can span several tool invocations; the session keeps the partial set on
// disk between them.
type Session struct {
	ID        string
	Label     string
	CreatedAt time.Time
}

// StoredRecord is a parsed wire record plus ingestion metadata.
type StoredRecord struct {
	Record  codec.WireRecord
	Source  string
	AddedAt time.Time
}
