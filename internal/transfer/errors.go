package transfer

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile             = errors.New("source file is empty")
	ErrEncryptionUnavailable = errors.New("encryption requested but no crypto engine configured")
	ErrNoChunksFound         = errors.New("no usable chunk records found")
	ErrStoreUnavailable      = errors.New("session store is not configured")
)

// CapacityError means the chunk count exceeded the configured threshold and
// the caller has not confirmed the operation. Not fatal: retry with Force.
type CapacityError struct {
	Parts int
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%d chunks exceed the capacity threshold of %d; confirm to proceed", e.Parts, e.Limit)
}
