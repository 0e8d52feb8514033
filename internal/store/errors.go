package store

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrBucketNotFound  = errors.New("bucket not found")
	ErrNilDB           = errors.New("database connection is nil")
)
