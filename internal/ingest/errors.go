package ingest

import "errors"

var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrInvalidPath   = errors.New("invalid path")
	ErrNotADirectory = errors.New("watch path is not a directory")
)
