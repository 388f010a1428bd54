package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMessageRequired is returned when the user message is empty.
	ErrMessageRequired = errors.New("message required")
	// ErrNoProviders is returned when no generation provider is configured.
	ErrNoProviders = errors.New("no generation provider configured")
	// ErrServiceStopped is returned for messages that arrive or wait after the
	// chat loop has exited.
	ErrServiceStopped = errors.New("chat service stopped")
	// ErrSnapshotNotFound is returned by SnapshotStorage when nothing was written yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrSnapshotUnreadable is returned when a save would replace a snapshot
	// that the preceding load could not read.
	ErrSnapshotUnreadable = errors.New("snapshot unreadable since last load")
)

// ProviderError describes a failed call to a generation provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StorageError describes a failed transcript storage operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("transcript %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
