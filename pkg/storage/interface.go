package storage

import (
	"context"
	"time"

	"animedash/pkg/models"
)

// PosterStore records the outcome of poster fetch attempts. The filesystem
// cache stays the source of truth for the image bytes themselves; this store
// only keeps diagnostic state (error categories, attempt timestamps).
type PosterStore interface {
	// CheckPosterStatus retrieves the status and details for a MAL ID
	// Returns status (PosterStatusSuccess, PosterStatusFailure, PosterStatusNotFound, PosterStatusDBError),
	// the PosterDBEntry if found and parsed, and any error
	CheckPosterStatus(malID int) (status models.PosterStatus, entry *models.PosterDBEntry, err error)

	// UpdatePosterStatus updates the status and details for a MAL ID
	UpdatePosterStatus(malID int, entry *models.PosterDBEntry) error
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// GetEntryCount returns the count of all keys in the store
	GetEntryCount() (int, error)

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}

// Store combines the interfaces for components that need full access
type Store interface {
	PosterStore
	StoreAdmin
}
