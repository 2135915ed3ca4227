package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"animedash/pkg/log"
	"animedash/pkg/models"
	"animedash/pkg/utils"
)

const (
	posterKeyPrefix = "poster:"   // Prefix for MAL ID keys in DB
	posterDBDir     = "poster_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements the Store interface using BadgerDB
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	keyCount atomic.Int64 // Cached key count for O(1) GetEntryCount
}

// NewBadgerStore initializes and returns a new BadgerStore
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger}

	dbPath := filepath.Join(stateDir, posterDBDir)
	logger.Infof("Initializing poster outcome database at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dbPath, err)
	}

	// Configure Badger options
	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger). // Use custom logrus adapter
		WithNumVersionsToKeep(1)  // Only keep the latest outcome per poster

	// Open the database
	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", dbPath, err)
	}

	// The store persists across runs, so seed the cached count
	count, err := store.countKeys()
	if err != nil {
		logger.Warnf("Failed to count existing keys: %v", err)
	} else {
		store.keyCount.Store(int64(count))
	}

	logger.Info("Poster outcome database initialized.")
	return store, nil
}

// countKeys performs a one-time full key scan (used only during initialization).
func (s *BadgerStore) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return badger.ErrConflict;
// these resolve in microseconds, so a tight retry loop is sufficient.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// posterKey composes the DB key for a MAL ID
func posterKey(malID int) []byte {
	return []byte(posterKeyPrefix + strconv.Itoa(malID))
}

// CheckPosterStatus implements the PosterStore interface
func (s *BadgerStore) CheckPosterStatus(malID int) (models.PosterStatus, *models.PosterDBEntry, error) {
	status := models.PosterStatusNotFound
	var entry *models.PosterDBEntry = nil
	key := posterKey(malID)

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			status = models.PosterStatusNotFound
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting poster key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}

		return item.Value(func(val []byte) error {
			// Poster entries should never be empty if written correctly
			if len(val) == 0 {
				s.log.Warnf("Poster key '%s' found with empty value, invalid state. Treating as 'not_found'.", string(key))
				status = models.PosterStatusNotFound
				return nil
			}

			var decodedEntry models.PosterDBEntry
			if errJson := json.Unmarshal(val, &decodedEntry); errJson != nil {
				s.log.Warnf("Failed to unmarshal PosterDBEntry for key '%s': %v. Treating as 'not_found'.", string(key), errJson)
				status = models.PosterStatusNotFound
				return nil
			}

			entry = &decodedEntry
			status = decodedEntry.Status
			return nil
		})
	})

	if errView != nil {
		s.log.Errorf("DB View error in CheckPosterStatus for key '%s': %v", string(key), errView)
		status = models.PosterStatusDBError
		return status, nil, errView
	}

	return status, entry, nil
}

// UpdatePosterStatus implements the PosterStore interface
func (s *BadgerStore) UpdatePosterStatus(malID int, entry *models.PosterDBEntry) error {
	if s.db == nil {
		return errors.New("poster DB not initialized")
	}
	key := posterKey(malID)

	entryBytes, errJson := json.Marshal(entry)
	if errJson != nil {
		wrappedErr := fmt.Errorf("%w: failed to marshal PosterDBEntry for key '%s': %w", utils.ErrParsing, string(key), errJson)
		s.log.Error(wrappedErr)
		return wrappedErr
	}

	isNew := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			isNew = true
		}
		e := badger.NewEntry(key, entryBytes)
		return txn.SetEntry(e)
	})

	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in UpdatePosterStatus: %v", err)
		return fmt.Errorf("%w: failed setting poster status for key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if isNew {
		s.keyCount.Add(1)
	}

	s.log.Debugf("Updated poster status for key '%s' to '%s'", string(key), entry.Status)
	return nil
}

// GetEntryCount implements the StoreAdmin interface.
// Returns the cached key count (O(1)) maintained by atomic increments on writes.
func (s *BadgerStore) GetEntryCount() (int, error) {
	return int(s.keyCount.Load()), nil
}

// RunGC runs BadgerDB's garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute // Default interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Debug("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				continue
			}

			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for {
				// Run GC if log is at least 50% reclaimable space
				err = s.db.RunValueLogGC(0.5)
				if err != nil {
					break
				}
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Debugf("Stopping BadgerDB GC goroutine: %v", ctx.Err())
			return
		}
	}
}

// Close cleanly closes the database connection
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Debug("Closing poster DB...")
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing poster DB: %v", err)
			return err
		}
		return nil
	}
	return nil
}
