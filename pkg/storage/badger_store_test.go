package storage

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animedash/pkg/models"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewBadgerStore(t.TempDir(), logrus.NewEntry(logger))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCheckPosterStatus_NotFound(t *testing.T) {
	store := newTestStore(t)

	status, entry, err := store.CheckPosterStatus(16498)
	require.NoError(t, err)
	assert.Equal(t, models.PosterStatusNotFound, status)
	assert.Nil(t, entry)
}

func TestUpdateAndCheckPosterStatus_Success(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	written := &models.PosterDBEntry{
		Status:      models.PosterStatusSuccess,
		LocalPath:   "anime_images/Attack_on_Titan_16498.jpg",
		ImageURL:    "https://cdn.myanimelist.net/images/anime/10/47347l.webp",
		LastAttempt: now,
		FetchedAt:   now,
	}
	require.NoError(t, store.UpdatePosterStatus(16498, written))

	status, entry, err := store.CheckPosterStatus(16498)
	require.NoError(t, err)
	assert.Equal(t, models.PosterStatusSuccess, status)
	require.NotNil(t, entry)
	assert.Equal(t, written.LocalPath, entry.LocalPath)
	assert.Equal(t, written.ImageURL, entry.ImageURL)
	assert.True(t, entry.FetchedAt.Equal(now))
}

func TestUpdatePosterStatus_FailureThenSuccess(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpdatePosterStatus(5, &models.PosterDBEntry{
		Status:      models.PosterStatusFailure,
		ErrorType:   "RetryFailed_HTTPServer",
		LastAttempt: time.Now(),
	}))

	status, entry, err := store.CheckPosterStatus(5)
	require.NoError(t, err)
	assert.Equal(t, models.PosterStatusFailure, status)
	require.NotNil(t, entry)
	assert.Equal(t, "RetryFailed_HTTPServer", entry.ErrorType)

	// A later success overwrites the failure record
	require.NoError(t, store.UpdatePosterStatus(5, &models.PosterDBEntry{
		Status:      models.PosterStatusSuccess,
		LocalPath:   "anime_images/Gintama_5.jpg",
		LastAttempt: time.Now(),
		FetchedAt:   time.Now(),
	}))

	status, entry, err = store.CheckPosterStatus(5)
	require.NoError(t, err)
	assert.Equal(t, models.PosterStatusSuccess, status)
	require.NotNil(t, entry)
	assert.Empty(t, entry.ErrorType)
}

func TestGetEntryCount(t *testing.T) {
	store := newTestStore(t)

	count, err := store.GetEntryCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	for id := 1; id <= 3; id++ {
		require.NoError(t, store.UpdatePosterStatus(id, &models.PosterDBEntry{
			Status:      models.PosterStatusSuccess,
			LastAttempt: time.Now(),
		}))
	}
	// Rewriting an existing key must not inflate the count
	require.NoError(t, store.UpdatePosterStatus(2, &models.PosterDBEntry{
		Status:      models.PosterStatusFailure,
		LastAttempt: time.Now(),
	}))

	count, err = store.GetEntryCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDistinctIDsAreIndependent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpdatePosterStatus(1, &models.PosterDBEntry{
		Status: models.PosterStatusSuccess, LocalPath: "a.jpg", LastAttempt: time.Now(),
	}))

	status, _, err := store.CheckPosterStatus(11)
	require.NoError(t, err)
	assert.Equal(t, models.PosterStatusNotFound, status, "poster:1 must not shadow poster:11")
}

func TestClose_Idempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
