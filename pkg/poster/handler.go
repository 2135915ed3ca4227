package poster

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"animedash/pkg/models"
	"animedash/pkg/storage"
	"animedash/pkg/utils"
)

// Resolver turns a MAL ID into a direct image URL. Absence (not found,
// rate limited out, API down) is reported via ok=false, never an error.
type Resolver interface {
	ResolveImageURL(ctx context.Context, malID int) (imageURL string, ok bool)
}

// Downloader fetches an image URL into a destination file, retrying
// internally; on error no file remains at destPath.
type Downloader interface {
	DownloadImage(ctx context.Context, imageURL, destPath string) error
}

// outcome classifies one engine pass for warmer statistics.
type outcome int

const (
	outcomeCacheHit outcome = iota
	outcomeFetched
	outcomeNoIdentifier
	outcomeNoRemoteSource
	outcomeDownloadFailed
)

// Handler is the poster fetch-and-cache engine. The cache is a flat
// directory of JPEG-named files; a present, non-empty file at the derived
// path is taken as valid without inspecting its contents. Per-path mutexes
// keep concurrent requests for the same title from racing on one file.
type Handler struct {
	imagesDir  string
	resolver   Resolver
	downloader Downloader
	store      storage.PosterStore
	log        *logrus.Logger

	pathLocksMu sync.Mutex
	pathLocks   map[string]*sync.Mutex
}

// NewHandler creates the engine. store may be nil to skip outcome recording.
func NewHandler(imagesDir string, resolver Resolver, downloader Downloader, store storage.PosterStore, log *logrus.Logger) *Handler {
	return &Handler{
		imagesDir:  imagesDir,
		resolver:   resolver,
		downloader: downloader,
		store:      store,
		log:        log,
		pathLocks:  make(map[string]*sync.Mutex),
	}
}

// lockForPath retrieves or creates the mutex guarding one cache path.
func (h *Handler) lockForPath(path string) *sync.Mutex {
	h.pathLocksMu.Lock()
	defer h.pathLocksMu.Unlock()

	mu, exists := h.pathLocks[path]
	if !exists {
		mu = &sync.Mutex{}
		h.pathLocks[path] = mu
	}
	return mu
}

// LocalImagePath returns the cache path for the poster belonging to
// (sourceURL, title), downloading it on a miss. Every failure mode resolves
// to ok=false; callers render a placeholder in that case.
func (h *Handler) LocalImagePath(ctx context.Context, sourceURL, title string) (path string, ok bool) {
	path, _, ok = h.fetch(ctx, sourceURL, title)
	return path, ok
}

// fetch runs the cache state machine for one request:
// extract ID -> derive path -> cache check (healing empty files) ->
// resolve remote URL -> download -> verify.
func (h *Handler) fetch(ctx context.Context, sourceURL, title string) (string, outcome, bool) {
	reqLog := h.log.WithFields(logrus.Fields{"source_url": sourceURL, "title": title})

	malID, idOK := ExtractMALID(sourceURL)
	if !idOK {
		reqLog.Warn("Could not extract MAL ID from source URL")
		return "", outcomeNoIdentifier, false
	}
	reqLog = reqLog.WithField("mal_id", malID)

	path := DeriveFilename(h.imagesDir, title, malID)

	mu := h.lockForPath(path)
	mu.Lock()
	defer mu.Unlock()

	if info, statErr := os.Stat(path); statErr == nil {
		if info.Size() > 0 {
			reqLog.WithField("path", path).Debug("Poster cache hit")
			return path, outcomeCacheHit, true
		}
		// Zero-byte file: heal by deleting and re-fetching
		reqLog.WithField("path", path).Warn("Removing empty poster cache entry")
		if rmErr := os.Remove(path); rmErr != nil {
			reqLog.Errorf("Failed to remove empty cache entry: %v", rmErr)
			return "", outcomeDownloadFailed, false
		}
	}

	if mkErr := os.MkdirAll(h.imagesDir, 0755); mkErr != nil {
		reqLog.Errorf("Failed to create poster cache directory '%s': %v", h.imagesDir, mkErr)
		return "", outcomeDownloadFailed, false
	}

	imageURL, urlOK := h.resolver.ResolveImageURL(ctx, malID)
	if !urlOK {
		reqLog.Warn("No remote poster source resolved")
		h.recordFailure(malID, utils.ErrNoRemoteSource)
		return "", outcomeNoRemoteSource, false
	}

	if dlErr := h.downloader.DownloadImage(ctx, imageURL, path); dlErr != nil {
		reqLog.Warnf("Poster download failed: %v", dlErr)
		h.recordFailure(malID, dlErr)
		return "", outcomeDownloadFailed, false
	}

	reqLog.WithField("path", path).Debug("Poster cache filled")
	h.recordSuccess(malID, path, imageURL)
	return path, outcomeFetched, true
}

// recordSuccess persists a successful fetch outcome; best effort.
func (h *Handler) recordSuccess(malID int, path, imageURL string) {
	if h.store == nil {
		return
	}
	now := time.Now()
	entry := &models.PosterDBEntry{
		Status:      models.PosterStatusSuccess,
		LocalPath:   path,
		ImageURL:    imageURL,
		LastAttempt: now,
		FetchedAt:   now,
	}
	if err := h.store.UpdatePosterStatus(malID, entry); err != nil {
		h.log.WithField("mal_id", malID).Errorf("Failed to record poster success: %v", err)
	}
}

// recordFailure persists a failed fetch outcome; best effort.
func (h *Handler) recordFailure(malID int, cause error) {
	if h.store == nil {
		return
	}
	entry := &models.PosterDBEntry{
		Status:      models.PosterStatusFailure,
		ErrorType:   utils.CategorizeError(cause),
		LastAttempt: time.Now(),
	}
	if err := h.store.UpdatePosterStatus(malID, entry); err != nil {
		h.log.WithField("mal_id", malID).Errorf("Failed to record poster failure: %v", err)
	}
}
