package poster

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"animedash/pkg/models"
)

// WarmStats summarizes one cache warming run.
type WarmStats struct {
	Requested int // Titles considered
	CacheHits int // Already present on disk
	Fetched   int // Downloaded during this run
	Failed    int // No identifier, no remote source, or download failure
}

// Warm pre-fetches posters for the given titles with bounded concurrency.
// The per-path locks inside the engine keep duplicate titles from racing on
// the same cache file, so each poster is downloaded at most once per run.
func (h *Handler) Warm(ctx context.Context, animes []models.Anime, workers int64) WarmStats {
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(workers)

	var wg sync.WaitGroup
	var statsMu sync.Mutex
	stats := WarmStats{Requested: len(animes)}

	h.log.WithField("titles", len(animes)).Info("Warming poster cache")

	for _, anime := range animes {
		if err := sem.Acquire(ctx, 1); err != nil {
			h.log.Warnf("Cache warming interrupted: %v", err)
			break
		}

		wg.Add(1)
		go func(a models.Anime) {
			defer wg.Done()
			defer sem.Release(1)

			_, result, _ := h.fetch(ctx, a.URL, a.Title)

			statsMu.Lock()
			switch result {
			case outcomeCacheHit:
				stats.CacheHits++
			case outcomeFetched:
				stats.Fetched++
			default:
				stats.Failed++
			}
			statsMu.Unlock()
		}(anime)
	}

	wg.Wait()
	h.log.WithFields(logrus.Fields{
		"cache_hits": stats.CacheHits,
		"fetched":    stats.Fetched,
		"failed":     stats.Failed,
	}).Info("Poster cache warming finished")
	return stats
}
