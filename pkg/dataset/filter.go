package dataset

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"animedash/pkg/models"
)

// SortKey names a supported ordering for Select results.
type SortKey string

const (
	SortByMembers SortKey = "members"      // Descending member count (default)
	SortByScore   SortKey = "score"        // Descending score
	SortByDate    SortKey = "release_date" // Newest first
	SortByTitle   SortKey = "title"        // Case-insensitive ascending
)

// ParseSortKey validates a sort key from user input. Empty means the default
// members ordering.
func ParseSortKey(raw string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SortByMembers:
		return SortByMembers, nil
	case SortByScore:
		return SortByScore, nil
	case SortByDate:
		return SortByDate, nil
	case SortByTitle:
		return SortByTitle, nil
	}
	return "", fmt.Errorf("unknown sort key %q", raw)
}

// Filter narrows and orders the dataset. Zero values mean "no restriction".
type Filter struct {
	Start     time.Time              // Inclusive lower bound on release date
	End       time.Time              // Inclusive upper bound on release date
	Sentiment models.SentimentBucket // Bucket match; SentimentAny disables
	Genres    []string               // Keep titles carrying ANY of these genres
	SortKey   SortKey
	TopN      int // Truncate after sorting; <= 0 keeps everything
}

// Select applies f and returns a fresh slice; the dataset itself is never
// mutated, so concurrent Select calls are safe.
func (d *Dataset) Select(f Filter) []models.Anime {
	out := make([]models.Anime, 0, len(d.animes))
	for _, a := range d.animes {
		if !f.matches(a) {
			continue
		}
		out = append(out, a)
	}

	sortAnimes(out, f.SortKey)

	if f.TopN > 0 && len(out) > f.TopN {
		out = out[:f.TopN]
	}
	return out
}

func (f Filter) matches(a models.Anime) bool {
	if !f.Start.IsZero() && a.ReleaseDate.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && a.ReleaseDate.After(f.End) {
		return false
	}
	if f.Sentiment != models.SentimentAny && a.SentimentBucket() != f.Sentiment {
		return false
	}
	if len(f.Genres) > 0 && !hasAnyGenre(a.Genres, f.Genres) {
		return false
	}
	return true
}

// hasAnyGenre reports whether have contains at least one of want,
// case-insensitively.
func hasAnyGenre(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

// sortAnimes orders in place. Ties on the primary key fall back to member
// count so rankings stay stable across runs.
func sortAnimes(animes []models.Anime, key SortKey) {
	var less func(a, b models.Anime) bool
	switch key {
	case SortByScore:
		less = func(a, b models.Anime) bool {
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			return a.Members > b.Members
		}
	case SortByDate:
		less = func(a, b models.Anime) bool {
			if !a.ReleaseDate.Equal(b.ReleaseDate) {
				return a.ReleaseDate.After(b.ReleaseDate)
			}
			return a.Members > b.Members
		}
	case SortByTitle:
		less = func(a, b models.Anime) bool {
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if at != bt {
				return at < bt
			}
			return a.Members > b.Members
		}
	default: // SortByMembers
		less = func(a, b models.Anime) bool {
			if a.Members != b.Members {
				return a.Members > b.Members
			}
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	}
	sort.SliceStable(animes, func(i, j int) bool { return less(animes[i], animes[j]) })
}

// GenreCounts tallies genre frequency across the given titles, most common
// first. Ties break alphabetically.
func GenreCounts(animes []models.Anime) []models.GenreCount {
	counts := make(map[string]int)
	for _, a := range animes {
		for _, g := range a.Genres {
			counts[g]++
		}
	}

	out := make([]models.GenreCount, 0, len(counts))
	for genre, count := range counts {
		out = append(out, models.GenreCount{Genre: genre, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Genre < out[j].Genre
	})
	return out
}

// Paginate slices list into the requested page. Pages are 1-based; out of
// range pages return an empty slice. totalPages is at least 1 so callers can
// render pagers without special cases.
func Paginate(list []models.Anime, page, perPage int) (pageItems []models.Anime, totalPages int) {
	if perPage <= 0 {
		perPage = len(list)
		if perPage == 0 {
			perPage = 1
		}
	}
	totalPages = (len(list) + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 || page > totalPages {
		return nil, totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > len(list) {
		end = len(list)
	}
	return list[start:end], totalPages
}
