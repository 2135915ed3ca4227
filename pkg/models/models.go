package models

import "time"

// Anime is one row of the popularity dataset.
type Anime struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"` // MyAnimeList page URL, e.g. https://myanimelist.net/anime/16498/...
	ReleaseDate time.Time `json:"release_date"`
	Members     int       `json:"members"`
	Score       float64   `json:"score"`
	Sentiment   float64   `json:"sentiment"` // Aggregate sentiment in [-1, 1]
	Genres      []string  `json:"genres"`
}

// SentimentBucket maps the raw sentiment value onto a coarse bucket used by
// the dashboard filters.
func (a Anime) SentimentBucket() SentimentBucket {
	switch {
	case a.Sentiment >= 0.2:
		return SentimentPositive
	case a.Sentiment <= -0.2:
		return SentimentNegative
	default:
		return SentimentMixed
	}
}

// PosterDBEntry stores the outcome of a poster fetch attempt in the database
type PosterDBEntry struct {
	Status      PosterStatus `json:"status"`                 // "success" or "failure"
	LocalPath   string       `json:"local_path,omitempty"`   // Cache file path (on success)
	ImageURL    string       `json:"image_url,omitempty"`    // Resolved remote image URL (on success)
	ErrorType   string       `json:"error_type,omitempty"`   // Error category (on failure)
	LastAttempt time.Time    `json:"last_attempt"`           // Timestamp of the last fetch attempt
	FetchedAt   time.Time    `json:"fetched_at,omitempty"`   // Timestamp of successful download
}

// GenreCount is one bar of the genre frequency chart.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}
