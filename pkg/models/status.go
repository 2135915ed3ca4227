package models

// PosterStatus represents the fetch state of a poster in the database
type PosterStatus string

const (
	PosterStatusUnset    PosterStatus = ""          // Zero value = unset/unknown
	PosterStatusSuccess  PosterStatus = "success"   // Poster downloaded successfully
	PosterStatusFailure  PosterStatus = "failure"   // Poster fetch failed
	PosterStatusNotFound PosterStatus = "not_found" // Poster not in database
	PosterStatusDBError  PosterStatus = "db_error"  // Database error occurred
)

// String implements fmt.Stringer for logging
func (s PosterStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s PosterStatus) IsValid() bool {
	switch s {
	case PosterStatusSuccess, PosterStatusFailure:
		return true
	}
	return false
}

// SentimentBucket is the coarse sentiment classification used by filters
type SentimentBucket string

const (
	SentimentAny      SentimentBucket = ""         // No filtering
	SentimentPositive SentimentBucket = "positive" // sentiment >= 0.2
	SentimentMixed    SentimentBucket = "mixed"    // -0.2 < sentiment < 0.2
	SentimentNegative SentimentBucket = "negative" // sentiment <= -0.2
)

// IsValid returns true for a recognized bucket name (empty = any)
func (b SentimentBucket) IsValid() bool {
	switch b {
	case SentimentAny, SentimentPositive, SentimentMixed, SentimentNegative:
		return true
	}
	return false
}
