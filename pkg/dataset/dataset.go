package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"animedash/pkg/models"
	"animedash/pkg/utils"
)

// Column layout of popular_anime.csv
var expectedHeader = []string{"title", "url", "release_date", "members", "score", "sentiment", "genres"}

// Dataset holds the loaded anime rows, ordered as they appeared on disk.
type Dataset struct {
	animes []models.Anime
	log    *logrus.Logger
}

// Load reads the CSV dataset from path. Rows with unparseable release dates
// or member counts are dropped with a log line rather than failing the load,
// matching how the dashboard treats dirty rows.
func Load(path string, log *logrus.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening dataset '%s': %w", utils.ErrFilesystem, path, err)
	}
	defer f.Close()

	d, err := parse(f, log)
	if err != nil {
		return nil, fmt.Errorf("%w: reading dataset '%s': %w", utils.ErrParsing, path, err)
	}
	log.WithFields(logrus.Fields{"path": path, "rows": len(d.animes)}).Info("Dataset loaded")
	return d, nil
}

// parse decodes CSV rows from r. Split out from Load for testability.
func parse(r io.Reader, log *logrus.Logger) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	colIdx, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	d := &Dataset{log: log}
	line := 1
	for {
		line++
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, readErr)
		}

		anime, rowErr := parseRow(record, colIdx)
		if rowErr != nil {
			log.WithField("line", line).Debugf("Dropping dataset row: %v", rowErr)
			continue
		}
		d.animes = append(d.animes, anime)
	}
	return d, nil
}

// mapHeader resolves column positions, tolerating reordered columns.
func mapHeader(header []string) (map[string]int, error) {
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, want := range expectedHeader {
		if _, present := colIdx[want]; !present {
			return nil, fmt.Errorf("dataset CSV is missing column %q", want)
		}
	}
	return colIdx, nil
}

// releaseDateFormats are tried in order when parsing the release_date column
var releaseDateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
}

func parseRow(record []string, colIdx map[string]int) (models.Anime, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[colIdx[name]])
	}

	releaseDate, err := parseReleaseDate(field("release_date"))
	if err != nil {
		return models.Anime{}, err
	}

	members, err := strconv.Atoi(field("members"))
	if err != nil {
		return models.Anime{}, fmt.Errorf("bad members value %q: %w", field("members"), err)
	}

	// Score and sentiment are optional; blanks parse as zero
	score := parseFloatOrZero(field("score"))
	sentiment := parseFloatOrZero(field("sentiment"))

	return models.Anime{
		Title:       field("title"),
		URL:         field("url"),
		ReleaseDate: releaseDate,
		Members:     members,
		Score:       score,
		Sentiment:   sentiment,
		Genres:      SplitGenres(field("genres")),
	}, nil
}

func parseReleaseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty release_date")
	}
	for _, layout := range releaseDateFormats {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable release_date %q", raw)
}

func parseFloatOrZero(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// SplitGenres turns the comma-separated genre column into a trimmed slice.
func SplitGenres(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	genres := make([]string, 0, len(parts))
	for _, p := range parts {
		if g := strings.TrimSpace(p); g != "" {
			genres = append(genres, g)
		}
	}
	return genres
}

// Len returns the number of loaded rows.
func (d *Dataset) Len() int {
	return len(d.animes)
}

// DateRange returns the earliest and latest release dates in the dataset.
// ok is false for an empty dataset.
func (d *Dataset) DateRange() (min, max time.Time, ok bool) {
	if len(d.animes) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max = d.animes[0].ReleaseDate, d.animes[0].ReleaseDate
	for _, a := range d.animes[1:] {
		if a.ReleaseDate.Before(min) {
			min = a.ReleaseDate
		}
		if a.ReleaseDate.After(max) {
			max = a.ReleaseDate
		}
	}
	return min, max, true
}
