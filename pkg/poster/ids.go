package poster

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var malIDPattern = regexp.MustCompile(`/anime/(\d+)`)

// ExtractMALID pulls the numeric MyAnimeList identifier out of a title page
// URL such as https://myanimelist.net/anime/16498/Shingeki_no_Kyojin.
// Malformed or unrelated URLs yield ok=false, never an error.
func ExtractMALID(sourceURL string) (id int, ok bool) {
	m := malIDPattern.FindStringSubmatch(sourceURL)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// DeriveFilename composes the cache path for a (title, MAL ID) pair.
// The title is filtered to alphanumerics plus space/hyphen/underscore,
// trailing whitespace trimmed, spaces replaced with underscores and the
// result truncated to 40 characters. Deterministic by construction: this
// path IS the cache key. Distinct titles sharing a truncated prefix and ID
// would collide; accepted as a known limitation.
func DeriveFilename(dir, title string, id int) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := strings.TrimRight(b.String(), " ")
	safe = strings.ReplaceAll(safe, " ", "_")
	if runes := []rune(safe); len(runes) > 40 {
		safe = string(runes[:40])
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", safe, id))
}
