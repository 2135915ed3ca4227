package dataset

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animedash/pkg/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

const sampleCSV = `title,url,release_date,members,score,sentiment,genres
Attack on Titan,https://myanimelist.net/anime/16498/Shingeki_no_Kyojin,2013-04-07,3900000,8.55,0.31,"Action, Drama"
Death Note,https://myanimelist.net/anime/1535/Death_Note,2006-10-04,3800000,8.62,0.05,"Mystery, Supernatural"
One Punch Man,https://myanimelist.net/anime/30276/One_Punch_Man,2015-10-05,3200000,8.49,0.45,"Action, Comedy"
School Days,https://myanimelist.net/anime/2476/School_Days,2007-07-04,600000,5.27,-0.35,"Drama, Romance"
Cowboy Bebop,https://myanimelist.net/anime/1/Cowboy_Bebop,1998-04-03,1900000,8.75,0.28,"Action, Sci-Fi"
`

func loadSample(t *testing.T) *Dataset {
	t.Helper()
	d, err := parse(strings.NewReader(sampleCSV), testLogger())
	require.NoError(t, err)
	require.Equal(t, 5, d.Len())
	return d
}

func TestLoad_ReadsFileFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popular_anime.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	d, err := Load(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 5, d.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), testLogger())
	assert.Error(t, err)
}

func TestParse_MissingColumnFails(t *testing.T) {
	csv := "title,url,members\nX,https://example.com,100\n"
	_, err := parse(strings.NewReader(csv), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release_date")
}

func TestParse_DropsDirtyRows(t *testing.T) {
	csv := `title,url,release_date,members,score,sentiment,genres
Good,https://myanimelist.net/anime/1/Good,2020-01-01,1000,8.0,0.1,Action
Bad Date,https://myanimelist.net/anime/2/Bad,not-a-date,1000,8.0,0.1,Action
Bad Members,https://myanimelist.net/anime/3/Bad,2020-01-01,lots,8.0,0.1,Action
`
	d, err := parse(strings.NewReader(csv), testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
}

func TestParse_BlankScoreAndSentiment(t *testing.T) {
	csv := `title,url,release_date,members,score,sentiment,genres
Unrated,https://myanimelist.net/anime/9/Unrated,2024-06-01,500,,,
`
	d, err := parse(strings.NewReader(csv), testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())

	got := d.Select(Filter{})
	assert.Zero(t, got[0].Score)
	assert.Zero(t, got[0].Sentiment)
	assert.Empty(t, got[0].Genres)
}

func TestParse_ReorderedColumns(t *testing.T) {
	csv := `members,title,genres,url,score,sentiment,release_date
1234,Reordered,Action,https://myanimelist.net/anime/7/R,7.0,0.0,2019-03-03
`
	d, err := parse(strings.NewReader(csv), testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())

	got := d.Select(Filter{})
	assert.Equal(t, "Reordered", got[0].Title)
	assert.Equal(t, 1234, got[0].Members)
}

func TestSplitGenres(t *testing.T) {
	assert.Equal(t, []string{"Action", "Drama"}, SplitGenres("Action, Drama"))
	assert.Equal(t, []string{"Action"}, SplitGenres(" Action ,, "))
	assert.Nil(t, SplitGenres(""))
}

func TestDateRange(t *testing.T) {
	d := loadSample(t)
	min, max, ok := d.DateRange()
	require.True(t, ok)
	assert.Equal(t, time.Date(1998, 4, 3, 0, 0, 0, 0, time.UTC), min)
	assert.Equal(t, time.Date(2015, 10, 5, 0, 0, 0, 0, time.UTC), max)

	empty := &Dataset{}
	_, _, ok = empty.DateRange()
	assert.False(t, ok)
}

func titles(animes []models.Anime) []string {
	out := make([]string, len(animes))
	for i, a := range animes {
		out[i] = a.Title
	}
	return out
}

func TestSelect_DefaultSortIsMembersDescending(t *testing.T) {
	d := loadSample(t)
	got := d.Select(Filter{})
	assert.Equal(t, []string{
		"Attack on Titan", "Death Note", "One Punch Man", "Cowboy Bebop", "School Days",
	}, titles(got))
}

func TestSelect_TopN(t *testing.T) {
	d := loadSample(t)
	got := d.Select(Filter{TopN: 2})
	assert.Equal(t, []string{"Attack on Titan", "Death Note"}, titles(got))
}

func TestSelect_DateRange(t *testing.T) {
	d := loadSample(t)
	got := d.Select(Filter{
		Start: time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2013, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	assert.ElementsMatch(t, []string{"Attack on Titan", "Death Note", "School Days"}, titles(got))
}

func TestSelect_DateBoundsAreInclusive(t *testing.T) {
	d := loadSample(t)
	day := time.Date(2013, 4, 7, 0, 0, 0, 0, time.UTC)
	got := d.Select(Filter{Start: day, End: day})
	assert.Equal(t, []string{"Attack on Titan"}, titles(got))
}

func TestSelect_SentimentBuckets(t *testing.T) {
	d := loadSample(t)

	positive := d.Select(Filter{Sentiment: models.SentimentPositive})
	assert.ElementsMatch(t, []string{"Attack on Titan", "One Punch Man", "Cowboy Bebop"}, titles(positive))

	mixed := d.Select(Filter{Sentiment: models.SentimentMixed})
	assert.Equal(t, []string{"Death Note"}, titles(mixed))

	negative := d.Select(Filter{Sentiment: models.SentimentNegative})
	assert.Equal(t, []string{"School Days"}, titles(negative))
}

func TestSelect_GenreMatchesAnyCaseInsensitive(t *testing.T) {
	d := loadSample(t)
	got := d.Select(Filter{Genres: []string{"drama", "Sci-Fi"}})
	assert.ElementsMatch(t, []string{"Attack on Titan", "School Days", "Cowboy Bebop"}, titles(got))
}

func TestSelect_SortByScore(t *testing.T) {
	d := loadSample(t)
	got := d.Select(Filter{SortKey: SortByScore, TopN: 2})
	assert.Equal(t, []string{"Cowboy Bebop", "Death Note"}, titles(got))
}

func TestSelect_SortByDateNewestFirst(t *testing.T) {
	d := loadSample(t)
	got := d.Select(Filter{SortKey: SortByDate, TopN: 1})
	assert.Equal(t, []string{"One Punch Man"}, titles(got))
}

func TestSelect_SortByTitle(t *testing.T) {
	d := loadSample(t)
	got := d.Select(Filter{SortKey: SortByTitle, TopN: 2})
	assert.Equal(t, []string{"Attack on Titan", "Cowboy Bebop"}, titles(got))
}

func TestSelect_DoesNotMutateDataset(t *testing.T) {
	d := loadSample(t)
	_ = d.Select(Filter{SortKey: SortByTitle})
	got := d.Select(Filter{})
	assert.Equal(t, "Attack on Titan", got[0].Title)
}

func TestParseSortKey(t *testing.T) {
	for raw, want := range map[string]SortKey{
		"":             SortByMembers,
		"members":      SortByMembers,
		"SCORE":        SortByScore,
		" release_date": SortByDate,
		"title":        SortByTitle,
	} {
		got, err := ParseSortKey(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseSortKey("popularity")
	assert.Error(t, err)
}

func TestGenreCounts(t *testing.T) {
	d := loadSample(t)
	counts := GenreCounts(d.Select(Filter{}))

	require.NotEmpty(t, counts)
	assert.Equal(t, models.GenreCount{Genre: "Action", Count: 3}, counts[0])

	asMap := make(map[string]int, len(counts))
	for _, c := range counts {
		asMap[c.Genre] = c.Count
	}
	assert.Equal(t, 2, asMap["Drama"])
	assert.Equal(t, 1, asMap["Comedy"])
}

func TestPaginate(t *testing.T) {
	list := loadSample(t).Select(Filter{})

	page1, total := Paginate(list, 1, 2)
	assert.Equal(t, 3, total)
	assert.Len(t, page1, 2)

	page3, _ := Paginate(list, 3, 2)
	assert.Len(t, page3, 1)

	outOfRange, total := Paginate(list, 4, 2)
	assert.Equal(t, 3, total)
	assert.Empty(t, outOfRange)

	empty, total := Paginate(nil, 1, 10)
	assert.Equal(t, 1, total)
	assert.Empty(t, empty)
}
