package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"animedash/pkg/dataset"
	applog "animedash/pkg/log"
	"animedash/pkg/models"
)

// PosterProvider is the slice of the poster engine the HTTP layer needs.
type PosterProvider interface {
	LocalImagePath(ctx context.Context, sourceURL, title string) (string, bool)
}

// Server serves the dashboard API over HTTP.
type Server struct {
	data    *dataset.Dataset
	posters PosterProvider
	addr    string
	log     *logrus.Logger
	engine  *gin.Engine
}

// NewServer wires routes and middleware onto a fresh gin engine.
func NewServer(data *dataset.Dataset, posters PosterProvider, addr string, log *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = applog.GinLogrusWriter{Entry: log.WithField("component", "gin")}

	s := &Server{
		data:    data,
		posters: posters,
		addr:    addr,
		log:     log,
		engine:  gin.New(),
	}

	s.engine.Use(RequestID(), RequestLogger(log), Recovery(log))

	s.engine.GET("/healthz", s.handleHealth)
	apiV1 := s.engine.Group("/api/v1")
	{
		apiV1.GET("/anime", s.handleListAnime)
		apiV1.GET("/anime/genres", s.handleGenreCounts)
		apiV1.GET("/anime/poster", s.handlePoster)
	}
	return s
}

// Handler exposes the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.addr).Info("Dashboard server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dashboard server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.log.Info("Shutting down dashboard server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("dashboard shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "titles": s.data.Len()})
}

// handleListAnime returns filtered, sorted, paginated titles.
// Query parameters: start, end (YYYY-MM-DD), sentiment, genres (comma
// separated), sort, limit, page, per_page.
func (s *Server) handleListAnime(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	selected := s.data.Select(filter)

	page := intQuery(c, "page", 1)
	perPage := intQuery(c, "per_page", 0)
	items, totalPages := dataset.Paginate(selected, page, perPage)

	c.JSON(http.StatusOK, gin.H{
		"total":       len(selected),
		"page":        page,
		"total_pages": totalPages,
		"items":       items,
	})
}

// handleGenreCounts returns genre frequencies over the filtered selection.
func (s *Server) handleGenreCounts(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	counts := dataset.GenreCounts(s.data.Select(filter))
	c.JSON(http.StatusOK, gin.H{"genres": counts})
}

// placeholderSVG is served whenever a poster cannot be produced; the
// endpoint never surfaces fetch failures as errors.
const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="225" height="320">` +
	`<rect width="100%" height="100%" fill="#2b2b33"/>` +
	`<text x="50%" y="50%" fill="#8888aa" font-family="sans-serif" font-size="14" text-anchor="middle">No Image</text>` +
	`</svg>`

// handlePoster serves the cached poster for ?url=&title=, fetching it on a
// miss. Misses and fetch failures degrade to a placeholder image, never an
// error status.
func (s *Server) handlePoster(c *gin.Context) {
	sourceURL := c.Query("url")
	title := c.Query("title")
	if sourceURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'url' query parameter"})
		return
	}

	path, ok := s.posters.LocalImagePath(c.Request.Context(), sourceURL, title)
	if !ok {
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/svg+xml", []byte(placeholderSVG))
		return
	}
	c.File(path)
}

// filterFromQuery builds a dataset filter from request query parameters.
func filterFromQuery(c *gin.Context) (dataset.Filter, error) {
	var filter dataset.Filter

	if raw := c.Query("start"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("bad 'start' date %q, want YYYY-MM-DD", raw)
		}
		filter.Start = ts
	}
	if raw := c.Query("end"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("bad 'end' date %q, want YYYY-MM-DD", raw)
		}
		filter.End = ts
	}

	bucket := models.SentimentBucket(c.Query("sentiment"))
	if !bucket.IsValid() {
		return filter, fmt.Errorf("unknown sentiment %q", c.Query("sentiment"))
	}
	filter.Sentiment = bucket

	if raw := c.Query("genres"); raw != "" {
		filter.Genres = dataset.SplitGenres(raw)
	}

	sortKey, err := dataset.ParseSortKey(c.Query("sort"))
	if err != nil {
		return filter, err
	}
	filter.SortKey = sortKey

	filter.TopN = intQuery(c, "limit", 0)
	return filter, nil
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return fallback
	}
	return v
}
