package jikan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"animedash/pkg/config"
)

// Client resolves MAL IDs to direct poster image URLs via the Jikan API.
// A fixed-interval limiter spaces out every call to stay inside the API's
// published rate limit; a 429 response still gets one long-wait retry.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	rateLimitDelay time.Duration
	timeout        time.Duration
	log            *logrus.Logger
}

// NewClient creates a Jikan API client using the shared HTTP client.
func NewClient(httpClient *http.Client, cfg config.JikanConfig, log *logrus.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        cfg.BaseURL,
		limiter:        rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		rateLimitDelay: cfg.RateLimitDelay,
		timeout:        cfg.Timeout,
		log:            log,
	}
}

// ResolveImageURL returns the best available poster URL for a MAL ID.
// All failure modes collapse to ok=false; no error escapes. A 429 response
// is retried exactly once after the long rate-limit delay (bounded loop
// rather than recursion); a second 429 resolves to absent.
func (c *Client) ResolveImageURL(ctx context.Context, malID int) (imageURL string, ok bool) {
	idLog := c.log.WithField("mal_id", malID)

	for attempt := 1; attempt <= 2; attempt++ {
		// Blocking pre-request wait; spaces calls at least request_delay apart
		if waitErr := c.limiter.Wait(ctx); waitErr != nil {
			idLog.Warnf("Context ended waiting on API rate limiter: %v", waitErr)
			return "", false
		}

		url, rateLimited, err := c.lookup(ctx, malID)
		if err != nil {
			idLog.Warnf("Metadata lookup failed: %v", err)
			return "", false
		}
		if rateLimited {
			if attempt == 2 {
				idLog.Warn("Rate limited again after long-delay retry, giving up")
				return "", false
			}
			idLog.WithField("delay", c.rateLimitDelay).Warn("Rate limited by API, waiting before single retry")
			select {
			case <-time.After(c.rateLimitDelay):
			case <-ctx.Done():
				idLog.Warnf("Context ended during rate-limit wait: %v", ctx.Err())
				return "", false
			}
			continue
		}
		if url == "" {
			idLog.Debug("API response carried no usable image variant")
			return "", false
		}
		return url, true
	}
	return "", false
}

// lookup performs one GET against the API. rateLimited reports a 429;
// any other non-200 status or decode problem is returned as an error.
func (c *Client) lookup(ctx context.Context, malID int) (imageURL string, rateLimited bool, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	apiURL := fmt.Sprintf("%s/anime/%d", c.baseURL, malID)
	req, reqErr := http.NewRequestWithContext(reqCtx, http.MethodGet, apiURL, nil)
	if reqErr != nil {
		return "", false, fmt.Errorf("creating request for '%s': %w", apiURL, reqErr)
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return "", false, doErr
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		var decoded animeResponse
		if decErr := json.NewDecoder(resp.Body).Decode(&decoded); decErr != nil {
			return "", false, fmt.Errorf("decoding JSON from '%s': %w", apiURL, decErr)
		}
		return decoded.Data.Images.bestURL(), false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", true, nil
	default:
		return "", false, fmt.Errorf("unexpected status %d %s from '%s'", resp.StatusCode, resp.Status, apiURL)
	}
}
