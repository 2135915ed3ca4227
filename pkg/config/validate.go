package config

import (
	"fmt"
	"net/url"
	"time"

	"animedash/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// DatasetPath
	if c.DatasetPath == "" {
		warnings = append(warnings, "dataset_path is empty, defaulting to './popular_anime.csv'")
		c.DatasetPath = "./popular_anime.csv"
	}

	// ImagesDir
	if c.ImagesDir == "" {
		warnings = append(warnings, "images_dir is empty, defaulting to './anime_images'")
		c.ImagesDir = "./anime_images"
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './animedash_state'")
		c.StateDir = "./animedash_state"
	}

	// ListenAddr
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}

	// UserAgent (the original dashboard identified itself as a browser)
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}

	// DefaultTopN
	if c.DefaultTopN <= 0 {
		c.DefaultTopN = 10
	}

	// WarmWorkers
	if c.WarmWorkers <= 0 {
		warnings = append(warnings, "warm_workers not specified or invalid, defaulting to 4")
		c.WarmWorkers = 4
	}

	if err := c.validateJikanSettings(&warnings); err != nil {
		return warnings, err
	}
	c.validateDownloadSettings(&warnings)
	c.validateHTTPClientSettings()

	return warnings, nil
}

// validateJikanSettings applies defaults to the metadata API settings.
func (c *AppConfig) validateJikanSettings(warnings *[]string) error {
	j := &c.Jikan
	if j.BaseURL == "" {
		j.BaseURL = "https://api.jikan.moe/v4"
	}
	if _, parseErr := url.ParseRequestURI(j.BaseURL); parseErr != nil {
		return fmt.Errorf("%w: jikan base_url %q is not a valid URL: %v", utils.ErrConfigValidation, j.BaseURL, parseErr)
	}
	if j.RequestDelay <= 0 {
		j.RequestDelay = 500 * time.Millisecond
	}
	if j.RequestDelay < 500*time.Millisecond {
		*warnings = append(*warnings, fmt.Sprintf(
			"jikan request_delay (%v) is below the API's published rate limit, raising to 500ms", j.RequestDelay))
		j.RequestDelay = 500 * time.Millisecond
	}
	if j.RateLimitDelay < 2*time.Second {
		j.RateLimitDelay = 2 * time.Second
	}
	if j.Timeout <= 0 {
		j.Timeout = 10 * time.Second
	}
	return nil
}

// validateDownloadSettings applies defaults to poster download settings.
func (c *AppConfig) validateDownloadSettings(warnings *[]string) {
	d := &c.Download
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = 3
	}
	if d.RetryDelay <= 0 {
		d.RetryDelay = 1 * time.Second
	}
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
