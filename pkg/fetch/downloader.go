package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"animedash/pkg/config"
	"animedash/pkg/utils"
)

const copyChunkSize = 8 * 1024 // Buffer size for streaming response bodies to disk

// Downloader fetches binary assets over HTTP and streams them to disk with
// a bounded, fixed-delay retry policy.
type Downloader struct {
	client      *http.Client
	maxAttempts int           // Total attempts per download (initial + retries)
	retryDelay  time.Duration // Fixed pause before attempts after the first
	timeout     time.Duration // Per-attempt request bound
	userAgent   string
	accept      string
	log         *logrus.Logger
}

// NewDownloader creates a Downloader using the shared HTTP client.
func NewDownloader(client *http.Client, cfg config.DownloadConfig, userAgent string, log *logrus.Logger) *Downloader {
	return &Downloader{
		client:      client,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		timeout:     cfg.Timeout,
		userAgent:   userAgent,
		accept:      "image/webp,image/apng,image/*,*/*;q=0.8",
		log:         log,
	}
}

// DownloadImage fetches imageURL and writes it to destPath. Each attempt
// requires HTTP 200 and an image content-type, streams the body to the
// destination file, and verifies the result is non-empty. Partial files are
// removed before the next attempt. Exhausting all attempts returns an error
// wrapping utils.ErrRetryFailed; no file remains on failure.
func (d *Downloader) DownloadImage(ctx context.Context, imageURL, destPath string) error {
	var lastErr error
	dlLog := d.log.WithFields(logrus.Fields{"url": imageURL, "dest": destPath})

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		// Fixed pause before every attempt after the first
		if attempt > 1 {
			select {
			case <-time.After(d.retryDelay):
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
			}
			dlLog.WithField("attempt", attempt).Debug("Retrying poster download")
		}

		lastErr = d.attempt(ctx, imageURL, destPath)
		if lastErr == nil {
			return nil
		}
		// A per-attempt timeout is a transport failure and retried; only the
		// caller's context going away is terminal.
		if ctx.Err() != nil {
			return lastErr
		}
		dlLog.WithField("attempt", attempt).Warnf("Download attempt failed: %v", lastErr)
	}

	dlLog.Errorf("All %d download attempts failed. Last error: %v", d.maxAttempts, lastErr)
	return fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
}

// attempt performs one streamed GET to destPath, cleaning up on any failure.
func (d *Downloader) attempt(ctx context.Context, imageURL, destPath string) error {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(reqCtx, http.MethodGet, imageURL, nil)
	if reqErr != nil {
		return fmt.Errorf("%w: %w", utils.ErrRequestCreation, reqErr)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", d.accept)

	resp, doErr := d.client.Do(req)
	if doErr != nil {
		return doErr
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, resp.StatusCode, resp.Status)
		case resp.StatusCode >= 400:
			return fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, resp.StatusCode, resp.Status)
		default:
			return fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, resp.StatusCode, resp.Status)
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "image") {
		return fmt.Errorf("%w: got %q", utils.ErrNotAnImage, contentType)
	}

	outFile, createErr := os.Create(destPath)
	if createErr != nil {
		return fmt.Errorf("%w: creating poster file '%s': %w", utils.ErrFilesystem, destPath, createErr)
	}

	copied, copyErr := io.CopyBuffer(outFile, resp.Body, make([]byte, copyChunkSize))
	closeErr := outFile.Close()

	if copyErr != nil {
		os.Remove(destPath)
		return fmt.Errorf("%w: streaming poster to '%s' (copied %d bytes): %w", utils.ErrFilesystem, destPath, copied, copyErr)
	}
	if closeErr != nil {
		os.Remove(destPath)
		return fmt.Errorf("%w: closing poster file '%s': %w", utils.ErrFilesystem, destPath, closeErr)
	}

	// Verify the file landed and is non-empty
	info, statErr := os.Stat(destPath)
	if statErr != nil {
		return fmt.Errorf("%w: verifying poster file '%s': %w", utils.ErrFilesystem, destPath, statErr)
	}
	if info.Size() == 0 {
		os.Remove(destPath)
		return utils.ErrEmptyDownload
	}

	d.log.WithFields(logrus.Fields{"dest": destPath, "bytes": info.Size()}).Debug("Poster saved")
	return nil
}
