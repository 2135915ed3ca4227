package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animedash/pkg/config"
	"animedash/pkg/utils"
)

// testLogger returns a logger that discards output
func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// testDownloadConfig returns a DownloadConfig with fast retry delays for testing
func testDownloadConfig() config.DownloadConfig {
	return config.DownloadConfig{
		MaxAttempts: 3,
		RetryDelay:  10 * time.Millisecond,
		Timeout:     5 * time.Second,
	}
}

func newTestDownloader() *Downloader {
	return NewDownloader(http.DefaultClient, testDownloadConfig(), "animedash-test", testLogger())
}

// imageServer serves the given bytes as image/jpeg and counts requests.
func imageServer(t *testing.T, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	attempts := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server, attempts
}

func TestDownloadImage_Success(t *testing.T) {
	payload := []byte("jpeg-bytes-here")
	server, attempts := imageServer(t, payload)
	dest := filepath.Join(t.TempDir(), "poster.jpg")

	err := newTestDownloader().DownloadImage(context.Background(), server.URL, dest)
	require.NoError(t, err)

	data, readErr := os.ReadFile(dest)
	require.NoError(t, readErr)
	assert.Equal(t, payload, data)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDownloadImage_SendsHeaders(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("x"))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "poster.jpg")
	require.NoError(t, newTestDownloader().DownloadImage(context.Background(), server.URL, dest))

	assert.Equal(t, "animedash-test", gotUA)
	assert.Contains(t, gotAccept, "image/webp")
}

func TestDownloadImage_WrongContentType_ExhaustsAttempts(t *testing.T) {
	attempts := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not found page</html>"))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "poster.jpg")
	err := newTestDownloader().DownloadImage(context.Background(), server.URL, dest)

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrRetryFailed))
	assert.True(t, errors.Is(err, utils.ErrNotAnImage))
	assert.Equal(t, int32(3), attempts.Load())
	assert.NoFileExists(t, dest)
}

func TestDownloadImage_ServerError_ExhaustsAttempts(t *testing.T) {
	attempts := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "poster.jpg")
	err := newTestDownloader().DownloadImage(context.Background(), server.URL, dest)

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrRetryFailed))
	assert.True(t, errors.Is(err, utils.ErrServerHTTPError))
	assert.Equal(t, int32(3), attempts.Load(), "expected exactly 3 attempts")
	assert.NoFileExists(t, dest, "no cache file may remain after exhausted retries")
}

func TestDownloadImage_FailThenSucceed(t *testing.T) {
	attempts := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("webp-bytes"))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "poster.jpg")
	err := newTestDownloader().DownloadImage(context.Background(), server.URL, dest)

	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
	assert.FileExists(t, dest)
}

func TestDownloadImage_EmptyBody_RemovedAndRetried(t *testing.T) {
	attempts := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		// 200 with zero bytes of body
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "poster.jpg")
	err := newTestDownloader().DownloadImage(context.Background(), server.URL, dest)

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrEmptyDownload))
	assert.Equal(t, int32(3), attempts.Load())
	assert.NoFileExists(t, dest)
}

func TestDownloadImage_ContextCancelled_StopsRetrying(t *testing.T) {
	attempts := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	d := newTestDownloader()

	// Cancel after the first failure lands; the retry delay select notices it
	go func() {
		for attempts.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	dest := filepath.Join(t.TempDir(), "poster.jpg")
	err := d.DownloadImage(ctx, server.URL, dest)

	require.Error(t, err)
	assert.LessOrEqual(t, attempts.Load(), int32(2))
	assert.NoFileExists(t, dest)
}

func TestDownloadImage_TransportError_Retried(t *testing.T) {
	// Point at a closed server to force connection errors
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	dest := filepath.Join(t.TempDir(), "poster.jpg")
	err := newTestDownloader().DownloadImage(context.Background(), url, dest)

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrRetryFailed))
	assert.NoFileExists(t, dest)
}
