package config

import "time"

// AppConfig holds the global application configuration
type AppConfig struct {
	DatasetPath        string           `yaml:"dataset_path"`
	ImagesDir          string           `yaml:"images_dir"` // Poster cache directory
	StateDir           string           `yaml:"state_dir"`  // BadgerDB outcome store
	ListenAddr         string           `yaml:"listen_addr,omitempty"`
	UserAgent          string           `yaml:"user_agent,omitempty"` // Sent on poster downloads
	DefaultTopN        int              `yaml:"default_top_n,omitempty"`
	WarmWorkers        int              `yaml:"warm_workers,omitempty"` // Concurrency for the cache warmer
	Jikan              JikanConfig      `yaml:"jikan,omitempty"`
	Download           DownloadConfig   `yaml:"download,omitempty"`
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// JikanConfig holds settings for the metadata API resolver
type JikanConfig struct {
	BaseURL        string        `yaml:"base_url,omitempty"`         // API root, default https://api.jikan.moe/v4
	RequestDelay   time.Duration `yaml:"request_delay,omitempty"`    // Minimum spacing between API calls
	RateLimitDelay time.Duration `yaml:"rate_limit_delay,omitempty"` // Wait after a 429 before the single retry
	Timeout        time.Duration `yaml:"timeout,omitempty"`          // Per-request bound for metadata lookups
}

// DownloadConfig holds settings for poster downloads
type DownloadConfig struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"` // Total attempts per download
	RetryDelay  time.Duration `yaml:"retry_delay,omitempty"`  // Fixed pause before attempts after the first
	Timeout     time.Duration `yaml:"timeout,omitempty"`      // Per-request bound for image downloads
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // Explicitly enable/disable HTTP/2 attempt (use pointer for tri-state: nil=default, true=force, false=disable)
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}
