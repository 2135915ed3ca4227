package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"animedash/pkg/config"
	"animedash/pkg/dashboard"
	"animedash/pkg/dataset"
	"animedash/pkg/fetch"
	"animedash/pkg/jikan"
	"animedash/pkg/models"
	"animedash/pkg/poster"
	"animedash/pkg/storage"
)

const version = "0.4.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "warm":
		runWarm(os.Args[2:])
	case "top":
		runTop(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("animedash %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `animedash - Anime popularity dashboard with a poster cache

Usage:
  animedash <command> [options]

Commands:
  serve     Start the dashboard HTTP server
  warm      Pre-fetch posters for the most popular titles
  top       Print the top titles as a table
  validate  Validate configuration file
  version   Show version info

Run 'animedash <command> -h' for command-specific help.`)
}

// loadConfig loads, parses, and applies defaults to the config file
func loadConfig(path string, log *logrus.Logger) (*config.AppConfig, error) {
	var cfg config.AppConfig

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file: run entirely on defaults
		log.Infof("Config file '%s' not found, using defaults", path)
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// newLogger builds the shared logger with the requested level.
func newLogger(levelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", levelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// buildPosterEngine assembles the resolver, downloader, outcome store, and
// cache engine. The returned store is nil when the state dir is unusable;
// the engine still works, it just stops recording outcomes.
func buildPosterEngine(cfg *config.AppConfig, log *logrus.Logger) (*poster.Handler, *storage.BadgerStore) {
	httpClient := fetch.NewClient(cfg.HTTPClientSettings, log)
	resolver := jikan.NewClient(httpClient, cfg.Jikan, log)
	downloader := fetch.NewDownloader(httpClient, cfg.Download, cfg.UserAgent, log)

	store, err := storage.NewBadgerStore(cfg.StateDir, log.WithField("component", "poster_db"))
	if err != nil {
		log.Warnf("Poster outcome store unavailable, continuing without it: %v", err)
		return poster.NewHandler(cfg.ImagesDir, resolver, downloader, nil, log), nil
	}
	return poster.NewHandler(cfg.ImagesDir, resolver, downloader, store, log), store
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newFlagSet(cmdName string) *flag.FlagSet {
	fs := flag.NewFlagSet(cmdName, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: animedash %s [options]\n\nOptions:\n", cmdName)
		fs.PrintDefaults()
	}
	return fs
}

// runServe handles the serve subcommand
func runServe(args []string) {
	fs := newFlagSet("serve")
	configFile := fs.String("config", "config.yaml", "Path to config file")
	listenAddr := fs.String("listen", "", "Listen address (overrides config)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := newLogger(*logLevel)
	cfg, err := loadConfig(*configFile, log)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	data, err := dataset.Load(cfg.DatasetPath, log)
	if err != nil {
		log.Fatalf("Dataset error: %v", err)
	}

	engine, store := buildPosterEngine(cfg, log)

	ctx, cancel := signalContext()
	defer cancel()

	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				log.Errorf("Closing poster outcome store: %v", err)
			}
		}()
		go store.RunGC(ctx, 5*time.Minute)
	}

	server := dashboard.NewServer(data, engine, cfg.ListenAddr, log)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Info("Shutdown complete")
}

// runWarm handles the warm subcommand
func runWarm(args []string) {
	fs := newFlagSet("warm")
	configFile := fs.String("config", "config.yaml", "Path to config file")
	topN := fs.Int("top", 0, "Warm only the N most popular titles (0 = all)")
	workers := fs.Int("workers", 0, "Concurrent fetches (overrides config)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := newLogger(*logLevel)
	cfg, err := loadConfig(*configFile, log)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *workers > 0 {
		cfg.WarmWorkers = *workers
	}

	data, err := dataset.Load(cfg.DatasetPath, log)
	if err != nil {
		log.Fatalf("Dataset error: %v", err)
	}

	engine, store := buildPosterEngine(cfg, log)
	if store != nil {
		defer store.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	animes := data.Select(dataset.Filter{TopN: *topN})
	start := time.Now()
	stats := engine.Warm(ctx, animes, int64(cfg.WarmWorkers))

	fmt.Println(renderTable(
		[]string{"Requested", "Cache Hits", "Fetched", "Failed", "Elapsed"},
		[][]string{{
			strconv.Itoa(stats.Requested),
			strconv.Itoa(stats.CacheHits),
			strconv.Itoa(stats.Fetched),
			strconv.Itoa(stats.Failed),
			time.Since(start).Round(time.Millisecond).String(),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	))

	if stats.Failed > 0 {
		os.Exit(1)
	}
}

// runTop handles the top subcommand
func runTop(args []string) {
	fs := newFlagSet("top")
	configFile := fs.String("config", "config.yaml", "Path to config file")
	topN := fs.Int("n", 0, "Number of titles to show (default from config)")
	sortKey := fs.String("sort", "members", "Sort key (members, score, release_date, title)")
	sentiment := fs.String("sentiment", "", "Sentiment bucket filter (positive, mixed, negative)")
	genres := fs.String("genres", "", "Comma-separated genre filter")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := newLogger(*logLevel)
	cfg, err := loadConfig(*configFile, log)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	data, err := dataset.Load(cfg.DatasetPath, log)
	if err != nil {
		log.Fatalf("Dataset error: %v", err)
	}

	key, err := dataset.ParseSortKey(*sortKey)
	if err != nil {
		log.Fatalf("Bad -sort value: %v", err)
	}
	bucket := models.SentimentBucket(*sentiment)
	if !bucket.IsValid() {
		log.Fatalf("Bad -sentiment value %q", *sentiment)
	}

	n := *topN
	if n <= 0 {
		n = cfg.DefaultTopN
	}

	animes := data.Select(dataset.Filter{
		SortKey:   key,
		Sentiment: bucket,
		Genres:    dataset.SplitGenres(*genres),
		TopN:      n,
	})

	rows := make([][]string, 0, len(animes))
	for i, a := range animes {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			a.Title,
			a.ReleaseDate.Format("2006-01-02"),
			strconv.Itoa(a.Members),
			strconv.FormatFloat(a.Score, 'f', 2, 64),
			string(a.SentimentBucket()),
		})
	}
	fmt.Println(renderTable(
		[]string{"#", "Title", "Released", "Members", "Score", "Sentiment"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := newFlagSet("validate")
	configFile := fs.String("config", "config.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: read config: %v\n", err)
		return 1
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fmt.Fprintf(stderr, "Error: parse config: %v\n", err)
		return 1
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	if _, statErr := os.Stat(cfg.DatasetPath); statErr != nil {
		fmt.Fprintf(stdout, "WARN: dataset file '%s' is not readable: %v\n", cfg.DatasetPath, statErr)
	}

	fmt.Fprintln(stdout, "Configuration valid.")
	return 0
}
