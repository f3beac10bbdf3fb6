package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"golang.org/x/time/rate"

	"github.com/zombor/statement-parser/internal/config"
	"github.com/zombor/statement-parser/internal/extraction"
	"github.com/zombor/statement-parser/internal/logger"
	"github.com/zombor/statement-parser/internal/statement"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		var parseErr *config.ParseError
		if errors.As(err, &parseErr) {
			fmt.Fprintf(os.Stderr, "%s\n", parseErr.Usage)
			if errors.Is(err, ff.ErrHelp) {
				os.Exit(0)
			}
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	log, err := logger.Configure(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	comparator, _ := extraction.ComparatorByName(cfg.Comparator)

	// Initialize database
	log.Info().Str("path", cfg.DBPath).Msg("Initializing database...")
	db, err := statement.NewBoltDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Initialize storage
	log.Info().Str("path", cfg.StoragePath).Msg("Initializing storage...")
	store, err := statement.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	// Initialize providers
	log.Info().Str("model", cfg.GeminiModel).Msg("Initializing Gemini extractor...")
	gemini, err := extraction.NewGemini(context.Background(), cfg.GeminiKey, cfg.GeminiModel, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Gemini")
	}
	defer gemini.Close()

	if cfg.AnthropicKey == "" {
		log.Warn().Msg("Anthropic API key is not set, secondary extraction will report an error for every document")
	}
	log.Info().Str("url", cfg.AnthropicURL).Str("model", cfg.AnthropicModel).Msg("Initializing Claude extractor...")
	claude := extraction.NewClaude(cfg.AnthropicURL, cfg.AnthropicKey, cfg.AnthropicModel, log)
	defer claude.Close()

	// Initialize service
	service := statement.NewService(
		db,
		store,
		statement.NewLocatorFetcher(store, statement.GCSReader{}),
		statement.Extractors{Primary: gemini, Secondary: claude, Comparator: comparator},
		statement.NewInFlight(cfg.LockTTL),
		log,
	)

	// Initialize server
	var limiter *rate.Limiter
	if cfg.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RateInterval), cfg.RateBurst)
	}
	basicAuth := statement.BasicAuth{
		Username: cfg.AuthUser,
		Password: cfg.AuthPass,
	}
	server := statement.NewServer(service, basicAuth, limiter, log)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		if err := server.Start(addr); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	log.Info().Str("address", fmt.Sprintf("http://localhost%s", addr)).Str("version", version).Msg("Server started")
	if cfg.AuthUser != "" || cfg.AuthPass != "" {
		log.Info().Str("user", cfg.AuthUser).Msg("Basic auth enabled")
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
