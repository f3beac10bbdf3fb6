package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/statement-parser/internal/extraction"
)

// EnvPrefix prefixes the environment variable of every flag
const EnvPrefix = "STATEMENT_PARSER"

// Config holds the service settings
type Config struct {
	Port        int
	DBPath      string
	StoragePath string

	GeminiKey   string
	GeminiModel string

	AnthropicKey   string
	AnthropicURL   string
	AnthropicModel string

	AuthUser string
	AuthPass string

	RateInterval time.Duration
	RateBurst    int
	LockTTL      time.Duration
	Comparator   string

	LogLevel  string
	LogFormat string

	ShowVersion bool
}

// ParseError is returned when the command line or environment cannot be
// parsed. Usage holds the rendered flag help.
type ParseError struct {
	Usage string
	Err   error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads an optional .env file from the working directory, then parses
// args and STATEMENT_PARSER_* environment variables.
func Load(args []string) (Config, error) {
	return LoadWithEnvFile(args, ".env")
}

// LoadWithEnvFile is Load with an explicit env file path. A missing file is
// not an error.
func LoadWithEnvFile(args []string, envFile string) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
	}

	var cfg Config
	flags := ff.NewFlagSet("statement-parser")
	flags.IntVar(&cfg.Port, 0, "port", 8080, "HTTP server port")
	flags.StringVar(&cfg.DBPath, 0, "db", "statement-parser.db", "Database file path")
	flags.StringVar(&cfg.StoragePath, 0, "storage", "./statements", "Storage directory path")
	flags.StringVar(&cfg.GeminiKey, 0, "gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
	flags.StringVar(&cfg.GeminiModel, 0, "gemini-model", "gemini-2.5-pro", "Google Gemini model name")
	flags.StringVar(&cfg.AnthropicKey, 0, "anthropic-key", "", "Anthropic API key (or set ANTHROPIC_API_KEY env var)")
	flags.StringVar(&cfg.AnthropicURL, 0, "anthropic-url", "https://api.anthropic.com", "Anthropic API base URL")
	flags.StringVar(&cfg.AnthropicModel, 0, "anthropic-model", "claude-3-5-sonnet-latest", "Anthropic model name")
	flags.StringVar(&cfg.AuthUser, 0, "auth-user", "", "Basic auth username (optional)")
	flags.StringVar(&cfg.AuthPass, 0, "auth-pass", "", "Basic auth password (optional)")
	flags.DurationVar(&cfg.RateInterval, 0, "rate-interval", 100*time.Millisecond, "Minimum interval between requests once the burst is spent, 0 disables rate limiting")
	flags.IntVar(&cfg.RateBurst, 0, "rate-burst", 30, "Requests allowed in a burst")
	flags.DurationVar(&cfg.LockTTL, 0, "lock-ttl", 10*time.Minute, "How long a document stays locked while it is processed")
	flags.StringVar(&cfg.Comparator, 0, "comparator", "normalized", "Reconciliation comparator: 'normalized' or 'exact'")
	flags.StringVar(&cfg.LogLevel, 0, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, 0, "log-format", "console", "Log format: 'console' or 'json'")
	flags.BoolVar(&cfg.ShowVersion, 0, "version", "Show version information")

	if err := ff.Parse(flags, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return Config{}, &ParseError{Usage: ffhelp.Flags(flags).String(), Err: err}
	}

	if cfg.GeminiKey == "" {
		cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.AnthropicKey == "" {
		cfg.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return cfg, nil
}

// Validate checks the settings the service cannot start without
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.GeminiKey == "" {
		return errors.New("gemini API key is required, set --gemini-key or GEMINI_API_KEY")
	}
	if c.RateInterval < 0 {
		return fmt.Errorf("invalid rate interval %s", c.RateInterval)
	}
	if c.RateInterval > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1, got %d", c.RateBurst)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("invalid lock ttl %s", c.LockTTL)
	}
	if _, err := extraction.ComparatorByName(c.Comparator); err != nil {
		return err
	}
	return nil
}
