package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultCORSOrigins are the Vite dev server origins the frontend runs on
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

type Config struct {
	Port         int
	DatabaseType string
	DatabaseURL  string
	IdentitySalt string
	CORSOrigins  []string

	DefaultPollHours int
	MaxPollHours     int
	SubscriberQueue  int

	LogLevel  string
	LogFormat string

	Seed bool
}

// LoadDotEnv reads .env files into the environment. Variables already set
// win, and a missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ParseFlags reads flags, falling back to environment variables and then defaults
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("quickpoll", flag.ContinueOnError)

	// Network and storage (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL (file path for sqlite)")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.IdentitySalt, "identity-salt", "", "Voter identity HMAC salt (prefer env)")

	fs.BoolVar(&cfg.Seed, "seed", false, "Insert the sample poll on startup")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var err error
	if cfg.Port == 0 {
		if cfg.Port, err = envInt("PORT", 3318); err != nil {
			return Config{}, err
		}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	cfg.DatabaseType = strings.ToLower(cfg.DatabaseType)
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q (use sqlite or postgres)", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseType == "postgres" {
			return Config{}, errors.New("database URL required for postgres (use -d or DATABASE_URL env)")
		}
		cfg.DatabaseURL = "quickpoll.db"
	}

	// Secrets - MUST be provided
	if cfg.IdentitySalt == "" {
		cfg.IdentitySalt = os.Getenv("IDENTITY_SALT")
	}
	if cfg.IdentitySalt == "" {
		return Config{}, errors.New("IDENTITY_SALT required")
	}

	cfg.CORSOrigins = DefaultCORSOrigins
	if v := os.Getenv("CORS_ORIGINS"); strings.TrimSpace(v) != "" {
		cfg.CORSOrigins = splitList(v)
	}

	if cfg.DefaultPollHours, err = envInt("DEFAULT_POLL_HOURS", 24); err != nil {
		return Config{}, err
	}
	if cfg.MaxPollHours, err = envInt("MAX_POLL_HOURS", 720); err != nil {
		return Config{}, err
	}
	if cfg.DefaultPollHours <= 0 || cfg.MaxPollHours <= 0 || cfg.DefaultPollHours > cfg.MaxPollHours {
		return Config{}, errors.New("DEFAULT_POLL_HOURS must be positive and not above MAX_POLL_HOURS")
	}
	if cfg.SubscriberQueue, err = envInt("SUBSCRIBER_QUEUE", 16); err != nil {
		return Config{}, err
	}
	if cfg.SubscriberQueue <= 0 {
		return Config{}, errors.New("SUBSCRIBER_QUEUE must be positive")
	}

	cfg.LogLevel = envString("LOG_LEVEL", "info")
	cfg.LogFormat = envString("LOG_FORMAT", "text")

	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
