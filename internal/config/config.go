package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/susu3304/lotterybot/internal/lottery"
)

// Store backends selectable with LOTTERY_STORE.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	// Discord Bot
	DiscordToken string `env:"DISCORD_TOKEN"`

	// Discord OAuth2
	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURI  string `env:"DISCORD_REDIRECT_URI" envDefault:"http://localhost:3000/api/auth/callback"`

	// Storage
	Store        string `env:"LOTTERY_STORE"     envDefault:"file"`
	DataFile     string `env:"LOTTERY_DATA_FILE" envDefault:"data/lottery_data.json"`
	DatabaseURL  string `env:"DATABASE_URL"`
	SQLitePath   string `env:"SQLITE_PATH"       envDefault:"data/lottery.db"`
	TemplateFile string `env:"LOTTERY_PRIZE_TEMPLATE"`

	FlushInterval time.Duration `env:"FLUSH_INTERVAL" envDefault:"1m"`
	LogVerbose    bool          `env:"LOG_VERBOSE" envDefault:"true"`
	LogFile       string        `env:"LOG_FILE"`

	// Web Server
	WebBind      string `env:"WEB_BIND" envDefault:"0.0.0.0:3000"`
	WebUIBaseURL string

	// Session
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-only-change-me"`
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Extract base URL from redirect URI
	cfg.WebUIBaseURL = extractBaseURL(cfg.DiscordRedirectURI)
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}
	switch cfg.Store {
	case StoreFile:
		if cfg.DataFile == "" {
			return nil, fmt.Errorf("LOTTERY_DATA_FILE is required")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case StoreSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return nil, fmt.Errorf("LOTTERY_STORE must be one of file, postgres, sqlite (got %q)", cfg.Store)
	}
	if cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("FLUSH_INTERVAL must be positive")
	}

	return cfg, nil
}

// WebEnabled reports whether the OAuth2 credentials needed by the web API are set.
func (c *Config) WebEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

// LoadPrizeTemplate reads a JSON prize table keyed by level identifier.
// An empty path yields the built-in defaults.
func LoadPrizeTemplate(path string) (lottery.Template, error) {
	if path == "" {
		return lottery.DefaultTemplate(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return lottery.Template{}, fmt.Errorf("failed to read prize template: %w", err)
	}
	var raw map[string]lottery.PrizeTemplate
	if err := json.Unmarshal(b, &raw); err != nil {
		return lottery.Template{}, fmt.Errorf("failed to parse prize template: %w", err)
	}
	t, err := lottery.NewTemplate(raw)
	if err != nil {
		return lottery.Template{}, fmt.Errorf("invalid prize template %s: %w", path, err)
	}
	return t, nil
}

func extractBaseURL(redirectURI string) string {
	// e.g., "http://localhost:3000/api/auth/callback" -> "http://localhost:3000"
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "http://localhost:3000"
	}

	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}
