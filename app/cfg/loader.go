package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./mail-comb.db" description:"SQLite database file for run history"`

	// Application configuration
	Port           string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount    int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of harvest jobs running at once"`
	APIAccessKey   string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	RequestTimeout int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"20" description:"HTTP request timeout in seconds"`

	// Telegram configuration
	TelegramAPIID   int    `long:"telegram-api-id" env:"TELEGRAM_API_ID" description:"Telegram API id for channel sources (optional)"`
	TelegramAPIHash string `long:"telegram-api-hash" env:"TELEGRAM_API_HASH" description:"Telegram API hash for channel sources (optional)"`
	TelegramSession string `long:"telegram-session" env:"TELEGRAM_SESSION" description:"Telegram string session of an authorized user (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Qatar)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		SourcesDir:      raw.SourcesDir,
		DBPath:          raw.DBPath,
		Port:            raw.Port,
		WorkerCount:     raw.WorkerCount,
		APIAccessKey:    raw.APIAccessKey,
		RequestTimeout:  raw.RequestTimeout,
		TelegramAPIID:   raw.TelegramAPIID,
		TelegramAPIHash: raw.TelegramAPIHash,
		TelegramSession: raw.TelegramSession,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if cfg.WorkerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be positive, got %d", cfg.RequestTimeout)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func (c *Cfg) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// HasTelegramSession reports whether all three Telegram settings are present.
func (c *Cfg) HasTelegramSession() bool {
	return c.TelegramAPIID != 0 && c.TelegramAPIHash != "" && c.TelegramSession != ""
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
