package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DatabaseURL string `long:"db-url" env:"DATABASE_URL" description:"Hosted Postgres connection URL (enables the hosted backend together with --db-key)"`
	DatabaseKey string `long:"db-key" env:"DATABASE_KEY" description:"Hosted Postgres access key, used as the connection password"`
	DataDir     string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for the local JSON store used when no hosted database is configured"`

	// Source configuration
	CongressAPIKey string `long:"congress-api-key" env:"CONGRESS_API_KEY" description:"Congress.gov API key (optional, Congress ingestion is skipped without it)"`
	FeedsFile      string `long:"feeds-file" env:"FEEDS_FILE" description:"YAML file listing IRS RSS feeds (optional, built-in feeds are used without it)"`
	HTTPTimeout    int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30" description:"Timeout in seconds for each outbound HTTP request"`

	// Cache configuration
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for caching the rendered feed (optional)"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	FeedCacheTTL  int    `long:"feed-cache-ttl" env:"FEED_CACHE_TTL" default:"300" description:"Seconds a rendered feed stays cached"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://updates.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers running ingestion tasks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"21600" description:"Seconds between scheduled ingestion passes"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for editorial endpoints (optional)"`
	Once              bool   `long:"once" env:"RUN_ONCE" description:"Run a single ingestion pass and exit"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"LegalUpdatesBot/1.0 (+https://github.com/lysyi3m/legal-updates)" description:"User agent string for outbound HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments, or os.Args when args is nil.
func LoadArgs(args []string) (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DatabaseURL:       raw.DatabaseURL,
		DatabaseKey:       raw.DatabaseKey,
		DataDir:           raw.DataDir,
		CongressAPIKey:    raw.CongressAPIKey,
		FeedsFile:         raw.FeedsFile,
		HTTPTimeout:       raw.HTTPTimeout,
		RedisAddr:         raw.RedisAddr,
		RedisPassword:     raw.RedisPassword,
		FeedCacheTTL:      raw.FeedCacheTTL,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		Once:              raw.Once,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
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
		}
	}
	return nil
}
