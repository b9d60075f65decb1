package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DatabaseURL string
	DatabaseKey string
	DataDir     string

	// Source configuration
	CongressAPIKey string
	FeedsFile      string
	HTTPTimeout    int

	// Cache configuration
	RedisAddr     string
	RedisPassword string
	FeedCacheTTL  int

	// Application configuration
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string
	Once              bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// HasHostedDatabase reports whether both hosted database credentials are present.
func (c *Cfg) HasHostedDatabase() bool {
	return c.DatabaseURL != "" && c.DatabaseKey != ""
}

func (c *Cfg) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTPTimeout) * time.Second
}

func (c *Cfg) GetSchedulerInterval() time.Duration {
	if c.SchedulerInterval <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(c.SchedulerInterval) * time.Second
}

func (c *Cfg) GetFeedCacheTTL() time.Duration {
	if c.FeedCacheTTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.FeedCacheTTL) * time.Second
}
