package feed

import (
	"time"
)

// Feed processing types

type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	PublishedAt *time.Time // nil when pubDate is missing or unparseable
	Categories  []string
}

// Configuration types

type Config struct {
	Name       string   `yaml:"name"`
	URL        string   `yaml:"url"`
	SourceName string   `yaml:"source_name"`
	Tags       []string `yaml:"tags"`
	Enabled    *bool    `yaml:"enabled"`
}

func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type configFile struct {
	Feeds []Config `yaml:"feeds"`
}
