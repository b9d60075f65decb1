package feed

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfigs reads a YAML feed list. A missing path (empty or absent file)
// returns fallback unchanged.
func LoadConfigs(path string, fallback []Config) ([]Config, error) {
	if path == "" {
		return fallback, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Warn("Feeds file not found, using built-in feeds", "path", path)
		return fallback, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	configs := make([]Config, 0, len(file.Feeds))
	for i, feedConfig := range file.Feeds {
		setDefaults(&feedConfig)
		if err := validateConfig(feedConfig); err != nil {
			return nil, fmt.Errorf("invalid feed at index %d in %s: %w", i, path, err)
		}
		if !feedConfig.IsEnabled() {
			slog.Debug("Feed disabled, skipping", "feed", feedConfig.Name)
			continue
		}
		configs = append(configs, feedConfig)
	}

	slog.Debug("Feed configurations loaded", "path", path, "count", len(configs))

	return configs, nil
}

func setDefaults(c *Config) {
	if c.SourceName == "" {
		c.SourceName = c.Name
	}
}

func validateConfig(c Config) error {
	if c.Name == "" {
		return fmt.Errorf("feed name is required")
	}
	if c.URL == "" {
		return fmt.Errorf("feed URL is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("feed URL must be http(s): %s", c.URL)
	}
	for _, tag := range c.Tags {
		if tag != strings.ToLower(tag) || strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tag %q must be non-empty lowercase", tag)
		}
	}
	return nil
}
