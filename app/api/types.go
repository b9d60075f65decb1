package api

import (
	"time"

	"github.com/lysyi3m/legal-updates/app/cache"
	"github.com/lysyi3m/legal-updates/app/database"
	"github.com/lysyi3m/legal-updates/app/feed"
	"github.com/lysyi3m/legal-updates/app/tasks"
	"github.com/lysyi3m/legal-updates/app/updates"
)

type GeneratorInterface interface {
	Run(items []updates.LegalUpdate) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	store     database.Store
	generator GeneratorInterface
	scheduler tasks.TaskSchedulerInterface
	runner    tasks.Runner
	version   string

	feedCache    cache.FeedCache
	feedCacheTTL time.Duration
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
	feedItemLimit    = 50
	feedCacheKey     = "/feeds/updates.xml"
)
