package sources

import (
	"context"
	"time"

	"github.com/lysyi3m/legal-updates/app/updates"
)

// Source produces update inputs from one external publisher.
// Fetch never fails: problems are logged and yield an empty or partial result.
type Source interface {
	Name() string
	Fetch(ctx context.Context) []updates.Input
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
