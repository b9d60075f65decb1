package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/legal-updates/app/updates"
)

var ErrNotFound = errors.New("legal update not found")

// Store persists legal updates. Both backends satisfy it.
type Store interface {
	// InsertIfNew stores in unless a record with the same dedup hash exists.
	// It returns the stored record and whether it was newly inserted.
	InsertIfNew(ctx context.Context, in updates.Input) (updates.LegalUpdate, bool, error)
	List(ctx context.Context, filters updates.UpdateFilters) ([]updates.LegalUpdate, error)
	GetBySlug(ctx context.Context, slug string) (updates.LegalUpdate, error)
	UpdateStatus(ctx context.Context, id string, status updates.Status) (updates.LegalUpdate, error)
	Hashes(ctx context.Context) (map[string]struct{}, error)
	Count(ctx context.Context) (int, error)
	Backend() string
	Close() error
}

type Options struct {
	DatabaseURL string
	DatabaseKey string
	DataDir     string
}

// HasHosted reports whether both hosted credentials are present.
func (o Options) HasHosted() bool {
	return o.DatabaseURL != "" && o.DatabaseKey != ""
}

// Open picks the backend once for the process lifetime.
func Open(ctx context.Context, opts Options) (Store, error) {
	if !opts.HasHosted() {
		slog.Warn("Hosted database credentials not set, falling back to local file store", "data_dir", opts.DataDir)
		return NewFileStore(opts.DataDir)
	}

	db, err := NewConnection(ctx, opts.DatabaseURL, opts.DatabaseKey)
	if err != nil {
		return nil, err
	}

	version, dirty, err := RunMigrations(db.DB)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	return NewPostgresStore(db), nil
}

func validateInput(in updates.Input) (updates.Input, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return in, fmt.Errorf("failed to validate update %q: %w", in.Slug, err)
	}
	return in, nil
}
