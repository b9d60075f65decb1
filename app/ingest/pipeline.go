package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/legal-updates/app/sources"
	"github.com/lysyi3m/legal-updates/app/updates"
)

// Store is the part of the storage layer a pass writes to.
type Store interface {
	InsertIfNew(ctx context.Context, in updates.Input) (updates.LegalUpdate, bool, error)
	Hashes(ctx context.Context) (map[string]struct{}, error)
}

type SourceReport struct {
	Source     string `json:"source"`
	Fetched    int    `json:"fetched"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Failed     int    `json:"failed"`
}

// Report summarises one ingestion pass.
type Report struct {
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Sources    []SourceReport `json:"sources"`
	Errors     []error        `json:"-"`
}

func (r Report) Totals() SourceReport {
	total := SourceReport{Source: "all"}
	for _, s := range r.Sources {
		total.Fetched += s.Fetched
		total.Inserted += s.Inserted
		total.Duplicates += s.Duplicates
		total.Failed += s.Failed
	}
	return total
}

// Err joins the per-record failures of the pass, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.Errors...)
}

func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pipeline runs every source and merges the results into the store.
type Pipeline struct {
	store   Store
	sources []sources.Source
	metrics *Metrics
	now     func() time.Time
}

func NewPipeline(store Store, srcs []sources.Source, metrics *Metrics) *Pipeline {
	return &Pipeline{
		store:   store,
		sources: srcs,
		metrics: metrics,
		now:     time.Now,
	}
}

func (p *Pipeline) Run(ctx context.Context) Report {
	report := Report{StartedAt: p.now()}

	batches := p.fetchAll(ctx)

	stored, err := p.store.Hashes(ctx)
	if err != nil {
		slog.Warn("Failed to preload stored hashes, relying on insert dedup", "error", err)
		stored = map[string]struct{}{}
	}

	seen := make(map[string]struct{})
	for i, src := range p.sources {
		sr := SourceReport{Source: src.Name(), Fetched: len(batches[i])}

		for _, in := range batches[i] {
			hash := in.Normalize().Hash()
			if _, ok := seen[hash]; ok {
				sr.Duplicates++
				continue
			}
			seen[hash] = struct{}{}

			if _, ok := stored[hash]; ok {
				sr.Duplicates++
				continue
			}

			_, inserted, err := p.store.InsertIfNew(ctx, in)
			if err != nil {
				sr.Failed++
				report.Errors = append(report.Errors, fmt.Errorf("%s: %w", src.Name(), err))
				slog.Error("Failed to store update", "source", src.Name(), "slug", in.Slug, "error", err)
				continue
			}
			if inserted {
				sr.Inserted++
			} else {
				sr.Duplicates++
			}
		}

		p.record(sr)
		report.Sources = append(report.Sources, sr)
	}

	report.FinishedAt = p.now()
	if p.metrics != nil {
		p.metrics.Duration.Observe(report.Duration().Seconds())
	}

	total := report.Totals()
	slog.Info("Ingestion pass completed",
		"fetched", total.Fetched,
		"inserted", total.Inserted,
		"duplicates", total.Duplicates,
		"failed", total.Failed,
		"duration", report.Duration())

	return report
}

// fetchAll runs the sources concurrently. Sources never fail, so the group only joins.
func (p *Pipeline) fetchAll(ctx context.Context) [][]updates.Input {
	batches := make([][]updates.Input, len(p.sources))

	var g errgroup.Group
	for i, src := range p.sources {
		g.Go(func() error {
			started := time.Now()
			batches[i] = src.Fetch(ctx)
			slog.Debug("Source fetched", "source", src.Name(), "items", len(batches[i]), "duration", time.Since(started))
			return nil
		})
	}
	_ = g.Wait()

	return batches
}

func (p *Pipeline) record(sr SourceReport) {
	if p.metrics == nil {
		return
	}
	p.metrics.Fetched.WithLabelValues(sr.Source).Add(float64(sr.Fetched))
	p.metrics.Inserted.WithLabelValues(sr.Source).Add(float64(sr.Inserted))
	p.metrics.Duplicates.WithLabelValues(sr.Source).Add(float64(sr.Duplicates))
	p.metrics.StoreErrors.Add(float64(sr.Failed))
}
