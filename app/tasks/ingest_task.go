package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/legal-updates/app/ingest"
)

// Runner executes one ingestion pass.
type Runner interface {
	Run(ctx context.Context) ingest.Report
}

type IngestTask struct {
	Task
	runner Runner
}

func NewIngestTask(runner Runner, trigger Trigger) *IngestTask {
	return &IngestTask{
		Task:   NewTask(TaskTypeIngest, trigger),
		runner: runner,
	}
}

// Execute fails only when every attempted write failed.
func (t *IngestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report := t.runner.Run(ctx)
	total := report.Totals()

	slog.Info("Task completed",
		"type", string(t.Type),
		"trigger", string(t.Trigger),
		"inserted", total.Inserted,
		"duplicates", total.Duplicates,
		"failed", total.Failed,
		"duration", t.GetDuration())

	if total.Failed > 0 && total.Inserted == 0 && total.Duplicates == 0 {
		return fmt.Errorf("failed to store any of %d updates: %w", total.Failed, report.Err())
	}
	return nil
}
