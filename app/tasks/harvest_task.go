package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/mail-comb/app/database"
	"github.com/lysyi3m/mail-comb/app/export"
	"github.com/lysyi3m/mail-comb/app/harvest"
	"github.com/lysyi3m/mail-comb/app/source"
)

type HarvestTask struct {
	Task
	SourceConfig *source.Config
	Window       harvest.Window
	builder      HarvesterBuilder
	exporter     Exporter
	registry     *JobRegistry
	runRepo      database.RunRepositoryInterface
}

func NewHarvestTask(sourceConfig *source.Config, window harvest.Window, builder HarvesterBuilder, exporter Exporter, registry *JobRegistry, runRepo database.RunRepositoryInterface) *HarvestTask {
	return &HarvestTask{
		Task:         NewTask(TaskTypeHarvest, sourceConfig.Name),
		SourceConfig: sourceConfig,
		Window:       window,
		builder:      builder,
		exporter:     exporter,
		registry:     registry,
		runRepo:      runRepo,
	}
}

func (t *HarvestTask) Execute(ctx context.Context) error {
	startedAt := time.Now()
	t.registry.Update(t.ID, func(job *Job) {
		job.Status = JobRunning
		job.StartedAt = &startedAt
	})
	if err := t.runRepo.StartRun(t.ID, startedAt); err != nil {
		slog.Warn("Failed to record run start", "id", t.ID, "error", err)
	}

	harvester, err := t.builder.Build(t.SourceConfig)
	if err != nil {
		t.finish(JobFailed, harvest.Result{}, nil, err)
		return fmt.Errorf("failed to build harvester: %w", err)
	}

	sink := harvest.ProgressFunc(func(p harvest.Progress) {
		t.registry.ReportProgress(t.ID, p)
		slog.Debug("Harvest progress", "id", t.ID, "source", t.SourceName, "progress", p.String())
	})

	result, err := harvester.Run(ctx, t.Window, sink)
	if err != nil {
		t.finish(JobFailed, result, nil, err)
		return fmt.Errorf("harvest failed: %w", err)
	}

	artifact, err := t.exporter.Run(result.Table)
	switch {
	case errors.Is(err, export.ErrEmptyTable):
		t.finish(JobEmpty, result, nil, nil)
	case err != nil:
		t.finish(JobFailed, result, nil, err)
		return fmt.Errorf("failed to export results: %w", err)
	default:
		t.finish(JobCompleted, result, artifact, nil)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"source", t.SourceName,
		"window", t.Window.String(),
		"records", result.Table.Len(),
		"duplicates", result.Stats.Duplicates,
		"skipped", result.Stats.Skipped,
		"dropped", result.Stats.Dropped,
		"retried", result.Stats.Retried,
		"failed", result.Stats.Failed,
		"duration", t.GetDuration().String())

	return nil
}

func (t *HarvestTask) finish(status JobStatus, result harvest.Result, artifact []byte, cause error) {
	finishedAt := time.Now()
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}

	t.registry.Update(t.ID, func(job *Job) {
		job.Status = status
		job.Records = result.Table.Len()
		job.Stats = result.Stats
		job.Error = errMsg
		job.Artifact = artifact
		job.FinishedAt = &finishedAt
		job.Progress = harvest.Progress{
			UniqueEmails: result.Table.Len(),
			Message:      fmt.Sprintf("Done. Unique Emails Found: %d", result.Table.Len()),
		}
	})

	if err := t.runRepo.FinishRun(t.ID, string(status), result.Table.Len(), result.Stats, errMsg, finishedAt); err != nil {
		slog.Warn("Failed to record run result", "id", t.ID, "error", err)
	}
}
