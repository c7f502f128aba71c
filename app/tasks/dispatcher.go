package tasks

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/mail-comb/app/database"
	"github.com/lysyi3m/mail-comb/app/harvest"
	"github.com/lysyi3m/mail-comb/app/source"
)

var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrSourceUnavailable = errors.New("source unavailable")
)

type SourceLookup interface {
	GetConfig(sourceName string) (*source.Config, error)
}

// Dispatcher turns a trigger (source + window) into a queued harvest job.
type Dispatcher struct {
	sources   SourceLookup
	scheduler TaskSchedulerInterface
	registry  *JobRegistry
	runRepo   database.RunRepositoryInterface
	builder   HarvesterBuilder
	exporter  Exporter
}

func NewDispatcher(sources SourceLookup, scheduler TaskSchedulerInterface, registry *JobRegistry,
	runRepo database.RunRepositoryInterface, builder HarvesterBuilder, exporter Exporter) *Dispatcher {
	return &Dispatcher{
		sources:   sources,
		scheduler: scheduler,
		registry:  registry,
		runRepo:   runRepo,
		builder:   builder,
		exporter:  exporter,
	}
}

func (d *Dispatcher) Submit(sourceName string, window harvest.Window) (Job, error) {
	sourceConfig, err := d.sources.GetConfig(sourceName)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceName)
	}

	if checker, ok := d.builder.(SourceChecker); ok {
		if err := checker.Check(sourceConfig); err != nil {
			return Job{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
	}

	task := NewHarvestTask(sourceConfig, window, d.builder, d.exporter, d.registry, d.runRepo)
	job := Job{
		ID:        task.ID,
		Source:    sourceConfig.Name,
		Window:    window,
		Status:    JobQueued,
		FileName:  sourceConfig.ExportFileName(),
		CreatedAt: time.Now(),
	}
	d.registry.Add(job)

	err = d.runRepo.CreateRun(database.Run{
		ID:        job.ID,
		Source:    job.Source,
		FromDate:  window.From.Format(harvest.DateLayout),
		ToDate:    window.To.Format(harvest.DateLayout),
		Status:    string(JobQueued),
		CreatedAt: job.CreatedAt,
	})
	if err != nil {
		slog.Warn("Failed to record run", "id", job.ID, "source", job.Source, "error", err)
	}

	if err := d.scheduler.EnqueueTask(task); err != nil {
		task.finish(JobFailed, harvest.Result{}, nil, err)
		return Job{}, fmt.Errorf("failed to enqueue job: %w", err)
	}

	slog.Info("Harvest job queued", "id", job.ID, "source", job.Source, "window", window.String())

	return job, nil
}

func (d *Dispatcher) Job(id string) (Job, bool) {
	return d.registry.Get(id)
}

func (d *Dispatcher) Artifact(id string) ([]byte, string, bool) {
	return d.registry.Artifact(id)
}

func (d *Dispatcher) Runs(limit int) ([]database.Run, error) {
	return d.runRepo.ListRuns(limit)
}
