package tasks

import (
	"context"

	"github.com/lysyi3m/mail-comb/app/harvest"
	"github.com/lysyi3m/mail-comb/app/source"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Example usage:
//
//	scheduler := NewScheduler(workerCount, queueSize)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewHarvestTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type Harvester interface {
	Run(ctx context.Context, window harvest.Window, sink harvest.ProgressSink) (harvest.Result, error)
}

// HarvesterBuilder turns a source configuration into a ready harvester.
type HarvesterBuilder interface {
	Build(sourceConfig *source.Config) (Harvester, error)
}

// SourceChecker is implemented by builders that can reject a source before a
// job is queued.
type SourceChecker interface {
	Check(sourceConfig *source.Config) error
}

type Exporter interface {
	Run(table harvest.Table) ([]byte, error)
}
