package database

import (
	"time"

	"github.com/lysyi3m/mail-comb/app/harvest"
)

type RunRepositoryInterface interface {
	CreateRun(run Run) error
	StartRun(id string, startedAt time.Time) error
	FinishRun(id string, status string, recordCount int, stats harvest.Stats, errMsg string, finishedAt time.Time) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]Run, error)
}

var _ RunRepositoryInterface = (*RunRepository)(nil)
