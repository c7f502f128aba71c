package database

import (
	"time"

	"github.com/lysyi3m/mail-comb/app/harvest"
)

// Run is the history record of one harvest job. Harvested emails are never
// stored, only counts.
type Run struct {
	ID          string
	Source      string
	FromDate    string
	ToDate      string
	Status      string
	RecordCount int
	Stats       harvest.Stats
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
}
