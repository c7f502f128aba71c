package harvest

import (
	"context"
	"fmt"
	"time"
)

// Outcome classifies what happened to a single item or email during a run.
type Outcome int

const (
	OutcomeRecorded Outcome = iota
	OutcomeDuplicate
	OutcomeSkipped
	OutcomeDropped
	OutcomeQueued
	OutcomeRetried
	OutcomeFailed
	OutcomeRateLimited
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDropped:
		return "dropped"
	case OutcomeQueued:
		return "queued"
	case OutcomeRetried:
		return "retried"
	case OutcomeFailed:
		return "failed"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Stats counts outcomes over a run.
type Stats struct {
	Recorded    int `json:"recorded"`
	Duplicates  int `json:"duplicates"`
	Skipped     int `json:"skipped"`
	Dropped     int `json:"dropped"`
	Queued      int `json:"queued"`
	Retried     int `json:"retried"`
	Failed      int `json:"failed"`
	RateLimited int `json:"rate_limited"`
}

func (s *Stats) observe(o Outcome) {
	switch o {
	case OutcomeRecorded:
		s.Recorded++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeDropped:
		s.Dropped++
	case OutcomeQueued:
		s.Queued++
	case OutcomeRetried:
		s.Retried++
	case OutcomeFailed:
		s.Failed++
	case OutcomeRateLimited:
		s.RateLimited++
	}
}

// RateLimitError is returned by a message source that asks the caller to back
// off for Wait before the next request.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.Wait)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
