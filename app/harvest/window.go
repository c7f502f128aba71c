package harvest

import (
	"errors"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidWindow = errors.New("from date cannot be greater than to date")

// Window is an inclusive range of calendar dates. Instants are compared in UTC
// wall-clock time against start-of-day(From) and end-of-day(To).
type Window struct {
	From time.Time
	To   time.Time
}

type Position int

const (
	Inside Position = iota
	Before
	After
)

func NewWindow(from, to time.Time) (Window, error) {
	w := Window{From: civilDate(from), To: civilDate(to)}
	if w.From.After(w.To) {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}

func ParseWindow(from, to string) (Window, error) {
	fromDate, err := time.Parse(DateLayout, from)
	if err != nil {
		return Window{}, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	toDate, err := time.Parse(DateLayout, to)
	if err != nil {
		return Window{}, fmt.Errorf("invalid to date %q: %w", to, err)
	}
	return NewWindow(fromDate, toDate)
}

func (w Window) Start() time.Time {
	return w.From
}

func (w Window) End() time.Time {
	return w.To.Add(24*time.Hour - time.Nanosecond)
}

// Locate places a message timestamp relative to [Start, End].
func (w Window) Locate(ts time.Time) Position {
	ts = ts.UTC()
	switch {
	case ts.After(w.End()):
		return After
	case ts.Before(w.Start()):
		return Before
	default:
		return Inside
	}
}

// LocateDate places a calendar date relative to [From, To]. The date is taken
// in the location carried by d, so a published timestamp keeps its own offset.
func (w Window) LocateDate(d time.Time) Position {
	day := civilDate(d)
	switch {
	case day.Before(w.From):
		return Before
	case day.After(w.To):
		return After
	default:
		return Inside
	}
}

func (w Window) String() string {
	return w.From.Format(DateLayout) + ".." + w.To.Format(DateLayout)
}

func FormatDate(t time.Time) string {
	return civilDate(t).Format(DateLayout)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
