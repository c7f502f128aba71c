package harvest

import (
	"sync"
)

// Table is the frozen result of a run: one header plus rows in discovery order.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t Table) Len() int {
	return len(t.Rows)
}

// RetryEntry is a feed fetch that hit a transient-overload status.
type RetryEntry struct {
	Title     string
	Published string
	Link      string
}

type Result struct {
	Table Table
	Stats Stats
}

// State is owned by a single harvest run. Every mutation goes through one
// mutex so concurrent fetch workers get atomic check-and-insert on emails.
type State struct {
	mu      sync.Mutex
	columns []string
	rows    [][]string
	emails  map[string]struct{}
	links   map[string]struct{}
	retries []RetryEntry
	stats   Stats
}

func NewState(columns ...string) *State {
	return &State{
		columns: columns,
		emails:  make(map[string]struct{}),
		links:   make(map[string]struct{}),
	}
}

// Record appends row if email has not been seen in this run.
func (s *State) Record(email string, row []string) bool {
	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.emails[email]; seen {
		s.stats.observe(OutcomeDuplicate)
		return false
	}
	s.emails[email] = struct{}{}
	s.rows = append(s.rows, row)
	s.stats.observe(OutcomeRecorded)
	return true
}

// MarkLink reports whether link is new to this run and remembers it.
func (s *State) MarkLink(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.links[link]; seen {
		return false
	}
	s.links[link] = struct{}{}
	return true
}

func (s *State) Queue(entry RetryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.retries = append(s.retries, entry)
	s.stats.observe(OutcomeQueued)
}

func (s *State) Retries() []RetryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RetryEntry(nil), s.retries...)
}

func (s *State) Observe(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.observe(o)
}

func (s *State) UniqueEmails() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.emails)
}

func (s *State) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

func (s *State) Table() Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([][]string, len(s.rows))
	for i, row := range s.rows {
		rows[i] = append([]string(nil), row...)
	}
	return Table{
		Columns: append([]string(nil), s.columns...),
		Rows:    rows,
	}
}

func (s *State) Result() Result {
	return Result{Table: s.Table(), Stats: s.Stats()}
}
