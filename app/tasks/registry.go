package tasks

import (
	"sync"
	"time"

	"github.com/lysyi3m/mail-comb/app/harvest"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobEmpty     JobStatus = "empty"
	JobFailed    JobStatus = "failed"
)

const DefaultRegistryLimit = 50

func (s JobStatus) Finished() bool {
	return s == JobCompleted || s == JobEmpty || s == JobFailed
}

// Job is the live view of one harvest run. Artifact holds the exported
// spreadsheet and only exists for completed jobs.
type Job struct {
	ID         string
	Source     string
	Window     harvest.Window
	Status     JobStatus
	Progress   harvest.Progress
	Records    int
	Stats      harvest.Stats
	Error      string
	FileName   string
	Artifact   []byte
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// JobRegistry keeps recent jobs in memory. When it grows past its limit the
// oldest finished jobs and their artifacts are evicted.
type JobRegistry struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	limit int
}

func NewJobRegistry(limit int) *JobRegistry {
	if limit <= 0 {
		limit = DefaultRegistryLimit
	}
	return &JobRegistry{
		jobs:  make(map[string]*Job),
		limit: limit,
	}
}

func (r *JobRegistry) Add(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; !exists {
		r.order = append(r.order, job.ID)
	}
	r.jobs[job.ID] = &job
	r.evict()
}

// Get returns a copy of the job without its artifact.
func (r *JobRegistry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	snapshot := *job
	snapshot.Artifact = nil
	return snapshot, true
}

func (r *JobRegistry) Artifact(id string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok || len(job.Artifact) == 0 {
		return nil, "", false
	}
	return job.Artifact, job.FileName, true
}

func (r *JobRegistry) Update(id string, fn func(job *Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

func (r *JobRegistry) ReportProgress(id string, p harvest.Progress) {
	r.Update(id, func(job *Job) {
		job.Progress = p
	})
}

func (r *JobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func (r *JobRegistry) evict() {
	for i := 0; len(r.jobs) > r.limit && i < len(r.order); {
		id := r.order[i]
		if !r.jobs[id].Status.Finished() {
			i++
			continue
		}
		delete(r.jobs, id)
		r.order = append(r.order[:i], r.order[i+1:]...)
	}
}
