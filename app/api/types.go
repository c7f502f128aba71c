package api

import (
	"github.com/lysyi3m/mail-comb/app/database"
	"github.com/lysyi3m/mail-comb/app/harvest"
	"github.com/lysyi3m/mail-comb/app/source"
	"github.com/lysyi3m/mail-comb/app/tasks"
)

type JobService interface {
	Submit(sourceName string, window harvest.Window) (tasks.Job, error)
	Job(id string) (tasks.Job, bool)
	Artifact(id string) ([]byte, string, bool)
	Runs(limit int) ([]database.Run, error)
}

type SourceCatalog interface {
	GetConfigs() []*source.Config
	GetConfigCount() int
}

var _ JobService = (*tasks.Dispatcher)(nil)
var _ SourceCatalog = (*source.ConfigCache)(nil)

type Handler struct {
	jobs    JobService
	sources SourceCatalog
}

type CreateJobRequest struct {
	Source string `json:"source" binding:"required"`
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
}
