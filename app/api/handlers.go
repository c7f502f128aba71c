package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/mail-comb/app/database"
	"github.com/lysyi3m/mail-comb/app/export"
	"github.com/lysyi3m/mail-comb/app/harvest"
	"github.com/lysyi3m/mail-comb/app/source"
	"github.com/lysyi3m/mail-comb/app/tasks"
)

const defaultRunsLimit = 50

func NewHandler(jobs JobService, sources SourceCatalog) *Handler {
	return &Handler{
		jobs:    jobs,
		sources: sources,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.sources.GetConfigCount(),
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.sources.GetConfigs()

	sources := make([]map[string]interface{}, 0, len(configs))
	for _, sourceConfig := range configs {
		sources = append(sources, sourceInfo(sourceConfig))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APICreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	window, err := harvest.ParseWindow(req.From, req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobs.Submit(req.Source, window)
	switch {
	case errors.Is(err, tasks.ErrSourceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	case errors.Is(err, tasks.ErrSourceUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Source cannot be harvested with the current configuration",
			"details": err.Error(),
		})
		return
	case errors.Is(err, tasks.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Job queue is full, try again later"})
		return
	case err != nil:
		slog.Error("Error submitting job", "source", req.Source, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to submit job",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, jobInfo(job))
}

func (h *Handler) APIGetJob(c *gin.Context) {
	job, ok := h.jobs.Job(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, jobInfo(job))
}

func (h *Handler) APIExportJob(c *gin.Context) {
	id := c.Param("id")

	job, ok := h.jobs.Job(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	if !job.Status.Finished() {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Job is still in progress",
			"status": job.Status,
		})
		return
	}

	if job.Status == tasks.JobFailed {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Job failed",
			"details": job.Error,
		})
		return
	}

	data, fileName, ok := h.jobs.Artifact(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No unique emails found"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Header("X-Job-Records", strconv.Itoa(job.Records))
	c.Data(http.StatusOK, export.ContentType, data)
}

func (h *Handler) APIListRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	runs, err := h.jobs.Runs(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		items = append(items, runInfo(run))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"runs":  items,
		"total": len(items),
	})
}

func sourceInfo(sourceConfig *source.Config) map[string]interface{} {
	info := map[string]interface{}{
		"name":        sourceConfig.Name,
		"kind":        sourceConfig.Kind,
		"title":       sourceConfig.Title,
		"export_file": sourceConfig.ExportFileName(),
	}

	switch {
	case sourceConfig.Feed != nil:
		info["base_url"] = sourceConfig.Feed.BaseURL
		info["format"] = sourceConfig.Feed.Format
		info["categories"] = len(sourceConfig.Feed.Categories)
	case sourceConfig.Channel != nil:
		info["channel"] = sourceConfig.Channel.Name
		info["mode"] = sourceConfig.Channel.Mode
	}

	return info
}

func jobInfo(job tasks.Job) map[string]interface{} {
	info := map[string]interface{}{
		"id":          job.ID,
		"source":      job.Source,
		"from":        job.Window.From.Format(harvest.DateLayout),
		"to":          job.Window.To.Format(harvest.DateLayout),
		"status":      job.Status,
		"progress":    job.Progress.String(),
		"records":     job.Records,
		"stats":       job.Stats,
		"export_file": job.FileName,
		"created_at":  job.CreatedAt,
		"started_at":  job.StartedAt,
		"finished_at": job.FinishedAt,
	}
	if job.Error != "" {
		info["error"] = job.Error
	}
	if job.Status == tasks.JobCompleted {
		info["export_url"] = "/api/jobs/" + job.ID + "/export"
	}
	return info
}

func runInfo(run database.Run) map[string]interface{} {
	info := map[string]interface{}{
		"id":          run.ID,
		"source":      run.Source,
		"from":        run.FromDate,
		"to":          run.ToDate,
		"status":      run.Status,
		"records":     run.RecordCount,
		"stats":       run.Stats,
		"created_at":  run.CreatedAt,
		"started_at":  run.StartedAt,
		"finished_at": run.FinishedAt,
	}
	if run.Error != "" {
		info["error"] = run.Error
	}
	return info
}
