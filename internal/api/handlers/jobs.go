package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dvloznov/financr/internal/api/middleware"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/export"
	"github.com/dvloznov/financr/internal/jobs"
	"github.com/rs/zerolog"
)

// Exporter renders reports and knows which sinks are configured.
type Exporter interface {
	Document(ctx context.Context, userID, reportID string) (export.Object, error)
	HasSink(kind export.SinkKind) bool
}

// ExportHandler handles report download and export job endpoints.
type ExportHandler struct {
	exporter  Exporter
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(exporter Exporter, publisher jobs.Publisher, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		exporter:  exporter,
		publisher: publisher,
		log:       log,
	}
}

// DownloadReport handles GET /api/reports/{id}/export
func (h *ExportHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	obj, err := h.exporter.Document(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to export report")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+obj.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(obj.Content))
}

// EnqueueExport handles POST /api/reports/{id}/export
func (h *ExportHandler) EnqueueExport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	reportID := r.PathValue("id")

	var req struct {
		Sink string `json:"sink"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Sink == "" {
		middleware.WriteError(w, http.StatusBadRequest, "sink is required")
		return
	}
	if !h.exporter.HasSink(export.SinkKind(req.Sink)) {
		middleware.WriteError(w, http.StatusBadRequest, "Export sink "+req.Sink+" is not configured")
		return
	}

	// Reject unknown reports before queueing.
	if _, err := h.exporter.Document(r.Context(), user, reportID); err != nil {
		writeServiceError(w, r, err, "Failed to export report")
		return
	}

	job := &jobs.ExportReportJob{
		UserID:   user,
		ReportID: reportID,
		Sink:     req.Sink,
	}
	if err := h.publisher.PublishExportReport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("report_id", reportID).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("report_id", reportID).
		Str("sink", req.Sink).
		Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":    job.JobID,
		"report_id": reportID,
		"sink":      req.Sink,
		"status":    string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err == nil && job.UserID != user {
		err = domain.NotFoundError("job", jobID)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		}
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID:   user,
		ReportID: query.Get("report_id"),
		Status:   jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.ExportReportJob{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
