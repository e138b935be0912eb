package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExportReport delivers a rendered tax report to a sink.
	JobTypeExportReport JobType = "export_report"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ExportReportJob delivers one tax report to one sink.
type ExportReportJob struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	ReportID string `json:"report_id"`

	// Sink names the delivery target, e.g. "gcs" or "notion".
	Sink string `json:"sink"`

	// Location is where the report ended up, set on completion.
	Location string `json:"location,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExportReportJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ExportReportJob) GetType() JobType {
	return JobTypeExportReport
}

// GetStatus implements the Job interface.
func (j *ExportReportJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher enqueues jobs.
type Publisher interface {
	PublishExportReport(ctx context.Context, job *ExportReportJob) error
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start launches workers that call handler for each job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error triggers a retry until the
// job's MaxRetries is exhausted.
type JobHandler func(ctx context.Context, job Job) error

// JobStore records job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExportReportJob) error
	GetJob(ctx context.Context, jobID string) (*ExportReportJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExportReportJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID   string
	ReportID string
	Status   JobStatus

	Limit  int
	Offset int
}
