package export

import (
	"context"
	"fmt"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/jobs"
	"github.com/rs/zerolog"
)

// ReportGetter loads a user's report.
type ReportGetter interface {
	GetTaxReport(ctx context.Context, userID, id string) (*domain.TaxReport, error)
}

// Service renders stored reports and delivers them to sinks.
type Service struct {
	reports ReportGetter
	sinks   Registry
	log     zerolog.Logger
}

// NewService creates an export service.
func NewService(reports ReportGetter, sinks Registry, log zerolog.Logger) *Service {
	return &Service{
		reports: reports,
		sinks:   sinks,
		log:     log.With().Str("component", "export").Logger(),
	}
}

// Document loads the report and renders it.
func (s *Service) Document(ctx context.Context, userID, reportID string) (Object, error) {
	report, err := s.reports.GetTaxReport(ctx, userID, reportID)
	if err != nil {
		return Object{}, fmt.Errorf("Document: %w", err)
	}
	return NewObject(report), nil
}

// Deliver renders the report and writes it to the named sink.
func (s *Service) Deliver(ctx context.Context, userID, reportID string, kind SinkKind) (string, error) {
	sink, err := s.sinks.Get(kind)
	if err != nil {
		return "", fmt.Errorf("Deliver: %w", err)
	}

	obj, err := s.Document(ctx, userID, reportID)
	if err != nil {
		return "", fmt.Errorf("Deliver: %w", err)
	}

	location, err := sink.Put(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("Deliver: %s sink: %w", kind, err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("report_id", reportID).
		Str("sink", string(kind)).
		Str("location", location).
		Msg("Tax report exported")
	return location, nil
}

// HasSink reports whether kind is configured.
func (s *Service) HasSink(kind SinkKind) bool {
	_, ok := s.sinks[kind]
	return ok
}

// HandleJob is a jobs.JobHandler delivering ExportReportJobs.
func (s *Service) HandleJob(ctx context.Context, job jobs.Job) error {
	exportJob, ok := job.(*jobs.ExportReportJob)
	if !ok {
		return fmt.Errorf("HandleJob: unsupported job type %s", job.GetType())
	}

	location, err := s.Deliver(ctx, exportJob.UserID, exportJob.ReportID, SinkKind(exportJob.Sink))
	if err != nil {
		s.log.Error().Err(err).
			Str("job_id", exportJob.JobID).
			Int("retry_count", exportJob.RetryCount).
			Msg("Export job failed")
		return fmt.Errorf("HandleJob: %w", err)
	}

	exportJob.Location = location
	return nil
}
