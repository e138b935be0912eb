package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/financr/internal/app"
	"github.com/dvloznov/financr/internal/config"
	"github.com/dvloznov/financr/internal/export"
	"github.com/dvloznov/financr/internal/jobs"
	"github.com/dvloznov/financr/internal/logger"
)

// The worker exports every report of a user to one sink through the job
// queue, retrying failed deliveries, and exits when all jobs are settled.
func main() {
	os.Exit(run())
}

func run() int {
	log := logger.New()

	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.RegisterFlags(flag.CommandLine)
	user := flag.String("user", os.Getenv("FINANCR_USER"), "User ID whose reports are exported (or set FINANCR_USER env)")
	sink := flag.String("sink", "file", "Export sink: file, gcs, azure_blob, notion")
	timeout := flag.Duration("timeout", 10*time.Minute, "Give up on unsettled jobs after this long")
	flag.Parse()

	if *user == "" {
		log.Fatal().Msg("Error: -user is required")
	}

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	application, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	if !application.Exporter.HasSink(export.SinkKind(*sink)) {
		log.Fatal().Str("sink", *sink).Msg("Export sink is not configured")
	}

	reports, err := application.Reports.List(ctx, *user)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list reports")
	}
	if len(reports) == 0 {
		log.Info().Str("user_id", *user).Msg("No reports to export")
		return 0
	}

	log.Info().Int("reports", len(reports)).Str("sink", *sink).Msg("Starting worker service")

	if err := application.Queue.Start(ctx, application.Exporter.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	for _, r := range reports {
		job := &jobs.ExportReportJob{UserID: *user, ReportID: r.ID, Sink: *sink}
		if err := application.Queue.PublishExportReport(ctx, job); err != nil {
			log.Fatal().Err(err).Str("report_id", r.ID).Msg("Failed to enqueue export job")
		}
	}

	deadline := time.After(*timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var settled []*jobs.ExportReportJob
wait:
	for {
		select {
		case <-ctx.Done():
			log.Warn().Msg("Interrupted, stopping worker")
			break wait
		case <-deadline:
			log.Warn().Dur("timeout", *timeout).Msg("Timed out waiting for export jobs")
			break wait
		case <-ticker.C:
			all, err := application.JobStore.ListJobs(ctx, jobs.JobFilter{UserID: *user})
			if err != nil {
				log.Error().Err(err).Msg("Failed to list jobs")
				continue
			}
			settled = settled[:0]
			for _, j := range all {
				if j.Status == jobs.JobStatusCompleted || j.Status == jobs.JobStatusFailed {
					settled = append(settled, j)
				}
			}
			if len(settled) == len(all) {
				break wait
			}
		}
	}

	// Stop the queue and wait for in-flight jobs
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := application.Queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	failed := 0
	for _, j := range settled {
		event := log.Info()
		if j.Status == jobs.JobStatusFailed {
			failed++
			event = log.Error().Str("error", j.Error)
		}
		event.Str("report_id", j.ReportID).
			Str("status", string(j.Status)).
			Str("location", j.Location).
			Msg("Export job settled")
	}

	log.Info().Int("settled", len(settled)).Int("failed", failed).Msg("Worker service exited")
	if failed > 0 || len(settled) < len(reports) {
		return 1
	}
	return 0
}
