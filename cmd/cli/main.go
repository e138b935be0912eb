package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/financr/internal/app"
	"github.com/dvloznov/financr/internal/config"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/export"
	"github.com/dvloznov/financr/internal/gcs"
	"github.com/dvloznov/financr/internal/importer"
	"github.com/dvloznov/financr/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "report-create":
		runReportCreate(log)
	case "reports":
		runReports(log)
	case "populate":
		runPopulate(log)
	case "calculate":
		runCalculate(log)
	case "export":
		runExport(log)
	case "import":
		runImport(log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Financr CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  report-create  Create an empty tax report for a year")
	fmt.Println("  reports        List a user's tax reports")
	fmt.Println("  populate       Fill report buckets from logged income and expenses")
	fmt.Println("  calculate      Run the tax calculation for a report")
	fmt.Println("  export         Write a report as text, or deliver it to a sink")
	fmt.Println("  import         Import a bank statement PDF as income and expenses")
	fmt.Println("  upload         Upload a statement PDF to GCS")
	fmt.Println("  help           Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// command holds the flags shared by every subcommand.
type command struct {
	fs   *flag.FlagSet
	cfg  *config.Config
	user *string
}

func newCommand(log zerolog.Logger, name string) *command {
	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfg.RegisterFlags(fs)
	return &command{
		fs:   fs,
		cfg:  cfg,
		user: fs.String("user", os.Getenv("FINANCR_USER"), "User ID (or set FINANCR_USER env)"),
	}
}

func (c *command) parse(log zerolog.Logger) {
	c.fs.Parse(os.Args[2:])
	if *c.user == "" {
		log.Fatal().Msg("Error: -user is required")
	}
}

func (c *command) build(ctx context.Context, log zerolog.Logger) *app.App {
	a, err := app.Build(ctx, c.cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	return a
}

func runReportCreate(log zerolog.Logger) {
	cmd := newCommand(log, "report-create")
	year := cmd.fs.Int("year", time.Now().Year()-1, "Tax year")
	cmd.parse(log)

	ctx := logger.WithContext(context.Background(), log)
	a := cmd.build(ctx, log)
	defer a.Close()

	report, err := a.Reports.Create(ctx, *cmd.user, *year)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create report")
	}

	fmt.Printf("Created report %s (%s)\n", report.ID, report.Name)
}

func runReports(log zerolog.Logger) {
	cmd := newCommand(log, "reports")
	cmd.parse(log)

	ctx := logger.WithContext(context.Background(), log)
	a := cmd.build(ctx, log)
	defer a.Close()

	reports, err := a.Reports.List(ctx, *cmd.user)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list reports")
	}

	fmt.Printf("\n=== Reports (%d) ===\n", len(reports))
	for i, r := range reports {
		fmt.Printf("\n%d. %s\n", i+1, r.Name)
		fmt.Printf("   ID:        %s\n", r.ID)
		fmt.Printf("   Tax Year:  %d\n", r.TaxYear)
		fmt.Printf("   Status:    %s\n", r.Status)
		fmt.Printf("   Total Tax: %s\n", r.TotalTaxLiability.StringFixed(2))
	}
	fmt.Println()
}

func runPopulate(log zerolog.Logger) {
	cmd := newCommand(log, "populate")
	reportID := cmd.fs.String("report", "", "Report ID")
	cmd.parse(log)

	if *reportID == "" {
		log.Fatal().Msg("Error: -report is required")
	}

	ctx := logger.WithContext(context.Background(), log)
	a := cmd.build(ctx, log)
	defer a.Close()

	report, err := a.Reports.PopulateFromRecords(ctx, *cmd.user, *reportID)
	if err != nil {
		log.Fatal().Err(err).Msg("Populate failed")
	}

	printAmounts(report, domain.IncomeFields)
	printAmounts(report, domain.DeductionFields)
}

func runCalculate(log zerolog.Logger) {
	cmd := newCommand(log, "calculate")
	reportID := cmd.fs.String("report", "", "Report ID")
	cmd.parse(log)

	if *reportID == "" {
		log.Fatal().Msg("Error: -report is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := cmd.build(ctx, log)
	defer a.Close()

	report, err := a.Reports.Calculate(ctx, *cmd.user, *reportID)
	if err != nil {
		log.Fatal().Err(err).Msg("Calculation failed")
	}

	printAmounts(report, domain.DerivedFields)
}

func printAmounts(r *domain.TaxReport, fields []domain.Field) {
	for _, f := range fields {
		fmt.Printf("%-28s %14s\n", f.Label()+":", r.Amount(f).StringFixed(2))
	}
}

func runExport(log zerolog.Logger) {
	cmd := newCommand(log, "export")
	reportID := cmd.fs.String("report", "", "Report ID")
	out := cmd.fs.String("out", "", "Output file or directory (defaults to stdout)")
	sink := cmd.fs.String("sink", "", "Deliver to a configured sink instead: file, gcs, azure_blob, notion")
	cmd.parse(log)

	if *reportID == "" {
		log.Fatal().Msg("Error: -report is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := cmd.build(ctx, log)
	defer a.Close()

	if *sink != "" {
		location, err := a.Exporter.Deliver(ctx, *cmd.user, *reportID, export.SinkKind(*sink))
		if err != nil {
			log.Fatal().Err(err).Msg("Export failed")
		}
		fmt.Printf("Exported report to %s\n", location)
		return
	}

	obj, err := a.Exporter.Document(ctx, *cmd.user, *reportID)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	if *out == "" {
		fmt.Print(obj.Content)
		return
	}

	path := *out
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, obj.Filename)
	}
	if err := os.WriteFile(path, []byte(obj.Content), 0o644); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write report")
	}

	fmt.Printf("Wrote %s\n", path)
}

func runImport(log zerolog.Logger) {
	cmd := newCommand(log, "import")
	filePath := cmd.fs.String("file", "", "Path to a local statement PDF")
	gcsURI := cmd.fs.String("gcs-uri", "", "GCS URI of the statement PDF")
	cmd.parse(log)

	if (*filePath == "") == (*gcsURI == "") {
		log.Fatal().Msg("Usage: cli import -user ID (-file PATH | -gcs-uri gs://bucket/object)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := cmd.build(ctx, log)
	defer a.Close()

	imp, err := a.NewImporter(ctx, *gcsURI != "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create importer")
	}

	var result *importer.Result
	if *filePath != "" {
		result, err = imp.ImportFile(ctx, *cmd.user, *filePath)
	} else {
		result, err = imp.ImportGCS(ctx, *cmd.user, *gcsURI)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	fmt.Printf("Imported %s: %d income records, %d expenses, %d rows skipped\n",
		result.Source, result.Income, result.Expenses, result.Skipped)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name (or set GCS_BUCKET env)")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local PDF file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	ctx := logger.WithContext(context.Background(), log)

	client, err := gcs.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer client.Close()

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	if err := client.Upload(ctx, *bucketName, *objectName, data, "application/pdf"); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, gcs.URI(*bucketName, *objectName))
}
