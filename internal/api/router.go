// Package api wires the HTTP handlers and middleware of the tax estimate
// service.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/financr/internal/api/handlers"
	"github.com/dvloznov/financr/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the endpoint handlers served by the router.
type Handlers struct {
	Reports *handlers.ReportsHandler
	Records *handlers.RecordsHandler
	Export  *handlers.ExportHandler
	Jobs    *handlers.JobsHandler
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Reports endpoints
	mux.HandleFunc("GET /api/reports", h.Reports.ListReports)
	mux.HandleFunc("POST /api/reports", h.Reports.CreateReport)
	mux.HandleFunc("GET /api/reports/selected", h.Reports.SelectedReport)
	mux.HandleFunc("GET /api/reports/{id}", h.Reports.GetReport)
	mux.HandleFunc("PATCH /api/reports/{id}", h.Reports.UpdateReport)
	mux.HandleFunc("DELETE /api/reports/{id}", h.Reports.DeleteReport)
	mux.HandleFunc("POST /api/reports/{id}/select", h.Reports.SelectReport)
	mux.HandleFunc("POST /api/reports/{id}/populate", h.Reports.PopulateReport)
	mux.HandleFunc("POST /api/reports/{id}/calculate", h.Reports.CalculateReport)
	mux.HandleFunc("GET /api/reports/{id}/export", h.Export.DownloadReport)
	mux.HandleFunc("POST /api/reports/{id}/export", h.Export.EnqueueExport)

	// Income endpoints
	mux.HandleFunc("GET /api/income", h.Records.ListIncome)
	mux.HandleFunc("POST /api/income", h.Records.CreateIncome)
	mux.HandleFunc("GET /api/income/{id}", h.Records.GetIncome)
	mux.HandleFunc("PUT /api/income/{id}", h.Records.UpdateIncome)
	mux.HandleFunc("DELETE /api/income/{id}", h.Records.DeleteIncome)

	// Expenses endpoints
	mux.HandleFunc("GET /api/expenses", h.Records.ListExpenses)
	mux.HandleFunc("POST /api/expenses", h.Records.CreateExpense)
	mux.HandleFunc("GET /api/expenses/{id}", h.Records.GetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", h.Records.UpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", h.Records.DeleteExpense)

	// Jobs endpoints
	mux.HandleFunc("GET /api/jobs", h.Jobs.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.Jobs.GetJob)

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth("/health")(mux),
				),
			),
		),
	)
}
