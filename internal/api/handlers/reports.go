package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dvloznov/financr/internal/api/middleware"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/rs/zerolog"
)

// ReportManager is the report lifecycle the handlers drive.
type ReportManager interface {
	Create(ctx context.Context, userID string, year int) (*domain.TaxReport, error)
	List(ctx context.Context, userID string) ([]*domain.TaxReport, error)
	Get(ctx context.Context, userID, reportID string) (*domain.TaxReport, error)
	Select(userID, reportID string) error
	Selected(userID string) *domain.TaxReport
	UpdateFields(ctx context.Context, userID, reportID string, patch domain.ReportPatch) (*domain.TaxReport, error)
	PopulateFromRecords(ctx context.Context, userID, reportID string) (*domain.TaxReport, error)
	Calculate(ctx context.Context, userID, reportID string) (*domain.TaxReport, error)
	Delete(ctx context.Context, userID, reportID string) error
}

// ReportsHandler handles tax report endpoints.
type ReportsHandler struct {
	manager ReportManager
	log     zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(manager ReportManager, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		manager: manager,
		log:     log,
	}
}

// ListReports handles GET /api/reports
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	reports, err := h.manager.List(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list reports")
		return
	}
	if reports == nil {
		reports = []*domain.TaxReport{}
	}

	selected := ""
	if s := h.manager.Selected(user); s != nil {
		selected = s.ID
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports":     reports,
		"count":       len(reports),
		"selected_id": selected,
	})
}

// CreateReport handles POST /api/reports
func (h *ReportsHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		TaxYear int `json:"tax_year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.manager.Create(r.Context(), user, req.TaxYear)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create report")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, report)
}

// GetReport handles GET /api/reports/{id}
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	report, err := h.manager.Get(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get report")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// UpdateReport handles PATCH /api/reports/{id}
func (h *ReportsHandler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var patch domain.ReportPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeServiceError(w, r, err, "Invalid request body")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if patch.IsEmpty() {
		middleware.WriteError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	report, err := h.manager.UpdateFields(r.Context(), user, r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update report")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// DeleteReport handles DELETE /api/reports/{id}
func (h *ReportsHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Delete(r.Context(), user, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete report")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectReport handles POST /api/reports/{id}/select
func (h *ReportsHandler) SelectReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	// Loading the report puts it in the user's list before selecting it.
	report, err := h.manager.Get(r.Context(), user, id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to select report")
		return
	}
	if err := h.manager.Select(user, id); err != nil {
		writeServiceError(w, r, err, "Failed to select report")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// SelectedReport handles GET /api/reports/selected
func (h *ReportsHandler) SelectedReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	report := h.manager.Selected(user)
	if report == nil {
		if _, err := h.manager.List(r.Context(), user); err != nil {
			writeServiceError(w, r, err, "Failed to load reports")
			return
		}
		report = h.manager.Selected(user)
	}
	if report == nil {
		middleware.WriteError(w, http.StatusNotFound, "No report selected")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// PopulateReport handles POST /api/reports/{id}/populate
func (h *ReportsHandler) PopulateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	report, err := h.manager.PopulateFromRecords(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to populate report")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// CalculateReport handles POST /api/reports/{id}/calculate
func (h *ReportsHandler) CalculateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	report, err := h.manager.Calculate(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, fmt.Sprintf("Tax calculation failed for report %s", r.PathValue("id")))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}
