package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/financr/internal/api/middleware"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RecordsHandler handles income record and expense endpoints.
type RecordsHandler struct {
	income   store.IncomeRepository
	expenses store.ExpenseRepository
	log      zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(income store.IncomeRepository, expenses store.ExpenseRepository, log zerolog.Logger) *RecordsHandler {
	return &RecordsHandler{
		income:   income,
		expenses: expenses,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type incomeRequest struct {
	Amount       json.RawMessage `json:"amount"`
	SourceType   string          `json:"source_type"`
	DateReceived string          `json:"date_received"`
	ClientName   string          `json:"client_name"`
	Description  string          `json:"description"`
}

func (req *incomeRequest) toRecord(rec *domain.IncomeRecord) error {
	amount, err := domain.ParseJSONAmount("amount", req.Amount)
	if err != nil {
		return err
	}
	date, err := domain.ParseDate("date_received", req.DateReceived)
	if err != nil {
		return err
	}
	rec.Amount = amount
	rec.SourceType = strings.TrimSpace(req.SourceType)
	rec.DateReceived = date
	rec.ClientName = strings.TrimSpace(req.ClientName)
	rec.Description = strings.TrimSpace(req.Description)
	return rec.Validate()
}

type expenseRequest struct {
	Amount          json.RawMessage `json:"amount"`
	Category        string          `json:"category"`
	Subcategory     string          `json:"subcategory"`
	DateIncurred    string          `json:"date_incurred"`
	IsTaxDeductible bool            `json:"is_tax_deductible"`
	Description     string          `json:"description"`
}

func (req *expenseRequest) toExpense(e *domain.Expense) error {
	amount, err := domain.ParseJSONAmount("amount", req.Amount)
	if err != nil {
		return err
	}
	date, err := domain.ParseDate("date_incurred", req.DateIncurred)
	if err != nil {
		return err
	}
	e.Amount = amount
	e.Category = strings.TrimSpace(req.Category)
	e.Subcategory = strings.TrimSpace(req.Subcategory)
	e.DateIncurred = date
	e.IsTaxDeductible = req.IsTaxDeductible
	e.Description = strings.TrimSpace(req.Description)
	return e.Validate()
}

// ListIncome handles GET /api/income
func (h *RecordsHandler) ListIncome(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	dateRange, err := domain.ParseDateRange(query.Get("start_date"), query.Get("end_date"))
	if err != nil {
		writeServiceError(w, r, err, "Invalid date range")
		return
	}

	records, err := h.income.ListIncome(r.Context(), user, dateRange)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list income records")
		return
	}
	if records == nil {
		records = []*domain.IncomeRecord{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"income": records,
		"count":  len(records),
	})
}

// CreateIncome handles POST /api/income
func (h *RecordsHandler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var req incomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec := &domain.IncomeRecord{ID: h.newID(), UserID: user, CreatedAt: h.now().UTC()}
	if err := req.toRecord(rec); err != nil {
		writeServiceError(w, r, err, "Invalid income record")
		return
	}

	if err := h.income.InsertIncome(r.Context(), rec); err != nil {
		writeServiceError(w, r, err, "Failed to create income record")
		return
	}

	h.log.Info().Str("user_id", user).Str("income_id", rec.ID).Msg("Income record created")
	middleware.WriteJSON(w, http.StatusCreated, rec)
}

// GetIncome handles GET /api/income/{id}
func (h *RecordsHandler) GetIncome(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	rec, err := h.income.GetIncome(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get income record")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rec)
}

// UpdateIncome handles PUT /api/income/{id}
func (h *RecordsHandler) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var req incomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.income.GetIncome(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to update income record")
		return
	}
	if err := req.toRecord(rec); err != nil {
		writeServiceError(w, r, err, "Invalid income record")
		return
	}

	if err := h.income.UpdateIncome(r.Context(), rec); err != nil {
		writeServiceError(w, r, err, "Failed to update income record")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rec)
}

// DeleteIncome handles DELETE /api/income/{id}
func (h *RecordsHandler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	if err := h.income.DeleteIncome(r.Context(), user, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete income record")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListExpenses handles GET /api/expenses
func (h *RecordsHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	dateRange, err := domain.ParseDateRange(query.Get("start_date"), query.Get("end_date"))
	if err != nil {
		writeServiceError(w, r, err, "Invalid date range")
		return
	}
	filter := store.ExpenseFilter{
		Range:          dateRange,
		DeductibleOnly: query.Get("deductible") == "true",
	}

	expenses, err := h.expenses.ListExpenses(r.Context(), user, filter)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list expenses")
		return
	}
	if expenses == nil {
		expenses = []*domain.Expense{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"count":    len(expenses),
	})
}

// CreateExpense handles POST /api/expenses
func (h *RecordsHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	e := &domain.Expense{ID: h.newID(), UserID: user, CreatedAt: h.now().UTC()}
	if err := req.toExpense(e); err != nil {
		writeServiceError(w, r, err, "Invalid expense")
		return
	}

	if err := h.expenses.InsertExpense(r.Context(), e); err != nil {
		writeServiceError(w, r, err, "Failed to create expense")
		return
	}

	h.log.Info().Str("user_id", user).Str("expense_id", e.ID).Msg("Expense created")
	middleware.WriteJSON(w, http.StatusCreated, e)
}

// GetExpense handles GET /api/expenses/{id}
func (h *RecordsHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	e, err := h.expenses.GetExpense(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get expense")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, e)
}

// UpdateExpense handles PUT /api/expenses/{id}
func (h *RecordsHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	e, err := h.expenses.GetExpense(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to update expense")
		return
	}
	if err := req.toExpense(e); err != nil {
		writeServiceError(w, r, err, "Invalid expense")
		return
	}

	if err := h.expenses.UpdateExpense(r.Context(), e); err != nil {
		writeServiceError(w, r, err, "Failed to update expense")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, e)
}

// DeleteExpense handles DELETE /api/expenses/{id}
func (h *RecordsHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	if err := h.expenses.DeleteExpense(r.Context(), user, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
