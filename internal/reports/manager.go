// Package reports owns the tax report lifecycle: per-user report lists and
// selection, field edits, populating buckets from logged records and running
// the tax calculation.
package reports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/store"
	"github.com/dvloznov/financr/internal/tax"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// session is the per-user working set: the loaded reports in creation order
// and the selected report id.
type session struct {
	reports  []*domain.TaxReport
	selected string
}

// Manager coordinates report operations for many users.
type Manager struct {
	reports  store.TaxReportRepository
	income   store.IncomeRepository
	expenses store.ExpenseRepository
	calc     tax.TaxCalculator
	log      zerolog.Logger

	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates a Manager.
func NewManager(
	reports store.TaxReportRepository,
	income store.IncomeRepository,
	expenses store.ExpenseRepository,
	calc tax.TaxCalculator,
	log zerolog.Logger,
) *Manager {
	return &Manager{
		reports:  reports,
		income:   income,
		expenses: expenses,
		calc:     calc,
		log:      log.With().Str("component", "reports").Logger(),
		now:      time.Now,
		newID:    uuid.NewString,
		sessions: make(map[string]*session),
	}
}

func (m *Manager) session(userID string) *session {
	s, ok := m.sessions[userID]
	if !ok {
		s = &session{}
		m.sessions[userID] = s
	}
	return s
}

func requireUser(userID string) error {
	if userID == "" {
		return &domain.ValidationError{Field: "user_id", Message: "is required"}
	}
	return nil
}

// Create persists an empty draft report for year and selects it.
func (m *Manager) Create(ctx context.Context, userID string, year int) (*domain.TaxReport, error) {
	if err := requireUser(userID); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if err := domain.ValidateTaxYear(year); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	report := domain.NewTaxReport(m.newID(), userID, year, m.now().UTC())
	if err := m.reports.InsertTaxReport(ctx, report); err != nil {
		return nil, fmt.Errorf("Create: insert report: %w", err)
	}

	m.mu.Lock()
	s := m.session(userID)
	s.reports = append(s.reports, report.Clone())
	s.selected = report.ID
	m.mu.Unlock()

	m.log.Info().
		Str("user_id", userID).
		Str("report_id", report.ID).
		Int("tax_year", year).
		Msg("Tax report created")

	return report, nil
}

// List reloads the user's reports, newest first. The selection is kept when
// the report still exists, otherwise the newest report is selected.
func (m *Manager) List(ctx context.Context, userID string) ([]*domain.TaxReport, error) {
	if err := requireUser(userID); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	list, err := m.reports.ListTaxReports(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("List: list reports: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(userID)
	s.reports = make([]*domain.TaxReport, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		s.reports = append(s.reports, list[i].Clone())
	}
	if s.find(s.selected) < 0 {
		s.selected = s.newest()
	}

	return list, nil
}

// Get returns one report.
func (m *Manager) Get(ctx context.Context, userID, reportID string) (*domain.TaxReport, error) {
	if err := requireUser(userID); err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	report, err := m.reports.GetTaxReport(ctx, userID, reportID)
	if err != nil {
		m.handleMissing(userID, reportID, err)
		return nil, fmt.Errorf("Get: %w", err)
	}
	m.remember(report)
	return report, nil
}

// Select makes reportID the user's selected report. The report must be in
// the user's loaded list.
func (m *Manager) Select(userID, reportID string) error {
	if err := requireUser(userID); err != nil {
		return fmt.Errorf("Select: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(userID)
	if s.find(reportID) < 0 {
		return fmt.Errorf("Select: %w", domain.NotFoundError("tax report", reportID))
	}
	s.selected = reportID
	return nil
}

// Selected returns the selected report, or nil when none is selected.
func (m *Manager) Selected(userID string) *domain.TaxReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(userID)
	if i := s.find(s.selected); i >= 0 {
		return s.reports[i].Clone()
	}
	return nil
}

// UpdateFields merges patch into the stored report. Edits to buckets, tax
// year, filing status or deduction method return the report to draft with
// zeroed derived fields.
func (m *Manager) UpdateFields(ctx context.Context, userID, reportID string, patch domain.ReportPatch) (*domain.TaxReport, error) {
	if err := requireUser(userID); err != nil {
		return nil, fmt.Errorf("UpdateFields: %w", err)
	}
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("UpdateFields: %w", err)
	}

	report, err := m.reports.GetTaxReport(ctx, userID, reportID)
	if err != nil {
		m.handleMissing(userID, reportID, err)
		return nil, fmt.Errorf("UpdateFields: load report: %w", err)
	}

	if patch.Apply(report) {
		report.InvalidateDerived()
	}
	report.UpdatedAt = m.now().UTC()

	if err := m.reports.UpdateTaxReport(ctx, report); err != nil {
		m.handleMissing(userID, reportID, err)
		return nil, fmt.Errorf("UpdateFields: save report: %w", err)
	}

	m.remember(report)
	return report, nil
}

// PopulateFromRecords aggregates the user's income and deductible expenses
// over the report's tax year and overwrites every categorizer-fed bucket.
// Manually entered values in those buckets are discarded.
func (m *Manager) PopulateFromRecords(ctx context.Context, userID, reportID string) (*domain.TaxReport, error) {
	if err := requireUser(userID); err != nil {
		return nil, fmt.Errorf("PopulateFromRecords: %w", err)
	}
	report, err := m.reports.GetTaxReport(ctx, userID, reportID)
	if err != nil {
		m.handleMissing(userID, reportID, err)
		return nil, fmt.Errorf("PopulateFromRecords: load report: %w", err)
	}

	window := domain.TaxYearWindow(report.TaxYear)

	income, err := m.income.ListIncome(ctx, userID, window)
	if err != nil {
		return nil, fmt.Errorf("PopulateFromRecords: list income: %w", err)
	}

	expenses, err := m.expenses.ListExpenses(ctx, userID, store.ExpenseFilter{Range: window, DeductibleOnly: true})
	if err != nil {
		return nil, fmt.Errorf("PopulateFromRecords: list expenses: %w", err)
	}

	totals := tax.Aggregate(income, expenses, window)

	updated, err := m.UpdateFields(ctx, userID, reportID, totals.Patch())
	if err != nil {
		return nil, fmt.Errorf("PopulateFromRecords: %w", err)
	}

	m.log.Info().
		Str("user_id", userID).
		Str("report_id", reportID).
		Int("tax_year", report.TaxYear).
		Int("income_records", len(income)).
		Int("expenses", len(expenses)).
		Msg("Tax report populated from records")

	return updated, nil
}

// Calculate runs the tax calculator and re-reads the report. A calculator
// failure is returned wrapped in domain.ErrCalculation.
func (m *Manager) Calculate(ctx context.Context, userID, reportID string) (*domain.TaxReport, error) {
	if err := requireUser(userID); err != nil {
		return nil, fmt.Errorf("Calculate: %w", err)
	}
	if err := m.calc.Calculate(ctx, userID, reportID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.handleMissing(userID, reportID, err)
			return nil, fmt.Errorf("Calculate: %w", err)
		}
		m.log.Error().Err(err).
			Str("user_id", userID).
			Str("report_id", reportID).
			Msg("Tax calculation failed")
		return nil, fmt.Errorf("Calculate: %w: %w", domain.ErrCalculation, err)
	}

	report, err := m.reports.GetTaxReport(ctx, userID, reportID)
	if err != nil {
		m.handleMissing(userID, reportID, err)
		return nil, fmt.Errorf("Calculate: reload report: %w", err)
	}

	m.remember(report)
	return report, nil
}

// Delete removes the report. When it was selected, the most recently created
// remaining report becomes selected, or none.
func (m *Manager) Delete(ctx context.Context, userID, reportID string) error {
	if err := requireUser(userID); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := m.reports.DeleteTaxReport(ctx, userID, reportID); err != nil {
		m.handleMissing(userID, reportID, err)
		return fmt.Errorf("Delete: %w", err)
	}

	m.mu.Lock()
	m.session(userID).forget(reportID)
	m.mu.Unlock()

	m.log.Info().
		Str("user_id", userID).
		Str("report_id", reportID).
		Msg("Tax report deleted")
	return nil
}

// handleMissing drops a report that no longer exists from the user's list.
func (m *Manager) handleMissing(userID, reportID string, err error) {
	if !errors.Is(err, domain.ErrNotFound) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return
	}
	if s.find(reportID) >= 0 {
		m.log.Warn().
			Str("user_id", userID).
			Str("report_id", reportID).
			Msg("Tax report no longer exists")
	}
	s.forgetMissing(reportID)
}

// remember refreshes the cached copy of report in its owner's list.
func (m *Manager) remember(report *domain.TaxReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(report.UserID)
	if i := s.find(report.ID); i >= 0 {
		s.reports[i] = report.Clone()
		return
	}
	s.reports = append(s.reports, report.Clone())
}

func (s *session) find(id string) int {
	if id == "" {
		return -1
	}
	for i, r := range s.reports {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// newest returns the id of the most recently created report, or "".
func (s *session) newest() string {
	var newest *domain.TaxReport
	for _, r := range s.reports {
		if newest == nil || !r.CreatedAt.Before(newest.CreatedAt) {
			newest = r
		}
	}
	if newest == nil {
		return ""
	}
	return newest.ID
}

func (s *session) remove(id string) {
	if i := s.find(id); i >= 0 {
		s.reports = append(s.reports[:i], s.reports[i+1:]...)
	}
}

// forget removes a deleted report and moves the selection to the most
// recently created remaining report.
func (s *session) forget(id string) {
	s.remove(id)
	if s.selected == id {
		s.selected = s.newest()
	}
}

// forgetMissing removes a report deleted elsewhere. A selection pointing at
// it is cleared.
func (s *session) forgetMissing(id string) {
	s.remove(id)
	if s.selected == id {
		s.selected = ""
	}
}
