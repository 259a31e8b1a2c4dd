/*
handlers.go - HTTP API handlers for the rent ledger

PURPOSE:
  Exposes the rent and payroll books plus the reports over REST. Handles
  HTTP request/response, JSON serialization, and delegates everything else
  to domain logic.

ENDPOINTS:
  Properties:
    GET    /api/properties                      List properties
    POST   /api/properties                      Create property
    GET    /api/properties/{id}                 Get property

  Tenants:
    GET    /api/tenants                         List tenants (?active=true)
    POST   /api/tenants                         Onboard tenant
    GET    /api/tenants/{id}                    Get tenant
    POST   /api/tenants/{id}/deactivate         Deactivate tenant
    GET    /api/tenants/{id}/rent               Rent schedule history
    POST   /api/tenants/{id}/rent               Change rent
    GET    /api/tenants/{id}/status             Status (?month=YYYY-MM)
    GET    /api/tenants/{id}/payments           Payment history
    POST   /api/tenants/{id}/payments           Record payment
    POST   /api/tenants/{id}/payments/preview   Dry-run allocation
    GET    /api/tenants/statuses                All active statuses + totals

  Employees:
    GET    /api/employees                       List employees (?active=true)
    POST   /api/employees                       Hire employee
    GET    /api/employees/{id}                  Get employee
    POST   /api/employees/{id}/deactivate       Deactivate employee
    GET    /api/employees/{id}/salary           Salary schedule history
    POST   /api/employees/{id}/salary           Change salary
    GET    /api/employees/{id}/status           Status (?month=YYYY-MM)
    GET    /api/employees/{id}/payouts          Payout history
    POST   /api/employees/{id}/payouts          Pay one month's salary
    GET    /api/employees/statuses              All active statuses + totals

  Commission:
    GET    /api/commission                      Rate at ?month= (default now)
    POST   /api/commission                      Set rate

  Expenses:
    GET    /api/expenses                        List (?property=&category=)
    POST   /api/expenses                        Record expense
    GET    /api/categories                      List categories
    POST   /api/categories                      Create category

  Reports:
    GET    /api/reports/funds                   All-time funds position
    GET    /api/reports/month                   Month snapshot (?month=)
    GET    /api/reports/expenses                Category breakdown
    GET    /api/reports/properties              Per-property summaries
    GET    /api/reports/series                  Trend (?end=&months=)
    GET    /api/dashboard                       Snapshot + tenant statuses

  Demo:
    GET    /api/demo/datasets                   List demo datasets
    POST   /api/demo/load                       Load a demo dataset

ERROR HANDLING:
  Domain errors map to HTTP status through the ledger error taxonomy:
  - 400: validation, retroactive change, allocation failure, not-yet-active
  - 404: unknown subject, property, or category
  - 409: duplicate salary payout
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - demo.go: Demo dataset loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/estateops/rentledger/ledger"
	"github.com/estateops/rentledger/logging"
	"github.com/estateops/rentledger/metrics"
	"github.com/estateops/rentledger/payroll"
	"github.com/estateops/rentledger/rent"
	"github.com/estateops/rentledger/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.TxStore
	Clock    ledger.Clock
	Rents    *rent.Book
	Payrolls *payroll.Book
	Reports  *report.Reports
	Log      *logging.Logger
}

// NewHandler wires the domain books over the given store.
func NewHandler(store ledger.TxStore, clock ledger.Clock, log *logging.Logger) *Handler {
	rents := rent.NewBook(store, clock)
	payrolls := payroll.NewBook(store, clock)
	return &Handler{
		Store:    store,
		Clock:    clock,
		Rents:    rents,
		Payrolls: payrolls,
		Reports:  report.NewReports(store, clock, rents, payrolls),
		Log:      log,
	}
}

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

// ListProperties returns all properties.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.Store.Properties(r.Context())
	if err != nil {
		h.writeError(w, "Failed to list properties", err)
		return
	}
	dtos := make([]PropertyDTO, len(properties))
	for i, p := range properties {
		dtos[i] = toPropertyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProperty creates a new property.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		h.writeError(w, "Invalid property", ledger.NewValidationError("name", "property name is required"))
		return
	}
	property := ledger.Property{
		ID:       ledger.PropertyID(ledger.NewID(ledger.PrefixProperty)),
		Name:     req.Name,
		Location: req.Location,
		Notes:    req.Notes,
	}
	if err := h.Store.SaveProperty(r.Context(), property); err != nil {
		h.writeError(w, "Failed to create property", err)
		return
	}
	property, _ = h.Store.PropertyByID(r.Context(), property.ID)
	writeJSON(w, http.StatusCreated, toPropertyDTO(property))
}

// GetProperty returns a single property.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	property, err := h.Store.PropertyByID(r.Context(), ledger.PropertyID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, "Failed to get property", err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyDTO(property))
}

// =============================================================================
// TENANT HANDLERS
// =============================================================================

// ListTenants returns tenants, active only when ?active=true.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Rents.Tenants(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		h.writeError(w, "Failed to list tenants", err)
		return
	}
	dtos := make([]TenantDTO, len(tenants))
	for i, t := range tenants {
		dtos[i] = toTenantDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// OnboardTenant creates a tenant with their opening rent.
func (h *Handler) OnboardTenant(w http.ResponseWriter, r *http.Request) {
	var req OnboardTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body", err)
		return
	}
	start, err := ledger.ParseMonth(req.StartMonth)
	if err != nil {
		writeBadRequest(w, "Invalid start_month", err)
		return
	}
	rentAmount, err := decimal.NewFromString(req.Rent)
	if err != nil {
		writeBadRequest(w, "Invalid rent", err)
		return
	}

	tenant, err := h.Rents.Onboard(r.Context(), rent.OnboardInput{
		Property:   ledger.PropertyID(req.Property),
		Name:       req.Name,
		Phone:      req.Phone,
		StartMonth: start,
		Rent:       rentAmount,
	})
	if err != nil {
		h.writeError(w, "Failed to onboard tenant", err)
		return
	}
	h.Log.Infow("tenant onboarded", "tenant_id", tenant.ID, "property_id", tenant.Property, "start_month", start.String())
	writeJSON(w, http.StatusCreated, toTenantDTO(tenant))
}

// GetTenant returns a single tenant.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.Rents.Tenant(r.Context(), ledger.SubjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, "Failed to get tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(tenant))
}

// DeactivateTenant marks a tenant inactive.
func (h *Handler) DeactivateTenant(w http.ResponseWriter, r *http.Request) {
	id := ledger.SubjectID(chi.URLParam(r, "id"))
	if err := h.Rents.Deactivate(r.Context(), id); err != nil {
		h.writeError(w, "Failed to deactivate tenant", err)
		return
	}
	tenant, err := h.Rents.Tenant(r.Context(), id)
	if err != nil {
		h.writeError(w, "Failed to get tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(tenant))
}

// GetRentHistory returns the tenant's rent schedule.
func (h *Handler) GetRentHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Rents.RentHistory(r.Context(), ledger.SubjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, "Failed to get rent history", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleEntryDTOs(entries))
}

// ChangeRent sets a new rent effective from a month.
func (h *Handler) ChangeRent(w http.ResponseWriter, r *http.Request) {
	id := ledger.SubjectID(chi.URLParam(r, "id"))
	effectiveFrom, value, ok := h.decodeScheduleChange(w, r)
	if !ok {
		return
	}
	if err := h.Rents.ChangeRent(r.Context(), id, effectiveFrom, value); err != nil {
		h.writeError(w, "Failed to change rent", err)
		return
	}
	entries, err := h.Rents.RentHistory(r.Context(), id)
	if err != nil {
		h.writeError(w, "Failed to get rent history", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleEntryDTOs(entries))
}

// GetTenantStatus returns one tenant's standing as of ?month= (default: now).
func (h *Handler) GetTenantStatus(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.monthParam(w, r, "month")
	if !ok {
		return
	}
	status, err := h.Rents.Status(r.Context(), ledger.SubjectID(chi.URLParam(r, "id")), asOf)
	if err != nil {
		h.writeError(w, "Failed to get tenant status", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(status))
}

// ListTenantStatuses returns every active tenant's standing plus totals.
func (h *Handler) ListTenantStatuses(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.monthParam(w, r, "month")
	if !ok {
		return
	}
	statuses, totals, err := h.Rents.Statuses(r.Context(), asOf)
	if err != nil {
		h.writeError(w, "Failed to list tenant statuses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"statuses": toTenantStatusDTOs(statuses),
		"totals":   toTotalsDTO(totals),
	})
}

// ListPayments returns the tenant's payment entries.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Rents.Payments(r.Context(), ledger.SubjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// RecordPayment allocates a lump payment and writes the commission fee.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.SubjectID(chi.URLParam(r, "id"))
	amount, upTo, ok := h.decodePayment(w, r)
	if !ok {
		return
	}

	receipt, err := h.Rents.RecordPayment(r.Context(), id, amount, upTo, h.Clock.Now())
	if err != nil {
		metrics.RecordPayment("error", 0, false)
		h.writeError(w, "Failed to record payment", err)
		return
	}
	metrics.RecordPayment("ok", len(receipt.Entries), receipt.HasFee)
	h.Log.Infow("payment recorded",
		"tenant_id", id, "amount", amount.String(),
		"months", len(receipt.Entries), "receipt_ref", receipt.Ref)
	writeJSON(w, http.StatusCreated, toReceiptDTO(receipt))
}

// PreviewPayment plans the split without writing.
func (h *Handler) PreviewPayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.SubjectID(chi.URLParam(r, "id"))
	amount, upTo, ok := h.decodePayment(w, r)
	if !ok {
		return
	}
	plan, err := h.Rents.PreviewPayment(r.Context(), id, amount, upTo)
	if err != nil {
		h.writeError(w, "Failed to preview payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(plan))
}

func (h *Handler) decodePayment(w http.ResponseWriter, r *http.Request) (decimal.Decimal, ledger.Month, bool) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body", err)
		return decimal.Zero, ledger.Month{}, false
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeBadRequest(w, "Invalid amount", err)
		return decimal.Zero, ledger.Month{}, false
	}
	upTo, err := ledger.ParseMonth(req.UpToMonth)
	if err != nil {
		writeBadRequest(w, "Invalid up_to_month", err)
		return decimal.Zero, ledger.Month{}, false
	}
	return amount, upTo, true
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns employees, active only when ?active=true.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Payrolls.Employees(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		h.writeError(w, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// HireEmployee creates an employee with their opening salary.
func (h *Handler) HireEmployee(w http.ResponseWriter, r *http.Request) {
	var req HireEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body", err)
		return
	}
	start, err := ledger.ParseMonth(req.StartMonth)
	if err != nil {
		writeBadRequest(w, "Invalid start_month", err)
		return
	}
	salary, err := decimal.NewFromString(req.Salary)
	if err != nil {
		writeBadRequest(w, "Invalid salary", err)
		return
	}

	employee, err := h.Payrolls.Hire(r.Context(), payroll.HireInput{
		Property:   ledger.PropertyID(req.Property),
		Name:       req.Name,
		Role:       req.Role,
		StartMonth: start,
		Salary:     salary,
	})
	if err != nil {
		h.writeError(w, "Failed to hire employee", err)
		return
	}
	h.Log.Infow("employee hired", "employee_id", employee.ID, "property_id", employee.Property)
	writeJSON(w, http.StatusCreated, toEmployeeDTO(employee))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	employee, err := h.Payrolls.Employee(r.Context(), ledger.SubjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(employee))
}

// DeactivateEmployee marks an employee inactive.
func (h *Handler) DeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	id := ledger.SubjectID(chi.URLParam(r, "id"))
	if err := h.Payrolls.Deactivate(r.Context(), id); err != nil {
		h.writeError(w, "Failed to deactivate employee", err)
		return
	}
	employee, err := h.Payrolls.Employee(r.Context(), id)
	if err != nil {
		h.writeError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(employee))
}

// GetSalaryHistory returns the employee's salary schedule.
func (h *Handler) GetSalaryHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Payrolls.SalaryHistory(r.Context(), ledger.SubjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, "Failed to get salary history", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleEntryDTOs(entries))
}

// ChangeSalary sets a new salary effective from a month.
func (h *Handler) ChangeSalary(w http.ResponseWriter, r *http.Request) {
	id := ledger.SubjectID(chi.URLParam(r, "id"))
	effectiveFrom, value, ok := h.decodeScheduleChange(w, r)
	if !ok {
		return
	}
	if err := h.Payrolls.ChangeSalary(r.Context(), id, effectiveFrom, value); err != nil {
		h.writeError(w, "Failed to change salary", err)
		return
	}
	entries, err := h.Payrolls.SalaryHistory(r.Context(), id)
	if err != nil {
		h.writeError(w, "Failed to get salary history", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleEntryDTOs(entries))
}

// GetEmployeeStatus returns one employee's standing as of ?month=.
func (h *Handler) GetEmployeeStatus(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.monthParam(w, r, "month")
	if !ok {
		return
	}
	status, err := h.Payrolls.Status(r.Context(), ledger.SubjectID(chi.URLParam(r, "id")), asOf)
	if err != nil {
		h.writeError(w, "Failed to get employee status", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(status))
}

// ListEmployeeStatuses returns every active employee's standing plus totals.
func (h *Handler) ListEmployeeStatuses(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.monthParam(w, r, "month")
	if !ok {
		return
	}
	statuses, totals, err := h.Payrolls.Statuses(r.Context(), asOf)
	if err != nil {
		h.writeError(w, "Failed to list employee statuses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"statuses": toEmployeeStatusDTOs(statuses),
		"totals":   toTotalsDTO(totals),
	})
}

// ListPayouts returns the employee's salary payouts.
func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.Payrolls.Payouts(r.Context(), ledger.SubjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, "Failed to list payouts", err)
		return
	}
	dtos := make([]PayoutDTO, len(payouts))
	for i, p := range payouts {
		dtos[i] = toPayoutDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PaySalary pays the scheduled salary for one month.
func (h *Handler) PaySalary(w http.ResponseWriter, r *http.Request) {
	id := ledger.SubjectID(chi.URLParam(r, "id"))
	var req PaySalaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body", err)
		return
	}
	month, err := ledger.ParseMonth(req.Month)
	if err != nil {
		writeBadRequest(w, "Invalid month", err)
		return
	}

	payout, err := h.Payrolls.PayOnce(r.Context(), id, month, h.Clock.Now())
	if err != nil {
		outcome := "error"
		if ledger.IsDuplicate(err) {
			outcome = "duplicate"
		}
		metrics.RecordPayout(outcome)
		h.writeError(w, "Failed to pay salary", err)
		return
	}
	metrics.RecordPayout("ok")
	h.Log.Infow("salary paid", "employee_id", id, "month", month.String(), "amount", payout.Expense.Amount.String())
	writeJSON(w, http.StatusCreated, toPayoutDTO(payout.Expense))
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// GetCommissionRate returns the rate effective at ?month= (default: now).
func (h *Handler) GetCommissionRate(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.monthParam(w, r, "month")
	if !ok {
		return
	}
	rate, err := h.Rents.CommissionRateAt(r.Context(), asOf)
	if err != nil {
		h.writeError(w, "Failed to get commission rate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"month":      asOf.String(),
		"percentage": money(rate),
	})
}

// SetCommissionRate records a new global rate.
func (h *Handler) SetCommissionRate(w http.ResponseWriter, r *http.Request) {
	effectiveFrom, value, ok := h.decodeScheduleChange(w, r)
	if !ok {
		return
	}
	if err := h.Rents.SetCommissionRate(r.Context(), effectiveFrom, value); err != nil {
		h.writeError(w, "Failed to set commission rate", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"effective_from": effectiveFrom.String(),
		"percentage":     money(value),
	})
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns expenses filtered by ?property=&category=&employee=.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expenses, err := h.Store.ListExpenses(r.Context(), ledger.ExpenseFilter{
		Property: ledger.PropertyID(q.Get("property")),
		Category: ledger.CategoryID(q.Get("category")),
		Employee: ledger.SubjectID(q.Get("employee")),
	})
	if err != nil {
		h.writeError(w, "Failed to list expenses", err)
		return
	}
	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpense records a free-form operating expense. Commission fees and
// salaries never come through here; they are written by their own flows.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeBadRequest(w, "Invalid amount", err)
		return
	}
	spentOn, err := time.Parse("2006-01-02", req.SpentOn)
	if err != nil {
		writeBadRequest(w, "Invalid spent_on", err)
		return
	}
	if _, err := h.Store.PropertyByID(r.Context(), ledger.PropertyID(req.Property)); err != nil {
		h.writeError(w, "Failed to record expense", err)
		return
	}

	expense := ledger.Expense{
		ID:          ledger.NewExpenseID(),
		Property:    ledger.PropertyID(req.Property),
		Category:    ledger.CategoryID(req.Category),
		Amount:      amount,
		SpentOn:     spentOn,
		Description: req.Description,
		Recurring:   req.Recurring,
	}
	if err := h.Store.AddExpense(r.Context(), expense); err != nil {
		h.writeError(w, "Failed to record expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(expense))
}

// ListCategories returns all expense categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.Categories(r.Context())
	if err != nil {
		h.writeError(w, "Failed to list categories", err)
		return
	}
	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory creates a new expense category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		h.writeError(w, "Invalid category", ledger.NewValidationError("name", "category name is required"))
		return
	}
	category := ledger.ExpenseCategory{
		ID:          ledger.CategoryID(ledger.NewID(ledger.PrefixCategory)),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.Store.SaveCategory(r.Context(), category); err != nil {
		h.writeError(w, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(category))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetFundsPosition returns the all-time money-in vs money-out view.
func (h *Handler) GetFundsPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := h.Reports.FundsPosition(r.Context())
	if err != nil {
		h.writeError(w, "Failed to compute funds position", err)
		return
	}
	writeJSON(w, http.StatusOK, toFundsPositionDTO(pos))
}

// GetMonthSnapshot returns one month across rent, payroll, and spend.
func (h *Handler) GetMonthSnapshot(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.monthParam(w, r, "month")
	if !ok {
		return
	}
	snap, err := h.Reports.MonthSnapshot(r.Context(), asOf)
	if err != nil {
		h.writeError(w, "Failed to compute month snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthSnapshotDTO(snap))
}

// GetExpenseBreakdown returns per-category expense totals.
func (h *Handler) GetExpenseBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.Reports.ExpenseBreakdown(r.Context(), ledger.ExpenseFilter{
		Property: ledger.PropertyID(r.URL.Query().Get("property")),
	})
	if err != nil {
		h.writeError(w, "Failed to compute expense breakdown", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryTotalDTOs(breakdown))
}

// GetPropertySummaries returns per-property month figures.
func (h *Handler) GetPropertySummaries(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.monthParam(w, r, "month")
	if !ok {
		return
	}
	summaries, err := h.Reports.PropertySummaries(r.Context(), asOf)
	if err != nil {
		h.writeError(w, "Failed to compute property summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertySummaryDTOs(summaries))
}

// GetMonthlySeries returns the trailing collected-vs-spent trend.
// Defaults: end = current month, months = 6.
func (h *Handler) GetMonthlySeries(w http.ResponseWriter, r *http.Request) {
	end, ok := h.monthParam(w, r, "end")
	if !ok {
		return
	}
	months := 6
	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "Invalid months", ledger.NewValidationError("months", "must be a positive integer, got %q", raw))
			return
		}
		months = parsed
	}
	series, err := h.Reports.MonthlySeries(r.Context(), end, months)
	if err != nil {
		h.writeError(w, "Failed to compute monthly series", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthPointDTOs(series))
}

// GetDashboard returns the month snapshot plus every tenant's standing -
// the landing-page payload.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.monthParam(w, r, "month")
	if !ok {
		return
	}
	snap, err := h.Reports.MonthSnapshot(r.Context(), asOf)
	if err != nil {
		h.writeError(w, "Failed to compute dashboard", err)
		return
	}
	statuses, _, err := h.Rents.Statuses(r.Context(), asOf)
	if err != nil {
		h.writeError(w, "Failed to compute dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardDTO{
		Snapshot: toMonthSnapshotDTO(snap),
		Tenants:  toTenantStatusDTOs(statuses),
	})
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// monthParam reads a "YYYY-MM" query parameter, defaulting to the current
// month when absent.
func (h *Handler) monthParam(w http.ResponseWriter, r *http.Request, name string) (ledger.Month, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return ledger.CurrentMonth(h.Clock), true
	}
	m, err := ledger.ParseMonth(raw)
	if err != nil {
		writeBadRequest(w, "Invalid "+name, err)
		return ledger.Month{}, false
	}
	return m, true
}

func (h *Handler) decodeScheduleChange(w http.ResponseWriter, r *http.Request) (ledger.Month, decimal.Decimal, bool) {
	var req SetScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body", err)
		return ledger.Month{}, decimal.Zero, false
	}
	effectiveFrom, err := ledger.ParseMonth(req.EffectiveFrom)
	if err != nil {
		writeBadRequest(w, "Invalid effective_from", err)
		return ledger.Month{}, decimal.Zero, false
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		writeBadRequest(w, "Invalid value", err)
		return ledger.Month{}, decimal.Zero, false
	}
	return effectiveFrom, value, true
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeBadRequest(w http.ResponseWriter, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

// writeError maps domain errors to HTTP status through the ledger taxonomy.
func (h *Handler) writeError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case ledger.IsDuplicate(err):
		status = http.StatusConflict
	case ledger.IsNotFound(err):
		status = http.StatusNotFound
	case ledger.IsClientError(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.Log.Errorw(message, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: message, Details: err.Error()})
}
