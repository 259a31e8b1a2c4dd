/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  JSON shapes exchanged with clients. Months travel as "YYYY-MM" strings and
  money as decimal strings; labels like "March 2025" are rendered here, at
  the edge, never stored.

CONVENTIONS:
  - All amounts are strings ("1200.00") to keep decimal precision intact
  - Months parse through ledger.ParseMonth; label fields are display-only
  - DTO converters live next to the types they build

SEE ALSO:
  - handlers.go: where these are read and written
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/estateops/rentledger/ledger"
	"github.com/estateops/rentledger/payroll"
	"github.com/estateops/rentledger/rent"
	"github.com/estateops/rentledger/report"
)

// =============================================================================
// ERROR RESPONSE
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DIRECTORY
// =============================================================================

type PropertyDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
}

type CreatePropertyRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

type TenantDTO struct {
	ID        string `json:"id"`
	Property  string `json:"property_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type OnboardTenantRequest struct {
	Property   string `json:"property_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	StartMonth string `json:"start_month"` // "YYYY-MM"
	Rent       string `json:"rent"`
}

type EmployeeDTO struct {
	ID        string `json:"id"`
	Property  string `json:"property_id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type HireEmployeeRequest struct {
	Property   string `json:"property_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	StartMonth string `json:"start_month"`
	Salary     string `json:"salary"`
}

// =============================================================================
// SCHEDULES
// =============================================================================

type ScheduleEntryDTO struct {
	EffectiveFrom string `json:"effective_from"`
	Label         string `json:"effective_from_label"`
	Value         string `json:"value"`
}

// SetScheduleRequest covers rent changes, salary changes, and commission
// rate changes alike.
type SetScheduleRequest struct {
	EffectiveFrom string `json:"effective_from"`
	Value         string `json:"value"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

type RecordPaymentRequest struct {
	Amount    string `json:"amount"`
	UpToMonth string `json:"up_to_month"`
}

type EntryDTO struct {
	ID         string `json:"id"`
	ForMonth   string `json:"for_month"`
	Label      string `json:"for_month_label"`
	Amount     string `json:"amount"`
	ReceiptRef string `json:"receipt_ref"`
	RecordedOn string `json:"recorded_on"`
}

type ReceiptDTO struct {
	Ref     string     `json:"receipt_ref"`
	Entries []EntryDTO `json:"entries"`
	Fee     string     `json:"commission_fee,omitempty"`
}

type AllocationDTO struct {
	Requested string          `json:"requested"`
	Collected string          `json:"collected"`
	Splits    []MonthSplitDTO `json:"splits"`
}

type MonthSplitDTO struct {
	Month   string `json:"month"`
	Label   string `json:"month_label"`
	Amount  string `json:"amount"`
	Advance bool   `json:"advance"`
}

// =============================================================================
// PAYROLL
// =============================================================================

type PayoutDTO struct {
	ID       string `json:"id"`
	ForMonth string `json:"for_month"`
	Label    string `json:"for_month_label"`
	Amount   string `json:"amount"`
	PaidOn   string `json:"paid_on"`
}

type PaySalaryRequest struct {
	Month string `json:"month"`
}

// =============================================================================
// STATUSES
// =============================================================================

type StatusDTO struct {
	Month        string   `json:"month"`
	MonthLabel   string   `json:"month_label"`
	Due          string   `json:"due"`
	Paid         string   `json:"paid"`
	Balance      string   `json:"balance"`
	Settled      bool     `json:"settled"`
	Status       string   `json:"status"`
	MissedMonths int      `json:"missed_months"`
	MissedLabels []string `json:"missed_labels"`
}

type TenantStatusDTO struct {
	Tenant TenantDTO `json:"tenant"`
	Status StatusDTO `json:"status"`
}

type EmployeeStatusDTO struct {
	Employee EmployeeDTO `json:"employee"`
	Status   StatusDTO   `json:"status"`
}

type TotalsDTO struct {
	Due            string `json:"due"`
	Paid           string `json:"paid"`
	Balance        string `json:"balance"`
	CollectionRate string `json:"collection_rate"`
}

// =============================================================================
// EXPENSES
// =============================================================================

type CategoryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ExpenseDTO struct {
	ID          string `json:"id"`
	Property    string `json:"property_id"`
	Category    string `json:"category_id"`
	Amount      string `json:"amount"`
	SpentOn     string `json:"spent_on"`
	ForMonth    string `json:"for_month,omitempty"`
	Employee    string `json:"employee_id,omitempty"`
	Description string `json:"description,omitempty"`
	Recurring   bool   `json:"recurring"`
}

type CreateExpenseRequest struct {
	Property    string `json:"property_id"`
	Category    string `json:"category_id"`
	Amount      string `json:"amount"`
	SpentOn     string `json:"spent_on"` // "YYYY-MM-DD"
	Description string `json:"description"`
	Recurring   bool   `json:"recurring"`
}

// =============================================================================
// REPORTS
// =============================================================================

type FundsPositionDTO struct {
	Collected  string             `json:"collected"`
	Spent      string             `json:"spent"`
	Net        string             `json:"net"`
	ByProperty []PropertyFundsDTO `json:"by_property"`
}

type PropertyFundsDTO struct {
	Property  PropertyDTO `json:"property"`
	Collected string      `json:"collected"`
	Spent     string      `json:"spent"`
	Net       string      `json:"net"`
}

type MonthSnapshotDTO struct {
	Month      string    `json:"month"`
	MonthLabel string    `json:"month_label"`
	Rent       TotalsDTO `json:"rent"`
	Payroll    TotalsDTO `json:"payroll"`
	Spent      string    `json:"spent"`
	Net        string    `json:"net"`
}

type CategoryTotalDTO struct {
	Category CategoryDTO `json:"category"`
	Total    string      `json:"total"`
	Count    int         `json:"count"`
}

type PropertySummaryDTO struct {
	Property      PropertyDTO `json:"property"`
	ActiveTenants int         `json:"active_tenants"`
	ActiveStaff   int         `json:"active_staff"`
	RentDue       string      `json:"rent_due"`
	RentPaid      string      `json:"rent_paid"`
	Spent         string      `json:"spent"`
	Net           string      `json:"net"`
}

type MonthPointDTO struct {
	Month     string `json:"month"`
	Label     string `json:"month_label"`
	Collected string `json:"collected"`
	Spent     string `json:"spent"`
	Net       string `json:"net"`
}

type DashboardDTO struct {
	Snapshot MonthSnapshotDTO  `json:"snapshot"`
	Tenants  []TenantStatusDTO `json:"tenants"`
}

// =============================================================================
// DTO CONVERTERS
// =============================================================================

func money(d decimal.Decimal) string { return d.String() }

func toPropertyDTO(p ledger.Property) PropertyDTO {
	return PropertyDTO{
		ID:        string(p.ID),
		Name:      p.Name,
		Location:  p.Location,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toTenantDTO(t ledger.Tenant) TenantDTO {
	return TenantDTO{
		ID:        string(t.ID),
		Property:  string(t.Property),
		Name:      t.Name,
		Phone:     t.Phone,
		Active:    t.Active,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

func toEmployeeDTO(e ledger.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		Property:  string(e.Property),
		Name:      e.Name,
		Role:      e.Role,
		Active:    e.Active,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

func toScheduleEntryDTOs(entries []ledger.ScheduleEntry) []ScheduleEntryDTO {
	out := make([]ScheduleEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = ScheduleEntryDTO{
			EffectiveFrom: e.EffectiveFrom.String(),
			Label:         e.EffectiveFrom.Label(),
			Value:         money(e.Value),
		}
	}
	return out
}

func toEntryDTOs(entries []ledger.Entry) []EntryDTO {
	out := make([]EntryDTO, len(entries))
	for i, e := range entries {
		out[i] = EntryDTO{
			ID:         string(e.ID),
			ForMonth:   e.ForMonth.String(),
			Label:      e.ForMonth.Label(),
			Amount:     money(e.Amount),
			ReceiptRef: e.ReceiptRef,
			RecordedOn: e.RecordedOn.Format("2006-01-02"),
		}
	}
	return out
}

func toReceiptDTO(r rent.Receipt) ReceiptDTO {
	dto := ReceiptDTO{Ref: r.Ref, Entries: toEntryDTOs(r.Entries)}
	if r.HasFee {
		dto.Fee = money(r.Fee)
	}
	return dto
}

func toAllocationDTO(a *ledger.Allocation) AllocationDTO {
	splits := make([]MonthSplitDTO, len(a.Splits))
	for i, s := range a.Splits {
		splits[i] = MonthSplitDTO{
			Month:   s.Month.String(),
			Label:   s.Month.Label(),
			Amount:  money(s.Amount),
			Advance: s.Advance,
		}
	}
	return AllocationDTO{
		Requested: money(a.Requested),
		Collected: money(a.Collected),
		Splits:    splits,
	}
}

func toStatusDTO(s ledger.Status) StatusDTO {
	labels := make([]string, len(s.MissedLabels))
	for i, m := range s.MissedLabels {
		labels[i] = m.Label()
	}
	return StatusDTO{
		Month:        s.Month.String(),
		MonthLabel:   s.Month.Label(),
		Due:          money(s.Due),
		Paid:         money(s.Paid),
		Balance:      money(s.Balance),
		Settled:      s.Settled,
		Status:       string(s.Kind),
		MissedMonths: s.MissedMonths,
		MissedLabels: labels,
	}
}

func toTotalsDTO(t ledger.Totals) TotalsDTO {
	return TotalsDTO{
		Due:            money(t.Due),
		Paid:           money(t.Paid),
		Balance:        money(t.Balance),
		CollectionRate: money(t.CollectionRate),
	}
}

func toCategoryDTO(c ledger.ExpenseCategory) CategoryDTO {
	return CategoryDTO{ID: string(c.ID), Name: c.Name, Description: c.Description}
}

func toExpenseDTO(e ledger.Expense) ExpenseDTO {
	dto := ExpenseDTO{
		ID:          string(e.ID),
		Property:    string(e.Property),
		Category:    string(e.Category),
		Amount:      money(e.Amount),
		SpentOn:     e.SpentOn.Format("2006-01-02"),
		Employee:    string(e.Employee),
		Description: e.Description,
		Recurring:   e.Recurring,
	}
	if !e.ForMonth.IsZero() {
		dto.ForMonth = e.ForMonth.String()
	}
	return dto
}

func toPayoutDTO(e ledger.Expense) PayoutDTO {
	return PayoutDTO{
		ID:       string(e.ID),
		ForMonth: e.ForMonth.String(),
		Label:    e.ForMonth.Label(),
		Amount:   money(e.Amount),
		PaidOn:   e.SpentOn.Format("2006-01-02"),
	}
}

func toTenantStatusDTOs(statuses []rent.TenantStatus) []TenantStatusDTO {
	out := make([]TenantStatusDTO, len(statuses))
	for i, ts := range statuses {
		out[i] = TenantStatusDTO{Tenant: toTenantDTO(ts.Tenant), Status: toStatusDTO(ts.Status)}
	}
	return out
}

func toEmployeeStatusDTOs(statuses []payroll.EmployeeStatus) []EmployeeStatusDTO {
	out := make([]EmployeeStatusDTO, len(statuses))
	for i, es := range statuses {
		out[i] = EmployeeStatusDTO{Employee: toEmployeeDTO(es.Employee), Status: toStatusDTO(es.Status)}
	}
	return out
}

func toMonthSnapshotDTO(s report.MonthSnapshot) MonthSnapshotDTO {
	return MonthSnapshotDTO{
		Month:      s.Month.String(),
		MonthLabel: s.Month.Label(),
		Rent:       toTotalsDTO(s.Rent),
		Payroll:    toTotalsDTO(s.Payroll),
		Spent:      money(s.Spent),
		Net:        money(s.Net),
	}
}

func toFundsPositionDTO(p report.FundsPosition) FundsPositionDTO {
	byProp := make([]PropertyFundsDTO, len(p.ByProperty))
	for i, pf := range p.ByProperty {
		byProp[i] = PropertyFundsDTO{
			Property:  toPropertyDTO(pf.Property),
			Collected: money(pf.Collected),
			Spent:     money(pf.Spent),
			Net:       money(pf.Net),
		}
	}
	return FundsPositionDTO{
		Collected:  money(p.Collected),
		Spent:      money(p.Spent),
		Net:        money(p.Net),
		ByProperty: byProp,
	}
}

func toCategoryTotalDTOs(totals []report.CategoryTotal) []CategoryTotalDTO {
	out := make([]CategoryTotalDTO, len(totals))
	for i, ct := range totals {
		out[i] = CategoryTotalDTO{
			Category: toCategoryDTO(ct.Category),
			Total:    money(ct.Total),
			Count:    ct.Count,
		}
	}
	return out
}

func toPropertySummaryDTOs(summaries []report.PropertySummary) []PropertySummaryDTO {
	out := make([]PropertySummaryDTO, len(summaries))
	for i, s := range summaries {
		out[i] = PropertySummaryDTO{
			Property:      toPropertyDTO(s.Property),
			ActiveTenants: s.ActiveTenants,
			ActiveStaff:   s.ActiveStaff,
			RentDue:       money(s.RentDue),
			RentPaid:      money(s.RentPaid),
			Spent:         money(s.Spent),
			Net:           money(s.Net),
		}
	}
	return out
}

func toMonthPointDTOs(series []report.MonthPoint) []MonthPointDTO {
	out := make([]MonthPointDTO, len(series))
	for i, p := range series {
		out[i] = MonthPointDTO{
			Month:     p.Month.String(),
			Label:     p.Month.Label(),
			Collected: money(p.Collected),
			Spent:     money(p.Spent),
			Net:       money(p.Net),
		}
	}
	return out
}
