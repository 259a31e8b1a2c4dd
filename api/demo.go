/*
demo.go - Seedable demo datasets

PURPOSE:
  Pre-built datasets for demos and manual API exploration. Each dataset
  writes through the same domain books as the real endpoints, so loading one
  exercises onboarding, payments, commission fees, and payroll end to end.

DATASETS:
  occupied-building  One property, three tenants in different standings
                     (paid ahead, partial, full arrears), 10% commission
  payroll-cycle      One property, two staff, one fully paid and one two
                     months behind

ENDPOINTS:
  GET  /api/demo/datasets   List available datasets
  POST /api/demo/load       Load one ({"dataset": "occupied-building"})

NOTE:
  Loading is additive. A dataset creates fresh records each time; it does
  not wipe existing data.

SEE ALSO:
  - handlers.go: the endpoints these seed data for
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/estateops/rentledger/ledger"
	"github.com/estateops/rentledger/payroll"
	"github.com/estateops/rentledger/rent"
)

// =============================================================================
// DATASET REGISTRY
// =============================================================================

type demoDataset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	load        func(ctx context.Context, h *Handler) error
}

func demoDatasets() []demoDataset {
	return []demoDataset{
		{
			Name:        "occupied-building",
			Description: "One property, three tenants: paid ahead, partial, and full arrears, with a 10% commission rate",
			load:        loadOccupiedBuilding,
		},
		{
			Name:        "payroll-cycle",
			Description: "One property with a caretaker paid up and a guard two months behind",
			load:        loadPayrollCycle,
		},
	}
}

// =============================================================================
// DEMO HANDLERS
// =============================================================================

// ListDemoDatasets returns the available datasets.
func (h *Handler) ListDemoDatasets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, demoDatasets())
}

// LoadDemoDataset seeds one dataset by name.
func (h *Handler) LoadDemoDataset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dataset string `json:"dataset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body", err)
		return
	}

	for _, d := range demoDatasets() {
		if d.Name != req.Dataset {
			continue
		}
		if err := d.load(r.Context(), h); err != nil {
			h.writeError(w, "Failed to load dataset", err)
			return
		}
		h.Log.Infow("demo dataset loaded", "dataset", d.Name)
		writeJSON(w, http.StatusOK, map[string]string{"loaded": d.Name})
		return
	}
	writeBadRequest(w, "Unknown dataset", ledger.NewValidationError("dataset", "no dataset named %q", req.Dataset))
}

// =============================================================================
// DATASET LOADERS
// =============================================================================

func loadOccupiedBuilding(ctx context.Context, h *Handler) error {
	now := ledger.CurrentMonth(h.Clock)
	start := now.AddMonths(-3)

	property := ledger.Property{
		ID:       ledger.PropertyID(ledger.NewID(ledger.PrefixProperty)),
		Name:     "Sunrise Court",
		Location: "Ntinda",
	}
	if err := h.Store.SaveProperty(ctx, property); err != nil {
		return err
	}
	if err := h.Rents.SetCommissionRate(ctx, start, ledger.MustParseDecimal("10")); err != nil {
		return err
	}

	type tenantSeed struct {
		name    string
		rent    string
		payment string // empty = never paid
	}
	seeds := []tenantSeed{
		// Covers the full window and two months ahead.
		{name: "Aisha Namutebi", rent: "1200", payment: "7200"},
		// Half of one month's rent; everything before stays owed.
		{name: "Brian Okello", rent: "900", payment: "450"},
		// Never paid; full arrears since the start month.
		{name: "Cynthia Apio", rent: "1500", payment: ""},
	}

	for _, seed := range seeds {
		tenant, err := h.Rents.Onboard(ctx, rent.OnboardInput{
			Property:   property.ID,
			Name:       seed.name,
			StartMonth: start,
			Rent:       ledger.MustParseDecimal(seed.rent),
		})
		if err != nil {
			return err
		}
		if seed.payment == "" {
			continue
		}
		if _, err := h.Rents.RecordPayment(ctx, tenant.ID, ledger.MustParseDecimal(seed.payment), now, h.Clock.Now()); err != nil {
			return err
		}
	}
	return nil
}

func loadPayrollCycle(ctx context.Context, h *Handler) error {
	now := ledger.CurrentMonth(h.Clock)
	start := now.AddMonths(-2)

	property := ledger.Property{
		ID:       ledger.PropertyID(ledger.NewID(ledger.PrefixProperty)),
		Name:     "Acacia Heights",
		Location: "Bugolobi",
	}
	if err := h.Store.SaveProperty(ctx, property); err != nil {
		return err
	}

	caretaker, err := h.Payrolls.Hire(ctx, payroll.HireInput{
		Property:   property.ID,
		Name:       "Grace Auma",
		Role:       "Caretaker",
		StartMonth: start,
		Salary:     ledger.MustParseDecimal("800"),
	})
	if err != nil {
		return err
	}
	for m := start; m.BeforeOrEqual(now); m = m.Next() {
		if _, err := h.Payrolls.PayOnce(ctx, caretaker.ID, m, h.Clock.Now()); err != nil {
			return err
		}
	}

	guard, err := h.Payrolls.Hire(ctx, payroll.HireInput{
		Property:   property.ID,
		Name:       "John Wasswa",
		Role:       "Security Guard",
		StartMonth: start,
		Salary:     ledger.MustParseDecimal("400"),
	})
	if err != nil {
		return err
	}
	// Only the first month paid; the rest accumulate as owed salary.
	if _, err := h.Payrolls.PayOnce(ctx, guard.ID, start, h.Clock.Now()); err != nil {
		return err
	}
	return nil
}
