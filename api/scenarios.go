/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario creates clients, jobs, team
	members, and time logs that demonstrate a specific write-off situation.

AVAILABLE SCENARIOS:

	year-end-accounts:  Finished accounts job carrying WIP above the agreed
	                    fee, ready for a proportional write-off
	fee-cap:            Fixed-fee job over budget; the overrun is written
	                    off manually against the senior's time
	clean-practice:     Reference data only, no WIP movement yet

HOW SCENARIOS WORK:
 1. Create clients and team members
 2. Create jobs
 3. Log time (amounts derive from hours * rate)
 4. Optionally raise invoices and save write-offs

	Each load uses fresh generated IDs, so scenarios stack rather than
	reset. Point the server at a throwaway database for demos.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "year-end-accounts"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/wip-engine/billing"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "year-end-accounts",
		Name:        "Year-End Accounts",
		Description: "Completed accounts job with WIP above the agreed fee, ready to write off proportionally",
	},
	{
		ID:          "fee-cap",
		Name:        "Fixed Fee Overrun",
		Description: "Fixed-fee job over budget with the overrun written off against the senior's time",
	},
	{
		ID:          "clean-practice",
		Name:        "Clean Practice",
		Description: "Clients, jobs and team members only - no time logged yet",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario populates the store with a named scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "year-end-accounts":
		err = h.loadYearEndAccountsScenario(ctx)
	case "fee-cap":
		err = h.loadFeeCapScenario(ctx)
	case "clean-practice":
		err = h.loadCleanPracticeScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario_id": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type scenarioSeed struct {
	client billing.Client
	job    billing.Job
	senior billing.TeamMember
	junior billing.TeamMember
}

// seedPractice creates the shared reference data every scenario starts from:
// one client, one job, a senior and a junior fee earner.
func (h *Handler) seedPractice(ctx context.Context, clientName, jobName string) (scenarioSeed, error) {
	seed := scenarioSeed{
		client: billing.Client{
			ID:   uuid.New().String(),
			Name: clientName,
			Code: "DEMO",
		},
		senior: billing.TeamMember{
			ID:           uuid.New().String(),
			Name:         "Sarah Whitfield",
			Email:        "sarah@example.com",
			BillableRate: decimal.NewFromInt(250),
		},
		junior: billing.TeamMember{
			ID:           uuid.New().String(),
			Name:         "Tom Okafor",
			Email:        "tom@example.com",
			BillableRate: decimal.NewFromInt(120),
		},
	}
	seed.job = billing.Job{
		ID:       uuid.New().String(),
		ClientID: seed.client.ID,
		Name:     jobName,
		Status:   billing.JobActive,
	}

	if err := h.Store.SaveClient(ctx, seed.client); err != nil {
		return seed, err
	}
	if err := h.Store.SaveJob(ctx, seed.job); err != nil {
		return seed, err
	}
	if err := h.Store.SaveTeamMember(ctx, seed.senior); err != nil {
		return seed, err
	}
	if err := h.Store.SaveTeamMember(ctx, seed.junior); err != nil {
		return seed, err
	}
	return seed, nil
}

func (h *Handler) logTime(ctx context.Context, seed scenarioSeed, member billing.TeamMember, day time.Time, hours float64, category, description string) error {
	l := billing.NewTimeLog(
		uuid.New().String(), seed.job.ID, seed.client.ID, member.ID, category, member.Name,
		day, decimal.NewFromFloat(hours), member.BillableRate, description,
	)
	return h.Store.SaveTimeLog(ctx, l)
}

// loadYearEndAccountsScenario: a completed accounts job where the time cost
// exceeds the agreed fee. The practice invoices the fee and the dashboard
// shows the remainder as WIP to write off proportionally.
func (h *Handler) loadYearEndAccountsScenario(ctx context.Context) error {
	seed, err := h.seedPractice(ctx, "Hartley Engineering Ltd", "Year-end accounts FY25")
	if err != nil {
		return err
	}

	start := time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)
	work := []struct {
		member      billing.TeamMember
		dayOffset   int
		hours       float64
		description string
	}{
		{seed.junior, 0, 6, "Trial balance preparation"},
		{seed.junior, 1, 7.5, "Fixed asset register reconciliation"},
		{seed.junior, 3, 5, "Debtors and creditors schedules"},
		{seed.senior, 4, 3, "Review of draft accounts"},
		{seed.senior, 7, 2.5, "Client meeting and adjustments"},
		{seed.junior, 8, 4, "Final statutory accounts"},
	}
	for _, wk := range work {
		day := start.AddDate(0, 0, wk.dayOffset)
		if err := h.logTime(ctx, seed, wk.member, day, wk.hours, "cat-accounts", wk.description); err != nil {
			return err
		}
	}

	// Agreed fee invoiced; the rest sits as WIP awaiting write-off.
	inv := billing.Invoice{
		ID:        uuid.New().String(),
		JobID:     seed.job.ID,
		ClientID:  seed.client.ID,
		Reference: "INV-2026-031",
		Amount:    decimal.NewFromInt(3000),
		Date:      start.AddDate(0, 0, 14),
	}
	return h.Store.SaveInvoice(ctx, inv)
}

// loadFeeCapScenario: a fixed-fee job over budget, with the overrun already
// written off manually against the senior's review time. Demonstrates a
// saved manual reconciliation in the history list.
func (h *Handler) loadFeeCapScenario(ctx context.Context) error {
	seed, err := h.seedPractice(ctx, "Border & Low LLP", "Quarterly VAT return Q1")
	if err != nil {
		return err
	}

	start := time.Date(2026, time.April, 6, 0, 0, 0, 0, time.UTC)
	if err := h.logTime(ctx, seed, seed.junior, start, 5, "cat-vat", "VAT workings"); err != nil {
		return err
	}
	if err := h.logTime(ctx, seed, seed.senior, start.AddDate(0, 0, 2), 4, "cat-vat", "Review and submission"); err != nil {
		return err
	}

	// Junior: 5h * 120 = 600. Senior: 4h * 250 = 1000. Fee cap is 1200,
	// so 400 comes off - all of it against the senior's review time.
	session, err := h.Calc.SessionForJob(ctx, seed.job.ID, decimal.NewFromInt(400))
	if err != nil {
		return err
	}
	session = session.EnterManual()
	for _, e := range session.Entries {
		pct := decimal.Zero
		if e.TeamMember == seed.senior.Name {
			pct = decimal.NewFromInt(100)
		}
		session, err = session.SetEntryPercentage(e.ID, pct)
		if err != nil {
			return err
		}
	}

	payload, err := session.ValidateForSave("Fixed fee cap - review overrun not billable")
	if err != nil {
		return err
	}
	return h.Store.SaveReconciliation(ctx, billing.Reconciliation{
		ID:             uuid.New().String(),
		JobID:          seed.job.ID,
		Reason:         payload.Reason,
		WriteOffTarget: payload.WriteOffTarget,
		Method:         payload.Method,
		Records:        payload.Records,
		CreatedAt:      start.AddDate(0, 0, 5),
	})
}

// loadCleanPracticeScenario: reference data only.
func (h *Handler) loadCleanPracticeScenario(ctx context.Context) error {
	_, err := h.seedPractice(ctx, "Nordic Imports AS", "Bookkeeping retainer")
	return err
}
