/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Clients, jobs and team members are created
	- Time logs carry amounts derived from hours * rate
	- WIP balances match expected values
	- The fee-cap scenario leaves a saved manual reconciliation

These tests double as integration tests over the session/save flow.
*/
package api

import (
	"context"
	"testing"

	"github.com/warp/wip-engine/billing/store"
)

func setupScenarioHandler(t *testing.T) *Handler {
	t.Helper()
	mem := store.NewMemory()
	return NewHandler(mem, mem, nil)
}

func TestYearEndAccountsScenario(t *testing.T) {
	h := setupScenarioHandler(t)
	ctx := context.Background()

	if err := h.loadYearEndAccountsScenario(ctx); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}

	jobs, err := h.Store.ListJobs(ctx, "")
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs))
	}

	// Junior: (6+7.5+5+4)h * 120 = 2700. Senior: (3+2.5)h * 250 = 1375.
	// Total 4075, invoiced 3000, nothing written off yet.
	balance, err := h.Calc.CalculateWIP(ctx, jobs[0].ID)
	if err != nil {
		t.Fatalf("Failed to calculate WIP: %v", err)
	}
	if got := balance.TotalValue.String(); got != "4075" {
		t.Errorf("Expected total value 4075, got %s", got)
	}
	if got := balance.Invoiced.String(); got != "3000" {
		t.Errorf("Expected 3000 invoiced, got %s", got)
	}
	if got := balance.Balance().String(); got != "1075" {
		t.Errorf("Expected balance 1075, got %s", got)
	}
}

func TestFeeCapScenario_SavedManualWriteOff(t *testing.T) {
	h := setupScenarioHandler(t)
	ctx := context.Background()

	if err := h.loadFeeCapScenario(ctx); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}

	jobs, err := h.Store.ListJobs(ctx, "")
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs))
	}

	recs, err := h.Store.ListReconciliations(ctx, jobs[0].ID)
	if err != nil {
		t.Fatalf("Failed to list reconciliations: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Expected 1 saved reconciliation, got %d", len(recs))
	}
	if string(recs[0].Method) != "manually" {
		t.Errorf("Expected manual method, got %s", recs[0].Method)
	}
	if got := recs[0].WrittenOff().String(); got != "400" {
		t.Errorf("Expected 400 written off, got %s", got)
	}

	// 600 + 1000 logged, 400 written off -> 1200 left, the fee cap.
	balance, err := h.Calc.CalculateWIP(ctx, jobs[0].ID)
	if err != nil {
		t.Fatalf("Failed to calculate WIP: %v", err)
	}
	if got := balance.Balance().String(); got != "1200" {
		t.Errorf("Expected balance 1200, got %s", got)
	}
}

func TestCleanPracticeScenario_NoWIP(t *testing.T) {
	h := setupScenarioHandler(t)
	ctx := context.Background()

	if err := h.loadCleanPracticeScenario(ctx); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}

	jobs, err := h.Store.ListJobs(ctx, "")
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs))
	}

	balance, err := h.Calc.CalculateWIP(ctx, jobs[0].ID)
	if err != nil {
		t.Fatalf("Failed to calculate WIP: %v", err)
	}
	if !balance.TotalValue.IsZero() {
		t.Errorf("Expected zero WIP, got %s", balance.TotalValue)
	}
}
