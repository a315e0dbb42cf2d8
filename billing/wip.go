/*
wip.go - WIP balance calculation and reconciliation session assembly

PURPOSE:
  Answers the two questions the dashboard asks of a job:

    "How much unbilled value is sitting on this job?"   -> CalculateWIP
    "Reconcile a write-off against its time logs"       -> SessionForJob

KEY INSIGHT:
  WIP balance is always recomputed from the records - time logs, invoices,
  and prior write-offs - never read from a stored balance field. The same
  full-recompute stance the allocation engine takes with its aggregations.

BALANCE COMPONENTS:
  TotalValue:  sum of time-log amounts on the job
  Invoiced:    sum of invoice amounts raised against the job
  WrittenOff:  sum of write-off amounts from prior reconciliations
  Balance:     TotalValue - Invoiced - WrittenOff

SEE ALSO:
  - ../writeoff/session.go: The session SessionForJob assembles
  - store.go: The interfaces this reads through
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/wip-engine/writeoff"
)

// =============================================================================
// WIP BALANCE - Computed, never stored
// =============================================================================

// WIPBalance is the work-in-progress position of one job.
type WIPBalance struct {
	JobID      string
	TotalHours decimal.Decimal
	TotalValue decimal.Decimal
	Invoiced   decimal.Decimal
	WrittenOff decimal.Decimal
}

// Balance returns the unbilled value remaining on the job.
func (b WIPBalance) Balance() decimal.Decimal {
	return b.TotalValue.Sub(b.Invoiced).Sub(b.WrittenOff)
}

// =============================================================================
// WIP CALCULATOR
// =============================================================================

// WIPCalculator computes WIP balances from the store.
type WIPCalculator struct {
	Store Store
}

// CalculateWIP computes the full WIP position of a job by replaying its
// time logs, invoices, and reconciliations.
func (c *WIPCalculator) CalculateWIP(ctx context.Context, jobID string) (WIPBalance, error) {
	logs, err := c.Store.ListTimeLogsByJob(ctx, jobID)
	if err != nil {
		return WIPBalance{}, err
	}

	balance := WIPBalance{JobID: jobID}
	for _, l := range logs {
		balance.TotalHours = balance.TotalHours.Add(l.Hours)
		balance.TotalValue = balance.TotalValue.Add(l.Amount)
	}

	invoices, err := c.Store.ListInvoicesByJob(ctx, jobID)
	if err != nil {
		return WIPBalance{}, err
	}
	for _, inv := range invoices {
		balance.Invoiced = balance.Invoiced.Add(inv.Amount)
	}

	recs, err := c.Store.ListReconciliations(ctx, jobID)
	if err != nil {
		return WIPBalance{}, err
	}
	for _, r := range recs {
		balance.WrittenOff = balance.WrittenOff.Add(r.WrittenOff())
	}

	return balance, nil
}

// Snapshot converts a balance to its cacheable form.
func (b WIPBalance) Snapshot() WIPSnapshot {
	return WIPSnapshot{
		JobID:      b.JobID,
		TotalHours: b.TotalHours,
		TotalValue: b.TotalValue,
		Invoiced:   b.Invoiced,
		WrittenOff: b.WrittenOff,
		Balance:    b.Balance(),
	}
}

// =============================================================================
// RECONCILIATION SESSION ASSEMBLY
// =============================================================================

// SessionForJob loads a job's time logs and opens a write-off reconciliation
// session over them. The session's total is the job's WIP total value, which
// the caller has typically just shown the user; writeOffTarget is the amount
// they chose to write off against it.
func (c *WIPCalculator) SessionForJob(ctx context.Context, jobID string, writeOffTarget decimal.Decimal) (writeoff.ReconciliationSession, error) {
	logs, err := c.Store.ListTimeLogsByJob(ctx, jobID)
	if err != nil {
		return writeoff.ReconciliationSession{}, err
	}

	raw := make([]writeoff.RawEntry, len(logs))
	for i, l := range logs {
		amount := l.Amount
		raw[i] = writeoff.RawEntry{
			ID:           writeoff.EntryID(l.ID),
			TimeLogID:    writeoff.EntryID(l.ID),
			TeamMember:   l.TeamMember,
			Hours:        l.Hours,
			BillableRate: l.Rate,
			Amount:       &amount,
			Date:         l.Date,
			Description:  l.Description,
			ClientID:     l.ClientID,
			JobID:        l.JobID,
			UserID:       l.UserID,
			CategoryID:   l.CategoryID,
		}
	}

	return writeoff.NewSession(raw, writeOffTarget), nil
}
