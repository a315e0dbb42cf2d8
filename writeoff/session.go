/*
session.go - Reconciliation session and the two allocators

PURPOSE:
  A ReconciliationSession is the unit of work for one write-off: the entry
  list, the immutable target amounts, and the current allocation mode.
  This file contains session construction (which performs the initial
  proportional spread) and the two allocators:

    SpreadProportionally: percentage = share of total billable value
    SetEntryPercentage:   caller-supplied percentage for ONE entry

KEY INSIGHT:
  The session is a VALUE. Every operation copies the entry list and returns
  a new session. There is no in-place mutation, so any aggregation computed
  from a previous session can never masquerade as current state.

ZERO-TOTAL DEGENERACY:
  If the entries carry no billable value at all, a proportional share is
  meaningless. Every percentage and amount is set to exactly zero. This is
  a defined outcome, not an error - and never a division by zero.

MANUAL EDITS:
  SetEntryPercentage takes the new percentage as given. No clamping to
  [0,100], no renormalizing of siblings. Users routinely pass through
  invalid intermediate states while editing several rows; the 100% check
  belongs to save time (validate.go), not edit time.

SEE ALSO:
  - types.go: ChargeableEntry, ReconciliationTarget, AllocationMode
  - validate.go: Save gating on the session
*/
package writeoff

import "github.com/shopspring/decimal"

// =============================================================================
// SESSION
// =============================================================================

// ReconciliationSession holds the full state of one write-off reconciliation.
// Obtain one with NewSession; derive successors with the allocator methods.
type ReconciliationSession struct {
	Entries []ChargeableEntry
	Target  ReconciliationTarget
	Mode    AllocationMode
}

// NewSession initializes a session from raw entries and a write-off target.
//
// Per entry: OriginalAmount is the supplied amount, or zero when absent.
// TotalOriginalAmount is the sum across entries. The initial allocation is
// proportional: each entry's percentage is its share of the total, and its
// amount follows from the percentage.
func NewSession(raw []RawEntry, writeOffTarget decimal.Decimal) ReconciliationSession {
	entries := make([]ChargeableEntry, len(raw))
	total := decimal.Zero

	for i, r := range raw {
		amount := decimal.Zero
		if r.Amount != nil {
			amount = *r.Amount
		}
		entries[i] = ChargeableEntry{
			ID:             r.ID,
			TimeLogID:      r.TimeLogID,
			TeamMember:     r.TeamMember,
			Hours:          r.Hours,
			BillableRate:   r.BillableRate,
			OriginalAmount: amount,
			Date:           r.Date,
			Description:    r.Description,
			ClientID:       r.ClientID,
			JobID:          r.JobID,
			UserID:         r.UserID,
			CategoryID:     r.CategoryID,
		}
		total = total.Add(amount)
	}

	s := ReconciliationSession{
		Entries: entries,
		Target: ReconciliationTarget{
			TotalOriginalAmount: total,
			WriteOffTarget:      writeOffTarget,
		},
	}
	return s.SpreadProportionally()
}

// NewSessionWithTotal is NewSession with a caller-supplied total instead of
// the computed sum. The enclosing dialog already knows the job's WIP total
// and passes it through; the two should normally agree.
func NewSessionWithTotal(raw []RawEntry, writeOffTarget, totalOriginalAmount decimal.Decimal) ReconciliationSession {
	s := NewSession(raw, writeOffTarget)
	s.Target.TotalOriginalAmount = totalOriginalAmount
	return s.SpreadProportionally()
}

// clone returns a session with a copied entry list, safe to modify.
func (s ReconciliationSession) clone() ReconciliationSession {
	entries := make([]ChargeableEntry, len(s.Entries))
	copy(entries, s.Entries)
	s.Entries = entries
	return s
}

// =============================================================================
// PROPORTIONAL ALLOCATOR
// =============================================================================

// SpreadProportionally resets every entry's percentage to its proportional
// share of the total original amount, regardless of prior manual edits.
// This is a full reset, not a merge. The session reverts to ModeProportional.
//
// GUARANTEE: when TotalOriginalAmount > 0 the percentages sum to 100 (within
// decimal division precision) and the amounts sum to the write-off target.
// When the total is zero, every share is exactly zero.
func (s ReconciliationSession) SpreadProportionally() ReconciliationSession {
	next := s.clone()
	total := next.Target.TotalOriginalAmount

	for i := range next.Entries {
		e := &next.Entries[i]
		if total.IsZero() {
			e.WriteOffPercentage = decimal.Zero
			e.WriteOffAmount = decimal.Zero
			continue
		}
		e.WriteOffPercentage = e.OriginalAmount.Div(total).Mul(oneHundred)
		e.WriteOffAmount = e.WriteOffPercentage.Div(oneHundred).Mul(next.Target.WriteOffTarget)
	}

	next.Mode = ModeProportional
	return next
}

// =============================================================================
// MANUAL ALLOCATOR
// =============================================================================

// EnterManual freezes the current percentages for editing. In the UI this
// is a separate action from the first edit, so it exists independently of
// SetEntryPercentage. Calling it while already manual is a no-op.
func (s ReconciliationSession) EnterManual() ReconciliationSession {
	next := s.clone()
	next.Mode = ModeManual
	return next
}

// SetEntryPercentage replaces one entry's percentage and recomputes that
// entry's amount from it. The entry is matched by either of its two
// identifiers. All other entries are left untouched - in particular they
// are NOT renormalized to keep the sum at 100.
//
// The percentage is accepted as given; bounds are not enforced here.
// Validation of the aggregate happens in ValidateForSave.
func (s ReconciliationSession) SetEntryPercentage(id EntryID, pct decimal.Decimal) (ReconciliationSession, error) {
	next := s.clone()

	found := false
	for i := range next.Entries {
		if !next.Entries[i].Matches(id) {
			continue
		}
		next.Entries[i].WriteOffPercentage = pct
		next.Entries[i].WriteOffAmount = pct.Div(oneHundred).Mul(next.Target.WriteOffTarget)
		found = true
		break
	}
	if !found {
		return s, &EntryNotFoundError{ID: id}
	}

	next.Mode = ModeManual
	return next, nil
}

// PercentageSum returns the current sum of per-entry percentages. Exposed
// so the UI shell can display the running total while editing.
func (s ReconciliationSession) PercentageSum() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range s.Entries {
		sum = sum.Add(e.WriteOffPercentage)
	}
	return sum
}

// WriteOffSum returns the current sum of per-entry write-off amounts.
func (s ReconciliationSession) WriteOffSum() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range s.Entries {
		sum = sum.Add(e.WriteOffAmount)
	}
	return sum
}
