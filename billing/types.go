/*
Package billing provides the practice-management domain model.

PURPOSE:
  Holds the records an accountancy practice runs on - clients, jobs, team
  members, time logs, invoices - and the work-in-progress (WIP) arithmetic
  over them. WIP is the unbilled value of work already performed; it grows
  with every logged hour and shrinks when value is invoiced or written off.

KEY CONCEPTS IN THIS FILE (types.go):
  - Client, Job, TeamMember: The practice's reference data
  - TimeLog: One recorded unit of billable work
  - Invoice: Value raised against a job's WIP
  - Reconciliation: A persisted write-off, produced by the writeoff package

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all money, no float64 in domain math
  2. Derivation: WIP balance is always recomputed from the records; there
     is no stored balance column that can drift
  3. Append-only write-offs: reconciliations are never edited or deleted

SEE ALSO:
  - wip.go: WIP balance calculation and reconciliation session assembly
  - store.go: Persistence interfaces
  - ../writeoff: The allocation engine that produces Reconciliation records
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wip-engine/writeoff"
)

// =============================================================================
// REFERENCE DATA
// =============================================================================

// Client is a firm the practice bills.
type Client struct {
	ID        string
	Name      string
	Code      string // Short reference code used on invoices
	CreatedAt time.Time
}

// JobStatus tracks a job through its lifecycle. Write-offs typically happen
// on completion, when WIP that will never be invoiced is cleared.
type JobStatus string

const (
	JobActive    JobStatus = "active"
	JobCompleted JobStatus = "completed"
)

// Job is one engagement for a client (year-end accounts, VAT return, audit).
type Job struct {
	ID        string
	ClientID  string
	Name      string
	Status    JobStatus
	CreatedAt time.Time
}

// TeamMember is a fee earner who logs time.
type TeamMember struct {
	ID           string
	Name         string
	Email        string
	BillableRate decimal.Decimal // Default hourly rate; rate cards may override
	CreatedAt    time.Time
}

// =============================================================================
// TIME LOG - One recorded unit of billable work
// =============================================================================

// TimeLog records hours worked by a team member on a job. Amount is the
// billable value: either supplied explicitly or derived as Hours * Rate
// when the log is created (see NewTimeLog).
type TimeLog struct {
	ID          string
	JobID       string
	ClientID    string
	UserID      string
	CategoryID  string
	TeamMember  string // Display name, denormalized for the dashboard
	Date        time.Time
	Hours       decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
	Description string
	CreatedAt   time.Time
}

// NewTimeLog derives the amount from hours and rate. Use this when the
// caller does not supply an explicit amount.
func NewTimeLog(id, jobID, clientID, userID, categoryID, member string, date time.Time, hours, rate decimal.Decimal, description string) TimeLog {
	return TimeLog{
		ID:          id,
		JobID:       jobID,
		ClientID:    clientID,
		UserID:      userID,
		CategoryID:  categoryID,
		TeamMember:  member,
		Date:        date,
		Hours:       hours,
		Rate:        rate,
		Amount:      hours.Mul(rate),
		Description: description,
	}
}

// =============================================================================
// INVOICE - Value raised against a job's WIP
// =============================================================================

type Invoice struct {
	ID        string
	JobID     string
	ClientID  string
	Reference string
	Amount    decimal.Decimal
	Date      time.Time
	CreatedAt time.Time
}

// =============================================================================
// RECONCILIATION - A persisted write-off
// =============================================================================

// Reconciliation is the stored form of a successful write-off save: the
// header plus one record per chargeable entry. Records come straight from
// writeoff.SavePayload and are stored append-only.
type Reconciliation struct {
	ID             string
	JobID          string
	Reason         string
	WriteOffTarget decimal.Decimal
	Method         writeoff.AllocationMethod
	Records        []writeoff.WriteOffRecord
	CreatedAt      time.Time
}

// WrittenOff sums the per-record write-off amounts.
func (r Reconciliation) WrittenOff() decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range r.Records {
		sum = sum.Add(rec.WriteOffAmount)
	}
	return sum
}
