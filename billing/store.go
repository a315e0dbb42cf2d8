/*
store.go - Persistence interfaces for the billing domain

PURPOSE:
  Defines the interface between the domain logic and the database. The
  store persists reference data (clients, jobs, team members), time logs,
  invoices, and write-off reconciliations. Different implementations can
  use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  Reconciliations are append-only: SaveReconciliation is the only write,
  and there is no update or delete. A wrong write-off is corrected by a
  compensating reconciliation, never by editing history. Time logs and
  reference data are ordinary upserts - the dashboard edits those freely.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - billing/store: In-memory store for tests

SEE ALSO:
  - wip.go: WIPCalculator reads through these interfaces
  - ../store/sqlite/sqlite.go: Concrete implementation
*/
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Full persistence surface
// =============================================================================

type Store interface {
	// Reference data
	SaveClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id string) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)

	SaveJob(ctx context.Context, j Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, clientID string) ([]Job, error)

	SaveTeamMember(ctx context.Context, m TeamMember) error
	GetTeamMember(ctx context.Context, id string) (*TeamMember, error)
	ListTeamMembers(ctx context.Context) ([]TeamMember, error)

	// Time logs
	SaveTimeLog(ctx context.Context, l TimeLog) error
	ListTimeLogsByJob(ctx context.Context, jobID string) ([]TimeLog, error)
	ListTimeLogsByUser(ctx context.Context, userID string, from, to time.Time) ([]TimeLog, error)

	// Invoices
	SaveInvoice(ctx context.Context, inv Invoice) error
	ListInvoicesByJob(ctx context.Context, jobID string) ([]Invoice, error)

	// Write-off reconciliations. Append-only: no update, no delete.
	SaveReconciliation(ctx context.Context, r Reconciliation) error
	ListReconciliations(ctx context.Context, jobID string) ([]Reconciliation, error)
}

// =============================================================================
// SNAPSHOT STORE - Optional, for dashboard performance
// =============================================================================

// WIPSnapshot is a cached WIP balance for a job at a point in time,
// refreshed by the snapshot scheduler. Snapshots are a display cache,
// never a source of truth.
type WIPSnapshot struct {
	JobID      string
	TotalHours decimal.Decimal
	TotalValue decimal.Decimal
	Invoiced   decimal.Decimal
	WrittenOff decimal.Decimal
	Balance    decimal.Decimal
	AsOf       time.Time
}

// SnapshotStore is implemented by stores that cache WIP balances.
type SnapshotStore interface {
	SaveWIPSnapshot(ctx context.Context, s WIPSnapshot) error
	LatestWIPSnapshot(ctx context.Context, jobID string) (*WIPSnapshot, error)
}
