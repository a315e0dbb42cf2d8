// Package store provides billing.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/wip-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu              sync.RWMutex
	clients         map[string]billing.Client
	jobs            map[string]billing.Job
	members         map[string]billing.TeamMember
	timeLogs        map[string]billing.TimeLog
	invoices        map[string]billing.Invoice
	reconciliations map[string]billing.Reconciliation
	snapshots       map[string][]billing.WIPSnapshot
}

func NewMemory() *Memory {
	return &Memory{
		clients:         make(map[string]billing.Client),
		jobs:            make(map[string]billing.Job),
		members:         make(map[string]billing.TeamMember),
		timeLogs:        make(map[string]billing.TimeLog),
		invoices:        make(map[string]billing.Invoice),
		reconciliations: make(map[string]billing.Reconciliation),
		snapshots:       make(map[string][]billing.WIPSnapshot),
	}
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (m *Memory) SaveClient(_ context.Context, c billing.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	return nil
}

func (m *Memory) GetClient(_ context.Context, id string) (*billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clients[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) ListClients(_ context.Context) ([]billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveJob(_ context.Context, j billing.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (*billing.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if j, ok := m.jobs[id]; ok {
		return &j, nil
	}
	return nil, nil
}

func (m *Memory) ListJobs(_ context.Context, clientID string) ([]billing.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if clientID != "" && j.ClientID != clientID {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveTeamMember(_ context.Context, tm billing.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[tm.ID] = tm
	return nil
}

func (m *Memory) GetTeamMember(_ context.Context, id string) (*billing.TeamMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if tm, ok := m.members[id]; ok {
		return &tm, nil
	}
	return nil, nil
}

func (m *Memory) ListTeamMembers(_ context.Context) ([]billing.TeamMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.TeamMember, 0, len(m.members))
	for _, tm := range m.members {
		out = append(out, tm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// TIME LOGS
// =============================================================================

func (m *Memory) SaveTimeLog(_ context.Context, l billing.TimeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeLogs[l.ID] = l
	return nil
}

func (m *Memory) ListTimeLogsByJob(_ context.Context, jobID string) ([]billing.TimeLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.TimeLog
	for _, l := range m.timeLogs {
		if l.JobID == jobID {
			out = append(out, l)
		}
	}
	sortTimeLogs(out)
	return out, nil
}

func (m *Memory) ListTimeLogsByUser(_ context.Context, userID string, from, to time.Time) ([]billing.TimeLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.TimeLog
	for _, l := range m.timeLogs {
		if l.UserID != userID {
			continue
		}
		if l.Date.Before(from) || l.Date.After(to) {
			continue
		}
		out = append(out, l)
	}
	sortTimeLogs(out)
	return out, nil
}

// sortTimeLogs orders by date, then ID for a stable tiebreak.
func sortTimeLogs(logs []billing.TimeLog) {
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].Date.Equal(logs[j].Date) {
			return logs[i].Date.Before(logs[j].Date)
		}
		return logs[i].ID < logs[j].ID
	})
}

// =============================================================================
// INVOICES
// =============================================================================

func (m *Memory) SaveInvoice(_ context.Context, inv billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = inv
	return nil
}

func (m *Memory) ListInvoicesByJob(_ context.Context, jobID string) ([]billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Invoice
	for _, inv := range m.invoices {
		if inv.JobID == jobID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// RECONCILIATIONS - Append-only
// =============================================================================

func (m *Memory) SaveReconciliation(_ context.Context, r billing.Reconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reconciliations[r.ID]; exists {
		return billing.ErrDuplicateReconciliation
	}
	m.reconciliations[r.ID] = r
	return nil
}

func (m *Memory) ListReconciliations(_ context.Context, jobID string) ([]billing.Reconciliation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Reconciliation
	for _, r := range m.reconciliations {
		if jobID == "" || r.JobID == jobID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func (m *Memory) SaveWIPSnapshot(_ context.Context, s billing.WIPSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.JobID] = append(m.snapshots[s.JobID], s)
	return nil
}

func (m *Memory) LatestWIPSnapshot(_ context.Context, jobID string) (*billing.WIPSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := m.snapshots[jobID]
	if len(snaps) == 0 {
		return nil, nil
	}
	latest := snaps[len(snaps)-1]
	return &latest, nil
}
