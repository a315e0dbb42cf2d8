/*
scheduler.go - Automated WIP snapshot scheduler

PURPOSE:
  Periodically recomputes the WIP position of every job and caches the
  result as a snapshot. The dashboard job list reads snapshots instead of
  replaying every job's records on each page load.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Recomputes every job's balance from the records each pass
  - Snapshots are a display cache only; the live endpoint always
    recomputes from the records

CONFIGURATION:
  - CheckInterval: How often to refresh (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSnapshotScheduler(store, snapshots)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GetJobWIP serves snapshots when ?cached=true
  - ../billing/wip.go: WIPCalculator
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/wip-engine/billing"
)

// SnapshotScheduler refreshes cached WIP balances in the background.
type SnapshotScheduler struct {
	Store         billing.Store
	Snapshots     billing.SnapshotStore
	CheckInterval time.Duration
	Enabled       bool

	calc   *billing.WIPCalculator
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSnapshotScheduler creates a new scheduler.
func NewSnapshotScheduler(store billing.Store, snapshots billing.SnapshotStore) *SnapshotScheduler {
	return &SnapshotScheduler{
		Store:         store,
		Snapshots:     snapshots,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		calc:          &billing.WIPCalculator{Store: store},
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *SnapshotScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	log.Printf("[Scheduler] Started with refresh interval: %v", ss.CheckInterval)
}

// Stop stops the scheduler.
func (ss *SnapshotScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ss *SnapshotScheduler) run() {
	defer ss.wg.Done()

	// Refresh immediately on start
	ss.refreshAll()

	for {
		select {
		case <-ss.ticker.C:
			ss.refreshAll()
		case <-ss.stop:
			return
		}
	}
}

// refreshAll recomputes and caches the WIP balance of every job.
// A failure on one job does not stop the pass.
func (ss *SnapshotScheduler) refreshAll() {
	ctx := context.Background()
	now := time.Now().UTC()

	jobs, err := ss.Store.ListJobs(ctx, "")
	if err != nil {
		log.Printf("[Scheduler] Failed to list jobs: %v", err)
		return
	}

	refreshed := 0
	for _, j := range jobs {
		balance, err := ss.calc.CalculateWIP(ctx, j.ID)
		if err != nil {
			log.Printf("[Scheduler] Failed to calculate WIP for job %s: %v", j.ID, err)
			continue
		}

		snap := balance.Snapshot()
		snap.AsOf = now
		if err := ss.Snapshots.SaveWIPSnapshot(ctx, snap); err != nil {
			log.Printf("[Scheduler] Failed to save snapshot for job %s: %v", j.ID, err)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		log.Printf("[Scheduler] Refreshed %d WIP snapshot(s)", refreshed)
	}
}
