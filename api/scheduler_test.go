package api

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestSnapshotScheduler_RefreshAll(t *testing.T) {
	// GIVEN: A seeded job with 600 of WIP
	h, mem := newTestHandler(t)

	ss := NewSnapshotScheduler(mem, mem)
	ss.refreshAll()

	// THEN: A snapshot exists with the computed balance
	snap, err := mem.LatestWIPSnapshot(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	if snap == nil {
		t.Fatal("Expected a snapshot after refresh")
	}
	if got := snap.Balance.String(); got != "600" {
		t.Errorf("Expected snapshot balance 600, got %s", got)
	}
	if snap.AsOf.IsZero() {
		t.Error("Expected snapshot timestamp to be set")
	}

	// AND: The cached WIP endpoint serves it
	rec := doRequest(t, h, http.MethodGet, "/api/jobs/job-1/wip?cached=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	wip := decodeBody[WIPDTO](t, rec)
	if wip.AsOf == "" {
		t.Error("Expected as_of on a snapshot-served response")
	}
	if !approx(wip.Balance, 600) {
		t.Errorf("Expected balance 600, got %v", wip.Balance)
	}
}

func TestSnapshotScheduler_StartStop(t *testing.T) {
	_, mem := newTestHandler(t)

	ss := NewSnapshotScheduler(mem, mem)
	ss.CheckInterval = 50 * time.Millisecond
	ss.Start()
	defer ss.Stop()

	// The initial refresh runs on start.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := mem.LatestWIPSnapshot(context.Background(), "job-1")
		if err != nil {
			t.Fatalf("Failed to read snapshot: %v", err)
		}
		if snap != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Expected a snapshot within 2s of scheduler start")
}
