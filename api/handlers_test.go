/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Write-off preview (proportional spread over a job's time logs)
- Write-off save (proportional, manual overrides, validation failures)
- WIP endpoint after a saved write-off
- Time log creation with rate resolution
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wip-engine/billing"
	"github.com/warp/wip-engine/billing/store"
	"github.com/warp/wip-engine/factory"
)

// newTestHandler builds a handler over the in-memory store with one client,
// one job, two members, and three time logs totalling 600 (100/200/300).
func newTestHandler(t *testing.T) (*Handler, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	h := NewHandler(mem, mem, nil)
	ctx := context.Background()

	if err := mem.SaveClient(ctx, billing.Client{ID: "client-1", Name: "Acme Ltd"}); err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if err := mem.SaveJob(ctx, billing.Job{ID: "job-1", ClientID: "client-1", Name: "Year-end accounts", Status: billing.JobActive}); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	members := []billing.TeamMember{
		{ID: "user-a", Name: "Alice", BillableRate: decimal.NewFromInt(200)},
		{ID: "user-b", Name: "Bob", BillableRate: decimal.NewFromInt(100)},
	}
	for _, m := range members {
		if err := mem.SaveTeamMember(ctx, m); err != nil {
			t.Fatalf("Failed to create team member: %v", err)
		}
	}

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	logs := []billing.TimeLog{
		billing.NewTimeLog("tl-1", "job-1", "client-1", "user-a", "cat-accounts", "Alice", day, dec("0.5"), dec("200"), "prep"),
		billing.NewTimeLog("tl-2", "job-1", "client-1", "user-b", "cat-accounts", "Bob", day.AddDate(0, 0, 1), dec("2"), dec("100"), "review"),
		billing.NewTimeLog("tl-3", "job-1", "client-1", "user-a", "", "Alice", day.AddDate(0, 0, 2), dec("1.5"), dec("200"), ""),
	}
	for _, l := range logs {
		if err := mem.SaveTimeLog(ctx, l); err != nil {
			t.Fatalf("Failed to save time log: %v", err)
		}
	}

	return h, mem
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func doRequest(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return v
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-6
}

func TestPreviewWriteOff_ProportionalSpread(t *testing.T) {
	// GIVEN: A job with entries of 100/200/300 (total 600)
	h, _ := newTestHandler(t)

	// WHEN: Previewing a write-off of 60
	rec := doRequest(t, h, http.MethodGet, "/api/jobs/job-1/writeoff/preview?target=60", nil)

	// THEN: Each entry carries its proportional share
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	session := decodeBody[WriteOffSessionDTO](t, rec)

	if session.Mode != "proportional" {
		t.Errorf("Expected proportional mode, got %s", session.Mode)
	}
	if len(session.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(session.Entries))
	}
	if !approx(session.Entries[0].WriteOffAmount, 10) {
		t.Errorf("Entry 1: expected write-off 10, got %v", session.Entries[0].WriteOffAmount)
	}
	if !approx(session.PercentageSum, 100) {
		t.Errorf("Expected percentages to total 100, got %v", session.PercentageSum)
	}
	if !approx(session.WriteOffSum, 60) {
		t.Errorf("Expected write-off sum 60, got %v", session.WriteOffSum)
	}

	// AND: The per-member rollup groups Alice's two entries first
	if len(session.Groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(session.Groups))
	}
	if session.Groups[0].TeamMember != "Alice" || session.Groups[0].EntryCount != 2 {
		t.Errorf("Expected Alice first with 2 entries, got %+v", session.Groups[0])
	}
}

func TestPreviewWriteOff_UnknownJob_404(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/api/jobs/job-9/writeoff/preview?target=60", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestSaveWriteOff_Proportional(t *testing.T) {
	// GIVEN: A job with 600 of WIP
	h, mem := newTestHandler(t)

	// WHEN: Saving a proportional write-off of 60
	rec := doRequest(t, h, http.MethodPost, "/api/writeoffs", SaveWriteOffRequest{
		JobID:          "job-1",
		WriteOffTarget: 60,
		Reason:         "agreed fee cap",
	})

	// THEN: The reconciliation is created with per-entry records
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	dto := decodeBody[ReconciliationDTO](t, rec)

	if dto.Method != "proportionally" {
		t.Errorf("Expected method proportionally, got %s", dto.Method)
	}
	if len(dto.Records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(dto.Records))
	}
	if !approx(dto.WrittenOff, 60) {
		t.Errorf("Expected 60 written off, got %v", dto.WrittenOff)
	}
	// 0.5h -> 1800 seconds
	if dto.Records[0].DurationSeconds != 1800 {
		t.Errorf("Expected 1800 seconds, got %d", dto.Records[0].DurationSeconds)
	}

	// AND: The store holds exactly one reconciliation for the job
	recs, err := mem.ListReconciliations(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Failed to list reconciliations: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("Expected 1 stored reconciliation, got %d", len(recs))
	}
}

func TestSaveWriteOff_ManualOverrides(t *testing.T) {
	// GIVEN: A job with entries of 100/200/300
	h, _ := newTestHandler(t)

	// WHEN: Saving with manual percentages totalling 100.00
	rec := doRequest(t, h, http.MethodPost, "/api/writeoffs", SaveWriteOffRequest{
		JobID:          "job-1",
		WriteOffTarget: 60,
		Reason:         "partner decision",
		Overrides: []PercentageOverride{
			{EntryID: "tl-1", Percentage: 50},
			{EntryID: "tl-2", Percentage: 30},
			{EntryID: "tl-3", Percentage: 20},
		},
	})

	// THEN: The save succeeds and records carry the override amounts
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	dto := decodeBody[ReconciliationDTO](t, rec)

	if dto.Method != "manually" {
		t.Errorf("Expected method manually, got %s", dto.Method)
	}
	// 50% of the 60 target
	if !approx(dto.Records[0].WriteOffAmount, 30) {
		t.Errorf("Expected 30 on first record, got %v", dto.Records[0].WriteOffAmount)
	}
}

func TestSaveWriteOff_MissingReason_400(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/writeoffs", SaveWriteOffRequest{
		JobID:          "job-1",
		WriteOffTarget: 60,
		Reason:         "   ",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	resp := decodeBody[ErrorResponse](t, rec)
	if resp.Code != "missing_reason" {
		t.Errorf("Expected code missing_reason, got %s", resp.Code)
	}
}

func TestSaveWriteOff_PercentageMismatch_400(t *testing.T) {
	// GIVEN: Manual overrides totalling 90, not 100
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/writeoffs", SaveWriteOffRequest{
		JobID:          "job-1",
		WriteOffTarget: 60,
		Reason:         "partner decision",
		Overrides: []PercentageOverride{
			{EntryID: "tl-1", Percentage: 50},
			{EntryID: "tl-2", Percentage: 40},
			{EntryID: "tl-3", Percentage: 0},
		},
	})

	// THEN: 400 with the off total in the details
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	resp := decodeBody[ErrorResponse](t, rec)
	if resp.Code != "percentage_mismatch" {
		t.Errorf("Expected code percentage_mismatch, got %s", resp.Code)
	}
	details, ok := resp.Details.(map[string]any)
	if !ok {
		t.Fatalf("Expected details map, got %T", resp.Details)
	}
	if total, _ := details["total"].(float64); !approx(total, 90) {
		t.Errorf("Expected reported total 90, got %v", details["total"])
	}
}

func TestSaveWriteOff_UnknownEntry_400(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/writeoffs", SaveWriteOffRequest{
		JobID:          "job-1",
		WriteOffTarget: 60,
		Reason:         "partner decision",
		Overrides:      []PercentageOverride{{EntryID: "tl-99", Percentage: 100}},
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	resp := decodeBody[ErrorResponse](t, rec)
	if resp.Code != "entry_not_found" {
		t.Errorf("Expected code entry_not_found, got %s", resp.Code)
	}
}

func TestGetJobWIP_AfterWriteOff(t *testing.T) {
	// GIVEN: A job with 600 of WIP and a saved write-off of 60
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/writeoffs", SaveWriteOffRequest{
		JobID:          "job-1",
		WriteOffTarget: 60,
		Reason:         "agreed fee cap",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to save write-off: %d", rec.Code)
	}

	// WHEN: Fetching the job's WIP position
	rec = doRequest(t, h, http.MethodGet, "/api/jobs/job-1/wip", nil)

	// THEN: The balance reflects the write-off
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	wip := decodeBody[WIPDTO](t, rec)
	if !approx(wip.TotalValue, 600) {
		t.Errorf("Expected total value 600, got %v", wip.TotalValue)
	}
	if !approx(wip.WrittenOff, 60) {
		t.Errorf("Expected 60 written off, got %v", wip.WrittenOff)
	}
	if !approx(wip.Balance, 540) {
		t.Errorf("Expected balance 540, got %v", wip.Balance)
	}
}

func TestCreateTimeLog_RateFromRateCard(t *testing.T) {
	// GIVEN: A handler with a rate card overriding user-a's rate
	h, mem := newTestHandler(t)
	card, err := factory.ParseRateCard(`{
		"default_rate": "150",
		"user_rates": {"user-a": "300"}
	}`)
	if err != nil {
		t.Fatalf("Failed to parse rate card: %v", err)
	}
	h.RateCard = card

	// WHEN: Logging 2 hours without an explicit rate
	rec := doRequest(t, h, http.MethodPost, "/api/timelogs", CreateTimeLogRequest{
		JobID:  "job-1",
		UserID: "user-a",
		Date:   "2026-03-15",
		Hours:  2,
	})

	// THEN: The rate card rate applies and the amount derives from it
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	dto := decodeBody[TimeLogDTO](t, rec)
	if !approx(dto.Rate, 300) {
		t.Errorf("Expected rate 300 from rate card, got %v", dto.Rate)
	}
	if !approx(dto.Amount, 600) {
		t.Errorf("Expected amount 600, got %v", dto.Amount)
	}

	logs, err := mem.ListTimeLogsByJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Failed to list time logs: %v", err)
	}
	if len(logs) != 4 {
		t.Errorf("Expected 4 time logs after creation, got %d", len(logs))
	}
}

func TestCreateTimeLog_RateFromMemberDefault(t *testing.T) {
	// GIVEN: No rate card configured
	h, _ := newTestHandler(t)

	// WHEN: Logging time without an explicit rate
	rec := doRequest(t, h, http.MethodPost, "/api/timelogs", CreateTimeLogRequest{
		JobID:  "job-1",
		UserID: "user-b",
		Date:   "2026-03-15",
		Hours:  1,
	})

	// THEN: The member's default rate applies
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	dto := decodeBody[TimeLogDTO](t, rec)
	if !approx(dto.Rate, 100) {
		t.Errorf("Expected Bob's default rate 100, got %v", dto.Rate)
	}
}

func TestCreateJob_UnknownClient_404(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/jobs", CreateJobRequest{
		ClientID: "client-9",
		Name:     "Audit",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
