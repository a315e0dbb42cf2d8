/*
handlers.go - HTTP API handlers for the WIP write-off engine

PURPOSE:
  Exposes the practice-management domain via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Clients:
    GET    /api/clients                 List all clients
    POST   /api/clients                 Create client
    GET    /api/clients/{id}            Get client details

  Jobs:
    GET    /api/jobs                    List jobs (?client_id= to filter)
    POST   /api/jobs                    Create job
    GET    /api/jobs/{id}               Get job details
    GET    /api/jobs/{id}/wip           WIP position (?cached=true for snapshot)
    GET    /api/jobs/{id}/timelogs      Time logs on the job
    GET    /api/jobs/{id}/invoices      Invoices raised against the job
    GET    /api/jobs/{id}/writeoff/preview  Proportional spread preview

  Team members:
    GET    /api/members                 List team members
    POST   /api/members                 Create team member
    GET    /api/members/{id}/timelogs   Time logs by member (?from=&to=)

  Time logs and invoices:
    POST   /api/timelogs                Log time (rate card resolves rate)
    POST   /api/invoices                Raise an invoice

  Write-offs:
    POST   /api/writeoffs               Save a reconciliation
    GET    /api/writeoffs               List reconciliations (?job_id=)

  Scenarios:
    GET    /api/scenarios               List demo scenarios
    POST   /api/scenarios/load          Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (interface, so tests run on the memory store)
  - Snapshots: Cached WIP balances
  - RateCard: User/category rate resolution for new time logs

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (session, calculator, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate reconciliation)
  - 500: Internal errors

  Write-off save failures carry a machine-readable code so the dashboard
  can highlight the right field:
  - missing_reason:       Reason empty or whitespace-only
  - percentage_mismatch:  Manual percentages do not total 100.00
  - entry_not_found:      Override references an unknown entry

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/wip-engine/billing"
	"github.com/warp/wip-engine/factory"
	"github.com/warp/wip-engine/writeoff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     billing.Store
	Snapshots billing.SnapshotStore
	Calc      *billing.WIPCalculator
	RateCard  *factory.RateCard

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler. Snapshots may be nil when the store does
// not cache WIP balances; rateCard may be nil when rates always come from
// the team member record.
func NewHandler(store billing.Store, snapshots billing.SnapshotStore, rateCard *factory.RateCard) *Handler {
	return &Handler{
		Store:     store,
		Snapshots: snapshots,
		Calc:      &billing.WIPCalculator{Store: store},
		RateCard:  rateCard,
	}
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}

	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClient returns a single client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.Store.GetClient(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get client", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Client not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*c))
}

// CreateClient creates a new client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	c := billing.Client{
		ID:   req.ID,
		Name: req.Name,
		Code: req.Code,
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	if err := h.Store.SaveClient(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(c))
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

// ListJobs returns jobs, optionally filtered by client.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Store.ListJobs(r.Context(), r.URL.Query().Get("client_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list jobs", err)
		return
	}

	dtos := make([]JobDTO, len(jobs))
	for i, j := range jobs {
		dtos[i] = toJobDTO(j)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetJob returns a single job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	j, err := h.Store.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get job", err)
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(*j))
}

// CreateJob creates a new job for a client.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ClientID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "client_id and name are required", nil)
		return
	}

	client, err := h.Store.GetClient(r.Context(), req.ClientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up client", err)
		return
	}
	if client == nil {
		writeError(w, http.StatusNotFound, "Client not found", nil)
		return
	}

	j := billing.Job{
		ID:       req.ID,
		ClientID: req.ClientID,
		Name:     req.Name,
		Status:   billing.JobActive,
	}
	if j.ID == "" {
		j.ID = uuid.New().String()
	}

	if err := h.Store.SaveJob(r.Context(), j); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create job", err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobDTO(j))
}

// GetJobWIP returns a job's WIP position. Computed live from the records;
// pass ?cached=true to serve the latest scheduler snapshot instead (falls
// back to a live computation when no snapshot exists yet).
func (h *Handler) GetJobWIP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	j, err := h.Store.GetJob(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get job", err)
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	if r.URL.Query().Get("cached") == "true" && h.Snapshots != nil {
		snap, err := h.Snapshots.LatestWIPSnapshot(ctx, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read WIP snapshot", err)
			return
		}
		if snap != nil {
			writeJSON(w, http.StatusOK, toSnapshotWIPDTO(*snap))
			return
		}
	}

	balance, err := h.Calc.CalculateWIP(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to calculate WIP", err)
		return
	}
	writeJSON(w, http.StatusOK, toWIPDTO(balance))
}

// ListJobTimeLogs returns the time logs recorded against a job.
func (h *Handler) ListJobTimeLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Store.ListTimeLogsByJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list time logs", err)
		return
	}

	dtos := make([]TimeLogDTO, len(logs))
	for i, l := range logs {
		dtos[i] = toTimeLogDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListJobInvoices returns the invoices raised against a job.
func (h *Handler) ListJobInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Store.ListInvoicesByJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TEAM MEMBER HANDLERS
// =============================================================================

// ListTeamMembers returns all team members.
func (h *Handler) ListTeamMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Store.ListTeamMembers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list team members", err)
		return
	}

	dtos := make([]TeamMemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toTeamMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTeamMember creates a new team member.
func (h *Handler) CreateTeamMember(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	m := billing.TeamMember{
		ID:           req.ID,
		Name:         req.Name,
		Email:        req.Email,
		BillableRate: decimal.NewFromFloat(req.BillableRate),
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	if err := h.Store.SaveTeamMember(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create team member", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeamMemberDTO(m))
}

// ListMemberTimeLogs returns a member's time logs in a date range.
// Defaults to the last 30 days when from/to are omitted.
func (h *Handler) ListMemberTimeLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
		to = t
	}

	logs, err := h.Store.ListTimeLogsByUser(r.Context(), id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list time logs", err)
		return
	}

	dtos := make([]TimeLogDTO, len(logs))
	for i, l := range logs {
		dtos[i] = toTimeLogDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TIME LOG AND INVOICE HANDLERS
// =============================================================================

// CreateTimeLog records billable time against a job. The rate is resolved
// in order: explicit request rate, rate card (user then category then
// default), team member default rate.
func (h *Handler) CreateTimeLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateTimeLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.JobID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "job_id and user_id are required", nil)
		return
	}
	if req.Hours <= 0 {
		writeError(w, http.StatusBadRequest, "hours must be positive", nil)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	job, err := h.Store.GetJob(ctx, req.JobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up job", err)
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	member, err := h.Store.GetTeamMember(ctx, req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up team member", err)
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "Team member not found", nil)
		return
	}

	rate := decimal.NewFromFloat(req.Rate)
	if rate.IsZero() {
		if h.RateCard != nil {
			rate = h.RateCard.ResolveRate(req.UserID, req.CategoryID)
		} else {
			rate = member.BillableRate
		}
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	l := billing.NewTimeLog(
		id, job.ID, job.ClientID, member.ID, req.CategoryID, member.Name,
		date, decimal.NewFromFloat(req.Hours), rate, req.Description,
	)

	if err := h.Store.SaveTimeLog(ctx, l); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save time log", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeLogDTO(l))
}

// CreateInvoice raises an invoice against a job's WIP.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required", nil)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	job, err := h.Store.GetJob(ctx, req.JobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up job", err)
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	inv := billing.Invoice{
		ID:        req.ID,
		JobID:     job.ID,
		ClientID:  job.ClientID,
		Reference: req.Reference,
		Amount:    decimal.NewFromFloat(req.Amount),
		Date:      date,
	}
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}

	if err := h.Store.SaveInvoice(ctx, inv); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// =============================================================================
// WRITE-OFF HANDLERS
// =============================================================================

// PreviewWriteOff opens a reconciliation session over a job's time logs and
// returns the proportional spread for the requested target.
// GET /api/jobs/{id}/writeoff/preview?target=60
func (h *Handler) PreviewWriteOff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	target, err := decimal.NewFromString(r.URL.Query().Get("target"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid target amount", err)
		return
	}

	job, err := h.Store.GetJob(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get job", err)
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	session, err := h.Calc.SessionForJob(ctx, id, target)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(id, session))
}

// SaveWriteOff validates and persists a write-off reconciliation.
//
// The session is rebuilt server-side from the job's time logs, so the saved
// allocation always reflects current data. Overrides, when present, switch
// the session to manual mode and must leave percentages totalling 100.00.
func (h *Handler) SaveWriteOff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaveWriteOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required", nil)
		return
	}

	job, err := h.Store.GetJob(ctx, req.JobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up job", err)
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	session, err := h.Calc.SessionForJob(ctx, req.JobID, decimal.NewFromFloat(req.WriteOffTarget))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build session", err)
		return
	}

	if len(req.Overrides) > 0 {
		session = session.EnterManual()
		for _, o := range req.Overrides {
			session, err = session.SetEntryPercentage(writeoff.EntryID(o.EntryID), decimal.NewFromFloat(o.Percentage))
			if err != nil {
				writeWriteOffError(w, err)
				return
			}
		}
	}

	payload, err := session.ValidateForSave(req.Reason)
	if err != nil {
		writeWriteOffError(w, err)
		return
	}

	rec := billing.Reconciliation{
		ID:             uuid.New().String(),
		JobID:          req.JobID,
		Reason:         payload.Reason,
		WriteOffTarget: payload.WriteOffTarget,
		Method:         payload.Method,
		Records:        payload.Records,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.Store.SaveReconciliation(ctx, rec); err != nil {
		if errors.Is(err, billing.ErrDuplicateReconciliation) {
			writeError(w, http.StatusConflict, "Reconciliation already saved", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save write-off", err)
		return
	}

	writeJSON(w, http.StatusCreated, toReconciliationDTO(rec))
}

// ListWriteOffs returns saved reconciliations, optionally filtered by job.
func (h *Handler) ListWriteOffs(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.ListReconciliations(r.Context(), r.URL.Query().Get("job_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list write-offs", err)
		return
	}

	dtos := make([]ReconciliationDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toReconciliationDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// writeWriteOffError maps allocation-engine validation failures to 400s
// with a machine-readable code.
func writeWriteOffError(w http.ResponseWriter, err error) {
	var mismatch *writeoff.PercentageMismatchError
	var notFound *writeoff.EntryNotFoundError

	switch {
	case errors.Is(err, writeoff.ErrMissingReason):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "A reason is required to save a write-off",
			Code:  "missing_reason",
		})
	case errors.As(err, &mismatch):
		total, _ := mismatch.Total.Float64()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Percentages must total 100.00",
			Code:    "percentage_mismatch",
			Details: map[string]float64{"total": total},
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Override references an unknown entry",
			Code:    "entry_not_found",
			Details: map[string]string{"entry_id": string(notFound.ID)},
		})
	default:
		writeError(w, http.StatusInternalServerError, "Failed to validate write-off", err)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
