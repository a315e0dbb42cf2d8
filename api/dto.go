/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY FIELDS:
  Amounts and percentages cross the wire as float64 for the dashboard's
  convenience. The domain keeps decimal.Decimal throughout; conversion to
  float happens only here, at the edge, after all arithmetic is done.

TYPES:
  Reference data:
    ClientDTO, JobDTO, TeamMemberDTO + Create*Request

  Time logs and invoices:
    TimeLogDTO, CreateTimeLogRequest, InvoiceDTO, CreateInvoiceRequest

  WIP:
    WIPDTO

  Write-off reconciliation:
    WriteOffSessionDTO, WriteOffEntryDTO, TeamMemberGroupDTO,
    SaveWriteOffRequest, PercentageOverride, ReconciliationDTO,
    WriteOffRecordDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ../writeoff: The session state these DTOs project
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wip-engine/billing"
	"github.com/warp/wip-engine/writeoff"
)

// =============================================================================
// REFERENCE DATA
// =============================================================================

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateClientRequest is the request to create a client.
type CreateClientRequest struct {
	ID   string `json:"id,omitempty"` // Generated when omitted
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// JobDTO represents a job in API responses.
type JobDTO struct {
	ID        string `json:"id"`
	ClientID  string `json:"client_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateJobRequest is the request to create a job.
type CreateJobRequest struct {
	ID       string `json:"id,omitempty"`
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// TeamMemberDTO represents a fee earner in API responses.
type TeamMemberDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email,omitempty"`
	BillableRate float64 `json:"billable_rate"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// CreateTeamMemberRequest is the request to create a team member.
type CreateTeamMemberRequest struct {
	ID           string  `json:"id,omitempty"`
	Name         string  `json:"name"`
	Email        string  `json:"email,omitempty"`
	BillableRate float64 `json:"billable_rate"`
}

// =============================================================================
// TIME LOGS AND INVOICES
// =============================================================================

// TimeLogDTO represents a time log in API responses.
type TimeLogDTO struct {
	ID          string  `json:"id"`
	JobID       string  `json:"job_id"`
	ClientID    string  `json:"client_id"`
	UserID      string  `json:"user_id"`
	CategoryID  string  `json:"category_id,omitempty"`
	TeamMember  string  `json:"team_member"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// CreateTimeLogRequest is the request to log time. Rate is optional: when
// zero, the server resolves it from the rate card (or the member's default).
type CreateTimeLogRequest struct {
	ID          string  `json:"id,omitempty"`
	JobID       string  `json:"job_id"`
	UserID      string  `json:"user_id"`
	CategoryID  string  `json:"category_id,omitempty"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Hours       float64 `json:"hours"`
	Rate        float64 `json:"rate,omitempty"`
	Description string  `json:"description,omitempty"`
}

// InvoiceDTO represents an invoice in API responses.
type InvoiceDTO struct {
	ID        string  `json:"id"`
	JobID     string  `json:"job_id"`
	ClientID  string  `json:"client_id"`
	Reference string  `json:"reference,omitempty"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
}

// CreateInvoiceRequest is the request to raise an invoice against a job.
type CreateInvoiceRequest struct {
	ID        string  `json:"id,omitempty"`
	JobID     string  `json:"job_id"`
	Reference string  `json:"reference,omitempty"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"` // YYYY-MM-DD
}

// =============================================================================
// WIP
// =============================================================================

// WIPDTO is a job's work-in-progress position.
type WIPDTO struct {
	JobID      string  `json:"job_id"`
	TotalHours float64 `json:"total_hours"`
	TotalValue float64 `json:"total_value"`
	Invoiced   float64 `json:"invoiced"`
	WrittenOff float64 `json:"written_off"`
	Balance    float64 `json:"balance"`
	AsOf       string  `json:"as_of,omitempty"` // Set when served from a snapshot
}

// =============================================================================
// WRITE-OFF RECONCILIATION
// =============================================================================

// WriteOffEntryDTO is one chargeable entry inside a reconciliation session.
type WriteOffEntryDTO struct {
	ID                 string  `json:"id"`
	TimeLogID          string  `json:"time_log_id,omitempty"`
	TeamMember         string  `json:"team_member"`
	Date               string  `json:"date,omitempty"`
	Hours              float64 `json:"hours"`
	BillableRate       float64 `json:"billable_rate"`
	OriginalAmount     float64 `json:"original_amount"`
	WriteOffPercentage float64 `json:"writeoff_percentage"`
	WriteOffAmount     float64 `json:"writeoff_amount"`
	Description        string  `json:"description,omitempty"`
}

// TeamMemberGroupDTO is the per-member rollup shown above the entry list.
type TeamMemberGroupDTO struct {
	TeamMember          string  `json:"team_member"`
	TotalHours          float64 `json:"total_hours"`
	TotalOriginalAmount float64 `json:"total_original_amount"`
	TotalWriteOffAmount float64 `json:"total_writeoff_amount"`
	BillableRate        float64 `json:"billable_rate"`
	EntryCount          int     `json:"entry_count"`
}

// WriteOffSessionDTO is a full reconciliation session projection: the
// entries, the per-member rollup, and the running sums the dashboard
// displays next to the save button.
type WriteOffSessionDTO struct {
	JobID          string               `json:"job_id"`
	Mode           string               `json:"mode"`
	WriteOffTarget float64              `json:"writeoff_target"`
	TotalAmount    float64              `json:"total_amount"`
	PercentageSum  float64              `json:"percentage_sum"`
	WriteOffSum    float64              `json:"writeoff_sum"`
	Entries        []WriteOffEntryDTO   `json:"entries"`
	Groups         []TeamMemberGroupDTO `json:"groups"`
}

// PercentageOverride is one manual per-entry edit.
type PercentageOverride struct {
	EntryID    string  `json:"entry_id"`
	Percentage float64 `json:"percentage"`
}

// SaveWriteOffRequest is the request to save a write-off reconciliation.
// An empty overrides list saves the proportional spread; a non-empty list
// switches the session to manual mode before validation.
type SaveWriteOffRequest struct {
	JobID          string               `json:"job_id"`
	WriteOffTarget float64              `json:"writeoff_target"`
	Reason         string               `json:"reason"`
	Overrides      []PercentageOverride `json:"overrides,omitempty"`
}

// WriteOffRecordDTO is one persisted allocation line.
type WriteOffRecordDTO struct {
	EntryID            string  `json:"entry_id"`
	TimeLogID          string  `json:"time_log_id,omitempty"`
	WriteOffAmount     float64 `json:"writeoff_amount"`
	WriteOffPercentage float64 `json:"writeoff_percentage"`
	OriginalAmount     float64 `json:"original_amount"`
	DurationSeconds    int64   `json:"duration_seconds"`
	ClientID           string  `json:"client_id,omitempty"`
	JobID              string  `json:"job_id,omitempty"`
	UserID             string  `json:"user_id,omitempty"`
	CategoryID         string  `json:"category_id,omitempty"`
}

// ReconciliationDTO is a saved write-off in API responses.
type ReconciliationDTO struct {
	ID             string              `json:"id"`
	JobID          string              `json:"job_id"`
	Reason         string              `json:"reason"`
	WriteOffTarget float64             `json:"writeoff_target"`
	Method         string              `json:"method"`
	WrittenOff     float64             `json:"written_off"`
	Records        []WriteOffRecordDTO `json:"records"`
	CreatedAt      string              `json:"created_at,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func f(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func toClientDTO(c billing.Client) ClientDTO {
	return ClientDTO{
		ID:        c.ID,
		Name:      c.Name,
		Code:      c.Code,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func toJobDTO(j billing.Job) JobDTO {
	return JobDTO{
		ID:        j.ID,
		ClientID:  j.ClientID,
		Name:      j.Name,
		Status:    string(j.Status),
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
}

func toTeamMemberDTO(m billing.TeamMember) TeamMemberDTO {
	return TeamMemberDTO{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		BillableRate: f(m.BillableRate),
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
}

func toTimeLogDTO(l billing.TimeLog) TimeLogDTO {
	return TimeLogDTO{
		ID:          l.ID,
		JobID:       l.JobID,
		ClientID:    l.ClientID,
		UserID:      l.UserID,
		CategoryID:  l.CategoryID,
		TeamMember:  l.TeamMember,
		Date:        l.Date.Format("2006-01-02"),
		Hours:       f(l.Hours),
		Rate:        f(l.Rate),
		Amount:      f(l.Amount),
		Description: l.Description,
	}
}

func toInvoiceDTO(inv billing.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:        inv.ID,
		JobID:     inv.JobID,
		ClientID:  inv.ClientID,
		Reference: inv.Reference,
		Amount:    f(inv.Amount),
		Date:      inv.Date.Format("2006-01-02"),
	}
}

func toWIPDTO(b billing.WIPBalance) WIPDTO {
	return WIPDTO{
		JobID:      b.JobID,
		TotalHours: f(b.TotalHours),
		TotalValue: f(b.TotalValue),
		Invoiced:   f(b.Invoiced),
		WrittenOff: f(b.WrittenOff),
		Balance:    f(b.Balance()),
	}
}

func toSnapshotWIPDTO(s billing.WIPSnapshot) WIPDTO {
	return WIPDTO{
		JobID:      s.JobID,
		TotalHours: f(s.TotalHours),
		TotalValue: f(s.TotalValue),
		Invoiced:   f(s.Invoiced),
		WrittenOff: f(s.WrittenOff),
		Balance:    f(s.Balance),
		AsOf:       s.AsOf.Format(time.RFC3339),
	}
}

func toSessionDTO(jobID string, s writeoff.ReconciliationSession) WriteOffSessionDTO {
	entries := make([]WriteOffEntryDTO, len(s.Entries))
	for i, e := range s.Entries {
		dto := WriteOffEntryDTO{
			ID:                 string(e.ID),
			TimeLogID:          string(e.TimeLogID),
			TeamMember:         e.TeamMember,
			Hours:              f(e.Hours),
			BillableRate:       f(e.BillableRate),
			OriginalAmount:     f(e.OriginalAmount),
			WriteOffPercentage: f(e.WriteOffPercentage),
			WriteOffAmount:     f(e.WriteOffAmount),
			Description:        e.Description,
		}
		if !e.Date.IsZero() {
			dto.Date = e.Date.Format("2006-01-02")
		}
		entries[i] = dto
	}

	groups := make([]TeamMemberGroupDTO, 0, len(entries))
	for _, g := range s.Groups() {
		groups = append(groups, TeamMemberGroupDTO{
			TeamMember:          g.TeamMember,
			TotalHours:          f(g.TotalHours),
			TotalOriginalAmount: f(g.TotalOriginalAmount),
			TotalWriteOffAmount: f(g.TotalWriteOffAmount),
			BillableRate:        f(g.BillableRate),
			EntryCount:          len(g.TimeLogs),
		})
	}

	return WriteOffSessionDTO{
		JobID:          jobID,
		Mode:           string(s.Mode),
		WriteOffTarget: f(s.Target.WriteOffTarget),
		TotalAmount:    f(s.Target.TotalOriginalAmount),
		PercentageSum:  f(s.PercentageSum()),
		WriteOffSum:    f(s.WriteOffSum()),
		Entries:        entries,
		Groups:         groups,
	}
}

func toReconciliationDTO(r billing.Reconciliation) ReconciliationDTO {
	records := make([]WriteOffRecordDTO, len(r.Records))
	for i, rec := range r.Records {
		records[i] = WriteOffRecordDTO{
			EntryID:            string(rec.EntryID),
			TimeLogID:          string(rec.TimeLogID),
			WriteOffAmount:     f(rec.WriteOffAmount),
			WriteOffPercentage: f(rec.WriteOffPercentage),
			OriginalAmount:     f(rec.OriginalAmount),
			DurationSeconds:    rec.DurationSeconds,
			ClientID:           rec.ClientID,
			JobID:              rec.JobID,
			UserID:             rec.UserID,
			CategoryID:         rec.CategoryID,
		}
	}
	return ReconciliationDTO{
		ID:             r.ID,
		JobID:          r.JobID,
		Reason:         r.Reason,
		WriteOffTarget: f(r.WriteOffTarget),
		Method:         string(r.Method),
		WrittenOff:     f(r.WrittenOff()),
		Records:        records,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
}
