/*
aggregate.go - Team-member grouping of chargeable entries

PURPOSE:
  The reconciliation dialog displays entries grouped per team member, with
  summed hours, billable value, and write-off amounts. This file builds
  that projection.

KEY INSIGHT:
  Groups are a pure projection of the current entry list, fully recomputed
  after every allocator operation. They are never a source of truth and
  never updated incrementally - which is how a manual edit can never leave
  a stale per-member total behind.

GUARANTEED IDENTITIES (exact, plain summation):
  sum(group.TotalHours)          == sum(entry.Hours)
  sum(group.TotalOriginalAmount) == sum(entry.OriginalAmount)
  sum(group.TotalWriteOffAmount) == sum(entry.WriteOffAmount)

SEE ALSO:
  - session.go: The entry list this projects from
*/
package writeoff

import "github.com/shopspring/decimal"

// =============================================================================
// TEAM MEMBER GROUP - Read-only aggregation
// =============================================================================

// TeamMemberGroup is the per-member rollup of a session's entries.
type TeamMemberGroup struct {
	TeamMember          string
	TotalHours          decimal.Decimal
	TotalOriginalAmount decimal.Decimal
	TotalWriteOffAmount decimal.Decimal

	// BillableRate is a representative rate for display, taken from the
	// first entry seen for this member. Entries for one member are assumed
	// to share a rate; nothing enforces that upstream.
	BillableRate decimal.Decimal

	// TimeLogs lists the member's entries in input order.
	TimeLogs []ChargeableEntry
}

// GroupByTeamMember builds one group per distinct team-member name, in
// first-seen order. Single pass; grouping itself is order-independent.
func GroupByTeamMember(entries []ChargeableEntry) []TeamMemberGroup {
	index := make(map[string]int, len(entries))
	groups := make([]TeamMemberGroup, 0, len(entries))

	for _, e := range entries {
		i, ok := index[e.TeamMember]
		if !ok {
			i = len(groups)
			index[e.TeamMember] = i
			groups = append(groups, TeamMemberGroup{
				TeamMember:          e.TeamMember,
				TotalHours:          decimal.Zero,
				TotalOriginalAmount: decimal.Zero,
				TotalWriteOffAmount: decimal.Zero,
				BillableRate:        e.BillableRate,
			})
		}

		g := &groups[i]
		g.TotalHours = g.TotalHours.Add(e.Hours)
		g.TotalOriginalAmount = g.TotalOriginalAmount.Add(e.OriginalAmount)
		g.TotalWriteOffAmount = g.TotalWriteOffAmount.Add(e.WriteOffAmount)
		g.TimeLogs = append(g.TimeLogs, e)
	}

	return groups
}

// Groups is shorthand for grouping a session's current entries.
func (s ReconciliationSession) Groups() []TeamMemberGroup {
	return GroupByTeamMember(s.Entries)
}
