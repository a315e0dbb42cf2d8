package writeoff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wip-engine/writeoff"
)

func TestGroupByTeamMember_RepresentativeRate(t *testing.T) {
	// The group's rate comes from the first entry seen for the member.
	// Same-member rates are assumed uniform; nothing validates that.

	e1 := rawEntry("e1", "alice", "2", "200")
	e1.BillableRate = money("100")
	e2 := rawEntry("e2", "alice", "1", "120")
	e2.BillableRate = money("120") // differing rate, first one wins

	s := writeoff.NewSession([]writeoff.RawEntry{e1, e2}, money("32"))
	groups := s.Groups()

	require.Len(t, groups, 1)
	assert.True(t, groups[0].BillableRate.Equal(money("100")))
	assert.True(t, groups[0].TotalHours.Equal(money("3")))
	assert.True(t, groups[0].TotalOriginalAmount.Equal(money("320")))
}

func TestGroupByTeamMember_RecomputeReflectsManualEdit(t *testing.T) {
	// Grouping is a full recompute from the entry list; an edit is always
	// visible in the next grouping with no stale cached amounts.

	s := threeEntrySession()
	aliceBefore := s.Groups()[0].TotalWriteOffAmount

	s, err := s.SetEntryPercentage("e1", money("50"))
	require.NoError(t, err)

	aliceAfter := s.Groups()[0].TotalWriteOffAmount
	assert.False(t, aliceAfter.Equal(aliceBefore), "group total must reflect the edit")

	// e1 now carries 50% of 60 = 30; e3 keeps its proportional 50% = 30.
	assert.True(t, aliceAfter.Equal(money("60")))
}

func TestGroupByTeamMember_EmptyList(t *testing.T) {
	groups := writeoff.GroupByTeamMember(nil)
	assert.Empty(t, groups)
}

func TestNewSessionWithTotal_CallerSuppliedTotalWins(t *testing.T) {
	// The enclosing dialog passes the job's WIP total through; shares are
	// computed against it even if the entry sum disagrees slightly.

	raw := []writeoff.RawEntry{
		rawEntry("e1", "alice", "1", "100"),
		rawEntry("e2", "bob", "1", "100"),
	}
	s := writeoff.NewSessionWithTotal(raw, money("40"), money("400"))

	assert.True(t, s.Target.TotalOriginalAmount.Equal(money("400")))
	assert.True(t, s.Entries[0].WriteOffPercentage.Equal(money("25")))
	assert.True(t, s.Entries[0].WriteOffAmount.Equal(money("10")))
}
