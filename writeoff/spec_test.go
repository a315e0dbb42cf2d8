/*
spec_test.go - Specification tests for the write-off allocation engine

PURPOSE:
  These tests serve as EXECUTABLE SPECIFICATIONS of the engine's testable
  properties. Each test documents one guaranteed behavior and validates
  that the implementation conforms to it.

ORGANIZATION:
  1. Proportional completeness - shares sum to 100% / target
  2. Zero-total degeneracy - all-zero allocation, no divide-by-zero
  3. Manual edit isolation - one entry changes, the rest are untouched
  4. Aggregation sum identities - group totals equal entry totals
  5. Save gating - missing reason, percentage mismatch
  6. Amount round-trip - amount always derives from percentage

READING THESE TESTS:
  Each test has a descriptive name stating the behavior, GIVEN/WHEN/THEN
  comments explaining the scenario, and assertions with explanatory
  messages. They are intentionally verbose for documentation purposes.
*/
package writeoff_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wip-engine/writeoff"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func moneyPtr(s string) *decimal.Decimal {
	d := money(s)
	return &d
}

func rawEntry(id, member, hours, amount string) writeoff.RawEntry {
	return writeoff.RawEntry{
		ID:         writeoff.EntryID(id),
		TimeLogID:  writeoff.EntryID("tl-" + id),
		TeamMember: member,
		Hours:      money(hours),
		Amount:     moneyPtr(amount),
		Date:       time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
	}
}

// threeEntrySession is the canonical scenario: amounts 100/200/300, total
// 600, write-off target 60.
func threeEntrySession() writeoff.ReconciliationSession {
	return writeoff.NewSession([]writeoff.RawEntry{
		rawEntry("e1", "alice", "2", "100.00"),
		rawEntry("e2", "bob", "4", "200.00"),
		rawEntry("e3", "alice", "6", "300.00"),
	}, money("60.00"))
}

// tolerance for summation drift: 1e-6 relative.
var epsilon = money("0.000001")

func within(t *testing.T, got, want decimal.Decimal, context string) {
	t.Helper()
	diff := got.Sub(want).Abs()
	limit := want.Abs().Mul(epsilon)
	if limit.LessThan(epsilon) {
		limit = epsilon
	}
	if diff.GreaterThan(limit) {
		t.Errorf("%s: got %s, want %s (diff %s)", context, got, want, diff)
	}
}

// =============================================================================
// PROPERTY 1: PROPORTIONAL COMPLETENESS
// =============================================================================

func TestSpread_PercentagesSumTo100(t *testing.T) {
	// GIVEN: Entries with non-zero total billable value
	// WHEN: Spreading proportionally
	// THEN: Percentages sum to 100 and amounts sum to the target

	s := threeEntrySession()

	within(t, s.PercentageSum(), money("100"), "percentage sum")
	within(t, s.WriteOffSum(), money("60.00"), "write-off amount sum")
}

func TestSpread_UnevenAmounts_StillComplete(t *testing.T) {
	// GIVEN: Amounts that do not divide evenly (exact thirds etc.)
	// WHEN: Spreading proportionally
	// THEN: Completeness still holds within tolerance

	s := writeoff.NewSession([]writeoff.RawEntry{
		rawEntry("e1", "alice", "1", "33.33"),
		rawEntry("e2", "bob", "1", "33.33"),
		rawEntry("e3", "carol", "1", "33.34"),
		rawEntry("e4", "dave", "1", "0.01"),
	}, money("17.50"))

	within(t, s.PercentageSum(), money("100"), "percentage sum")
	within(t, s.WriteOffSum(), money("17.50"), "write-off amount sum")
}

func TestSpread_ResetsManualEdits(t *testing.T) {
	// GIVEN: A session with a manual edit in place
	// WHEN: SpreadProportionally is invoked
	// THEN: Every percentage is back to its proportional share and the
	//       mode reverts to proportional - a full reset, not a merge

	s := threeEntrySession()
	s, err := s.SetEntryPercentage("e1", money("95"))
	if err != nil {
		t.Fatalf("manual edit should succeed: %v", err)
	}
	if s.Mode != writeoff.ModeManual {
		t.Fatalf("expected manual mode after edit, got %s", s.Mode)
	}

	s = s.SpreadProportionally()

	if s.Mode != writeoff.ModeProportional {
		t.Errorf("expected proportional mode after spread, got %s", s.Mode)
	}
	within(t, s.Entries[0].WriteOffPercentage, money("16.666666666666667"), "entry e1 share")
	within(t, s.PercentageSum(), money("100"), "percentage sum")
}

// =============================================================================
// PROPERTY 2: ZERO-TOTAL DEGENERACY
// =============================================================================

func TestSpread_ZeroTotal_AllSharesExactlyZero(t *testing.T) {
	// GIVEN: Entries whose amounts are all zero (no billable value)
	// WHEN: Initializing the session
	// THEN: Every percentage and amount is exactly zero - a defined
	//       outcome, not an error, and no divide-by-zero fault

	s := writeoff.NewSession([]writeoff.RawEntry{
		rawEntry("e1", "alice", "2", "0"),
		rawEntry("e2", "bob", "3", "0"),
	}, money("50.00"))

	for _, e := range s.Entries {
		if !e.WriteOffPercentage.IsZero() {
			t.Errorf("entry %s: percentage should be exactly zero, got %s", e.ID, e.WriteOffPercentage)
		}
		if !e.WriteOffAmount.IsZero() {
			t.Errorf("entry %s: amount should be exactly zero, got %s", e.ID, e.WriteOffAmount)
		}
	}
}

func TestSpread_EmptyEntryList_NoFault(t *testing.T) {
	// GIVEN: No entries at all
	// WHEN: Initializing and spreading
	// THEN: Sums are zero and nothing faults

	s := writeoff.NewSession(nil, money("50.00"))
	s = s.SpreadProportionally()

	if !s.PercentageSum().IsZero() {
		t.Errorf("empty session percentage sum should be zero, got %s", s.PercentageSum())
	}
}

func TestNewSession_MissingAmount_TreatedAsZero(t *testing.T) {
	// GIVEN: One entry without an amount (incomplete upstream data)
	// WHEN: Initializing the session
	// THEN: That entry's original amount is zero and the other entry
	//       carries the full share

	e1 := rawEntry("e1", "alice", "2", "100.00")
	e2 := rawEntry("e2", "bob", "3", "0")
	e2.Amount = nil

	s := writeoff.NewSession([]writeoff.RawEntry{e1, e2}, money("10.00"))

	if !s.Entries[1].OriginalAmount.IsZero() {
		t.Errorf("missing amount should initialize to zero, got %s", s.Entries[1].OriginalAmount)
	}
	within(t, s.Entries[0].WriteOffPercentage, money("100"), "full share on the valued entry")
	if !s.Target.TotalOriginalAmount.Equal(money("100.00")) {
		t.Errorf("total should be 100.00, got %s", s.Target.TotalOriginalAmount)
	}
}

// =============================================================================
// PROPERTY 3: MANUAL EDIT ISOLATION
// =============================================================================

func TestSetEntryPercentage_OnlyTargetEntryChanges(t *testing.T) {
	// GIVEN: A proportionally spread session
	// WHEN: Editing one entry's percentage
	// THEN: Only that entry's percentage and amount change; every other
	//       entry is unchanged down to the last digit

	before := threeEntrySession()
	after, err := before.SetEntryPercentage("e2", money("40"))
	if err != nil {
		t.Fatalf("edit should succeed: %v", err)
	}

	for i, b := range before.Entries {
		a := after.Entries[i]
		if b.ID == "e2" {
			if !a.WriteOffPercentage.Equal(money("40")) {
				t.Errorf("edited entry percentage: got %s, want 40", a.WriteOffPercentage)
			}
			if !a.WriteOffAmount.Equal(money("24")) {
				t.Errorf("edited entry amount: got %s, want 24", a.WriteOffAmount)
			}
			continue
		}
		if !a.WriteOffPercentage.Equal(b.WriteOffPercentage) {
			t.Errorf("entry %s percentage drifted: %s -> %s", b.ID, b.WriteOffPercentage, a.WriteOffPercentage)
		}
		if !a.WriteOffAmount.Equal(b.WriteOffAmount) {
			t.Errorf("entry %s amount drifted: %s -> %s", b.ID, b.WriteOffAmount, a.WriteOffAmount)
		}
	}
}

func TestSetEntryPercentage_OriginalSessionUntouched(t *testing.T) {
	// GIVEN: A session
	// WHEN: Deriving an edited session from it
	// THEN: The original session value is bit-for-bit unchanged
	//       (value semantics: no mutation in place)

	s := threeEntrySession()
	original := s.Entries[0].WriteOffPercentage

	_, err := s.SetEntryPercentage("e1", money("99"))
	if err != nil {
		t.Fatalf("edit should succeed: %v", err)
	}

	if !s.Entries[0].WriteOffPercentage.Equal(original) {
		t.Errorf("original session mutated: %s -> %s", original, s.Entries[0].WriteOffPercentage)
	}
	if s.Mode != writeoff.ModeProportional {
		t.Errorf("original session mode changed to %s", s.Mode)
	}
}

func TestSetEntryPercentage_MatchesAlternateID(t *testing.T) {
	// GIVEN: Entries carrying both a primary and an upstream time-log id
	// WHEN: Editing by the alternate id
	// THEN: The matching entry is edited

	s := threeEntrySession()
	s, err := s.SetEntryPercentage("tl-e3", money("12.5"))
	if err != nil {
		t.Fatalf("edit by alternate id should succeed: %v", err)
	}
	if !s.Entries[2].WriteOffPercentage.Equal(money("12.5")) {
		t.Errorf("alternate-id edit missed: got %s", s.Entries[2].WriteOffPercentage)
	}
}

func TestSetEntryPercentage_NoClampNoRenormalize(t *testing.T) {
	// GIVEN: A session in manual mode
	// WHEN: Setting an out-of-range percentage (150) and a negative one
	// THEN: Both are accepted as given; siblings are not renormalized.
	//       The aggregate 100% rule is enforced at save time only.

	s := threeEntrySession()
	s, err := s.SetEntryPercentage("e1", money("150"))
	if err != nil {
		t.Fatalf("out-of-range edit should be accepted: %v", err)
	}
	if !s.Entries[0].WriteOffPercentage.Equal(money("150")) {
		t.Errorf("expected 150, got %s", s.Entries[0].WriteOffPercentage)
	}

	s, err = s.SetEntryPercentage("e2", money("-25"))
	if err != nil {
		t.Fatalf("negative edit should be accepted: %v", err)
	}
	if !s.Entries[1].WriteOffPercentage.Equal(money("-25")) {
		t.Errorf("expected -25, got %s", s.Entries[1].WriteOffPercentage)
	}
}

// =============================================================================
// PROPERTY 4: AGGREGATION SUM IDENTITIES
// =============================================================================

func TestGroupByTeamMember_SumIdentities(t *testing.T) {
	// GIVEN: Entries across two team members, after a manual edit
	// WHEN: Grouping by team member
	// THEN: Group totals exactly equal entry totals for hours, original
	//       amount, and write-off amount

	s := threeEntrySession()
	s, err := s.SetEntryPercentage("e2", money("55"))
	if err != nil {
		t.Fatalf("edit should succeed: %v", err)
	}

	groups := s.Groups()

	var hours, original, writeOff decimal.Decimal
	for _, g := range groups {
		hours = hours.Add(g.TotalHours)
		original = original.Add(g.TotalOriginalAmount)
		writeOff = writeOff.Add(g.TotalWriteOffAmount)
	}

	var wantHours, wantOriginal, wantWriteOff decimal.Decimal
	for _, e := range s.Entries {
		wantHours = wantHours.Add(e.Hours)
		wantOriginal = wantOriginal.Add(e.OriginalAmount)
		wantWriteOff = wantWriteOff.Add(e.WriteOffAmount)
	}

	if !hours.Equal(wantHours) {
		t.Errorf("hours identity broken: groups %s, entries %s", hours, wantHours)
	}
	if !original.Equal(wantOriginal) {
		t.Errorf("original amount identity broken: groups %s, entries %s", original, wantOriginal)
	}
	if !writeOff.Equal(wantWriteOff) {
		t.Errorf("write-off amount identity broken: groups %s, entries %s", writeOff, wantWriteOff)
	}
}

func TestGroupByTeamMember_FirstSeenOrder(t *testing.T) {
	// GIVEN: Entries where alice appears first, then bob, then alice again
	// WHEN: Grouping
	// THEN: Groups come back in first-seen order with entries in input order

	s := threeEntrySession()
	groups := s.Groups()

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].TeamMember != "alice" || groups[1].TeamMember != "bob" {
		t.Errorf("unexpected group order: %s, %s", groups[0].TeamMember, groups[1].TeamMember)
	}
	if len(groups[0].TimeLogs) != 2 {
		t.Errorf("alice should have 2 entries, got %d", len(groups[0].TimeLogs))
	}
	if groups[0].TimeLogs[0].ID != "e1" || groups[0].TimeLogs[1].ID != "e3" {
		t.Errorf("alice entries out of input order: %s, %s", groups[0].TimeLogs[0].ID, groups[0].TimeLogs[1].ID)
	}
}

// =============================================================================
// PROPERTY 6: THE CANONICAL SAVE SCENARIO
// =============================================================================

func TestSave_ManualMode_MismatchThenRestore(t *testing.T) {
	// GIVEN: Three entries 100/200/300, target 60, spread to
	//        16.67/33.33/50.00 at display precision, then manual mode
	// WHEN:  Editing the first entry to 20.00 (sum becomes 103.33)
	// THEN:  Save fails with PercentageMismatch reporting the total;
	//        editing back to 16.67 restores success

	// The displayed 2-decimal values, entered verbatim as manual edits.
	s := threeEntrySession().EnterManual()

	for id, pct := range map[writeoff.EntryID]string{
		"e1": "16.67", "e2": "33.33", "e3": "50.00",
	} {
		var err error
		s, err = s.SetEntryPercentage(id, money(pct))
		if err != nil {
			t.Fatalf("edit %s should succeed: %v", id, err)
		}
	}

	if _, err := s.ValidateForSave("client concession"); err != nil {
		t.Fatalf("save at 100.00 should succeed: %v", err)
	}

	s, err := s.SetEntryPercentage("e1", money("20.00"))
	if err != nil {
		t.Fatalf("edit should succeed: %v", err)
	}

	_, err = s.ValidateForSave("client concession")
	var mismatch *writeoff.PercentageMismatchError
	if err == nil {
		t.Fatal("save at 103.33 should fail")
	}
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected PercentageMismatchError, got %v", err)
	}
	if !mismatch.Total.Equal(money("103.33")) {
		t.Errorf("mismatch total: got %s, want 103.33", mismatch.Total)
	}

	s, err = s.SetEntryPercentage("e1", money("16.67"))
	if err != nil {
		t.Fatalf("edit should succeed: %v", err)
	}
	if _, err := s.ValidateForSave("client concession"); err != nil {
		t.Errorf("save after restoring 16.67 should succeed: %v", err)
	}
}

// =============================================================================
// PROPERTY 7: AMOUNT ROUND-TRIP
// =============================================================================

func TestSetEntryPercentage_AmountAlwaysDerivesFromPercentage(t *testing.T) {
	// GIVEN: A session with target 60
	// WHEN: Setting an entry's percentage repeatedly
	// THEN: The amount equals (p/100) * target exactly each time, with no
	//       drift accumulated from prior states

	s := threeEntrySession()
	target := s.Target.WriteOffTarget

	for _, pct := range []string{"10", "33.33", "0", "100", "0.01", "66.6667"} {
		var err error
		s, err = s.SetEntryPercentage("e1", money(pct))
		if err != nil {
			t.Fatalf("edit to %s should succeed: %v", pct, err)
		}
		want := money(pct).Div(money("100")).Mul(target)
		if !s.Entries[0].WriteOffAmount.Equal(want) {
			t.Errorf("pct %s: amount %s, want %s", pct, s.Entries[0].WriteOffAmount, want)
		}
	}
}
