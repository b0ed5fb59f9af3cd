package preview

import (
	"bytes"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/alexanderramin/tasktree/internal/closure"
	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/selection"
	"github.com/alexanderramin/tasktree/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var q1 = contract.Suffixes{Category: "(2024)", Group: "- Team A", Template: "- Q1"}

func sampleClosure(t *testing.T) []domain.PreviewItem {
	t.Helper()
	tr := testutil.SampleTree()
	sel := selection.New(tr)
	sel.SelectGroup("g1", true)
	sel.SelectTemplate("g2", "t3", true)
	items := closure.Build(sel, tr)
	require.NotEmpty(t, items)
	return items
}

func names(items []domain.PreviewItem) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.Key().String()] = it.Name
	}
	return out
}

func TestDerivedName(t *testing.T) {
	assert.Equal(t, "Audit - Q1", DerivedName("Audit", "- Q1"))
	assert.Equal(t, "Audit", DerivedName("Audit", ""))
	assert.Equal(t, "Audit", DerivedName("  Audit ", "  "))
}

func TestApplySuffixes_UsesTierSuffix(t *testing.T) {
	got := names(ApplySuffixes(sampleClosure(t), q1))

	assert.Equal(t, "Operations (2024)", got["category:c1"])
	assert.Equal(t, "Finance - Team A", got["group:g1"])
	assert.Equal(t, "Audit - Q1", got["task:t1"])
	assert.Equal(t, "Collect ledgers - Q1", got["task:s1"], "subtasks reuse the template suffix")
}

func TestApplySuffixes_DoesNotModifyInput(t *testing.T) {
	in := sampleClosure(t)
	before := append([]domain.PreviewItem(nil), in...)

	ApplySuffixes(in, q1)

	assert.Equal(t, before, in)
}

func TestApplySuffixes_SortsByTierThenRank(t *testing.T) {
	got := ApplySuffixes(sampleClosure(t), q1)

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if prev.Kind.Level() == cur.Kind.Level() {
			assert.LessOrEqual(t, prev.Rank, cur.Rank, "rows %d and %d out of rank order", i-1, i)
		} else {
			assert.Less(t, prev.Kind.Level(), cur.Kind.Level())
		}
	}
}

func TestApplySuffixes_StableOnEqualRanks(t *testing.T) {
	in := []domain.PreviewItem{
		{ID: "a", Kind: domain.KindSubtask, OriginalName: "A", Rank: 1, ParentID: "t1"},
		{ID: "b", Kind: domain.KindSubtask, OriginalName: "B", Rank: 1, ParentID: "t2"},
		{ID: "c", Kind: domain.KindSubtask, OriginalName: "C", Rank: 0, ParentID: "t2"},
	}

	got := ApplySuffixes(in, contract.Suffixes{})

	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestSheet_EditIsStickyAcrossReapply(t *testing.T) {
	items := sampleClosure(t)
	s := NewSheet(nil)
	s.ApplySuffixes(items, contract.Suffixes{Template: "- Q1"})

	it, ok := s.Item(domain.KindTemplate, "t1")
	require.True(t, ok)
	assert.Equal(t, "Audit - Q1", it.Name)

	require.NoError(t, s.UpdateItem(domain.KindTemplate, "t1", FieldName, "Audit FY24"))
	s.ApplySuffixes(items, contract.Suffixes{Template: "- Q1"})

	it, _ = s.Item(domain.KindTemplate, "t1")
	assert.Equal(t, "Audit FY24", it.Name)

	s.ApplySuffixes(items, contract.Suffixes{Template: "- Q2"})
	it, _ = s.Item(domain.KindTemplate, "t1")
	assert.Equal(t, "Audit FY24", it.Name, "a different suffix does not overwrite an edit either")
	t2, _ := s.Item(domain.KindTemplate, "t2")
	assert.Equal(t, "Budget review - Q2", t2.Name)
}

func TestSheet_ReapplyIsIdempotent(t *testing.T) {
	items := sampleClosure(t)
	s := NewSheet(nil)

	first := s.ApplySuffixes(items, q1)
	second := s.ApplySuffixes(items, q1)

	assert.Equal(t, first, second)
}

func TestSheet_BudgetEdit(t *testing.T) {
	items := sampleClosure(t)
	s := NewSheet(nil)
	s.ApplySuffixes(items, q1)

	require.NoError(t, s.UpdateItem(domain.KindSubtask, "s1", FieldBudget, " 4.5 "))
	s.ApplySuffixes(items, q1)

	it, _ := s.Item(domain.KindSubtask, "s1")
	assert.Equal(t, 4.5, it.BudgetedHours)
	assert.Equal(t, "Collect ledgers - Q1", it.Name, "budget edit leaves the name derived")
	assert.True(t, s.Edited(domain.KindSubtask, "s1", FieldBudget))
	assert.False(t, s.Edited(domain.KindSubtask, "s1", FieldName))
}

func TestSheet_UpdateItemRejectsBadValues(t *testing.T) {
	s := NewSheet(nil)
	s.ApplySuffixes(sampleClosure(t), q1)

	tests := []struct {
		name  string
		kind  domain.Kind
		id    string
		field Field
		value string
		want  error
	}{
		{"blank name", domain.KindTemplate, "t1", FieldName, "   ", domain.ErrInvalidEdit},
		{"negative budget", domain.KindTemplate, "t1", FieldBudget, "-1", domain.ErrInvalidEdit},
		{"non numeric budget", domain.KindTemplate, "t1", FieldBudget, "lots", domain.ErrInvalidEdit},
		{"nan budget", domain.KindTemplate, "t1", FieldBudget, "NaN", domain.ErrInvalidEdit},
		{"unknown field", domain.KindTemplate, "t1", Field("rank"), "1", domain.ErrInvalidEdit},
		{"unknown item", domain.KindTemplate, "nope", FieldName, "x", domain.ErrUnknownItem},
		{"wrong tier", domain.KindGroup, "t1", FieldName, "x", domain.ErrUnknownItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Items()
			err := s.UpdateItem(tt.kind, tt.id, tt.field, tt.value)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, s.Items(), "a rejected edit changes nothing")
		})
	}
}

func TestSheet_TemplateAndSubtaskKindsShareTier(t *testing.T) {
	tr := testutil.SampleTree()
	sel := selection.New(tr)
	sel.SelectSubtask("g2", "t3", "x", true)
	s := NewSheet(nil)
	s.ApplySuffixes(closure.Build(sel, tr), contract.Suffixes{})

	require.NoError(t, s.UpdateItem(domain.KindTemplate, "x", FieldName, "Sign-off v2"))

	it, ok := s.Item(domain.KindSubtask, "x")
	require.True(t, ok)
	assert.Equal(t, domain.KindSubtask, it.Kind)
	assert.Equal(t, "Sign-off v2", it.Name)
}

func TestSheet_ResetName(t *testing.T) {
	s := NewSheet(nil)
	s.ApplySuffixes(sampleClosure(t), q1)
	require.NoError(t, s.UpdateItem(domain.KindTemplate, "t1", FieldName, "Audit FY24"))
	require.NoError(t, s.UpdateItem(domain.KindTemplate, "t1", FieldBudget, "9"))

	require.NoError(t, s.ResetName(domain.KindTemplate, "t1"))

	it, _ := s.Item(domain.KindTemplate, "t1")
	assert.Equal(t, "Audit - Q1", it.Name)
	assert.Equal(t, 9.0, it.BudgetedHours)
	assert.False(t, s.Edited(domain.KindTemplate, "t1", FieldName))
	assert.True(t, s.Edited(domain.KindTemplate, "t1", FieldBudget))
	assert.ErrorIs(t, s.ResetName(domain.KindTemplate, "zz"), domain.ErrUnknownItem)
}

func TestSheet_RebuildKeepsEditsOfSurvivorsAndForgetsTheRest(t *testing.T) {
	tr := testutil.SampleTree()
	sel := selection.New(tr)
	sel.SelectGroup("g1", true)
	s := NewSheet(nil)
	s.ApplySuffixes(closure.Build(sel, tr), q1)
	require.NoError(t, s.UpdateItem(domain.KindTemplate, "t1", FieldName, "Audit FY24"))
	require.NoError(t, s.UpdateItem(domain.KindTemplate, "t2", FieldName, "Budget FY24"))
	s.MarkDuplicates([]contract.Duplicate{{ID: "g1", Name: "Finance - Team A", Kind: "group"}})

	sel.SelectTemplate("g1", "t2", false)
	s.ApplySuffixes(closure.Build(sel, tr), q1)

	t1, ok := s.Item(domain.KindTemplate, "t1")
	require.True(t, ok)
	assert.Equal(t, "Audit FY24", t1.Name)
	g1, _ := s.Item(domain.KindGroup, "g1")
	assert.True(t, g1.Duplicate)
	_, ok = s.Item(domain.KindTemplate, "t2")
	assert.False(t, ok)

	sel.SelectTemplate("g1", "t2", true)
	s.ApplySuffixes(closure.Build(sel, tr), q1)
	t2, _ := s.Item(domain.KindTemplate, "t2")
	assert.Equal(t, "Budget review - Q1", t2.Name, "an item that left the closure comes back underived")
}

func TestSheet_DuplicateRoundTripPreservesEdits(t *testing.T) {
	tr := testutil.SampleTree()
	sel := selection.New(tr)
	sel.SelectTemplate("g1", "t1", true)
	sel.SelectTemplate("g1", "t2", true)
	sel.SelectTemplate("g2", "t3", true)
	s := NewSheet(nil)
	s.ApplySuffixes(closure.Build(sel, tr), contract.Suffixes{})
	require.NoError(t, s.UpdateItem(domain.KindTemplate, "t1", FieldName, "Audit FY23"))
	require.NoError(t, s.UpdateItem(domain.KindTemplate, "t2", FieldName, "Audit FY24"))
	require.NoError(t, s.UpdateItem(domain.KindTemplate, "t3", FieldName, "Audit FY25"))
	before := s.Items()

	unmatched := s.MarkDuplicates([]contract.Duplicate{{ID: "t2", Name: "Audit FY24", Kind: "template"}})

	assert.Empty(t, unmatched)
	after := s.Items()
	require.Len(t, after, len(before))
	for i := range after {
		want := before[i]
		want.Duplicate = after[i].Key() == domain.KeyOf(domain.KindTemplate, "t2")
		assert.Equal(t, want, after[i])
	}
}

func TestSheet_MarkDuplicates(t *testing.T) {
	var logs bytes.Buffer
	s := NewSheet(slog.New(slog.NewTextHandler(&logs, nil)))
	s.ApplySuffixes(sampleClosure(t), q1)

	unmatched := s.MarkDuplicates([]contract.Duplicate{
		{ID: "s1", Name: "Collect ledgers - Q1", Kind: "task"},
		{ID: "t9", Name: "Ghost", Kind: "template"},
		{ID: "c1", Name: "Operations (2024)", Kind: "bogus"},
	})

	assert.Len(t, unmatched, 2)
	require.Len(t, s.Duplicates(), 1)
	assert.Equal(t, "s1", s.Duplicates()[0].ID)
	assert.Contains(t, logs.String(), "duplicate_unmatched")

	// A later rejection replaces earlier flags.
	s.MarkDuplicates([]contract.Duplicate{{ID: "t2", Name: "Budget review - Q1", Kind: "story"}})
	require.Len(t, s.Duplicates(), 1)
	assert.Equal(t, "t2", s.Duplicates()[0].ID)

	// Editing the flagged name clears it; editing a budget does not.
	require.NoError(t, s.UpdateItem(domain.KindTemplate, "t2", FieldBudget, "1"))
	assert.Len(t, s.Duplicates(), 1)
	require.NoError(t, s.UpdateItem(domain.KindTemplate, "t2", FieldName, "Budget review v2"))
	assert.Empty(t, s.Duplicates())
}

func TestParseField(t *testing.T) {
	for in, want := range map[string]Field{"name": FieldName, "Budget": FieldBudget, "budgetedHours": FieldBudget, "hours": FieldBudget} {
		got, err := ParseField(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseField("rank")
	assert.ErrorIs(t, err, domain.ErrInvalidEdit)
}

// TestSheet_Properties_RandomEdits checks rename idempotence and edit
// stickiness over random edit sequences.
func TestSheet_NewSuffixClearsFlagOnRenamedRows(t *testing.T) {
	s := NewSheet(nil)
	s.ApplySuffixes(sampleClosure(t), q1)
	s.MarkDuplicates([]contract.Duplicate{
		{ID: "t1", Name: "Audit - Q1", Kind: "template"},
		{ID: "g1", Name: "Finance - Team A", Kind: "group"},
	})
	require.Len(t, s.Duplicates(), 2)

	q2 := q1
	q2.Template = "- Q2"
	s.ApplySuffixes(sampleClosure(t), q2)

	t1, ok := s.Item(domain.KindTemplate, "t1")
	require.True(t, ok)
	assert.Equal(t, "Audit - Q2", t1.Name)
	assert.False(t, t1.Duplicate, "the backend never saw the new name")
	g1, _ := s.Item(domain.KindGroup, "g1")
	assert.True(t, g1.Duplicate, "the group name did not change")
	require.Len(t, s.Duplicates(), 1)
	assert.Equal(t, "g1", s.Duplicates()[0].ID)
}

func TestSheet_Properties_RandomEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	items := sampleClosure(t)
	suffixes := []contract.Suffixes{{}, q1, {Template: "- Q2"}}

	for trial := 0; trial < 100; trial++ {
		s := NewSheet(nil)
		suf := suffixes[rng.Intn(len(suffixes))]
		s.ApplySuffixes(items, suf)

		want := make(map[domain.ItemKey]string)
		for n := rng.Intn(5); n > 0; n-- {
			target := items[rng.Intn(len(items))]
			name := "edited " + target.ID
			require.NoError(t, s.UpdateItem(target.Kind, target.ID, FieldName, name))
			want[target.Key()] = name
		}

		first := s.ApplySuffixes(items, suf)
		second := s.ApplySuffixes(items, suf)
		assert.Equal(t, first, second, "trial %d: reapply not idempotent", trial)

		for _, it := range second {
			if name, ok := want[it.Key()]; ok {
				assert.Equal(t, name, it.Name, "trial %d: edit on %s reverted", trial, it.ID)
			} else {
				assert.Equal(t, DerivedName(it.OriginalName, SuffixFor(it.Kind, suf)), it.Name)
			}
		}
	}
}
