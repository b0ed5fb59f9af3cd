package tree

import (
	"encoding/json"
	"testing"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedFixture = `[
  {"id": "c1", "name": "Operations", "rank": 1, "groups": [
    {"id": "g1", "name": "Finance", "rank": 1, "templates": [
      {"id": "t1", "name": "Audit", "rank": 2, "budgetedHours": 8, "subtasks": [
        {"id": "s2", "name": "Review", "rank": 2, "budgetedHours": 3},
        {"id": "s1", "name": "Collect ledgers", "rank": 1, "budgetedHours": 2}
      ]},
      {"id": "t2", "name": "Budget review", "rank": 1, "budgetedHours": 5}
    ]},
    {"id": 7, "name": "Compliance", "rank": 0, "templates": [
      {"id": "t3", "name": "Policy update", "rank": 1, "subtasks": [
        {"id": "x", "name": "Sign-off", "rank": 2}
      ]},
      {"id": "x", "name": "Sign-off", "rank": 3}
    ]}
  ]}
]`

func loadFixture(t *testing.T) *Repository {
	t.Helper()
	var cats []contract.CategoryTree
	require.NoError(t, json.Unmarshal([]byte(nestedFixture), &cats))
	return FromNested(cats)
}

func TestFromNested_IndexesParents(t *testing.T) {
	r := loadFixture(t)

	g, ok := r.Group("7")
	require.True(t, ok)
	assert.Equal(t, "c1", g.CategoryID)

	tpl, ok := r.Template("t1")
	require.True(t, ok)
	assert.Equal(t, "g1", tpl.GroupID)
	assert.Equal(t, 8.0, tpl.BudgetedHours)

	s, ok := r.Subtask("s1")
	require.True(t, ok)
	assert.Equal(t, "t1", s.TemplateID)

	nc, ng, nt, ns := r.Counts()
	assert.Equal(t, []int{1, 2, 4, 3}, []int{nc, ng, nt, ns})
}

func TestFromNested_ChildrenInRankOrder(t *testing.T) {
	r := loadFixture(t)

	var groupIDs []string
	for _, g := range r.GroupsOf("c1") {
		groupIDs = append(groupIDs, g.ID)
	}
	assert.Equal(t, []string{"7", "g1"}, groupIDs)

	var templateIDs []string
	for _, tpl := range r.TemplatesOf("g1") {
		templateIDs = append(templateIDs, tpl.ID)
	}
	assert.Equal(t, []string{"t2", "t1"}, templateIDs)

	var subtaskIDs []string
	for _, s := range r.SubtasksOf("t1") {
		subtaskIDs = append(subtaskIDs, s.ID)
	}
	assert.Equal(t, []string{"s1", "s2"}, subtaskIDs)
}

func TestFromNested_AmbiguousIDKeptInBothRoles(t *testing.T) {
	r := loadFixture(t)

	assert.True(t, r.HasTemplate("7", "x"))
	assert.True(t, r.HasSubtask("t3", "x"))
	assert.False(t, r.HasTemplate("g1", "x"))
	assert.False(t, r.HasSubtask("t1", "x"))
}

func TestNew_KeepsOrphansAndFirstDuplicate(t *testing.T) {
	r := New(
		[]domain.Category{{ID: "c1", Name: "Ops"}},
		[]domain.Group{
			{ID: "g1", CategoryID: "c1", Name: "first"},
			{ID: "g1", CategoryID: "c1", Name: "second"},
			{ID: "g9", CategoryID: "missing", Name: "orphan"},
		},
		nil,
		[]domain.Subtask{{ID: "s1", TemplateID: "nope"}},
	)

	g, ok := r.Group("g1")
	require.True(t, ok)
	assert.Equal(t, "first", g.Name)

	_, ok = r.Group("g9")
	assert.True(t, ok)
	assert.Len(t, r.Groups(), 2)

	assert.True(t, r.HasSubtask("nope", "s1"))
	_, ok = r.Template("nope")
	assert.False(t, ok)
}

func TestRepository_UnknownLookups(t *testing.T) {
	r := New(nil, nil, nil, nil)

	_, ok := r.Category("c1")
	assert.False(t, ok)
	assert.Empty(t, r.GroupsOf("c1"))
	assert.Empty(t, r.TemplatesOf("g1"))
	assert.Empty(t, r.SubtasksOf("t1"))
}

func TestRepository_Position(t *testing.T) {
	r := loadFixture(t)

	pos, ok := r.Position(domain.KindTemplate, "t2")
	require.True(t, ok)
	t1pos, _ := r.Position(domain.KindTemplate, "t1")
	assert.Less(t, pos, t1pos)

	_, ok = r.Position(domain.KindSubtask, "t2")
	assert.False(t, ok)
	_, ok = r.Position(domain.Kind("epic"), "t2")
	assert.False(t, ok)
}
