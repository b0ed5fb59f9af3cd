package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/db"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/testutil"
	"github.com/alexanderramin/tasktree/internal/tree"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSampleCatalog writes testutil.SampleTree into the catalog tables.
func seedSampleCatalog(t *testing.T, conn db.DBTX) {
	t.Helper()
	repo := NewSQLiteCatalogRepo(conn)
	ctx := context.Background()
	sample := testutil.SampleTree()
	for _, c := range sample.Categories() {
		require.NoError(t, repo.UpsertCategory(ctx, c))
	}
	for _, g := range sample.Groups() {
		require.NoError(t, repo.UpsertGroup(ctx, g))
	}
	for _, tp := range sample.Templates() {
		require.NoError(t, repo.UpsertTemplate(ctx, tp))
	}
	for _, s := range sample.Subtasks() {
		require.NoError(t, repo.UpsertSubtask(ctx, s))
	}
}

func TestCatalogRepo_Tree_Empty(t *testing.T) {
	conn := testutil.NewTestDB(t)
	got, err := NewSQLiteCatalogRepo(conn).Tree(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCatalogRepo_Tree_MatchesSeededCatalog(t *testing.T) {
	conn := testutil.NewTestDB(t)
	seedSampleCatalog(t, conn)

	got, err := NewSQLiteCatalogRepo(conn).Tree(context.Background())
	require.NoError(t, err)

	// "x" is stored once; its listing under t3 carries the template's rank.
	want := testutil.SampleCatalog()
	want[0].Groups[1].Templates[0].Subtasks[1].Rank = 3
	want[0].Groups[0].Templates[1].Subtasks = []contract.SubtaskTree{}
	want[0].Groups[1].Templates[1].Subtasks = []contract.SubtaskTree{}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogRepo_Tree_FeedsTreeRepository(t *testing.T) {
	conn := testutil.NewTestDB(t)
	seedSampleCatalog(t, conn)

	nested, err := NewSQLiteCatalogRepo(conn).Tree(context.Background())
	require.NoError(t, err)

	repo := tree.FromNested(nested)
	assert.True(t, repo.HasTemplate("g2", "x"))
	assert.True(t, repo.HasSubtask("t3", "x"))
	cats, groups, templates, subtasks := repo.Counts()
	assert.Equal(t, []int{2, 3, 5, 5}, []int{cats, groups, templates, subtasks})
}

func TestCatalogRepo_UpsertUpdatesInPlace(t *testing.T) {
	conn := testutil.NewTestDB(t)
	seedSampleCatalog(t, conn)
	repo := NewSQLiteCatalogRepo(conn)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCategory(ctx, domain.Category{ID: "c1", Name: "Ops", Rank: 5}))
	require.NoError(t, repo.UpsertSubtask(ctx, testutil.NewTestSubtask("s1", "t1", "Gather ledgers", testutil.WithRank(4))))
	// Re-listing x as a subtask keeps the template's name.
	require.NoError(t, repo.UpsertSubtask(ctx, testutil.NewTestSubtask("x", "t3", "Renamed")))

	got, err := repo.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "People", got[0].Name, "c1 moved behind c2 after its rank changed")
	assert.Equal(t, "Ops", got[1].Name)

	audit := got[1].Groups[0].Templates[0]
	require.Len(t, audit.Subtasks, 2)
	assert.Equal(t, "s2", audit.Subtasks[0].ID.String())
	assert.Equal(t, "Gather ledgers", audit.Subtasks[1].Name)

	policy := got[1].Groups[1].Templates[0]
	assert.Equal(t, "Sign-off", policy.Subtasks[1].Name)
}

func TestCatalogRepo_GroupRequiresCategory(t *testing.T) {
	conn := testutil.NewTestDB(t)
	err := NewSQLiteCatalogRepo(conn).UpsertGroup(context.Background(), domain.Group{ID: "g1", CategoryID: "missing", Name: "Finance"})
	assert.Error(t, err, "foreign key should reject a group without its category")
}
