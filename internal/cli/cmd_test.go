package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/tasktree/internal/backend"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/importer"
	"github.com/alexanderramin/tasktree/internal/server"
	"github.com/alexanderramin/tasktree/internal/service"
	"github.com/alexanderramin/tasktree/internal/testutil"
)

// newStore opens an empty in-memory catalog.
func newStore(t *testing.T) *Store {
	t.Helper()
	conn := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(conn)
	return &Store{
		Catalog: service.NewCatalogService(conn, uow),
		Seeder:  service.NewSeedService(uow),
		Close:   func() error { return nil },
	}
}

// testApp wires an App against a reference backend serving the sample
// catalog with project p1.
func testApp(t *testing.T) *App {
	t.Helper()
	store := newStore(t)
	schema, err := importer.ParseSeedSchema(bytes.NewReader(testutil.SampleSeedJSON()))
	require.NoError(t, err)
	_, err = store.Seeder.Seed(context.Background(), schema)
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(store.Catalog))
	t.Cleanup(ts.Close)

	cfg := backend.DefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.MaxRetries = 0
	return &App{
		Assignments: service.NewAssignmentService(backend.NewHTTPClient(cfg, nil), nil),
		OpenStore:   func(context.Context) (*Store, error) { return store, nil },
	}
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCmd_NoArgs_ShowsHelp(t *testing.T) {
	output, err := executeCmd(t, &App{})
	require.NoError(t, err)
	assert.Contains(t, output, "tasktree")
	assert.Contains(t, output, "assign")
}

func TestProjectsCmd(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme rollout")

	out, err = executeCmd(t, app, "projects", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p1","name":"Acme rollout","status":"active"}]`, out)

	out, err = executeCmd(t, app, "projects", "--status", "done")
	require.NoError(t, err)
	assert.Contains(t, out, "No projects.")

	_, err = executeCmd(t, app, "projects", "--status", "bogus")
	assert.ErrorContains(t, err, "unknown status")
}

func TestCatalogCmd(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "Finance")
	assert.Contains(t, out, "Provision laptop")

	out, err = executeCmd(t, app, "catalog", "--paths")
	require.NoError(t, err)
	assert.Contains(t, out, "g1\n")
	assert.Contains(t, out, "g1/t1\n")
	assert.Contains(t, out, "g1/t1/s1\n")
}

func TestSeedCmd(t *testing.T) {
	store := newStore(t)
	app := &App{OpenStore: func(context.Context) (*Store, error) { return store, nil }}

	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, testutil.SampleSeedJSON(), 0o644))

	out, err := executeCmd(t, app, "seed", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 new, 0 existing")
	assert.Contains(t, out, "2 categories, 3 groups")

	out, err = executeCmd(t, app, "seed", path)
	require.NoError(t, err)
	assert.Contains(t, out, "0 new, 1 existing")

	tree, err := store.Catalog.Tree(context.Background())
	require.NoError(t, err)
	assert.Len(t, tree, 2)
}

func TestSeedCmd_InvalidFile(t *testing.T) {
	app := &App{OpenStore: func(context.Context) (*Store, error) { return newStore(t), nil }}
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"categories":[{"id":"c1"}]}`), 0o644))

	_, err := executeCmd(t, app, "seed", path)
	assert.Error(t, err)

	_, err = executeCmd(t, app, "seed")
	assert.Error(t, err, "file argument is required")
}

func TestAssignCmd_SubmitsSelection(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "assign", "p1", "--group", "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "Assigned to p1: 6 created")
}

func TestAssignCmd_DuplicatesThenRename(t *testing.T) {
	app := testApp(t)

	_, err := executeCmd(t, app, "assign", "p1", "--template", "g1/t1")
	require.NoError(t, err)

	out, err := executeCmd(t, app, "assign", "p1", "--template", "g1/t1")
	require.ErrorIs(t, err, domain.ErrDuplicateNames)
	assert.Contains(t, out, "name taken")
	assert.Contains(t, out, "3 name(s) already exist")

	out, err = executeCmd(t, app, "assign", "p1", "--template", "g1/t1",
		"--template-suffix", "v2")
	require.NoError(t, err)
	assert.Contains(t, out, "3 created, 2 reused")
}

func TestAssignCmd_RenameAndBudgetFlags(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "assign", "p1", "--subtask", "g1/t1/s1",
		"--rename", "subtask:s1=Gather ledgers", "--budget", "subtask:s1=4.5", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Gather ledgers")
	assert.Contains(t, out, "4.5h")
	assert.Contains(t, out, "Dry run")

	_, err = executeCmd(t, app, "assign", "p1", "--subtask", "g1/t1/s1", "--rename", "subtask:s9=Nope")
	assert.ErrorIs(t, err, domain.ErrUnknownItem)
}

func TestAssignCmd_InputErrors(t *testing.T) {
	app := testApp(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no selection", []string{"assign", "p1"}, "nothing selected"},
		{"template path too short", []string{"assign", "p1", "--template", "g1"}, "expected a template path"},
		{"subtask path empty segment", []string{"assign", "p1", "--subtask", "g1//s1"}, "empty segment"},
		{"bad budget", []string{"assign", "p1", "--group", "g1", "--budget", "subtask:s1=-2"}, "non-negative"},
		{"bad rename", []string{"assign", "p1", "--group", "g1", "--rename", "s1=Nope"}, "expected kind:id=value"},
		{"unknown project", []string{"assign", "p404", "--group", "g1"}, "not found"},
		{"missing project arg", []string{"assign"}, "accepts 1 arg"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := executeCmd(t, app, tc.args...)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}
