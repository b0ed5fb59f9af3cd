package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/alexanderramin/tasktree/internal/assign"
	"github.com/alexanderramin/tasktree/internal/backend"
	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/preview"
	"github.com/alexanderramin/tasktree/internal/selection"
	"github.com/alexanderramin/tasktree/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClientService(t *testing.T) service.AssignmentService {
	t.Helper()
	ts := httptest.NewServer(newSeededServer(t, WithToken("tok")))
	t.Cleanup(ts.Close)

	cfg := backend.DefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.Token = "tok"
	cfg.MaxRetries = 0
	return service.NewAssignmentService(backend.NewHTTPClient(cfg, nil), nil)
}

func TestEndToEnd_AssignRenameAndResubmit(t *testing.T) {
	svc := newClientService(t)
	ctx := context.Background()
	seed := selection.Seed{Groups: []string{"g1"}}

	first, err := svc.Open(ctx, "p1", seed)
	require.NoError(t, err)
	out, err := svc.Submit(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, assign.StageSubmitted, out.Stage)
	assert.Equal(t, 6, out.Result.Created)

	// The same selection again collides on every explicit name; the
	// implicit category is reused by the backend and never flagged.
	second, err := svc.Open(ctx, "p1", seed)
	require.NoError(t, err)
	out, err = svc.Submit(ctx, second)
	require.ErrorIs(t, err, domain.ErrDuplicateNames)
	assert.Equal(t, assign.StagePreviewing, out.Stage)
	assert.Empty(t, out.Unmatched)

	flagged := make([]string, 0, len(out.Duplicates))
	for _, d := range out.Duplicates {
		flagged = append(flagged, d.Key().String())
	}
	assert.ElementsMatch(t, []string{"group:g1", "task:t1", "task:t2", "task:s1", "task:s2"}, flagged)

	for _, d := range out.Duplicates {
		require.NoError(t, second.EditPreviewItem(d.Kind, d.ID, preview.FieldName, d.Name+" (2)"))
	}
	out, err = svc.Submit(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, assign.StageSubmitted, out.Stage)
	assert.Equal(t, 5, out.Result.Created)
	assert.Equal(t, 1, out.Result.Reused)
}

func TestEndToEnd_SuffixesAvoidConflicts(t *testing.T) {
	svc := newClientService(t)
	ctx := context.Background()

	first, err := svc.Open(ctx, "p1", selection.Seed{Subtasks: []selection.SubtaskKey{{GroupID: "g1", TemplateID: "t1", SubtaskID: "s1"}}})
	require.NoError(t, err)
	_, err = first.AdvanceToPreview(contract.Suffixes{})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, first)
	require.NoError(t, err)

	second, err := svc.Open(ctx, "p1", selection.Seed{Subtasks: []selection.SubtaskKey{{GroupID: "g1", TemplateID: "t1", SubtaskID: "s1"}}})
	require.NoError(t, err)
	rows, err := second.AdvanceToPreview(contract.Suffixes{Template: "Q2"})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Audit Q2", rows[2].Name)
	assert.True(t, rows[2].Implicit)
	assert.Equal(t, "Collect ledgers Q2", rows[3].Name)

	out, err := svc.Submit(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Result.Created)
	assert.Equal(t, 3, out.Result.Reused)
}

func TestEndToEnd_UnknownProject(t *testing.T) {
	svc := newClientService(t)
	_, err := svc.Open(context.Background(), "p404", selection.Seed{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
