package service

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/importer"
	"github.com/alexanderramin/tasktree/internal/testutil"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) last(t *testing.T) UseCaseEvent {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.events)
	return o.events[len(o.events)-1]
}

// sampleSeed is testutil.SampleCatalog plus project p1.
func sampleSeed() *importer.SeedSchema {
	schema, err := importer.ParseSeedSchema(bytes.NewReader(testutil.SampleSeedJSON()))
	if err != nil {
		panic(err)
	}
	return schema
}

// fakeClient is an in-process backend.Client.
type fakeClient struct {
	mu        sync.Mutex
	projects  []contract.ProjectRef
	tree      []contract.CategoryTree
	treeErr   error
	submitErr error
	submitted []contract.AssignmentPayload
}

func (c *fakeClient) ListProjects(_ context.Context, _ string) ([]contract.ProjectRef, error) {
	return c.projects, nil
}

func (c *fakeClient) FetchTree(context.Context) ([]contract.CategoryTree, error) {
	return c.tree, c.treeErr
}

func (c *fakeClient) SubmitAssignment(_ context.Context, p contract.AssignmentPayload) (*contract.AssignmentResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = append(c.submitted, p)
	if c.submitErr != nil {
		return nil, c.submitErr
	}
	return &contract.AssignmentResult{AssignmentID: "a1", Created: p.Count()}, nil
}
