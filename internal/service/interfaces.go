package service

import (
	"context"

	"github.com/alexanderramin/tasktree/internal/assign"
	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/importer"
	"github.com/alexanderramin/tasktree/internal/repository"
	"github.com/alexanderramin/tasktree/internal/selection"
	"github.com/alexanderramin/tasktree/internal/tree"
)

// CatalogService is the reference backend's side of the three endpoints.
type CatalogService interface {
	Tree(ctx context.Context) ([]contract.CategoryTree, error)
	Projects(ctx context.Context, status domain.ProjectStatus) ([]contract.ProjectRef, error)
	Assign(ctx context.Context, p contract.AssignmentPayload) (*contract.AssignmentResult, error)
	Assigned(ctx context.Context, projectID string) ([]repository.AssignedItem, error)
}

type SeedService interface {
	SeedFile(ctx context.Context, path string) (*SeedResult, error)
	Seed(ctx context.Context, schema *importer.SeedSchema) (*SeedResult, error)
}

// AssignmentService is the client side: it talks to a backend and hands
// out assignment sessions.
type AssignmentService interface {
	Projects(ctx context.Context, status string) ([]contract.ProjectRef, error)
	Catalog(ctx context.Context) (*tree.Repository, error)
	Open(ctx context.Context, projectID string, seed selection.Seed, opts ...assign.Option) (*assign.Session, error)
	Submit(ctx context.Context, s *assign.Session) (assign.Outcome, error)
}

type SeedResult struct {
	ProjectsCreated  int
	ProjectsExisting int
	Categories       int
	Groups           int
	Templates        int
	Subtasks         int
}
