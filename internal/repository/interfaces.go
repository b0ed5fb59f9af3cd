package repository

import (
	"context"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	// List returns every project when status is empty.
	List(ctx context.Context, status domain.ProjectStatus) ([]*domain.Project, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProjectStatus) error
}

type CatalogRepo interface {
	UpsertCategory(ctx context.Context, c domain.Category) error
	UpsertGroup(ctx context.Context, g domain.Group) error
	UpsertTemplate(ctx context.Context, t domain.Template) error
	UpsertSubtask(ctx context.Context, s domain.Subtask) error
	Tree(ctx context.Context) ([]contract.CategoryTree, error)
}

type AssignmentRepo interface {
	// Apply copies the payload's records into the destination project. It
	// writes several tables and is meant to run inside a UnitOfWork.
	Apply(ctx context.Context, p contract.AssignmentPayload) (*contract.AssignmentResult, error)
	ListAssigned(ctx context.Context, projectID string) ([]AssignedItem, error)
}

// AssignedItem is one row copied into a project. ParentID is the project
// row the item hangs under, empty for categories.
type AssignedItem struct {
	ID            string
	Kind          domain.Kind
	SourceID      string
	ParentID      string
	Name          string
	Rank          int
	BudgetedHours float64
	Implicit      bool
}
