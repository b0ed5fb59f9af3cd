package service

import (
	"context"
	"fmt"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/db"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/payload"
	"github.com/alexanderramin/tasktree/internal/repository"
)

type catalogService struct {
	projects    repository.ProjectRepo
	catalog     repository.CatalogRepo
	assignments repository.AssignmentRepo
	uow         db.UnitOfWork
	observer    UseCaseObserver
}

func NewCatalogService(conn db.DBTX, uow db.UnitOfWork, observers ...UseCaseObserver) CatalogService {
	return &catalogService{
		projects:    repository.NewSQLiteProjectRepo(conn),
		catalog:     repository.NewSQLiteCatalogRepo(conn),
		assignments: repository.NewSQLiteAssignmentRepo(conn),
		uow:         uow,
		observer:    useCaseObserverOrNoop(observers),
	}
}

func (s *catalogService) Tree(ctx context.Context) ([]contract.CategoryTree, error) {
	return s.catalog.Tree(ctx)
}

func (s *catalogService) Projects(ctx context.Context, status domain.ProjectStatus) ([]contract.ProjectRef, error) {
	projects, err := s.projects.List(ctx, status)
	if err != nil {
		return nil, err
	}
	refs := make([]contract.ProjectRef, 0, len(projects))
	for _, p := range projects {
		refs = append(refs, contract.ProjectRef{ID: contract.ID(p.ID), Name: p.Name, Status: string(p.Status)})
	}
	return refs, nil
}

// Assign validates the payload and applies it in one transaction.
func (s *catalogService) Assign(ctx context.Context, p contract.AssignmentPayload) (*contract.AssignmentResult, error) {
	fields := map[string]any{"project_id": p.ProjectID, "records": p.Count()}
	var result *contract.AssignmentResult
	err := observe(ctx, s.observer, "assign", fields, func() error {
		if err := payload.Validate(p); err != nil {
			return err
		}
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			res, err := repository.NewSQLiteAssignmentRepo(tx).Apply(ctx, p)
			if err != nil {
				return err
			}
			result = res
			fields["created"] = res.Created
			fields["reused"] = res.Reused
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *catalogService) Assigned(ctx context.Context, projectID string) ([]repository.AssignedItem, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	items, err := s.assignments.ListAssigned(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing assigned items: %w", err)
	}
	return items, nil
}
