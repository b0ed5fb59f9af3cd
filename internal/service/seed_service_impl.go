package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/tasktree/internal/db"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/importer"
	"github.com/alexanderramin/tasktree/internal/repository"
)

type seedService struct {
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewSeedService(uow db.UnitOfWork, observers ...UseCaseObserver) SeedService {
	return &seedService{uow: uow, observer: useCaseObserverOrNoop(observers)}
}

func (s *seedService) SeedFile(ctx context.Context, path string) (*SeedResult, error) {
	schema, err := importer.LoadSeedSchema(path)
	if err != nil {
		return nil, fmt.Errorf("loading seed file: %w", err)
	}
	return s.Seed(ctx, schema)
}

// Seed writes the catalog and projects in one transaction. Catalog rows are
// upserted; a project whose ID already exists is left as it is.
func (s *seedService) Seed(ctx context.Context, schema *importer.SeedSchema) (*SeedResult, error) {
	if errs := importer.ValidateSeedSchema(schema); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}
	cat := importer.Convert(schema)

	result := &SeedResult{
		Categories: len(cat.Categories),
		Groups:     len(cat.Groups),
		Templates:  len(cat.Templates),
		Subtasks:   len(cat.Subtasks),
	}
	fields := map[string]any{"categories": result.Categories, "templates": result.Templates}
	err := observe(ctx, s.observer, "seed", fields, func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			projects := repository.NewSQLiteProjectRepo(tx)
			for _, p := range cat.Projects {
				_, err := projects.GetByID(ctx, p.ID)
				if err == nil {
					result.ProjectsExisting++
					continue
				}
				if !errors.Is(err, domain.ErrNotFound) {
					return err
				}
				if err := projects.Create(ctx, p); err != nil {
					return fmt.Errorf("creating project %q: %w", p.Name, err)
				}
				result.ProjectsCreated++
			}

			catalog := repository.NewSQLiteCatalogRepo(tx)
			for _, c := range cat.Categories {
				if err := catalog.UpsertCategory(ctx, c); err != nil {
					return err
				}
			}
			for _, g := range cat.Groups {
				if err := catalog.UpsertGroup(ctx, g); err != nil {
					return err
				}
			}
			for _, t := range cat.Templates {
				if err := catalog.UpsertTemplate(ctx, t); err != nil {
					return err
				}
			}
			for _, st := range cat.Subtasks {
				if err := catalog.UpsertSubtask(ctx, st); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("seed validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
