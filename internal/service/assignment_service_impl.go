package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexanderramin/tasktree/internal/assign"
	"github.com/alexanderramin/tasktree/internal/backend"
	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/selection"
	"github.com/alexanderramin/tasktree/internal/tree"
)

type assignmentService struct {
	client   backend.Client
	logger   *slog.Logger
	observer UseCaseObserver
}

// NewAssignmentService builds the client-side use cases over client.
// Sessions it opens log through logger.
func NewAssignmentService(client backend.Client, logger *slog.Logger, observers ...UseCaseObserver) AssignmentService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &assignmentService{client: client, logger: logger, observer: useCaseObserverOrNoop(observers)}
}

func (s *assignmentService) Projects(ctx context.Context, status string) ([]contract.ProjectRef, error) {
	return s.client.ListProjects(ctx, status)
}

func (s *assignmentService) Catalog(ctx context.Context) (*tree.Repository, error) {
	nested, err := s.client.FetchTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return tree.FromNested(nested), nil
}

// Open loads a fresh copy of the catalog and starts a session for
// projectID, which must be listed by the backend.
func (s *assignmentService) Open(ctx context.Context, projectID string, seed selection.Seed, opts ...assign.Option) (*assign.Session, error) {
	fields := map[string]any{"project_id": projectID}
	var session *assign.Session
	err := observe(ctx, s.observer, "open_session", fields, func() error {
		projects, err := s.client.ListProjects(ctx, "")
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		if !containsProject(projects, projectID) {
			return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}

		catalog, err := s.Catalog(ctx)
		if err != nil {
			return err
		}
		opts = append([]assign.Option{assign.WithLogger(s.logger)}, opts...)
		session = assign.Open(catalog, projectID, seed, s.client, opts...)
		fields["session_id"] = session.ID()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *assignmentService) Submit(ctx context.Context, session *assign.Session) (assign.Outcome, error) {
	fields := map[string]any{"session_id": session.ID(), "project_id": session.ProjectID()}
	var out assign.Outcome
	err := observe(ctx, s.observer, "submit_assignment", fields, func() error {
		var err error
		out, err = session.Submit(ctx)
		fields["stage"] = string(out.Stage)
		if out.Result != nil {
			fields["created"] = out.Result.Created
		}
		if len(out.Duplicates) > 0 {
			fields["duplicates"] = len(out.Duplicates)
		}
		return err
	})
	return out, err
}

func containsProject(projects []contract.ProjectRef, id string) bool {
	for _, p := range projects {
		if p.ID.String() == id {
			return true
		}
	}
	return false
}
