// Package assign ties selection, closure, preview and submission together
// into one assignment session.
package assign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/alexanderramin/tasktree/internal/backend"
	"github.com/alexanderramin/tasktree/internal/closure"
	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/payload"
	"github.com/alexanderramin/tasktree/internal/preview"
	"github.com/alexanderramin/tasktree/internal/selection"
)

var (
	// ErrSubmitInFlight indicates an operation raced a pending submit.
	ErrSubmitInFlight = errors.New("a submit is already in flight")

	// ErrNotPreviewing indicates a preview edit before the preview was built.
	ErrNotPreviewing = errors.New("preview has not been built; advance to preview first")
)

// Stage is the position of a session in its lifecycle.
type Stage string

const (
	StageSelecting  Stage = "selecting"
	StagePreviewing Stage = "previewing"
	StageSubmitting Stage = "submitting"
	StageSubmitted  Stage = "submitted"
	StageCancelled  Stage = "cancelled"
)

// Terminal reports whether no further operation is accepted.
func (s Stage) Terminal() bool {
	return s == StageSubmitted || s == StageCancelled
}

// Tree is what a session needs from the catalog.
type Tree interface {
	selection.Tree
	closure.Tree
}

// Submitter sends a finished payload to the backend.
type Submitter interface {
	SubmitAssignment(ctx context.Context, payload contract.AssignmentPayload) (*contract.AssignmentResult, error)
}

// Outcome describes the result of a submit attempt.
type Outcome struct {
	Stage      Stage
	Result     *contract.AssignmentResult
	Duplicates []domain.PreviewItem
	Unmatched  []contract.Duplicate
}

type Option func(*Session)

// WithLogger routes session and closure diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithID fixes the session ID instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// Session is one assignment dialog. It owns its selection and preview and
// shares nothing with other sessions. All methods are safe for concurrent
// use; a submit releases the lock while the request is in flight.
type Session struct {
	mu        sync.Mutex
	id        string
	projectID string
	tree      Tree
	submitter Submitter
	logger    *slog.Logger

	stage       Stage
	sel         *selection.State
	sheet       *preview.Sheet
	suffixes    contract.Suffixes
	diagnostics []closure.Diagnostic
	built       bool
}

// Open starts a session against tree for the destination project, applying
// seed as if the user had selected each entry.
func Open(tree Tree, projectID string, seed selection.Seed, submitter Submitter, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New().String(),
		projectID: projectID,
		tree:      tree,
		submitter: submitter,
		logger:    slog.New(slog.DiscardHandler),
		stage:     StageSelecting,
		sel:       selection.New(tree),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("session_id", s.id), slog.String("project_id", projectID))
	s.sheet = preview.NewSheet(s.logger)

	for _, op := range seed.Ops() {
		s.sel.Apply(op)
	}
	s.logger.Info("session_opened", slog.Int("seed_ops", len(seed.Ops())))
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) ProjectID() string { return s.projectID }

func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Selection returns a snapshot of the current selection.
func (s *Session) Selection() *selection.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Clone()
}

// Preview returns a copy of the preview rows in display order.
func (s *Session) Preview() []domain.PreviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheet.Items()
}

// Suffixes returns the suffixes of the last preview build.
func (s *Session) Suffixes() contract.Suffixes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suffixes
}

// Diagnostics lists the items the last preview build had to drop.
func (s *Session) Diagnostics() []closure.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]closure.Diagnostic(nil), s.diagnostics...)
}

// checkOpen reports why the session cannot accept an operation. Callers
// hold s.mu.
func (s *Session) checkOpen() error {
	switch {
	case s.stage.Terminal():
		return fmt.Errorf("session %s is %s: %w", s.id, s.stage, domain.ErrSessionClosed)
	case s.stage == StageSubmitting:
		return ErrSubmitInFlight
	}
	return nil
}

// MutateSelection applies one selection change. A session that was
// previewing goes back to selecting; preview edits are kept for the next
// AdvanceToPreview.
func (s *Session) MutateSelection(op selection.Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.sel.Apply(op)
	s.stage = StageSelecting
	return nil
}

// AdvanceToPreview builds the closure of the current selection and derives
// preview names from suffixes.
func (s *Session) AdvanceToPreview(suffixes contract.Suffixes) ([]domain.PreviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.advance(suffixes), nil
}

func (s *Session) advance(suffixes contract.Suffixes) []domain.PreviewItem {
	items, diags := closure.NewBuilder(s.logger).BuildWithReport(s.sel, s.tree)
	s.diagnostics = diags
	s.suffixes = suffixes
	s.built = true
	s.stage = StagePreviewing
	rows := s.sheet.ApplySuffixes(items, suffixes)
	s.logger.Info("preview_built", slog.Int("items", len(rows)), slog.Int("dropped", len(diags)))
	return rows
}

// EditPreviewItem changes the name or budget of one preview row.
func (s *Session) EditPreviewItem(kind domain.Kind, id string, field preview.Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.built {
		return ErrNotPreviewing
	}
	return s.sheet.UpdateItem(kind, id, field, value)
}

// ResetPreviewName reverts a name edit to the suffix-derived name.
func (s *Session) ResetPreviewName(kind domain.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.built {
		return ErrNotPreviewing
	}
	return s.sheet.ResetName(kind, id)
}

// Submit serializes the preview and sends it once. A session still in the
// selecting stage is previewed first with the last suffixes. An empty
// closure fails with domain.ErrNoSelection before any network call.
//
// On a duplicate-name rejection the offending rows are flagged, the session
// returns to previewing and the error matches domain.ErrDuplicateNames. Any
// other failure leaves selection and preview untouched.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	if s.stage == StageSelecting {
		s.advance(s.suffixes)
	}
	if s.sheet.Len() == 0 {
		s.mu.Unlock()
		return Outcome{Stage: StagePreviewing}, domain.ErrNoSelection
	}
	p, err := payload.Serialize(s.sheet.Items(), s.projectID, s.suffixes)
	if err != nil {
		s.mu.Unlock()
		return Outcome{Stage: StagePreviewing}, fmt.Errorf("preparing assignment: %w", err)
	}
	s.stage = StageSubmitting
	s.mu.Unlock()

	s.logger.Info("submit_started", slog.Int("records", p.Count()))
	result, err := s.submitter.SubmitAssignment(ctx, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage == StageCancelled {
		s.logger.Warn("submit_finished_after_cancel", slog.Bool("succeeded", err == nil))
		if err != nil {
			return Outcome{Stage: s.stage}, err
		}
		return Outcome{Stage: s.stage, Result: result}, nil
	}

	if err == nil {
		s.stage = StageSubmitted
		s.logger.Info("submit_succeeded")
		return Outcome{Stage: s.stage, Result: result}, nil
	}

	s.stage = StagePreviewing
	var dup *backend.DuplicateNamesError
	if errors.As(err, &dup) {
		unmatched := s.sheet.MarkDuplicates(dup.Duplicates)
		flagged := s.sheet.Duplicates()
		s.logger.Info("submit_duplicates", slog.Int("flagged", len(flagged)), slog.Int("unmatched", len(unmatched)))
		return Outcome{Stage: s.stage, Duplicates: flagged, Unmatched: unmatched}, err
	}
	s.logger.Warn("submit_failed", slog.String("error", err.Error()))
	return Outcome{Stage: s.stage}, fmt.Errorf("submitting assignment: %w", err)
}

// Cancel discards the session. No network call is made.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage.Terminal() {
		return fmt.Errorf("session %s is %s: %w", s.id, s.stage, domain.ErrSessionClosed)
	}
	s.stage = StageCancelled
	s.logger.Info("session_cancelled")
	return nil
}
