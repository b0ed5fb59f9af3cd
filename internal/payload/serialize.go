// Package payload flattens a preview into the per-level arrays the backend
// accepts and validates the result.
package payload

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Serialize builds the assignment payload for projectID. Each array is
// sorted by rank; equal ranks keep the order of items. Every record's parent
// reference must resolve inside the payload, otherwise the returned error
// matches domain.ErrStructuralIntegrity.
func Serialize(items []domain.PreviewItem, projectID string, suffixes contract.Suffixes) (contract.AssignmentPayload, error) {
	if len(items) == 0 {
		return contract.AssignmentPayload{}, domain.ErrNoSelection
	}

	var (
		categories = make(map[string]bool)
		groups     = make(map[string]bool)
		tasks      = make(map[string]bool) // template and subtask IDs
		subtaskIDs = make(map[string]bool)
	)
	for _, it := range items {
		switch it.Kind {
		case domain.KindCategory:
			categories[it.ID] = true
		case domain.KindGroup:
			groups[it.ID] = true
		case domain.KindTemplate:
			tasks[it.ID] = true
		case domain.KindSubtask:
			tasks[it.ID] = true
			subtaskIDs[it.ID] = true
		}
	}

	p := contract.AssignmentPayload{
		ProjectID:  projectID,
		Categories: []contract.CategoryRecord{},
		Groups:     []contract.GroupRecord{},
		Templates:  []contract.TemplateRecord{},
		Subtasks:   []contract.SubtaskRecord{},
		Suffixes:   suffixes,
	}
	var errs []error
	for _, it := range sortedByRank(items) {
		switch it.Kind {
		case domain.KindCategory:
			p.Categories = append(p.Categories, contract.CategoryRecord{
				ID: it.ID, Name: it.Name, Rank: it.Rank, Implicit: it.Implicit,
			})
		case domain.KindGroup:
			if !categories[it.ParentID] {
				errs = append(errs, danglingError(it, domain.KindCategory))
				continue
			}
			p.Groups = append(p.Groups, contract.GroupRecord{
				ID: it.ID, Name: it.Name, Rank: it.Rank, ParentID: it.ParentID, Implicit: it.Implicit,
			})
		case domain.KindTemplate:
			if subtaskIDs[it.ID] {
				continue
			}
			if !groups[it.ParentID] {
				errs = append(errs, danglingError(it, domain.KindGroup))
				continue
			}
			p.Templates = append(p.Templates, contract.TemplateRecord{
				ID: it.ID, Name: it.Name, Rank: it.Rank, BudgetedHours: it.BudgetedHours,
				GroupID: it.ParentID, Implicit: it.Implicit,
			})
		case domain.KindSubtask:
			// The parent must be a task. A group ID here is the classic
			// mixed-up reference and is refused rather than sent.
			if !tasks[it.ParentID] || it.ParentID == it.ID {
				errs = append(errs, danglingError(it, domain.KindTemplate))
				continue
			}
			p.Subtasks = append(p.Subtasks, contract.SubtaskRecord{
				ID: it.ID, Name: it.Name, Rank: it.Rank, BudgetedHours: it.BudgetedHours,
				TemplateID: it.ParentID, Implicit: it.Implicit,
			})
		default:
			errs = append(errs, fmt.Errorf("%w: item %s has unknown kind %q", domain.ErrStructuralIntegrity, it.ID, it.Kind))
		}
	}
	if len(errs) > 0 {
		return contract.AssignmentPayload{}, fmt.Errorf("serializing assignment: %w", errors.Join(errs...))
	}

	if err := Validate(p); err != nil {
		return contract.AssignmentPayload{}, err
	}
	return p, nil
}

func danglingError(it domain.PreviewItem, parent domain.Kind) error {
	return fmt.Errorf("%w: %s %s references %s %q outside the payload",
		domain.ErrStructuralIntegrity, it.Kind, it.ID, parent, it.ParentID)
}

func sortedByRank(items []domain.PreviewItem) []domain.PreviewItem {
	out := append([]domain.PreviewItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rank < out[j].Rank
	})
	return out
}

// ValidationError lists the fields of a payload that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid assignment payload: " + strings.Join(parts, ", ")
}

// Validate checks the struct rules of an assignment payload: required IDs
// and names and non-negative budgets on every record.
func Validate(p contract.AssignmentPayload) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating payload: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = describeTag(fe)
	}
	return &ValidationError{Fields: fields}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
