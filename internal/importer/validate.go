package importer

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSeedSchema checks the seed for errors before conversion and
// returns all of them. Struct rules come from the validate tags; the
// cross-record rules (unique IDs per table, no self-parented subtask) are
// checked here.
func ValidateSeedSchema(schema *SeedSchema) []error {
	var errs []error

	if err := validate.Struct(schema); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []error{fmt.Errorf("validating seed: %w", err)}
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s %s", fe.Namespace(), describeTag(fe)))
		}
	}

	projectIDs := make(map[string]bool)
	for i, p := range schema.Projects {
		if p.ID == "" {
			continue
		}
		if projectIDs[p.ID] {
			errs = append(errs, fmt.Errorf("projects[%d].id: duplicate id %q", i, p.ID))
		}
		projectIDs[p.ID] = true
	}

	var (
		categoryIDs = make(map[string]bool)
		groupIDs    = make(map[string]bool)
		templateIDs = make(map[string]bool)
		subtaskIDs  = make(map[string]bool)
	)
	for ci, c := range schema.Categories {
		prefix := fmt.Sprintf("categories[%d]", ci)
		errs = appendDuplicate(errs, categoryIDs, prefix, c.ID)
		for gi, g := range c.Groups {
			prefix := fmt.Sprintf("%s.groups[%d]", prefix, gi)
			errs = appendDuplicate(errs, groupIDs, prefix, g.ID)
			for ti, t := range g.Templates {
				prefix := fmt.Sprintf("%s.templates[%d]", prefix, ti)
				errs = appendDuplicate(errs, templateIDs, prefix, t.ID)
				for si, s := range t.Subtasks {
					prefix := fmt.Sprintf("%s.subtasks[%d]", prefix, si)
					errs = appendDuplicate(errs, subtaskIDs, prefix, s.ID)
					if s.ID != "" && s.ID == t.ID {
						errs = append(errs, fmt.Errorf("%s.id: subtask %q cannot be its own template", prefix, s.ID))
					}
				}
			}
		}
	}

	return errs
}

func appendDuplicate(errs []error, seen map[string]bool, prefix, id string) []error {
	if id == "" {
		return errs
	}
	if seen[id] {
		errs = append(errs, fmt.Errorf("%s.id: duplicate id %q", prefix, id))
	}
	seen[id] = true
	return errs
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
