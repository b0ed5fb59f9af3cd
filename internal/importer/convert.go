package importer

import (
	"time"

	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/google/uuid"
)

// Catalog is a seed flattened into rows ready for persistence. Parent IDs
// come from nesting.
type Catalog struct {
	Projects   []*domain.Project
	Categories []domain.Category
	Groups     []domain.Group
	Templates  []domain.Template
	Subtasks   []domain.Subtask
}

// Convert transforms a validated SeedSchema into domain rows. Call
// ValidateSeedSchema first; Convert assumes the schema is valid. Projects
// without an ID get a fresh UUID and default to active.
func Convert(schema *SeedSchema) *Catalog {
	now := time.Now().UTC()
	out := &Catalog{}

	for _, p := range schema.Projects {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		status := domain.ProjectStatus(p.Status)
		if status == "" {
			status = domain.ProjectActive
		}
		out.Projects = append(out.Projects, &domain.Project{
			ID:        id,
			Name:      p.Name,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	for _, c := range schema.Categories {
		out.Categories = append(out.Categories, domain.Category{ID: c.ID, Name: c.Name, Rank: c.Rank})
		for _, g := range c.Groups {
			out.Groups = append(out.Groups, domain.Group{ID: g.ID, CategoryID: c.ID, Name: g.Name, Rank: g.Rank})
			for _, t := range g.Templates {
				out.Templates = append(out.Templates, domain.Template{
					ID:            t.ID,
					GroupID:       g.ID,
					Name:          t.Name,
					Rank:          t.Rank,
					BudgetedHours: t.BudgetedHours,
				})
				for _, s := range t.Subtasks {
					out.Subtasks = append(out.Subtasks, domain.Subtask{
						ID:            s.ID,
						TemplateID:    t.ID,
						Name:          s.Name,
						Rank:          s.Rank,
						BudgetedHours: s.BudgetedHours,
					})
				}
			}
		}
	}
	return out
}
