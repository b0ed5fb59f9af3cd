// Package tree holds a read-only, in-memory view of the category tree as
// fetched from the backend, indexed for parent/child lookup by ID.
package tree

import (
	"sort"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
)

// Repository indexes categories, groups, templates and subtasks. Child lists
// are kept in rank order; equal ranks keep the order the backend sent.
//
// The same ID may be indexed both as a template (listed under a group) and
// as a subtask (listed under a template). Both records are kept; deciding
// which role wins is left to the closure builder.
type Repository struct {
	categories []domain.Category
	groups     []domain.Group
	templates  []domain.Template
	subtasks   []domain.Subtask

	categoryIdx map[string]int
	groupIdx    map[string]int
	templateIdx map[string]int
	subtaskIdx  map[string]int

	groupsByCategory   map[string][]int
	templatesByGroup   map[string][]int
	subtasksByTemplate map[string][]int
}

// New builds a repository from flat records. Records whose parent is missing
// are still indexed so callers can detect dangling references. When an ID
// repeats within one level the first record wins.
func New(categories []domain.Category, groups []domain.Group, templates []domain.Template, subtasks []domain.Subtask) *Repository {
	r := &Repository{
		categoryIdx:        make(map[string]int, len(categories)),
		groupIdx:           make(map[string]int, len(groups)),
		templateIdx:        make(map[string]int, len(templates)),
		subtaskIdx:         make(map[string]int, len(subtasks)),
		groupsByCategory:   make(map[string][]int),
		templatesByGroup:   make(map[string][]int),
		subtasksByTemplate: make(map[string][]int),
	}

	for _, c := range sortedByRank(categories, func(c domain.Category) int { return c.Rank }) {
		if _, ok := r.categoryIdx[c.ID]; ok || c.ID == "" {
			continue
		}
		r.categoryIdx[c.ID] = len(r.categories)
		r.categories = append(r.categories, c)
	}
	for _, g := range sortedByRank(groups, func(g domain.Group) int { return g.Rank }) {
		if _, ok := r.groupIdx[g.ID]; ok || g.ID == "" {
			continue
		}
		r.groupIdx[g.ID] = len(r.groups)
		r.groupsByCategory[g.CategoryID] = append(r.groupsByCategory[g.CategoryID], len(r.groups))
		r.groups = append(r.groups, g)
	}
	for _, t := range sortedByRank(templates, func(t domain.Template) int { return t.Rank }) {
		if _, ok := r.templateIdx[t.ID]; ok || t.ID == "" {
			continue
		}
		r.templateIdx[t.ID] = len(r.templates)
		r.templatesByGroup[t.GroupID] = append(r.templatesByGroup[t.GroupID], len(r.templates))
		r.templates = append(r.templates, t)
	}
	for _, s := range sortedByRank(subtasks, func(s domain.Subtask) int { return s.Rank }) {
		if _, ok := r.subtaskIdx[s.ID]; ok || s.ID == "" {
			continue
		}
		r.subtaskIdx[s.ID] = len(r.subtasks)
		r.subtasksByTemplate[s.TemplateID] = append(r.subtasksByTemplate[s.TemplateID], len(r.subtasks))
		r.subtasks = append(r.subtasks, s)
	}
	return r
}

// FromNested flattens the listCategoriesWithTree response. Parent IDs come
// from nesting, so a subtask's TemplateID is always the template it was
// listed under.
func FromNested(cats []contract.CategoryTree) *Repository {
	var (
		categories []domain.Category
		groups     []domain.Group
		templates  []domain.Template
		subtasks   []domain.Subtask
	)
	for _, c := range cats {
		categories = append(categories, domain.Category{ID: c.ID.String(), Name: c.Name, Rank: c.Rank})
		for _, g := range c.Groups {
			groups = append(groups, domain.Group{
				ID:         g.ID.String(),
				CategoryID: c.ID.String(),
				Name:       g.Name,
				Rank:       g.Rank,
			})
			for _, t := range g.Templates {
				templates = append(templates, domain.Template{
					ID:            t.ID.String(),
					GroupID:       g.ID.String(),
					Name:          t.Name,
					Rank:          t.Rank,
					BudgetedHours: t.BudgetedHours,
				})
				for _, s := range t.Subtasks {
					subtasks = append(subtasks, domain.Subtask{
						ID:            s.ID.String(),
						TemplateID:    t.ID.String(),
						Name:          s.Name,
						Rank:          s.Rank,
						BudgetedHours: s.BudgetedHours,
					})
				}
			}
		}
	}
	return New(categories, groups, templates, subtasks)
}

func (r *Repository) Category(id string) (domain.Category, bool) {
	i, ok := r.categoryIdx[id]
	if !ok {
		return domain.Category{}, false
	}
	return r.categories[i], true
}

func (r *Repository) Group(id string) (domain.Group, bool) {
	i, ok := r.groupIdx[id]
	if !ok {
		return domain.Group{}, false
	}
	return r.groups[i], true
}

func (r *Repository) Template(id string) (domain.Template, bool) {
	i, ok := r.templateIdx[id]
	if !ok {
		return domain.Template{}, false
	}
	return r.templates[i], true
}

func (r *Repository) Subtask(id string) (domain.Subtask, bool) {
	i, ok := r.subtaskIdx[id]
	if !ok {
		return domain.Subtask{}, false
	}
	return r.subtasks[i], true
}

// Categories returns all categories in rank order.
func (r *Repository) Categories() []domain.Category {
	return append([]domain.Category(nil), r.categories...)
}

// Groups returns all groups in rank order, including groups whose category
// is unknown.
func (r *Repository) Groups() []domain.Group {
	return append([]domain.Group(nil), r.groups...)
}

// Templates returns all templates in rank order.
func (r *Repository) Templates() []domain.Template {
	return append([]domain.Template(nil), r.templates...)
}

// Subtasks returns all subtasks in rank order.
func (r *Repository) Subtasks() []domain.Subtask {
	return append([]domain.Subtask(nil), r.subtasks...)
}

func (r *Repository) GroupsOf(categoryID string) []domain.Group {
	idx := r.groupsByCategory[categoryID]
	out := make([]domain.Group, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.groups[i])
	}
	return out
}

func (r *Repository) TemplatesOf(groupID string) []domain.Template {
	idx := r.templatesByGroup[groupID]
	out := make([]domain.Template, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.templates[i])
	}
	return out
}

func (r *Repository) SubtasksOf(templateID string) []domain.Subtask {
	idx := r.subtasksByTemplate[templateID]
	out := make([]domain.Subtask, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.subtasks[i])
	}
	return out
}

// HasTemplate reports whether templateID is listed under groupID.
func (r *Repository) HasTemplate(groupID, templateID string) bool {
	t, ok := r.Template(templateID)
	return ok && t.GroupID == groupID
}

// HasSubtask reports whether subtaskID is listed under templateID.
func (r *Repository) HasSubtask(templateID, subtaskID string) bool {
	s, ok := r.Subtask(subtaskID)
	return ok && s.TemplateID == templateID
}

// Position returns the rank-order index of an entity within its level.
func (r *Repository) Position(kind domain.Kind, id string) (int, bool) {
	var idx map[string]int
	switch kind {
	case domain.KindCategory:
		idx = r.categoryIdx
	case domain.KindGroup:
		idx = r.groupIdx
	case domain.KindTemplate:
		idx = r.templateIdx
	case domain.KindSubtask:
		idx = r.subtaskIdx
	default:
		return 0, false
	}
	i, ok := idx[id]
	return i, ok
}

// Counts reports the number of indexed records per level.
func (r *Repository) Counts() (categories, groups, templates, subtasks int) {
	return len(r.categories), len(r.groups), len(r.templates), len(r.subtasks)
}

func sortedByRank[T any](items []T, rank func(T) int) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i]) < rank(out[j])
	})
	return out
}
