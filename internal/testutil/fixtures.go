package testutil

import (
	"encoding/json"
	"time"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/tree"
	"github.com/google/uuid"
)

// Project options
type ProjectOption func(*domain.Project)

func WithProjectStatus(s domain.ProjectStatus) ProjectOption {
	return func(p *domain.Project) {
		p.Status = s
	}
}

func WithProjectID(id string) ProjectOption {
	return func(p *domain.Project) {
		p.ID = id
	}
}

func NewTestProject(name string, opts ...ProjectOption) *domain.Project {
	now := time.Now().UTC()
	p := &domain.Project{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    domain.ProjectActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Task options apply to both templates and subtasks.
type TaskOption func(rank *int, hours *float64)

func WithRank(r int) TaskOption {
	return func(rank *int, _ *float64) {
		*rank = r
	}
}

func WithBudget(h float64) TaskOption {
	return func(_ *int, hours *float64) {
		*hours = h
	}
}

func NewTestTemplate(id, groupID, name string, opts ...TaskOption) domain.Template {
	t := domain.Template{ID: id, GroupID: groupID, Name: name, BudgetedHours: 1}
	for _, opt := range opts {
		opt(&t.Rank, &t.BudgetedHours)
	}
	return t
}

func NewTestSubtask(id, templateID, name string, opts ...TaskOption) domain.Subtask {
	s := domain.Subtask{ID: id, TemplateID: templateID, Name: name, BudgetedHours: 1}
	for _, opt := range opts {
		opt(&s.Rank, &s.BudgetedHours)
	}
	return s
}

// SampleCatalog is the tree most engine tests run against:
//
//	c1 Operations
//	  g1 Finance:    t1 Audit (s1, s2), t2 Budget review
//	  g2 Compliance: t3 Policy update (s3, x), x Sign-off
//	c2 People
//	  g3 Hiring:     t4 Onboarding (s4)
//
// "x" is listed both as a template of g2 and as a subtask of t3.
func SampleCatalog() []contract.CategoryTree {
	return []contract.CategoryTree{
		{ID: "c1", Name: "Operations", Rank: 1, Groups: []contract.GroupTree{
			{ID: "g1", Name: "Finance", Rank: 1, Templates: []contract.TemplateTree{
				{ID: "t1", Name: "Audit", Rank: 1, BudgetedHours: 8, Subtasks: []contract.SubtaskTree{
					{ID: "s1", Name: "Collect ledgers", Rank: 1, BudgetedHours: 2},
					{ID: "s2", Name: "Review findings", Rank: 2, BudgetedHours: 3},
				}},
				{ID: "t2", Name: "Budget review", Rank: 2, BudgetedHours: 5},
			}},
			{ID: "g2", Name: "Compliance", Rank: 2, Templates: []contract.TemplateTree{
				{ID: "t3", Name: "Policy update", Rank: 1, BudgetedHours: 4, Subtasks: []contract.SubtaskTree{
					{ID: "s3", Name: "Draft policy", Rank: 1, BudgetedHours: 2},
					{ID: "x", Name: "Sign-off", Rank: 2, BudgetedHours: 1},
				}},
				{ID: "x", Name: "Sign-off", Rank: 3, BudgetedHours: 1},
			}},
		}},
		{ID: "c2", Name: "People", Rank: 2, Groups: []contract.GroupTree{
			{ID: "g3", Name: "Hiring", Rank: 1, Templates: []contract.TemplateTree{
				{ID: "t4", Name: "Onboarding", Rank: 1, BudgetedHours: 6, Subtasks: []contract.SubtaskTree{
					{ID: "s4", Name: "Provision laptop", Rank: 1, BudgetedHours: 1},
				}},
			}},
		}},
	}
}

// SampleSeedJSON is SampleCatalog as a seed document with one active
// project "p1".
func SampleSeedJSON() []byte {
	doc := map[string]any{
		"projects":   []map[string]string{{"id": "p1", "name": "Acme rollout"}},
		"categories": SampleCatalog(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}

// SampleTree indexes SampleCatalog.
func SampleTree() *tree.Repository {
	return tree.FromNested(SampleCatalog())
}

// Without returns a copy of repo minus the listed records, keyed as
// "kind:id" (e.g. "template:t1"). Children of removed records stay, which
// leaves them dangling.
func Without(repo *tree.Repository, keys ...string) *tree.Repository {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	var (
		cats      []domain.Category
		groups    []domain.Group
		templates []domain.Template
		subtasks  []domain.Subtask
	)
	for _, c := range repo.Categories() {
		if !drop["category:"+c.ID] {
			cats = append(cats, c)
		}
	}
	for _, g := range repo.Groups() {
		if !drop["group:"+g.ID] {
			groups = append(groups, g)
		}
	}
	for _, t := range repo.Templates() {
		if !drop["template:"+t.ID] {
			templates = append(templates, t)
		}
	}
	for _, s := range repo.Subtasks() {
		if !drop["subtask:"+s.ID] {
			subtasks = append(subtasks, s)
		}
	}
	return tree.New(cats, groups, templates, subtasks)
}
