package domain

// Category is the root of one task tree (a "task super" on the backend).
type Category struct {
	ID   string
	Name string
	Rank int
}

// Group is a mid-level grouping of templates; it belongs to exactly one
// category.
type Group struct {
	ID         string
	CategoryID string
	Name       string
	Rank       int
}

// Template is a reusable top-level unit of work ("story" on the backend).
type Template struct {
	ID            string
	GroupID       string
	Name          string
	Rank          int
	BudgetedHours float64
}

// Subtask is a child unit of work ("task" on the backend). TemplateID is
// authoritative over any listing of the same ID as a template.
type Subtask struct {
	ID            string
	TemplateID    string
	Name          string
	Rank          int
	BudgetedHours float64
}
