package contract

// CategoryTree is one element of the listCategoriesWithTree response.
type CategoryTree struct {
	ID     ID          `json:"id"`
	Name   string      `json:"name"`
	Rank   int         `json:"rank"`
	Groups []GroupTree `json:"groups"`
}

type GroupTree struct {
	ID        ID             `json:"id"`
	Name      string         `json:"name"`
	Rank      int            `json:"rank"`
	Templates []TemplateTree `json:"templates"`
}

type TemplateTree struct {
	ID            ID            `json:"id"`
	Name          string        `json:"name"`
	Rank          int           `json:"rank"`
	BudgetedHours float64       `json:"budgetedHours"`
	Subtasks      []SubtaskTree `json:"subtasks"`
}

type SubtaskTree struct {
	ID            ID      `json:"id"`
	Name          string  `json:"name"`
	Rank          int     `json:"rank"`
	BudgetedHours float64 `json:"budgetedHours"`
}

// ProjectRef is one element of the listProjects response.
type ProjectRef struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}
