package contract

// AssignmentPayload is the flat, foreign-key consistent body of a
// submitAssignment call. Parent references are explicit on every record.
type AssignmentPayload struct {
	ProjectID  string           `json:"projectId" validate:"required"`
	Categories []CategoryRecord `json:"categories" validate:"dive"`
	Groups     []GroupRecord    `json:"groups" validate:"dive"`
	Templates  []TemplateRecord `json:"templates" validate:"dive"`
	Subtasks   []SubtaskRecord  `json:"subtasks" validate:"dive"`
	Suffixes   Suffixes         `json:"suffixes"`
}

// Count returns the number of records across all levels.
func (p AssignmentPayload) Count() int {
	return len(p.Categories) + len(p.Groups) + len(p.Templates) + len(p.Subtasks)
}

// Suffixes are carried for audit only; names are already final.
type Suffixes struct {
	Category string `json:"category"`
	Group    string `json:"group"`
	Template string `json:"template"`
}

type CategoryRecord struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Rank     int    `json:"rank"`
	Implicit bool   `json:"implicit"`
}

type GroupRecord struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Rank     int    `json:"rank"`
	ParentID string `json:"parentId" validate:"required"`
	Implicit bool   `json:"implicit"`
}

type TemplateRecord struct {
	ID            string  `json:"id" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Rank          int     `json:"rank"`
	BudgetedHours float64 `json:"budgetedHours" validate:"gte=0"`
	GroupID       string  `json:"groupId" validate:"required"`
	Implicit      bool    `json:"implicit"`
}

type SubtaskRecord struct {
	ID            string  `json:"id" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Rank          int     `json:"rank"`
	BudgetedHours float64 `json:"budgetedHours" validate:"gte=0"`
	TemplateID    string  `json:"templateId" validate:"required"`
	Implicit      bool    `json:"implicit"`
}

// Duplicate is one colliding target name reported by the backend.
type Duplicate struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ConflictResponse is the 409 body of submitAssignment.
type ConflictResponse struct {
	Message    string      `json:"message,omitempty"`
	Duplicates []Duplicate `json:"duplicates"`
}

// ErrorResponse is the body of any other non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// AssignmentResult is the 201 body of submitAssignment.
type AssignmentResult struct {
	AssignmentID string `json:"assignmentId"`
	Created      int    `json:"created"`
	Reused       int    `json:"reused"`
}
