package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/db"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/google/uuid"
)

// NameConflictError lists payload records whose target names are already
// taken in the destination project or repeat within the payload.
type NameConflictError struct {
	Duplicates []contract.Duplicate
}

func (e *NameConflictError) Error() string {
	names := make([]string, len(e.Duplicates))
	for i, d := range e.Duplicates {
		names[i] = fmt.Sprintf("%s %q", d.Kind, d.Name)
	}
	return fmt.Sprintf("%s: %s", domain.ErrDuplicateNames, strings.Join(names, ", "))
}

func (e *NameConflictError) Is(target error) bool {
	return target == domain.ErrDuplicateNames
}

// SQLiteAssignmentRepo copies catalog records into project tables.
type SQLiteAssignmentRepo struct {
	db db.DBTX
}

func NewSQLiteAssignmentRepo(conn db.DBTX) *SQLiteAssignmentRepo {
	return &SQLiteAssignmentRepo{db: conn}
}

var projectTables = map[domain.Kind]string{
	domain.KindCategory: "project_categories",
	domain.KindGroup:    "project_groups",
	domain.KindTemplate: "project_stories",
	domain.KindSubtask:  "project_tasks",
}

var assignOrder = []domain.Kind{domain.KindCategory, domain.KindGroup, domain.KindTemplate, domain.KindSubtask}

// Apply plans every row before writing any. Structural problems and name
// conflicts are reported without touching the database; otherwise the
// assignment row and all copies are inserted. Implicit records whose source
// the project already holds are reused instead of copied again.
func (r *SQLiteAssignmentRepo) Apply(ctx context.Context, p contract.AssignmentPayload) (*contract.AssignmentResult, error) {
	if p.Count() == 0 {
		return nil, fmt.Errorf("empty assignment: %w", domain.ErrNoSelection)
	}
	if _, err := NewSQLiteProjectRepo(r.db).GetByID(ctx, p.ProjectID); err != nil {
		return nil, err
	}

	pl := &planner{
		existing: make(map[domain.Kind]projectRows, len(assignOrder)),
		assigned: make(map[domain.Kind]map[string]string, len(assignOrder)),
		seen:     make(map[domain.Kind]map[string]bool, len(assignOrder)),
	}
	for _, kind := range assignOrder {
		rows, err := r.loadRows(ctx, projectTables[kind], p.ProjectID)
		if err != nil {
			return nil, err
		}
		pl.existing[kind] = rows
		pl.assigned[kind] = make(map[string]string)
		pl.seen[kind] = make(map[string]bool)
	}

	for _, c := range p.Categories {
		pl.place(plannedRow{kind: domain.KindCategory, sourceID: c.ID, name: c.Name, rank: c.Rank, implicit: c.Implicit})
	}
	for _, g := range p.Groups {
		row := plannedRow{kind: domain.KindGroup, sourceID: g.ID, name: g.Name, rank: g.Rank, implicit: g.Implicit}
		if !pl.attach(&row, domain.KindCategory, g.ParentID) {
			continue
		}
		pl.place(row)
	}
	for _, t := range p.Templates {
		row := plannedRow{kind: domain.KindTemplate, sourceID: t.ID, name: t.Name, rank: t.Rank, hours: t.BudgetedHours, implicit: t.Implicit}
		if !pl.attach(&row, domain.KindGroup, t.GroupID) {
			continue
		}
		pl.place(row)
	}
	pl.placeSubtasks(p.Subtasks)

	if len(pl.broken) > 0 {
		return nil, errors.Join(pl.broken...)
	}
	if len(pl.dups) > 0 {
		return nil, &NameConflictError{Duplicates: pl.dups}
	}

	assignmentID := uuid.NewString()
	now := nowUTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assignments (id, project_id, suffix_category, suffix_group, suffix_template, created_count, reused_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		assignmentID, p.ProjectID, p.Suffixes.Category, p.Suffixes.Group, p.Suffixes.Template,
		len(pl.inserts), pl.reused, now)
	if err != nil {
		return nil, fmt.Errorf("inserting assignment: %w", err)
	}
	for _, row := range pl.inserts {
		if err := r.insert(ctx, p.ProjectID, assignmentID, now, row); err != nil {
			return nil, err
		}
	}

	return &contract.AssignmentResult{
		AssignmentID: assignmentID,
		Created:      len(pl.inserts),
		Reused:       pl.reused,
	}, nil
}

func (r *SQLiteAssignmentRepo) insert(ctx context.Context, projectID, assignmentID, now string, row plannedRow) error {
	var err error
	switch row.kind {
	case domain.KindCategory:
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO project_categories (id, project_id, assignment_id, source_id, name, rank, implicit, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			row.id, projectID, assignmentID, row.sourceID, row.name, row.rank, boolToInt(row.implicit), now)
	case domain.KindGroup:
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO project_groups (id, project_id, assignment_id, category_id, source_id, name, rank, implicit, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.id, projectID, assignmentID, row.parentID, row.sourceID, row.name, row.rank, boolToInt(row.implicit), now)
	case domain.KindTemplate:
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO project_stories (id, project_id, assignment_id, group_id, source_id, name, rank, budgeted_hours, implicit, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.id, projectID, assignmentID, row.parentID, row.sourceID, row.name, row.rank, row.hours, boolToInt(row.implicit), now)
	case domain.KindSubtask:
		storyID, parentTaskID := row.parentID, ""
		if row.parentKind == domain.KindSubtask {
			storyID, parentTaskID = "", row.parentID
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO project_tasks (id, project_id, assignment_id, story_id, parent_task_id, source_id, name, rank, budgeted_hours, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.id, projectID, assignmentID, nullableString(storyID), nullableString(parentTaskID),
			row.sourceID, row.name, row.rank, row.hours, now)
	}
	if err != nil {
		return fmt.Errorf("inserting %s %s: %w", row.kind, row.sourceID, err)
	}
	return nil
}

type projectRows struct {
	names    map[string]bool
	bySource map[string]string
}

func (r *SQLiteAssignmentRepo) loadRows(ctx context.Context, table, projectID string) (projectRows, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source_id, name FROM `+table+` WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return projectRows{}, fmt.Errorf("loading %s: %w", table, err)
	}
	defer rows.Close()

	out := projectRows{names: make(map[string]bool), bySource: make(map[string]string)}
	for rows.Next() {
		var id, source, name string
		if err := rows.Scan(&id, &source, &name); err != nil {
			return projectRows{}, fmt.Errorf("scanning %s: %w", table, err)
		}
		out.names[name] = true
		if _, ok := out.bySource[source]; !ok {
			out.bySource[source] = id
		}
	}
	if err := rows.Err(); err != nil {
		return projectRows{}, fmt.Errorf("iterating %s: %w", table, err)
	}
	return out, nil
}

type plannedRow struct {
	kind       domain.Kind
	id         string
	sourceID   string
	parentID   string
	parentKind domain.Kind
	name       string
	rank       int
	hours      float64
	implicit   bool
}

type planner struct {
	existing map[domain.Kind]projectRows
	// assigned maps source IDs of this payload to project row IDs.
	assigned map[domain.Kind]map[string]string
	seen     map[domain.Kind]map[string]bool

	inserts []plannedRow
	reused  int
	dups    []contract.Duplicate
	broken  []error
}

func (pl *planner) place(row plannedRow) {
	if _, ok := pl.assigned[row.kind][row.sourceID]; ok {
		return
	}
	if row.implicit {
		if id, ok := pl.existing[row.kind].bySource[row.sourceID]; ok {
			pl.assigned[row.kind][row.sourceID] = id
			pl.reused++
			return
		}
	}
	if pl.existing[row.kind].names[row.name] || pl.seen[row.kind][row.name] {
		pl.dups = append(pl.dups, contract.Duplicate{
			ID:   contract.ID(row.sourceID),
			Name: row.name,
			Kind: string(row.kind),
		})
	}
	pl.seen[row.kind][row.name] = true
	row.id = uuid.NewString()
	pl.assigned[row.kind][row.sourceID] = row.id
	pl.inserts = append(pl.inserts, row)
}

func (pl *planner) resolve(kind domain.Kind, sourceID string) (string, bool) {
	if id, ok := pl.assigned[kind][sourceID]; ok {
		return id, true
	}
	id, ok := pl.existing[kind].bySource[sourceID]
	return id, ok
}

// attach points row at the project copy of its parent, recording a
// structural error when there is none.
func (pl *planner) attach(row *plannedRow, parentKind domain.Kind, parentSource string) bool {
	id, ok := pl.resolve(parentKind, parentSource)
	if !ok {
		pl.broken = append(pl.broken, fmt.Errorf("%s %s: parent %s %s not assigned: %w",
			row.kind, row.sourceID, parentKind, parentSource, domain.ErrStructuralIntegrity))
		return false
	}
	row.parentID = id
	row.parentKind = parentKind
	return true
}

// placeSubtasks places subtasks whose parent is a story first, then keeps
// sweeping for subtasks nested under other subtasks until nothing changes.
func (pl *planner) placeSubtasks(subtasks []contract.SubtaskRecord) {
	pending := subtasks
	for len(pending) > 0 {
		var next []contract.SubtaskRecord
		for _, s := range pending {
			row := plannedRow{kind: domain.KindSubtask, sourceID: s.ID, name: s.Name, rank: s.Rank, hours: s.BudgetedHours, implicit: s.Implicit}
			if id, ok := pl.resolve(domain.KindTemplate, s.TemplateID); ok {
				row.parentID, row.parentKind = id, domain.KindTemplate
			} else if id, ok := pl.resolve(domain.KindSubtask, s.TemplateID); ok && s.TemplateID != s.ID {
				row.parentID, row.parentKind = id, domain.KindSubtask
			} else {
				next = append(next, s)
				continue
			}
			pl.place(row)
		}
		if len(next) == len(pending) {
			for _, s := range next {
				row := plannedRow{kind: domain.KindSubtask, sourceID: s.ID}
				pl.attach(&row, domain.KindTemplate, s.TemplateID)
			}
			return
		}
		pending = next
	}
}

// ListAssigned returns the project's rows level by level, each level ordered
// by rank then name.
func (r *SQLiteAssignmentRepo) ListAssigned(ctx context.Context, projectID string) ([]AssignedItem, error) {
	queries := []struct {
		kind  domain.Kind
		query string
	}{
		{domain.KindCategory, `SELECT id, source_id, '', name, rank, 0, implicit FROM project_categories`},
		{domain.KindGroup, `SELECT id, source_id, category_id, name, rank, 0, implicit FROM project_groups`},
		{domain.KindTemplate, `SELECT id, source_id, group_id, name, rank, budgeted_hours, implicit FROM project_stories`},
		{domain.KindSubtask, `SELECT id, source_id, COALESCE(story_id, parent_task_id), name, rank, budgeted_hours, 0 FROM project_tasks`},
	}

	var items []AssignedItem
	for _, q := range queries {
		rows, err := r.db.QueryContext(ctx, q.query+` WHERE project_id = ? ORDER BY rank, name`, projectID)
		if err != nil {
			return nil, fmt.Errorf("listing assigned %s: %w", q.kind, err)
		}
		for rows.Next() {
			it := AssignedItem{Kind: q.kind}
			var implicit int
			if err := rows.Scan(&it.ID, &it.SourceID, &it.ParentID, &it.Name, &it.Rank, &it.BudgetedHours, &implicit); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning assigned %s: %w", q.kind, err)
			}
			it.Implicit = intToBool(implicit)
			items = append(items, it)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating assigned %s: %w", q.kind, err)
		}
	}
	return items, nil
}
