package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/db"
	"github.com/alexanderramin/tasktree/internal/domain"
)

// SQLiteCatalogRepo stores the task catalog. Templates and subtasks share
// task_items, so an upsert of one never clears the other's parent column.
type SQLiteCatalogRepo struct {
	db db.DBTX
}

func NewSQLiteCatalogRepo(conn db.DBTX) *SQLiteCatalogRepo {
	return &SQLiteCatalogRepo{db: conn}
}

func (r *SQLiteCatalogRepo) UpsertCategory(ctx context.Context, c domain.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_categories (id, name, rank) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, rank = excluded.rank`,
		c.ID, c.Name, c.Rank)
	if err != nil {
		return fmt.Errorf("upserting category %s: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteCatalogRepo) UpsertGroup(ctx context.Context, g domain.Group) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_groups (id, category_id, name, rank) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET category_id = excluded.category_id, name = excluded.name, rank = excluded.rank`,
		g.ID, g.CategoryID, g.Name, g.Rank)
	if err != nil {
		return fmt.Errorf("upserting group %s: %w", g.ID, err)
	}
	return nil
}

// UpsertTemplate writes a story row. Name, rank and budget of a row that is
// also a subtask follow the template listing.
func (r *SQLiteCatalogRepo) UpsertTemplate(ctx context.Context, t domain.Template) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_items (id, kind, group_id, name, rank, budgeted_hours) VALUES (?, 'story', ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			group_id = excluded.group_id,
			name = excluded.name,
			rank = excluded.rank,
			budgeted_hours = excluded.budgeted_hours`,
		t.ID, t.GroupID, t.Name, t.Rank, t.BudgetedHours)
	if err != nil {
		return fmt.Errorf("upserting template %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteCatalogRepo) UpsertSubtask(ctx context.Context, s domain.Subtask) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_items (id, kind, parent_id, name, rank, budgeted_hours) VALUES (?, 'task', ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			name = CASE WHEN task_items.group_id IS NULL THEN excluded.name ELSE task_items.name END,
			rank = CASE WHEN task_items.group_id IS NULL THEN excluded.rank ELSE task_items.rank END,
			budgeted_hours = CASE WHEN task_items.group_id IS NULL THEN excluded.budgeted_hours ELSE task_items.budgeted_hours END`,
		s.ID, s.TemplateID, s.Name, s.Rank, s.BudgetedHours)
	if err != nil {
		return fmt.Errorf("upserting subtask %s: %w", s.ID, err)
	}
	return nil
}

// Tree returns the catalog nested the way listCategoriesWithTree serves it,
// every level ordered by rank then id. Child slices are never nil.
func (r *SQLiteCatalogRepo) Tree(ctx context.Context) ([]contract.CategoryTree, error) {
	subtasksOf := make(map[string][]contract.SubtaskTree)
	err := r.each(ctx,
		`SELECT id, parent_id, name, rank, budgeted_hours FROM task_items
		WHERE parent_id IS NOT NULL ORDER BY rank, id`,
		func(s rowScanner) error {
			var st contract.SubtaskTree
			var id, parent string
			if err := s.Scan(&id, &parent, &st.Name, &st.Rank, &st.BudgetedHours); err != nil {
				return err
			}
			st.ID = contract.ID(id)
			subtasksOf[parent] = append(subtasksOf[parent], st)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loading subtasks: %w", err)
	}

	templatesOf := make(map[string][]contract.TemplateTree)
	err = r.each(ctx,
		`SELECT id, group_id, name, rank, budgeted_hours FROM task_items
		WHERE group_id IS NOT NULL ORDER BY rank, id`,
		func(s rowScanner) error {
			var tt contract.TemplateTree
			var id, group string
			if err := s.Scan(&id, &group, &tt.Name, &tt.Rank, &tt.BudgetedHours); err != nil {
				return err
			}
			tt.ID = contract.ID(id)
			tt.Subtasks = nonNil(subtasksOf[id])
			templatesOf[group] = append(templatesOf[group], tt)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	groupsOf := make(map[string][]contract.GroupTree)
	err = r.each(ctx,
		`SELECT id, category_id, name, rank FROM task_groups ORDER BY rank, id`,
		func(s rowScanner) error {
			var gt contract.GroupTree
			var id, category string
			if err := s.Scan(&id, &category, &gt.Name, &gt.Rank); err != nil {
				return err
			}
			gt.ID = contract.ID(id)
			gt.Templates = nonNil(templatesOf[id])
			groupsOf[category] = append(groupsOf[category], gt)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loading groups: %w", err)
	}

	tree := []contract.CategoryTree{}
	err = r.each(ctx,
		`SELECT id, name, rank FROM task_categories ORDER BY rank, id`,
		func(s rowScanner) error {
			var ct contract.CategoryTree
			var id string
			if err := s.Scan(&id, &ct.Name, &ct.Rank); err != nil {
				return err
			}
			ct.ID = contract.ID(id)
			ct.Groups = nonNil(groupsOf[id])
			tree = append(tree, ct)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	return tree, nil
}

func (r *SQLiteCatalogRepo) each(ctx context.Context, query string, fn func(rowScanner) error) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
