package db

import (
	"database/sql"
	"fmt"
)

// Migrate applies every schema statement. Statements are idempotent, so
// running it against an up-to-date database is a no-op.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'active'
		           CHECK(status IN ('active','paused','done','archived')),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status)`,

	// Catalog. Templates ("story") and subtasks ("task") share task_items;
	// an item may carry both a group_id and a parent_id, which is how the
	// same ID ends up listed as a template and as a subtask.
	`CREATE TABLE IF NOT EXISTS task_categories (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rank INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS task_groups (
		id          TEXT PRIMARY KEY,
		category_id TEXT NOT NULL REFERENCES task_categories(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		rank        INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS task_items (
		id             TEXT PRIMARY KEY,
		kind           TEXT NOT NULL CHECK(kind IN ('story','task')),
		group_id       TEXT REFERENCES task_groups(id) ON DELETE CASCADE,
		parent_id      TEXT REFERENCES task_items(id) ON DELETE CASCADE,
		name           TEXT NOT NULL,
		rank           INTEGER NOT NULL DEFAULT 0,
		budgeted_hours REAL NOT NULL DEFAULT 0 CHECK(budgeted_hours >= 0),
		CHECK(group_id IS NOT NULL OR parent_id IS NOT NULL)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_task_groups_category ON task_groups(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_items_group ON task_items(group_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_items_parent ON task_items(parent_id)`,

	// Assignments copy catalog entities into a project. Names are unique per
	// project within each level.
	`CREATE TABLE IF NOT EXISTS assignments (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		suffix_category TEXT NOT NULL DEFAULT '',
		suffix_group    TEXT NOT NULL DEFAULT '',
		suffix_template TEXT NOT NULL DEFAULT '',
		created_count   INTEGER NOT NULL DEFAULT 0,
		reused_count    INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS project_categories (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		source_id     TEXT NOT NULL,
		name          TEXT NOT NULL,
		rank          INTEGER NOT NULL DEFAULT 0,
		implicit      INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		UNIQUE(project_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS project_groups (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		category_id   TEXT NOT NULL REFERENCES project_categories(id) ON DELETE CASCADE,
		source_id     TEXT NOT NULL,
		name          TEXT NOT NULL,
		rank          INTEGER NOT NULL DEFAULT 0,
		implicit      INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		UNIQUE(project_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS project_stories (
		id             TEXT PRIMARY KEY,
		project_id     TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		assignment_id  TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		group_id       TEXT NOT NULL REFERENCES project_groups(id) ON DELETE CASCADE,
		source_id      TEXT NOT NULL,
		name           TEXT NOT NULL,
		rank           INTEGER NOT NULL DEFAULT 0,
		budgeted_hours REAL NOT NULL DEFAULT 0 CHECK(budgeted_hours >= 0),
		implicit       INTEGER NOT NULL DEFAULT 0,
		created_at     TEXT NOT NULL,
		UNIQUE(project_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS project_tasks (
		id             TEXT PRIMARY KEY,
		project_id     TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		assignment_id  TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		story_id       TEXT REFERENCES project_stories(id) ON DELETE CASCADE,
		parent_task_id TEXT REFERENCES project_tasks(id) ON DELETE CASCADE,
		source_id      TEXT NOT NULL,
		name           TEXT NOT NULL,
		rank           INTEGER NOT NULL DEFAULT 0,
		budgeted_hours REAL NOT NULL DEFAULT 0 CHECK(budgeted_hours >= 0),
		created_at     TEXT NOT NULL,
		UNIQUE(project_id, name),
		CHECK(story_id IS NOT NULL OR parent_task_id IS NOT NULL)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_project_categories_source ON project_categories(project_id, source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_project_groups_source ON project_groups(project_id, source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_project_stories_source ON project_stories(project_id, source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_project_tasks_source ON project_tasks(project_id, source_id)`,
}
