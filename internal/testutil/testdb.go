package testutil

import (
	"database/sql"
	"testing"

	"github.com/alexanderramin/tasktree/internal/db"
)

// AssignmentTables are the tables one assignment writes to, parents first.
var AssignmentTables = []string{
	"assignments",
	"project_categories",
	"project_groups",
	"project_stories",
	"project_tasks",
}

// NewTestDB opens a migrated in-memory catalog database that is closed
// with the test.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenDB(db.Memory)
	if err != nil {
		t.Fatalf("opening catalog database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func NewTestUoW(conn *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(conn)
}

// RowCounts reports how many rows each assignment table holds for
// projectID. Tests compare it before and after a rejected submit.
func RowCounts(t *testing.T, conn *sql.DB, projectID string) map[string]int {
	t.Helper()
	out := make(map[string]int, len(AssignmentTables))
	for _, table := range AssignmentTables {
		var n int
		if err := conn.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE project_id = ?`, projectID).Scan(&n); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		out[table] = n
	}
	return out
}
