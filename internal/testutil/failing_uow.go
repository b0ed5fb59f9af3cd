package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/alexanderramin/tasktree/internal/db"
)

// FailingUoW runs each transaction against DB but makes the FailOn-th write
// fail with Err, so tests can check that a multi-row assignment or seed
// leaves nothing behind. When Match is set only statements containing it
// are counted, e.g. "INSERT INTO project_tasks". Reads are never counted.
type FailingUoW struct {
	DB     *sql.DB
	FailOn int
	Match  string
	Err    error

	mu     sync.Mutex
	writes []string
}

func (u *FailingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(ctx, &failingTx{DBTX: tx, uow: u}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Writes returns the statements attempted so far, including the failed one.
func (u *FailingUoW) Writes() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.writes...)
}

// record notes a write and reports whether it is the one to fail.
func (u *FailingUoW) record(query string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.writes = append(u.writes, query)
	if u.Match == "" {
		return len(u.writes) == u.FailOn
	}
	n := 0
	for _, q := range u.writes {
		if strings.Contains(q, u.Match) {
			n++
		}
	}
	return strings.Contains(query, u.Match) && n == u.FailOn
}

type failingTx struct {
	db.DBTX
	uow *FailingUoW
}

func (t *failingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if t.uow.record(query) {
		return nil, t.uow.Err
	}
	return t.DBTX.ExecContext(ctx, query, args...)
}
