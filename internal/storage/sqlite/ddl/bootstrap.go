package ddl

import (
	"context"
	"fmt"

	gddl "bankledger/internal/ddl"
)

// Execer is the slice of storage.Repository EnsureTable needs.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// EnsureTable renders def and executes it. Existing tables are left as they
// are, including their columns.
func EnsureTable(ctx context.Context, repo Execer, def gddl.TableDef) error {
	stmt, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite ddl: ensure %s: %w", def.FQN, err)
	}
	return nil
}
