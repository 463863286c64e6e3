// Package schema materialises the catalog as SQLite tables. It carries no
// data-dependent logic: each Create* call is a fixed sequence of
// CREATE TABLE IF NOT EXISTS statements, so every call is safe to repeat.
//
// Order matters because of REFERENCES clauses: core (country, state, city,
// customers, accounts) first, then the time dimension and legacy tables,
// then the unified transactions table.
package schema

import (
	"context"
	"fmt"

	gddl "bankledger/internal/ddl"
	"bankledger/internal/logger"
	sqliteddl "bankledger/internal/storage/sqlite/ddl"
)

// Execer is the part of storage.Repository the manager uses.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// Manager issues DDL against a repository.
type Manager struct {
	repo Execer
}

// NewManager returns a Manager writing through repo.
func NewManager(repo Execer) *Manager {
	return &Manager{repo: repo}
}

// CreateCoreSchema creates country, state, city, customers and accounts.
func (m *Manager) CreateCoreSchema(ctx context.Context) error {
	return m.ensure(ctx, "core", coreTables)
}

// CreateLegacySchema creates the time dimension tables followed by the three
// legacy transaction tables.
func (m *Manager) CreateLegacySchema(ctx context.Context) error {
	if err := m.ensure(ctx, "legacy", timeTables); err != nil {
		return err
	}
	return m.ensure(ctx, "legacy", legacyTables)
}

// CreateUnifiedSchema creates the transactions table.
func (m *Manager) CreateUnifiedSchema(ctx context.Context) error {
	return m.ensure(ctx, "unified", []gddl.TableDef{unifiedTable})
}

// CreateAll runs core, legacy and unified in that order.
func (m *Manager) CreateAll(ctx context.Context) error {
	steps := []func(context.Context) error{
		m.CreateCoreSchema,
		m.CreateLegacySchema,
		m.CreateUnifiedSchema,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) ensure(ctx context.Context, group string, defs []gddl.TableDef) error {
	log := logger.FromContext(ctx)
	for _, def := range defs {
		if err := sqliteddl.EnsureTable(ctx, m.repo, def); err != nil {
			return fmt.Errorf("schema: %s: %w", group, err)
		}
		log.Debug().Str("group", group).Str("table", def.FQN).Msg("schema: table ensured")
	}
	return nil
}
