// Package ddl renders SQLite DDL from the generic ddl.TableDef model.
//
// Identifiers are double-quoted, PRIMARY KEY is a table constraint, foreign
// keys are inline REFERENCES clauses and ColumnDef.Default is raw SQL.
// Statements use CREATE TABLE IF NOT EXISTS so repeated runs are no-ops.
package ddl

import (
	"errors"
	"fmt"
	"strings"

	gddl "bankledger/internal/ddl"
)

// BuildCreateTableSQL returns the CREATE TABLE statement for t:
//
//	CREATE TABLE IF NOT EXISTS "table" (
//	  "col1" TYPE [NOT NULL] [DEFAULT expr] [REFERENCES "t" ("c")],
//	  "col2" TYPE,
//	  PRIMARY KEY ("pk1", "pk2")
//	);
//
// A dotted FQN such as "main.accounts" is quoted per segment.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	table := strings.TrimSpace(t.FQN)
	switch {
	case table == "":
		return "", errors.New("sqlite ddl: table FQN must not be empty")
	case len(t.Columns) == 0:
		return "", errors.New("sqlite ddl: at least one column is required")
	}

	lines := make([]string, 0, len(t.Columns)+1)
	var keys []string
	for _, c := range t.Columns {
		clause, err := columnClause(table, c)
		if err != nil {
			return "", err
		}
		lines = append(lines, clause)
		if c.PrimaryKey {
			keys = append(keys, quoteIdent(strings.TrimSpace(c.Name)))
		}
	}
	if len(keys) > 0 {
		lines = append(lines, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}
	return "CREATE TABLE IF NOT EXISTS " + quoteFQN(table) + " (\n  " + strings.Join(lines, ",\n  ") + "\n);", nil
}

func columnClause(table string, c gddl.ColumnDef) (string, error) {
	name, typ := strings.TrimSpace(c.Name), strings.TrimSpace(c.SQLType)
	refTable, refCol := strings.TrimSpace(c.RefTable), strings.TrimSpace(c.RefColumn)
	switch {
	case name == "":
		return "", fmt.Errorf("sqlite ddl: column with empty name in table %s", table)
	case typ == "":
		return "", fmt.Errorf("sqlite ddl: column %s missing SQLType", name)
	case (refTable == "") != (refCol == ""):
		return "", fmt.Errorf("sqlite ddl: column %s: RefTable and RefColumn must be set together", name)
	}

	parts := []string{quoteIdent(name), typ}
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if def := strings.TrimSpace(c.Default); def != "" {
		parts = append(parts, "DEFAULT", def)
	}
	if refTable != "" {
		parts = append(parts, "REFERENCES", quoteFQN(refTable), "("+quoteIdent(refCol)+")")
	}
	return strings.Join(parts, " "), nil
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// quoteFQN quotes each non-empty dot-separated segment.
func quoteFQN(fqn string) string {
	var out []string
	for _, p := range strings.Split(fqn, ".") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, quoteIdent(p))
		}
	}
	return strings.Join(out, ".")
}
