// Package query renders SQL text from catalog table shapes.
//
// The builders are pure functions: the same inputs always produce the same
// string, which keeps the generated SQL snapshot-testable. Every clause that
// accepts caller text (filter values, raw conditions, joins, aggregate
// expressions, ORDER BY terms) is emitted verbatim. Nothing here sanitizes
// input; callers must only pass trusted strings or bind values through "?"
// placeholders.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bankledger/internal/catalog"
)

// ErrInvalidShape is returned (wrapped in a *ShapeError) when a table shape
// has an empty name, no columns, or a blank or repeated column.
var ErrInvalidShape = errors.New("invalid table shape")

// ShapeError names the shape that failed validation.
type ShapeError struct {
	Table  string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("query: %v: %s", ErrInvalidShape, e.Reason)
	}
	return fmt.Sprintf("query: %v %q: %s", ErrInvalidShape, e.Table, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrInvalidShape }

// Reserved aggregate aliases. An Aggregate using one of these aliases is
// rendered into its clause instead of the select list.
const (
	GroupBy = "GROUP BY"
	Having  = "HAVING"
)

// Filter is an equality predicate rendered as "Column = Value".
type Filter struct {
	Column string
	Value  string
}

// Aggregate maps an output alias to an expression. Aliases GroupBy and Having
// are redirected into their clauses.
type Aggregate struct {
	Alias string
	Expr  string
}

// SelectSpec carries the optional parts of a SELECT. Ordered slices keep the
// rendered text stable across runs.
type SelectSpec struct {
	Filters    []Filter
	Conditions []string // extra raw predicates, ANDed after Filters
	Joins      []string
	Aggregates []Aggregate
	OrderBy    []string
	Limit      int // 0 means no LIMIT
}

func checkShape(s catalog.TableShape) error {
	if strings.TrimSpace(s.Name) == "" {
		return &ShapeError{Reason: "empty table name"}
	}
	if len(s.Columns) == 0 {
		return &ShapeError{Table: s.Name, Reason: "no columns"}
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if strings.TrimSpace(c) == "" {
			return &ShapeError{Table: s.Name, Reason: "blank column name"}
		}
		if _, dup := seen[c]; dup {
			return &ShapeError{Table: s.Name, Reason: fmt.Sprintf("column %q repeated", c)}
		}
		seen[c] = struct{}{}
	}
	return nil
}

// BuildSelect renders a SELECT over shape. With an empty spec the result is
// exactly "SELECT <cols> FROM <table>;". When the spec carries at least one
// non-reserved aggregate, the aggregate expressions replace the column list.
func BuildSelect(shape catalog.TableShape, spec SelectSpec) (string, error) {
	if err := checkShape(shape); err != nil {
		return "", err
	}

	var (
		selectList []string
		groupBy    []string
		having     []string
	)
	for _, a := range spec.Aggregates {
		switch a.Alias {
		case GroupBy:
			groupBy = append(groupBy, a.Expr)
		case Having:
			having = append(having, a.Expr)
		default:
			selectList = append(selectList, a.Expr+" AS "+a.Alias)
		}
	}
	if len(selectList) == 0 {
		selectList = shape.Columns
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selectList, ", "))
	b.WriteString(" FROM ")
	b.WriteString(shape.Name)

	for _, j := range spec.Joins {
		b.WriteByte(' ')
		b.WriteString(j)
	}

	preds := make([]string, 0, len(spec.Filters)+len(spec.Conditions))
	for _, f := range spec.Filters {
		preds = append(preds, f.Column+" = "+f.Value)
	}
	preds = append(preds, spec.Conditions...)
	if len(preds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(preds, " AND "))
	}

	if len(groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupBy, ", "))
	}
	if len(having) > 0 {
		b.WriteString(" HAVING ")
		b.WriteString(strings.Join(having, " AND "))
	}
	if len(spec.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(spec.OrderBy, ", "))
	}
	if spec.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(spec.Limit))
	}
	b.WriteByte(';')
	return b.String(), nil
}

// BuildCount renders "SELECT COUNT(*) AS count FROM ..." honouring the
// joins and predicates in sel. Any aggregates in sel are ignored.
func BuildCount(shape catalog.TableShape, sel SelectSpec) (string, error) {
	sel.Aggregates = []Aggregate{{Alias: "count", Expr: "COUNT(*)"}}
	sel.OrderBy = nil
	sel.Limit = 0
	return BuildSelect(shape, sel)
}

func insertPrefix(shape catalog.TableShape) string {
	placeholders := make([]string, len(shape.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		shape.Name,
		strings.Join(shape.Columns, ", "),
		strings.Join(placeholders, ", "),
	)
}

// BuildInsert renders a positional INSERT with one "?" per declared column,
// in declared order.
func BuildInsert(shape catalog.TableShape) (string, error) {
	if err := checkShape(shape); err != nil {
		return "", err
	}
	return insertPrefix(shape) + ";", nil
}

// BuildInsertIgnore is BuildInsert plus "ON CONFLICT (...) DO NOTHING".
// With no conflict columns any constraint violation is ignored.
func BuildInsertIgnore(shape catalog.TableShape, conflict ...string) (string, error) {
	if err := checkShape(shape); err != nil {
		return "", err
	}
	for _, c := range conflict {
		if !shape.Has(c) {
			return "", fmt.Errorf("query: conflict column %q not in shape %s", c, shape.Name)
		}
	}
	target := ""
	if len(conflict) > 0 {
		target = " (" + strings.Join(conflict, ", ") + ")"
	}
	return insertPrefix(shape) + " ON CONFLICT" + target + " DO NOTHING;", nil
}

// BuildFetchAll renders an unconditional "SELECT * FROM <table>;".
func BuildFetchAll(table string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", &ShapeError{Reason: "empty table name"}
	}
	return "SELECT * FROM " + table + ";", nil
}

// BuildDropTable renders a DROP TABLE statement.
func BuildDropTable(table string, ifExists bool) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", &ShapeError{Reason: "empty table name"}
	}
	if ifExists {
		return "DROP TABLE IF EXISTS " + table + ";", nil
	}
	return "DROP TABLE " + table + ";", nil
}

// BuildCreateView wraps a rendered SELECT into CREATE VIEW IF NOT EXISTS.
func BuildCreateView(name, selectSQL string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", &ShapeError{Reason: "empty view name"}
	}
	body := strings.TrimSpace(selectSQL)
	if body == "" {
		return "", fmt.Errorf("query: view %s has empty body", name)
	}
	if !strings.HasSuffix(body, ";") {
		body += ";"
	}
	return "CREATE VIEW IF NOT EXISTS " + name + " AS " + body, nil
}
