package ddl

import "strings"

// MapType maps a logical column kind into a SQLite column type.
//
// Timestamps are declared TIMESTAMP (NUMERIC affinity) so the declared type
// survives in sqlite_master; values are stored as "YYYY-MM-DD HH:MM:SS" text,
// which SQLite's date functions read directly.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "INTEGER"
	case "bool", "boolean":
		return "INTEGER" // 0/1
	case "float", "double", "real":
		return "REAL"
	case "numeric", "decimal", "money":
		return "NUMERIC"
	case "date":
		return "DATE"
	case "timestamp", "datetime", "timestamptz":
		return "TIMESTAMP"
	case "blob", "bytes":
		return "BLOB"
	default:
		return "TEXT"
	}
}
