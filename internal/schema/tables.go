package schema

import (
	"bankledger/internal/catalog"
	gddl "bankledger/internal/ddl"
	sqliteddl "bankledger/internal/storage/sqlite/ddl"
)

func col(name, kind string) gddl.ColumnDef {
	return gddl.ColumnDef{Name: name, SQLType: sqliteddl.MapType(kind), Nullable: true}
}

func pk(name, kind string) gddl.ColumnDef {
	c := col(name, kind)
	c.PrimaryKey = true
	c.Nullable = false
	return c
}

func ref(name, kind, table, column string) gddl.ColumnDef {
	c := col(name, kind)
	c.RefTable, c.RefColumn = table, column
	return c
}

// legacyID is a primary key that tolerates NULL. SQLite allows NULL in a
// non-INTEGER primary key; rows loaded that way get a random transaction id
// during migration.
func legacyID() gddl.ColumnDef {
	c := pk("id", "text")
	c.Nullable = true
	return c
}

func legacyTime(name string) gddl.ColumnDef {
	return ref(name, "int", catalog.Time, "time_id")
}

var coreTables = []gddl.TableDef{
	{FQN: catalog.Country, Columns: []gddl.ColumnDef{
		pk("country_id", "text"),
		col("country", "text"),
	}},
	{FQN: catalog.State, Columns: []gddl.ColumnDef{
		pk("state_id", "text"),
		col("state", "text"),
		ref("country_id", "text", catalog.Country, "country_id"),
	}},
	{FQN: catalog.City, Columns: []gddl.ColumnDef{
		pk("city_id", "int"),
		col("city", "text"),
		ref("state_id", "text", catalog.State, "state_id"),
	}},
	{FQN: catalog.Customers, Columns: []gddl.ColumnDef{
		pk("customer_id", "text"),
		col("first_name", "text"),
		col("last_name", "text"),
		ref("customer_city", "int", catalog.City, "city_id"),
		col("country_name", "text"),
		col("cpf", "int"),
	}},
	{FQN: catalog.Accounts, Columns: []gddl.ColumnDef{
		pk("account_id", "text"),
		ref("customer_id", "text", catalog.Customers, "customer_id"),
		col("created_at", "timestamp"),
		col("status", "text"),
		col("account_branch", "text"),
		col("account_check_digit", "text"),
		col("account_number", "text"),
	}},
}

// timeTables precede the legacy transaction tables that reference d_time.
var timeTables = []gddl.TableDef{
	{FQN: catalog.Week, Columns: []gddl.ColumnDef{pk("week_id", "int"), col("action_week", "int")}},
	{FQN: catalog.Weekday, Columns: []gddl.ColumnDef{pk("weekday_id", "int"), col("action_weekday", "text")}},
	{FQN: catalog.Month, Columns: []gddl.ColumnDef{pk("month_id", "int"), col("action_month", "int")}},
	{FQN: catalog.Year, Columns: []gddl.ColumnDef{pk("year_id", "int"), col("action_year", "int")}},
	{FQN: catalog.Time, Columns: []gddl.ColumnDef{
		pk("time_id", "int"),
		col("action_timestamp", "timestamp"),
		ref("week_id", "int", catalog.Week, "week_id"),
		ref("month_id", "int", catalog.Month, "month_id"),
		ref("year_id", "int", catalog.Year, "year_id"),
		ref("weekday_id", "int", catalog.Weekday, "weekday_id"),
	}},
}

var legacyTables = []gddl.TableDef{
	{FQN: catalog.TransferIns, Columns: []gddl.ColumnDef{
		legacyID(),
		ref("account_id", "text", catalog.Accounts, "account_id"),
		col("amount", "numeric"),
		legacyTime("transaction_requested_at"),
		legacyTime("transaction_completed_at"),
		col("status", "text"),
	}},
	{FQN: catalog.TransferOuts, Columns: []gddl.ColumnDef{
		legacyID(),
		ref("account_id", "text", catalog.Accounts, "account_id"),
		col("amount", "numeric"),
		legacyTime("transaction_requested_at"),
		legacyTime("transaction_completed_at"),
		col("status", "text"),
	}},
	{FQN: catalog.PixMovements, Columns: []gddl.ColumnDef{
		legacyID(),
		ref("account_id", "text", catalog.Accounts, "account_id"),
		col("in_or_out", "text"),
		col("pix_amount", "numeric"),
		legacyTime("pix_requested_at"),
		legacyTime("pix_completed_at"),
		col("status", "text"),
	}},
}

var unifiedTable = gddl.TableDef{FQN: catalog.Transactions, Columns: []gddl.ColumnDef{
	pk("transaction_id", "text"),
	ref("account_id", "text", catalog.Accounts, "account_id"),
	col("amount", "numeric"),
	col("transaction_type", "text"),
	col("requested_at", "timestamp"),
	col("completed_at", "timestamp"),
	col("status", "text"),
}}

// Definition returns the table definition for a catalog table name.
func Definition(name string) (gddl.TableDef, bool) {
	for _, group := range [][]gddl.TableDef{coreTables, timeTables, legacyTables, {unifiedTable}} {
		for _, def := range group {
			if def.FQN == name {
				return cloneDef(def), true
			}
		}
	}
	return gddl.TableDef{}, false
}

func cloneDef(def gddl.TableDef) gddl.TableDef {
	cols := make([]gddl.ColumnDef, len(def.Columns))
	copy(cols, def.Columns)
	return gddl.TableDef{FQN: def.FQN, Columns: cols}
}
