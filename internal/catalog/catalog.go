// Package catalog declares the table shapes used across the ledger: the core
// dimension tables, the legacy transaction tables, the time dimension, the
// unified transactions table and the reporting views.
//
// Shapes are plain data. They are registered once at package init and never
// mutated afterwards; every accessor hands out a copy so callers cannot alter
// the registry by accident.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// TableShape is a table name plus its ordered column list.
type TableShape struct {
	Name    string
	Columns []string
}

// Validate reports whether the shape has a name and a non-empty list of
// unique, non-blank column names.
func (s TableShape) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("catalog: shape has empty table name")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("catalog: shape %s has no columns", s.Name)
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("catalog: shape %s has a blank column name", s.Name)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("catalog: shape %s declares column %q twice", s.Name, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Has reports whether col is one of the shape's columns.
func (s TableShape) Has(col string) bool {
	for _, c := range s.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// clone returns a deep copy so the registry's backing arrays never leak.
func (s TableShape) clone() TableShape {
	cols := make([]string, len(s.Columns))
	copy(cols, s.Columns)
	return TableShape{Name: s.Name, Columns: cols}
}

// Table names.
const (
	Country   = "country"
	State     = "state"
	City      = "city"
	Customers = "customers"
	Accounts  = "accounts"

	Week    = "d_week"
	Weekday = "d_weekday"
	Month   = "d_month"
	Year    = "d_year"
	Time    = "d_time"

	TransferIns  = "transfer_ins"
	TransferOuts = "transfer_outs"
	PixMovements = "pix_movements"

	Transactions = "transactions"

	MonthlyAccountBalances    = "monthly_account_balances"
	DailyTransactionsReport   = "daily_transactions_report"
	CustomerFinancialOverview = "customer_financial_overview"
	TopPerformingAccounts     = "top_performing_accounts"
)

var registry = map[string]TableShape{}

func register(name string, cols ...string) {
	s := TableShape{Name: name, Columns: cols}
	if err := s.Validate(); err != nil {
		panic(err)
	}
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("catalog: shape %s registered twice", name))
	}
	registry[name] = s
}

func init() {
	register(Country, "country_id", "country")
	register(State, "state_id", "state", "country_id")
	register(City, "city_id", "city", "state_id")
	register(Customers, "customer_id", "first_name", "last_name", "customer_city", "country_name", "cpf")
	register(Accounts,
		"account_id", "customer_id", "created_at", "status",
		"account_branch", "account_check_digit", "account_number",
	)

	register(Week, "week_id", "action_week")
	register(Weekday, "weekday_id", "action_weekday")
	register(Month, "month_id", "action_month")
	register(Year, "year_id", "action_year")
	register(Time, "time_id", "action_timestamp", "week_id", "month_id", "year_id", "weekday_id")

	register(TransferIns,
		"id", "account_id", "amount",
		"transaction_requested_at", "transaction_completed_at", "status",
	)
	register(TransferOuts,
		"id", "account_id", "amount",
		"transaction_requested_at", "transaction_completed_at", "status",
	)
	register(PixMovements,
		"id", "account_id", "in_or_out", "pix_amount",
		"pix_requested_at", "pix_completed_at", "status",
	)

	register(Transactions,
		"transaction_id", "account_id", "amount", "transaction_type",
		"requested_at", "completed_at", "status",
	)

	register(MonthlyAccountBalances, "account_id", "action_month", "net_balance", "running_balance")
	register(DailyTransactionsReport,
		"transaction_date", "total_transfer_in", "total_transfer_out", "total_pix_in", "total_pix_out",
	)
	register(CustomerFinancialOverview,
		"customer_id", "first_name", "last_name",
		"total_transfer_in", "total_transfer_out", "total_pix_in", "total_pix_out",
	)
	register(TopPerformingAccounts, "account_id", "total_transfer_in", "total_pix_in", "total_incoming", "rank")
}

// Lookup returns a copy of the shape registered under name.
func Lookup(name string) (TableShape, bool) {
	s, ok := registry[name]
	if !ok {
		return TableShape{}, false
	}
	return s.clone(), true
}

// MustLookup is Lookup for names known at compile time. It panics on a miss.
func MustLookup(name string) TableShape {
	s, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("catalog: unknown shape %q", name))
	}
	return s
}

// Names returns every registered shape name in lexical order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// LegacyTables lists the pre-migration transaction tables in migration order.
func LegacyTables() []string {
	return []string{TransferIns, TransferOuts, PixMovements}
}
