// Package reports defines the read-only views over the unified transactions
// table and typed readers for them. Views hold no state of their own; they
// always reflect the current contents of transactions.
package reports

import (
	"context"
	"fmt"

	"bankledger/internal/catalog"
	"bankledger/internal/logger"
	"bankledger/internal/query"
)

const (
	incoming = "transactions.transaction_type IN ('transfer_in', 'pix_in')"
	outgoing = "transactions.transaction_type IN ('transfer_out', 'pix_out')"

	signedAmount = "CASE WHEN " + incoming + " THEN transactions.amount" +
		" WHEN " + outgoing + " THEN -transactions.amount ELSE 0 END"
	incomingAmount = "CASE WHEN " + incoming + " THEN transactions.amount ELSE 0 END"

	requestedMonth = "strftime('%Y-%m', transactions.requested_at)"
	requestedDay   = "DATE(transactions.requested_at)"
)

func sumOfType(typ string) string {
	return fmt.Sprintf("SUM(CASE WHEN transactions.transaction_type = '%s' THEN transactions.amount ELSE 0 END)", typ)
}

// View pairs a view name with the SELECT that defines it.
type View struct {
	Name string
	SQL  string
}

// Definitions returns every reporting view in creation order.
func Definitions() ([]View, error) {
	txShape := catalog.MustLookup(catalog.Transactions)

	monthly, err := query.BuildSelect(txShape, query.SelectSpec{
		Conditions: []string{"transactions.requested_at IS NOT NULL"},
		Aggregates: []query.Aggregate{
			{Alias: "account_id", Expr: "transactions.account_id"},
			{Alias: "action_month", Expr: requestedMonth},
			{Alias: "net_balance", Expr: "SUM(" + signedAmount + ")"},
			{Alias: "running_balance", Expr: "SUM(SUM(" + signedAmount + ")) OVER (PARTITION BY transactions.account_id ORDER BY " + requestedMonth + ")"},
			{Alias: query.GroupBy, Expr: "transactions.account_id, " + requestedMonth},
		},
	})
	if err != nil {
		return nil, err
	}

	daily, err := query.BuildSelect(txShape, query.SelectSpec{
		Conditions: []string{"transactions.requested_at IS NOT NULL"},
		Aggregates: []query.Aggregate{
			{Alias: "transaction_date", Expr: requestedDay},
			{Alias: "total_transfer_in", Expr: sumOfType("transfer_in")},
			{Alias: "total_transfer_out", Expr: sumOfType("transfer_out")},
			{Alias: "total_pix_in", Expr: sumOfType("pix_in")},
			{Alias: "total_pix_out", Expr: sumOfType("pix_out")},
			{Alias: query.GroupBy, Expr: requestedDay},
		},
	})
	if err != nil {
		return nil, err
	}

	customers, err := query.BuildSelect(catalog.MustLookup(catalog.Customers), query.SelectSpec{
		Joins: []string{
			"LEFT JOIN accounts ON accounts.customer_id = customers.customer_id",
			"LEFT JOIN transactions ON transactions.account_id = accounts.account_id",
		},
		Aggregates: []query.Aggregate{
			{Alias: "customer_id", Expr: "customers.customer_id"},
			{Alias: "first_name", Expr: "customers.first_name"},
			{Alias: "last_name", Expr: "customers.last_name"},
			{Alias: "total_transfer_in", Expr: sumOfType("transfer_in")},
			{Alias: "total_transfer_out", Expr: sumOfType("transfer_out")},
			{Alias: "total_pix_in", Expr: sumOfType("pix_in")},
			{Alias: "total_pix_out", Expr: sumOfType("pix_out")},
			{Alias: query.GroupBy, Expr: "customers.customer_id, customers.first_name, customers.last_name"},
		},
	})
	if err != nil {
		return nil, err
	}

	ranking, err := query.BuildSelect(catalog.MustLookup(catalog.Accounts), query.SelectSpec{
		Joins: []string{"LEFT JOIN transactions ON transactions.account_id = accounts.account_id"},
		Aggregates: []query.Aggregate{
			{Alias: "account_id", Expr: "accounts.account_id"},
			{Alias: "total_transfer_in", Expr: sumOfType("transfer_in")},
			{Alias: "total_pix_in", Expr: sumOfType("pix_in")},
			{Alias: "total_incoming", Expr: "SUM(" + incomingAmount + ")"},
			{Alias: "rank", Expr: "DENSE_RANK() OVER (ORDER BY SUM(" + incomingAmount + ") DESC)"},
			{Alias: query.GroupBy, Expr: "accounts.account_id"},
		},
	})
	if err != nil {
		return nil, err
	}

	return []View{
		{Name: catalog.MonthlyAccountBalances, SQL: monthly},
		{Name: catalog.DailyTransactionsReport, SQL: daily},
		{Name: catalog.CustomerFinancialOverview, SQL: customers},
		{Name: catalog.TopPerformingAccounts, SQL: ranking},
	}, nil
}

// Execer is the part of storage.Repository CreateViews needs.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// CreateViews creates every reporting view that does not exist yet.
func CreateViews(ctx context.Context, repo Execer) error {
	views, err := Definitions()
	if err != nil {
		return fmt.Errorf("reports: build views: %w", err)
	}
	log := logger.FromContext(ctx)
	for _, v := range views {
		stmt, err := query.BuildCreateView(v.Name, v.SQL)
		if err != nil {
			return fmt.Errorf("reports: %s: %w", v.Name, err)
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reports: create %s: %w", v.Name, err)
		}
		log.Info().Str("view", v.Name).Msg("reports: view ready")
	}
	return nil
}
