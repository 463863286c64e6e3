package reports

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"bankledger/internal/catalog"
	"bankledger/internal/query"
)

// Querier is the read side of storage.Repository.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// MonthlyBalance is one (account, month) row of monthly_account_balances.
type MonthlyBalance struct {
	AccountID      string
	Month          string // YYYY-MM
	NetBalance     decimal.Decimal
	RunningBalance decimal.Decimal
}

// DailySummary is one day of daily_transactions_report.
type DailySummary struct {
	Date        string // YYYY-MM-DD
	TransferIn  decimal.Decimal
	TransferOut decimal.Decimal
	PixIn       decimal.Decimal
	PixOut      decimal.Decimal
}

// CustomerSummary is one row of customer_financial_overview.
type CustomerSummary struct {
	CustomerID  string
	FirstName   string
	LastName    string
	TransferIn  decimal.Decimal
	TransferOut decimal.Decimal
	PixIn       decimal.Decimal
	PixOut      decimal.Decimal
}

// AccountRank is one row of top_performing_accounts. Accounts with equal
// incoming volume share a rank.
type AccountRank struct {
	AccountID  string
	TransferIn decimal.Decimal
	PixIn      decimal.Decimal
	Incoming   decimal.Decimal
	Rank       int64
}

// MonthlyBalances reads monthly balances ordered by account and month. A
// non-empty accountID restricts the result to that account.
func MonthlyBalances(ctx context.Context, repo Querier, accountID string) ([]MonthlyBalance, error) {
	spec := query.SelectSpec{OrderBy: []string{"account_id", "action_month"}}
	var args []any
	if accountID != "" {
		spec.Filters = []query.Filter{{Column: "account_id", Value: "?"}}
		args = append(args, accountID)
	}
	return readView(ctx, repo, catalog.MonthlyAccountBalances, spec, args, func(rows *sql.Rows) (MonthlyBalance, error) {
		var r MonthlyBalance
		err := rows.Scan(&r.AccountID, &r.Month, &r.NetBalance, &r.RunningBalance)
		return r, err
	})
}

// DailyReport reads per-day totals in date order.
func DailyReport(ctx context.Context, repo Querier) ([]DailySummary, error) {
	spec := query.SelectSpec{OrderBy: []string{"transaction_date"}}
	return readView(ctx, repo, catalog.DailyTransactionsReport, spec, nil, func(rows *sql.Rows) (DailySummary, error) {
		var r DailySummary
		err := rows.Scan(&r.Date, &r.TransferIn, &r.TransferOut, &r.PixIn, &r.PixOut)
		return r, err
	})
}

// CustomerOverview reads lifetime totals per customer ordered by id.
func CustomerOverview(ctx context.Context, repo Querier) ([]CustomerSummary, error) {
	spec := query.SelectSpec{OrderBy: []string{"customer_id"}}
	return readView(ctx, repo, catalog.CustomerFinancialOverview, spec, nil, func(rows *sql.Rows) (CustomerSummary, error) {
		var (
			r           CustomerSummary
			first, last sql.NullString
		)
		err := rows.Scan(&r.CustomerID, &first, &last, &r.TransferIn, &r.TransferOut, &r.PixIn, &r.PixOut)
		r.FirstName, r.LastName = first.String, last.String
		return r, err
	})
}

// TopAccounts reads the account ranking, best first. limit <= 0 returns all.
func TopAccounts(ctx context.Context, repo Querier, limit int) ([]AccountRank, error) {
	spec := query.SelectSpec{OrderBy: []string{"rank", "account_id"}, Limit: limit}
	return readView(ctx, repo, catalog.TopPerformingAccounts, spec, nil, func(rows *sql.Rows) (AccountRank, error) {
		var r AccountRank
		err := rows.Scan(&r.AccountID, &r.TransferIn, &r.PixIn, &r.Incoming, &r.Rank)
		return r, err
	})
}

func readView[T any](ctx context.Context, repo Querier, view string, spec query.SelectSpec, args []any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	stmt, err := query.BuildSelect(catalog.MustLookup(view), spec)
	if err != nil {
		return nil, err
	}
	rows, err := repo.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("reports: read %s: %w", view, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("reports: scan %s: %w", view, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: read %s: %w", view, err)
	}
	return out, nil
}
