package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"bankledger/internal/ingest"
	"bankledger/internal/migration"
	"bankledger/internal/reports"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

func printLoad(w io.Writer, tables []ingest.TableReport) {
	tw := newTable(w)
	fmt.Fprintln(tw, "TABLE\tFILES\tREAD\tWRITTEN\tDUPLICATES\tCONFLICTS\t")
	for _, t := range tables {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%d\t\n",
			t.Table, len(t.Files), humanize.Comma(t.Read), humanize.Comma(t.Written), t.Duplicates, t.Conflicts)
	}
	tw.Flush()
}

func printMigration(w io.Writer, rep migration.Report) {
	fmt.Fprintf(w, "migration run %s\n", rep.RunID)
	tw := newTable(w)
	fmt.Fprintln(tw, "SOURCE\tREAD\tWRITTEN\tDUPLICATE\tAMOUNT_CAST\tUNKNOWN_DIRECTION\t")
	for _, s := range rep.Sources {
		if s.Skipped {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t\n", s.Table)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t\n",
			s.Table, humanize.Comma(s.Read), humanize.Comma(s.Written), s.Duplicate, s.AmountCast, s.UnknownDirection)
	}
	tw.Flush()
	fmt.Fprintf(w, "orphaned=%d null_timestamps=%d retired=%v\n", rep.Orphaned, rep.NullTimestamps, rep.Retired)
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func printMonthly(w io.Writer, rows []reports.MonthlyBalance) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ACCOUNT\tMONTH\tNET\tRUNNING\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", r.AccountID, r.Month, r.NetBalance.StringFixed(2), r.RunningBalance.StringFixed(2))
	}
	tw.Flush()
}

func printDaily(w io.Writer, rows []reports.DailySummary) {
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tTRANSFER_IN\tTRANSFER_OUT\tPIX_IN\tPIX_OUT\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", r.Date,
			r.TransferIn.StringFixed(2), r.TransferOut.StringFixed(2), r.PixIn.StringFixed(2), r.PixOut.StringFixed(2))
	}
	tw.Flush()
}

func printCustomers(w io.Writer, rows []reports.CustomerSummary) {
	tw := newTable(w)
	fmt.Fprintln(tw, "CUSTOMER\tNAME\tTRANSFER_IN\tTRANSFER_OUT\tPIX_IN\tPIX_OUT\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\t%s\t\n", r.CustomerID, r.FirstName, r.LastName,
			r.TransferIn.StringFixed(2), r.TransferOut.StringFixed(2), r.PixIn.StringFixed(2), r.PixOut.StringFixed(2))
	}
	tw.Flush()
}

func printRanking(w io.Writer, rows []reports.AccountRank) {
	tw := newTable(w)
	fmt.Fprintln(tw, "RANK\tACCOUNT\tTRANSFER_IN\tPIX_IN\tINCOMING\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", r.Rank, r.AccountID,
			r.TransferIn.StringFixed(2), r.PixIn.StringFixed(2), r.Incoming.StringFixed(2))
	}
	tw.Flush()
}
