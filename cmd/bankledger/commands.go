package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bankledger/internal/config"
	"bankledger/internal/pipeline"
	"bankledger/internal/reports"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the configured steps (default: schema, load, migrate, views)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSteps(cmd, a.cfg.RunSteps()...)
		},
	}
}

func newStepCmd(a *app, step, short string) *cobra.Command {
	return &cobra.Command{
		Use:   step,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSteps(cmd, step)
		},
	}
}

func (a *app) runSteps(cmd *cobra.Command, steps ...string) error {
	if err := a.checkConfig(); err != nil {
		return err
	}
	ctx := cmd.Context()
	flush := pipeline.SetupMetrics(ctx, a.cfg.Job, a.cfg.Metrics)
	defer flush()

	res, err := pipeline.Run(ctx, a.cfg, steps...)
	out := cmd.OutOrStdout()
	if len(res.Loaded) > 0 {
		printLoad(out, res.Loaded)
	}
	if res.Migration != nil {
		printMigration(out, *res.Migration)
	}
	return err
}

func newReportCmd(a *app) *cobra.Command {
	var (
		account string
		limit   int
	)
	cmd := &cobra.Command{
		Use:       "report <monthly|daily|customers|ranking>",
		Short:     "Print a reporting view",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"monthly", "daily", "customers", "ranking"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := pipeline.Open(ctx, a.cfg.Storage)
			if err != nil {
				return err
			}
			defer repo.Close()

			out := cmd.OutOrStdout()
			switch args[0] {
			case "monthly":
				rows, err := reports.MonthlyBalances(ctx, repo, account)
				if err != nil {
					return err
				}
				printMonthly(out, rows)
			case "daily":
				rows, err := reports.DailyReport(ctx, repo)
				if err != nil {
					return err
				}
				printDaily(out, rows)
			case "customers":
				rows, err := reports.CustomerOverview(ctx, repo)
				if err != nil {
					return err
				}
				printCustomers(out, rows)
			case "ranking":
				rows, err := reports.TopAccounts(ctx, repo, limit)
				if err != nil {
					return err
				}
				printRanking(out, rows)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "monthly: only this account")
	cmd.Flags().IntVar(&limit, "limit", 10, "ranking: number of rows, 0 for all")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Lint the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				issues := config.Validate(a.cfg)
				out := cmd.OutOrStdout()
				if len(issues) == 0 {
					fmt.Fprintln(out, "config OK")
					return nil
				}
				for _, iss := range issues {
					fmt.Fprintf(out, "%-7s %s: %s\n", strings.ToUpper(string(iss.Severity)), iss.Path, iss.Message)
				}
				if config.HasErrors(issues) {
					return fmt.Errorf("config has errors")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(a.cfg)
			},
		},
	)
	return cmd
}
