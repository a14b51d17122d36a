package main

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/ducminhle1904/regime-backtester/internal/store"
)

var runsOpts struct {
	database string
	strategy string
	limit    int
	id       string
}

// runsCmd lists run summaries recorded by run and sweep
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List backtest runs recorded in the SQLite store",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsOpts.database, "db", "", "SQLite database written by run/sweep --db (required)")
	f.StringVar(&runsOpts.strategy, "strategy", "", "Only show runs of this strategy")
	f.IntVarP(&runsOpts.limit, "limit", "n", 20, "Maximum number of runs, 0 for all")
	f.StringVar(&runsOpts.id, "id", "", "Show a single run")
	_ = runsCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	s, err := store.NewSQLiteStore(runsOpts.database)
	if err != nil {
		return err
	}
	defer s.Close()

	var records []store.RunRecord
	if runsOpts.id != "" {
		rec, err := s.GetRun(cmd.Context(), runsOpts.id)
		if err != nil {
			return fmt.Errorf("run %s: %w", runsOpts.id, err)
		}
		records = append(records, *rec)
	} else {
		records, err = s.ListRuns(cmd.Context(), store.RunFilter{Strategy: runsOpts.strategy, Limit: runsOpts.limit})
		if err != nil {
			return err
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetTitle("RECORDED RUNS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Created", "Strategy", "Mode", "Params", "Return", "Max DD", "Sharpe", "PF", "Trades"})
	for _, r := range records {
		t.AppendRow(table.Row{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Strategy,
			r.RegimeMode,
			formatParamsInline(r.Params),
			fmt.Sprintf("%.2f%%", r.TotalReturn*100),
			fmt.Sprintf("%.2f%%", r.MaxDrawdown*100),
			fmt.Sprintf("%.2f", r.SharpeRatio),
			formatFactor(r.ProfitFactor),
			r.TotalTrades,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "", "runs", len(records)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
		{Number: 10, Align: text.AlignRight},
	})
	t.Render()
	return nil
}

func formatParamsInline(params map[string]any) string {
	return text.WrapSoft(formatDefaults(params), 40)
}

func formatFactor(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsNaN(v):
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
