package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/ducminhle1904/regime-backtester/internal/strategy"
)

// strategiesCmd lists the built-in signal generators
var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategies and their default parameters",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetTitle("STRATEGIES")
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Name", "Description", "Default Parameters"})

		for _, name := range strategy.Available() {
			t.AppendRow(table.Row{name, strategy.Describe(name), formatDefaults(strategy.DefaultParameters(name))})
			t.AppendSeparator()
		}

		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, WidthMin: 14, Align: text.AlignLeft},
			{Number: 2, WidthMax: 50, Align: text.AlignLeft},
			{Number: 3, WidthMax: 30, Align: text.AlignLeft},
		})
		t.Render()
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func formatDefaults(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return strings.Join(lines, "\n")
}
