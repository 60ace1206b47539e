package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tablecfg/internal/core"
	"github.com/JonMunkholm/tablecfg/internal/core/tables"
	"github.com/JonMunkholm/tablecfg/internal/report"
)

type clearSummary struct {
	RunID      string                `json:"run_id"`
	Output     string                `json:"output"`
	Tables     int                   `json:"tables"`
	Assigned   [tables.SizeCount]int `json:"assigned"`
	TierErrors []tierIssue           `json:"tier_errors"`
}

type tierIssue struct {
	Size  string `json:"size"`
	File  string `json:"file"`
	Error string `json:"error"`
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var ids, output string
	var tiers [tables.SizeCount]string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Match table IDs against the four tier exports",
		Long: `Clear & Match reads a UTF-8 list of table IDs and the UTF-16 Large,
Medium, Small and XSmall exports, and writes each valid ID's limit per tier
to an xlsx workbook. A tier export that cannot be read leaves its column
empty and is reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var files openedFiles
			defer files.close()

			in := core.ClearInput{}
			var err error
			if in.IDs, err = files.open(ids); err != nil {
				return err
			}
			for _, size := range tables.Sizes {
				if in.Tiers[size], err = files.open(tiers[size]); err != nil {
					return err
				}
			}

			res, err := ctx.service().RunClear(cmd.Context(), in)
			if err != nil {
				return err
			}
			if err := writeWorkbook(output, res.Workbook); err != nil {
				return err
			}

			summary := clearSummary{
				RunID:      res.RunID,
				Output:     output,
				Tables:     len(res.Rows),
				TierErrors: []tierIssue{},
			}
			for _, row := range res.Rows {
				for _, size := range tables.Sizes {
					if row[1+int(size)] != "" {
						summary.Assigned[size]++
					}
				}
			}
			for _, te := range res.TierErrors {
				summary.TierErrors = append(summary.TierErrors, tierIssue{
					Size:  te.Size.Key(),
					File:  te.File,
					Error: core.FormatUserError(te.Err),
				})
			}

			if ctx.jsonOut {
				return writeJSON(cmd, summary)
			}
			printClearSummary(cmd, summary)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&ids, "ids", "", "Table ID list (UTF-8 CSV)")
	for _, size := range tables.Sizes {
		flags.StringVar(&tiers[size], size.Key(), "", fmt.Sprintf("%s tier export (UTF-16)", size))
	}
	flags.StringVarP(&output, "output", "o", report.ClearFileName, "Workbook to write")

	return cmd
}

func printClearSummary(cmd *cobra.Command, s clearSummary) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, tables.SizeCount)
	failed := make(map[string]string, len(s.TierErrors))
	for _, te := range s.TierErrors {
		failed[te.Size] = te.Error
	}
	for _, size := range tables.Sizes {
		status := "ok"
		if msg, ok := failed[size.Key()]; ok {
			status = msg
		}
		rows = append(rows, []string{size.String(), strconv.Itoa(s.Assigned[size]), status})
	}

	fmt.Fprintf(out, "Run %s: %d tables written to %s\n", s.RunID, s.Tables, s.Output)
	fmt.Fprintln(out, renderTable(out, []string{"Tier", "Assigned", "Status"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft}))
}
