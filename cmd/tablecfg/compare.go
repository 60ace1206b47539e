package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tablecfg/internal/core"
	"github.com/JonMunkholm/tablecfg/internal/core/diff"
	"github.com/JonMunkholm/tablecfg/internal/core/tables"
	"github.com/JonMunkholm/tablecfg/internal/report"
)

type compareSummary struct {
	RunID     string              `json:"run_id"`
	Output    string              `json:"output"`
	Threshold int                 `json:"threshold"`
	Tables    int                 `json:"tables"`
	Flags     map[string][]string `json:"flags"`
	Warnings  []core.Warning      `json:"warnings"`
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var fileA, fileB, output string
	var threshold int
	var correctOnlyWhenWrong bool

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a submission parameter sheet against the reference",
		Long: `Compare reads two xlsx sheets with TableID, Large, Medium, Small and
XSmall columns. Sheet A is the reference, sheet B the submission. For every
table in both, each tier lists the submission's wrong assignments and the
reference's correct ones. Tiers with more wrong entries than the threshold
are highlighted in the workbook.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Zero means "use the default" to the service, so an explicit
			// flag is range checked here.
			if cmd.Flags().Changed("threshold") {
				if err := diff.ValidateThreshold(threshold); err != nil {
					return err
				}
			}

			var files openedFiles
			defer files.close()

			in := core.CompareInput{Threshold: threshold}
			var err error
			if in.Reference, err = files.open(fileA); err != nil {
				return err
			}
			if in.Submission, err = files.open(fileB); err != nil {
				return err
			}
			if cmd.Flags().Changed("correct-only-when-wrong") {
				in.CorrectOnlyWhenWrong = &correctOnlyWhenWrong
			}

			res, err := ctx.service().RunCompare(cmd.Context(), in)
			if err != nil {
				return err
			}
			if err := writeWorkbook(output, res.Workbook); err != nil {
				return err
			}

			summary := compareSummary{
				RunID:     res.RunID,
				Output:    output,
				Threshold: res.Diff.Threshold,
				Tables:    len(res.Diff.Rows),
				Flags:     make(map[string][]string, len(res.Diff.Flags)),
				Warnings:  res.Warnings,
			}
			for id, sizes := range res.Diff.Flags {
				for _, size := range sizes {
					summary.Flags[id] = append(summary.Flags[id], size.Key())
				}
			}
			if summary.Warnings == nil {
				summary.Warnings = []core.Warning{}
			}

			if ctx.jsonOut {
				return writeJSON(cmd, summary)
			}
			printCompareSummary(cmd, res)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&fileA, "a", "", "Reference sheet (xlsx)")
	flags.StringVar(&fileB, "b", "", "Submission sheet (xlsx)")
	flags.IntVar(&threshold, "threshold", 0, "Wrong entries a tier may have before it is flagged (default from COMPARE_DEFAULT_THRESHOLD)")
	flags.BoolVar(&correctOnlyWhenWrong, "correct-only-when-wrong", false, "Fill Full Correct only for tiers with wrong entries")
	flags.StringVarP(&output, "output", "o", report.ComparisonFileName, "Workbook to write")

	return cmd
}

// printCompareSummary lists flagged tables with their wrong counts per tier.
func printCompareSummary(cmd *cobra.Command, res *core.CompareResult) {
	out := cmd.OutOrStdout()
	d := res.Diff

	fmt.Fprintf(out, "Run %s: %d tables compared, %d flagged (threshold %d)\n",
		res.RunID, len(d.Rows), len(d.Flags), d.Threshold)

	if len(d.Flags) > 0 {
		headers := []string{"TableID"}
		aligns := []columnAlignment{alignLeft}
		for _, size := range tables.Sizes {
			headers = append(headers, "Wrong "+size.String())
			aligns = append(aligns, alignRight)
		}

		var rows [][]string
		for _, row := range d.Rows {
			sizes := d.Flags[row.TableID]
			if len(sizes) == 0 {
				continue
			}
			line := []string{row.TableID}
			for _, size := range tables.Sizes {
				n := strconv.Itoa(len(row.Tiers[size].Wrong))
				if d.Flags.Flagged(row.TableID, size) {
					n += "*"
				}
				line = append(line, n)
			}
			rows = append(rows, line)
		}
		fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning: %s: %s\n", w.Message, strings.Join(w.TableIDs, ", "))
	}
}
