package main

import (
	"fmt"

	"github.com/emberdb/ember/internal/emberstat"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print document and index counts for the data file",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ds, err := openStore()
	if err != nil {
		return err
	}
	defer ds.Close()

	report := emberstat.Compute(ds, dataFilePath())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(report.Filename))
	fmt.Fprintf(out, "%s %d\n", fieldStyle.Render("documents:"), report.DocumentCount)
	if len(report.Indexes) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no indexes"))
		return nil
	}
	fmt.Fprintln(out, fieldStyle.Render("indexes:"))
	for _, idx := range report.Indexes {
		flags := ""
		if idx.Unique {
			flags += " unique"
		}
		if idx.Sparse {
			flags += " sparse"
		}
		if idx.HasExpire {
			flags += fmt.Sprintf(" ttl=%gs", idx.ExpireAfterSeconds)
		}
		fmt.Fprintf(out, "  %s (%d keys)%s\n", idx.FieldName, idx.NumKeys, mutedStyle.Render(flags))
	}
	return nil
}
