package main

import (
	"fmt"

	"github.com/emberdb/ember/docstore"
	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the data file as a minimal snapshot",
	Long: `Compact replaces the append-only log with a single snapshot line per
live document and index, discarding every tombstone and superseded write.`,
	Args: cobra.NoArgs,
	RunE: runCompact,
}

func init() {
	rootCmd.AddCommand(compactCmd)
}

func runCompact(cmd *cobra.Command, args []string) error {
	ds, err := openStore()
	if err != nil {
		return err
	}
	defer ds.Close()

	var stats docstore.CompactionStats
	ds.OnCompaction(func(s docstore.CompactionStats) { stats = s })

	if err := ds.Compact(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(
		fmt.Sprintf("compacted: %d live document(s), %d index(es)", stats.LiveDocuments, stats.Indexes)))
	return nil
}
