package main

import (
	"fmt"

	"github.com/emberdb/ember/docstore"
	"github.com/spf13/cobra"
)

var (
	indexUnique          bool
	indexSparse          bool
	indexExpireAfterSecs float64
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage indexes on the data file",
}

var indexEnsureCmd = &cobra.Command{
	Use:     "ensure <field>",
	Short:   "Create or confirm an index on a field",
	Example: `  emberctl index ensure email --unique`,
	Args:    cobra.ExactArgs(1),
	RunE:    runIndexEnsure,
}

var indexRemoveCmd = &cobra.Command{
	Use:     "remove <field>",
	Short:   "Remove an index from a field",
	Example: `  emberctl index remove email`,
	Args:    cobra.ExactArgs(1),
	RunE:    runIndexRemove,
}

func init() {
	indexEnsureCmd.Flags().BoolVar(&indexUnique, "unique", false, "reject documents whose value duplicates an existing key")
	indexEnsureCmd.Flags().BoolVar(&indexSparse, "sparse", false, "skip documents missing the field instead of indexing them as undefined")
	indexEnsureCmd.Flags().Float64Var(&indexExpireAfterSecs, "ttl", 0, "expire documents this many seconds after the indexed timestamp")

	indexCmd.AddCommand(indexEnsureCmd, indexRemoveCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexEnsure(cmd *cobra.Command, args []string) error {
	field := args[0]
	ds, err := openStore()
	if err != nil {
		return err
	}
	defer ds.Close()

	opts := docstore.EnsureIndexOptions{
		FieldName: field,
		Unique:    indexUnique,
		Sparse:    indexSparse,
	}
	if cmd.Flags().Changed("ttl") {
		opts.HasExpire = true
		opts.ExpireAfterSeconds = indexExpireAfterSecs
	}
	if err := ds.EnsureIndex(opts); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("index on %q ready", field)))
	return nil
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	field := args[0]
	ds, err := openStore()
	if err != nil {
		return err
	}
	defer ds.Close()

	if err := ds.RemoveIndex(field); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("index on %q removed", field)))
	return nil
}
