package main

import (
	"fmt"

	"github.com/emberdb/ember/docstore"
	"github.com/spf13/cobra"
)

var removeMulti bool

var removeCmd = &cobra.Command{
	Use:     "remove <query>",
	Short:   "Remove documents matching a query",
	Example: `  emberctl remove '{"name":"alice"}' --multi`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&removeMulti, "multi", false, "remove every matching document, not just the first")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	query, err := parseDocArg(args[0])
	if err != nil {
		return err
	}
	ds, err := openStore()
	if err != nil {
		return err
	}
	defer ds.Close()

	n, err := ds.Remove(query, docstore.RemoveOptions{Multi: removeMulti})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("removed %d document(s)", n)))
	return nil
}
