package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var insertCmd = &cobra.Command{
	Use:   "insert <json-doc>",
	Short: "Insert one document",
	Example: `  emberctl insert '{"name":"alice","age":30}'`,
	Args: cobra.ExactArgs(1),
	RunE: runInsert,
}

func init() {
	rootCmd.AddCommand(insertCmd)
}

func runInsert(cmd *cobra.Command, args []string) error {
	d, err := parseDocArg(args[0])
	if err != nil {
		return err
	}
	ds, err := openStore()
	if err != nil {
		return err
	}
	defer ds.Close()

	inserted, err := ds.Insert(d)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("inserted"))
	printDoc(inserted[0])
	return nil
}
