package main

import (
	"fmt"

	"github.com/emberdb/ember/docstore"
	"github.com/spf13/cobra"
)

var (
	updateMulti  bool
	updateUpsert bool
)

var updateCmd = &cobra.Command{
	Use:   "update <query> <update>",
	Short: "Update documents matching a query",
	Example: `  emberctl update '{"name":"alice"}' '{"$set":{"age":31}}'
  emberctl update '{"name":"bob"}' '{"$set":{"age":22}}' --upsert`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateMulti, "multi", false, "apply to every matching document, not just the first")
	updateCmd.Flags().BoolVar(&updateUpsert, "upsert", false, "insert a document synthesized from the query if nothing matches")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	query, err := parseDocArg(args[0])
	if err != nil {
		return err
	}
	update, err := parseDocArg(args[1])
	if err != nil {
		return err
	}
	ds, err := openStore()
	if err != nil {
		return err
	}
	defer ds.Close()

	affected, docs, wasUpsert, err := ds.Update(query, update, docstore.UpdateOptions{
		Multi:             updateMulti,
		Upsert:            updateUpsert,
		ReturnUpdatedDocs: true,
	})
	if err != nil {
		return err
	}
	if wasUpsert {
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("upserted"))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("updated %d document(s)", affected)))
	}
	for _, d := range docs {
		printDoc(d)
	}
	return nil
}
