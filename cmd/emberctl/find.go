package main

import (
	"fmt"
	"strings"

	"github.com/emberdb/ember/docstore"
	"github.com/spf13/cobra"
)

var (
	findSkip  int
	findLimit int
	findSort  string
)

var findCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Find documents matching a query",
	Long: `Find prints every document matching the query, or every document in the
store when no query is given. A query omitted entirely is the same as {}.`,
	Example: `  emberctl find '{"age":{"$gte":18}}' --sort age --limit 10`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runFind,
}

func init() {
	findCmd.Flags().IntVar(&findSkip, "skip", 0, "number of matching documents to skip")
	findCmd.Flags().IntVar(&findLimit, "limit", 0, "maximum number of documents to return (0 = no limit)")
	findCmd.Flags().StringVar(&findSort, "sort", "", "comma separated sort keys, prefix with - for descending")
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	query, err := parseQueryArg(args)
	if err != nil {
		return err
	}
	ds, err := openStore()
	if err != nil {
		return err
	}
	defer ds.Close()

	opts := docstore.FindOptions{
		Skip:  findSkip,
		Limit: findLimit,
		Sort:  parseSortArg(findSort),
	}
	docs, err := ds.Find(query, opts)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no matching documents"))
		return nil
	}
	for _, d := range docs {
		printDoc(d)
	}
	return nil
}

// parseQueryArg parses an optional query literal, defaulting to an empty
// (match-everything) query when no argument is given.
func parseQueryArg(args []string) (*docstore.Doc, error) {
	if len(args) == 0 {
		return docstore.NewDoc(), nil
	}
	return parseDocArg(args[0])
}

// parseSortArg turns "age,-name" into [{age asc} {name desc}].
func parseSortArg(s string) []docstore.SortKey {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	keys := make([]docstore.SortKey, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		order := 1
		if strings.HasPrefix(p, "-") {
			order = -1
			p = p[1:]
		}
		keys = append(keys, docstore.SortKey{Field: p, Order: order})
	}
	return keys
}
