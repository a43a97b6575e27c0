package main

import (
	"fmt"

	"github.com/emberdb/ember/docstore"
)

// parseDocArg parses a JSON-like document literal from the command line
// using the same decoder the store uses for its on-disk lines, so a
// document round-trips identically whether it arrives from a shell
// argument or from the data file.
func parseDocArg(s string) (*docstore.Doc, error) {
	v, err := docstore.Deserialize(s)
	if err != nil {
		return nil, fmt.Errorf("invalid document %q: %w", s, err)
	}
	d, ok := v.(*docstore.Doc)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %q", s)
	}
	return d, nil
}

func printDoc(d *docstore.Doc) {
	line, err := docstore.Serialize(d)
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(line)
}
