// Package emberstat computes the summary statistics emberctl's "stats"
// subcommand prints: document and index counts over an open store.
package emberstat

import "github.com/emberdb/ember/docstore"

// Report is a point-in-time summary of one Datastore.
type Report struct {
	Filename      string
	DocumentCount int
	Indexes       []docstore.IndexInfo
}

// Compute builds a Report for ds, which the caller opened against filename.
func Compute(ds *docstore.Datastore, filename string) Report {
	return Report{
		Filename:      filename,
		DocumentCount: ds.DocumentCount(),
		Indexes:       ds.Indexes(),
	}
}
