package emberstat

import (
	"testing"

	"github.com/emberdb/ember/docstore"
)

func TestComputeReportsDocumentAndIndexCounts(t *testing.T) {
	ds, err := docstore.Open(docstore.Options{InMemoryOnly: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })

	if err := ds.EnsureIndex(docstore.EnsureIndexOptions{FieldName: "email", Unique: true}); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	insertDoc := docstore.NewDoc()
	insertDoc.Set("email", "a@x.com")
	if _, err := ds.Insert(insertDoc); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	report := Compute(ds, "in-memory")
	if report.DocumentCount != 1 {
		t.Errorf("DocumentCount = %d, want 1", report.DocumentCount)
	}
	if len(report.Indexes) != 2 { // _id plus email
		t.Errorf("len(Indexes) = %d, want 2", len(report.Indexes))
	}
}
