package docstore

// Cursor is a chainable query builder wrapping Datastore.Find: Sort, Skip,
// Limit, and Projection each return the same Cursor so calls can compose as
//
//	cur := ds.Query(query).Sort(SortKey{"age", -1}).Skip(10).Limit(5)
//	docs, err := cur.Exec()
type Cursor struct {
	ds    *Datastore
	query *Doc
	opts  FindOptions
}

// Query starts a Cursor over query. A nil query matches every document.
func (ds *Datastore) Query(query *Doc) *Cursor {
	if query == nil {
		query = NewDoc()
	}
	return &Cursor{ds: ds, query: query}
}

// Sort appends sort keys, applied in the order given.
func (c *Cursor) Sort(keys ...SortKey) *Cursor {
	c.opts.Sort = append(c.opts.Sort, keys...)
	return c
}

// Skip sets the number of matched documents to drop before limiting.
func (c *Cursor) Skip(n int) *Cursor {
	c.opts.Skip = n
	return c
}

// Limit caps the number of documents returned; zero means unlimited.
func (c *Cursor) Limit(n int) *Cursor {
	c.opts.Limit = n
	return c
}

// Projection sets the field-inclusion/exclusion map applied to each result.
func (c *Cursor) Projection(proj map[string]int) *Cursor {
	c.opts.Projection = proj
	return c
}

// Exec runs the query and returns the resulting documents.
func (c *Cursor) Exec() ([]*Doc, error) {
	return c.ds.Find(c.query, c.opts)
}

// Count runs the query and returns the number of matches, ignoring any
// configured skip/limit/projection (matching Datastore.Count's contract).
func (c *Cursor) Count() (int, error) {
	return c.ds.Count(c.query)
}
