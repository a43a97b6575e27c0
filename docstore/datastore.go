package docstore

import (
	"context"
	"io"
	"log"
	"sort"
	"sync"
	"time"
)

// Options configures a Datastore at open time.
type Options struct {
	Filename              string
	InMemoryOnly          bool
	Autoload              bool
	TimestampData         bool
	CorruptAlertThreshold float64
	AfterSerialization    func(string) string
	BeforeDeserialization func(string) string
	// OnLoad receives the result of the autoload triggered by Autoload, in
	// place of failing Open outright — the Go analogue of the source's
	// onload callback. If nil and Autoload fails, Open returns the error.
	OnLoad func(error)
	// Logger receives diagnostics (external-write warnings, none else by
	// default); defaults to a discarding logger.
	Logger *log.Logger
	// WatchExternalWrites enables the fsnotify-based diagnostic watcher
	// described in SPEC_FULL.md's domain stack section.
	WatchExternalWrites bool
}

// UpdateOptions controls Datastore.Update.
type UpdateOptions struct {
	Multi             bool
	Upsert            bool
	ReturnUpdatedDocs bool
}

// RemoveOptions controls Datastore.Remove.
type RemoveOptions struct {
	Multi bool
}

// EnsureIndexOptions describes an index to create.
type EnsureIndexOptions struct {
	FieldName          string
	Unique             bool
	Sparse             bool
	ExpireAfterSeconds float64
	HasExpire          bool
}

// FindOptions controls Datastore.Find: sort keys (applied in order),
// skip/limit (applied after sort), and an optional projection.
type FindOptions struct {
	Sort       []SortKey
	Skip       int
	Limit      int
	Projection map[string]int
}

// SortKey is one (field, direction) pair; Order is +1 (ascending) or -1
// (descending).
type SortKey struct {
	Field string
	Order int
}

// Datastore is the CRUD coordinator: every mutating call and every read
// that needs a consistent snapshot passes through a single FIFO Executor,
// keeping indexes, in-memory documents, and the persisted log coherent.
type Datastore struct {
	mu            sync.RWMutex
	docs          map[string]*Doc
	order         []string
	indexes       map[string]*Index
	persistence   *Persistence
	executor      *Executor
	logger        *log.Logger
	timestampData bool
	watcher       *changeWatcher
}

// Open constructs a Datastore per opts. When opts.Autoload is set, it loads
// the data file immediately; a load failure is routed to opts.OnLoad if
// set, otherwise returned from Open.
func Open(opts Options) (*Datastore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	persist, err := NewPersistence(PersistenceOptions{
		Filename:              opts.Filename,
		InMemoryOnly:          opts.InMemoryOnly,
		CorruptAlertThreshold: opts.CorruptAlertThreshold,
		AfterSerialization:    opts.AfterSerialization,
		BeforeDeserialization: opts.BeforeDeserialization,
	})
	if err != nil {
		return nil, err
	}
	ds := &Datastore{
		docs:          make(map[string]*Doc),
		indexes:       map[string]*Index{"_id": NewIndex(IndexOptions{FieldName: "_id", Unique: true})},
		persistence:   persist,
		executor:      NewExecutor(),
		logger:        logger,
		timestampData: opts.TimestampData,
	}
	if opts.WatchExternalWrites && !persist.InMemoryOnly {
		w, werr := newChangeWatcher(persist.Filename, logger)
		if werr != nil {
			logger.Printf("docstore: external-write watch disabled: %v", werr)
		} else {
			ds.watcher = w
		}
	}
	if opts.Autoload {
		_, loadErr := ds.LoadDatabase()
		if loadErr != nil {
			if opts.OnLoad != nil {
				opts.OnLoad(loadErr)
			} else {
				ds.executor.Stop()
				return nil, loadErr
			}
		} else if opts.OnLoad != nil {
			opts.OnLoad(nil)
		}
	}
	return ds, nil
}

// Close stops the executor and any active file watcher. No explicit close
// is required for data durability (every append is already fsynced); Close
// only releases in-process resources.
func (ds *Datastore) Close() error {
	ds.executor.Stop()
	if ds.watcher != nil {
		return ds.watcher.Close()
	}
	return nil
}

// OnCompaction registers fn to run after every successful compaction.
func (ds *Datastore) OnCompaction(fn func(CompactionStats)) {
	ds.persistence.OnCompaction(fn)
}

// IndexInfo describes one live index, the shape a stats/inspection surface
// needs without reaching into Datastore internals.
type IndexInfo struct {
	FieldName          string
	Unique             bool
	Sparse             bool
	ExpireAfterSeconds float64
	HasExpire          bool
	NumKeys            int
}

// Indexes returns a snapshot describing every index currently defined,
// including the always-present _id index.
func (ds *Datastore) Indexes() []IndexInfo {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	out := make([]IndexInfo, 0, len(ds.indexes))
	for _, fname := range ds.sortedIndexNames() {
		ix := ds.indexes[fname]
		out = append(out, IndexInfo{
			FieldName:          ix.FieldName,
			Unique:             ix.Unique,
			Sparse:             ix.Sparse,
			ExpireAfterSeconds: ix.ExpireAfterSeconds,
			HasExpire:          ix.HasExpire,
			NumKeys:            ix.NumKeys(),
		})
	}
	return out
}

// DocumentCount returns the number of live documents without copying them,
// cheaper than len(GetAllData()) for a stats-only caller.
func (ds *Datastore) DocumentCount() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return len(ds.order)
}

// Compact rewrites the data file to its minimal snapshot in place, without
// reloading from disk first — the operation an application schedules
// periodically once the append log has accumulated many superseded lines.
func (ds *Datastore) Compact() error {
	_, err := ds.executor.Submit(func() (any, error) {
		ds.mu.Lock()
		defer ds.mu.Unlock()
		return nil, ds.compactLocked()
	})
	return err
}

// LoadDatabase delegates to Persistence, resets every index, and replays
// the log, finishing with a compaction to collapse it to a minimal
// snapshot. It returns the number of live documents loaded.
func (ds *Datastore) LoadDatabase() (int, error) {
	v, err := ds.executor.Submit(func() (any, error) {
		return ds.loadDatabaseTask()
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (ds *Datastore) loadDatabaseTask() (int, error) {
	docsMap, order, specs, err := ds.persistence.Load()
	if err != nil {
		return 0, err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.docs = docsMap
	ds.order = order
	ds.indexes = map[string]*Index{"_id": NewIndex(IndexOptions{FieldName: "_id", Unique: true})}
	liveDocs := ds.allDocsLocked()
	if err := ds.indexes["_id"].Reset(liveDocs); err != nil {
		return 0, err
	}
	for fname, spec := range specs {
		ix := NewIndex(IndexOptions{
			FieldName:          spec.FieldName,
			Unique:             spec.Unique,
			Sparse:             spec.Sparse,
			ExpireAfterSeconds: spec.ExpireAfterSeconds,
			HasExpire:          spec.HasExpire,
		})
		if err := ix.Reset(liveDocs); err != nil {
			ds.docs = map[string]*Doc{}
			ds.order = nil
			ds.indexes = map[string]*Index{"_id": NewIndex(IndexOptions{FieldName: "_id", Unique: true})}
			return 0, err
		}
		ds.indexes[fname] = ix
	}
	if err := ds.compactLocked(); err != nil {
		return 0, err
	}
	return len(liveDocs), nil
}

func (ds *Datastore) compactLocked() error {
	liveDocs := ds.allDocsLocked()
	var specs []indexSpec
	for fname, ix := range ds.indexes {
		if fname == "_id" {
			continue
		}
		specs = append(specs, indexSpec{
			FieldName:          ix.FieldName,
			Unique:             ix.Unique,
			Sparse:             ix.Sparse,
			ExpireAfterSeconds: ix.ExpireAfterSeconds,
			HasExpire:          ix.HasExpire,
		})
	}
	if ds.watcher != nil {
		ds.watcher.markSelfWrite()
	}
	return ds.persistence.Compact(liveDocs, specs)
}

func (ds *Datastore) allDocsLocked() []*Doc {
	out := make([]*Doc, 0, len(ds.order))
	for _, id := range ds.order {
		out = append(out, ds.docs[id])
	}
	return out
}

// GetAllData returns an immediate, deep-copied snapshot of every live
// document. Unlike the CRUD operations it does not go through the
// executor — it is documented as synchronous — but it still takes the
// same mutex every mutation holds, so it never observes a half-applied
// write.
func (ds *Datastore) GetAllData() []*Doc {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	out := make([]*Doc, 0, len(ds.order))
	for _, id := range ds.order {
		out = append(out, CopyValue(ds.docs[id], false).(*Doc))
	}
	return out
}

func (ds *Datastore) sortedIndexNames() []string {
	names := make([]string, 0, len(ds.indexes))
	for n := range ds.indexes {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == "_id" {
			return true
		}
		if names[j] == "_id" {
			return false
		}
		return names[i] < names[j]
	})
	return names
}

func isFalsyID(v Value) bool { return !isTruthy(v) }

// Insert validates and inserts one or more documents as a single
// all-or-nothing batch, applying timestamp fields if configured and
// auto-assigning any missing or falsy _id.
func (ds *Datastore) Insert(docs ...*Doc) ([]*Doc, error) {
	v, err := ds.executor.Submit(func() (any, error) {
		return ds.insertTask(docs)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Doc), nil
}

func (ds *Datastore) insertTask(docs []*Doc) ([]*Doc, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	prepared := make([]*Doc, 0, len(docs))
	for _, d := range docs {
		nd, ok := CopyValue(d, true).(*Doc)
		if !ok {
			return nil, newErr(ErrInvalidModifier, "insert target is not a document")
		}
		if idv, ok := nd.Get("_id"); !ok || isFalsyID(idv) {
			nd.Set("_id", GenerateID())
		}
		if ds.timestampData {
			now := Now()
			if _, ok := nd.Get("createdAt"); !ok {
				nd.Set("createdAt", now)
			}
			if _, ok := nd.Get("updatedAt"); !ok {
				nd.Set("updatedAt", now)
			}
		}
		if err := checkDocumentFields(nd); err != nil {
			return nil, err
		}
		prepared = append(prepared, nd)
	}

	names := ds.sortedIndexNames()
	var fullyApplied []string
	for _, fname := range names {
		ix := ds.indexes[fname]
		var done []*Doc
		var failErr error
		for _, nd := range prepared {
			if err := ix.Insert(nd); err != nil {
				failErr = err
				break
			}
			done = append(done, nd)
		}
		if failErr != nil {
			for _, nd := range done {
				ix.Remove(nd)
			}
			for _, prevName := range fullyApplied {
				prevIx := ds.indexes[prevName]
				for _, nd := range prepared {
					prevIx.Remove(nd)
				}
			}
			return nil, failErr
		}
		fullyApplied = append(fullyApplied, fname)
	}

	for _, nd := range prepared {
		id := docID(nd)
		if _, existed := ds.docs[id]; !existed {
			ds.order = append(ds.order, id)
		}
		ds.docs[id] = nd
		if err := ds.persistence.Append(nd); err != nil {
			return nil, err
		}
	}
	out := make([]*Doc, len(prepared))
	for i, nd := range prepared {
		out[i] = CopyValue(nd, false).(*Doc)
	}
	return out, nil
}

// candidatesLocked implements index-assisted candidate selection: the
// first top-level query clause (in declared order) that an index can
// serve wins; everything else falls back to a full scan. Caller must hold
// ds.mu.
func (ds *Datastore) candidatesLocked(query *Doc) []*Doc {
	for _, c := range clausesOf(query) {
		ix, ok := ds.indexes[c.field]
		if !ok {
			continue
		}
		if opDoc, ok := c.value.(*Doc); ok && isOperatorObject(opDoc) {
			if inVal, ok := opDoc.Get("$in"); ok && opDoc.Len() == 1 {
				if arr, ok := inVal.(Array); ok {
					return ix.GetMatchingKeys(arr)
				}
			}
			if bounds, ok := boundsFromOperatorDoc(opDoc); ok {
				return ix.GetBetweenBounds(bounds)
			}
			continue
		}
		if _, isArray := c.value.(Array); isArray {
			// A literal array is a whole-array equality test, not an
			// index-servable key: array-valued documents are fanned out
			// into per-element keys (index.go's projectKeys), so no tree
			// entry for the whole array ever exists. Using the index here
			// would make indexing change query results; fall through to
			// the next clause or a full scan instead.
			continue
		}
		return ix.GetMatching(c.value)
	}
	return ds.allDocsLocked()
}

func boundsFromOperatorDoc(d *Doc) (Bounds, bool) {
	var b Bounds
	found := false
	for _, k := range d.keys {
		switch k {
		case "$gt":
			b.GT, b.HasGT = d.fields[k], true
			found = true
		case "$gte":
			b.GTE, b.HasGTE = d.fields[k], true
			found = true
		case "$lt":
			b.LT, b.HasLT = d.fields[k], true
			found = true
		case "$lte":
			b.LTE, b.HasLTE = d.fields[k], true
			found = true
		default:
			return Bounds{}, false
		}
	}
	return b, found
}

// ttlFilterLocked drops and eagerly removes candidates whose TTL-indexed
// timestamp field has expired, the read-piggybacked expiry the spec
// requires (no background sweeper). Caller must hold ds.mu for writing.
func (ds *Datastore) ttlFilterLocked(candidates []*Doc) []*Doc {
	var ttlIndexes []*Index
	for _, ix := range ds.indexes {
		if ix.HasExpire {
			ttlIndexes = append(ttlIndexes, ix)
		}
	}
	if len(ttlIndexes) == 0 {
		return candidates
	}
	out := make([]*Doc, 0, len(candidates))
	for _, d := range candidates {
		expired := false
		for _, ix := range ttlIndexes {
			ts, ok := GetDotValue(d, ix.FieldName).(Timestamp)
			if !ok {
				continue
			}
			if time.Since(ts.Time()) > time.Duration(ix.ExpireAfterSeconds*float64(time.Second)) {
				expired = true
				break
			}
		}
		if expired {
			_ = ds.removeDocLocked(d)
		} else {
			out = append(out, d)
		}
	}
	return out
}

func (ds *Datastore) removeDocLocked(doc *Doc) error {
	for _, ix := range ds.indexes {
		ix.Remove(doc)
	}
	id := docID(doc)
	delete(ds.docs, id)
	ds.order = removeFromOrder(ds.order, id)
	return ds.persistence.AppendTombstone(id)
}

// RemoveExpired is an explicit maintenance hook an application can invoke
// from its own ticker to reclaim space held by TTL-expired documents that
// no query has touched yet, supplementing (not replacing) the
// read-triggered expiry above.
func (ds *Datastore) RemoveExpired(_ context.Context) (int, error) {
	v, err := ds.executor.Submit(func() (any, error) {
		ds.mu.Lock()
		defer ds.mu.Unlock()
		all := ds.allDocsLocked()
		remaining := ds.ttlFilterLocked(all)
		return len(all) - len(remaining), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func validateProjection(proj map[string]int) error {
	if proj == nil {
		return nil
	}
	mode := 0
	for k, v := range proj {
		if k == "_id" {
			continue
		}
		if v != 0 && v != 1 {
			return newErr(ErrInvalidQuery, "projection values must be 0 or 1")
		}
		m := 1
		if v == 0 {
			m = -1
		}
		if mode == 0 {
			mode = m
		} else if mode != m {
			return newErr(ErrInvalidQuery, "projection cannot mix inclusion and exclusion")
		}
	}
	return nil
}

func applyProjection(d *Doc, proj map[string]int) *Doc {
	include, exclude := false, false
	for k, v := range proj {
		if k == "_id" {
			continue
		}
		if v == 1 {
			include = true
		} else {
			exclude = true
		}
	}
	if include {
		out := NewDoc()
		for k, v := range proj {
			if v != 1 || k == "_id" {
				continue
			}
			if fv, ok := d.Get(k); ok {
				out.Set(k, fv)
			}
		}
		if v, ok := proj["_id"]; !ok || v == 1 {
			if idv, ok := d.Get("_id"); ok {
				out.Set("_id", idv)
			}
		}
		return out
	}
	if exclude {
		out := d.Clone()
		for k, v := range proj {
			if v == 0 {
				out.Delete(k)
			}
		}
		return out
	}
	return d
}

// Find resolves query against candidate documents selected via
// candidatesLocked, filters with Match, then sorts/skips/limits/projects.
func (ds *Datastore) Find(query *Doc, opts FindOptions) ([]*Doc, error) {
	v, err := ds.executor.Submit(func() (any, error) {
		return ds.findTask(query, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Doc), nil
}

func (ds *Datastore) findTask(query *Doc, opts FindOptions) ([]*Doc, error) {
	if err := validateProjection(opts.Projection); err != nil {
		return nil, err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()

	cands := ds.candidatesLocked(query)
	cands = ds.ttlFilterLocked(cands)

	var matched []*Doc
	for _, d := range cands {
		ok, err := Match(query, d)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, d)
		}
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, sk := range opts.Sort {
				a := GetDotValue(matched[i], sk.Field)
				b := GetDotValue(matched[j], sk.Field)
				c := CompareValues(a, b, nil)
				if c == 0 {
					continue
				}
				if sk.Order < 0 {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if opts.Skip > 0 {
		if opts.Skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}

	out := make([]*Doc, len(matched))
	for i, d := range matched {
		out[i] = CopyValue(d, false).(*Doc)
	}
	if opts.Projection != nil {
		for i, d := range out {
			out[i] = applyProjection(d, opts.Projection)
		}
	}
	return out, nil
}

// FindOne is Find with an implicit limit of one, returning nil when no
// document matches.
func (ds *Datastore) FindOne(query *Doc, proj map[string]int) (*Doc, error) {
	docs, err := ds.Find(query, FindOptions{Projection: proj, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Count returns the number of documents matching query.
func (ds *Datastore) Count(query *Doc) (int, error) {
	docs, err := ds.Find(query, FindOptions{})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

type updateResult struct {
	affected  int
	docs      []*Doc
	wasUpsert bool
}

// Update resolves query against live documents and applies update to each
// match (the first only, unless opts.Multi). With opts.Upsert and zero
// matches, it synthesizes a document from query's literal equalities and
// inserts it instead.
func (ds *Datastore) Update(query, update *Doc, opts UpdateOptions) (int, []*Doc, bool, error) {
	v, err := ds.executor.Submit(func() (any, error) {
		return ds.updateTask(query, update, opts)
	})
	if err != nil {
		return 0, nil, false, err
	}
	r := v.(updateResult)
	return r.affected, r.docs, r.wasUpsert, nil
}

func (ds *Datastore) updateTask(query, update *Doc, opts UpdateOptions) (updateResult, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	cands := ds.candidatesLocked(query)
	cands = ds.ttlFilterLocked(cands)
	var matched []*Doc
	for _, d := range cands {
		ok, err := Match(query, d)
		if err != nil {
			return updateResult{}, err
		}
		if !ok {
			continue
		}
		matched = append(matched, d)
		if !opts.Multi {
			break
		}
	}

	if len(matched) == 0 {
		if !opts.Upsert {
			return updateResult{}, nil
		}
		newDoc, err := ds.synthesizeUpsert(query, update)
		if err != nil {
			return updateResult{}, err
		}
		inserted, err := ds.insertTask([]*Doc{newDoc})
		if err != nil {
			return updateResult{}, err
		}
		return updateResult{affected: 1, docs: inserted, wasUpsert: true}, nil
	}

	newDocs := make([]*Doc, 0, len(matched))
	for _, old := range matched {
		nd, err := Modify(old, update)
		if err != nil {
			return updateResult{}, err
		}
		if !AreThingsEqual(old.GetOr("_id"), nd.GetOr("_id")) {
			return updateResult{}, newErr(ErrInvalidModifier, "update would change _id")
		}
		if err := checkDocumentFields(nd); err != nil {
			return updateResult{}, err
		}
		newDocs = append(newDocs, nd)
	}

	pairs := make([]DocPair, len(matched))
	for i := range matched {
		pairs[i] = DocPair{Old: matched[i], New: newDocs[i]}
	}

	names := ds.sortedIndexNames()
	var fullyApplied []string
	for _, fname := range names {
		ix := ds.indexes[fname]
		if err := ix.UpdateBatch(pairs); err != nil {
			for _, prevName := range fullyApplied {
				ds.indexes[prevName].RevertUpdate(pairs)
			}
			return updateResult{}, err
		}
		fullyApplied = append(fullyApplied, fname)
	}

	for i, old := range matched {
		id := docID(old)
		ds.docs[id] = newDocs[i]
		if err := ds.persistence.Append(newDocs[i]); err != nil {
			return updateResult{}, err
		}
	}

	var outDocs []*Doc
	if opts.ReturnUpdatedDocs {
		for _, nd := range newDocs {
			outDocs = append(outDocs, CopyValue(nd, false).(*Doc))
		}
	}
	return updateResult{affected: len(matched), docs: outDocs}, nil
}

// synthesizeUpsert builds the document an upsert with zero matches
// inserts: query's literal top-level equalities seeded as fields, then
// update applied against that seed exactly as an insert would see it.
func (ds *Datastore) synthesizeUpsert(query, update *Doc) (*Doc, error) {
	base := NewDoc()
	for _, c := range clausesOf(query) {
		if opDoc, ok := c.value.(*Doc); ok && isOperatorObject(opDoc) {
			continue
		}
		base.Set(c.field, c.value)
	}
	isMod, err := isModifierUpdate(update)
	if err != nil {
		return nil, err
	}
	if !isMod {
		repl, ok := CopyValue(update, true).(*Doc)
		if !ok {
			return nil, newErr(ErrInvalidModifier, "replacement update must be a document")
		}
		return repl, nil
	}
	return Modify(base, update)
}

// Remove resolves query against live documents and deletes the first match
// (or every match, with opts.Multi), appending a tombstone per removal.
func (ds *Datastore) Remove(query *Doc, opts RemoveOptions) (int, error) {
	v, err := ds.executor.Submit(func() (any, error) {
		return ds.removeTask(query, opts)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (ds *Datastore) removeTask(query *Doc, opts RemoveOptions) (int, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	cands := ds.candidatesLocked(query)
	cands = ds.ttlFilterLocked(cands)
	var matched []*Doc
	for _, d := range cands {
		ok, err := Match(query, d)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		matched = append(matched, d)
		if !opts.Multi {
			break
		}
	}
	for _, d := range matched {
		if err := ds.removeDocLocked(d); err != nil {
			return 0, err
		}
	}
	return len(matched), nil
}

// EnsureIndex creates an Index per opts, idempotently if called again with
// identical options; divergent options on an existing field are rejected
// (see DESIGN.md's resolution of the ensureIndex Open Question).
func (ds *Datastore) EnsureIndex(opts EnsureIndexOptions) error {
	_, err := ds.executor.Submit(func() (any, error) {
		return nil, ds.ensureIndexTask(opts)
	})
	return err
}

func (ds *Datastore) ensureIndexTask(opts EnsureIndexOptions) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ixOpts := IndexOptions{
		FieldName:          opts.FieldName,
		Unique:             opts.Unique,
		Sparse:             opts.Sparse,
		ExpireAfterSeconds: opts.ExpireAfterSeconds,
		HasExpire:          opts.HasExpire,
	}
	if existing, ok := ds.indexes[opts.FieldName]; ok {
		if existing.SameOptions(ixOpts) {
			return nil
		}
		return newErr(ErrInvalidQuery, "ensureIndex: field %q is already indexed with different options", opts.FieldName)
	}
	ix := NewIndex(ixOpts)
	if err := ix.Reset(ds.allDocsLocked()); err != nil {
		return err
	}
	ds.indexes[opts.FieldName] = ix
	return ds.persistence.AppendIndexCreated(indexSpec{
		FieldName:          opts.FieldName,
		Unique:             opts.Unique,
		Sparse:             opts.Sparse,
		ExpireAfterSeconds: opts.ExpireAfterSeconds,
		HasExpire:          opts.HasExpire,
	})
}

// RemoveIndex destroys the index over fieldName, if any. The _id index
// cannot be removed.
func (ds *Datastore) RemoveIndex(fieldName string) error {
	_, err := ds.executor.Submit(func() (any, error) {
		return nil, ds.removeIndexTask(fieldName)
	})
	return err
}

func (ds *Datastore) removeIndexTask(fieldName string) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if fieldName == "_id" {
		return newErr(ErrInvalidQuery, "cannot remove the _id index")
	}
	if _, ok := ds.indexes[fieldName]; !ok {
		return nil
	}
	delete(ds.indexes, fieldName)
	return ds.persistence.AppendIndexRemoved(fieldName)
}
