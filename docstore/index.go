package docstore

import "github.com/google/btree"

// indexEntry is one (key, document) pairing stored in an Index's tree. id
// is the owning document's _id, used only to disambiguate entries sharing
// an equal key (duplicates are expected in non-unique indexes and during
// array fan-out).
type indexEntry struct {
	key Value
	id  string
	doc *Doc
}

// DocPair is an (old, new) document pairing passed to Index.UpdateBatch;
// old is nil for a pure insert within a batch.
type DocPair struct {
	Old, New *Doc
}

// IndexOptions configures a new Index.
type IndexOptions struct {
	FieldName          string
	Unique             bool
	Sparse             bool
	ExpireAfterSeconds float64
	HasExpire          bool
	StringCompare      StringCompare
}

// Index maintains, for one field path, a balanced-tree mapping from
// projected key to the documents producing that key. It enforces the
// unique/sparse options and supports all-or-nothing batch updates.
type Index struct {
	FieldName          string
	Unique             bool
	Sparse             bool
	ExpireAfterSeconds float64
	HasExpire          bool

	cmp  StringCompare
	tree *btree.BTreeG[indexEntry]
}

// NewIndex constructs an empty Index per opts.
func NewIndex(opts IndexOptions) *Index {
	ix := &Index{
		FieldName:          opts.FieldName,
		Unique:             opts.Unique,
		Sparse:             opts.Sparse,
		ExpireAfterSeconds: opts.ExpireAfterSeconds,
		HasExpire:          opts.HasExpire,
		cmp:                opts.StringCompare,
	}
	ix.tree = btree.NewG(32, ix.less)
	return ix
}

func (ix *Index) less(a, b indexEntry) bool {
	if c := CompareValues(a.key, b.key, ix.cmp); c != 0 {
		return c < 0
	}
	return a.id < b.id
}

// SameOptions reports whether opts describes the same index configuration
// as ix — the check behind ensureIndex's reject-on-divergence rule.
func (ix *Index) SameOptions(opts IndexOptions) bool {
	return ix.Unique == opts.Unique && ix.Sparse == opts.Sparse &&
		ix.HasExpire == opts.HasExpire && ix.ExpireAfterSeconds == opts.ExpireAfterSeconds
}

// projectKeys returns the key(s) doc contributes to this index. ok is
// false when a sparse index should skip doc entirely, and for a nil doc
// (so Insert and Remove treat a nil DocPair side as empty). An array-valued
// field projects one entry per distinct element; an absent field in a
// non-sparse index projects the single key Undefined{}.
func (ix *Index) projectKeys(doc *Doc) (keys []Value, ok bool) {
	if doc == nil {
		return nil, false
	}
	v := GetDotValue(doc, ix.FieldName)
	if isUndefined(v) {
		if ix.Sparse {
			return nil, false
		}
		return []Value{Undefined{}}, true
	}
	arr, isArray := v.(Array)
	if !isArray {
		return []Value{v}, true
	}
	for _, e := range arr {
		dup := false
		for _, k := range keys {
			if AreThingsEqual(k, e) {
				dup = true
				break
			}
		}
		if !dup {
			keys = append(keys, e)
		}
	}
	return keys, true
}

func docID(doc *Doc) string {
	v, _ := doc.Get("_id")
	s, _ := v.(string)
	return s
}

func (ix *Index) collectForKey(k Value) []indexEntry {
	var out []indexEntry
	pivot := indexEntry{key: k, id: ""}
	ix.tree.AscendGreaterOrEqual(pivot, func(e indexEntry) bool {
		if CompareValues(e.key, k, ix.cmp) != 0 {
			return false
		}
		out = append(out, e)
		return true
	})
	return out
}

// hasConflictingKey reports whether k is already present in the tree. It
// does not exempt entries owned by the document being inserted: projectKeys
// already de-duplicates a single document's own fan-out keys, so any
// remaining entry for k is necessarily a different live document. That
// includes the _id index, where the tree key and the owning entry's id are
// the same value and so cannot be told apart by id alone.
func (ix *Index) hasConflictingKey(k Value) bool {
	return len(ix.collectForKey(k)) > 0
}

// Insert projects doc's keys and adds them to the tree. If a unique
// violation occurs partway through the batch (array fan-out), every key
// already inserted for this call is rolled back before the error returns.
func (ix *Index) Insert(doc *Doc) error {
	keys, ok := ix.projectKeys(doc)
	if !ok {
		return nil
	}
	id := docID(doc)
	inserted := make([]Value, 0, len(keys))
	for _, k := range keys {
		if ix.Unique && ix.hasConflictingKey(k) {
			for _, rk := range inserted {
				ix.tree.Delete(indexEntry{key: rk, id: id})
			}
			return newUniqueErr(ix.FieldName, k)
		}
		ix.tree.ReplaceOrInsert(indexEntry{key: k, id: id, doc: doc})
		inserted = append(inserted, k)
	}
	return nil
}

// Remove deletes every key doc projects from the tree.
func (ix *Index) Remove(doc *Doc) {
	keys, ok := ix.projectKeys(doc)
	if !ok {
		return
	}
	id := docID(doc)
	for _, k := range keys {
		ix.tree.Delete(indexEntry{key: k, id: id})
	}
}

// Update atomically replaces oldDoc's entries with newDoc's. If inserting
// newDoc's keys fails (unique violation), oldDoc's entries are restored so
// the index is left exactly as it was before the call.
func (ix *Index) Update(oldDoc, newDoc *Doc) error {
	ix.Remove(oldDoc)
	if err := ix.Insert(newDoc); err != nil {
		ix.Insert(oldDoc) //nolint:errcheck // reverting to a state that was valid a moment ago
		return err
	}
	return nil
}

// UpdateBatch applies every pair atomically: on any failure, pairs already
// applied are reverted in reverse order.
func (ix *Index) UpdateBatch(pairs []DocPair) error {
	for i, p := range pairs {
		if err := ix.Update(p.Old, p.New); err != nil {
			for j := i - 1; j >= 0; j-- {
				ix.Update(pairs[j].New, pairs[j].Old) //nolint:errcheck
			}
			return err
		}
	}
	return nil
}

// RevertUpdate undoes a batch this index already committed, the mechanism
// Datastore uses when a sibling index rejects the same logical update.
func (ix *Index) RevertUpdate(pairs []DocPair) {
	for i := len(pairs) - 1; i >= 0; i-- {
		ix.Update(pairs[i].New, pairs[i].Old) //nolint:errcheck
	}
}

// Reset wipes the index and, if docs is non-nil, bulk-loads it. A failure
// partway through means the caller must discard the Index rather than
// trust its partial contents.
func (ix *Index) Reset(docs []*Doc) error {
	ix.tree.Clear(false)
	for _, d := range docs {
		if err := ix.Insert(d); err != nil {
			return err
		}
	}
	return nil
}

// GetMatching returns the documents whose projected key equals key.
func (ix *Index) GetMatching(key Value) []*Doc {
	entries := ix.collectForKey(key)
	out := make([]*Doc, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.doc)
	}
	return out
}

// GetMatchingKeys unions GetMatching across keys, de-duplicating by _id
// since a single document can match more than one key (array fan-out, or
// an $in list with overlapping matches).
func (ix *Index) GetMatchingKeys(keys []Value) []*Doc {
	seen := make(map[string]bool)
	var out []*Doc
	for _, k := range keys {
		for _, d := range ix.GetMatching(k) {
			id := docID(d)
			if !seen[id] {
				seen[id] = true
				out = append(out, d)
			}
		}
	}
	return out
}

// Bounds describes an optional (> or >=) and (< or <=) range for
// GetBetweenBounds; at most one of GT/GTE and one of LT/LTE should be set.
type Bounds struct {
	GT, GTE, LT, LTE     Value
	HasGT, HasGTE        bool
	HasLT, HasLTE        bool
}

// GetBetweenBounds returns documents whose key falls within b, in
// ascending key order.
func (ix *Index) GetBetweenBounds(b Bounds) []*Doc {
	var out []*Doc
	ix.tree.Ascend(func(e indexEntry) bool {
		if b.HasGT && CompareValues(e.key, b.GT, ix.cmp) <= 0 {
			return true
		}
		if b.HasGTE && CompareValues(e.key, b.GTE, ix.cmp) < 0 {
			return true
		}
		if b.HasLT && CompareValues(e.key, b.LT, ix.cmp) >= 0 {
			return false
		}
		if b.HasLTE && CompareValues(e.key, b.LTE, ix.cmp) > 0 {
			return false
		}
		out = append(out, e.doc)
		return true
	})
	return out
}

// GetAll returns every live document in ascending key order, de-duplicated
// by _id (a document may own more than one entry via array fan-out).
func (ix *Index) GetAll() []*Doc {
	seen := make(map[string]bool)
	var out []*Doc
	ix.tree.Ascend(func(e indexEntry) bool {
		id := docID(e.doc)
		if !seen[id] {
			seen[id] = true
			out = append(out, e.doc)
		}
		return true
	})
	return out
}

// NumKeys reports the number of (key, document) entries in the tree —
// not the number of distinct documents when array fan-out is in play.
func (ix *Index) NumKeys() int { return ix.tree.Len() }
