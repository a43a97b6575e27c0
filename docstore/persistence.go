package docstore

import "strings"

// indexSpec is the in-memory shape of an $$indexCreated envelope: enough
// to reconstruct an Index during replay.
type indexSpec struct {
	FieldName          string
	Unique             bool
	Sparse             bool
	ExpireAfterSeconds float64
	HasExpire          bool
}

// CompactionStats summarizes a successful compaction, delivered to every
// observer registered via Persistence.OnCompaction — the Go-idiomatic
// stand-in for emitting a "compaction.done" event.
type CompactionStats struct {
	LiveDocuments int
	Indexes       int
}

// PersistenceOptions configures a Persistence instance.
type PersistenceOptions struct {
	Filename              string
	InMemoryOnly          bool
	CorruptAlertThreshold float64 // fraction in [0,1]; 0 means use the default 0.1
	AfterSerialization    func(string) string
	BeforeDeserialization func(string) string
}

// Persistence is the append-only log over a single data file: encode/decode
// of document, tombstone, and index-envelope lines; load-and-replay; and
// crash-safe compaction via the temp-file + rename protocol.
type Persistence struct {
	Filename              string
	InMemoryOnly          bool
	CorruptAlertThreshold float64
	AfterSerialization    func(string) string
	BeforeDeserialization func(string) string

	observers []func(CompactionStats)
}

// hookCanary is serialized through a freshly declared hook pair at
// construction time to verify they are a true bijection before any real
// document is ever written through them.
const hookCanary = "_docstore_hook_integrity_canary_"

// NewPersistence validates the hook pair (if any): it round-trips the
// canary string through the pair and, when a non-empty data file already
// exists, checks that the file's first line decodes with the supplied
// hooks before returning.
func NewPersistence(opts PersistenceOptions) (*Persistence, error) {
	if (opts.AfterSerialization == nil) != (opts.BeforeDeserialization == nil) {
		return nil, newErr(ErrHookMismatch, "afterSerialization and beforeDeserialization must be declared together")
	}
	p := &Persistence{
		Filename:              opts.Filename,
		InMemoryOnly:          opts.InMemoryOnly || opts.Filename == "",
		CorruptAlertThreshold: opts.CorruptAlertThreshold,
		AfterSerialization:    opts.AfterSerialization,
		BeforeDeserialization: opts.BeforeDeserialization,
	}
	if !p.InMemoryOnly && p.AfterSerialization != nil {
		encoded := p.AfterSerialization(hookCanary)
		decoded := p.BeforeDeserialization(encoded)
		if decoded != hookCanary {
			return nil, newErr(ErrHookMismatch, "serialization hook pair failed its bijection check")
		}
		if fileExists(p.Filename) {
			raw, err := readFile(p.Filename)
			if err == nil {
				if first := firstNonEmptyLine(string(raw)); first != "" {
					if _, derr := Deserialize(p.BeforeDeserialization(first)); derr != nil {
						return nil, newErr(ErrHookMismatch, "existing data file does not decode with the supplied hooks")
					}
				}
			}
		}
	}
	return p, nil
}

// OnCompaction registers fn to be called after every successful Compact.
func (p *Persistence) OnCompaction(fn func(CompactionStats)) {
	p.observers = append(p.observers, fn)
}

func (p *Persistence) notifyCompaction(stats CompactionStats) {
	for _, obs := range p.observers {
		obs(stats)
	}
}

// Load reconciles the data file, reads it whole, and replays it into an
// id-keyed document map (plus insertion order and collected index specs).
func (p *Persistence) Load() (docs map[string]*Doc, order []string, specs map[string]indexSpec, err error) {
	if p.InMemoryOnly {
		return map[string]*Doc{}, nil, map[string]indexSpec{}, nil
	}
	if err := ensureDirectoryExists(p.Filename); err != nil {
		return nil, nil, nil, err
	}
	if err := ensureDatafileIntegrity(p.Filename); err != nil {
		return nil, nil, nil, err
	}
	raw, err := readFile(p.Filename)
	if err != nil {
		return nil, nil, nil, err
	}
	return p.treatRawData(string(raw))
}

// treatRawData is the replay procedure: each line updates an id-keyed
// document map, a tombstone deletes from it, and index envelopes build a
// separate spec map. Lines with too high a malformed ratio abort the load
// entirely rather than return a truncated snapshot.
func (p *Persistence) treatRawData(raw string) (map[string]*Doc, []string, map[string]indexSpec, error) {
	lines := strings.Split(raw, "\n")
	docs := make(map[string]*Doc)
	var order []string
	specs := make(map[string]indexSpec)
	total, malformed := 0, 0

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		total++
		decoded := line
		if p.BeforeDeserialization != nil {
			decoded = p.BeforeDeserialization(decoded)
		}
		v, err := Deserialize(decoded)
		if err != nil {
			malformed++
			continue
		}
		doc, ok := v.(*Doc)
		if !ok {
			malformed++
			continue
		}

		if del, ok := doc.Get("$$deleted"); ok && isTruthy(del) {
			if idv, ok := doc.Get("_id"); ok {
				if id, ok := idv.(string); ok && id != "" {
					if _, existed := docs[id]; existed {
						delete(docs, id)
						order = removeFromOrder(order, id)
					}
				}
			}
			continue
		}
		if specVal, ok := doc.Get("$$indexCreated"); ok {
			sd, ok := specVal.(*Doc)
			if !ok {
				malformed++
				continue
			}
			spec := indexSpecFromDoc(sd)
			specs[spec.FieldName] = spec
			continue
		}
		if remVal, ok := doc.Get("$$indexRemoved"); ok {
			if fname, ok := remVal.(string); ok {
				delete(specs, fname)
			}
			continue
		}

		idv, idPresent := doc.Get("_id")
		id, idOK := idv.(string)
		if !idPresent || !idOK || id == "" {
			continue
		}
		if _, existed := docs[id]; !existed {
			order = append(order, id)
		}
		docs[id] = doc
	}

	if total > 0 {
		threshold := p.CorruptAlertThreshold
		if threshold <= 0 {
			threshold = 0.1
		}
		if ratio := float64(malformed) / float64(total); ratio > threshold {
			return nil, nil, nil, newErr(ErrCorruption, "data file %s: %.0f%% of lines malformed, exceeds threshold %.0f%%", p.Filename, ratio*100, threshold*100)
		}
	}
	return docs, order, specs, nil
}

func firstNonEmptyLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func removeFromOrder(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func indexSpecFromDoc(sd *Doc) indexSpec {
	var spec indexSpec
	if v, ok := sd.Get("fieldName"); ok {
		if s, ok := v.(string); ok {
			spec.FieldName = s
		}
	}
	if v, ok := sd.Get("unique"); ok {
		if b, ok := v.(bool); ok {
			spec.Unique = b
		}
	}
	if v, ok := sd.Get("sparse"); ok {
		if b, ok := v.(bool); ok {
			spec.Sparse = b
		}
	}
	if v, ok := sd.Get("expireAfterSeconds"); ok {
		if n, ok := v.(float64); ok {
			spec.ExpireAfterSeconds = n
			spec.HasExpire = true
		}
	}
	return spec
}

func indexSpecToDoc(spec indexSpec) *Doc {
	d := NewDoc()
	d.Set("fieldName", spec.FieldName)
	d.Set("unique", spec.Unique)
	d.Set("sparse", spec.Sparse)
	if spec.HasExpire {
		d.Set("expireAfterSeconds", spec.ExpireAfterSeconds)
	}
	return d
}

// Append durably writes one line for doc.
func (p *Persistence) Append(doc *Doc) error {
	if p.InMemoryOnly {
		return nil
	}
	line, err := Serialize(doc)
	if err != nil {
		return err
	}
	if p.AfterSerialization != nil {
		line = p.AfterSerialization(line)
	}
	return appendLine(p.Filename, line)
}

// AppendTombstone appends a {_id, $$deleted:true} deletion marker.
func (p *Persistence) AppendTombstone(id string) error {
	d := NewDoc()
	d.Set("_id", id)
	d.Set("$$deleted", true)
	return p.Append(d)
}

// AppendIndexCreated appends an $$indexCreated envelope for spec.
func (p *Persistence) AppendIndexCreated(spec indexSpec) error {
	d := NewDoc()
	d.Set("$$indexCreated", indexSpecToDoc(spec))
	return p.Append(d)
}

// AppendIndexRemoved appends an $$indexRemoved envelope for fieldName.
func (p *Persistence) AppendIndexRemoved(fieldName string) error {
	d := NewDoc()
	d.Set("$$indexRemoved", fieldName)
	return p.Append(d)
}

// Compact rewrites the data file to the minimal snapshot of liveDocs plus
// one $$indexCreated envelope per non-default index, via writeAndReplace,
// then notifies every registered compaction observer.
func (p *Persistence) Compact(liveDocs []*Doc, specs []indexSpec) error {
	if p.InMemoryOnly {
		return nil
	}
	var sb strings.Builder
	for _, d := range liveDocs {
		line, err := Serialize(d)
		if err != nil {
			return err
		}
		if p.AfterSerialization != nil {
			line = p.AfterSerialization(line)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	for _, spec := range specs {
		env := NewDoc()
		env.Set("$$indexCreated", indexSpecToDoc(spec))
		line, err := Serialize(env)
		if err != nil {
			return err
		}
		if p.AfterSerialization != nil {
			line = p.AfterSerialization(line)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := writeAndReplace(p.Filename, []byte(sb.String())); err != nil {
		return err
	}
	p.notifyCompaction(CompactionStats{LiveDocuments: len(liveDocs), Indexes: len(specs)})
	return nil
}
