// Package docstore implements an embedded, single-file document store:
// schema-free JSON-like documents, MongoDB-style queries and update
// modifiers, secondary indexes, and crash-safe append-log persistence.
package docstore

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which case of Value a given field holds.
type Kind int

// The total order over kinds doubles as the kind's sort rank: undefined <
// null < number < string < bool < timestamp < array < object.
const (
	KindUndefined Kind = iota
	KindNull
	KindNumber
	KindString
	KindBool
	KindTimestamp
	KindArray
	KindObject
)

// Value is the recursive tagged union every document field holds. The
// concrete dynamic type is always one of: Undefined, Null, float64, string,
// bool, Timestamp, Array, or *Doc.
type Value = any

// Undefined marks a field that is representable in memory but omitted from
// serialized form. It is distinct from Null.
type Undefined struct{}

// Null is the JSON null value.
type Null struct{}

// Timestamp is an absolute instant at millisecond precision, the Value case
// for what the wire format encodes as {"$$date": <ms>}.
type Timestamp struct{ t time.Time }

// NewTimestamp wraps a time.Time as a document Timestamp value.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{t: t.UTC()} }

// Now returns the current instant as a document Timestamp.
func Now() Timestamp { return NewTimestamp(time.Now()) }

// Time returns the wrapped instant.
func (t Timestamp) Time() time.Time { return t.t }

// UnixMilli returns milliseconds since the epoch, the on-disk encoding.
func (t Timestamp) UnixMilli() int64 { return t.t.UnixMilli() }

// TimestampFromUnixMilli reconstructs a Timestamp from its on-disk encoding.
func TimestampFromUnixMilli(ms int64) Timestamp {
	return Timestamp{t: time.UnixMilli(ms).UTC()}
}

// Array is the Value case for an ordered list of Values.
type Array []Value

// Doc is an ordered object: field lookup by name plus iteration in
// insertion order, so round-tripping through serialize/deserialize is
// stable even though field sets are compared unordered.
type Doc struct {
	keys   []string
	fields map[string]Value
}

// Document is the Value case for an object; it is also the type of every
// top-level document the store accepts and returns.
type Document = *Doc

// NewDoc returns an empty ordered document.
func NewDoc() *Doc {
	return &Doc{fields: make(map[string]Value)}
}

// Get returns the field's value and whether it is present. A present field
// never reports ok=false; a field set to Undefined{} still reports true.
func (d *Doc) Get(key string) (Value, bool) {
	v, ok := d.fields[key]
	return v, ok
}

// GetOr returns the field's value, or Undefined{} if absent.
func (d *Doc) GetOr(key string) Value {
	if v, ok := d.fields[key]; ok {
		return v
	}
	return Undefined{}
}

// Set assigns key to v, appending it to iteration order the first time it
// is seen and preserving its position on every subsequent assignment.
func (d *Doc) Set(key string, v Value) {
	if _, ok := d.fields[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.fields[key] = v
}

// Delete removes key, if present, along with its position in the order.
func (d *Doc) Delete(key string) {
	if _, ok := d.fields[key]; !ok {
		return
	}
	delete(d.fields, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns field names in insertion order. Callers must not mutate the
// returned slice.
func (d *Doc) Keys() []string { return d.keys }

// Len reports the number of fields.
func (d *Doc) Len() int { return len(d.keys) }

// Clone returns a shallow copy sharing no backing slice/map with d.
func (d *Doc) Clone() *Doc {
	nd := &Doc{keys: append([]string(nil), d.keys...), fields: make(map[string]Value, len(d.fields))}
	for k, v := range d.fields {
		nd.fields[k] = v
	}
	return nd
}

// --- field name validation -------------------------------------------------

// sentinelFields are the four envelope/tombstone field names exempt from
// the "no $ prefix" rule because the persistence layer uses them as
// on-disk markers rather than user data.
var sentinelFields = map[string]bool{
	"$$date":         true,
	"$$deleted":      true,
	"$$indexCreated": true,
	"$$indexRemoved": true,
}

func validFieldName(name string) error {
	if sentinelFields[name] {
		return nil
	}
	if strings.HasPrefix(name, "$") {
		return newFieldErr(ErrInvalidFieldName, name)
	}
	if strings.Contains(name, ".") {
		return newFieldErr(ErrInvalidFieldName, name)
	}
	return nil
}

// checkDocumentFields recursively validates every field name in v, the
// check run before a document is ever persisted.
func checkDocumentFields(v Value) error {
	switch t := v.(type) {
	case *Doc:
		for _, k := range t.keys {
			if err := validFieldName(k); err != nil {
				return err
			}
			if err := checkDocumentFields(t.fields[k]); err != nil {
				return err
			}
		}
	case Array:
		for _, e := range t {
			if err := checkDocumentFields(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- id generation ----------------------------------------------------------

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateID returns a 16-character random alphanumeric id, the same shape
// as an auto-assigned document _id.
func GenerateID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand on a live kernel does not fail in practice; treat it
		// the same way the rest of the stack treats an unreachable branch.
		panic(fmt.Sprintf("docstore: crypto/rand unavailable: %v", err))
	}
	out := make([]byte, 16)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out)
}

// --- kind dispatch ----------------------------------------------------------

// KindOf reports which case of Value v holds.
func KindOf(v Value) Kind {
	switch v.(type) {
	case Undefined, nil:
		return KindUndefined
	case Null:
		return KindNull
	case float64:
		return KindNumber
	case string:
		return KindString
	case bool:
		return KindBool
	case Timestamp:
		return KindTimestamp
	case Array:
		return KindArray
	case *Doc:
		return KindObject
	default:
		return KindUndefined
	}
}

func isUndefined(v Value) bool { return KindOf(v) == KindUndefined }

// --- deep copy ---------------------------------------------------------------

// CopyValue returns an independent deep copy of v. In strictKeys mode any
// object field whose name starts with "$" or contains "." is dropped from
// the copy, the mode the update machinery uses when accepting a
// caller-supplied replacement body.
func CopyValue(v Value, strictKeys bool) Value {
	switch t := v.(type) {
	case Array:
		out := make(Array, len(t))
		for i, e := range t {
			out[i] = CopyValue(e, strictKeys)
		}
		return out
	case *Doc:
		out := NewDoc()
		for _, k := range t.keys {
			if strictKeys && !sentinelFields[k] && (strings.HasPrefix(k, "$") || strings.Contains(k, ".")) {
				continue
			}
			out.Set(k, CopyValue(t.fields[k], strictKeys))
		}
		return out
	default:
		return v
	}
}

// --- equality -----------------------------------------------------------------

// AreThingsEqual is strict deep equality: mismatched kinds are always
// false, and Undefined is never equal to anything, including itself (a
// query field explicitly set to Undefined can therefore never match).
func AreThingsEqual(a, b Value) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka == KindUndefined || kb == KindUndefined {
		return false
	}
	if ka != kb {
		return false
	}
	switch ka {
	case KindNull:
		return true
	case KindNumber:
		return a.(float64) == b.(float64)
	case KindString:
		return a.(string) == b.(string)
	case KindBool:
		return a.(bool) == b.(bool)
	case KindTimestamp:
		return a.(Timestamp).t.Equal(b.(Timestamp).t)
	case KindArray:
		aa, bb := a.(Array), b.(Array)
		if len(aa) != len(bb) {
			return false
		}
		for i := range aa {
			if !AreThingsEqual(aa[i], bb[i]) {
				return false
			}
		}
		return true
	case KindObject:
		ad, bd := a.(*Doc), b.(*Doc)
		if ad.Len() != bd.Len() {
			return false
		}
		for _, k := range ad.keys {
			bv, ok := bd.Get(k)
			if !ok || !AreThingsEqual(ad.fields[k], bv) {
				return false
			}
		}
		return true
	}
	return false
}

// --- total order --------------------------------------------------------------

// StringCompare lets a caller plug a custom collation for the string case
// of CompareValues; the default is byte-wise strings.Compare.
type StringCompare func(a, b string) int

func defaultStringCompare(a, b string) int { return strings.Compare(a, b) }

// CompareValues implements the spec's total order across all Value kinds:
// undefined < null < number < string < bool < timestamp < array < object.
func CompareValues(a, b Value, cmp StringCompare) int {
	if cmp == nil {
		cmp = defaultStringCompare
	}
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}
	switch ka {
	case KindUndefined, KindNull:
		return 0
	case KindNumber:
		af, bf := a.(float64), b.(float64)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case KindString:
		return cmp(a.(string), b.(string))
	case KindBool:
		ab, bb := a.(bool), b.(bool)
		if ab == bb {
			return 0
		}
		if !ab && bb {
			return -1
		}
		return 1
	case KindTimestamp:
		at, bt := a.(Timestamp).t, b.(Timestamp).t
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	case KindArray:
		aa, bb := a.(Array), b.(Array)
		for i := 0; i < len(aa) && i < len(bb); i++ {
			if c := CompareValues(aa[i], bb[i], cmp); c != 0 {
				return c
			}
		}
		return compareInts(len(aa), len(bb))
	case KindObject:
		ad, bd := a.(*Doc), b.(*Doc)
		ak := append([]string(nil), ad.keys...)
		bk := append([]string(nil), bd.keys...)
		sort.Strings(ak)
		sort.Strings(bk)
		for i := 0; i < len(ak) && i < len(bk); i++ {
			if c := cmp(ak[i], bk[i]); c != 0 {
				return c
			}
			if c := CompareValues(ad.fields[ak[i]], bd.fields[bk[i]], cmp); c != 0 {
				return c
			}
		}
		return compareInts(len(ak), len(bk))
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// --- dot-value extraction ------------------------------------------------------

// GetDotValue walks a dot path ("a.b.2.c") through doc. A numeric segment
// indexes into an array; a field-name segment against an array projects
// that field across every element (the non-index array traversal case).
// A missing path yields Undefined{}.
func GetDotValue(doc Value, path string) Value {
	if path == "" {
		return doc
	}
	return getDotValueSegments(doc, strings.Split(path, "."))
}

func getDotValueSegments(v Value, segments []string) Value {
	if len(segments) == 0 {
		return v
	}
	seg := segments[0]
	switch t := v.(type) {
	case *Doc:
		child, ok := t.Get(seg)
		if !ok {
			return Undefined{}
		}
		return getDotValueSegments(child, segments[1:])
	case Array:
		if idx, err := strconv.Atoi(seg); err == nil {
			if idx < 0 || idx >= len(t) {
				return Undefined{}
			}
			return getDotValueSegments(t[idx], segments[1:])
		}
		if len(t) == 0 {
			return Undefined{}
		}
		result := make(Array, len(t))
		for i, elem := range t {
			result[i] = getDotValueSegments(elem, segments)
		}
		return result
	default:
		return Undefined{}
	}
}
