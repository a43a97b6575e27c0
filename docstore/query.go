package docstore

import (
	"regexp"
	"strings"
)

// WherePredicate is the Go replacement for a $where callback: it receives
// the candidate document and returns whether it matches.
type WherePredicate func(doc Value) (bool, error)

// Regex is the Value case accepted as a $regex operator argument. It is a
// query-time construct only; it never appears in a persisted document.
type Regex struct{ re *regexp.Regexp }

// NewRegex compiles pattern for use as a $regex query argument.
func NewRegex(pattern string) (Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Regex{}, newErr(ErrInvalidQuery, "invalid $regex pattern: %w", err)
	}
	return Regex{re: re}, nil
}

// queryClause is one top-level (field, value) pair from a query, kept in
// the order the caller declared it so index candidate selection has a
// stable, documented tie-break (see clausesOf).
type queryClause struct {
	field string
	value Value
}

// clausesOf returns the non-logical top-level clauses of a query document
// in declared order, the ordering Datastore.Find uses to pick the first
// clause an index can serve.
func clausesOf(query *Doc) []queryClause {
	out := make([]queryClause, 0, query.Len())
	for _, k := range query.keys {
		switch k {
		case "$or", "$and", "$not", "$where":
			continue
		default:
			out = append(out, queryClause{field: k, value: query.fields[k]})
		}
	}
	return out
}

// Match evaluates query against target, implementing the top-level logical
// operators ($or/$and/$not/$where) and per-field predicates.
func Match(query *Doc, target Value) (bool, error) {
	for _, k := range query.keys {
		qv := query.fields[k]
		switch k {
		case "$or":
			arr, ok := qv.(Array)
			if !ok {
				return false, newErr(ErrInvalidQuery, "$or requires an array of subqueries")
			}
			matched := false
			for _, sub := range arr {
				sd, ok := sub.(*Doc)
				if !ok {
					return false, newErr(ErrInvalidQuery, "$or elements must be documents")
				}
				m, err := Match(sd, target)
				if err != nil {
					return false, err
				}
				if m {
					matched = true
					break
				}
			}
			if !matched {
				return false, nil
			}
		case "$and":
			arr, ok := qv.(Array)
			if !ok {
				return false, newErr(ErrInvalidQuery, "$and requires an array of subqueries")
			}
			for _, sub := range arr {
				sd, ok := sub.(*Doc)
				if !ok {
					return false, newErr(ErrInvalidQuery, "$and elements must be documents")
				}
				m, err := Match(sd, target)
				if err != nil {
					return false, err
				}
				if !m {
					return false, nil
				}
			}
		case "$not":
			sd, ok := qv.(*Doc)
			if !ok {
				return false, newErr(ErrInvalidQuery, "$not requires a document")
			}
			m, err := Match(sd, target)
			if err != nil {
				return false, err
			}
			if m {
				return false, nil
			}
		case "$where":
			fn, ok := qv.(WherePredicate)
			if !ok {
				return false, newErr(ErrInvalidQuery, "$where requires a predicate function")
			}
			m, err := fn(target)
			if err != nil {
				return false, err
			}
			if !m {
				return false, nil
			}
		default:
			fieldVal := GetDotValue(target, k)
			m, err := matchField(fieldVal, qv)
			if err != nil {
				return false, err
			}
			if !m {
				return false, nil
			}
		}
	}
	return true, nil
}

func matchField(fieldVal, queryVal Value) (bool, error) {
	if opDoc, ok := queryVal.(*Doc); ok && isOperatorObject(opDoc) {
		for _, opName := range opDoc.keys {
			ok2, err := evalFieldPredicate(fieldVal, opName, opDoc.fields[opName])
			if err != nil {
				return false, err
			}
			if !ok2 {
				return false, nil
			}
		}
		return true, nil
	}

	if arr, ok := fieldVal.(Array); ok {
		if _, queryIsArray := queryVal.(Array); queryIsArray {
			return AreThingsEqual(fieldVal, queryVal), nil
		}
		for _, e := range arr {
			if AreThingsEqual(e, queryVal) {
				return true, nil
			}
		}
		return false, nil
	}
	return AreThingsEqual(fieldVal, queryVal), nil
}

func isOperatorObject(d *Doc) bool {
	if d.Len() == 0 {
		return false
	}
	for _, k := range d.keys {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func evalFieldPredicate(target Value, op string, arg Value) (bool, error) {
	switch op {
	case "$size":
		return evalSize(target, arg)
	case "$elemMatch":
		return evalElemMatch(target, arg)
	case "$exists":
		return evalExists(target, arg), nil
	case "$lt", "$lte", "$gt", "$gte", "$ne", "$eq", "$in", "$nin", "$regex":
		if arr, ok := target.(Array); ok {
			for _, e := range arr {
				m, err := evalScalarOp(e, op, arg)
				if err != nil {
					return false, err
				}
				if m {
					return true, nil
				}
			}
			return false, nil
		}
		return evalScalarOp(target, op, arg)
	default:
		return false, newErr(ErrInvalidQuery, "unknown query operator %q", op)
	}
}

func evalScalarOp(target Value, op string, arg Value) (bool, error) {
	switch op {
	case "$lt", "$lte", "$gt", "$gte":
		if KindOf(target) != KindOf(arg) {
			return false, nil
		}
		c := CompareValues(target, arg, nil)
		switch op {
		case "$lt":
			return c < 0, nil
		case "$lte":
			return c <= 0, nil
		case "$gt":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case "$ne":
		return !AreThingsEqual(target, arg), nil
	case "$eq":
		return AreThingsEqual(target, arg), nil
	case "$in":
		arr, ok := arg.(Array)
		if !ok {
			return false, newErr(ErrInvalidQuery, "$in requires an array argument")
		}
		for _, e := range arr {
			if AreThingsEqual(target, e) {
				return true, nil
			}
		}
		return false, nil
	case "$nin":
		arr, ok := arg.(Array)
		if !ok {
			return false, newErr(ErrInvalidQuery, "$nin requires an array argument")
		}
		for _, e := range arr {
			if AreThingsEqual(target, e) {
				return false, nil
			}
		}
		return true, nil
	case "$regex":
		re, ok := arg.(Regex)
		if !ok {
			return false, newErr(ErrInvalidQuery, "$regex requires a compiled regex argument")
		}
		s, ok := target.(string)
		if !ok {
			return false, nil
		}
		return re.re.MatchString(s), nil
	default:
		return false, newErr(ErrInvalidQuery, "unknown query operator %q", op)
	}
}

func evalExists(target, arg Value) bool {
	present := !isUndefined(target)
	return present == isTruthy(arg)
}

func evalSize(target, arg Value) (bool, error) {
	n, ok := arg.(float64)
	if !ok || n < 0 || n != float64(int64(n)) {
		return false, newErr(ErrInvalidQuery, "$size requires a non-negative integer argument")
	}
	arr, ok := target.(Array)
	if !ok {
		return false, nil
	}
	return len(arr) == int(n), nil
}

func evalElemMatch(target, arg Value) (bool, error) {
	sub, ok := arg.(*Doc)
	if !ok {
		return false, newErr(ErrInvalidQuery, "$elemMatch requires a subquery document")
	}
	arr, ok := target.(Array)
	if !ok {
		return false, nil
	}
	for _, e := range arr {
		m, err := Match(sub, e)
		if err != nil {
			return false, err
		}
		if m {
			return true, nil
		}
	}
	return false, nil
}

func isTruthy(v Value) bool {
	switch t := v.(type) {
	case Undefined:
		return false
	case nil:
		return false
	case Null:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
