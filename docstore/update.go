package docstore

import "strings"

// Modify applies update to doc and returns the resulting document. update is
// either pure-modifier (every top-level key starts with "$") or
// pure-replacement (none do); mixing the two is an error. _id is always
// preserved — a replacement that names a different _id, or any modifier
// that targets _id, fails.
func Modify(doc *Doc, update *Doc) (*Doc, error) {
	isMod, err := isModifierUpdate(update)
	if err != nil {
		return nil, err
	}
	if !isMod {
		return applyReplacement(doc, update)
	}
	return applyModifiers(doc, update)
}

func isModifierUpdate(update *Doc) (bool, error) {
	hasMod, hasPlain := false, false
	for _, k := range update.keys {
		if strings.HasPrefix(k, "$") {
			hasMod = true
		} else {
			hasPlain = true
		}
	}
	if hasMod && hasPlain {
		return false, newErr(ErrInvalidModifier, "update document mixes modifiers and plain fields")
	}
	return hasMod, nil
}

func applyReplacement(doc *Doc, update *Doc) (*Doc, error) {
	repl, ok := CopyValue(update, true).(*Doc)
	if !ok {
		return nil, newErr(ErrInvalidModifier, "replacement update must be a document")
	}
	oldID, _ := doc.Get("_id")
	if newID, ok := repl.Get("_id"); ok && !AreThingsEqual(oldID, newID) {
		return nil, newErr(ErrInvalidModifier, "update would change _id")
	}
	repl.Set("_id", oldID)
	if err := checkDocumentFields(repl); err != nil {
		return nil, err
	}
	return repl, nil
}

func applyModifiers(doc *Doc, update *Doc) (*Doc, error) {
	result, ok := CopyValue(doc, false).(*Doc)
	if !ok {
		return nil, newErr(ErrInvalidModifier, "target is not a document")
	}
	for _, modName := range update.keys {
		apply, ok := modifierTable[modName]
		if !ok {
			return nil, newErr(ErrInvalidModifier, "unknown modifier %q", modName)
		}
		argDoc, ok := update.fields[modName].(*Doc)
		if !ok {
			return nil, newErr(ErrInvalidModifier, "modifier %q argument must be a document of field:value pairs", modName)
		}
		for _, field := range argDoc.keys {
			if field == "_id" {
				return nil, newErr(ErrInvalidModifier, "cannot modify _id")
			}
			if err := apply(result, field, argDoc.fields[field]); err != nil {
				return nil, err
			}
		}
	}
	if err := checkDocumentFields(result); err != nil {
		return nil, err
	}
	return result, nil
}

var modifierTable = map[string]func(doc *Doc, path string, arg Value) error{
	"$set":      modSet,
	"$unset":    modUnset,
	"$inc":      modInc,
	"$min":      modMin,
	"$max":      modMax,
	"$push":     modPush,
	"$addToSet": modAddToSet,
	"$pop":      modPop,
	"$pull":     modPull,
}

// --- dot-path mutation helpers ----------------------------------------------

func setDotValue(d *Doc, path string, v Value) error {
	return setSegments(d, strings.Split(path, "."), v)
}

func setSegments(d *Doc, segs []string, v Value) error {
	if len(segs) == 1 {
		d.Set(segs[0], v)
		return nil
	}
	key := segs[0]
	child, ok := d.Get(key)
	if !ok || isFalsyNonObject(child) {
		child = NewDoc()
		d.Set(key, child)
	}
	childDoc, ok := child.(*Doc)
	if !ok {
		return newErr(ErrInvalidModifier, "cannot create field %q on a non-object parent", key)
	}
	return setSegments(childDoc, segs[1:], v)
}

func isFalsyNonObject(v Value) bool {
	if _, ok := v.(*Doc); ok {
		return false
	}
	return !isTruthy(v)
}

func unsetDotValue(d *Doc, path string) {
	unsetSegments(d, strings.Split(path, "."))
}

func unsetSegments(d *Doc, segs []string) {
	if len(segs) == 1 {
		d.Delete(segs[0])
		return
	}
	child, ok := d.Get(segs[0])
	if !ok {
		return
	}
	cd, ok := child.(*Doc)
	if !ok {
		return
	}
	unsetSegments(cd, segs[1:])
}

// --- modifiers ---------------------------------------------------------------

func modSet(doc *Doc, path string, arg Value) error {
	return setDotValue(doc, path, arg)
}

func modUnset(doc *Doc, path string, _ Value) error {
	unsetDotValue(doc, path)
	return nil
}

func modInc(doc *Doc, path string, arg Value) error {
	n, ok := arg.(float64)
	if !ok {
		return newErr(ErrInvalidModifier, "$inc requires a numeric argument")
	}
	cur := GetDotValue(doc, path)
	if isUndefined(cur) {
		return setDotValue(doc, path, n)
	}
	cf, ok := cur.(float64)
	if !ok {
		return newErr(ErrInvalidModifier, "$inc target field %q is not numeric", path)
	}
	return setDotValue(doc, path, cf+n)
}

func modMin(doc *Doc, path string, arg Value) error {
	cur := GetDotValue(doc, path)
	if isUndefined(cur) || CompareValues(arg, cur, nil) < 0 {
		return setDotValue(doc, path, arg)
	}
	return nil
}

func modMax(doc *Doc, path string, arg Value) error {
	cur := GetDotValue(doc, path)
	if isUndefined(cur) || CompareValues(arg, cur, nil) > 0 {
		return setDotValue(doc, path, arg)
	}
	return nil
}

func modPush(doc *Doc, path string, arg Value) error {
	arr, err := currentArray(doc, path, "$push")
	if err != nil {
		return err
	}
	if argDoc, ok := arg.(*Doc); ok && isOperatorObject(argDoc) {
		var toAdd Array
		slice, hasSlice := (*int)(nil), false
		for _, k := range argDoc.keys {
			switch k {
			case "$each":
				eachArr, ok := argDoc.fields[k].(Array)
				if !ok {
					return newErr(ErrInvalidModifier, "$push $each requires an array argument")
				}
				toAdd = eachArr
			case "$slice":
				n, ok := argDoc.fields[k].(float64)
				if !ok {
					return newErr(ErrInvalidModifier, "$push $slice requires an integer argument")
				}
				ni := int(n)
				slice = &ni
				hasSlice = true
			default:
				return newErr(ErrInvalidModifier, "unsupported $push sub-operator %q", k)
			}
		}
		arr = append(arr, toAdd...)
		if hasSlice {
			arr = applySlice(arr, *slice)
		}
	} else {
		arr = append(arr, arg)
	}
	return setDotValue(doc, path, arr)
}

func applySlice(arr Array, n int) Array {
	switch {
	case n == 0:
		return Array{}
	case n > 0:
		if n >= len(arr) {
			return arr
		}
		return append(Array{}, arr[:n]...)
	default:
		k := -n
		if k >= len(arr) {
			return arr
		}
		return append(Array{}, arr[len(arr)-k:]...)
	}
}

func modAddToSet(doc *Doc, path string, arg Value) error {
	arr, err := currentArray(doc, path, "$addToSet")
	if err != nil {
		return err
	}
	var toAdd Array
	if argDoc, ok := arg.(*Doc); ok && isOperatorObject(argDoc) {
		eachVal, hasEach := argDoc.Get("$each")
		if !hasEach || argDoc.Len() != 1 {
			return newErr(ErrInvalidModifier, "unsupported $addToSet sub-operator")
		}
		eachArr, ok := eachVal.(Array)
		if !ok {
			return newErr(ErrInvalidModifier, "$addToSet $each requires an array argument")
		}
		toAdd = eachArr
	} else {
		toAdd = Array{arg}
	}
	for _, candidate := range toAdd {
		dup := false
		for _, e := range arr {
			if AreThingsEqual(e, candidate) {
				dup = true
				break
			}
		}
		if !dup {
			arr = append(arr, candidate)
		}
	}
	return setDotValue(doc, path, arr)
}

func modPop(doc *Doc, path string, arg Value) error {
	n, ok := arg.(float64)
	if !ok || (n != 1 && n != -1) {
		return newErr(ErrInvalidModifier, "$pop argument must be 1 or -1")
	}
	cur := GetDotValue(doc, path)
	arr, ok := cur.(Array)
	if !ok {
		return newErr(ErrInvalidModifier, "$pop target field %q is not an array", path)
	}
	if len(arr) == 0 {
		return nil
	}
	if n > 0 {
		arr = arr[:len(arr)-1]
	} else {
		arr = arr[1:]
	}
	return setDotValue(doc, path, append(Array{}, arr...))
}

func modPull(doc *Doc, path string, arg Value) error {
	cur := GetDotValue(doc, path)
	if isUndefined(cur) {
		return nil
	}
	arr, ok := cur.(Array)
	if !ok {
		return newErr(ErrInvalidModifier, "$pull target field %q is not an array", path)
	}
	sub, isQuery := arg.(*Doc)
	out := Array{}
	for _, e := range arr {
		var remove bool
		if isQuery {
			m, err := Match(sub, e)
			if err != nil {
				return err
			}
			remove = m
		} else {
			remove = AreThingsEqual(e, arg)
		}
		if !remove {
			out = append(out, e)
		}
	}
	return setDotValue(doc, path, out)
}

func currentArray(doc *Doc, path, modName string) (Array, error) {
	cur := GetDotValue(doc, path)
	if isUndefined(cur) {
		return Array{}, nil
	}
	arr, ok := cur.(Array)
	if !ok {
		return nil, newErr(ErrInvalidModifier, "%s target field %q is not an array", modName, path)
	}
	return append(Array{}, arr...), nil
}
