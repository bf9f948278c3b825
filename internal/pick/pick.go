// Package pick extracts values from arbitrary Go data by dotted path.
//
// Paths look like "homeworld.name", "test[0].name" or "test.0.name". Maps
// with string keys, structs (matched by json tag first, then field name),
// slices, arrays, pointers and interfaces are traversed.
package pick

import (
	"reflect"
	"strconv"
	"strings"
)

// Pick returns the value at path inside data. The second result is false
// when any segment is missing. An empty path or "." returns data itself.
func Pick(path string, data any) (any, bool) {
	if path == "" || path == "." {
		return data, data != nil
	}

	v := reflect.ValueOf(data)
	for _, seg := range Segments(path) {
		var ok bool
		v, ok = step(v, seg)
		if !ok {
			return nil, false
		}
	}

	v = indirect(v)
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

// Segments splits a dotted path into its keys, turning "a[0].b" into
// ["a", "0", "b"].
func Segments(path string) []string {
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")
	var segs []string
	for _, s := range strings.Split(path, ".") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// IsSequence reports whether v is a slice or an array.
func IsSequence(v any) bool {
	rv := indirect(reflect.ValueOf(v))
	return rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array)
}

// Items returns the elements of a slice or array value.
func Items(v any) ([]any, bool) {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func step(v reflect.Value, seg string) (reflect.Value, bool) {
	v = indirect(v)
	if !v.IsValid() {
		return reflect.Value{}, false
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		item := v.MapIndex(reflect.ValueOf(seg).Convert(v.Type().Key()))
		return item, item.IsValid()

	case reflect.Struct:
		return field(v, seg)

	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= v.Len() {
			return reflect.Value{}, false
		}
		return v.Index(idx), true
	}

	return reflect.Value{}, false
}

func field(v reflect.Value, name string) (reflect.Value, bool) {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag := f.Tag.Get("json"); tag != "" {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == name {
				return v.Field(i), true
			}
		}
	}
	if f, ok := typ.FieldByName(name); ok && f.IsExported() {
		return v.FieldByIndex(f.Index), true
	}
	return reflect.Value{}, false
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
