package msis

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// Argument names in positional order. The first ten are required.
var argNames = [...]string{
	"year", "doy", "sec", "alt", "g_lat", "g_long", "lst", "f107A", "f107", "ap",
	"ap_a", "flags",
}

const numRequired = 10

// Args is a dynamically typed call: positional values followed by named
// values, as decoded from JSON or assembled by a scripting front end.
//
// Integer arguments (year, doy and flags elements) accept Go integer kinds
// and integral json.Number values. Float arguments accept any Go numeric
// kind and json.Number. Booleans and strings are never numbers.
type Args struct {
	Positional []any
	Named      map[string]any
}

// Bind resolves args into a Request. Arity, naming and scalar type
// problems, and list arguments that are not lists, fail with
// ErrArgumentBinding. List length and element problems fail with
// ErrArgumentValidation.
func Bind(args Args) (Request, error) {
	if len(args.Positional) > len(argNames) {
		return Request{}, bindingError("", "takes at most %d arguments (%d given)",
			len(argNames), len(args.Positional))
	}

	values := make(map[string]any, len(argNames))
	for i, v := range args.Positional {
		values[argNames[i]] = v
	}
	for name, v := range args.Named {
		if !knownArg(name) {
			return Request{}, bindingError(name, "unexpected keyword argument")
		}
		if _, dup := values[name]; dup {
			return Request{}, bindingError(name, "argument given by name and position")
		}
		values[name] = v
	}

	for _, name := range argNames[:numRequired] {
		if _, ok := values[name]; !ok {
			return Request{}, bindingError(name, "required argument missing")
		}
	}

	var (
		req Request
		err error
	)
	if req.Year, err = bindInt(values, "year"); err != nil {
		return Request{}, err
	}
	if req.DOY, err = bindInt(values, "doy"); err != nil {
		return Request{}, err
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{"sec", &req.Sec},
		{"alt", &req.Alt},
		{"g_lat", &req.GLat},
		{"g_long", &req.GLong},
		{"lst", &req.LST},
		{"f107A", &req.F107A},
		{"f107", &req.F107},
		{"ap", &req.Ap},
	}
	for _, f := range floats {
		if *f.dst, err = bindFloat(values, f.name); err != nil {
			return Request{}, err
		}
	}

	// Both lists are shape-checked before either is validated.
	apList, hasAp, err := bindList(values, "ap_a")
	if err != nil {
		return Request{}, err
	}
	flagList, hasFlags, err := bindList(values, "flags")
	if err != nil {
		return Request{}, err
	}

	if hasAp {
		if req.ApA, err = validateApList(apList); err != nil {
			return Request{}, err
		}
	}
	if hasFlags {
		if req.Flags, err = validateFlagList(flagList); err != nil {
			return Request{}, err
		}
	}
	return req, nil
}

// Call binds args and invokes the selected entry point.
func (a *Adapter) Call(method Method, args Args) (Result, error) {
	req, err := Bind(args)
	if err != nil {
		return Result{}, err
	}
	return a.Compute(method, req)
}

func knownArg(name string) bool {
	for _, n := range argNames {
		if n == name {
			return true
		}
	}
	return false
}

// =============================================================================
// Scalars
// =============================================================================

func bindInt(values map[string]any, name string) (int, error) {
	v := values[name]
	i, ok := asInt(v)
	if !ok {
		return 0, bindingError(name, "an integer is required (got %s)", typeName(v))
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, bindingError(name, "integer out of range")
	}
	return int(i), nil
}

func bindFloat(values map[string]any, name string) (float64, error) {
	v := values[name]
	f, ok := asFloat(v)
	if !ok {
		return 0, bindingError(name, "must be a real number, not %s", typeName(v))
	}
	return f, nil
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(string(x), 10, 64)
		return i, err == nil
	case bool, nil:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case bool, nil:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	}
	return 0, false
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	if n, ok := v.(json.Number); ok {
		return "number " + string(n)
	}
	return reflect.TypeOf(v).String()
}

// =============================================================================
// Lists
// =============================================================================

// bindList returns the elements of an optional list argument. Any slice or
// array is a list; everything else, nil included, is a binding error.
func bindList(values map[string]any, name string) ([]any, bool, error) {
	v, ok := values[name]
	if !ok {
		return nil, false, nil
	}
	if v == nil {
		return nil, false, bindingError(name, "must be list, not nil")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false, bindingError(name, "must be list, not %s", typeName(v))
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true, nil
}

// BindApList checks a dynamically typed ap_a value the way Bind does.
func BindApList(v any) ([]float64, error) {
	items, _, err := bindList(map[string]any{"ap_a": v}, "ap_a")
	if err != nil {
		return nil, err
	}
	return validateApList(items)
}

// BindFlagList checks a dynamically typed flags value the way Bind does.
func BindFlagList(v any) ([]int, error) {
	items, _, err := bindList(map[string]any{"flags": v}, "flags")
	if err != nil {
		return nil, err
	}
	return validateFlagList(items)
}

func validateApList(items []any) ([]float64, error) {
	if len(items) != ApArrayLen {
		return nil, validationError("ap_a", msgApWrongSize)
	}
	ap := make([]float64, ApArrayLen)
	for i, item := range items {
		f, ok := asFloat(item)
		if !ok {
			return nil, validationError("ap_a", msgApBadElement)
		}
		ap[i] = f
	}
	return ap, nil
}

func validateFlagList(items []any) ([]int, error) {
	if len(items) != FlagsLen {
		return nil, validationError("flags", msgFlagsWrongSize)
	}
	flags := make([]int, FlagsLen)
	for i, item := range items {
		n, ok := asInt(item)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, validationError("flags", msgFlagsBadElement)
		}
		flags[i] = int(n)
	}
	return flags, nil
}
