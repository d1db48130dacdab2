package kameleoon

import (
	"bytes"
	"encoding"
	"encoding/json"
	"math"
	"reflect"
	"slices"
	"sort"
	"strings"

	of "github.com/open-feature/go-sdk/openfeature"
)

// dataConverters maps reserved context keys to the constructor that builds
// client data from one element of the attribute. A constructor returns
// false when the element is malformed; such elements are dropped.
var dataConverters = map[string]func(any) (Data, bool){
	ConversionKey: makeConversion,
	CustomDataKey: makeCustomData,
}

// Opaque wraps a native value that has no representation in the OpenFeature
// value model (functions, channels, complex numbers and the like).
type Opaque struct {
	Value any
}

// ToClientData converts the reserved attributes of ec into client data.
//
// Attributes are visited in key order and list-valued attributes element by
// element, so the result order is stable for a given context. Attributes
// other than "conversion" and "customData" are ignored, as are malformed
// elements (a missing or non-integer "goalId" or "index").
func ToClientData(ec of.EvaluationContext) []Data {
	return attributesToClientData(ec.Attributes())
}

func attributesToClientData(attributes map[string]any) []Data {
	if len(attributes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		if _, ok := dataConverters[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var data []Data
	for _, k := range keys {
		convert := dataConverters[k]
		elements, ok := asList(attributes[k])
		if !ok {
			elements = []any{attributes[k]}
		}
		for _, element := range elements {
			if d, ok := convert(element); ok {
				data = append(data, d)
			}
		}
	}
	return data
}

// ToValue converts a native value into the OpenFeature value model: nil,
// bool, int64, float64, string, []any and map[string]any.
//
// It never fails. Maps with non-string keys, unsigned integers above
// math.MaxInt64, and other values with no representation come back wrapped
// in Opaque.
func ToValue(native any) any {
	switch v := native.(type) {
	case nil, bool, int64, float64, string, Opaque:
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = ToValue(e)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, e := range v {
			out = append(out, ToValue(e))
		}
		return out
	}

	if m, ok := asStructure(native); ok {
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = ToValue(e)
		}
		return out
	}
	if l, ok := asList(native); ok {
		out := make([]any, 0, len(l))
		for _, e := range l {
			out = append(out, ToValue(e))
		}
		return out
	}
	if i, ok := asInteger(native); ok {
		return i
	}
	return scalarValue(native)
}

// scalarValue handles whatever the structural cases above did not claim.
func scalarValue(native any) any {
	rv := reflect.ValueOf(native)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return ToValue(rv.Elem().Interface())
	case reflect.Struct:
		return structValue(rv)
	}
	return Opaque{Value: native}
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// structValue reads the exported fields of a struct into a structure, named
// and filtered the way encoding/json would. Field values keep their Go type,
// so a float64 field holding 3 stays a float64. Structs with their own JSON
// or text encoding, or with unexported embedded structs whose promoted
// fields reflection cannot read, go through encoding/json instead.
func structValue(rv reflect.Value) any {
	t := rv.Type()
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) || hasUnexportedEmbedded(t) {
		if v, ok := jsonValue(rv.Interface()); ok {
			return v
		}
		return Opaque{Value: rv.Interface()}
	}

	out := make(map[string]any, t.NumField())
	addStructFields(out, rv)
	return out
}

func hasUnexportedEmbedded(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && !f.IsExported() {
			return true
		}
	}
	return false
}

func addStructFields(out map[string]any, rv reflect.Value) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if f.Anonymous && name == "" {
			embedded := fv
			if embedded.Kind() == reflect.Pointer {
				if embedded.IsNil() {
					continue
				}
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				addStructFields(out, embedded)
				continue
			}
		}

		if name == "" {
			name = f.Name
		}
		if slices.Contains(strings.Split(opts, ","), "omitempty") && isEmptyValue(fv) {
			continue
		}
		out[name] = ToValue(fv.Interface())
	}
}

// isEmptyValue follows the omitempty rule of encoding/json.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

// jsonValue decodes the JSON encoding of native. Numbers written without a
// fraction or exponent become int64, all others float64.
func jsonValue(native any) (any, bool) {
	raw, err := json.Marshal(native)
	if err != nil {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, false
	}
	return normalizeJSON(decoded), true
}

func normalizeJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeJSON(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeJSON(e)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return t
	}
}

// MakeConversion builds the context value for a conversion.
//
//	ec := of.NewEvaluationContext("visitor", map[string]any{
//	    kameleoon.ConversionKey: kameleoon.MakeConversion(42, 9.99),
//	})
func MakeConversion(goalID int, revenue float64) map[string]any {
	return map[string]any{
		ConversionGoalID:  int64(goalID),
		ConversionRevenue: revenue,
	}
}

// MakeCustomData builds the context value for a custom data entry.
func MakeCustomData(id int, values ...string) map[string]any {
	list := make([]any, 0, len(values))
	for _, v := range values {
		list = append(list, v)
	}
	return map[string]any{
		CustomDataIndex:  int64(id),
		CustomDataValues: list,
	}
}

func makeConversion(v any) (Data, bool) {
	fields, ok := asStructure(v)
	if !ok {
		return nil, false
	}
	goalID, ok := asInteger(fields[ConversionGoalID])
	if !ok {
		return nil, false
	}
	revenue, ok := asDouble(fields[ConversionRevenue])
	if !ok {
		revenue = 0
	}
	return Conversion{GoalID: int(goalID), Revenue: revenue}, true
}

func makeCustomData(v any) (Data, bool) {
	fields, ok := asStructure(v)
	if !ok {
		return nil, false
	}
	index, ok := asInteger(fields[CustomDataIndex])
	if !ok {
		return nil, false
	}
	return CustomData{ID: int(index), Values: asStrings(fields[CustomDataValues])}, true
}

// asStrings reads a string or a list of strings. Non-string list elements
// are skipped.
func asStrings(v any) []string {
	if s, ok := v.(string); ok {
		return []string{s}
	}
	values := []string{}
	elements, ok := asList(v)
	if !ok {
		return values
	}
	for _, e := range elements {
		if s, ok := e.(string); ok {
			values = append(values, s)
		}
	}
	return values
}

// asStructure reads any map keyed by strings.
func asStructure(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

// asList reads any slice or array. Byte slices are left alone.
func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
	case reflect.Array:
	default:
		return nil, false
	}
	l := make([]any, rv.Len())
	for i := range l {
		l[i] = rv.Index(i).Interface()
	}
	return l, true
}

// asInteger reads any Go integer kind as int64. Unsigned values above
// math.MaxInt64 are rejected.
func asInteger(v any) (int64, bool) {
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
	default:
		return 0, false
	}
}

// asDouble reads float kinds, and integer kinds widened to float64.
func asDouble(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	if i, ok := asInteger(v); ok {
		return float64(i), true
	}
	return 0, false
}
