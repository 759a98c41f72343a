package trigger

import (
	"reflect"
	"strings"
)

// noOutput is the type of NoOutput.
type noOutput struct{}

func (noOutput) String() string { return "<no output>" }

// NoOutput is returned by the evaluator when rule code never assigns OUT.
var NoOutput any = noOutput{}

// Truthy interprets a trigger output. Strings follow the canonical
// boolean-like form, case-insensitive membership in {on, yes, true}. Other
// values use zero/empty semantics.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil, noOutput:
		return false
	case string:
		return truthyString(t)
	case bool:
		return t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String:
		return truthyString(rv.String())
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	}
	return true
}

func truthyString(s string) bool {
	switch strings.ToLower(s) {
	case "on", "yes", "true":
		return true
	}
	return false
}
