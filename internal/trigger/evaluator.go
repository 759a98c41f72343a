package trigger

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const ruleFuncName = "Eval"

// Evaluator runs rule bodies inside an embedded Go interpreter. Each body is
// wrapped as
//
//	func Eval(SCOPE string, NAME string, VAL T) (OUT interface{})
//
// where T is the dynamic type of the committed value, so bodies such as
// "OUT = VAL > 10" type-check against integer fields. Rule code ships with
// the installed schema and is trusted; it runs with the host's privileges.
type Evaluator struct {
	programs map[programKey]reflect.Value
}

type programKey struct {
	code    string
	imports string
	valType string
}

// NewEvaluator returns an evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{programs: make(map[programKey]reflect.Value)}
}

// Compile prepares the program for rule and values shaped like sample.
func (e *Evaluator) Compile(rule Rule, sample any) error {
	_, err := e.program(rule.Code(), rule.Imports(), valueTypeName(sample))
	return err
}

// Evaluate runs code with SCOPE, NAME and VAL bound and returns OUT, or
// NoOutput when the body leaves OUT unset.
func (e *Evaluator) Evaluate(scope, name string, val any, code string, imports []string) (out any, err error) {
	fn, err := e.program(code, imports, valueTypeName(val))
	if err != nil {
		return nil, err
	}
	arg := reflect.Zero(fn.Type().In(2))
	if val != nil {
		arg = reflect.ValueOf(val)
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("rule panicked: %v", r)
		}
	}()
	results := fn.Call([]reflect.Value{reflect.ValueOf(scope), reflect.ValueOf(name), arg})
	if len(results) != 1 {
		return nil, fmt.Errorf("rule returned %d values", len(results))
	}
	res := results[0]
	if !res.IsValid() || (res.Kind() == reflect.Interface && res.IsNil()) {
		return NoOutput, nil
	}
	return res.Interface(), nil
}

func (e *Evaluator) program(code string, imports []string, valType string) (fn reflect.Value, err error) {
	if strings.TrimSpace(code) == "" {
		return reflect.Value{}, fmt.Errorf("rule has no code")
	}
	key := programKey{code: code, imports: strings.Join(imports, " "), valType: valType}
	if cached, ok := e.programs[key]; ok {
		return cached, nil
	}
	defer func() {
		if r := recover(); r != nil {
			fn, err = reflect.Value{}, fmt.Errorf("compile rule: %v", r)
		}
	}()
	i := interp.New(interp.Options{})
	i.Use(stdlib.Symbols)
	if _, err := i.Eval(ruleSource(code, imports, valType)); err != nil {
		return reflect.Value{}, fmt.Errorf("compile rule: %w", err)
	}
	value, err := i.Eval(ruleFuncName)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("compile rule: %w", err)
	}
	if value.Kind() != reflect.Func || value.Type().NumIn() != 3 {
		return reflect.Value{}, fmt.Errorf("compile rule: %s is not a rule function", ruleFuncName)
	}
	e.programs[key] = value
	return value, nil
}

func ruleSource(code string, imports []string, valType string) string {
	var b strings.Builder
	b.WriteString("package main\n\n")
	for _, pkg := range imports {
		b.WriteString("import " + strconv.Quote(pkg) + "\n")
	}
	fmt.Fprintf(&b, "\nfunc %s(SCOPE string, NAME string, VAL %s) (OUT interface{}) {\n", ruleFuncName, valType)
	b.WriteString(code)
	b.WriteString("\n\treturn\n}\n")
	return b.String()
}

// valueTypeName spells the Go type used for VAL. Only predeclared types are
// named; everything else is passed as interface{}.
func valueTypeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case int:
		return "int"
	case int64:
		return "int64"
	case float64:
		return "float64"
	}
	return "interface{}"
}
