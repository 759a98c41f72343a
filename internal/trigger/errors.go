package trigger

import (
	"errors"
	"fmt"
)

// ErrSchema marks schema-authoring mistakes detected while dispatching edits.
// Every *SchemaError matches it with errors.Is.
var ErrSchema = errors.New("trigger: schema error")

// SchemaError reports a rule table or dependency declaration that does not
// line up with the parameter set. These are installation bugs, never
// transient conditions.
type SchemaError struct {
	Trigger string
	Target  string
	Reason  string
}

func (e *SchemaError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("trigger %q: %s", e.Trigger, e.Reason)
	}
	return fmt.Sprintf("trigger %q, %s: %s", e.Trigger, e.Target, e.Reason)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// EvalError wraps a failure raised while compiling or running rule code.
type EvalError struct {
	Trigger string
	Param   string
	Err     error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("trigger %q for %s: evaluate: %v", e.Trigger, e.Param, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
