// Package trigger implements the rule engine behind the task editor: edits
// to trigger-bearing fields compute a derived value which activates or
// deactivates other fields and whole scopes.
//
// The engine is driven synchronously from the dialog's event loop and holds
// no locks.
package trigger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ParamSource is the engine's view of the task parameter set.
type ParamSource interface {
	DependencySource
	// TriggerNameOf returns the trigger bound to a field, or "".
	TriggerNameOf(scope, name string) string
	// Rules returns the task's rule table, trigger name to signature.
	Rules() map[string]string
	// Value returns the current typed value of a field.
	Value(scope, name string) (any, bool)
}

// Sampler is implemented by sources that can supply a representative value
// of a field's type even when the field is unset. Validate uses it to
// compile rule bodies against the right VAL type.
type Sampler interface {
	SampleValue(scope, name string) any
}

// DependencyLister is implemented by sources that can enumerate every
// trigger named by an active_if/inactive_if declaration. Validate uses it to
// report declarations gated on triggers nothing defines.
type DependencyLister interface {
	DependencyTriggers() []string
}

// Logger receives one line per rule firing.
type Logger interface {
	Info(format string, args ...any)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger routes rule firings to log.
func WithLogger(log Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// Engine dispatches field edits to canned and rule-based triggers.
type Engine struct {
	source   ParamSource
	sink     StateSink
	registry *Registry
	eval     *Evaluator
	prop     *Propagator
	log      Logger
}

// New builds an engine over source, applying active-state changes to sink.
func New(source ParamSource, sink StateSink, opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if err := e.Replace(source, sink); err != nil {
		return nil, err
	}
	return e, nil
}

// Replace swaps in a new parameter set. Registry, compiled programs and the
// propagator are rebuilt together; on error the engine keeps its previous
// state.
func (e *Engine) Replace(source ParamSource, sink StateSink) error {
	if source == nil || sink == nil {
		return fmt.Errorf("trigger: parameter source and state sink are required")
	}
	registry, err := NewRegistry(source.Rules())
	if err != nil {
		return err
	}
	e.source = source
	e.sink = sink
	e.registry = registry
	e.eval = NewEvaluator()
	e.prop = NewPropagator(source, sink)
	return nil
}

// IsTriggerBearing reports whether edits to the field need a callback.
func (e *Engine) IsTriggerBearing(scope, name string) bool {
	return e.source.TriggerNameOf(scope, name) != ""
}

// OnFieldEdited runs the trigger bound to the edited field, if any.
func (e *Engine) OnFieldEdited(scope, name string, previous, next any) error {
	trigger := e.source.TriggerNameOf(scope, name)
	if trigger == "" {
		return nil
	}
	if trigger == SectionSwitch {
		active := Truthy(fmt.Sprint(next))
		applyChanges(e.sink, sectionChanges(e.sink.Fields(), scope, active, name))
		return nil
	}
	if rule, ok := e.registry.Lookup(trigger); ok && rule.Code() != "" {
		// An unset field has no value to bind VAL to; its dependents see
		// NoOutput, which is falsy.
		out := NoOutput
		if next != nil {
			var err error
			out, err = e.eval.Evaluate(scope, name, next, rule.Code(), rule.Imports())
			if err != nil {
				return &EvalError{Trigger: trigger, Param: AbsName(scope, name), Err: err}
			}
		}
		if e.log != nil {
			e.log.Info("%s: %s --> %v", name, trigger, out)
		}
		return e.prop.Apply(trigger, out)
	}
	return &SchemaError{
		Trigger: trigger,
		Target:  AbsName(scope, name),
		Reason:  "trigger is neither canned nor a rule with code",
	}
}

// Refresh replays every trigger-bearing field with its current value so
// active states reflect a freshly loaded parameter set.
func (e *Engine) Refresh() error {
	for _, f := range e.sink.Fields() {
		if !e.IsTriggerBearing(f.Scope, f.Name) {
			continue
		}
		val, _ := e.source.Value(f.Scope, f.Name)
		if err := e.OnFieldEdited(f.Scope, f.Name, val, val); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the rule table against the live fields without changing
// any state. Every bound trigger must resolve, every rule body must compile
// for its fields' value types, every dependency must name a live target, and
// every trigger a dependency names must be defined or bound.
func (e *Engine) Validate() error {
	var errs []error
	checked := map[string]bool{}
	bound := map[string]bool{}
	for _, f := range e.sink.Fields() {
		trigger := e.source.TriggerNameOf(f.Scope, f.Name)
		if trigger == "" || trigger == SectionSwitch {
			continue
		}
		bound[trigger] = true
		rule, ok := e.registry.Lookup(trigger)
		if !ok || rule.Code() == "" {
			errs = append(errs, &SchemaError{Trigger: trigger, Target: f.AbsName(), Reason: "trigger is neither canned nor a rule with code"})
			continue
		}
		val, _ := e.source.Value(f.Scope, f.Name)
		if sampler, ok := e.source.(Sampler); ok {
			val = sampler.SampleValue(f.Scope, f.Name)
		}
		if err := e.eval.Compile(rule, val); err != nil {
			errs = append(errs, &EvalError{Trigger: trigger, Param: f.AbsName(), Err: err})
		}
		checked[trigger] = true
	}
	for _, name := range e.registry.Names() {
		checked[name] = true
	}
	if lister, ok := e.source.(DependencyLister); ok {
		for _, trigger := range lister.DependencyTriggers() {
			if trigger == SectionSwitch || bound[trigger] {
				continue
			}
			if _, ok := e.registry.Lookup(trigger); ok {
				continue
			}
			errs = append(errs, &SchemaError{
				Trigger: trigger,
				Target:  strings.Join(e.dependentNames(trigger), ", "),
				Reason:  "dependency names a trigger that is neither defined nor bound to a field",
			})
		}
	}
	triggers := make([]string, 0, len(checked))
	for trigger := range checked {
		triggers = append(triggers, trigger)
	}
	sort.Strings(triggers)
	for _, trigger := range triggers {
		if _, err := e.prop.Plan(trigger, NoOutput); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) dependentNames(trigger string) []string {
	deps := e.source.DependentsOf(trigger)
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
