package trigger

import (
	"fmt"
	"sort"
)

// DependencySource resolves which targets depend on a trigger.
type DependencySource interface {
	// DependentsOf maps absolute target names ("scope.name" or
	// "scope._section_") to their dependency kind. An empty map is normal.
	DependentsOf(trigger string) map[string]DepKind
}

// StateSink is the live view of the dialog's fields.
type StateSink interface {
	Fields() []FieldRef
	SetActiveState(scope, name string, active bool)
}

// BatchSink is implemented by sinks that can apply several changes as one
// update. Section toggles are delivered through it when available.
type BatchSink interface {
	StateSink
	SetActiveStates(changes []ActiveChange)
}

// Propagator applies trigger outputs to dependent fields and sections.
type Propagator struct {
	deps DependencySource
	sink StateSink
}

// NewPropagator wires a dependency source to a state sink.
func NewPropagator(deps DependencySource, sink StateSink) *Propagator {
	return &Propagator{deps: deps, sink: sink}
}

// Apply activates or deactivates every dependent of trigger according to
// out. Targets are resolved before anything changes: on error no active
// state is touched.
func (p *Propagator) Apply(trigger string, out any) error {
	changes, err := p.Plan(trigger, out)
	if err != nil {
		return err
	}
	applyChanges(p.sink, changes)
	return nil
}

// Plan resolves the changes Apply would make without making them.
func (p *Propagator) Plan(trigger string, out any) ([]ActiveChange, error) {
	deps := p.deps.DependentsOf(trigger)
	if len(deps) == 0 {
		return nil, nil
	}
	fields := p.sink.Fields()
	byName := make(map[string]FieldRef, len(fields))
	for _, f := range fields {
		byName[f.AbsName()] = f
	}
	targets := make([]string, 0, len(deps))
	for abs := range deps {
		targets = append(targets, abs)
	}
	sort.Strings(targets)

	truthy := Truthy(out)
	var changes []ActiveChange
	for _, abs := range targets {
		kind := deps[abs]
		var active bool
		switch kind {
		case ActiveIf:
			active = truthy
		case InactiveIf:
			active = !truthy
		default:
			return nil, &SchemaError{Trigger: trigger, Target: abs, Reason: fmt.Sprintf("unknown dependency kind %q", kind)}
		}
		if scope, ok := SectionScope(abs); ok {
			section := sectionChanges(fields, scope, active, "")
			if len(section) == 0 {
				return nil, &SchemaError{Trigger: trigger, Target: abs, Reason: "dependency names a section with no parameters"}
			}
			changes = append(changes, section...)
			continue
		}
		f, ok := byName[abs]
		if !ok {
			return nil, &SchemaError{Trigger: trigger, Target: abs, Reason: "dependency names an unknown parameter"}
		}
		changes = append(changes, ActiveChange{Field: f, Active: active})
	}
	return changes, nil
}

// sectionChanges builds the toggle for every field in scope except the one
// named except.
func sectionChanges(fields []FieldRef, scope string, active bool, except string) []ActiveChange {
	var changes []ActiveChange
	for _, f := range fields {
		if f.Scope != scope || (except != "" && f.Name == except) {
			continue
		}
		changes = append(changes, ActiveChange{Field: f, Active: active})
	}
	return changes
}

func applyChanges(sink StateSink, changes []ActiveChange) {
	if len(changes) == 0 {
		return
	}
	if batch, ok := sink.(BatchSink); ok {
		batch.SetActiveStates(changes)
		return
	}
	for _, c := range changes {
		sink.SetActiveState(c.Field.Scope, c.Field.Name, c.Active)
	}
}
