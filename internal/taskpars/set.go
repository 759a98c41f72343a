// Package taskpars holds a task's parameter set: the schema-declared
// parameters, their current values and active flags, the rule table, and the
// dependency index the trigger engine consults.
package taskpars

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/google/uuid"

	"github.com/kingrea/teal/internal/trigger"
)

// Parameter is one scoped, typed value.
type Parameter struct {
	Scope   string
	Name    string
	Spec    ParamSpec
	Value   any
	Default any
	Active  bool
}

// AbsName returns "scope.name".
func (p *Parameter) AbsName() string {
	return trigger.AbsName(p.Scope, p.Name)
}

// Dependency returns the trigger gating this parameter, if any.
func (p *Parameter) Dependency() (Dependency, bool) {
	return p.Spec.dependency()
}

// Snapshot is a deep copy of every value, scope to name to value.
type Snapshot map[string]map[string]any

type paramKey struct {
	scope string
	name  string
}

// Set is the full parameter collection for one task. A Set is never partly
// rebuilt: loading another file or resetting to defaults yields a new Set,
// which starts with an empty dependency cache.
type Set struct {
	id         uuid.UUID
	schema     Schema
	schemaPath string
	filename   string

	params   []*Parameter
	index    map[paramKey]*Parameter
	warnings []string

	depCache map[string]map[string]trigger.DepKind
}

// NewSet builds a Set from a validated schema with every parameter at its
// default value.
func NewSet(schema Schema) (*Set, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	s := &Set{
		id:       uuid.New(),
		schema:   schema,
		index:    make(map[paramKey]*Parameter),
		depCache: make(map[string]map[string]trigger.DepKind),
	}
	for _, sec := range schema.Sections {
		for _, spec := range sec.Params {
			def, err := coerce(spec, spec.Default)
			if err != nil {
				return nil, &ValueError{Param: trigger.AbsName(sec.Scope, spec.Name), Value: spec.Default, Err: err}
			}
			p := &Parameter{
				Scope:   sec.Scope,
				Name:    spec.Name,
				Spec:    spec,
				Value:   def,
				Default: def,
				Active:  true,
			}
			key := paramKey{scope: sec.Scope, name: spec.Name}
			if _, dup := s.index[key]; dup {
				return nil, fmt.Errorf("taskpars %s: duplicate parameter %s", schema.Task, p.AbsName())
			}
			s.index[key] = p
			s.params = append(s.params, p)
		}
	}
	return s, nil
}

// ID distinguishes Set instances in logs.
func (s *Set) ID() string { return s.id.String() }

// Task returns the task name.
func (s *Set) Task() string { return s.schema.Task }

// Schema returns the schema the Set was built from.
func (s *Set) Schema() Schema { return s.schema }

// SchemaPath returns the schema file, if the Set was loaded from disk.
func (s *Set) SchemaPath() string { return s.schemaPath }

// Filename returns the value file currently being edited.
func (s *Set) Filename() string { return s.filename }

// SetFilename changes the file the Set saves to.
func (s *Set) SetFilename(path string) { s.filename = path }

// Warnings lists value-file entries that matched no parameter.
func (s *Set) Warnings() []string {
	return append([]string(nil), s.warnings...)
}

// Params returns the parameters in schema order.
func (s *Set) Params() []*Parameter {
	return append([]*Parameter(nil), s.params...)
}

// Param looks up a parameter.
func (s *Set) Param(scope, name string) (*Parameter, bool) {
	p, ok := s.index[paramKey{scope: scope, name: name}]
	return p, ok
}

// Scopes returns the declared scopes in schema order.
func (s *Set) Scopes() []string {
	scopes := make([]string, 0, len(s.schema.Sections))
	for _, sec := range s.schema.Sections {
		scopes = append(scopes, sec.Scope)
	}
	return scopes
}

// SetValue coerces raw into the parameter's type and stores it. It returns
// the previous value.
func (s *Set) SetValue(scope, name string, raw any) (any, error) {
	p, ok := s.Param(scope, name)
	if !ok {
		return nil, fmt.Errorf("taskpars %s: unknown parameter %s", s.Task(), trigger.AbsName(scope, name))
	}
	v, err := coerce(p.Spec, raw)
	if err != nil {
		return nil, &ValueError{Param: p.AbsName(), Value: raw, Err: err}
	}
	prev := p.Value
	p.Value = v
	return prev, nil
}

// Value implements trigger.ParamSource.
func (s *Set) Value(scope, name string) (any, bool) {
	p, ok := s.Param(scope, name)
	if !ok {
		return nil, false
	}
	return p.Value, true
}

// SampleValue implements trigger.Sampler.
func (s *Set) SampleValue(scope, name string) any {
	p, ok := s.Param(scope, name)
	if !ok {
		return nil
	}
	if p.Value != nil {
		return p.Value
	}
	return zeroValue(p.Spec.Type)
}

// TriggerNameOf implements trigger.ParamSource.
func (s *Set) TriggerNameOf(scope, name string) string {
	p, ok := s.Param(scope, name)
	if !ok {
		return ""
	}
	return p.Spec.Triggers
}

// Rules implements trigger.ParamSource.
func (s *Set) Rules() map[string]string {
	out := make(map[string]string, len(s.schema.Rules))
	for name, sig := range s.schema.Rules {
		out[name] = sig
	}
	return out
}

// DependentsOf returns every parameter and section gated on trigger. The
// result is built on first request and cached for the life of the Set.
func (s *Set) DependentsOf(name string) map[string]trigger.DepKind {
	if deps, ok := s.depCache[name]; ok {
		return deps
	}
	deps := map[string]trigger.DepKind{}
	for _, sec := range s.schema.Sections {
		if dep, ok := sec.dependency(); ok && dep.Trigger == name {
			deps[trigger.SectionName(sec.Scope)] = dep.Kind
		}
		for _, spec := range sec.Params {
			if dep, ok := spec.dependency(); ok && dep.Trigger == name {
				deps[trigger.AbsName(sec.Scope, spec.Name)] = dep.Kind
			}
		}
	}
	s.depCache[name] = deps
	return deps
}

// DependencyTriggers implements trigger.DependencyLister. It lists, sorted and
// de-duplicated, every trigger named by a section or parameter declaration.
func (s *Set) DependencyTriggers() []string {
	seen := map[string]bool{}
	var names []string
	add := func(dep Dependency, ok bool) {
		if ok && !seen[dep.Trigger] {
			seen[dep.Trigger] = true
			names = append(names, dep.Trigger)
		}
	}
	for _, sec := range s.schema.Sections {
		add(sec.dependency())
		for _, spec := range sec.Params {
			add(spec.dependency())
		}
	}
	sort.Strings(names)
	return names
}

// Fields implements trigger.StateSink.
func (s *Set) Fields() []trigger.FieldRef {
	refs := make([]trigger.FieldRef, len(s.params))
	for i, p := range s.params {
		refs[i] = trigger.FieldRef{Scope: p.Scope, Name: p.Name}
	}
	return refs
}

// SetActiveState implements trigger.StateSink. Values are never touched.
func (s *Set) SetActiveState(scope, name string, active bool) {
	if p, ok := s.Param(scope, name); ok {
		p.Active = active
	}
}

// SetActiveStates implements trigger.BatchSink.
func (s *Set) SetActiveStates(changes []trigger.ActiveChange) {
	for _, c := range changes {
		s.SetActiveState(c.Field.Scope, c.Field.Name, c.Active)
	}
}

// Active reports a parameter's active flag.
func (s *Set) Active(scope, name string) bool {
	p, ok := s.Param(scope, name)
	return ok && p.Active
}

// Snapshot deep-copies the current values.
func (s *Set) Snapshot() Snapshot {
	snap := Snapshot{}
	for _, p := range s.params {
		scope, ok := snap[p.Scope]
		if !ok {
			scope = map[string]any{}
			snap[p.Scope] = scope
		}
		scope[p.Name] = p.Value
	}
	return snap
}

// HasUnsavedChanges reports whether any value differs from saved. A Set is
// clean when it matches its last saved snapshot and dirty otherwise.
func (s *Set) HasUnsavedChanges(saved Snapshot) bool {
	return !reflect.DeepEqual(s.Snapshot(), saved)
}

// IsSameTaskAs reports whether other edits the same task.
func (s *Set) IsSameTaskAs(other *Set) bool {
	return other != nil && s.Task() == other.Task()
}

// TriggerBindings maps each bound trigger to the fields that fire it.
func (s *Set) TriggerBindings() map[string][]string {
	out := map[string][]string{}
	for _, p := range s.params {
		if p.Spec.Triggers == "" {
			continue
		}
		out[p.Spec.Triggers] = append(out[p.Spec.Triggers], p.AbsName())
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}
