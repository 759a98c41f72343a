package taskpars

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/teal/internal/trigger"
)

// ParamType names the value kinds a schema may declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeFloat   ParamType = "float"
	TypeBoolean ParamType = "boolean"
	TypeOption  ParamType = "option"
)

func (t ParamType) valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeOption:
		return true
	}
	return false
}

// Schema models a task's *.spec.yaml file.
//
// Rules maps trigger names to flat keyword signatures such as
// "string_kw(code='OUT = VAL > 10')". Parameters bind a trigger with
// `triggers` and declare their own gating with `active_if`/`inactive_if`.
type Schema struct {
	Task        string            `yaml:"task"`
	Description string            `yaml:"description,omitempty"`
	Sections    []SectionSpec     `yaml:"sections"`
	Rules       map[string]string `yaml:"rules,omitempty"`
}

// SectionSpec declares one scope. The root scope has an empty name.
type SectionSpec struct {
	Scope      string      `yaml:"scope"`
	ActiveIf   string      `yaml:"active_if,omitempty"`
	InactiveIf string      `yaml:"inactive_if,omitempty"`
	Params     []ParamSpec `yaml:"params"`
}

// ParamSpec declares one parameter.
type ParamSpec struct {
	Name       string    `yaml:"name"`
	Type       ParamType `yaml:"type"`
	Default    any       `yaml:"default,omitempty"`
	Choices    []string  `yaml:"choices,omitempty"`
	Min        *float64  `yaml:"min,omitempty"`
	Max        *float64  `yaml:"max,omitempty"`
	Help       string    `yaml:"help,omitempty"`
	Triggers   string    `yaml:"triggers,omitempty"`
	ActiveIf   string    `yaml:"active_if,omitempty"`
	InactiveIf string    `yaml:"inactive_if,omitempty"`
}

// Dependency gates a parameter or section on a trigger's output.
type Dependency struct {
	Trigger string
	Kind    trigger.DepKind
}

// ParseSchema decodes and validates a schema payload.
func ParseSchema(data []byte) (Schema, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Schema{}, fmt.Errorf("taskpars: schema payload is empty")
	}
	var schema Schema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&schema); err != nil {
		return Schema{}, fmt.Errorf("taskpars: decode schema: %w", err)
	}
	schema = schema.normalized()
	if err := schema.Validate(); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

func (s Schema) normalized() Schema {
	clone := Schema{
		Task:        strings.TrimSpace(s.Task),
		Description: strings.TrimSpace(s.Description),
		Sections:    make([]SectionSpec, len(s.Sections)),
	}
	for i, sec := range s.Sections {
		out := SectionSpec{
			Scope:      strings.TrimSpace(sec.Scope),
			ActiveIf:   strings.TrimSpace(sec.ActiveIf),
			InactiveIf: strings.TrimSpace(sec.InactiveIf),
			Params:     make([]ParamSpec, len(sec.Params)),
		}
		for j, p := range sec.Params {
			p.Name = strings.TrimSpace(p.Name)
			p.Type = ParamType(strings.ToLower(strings.TrimSpace(string(p.Type))))
			if p.Type == "" {
				p.Type = TypeString
			}
			p.Triggers = strings.TrimSpace(p.Triggers)
			p.ActiveIf = strings.TrimSpace(p.ActiveIf)
			p.InactiveIf = strings.TrimSpace(p.InactiveIf)
			out.Params[j] = p
		}
		clone.Sections[i] = out
	}
	if len(s.Rules) > 0 {
		clone.Rules = make(map[string]string, len(s.Rules))
		for name, sig := range s.Rules {
			clone.Rules[strings.TrimSpace(name)] = sig
		}
	}
	return clone
}

// Validate enforces unique scope+name pairs and well-formed declarations.
func (s Schema) Validate() error {
	if s.Task == "" {
		return fmt.Errorf("taskpars: task is required")
	}
	scopes := map[string]bool{}
	for i, sec := range s.Sections {
		if strings.Contains(sec.Scope, ".") {
			return fmt.Errorf("taskpars %s: sections[%d]: scope %q must not contain '.'", s.Task, i, sec.Scope)
		}
		if scopes[sec.Scope] {
			return fmt.Errorf("taskpars %s: duplicate scope %q", s.Task, sec.Scope)
		}
		scopes[sec.Scope] = true
		if sec.ActiveIf != "" && sec.InactiveIf != "" {
			return fmt.Errorf("taskpars %s: scope %q declares both active_if and inactive_if", s.Task, sec.Scope)
		}
		names := map[string]bool{}
		for j, p := range sec.Params {
			label := fmt.Sprintf("taskpars %s: %s", s.Task, trigger.AbsName(sec.Scope, p.Name))
			if p.Name == "" {
				return fmt.Errorf("taskpars %s: sections[%d].params[%d]: name is required", s.Task, i, j)
			}
			if p.Name == trigger.SectionTarget || strings.Contains(p.Name, ".") {
				return fmt.Errorf("%s: reserved or invalid name", label)
			}
			if names[p.Name] {
				return fmt.Errorf("%s: duplicate parameter", label)
			}
			names[p.Name] = true
			if !p.Type.valid() {
				return fmt.Errorf("%s: unknown type %q", label, p.Type)
			}
			if p.Type == TypeOption && len(p.Choices) == 0 {
				return fmt.Errorf("%s: option parameters need choices", label)
			}
			if p.ActiveIf != "" && p.InactiveIf != "" {
				return fmt.Errorf("%s: declares both active_if and inactive_if", label)
			}
			if _, err := coerce(p, p.Default); err != nil {
				return fmt.Errorf("%s: default: %w", label, err)
			}
		}
	}
	return nil
}

func (p ParamSpec) dependency() (Dependency, bool) {
	return dependencyOf(p.ActiveIf, p.InactiveIf)
}

func (sec SectionSpec) dependency() (Dependency, bool) {
	return dependencyOf(sec.ActiveIf, sec.InactiveIf)
}

func dependencyOf(activeIf, inactiveIf string) (Dependency, bool) {
	switch {
	case activeIf != "":
		return Dependency{Trigger: activeIf, Kind: trigger.ActiveIf}, true
	case inactiveIf != "":
		return Dependency{Trigger: inactiveIf, Kind: trigger.InactiveIf}, true
	}
	return Dependency{}, false
}
