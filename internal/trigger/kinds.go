package trigger

import "strings"

const (
	// SectionSwitch is the only canned trigger. A boolean-ish field bound to it
	// enables or disables every other field in its scope.
	SectionSwitch = "_section_switch_"

	// SectionTarget is the pseudo parameter name used by dependency entries
	// that address an entire scope ("scope._section_").
	SectionTarget = "_section_"
)

// DepKind describes how a dependent reacts to a trigger's output.
type DepKind string

const (
	ActiveIf   DepKind = "active_if"
	InactiveIf DepKind = "inactive_if"
)

// Valid reports whether the kind is one the propagator understands.
func (k DepKind) Valid() bool {
	switch k {
	case ActiveIf, InactiveIf:
		return true
	}
	return false
}

// FieldRef identifies one live parameter in the dialog.
type FieldRef struct {
	Scope string
	Name  string
}

// AbsName returns the "scope.name" form used by the dependency index.
func (f FieldRef) AbsName() string {
	return AbsName(f.Scope, f.Name)
}

// ActiveChange is a single pending active-state mutation.
type ActiveChange struct {
	Field  FieldRef
	Active bool
}

// AbsName joins scope and name. The root scope is the empty string, so root
// parameters render as ".name".
func AbsName(scope, name string) string {
	return scope + "." + name
}

// SectionName returns the dependency target addressing a whole scope.
func SectionName(scope string) string {
	return AbsName(scope, SectionTarget)
}

// SectionScope reports whether abs addresses a whole scope and returns it.
func SectionScope(abs string) (string, bool) {
	suffix := "." + SectionTarget
	if !strings.HasSuffix(abs, suffix) {
		return "", false
	}
	return strings.TrimSuffix(abs, suffix), true
}
