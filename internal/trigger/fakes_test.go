package trigger

type fakeSource struct {
	triggers map[FieldRef]string
	rules    map[string]string
	deps     map[string]map[string]DepKind
	values   map[FieldRef]any
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		triggers: map[FieldRef]string{},
		rules:    map[string]string{},
		deps:     map[string]map[string]DepKind{},
		values:   map[FieldRef]any{},
	}
}

func (f *fakeSource) TriggerNameOf(scope, name string) string {
	return f.triggers[FieldRef{Scope: scope, Name: name}]
}

func (f *fakeSource) Rules() map[string]string { return f.rules }

func (f *fakeSource) DependentsOf(trigger string) map[string]DepKind {
	return f.deps[trigger]
}

func (f *fakeSource) Value(scope, name string) (any, bool) {
	v, ok := f.values[FieldRef{Scope: scope, Name: name}]
	return v, ok
}

func (f *fakeSource) DependencyTriggers() []string {
	names := make([]string, 0, len(f.deps))
	for name := range f.deps {
		names = append(names, name)
	}
	return names
}

func (f *fakeSource) depend(trigger, target string, kind DepKind) {
	if f.deps[trigger] == nil {
		f.deps[trigger] = map[string]DepKind{}
	}
	f.deps[trigger][target] = kind
}

type fakeSink struct {
	fields  []FieldRef
	active  map[FieldRef]bool
	batches int
}

func newFakeSink(fields ...FieldRef) *fakeSink {
	s := &fakeSink{fields: fields, active: map[FieldRef]bool{}}
	for _, f := range fields {
		s.active[f] = true
	}
	return s
}

func (s *fakeSink) Fields() []FieldRef { return s.fields }

func (s *fakeSink) SetActiveState(scope, name string, active bool) {
	s.active[FieldRef{Scope: scope, Name: name}] = active
}

func (s *fakeSink) snapshot() map[FieldRef]bool {
	out := make(map[FieldRef]bool, len(s.active))
	for k, v := range s.active {
		out[k] = v
	}
	return out
}

type batchSink struct {
	*fakeSink
}

func (s batchSink) SetActiveStates(changes []ActiveChange) {
	s.batches++
	for _, c := range changes {
		s.active[c.Field] = c.Active
	}
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Info(format string, args ...any) {
	l.lines = append(l.lines, format)
}

func ref(scope, name string) FieldRef {
	return FieldRef{Scope: scope, Name: name}
}
