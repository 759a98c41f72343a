package taskpars

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// TaskNameKey names the task inside a value file.
	TaskNameKey = "_task_name_"

	// SchemaSuffix is appended to a task name to find its schema file.
	SchemaSuffix = ".spec.yaml"

	// CfgEnvVar points at an extra directory of value files.
	CfgEnvVar = "TEAL_CFG"
)

var (
	// ErrTaskMismatch is returned when a value file belongs to another task.
	ErrTaskMismatch = errors.New("taskpars: value file is for a different task")

	// ErrReadOnly is returned when the value file cannot be written.
	ErrReadOnly = errors.New("taskpars: value file is not writable")
)

// LoadSchema reads and validates a schema file.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("taskpars: read %s: %w", path, err)
	}
	schema, err := ParseSchema(data)
	if err != nil {
		return Schema{}, fmt.Errorf("taskpars: %s: %w", path, err)
	}
	return schema, nil
}

// LoadDefaults builds a Set with every parameter at its schema default.
func LoadDefaults(schemaPath string) (*Set, error) {
	schema, err := LoadSchema(schemaPath)
	if err != nil {
		return nil, err
	}
	set, err := NewSet(schema)
	if err != nil {
		return nil, err
	}
	set.schemaPath = filepath.Clean(schemaPath)
	return set, nil
}

// Load builds a Set from a schema and a value file. Value-file entries that
// match no parameter are recorded as warnings rather than failing the load.
func Load(schemaPath, valuesPath string) (*Set, error) {
	set, err := LoadDefaults(schemaPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(valuesPath)
	if err != nil {
		return nil, fmt.Errorf("taskpars: read %s: %w", valuesPath, err)
	}
	if err := set.applyValues(data); err != nil {
		return nil, fmt.Errorf("taskpars: %s: %w", valuesPath, err)
	}
	set.filename = filepath.Clean(valuesPath)
	return set, nil
}

func (s *Set) applyValues(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode values: %w", err)
	}
	if task, _ := raw[TaskNameKey].(string); strings.TrimSpace(task) != s.Task() {
		return fmt.Errorf("%w: file names %q, schema is %q", ErrTaskMismatch, task, s.Task())
	}
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == TaskNameKey {
			continue
		}
		if section, ok := raw[key].(map[string]any); ok && s.hasScope(key) {
			names := make([]string, 0, len(section))
			for name := range section {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if err := s.applyValue(key, name, section[name]); err != nil {
					return err
				}
			}
			continue
		}
		if err := s.applyValue("", key, raw[key]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set) applyValue(scope, name string, raw any) error {
	if _, ok := s.Param(scope, name); !ok {
		s.warnings = append(s.warnings, fmt.Sprintf("unknown parameter %s.%s ignored", scope, name))
		return nil
	}
	_, err := s.SetValue(scope, name, raw)
	return err
}

func (s *Set) hasScope(scope string) bool {
	for _, sec := range s.schema.Sections {
		if sec.Scope == scope && scope != "" {
			return true
		}
	}
	return false
}

// TaskNameOf reads only the task name from a value file.
func TaskNameOf(valuesPath string) (string, error) {
	data, err := os.ReadFile(valuesPath)
	if err != nil {
		return "", fmt.Errorf("taskpars: read %s: %w", valuesPath, err)
	}
	var head struct {
		Task string `yaml:"_task_name_"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("taskpars: decode %s: %w", valuesPath, err)
	}
	return strings.TrimSpace(head.Task), nil
}

// FindSchema locates the schema for a value file: next to the file first,
// then in each extra directory in order.
func FindSchema(valuesPath string, extraDirs ...string) (string, error) {
	task, err := TaskNameOf(valuesPath)
	if err != nil {
		return "", err
	}
	if task == "" {
		return "", fmt.Errorf("taskpars: %s has no %s", valuesPath, TaskNameKey)
	}
	dirs := append([]string{filepath.Dir(valuesPath)}, extraDirs...)
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		candidate := filepath.Join(dir, task+SchemaSuffix)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("taskpars: no schema %s%s found for %s", task, SchemaSuffix, valuesPath)
}

// Marshal renders the Set as a value file in schema order.
func (s *Set) Marshal(comment string) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	if comment = strings.TrimSpace(comment); comment != "" {
		doc.HeadComment = comment
	}
	appendPair(doc, TaskNameKey, s.Task())
	sections := map[string]*yaml.Node{}
	for _, p := range s.params {
		target := doc
		if p.Scope != "" {
			section, ok := sections[p.Scope]
			if !ok {
				section = &yaml.Node{Kind: yaml.MappingNode}
				sections[p.Scope] = section
				doc.Content = append(doc.Content, scalarNode(p.Scope), section)
			}
			target = section
		}
		appendPair(target, p.Name, p.Value)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("taskpars: encode values: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("taskpars: encode values: %w", err)
	}
	return buf.Bytes(), nil
}

func appendPair(mapping *yaml.Node, key string, value any) {
	node := &yaml.Node{}
	if err := node.Encode(value); err != nil || value == nil {
		node = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	mapping.Content = append(mapping.Content, scalarNode(key), node)
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// Save writes the Set to path, or to its current filename when path is
// empty. Permission failures wrap ErrReadOnly.
func (s *Set) Save(path, comment string) error {
	if path == "" {
		path = s.filename
	}
	if path == "" {
		return fmt.Errorf("taskpars %s: no file to save to", s.Task())
	}
	data, err := s.Marshal(comment)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrReadOnly, path)
		}
		return fmt.Errorf("taskpars: write %s: %w", path, err)
	}
	s.filename = filepath.Clean(path)
	return nil
}

// SaveWithFallback saves to path and, when that file is not writable (an
// installed file, say), saves to the same basename under fallbackDir. It
// returns the path actually written.
func (s *Set) SaveWithFallback(path, fallbackDir, comment string) (string, error) {
	if path == "" {
		path = s.filename
	}
	err := s.Save(path, comment)
	if err == nil {
		return s.filename, nil
	}
	if !errors.Is(err, ErrReadOnly) || fallbackDir == "" {
		return "", err
	}
	if err := os.MkdirAll(fallbackDir, 0o755); err != nil {
		return "", fmt.Errorf("taskpars: ensure %s: %w", fallbackDir, err)
	}
	local := filepath.Join(fallbackDir, filepath.Base(path))
	if err := s.Save(local, comment); err != nil {
		return "", err
	}
	return s.filename, nil
}

// CfgFilesForTask lists the value files in dir that belong to task.
func CfgFilesForTask(dir, task string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("taskpars: read %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isValueFile(name) {
			continue
		}
		path := filepath.Join(dir, name)
		if owner, err := TaskNameOf(path); err == nil && owner == task {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

func isValueFile(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, SchemaSuffix) {
		return false
	}
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

// OpenChoices gathers every value file for the Set's task from the current
// file's directory, the working directory, the resource directory and
// $TEAL_CFG, de-duplicated and sorted.
func OpenChoices(set *Set, resourceDir string) ([]string, error) {
	var dirs []string
	seen := map[string]bool{}
	addDir := func(dir string) {
		if strings.TrimSpace(dir) == "" {
			return
		}
		abs, err := filepath.Abs(dir)
		if err != nil || seen[abs] {
			return
		}
		seen[abs] = true
		dirs = append(dirs, abs)
	}
	if set.Filename() != "" {
		addDir(filepath.Dir(set.Filename()))
	}
	if cwd, err := os.Getwd(); err == nil {
		addDir(cwd)
	}
	addDir(resourceDir)
	addDir(os.Getenv(CfgEnvVar))

	unique := map[string]bool{}
	for _, dir := range dirs {
		files, err := CfgFilesForTask(dir, set.Task())
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			unique[f] = true
		}
	}
	choices := make([]string, 0, len(unique))
	for f := range unique {
		choices = append(choices, f)
	}
	sort.Strings(choices)
	return choices, nil
}
