package taskpars

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const (
	drizzleSchema = "testdata/drizzle.spec.yaml"
	drizzleValues = "testdata/drizzle.yaml"
)

func TestLoadTestdata(t *testing.T) {
	set, err := Load(drizzleSchema, drizzleValues)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Task() != "drizzle" {
		t.Fatalf("task = %q", set.Task())
	}
	checks := []struct {
		scope, name string
		want        any
	}{
		{"", "input", "j8*_flt.fits"},
		{"", "build", false},
		{"", "num_cores", int64(8)},
		{"parallel", "chunk_size", int64(16)},
		{"parallel", "scheduler", "processes"},
		{"sky", "skysub", true},
		{"sky", "skystat", "mode"},
		{"sky", "skywidth", 0.25},
		{"sky", "skyclip", int64(3)},
	}
	for _, c := range checks {
		got, ok := set.Value(c.scope, c.name)
		if !ok || got != c.want {
			t.Fatalf("%s.%s = %#v, want %#v", c.scope, c.name, got, c.want)
		}
	}
	if len(set.Warnings()) != 0 {
		t.Fatalf("unexpected warnings: %v", set.Warnings())
	}
	if filepath.Base(set.Filename()) != "drizzle.yaml" {
		t.Fatalf("filename not recorded: %q", set.Filename())
	}
}

func TestLoadWarnsOnUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")
	payload := "_task_name_: drizzle\nnum_cores: 2\nbogus: 1\nsky:\n  skyclip: 7\n  ghost: x\n"
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	set, err := Load(drizzleSchema, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	warnings := strings.Join(set.Warnings(), "\n")
	if !strings.Contains(warnings, ".bogus") || !strings.Contains(warnings, "sky.ghost") {
		t.Fatalf("expected both unknown keys reported, got %q", warnings)
	}
	if v, _ := set.Value("sky", "skyclip"); v != int64(7) {
		t.Fatalf("known keys must still load, skyclip = %#v", v)
	}
}

func TestLoadRejectsOtherTask(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(path, []byte("_task_name_: imcombine\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(drizzleSchema, path); !errors.Is(err, ErrTaskMismatch) {
		t.Fatalf("expected ErrTaskMismatch, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	set, err := Load(drizzleSchema, drizzleValues)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := set.SetValue("sky", "skywidth", "0.5"); err != nil {
		t.Fatalf("set: %v", err)
	}
	path := filepath.Join(t.TempDir(), "copy.yaml")
	if err := set.Save(path, "saved by test"); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "# saved by test") {
		t.Fatalf("comment header missing:\n%s", data)
	}
	if strings.Index(string(data), "parallel:") > strings.Index(string(data), "sky:") {
		t.Fatalf("sections should be written in schema order:\n%s", data)
	}
	reloaded, err := Load(drizzleSchema, path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(reloaded.Snapshot(), set.Snapshot()) {
		t.Fatalf("round trip mismatch:\n%v\n%v", reloaded.Snapshot(), set.Snapshot())
	}
}

func TestSaveWithFallback(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	set, err := LoadDefaults(drizzleSchema)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	locked := t.TempDir()
	if err := os.Chmod(locked, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })
	fallback := filepath.Join(t.TempDir(), "cfg")

	written, err := set.SaveWithFallback(filepath.Join(locked, "drizzle.yaml"), fallback, "")
	if err != nil {
		t.Fatalf("save with fallback: %v", err)
	}
	if written != filepath.Join(fallback, "drizzle.yaml") {
		t.Fatalf("unexpected destination %q", written)
	}
	if set.Filename() != written {
		t.Fatalf("set should now point at the fallback file")
	}
}

func TestCfgFilesAndFindSchema(t *testing.T) {
	dir := t.TempDir()
	schema, err := os.ReadFile(drizzleSchema)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	files := map[string]string{
		"drizzle" + SchemaSuffix: string(schema),
		"a.yaml":                 "_task_name_: drizzle\n",
		"b.yml":                  "_task_name_: drizzle\n",
		"c.yaml":                 "_task_name_: imcombine\n",
		"notes.txt":              "_task_name_: drizzle\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	got, err := CfgFilesForTask(dir, "drizzle")
	if err != nil {
		t.Fatalf("cfg files: %v", err)
	}
	want := []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cfg files = %v, want %v", got, want)
	}
	if missing, err := CfgFilesForTask(filepath.Join(dir, "missing"), "drizzle"); err != nil || missing != nil {
		t.Fatalf("missing dir should yield nothing, got %v %v", missing, err)
	}

	found, err := FindSchema(filepath.Join(dir, "a.yaml"))
	if err != nil || found != filepath.Join(dir, "drizzle"+SchemaSuffix) {
		t.Fatalf("find schema = %q, %v", found, err)
	}
	if _, err := FindSchema(filepath.Join(dir, "c.yaml")); err == nil {
		t.Fatalf("expected missing schema error")
	}
}

func TestOpenChoicesIncludesCfgEnvDir(t *testing.T) {
	set, err := LoadDefaults(drizzleSchema)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	extra := t.TempDir()
	path := filepath.Join(extra, "mine.yaml")
	if err := os.WriteFile(path, []byte("_task_name_: drizzle\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(CfgEnvVar, extra)
	choices, err := OpenChoices(set, t.TempDir())
	if err != nil {
		t.Fatalf("open choices: %v", err)
	}
	resolved, _ := filepath.Abs(path)
	for _, c := range choices {
		if c == resolved {
			return
		}
	}
	t.Fatalf("expected %s among %v", resolved, choices)
}
