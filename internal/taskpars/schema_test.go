package taskpars

import (
	"strings"
	"testing"
)

func TestParseSchemaTestdata(t *testing.T) {
	schema, err := LoadSchema("testdata/drizzle.spec.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if schema.Task != "drizzle" {
		t.Fatalf("unexpected task %q", schema.Task)
	}
	if len(schema.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(schema.Sections))
	}
	if got := schema.Rules["_rule_stat_"]; !strings.Contains(got, `"median"`) {
		t.Fatalf("rule signature not decoded: %q", got)
	}
	if dep, ok := schema.Sections[1].dependency(); !ok || dep.Trigger != "_rule_parallel_" {
		t.Fatalf("section dependency missing: %+v", dep)
	}
}

func TestParseSchemaErrors(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"no task":     "sections: []",
		"bad type":    "task: t\nsections:\n  - scope: a\n    params:\n      - name: x\n        type: complex\n",
		"dup param":   "task: t\nsections:\n  - scope: a\n    params:\n      - name: x\n      - name: x\n",
		"dup scope":   "task: t\nsections:\n  - scope: a\n  - scope: a\n",
		"dotted":      "task: t\nsections:\n  - scope: a.b\n",
		"reserved":    "task: t\nsections:\n  - scope: a\n    params:\n      - name: _section_\n",
		"no choices":  "task: t\nsections:\n  - scope: a\n    params:\n      - name: x\n        type: option\n",
		"both kinds":  "task: t\nsections:\n  - scope: a\n    params:\n      - name: x\n        active_if: _r_\n        inactive_if: _r_\n",
		"bad default": "task: t\nsections:\n  - scope: a\n    params:\n      - name: x\n        type: integer\n        default: abc\n",
		"unknown key": "task: t\nbogus: 1\n",
	}
	for name, payload := range cases {
		if _, err := ParseSchema([]byte(payload)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
