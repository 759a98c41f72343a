package trigger

import (
	"strings"
	"testing"
)

func TestEvaluateBindsScopeNameAndValue(t *testing.T) {
	e := NewEvaluator()
	out, err := e.Evaluate("grp", "count", int64(15), "OUT = VAL > 10", nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out != true {
		t.Fatalf("expected true, got %#v", out)
	}
	out, err = e.Evaluate("grp", "count", int64(5), "OUT = VAL > 10", nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out != false {
		t.Fatalf("expected false, got %#v", out)
	}
	out, err = e.Evaluate("grp", "mode", "fast", `OUT = SCOPE + "." + NAME + "=" + VAL`, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out != "grp.mode=fast" {
		t.Fatalf("unexpected output %#v", out)
	}
}

func TestEvaluateWithoutAssignmentReturnsNoOutput(t *testing.T) {
	e := NewEvaluator()
	out, err := e.Evaluate("", "x", true, "_ = VAL", nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out != NoOutput {
		t.Fatalf("expected NoOutput, got %#v", out)
	}
}

func TestEvaluateWithImports(t *testing.T) {
	e := NewEvaluator()
	out, err := e.Evaluate("", "mode", "Verbose", `OUT = strings.ToLower(VAL) == "verbose"`, []string{"strings"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out != true {
		t.Fatalf("expected true, got %#v", out)
	}
}

func TestEvaluateNilValue(t *testing.T) {
	e := NewEvaluator()
	out, err := e.Evaluate("", "n", nil, "OUT = VAL == nil", nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out != true {
		t.Fatalf("expected true, got %#v", out)
	}
}

func TestEvaluateCachesPrograms(t *testing.T) {
	e := NewEvaluator()
	for _, v := range []int64{1, 2, 3} {
		if _, err := e.Evaluate("", "n", v, "OUT = VAL * 2", nil); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	if len(e.programs) != 1 {
		t.Fatalf("expected one cached program, got %d", len(e.programs))
	}
	if _, err := e.Evaluate("", "n", 1.5, "OUT = VAL * 2", nil); err != nil {
		t.Fatalf("evaluate float: %v", err)
	}
	if len(e.programs) != 2 {
		t.Fatalf("expected a second program for float64, got %d", len(e.programs))
	}
}

func TestEvaluateErrors(t *testing.T) {
	e := NewEvaluator()
	if _, err := e.Evaluate("", "n", int64(1), "OUT = VAL +", nil); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := e.Evaluate("", "n", int64(1), "   ", nil); err == nil || !strings.Contains(err.Error(), "no code") {
		t.Fatalf("expected no-code error, got %v", err)
	}
	_, err := e.Evaluate("", "n", int64(0), "var xs []int\nOUT = xs[VAL]", nil)
	if err == nil {
		t.Fatalf("expected runtime failure to surface as an error")
	}
}
