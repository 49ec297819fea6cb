package ccpp

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/imyousuf/archaeo/internal/lang"
	"github.com/imyousuf/archaeo/internal/metrics"
	"github.com/imyousuf/archaeo/internal/model"
)

const cppSource = `#include <vector>

// Shapes used by the analyzer tests.
namespace geo {

class Shape {
public:
    ~Shape() {}
    double area() const;
};

struct Point {
    int x;
    int y;
};

int clamp(int v, int lo, int hi) {
    if (v < lo) {
        return lo;
    } else if (v > hi) {
        return hi;
    }
    return v;
}

}  // namespace geo

// TODO: move into geo
static int count_positive(const std::vector<int>& values) {
    int n = 0;
    for (int v : values) {
        if (v > 0 && v < 100) {
            n++;
        }
    }
    auto twice = [](int a) { return a * 2; };
    return twice(n);
}
`

const cSource = `#include <stdio.h>

struct node {
    int value;
    struct node *next;
};

int sum(struct node *head) {
    int total = 0;
    while (head != NULL) {
        total += head->value;
        head = head->next;
    }
    return total;
}

int main(void) {
    struct node n = {1, NULL};
    printf("%d\n", sum(&n));
    return 0;
}
`

// findScope returns the first scope with the given name in pre-order.
func findScope(root *model.Scope, name string) *model.Scope {
	var found *model.Scope
	root.Walk(func(sc *model.Scope, _ []*model.Scope) {
		if found == nil && sc.Name == name {
			found = sc
		}
	})
	return found
}

func TestAnalyzeCPPStructure(t *testing.T) {
	a := NewCPP()
	unit, err := a.Analyze(context.Background(), "src/geo.cpp", []byte(cppSource))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if unit.Kind != model.ScopeUnit || unit.Name != "src/geo.cpp" {
		t.Errorf("unexpected unit scope %s %q", unit.Kind, unit.Name)
	}
	if unit.StartLine != 1 || unit.EndLine != 38 {
		t.Errorf("unit span = %d-%d, want 1-38", unit.StartLine, unit.EndLine)
	}
	if err := unit.Validate(); err != nil {
		t.Fatalf("containment violated: %v", err)
	}

	if len(unit.Children) != 2 {
		t.Fatalf("expected 2 top-level scopes, got %d", len(unit.Children))
	}
	ns := unit.Children[0]
	if ns.Kind != model.ScopeNamespace || ns.Name != "geo" || ns.StartLine != 4 || ns.EndLine != 26 {
		t.Errorf("unexpected namespace scope %+v", ns)
	}

	tests := []struct {
		name  string
		kind  model.ScopeKind
		start int
		end   int
	}{
		{"Shape", model.ScopeClass, 6, 10},
		{"~Shape", model.ScopeFunction, 8, 8},
		{"Point", model.ScopeStruct, 12, 15},
		{"clamp", model.ScopeFunction, 17, 24},
		{"count_positive", model.ScopeFunction, 29, 38},
		{"twice", model.ScopeClosure, 36, 36},
	}
	for _, tt := range tests {
		sc := findScope(unit, tt.name)
		if sc == nil {
			t.Errorf("scope %q not found", tt.name)
			continue
		}
		if sc.Kind != tt.kind || sc.StartLine != tt.start || sc.EndLine != tt.end {
			t.Errorf("scope %q = %s %d-%d, want %s %d-%d",
				tt.name, sc.Kind, sc.StartLine, sc.EndLine, tt.kind, tt.start, tt.end)
		}
	}

	// Pure declarations do not form scopes.
	if findScope(unit, "area") != nil {
		t.Error("declaration-only method should not be a scope")
	}

	fn := findScope(unit, "count_positive")
	if len(fn.Children) != 1 || fn.Children[0].Name != "twice" {
		t.Errorf("closure not nested in its function: %+v", fn.Children)
	}
}

func TestAnalyzeCPPMetrics(t *testing.T) {
	unit, err := NewCPP().Analyze(context.Background(), "geo.cpp", []byte(cppSource))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	clamp := findScope(unit, "clamp")
	expect := map[string]float64{
		metrics.FnArgs:        3,
		metrics.Cyclomatic:    3,
		metrics.Cognitive:     2,
		metrics.Exits:         3,
		metrics.Nesting:       1,
		metrics.SourceLines:   8,
		metrics.PhysicalLines: 8,
		metrics.BlankLines:    0,
	}
	for k, want := range expect {
		if got := clamp.Metrics[k]; got != want {
			t.Errorf("clamp %s = %v, want %v", k, got, want)
		}
	}
	if _, ok := clamp.Metrics[metrics.ClosureArgs]; ok {
		t.Error("functions should not carry closure_args")
	}

	fn := findScope(unit, "count_positive")
	expect = map[string]float64{
		metrics.FnArgs:     1,
		metrics.Cyclomatic: 4,
		metrics.Cognitive:  4,
		metrics.Exits:      2,
		metrics.Nesting:    2,
		metrics.Closures:   1,
		metrics.Functions:  0,
		metrics.Callables:  1,
	}
	for k, want := range expect {
		if got := fn.Metrics[k]; got != want {
			t.Errorf("count_positive %s = %v, want %v", k, got, want)
		}
	}

	twice := findScope(unit, "twice")
	if twice.Metrics[metrics.ClosureArgs] != 1 || twice.Metrics[metrics.Cyclomatic] != 1 {
		t.Errorf("unexpected closure metrics %v", twice.Metrics)
	}
	if _, ok := twice.Metrics[metrics.FnArgs]; ok {
		t.Error("closures should not carry fn_args")
	}

	expect = map[string]float64{
		metrics.Cyclomatic:   6,
		metrics.Functions:    3,
		metrics.Closures:     1,
		metrics.Callables:    4,
		metrics.SourceLines:  38,
		metrics.CommentLines: 2,
		metrics.BlankLines:   6,
		metrics.TodoCount:    1,
	}
	for k, want := range expect {
		if got := unit.Metrics[k]; got != want {
			t.Errorf("unit %s = %v, want %v", k, got, want)
		}
	}
	if unit.Metrics[metrics.HalsteadVolume] <= clamp.Metrics[metrics.HalsteadVolume] {
		t.Error("unit volume should exceed a single function's volume")
	}
	if _, ok := clamp.Metrics[metrics.TodoCount]; ok {
		t.Error("marker counts belong to the unit scope only")
	}
}

func TestAnalyzeC(t *testing.T) {
	unit, err := NewC().Analyze(context.Background(), "list.c", []byte(cSource))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if err := unit.Validate(); err != nil {
		t.Fatalf("containment violated: %v", err)
	}

	var names []string
	for _, c := range unit.Children {
		names = append(names, string(c.Kind)+":"+c.Name)
	}
	want := []string{"struct:node", "function:sum", "function:main"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("top-level scopes = %v, want %v", names, want)
	}

	sum := findScope(unit, "sum")
	if sum.Metrics[metrics.FnArgs] != 1 || sum.Metrics[metrics.Cyclomatic] != 2 ||
		sum.Metrics[metrics.Cognitive] != 1 || sum.Metrics[metrics.Exits] != 1 {
		t.Errorf("unexpected sum metrics %v", sum.Metrics)
	}
	if m := findScope(unit, "main"); m.Metrics[metrics.FnArgs] != 0 {
		t.Errorf("main(void) fn_args = %v, want 0", m.Metrics[metrics.FnArgs])
	}
}

func TestAnalyzeConversionOperators(t *testing.T) {
	src := `class Handle {
public:
    operator bool() const { return ok; }
    operator const char*() const { return name; }
    bool ok;
    const char* name;
};

Handle::operator int() const {
    return ok ? 1 : 0;
}
`
	unit, err := NewCPP().Analyze(context.Background(), "handle.cpp", []byte(src))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	var got []string
	unit.Walk(func(sc *model.Scope, _ []*model.Scope) {
		if sc.Kind == model.ScopeFunction {
			got = append(got, sc.Name)
		}
	})
	want := []string{"operator bool", "operator const char*", "Handle::operator int"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("function names = %q, want %q", got, want)
	}
	if m := findScope(unit, "operator bool"); m.Metrics[metrics.FnArgs] != 0 {
		t.Errorf("operator bool fn_args = %v, want 0", m.Metrics[metrics.FnArgs])
	}
}

func TestAnalyzeSyntaxError(t *testing.T) {
	_, err := NewC().Analyze(context.Background(), "broken.c", []byte("int main( {\n  return 0;\n"))
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !strings.Contains(err.Error(), "broken.c") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestAnalyzeEmptyFile(t *testing.T) {
	unit, err := NewCPP().Analyze(context.Background(), "empty.h", nil)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if unit.StartLine != 1 || unit.EndLine != 1 || len(unit.Children) != 0 {
		t.Errorf("unexpected empty unit %+v", unit)
	}
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewCPP().Analyze(ctx, "geo.cpp", []byte(cppSource)); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := NewCPP()
	first, err := a.Analyze(context.Background(), "geo.cpp", []byte(cppSource))
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Analyze(context.Background(), "geo.cpp", []byte(cppSource))
	if err != nil {
		t.Fatal(err)
	}
	first.Normalize()
	second.Normalize()
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated analysis produced different trees")
	}
}

func TestRegister(t *testing.T) {
	r := lang.NewRegistry()
	Register(r)

	if a, ok := r.GetByExtension(".c"); !ok || a.Language() != model.LangC {
		t.Errorf("expected C analyzer for .c")
	}
	if a, ok := r.GetByExtension(".hpp"); !ok || a.Language() != model.LangCPP {
		t.Errorf("expected C++ analyzer for .hpp")
	}
	if NewC().Version() != Version {
		t.Errorf("unexpected version %q", NewC().Version())
	}
}
