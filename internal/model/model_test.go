package model

import (
	"errors"
	"math"
	"testing"
)

func sampleTree() *Scope {
	return &Scope{
		Kind: ScopeUnit, Name: "a.cpp", StartLine: 1, EndLine: 20,
		Metrics: map[string]float64{"cyclomatic": 3},
		Children: []*Scope{
			{Kind: ScopeFunction, Name: "late", StartLine: 12, EndLine: 18, Metrics: map[string]float64{}},
			{Kind: ScopeClass, Name: "Box", StartLine: 2, EndLine: 10, Metrics: map[string]float64{},
				Children: []*Scope{
					{Kind: ScopeFunction, Name: "get", StartLine: 4, EndLine: 6, Metrics: map[string]float64{}},
				}},
		},
	}
}

func TestScopeValidate(t *testing.T) {
	root := sampleTree()
	if err := root.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	root.Children[1].Children[0].EndLine = 11
	if err := root.Validate(); err == nil {
		t.Fatal("expected containment violation")
	}

	bad := &Scope{Kind: ScopeUnit, StartLine: 5, EndLine: 4}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected invalid span error")
	}
}

func TestScopeNormalize(t *testing.T) {
	root := sampleTree()
	root.Metrics["mi_original"] = math.NaN()
	root.Metrics["halstead_level"] = math.Inf(1)
	root.Normalize()

	if root.Metrics["mi_original"] != 0 || root.Metrics["halstead_level"] != 0 {
		t.Errorf("non-finite values not replaced: %v", root.Metrics)
	}
	if root.Metrics["cyclomatic"] != 3 {
		t.Errorf("finite value changed: %v", root.Metrics["cyclomatic"])
	}
	if root.Children[0].Name != "Box" || root.Children[1].Name != "late" {
		t.Errorf("children not ordered by span: %s, %s", root.Children[0].Name, root.Children[1].Name)
	}
}

func TestScopeWalk(t *testing.T) {
	root := sampleTree()
	root.Normalize()

	var names []string
	var depths []int
	root.Walk(func(sc *Scope, ancestors []*Scope) {
		names = append(names, sc.Name)
		depths = append(depths, len(ancestors))
	})

	wantNames := []string{"a.cpp", "Box", "get", "late"}
	wantDepths := []int{0, 1, 2, 1}
	for i := range wantNames {
		if names[i] != wantNames[i] || depths[i] != wantDepths[i] {
			t.Fatalf("walk order = %v depths %v", names, depths)
		}
	}
	if root.Count() != 4 {
		t.Errorf("Count = %d, want 4", root.Count())
	}
}

func TestScopeClone(t *testing.T) {
	root := sampleTree()
	cp := root.Clone()
	cp.Metrics["cyclomatic"] = 99
	cp.Children[1].Children[0].Name = "changed"

	if root.Metrics["cyclomatic"] != 3 {
		t.Error("clone shares metrics map")
	}
	if root.Children[1].Children[0].Name != "get" {
		t.Error("clone shares children")
	}
}

func TestStatAdd(t *testing.T) {
	var s Stat
	for _, v := range []float64{4, 1, 7} {
		s.Add(v)
	}
	if s.Count != 3 || s.Sum != 12 || s.Mean != 4 || s.Min != 1 || s.Max != 7 {
		t.Errorf("unexpected stat %+v", s)
	}
}

func TestFailureKeepsError(t *testing.T) {
	fd := FileDescriptor{RelPath: "x.c", Language: LangC}
	r := Failure(fd, StageAnalysis, errors.New("boom"))
	if r.OK() || r.Stage != StageAnalysis || r.Error != "boom" || r.Path != "x.c" {
		t.Errorf("unexpected failure result %+v", r)
	}
}
