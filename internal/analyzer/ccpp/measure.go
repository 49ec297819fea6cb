package ccpp

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/imyousuf/archaeo/internal/metrics"
	"github.com/imyousuf/archaeo/internal/model"
)

// Node types that add an independent path.
var decisionNodes = map[string]bool{
	"if_statement":           true,
	"for_statement":          true,
	"for_range_loop":         true,
	"while_statement":        true,
	"do_statement":           true,
	"catch_clause":           true,
	"conditional_expression": true,
}

// Node types that nest for cognitive complexity.
var nestingNodes = map[string]bool{
	"for_statement":          true,
	"for_range_loop":         true,
	"while_statement":        true,
	"do_statement":           true,
	"switch_statement":       true,
	"catch_clause":           true,
	"conditional_expression": true,
}

// Leaves measured as Halstead operands.
var operandNodes = map[string]bool{
	"identifier":           true,
	"field_identifier":     true,
	"type_identifier":      true,
	"namespace_identifier": true,
	"statement_identifier": true,
	"number_literal":       true,
	"string_literal":       true,
	"raw_string_literal":   true,
	"concatenated_string":  true,
	"char_literal":         true,
	"system_lib_string":    true,
	"true":                 true,
	"false":                true,
	"null":                 true,
	"nullptr":              true,
	"this":                 true,
}

// Closing tokens are counted through their opening half.
var ignoredTokens = map[string]bool{
	")": true,
	"]": true,
	"}": true,
	",": true,
	";": true,
}

// tally accumulates counts over one scope's subtree.
type tally struct {
	halstead   *metrics.Halstead
	decisions  int
	exits      int
	statements int
	functions  int
	closures   int
	cognitive  int
	nesting    int
}

// measure computes the metrics of sc from its syntax node. Nested scopes are
// included in every count.
func (e *extractor) measure(node *sitter.Node, sc *model.Scope) map[string]float64 {
	t := &tally{halstead: metrics.NewHalstead()}
	for i := 0; i < int(node.ChildCount()); i++ {
		e.count(node.Child(i), t)
		e.cognitive(node.Child(i), t, 0, false)
	}

	m := map[string]float64{
		metrics.Cyclomatic: float64(t.decisions + 1),
		metrics.Cognitive:  float64(t.cognitive),
		metrics.Nesting:    float64(t.nesting),
		metrics.Exits:      float64(t.exits),
		metrics.Functions:  float64(t.functions),
		metrics.Closures:   float64(t.closures),
		metrics.Callables:  float64(t.functions + t.closures),
	}
	for k, v := range t.halstead.Metrics() {
		m[k] = v
	}

	lines := metrics.CountLines(e.kinds, sc.StartLine, sc.EndLine)
	m[metrics.SourceLines] = float64(lines.Source)
	m[metrics.PhysicalLines] = float64(lines.Physical)
	m[metrics.CommentLines] = float64(lines.Comment)
	m[metrics.BlankLines] = float64(lines.Blank)
	m[metrics.LogicalLines] = float64(t.statements)

	for k, v := range metrics.Maintainability(t.halstead.Volume(), m[metrics.Cyclomatic], lines) {
		m[k] = v
	}

	switch sc.Kind {
	case model.ScopeFunction:
		m[metrics.FnArgs] = float64(e.countParams(params(node)))
	case model.ScopeClosure:
		m[metrics.ClosureArgs] = float64(e.countParams(params(node)))
	}
	return m
}

// count gathers path, exit, statement, callable and Halstead counts.
func (e *extractor) count(n *sitter.Node, t *tally) {
	typ := n.Type()
	switch {
	case typ == "comment":
		return
	case typ == "function_definition" && n.ChildByFieldName("body") != nil:
		t.functions++
	case typ == "lambda_expression":
		t.closures++
	case decisionNodes[typ]:
		t.decisions++
	case typ == "case_statement":
		if n.ChildByFieldName("value") != nil {
			t.decisions++
		}
	case typ == "binary_expression":
		if isLogical(operator(n)) {
			t.decisions++
		}
	case typ == "return_statement":
		t.exits++
	}

	if typ == "declaration" || typ == "field_declaration" ||
		(strings.HasSuffix(typ, "_statement") && typ != "compound_statement") {
		t.statements++
	}

	if operandNodes[typ] {
		t.halstead.Operand(e.text(n))
		return
	}
	if n.ChildCount() == 0 {
		switch {
		case !n.IsNamed():
			if !ignoredTokens[typ] {
				t.halstead.Operator(typ)
			}
		case typ == "primitive_type" || typ == "auto":
			t.halstead.Operator(e.text(n))
		}
		return
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		e.count(n.Child(i), t)
	}
}

// cognitive scores n following the cognitive complexity rules: structures
// that break linear flow cost one plus their nesting depth, else branches
// cost one, and each run of like logical operators costs one.
func (e *extractor) cognitive(n *sitter.Node, t *tally, nest int, elseIf bool) {
	typ := n.Type()
	switch {
	case typ == "if_statement":
		if elseIf {
			t.cognitive++
		} else {
			t.cognitive += 1 + nest
		}
		t.nesting = max(t.nesting, nest+1)

		if cond := n.ChildByFieldName("condition"); cond != nil {
			e.cognitive(cond, t, nest, false)
		}
		if cons := n.ChildByFieldName("consequence"); cons != nil {
			e.cognitive(cons, t, nest+1, false)
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			inner := alt
			if alt.Type() == "else_clause" && alt.NamedChildCount() > 0 {
				inner = alt.NamedChild(0)
			}
			if inner.Type() == "if_statement" {
				e.cognitive(inner, t, nest, true)
			} else {
				t.cognitive++
				e.cognitive(inner, t, nest+1, false)
			}
		}
		return

	case nestingNodes[typ]:
		t.cognitive += 1 + nest
		if typ != "conditional_expression" {
			t.nesting = max(t.nesting, nest+1)
		}
		e.cognitiveChildren(n, t, nest+1)
		return

	case typ == "lambda_expression", typ == "function_definition":
		e.cognitiveChildren(n, t, nest+1)
		return

	case typ == "goto_statement":
		t.cognitive++

	case typ == "binary_expression":
		op := operator(n)
		if isLogical(op) {
			parent := n.Parent()
			if parent == nil || parent.Type() != "binary_expression" || operator(parent) != op {
				t.cognitive++
			}
		}
	}
	e.cognitiveChildren(n, t, nest)
}

func (e *extractor) cognitiveChildren(n *sitter.Node, t *tally, nest int) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.cognitive(n.NamedChild(i), t, nest, false)
	}
}

func operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	return ""
}

func isLogical(op string) bool {
	switch op {
	case "&&", "||", "and", "or":
		return true
	}
	return false
}
