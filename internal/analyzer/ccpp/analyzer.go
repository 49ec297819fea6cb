// Package ccpp measures C and C++ sources using tree-sitter grammars.
package ccpp

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/imyousuf/archaeo/internal/lang"
	"github.com/imyousuf/archaeo/internal/metrics"
	"github.com/imyousuf/archaeo/internal/model"
)

// Version identifies the metric definitions produced by this package. Bump it
// when a change alters any computed value so cached results are discarded.
const Version = "ccpp-1"

// Analyzer builds metric trees for one of the C-family languages.
type Analyzer struct {
	language model.Language
	grammar  func() *sitter.Language
}

// NewC creates an analyzer for C sources.
func NewC() *Analyzer {
	return &Analyzer{language: model.LangC, grammar: c.GetLanguage}
}

// NewCPP creates an analyzer for C++ sources and headers.
func NewCPP() *Analyzer {
	return &Analyzer{language: model.LangCPP, grammar: cpp.GetLanguage}
}

// Register adds the C and C++ analyzers to r.
func Register(r *lang.Registry) {
	r.Register(NewC())
	r.Register(NewCPP())
}

func (a *Analyzer) Language() model.Language {
	return a.language
}

func (a *Analyzer) Extensions() []string {
	return lang.FileExtensions[a.language]
}

func (a *Analyzer) Version() string {
	return Version
}

func (a *Analyzer) Analyze(ctx context.Context, filePath string, content []byte) (*model.Scope, error) {
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(a.grammar())

	tree, err := sitterParser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}

	root := tree.RootNode()
	if root.HasError() {
		line := 0
		if bad := firstError(root); bad != nil {
			line = int(bad.StartPoint().Row) + 1
		}
		return nil, fmt.Errorf("%s:%d: syntax error", filePath, line)
	}

	e := &extractor{
		ctx:     ctx,
		content: content,
		kinds:   metrics.ClassifyLines(content),
	}

	unit := &model.Scope{
		Kind:      model.ScopeUnit,
		Name:      filePath,
		StartLine: 1,
		EndLine:   max(1, len(e.kinds)),
	}
	unit.Metrics = e.measure(root, unit)
	for k, v := range metrics.CountMarkers(content) {
		unit.Metrics[k] = v
	}

	if err := e.collect(root, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}

// extractor walks a tree-sitter C/C++ AST and builds the scope tree.
type extractor struct {
	ctx     context.Context
	content []byte
	kinds   []metrics.LineKind
}

// collect appends a scope for every scope-forming descendant of node to
// parent, nesting them lexically.
func (e *extractor) collect(node *sitter.Node, parent *model.Scope) error {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		kind, name, ok := e.scopeOf(child)
		if !ok {
			if err := e.collect(child, parent); err != nil {
				return err
			}
			continue
		}

		if err := e.ctx.Err(); err != nil {
			return err
		}

		start, end := span(child)
		sc := &model.Scope{
			Kind:      kind,
			Name:      name,
			StartLine: start,
			EndLine:   end,
		}
		sc.Metrics = e.measure(child, sc)
		parent.Children = append(parent.Children, sc)

		if err := e.collect(child, sc); err != nil {
			return err
		}
	}
	return nil
}

// scopeOf classifies node as a scope-forming construct.
func (e *extractor) scopeOf(node *sitter.Node) (model.ScopeKind, string, bool) {
	switch node.Type() {
	case "function_definition":
		if node.ChildByFieldName("body") == nil {
			return "", "", false
		}
		return model.ScopeFunction, e.declaratorName(node.ChildByFieldName("declarator")), true
	case "lambda_expression":
		return model.ScopeClosure, e.lambdaName(node), true
	case "class_specifier", "struct_specifier", "union_specifier":
		if node.ChildByFieldName("body") == nil {
			return "", "", false
		}
		kind := map[string]model.ScopeKind{
			"class_specifier":  model.ScopeClass,
			"struct_specifier": model.ScopeStruct,
			"union_specifier":  model.ScopeUnion,
		}[node.Type()]
		return kind, e.fieldText(node, "name", "<anonymous>"), true
	case "namespace_definition":
		return model.ScopeNamespace, e.fieldText(node, "name", "<anonymous>"), true
	}
	return "", "", false
}

// declaratorName unwraps pointer, reference and function declarators down to
// the declared name.
func (e *extractor) declaratorName(d *sitter.Node) string {
	for d != nil {
		switch d.Type() {
		case "function_declarator", "pointer_declarator", "reference_declarator",
			"parenthesized_declarator", "attributed_declarator":
			d = innerDeclarator(d)
		case "operator_cast":
			return e.castName(d)
		case "qualified_identifier":
			name := d.ChildByFieldName("name")
			if !isCast(name) {
				return e.text(d)
			}
			prefix := string(e.content[d.StartByte():name.StartByte()])
			return strings.Join(strings.Fields(prefix), " ") + e.declaratorName(name)
		default:
			return e.text(d)
		}
	}
	return "<unnamed>"
}

// isCast reports whether n names a conversion operator, possibly qualified.
func isCast(n *sitter.Node) bool {
	for n != nil {
		switch n.Type() {
		case "operator_cast":
			return true
		case "qualified_identifier":
			n = n.ChildByFieldName("name")
		default:
			return false
		}
	}
	return false
}

// castName names a conversion operator by its text up to the parameter list,
// e.g. "operator const char*".
func (e *extractor) castName(d *sitter.Node) string {
	end := d.EndByte()
	if list := firstOfType(d, "parameter_list"); list != nil {
		end = list.StartByte()
	}
	return strings.Join(strings.Fields(string(e.content[d.StartByte():end])), " ")
}

func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	if n.Type() == typ {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := firstOfType(n.NamedChild(i), typ); found != nil {
			return found
		}
	}
	return nil
}

// innerDeclarator returns the declarator wrapped by d. Reference and
// parenthesized declarators carry it as an unlabeled child.
func innerDeclarator(d *sitter.Node) *sitter.Node {
	if next := d.ChildByFieldName("declarator"); next != nil {
		return next
	}
	if d.NamedChildCount() > 0 {
		return d.NamedChild(int(d.NamedChildCount()) - 1)
	}
	return nil
}

// lambdaName names a closure after the variable it initializes, if any.
func (e *extractor) lambdaName(node *sitter.Node) string {
	parent := node.Parent()
	if parent != nil {
		switch parent.Type() {
		case "init_declarator":
			return e.declaratorName(parent.ChildByFieldName("declarator"))
		case "assignment_expression":
			if left := parent.ChildByFieldName("left"); left != nil {
				return e.text(left)
			}
		}
	}
	return "<lambda>"
}

// params returns the parameter list of a function definition or lambda.
func params(node *sitter.Node) *sitter.Node {
	d := node.ChildByFieldName("declarator")
	for d != nil {
		if p := d.ChildByFieldName("parameters"); p != nil {
			return p
		}
		d = innerDeclarator(d)
	}
	return nil
}

// countParams counts declared parameters. A lone (void) declares none.
func (e *extractor) countParams(list *sitter.Node) int {
	if list == nil {
		return 0
	}
	n := 0
	for i := 0; i < int(list.ChildCount()); i++ {
		child := list.Child(i)
		switch child.Type() {
		case "parameter_declaration":
			if child.ChildByFieldName("declarator") == nil && e.text(child) == "void" {
				continue
			}
			n++
		case "optional_parameter_declaration", "variadic_parameter_declaration",
			"optional_type_parameter_declaration", "variadic_parameter", "...":
			n++
		}
	}
	return n
}

func (e *extractor) fieldText(node *sitter.Node, field, fallback string) string {
	if f := node.ChildByFieldName(field); f != nil {
		return e.text(f)
	}
	return fallback
}

// text returns the node source with runs of whitespace collapsed.
func (e *extractor) text(n *sitter.Node) string {
	return strings.Join(strings.Fields(n.Content(e.content)), " ")
}

// span returns the 1-based inclusive line range of n. Nodes that swallow a
// trailing newline end on the line before.
func span(n *sitter.Node) (int, int) {
	start := int(n.StartPoint().Row) + 1
	end := int(n.EndPoint().Row) + 1
	if n.EndPoint().Column == 0 && end > start {
		end--
	}
	return start, end
}
