// Package extract walks a tree-sitter parse of one TypeScript handler module
// and produces descriptors for its exported functions and types. No type
// checker is involved: parameter and return types are carried as the source
// text of their annotations.
package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsgrammar "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/imyousuf/routegen/internal/descriptor"
)

// Options control request-context detection and warning output.
type Options struct {
	// ContextTypeNames are parameter type names recognized as the
	// per-request context (header/cookie/client-address accessors).
	ContextTypeNames []string

	// ContextAccessors are call names inside a function body that mark the
	// function as needing request context.
	ContextAccessors []string

	// Logf receives warnings (duplicate exports, skipped declarations).
	// Defaults to a no-op.
	Logf func(format string, args ...any)
}

// DefaultContextTypeNames matches the context parameter types handler
// modules conventionally use.
var DefaultContextTypeNames = []string{"RequestContext", "HandlerContext"}

// DefaultContextAccessors matches the context helper calls handler bodies
// conventionally use.
var DefaultContextAccessors = []string{
	"getContext", "getHeader", "getHeaders", "getCookie", "getCookies", "getClientAddress",
}

// Extractor converts TypeScript source into ModuleExports.
type Extractor struct {
	opts Options
}

// New creates an Extractor. Zero-value option fields fall back to defaults.
func New(opts Options) *Extractor {
	if len(opts.ContextTypeNames) == 0 {
		opts.ContextTypeNames = DefaultContextTypeNames
	}
	if len(opts.ContextAccessors) == 0 {
		opts.ContextAccessors = DefaultContextAccessors
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	return &Extractor{opts: opts}
}

// Extract parses content and returns the module's exported functions and
// types. Re-parsing unchanged content yields structurally identical
// descriptors. A parse failure returns an error; callers treat that as an
// empty result with a warning, never as fatal.
func (x *Extractor) Extract(path string, content []byte) (*descriptor.ModuleExports, error) {
	psr := sitter.NewParser()
	psr.SetLanguage(tsgrammar.GetLanguage())

	tree, err := psr.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	w := &walker{
		path:    path,
		content: content,
		opts:    x.opts,
		seen:    make(map[string]bool),
		exports: &descriptor.ModuleExports{},
	}
	w.walk(tree.RootNode())
	return w.exports, nil
}

// walker visits the top-level declarations of one module.
type walker struct {
	path    string
	content []byte
	opts    Options
	seen    map[string]bool
	exports *descriptor.ModuleExports
}

func (w *walker) walk(root *sitter.Node) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_statement":
			w.exports.RawImports = append(w.exports.RawImports, w.nodeText(child))
		case "export_statement":
			w.visitExport(child)
		}
	}
}

// visitExport branches on the declaration wrapped by an export statement.
// Non-exported declarations never produce descriptors.
func (w *walker) visitExport(node *sitter.Node) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "function_declaration":
			w.addFunction(w.extractDeclaredFunction(child))
		case "lexical_declaration", "variable_declaration":
			w.visitLexicalDeclaration(child)
		case "interface_declaration":
			w.addType(child, descriptor.TypeInterface)
		case "type_alias_declaration":
			w.addType(child, descriptor.TypeAlias)
		case "enum_declaration":
			w.addType(child, descriptor.TypeEnum)
		case "class_declaration", "abstract_class_declaration":
			w.addType(child, descriptor.TypeClass)
		}
	}
}

func (w *walker) visitLexicalDeclaration(node *sitter.Node) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		valueNode := child.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil {
			continue
		}
		switch valueNode.Type() {
		case "arrow_function":
			w.addFunction(w.extractFunctionLiteral(w.nodeText(nameNode), valueNode, descriptor.KindArrow))
		case "function", "function_expression":
			w.addFunction(w.extractFunctionLiteral(w.nodeText(nameNode), valueNode, descriptor.KindExpression))
		}
	}
}

func (w *walker) addFunction(fn descriptor.FunctionDescriptor) {
	if fn.Name == "" {
		return
	}
	if w.seen[fn.Name] {
		// First declaration wins; the duplicate is dropped rather than
		// silently replacing earlier output.
		w.opts.Logf("Warning: %s: duplicate exported function %q ignored", w.path, fn.Name)
		return
	}
	w.seen[fn.Name] = true
	w.exports.Functions = append(w.exports.Functions, fn)
}

func (w *walker) addType(node *sitter.Node, kind descriptor.TypeKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	w.exports.Types = append(w.exports.Types, descriptor.TypeDescriptor{
		Name:       w.nodeText(nameNode),
		Kind:       kind,
		SourceText: w.nodeText(node),
	})
}

func (w *walker) extractDeclaredFunction(node *sitter.Node) descriptor.FunctionDescriptor {
	name := ""
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		name = w.nodeText(nameNode)
	}
	return w.extractFunctionLiteral(name, node, descriptor.KindDeclared)
}

func (w *walker) extractFunctionLiteral(name string, fnNode *sitter.Node, kind descriptor.FunctionKind) descriptor.FunctionDescriptor {
	fn := descriptor.FunctionDescriptor{
		Name:    name,
		Kind:    kind,
		IsAsync: w.hasChildWithValue(fnNode, "async"),
	}

	params, usesContextParam := w.extractParameters(fnNode.ChildByFieldName("parameters"))
	fn.Parameters = params
	fn.NeedsRequestContext = usesContextParam || w.bodyUsesContextAccessor(fnNode.ChildByFieldName("body"))

	if ret := fnNode.ChildByFieldName("return_type"); ret != nil {
		fn.ReturnTypeExpression = trimAnnotation(w.nodeText(ret))
	}

	return fn
}

// extractParameters returns the wire-visible parameters of a function. A
// parameter whose declared type names the request context is not part of the
// calling contract; it only flags the function as context-dependent.
func (w *walker) extractParameters(paramsNode *sitter.Node) ([]descriptor.ParameterDescriptor, bool) {
	if paramsNode == nil {
		return nil, false
	}

	var out []descriptor.ParameterDescriptor
	usesContext := false

	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() != "required_parameter" && child.Type() != "optional_parameter" {
			continue
		}

		name := ""
		if pattern := child.ChildByFieldName("pattern"); pattern != nil {
			name = w.nodeText(pattern)
		}

		typeText := "any"
		if typeNode := child.ChildByFieldName("type"); typeNode != nil {
			typeText = trimAnnotation(w.nodeText(typeNode))
		}

		if w.isContextType(typeText) {
			usesContext = true
			continue
		}

		out = append(out, descriptor.ParameterDescriptor{
			Name:           name,
			TypeExpression: typeText,
			Optional:       child.Type() == "optional_parameter",
		})
	}
	return out, usesContext
}

func (w *walker) isContextType(typeText string) bool {
	base := typeText
	if idx := strings.Index(base, "<"); idx > 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(base)
	for _, name := range w.opts.ContextTypeNames {
		if base == name {
			return true
		}
	}
	return false
}

// bodyUsesContextAccessor walks a function body looking for call expressions
// whose callee is one of the configured context accessor names.
func (w *walker) bodyUsesContextAccessor(body *sitter.Node) bool {
	if body == nil {
		return false
	}
	if body.Type() == "call_expression" {
		if fnNode := body.ChildByFieldName("function"); fnNode != nil {
			callee := w.nodeText(fnNode)
			// ctx.getHeader(...) counts the same as getHeader(...).
			if idx := strings.LastIndex(callee, "."); idx >= 0 {
				callee = callee[idx+1:]
			}
			for _, accessor := range w.opts.ContextAccessors {
				if callee == accessor {
					return true
				}
			}
		}
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		if w.bodyUsesContextAccessor(body.Child(i)) {
			return true
		}
	}
	return false
}

func (w *walker) nodeText(node *sitter.Node) string {
	return node.Content(w.content)
}

func (w *walker) hasChildWithValue(node *sitter.Node, value string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if w.nodeText(node.Child(i)) == value {
			return true
		}
	}
	return false
}

// trimAnnotation strips the leading ":" from a type_annotation's source text.
func trimAnnotation(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), ":"))
}
