// Package descriptor defines the structural records extracted from handler
// modules: exported functions, their parameters, exported types, and the
// request verb assigned to each function.
package descriptor

// RequestVerb classifies a handler function by the kind of request it serves.
type RequestVerb string

const (
	VerbFetch   RequestVerb = "FETCH"
	VerbCreate  RequestVerb = "CREATE"
	VerbReplace RequestVerb = "REPLACE"
	VerbModify  RequestVerb = "MODIFY"
	VerbRemove  RequestVerb = "REMOVE"
)

// VerbOrder is the fixed priority order in which verb prefix tables are
// consulted during classification. Earlier entries win on ambiguous names.
var VerbOrder = []RequestVerb{VerbFetch, VerbCreate, VerbReplace, VerbModify, VerbRemove}

// HTTPMethod returns the wire-protocol realization of the verb.
func (v RequestVerb) HTTPMethod() string {
	switch v {
	case VerbFetch:
		return "GET"
	case VerbCreate:
		return "POST"
	case VerbReplace:
		return "PUT"
	case VerbModify:
		return "PATCH"
	case VerbRemove:
		return "DELETE"
	default:
		return "POST"
	}
}

// HasBody reports whether requests for this verb carry a request body.
// FETCH and REMOVE requests encode parameters in the query string instead.
func (v RequestVerb) HasBody() bool {
	return v != VerbFetch && v != VerbRemove
}

// FunctionKind describes the declaration shape of an extracted function.
type FunctionKind string

const (
	KindDeclared   FunctionKind = "declared"   // function foo() {}
	KindArrow      FunctionKind = "arrow"      // const foo = () => {}
	KindExpression FunctionKind = "expression" // const foo = function () {}
)

// TypeKind describes the declaration shape of an extracted type.
type TypeKind string

const (
	TypeInterface TypeKind = "interface"
	TypeAlias     TypeKind = "alias"
	TypeEnum      TypeKind = "enum"
	TypeClass     TypeKind = "class"
)

// ParameterDescriptor records one declared parameter of an exported function.
// It is immutable after extraction.
type ParameterDescriptor struct {
	Name           string
	TypeExpression string // declared type text, or "any" if absent
	Optional       bool
}

// FunctionDescriptor records the calling contract of one exported function.
// Descriptors are recreated wholesale whenever their module is re-parsed;
// they are never mutated in place.
type FunctionDescriptor struct {
	Name                 string
	Kind                 FunctionKind
	Parameters           []ParameterDescriptor
	ReturnTypeExpression string // empty when no return annotation is present
	IsAsync              bool
	Verb                 RequestVerb
	NeedsRequestContext  bool
}

// TypeDescriptor carries an exported type declaration through to the
// emitters so generated modules can re-declare shared shapes.
type TypeDescriptor struct {
	Name       string
	Kind       TypeKind
	SourceText string
}

// ModuleExports is the unit of extraction for one source file.
// Function names are unique within a module: when a module declares the
// same exported name twice, the first declaration wins and the duplicate
// is dropped with a warning.
type ModuleExports struct {
	Functions  []FunctionDescriptor
	Types      []TypeDescriptor
	RawImports []string
}

// Function returns the descriptor for the named function, if present.
func (m *ModuleExports) Function(name string) (FunctionDescriptor, bool) {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return FunctionDescriptor{}, false
}
