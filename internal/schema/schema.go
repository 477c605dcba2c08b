// Package schema converts textual type expressions from handler source into
// a structured, recursive representation used for request parsing decisions
// and API documentation.
package schema

import "sort"

// Kind tags a Schema variant. The set is closed so emitters can switch
// exhaustively over it.
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindArray     Kind = "array"
	KindUnion     Kind = "union"
	KindObject    Kind = "object"
	KindOpaque    Kind = "opaque"
)

// Schema is the structured representation of a parameter or return type.
// Exactly the fields relevant to Kind are populated.
type Schema struct {
	Kind Kind

	// Primitive name (string, number, boolean, any, unknown, void),
	// or the preserved source text for Opaque schemas.
	Name string

	// Element type for Array schemas.
	Elem *Schema

	// Variant types for Union schemas, in source order.
	Variants []*Schema

	// Properties and their required-key set for Object schemas.
	Properties map[string]*Schema
	Required   []string
}

// Primitive constructs a primitive schema.
func Primitive(name string) *Schema {
	return &Schema{Kind: KindPrimitive, Name: name}
}

// Opaque constructs an opaque schema preserving the original source text.
func Opaque(text string) *Schema {
	return &Schema{Kind: KindOpaque, Name: text}
}

// IsRequired reports whether the given object property key is required.
func (s *Schema) IsRequired(key string) bool {
	for _, k := range s.Required {
		if k == key {
			return true
		}
	}
	return false
}

// PropertyKeys returns the object property names in sorted order, so
// emitters iterating properties produce deterministic output.
func (s *Schema) PropertyKeys() []string {
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
