package schema

import (
	"sort"
	"strings"
)

// primitives is the set of type keywords mapped directly to primitive schemas.
var primitives = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
	"any":     true,
	"unknown": true,
	"void":    true,
}

// Map converts a type expression string into a Schema. It is a pure function
// of its input: the same text always yields the same schema. Type annotations
// are user-authored free text, so anything the small surface grammar does not
// recognize degrades to an Opaque schema rather than failing.
func Map(expr string) *Schema {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Opaque("")
	}

	// Strip redundant outer parentheses: (A | B) -> A | B.
	if inner, ok := stripOuterParens(expr); ok {
		return Map(inner)
	}

	// Top-level unions take precedence so A[] | B splits before the array
	// suffix is considered.
	if parts := splitTopLevel(expr, '|'); len(parts) > 1 {
		variants := make([]*Schema, 0, len(parts))
		for _, p := range parts {
			variants = append(variants, Map(p))
		}
		return &Schema{Kind: KindUnion, Variants: variants}
	}

	// Unwrap the asynchronous return annotation.
	if inner, ok := unwrapGeneric(expr, "Promise"); ok {
		return Map(inner)
	}

	if strings.HasSuffix(expr, "[]") {
		elem := strings.TrimSpace(expr[:len(expr)-2])
		if elem != "" && isBalanced(elem) {
			return &Schema{Kind: KindArray, Elem: Map(elem)}
		}
	}
	if inner, ok := unwrapGeneric(expr, "Array"); ok {
		return &Schema{Kind: KindArray, Elem: Map(inner)}
	}

	if primitives[expr] {
		return Primitive(expr)
	}

	if strings.HasPrefix(expr, "{") && strings.HasSuffix(expr, "}") && isBalanced(expr) {
		return mapObject(expr[1 : len(expr)-1])
	}

	return Opaque(expr)
}

// mapObject parses the body of a brace-delimited object literal type.
// An empty body yields an Object with no properties.
func mapObject(body string) *Schema {
	obj := &Schema{Kind: KindObject, Properties: map[string]*Schema{}}

	members := splitTopLevel(body, ';', ',')
	for _, member := range members {
		member = strings.TrimSpace(member)
		if member == "" {
			continue
		}
		colonParts := splitTopLevel(member, ':')
		if len(colonParts) < 2 {
			// Not a key: type pair (index signature, method shorthand, or
			// malformed text); skip rather than abort.
			continue
		}
		key := strings.TrimSpace(colonParts[0])
		typeText := strings.TrimSpace(strings.Join(colonParts[1:], ":"))

		optional := strings.HasSuffix(key, "?")
		key = strings.TrimSuffix(key, "?")
		key = strings.Trim(key, `"'`)
		if key == "" {
			continue
		}

		obj.Properties[key] = Map(typeText)
		if !optional {
			obj.Required = append(obj.Required, key)
		}
	}
	sort.Strings(obj.Required)
	return obj
}

// unwrapGeneric returns the argument of a single-argument generic wrapper,
// e.g. unwrapGeneric("Promise<string>", "Promise") -> "string".
func unwrapGeneric(expr, wrapper string) (string, bool) {
	prefix := wrapper + "<"
	if !strings.HasPrefix(expr, prefix) || !strings.HasSuffix(expr, ">") {
		return "", false
	}
	inner := expr[len(prefix) : len(expr)-1]
	if !isBalanced(inner) {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// stripOuterParens removes one layer of parentheses when they enclose the
// whole expression.
func stripOuterParens(expr string) (string, bool) {
	if !strings.HasPrefix(expr, "(") || !strings.HasSuffix(expr, ")") {
		return "", false
	}
	inner := expr[1 : len(expr)-1]
	if !isBalanced(inner) {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// splitTopLevel splits expr on any of the separator runes that occur outside
// brace/bracket/paren/angle nesting and outside quoted strings. Separators
// inside template literals are also ignored.
func splitTopLevel(expr string, seps ...rune) []string {
	var (
		parts   []string
		current strings.Builder
		depth   int
		quote   rune // active quote character, 0 when outside a string
	)

	isSep := func(r rune) bool {
		for _, s := range seps {
			if r == s {
				return true
			}
		}
		return false
	}

	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if quote != 0 {
			current.WriteRune(r)
			if r == '\\' && i+1 < len(runes) {
				current.WriteRune(runes[i+1])
				i++
				continue
			}
			if r == quote {
				quote = 0
			}
			continue
		}

		switch r {
		case '\'', '"', '`':
			quote = r
			current.WriteRune(r)
		case '{', '[', '(', '<':
			depth++
			current.WriteRune(r)
		case '}', ']', ')', '>':
			depth--
			current.WriteRune(r)
		default:
			if depth == 0 && isSep(r) {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteRune(r)
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" || len(parts) > 0 {
		parts = append(parts, s)
	}

	// Drop empty fragments produced by trailing separators.
	filtered := parts[:0]
	for _, p := range parts {
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// isBalanced reports whether all brackets in expr are balanced and the
// nesting depth never goes negative. Quoted regions are skipped.
func isBalanced(expr string) bool {
	depth := 0
	var quote rune
	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			if r == '\\' {
				i++
			} else if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"', '`':
			quote = r
		case '{', '[', '(', '<':
			depth++
		case '}', ']', ')', '>':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && quote == 0
}
