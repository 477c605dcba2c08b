// Package classify maps handler function names to request verbs using
// per-verb name-prefix tables.
package classify

import (
	"strings"

	"github.com/imyousuf/routegen/internal/descriptor"
	"github.com/imyousuf/routegen/internal/schema"
)

// DefaultPrefixes is the built-in prefix table per verb. The tables are
// consulted in descriptor.VerbOrder; when a name matches prefixes from two
// tables, the earlier table wins.
var DefaultPrefixes = map[descriptor.RequestVerb][]string{
	descriptor.VerbFetch:   {"get", "fetch", "list", "find", "load", "query", "read", "lookup", "search"},
	descriptor.VerbCreate:  {"create", "add", "insert", "post", "register", "make", "new", "send", "submit"},
	descriptor.VerbReplace: {"update", "replace", "put", "set", "overwrite"},
	descriptor.VerbModify:  {"patch", "modify", "edit", "change", "toggle", "adjust", "rename"},
	descriptor.VerbRemove:  {"delete", "remove", "destroy", "clear", "drop", "purge", "unregister"},
}

// Classifier assigns a request verb to a function based on its name and,
// optionally, its parameter shape.
type Classifier struct {
	prefixes map[descriptor.RequestVerb][]string

	// singleParamDowngrade downgrades FETCH-classified functions that take a
	// single structured parameter to CREATE, so large filter objects travel
	// in a request body instead of the query string. Off unless configured.
	singleParamDowngrade bool
}

// New creates a Classifier with the given prefix tables. Verbs missing from
// the map fall back to DefaultPrefixes.
func New(prefixes map[descriptor.RequestVerb][]string, singleParamDowngrade bool) *Classifier {
	merged := make(map[descriptor.RequestVerb][]string, len(DefaultPrefixes))
	for verb, defaults := range DefaultPrefixes {
		if custom, ok := prefixes[verb]; ok && len(custom) > 0 {
			merged[verb] = custom
		} else {
			merged[verb] = defaults
		}
	}
	return &Classifier{prefixes: merged, singleParamDowngrade: singleParamDowngrade}
}

// Default returns a Classifier with the built-in tables and no downgrade
// heuristic.
func Default() *Classifier {
	return New(nil, false)
}

// Classify returns the verb for the named function. Names matching no prefix
// default to CREATE.
func (c *Classifier) Classify(name string, params []descriptor.ParameterDescriptor) descriptor.RequestVerb {
	lower := strings.ToLower(name)

	verb := descriptor.VerbCreate
	matched := false
	for _, v := range descriptor.VerbOrder {
		for _, prefix := range c.prefixes[v] {
			if strings.HasPrefix(lower, prefix) {
				verb = v
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}

	if c.singleParamDowngrade && verb == descriptor.VerbFetch && len(params) == 1 {
		if s := schema.Map(params[0].TypeExpression); s.Kind == schema.KindObject {
			verb = descriptor.VerbCreate
		}
	}

	return verb
}
