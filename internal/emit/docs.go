package emit

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/imyousuf/routegen/internal/descriptor"
	"github.com/imyousuf/routegen/internal/schema"
)

// OpenAPI 3.0 document types, only the subset the generator emits.

type APIDocument struct {
	OpenAPI   string              `json:"openapi"`
	Info      APIInfo             `json:"info"`
	Generator string              `json:"x-generator"`
	Paths     map[string]PathItem `json:"paths"`
}

type APIInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// PathItem maps a lowercase HTTP method to its operation.
type PathItem map[string]*Operation

type Operation struct {
	OperationID string           `json:"operationId"`
	Parameters  []Parameter      `json:"parameters,omitempty"`
	RequestBody *RequestBody     `json:"requestBody,omitempty"`
	Responses   map[string]*Body `json:"responses"`
}

type Parameter struct {
	Name     string        `json:"name"`
	In       string        `json:"in"`
	Required bool          `json:"required"`
	Schema   *SchemaObject `json:"schema"`
}

type RequestBody struct {
	Required bool                    `json:"required"`
	Content  map[string]*MediaSchema `json:"content"`
}

type Body struct {
	Description string                  `json:"description"`
	Content     map[string]*MediaSchema `json:"content,omitempty"`
}

type MediaSchema struct {
	Schema *SchemaObject `json:"schema"`
}

type SchemaObject struct {
	Type        string                   `json:"type,omitempty"`
	Format      string                   `json:"format,omitempty"`
	Items       *SchemaObject            `json:"items,omitempty"`
	Properties  map[string]*SchemaObject `json:"properties,omitempty"`
	Required    []string                 `json:"required,omitempty"`
	OneOf       []*SchemaObject          `json:"oneOf,omitempty"`
	Description string                   `json:"description,omitempty"`
}

// ModuleDoc is the per-source input to the documentation emitter.
type ModuleDoc struct {
	RelModule string
	Exports   *descriptor.ModuleExports
	Endpoints EndpointMap
}

// BuildDocument aggregates every function descriptor across the scanned tree
// into one API description. Entries are deduplicated by (path, verb) so the
// same logical endpoint is never listed twice.
func BuildDocument(title, version string, modules []ModuleDoc) *APIDocument {
	doc := &APIDocument{
		OpenAPI:   "3.0.3",
		Info:      APIInfo{Title: title, Version: version},
		Generator: Marker,
		Paths:     make(map[string]PathItem),
	}

	// Deterministic aggregation order regardless of map iteration upstream.
	sorted := make([]ModuleDoc, len(modules))
	copy(sorted, modules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelModule < sorted[j].RelModule })

	for _, m := range sorted {
		for _, fn := range m.Exports.Functions {
			ep, ok := m.Endpoints[fn.Name]
			if !ok {
				continue
			}
			method := strings.ToLower(ep.Verb.HTTPMethod())
			item, ok := doc.Paths[ep.Path]
			if !ok {
				item = make(PathItem)
				doc.Paths[ep.Path] = item
			}
			if _, dup := item[method]; dup {
				continue
			}
			item[method] = buildOperation(fn, ep)
		}
	}
	return doc
}

func buildOperation(fn descriptor.FunctionDescriptor, ep Endpoint) *Operation {
	op := &Operation{
		OperationID: fn.Name,
		Responses: map[string]*Body{
			"200": {
				Description: "Successful invocation result",
				Content: map[string]*MediaSchema{
					"application/json": {Schema: responseSchema(fn)},
				},
			},
			"400": errorBody("Malformed request"),
			"500": errorBody("Handler raised an error"),
		},
	}

	if !ep.Verb.HasBody() {
		for _, p := range fn.Parameters {
			op.Parameters = append(op.Parameters, Parameter{
				Name:     WireName(p.Name),
				In:       "query",
				Required: !p.Optional,
				Schema:   toSchemaObject(schema.Map(p.TypeExpression)),
			})
		}
		return op
	}

	if len(fn.Parameters) > 0 {
		contentType := "application/json"
		if HasBinaryParameter(fn) {
			contentType = "multipart/form-data"
		}
		op.RequestBody = &RequestBody{
			Required: true,
			Content: map[string]*MediaSchema{
				contentType: {Schema: requestSchema(fn)},
			},
		}
	}
	return op
}

// requestSchema combines the parameter set into one object schema keyed by
// wire name.
func requestSchema(fn descriptor.FunctionDescriptor) *SchemaObject {
	obj := &SchemaObject{Type: "object", Properties: make(map[string]*SchemaObject)}
	for _, p := range fn.Parameters {
		name := WireName(p.Name)
		obj.Properties[name] = toSchemaObject(schema.Map(p.TypeExpression))
		if !p.Optional {
			obj.Required = append(obj.Required, name)
		}
	}
	sort.Strings(obj.Required)
	return obj
}

func responseSchema(fn descriptor.FunctionDescriptor) *SchemaObject {
	if fn.ReturnTypeExpression == "" {
		return &SchemaObject{}
	}
	return toSchemaObject(schema.Map(fn.ReturnTypeExpression))
}

// errorBody is the fixed error-response shape shared by every endpoint.
func errorBody(description string) *Body {
	return &Body{
		Description: description,
		Content: map[string]*MediaSchema{
			"application/json": {
				Schema: &SchemaObject{
					Type: "object",
					Properties: map[string]*SchemaObject{
						"error": {Type: "string"},
					},
					Required: []string{"error"},
				},
			},
		},
	}
}

// toSchemaObject lowers the internal schema representation into OpenAPI.
func toSchemaObject(s *schema.Schema) *SchemaObject {
	switch s.Kind {
	case schema.KindPrimitive:
		switch s.Name {
		case "string":
			return &SchemaObject{Type: "string"}
		case "number":
			return &SchemaObject{Type: "number"}
		case "boolean":
			return &SchemaObject{Type: "boolean"}
		case "void":
			return &SchemaObject{Type: "null", Description: "void"}
		default: // any, unknown
			return &SchemaObject{}
		}
	case schema.KindArray:
		return &SchemaObject{Type: "array", Items: toSchemaObject(s.Elem)}
	case schema.KindUnion:
		out := &SchemaObject{}
		for _, v := range s.Variants {
			out.OneOf = append(out.OneOf, toSchemaObject(v))
		}
		return out
	case schema.KindObject:
		obj := &SchemaObject{Type: "object", Properties: make(map[string]*SchemaObject)}
		for key, prop := range s.Properties {
			obj.Properties[key] = toSchemaObject(prop)
		}
		obj.Required = append(obj.Required, s.Required...)
		sort.Strings(obj.Required)
		return obj
	default:
		return &SchemaObject{Description: s.Name}
	}
}

// RenderDocument serializes the document. encoding/json sorts map keys, so
// the output is byte-stable across runs.
func RenderDocument(doc *APIDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
