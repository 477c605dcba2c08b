package emit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/imyousuf/routegen/internal/descriptor"
	"github.com/imyousuf/routegen/internal/schema"
)

// ClientModule renders the client-stub module for one source module: one
// wrapper function per handler, performing the network call with the
// encoding the route handler expects. The whole module is rewritten
// whenever any function in the source module changes.
func ClientModule(relModule string, exports *descriptor.ModuleExports, endpoints EndpointMap) string {
	var b strings.Builder
	b.WriteString(MarkerComment + "\n")
	fmt.Fprintf(&b, "/* source: %s */\n\n", filepath.ToSlash(relModule))

	// Re-declare the module's exported shapes so stubs stay self-contained.
	for _, td := range exports.Types {
		b.WriteString("export " + td.SourceText + "\n\n")
	}

	multipartNeeded := false
	for _, fn := range exports.Functions {
		ep, ok := endpoints[fn.Name]
		if !ok {
			continue
		}
		multipart := ep.Verb.HasBody() && HasBinaryParameter(fn)
		if multipart {
			multipartNeeded = true
		}
		writeClientStub(&b, fn, ep, multipart)
		b.WriteString("\n")
	}

	b.WriteString(requestHelper)
	if multipartNeeded {
		b.WriteString("\n" + formDataHelpers)
	}
	return b.String()
}

// writeClientStub renders one wrapper. The calling convention depends on the
// parameter shape:
//   - no parameters: no-argument call
//   - one parameter: bare value or single-key wrapper accepted
//   - otherwise: one structured object combining all parameters
func writeClientStub(b *strings.Builder, fn descriptor.FunctionDescriptor, ep Endpoint, multipart bool) {
	returnType := clientReturnType(fn)
	method := ep.Verb.HTTPMethod()

	switch {
	case len(fn.Parameters) == 0:
		fmt.Fprintf(b, "export async function %s(): Promise<%s> {\n", fn.Name, returnType)
		fmt.Fprintf(b, "  return request('%s', '%s');\n", method, ep.Path)
		b.WriteString("}\n")

	case len(fn.Parameters) == 1:
		writeSingleParamStub(b, fn, ep, returnType, multipart)

	default:
		writeCombinedParamStub(b, fn, ep, returnType, multipart)
	}
}

// writeSingleParamStub accepts either the bare value or a wrapper shape, for
// backward-compatible call styles.
func writeSingleParamStub(b *strings.Builder, fn descriptor.FunctionDescriptor, ep Endpoint, returnType string, multipart bool) {
	p := fn.Parameters[0]
	paramSchema := schema.Map(p.TypeExpression)
	method := ep.Verb.HTTPMethod()

	name := WireName(p.Name)

	if paramSchema.Kind == schema.KindObject {
		// Structured parameter: accept the object itself; when it has a
		// single property, the bare property value is accepted too.
		argType := p.TypeExpression
		unwrap := fmt.Sprintf("const value: any = %s;", name)
		if len(paramSchema.Properties) == 1 {
			key := paramSchema.PropertyKeys()[0]
			argType = fmt.Sprintf("%s | %s", p.TypeExpression, typeOrAny(paramSchema.Properties[key]))
			unwrap = fmt.Sprintf("const value: any = (%s !== null && typeof %s === 'object') ? %s : { %s: %s };",
				name, name, name, key, name)
		}
		fmt.Fprintf(b, "export async function %s(%s: %s): Promise<%s> {\n", fn.Name, name, argType, returnType)
		b.WriteString("  " + unwrap + "\n")
		writeRequestCall(b, ep, method, fmt.Sprintf("{ %s: value }", name), multipart)
		b.WriteString("}\n")
		return
	}

	// Scalar parameter: accept the bare value or a single-key wrapper object.
	fmt.Fprintf(b, "export async function %s(%s: %s | { %s%s: %s }): Promise<%s> {\n",
		fn.Name, name, p.TypeExpression, name, optMark(p), p.TypeExpression, returnType)
	fmt.Fprintf(b, "  const value: any = (%s !== null && typeof %s === 'object' && '%s' in (%s as any)) ? (%s as any)['%s'] : %s;\n",
		name, name, name, name, name, name, name)
	writeRequestCall(b, ep, method, fmt.Sprintf("{ %s: value }", name), multipart)
	b.WriteString("}\n")
}

// writeCombinedParamStub accepts one object whose keys are the declared
// parameter names.
func writeCombinedParamStub(b *strings.Builder, fn descriptor.FunctionDescriptor, ep Endpoint, returnType string, multipart bool) {
	fields := make([]string, 0, len(fn.Parameters))
	for _, p := range fn.Parameters {
		fields = append(fields, fmt.Sprintf("%s%s: %s", WireName(p.Name), optMark(p), p.TypeExpression))
	}
	fmt.Fprintf(b, "export async function %s(params: { %s }): Promise<%s> {\n",
		fn.Name, strings.Join(fields, "; "), returnType)
	writeRequestCall(b, ep, ep.Verb.HTTPMethod(), "params as Record<string, unknown>", multipart)
	b.WriteString("}\n")
}

func writeRequestCall(b *strings.Builder, ep Endpoint, method, record string, multipart bool) {
	switch {
	case !ep.Verb.HasBody():
		fmt.Fprintf(b, "  return request('%s', '%s', %s);\n", method, ep.Path, record)
	case multipart:
		fmt.Fprintf(b, "  return request('%s', '%s', undefined, buildFormData(%s));\n", method, ep.Path, record)
	default:
		fmt.Fprintf(b, "  return request('%s', '%s', undefined, %s);\n", method, ep.Path, record)
	}
}

// clientReturnType is the Promise-unwrapped element of the declared return
// annotation; the stub itself is always async.
func clientReturnType(fn descriptor.FunctionDescriptor) string {
	ret := strings.TrimSpace(fn.ReturnTypeExpression)
	if ret == "" {
		return "any"
	}
	if strings.HasPrefix(ret, "Promise<") && strings.HasSuffix(ret, ">") {
		return strings.TrimSpace(ret[len("Promise<") : len(ret)-1])
	}
	return ret
}

// typeOrAny renders a schema back to a type position, used for bare-value
// overloads of single-property object parameters.
func typeOrAny(s *schema.Schema) string {
	switch s.Kind {
	case schema.KindPrimitive:
		return s.Name
	case schema.KindOpaque:
		if s.Name != "" {
			return s.Name
		}
	}
	return "any"
}

func optMark(p descriptor.ParameterDescriptor) string {
	if p.Optional {
		return "?"
	}
	return ""
}

const requestHelper = `async function request(method: string, path: string, query?: Record<string, unknown>, body?: unknown): Promise<any> {
  let url = path;
  if (query !== undefined) {
    const qs = new URLSearchParams();
    for (const [key, value] of Object.entries(query)) {
      if (value === undefined) continue;
      qs.set(key, value !== null && typeof value === 'object' ? JSON.stringify(value) : String(value));
    }
    const encoded = qs.toString();
    if (encoded !== '') url += '?' + encoded;
  }
  const init: RequestInit = { method };
  if (typeof FormData !== 'undefined' && body instanceof FormData) {
    init.body = body;
  } else if (body !== undefined) {
    init.headers = { 'content-type': 'application/json' };
    init.body = JSON.stringify(body);
  }
  const res = await fetch(url, init);
  const data = await res.json().catch(() => null);
  if (!res.ok) {
    throw new Error(data && data.error ? data.error : 'request failed with status ' + res.status);
  }
  return data;
}
`

const formDataHelpers = `function buildFormData(record: Record<string, unknown>): FormData {
  const fd = new FormData();
  for (const [key, value] of Object.entries(record)) {
    appendFormValue(fd, key, value);
  }
  return fd;
}

/* Flattens nested objects/arrays into dot/bracket keys and appends binary
 * values as file parts, mirroring the server-side multipart decoder. */
function appendFormValue(fd: FormData, key: string, value: unknown): void {
  if (value === undefined || value === null) return;
  if (isBinaryValue(value)) {
    fd.append(key, value as Blob);
    return;
  }
  if (Array.isArray(value)) {
    value.forEach((item, i) => appendFormValue(fd, key + '[' + i + ']', item));
    return;
  }
  if (typeof value === 'object') {
    for (const [k, v] of Object.entries(value as Record<string, unknown>)) {
      appendFormValue(fd, key + '.' + k, v);
    }
    return;
  }
  fd.append(key, String(value));
}

function isBinaryValue(value: unknown): boolean {
  return (typeof Blob !== 'undefined' && value instanceof Blob) ||
    (typeof Uint8Array !== 'undefined' && value instanceof Uint8Array);
}
`
