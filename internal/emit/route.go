package emit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/imyousuf/routegen/internal/descriptor"
	"github.com/imyousuf/routegen/internal/schema"
)

// binaryTypeMarkers are type-text fragments that mark a parameter as
// carrying file/binary data, which forces multipart request encoding.
var binaryTypeMarkers = []string{"File", "Blob", "Buffer", "Uint8Array", "ReadableStream"}

// IsBinaryType reports whether a type expression names a binary/file shape,
// directly or inside an array/union/object property.
func IsBinaryType(expr string) bool {
	for _, marker := range binaryTypeMarkers {
		if containsWord(expr, marker) {
			return true
		}
	}
	return false
}

// HasBinaryParameter reports whether any parameter forces multipart encoding.
func HasBinaryParameter(fn descriptor.FunctionDescriptor) bool {
	for _, p := range fn.Parameters {
		if IsBinaryType(p.TypeExpression) {
			return true
		}
	}
	return false
}

// containsWord matches marker as a whole identifier inside expr.
func containsWord(expr, marker string) bool {
	idx := 0
	for {
		i := strings.Index(expr[idx:], marker)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isIdentRune(rune(expr[i-1]))
		afterIdx := i + len(marker)
		after := afterIdx >= len(expr) || !isIdentRune(rune(expr[afterIdx]))
		if before && after {
			return true
		}
		idx = i + len(marker)
	}
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// RouteModule renders the server-side handler module for one function.
// routeFile and sourceFile are filesystem paths used to compute the relative
// import of the original handler module.
func RouteModule(fn descriptor.FunctionDescriptor, ep Endpoint, routeFile, sourceFile, relModule string) string {
	importPath := relativeImport(filepath.Dir(routeFile), sourceFile)
	multipart := ep.Verb.HasBody() && HasBinaryParameter(fn)

	var b strings.Builder
	b.WriteString(MarkerComment + "\n")
	fmt.Fprintf(&b, "/* source: %s :: %s */\n\n", filepath.ToSlash(relModule), fn.Name)
	b.WriteString("import type { Request, Response } from 'express';\n")
	if multipart {
		b.WriteString("import Busboy from 'busboy';\n")
	}
	fmt.Fprintf(&b, "import { %s } from '%s';\n\n", fn.Name, importPath)

	fmt.Fprintf(&b, "export const method = '%s';\n", ep.Verb.HTTPMethod())
	fmt.Fprintf(&b, "export const route = '%s';\n\n", ep.Path)

	b.WriteString("export async function handler(req: Request, res: Response): Promise<void> {\n")
	b.WriteString("  try {\n")

	switch {
	case !ep.Verb.HasBody():
		writeQueryExtraction(&b, fn)
	case multipart:
		b.WriteString("    const fields = await parseMultipart(req);\n")
		writeRecordExtraction(&b, fn, "fields")
	default:
		b.WriteString("    const body = (req.body ?? {}) as Record<string, unknown>;\n")
		writeRecordExtraction(&b, fn, "body")
	}

	callArgs := make([]string, 0, len(fn.Parameters)+1)
	for _, p := range fn.Parameters {
		callArgs = append(callArgs, argName(p.Name))
	}
	if fn.NeedsRequestContext {
		b.WriteString("    const ctx = { headers: req.headers, cookies: (req as any).cookies ?? {}, clientAddress: req.ip };\n")
		callArgs = append(callArgs, "ctx")
	}

	fmt.Fprintf(&b, "    const result = await %s(%s);\n", fn.Name, strings.Join(callArgs, ", "))
	b.WriteString("    res.status(200).json(result === undefined ? null : result);\n")
	b.WriteString("  } catch (err: any) {\n")
	b.WriteString("    res.status(500).json({ error: err?.message ?? String(err) });\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")

	if !ep.Verb.HasBody() && len(fn.Parameters) > 0 {
		b.WriteString("\n" + decodeQueryHelper)
	}
	if multipart {
		b.WriteString("\n" + multipartHelpers)
	}
	return b.String()
}

// writeQueryExtraction pulls each parameter from the query string by name,
// coercing primitives and JSON-decoding structured values.
func writeQueryExtraction(b *strings.Builder, fn descriptor.FunctionDescriptor) {
	for _, p := range fn.Parameters {
		fmt.Fprintf(b, "    const %s = decodeQueryValue(req.query['%s'], '%s');\n",
			argName(p.Name), WireName(p.Name), coercionKind(p.TypeExpression))
	}
}

// writeRecordExtraction pulls each parameter out of a decoded body record.
func writeRecordExtraction(b *strings.Builder, fn descriptor.FunctionDescriptor, record string) {
	for _, p := range fn.Parameters {
		fmt.Fprintf(b, "    const %s = %s['%s'];\n", argName(p.Name), record, WireName(p.Name))
	}
}

// WireName turns a parameter name (possibly a destructuring pattern) into
// the identifier used as its query/body key. Route and client emitters both
// use it, so the two sides always agree on key names.
func WireName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if isIdentRune(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "value"
	}
	return b.String()
}

// argName is the local variable holding one reconstructed argument.
func argName(name string) string {
	return "arg_" + WireName(name)
}

// coercionKind decides how a query-string value is converted back to the
// declared parameter type.
func coercionKind(typeExpr string) string {
	s := schema.Map(typeExpr)
	if s.Kind == schema.KindPrimitive {
		switch s.Name {
		case "number":
			return "number"
		case "boolean":
			return "boolean"
		case "string":
			return "string"
		}
	}
	return "json"
}

// relativeImport computes the TypeScript import specifier from fromDir to
// the source module at sourceFile.
func relativeImport(fromDir, sourceFile string) string {
	rel, err := filepath.Rel(fromDir, sourceFile)
	if err != nil {
		rel = sourceFile
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

const decodeQueryHelper = `function decodeQueryValue(raw: unknown, kind: string): any {
  if (raw === undefined) return undefined;
  const text = Array.isArray(raw) ? String(raw[raw.length - 1]) : String(raw);
  switch (kind) {
    case 'number': return Number(text);
    case 'boolean': return text === 'true';
    case 'string': return text;
    default:
      try { return JSON.parse(text); } catch { return text; }
  }
}
`

const multipartHelpers = `function parseMultipart(req: Request): Promise<Record<string, any>> {
  return new Promise((resolve, reject) => {
    const out: Record<string, any> = {};
    const bb = Busboy({ headers: req.headers });
    bb.on('field', (key: string, value: string) => {
      let decoded: any = value;
      try { decoded = JSON.parse(value); } catch { /* plain string */ }
      setPathValue(out, key, decoded);
    });
    bb.on('file', (key: string, stream: any) => {
      const chunks: Buffer[] = [];
      stream.on('data', (c: Buffer) => chunks.push(c));
      stream.on('end', () => setPathValue(out, key, Buffer.concat(chunks)));
    });
    bb.on('error', reject);
    bb.on('close', () => resolve(out));
    req.pipe(bb);
  });
}

/* Reconstructs nested keys from dot/bracket path conventions:
 * "user.tags[0]" places the value at out.user.tags[0]. */
function setPathValue(target: Record<string, any>, key: string, value: any): void {
  const path = key.replace(/\[(\w*)\]/g, '.$1').split('.').filter((s) => s !== '');
  let node: any = target;
  for (let i = 0; i < path.length - 1; i++) {
    const seg = path[i];
    if (node[seg] === undefined || typeof node[seg] !== 'object') {
      node[seg] = /^\d+$/.test(path[i + 1]) ? [] : {};
    }
    node = node[seg];
  }
  if (path.length > 0) {
    node[path[path.length - 1]] = value;
  }
}
`
