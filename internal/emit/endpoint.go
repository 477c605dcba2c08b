// Package emit turns function descriptors into generated artifacts: one
// route-handler module per function, one client module per source module,
// and one aggregated API description document. All artifact writes go
// through the safe-write primitive in this package.
package emit

import (
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/imyousuf/routegen/internal/descriptor"
)

// Endpoint is the address of one generated route.
type Endpoint struct {
	Path string
	Verb descriptor.RequestVerb
}

// EndpointMap assigns each exported function of one module its URL path and
// verb. It is computed once per source file before either emitter runs, so
// the route and client emitters agree exactly on addressing.
type EndpointMap map[string]Endpoint

// BuildEndpointMap derives endpoints for every function of a module.
// relModule is the module path relative to the source root (e.g.
// "admin/user.ts"); the URL is the extension-less module path plus the
// hyphenated function name: "/admin/user/get-user".
func BuildEndpointMap(relModule string, exports *descriptor.ModuleExports) EndpointMap {
	m := make(EndpointMap, len(exports.Functions))
	base := moduleURLBase(relModule)
	for _, fn := range exports.Functions {
		m[fn.Name] = Endpoint{
			Path: base + "/" + Hyphenate(fn.Name),
			Verb: fn.Verb,
		}
	}
	return m
}

// moduleURLBase converts a module-relative path into a URL prefix:
// "admin/userAccounts.ts" -> "/admin/user-accounts".
func moduleURLBase(relModule string) string {
	trimmed := strings.TrimSuffix(filepath.ToSlash(relModule), filepath.Ext(relModule))
	segments := strings.Split(trimmed, "/")
	for i, seg := range segments {
		segments[i] = Hyphenate(seg)
	}
	return "/" + path.Join(segments...)
}

// Hyphenate converts an identifier to a URL-safe, hyphenated form:
// "getUser" -> "get-user", "parseHTMLPage" -> "parse-html-page".
func Hyphenate(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			// Start a new segment at a lower->upper boundary, or at the last
			// upper of an acronym run ("HTMLPage" -> "html-page").
			if i > 0 && b.Len() > 0 {
				prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
					b.WriteByte('-')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLower(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			// Underscores and anything URL-unsafe become hyphens.
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// RoutePath returns the filesystem path of the route artifact for one
// function: <routesDir>/<module-rel-dir-and-base>/<hyphenated-name>.ts.
func RoutePath(routesDir, relModule, funcName string) string {
	moduleDir := strings.TrimSuffix(relModule, filepath.Ext(relModule))
	return filepath.Join(routesDir, moduleDir, Hyphenate(funcName)+".ts")
}

// ClientPath returns the filesystem path of the client artifact for one
// source module: <clientDir>/<module-relative-path>.
func ClientPath(clientDir, relModule string) string {
	return filepath.Join(clientDir, relModule)
}
