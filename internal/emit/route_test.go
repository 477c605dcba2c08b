package emit

import (
	"strings"
	"testing"

	"github.com/imyousuf/routegen/internal/descriptor"
)

func fetchFn() descriptor.FunctionDescriptor {
	return descriptor.FunctionDescriptor{
		Name: "getUser",
		Kind: descriptor.KindDeclared,
		Parameters: []descriptor.ParameterDescriptor{
			{Name: "params", TypeExpression: "{ id: string }"},
		},
		ReturnTypeExpression: "Promise<{ id: string; name: string }>",
		IsAsync:              true,
		Verb:                 descriptor.VerbFetch,
	}
}

func TestRouteModuleQueryVerb(t *testing.T) {
	fn := fetchFn()
	ep := Endpoint{Path: "/user/get-user", Verb: descriptor.VerbFetch}
	out := RouteModule(fn, ep, "out/routes/user/get-user.ts", "src/server/user.ts", "user.ts")

	for _, want := range []string{
		MarkerComment,
		"export const method = 'GET';",
		"export const route = '/user/get-user';",
		"import { getUser } from '../../../src/server/user';",
		"decodeQueryValue(req.query['params'], 'json')",
		"const result = await getUser(arg_params);",
		"res.status(200).json(result === undefined ? null : result);",
		"res.status(500).json({ error:",
		"function decodeQueryValue",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("route module missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "req.body") {
		t.Error("query-verb route must not read the request body")
	}
}

func TestRouteModuleBodyVerb(t *testing.T) {
	fn := descriptor.FunctionDescriptor{
		Name: "createUser",
		Parameters: []descriptor.ParameterDescriptor{
			{Name: "name", TypeExpression: "string"},
			{Name: "age", TypeExpression: "number", Optional: true},
		},
		Verb: descriptor.VerbCreate,
	}
	ep := Endpoint{Path: "/user/create-user", Verb: descriptor.VerbCreate}
	out := RouteModule(fn, ep, "out/routes/user/create-user.ts", "src/server/user.ts", "user.ts")

	for _, want := range []string{
		"export const method = 'POST';",
		"const body = (req.body ?? {}) as Record<string, unknown>;",
		"const arg_name = body['name'];",
		"const arg_age = body['age'];",
		"await createUser(arg_name, arg_age);",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("route module missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "decodeQueryValue") {
		t.Error("body-verb route must not include the query decoder")
	}
}

func TestRouteModuleMultipart(t *testing.T) {
	fn := descriptor.FunctionDescriptor{
		Name: "uploadAvatar",
		Parameters: []descriptor.ParameterDescriptor{
			{Name: "userId", TypeExpression: "string"},
			{Name: "image", TypeExpression: "Buffer"},
		},
		Verb: descriptor.VerbCreate,
	}
	ep := Endpoint{Path: "/user/upload-avatar", Verb: descriptor.VerbCreate}
	out := RouteModule(fn, ep, "out/routes/user/upload-avatar.ts", "src/server/user.ts", "user.ts")

	for _, want := range []string{
		"import Busboy from 'busboy';",
		"const fields = await parseMultipart(req);",
		"function parseMultipart",
		"function setPathValue",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("multipart route missing %q", want)
		}
	}
}

func TestRouteModuleRequestContext(t *testing.T) {
	fn := descriptor.FunctionDescriptor{
		Name:                "whoAmI",
		Verb:                descriptor.VerbFetch,
		NeedsRequestContext: true,
	}
	ep := Endpoint{Path: "/session/who-am-i", Verb: descriptor.VerbFetch}
	out := RouteModule(fn, ep, "out/routes/session/who-am-i.ts", "src/server/session.ts", "session.ts")

	if !strings.Contains(out, "clientAddress: req.ip") {
		t.Error("context object missing client address")
	}
	if !strings.Contains(out, "await whoAmI(ctx);") {
		t.Errorf("context not passed to handler\n%s", out)
	}
}

func TestWireNameSanitizesPatterns(t *testing.T) {
	tests := []struct{ in, want string }{
		{"params", "params"},
		{"{ id }", "id"},
		{"[first, second]", "firstsecond"},
		{"{}", "value"},
	}
	for _, tt := range tests {
		if got := WireName(tt.in); got != tt.want {
			t.Errorf("WireName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCoercionKind(t *testing.T) {
	tests := []struct{ expr, want string }{
		{"string", "string"},
		{"number", "number"},
		{"boolean", "boolean"},
		{"{ id: string }", "json"},
		{"string[]", "json"},
		{"UserRef", "json"},
	}
	for _, tt := range tests {
		if got := coercionKind(tt.expr); got != tt.want {
			t.Errorf("coercionKind(%q) = %q, want %q", tt.expr, got, tt.want)
		}
	}
}
