package emit

import (
	"strings"
	"testing"

	"github.com/imyousuf/routegen/internal/descriptor"
)

func TestClientModuleObjectParam(t *testing.T) {
	exports := &descriptor.ModuleExports{
		Functions: []descriptor.FunctionDescriptor{fetchFn()},
		Types: []descriptor.TypeDescriptor{
			{Name: "User", Kind: descriptor.TypeInterface, SourceText: "interface User { id: string; name: string }"},
		},
	}
	endpoints := BuildEndpointMap("user.ts", exports)
	out := ClientModule("user.ts", exports, endpoints)

	for _, want := range []string{
		MarkerComment,
		"export interface User { id: string; name: string }",
		// Single-property object parameter also accepts the bare value.
		"export async function getUser(params: { id: string } | string): Promise<{ id: string; name: string }> {",
		"{ id: params }",
		"return request('GET', '/user/get-user', { params: value });",
		"async function request(",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("client module missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "buildFormData") {
		t.Error("non-multipart module must not carry form-data helpers")
	}
}

func TestClientModuleScalarParam(t *testing.T) {
	exports := &descriptor.ModuleExports{
		Functions: []descriptor.FunctionDescriptor{{
			Name: "deleteUser",
			Parameters: []descriptor.ParameterDescriptor{
				{Name: "id", TypeExpression: "string"},
			},
			Verb: descriptor.VerbRemove,
		}},
	}
	endpoints := BuildEndpointMap("user.ts", exports)
	out := ClientModule("user.ts", exports, endpoints)

	if !strings.Contains(out, "export async function deleteUser(id: string | { id: string }): Promise<any> {") {
		t.Errorf("scalar stub signature wrong\n%s", out)
	}
	// REMOVE maps to DELETE with query-string encoding.
	if !strings.Contains(out, "return request('DELETE', '/user/delete-user', { id: value });") {
		t.Errorf("scalar stub request call wrong\n%s", out)
	}
}

func TestClientModuleCombinedParams(t *testing.T) {
	exports := &descriptor.ModuleExports{
		Functions: []descriptor.FunctionDescriptor{{
			Name: "createUser",
			Parameters: []descriptor.ParameterDescriptor{
				{Name: "name", TypeExpression: "string"},
				{Name: "age", TypeExpression: "number", Optional: true},
			},
			Verb: descriptor.VerbCreate,
		}},
	}
	endpoints := BuildEndpointMap("user.ts", exports)
	out := ClientModule("user.ts", exports, endpoints)

	if !strings.Contains(out, "export async function createUser(params: { name: string; age?: number }): Promise<any> {") {
		t.Errorf("combined stub signature wrong\n%s", out)
	}
	if !strings.Contains(out, "return request('POST', '/user/create-user', undefined, params as Record<string, unknown>);") {
		t.Errorf("combined stub request call wrong\n%s", out)
	}
}

func TestClientModuleMultipart(t *testing.T) {
	exports := &descriptor.ModuleExports{
		Functions: []descriptor.FunctionDescriptor{{
			Name: "uploadAvatar",
			Parameters: []descriptor.ParameterDescriptor{
				{Name: "userId", TypeExpression: "string"},
				{Name: "image", TypeExpression: "Blob"},
			},
			Verb: descriptor.VerbCreate,
		}},
	}
	endpoints := BuildEndpointMap("user.ts", exports)
	out := ClientModule("user.ts", exports, endpoints)

	for _, want := range []string{
		"buildFormData(params as Record<string, unknown>)",
		"function buildFormData",
		"function appendFormValue",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("multipart client missing %q", want)
		}
	}
}

func TestClientModuleNoParams(t *testing.T) {
	exports := &descriptor.ModuleExports{
		Functions: []descriptor.FunctionDescriptor{{
			Name:                 "listUsers",
			ReturnTypeExpression: "Promise<User[]>",
			Verb:                 descriptor.VerbFetch,
		}},
	}
	endpoints := BuildEndpointMap("user.ts", exports)
	out := ClientModule("user.ts", exports, endpoints)

	if !strings.Contains(out, "export async function listUsers(): Promise<User[]> {") {
		t.Errorf("no-param stub signature wrong\n%s", out)
	}
	if !strings.Contains(out, "return request('GET', '/user/list-users');") {
		t.Errorf("no-param stub request call wrong\n%s", out)
	}
}

func TestClientReturnType(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Promise<string>", "string"},
		{"Promise<{ id: string }>", "{ id: string }"},
		{"string", "string"},
		{"", "any"},
	}
	for _, tt := range tests {
		fn := descriptor.FunctionDescriptor{ReturnTypeExpression: tt.in}
		if got := clientReturnType(fn); got != tt.want {
			t.Errorf("clientReturnType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
