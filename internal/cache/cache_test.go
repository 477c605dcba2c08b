package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/imyousuf/routegen/internal/descriptor"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func exportsWith(name string) *descriptor.ModuleExports {
	return &descriptor.ModuleExports{
		Functions: []descriptor.FunctionDescriptor{{Name: name}},
	}
}

func TestGetMissesWhenEmpty(t *testing.T) {
	c := New()
	if _, ok := c.Get("/nonexistent.ts"); ok {
		t.Error("expected miss for unknown path")
	}
}

func TestPutThenGet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.ts")
	writeFile(t, path, "export function getUser() {}")

	c := New()
	c.Put(path, exportsWith("getUser"))

	got, ok := c.Get(path)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got.Functions[0].Name != "getUser" {
		t.Errorf("got %q, want getUser", got.Functions[0].Name)
	}
}

func TestMtimeChangeInvalidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.ts")
	writeFile(t, path, "export function getUser() {}")

	c := New()
	c.Put(path, exportsWith("getUser"))

	// Rewrite with identical content but a different mtime. The cache keys
	// on mtime, so even coincidentally matching content must not be reused.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if _, ok := c.Get(path); ok {
		t.Error("expected miss after mtime change")
	}
}

func TestExplicitInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.ts")
	writeFile(t, path, "export function getUser() {}")

	c := New()
	c.Put(path, exportsWith("getUser"))
	c.Invalidate(path)

	// The file and its mtime are untouched; invalidation alone must evict.
	if _, ok := c.Get(path); ok {
		t.Error("expected miss after Invalidate")
	}
}

func TestDeletedFileMisses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.ts")
	writeFile(t, path, "export function getUser() {}")

	c := New()
	c.Put(path, exportsWith("getUser"))
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, ok := c.Get(path); ok {
		t.Error("expected miss for deleted file")
	}
}

func TestClearAndLen(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ts")
	b := filepath.Join(dir, "b.ts")
	writeFile(t, a, "export const x = 1")
	writeFile(t, b, "export const y = 2")

	c := New()
	c.Put(a, exportsWith("x"))
	c.Put(b, exportsWith("y"))
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
}
