package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func matcherWith(patterns []string) *ExcludeMatcher {
	m := NewExcludeMatcher("", nil)
	for _, p := range patterns {
		m.rules = append(m.rules, parseExcludePattern(p, ""))
	}
	return m
}

func TestExcludeMatcherBasicPatterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{
			name:     "match wildcard extension",
			patterns: []string{"*.log"},
			path:     "/project/app.log",
			want:     true,
		},
		{
			name:     "no match different extension",
			patterns: []string{"*.log"},
			path:     "/project/app.ts",
			want:     false,
		},
		{
			name:     "match directory name",
			patterns: []string{"node_modules"},
			path:     "/project/node_modules/package/index.js",
			want:     true,
		},
		{
			name:     "match double star pattern",
			patterns: []string{"**/*.d.ts"},
			path:     "/project/deep/nested/types.d.ts",
			want:     true,
		},
		{
			name:     "match double star directory",
			patterns: []string{"**/generated/**"},
			path:     "/project/src/server/generated/routes/user.ts",
			want:     true,
		},
		{
			name:     "match .git directory",
			patterns: []string{".git"},
			path:     "/project/.git/config",
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := matcherWith(tt.patterns)
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestExcludeMatcherNegation(t *testing.T) {
	m := matcherWith([]string{"*.log", "!important.log"})

	if !m.Match("/project/debug.log") {
		t.Error("expected debug.log to be excluded")
	}
	if m.Match("/project/important.log") {
		t.Error("expected important.log to NOT be excluded (negation)")
	}
}

func TestExcludeMatcherDirOnlyPattern(t *testing.T) {
	m := matcherWith([]string{"build/"})

	if !m.Match("/project/build/output.js") {
		t.Error("expected build directory path to be excluded")
	}
}

func TestExcludeMatcherRelativePattern(t *testing.T) {
	m := NewExcludeMatcher("", nil)
	m.rules = []excludeRule{parseExcludePattern("src/*.tmp", "/project")}

	if !m.Match("/project/src/file.tmp") {
		t.Error("expected /project/src/file.tmp to match src/*.tmp")
	}
	if m.Match("/project/other/file.tmp") {
		t.Error("expected /project/other/file.tmp to NOT match src/*.tmp")
	}
}

func TestExcludeMatcherLoadsGitIgnore(t *testing.T) {
	tmpDir := t.TempDir()

	gitignoreContent := "*.log\nbuild/\n# comment\n\n!keep.log\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte(gitignoreContent), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewExcludeMatcher(tmpDir, nil)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	if !m.Match(filepath.Join(tmpDir, "app.log")) {
		t.Error("expected app.log to be excluded")
	}
	if m.Match(filepath.Join(tmpDir, "keep.log")) {
		t.Error("expected keep.log to NOT be excluded (negation)")
	}
	if !m.Match(filepath.Join(tmpDir, "build", "output.js")) {
		t.Error("expected build/output.js to be excluded")
	}
	if m.Match(filepath.Join(tmpDir, "user.ts")) {
		t.Error("expected user.ts to NOT be excluded")
	}
}

func TestEventDebouncing(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "user.ts")
	if err := os.WriteFile(testFile, []byte("export function getUser() {}"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(Options{Root: tmpDir, Extensions: []string{".ts"}, Debounce: 100 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := w.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Give the watcher time to initialize.
	time.Sleep(200 * time.Millisecond)

	// Rapid writes to the same file should collapse.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(testFile, []byte("export function getUser() {} //"+string(rune('0'+i))), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(300 * time.Millisecond)

	var collected []Event
	timeout := time.After(500 * time.Millisecond)
loop:
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				break loop
			}
			collected = append(collected, evt)
		case <-timeout:
			break loop
		}
	}

	if len(collected) == 0 {
		t.Error("expected at least one debounced event, got none")
	}
	if len(collected) >= 5 {
		t.Errorf("expected debouncing to reduce events, got %d events for 5 writes", len(collected))
	}
	for _, evt := range collected {
		if evt.Path != testFile {
			t.Errorf("unexpected event path: %s", evt.Path)
		}
	}
}

func TestWatcherExtensionFilter(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := New(Options{Root: tmpDir, Extensions: []string{".ts"}, Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := w.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(tmpDir, "notes.md"), []byte("notes"), 0644); err != nil {
		t.Fatal(err)
	}
	tsFile := filepath.Join(tmpDir, "user.ts")
	if err := os.WriteFile(tsFile, []byte("export function getUser() {}"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)

	var collected []Event
	timeout := time.After(500 * time.Millisecond)
loop:
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				break loop
			}
			collected = append(collected, evt)
		case <-timeout:
			break loop
		}
	}

	if len(collected) == 0 {
		t.Fatal("expected an event for the .ts write")
	}
	for _, evt := range collected {
		if filepath.Ext(evt.Path) != ".ts" {
			t.Errorf("event for non-source file: %s", evt.Path)
		}
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := New(Options{Root: tmpDir, Extensions: []string{".ts"}, Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := w.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)

	subDir := filepath.Join(tmpDir, "admin")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Wait for the new directory to join the watch set.
	time.Sleep(300 * time.Millisecond)

	newFile := filepath.Join(subDir, "accounts.ts")
	if err := os.WriteFile(newFile, []byte("export function listAccounts() {}"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)

	var collected []Event
	timeout := time.After(500 * time.Millisecond)
loop:
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				break loop
			}
			collected = append(collected, evt)
		case <-timeout:
			break loop
		}
	}

	found := false
	for _, evt := range collected {
		if evt.Path == newFile {
			found = true
		}
	}
	if !found {
		t.Error("expected an event for the file in the new directory")
	}
}

func TestWatcherExcludedPath(t *testing.T) {
	tmpDir := t.TempDir()

	genDir := filepath.Join(tmpDir, "generated")
	if err := os.MkdirAll(genDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(genDir, "route.ts"), []byte("generated"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(Options{
		Root:            tmpDir,
		Extensions:      []string{".ts"},
		ExcludePatterns: []string{"generated"},
		Debounce:        50 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := w.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)

	// Write to the excluded directory and to real source.
	if err := os.WriteFile(filepath.Join(genDir, "route.ts"), []byte("regenerated"), 0644); err != nil {
		t.Fatal(err)
	}
	srcFile := filepath.Join(tmpDir, "user.ts")
	if err := os.WriteFile(srcFile, []byte("export function getUser() {}"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)

	var collected []Event
	timeout := time.After(500 * time.Millisecond)
loop:
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				break loop
			}
			collected = append(collected, evt)
		case <-timeout:
			break loop
		}
	}

	for _, evt := range collected {
		if filepath.Dir(evt.Path) == genDir {
			t.Errorf("got event from excluded directory: %s", evt.Path)
		}
	}
}

func TestConvertOp(t *testing.T) {
	tests := []struct {
		name   string
		op     fsnotify.Op
		want   EventOp
		wantOk bool
	}{
		{"create", fsnotify.Create, Create, true},
		{"write", fsnotify.Write, Write, true},
		{"remove", fsnotify.Remove, Remove, true},
		{"rename", fsnotify.Rename, Rename, true},
		{"chmod only", fsnotify.Chmod, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := convertOp(tt.op)
			if ok != tt.wantOk {
				t.Errorf("convertOp(%v) ok = %v, want %v", tt.op, ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("convertOp(%v) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}

func TestEventOpString(t *testing.T) {
	tests := []struct {
		op   EventOp
		want string
	}{
		{Create, "Create"},
		{Write, "Write"},
		{Remove, "Remove"},
		{Rename, "Rename"},
		{EventOp(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.op.String(); got != tt.want {
				t.Errorf("EventOp(%d).String() = %q, want %q", tt.op, got, tt.want)
			}
		})
	}
}
