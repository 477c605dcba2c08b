package generator

import (
	"sort"
	"sync"
	"time"
)

// GeneratedFileRecord describes one artifact the generator wrote and which
// source module it came from. Records drive orphan cleanup and corruption
// detection.
type GeneratedFileRecord struct {
	Path        string
	SourceFile  string
	GeneratedAt time.Time
	Checksum    string
}

// RecordSet is the in-memory registry of generated artifacts, indexed by
// artifact path and by originating source file. It is rebuilt on every run;
// nothing persists across process restarts.
type RecordSet struct {
	mu       sync.Mutex
	byPath   map[string]GeneratedFileRecord
	bySource map[string]map[string]struct{}
}

func NewRecordSet() *RecordSet {
	return &RecordSet{
		byPath:   make(map[string]GeneratedFileRecord),
		bySource: make(map[string]map[string]struct{}),
	}
}

// Add registers an artifact, replacing any previous record at the same path.
// A path that moves to a different source is detached from the old one.
func (r *RecordSet) Add(rec GeneratedFileRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byPath[rec.Path]; ok && old.SourceFile != rec.SourceFile {
		if set := r.bySource[old.SourceFile]; set != nil {
			delete(set, rec.Path)
		}
	}
	r.byPath[rec.Path] = rec

	set := r.bySource[rec.SourceFile]
	if set == nil {
		set = make(map[string]struct{})
		r.bySource[rec.SourceFile] = set
	}
	set[rec.Path] = struct{}{}
}

// Lookup returns the record for an artifact path.
func (r *RecordSet) Lookup(path string) (GeneratedFileRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byPath[path]
	return rec, ok
}

// Owns reports whether path is a currently tracked artifact.
func (r *RecordSet) Owns(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byPath[path]
	return ok
}

// BySource returns the artifact paths recorded for one source file, sorted.
func (r *RecordSet) BySource(source string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.bySource[source])
}

// RemoveBySource drops every record for one source file and returns the
// paths that were tracked, sorted. The caller decides what happens to the
// files themselves.
func (r *RecordSet) RemoveBySource(source string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths := sortedKeys(r.bySource[source])
	for _, p := range paths {
		delete(r.byPath, p)
	}
	delete(r.bySource, source)
	return paths
}

// Remove drops the record for one artifact path.
func (r *RecordSet) Remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byPath[path]
	if !ok {
		return
	}
	delete(r.byPath, path)
	if set := r.bySource[rec.SourceFile]; set != nil {
		delete(set, path)
		if len(set) == 0 {
			delete(r.bySource, rec.SourceFile)
		}
	}
}

// All returns every record, sorted by artifact path.
func (r *RecordSet) All() []GeneratedFileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]GeneratedFileRecord, 0, len(r.byPath))
	for _, rec := range r.byPath {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of tracked artifacts.
func (r *RecordSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPath)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
