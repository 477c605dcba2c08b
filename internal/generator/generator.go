// Package generator orchestrates the scan-classify-emit pipeline: it walks
// handler sources, extracts exported function signatures, assigns verbs,
// emits route and client artifacts plus the API document, and keeps the
// output tree free of orphans. All bookkeeping is in-memory; a restart
// rebuilds everything from source.
package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/imyousuf/routegen/internal/cache"
	"github.com/imyousuf/routegen/internal/classify"
	"github.com/imyousuf/routegen/internal/descriptor"
	"github.com/imyousuf/routegen/internal/emit"
	"github.com/imyousuf/routegen/internal/extract"
	"github.com/imyousuf/routegen/internal/watcher"
)

// Options configures a Generator.
type Options struct {
	// SourceDir is the handler module tree that gets scanned.
	SourceDir string
	// RoutesDir receives one route-handler module per exported function.
	RoutesDir string
	// ClientDir receives one client-stub module per source module.
	ClientDir string
	// DocsPath is where the aggregated API document is written.
	DocsPath string

	// Title and Version fill the API document info block.
	Title   string
	Version string

	// Extensions are the source suffixes scanned. Defaults to .ts with
	// declaration files (.d.ts) excluded.
	Extensions []string
	// ExcludePatterns are gitignore-style patterns skipped during scans and
	// watching, on top of .gitignore files under SourceDir.
	ExcludePatterns []string

	// VerbPrefixes overrides the built-in name-prefix classification table.
	VerbPrefixes map[descriptor.RequestVerb][]string
	// SingleParamDowngrade demotes FETCH to CREATE for functions whose only
	// parameter is an object literal too large for a query string.
	SingleParamDowngrade bool

	// ContextTypeNames and ContextAccessors tune request-context detection.
	ContextTypeNames []string
	ContextAccessors []string

	// Debounce is the quiet period applied to watch events.
	Debounce time.Duration
	// Staleness forces a full rescan when the last one is older than this.
	Staleness time.Duration
	// MaxFilesPerScan caps how many sources one scan cycle processes.
	MaxFilesPerScan int
	// FullScanDirtyFraction converts an incremental scan into a full one
	// when the dirty set exceeds this fraction of MaxFilesPerScan.
	FullScanDirtyFraction float64

	Verbose bool
	// Logf receives diagnostics. Defaults to stderr.
	Logf func(format string, args ...any)
}

// ScanStats summarizes one scan cycle.
type ScanStats struct {
	Full           bool
	FilesScanned   int
	CacheHits      int
	FunctionsFound int
	RoutesWritten  int
	ClientsWritten int
	OrphansRemoved int
	DocsWritten    bool
	Errors         []string
	Duration       time.Duration
}

// Generator drives extraction and emission for one source tree.
type Generator struct {
	opts       Options
	extractor  *extract.Extractor
	classifier *classify.Classifier
	cache      *cache.Cache
	records    *RecordSet
	matcher    *watcher.ExcludeMatcher
	log        func(format string, args ...any)

	mu       sync.Mutex
	modules  map[string]*descriptor.ModuleExports // rel module path -> exports
	sources  map[string]string                    // abs source path -> rel module path
	pending  map[string]struct{}                  // sources deferred by the scan cap
	docsPend bool                                 // docs rebuild owed once pending drains
	lastFull time.Time
	last     ScanStats
}

// New creates a Generator. Zero-value option fields fall back to defaults.
func New(opts Options) (*Generator, error) {
	if opts.SourceDir == "" {
		return nil, fmt.Errorf("source directory is required")
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".ts"}
	}
	if opts.Staleness <= 0 {
		opts.Staleness = 5 * time.Minute
	}
	if opts.MaxFilesPerScan <= 0 {
		opts.MaxFilesPerScan = 500
	}
	if opts.FullScanDirtyFraction <= 0 {
		opts.FullScanDirtyFraction = 0.5
	}
	logFn := opts.Logf
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}

	matcher := watcher.NewExcludeMatcher(opts.SourceDir, opts.ExcludePatterns)
	if err := matcher.Load(); err != nil {
		return nil, fmt.Errorf("load exclude patterns: %w", err)
	}

	return &Generator{
		opts: opts,
		extractor: extract.New(extract.Options{
			ContextTypeNames: opts.ContextTypeNames,
			ContextAccessors: opts.ContextAccessors,
			Logf:             logFn,
		}),
		classifier: classify.New(opts.VerbPrefixes, opts.SingleParamDowngrade),
		cache:      cache.New(),
		records:    NewRecordSet(),
		matcher:    matcher,
		log:        logFn,
		modules:    make(map[string]*descriptor.ModuleExports),
		sources:    make(map[string]string),
		pending:    make(map[string]struct{}),
	}, nil
}

// Records exposes the artifact registry, mainly for verification.
func (g *Generator) Records() *RecordSet { return g.records }

// LastStats returns the stats of the most recent scan cycle.
func (g *Generator) LastStats() ScanStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Run performs one complete generation pass. When the scan cap defers part
// of the tree, Run keeps scanning in capped batches until every source has
// been processed, returning the combined stats.
func (g *Generator) Run(ctx context.Context) (ScanStats, error) {
	stats, err := g.scan(ctx, nil, true)
	if err != nil {
		return stats, err
	}
	err = g.drainPending(ctx, &stats)
	return stats, err
}

// drainPending processes cap-deferred sources in further capped batches until
// none remain, folding each cycle into stats.
func (g *Generator) drainPending(ctx context.Context, stats *ScanStats) error {
	for g.pendingCount() > 0 {
		more, err := g.scan(ctx, nil, false)
		if err != nil {
			return err
		}
		mergeStats(stats, more)
	}
	return nil
}

func (g *Generator) pendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

func mergeStats(into *ScanStats, more ScanStats) {
	into.FilesScanned += more.FilesScanned
	into.CacheHits += more.CacheHits
	into.FunctionsFound += more.FunctionsFound
	into.RoutesWritten += more.RoutesWritten
	into.ClientsWritten += more.ClientsWritten
	into.OrphansRemoved += more.OrphansRemoved
	into.DocsWritten = into.DocsWritten || more.DocsWritten
	into.Errors = append(into.Errors, more.Errors...)
	into.Duration += more.Duration
}

// ScanDirty regenerates artifacts for the given source paths. It escalates
// to a full scan when the cache is empty, the previous full scan has gone
// stale, or the dirty set is a large fraction of the scan cap.
func (g *Generator) ScanDirty(ctx context.Context, dirty map[string]struct{}) (ScanStats, error) {
	full := g.needsFullScan(len(dirty))
	if full {
		return g.scan(ctx, nil, true)
	}
	return g.scan(ctx, dirty, false)
}

func (g *Generator) needsFullScan(dirtyCount int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cache.Len() == 0 {
		return true
	}
	if time.Since(g.lastFull) > g.opts.Staleness {
		return true
	}
	return float64(dirtyCount) > g.opts.FullScanDirtyFraction*float64(g.opts.MaxFilesPerScan)
}

// scan is the single generation path. A full scan walks the source tree;
// an incremental one processes the dirty paths plus anything an earlier
// capped cycle deferred. Work beyond MaxFilesPerScan is parked in pending
// for later cycles, and the destructive steps (retiring unseen sources,
// sweeping orphans, rewriting the document) run only when the view of the
// tree is complete.
func (g *Generator) scan(ctx context.Context, dirty map[string]struct{}, full bool) (ScanStats, error) {
	start := time.Now()
	stats := ScanStats{Full: full}

	var targets []string
	var err error
	if full {
		g.cache.Clear()
		targets, err = g.listSources(ctx)
		if err != nil {
			return stats, err
		}
	} else {
		// Cap-deferred sources from earlier cycles join the dirty set.
		set := make(map[string]struct{}, len(dirty))
		for p := range dirty {
			set[p] = struct{}{}
		}
		g.mu.Lock()
		for p := range g.pending {
			set[p] = struct{}{}
		}
		g.mu.Unlock()
		targets = make([]string, 0, len(set))
		for p := range set {
			targets = append(targets, p)
		}
		sort.Strings(targets)
	}

	truncated := false
	if len(targets) > g.opts.MaxFilesPerScan {
		g.log("Warning: scan capped at %d of %d files; remainder deferred to the next cycle",
			g.opts.MaxFilesPerScan, len(targets))
		g.mu.Lock()
		for _, p := range targets[g.opts.MaxFilesPerScan:] {
			g.pending[p] = struct{}{}
		}
		g.mu.Unlock()
		targets = targets[:g.opts.MaxFilesPerScan]
		truncated = true
	}

	seen := make(map[string]struct{}, len(targets))
	for _, path := range targets {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}
		seen[path] = struct{}{}

		if _, statErr := os.Stat(path); statErr != nil {
			// Dirty path no longer exists: retire it.
			g.retireSource(path, &stats)
			continue
		}
		g.processFile(path, &stats)
		stats.FilesScanned++
	}

	g.mu.Lock()
	for p := range seen {
		delete(g.pending, p)
	}
	pendingLeft := len(g.pending)
	g.mu.Unlock()

	// A complete full scan also retires every known source the walk no longer
	// found. A capped one cannot tell deleted sources from deferred ones, so
	// it leaves them for the cycle that drains the remainder.
	if full && !truncated {
		for _, path := range g.knownSources() {
			if _, ok := seen[path]; !ok {
				g.retireSource(path, &stats)
			}
		}
	}

	// Orphan detection needs the record set to cover every live source, so
	// the sweep waits until no deferred work remains.
	if pendingLeft == 0 {
		stats.OrphansRemoved = g.sweepOrphans()
	}

	// The document aggregates the whole tree, so it is rebuilt only once
	// every source has been seen: on a complete full scan, or on the cycle
	// that drains the deferred remainder of a capped one.
	g.mu.Lock()
	if full && truncated {
		g.docsPend = true
	}
	writeDocsNow := (full && !truncated) || (pendingLeft == 0 && g.docsPend)
	if writeDocsNow {
		g.docsPend = false
	}
	g.mu.Unlock()
	if writeDocsNow {
		if err := g.writeDocs(&stats); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("docs: %v", err))
		}
	}

	stats.Duration = time.Since(start)
	g.mu.Lock()
	if full {
		g.lastFull = time.Now()
	}
	g.last = stats
	g.mu.Unlock()

	if g.opts.Verbose {
		g.log("Scan complete: %d files (%d cached), %d routes, %d clients, %d orphans removed in %s",
			stats.FilesScanned, stats.CacheHits, stats.RoutesWritten, stats.ClientsWritten,
			stats.OrphansRemoved, stats.Duration)
	}
	return stats, nil
}

// listSources walks SourceDir collecting handler modules, honoring exclude
// patterns and skipping declaration files.
func (g *Generator) listSources(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.Walk(g.opts.SourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if info.IsDir() {
			if g.matcher.Match(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if g.wantsSource(path) {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

func (g *Generator) wantsSource(path string) bool {
	if g.matcher.Match(path) {
		return false
	}
	if strings.HasSuffix(path, ".d.ts") {
		return false
	}
	for _, ext := range g.opts.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func (g *Generator) knownSources() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.sources))
	for p := range g.sources {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// processFile extracts one module (through the cache), classifies its
// functions, and rewrites its artifacts. Returns whether anything changed on
// disk. Per-file failures are recorded, never fatal.
func (g *Generator) processFile(path string, stats *ScanStats) bool {
	relModule, err := filepath.Rel(g.opts.SourceDir, path)
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", path, err))
		return false
	}

	exports, hit := g.cache.Get(path)
	if hit {
		stats.CacheHits++
	} else {
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("read %s: %v", path, readErr))
			return false
		}
		exports, err = g.extractor.Extract(relModule, content)
		if err != nil {
			// A module that fails to parse contributes nothing; its previous
			// artifacts are retired below via the empty export set.
			g.log("Warning: %v", err)
			exports = &descriptor.ModuleExports{}
		}
		for i := range exports.Functions {
			fn := &exports.Functions[i]
			fn.Verb = g.classifier.Classify(fn.Name, fn.Parameters)
		}
		g.cache.Put(path, exports)
	}
	stats.FunctionsFound += len(exports.Functions)

	g.mu.Lock()
	g.modules[relModule] = exports
	g.sources[path] = relModule
	g.mu.Unlock()

	return g.emitModule(path, relModule, exports, stats)
}

// emitModule rewrites the artifacts of one source module. Previous records
// are superseded only after the new set is written: a path whose write fails
// keeps its old record, so the last good artifact survives until the retry.
func (g *Generator) emitModule(path, relModule string, exports *descriptor.ModuleExports, stats *ScanStats) bool {
	previous := g.records.BySource(path)
	endpoints := emit.BuildEndpointMap(relModule, exports)
	produced := make(map[string]struct{}, len(exports.Functions)+1)
	changed := false

	for _, fn := range exports.Functions {
		ep := endpoints[fn.Name]
		routeFile := emit.RoutePath(g.opts.RoutesDir, relModule, fn.Name)
		produced[routeFile] = struct{}{}
		content := []byte(emit.RouteModule(fn, ep, routeFile, path, relModule))
		if g.writeArtifact(routeFile, path, content, stats) {
			stats.RoutesWritten++
			changed = true
		}
	}

	if len(exports.Functions) > 0 {
		clientFile := emit.ClientPath(g.opts.ClientDir, relModule)
		produced[clientFile] = struct{}{}
		content := []byte(emit.ClientModule(relModule, exports, endpoints))
		if g.writeArtifact(clientFile, path, content, stats) {
			stats.ClientsWritten++
			changed = true
		}
	}

	// Drop only artifacts the new export set no longer produces.
	for _, old := range previous {
		if _, ok := produced[old]; ok {
			continue
		}
		g.records.Remove(old)
		if g.removeGenerated(old) {
			changed = true
		}
	}
	return changed
}

// writeArtifact writes one artifact and records it. Unchanged content is
// recorded but not rewritten, keeping regeneration idempotent on disk.
func (g *Generator) writeArtifact(artifact, source string, content []byte, stats *ScanStats) bool {
	sum := emit.Checksum(content)
	rec := GeneratedFileRecord{
		Path:        artifact,
		SourceFile:  source,
		GeneratedAt: time.Now(),
		Checksum:    sum,
	}

	if existing, err := os.ReadFile(artifact); err == nil && emit.Checksum(existing) == sum {
		g.records.Add(rec)
		return false
	}
	if err := emit.SafeWrite(artifact, content); err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("write %s: %v", artifact, err))
		return false
	}
	g.records.Add(rec)
	return true
}

// retireSource drops a deleted module and removes its artifacts.
func (g *Generator) retireSource(path string, stats *ScanStats) bool {
	g.mu.Lock()
	relModule, known := g.sources[path]
	delete(g.sources, path)
	if known {
		delete(g.modules, relModule)
	}
	g.mu.Unlock()
	g.cache.Invalidate(path)

	changed := false
	for _, artifact := range g.records.RemoveBySource(path) {
		if g.removeGenerated(artifact) {
			changed = true
		}
	}
	if known && g.opts.Verbose {
		g.log("Retired deleted source %s", path)
	}
	return changed || known
}

// removeGenerated deletes a file only when it carries the generator marker.
// Hand-written files that ended up in the output tree are left alone.
func (g *Generator) removeGenerated(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if !emit.IsGenerated(content) {
		g.log("Warning: %s is not generator output, leaving it in place", path)
		return false
	}
	if err := os.Remove(path); err != nil {
		g.log("Warning: remove %s: %v", path, err)
		return false
	}
	return true
}

// sweepOrphans walks the output trees and deletes marker-bearing files no
// record claims. This catches artifacts left behind by renames and crashes.
func (g *Generator) sweepOrphans() int {
	removed := 0
	for _, root := range []string{g.opts.RoutesDir, g.opts.ClientDir} {
		if root == "" {
			continue
		}
		filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if g.records.Owns(path) {
				return nil
			}
			if g.removeGenerated(path) {
				removed++
			}
			return nil
		})
	}
	return removed
}

// writeDocs rebuilds the API document from every known module.
func (g *Generator) writeDocs(stats *ScanStats) error {
	if g.opts.DocsPath == "" {
		return nil
	}

	g.mu.Lock()
	modules := make([]emit.ModuleDoc, 0, len(g.modules))
	for relModule, exports := range g.modules {
		modules = append(modules, emit.ModuleDoc{
			RelModule: relModule,
			Exports:   exports,
			Endpoints: emit.BuildEndpointMap(relModule, exports),
		})
	}
	g.mu.Unlock()

	title := g.opts.Title
	if title == "" {
		title = "routegen API"
	}
	version := g.opts.Version
	if version == "" {
		version = "0.0.0"
	}

	content, err := emit.RenderDocument(emit.BuildDocument(title, version, modules))
	if err != nil {
		return err
	}
	if existing, readErr := os.ReadFile(g.opts.DocsPath); readErr == nil &&
		emit.Checksum(existing) == emit.Checksum(content) {
		return nil
	}
	if err := emit.SafeWrite(g.opts.DocsPath, content); err != nil {
		return err
	}
	stats.DocsWritten = true
	return nil
}

// Verify checks every recorded artifact against its checksum and returns the
// source files whose artifacts are missing, truncated, or hand-edited.
func (g *Generator) Verify() []string {
	damaged := make(map[string]struct{})
	for _, rec := range g.records.All() {
		content, err := os.ReadFile(rec.Path)
		if err != nil || emit.Checksum(content) != rec.Checksum {
			damaged[rec.SourceFile] = struct{}{}
		}
	}
	out := make([]string, 0, len(damaged))
	for s := range damaged {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Repair forces a full regeneration when Verify finds any damaged artifact.
// Damage means the on-disk state can no longer be trusted, so everything is
// rebuilt rather than patched piecemeal.
func (g *Generator) Repair(ctx context.Context) (ScanStats, error) {
	if len(g.Verify()) == 0 {
		return ScanStats{}, nil
	}
	return g.scan(ctx, nil, true)
}

// Watch runs an initial full generation, then regenerates incrementally on
// debounced file events until ctx is cancelled.
func (g *Generator) Watch(ctx context.Context) error {
	stats, err := g.Run(ctx)
	if err != nil {
		return fmt.Errorf("initial generation: %w", err)
	}
	g.reportErrors(stats)

	w, err := watcher.New(watcher.Options{
		Root:            g.opts.SourceDir,
		Extensions:      g.opts.Extensions,
		ExcludePatterns: g.opts.ExcludePatterns,
		Debounce:        g.opts.Debounce,
		Logf:            g.log,
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	events, err := w.Start(ctx)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			dirty := map[string]struct{}{evt.Path: {}}
			// Coalesce whatever else is already queued into the same cycle.
		drain:
			for {
				select {
				case more, open := <-events:
					if !open {
						break drain
					}
					dirty[more.Path] = struct{}{}
				default:
					break drain
				}
			}
			// Same-mtime edits slip past the cache; events are ground truth.
			for path := range dirty {
				g.cache.Invalidate(path)
			}
			cycle, err := g.ScanDirty(ctx, dirty)
			if err != nil {
				if ctx.Err() == nil {
					g.log("Warning: incremental scan: %v", err)
				}
				continue
			}
			if err := g.drainPending(ctx, &cycle); err != nil && ctx.Err() == nil {
				g.log("Warning: incremental scan: %v", err)
			}
			g.reportErrors(cycle)
		}
	}
}

// reportErrors logs each per-file failure of a scan cycle. Watch cycles have
// no summary printout, so this is where their failures surface.
func (g *Generator) reportErrors(stats ScanStats) {
	for _, e := range stats.Errors {
		g.log("Warning: %s", e)
	}
}
