package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// ExcludeMatcher decides which paths the watcher and scanner skip. It
// combines configured exclude patterns with any .gitignore files found under
// the source root, using gitignore semantics: later rules win, "!" negates,
// a trailing "/" restricts to directories, "**" spans path segments.
type ExcludeMatcher struct {
	root     string
	patterns []string
	rules    []excludeRule
}

type excludeRule struct {
	pattern  string
	negation bool
	dirOnly  bool
	basePath string // directory of the .gitignore the rule came from
}

// NewExcludeMatcher creates a matcher rooted at root. patterns are applied
// globally, before any .gitignore rules.
func NewExcludeMatcher(root string, patterns []string) *ExcludeMatcher {
	return &ExcludeMatcher{root: root, patterns: patterns}
}

// Load parses the configured patterns and every .gitignore under the root.
func (m *ExcludeMatcher) Load() error {
	m.rules = nil
	for _, p := range m.patterns {
		m.rules = append(m.rules, parseExcludePattern(p, ""))
	}
	if m.root == "" {
		return nil
	}
	return filepath.Walk(m.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if info.IsDir() {
			base := info.Name()
			if base == ".git" || base == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == ".gitignore" {
			rules, loadErr := loadIgnoreFile(path)
			if loadErr != nil {
				return nil // unreadable ignore files are non-fatal
			}
			m.rules = append(m.rules, rules...)
		}
		return nil
	})
}

// Match reports whether path is excluded. Rules apply in order, so a later
// negation can un-exclude a path an earlier rule matched.
func (m *ExcludeMatcher) Match(path string) bool {
	matched := false
	for _, rule := range m.rules {
		if excludeRuleMatches(rule, path) {
			matched = !rule.negation
		}
	}
	return matched
}

func loadIgnoreFile(path string) ([]excludeRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	basePath := filepath.Dir(path)
	var rules []excludeRule

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, parseExcludePattern(line, basePath))
	}
	return rules, scanner.Err()
}

func parseExcludePattern(pattern, basePath string) excludeRule {
	rule := excludeRule{basePath: basePath}
	if strings.HasPrefix(pattern, "!") {
		rule.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		rule.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	rule.pattern = pattern
	return rule
}

// excludeRuleMatches applies one rule to a path. Directory-only rules match
// when any component of the path matches, since the path may name a file
// inside the excluded directory.
func excludeRuleMatches(rule excludeRule, path string) bool {
	if strings.Contains(rule.pattern, "/") {
		return matchAnchored(rule.pattern, rule.basePath, path)
	}

	// A rule from a .gitignore only applies below that file's directory.
	if rule.basePath != "" {
		rel, err := filepath.Rel(rule.basePath, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return false
		}
	}

	if matched, _ := filepath.Match(rule.pattern, filepath.Base(path)); matched {
		return true
	}
	for _, part := range splitSegments(path) {
		if matched, _ := filepath.Match(rule.pattern, part); matched {
			return true
		}
	}
	return false
}

// matchAnchored handles patterns containing a slash, which anchor to the
// rule's base directory.
func matchAnchored(pattern, basePath, path string) bool {
	rel := path
	if basePath != "" {
		var err error
		rel, err = filepath.Rel(basePath, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return false
		}
	}

	if strings.Contains(pattern, "**") {
		return matchSegments(splitSegments(pattern), splitSegments(rel))
	}

	matched, _ := filepath.Match(pattern, filepath.ToSlash(rel))
	return matched
}

// matchSegments matches pattern segments against path segments, where "**"
// spans zero or more segments.
func matchSegments(patternParts, pathParts []string) bool {
	if len(patternParts) == 0 {
		return len(pathParts) == 0
	}
	if patternParts[0] == "**" {
		rest := patternParts[1:]
		for i := 0; i <= len(pathParts); i++ {
			if matchSegments(rest, pathParts[i:]) {
				return true
			}
		}
		return false
	}
	if len(pathParts) == 0 {
		return false
	}
	if matched, _ := filepath.Match(patternParts[0], pathParts[0]); !matched {
		return false
	}
	return matchSegments(patternParts[1:], pathParts[1:])
}

func splitSegments(path string) []string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
