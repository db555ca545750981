package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFileName is read from the root of every scanned directory.
const IgnoreFileName = ".geosnagignore"

// ExcludedDirs are never descended into, whatever the configuration says.
// They are NAS system folders and tool state directories.
var ExcludedDirs = map[string]bool{
	"@eaDir":      true,
	"#recycle":    true,
	".git":        true,
	"__pycache__": true,
	".geosnag":    true,
}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool           // true = match against relative or absolute path; false = basename only
	pathRE    *regexp.Regexp // compiled path pattern, nil for basename patterns
}

// IgnoreMatcher checks file paths against a set of exclusion globs.
// Patterns without '/' match against the file's basename only.
// Patterns with '/' match against the path relative to the scanned root,
// or against the absolute path, with fnmatch rules: '*' and '?' also match
// '/', so "sub/*" covers every file below sub.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{
			pattern:   filepath.ToSlash(raw),
			matchPath: strings.Contains(raw, "/"),
		}
		if p.matchPath {
			p.pathRE = fnmatchRegexp(p.pattern)
		}
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Len returns the number of usable patterns.
func (m *IgnoreMatcher) Len() int {
	return len(m.patterns)
}

// Match reports whether a file should be excluded.
// relativePath is relative to the scanned root; absPath may be empty.
func (m *IgnoreMatcher) Match(relativePath, absPath string) bool {
	if len(m.patterns) == 0 || relativePath == "" {
		return false
	}

	// Normalize to forward slashes for consistent matching.
	rel := filepath.ToSlash(relativePath)
	abs := filepath.ToSlash(absPath)
	basename := filepath.Base(relativePath)

	for _, p := range m.patterns {
		if p.matchPath {
			if p.pathRE.MatchString(rel) || (abs != "" && p.pathRE.MatchString(abs)) {
				return true
			}
			continue
		}
		if globMatch(p.pattern, basename) {
			return true
		}
	}
	return false
}

func globMatch(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	if err != nil {
		// Bad pattern: skip it.
		return false
	}
	return matched
}

// fnmatchRegexp translates a shell pattern into an anchored regexp. '*'
// matches any run of characters including '/', '?' any single character,
// "[...]" and "[!...]" a character class. An unclosed '[' is literal.
func fnmatchRegexp(pattern string) *regexp.Regexp {
	pat := []rune(pattern)
	var b strings.Builder
	b.WriteString("^(?s:")
	for i := 0; i < len(pat); i++ {
		switch c := pat[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(pat) && pat[j] == '!' {
				j++
			}
			if j < len(pat) && pat[j] == ']' {
				j++
			}
			for j < len(pat) && pat[j] != ']' {
				j++
			}
			if j >= len(pat) {
				b.WriteString(`\[`)
				continue
			}
			class := string(pat[i+1 : j])
			class = strings.ReplaceAll(class, `\`, `\\`)
			switch {
			case strings.HasPrefix(class, "!"):
				class = "^" + class[1:]
			case strings.HasPrefix(class, "^"):
				class = `\` + class
			}
			b.WriteString("[" + class + "]")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString(")$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		// Degenerate class such as "[z-a]": match the pattern literally.
		return regexp.MustCompile("^" + regexp.QuoteMeta(pattern) + "$")
	}
	return re
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
