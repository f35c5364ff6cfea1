package scanner

import (
	"bufio"
	"io"
	"path"
	"strings"
)

// IgnorePattern is one line of a .gdfignore file, using gitignore syntax:
// "!" negates, a trailing "/" matches directories only, a leading "/"
// anchors at the scan root, and "**" spans any number of directories.
type IgnorePattern struct {
	raw      string
	negate   bool
	dirOnly  bool
	anchored bool
	segments []string
}

// ParseIgnorePattern parses a gitignore-style pattern string.
func ParseIgnorePattern(line string) IgnorePattern {
	p := IgnorePattern{raw: line}
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	} else if strings.Contains(line, "/") {
		// a slash in the middle anchors too, as in git
		p.anchored = !strings.HasPrefix(line, "**/")
	}
	p.segments = strings.Split(line, "/")
	return p
}

// ParseIgnoreFile reads patterns from r, skipping blank lines and comments.
func ParseIgnoreFile(r io.Reader) ([]IgnorePattern, error) {
	var patterns []IgnorePattern
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParseIgnorePattern(line))
	}
	return patterns, sc.Err()
}

// String returns the pattern as written.
func (p IgnorePattern) String() string {
	return p.raw
}

// IsNegation reports whether the pattern starts with "!".
func (p IgnorePattern) IsNegation() bool {
	return p.negate
}

// Match reports whether rel, a slash-separated path relative to the scan
// root, matches the pattern. Directory patterns also match every path
// below a matching directory.
func (p IgnorePattern) Match(rel string) bool {
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	if p.dirOnly {
		// the last element of rel is a file, so only its parents qualify
		for n := len(parts) - 1; n >= 1; n-- {
			if p.matchParts(parts[:n]) {
				return true
			}
		}
		return false
	}
	for n := len(parts); n >= 1; n-- {
		if p.matchParts(parts[:n]) {
			return true
		}
	}
	return false
}

// MatchDir reports whether the directory rel is excluded by the pattern.
func (p IgnorePattern) MatchDir(rel string) bool {
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	return p.matchParts(parts)
}

// matchParts matches the pattern against exactly the path prefix parts, at
// the root for anchored patterns and at any depth otherwise.
func (p IgnorePattern) matchParts(parts []string) bool {
	if p.anchored {
		return matchSegments(p.segments, parts)
	}
	for start := 0; start < len(parts); start++ {
		if matchSegments(p.segments, parts[start:]) {
			return true
		}
	}
	return false
}

func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pattern[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], parts[1:])
}

// ignored applies patterns in order so that later negations win.
func ignored(patterns []IgnorePattern, rel string, dir bool) bool {
	out := false
	for _, p := range patterns {
		var hit bool
		if dir {
			hit = p.MatchDir(rel)
		} else {
			hit = p.Match(rel)
		}
		if hit {
			out = !p.negate
		}
	}
	return out
}
