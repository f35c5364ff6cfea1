// Package scanner finds the Go source files under a directory tree. It
// honours .gdfignore files, written with gitignore syntax, and extra exclude
// patterns from the configuration.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo represents information about a discovered file.
type FileInfo struct {
	Path     string // relative to the scan root, slash separated
	FullPath string
	Size     int64
	Test     bool
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool
	IncludeTests    bool
	DefaultExcludes []string // directory names skipped at any depth
	Exclude         []string // extra gitignore-style patterns
	IgnoreFileName  string
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		IgnoreFileName: ".gdfignore",
		DefaultExcludes: []string{
			"vendor",
			"testdata",
			"node_modules",
			".git",
		},
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = ".gdfignore"
	}
	return &Scanner{opts: opts}
}

// Scan walks root and returns its Go files in lexical order. A root that is
// itself a .go file is returned as the only result.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if !info.IsDir() {
		if !isGoFile(info.Name()) {
			return nil, fmt.Errorf("scanning %s: not a Go file", root)
		}
		return []FileInfo{{
			Path:     filepath.ToSlash(filepath.Base(absRoot)),
			FullPath: absRoot,
			Size:     info.Size(),
			Test:     isTestFile(info.Name()),
		}}, nil
	}

	patterns := make([]IgnorePattern, 0, len(s.opts.Exclude))
	for _, p := range s.opts.Exclude {
		patterns = append(patterns, ParseIgnorePattern(p))
	}
	rootPatterns, err := s.loadIgnoreFile(absRoot, "")
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, rootPatterns...)

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			return walkErr
		}
		if path == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if (s.opts.SkipHidden && strings.HasPrefix(name, ".")) || s.isDefaultExcluded(name) {
				return filepath.SkipDir
			}
			if ignored(patterns, rel, true) {
				return filepath.SkipDir
			}
			nested, err := s.loadIgnoreFile(path, rel)
			if err != nil {
				return err
			}
			patterns = append(patterns, nested...)
			return nil
		}

		if !d.Type().IsRegular() || !isGoFile(name) {
			return nil
		}
		if s.opts.SkipHidden && strings.HasPrefix(name, ".") {
			return nil
		}
		test := isTestFile(name)
		if test && !s.opts.IncludeTests {
			return nil
		}
		if ignored(patterns, rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:     rel,
			FullPath: path,
			Size:     info.Size(),
			Test:     test,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return files, nil
}

func (s *Scanner) isDefaultExcluded(name string) bool {
	for _, exclude := range s.opts.DefaultExcludes {
		if name == exclude {
			return true
		}
	}
	return false
}

// loadIgnoreFile reads dir's ignore file. Patterns from a nested file are
// rebased so that they only apply below rel.
func (s *Scanner) loadIgnoreFile(dir, rel string) ([]IgnorePattern, error) {
	f, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}
	defer f.Close()

	patterns, err := ParseIgnoreFile(f)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns from %s: %w", dir, err)
	}
	if rel == "" {
		return patterns, nil
	}
	for i, p := range patterns {
		prefix := strings.Split(rel, "/")
		if !p.anchored {
			prefix = append(prefix, "**")
		}
		p.segments = append(prefix, p.segments...)
		p.anchored = true
		patterns[i] = p
	}
	return patterns, nil
}

func isGoFile(name string) bool {
	return strings.HasSuffix(name, ".go")
}

func isTestFile(name string) bool {
	return strings.HasSuffix(name, "_test.go")
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}
