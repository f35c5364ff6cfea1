package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/l3aro/go-dataflow/pkg/frontend"
	"github.com/l3aro/go-dataflow/pkg/ir"
)

// checkGoFile verifies that path names a Go source file.
func checkGoFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, expected a file: %s", path)
	}
	if !strings.HasSuffix(path, ".go") {
		return fmt.Errorf("unsupported file type: %s (only .go files supported)", path)
	}
	return nil
}

// lowerFunction parses path and lowers the named function. A missing
// function is reported with the names the file does declare.
func lowerFunction(path, name string) (*ir.IR, error) {
	if err := checkGoFile(path); err != nil {
		return nil, err
	}
	f, err := frontend.ParseFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fn, err := f.Lower(name)
	if err != nil {
		if errors.Is(err, frontend.ErrFunctionNotFound) {
			return nil, notFound(path, name, f.Functions())
		}
		return nil, fmt.Errorf("lowering %s: %w", name, err)
	}
	return fn, nil
}

func notFound(path, name string, available []string) error {
	if suggestions := similar(name, available); len(suggestions) > 0 {
		return fmt.Errorf("function %q not found in %s\nDid you mean: %s?", name, path, strings.Join(suggestions, ", "))
	}
	return fmt.Errorf("function %q not found in %s", name, path)
}

// similar returns the declared names that contain name or are contained in
// it, ignoring case.
func similar(name string, available []string) []string {
	lower := strings.ToLower(name)
	var out []string
	for _, candidate := range available {
		c := strings.ToLower(candidate)
		if c == lower {
			continue
		}
		if strings.Contains(c, lower) || strings.Contains(lower, c) {
			out = append(out, candidate)
		}
	}
	return out
}
