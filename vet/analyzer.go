// Package gdfvet exposes dead code detection as a go/analysis Analyzer, so
// that it runs under go vet and in analysis drivers.
package gdfvet

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/analysis"

	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/pipeline"
)

// Analyzer reports statements that can never execute and assignments whose
// value is never read.
var Analyzer = &analysis.Analyzer{
	Name: "gdfvet",
	Doc:  "reports dead statements found by constant propagation and liveness",
	Run:  run,
}

func run(pass *analysis.Pass) (any, error) {
	a := pipeline.New(pipeline.WithLogger(log.Discard()))

	for _, file := range pass.Files {
		// Generated files are always skipped
		if ast.IsGenerated(file) {
			continue
		}
		tf := pass.Fset.File(file.Pos())
		if tf == nil {
			continue
		}
		content, err := pass.ReadFile(tf.Name())
		if err != nil {
			return nil, err
		}

		reports, err := a.AnalyzeFileSource(tf.Name(), content)
		if err != nil {
			return nil, err
		}
		for _, rep := range reports {
			reported := make(map[int]bool)
			for _, d := range rep.DeadCode {
				// One diagnostic per line
				if reported[d.Line] {
					continue
				}
				if pos, ok := position(tf, d.Line, d.Column); ok {
					reported[d.Line] = true
					pass.Reportf(pos, "dead code: %s", d.Display())
				}
			}
		}
	}
	return nil, nil
}

// position converts a 1-based line and byte column into a token.Pos.
func position(tf *token.File, line, column int) (token.Pos, bool) {
	if line < 1 || line > tf.LineCount() || column < 1 {
		return token.NoPos, false
	}
	return tf.LineStart(line) + token.Pos(column-1), true
}
