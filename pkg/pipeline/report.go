package pipeline

import (
	"fmt"
	"io"
	"strings"
)

// VarConstant is a variable holding the same constant on every path that
// reaches the function's exit.
type VarConstant struct {
	Name  string `json:"name" msgpack:"name"`
	Value int32  `json:"value" msgpack:"value"`
}

// DeadStmt is a source statement reported as dead code. Text renders the IR
// statement; Source is the first line of the source statement when known.
type DeadStmt struct {
	Index  int    `json:"index" msgpack:"index"`
	Line   int    `json:"line" msgpack:"line"`
	Column int    `json:"column" msgpack:"column"`
	Text   string `json:"text" msgpack:"text"`
	Source string `json:"source,omitempty" msgpack:"source,omitempty"`
}

// Display is the source text when known, else the IR text.
func (d DeadStmt) Display() string {
	if d.Source != "" {
		return d.Source
	}
	return d.Text
}

// Report is the analysis summary of one function.
type Report struct {
	File       string        `json:"file" msgpack:"file"`
	Function   string        `json:"function" msgpack:"function"`
	Statements int           `json:"statements" msgpack:"statements"`
	Constants  []VarConstant `json:"constants" msgpack:"constants"`
	DeadCode   []DeadStmt    `json:"dead_code" msgpack:"dead_code"`
	Error      string        `json:"error,omitempty" msgpack:"error,omitempty"`
}

// HasDeadCode reports whether any statement was found dead.
func (r *Report) HasDeadCode() bool {
	return len(r.DeadCode) > 0
}

// WriteText prints the report in the plain-text layout used by the CLI.
func (r *Report) WriteText(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", r.File, r.Function)
	if r.Error != "" {
		fmt.Fprintf(&sb, "  error: %s\n", r.Error)
		_, err := io.WriteString(w, sb.String())
		return err
	}

	if len(r.Constants) > 0 {
		parts := make([]string, len(r.Constants))
		for i, c := range r.Constants {
			parts[i] = fmt.Sprintf("%s=%d", c.Name, c.Value)
		}
		fmt.Fprintf(&sb, "  constants at exit: %s\n", strings.Join(parts, ", "))
	}

	if len(r.DeadCode) == 0 {
		sb.WriteString("  no dead code\n")
	}
	for _, d := range r.DeadCode {
		if d.Line > 0 {
			fmt.Fprintf(&sb, "  %s:%d:%d: dead: %s\n", r.File, d.Line, d.Column, d.Display())
		} else {
			fmt.Fprintf(&sb, "  #%d: dead: %s\n", d.Index, d.Text)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
