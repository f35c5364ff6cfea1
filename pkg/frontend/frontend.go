// Package frontend lowers Go source into the three-address IR using
// tree-sitter. It works on a single file without type checking, so types come
// from declarations and literal shapes only.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/l3aro/go-dataflow/pkg/ir"
)

// ErrFunctionNotFound is returned when a requested function is not declared
// in the file.
var ErrFunctionNotFound = errors.New("function not found")

// File is a parsed Go source file.
type File struct {
	Path    string
	content []byte
	tree    *sitter.Tree
	funcs   []*funcDecl
}

type funcDecl struct {
	name     string // "F" or "T.M"
	method   string // "M" for methods
	node     *sitter.Node
	receiver *sitter.Node
}

// ParseFile reads and parses the Go file at path.
func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return Parse(path, content)
}

// Parse parses content, reporting path in IR positions and errors.
func Parse(path string, content []byte) (*File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	f := &File{Path: path, content: content, tree: tree}
	f.collect(tree.RootNode())
	return f, nil
}

// Close releases the syntax tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

func (f *File) collect(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_declaration":
			name := child.ChildByFieldName("name")
			if name == nil || child.ChildByFieldName("body") == nil {
				continue
			}
			f.funcs = append(f.funcs, &funcDecl{name: f.text(name), node: child})
		case "method_declaration":
			name := child.ChildByFieldName("name")
			if name == nil || child.ChildByFieldName("body") == nil {
				continue
			}
			recv := child.ChildByFieldName("receiver")
			method := f.text(name)
			full := method
			if typeName := receiverType(f, recv); typeName != "" {
				full = typeName + "." + method
			}
			f.funcs = append(f.funcs, &funcDecl{name: full, method: method, node: child, receiver: recv})
		}
	}
}

// receiverType returns the base type name of a method receiver, without
// pointer or type arguments.
func receiverType(f *File, recv *sitter.Node) string {
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param == nil || param.Type() != "parameter_declaration" {
			continue
		}
		typ := param.ChildByFieldName("type")
		if typ == nil {
			continue
		}
		name := strings.TrimPrefix(f.text(typ), "*")
		if idx := strings.IndexByte(name, '['); idx >= 0 {
			name = name[:idx]
		}
		return strings.TrimSpace(name)
	}
	return ""
}

// Functions returns the names of the functions and methods with a body, in
// declaration order. Methods are named "Type.Method".
func (f *File) Functions() []string {
	names := make([]string, len(f.funcs))
	for i, fn := range f.funcs {
		names[i] = fn.name
	}
	return names
}

func (f *File) lookup(name string) *funcDecl {
	for _, fn := range f.funcs {
		if fn.name == name {
			return fn
		}
	}
	for _, fn := range f.funcs {
		if fn.method != "" && fn.method == name {
			return fn
		}
	}
	return nil
}

// Lower builds the IR of the named function. A bare method name matches the
// first method declared with it.
func (f *File) Lower(name string) (*ir.IR, error) {
	fn := f.lookup(name)
	if fn == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrFunctionNotFound, name, f.Path)
	}
	l := newLowerer(f, fn)
	return l.lower()
}

// LowerAll builds the IR of every function in the file.
func (f *File) LowerAll() ([]*ir.IR, error) {
	out := make([]*ir.IR, 0, len(f.funcs))
	for _, fn := range f.funcs {
		fir, err := newLowerer(f, fn).lower()
		if err != nil {
			return nil, fmt.Errorf("lowering %s: %w", fn.name, err)
		}
		out = append(out, fir)
	}
	return out, nil
}

// LowerSource parses src and lowers the named function.
func LowerSource(src []byte, name string) (*ir.IR, error) {
	f, err := Parse("<source>", src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Lower(name)
}

// StatementText returns the first line of the outermost construct that
// starts at pos, without a trailing opening brace. It returns "" when f is
// closed or nothing starts there.
func (f *File) StatementText(pos ir.Position) string {
	if f.tree == nil || pos.Line < 1 || pos.Column < 1 {
		return ""
	}
	at := sitter.Point{Row: uint32(pos.Line - 1), Column: uint32(pos.Column - 1)}
	var found *sitter.Node
	for n := f.tree.RootNode().NamedDescendantForPointRange(at, at); n != nil; n = n.Parent() {
		if n.StartPoint() != at || stopNodes[n.Type()] {
			break
		}
		found = n
	}
	if found == nil {
		return ""
	}
	line, _, _ := strings.Cut(f.text(found), "\n")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "{"))
}

var stopNodes = map[string]bool{
	"source_file":    true,
	"block":          true,
	"statement_list": true,
}

func (f *File) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.content)
}
