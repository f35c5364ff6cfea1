package ir

import (
	"fmt"
	"strings"
)

// Stmt is a statement of the IR. The set of implementations is closed:
// *Nop, *Assign, *Invoke, *If, *Switch, *Goto and *Return.
type Stmt interface {
	fmt.Stringer
	// Index is the program position of the statement inside its IR.
	Index() int
	// Pos is the source location the statement was lowered from.
	Pos() Position
	// Def returns the variable defined by the statement, or nil.
	Def() *Var
	// Uses returns the variables read by the statement.
	Uses() []*Var
	stmt()
}

type stmtBase struct {
	index int
	pos   Position
}

func (s *stmtBase) Index() int    { return s.index }
func (s *stmtBase) Pos() Position { return s.pos }
func (s *stmtBase) stmt()         {}

// Nop does nothing. The synthetic CFG entry and exit are Nops.
type Nop struct {
	stmtBase
	label string
}

// NewNop returns a Nop at the given index, used for synthetic nodes.
func NewNop(index int, label string) *Nop {
	return &Nop{stmtBase: stmtBase{index: index}, label: label}
}

func (s *Nop) Def() *Var    { return nil }
func (s *Nop) Uses() []*Var { return nil }
func (s *Nop) String() string {
	if s.label != "" {
		return s.label
	}
	return "nop"
}

// Assign defines LValue from RValue.
type Assign struct {
	stmtBase
	LValue *Var
	RValue Exp
}

func (s *Assign) Def() *Var    { return s.LValue }
func (s *Assign) Uses() []*Var { return s.RValue.Uses() }
func (s *Assign) String() string {
	return fmt.Sprintf("%s = %s", s.LValue, s.RValue)
}

// Invoke is a call whose result, if any, is discarded.
type Invoke struct {
	stmtBase
	Call *InvokeExp
}

func (s *Invoke) Def() *Var      { return nil }
func (s *Invoke) Uses() []*Var   { return s.Call.Uses() }
func (s *Invoke) String() string { return "invoke " + s.Call.String() }

// If jumps to Target when Cond holds and falls through otherwise.
type If struct {
	stmtBase
	Cond   *BinaryExp
	Target Stmt
	target *Label
}

func (s *If) Def() *Var    { return nil }
func (s *If) Uses() []*Var { return s.Cond.Uses() }
func (s *If) String() string {
	return fmt.Sprintf("if (%s) goto %s", s.Cond, targetString(s.Target))
}

// Case is one arm of a Switch.
type Case struct {
	Value  int32
	Target Stmt
	target *Label
}

// Switch jumps to the first case whose Value equals Var, or to Default.
type Switch struct {
	stmtBase
	Var     *Var
	Cases   []Case
	Default Stmt
	deflt   *Label
}

func (s *Switch) Def() *Var    { return nil }
func (s *Switch) Uses() []*Var { return []*Var{s.Var} }
func (s *Switch) String() string {
	parts := make([]string, 0, len(s.Cases)+1)
	for _, c := range s.Cases {
		parts = append(parts, fmt.Sprintf("%d: %s", c.Value, targetString(c.Target)))
	}
	if s.Default != nil {
		parts = append(parts, "default: "+targetString(s.Default))
	}
	return fmt.Sprintf("switch (%s) {%s}", s.Var, strings.Join(parts, ", "))
}

// Goto jumps unconditionally.
type Goto struct {
	stmtBase
	Target Stmt
	target *Label
}

func (s *Goto) Def() *Var      { return nil }
func (s *Goto) Uses() []*Var   { return nil }
func (s *Goto) String() string { return "goto " + targetString(s.Target) }

// Return leaves the function with Values, empty for a bare return.
type Return struct {
	stmtBase
	Values []*Var
}

func (s *Return) Def() *Var    { return nil }
func (s *Return) Uses() []*Var { return s.Values }
func (s *Return) String() string {
	if len(s.Values) == 0 {
		return "return"
	}
	return "return " + joinVars(s.Values)
}

func targetString(s Stmt) string {
	if s == nil {
		return "?"
	}
	return fmt.Sprintf("%d", s.Index())
}
