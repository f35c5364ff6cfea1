package ir

import (
	"fmt"
	"strings"
)

// IR is the lowered body of one function.
type IR struct {
	Function string   `json:"function"`
	File     string   `json:"file,omitempty"`
	Params   []*Var   `json:"-"`
	Vars     []*Var   `json:"-"`
	Stmts    []Stmt   `json:"-"`
	End      Position `json:"end"` // position of the closing brace
}

// Var returns the first variable with the given source name, or nil.
func (f *IR) Var(name string) *Var {
	for _, v := range f.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// String renders the IR one statement per line, prefixed by its index.
func (f *IR) String() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + " " + p.Type.String()
	}
	fmt.Fprintf(&sb, "func %s(%s)\n", f.Function, strings.Join(params, ", "))
	for _, s := range f.Stmts {
		fmt.Fprintf(&sb, "%4d: %s\n", s.Index(), s)
	}
	return sb.String()
}

// Label is a jump destination that is bound to the next emitted statement.
type Label struct {
	index int
	used  bool
}

// Builder assembles an IR statement by statement.
type Builder struct {
	ir     *IR
	names  map[string]int
	temps  int
	labels []*Label
	pos    Position
}

// NewBuilder starts the IR of function.
func NewBuilder(function, file string) *Builder {
	return &Builder{
		ir:    &IR{Function: function, File: file},
		names: make(map[string]int),
	}
}

// SetPos sets the source position recorded on subsequently emitted statements.
func (b *Builder) SetPos(pos Position) {
	b.pos = pos
}

// SetEnd records the position of the end of the function body.
func (b *Builder) SetEnd(pos Position) {
	b.ir.End = pos
}

// NewVar declares a source variable. Redeclared names get a #n suffix so every
// Var keeps a distinct printable name.
func (b *Builder) NewVar(name string, typ Type) *Var {
	n := b.names[name]
	b.names[name] = n + 1
	if n > 0 {
		name = fmt.Sprintf("%s#%d", name, n)
	}
	v := &Var{Name: name, Type: typ, Index: len(b.ir.Vars)}
	b.ir.Vars = append(b.ir.Vars, v)
	return v
}

// NewParam declares a formal parameter.
func (b *Builder) NewParam(name string, typ Type) *Var {
	v := b.NewVar(name, typ)
	b.ir.Params = append(b.ir.Params, v)
	return v
}

// NewTemp declares a compiler temporary.
func (b *Builder) NewTemp(typ Type) *Var {
	v := &Var{Name: fmt.Sprintf("%%t%d", b.temps), Type: typ, Index: len(b.ir.Vars), Temp: true}
	b.temps++
	b.ir.Vars = append(b.ir.Vars, v)
	return v
}

// NewLabel returns an unbound label.
func (b *Builder) NewLabel() *Label {
	l := &Label{index: -1}
	b.labels = append(b.labels, l)
	return l
}

// Reference marks l as a jump target ahead of the jumps to it, e.g. a source
// label that is only reached by a later goto.
func (b *Builder) Reference(l *Label) {
	l.used = true
}

// Bind attaches l to the next statement emitted.
func (b *Builder) Bind(l *Label) {
	l.index = len(b.ir.Stmts)
}

func (b *Builder) base() stmtBase {
	return stmtBase{index: len(b.ir.Stmts), pos: b.pos}
}

func (b *Builder) emit(s Stmt) {
	b.ir.Stmts = append(b.ir.Stmts, s)
}

// Assign emits lhs = rhs.
func (b *Builder) Assign(lhs *Var, rhs Exp) *Assign {
	s := &Assign{stmtBase: b.base(), LValue: lhs, RValue: rhs}
	b.emit(s)
	return s
}

// Invoke emits a call statement.
func (b *Builder) Invoke(call *InvokeExp) *Invoke {
	s := &Invoke{stmtBase: b.base(), Call: call}
	b.emit(s)
	return s
}

// If emits a conditional jump to target.
func (b *Builder) If(cond *BinaryExp, target *Label) *If {
	target.used = true
	s := &If{stmtBase: b.base(), Cond: cond, target: target}
	b.emit(s)
	return s
}

// SwitchCase pairs a case value with its destination label.
type SwitchCase struct {
	Value  int32
	Target *Label
}

// Switch emits a multi-way jump on v.
func (b *Builder) Switch(v *Var, cases []SwitchCase, deflt *Label) *Switch {
	s := &Switch{stmtBase: b.base(), Var: v, deflt: deflt}
	if deflt != nil {
		deflt.used = true
	}
	for _, c := range cases {
		c.Target.used = true
		s.Cases = append(s.Cases, Case{Value: c.Value, target: c.Target})
	}
	b.emit(s)
	return s
}

// Goto emits an unconditional jump.
func (b *Builder) Goto(target *Label) *Goto {
	target.used = true
	s := &Goto{stmtBase: b.base(), target: target}
	b.emit(s)
	return s
}

// Return emits a return of values.
func (b *Builder) Return(values ...*Var) *Return {
	s := &Return{stmtBase: b.base(), Values: values}
	b.emit(s)
	return s
}

// Terminated reports whether control cannot reach the next statement to be
// emitted: the last statement never falls through and no jump targets the
// current position.
func (b *Builder) Terminated() bool {
	if len(b.ir.Stmts) == 0 {
		return false
	}
	for _, l := range b.labels {
		if l.used && l.index == len(b.ir.Stmts) {
			return false
		}
	}
	switch b.ir.Stmts[len(b.ir.Stmts)-1].(type) {
	case *Return, *Goto:
		return true
	}
	return false
}

// Build resolves jump targets and returns the finished IR. A trailing bare
// return is appended when control can fall off the end of the body.
func (b *Builder) Build() (*IR, error) {
	end := len(b.ir.Stmts)
	needReturn := len(b.ir.Stmts) == 0
	if !needReturn {
		switch b.ir.Stmts[end-1].(type) {
		case *Return, *Goto:
		default:
			needReturn = true
		}
	}
	for _, l := range b.labels {
		if l.used && l.index == end {
			needReturn = true
		}
	}
	if needReturn {
		b.pos = b.ir.End
		b.Return()
	}

	resolve := func(l *Label) (Stmt, error) {
		if l == nil {
			return nil, nil
		}
		if l.index < 0 || l.index >= len(b.ir.Stmts) {
			return nil, fmt.Errorf("unbound jump label in %s", b.ir.Function)
		}
		return b.ir.Stmts[l.index], nil
	}

	var err error
	for _, s := range b.ir.Stmts {
		switch s := s.(type) {
		case *If:
			if s.Target, err = resolve(s.target); err != nil {
				return nil, err
			}
		case *Goto:
			if s.Target, err = resolve(s.target); err != nil {
				return nil, err
			}
		case *Switch:
			for i := range s.Cases {
				if s.Cases[i].Target, err = resolve(s.Cases[i].target); err != nil {
					return nil, err
				}
			}
			if s.Default, err = resolve(s.deflt); err != nil {
				return nil, err
			}
		}
	}
	return b.ir, nil
}
