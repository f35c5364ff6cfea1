package frontend

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-dataflow/pkg/constprop"
	"github.com/l3aro/go-dataflow/pkg/ir"
)

// lowerer turns one function declaration into IR. Control structures become
// conditional and unconditional jumps; every operand of a binary expression
// is a variable, with %tN temporaries holding intermediate values.
type lowerer struct {
	f       *File
	decl    *funcDecl
	b       *ir.Builder
	scopes  []map[string]*ir.Var
	escaped map[string]bool
	targets []*jumpTarget
	labels  map[string]*ir.Label
	results []*ir.Var
}

// jumpTarget is an enclosing statement that break, and for loops continue,
// can leave.
type jumpTarget struct {
	label string
	brk   *ir.Label
	cont  *ir.Label
}

func newLowerer(f *File, fn *funcDecl) *lowerer {
	return &lowerer{
		f:      f,
		decl:   fn,
		b:      ir.NewBuilder(fn.name, f.Path),
		labels: make(map[string]*ir.Label),
	}
}

func (l *lowerer) lower() (*ir.IR, error) {
	node := l.decl.node
	body := node.ChildByFieldName("body")
	l.escaped = escapedNames(l.f, body)

	l.push()
	defer l.pop()
	l.b.SetPos(pos(node))
	if l.decl.receiver != nil {
		l.params(l.decl.receiver, true)
	}
	l.params(node.ChildByFieldName("parameters"), true)
	if res := node.ChildByFieldName("result"); res != nil && res.Type() == "parameter_list" {
		l.b.SetPos(pos(res))
		for _, v := range l.params(res, false) {
			l.b.Assign(v, zeroValue(v.Type))
			l.results = append(l.results, v)
		}
	}
	l.b.SetEnd(endPos(body))
	l.block(body)
	return l.b.Build()
}

func (l *lowerer) push() {
	l.scopes = append(l.scopes, make(map[string]*ir.Var))
}

func (l *lowerer) pop() {
	l.scopes = l.scopes[:len(l.scopes)-1]
}

func (l *lowerer) lookup(name string) *ir.Var {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if v, ok := l.scopes[i][name]; ok {
			return v
		}
	}
	return nil
}

func (l *lowerer) declare(name string, typ ir.Type, param bool) *ir.Var {
	var v *ir.Var
	if param {
		v = l.b.NewParam(name, typ)
	} else {
		v = l.b.NewVar(name, typ)
	}
	v.Escapes = l.escaped[name]
	l.scopes[len(l.scopes)-1][name] = v
	return v
}

// params declares the names of a parameter list and returns them.
func (l *lowerer) params(list *sitter.Node, param bool) []*ir.Var {
	if list == nil {
		return nil
	}
	var vars []*ir.Var
	for i := 0; i < int(list.NamedChildCount()); i++ {
		decl := list.NamedChild(i)
		if decl == nil {
			continue
		}
		typeNode := decl.ChildByFieldName("type")
		var typ ir.Type
		switch decl.Type() {
		case "parameter_declaration":
			typ = goType(l.f.text(typeNode))
		case "variadic_parameter_declaration":
			typ = ir.Reference("..." + l.f.text(typeNode))
		default:
			continue
		}
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			id := decl.NamedChild(j)
			if id == nil || id.Type() != "identifier" {
				continue
			}
			name := l.f.text(id)
			if name == "_" {
				continue
			}
			vars = append(vars, l.declare(name, typ, param))
		}
	}
	return vars
}

// statements returns the statements of a block or case clause body, looking
// through statement_list wrappers and skipping comments.
func statements(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "comment":
		case "statement_list":
			out = append(out, statements(child)...)
		default:
			out = append(out, child)
		}
	}
	return out
}

// caseBody returns the statements following the colon of a case clause.
func caseBody(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	afterColon := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if !afterColon {
			afterColon = !child.IsNamed() && child.Type() == ":"
			continue
		}
		if !child.IsNamed() {
			continue
		}
		switch child.Type() {
		case "comment":
		case "statement_list":
			out = append(out, statements(child)...)
		default:
			out = append(out, child)
		}
	}
	return out
}

func (l *lowerer) block(n *sitter.Node) {
	if n == nil {
		return
	}
	l.push()
	defer l.pop()
	for _, s := range statements(n) {
		l.stmt(s)
	}
}

func (l *lowerer) stmt(n *sitter.Node) {
	l.labeled(n, "")
}

// labeled lowers n, which carries the source label name when it is the body
// of a labeled statement.
func (l *lowerer) labeled(n *sitter.Node, label string) {
	if n == nil {
		return
	}
	l.b.SetPos(pos(n))
	switch n.Type() {
	case "comment", "empty_statement", "type_declaration", "fallthrough_statement":
	case "block":
		l.block(n)
	case "expression_statement":
		l.effect(n.NamedChild(0))
	case "short_var_declaration":
		l.assign(n.ChildByFieldName("left"), n.ChildByFieldName("right"), ":=")
	case "assignment_statement":
		l.assign(n.ChildByFieldName("left"), n.ChildByFieldName("right"), l.operator(n, "="))
	case "inc_statement":
		l.incDec(n.NamedChild(0), "+")
	case "dec_statement":
		l.incDec(n.NamedChild(0), "-")
	case "var_declaration", "const_declaration":
		l.varDecl(n)
	case "if_statement":
		l.ifStmt(n)
	case "expression_switch_statement":
		l.switchStmt(n, label)
	case "type_switch_statement", "select_statement":
		l.choiceStmt(n, label)
	case "for_statement":
		l.forStmt(n, label)
	case "return_statement":
		l.returnStmt(n)
	case "break_statement":
		if t := l.target(labelName(l.f, n), false); t != nil {
			l.b.Goto(t.brk)
			return
		}
		l.opaque(n)
	case "continue_statement":
		if t := l.target(labelName(l.f, n), true); t != nil {
			l.b.Goto(t.cont)
			return
		}
		l.opaque(n)
	case "goto_statement":
		name := labelName(l.f, n)
		if name == "" {
			l.opaque(n)
			return
		}
		l.b.Goto(l.sourceLabel(name))
	case "labeled_statement":
		name := l.f.text(n.ChildByFieldName("label"))
		l.b.Bind(l.sourceLabel(name))
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child != nil && child.Type() != "label_name" && child.Type() != "comment" {
				l.labeled(child, name)
			}
		}
	case "go_statement", "defer_statement":
		l.effect(n.NamedChild(0))
	case "send_statement":
		ch := l.operand(n.ChildByFieldName("channel"), typeAny)
		val := l.operand(n.ChildByFieldName("value"), typeAny)
		l.b.Invoke(&ir.InvokeExp{Callee: "<-", Args: []*ir.Var{ch, val}})
	default:
		l.opaque(n)
	}
}

// operator returns the assignment operator token of n.
func (l *lowerer) operator(n *sitter.Node, fallback string) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return l.f.text(op)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() {
			if _, ok := compoundOps[child.Type()]; ok || child.Type() == "=" {
				return child.Type()
			}
		}
	}
	return fallback
}

func labelName(f *File, n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child != nil && child.Type() == "label_name" {
			return f.text(child)
		}
	}
	return ""
}

func (l *lowerer) sourceLabel(name string) *ir.Label {
	if lbl, ok := l.labels[name]; ok {
		return lbl
	}
	lbl := l.b.NewLabel()
	l.b.Reference(lbl)
	l.labels[name] = lbl
	return lbl
}

// target finds the innermost enclosing statement break or continue refers to.
func (l *lowerer) target(label string, cont bool) *jumpTarget {
	for i := len(l.targets) - 1; i >= 0; i-- {
		t := l.targets[i]
		if cont && t.cont == nil {
			if label != "" && t.label == label {
				return nil
			}
			continue
		}
		if label == "" || t.label == label {
			return t
		}
	}
	return nil
}

// opaque stands in for syntax the lowering does not model. It keeps the
// variables the statement mentions live and never yields a constant.
func (l *lowerer) opaque(n *sitter.Node) {
	l.b.Invoke(&ir.InvokeExp{Callee: "<" + n.Type() + ">", Args: l.mentioned(n)})
}

// mentioned returns the local variables referenced under n, in order of
// first appearance.
func (l *lowerer) mentioned(n *sitter.Node) []*ir.Var {
	var vars []*ir.Var
	seen := make(map[*ir.Var]bool)
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "identifier" {
			if v := l.lookup(l.f.text(n)); v != nil && !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(n)
	return vars
}

// effect lowers an expression evaluated only for its side effects.
func (l *lowerer) effect(n *sitter.Node) {
	if n == nil {
		return
	}
	v := l.expr(n)
	if call, ok := v.exp.(*ir.InvokeExp); ok {
		l.b.Invoke(call)
	}
}

func exprList(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() != "expression_list" {
		return []*sitter.Node{n}
	}
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child != nil && child.Type() != "comment" {
			out = append(out, child)
		}
	}
	return out
}

// assign lowers =, := and the compound assignment operators.
func (l *lowerer) assign(left, right *sitter.Node, op string) {
	lhs, rhs := exprList(left), exprList(right)
	if len(lhs) == 0 {
		return
	}

	if binOp, ok := compoundOps[op]; ok && len(lhs) == 1 && len(rhs) == 1 {
		x := l.materialize(l.expr(lhs[0]), typeAny)
		y := l.operand(rhs[0], x.Type)
		l.store(lhs[0], l.binaryOp(binOp, x, y, x.Type, rhs[0]), false)
		return
	}

	values := make([]value, len(lhs))
	switch {
	case len(rhs) == len(lhs) && len(lhs) == 1:
		values[0] = l.expr(rhs[0])
	case len(rhs) == len(lhs):
		// Evaluate every right-hand side before any assignment: a, b = b, a.
		for i, r := range rhs {
			v := l.expr(r)
			t := l.b.NewTemp(v.typ)
			l.b.Assign(t, v.exp)
			values[i] = value{exp: t, typ: v.typ}
		}
	case len(rhs) == 1:
		values[0] = l.expr(rhs[0])
		for i := 1; i < len(lhs); i++ {
			values[i] = value{exp: &ir.UnaryExp{Op: ir.OpOpaque}, typ: typeAny}
		}
	default:
		l.opaque(left)
		return
	}

	for i, target := range lhs {
		l.store(target, values[i], op == ":=")
	}
}

// store assigns v to target. With define set, identifiers not yet declared in
// the innermost scope are declared first.
func (l *lowerer) store(target *sitter.Node, v value, define bool) {
	for target.Type() == "parenthesized_expression" && target.NamedChildCount() > 0 {
		target = target.NamedChild(0)
	}
	if target.Type() == "identifier" {
		name := l.f.text(target)
		if name == "_" {
			if call, ok := v.exp.(*ir.InvokeExp); ok {
				l.b.Invoke(call)
			}
			return
		}
		var dst *ir.Var
		if define {
			dst = l.scopes[len(l.scopes)-1][name]
			if dst == nil {
				dst = l.declare(name, v.defaultType(), false)
			}
		} else {
			dst = l.lookup(name)
		}
		if dst != nil {
			l.b.Assign(dst, v.exp)
			return
		}
		val := l.materialize(v, typeAny)
		l.b.Invoke(&ir.InvokeExp{Callee: "store " + name, Args: []*ir.Var{val}})
		return
	}

	args := l.locationOperands(target)
	args = append(args, l.materialize(v, typeAny))
	l.b.Invoke(&ir.InvokeExp{Callee: "store " + l.f.text(target), Args: args})
}

// locationOperands evaluates the variables an assignable location depends
// on, e.g. p and i for p.items[i].
func (l *lowerer) locationOperands(n *sitter.Node) []*ir.Var {
	switch n.Type() {
	case "selector_expression":
		operand := n.ChildByFieldName("operand")
		if operand != nil && operand.Type() == "identifier" && l.lookup(l.f.text(operand)) == nil {
			return nil
		}
		return []*ir.Var{l.operand(operand, typeAny)}
	case "index_expression":
		return []*ir.Var{
			l.operand(n.ChildByFieldName("operand"), typeAny),
			l.operand(n.ChildByFieldName("index"), typeInt),
		}
	case "unary_expression":
		return []*ir.Var{l.operand(n.ChildByFieldName("operand"), typeAny)}
	case "parenthesized_expression":
		return l.locationOperands(n.NamedChild(0))
	}
	return l.mentioned(n)
}

func (l *lowerer) incDec(target *sitter.Node, op string) {
	if target == nil {
		return
	}
	x := l.materialize(l.expr(target), typeAny)
	one := l.constant(1, x.Type)
	l.store(target, l.binaryOp(op, x, one, x.Type, nil), false)
}

func (l *lowerer) varDecl(n *sitter.Node) {
	var specs []*sitter.Node
	var collect func(*sitter.Node)
	collect = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child == nil {
				continue
			}
			switch child.Type() {
			case "var_spec", "const_spec":
				specs = append(specs, child)
			case "var_spec_list", "const_spec_list":
				collect(child)
			}
		}
	}
	collect(n)

	for _, spec := range specs {
		l.b.SetPos(pos(spec))
		var names []*sitter.Node
		for i := 0; i < int(spec.NamedChildCount()); i++ {
			if child := spec.NamedChild(i); child != nil && child.Type() == "identifier" {
				names = append(names, child)
			}
		}
		typeNode := spec.ChildByFieldName("type")
		declared := ir.Type{}
		if typeNode != nil {
			declared = goType(l.f.text(typeNode))
		}

		rhs := exprList(spec.ChildByFieldName("value"))
		values := make([]value, len(names))
		switch {
		case len(rhs) == 0:
			for i := range values {
				if typeNode == nil {
					values[i] = value{exp: &ir.UnaryExp{Op: ir.OpOpaque}, typ: typeAny}
				} else {
					values[i] = value{exp: zeroValue(declared), typ: declared}
				}
			}
		case len(rhs) == len(names):
			for i, r := range rhs {
				values[i] = l.expr(r)
			}
		default:
			values[0] = l.expr(rhs[0])
			for i := 1; i < len(values); i++ {
				values[i] = value{exp: &ir.UnaryExp{Op: ir.OpOpaque}, typ: typeAny}
			}
		}

		for i, id := range names {
			name := l.f.text(id)
			v := values[i]
			if name == "_" {
				if call, ok := v.exp.(*ir.InvokeExp); ok {
					l.b.Invoke(call)
				}
				continue
			}
			typ := declared
			if typeNode == nil {
				typ = v.defaultType()
			}
			l.b.Assign(l.declare(name, typ, false), v.exp)
		}
	}
}

func (l *lowerer) ifStmt(n *sitter.Node) {
	l.push()
	defer l.pop()
	if init := n.ChildByFieldName("initializer"); init != nil {
		l.stmt(init)
	}

	elseL := l.b.NewLabel()
	l.b.SetPos(pos(n))
	l.branchFalse(n.ChildByFieldName("condition"), elseL)
	l.block(n.ChildByFieldName("consequence"))

	alt := n.ChildByFieldName("alternative")
	if alt == nil {
		l.b.Bind(elseL)
		return
	}
	endL := l.b.NewLabel()
	if !l.b.Terminated() {
		l.b.Goto(endL)
	}
	l.b.Bind(elseL)
	l.stmt(alt)
	l.b.Bind(endL)
}

func (l *lowerer) forStmt(n *sitter.Node, label string) {
	l.push()
	defer l.pop()

	body := n.ChildByFieldName("body")
	var clause, cond, rng *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "for_clause":
			clause = child
		case "range_clause":
			rng = child
		case "block", "comment":
		default:
			cond = child
		}
	}

	head, cont, end := l.b.NewLabel(), l.b.NewLabel(), l.b.NewLabel()
	var update *sitter.Node
	switch {
	case rng != nil:
		l.rangeHeader(rng, head, end)
	case clause != nil:
		if init := clause.ChildByFieldName("initializer"); init != nil {
			l.stmt(init)
		}
		update = clause.ChildByFieldName("update")
		l.b.Bind(head)
		if c := clause.ChildByFieldName("condition"); c != nil {
			l.b.SetPos(pos(c))
			l.branchFalse(c, end)
		}
	default:
		l.b.Bind(head)
		if cond != nil {
			l.b.SetPos(pos(cond))
			l.branchFalse(cond, end)
		}
	}

	l.targets = append(l.targets, &jumpTarget{label: label, brk: end, cont: cont})
	l.block(body)
	l.targets = l.targets[:len(l.targets)-1]

	l.b.Bind(cont)
	if update != nil {
		l.stmt(update)
	}
	l.b.SetPos(pos(n))
	l.b.Goto(head)
	l.b.Bind(end)
}

// rangeHeader lowers the per-iteration part of a range loop: an opaque test
// for another element, then fresh values for the iteration variables.
func (l *lowerer) rangeHeader(rng *sitter.Node, head, end *ir.Label) {
	l.b.SetPos(pos(rng))
	src := l.operand(rng.ChildByFieldName("right"), typeAny)

	l.b.Bind(head)
	more := l.b.NewTemp(typeBool)
	l.b.Assign(more, &ir.InvokeExp{Callee: "range", Args: []*ir.Var{src}})
	zero := l.constant(0, typeBool)
	l.b.If(&ir.BinaryExp{Op: ir.OpEq, X: more, Y: zero}, end)

	define := false
	for i := 0; i < int(rng.ChildCount()); i++ {
		if child := rng.Child(i); child != nil && child.Type() == ":=" {
			define = true
		}
	}
	for _, target := range exprList(rng.ChildByFieldName("left")) {
		l.store(target, value{exp: &ir.UnaryExp{Op: ir.OpOpaque}, typ: typeAny}, define)
	}
}

func (l *lowerer) switchStmt(n *sitter.Node, label string) {
	l.push()
	defer l.pop()
	if init := n.ChildByFieldName("initializer"); init != nil {
		l.stmt(init)
	}
	l.b.SetPos(pos(n))

	var clauses []*sitter.Node
	defaultIdx := -1
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "expression_case":
			clauses = append(clauses, child)
		case "default_case":
			defaultIdx = len(clauses)
			clauses = append(clauses, child)
		}
	}

	end := l.b.NewLabel()
	bodies := make([]*ir.Label, len(clauses))
	for i := range bodies {
		bodies[i] = l.b.NewLabel()
	}
	fallback := end
	if defaultIdx >= 0 {
		fallback = bodies[defaultIdx]
	}

	var tag *ir.Var
	if valueNode := n.ChildByFieldName("value"); valueNode != nil {
		tag = l.operand(valueNode, typeInt)
	}

	if cases, ok := l.literalCases(tag, clauses, bodies); ok {
		l.b.Switch(tag, cases, fallback)
	} else {
		for i, c := range clauses {
			if i == defaultIdx {
				continue
			}
			for _, e := range exprList(c.ChildByFieldName("value")) {
				l.b.SetPos(pos(e))
				if tag == nil {
					l.branchTrue(e, bodies[i])
					continue
				}
				y := l.operand(e, tag.Type)
				l.b.If(&ir.BinaryExp{Op: ir.OpEq, X: tag, Y: y}, bodies[i])
			}
		}
		l.b.Goto(fallback)
	}

	l.targets = append(l.targets, &jumpTarget{label: label, brk: end})
	for i, c := range clauses {
		l.b.Bind(bodies[i])
		l.push()
		falls := false
		for _, s := range caseBody(c) {
			if s.Type() == "fallthrough_statement" {
				falls = true
				continue
			}
			l.stmt(s)
		}
		l.pop()
		if !falls && !l.b.Terminated() {
			l.b.Goto(end)
		}
	}
	l.targets = l.targets[:len(l.targets)-1]
	l.b.Bind(end)
}

// literalCases returns the switch cases when tag is a tracked variable and
// every case value is an integer constant.
func (l *lowerer) literalCases(tag *ir.Var, clauses []*sitter.Node, bodies []*ir.Label) ([]ir.SwitchCase, bool) {
	if tag == nil || !constprop.CanHoldInt(tag) {
		return nil, false
	}
	var cases []ir.SwitchCase
	for i, c := range clauses {
		if c.Type() != "expression_case" {
			continue
		}
		for _, e := range exprList(c.ChildByFieldName("value")) {
			v, ok := l.constInt(e)
			if !ok {
				return nil, false
			}
			cases = append(cases, ir.SwitchCase{Value: v, Target: bodies[i]})
		}
	}
	return cases, len(cases) > 0
}

// choiceStmt lowers type switches and selects: the arm taken is decided by an
// opaque value, so every arm stays reachable.
func (l *lowerer) choiceStmt(n *sitter.Node, label string) {
	l.push()
	defer l.pop()
	if init := n.ChildByFieldName("initializer"); init != nil {
		l.stmt(init)
	}
	l.b.SetPos(pos(n))

	var subject *ir.Var
	var args []*ir.Var
	if v := n.ChildByFieldName("value"); v != nil {
		subject = l.operand(v, typeAny)
		args = append(args, subject)
	}
	var alias string
	if a := n.ChildByFieldName("alias"); a != nil {
		if ids := exprList(a); len(ids) > 0 {
			alias = l.f.text(ids[0])
		}
	}

	var clauses []*sitter.Node
	defaultIdx := -1
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "type_case", "communication_case":
			clauses = append(clauses, child)
		case "default_case":
			defaultIdx = len(clauses)
			clauses = append(clauses, child)
		}
	}

	choice := l.b.NewTemp(typeInt)
	l.b.Assign(choice, &ir.InvokeExp{Callee: "<" + n.Type() + ">", Args: args})
	end := l.b.NewLabel()
	bodies := make([]*ir.Label, len(clauses))
	for i := range clauses {
		bodies[i] = l.b.NewLabel()
		if i == defaultIdx {
			continue
		}
		k := l.constant(int32(i), typeInt)
		l.b.If(&ir.BinaryExp{Op: ir.OpEq, X: choice, Y: k}, bodies[i])
	}
	switch {
	case defaultIdx >= 0:
		l.b.Goto(bodies[defaultIdx])
	case n.Type() == "select_statement" && len(bodies) > 0:
		// A select without default blocks until some arm is ready.
		l.b.Goto(bodies[len(bodies)-1])
	default:
		l.b.Goto(end)
	}

	l.targets = append(l.targets, &jumpTarget{label: label, brk: end})
	for i, c := range clauses {
		l.b.Bind(bodies[i])
		l.b.SetPos(pos(c))
		l.push()
		if alias != "" {
			typ := typeAny
			if types := caseTypes(c); len(types) == 1 {
				typ = goType(l.f.text(types[0]))
			}
			v := l.declare(alias, typ, false)
			l.b.Assign(v, &ir.CastExp{Type: typ, X: subject})
		}
		if comm := c.ChildByFieldName("communication"); comm != nil {
			l.communication(comm)
		}
		for _, s := range caseBody(c) {
			l.stmt(s)
		}
		l.pop()
		if !l.b.Terminated() {
			l.b.Goto(end)
		}
	}
	l.targets = l.targets[:len(l.targets)-1]
	l.b.Bind(end)
}

// caseTypes returns the types listed by a type switch case.
func caseTypes(c *sitter.Node) []*sitter.Node {
	if c.Type() != "type_case" {
		return nil
	}
	var types []*sitter.Node
	for i := 0; i < int(c.ChildCount()); i++ {
		child := c.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			if child.Type() == ":" {
				break
			}
			continue
		}
		if child.Type() != "comment" {
			types = append(types, child)
		}
	}
	return types
}

// communication lowers the send or receive guarding a select arm.
func (l *lowerer) communication(n *sitter.Node) {
	switch n.Type() {
	case "receive_statement":
		right := n.ChildByFieldName("right")
		left := n.ChildByFieldName("left")
		if left == nil {
			l.effect(right)
			return
		}
		define := false
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil && child.Type() == ":=" {
				define = true
			}
		}
		op := "="
		if define {
			op = ":="
		}
		l.assign(left, right, op)
	default:
		l.stmt(n)
	}
}

func (l *lowerer) returnStmt(n *sitter.Node) {
	var exprs []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child != nil && child.Type() != "comment" {
			exprs = append(exprs, exprList(child)...)
		}
	}
	if len(exprs) == 0 {
		l.b.Return(l.results...)
		return
	}
	vals := make([]*ir.Var, len(exprs))
	for i, e := range exprs {
		hint := typeAny
		if i < len(l.results) {
			hint = l.results[i].Type
		}
		vals[i] = l.operand(e, hint)
	}
	l.b.SetPos(pos(n))
	l.b.Return(vals...)
}

// branchFalse emits a jump to target taken when cond is false; control falls
// through when it is true.
func (l *lowerer) branchFalse(cond *sitter.Node, target *ir.Label) {
	l.branch(cond, target, false)
}

// branchTrue emits a jump to target taken when cond is true.
func (l *lowerer) branchTrue(cond *sitter.Node, target *ir.Label) {
	l.branch(cond, target, true)
}

func (l *lowerer) branch(cond *sitter.Node, target *ir.Label, when bool) {
	if cond == nil {
		if when {
			l.b.Goto(target)
		}
		return
	}
	switch cond.Type() {
	case "parenthesized_expression":
		l.branch(cond.NamedChild(0), target, when)
		return
	case "unary_expression":
		if l.f.text(cond.ChildByFieldName("operator")) == "!" {
			l.branch(cond.ChildByFieldName("operand"), target, !when)
			return
		}
	case "binary_expression":
		op := l.f.text(cond.ChildByFieldName("operator"))
		left, right := cond.ChildByFieldName("left"), cond.ChildByFieldName("right")
		switch {
		case op == "&&" && !when, op == "||" && when:
			// Either operand alone decides the jump.
			l.branch(left, target, when)
			l.branch(right, target, when)
			return
		case op == "&&", op == "||":
			skip := l.b.NewLabel()
			l.branch(left, skip, !when)
			l.branch(right, target, when)
			l.b.Bind(skip)
			return
		}
		if cmp, ok := binaryOps[op]; ok && cmp.Category() == ir.CategoryCondition {
			x, y, _, _ := l.pair(left, right)
			if !when {
				cmp = cmp.Negate()
			}
			l.b.If(&ir.BinaryExp{Op: cmp, X: x, Y: y}, target)
			return
		}
	}

	v := l.operand(cond, typeBool)
	zero := l.constant(0, typeBool)
	op := ir.OpNe
	if !when {
		op = ir.OpEq
	}
	l.b.If(&ir.BinaryExp{Op: op, X: v, Y: zero}, target)
}

func pos(n *sitter.Node) ir.Position {
	if n == nil {
		return ir.Position{}
	}
	p := n.StartPoint()
	return ir.Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func endPos(n *sitter.Node) ir.Position {
	if n == nil {
		return ir.Position{}
	}
	p := n.EndPoint()
	return ir.Position{Line: int(p.Row) + 1, Column: int(p.Column)}
}
