package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/cache"
	"github.com/l3aro/go-dataflow/pkg/frontend"
	"github.com/l3aro/go-dataflow/pkg/ir"
)

const sample = `package p

func f(x int) int {
	a := 1
	b := a + 2
	if b > 5 {
		x = 10
	}
	c := 7
	return x
}

func g(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}
`

func newAnalyzer(opts ...Option) *Analyzer {
	return New(append([]Option{WithLogger(log.Discard())}, opts...)...)
}

func TestAnalyzeSource(t *testing.T) {
	rep, err := newAnalyzer().AnalyzeSource("p.go", []byte(sample), "f")
	require.NoError(t, err)

	assert.Equal(t, "p.go", rep.File)
	assert.Equal(t, "f", rep.Function)

	wantConstants := []VarConstant{{Name: "a", Value: 1}, {Name: "b", Value: 3}, {Name: "c", Value: 7}}
	if diff := cmp.Diff(wantConstants, rep.Constants); diff != "" {
		t.Errorf("constants mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, rep.DeadCode, 2)
	assert.Equal(t, "x = 10", rep.DeadCode[0].Text)
	assert.Equal(t, "x = 10", rep.DeadCode[0].Source)
	assert.Equal(t, 7, rep.DeadCode[0].Line)
	assert.Equal(t, 3, rep.DeadCode[0].Column)
	assert.Equal(t, "c = 7", rep.DeadCode[1].Text)
	assert.Equal(t, "c := 7", rep.DeadCode[1].Source)
	assert.Equal(t, 9, rep.DeadCode[1].Line)
	assert.Less(t, rep.DeadCode[0].Index, rep.DeadCode[1].Index)
	assert.True(t, rep.HasDeadCode())
}

func TestAnalyzeSourceLoopHasNoDeadCode(t *testing.T) {
	rep, err := newAnalyzer().AnalyzeSource("p.go", []byte(sample), "g")
	require.NoError(t, err)
	assert.Empty(t, rep.DeadCode)
	assert.Empty(t, rep.Constants, "s and i vary around the loop")
}

func TestAnalyzeSourceIntOverflow(t *testing.T) {
	src := []byte(`package p

func wrap() int {
	x := 2147483647
	x = x + 1
	if x > 0 {
		return 1
	}
	return 2
}
`)
	rep, err := newAnalyzer().AnalyzeSource("p.go", src, "wrap")
	require.NoError(t, err)
	assert.Empty(t, rep.DeadCode, "x is 2147483648 at run time, so both returns are reachable")
	assert.Empty(t, rep.Constants)
}

func TestAnalyzeSourceUntrackedComparison(t *testing.T) {
	src := []byte(`package p

func cmp(p int, a, c int64) int {
	b := true
	if p > 0 {
		b = a < c
	}
	if b {
		return 1
	}
	return 2
}
`)
	rep, err := newAnalyzer().AnalyzeSource("p.go", src, "cmp")
	require.NoError(t, err)
	assert.Empty(t, rep.DeadCode)
}

func TestDeadStmtsOnePerPosition(t *testing.T) {
	b := ir.NewBuilder("h", "")
	b.SetPos(ir.Position{Line: 3, Column: 2})
	t0 := b.NewTemp(ir.Primitive(ir.TypeInt))
	fill := b.Assign(t0, &ir.IntLiteral{Value: 1})
	ret := b.Return(t0)
	b.SetPos(ir.Position{})
	g1 := b.Goto(b.NewLabel())
	g2 := b.Goto(b.NewLabel())

	got := deadStmts([]ir.Stmt{fill, ret, g1, g2})
	want := []DeadStmt{
		{Index: ret.Index(), Line: 3, Column: 2, Text: ret.String()},
		{Index: g1.Index(), Text: g1.String()},
		{Index: g2.Index(), Text: g2.String()},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dead statements mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeSourceUnknownFunction(t *testing.T) {
	_, err := newAnalyzer().AnalyzeSource("p.go", []byte(sample), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, frontend.ErrFunctionNotFound))
}

func TestAnalyzeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.go")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	reports, err := newAnalyzer().AnalyzeFile(path)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "f", reports[0].Function)
	assert.Equal(t, "g", reports[1].Function)
	assert.Len(t, reports[0].DeadCode, 2)
	for _, r := range reports {
		assert.Equal(t, path, r.File)
		assert.Empty(t, r.Error)
	}

	_, err = newAnalyzer().AnalyzeFile(filepath.Join(t.TempDir(), "absent.go"))
	assert.Error(t, err)
}

func TestAnalyzeTestdata(t *testing.T) {
	reports, err := newAnalyzer().AnalyzeFile(filepath.Join("testdata", "shapes.go"))
	require.NoError(t, err)
	require.Len(t, reports, 3)

	area := reports[0]
	assert.Equal(t, "area", area.Function)
	require.Len(t, area.DeadCode, 2, "one entry per source statement")
	assert.Equal(t, 8, area.DeadCode[0].Line)
	assert.Equal(t, "return 0", area.DeadCode[0].Source)
	assert.NotContains(t, area.DeadCode[0].Text, " = ", "the return is shown, not the temporary feeding it")
	assert.Equal(t, 12, area.DeadCode[1].Line)
	assert.Equal(t, "return -1", area.DeadCode[1].Source)

	scale := reports[1]
	require.Len(t, scale.DeadCode, 1)
	assert.Equal(t, "factor = 2", scale.DeadCode[0].Text)
	assert.Equal(t, []VarConstant{{Name: "factor", Value: 3}}, scale.Constants)

	assert.Empty(t, reports[2].DeadCode)
}

func TestAnalyzeFunction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.go")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	rep, err := newAnalyzer().AnalyzeFunction(path, "g")
	require.NoError(t, err)
	assert.Equal(t, "g", rep.Function)
}

func TestAnalyzerUsesCache(t *testing.T) {
	c := cache.New(cache.Options[Report]{MaxSize: 10})
	a := newAnalyzer(WithCache(c))

	first, err := a.AnalyzeSource("p.go", []byte(sample), "f")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	second, err := a.AnalyzeSource("p.go", []byte(sample), "f")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), c.Stats().Hits)

	// another function, or changed content, is a different entry
	_, err = a.AnalyzeSource("p.go", []byte(sample), "g")
	require.NoError(t, err)
	_, err = a.AnalyzeSource("p.go", []byte(sample+"\n"), "f")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	reports, err := a.AnalyzeFileSource("p.go", []byte(sample))
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int64(3), c.Stats().Hits)
}

func TestAnalyzeFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.go", "b.go", "c.go"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
		paths = append(paths, path)
	}

	reports, err := newAnalyzer().AnalyzeFiles(context.Background(), paths, 2)
	require.NoError(t, err)
	require.Len(t, reports, 6)
	for i, r := range reports {
		assert.Equal(t, paths[i/2], r.File)
	}

	_, err = newAnalyzer().AnalyzeFiles(context.Background(), append(paths, filepath.Join(dir, "gone.go")), 2)
	assert.Error(t, err)
}

func TestRunExposesIntermediateResults(t *testing.T) {
	fn, err := frontend.LowerSource([]byte(sample), "f")
	require.NoError(t, err)

	res, err := Run(fn, log.Discard())
	require.NoError(t, err)
	assert.Same(t, fn, res.IR)
	assert.Equal(t, len(fn.Stmts)+2, res.CFG.Len())
	assert.True(t, res.Constants.Has(res.CFG.Exit()))
	assert.Len(t, res.Dead, 2)
}

func TestRunInfiniteLoopOnlyWarns(t *testing.T) {
	src := []byte(`package p

func spin() {
	n := 0
	for {
		n++
	}
}
`)
	fn, err := frontend.LowerSource(src, "spin")
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := log.New(log.LoggerConfig{Level: log.WarnLevel, Output: &buf})
	res, err := Run(fn, logger)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Contains(t, buf.String(), "irregular control flow")
}

func TestReportJSON(t *testing.T) {
	rep, err := newAnalyzer().AnalyzeSource("p.go", []byte(sample), "f")
	require.NoError(t, err)

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "dead_code")
	assert.Contains(t, decoded, "constants")
	assert.NotContains(t, decoded, "error")
}

func TestReportWriteText(t *testing.T) {
	rep := &Report{
		File:      "p.go",
		Function:  "f",
		Constants: []VarConstant{{Name: "a", Value: 1}},
		DeadCode:  []DeadStmt{{Index: 5, Line: 7, Column: 3, Text: "x = 10"}, {Index: 9, Text: "goto 2"}},
	}
	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	assert.Equal(t, "p.go: f\n  constants at exit: a=1\n  p.go:7:3: dead: x = 10\n  #9: dead: goto 2\n", buf.String())

	buf.Reset()
	rep.DeadCode = []DeadStmt{{Index: 4, Line: 9, Column: 2, Text: "c = 7", Source: "c := 7"}}
	require.NoError(t, rep.WriteText(&buf))
	assert.Contains(t, buf.String(), "p.go:9:2: dead: c := 7\n")

	buf.Reset()
	require.NoError(t, (&Report{File: "p.go", Function: "g"}).WriteText(&buf))
	assert.Equal(t, "p.go: g\n  no dead code\n", buf.String())

	buf.Reset()
	require.NoError(t, (&Report{File: "p.go", Function: "h", Error: "boom"}).WriteText(&buf))
	assert.Equal(t, "p.go: h\n  error: boom\n", buf.String())
}
