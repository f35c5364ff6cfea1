// Package pipeline runs the analyses over lowered functions: it builds the
// CFG, solves constant propagation, computes liveness and reports dead
// statements. Reports are cached by file content and function name.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/cache"
	"github.com/l3aro/go-dataflow/pkg/cfg"
	"github.com/l3aro/go-dataflow/pkg/constprop"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/deadcode"
	"github.com/l3aro/go-dataflow/pkg/frontend"
	"github.com/l3aro/go-dataflow/pkg/ir"
	"github.com/l3aro/go-dataflow/pkg/liveness"
)

// reportVersion is mixed into cache keys so that stale reports are not
// served after the analyses change.
const reportVersion = "report/v2"

// Result holds every intermediate product of analysing one function.
type Result struct {
	IR        *ir.IR
	CFG       *cfg.CFG[ir.Stmt]
	Constants *dataflow.Result[ir.Stmt, *constprop.Fact]
	Live      *dataflow.Result[ir.Stmt, *liveness.VarSet]
	Dead      []ir.Stmt
}

// Run analyses fn. A CFG that fails validation is analysed anyway and only
// logged, since statements that cannot reach the exit are still meaningful.
func Run(fn *ir.IR, logger log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Default()
	}

	g := cfg.Build(fn)
	if err := g.Validate(); err != nil {
		logger.Warn("irregular control flow", "function", fn.Function, "error", err)
	}

	solver := dataflow.NewSolver[ir.Stmt, *constprop.Fact](constprop.New())
	solver.Logger = logger
	constants, err := solver.Solve(g)
	if err != nil {
		return nil, fmt.Errorf("constant propagation of %s: %w", fn.Function, err)
	}

	var live *dataflow.Result[ir.Stmt, *liveness.VarSet]
	var dead []ir.Stmt
	err = dataflow.Guard(func() {
		live = liveness.Analyze(g)
		dead = deadcode.Detect(g, constants, live)
	})
	if err != nil {
		return nil, fmt.Errorf("dead code detection in %s: %w", fn.Function, err)
	}

	return &Result{IR: fn, CFG: g, Constants: constants, Live: live, Dead: dead}, nil
}

// Report summarizes a Result for printing and caching.
func (r *Result) Report() *Report {
	rep := &Report{
		File:       r.IR.File,
		Function:   r.IR.Function,
		Statements: len(r.IR.Stmts),
		Constants:  []VarConstant{},
		DeadCode:   make([]DeadStmt, 0, len(r.Dead)),
	}

	exit := r.Constants.InFact(r.CFG.Exit())
	exit.ForEach(func(v *ir.Var, val constprop.Value) {
		if v.Temp || !val.IsConstant() {
			return
		}
		rep.Constants = append(rep.Constants, VarConstant{Name: v.Name, Value: val.Constant()})
	})

	rep.DeadCode = deadStmts(r.Dead)
	return rep
}

// deadStmts reports one entry per source position. Lowering can emit several
// statements for one source statement; the entry shows the first of them that
// does not just fill a temporary.
func deadStmts(dead []ir.Stmt) []DeadStmt {
	out := make([]DeadStmt, 0, len(dead))
	var temps []bool
	at := make(map[ir.Position]int)
	for _, s := range dead {
		pos := s.Pos()
		d := DeadStmt{Index: s.Index(), Line: pos.Line, Column: pos.Column, Text: s.String()}
		a, ok := s.(*ir.Assign)
		temp := ok && a.LValue.Temp
		i, seen := at[pos]
		switch {
		case !seen || pos.Line == 0:
			at[pos] = len(out)
			out = append(out, d)
			temps = append(temps, temp)
		case temps[i] && !temp:
			out[i] = d
			temps[i] = false
		}
	}
	return out
}

// attachSource fills in the source text of each dead statement from f.
func attachSource(rep *Report, f *frontend.File) {
	for i := range rep.DeadCode {
		d := &rep.DeadCode[i]
		d.Source = f.StatementText(ir.Position{Line: d.Line, Column: d.Column})
	}
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCache makes the Analyzer serve and store reports in c.
func WithCache(c *cache.LRU[Report]) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l log.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// Analyzer produces Reports for functions in Go source files.
type Analyzer struct {
	cache  *cache.LRU[Report]
	logger log.Logger
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{logger: log.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) cached(key string) (*Report, bool) {
	if a.cache == nil {
		return nil, false
	}
	rep, ok := a.cache.Get(key)
	if !ok {
		return nil, false
	}
	return &rep, true
}

func (a *Analyzer) store(key string, rep *Report) {
	if a.cache != nil {
		a.cache.Set(key, *rep)
	}
}

// AnalyzeFunction analyses the named function of the file at path.
func (a *Analyzer) AnalyzeFunction(path, name string) (*Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return a.AnalyzeSource(path, content, name)
}

// AnalyzeSource analyses the named function of content, reporting path as
// its file.
func (a *Analyzer) AnalyzeSource(path string, content []byte, name string) (*Report, error) {
	key := cache.Key(content, reportVersion, path, name)
	if rep, ok := a.cached(key); ok {
		a.logger.Debug("report cache hit", "file", path, "function", name)
		return rep, nil
	}

	f, err := frontend.Parse(path, content)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fn, err := f.Lower(name)
	if err != nil {
		return nil, err
	}
	res, err := Run(fn, a.logger)
	if err != nil {
		return nil, err
	}
	rep := res.Report()
	attachSource(rep, f)
	a.store(key, rep)
	return rep, nil
}

// AnalyzeFile analyses every function of the file at path, in declaration
// order.
func (a *Analyzer) AnalyzeFile(path string) ([]*Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return a.AnalyzeFileSource(path, content)
}

// AnalyzeFileSource analyses every function of content. A function whose
// analysis fails gets a Report carrying the error instead of aborting the
// file.
func (a *Analyzer) AnalyzeFileSource(path string, content []byte) ([]*Report, error) {
	f, err := frontend.Parse(path, content)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := f.Functions()
	reports := make([]*Report, 0, len(names))
	for _, name := range names {
		key := cache.Key(content, reportVersion, path, name)
		if rep, ok := a.cached(key); ok {
			reports = append(reports, rep)
			continue
		}

		rep, err := a.analyze(f, name)
		if err != nil {
			var inv *dataflow.InvariantError
			if errors.As(err, &inv) {
				a.logger.Error("analysis invariant violated", "file", path, "function", name, "error", err)
			} else {
				a.logger.Warn("skipping function", "file", path, "function", name, "error", err)
			}
			reports = append(reports, &Report{File: path, Function: name, Error: err.Error()})
			continue
		}
		a.store(key, rep)
		reports = append(reports, rep)
	}
	return reports, nil
}

func (a *Analyzer) analyze(f *frontend.File, name string) (*Report, error) {
	fn, err := f.Lower(name)
	if err != nil {
		return nil, err
	}
	res, err := Run(fn, a.logger)
	if err != nil {
		return nil, err
	}
	rep := res.Report()
	attachSource(rep, f)
	return rep, nil
}

// AnalyzeFiles analyses paths with up to workers files in flight. Reports
// keep the order of paths. The first file that cannot be read or parsed
// cancels the rest.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string, workers int) ([]*Report, error) {
	if workers <= 0 {
		workers = 1
	}
	perFile := make([][]*Report, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var mu sync.Mutex
	done := 0
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports, err := a.AnalyzeFile(path)
			if err != nil {
				return err
			}
			perFile[i] = reports

			mu.Lock()
			done++
			a.logger.Debug("analyzed file", "file", path, "functions", len(reports), "done", done, "total", len(paths))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*Report
	for _, reports := range perFile {
		out = append(out, reports...)
	}
	return out, nil
}
