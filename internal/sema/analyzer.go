package sema

import (
	"context"
	"strconv"

	"loom/internal/ast"
	"loom/internal/diag"
	"loom/internal/source"
	"loom/internal/symbols"
	"loom/internal/trace"
	"loom/internal/types"
)

// ExternLoader resolves extern("library", "symbol") declarations to native
// entry points.
type ExternLoader interface {
	Load(library, symbol string) (uint64, error)
}

// Options configure an Analyzer.
type Options struct {
	Reporter diag.Reporter
	Externs  ExternLoader
	Strings  *source.Interner
	// MaxTryDepth bounds nested speculative resolutions.
	MaxTryDepth int
	// MaxSweeps bounds lenient resolution sweeps before the strict one.
	MaxSweeps int
}

const (
	defaultMaxTryDepth = 32
	defaultMaxSweeps   = 8
)

type phase uint8

const (
	phaseDeclare phase = iota + 1
	phaseResolve
	phaseDone
)

// funcInfo is per-function state of the resolution pass.
type funcInfo struct {
	node     ast.NodeID
	params   []types.TypeID
	variadic bool
	result   types.TypeID // frozen once resolved
	returns  []ast.NodeID
	sigDone  bool // parameter types resolved
}

// Analyzer holds the mutable state of one analysis. It is not safe for
// concurrent use; independent units use independent analyzers.
type Analyzer struct {
	tree     *ast.Tree
	types    *types.Interner
	builtins types.Builtins
	table    *symbols.Table
	hasher   *types.Hasher
	opts     Options
	res      *Result

	reporter diag.Reporter
	counter  *countingReporter
	tryDepth int

	phase  phase
	strict bool
	scope  symbols.ScopeID // current scope during declaration
	loops  []string        // active loop labels during declaration

	nodeScope []symbols.ScopeID
	nodeSeq   []uint32
	seq       uint32

	declaring map[ast.NodeID]bool
	resolving map[ast.NodeID]bool
	typing    map[symbols.SymbolID]bool

	funcs     map[symbols.SymbolID]*funcInfo
	bodies    []symbols.SymbolID        // functions whose bodies are swept, in declaration order
	instances []ast.NodeID              // reified variable declarations, swept after the files
	matchOf   map[ast.NodeID]ast.NodeID // Case -> Match

	progress bool
	pending  int
}

// New prepares an analyzer for tree.
func New(tree *ast.Tree, opts Options) *Analyzer {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.MaxTryDepth <= 0 {
		opts.MaxTryDepth = defaultMaxTryDepth
	}
	if opts.MaxSweeps <= 0 {
		opts.MaxSweeps = defaultMaxSweeps
	}
	in := types.NewInterner()
	table := symbols.NewTable(opts.Strings)
	counter := &countingReporter{next: opts.Reporter}
	// Statements that wait on a pending sibling re-run their checks in
	// later sweeps; identical reports collapse.
	dedup := diag.NewDedupReporter(counter)
	a := &Analyzer{
		tree:      tree,
		types:     in,
		builtins:  in.Builtins(),
		table:     table,
		hasher:    types.NewHasher(in),
		opts:      opts,
		res:       newResult(tree, in, table),
		reporter:  dedup,
		counter:   counter,
		scope:     table.Root,
		declaring: make(map[ast.NodeID]bool),
		resolving: make(map[ast.NodeID]bool),
		typing:    make(map[symbols.SymbolID]bool),
		funcs:     make(map[symbols.SymbolID]*funcInfo),
		matchOf:   make(map[ast.NodeID]ast.NodeID),
	}
	a.declareBuiltins()
	return a
}

// Analyze runs both passes over tree. Diagnostics go to opts.Reporter; the
// returned error is non-nil only for internal failures.
func Analyze(ctx context.Context, tree *ast.Tree, opts Options) (*Result, error) {
	a := New(tree, opts)
	if err := a.Run(ctx); err != nil {
		return nil, err
	}
	return a.Result(), nil
}

// Run performs declaration and resolution.
func (a *Analyzer) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InternalError)
			if !ok {
				panic(r)
			}
			err = ie
		}
	}()
	tracer := trace.FromContext(ctx)

	span := trace.Begin(tracer, trace.ScopePass, "declare", 0)
	a.phase = phaseDeclare
	for _, file := range a.tree.Roots {
		a.declare(file)
	}
	span.End("")

	span = trace.Begin(tracer, trace.ScopePass, "resolve", 0)
	a.phase = phaseResolve
	a.resolveSweeps(tracer, span.ID())
	span.WithExtra("sweeps", strconv.Itoa(a.res.Sweeps)).End("")

	a.phase = phaseDone
	return ctx.Err()
}

// Result returns the analysis artefacts.
func (a *Analyzer) Result() *Result { return a.res }

// HasErrors reports whether any error diagnostic was committed.
func (a *Analyzer) HasErrors() bool { return a.counter.errors > 0 }

func (a *Analyzer) declareBuiltins() {
	b := a.builtins
	for _, bt := range []struct {
		name string
		id   types.TypeID
	}{
		{"int", b.Int}, {"real", b.Real}, {"bool", b.Bool}, {"string", b.String},
		{"handle", b.Handle}, {"dynamic", b.Dynamic}, {"void", b.Void},
	} {
		a.table.Declare(a.table.Root, symbols.Symbol{
			Name: a.table.Strings.Intern(bt.name),
			Kind: symbols.KindType,
			Type: bt.id,
		})
	}
}

// node helpers

func (a *Analyzer) node(id ast.NodeID) *ast.Node {
	n := a.tree.Get(id)
	if n == nil {
		internalf(id, "missing node")
	}
	return n
}

func (a *Analyzer) setScope(id ast.NodeID, s symbols.ScopeID) {
	for int(id) >= len(a.nodeScope) {
		a.nodeScope = append(a.nodeScope, symbols.NoScopeID)
		a.nodeSeq = append(a.nodeSeq, 0)
	}
	a.nodeScope[id] = s
	a.seq++
	a.nodeSeq[id] = a.seq
}

func (a *Analyzer) scopeOf(id ast.NodeID) symbols.ScopeID {
	if int(id) >= len(a.nodeScope) || a.nodeScope[id] == symbols.NoScopeID {
		internalf(id, "node %s was never declared", a.tree.Kind(id))
	}
	return a.nodeScope[id]
}

func (a *Analyzer) query(id ast.NodeID) symbols.Query {
	return symbols.Query{
		From: a.scopeOf(id),
		File: a.tree.Span(id).File,
		Seq:  a.nodeSeq[id],
	}
}

// adopt copies the scope and order of an existing node onto a synthesized one.
func (a *Analyzer) adopt(id, like ast.NodeID) {
	a.setScope(id, a.scopeOf(like))
	a.nodeSeq[id] = a.nodeSeq[like]
}

func (a *Analyzer) name(id symbols.SymbolID) string { return a.table.Name(id) }

func (a *Analyzer) typeStr(t types.TypeID) string { return a.types.Format(t) }

// diagnostics

func (a *Analyzer) errorf(code diag.Code, span source.Span, format string, args ...any) *diag.Draft {
	return diag.Errorf(a.reporter, code, span, format, args...)
}

// countingReporter forwards to the user's reporter and counts errors that
// reach it; diagnostics discarded by trying scopes never do.
type countingReporter struct {
	next   diag.Reporter
	errors int
}

func (c *countingReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	if sev.Blocks() {
		c.errors++
	}
	c.next.Report(code, sev, primary, msg, notes)
}

// completion

// finish records t as the node's type. The node is completed when t is fully
// resolved; otherwise it stays pending for the next sweep.
func (a *Analyzer) finish(id ast.NodeID, t types.TypeID) types.TypeID {
	n := a.node(id)
	n.ValueType = t
	if t != types.NoTypeID && a.types.IsResolved(t) {
		if !n.Completed {
			n.Completed = true
			a.progress = true
		}
		return t
	}
	a.pending++
	return a.builtins.Pending
}

// fail completes the node with the dynamic placeholder after an error so
// that enclosing expressions do not cascade.
func (a *Analyzer) fail(id ast.NodeID) types.TypeID {
	return a.finish(id, a.builtins.Dynamic)
}

func (a *Analyzer) pendingType() types.TypeID {
	a.pending++
	return a.builtins.Pending
}

func (a *Analyzer) resolved(t types.TypeID) bool {
	return t != types.NoTypeID && a.types.IsResolved(t)
}
