package codegen

import (
	"context"
	"fmt"
	"strconv"

	"fortio.org/safecast"

	"loom/internal/ast"
	"loom/internal/bytecode"
	"loom/internal/debuginfo"
	"loom/internal/sema"
	"loom/internal/symbols"
	"loom/internal/trace"
	"loom/internal/types"
)

// Options configure code generation.
type Options struct {
	// TRegisters and RRegisters size the value and reference scratch pools.
	TRegisters int
	RRegisters int
}

const defaultRegisters = 16

// FatalError is raised (as a panic value) when the generator cannot
// continue: a register pool is exhausted, a hold is unbalanced or analysis
// left an unresolved node behind. Generate returns it as an error.
type FatalError struct {
	Node ast.NodeID
	Msg  string
}

func (e *FatalError) Error() string {
	if e.Node.IsValid() {
		return fmt.Sprintf("codegen: node %d: %s", e.Node, e.Msg)
	}
	return "codegen: " + e.Msg
}

func fatalf(node ast.NodeID, format string, args ...any) {
	panic(&FatalError{Node: node, Msg: fmt.Sprintf(format, args...)})
}

// loop is an active loop's jump targets.
type loop struct {
	label string
	brk   bytecode.Label
	cont  bytecode.Label
}

// frame is the emission state of one function body or of the entry code.
type frame struct {
	fn       symbols.SymbolID // NoSymbolID for the entry code
	captures int32
	locals   int32
	spills   int32 // spill slots in use
	maxSpill int32
	loops    []loop
}

// slots is the final frame size: locals followed by spill slots.
func (f *frame) slots() int { return int(f.locals + f.maxSpill) }

// spill reserves the next spill slot below the locals.
func (f *frame) spill() bytecode.Operand {
	slot := bytecode.Stack(-(f.locals + f.spills))
	f.spills++
	f.maxSpill = max(f.maxSpill, f.spills)
	return slot
}

func (f *frame) unspill(n int) { f.spills -= safecast.MustConv[int32](n) }

type generator struct {
	res   *sema.Result
	tree  *ast.Tree
	types *types.Interner
	table *symbols.Table
	b     *bytecode.Builder
	dbg   *debuginfo.Recorder

	tracer trace.Tracer
	span   uint64

	t, r *pool
	// crGen and rrGen count the instructions that overwrite the accumulator
	// and the return register; a volatile operand is stale once they move.
	crGen, rrGen uint64
	tcLive       int // calls whose spread count is being accumulated

	fn      *frame
	funcs   map[symbols.SymbolID]uint32
	entries map[symbols.SymbolID]bytecode.Label
	work    []symbols.SymbolID
	natives map[symbols.SymbolID]uint32
	typeIdx map[types.TypeID]uint32
}

// Generate emits the program for an analyzed unit. Analysis must have
// finished without errors.
func Generate(ctx context.Context, res *sema.Result, opts Options) (prog *bytecode.Program, dbg *debuginfo.Table, err error) {
	if opts.TRegisters <= 0 {
		opts.TRegisters = defaultRegisters
	}
	if opts.RRegisters <= 0 {
		opts.RRegisters = defaultRegisters
	}
	g := &generator{
		res:     res,
		tree:    res.Tree,
		types:   res.Types,
		table:   res.Table,
		b:       bytecode.NewBuilder(),
		dbg:     debuginfo.NewRecorder(),
		tracer:  trace.FromContext(ctx),
		t:       newPool("t", bytecode.KindT, opts.TRegisters),
		r:       newPool("r", bytecode.KindR, opts.RRegisters),
		funcs:   make(map[symbols.SymbolID]uint32),
		entries: make(map[symbols.SymbolID]bytecode.Label),
		natives: make(map[symbols.SymbolID]uint32),
		typeIdx: make(map[types.TypeID]uint32),
	}
	defer func() {
		if r := recover(); r != nil {
			fe, ok := r.(*FatalError)
			if !ok {
				panic(r)
			}
			prog, dbg, err = nil, nil, fe
		}
	}()

	span := trace.Begin(g.tracer, trace.ScopePass, "emit", 0)
	g.span = span.ID()
	entry := g.emitEntry()
	for i := 0; i < len(g.work); i++ {
		if err := ctx.Err(); err != nil {
			span.End("cancelled")
			return nil, nil, err
		}
		g.emitFunc(g.work[i])
	}
	g.b.SetGlobals(g.table.GlobalCount())
	span.WithExtra("funcs", strconv.Itoa(len(g.work))).
		WithExtra("instrs", strconv.Itoa(g.b.Pos())).
		End("")

	prog, err = g.b.Finish(entry)
	if err != nil {
		return nil, nil, fmt.Errorf("codegen: %w", err)
	}
	return prog, g.dbg.Finish(g.tree.Files, g.b.Pos()), nil
}

// emitEntry emits the unit's top-level code: static initializers first,
// then the items of every file in order.
func (g *generator) emitEntry() bytecode.Label {
	entry := g.b.NewLabel()
	g.b.Bind(entry)
	g.fn = &frame{}
	reserve := g.b.Reserve()
	for _, st := range g.res.Statics {
		g.emitStatic(st)
	}
	for _, file := range g.tree.Roots {
		g.stmt(file)
	}
	g.emit(bytecode.OpHalt)
	g.b.Patch(reserve, g.fn.slots())
	return entry
}

func (g *generator) emitStatic(st sema.GlobalInit) {
	sym := g.table.Symbol(st.Symbol)
	if sym.Rejected || !g.types.IsResolved(sym.Type) || g.hasParams(sym.TemplateArgs) {
		return
	}
	dst := g.storage(st.Symbol)
	if !st.Init.IsValid() {
		g.move(dst, g.zero(sym.Decl, sym.Type))
		return
	}
	g.move(dst, g.expr(st.Init, needAny))
}

func (g *generator) hasParams(args []types.TypeID) bool {
	for _, a := range args {
		if g.types.HasParams(a) {
			return true
		}
	}
	return false
}

// funcRef returns the table index of a function body, queueing the body for
// emission the first time it is referenced.
func (g *generator) funcRef(fn symbols.SymbolID) uint32 {
	if idx, ok := g.funcs[fn]; ok {
		return idx
	}
	sym := g.table.Symbol(fn)
	n := g.tree.Get(sym.Decl)
	idx, entry := g.b.DeclareFunc(g.funcName(fn), len(n.List))
	g.funcs[fn] = idx
	g.entries[fn] = entry
	g.work = append(g.work, fn)
	return idx
}

func (g *generator) funcName(fn symbols.SymbolID) string {
	sym := g.table.Symbol(fn)
	name := g.table.Name(fn)
	if q := g.table.QualifiedName(sym.Scope); q != "::" {
		name = q[2:] + "::" + name
	}
	if len(sym.TemplateArgs) > 0 {
		name += "<"
		for i, a := range sym.TemplateArgs {
			if i > 0 {
				name += ", "
			}
			name += g.types.Format(a)
		}
		name += ">"
	}
	return name
}

func (g *generator) nativeRef(fn symbols.SymbolID) uint32 {
	if idx, ok := g.natives[fn]; ok {
		return idx
	}
	sym := g.table.Symbol(fn)
	ref := bytecode.NativeRef{Symbol: g.table.Name(fn), Handle: sym.Extern}
	if x := g.tree.Get(sym.Decl).Extern; x != nil {
		ref.Library, ref.Symbol = x.Library, x.Symbol
	}
	idx := g.b.AddNative(ref)
	g.natives[fn] = idx
	return idx
}

// emitFunc emits one function body. The frame reservation is patched once
// the spill depth is known.
func (g *generator) emitFunc(fn symbols.SymbolID) {
	sym := g.table.Symbol(fn)
	n := g.tree.Get(sym.Decl)
	scope := g.res.FuncScope(fn)
	name := g.funcName(fn)

	span := trace.Begin(g.tracer, trace.ScopeFunction, name, g.span)
	g.fn = &frame{
		fn:       fn,
		captures: safecast.MustConv[int32](len(scope.Captures)),
		locals:   scope.MaxStack,
	}
	g.b.Bind(g.entries[fn])
	g.dbg.BeginFunc(name, g.b.Pos(), n.Span)
	reserve := g.b.Reserve()

	if body := n.B; g.tree.Kind(body) == ast.KindBlock {
		g.stmts(g.tree.Get(body).List)
		g.emit(bytecode.OpRet, bytecode.None)
	} else if body.IsValid() {
		g.emit(bytecode.OpRet, g.expr(body, needAny))
	}

	g.b.Patch(reserve, g.fn.slots())
	g.b.SetFrame(g.funcs[fn], g.fn.slots(), int(g.fn.captures))
	g.dbg.EndFunc(g.b.Pos())
	span.WithExtra("frame", strconv.Itoa(g.fn.slots())).End("")
}

// emit appends an instruction, tracking which implicit registers it
// overwrites.
func (g *generator) emit(op bytecode.Opcode, args ...bytecode.Operand) int {
	if op.WritesCR() {
		g.crGen++
	}
	switch op {
	case bytecode.OpCall, bytecode.OpCallV, bytecode.OpCallN:
		g.crGen++
		g.rrGen++
	}
	return g.b.Emit(op, args...)
}

func (g *generator) move(dst, src bytecode.Operand) {
	if dst != src {
		g.emit(bytecode.OpMov, dst, src)
	}
	g.free(src)
}

// mark is a rewind point for speculative emission.
type mark struct {
	code   bytecode.Mark
	ip     int
	t, r   poolState
	spills int32
	tc     int
}

func (g *generator) mark() mark {
	return mark{
		code:   g.b.Mark(),
		ip:     g.b.Pos(),
		t:      g.t.save(),
		r:      g.r.save(),
		spills: g.fn.spills,
		tc:     g.tcLive,
	}
}

func (g *generator) rewind(m mark) {
	g.b.Rewind(m.code)
	g.dbg.Truncate(m.ip)
	g.t.restore(m.t)
	g.r.restore(m.r)
	g.fn.spills = m.spills
	g.tcLive = m.tc
}

// storage returns the operand addressing a variable in the current frame.
// Arguments sit above the capture slots.
func (g *generator) storage(id symbols.SymbolID) bytecode.Operand {
	st := g.table.Symbol(id).Storage
	switch st.Kind {
	case symbols.StorageGlobal:
		return bytecode.Global(safecast.MustConv[uint32](st.Index))
	case symbols.StorageLocal:
		if st.IsArg() {
			return bytecode.Stack(st.Index + g.fn.captures)
		}
		return bytecode.Stack(st.Index)
	case symbols.StorageCaptured:
		return bytecode.Stack(2 + st.Index)
	}
	fatalf(g.table.Symbol(id).Decl, "variable %s has no storage", g.table.Name(id))
	return bytecode.None
}

// typeRef interns the runtime description of a struct or union type.
func (g *generator) typeRef(t types.TypeID) uint32 {
	if idx, ok := g.typeIdx[t]; ok {
		return idx
	}
	tt := g.types.MustLookup(t)
	info := bytecode.TypeInfo{Name: g.types.Format(t), Kind: tt.Kind.String()}
	for _, f := range tt.Fields {
		info.Fields = append(info.Fields, f.Name)
	}
	idx := g.b.AddType(info)
	g.typeIdx[t] = idx
	return idx
}

func (g *generator) node(id ast.NodeID) *ast.Node {
	n := g.tree.Get(id)
	if n == nil {
		fatalf(id, "missing node")
	}
	return n
}
