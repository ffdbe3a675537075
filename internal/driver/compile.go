// Package driver compiles encoded AST units to program files: decoding,
// analysis, code generation, the disk cache and parallel builds.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"loom/internal/ast"
	"loom/internal/bytecode"
	"loom/internal/codegen"
	"loom/internal/config"
	"loom/internal/debuginfo"
	"loom/internal/diag"
	"loom/internal/externs"
	"loom/internal/observ"
	"loom/internal/sema"
	"loom/internal/source"
	"loom/internal/trace"
)

// Mode selects how far a unit is compiled.
type Mode uint8

const (
	// ModeBuild analyzes, emits and writes the artifact.
	ModeBuild Mode = iota
	// ModeCheck stops after analysis.
	ModeCheck
)

// Options configure unit compilation.
type Options struct {
	Mode           Mode
	MaxDiagnostics int
	TRegisters     int
	RRegisters     int
	MaxTryDepth    int
	MaxSweeps      int
	Jobs           int

	Externs sema.ExternLoader
	// Cache, when set, serves and stores successfully compiled units.
	Cache *DiskCache
	// ConfigDigest is mixed into cache keys.
	ConfigDigest string
	// OutDir receives artifacts; empty writes them next to the inputs.
	OutDir string

	Sink   ProgressSink
	Timer  *observ.Timer
	Logger *slog.Logger
}

// OptionsFromConfig derives compile options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	reg, err := externs.FromTables(cfg.Externs)
	if err != nil {
		return Options{}, fmt.Errorf("externs: %w", err)
	}
	return Options{
		MaxDiagnostics: cfg.Compile.MaxDiagnostics,
		TRegisters:     cfg.Compile.TRegisters,
		RRegisters:     cfg.Compile.RRegisters,
		MaxTryDepth:    cfg.Compile.MaxTryDepth,
		MaxSweeps:      cfg.Compile.MaxResolveSweeps,
		Jobs:           cfg.Jobs(),
		Externs:        reg,
		ConfigDigest:   cfg.Digest(),
	}, nil
}

func (o Options) withDefaults() Options {
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = config.Default().Compile.MaxDiagnostics
	}
	if o.Jobs <= 0 {
		o.Jobs = 1
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// begin reports a unit entering stage and starts its timer phase.
func (o *Options) begin(unit string, stage Stage) func() {
	emitEvent(o.Sink, Event{Unit: unit, Stage: stage, Status: StatusWorking})
	if o.Timer == nil {
		return func() {}
	}
	idx := o.Timer.Begin(string(stage), unit)
	return func() { o.Timer.End(idx, "") }
}

// UnitResult is the outcome of compiling one unit. User errors are
// diagnostics in Bag; Err is set only for load, I/O and internal failures.
type UnitResult struct {
	Unit    string
	Files   *source.FileSet
	Bag     *diag.Bag
	Program *bytecode.Program
	Debug   *debuginfo.Table
	Output  string // artifact path; empty when nothing was written
	Digest  Digest
	Cached  bool
	Err     error
}

// Failed reports whether the unit produced errors of either kind.
func (r *UnitResult) Failed() bool {
	return r.Err != nil || r.Bag.HasErrors()
}

// CompileTree analyzes an in-memory tree and, in build mode, generates its
// program. Nothing is read from or written to disk.
func CompileTree(ctx context.Context, name string, tree *ast.Tree, opts Options) *UnitResult {
	opts = opts.withDefaults()
	res := &UnitResult{Unit: name, Files: tree.Files, Bag: diag.NewBag(opts.MaxDiagnostics)}
	if _, err := compileTree(ctx, tree, &opts, res); err != nil {
		res.Err = fmt.Errorf("%s: %w", name, err)
	}
	return res
}

func compileTree(ctx context.Context, tree *ast.Tree, opts *Options, res *UnitResult) (Stage, error) {
	end := opts.begin(res.Unit, StageAnalyze)
	analysis, err := sema.Analyze(ctx, tree, sema.Options{
		Reporter:    diag.BagReporter{Bag: res.Bag},
		Externs:     opts.Externs,
		MaxTryDepth: opts.MaxTryDepth,
		MaxSweeps:   opts.MaxSweeps,
	})
	end()
	res.Bag.Sort()
	if err != nil {
		return StageAnalyze, err
	}
	if res.Bag.HasErrors() || opts.Mode == ModeCheck {
		return StageAnalyze, nil
	}

	end = opts.begin(res.Unit, StageEmit)
	prog, dbg, err := codegen.Generate(ctx, analysis, codegen.Options{
		TRegisters: opts.TRegisters,
		RRegisters: opts.RRegisters,
	})
	end()
	if err != nil {
		return StageEmit, err
	}
	res.Program, res.Debug = prog, dbg
	return StageEmit, nil
}

// CompileUnit compiles the unit file at path. In build mode the artifact
// is written to OutputPath(path, opts.OutDir) unless analysis reported errors.
func CompileUnit(ctx context.Context, path string, opts Options) *UnitResult {
	opts = opts.withDefaults()
	start := time.Now()
	res := &UnitResult{Unit: path, Bag: diag.NewBag(opts.MaxDiagnostics)}

	span := trace.Begin(trace.FromContext(ctx), trace.ScopeUnit, path, 0)
	finish := func(stage Stage, status Status) *UnitResult {
		emitEvent(opts.Sink, Event{Unit: path, Stage: stage, Status: status, Err: res.Err, Elapsed: time.Since(start)})
		span.WithExtra("diagnostics", fmt.Sprint(res.Bag.Len())).End(string(status))
		return res
	}
	fail := func(stage Stage, err error) *UnitResult {
		res.Err = fmt.Errorf("%s: %w", path, err)
		return finish(stage, StatusError)
	}

	end := opts.begin(path, StageLoad)
	data, err := os.ReadFile(path)
	var tree *ast.Tree
	if err == nil {
		tree, err = ast.DecodeUnit(bytes.NewReader(data))
	}
	end()
	if err != nil {
		return fail(StageLoad, err)
	}
	res.Files = tree.Files
	res.Digest = UnitDigest(data, opts.ConfigDigest)

	if opts.Cache != nil {
		var payload CachePayload
		hit, err := opts.Cache.Get(res.Digest, &payload)
		if err != nil {
			opts.Logger.Warn("cache entry unreadable", "unit", path, "key", res.Digest.String(), "err", err)
		}
		if hit {
			res.Cached = true
			for _, d := range payload.Diagnostics {
				res.Bag.Add(d)
			}
			if opts.Mode == ModeBuild {
				res.Program, res.Debug = payload.Program, payload.Debug
				if err := writeOutput(&opts, res); err != nil {
					return fail(StageWrite, err)
				}
			}
			return finish(StageLoad, StatusCached)
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(StageLoad, err)
	}

	stage, err := compileTree(ctx, tree, &opts, res)
	if err != nil {
		return fail(stage, err)
	}
	if res.Bag.HasErrors() {
		return finish(stage, StatusError)
	}
	if opts.Mode == ModeCheck {
		return finish(stage, StatusDone)
	}

	if err := writeOutput(&opts, res); err != nil {
		return fail(StageWrite, err)
	}
	if opts.Cache != nil {
		payload := &CachePayload{
			Unit:        path,
			Program:     res.Program,
			Debug:       res.Debug,
			Diagnostics: res.Bag.Items(),
		}
		if err := opts.Cache.Put(res.Digest, payload); err != nil {
			opts.Logger.Warn("cache write failed", "unit", path, "err", err)
		}
	}
	return finish(StageWrite, StatusDone)
}

func writeOutput(opts *Options, res *UnitResult) error {
	end := opts.begin(res.Unit, StageWrite)
	defer end()
	out := OutputPath(res.Unit, opts.OutDir)
	if err := WriteArtifact(out, &Artifact{Program: res.Program, Debug: res.Debug}); err != nil {
		return err
	}
	res.Output = out
	opts.Logger.Debug("artifact written", "unit", res.Unit, "out", out, "instrs", len(res.Program.Code))
	return nil
}
