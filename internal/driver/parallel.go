package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"loom/internal/trace"
)

// ListUnits expands args into unit files: files are taken as given,
// directories are walked for *.lasts files. The result is sorted and free
// of duplicates.
func ListUnits(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var units []string
	add := func(path string) {
		path = filepath.Clean(path)
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		units = append(units, path)
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, UnitExt) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	// deterministic order
	sort.Strings(units)
	return units, nil
}

// CompileUnits compiles independent units in parallel, at most opts.Jobs at
// a time. Each unit owns its analyzer; a failing unit does not stop the
// others. The error is non-nil only when the build could not run or ctx was
// cancelled. Results are in the order of units.
func CompileUnits(ctx context.Context, units []string, opts Options) ([]*UnitResult, error) {
	opts = opts.withDefaults()
	if opts.Mode == ModeBuild {
		if err := checkOutputs(units, opts.OutDir); err != nil {
			return nil, err
		}
	}
	results := make([]*UnitResult, len(units))
	if len(units) == 0 {
		return results, nil
	}

	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "compile_units", 0).
		WithExtra("units", strconv.Itoa(len(units))).
		WithExtra("jobs", strconv.Itoa(opts.Jobs))
	if opts.Timer != nil {
		idx := opts.Timer.Begin("build", "")
		defer opts.Timer.End(idx, strconv.Itoa(len(units))+" units")
	}
	for _, u := range units {
		emitEvent(opts.Sink, Event{Unit: u, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(opts.Jobs, len(units)))
	for i, unit := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// results[i] is owned by this goroutine
			results[i] = CompileUnit(gctx, unit, opts)
			return nil
		})
	}
	err := g.Wait()

	span.WithExtra("failed", strconv.Itoa(CountFailed(results))).End("")
	emitEvent(opts.Sink, Event{Status: StatusDone})
	if err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// checkOutputs rejects builds where two units would write the same artifact.
func checkOutputs(units []string, outDir string) error {
	owner := make(map[string]string, len(units))
	for _, u := range units {
		out := OutputPath(u, outDir)
		if prev, ok := owner[out]; ok {
			return fmt.Errorf("units %s and %s both write %s", prev, u, out)
		}
		owner[out] = u
	}
	return nil
}

// CountFailed returns how many results failed.
func CountFailed(results []*UnitResult) int {
	n := 0
	for _, r := range results {
		if r != nil && r.Failed() {
			n++
		}
	}
	return n
}
