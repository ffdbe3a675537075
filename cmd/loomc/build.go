package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/diagfmt"
	"loom/internal/driver"
	"loom/internal/ui"
)

type compileFlags struct {
	outDir  string
	jobs    int
	ui      string
	noCache bool
}

func newBuildCmd() *cobra.Command {
	var f compileFlags
	cmd := &cobra.Command{
		Use:   "build [units...]",
		Short: "Compile units to bytecode programs",
		Long: `Compile encoded AST units (.lasts files, or directories containing them)
to .lbc programs. Units are independent and compiled in parallel.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args, driver.ModeBuild, f)
		},
	}
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "output directory (default: next to each unit)")
	cmd.Flags().IntVar(&f.jobs, "jobs", 0, "parallel units (0 = from config)")
	cmd.Flags().StringVar(&f.ui, "ui", "off", "progress view (auto|on|off)")
	cmd.Flags().Lookup("ui").NoOptDefVal = "on"
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "neither read nor write the disk cache")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var f compileFlags
	cmd := &cobra.Command{
		Use:   "check [units...]",
		Short: "Analyze units and report diagnostics without emitting code",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.noCache = true
			return runCompile(cmd, args, driver.ModeCheck, f)
		},
	}
	cmd.Flags().IntVar(&f.jobs, "jobs", 0, "parallel units (0 = from config)")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string, mode driver.Mode, f compileFlags) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	useUI, err := shouldUseUI(f.ui)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"."}
	}
	units, err := driver.ListUnits(args)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		return fmt.Errorf("no %s units found in %s", driver.UnitExt, strings.Join(args, " "))
	}

	opts, err := driver.OptionsFromConfig(&s.cfg)
	if err != nil {
		return err
	}
	opts.Mode = mode
	opts.OutDir = f.outDir
	opts.Logger = s.log
	opts.Timer = s.timings
	if f.jobs > 0 {
		opts.Jobs = f.jobs
	}
	if s.cfg.Cache.Enabled && !f.noCache {
		dir, err := s.cfg.CacheDir()
		if err == nil {
			opts.Cache, err = driver.OpenDiskCache(dir)
		}
		if err != nil {
			s.log.Warn("disk cache disabled", "err", err)
			opts.Cache = nil
		}
	}
	s.log.Debug("compiling", "units", len(units), "jobs", opts.Jobs, "mode", mode)

	var results []*driver.UnitResult
	if useUI && !s.quiet {
		results, err = ui.RunBuild(s.context(cmd), cmd.OutOrStdout(), "loomc "+cmd.Name(), units, opts)
	} else {
		results, err = driver.CompileUnits(s.context(cmd), units, opts)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := s.report(out, results); err != nil {
		return err
	}
	s.printTimings(cmd.ErrOrStderr())
	if n := driver.CountFailed(results); n > 0 {
		if !s.quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d units failed\n", n, len(results))
		}
		return errReported
	}
	if !s.quiet && mode == driver.ModeBuild {
		cached := 0
		for _, r := range results {
			if r.Cached {
				cached++
			}
		}
		fmt.Fprintf(out, "built %d units (%d cached)\n", len(results), cached)
	}
	return nil
}

// report prints each unit's diagnostics and failures in unit order.
func (s *session) report(w io.Writer, results []*driver.UnitResult) error {
	format := s.cfg.Diagnostics.Format
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", r.Unit, r.Err)
		}
		if r.Bag == nil || r.Files == nil {
			continue
		}
		switch format {
		case "json":
			if err := diagfmt.JSON(w, r.Unit, r.Bag, r.Files, s.jsonOpts()); err != nil {
				return err
			}
		case "summary":
			if r.Bag.Len() > 0 || !s.quiet {
				diagfmt.Summary(w, r.Unit, r.Bag)
			}
		default:
			if r.Bag.Len() == 0 {
				continue
			}
			if s.quiet && !r.Bag.HasErrors() {
				continue
			}
			diagfmt.Pretty(w, r.Bag, r.Files, s.prettyOpts())
		}
	}
	return nil
}

func shouldUseUI(mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "off":
		return false, nil
	case "on":
		return true, nil
	case "auto":
		return isTerminal(os.Stdout), nil
	default:
		return false, errors.New("invalid --ui value " + mode + " (expected auto|on|off)")
	}
}
