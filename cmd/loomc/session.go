package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/diagfmt"
	"loom/internal/driver"
	"loom/internal/observ"
	"loom/internal/prof"
)

// session is the state shared by one command invocation: the effective
// configuration with flag overrides applied, the logger and the tracer.
type session struct {
	cfg     config.Config
	log     *slog.Logger
	color   bool
	quiet   bool
	timings *observ.Timer
	cleanup []func()
}

// errReported marks failures already shown to the user as diagnostics.
var errReported = errors.New("compilation failed")

func isReported(err error) bool { return errors.Is(err, errReported) }

func openSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Root().PersistentFlags()
	s := &session{}

	cfgPath, _ := flags.GetString("config")
	var err error
	if cfgPath != "" {
		s.cfg, err = config.Load(cfgPath)
	} else {
		s.cfg, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}
	if err := s.applyFlags(cmd); err != nil {
		return nil, err
	}

	if err := s.setupLogging(cmd); err != nil {
		return nil, err
	}
	if s.cfg.Path != "" {
		s.log.Debug("configuration loaded", "path", s.cfg.Path)
	}
	if err := s.setupTracing(cmd); err != nil {
		s.close()
		return nil, err
	}
	if err := s.setupProfiling(cmd); err != nil {
		s.close()
		return nil, err
	}
	if timings, _ := flags.GetBool("timings"); timings {
		s.timings = observ.NewTimer()
	}
	return s, nil
}

// applyFlags overrides configuration values with explicitly set flags.
func (s *session) applyFlags(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("max-diagnostics") {
		s.cfg.Compile.MaxDiagnostics, _ = flags.GetInt("max-diagnostics")
	}
	if flags.Changed("diag-format") {
		s.cfg.Diagnostics.Format, _ = flags.GetString("diag-format")
	}
	if flags.Changed("trace-level") {
		s.cfg.Trace.Level, _ = flags.GetString("trace-level")
	}
	if flags.Changed("trace-mode") {
		s.cfg.Trace.Mode, _ = flags.GetString("trace-mode")
	}
	if flags.Changed("trace") {
		s.cfg.Trace.Output, _ = flags.GetString("trace")
		// --trace alone turns tracing on at pass granularity
		if !flags.Changed("trace-level") && s.cfg.Trace.Level == "off" {
			s.cfg.Trace.Level = "phase"
		}
		if !flags.Changed("trace-mode") && s.cfg.Trace.Mode == "ring" {
			s.cfg.Trace.Mode = "stream"
		}
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.quiet, _ = flags.GetBool("quiet")
	mode, _ := flags.GetString("color")
	switch strings.ToLower(mode) {
	case "on":
		s.color = true
	case "off":
		s.color = false
	case "auto", "":
		s.color = isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == ""
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	color.NoColor = !s.color
	return nil
}

// setupLogging fans operational logs out to stderr as text and, with
// --log-file, to a JSON file.
func (s *session) setupLogging(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	level := slog.LevelWarn
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}),
	}
	if path, _ := flags.GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		s.cleanup = append(s.cleanup, func() { _ = f.Close() })
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	s.log = slog.New(slogmulti.Fanout(handlers...)).With("cmd", cmd.Name())
	return nil
}

// setupProfiling starts the Go profilers requested on the command line.
func (s *session) setupProfiling(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	var opts prof.Options
	opts.CPU, _ = flags.GetString("cpu-profile")
	opts.Mem, _ = flags.GetString("mem-profile")
	opts.Trace, _ = flags.GetString("runtime-trace")
	if !opts.Enabled() {
		return nil
	}
	p, err := prof.Start(opts)
	if err != nil {
		return err
	}
	s.cleanup = append(s.cleanup, func() {
		if err := p.Stop(); err != nil {
			s.log.Warn("profiling", "err", err)
		}
	})
	return nil
}

func (s *session) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	s.cleanup = nil
}

func (s *session) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (s *session) prettyOpts() diagfmt.PrettyOpts {
	mode, _ := diagfmt.ParsePathMode(s.cfg.Diagnostics.PathMode)
	return diagfmt.PrettyOpts{
		Color:     s.color,
		Context:   int8(s.cfg.Diagnostics.Context), //nolint:gosec // validated to 0..10
		PathMode:  mode,
		ShowNotes: s.cfg.Diagnostics.Notes,
	}
}

func (s *session) jsonOpts() diagfmt.JSONOpts {
	mode, _ := diagfmt.ParsePathMode(s.cfg.Diagnostics.PathMode)
	return diagfmt.JSONOpts{
		IncludePositions: true,
		PathMode:         mode,
		IncludeNotes:     s.cfg.Diagnostics.Notes,
	}
}

func (s *session) printTimings(w io.Writer) {
	if s.timings == nil {
		return
	}
	if err := driver.WriteTimings(w, s.timings, s.cfg.Diagnostics.Format == "json"); err != nil {
		s.log.Warn("failed to print timings", "err", err)
	}
}
