package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/trace"
)

// setupTracing initializes the tracer from the [trace] configuration and
// attaches it to the command context.
func (s *session) setupTracing(cmd *cobra.Command) error {
	level, err := trace.ParseLevel(s.cfg.Trace.Level)
	if err != nil {
		return fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(s.context(cmd), trace.Nop))
		return nil
	}
	mode, err := trace.ParseMode(s.cfg.Trace.Mode)
	if err != nil {
		return fmt.Errorf("invalid trace mode: %w", err)
	}

	cfg := trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: s.cfg.Trace.Output,
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		cfg.Output = cmd.ErrOrStderr()
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(s.context(cmd), tracer))

	s.cleanup = append(s.cleanup, func() {
		if ring, ok := tracer.(*trace.RingTracer); ok {
			if n := ring.Dropped(); n > 0 {
				s.log.Debug("trace ring overflowed", "dropped", n)
			}
			if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
				s.log.Warn("trace dump failed", "err", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			s.log.Warn("trace flush failed", "err", err)
		}
		if err := tracer.Close(); err != nil {
			s.log.Warn("trace close failed", "err", err)
		}
	})
	return nil
}
