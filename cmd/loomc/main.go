package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"loom/internal/version"
)

// newRootCmd assembles the command tree. Commands share no state outside
// the returned tree, so tests can run several in one process.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "loomc",
		Short:         "Loom semantic analyzer and bytecode compiler",
		Long:          `loomc analyzes encoded AST units (.lasts) and compiles them to register bytecode (.lbc)`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newBuildCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newDisasmCmd())
	root.AddCommand(newVersionCmd())

	// global flags
	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 0, "maximum number of diagnostics per unit (0 = from config)")
	pf.String("config", "", "path to loom.toml (default: nearest above the working directory)")
	pf.String("diag-format", "", "diagnostics format (pretty|json|summary; default from config)")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "", "trace storage mode (ring|stream|both)")
	pf.String("log-file", "", "also write JSON logs to this file")
	pf.Bool("verbose", false, "log debug messages")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")
	return root
}

// main executes the root command. A command error or a unit with errors
// exits with status 1.
func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !isReported(err) {
			root.PrintErrln("error:", err)
		}
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}
