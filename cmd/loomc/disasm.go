package main

import (
	"github.com/spf13/cobra"

	"loom/internal/bytecode"
	"loom/internal/driver"
)

func newDisasmCmd() *cobra.Command {
	var raw, noPos bool
	cmd := &cobra.Command{
		Use:   "disasm <program.lbc>",
		Short: "Print a listing of a compiled program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			art, err := driver.ReadArtifact(args[0])
			if err != nil {
				return err
			}
			opts := bytecode.DisasmOptions{Raw: raw}
			if art.Debug != nil && !noPos {
				opts.Pos = art.Debug.Position
			}
			return bytecode.Disassemble(cmd.OutOrStdout(), art.Program, opts)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "omit string, function and native annotations")
	cmd.Flags().BoolVar(&noPos, "no-pos", false, "omit source positions")
	return cmd
}
