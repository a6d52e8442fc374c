// zcc compiles a C89-dialect source file to Z80 assembly.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"zcc/internal/pipeline"
)

func main() {
	log.SetFlags(0)

	var (
		dumpTokens bool
		dumpAST    bool
		dumpIR     string
		dumpZ80    string
		target     string
		outPath    string
		org        int
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:   "zcc <file.c>",
		Short: "zcc - a C89 compiler for the Z80",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &pipeline.Options{
				SourceFile: args[0],
				TargetArch: target,
				Org:        org,
				Verbose:    verbose,
			}
			res, err := pipeline.Run(opts)
			if res != nil {
				for _, d := range res.Diags.All() {
					fmt.Fprintln(os.Stderr, d.Error())
				}
			}
			if err != nil {
				return err
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			if dumpTokens {
				pipeline.DumpTokens(out, res.Tokens)
			}
			if dumpAST {
				pipeline.DumpAST(out, res.AST)
			}
			switch dumpIR {
			case "":
			case "json":
				if err := pipeline.DumpIRJSON(out, res.IR); err != nil {
					return err
				}
			default:
				pipeline.DumpIR(out, res.IR)
			}
			switch dumpZ80 {
			case "json":
				if err := pipeline.DumpZ80JSON(out, res.Z80); err != nil {
					return err
				}
			}

			if !res.Success {
				return &diagExitError{errors: len(res.Diags.Errors())}
			}

			if dumpZ80 == "text" || (!dumpTokens && !dumpAST && dumpIR == "" && dumpZ80 != "json") {
				pipeline.DumpZ80(out, res.Z80, opts.Org)
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&dumpTokens, "dump-tokens", false, "dump the token stream")
	rootCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "dump the syntax tree")
	rootCmd.Flags().StringVar(&dumpIR, "dump-ir", "", "dump the IR (\"text\" or \"json\")")
	rootCmd.Flags().Lookup("dump-ir").NoOptDefVal = "text"
	rootCmd.Flags().StringVar(&dumpZ80, "dump-z80", "", "dump the Z80 instructions (\"text\" or \"json\")")
	rootCmd.Flags().Lookup("dump-z80").NoOptDefVal = "text"
	rootCmd.Flags().StringVar(&target, "target", "z80", "target architecture")
	rootCmd.Flags().StringVar(&outPath, "out", "", "write output to a file instead of stdout")
	rootCmd.Flags().IntVar(&org, "emit-org", pipeline.DefaultOrg, "assembly origin address")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "report pipeline stages")
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		var de *diagExitError
		if errors.As(err, &de) {
			os.Exit(exitDiagnostics)
		}
		fmt.Fprintln(os.Stderr, "zcc:", err)
		os.Exit(exitFailure)
	}
	os.Exit(exitOK)
}
