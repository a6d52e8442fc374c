// Package pipeline orchestrates the compilation stages end to end:
// byte source, lexer, parser, semantic analysis and IR generation, and
// Z80 instruction selection. Each stage runs to completion before the
// next begins; diagnostics accumulate across stages and the pipeline
// only aborts early on infrastructure failure.
package pipeline

import (
	"fmt"
	"log"
	"os"

	"zcc/internal/ast"
	"zcc/internal/cgen"
	"zcc/internal/diag"
	"zcc/internal/ir"
	"zcc/internal/lexer"
	"zcc/internal/parser"
	"zcc/internal/source"
	"zcc/internal/z80"
)

// DefaultOrg is the load address assembly output is organized at when
// the driver does not override it: the CP/M transient program area
// convention.
const DefaultOrg = 0x8000

// Options configures one compilation.
type Options struct {
	// SourceFile is read when SourceCode is empty.
	SourceFile string
	// SourceCode compiles from an in-memory buffer instead of a file.
	SourceCode string

	// TargetArch names the instruction selector; only "z80" exists.
	TargetArch string

	// Org is the output origin address; 0 means DefaultOrg.
	Org int

	Verbose bool
}

// Result is the output of one pipeline run: every intermediate
// artifact that was produced, the accumulated diagnostics, and the
// success flag. Artifacts stay available even when compilation fails,
// for inspection.
type Result struct {
	SourceFile string

	Tokens []lexer.Token
	AST    *ast.File
	IR     *ir.Module
	Z80    *z80.Module

	Diags   *diag.Bag
	Success bool
}

// Default returns the default pipeline options.
func Default() *Options {
	return &Options{TargetArch: "z80", Org: DefaultOrg}
}

// Run executes the pipeline. The error return is reserved for
// infrastructure failures (I/O, unknown target, unlowerable IR);
// ordinary compilation errors land in Result.Diags with Success false.
func Run(opts *Options) (*Result, error) {
	result := &Result{SourceFile: opts.SourceFile, Diags: &diag.Bag{}}

	var src source.ByteSource
	switch {
	case opts.SourceCode != "":
		name := opts.SourceFile
		if name == "" {
			name = "<memory>"
		}
		src = source.NewStringSource(name, opts.SourceCode)
	case opts.SourceFile != "":
		file, err := os.Open(opts.SourceFile)
		if err != nil {
			return result, fmt.Errorf("failed to open source file: %w", err)
		}
		defer file.Close()
		src = source.NewFileSource(opts.SourceFile, file)
	default:
		return result, fmt.Errorf("no source provided")
	}

	if opts.TargetArch != "" && opts.TargetArch != "z80" {
		return result, fmt.Errorf("unsupported target architecture %q", opts.TargetArch)
	}

	if opts.Verbose {
		log.Printf("==> stage: lexer")
	}
	lex := lexer.New(src)
	for tok := range lex.Tokens() {
		result.Tokens = append(result.Tokens, tok)
	}
	if err := lex.Err(); err != nil {
		return result, fmt.Errorf("lexical analysis failed: %w", err)
	}

	if opts.Verbose {
		log.Printf("==> stage: parser")
	}
	file, parseDiags := parser.ParseFile(src.Name(), replay(result.Tokens))
	result.AST = file
	result.Diags.Merge(parseDiags)

	if opts.Verbose {
		log.Printf("==> stage: sema/irgen")
	}
	irMod, semaDiags := cgen.Generate(src.Name(), file)
	result.IR = irMod
	result.Diags.Merge(semaDiags)

	if opts.Verbose {
		log.Printf("==> stage: z80 selection")
	}
	z80Mod, err := z80.Select(irMod)
	if err != nil {
		return result, fmt.Errorf("instruction selection failed: %w", err)
	}
	result.Z80 = z80Mod

	result.Success = !result.Diags.HasErrors()
	return result, nil
}

// replay feeds an already-drained token slice back out as a channel,
// the shape the parser consumes.
func replay(toks []lexer.Token) <-chan lexer.Token {
	ch := make(chan lexer.Token)
	go func() {
		defer close(ch)
		for _, t := range toks {
			ch <- t
		}
	}()
	return ch
}
