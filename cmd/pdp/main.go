/*
Command pdp runs the five-stage pipeline — lex, parse, build symbols,
compile, execute — against a single Python source file and leaves its
intermediate products in pdp_out/ for inspection.

Logging follows the same gtrace/gologadapter wiring terex/terexlang/trepl
uses for its own CLI: a process-wide tracer is installed once in main,
and every package below reaches it through its own tracer() helper. The
trace level defaults to Info and is overridable with -trace. Tracer
output goes to the console only; pdp.log under the output directory
gets one progress line per completed stage, plus the final error (if
any).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/pdplang/pdp/artifact"
	"github.com/pdplang/pdp/compiler"
	"github.com/pdplang/pdp/config"
	"github.com/pdplang/pdp/lexer"
	"github.com/pdplang/pdp/parser"
	"github.com/pdplang/pdp/symtab"
	"github.com/pdplang/pdp/vm"
)

func tracer() tracing.Trace {
	return tracing.Select("pdp.cmd")
}

func main() {
	os.Exit(run())
}

// run is the testable body of main: it returns the process exit code
// instead of calling os.Exit directly.
func run() int {
	tlevel := flag.String("trace", "Info", "trace level [Debug|Info|Error]")
	flag.Parse()

	gtrace.SyntaxTracer = gologadapter.New()
	tracer().SetTraceLevel(traceLevel(*tlevel))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pdp <source.py>")
		return 1
	}
	src := flag.Arg(0)

	if err := artifact.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "pdp: cannot create output directory: %v\n", err)
		return 1
	}
	logPath := filepath.Join(artifact.Dir, "pdp.log")
	logFile, err := os.Create(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdp: cannot create %s: %v\n", logPath, err)
		return 1
	}
	defer logFile.Close()

	if err := pipeline(src, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "pdp: %v\n", err)
		fmt.Fprintf(logFile, "fatal: %v\n", err)
		return 1
	}
	return 0
}

// pipeline runs every stage in order, writing each stage's artifact as
// soon as it's produced — per the propagation policy, a later stage's
// failure must not erase an earlier stage's output.
func pipeline(srcPath string, logFile *os.File) error {
	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcPath, err)
	}

	toks, err := lexer.Lex(string(raw))
	if err != nil {
		return err
	}
	if werr := artifact.WriteTokenStream(toks); werr != nil {
		return fmt.Errorf("writing token stream: %w", werr)
	}
	fmt.Fprintf(logFile, "lexed %d tokens\n", len(toks))

	cstRoot, astRoot, err := parser.Parse(toks)
	if err != nil {
		if cstRoot != nil {
			artifact.WriteParseTree(cstRoot)
		}
		if astRoot != nil {
			artifact.WriteAST(astRoot)
		}
		return err
	}
	if werr := artifact.WriteParseTree(cstRoot); werr != nil {
		return fmt.Errorf("writing parse tree: %w", werr)
	}
	if werr := artifact.WriteAST(astRoot); werr != nil {
		return fmt.Errorf("writing AST: %w", werr)
	}
	fmt.Fprintln(logFile, "parsed ok")

	table, err := symtab.Build(astRoot)
	if err != nil {
		return err
	}
	if werr := artifact.WriteSymbolTable(table); werr != nil {
		return fmt.Errorf("writing symbol table: %w", werr)
	}
	fmt.Fprintln(logFile, "symbol table built")

	code, err := compiler.Compile(astRoot, table)
	if err != nil {
		return err
	}
	if werr := artifact.WriteBytecode(code); werr != nil {
		return fmt.Errorf("writing bytecode: %w", werr)
	}
	fmt.Fprintln(logFile, "compiled ok")

	machine := vm.New(config.MaxFrameDepth())
	machine.Stdout = os.Stdout
	if err := machine.Run(code); err != nil {
		return err
	}
	fmt.Fprintln(logFile, "run ok")
	return nil
}

func traceLevel(s string) tracing.TraceLevel {
	switch s {
	case "Debug":
		return tracing.LevelDebug
	case "Error":
		return tracing.LevelError
	default:
		return tracing.LevelInfo
	}
}
