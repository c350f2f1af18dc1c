/*
Command pdprepl is an interactive sandbox for the pipeline in package
vm, grounded on terex/terexlang/trepl's REPL: readline for line editing
and history, pterm for colored status output, one long-lived
interpreter object evaluating one chunk of input at a time.

Python's block structure means a single line is rarely a complete
program, so pdprepl accumulates lines into a chunk and only runs the
pipeline once a blank line closes it — the same "type until you hit
Enter on an empty line" convention Python's own REPL abandoned in favor
of bracket-matching, chosen here instead because it needs no parser
lookahead of its own. Globals survive across chunks: each chunk reuses
the same *vm.VM, so a `def` in one chunk is callable from the next.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package main

import (
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/pdplang/pdp/compiler"
	"github.com/pdplang/pdp/config"
	"github.com/pdplang/pdp/lexer"
	"github.com/pdplang/pdp/parser"
	"github.com/pdplang/pdp/symtab"
	"github.com/pdplang/pdp/vm"
)

func tracer() tracing.Trace {
	return tracing.Select("pdp.repl")
}

func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{Text: " pdp", Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack)}
	pterm.Error.Prefix = pterm.Prefix{Text: " err", Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack)}
}

// repl holds everything one interactive session needs: the line editor,
// the growing chunk of not-yet-submitted source, and the VM the chunks
// accumulate state in across the session.
type repl struct {
	rl      *readline.Instance
	chunk   []string
	machine *vm.VM
}

func main() {
	initDisplay()
	gtrace.SyntaxTracer = gologadapter.New()
	tracer().SetTraceLevel(tracing.LevelError)

	pterm.Info.Println("pdp interactive — blank line runs the chunk, Ctrl-D quits")

	rl, err := readline.New("pdp> ")
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	defer rl.Close()

	r := &repl{
		rl:      rl,
		machine: vm.New(config.MaxFrameDepth()),
	}
	r.machine.Stdout = os.Stdout
	r.loop()
}

func (r *repl) loop() {
	for {
		line, err := r.rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			break
		}
		if err != nil {
			pterm.Error.Println(err.Error())
			break
		}

		if strings.TrimSpace(line) == "" && len(r.chunk) > 0 {
			r.runChunk()
			r.rl.SetPrompt("pdp> ")
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		r.chunk = append(r.chunk, line)
		r.rl.SetPrompt("...> ")
	}
	pterm.Info.Println("bye")
}

// runChunk lexes, parses, compiles and executes the accumulated lines
// as one program, sharing r.machine's globals with every prior chunk.
func (r *repl) runChunk() {
	src := strings.Join(r.chunk, "\n") + "\n"
	r.chunk = r.chunk[:0]

	toks, err := lexer.Lex(src)
	if err != nil {
		pterm.Error.Println(err.Error())
		return
	}
	_, astRoot, err := parser.Parse(toks)
	if err != nil {
		pterm.Error.Println(err.Error())
		return
	}
	table, err := symtab.Build(astRoot)
	if err != nil {
		pterm.Error.Println(err.Error())
		return
	}
	code, err := compiler.Compile(astRoot, table)
	if err != nil {
		pterm.Error.Println(err.Error())
		return
	}
	if err := r.runOnSharedGlobals(code); err != nil {
		pterm.Error.Println(err.Error())
	}
}

// runOnSharedGlobals executes code on a fresh VM that borrows r.machine's
// Globals and Builtins maps, so name bindings persist chunk to chunk
// without needing the VM itself to expose a "reset frames, keep globals"
// method.
func (r *repl) runOnSharedGlobals(code *compiler.CodeObject) error {
	fresh := vm.New(config.MaxFrameDepth())
	fresh.Stdout = os.Stdout
	fresh.Globals = r.machine.Globals
	fresh.Builtins = r.machine.Builtins
	err := fresh.Run(code)
	r.machine.Globals = fresh.Globals
	return err
}
