/*
Package pdp is an interpreter for a subset of the Python language.

PDP ingests Python source text and drives it through a strict, leaves-first
pipeline: a lexer turns source into tokens, a hand-written recursive-descent
parser (TPBA, "Top-down Parsing, Bottom-up Abstraction") turns tokens into a
concrete parse tree while simultaneously abstracting an AST from it, a
symbol-table pass classifies every name as local/cell/free/global, a compiler
lowers the AST into stack-based bytecode, and a register-of-stacks virtual
machine executes that bytecode. Package structure is as follows:

■ token: tagged token values with row/col positions.

■ lexer: source text → token stream.

■ cst: the concrete parse tree produced by the parser.

■ ast: the abstract syntax tree abstracted from the parse tree in the same pass.

■ parser: the TPBA algorithm, producing (parse tree, AST) pairs.

■ symtab: per-scope symbol tables (local/cell/free/global classification).

■ compiler: AST + symbol tables → CodeObjects of bytecode.

■ object: runtime value representation used by the virtual machine.

■ vm: the register-of-stacks virtual machine, with frames, closures and generators.

■ artifact: writers that serialize the pipeline's intermediate products to disk.

■ config: process-wide tunables (max frame depth, indent width, output directory).

The base package contains data types used throughout all the other packages:
source positions and the error taxonomy every stage reports through.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package pdp
