package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"golang.org/x/exp/slices"

	"github.com/Shylie/shyll/lang/compiler"
)

// Disassemble compiles the file named by args[0] and prints a per-symbol
// bytecode listing to stdout, !main first and every other symbol in sorted
// order (matching the deterministic ordering the linker itself uses).
func (c *Cmd) Disassemble(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return &fileError{err: err}
	}

	var cc compiler.Compiler
	symbols, cerr := cc.Compile(string(src))
	if cerr != nil {
		fmt.Fprintln(stdio.Stderr, cerr)
	}

	symbols[compiler.MainSymbol].Disassemble(stdio.Stdout, compiler.MainSymbol)
	names := make([]string, 0, len(symbols))
	for name := range symbols {
		if name == compiler.MainSymbol {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		symbols[name].Disassemble(stdio.Stdout, name)
	}

	if cerr != nil {
		return &compileErrorer{err: cerr}
	}
	return nil
}
