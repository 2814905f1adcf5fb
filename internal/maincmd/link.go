package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/Shylie/shyll/lang/compiler"
	"github.com/Shylie/shyll/lang/linker"
)

// Link compiles and links the file named by args[0], printing the merged
// chunk's bytecode listing to stdout.
func (c *Cmd) Link(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return &fileError{err: err}
	}

	merged, lerr := linker.Link(string(src), nil)
	if lerr != nil {
		fmt.Fprintln(stdio.Stderr, lerr)
		if _, ok := lerr.(*compiler.CompileError); ok {
			return &compileErrorer{err: lerr}
		}
		return &linkErrorer{err: lerr}
	}

	merged.Disassemble(stdio.Stdout, "code")
	return nil
}
