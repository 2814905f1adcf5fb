package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/Shylie/shyll/internal/diag"
	"github.com/Shylie/shyll/lang/vm"
)

// Run links and executes the file named by args[0], or starts an
// interactive REPL over stdin/stdout when no path is given. It returns the
// spec.md §6 exit code directly rather than an error, so Main dispatches it
// itself instead of going through buildCmds and classify.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) mainer.ExitCode {
	logger := diag.New(stdio.Stderr, c.Debug)

	if len(args) == 0 {
		return REPL(ctx, stdio, logger)
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return ExitFileError
	}

	machine := vm.New(stdio.Stdout, stdio.Stderr)
	return runOnce(ctx, machine, string(src), stdio, logger)
}

func runOnce(ctx context.Context, machine *vm.VM, src string, stdio mainer.Stdio, logger *diag.Logger) mainer.ExitCode {
	result := machine.Interpret(ctx, src)
	logger.Debugf("interpret result: %s", result)

	switch result {
	case vm.Ok:
		return ExitSuccess
	case vm.CompileError:
		fmt.Fprintln(stdio.Stderr, machine.ErrorMessage())
		return ExitCompileError
	case vm.LinkerError:
		fmt.Fprintln(stdio.Stderr, machine.ErrorMessage())
		return ExitLinkerError
	default:
		fmt.Fprintln(stdio.Stderr, machine.ErrorMessage())
		return ExitRuntimeError
	}
}

// REPL reads one line of source at a time from stdio.Stdin, compiling and
// running each against a VM whose globals persist across lines, until EOF.
// It is exported as a library function so embedders can offer the same
// read-eval-print loop without going through Cmd.Main, mirroring how the
// teacher exposes its tokenize/parse commands as standalone functions.
func REPL(ctx context.Context, stdio mainer.Stdio, logger *diag.Logger) mainer.ExitCode {
	machine := vm.New(stdio.Stdout, stdio.Stderr)
	scanner := bufio.NewScanner(stdio.Stdin)

	fmt.Fprint(stdio.Stderr, "> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			runOnce(ctx, machine, line, stdio, logger)
		}
		fmt.Fprint(stdio.Stderr, "> ")
	}
	fmt.Fprintln(stdio.Stderr)
	return ExitSuccess
}
