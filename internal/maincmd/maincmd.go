// Package maincmd implements the shyll CLI: argument parsing and dispatch
// for the tokenize, disassemble, link, and run subcommands. Grounded on
// github.com/mna/nenuphar/internal/maincmd's Cmd struct (mainer.Parser with
// flag-tagged fields, CancelOnSignal, reflection-based command dispatch),
// adapted for shyll's small, non-file-set pipeline and its five-way exit
// code contract (spec.md §6), which the teacher's generic
// Success/Failure/InvalidArgs mapping can't express on its own.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "shyll"

// Exit codes per spec.md §6.
const (
	ExitSuccess      mainer.ExitCode = 0
	ExitCompileError mainer.ExitCode = 1
	ExitLinkerError  mainer.ExitCode = 2
	ExitRuntimeError mainer.ExitCode = 3
	ExitFileError    mainer.ExitCode = -1
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...]
       %[1]s -h|--help
       %[1]s -v|--version

Toolchain and runtime for the shyll stack-oriented language.

The <command> can be one of:
       tokenize     <path>        Scan a source file and print its tokens.
       disassemble  <path>        Compile a source file and print a
                                  per-symbol bytecode listing.
       link         <path>        Link a source file and print the merged
                                  chunk's bytecode listing.
       run          [<path>]      Link and execute a source file, or start
                                  an interactive REPL if no path is given.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --debug                   Emit verbose diagnostics to stderr.
`, binName)
)

// Cmd is the shyll command-line entry point. Each exported method matching
// the dispatch signature (ctx, stdio, args) error becomes a subcommand named
// after the method, lowercased, as in the teacher's buildCmds.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	Debug   bool `flag:"debug"`

	args  []string
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil && cmdName != "run" {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	if cmdName != "run" && len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: a file path must be provided", cmdName)
	}

	return nil
}

// Main parses args and dispatches to the named subcommand, returning a
// spec.md §6 exit code. The `run` subcommand is special-cased to surface
// its full compile/link/runtime-error/success distinction; every other
// subcommand's error is mapped to an exit code by classify.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	if c.args[0] == "run" {
		return c.Run(ctx, stdio, c.args[1:])
	}

	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		return classify(err)
	}
	return ExitSuccess
}

// classify maps a subcommand error to one of spec.md §6's exit codes.
func classify(err error) mainer.ExitCode {
	switch {
	case errors.As(err, new(*fileError)):
		return ExitFileError
	case errors.As(err, new(*compileErrorer)):
		return ExitCompileError
	case errors.As(err, new(*linkErrorer)):
		return ExitLinkerError
	default:
		return ExitRuntimeError
	}
}

// fileError wraps a failure to open or read a source file.
type fileError struct{ err error }

func (e *fileError) Error() string { return e.err.Error() }
func (e *fileError) Unwrap() error { return e.err }

// compileErrorer and linkErrorer let classify distinguish the compiler's and
// linker's error types without this package importing them for their
// concrete type alone; see run.go, disassemble.go, and link.go, which wrap
// errors into these before returning.
type compileErrorer struct{ err error }

func (e *compileErrorer) Error() string { return e.err.Error() }
func (e *compileErrorer) Unwrap() error { return e.err }

type linkErrorer struct{ err error }

func (e *linkErrorer) Error() string { return e.err.Error() }
func (e *linkErrorer) Unwrap() error { return e.err }

func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
