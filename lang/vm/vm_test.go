package vm

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) (string, Result, *VM) {
	t.Helper()
	var out, errOut strings.Builder
	machine := New(&out, &errOut)
	res := machine.Interpret(context.Background(), src)
	return out.String(), res, machine
}

func TestAddAndPrintLn(t *testing.T) {
	out, res, _ := run(t, "1 2 add println")
	require.Equal(t, Ok, res)
	require.Equal(t, "3\n", out)
}

func TestStringConcatAndPrintLn(t *testing.T) {
	out, res, _ := run(t, `"hi " "there" add println`)
	require.Equal(t, Ok, res)
	require.Equal(t, "hi there\n", out)
}

func TestIfElse(t *testing.T) {
	// a < b per value.Lt's pop-order (pop b, then a, push a op b): pushing 3
	// then 5 takes the then-branch.
	out, res, _ := run(t, `3 ++i <-i ->i 5 lt if "small" println else "big" println endif`)
	require.Equal(t, Ok, res)
	require.Equal(t, "small\n", out)
}

func TestCountedLoopPrintsThreeTimes(t *testing.T) {
	// Counted-loop lowering pops the initial counter first, then the upper
	// bound, so the bound is pushed before the counter.
	out, res, _ := run(t, `3 0 ++count do "x" println loop`)
	require.Equal(t, Ok, res)
	require.Equal(t, "x\nx\nx\n", out)
}

func TestFunctionCallExample(t *testing.T) {
	out, res, _ := run(t, `:greet "hello" println : @greet @greet`)
	require.Equal(t, Ok, res)
	require.Equal(t, "hello\nhello\n", out)
}

func TestLogicalAnd(t *testing.T) {
	out, res, _ := run(t, "true false and println")
	require.Equal(t, Ok, res)
	require.Equal(t, "false\n", out)
}

func TestStackUnderflowOnAdd(t *testing.T) {
	_, res, machine := run(t, "1 add")
	require.Equal(t, RuntimeError, res)
	require.Contains(t, machine.ErrorMessage(), "Not enough values on stack to perform operation 'add'")
}

func TestStackUnderflowOnPop(t *testing.T) {
	_, res, machine := run(t, "pop")
	require.Equal(t, RuntimeError, res)
	require.Contains(t, machine.ErrorMessage(), "No value on stack to pop")
}

func TestLoadUndeclaredVariable(t *testing.T) {
	_, res, machine := run(t, "->missing println")
	require.Equal(t, RuntimeError, res)
	require.Contains(t, machine.ErrorMessage(), "Undeclared variable 'missing'")
}

func TestStoreUndeclaredVariable(t *testing.T) {
	_, res, machine := run(t, "1 <-missing")
	require.Equal(t, RuntimeError, res)
	require.Contains(t, machine.ErrorMessage(), "Undeclared variable 'missing'")
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	_, res, _ := run(t, "--nothere")
	require.Equal(t, Ok, res)
}

func TestCreateIsIdempotent(t *testing.T) {
	out, res, _ := run(t, "++x 7 <-x ++x ->x println")
	require.Equal(t, Ok, res)
	require.Equal(t, "7\n", out)
}

func TestGlobalsPersistAcrossInterpretCalls(t *testing.T) {
	var out strings.Builder
	machine := New(&out, &out)

	res := machine.Interpret(context.Background(), "++x 9 <-x")
	require.Equal(t, Ok, res)

	res = machine.Interpret(context.Background(), "->x println")
	require.Equal(t, Ok, res)
	require.Equal(t, "9\n", out.String())
}

func TestCleanupClearsGlobals(t *testing.T) {
	var out strings.Builder
	machine := New(&out, &out)

	res := machine.Interpret(context.Background(), "++x 9 <-x")
	require.Equal(t, Ok, res)

	machine.Cleanup(true)

	res = machine.Interpret(context.Background(), "->x println")
	require.Equal(t, RuntimeError, res)
}

func TestCreateLongAndDelLongBehaveLikeShortForms(t *testing.T) {
	var src strings.Builder
	for i := 0; i < 260; i++ {
		fmt.Fprintf(&src, "%d pop ", i)
	}
	src.WriteString("++x 42 <-x ->x println --x ->x println")

	_, res, machine := run(t, src.String())
	require.Equal(t, RuntimeError, res)
	require.Contains(t, machine.ErrorMessage(), "Undeclared variable 'x'")
}

func TestContextCancellationStopsExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out strings.Builder
	machine := New(&out, &out)
	res := machine.Interpret(ctx, "1 pop")
	require.Equal(t, RuntimeError, res)
	require.Contains(t, machine.ErrorMessage(), "Interpreter cancelled")
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	_, res, machine := run(t, "1 0 div")
	require.Equal(t, RuntimeError, res)
	require.Contains(t, machine.ErrorMessage(), "Invalid arguments for operation 'div'")
}

func TestTraceLogFlush(t *testing.T) {
	out, res, _ := run(t, "5 trace pop showtracelog")
	require.Equal(t, Ok, res)
	require.Equal(t, "5\n", out)
}

func TestCompileErrorPropagatesFromInterpret(t *testing.T) {
	_, res, _ := run(t, "somename")
	require.Equal(t, CompileError, res)
}

func TestLinkerErrorPropagatesFromInterpret(t *testing.T) {
	_, res, machine := run(t, "@nope")
	require.Equal(t, LinkerError, res)
	require.Contains(t, machine.ErrorMessage(), "Undefined function 'nope'")
}
