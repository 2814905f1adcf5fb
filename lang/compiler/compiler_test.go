package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shylie/shyll/lang/chunk"
)

func compile(t *testing.T, src string) map[string]*chunk.Chunk {
	t.Helper()
	var c Compiler
	symbols, err := c.Compile(src)
	require.NoError(t, err)
	return symbols
}

func TestDirectEmission(t *testing.T) {
	symbols := compile(t, "1 2 add println")
	main := symbols[MainSymbol]
	require.Equal(t, byte(chunk.Constant), main.Read(0))
	require.Equal(t, byte(chunk.Constant), main.Read(2))
	require.Equal(t, byte(chunk.Add), main.Read(4))
	require.Equal(t, byte(chunk.PrintLn), main.Read(5))
	require.Equal(t, byte(chunk.Return), main.Read(6))
}

func TestMainEndsWithReturn(t *testing.T) {
	symbols := compile(t, "1 pop")
	main := symbols[MainSymbol]
	require.Equal(t, byte(chunk.Return), main.Read(main.Len()-1))
}

// Load, Store, Create and Delete are all prefix forms (operator token
// first, identifier immediately after): ++name, --name, ->name, <-name.
func TestVariableOps(t *testing.T) {
	symbols := compile(t, "++x 5 <-x ->x println --x")
	main := symbols[MainSymbol]
	require.Equal(t, byte(chunk.Create), main.Read(0))
}

func TestVariableOpRejectsWhitespace(t *testing.T) {
	var c Compiler
	_, err := c.Compile("++ x")
	require.Error(t, err)

	c = Compiler{}
	_, err = c.Compile("-> x")
	require.Error(t, err)
}

func TestVariableOpsNoWhitespaceSucceed(t *testing.T) {
	var c Compiler
	_, err := c.Compile("++x")
	require.NoError(t, err)

	c = Compiler{}
	_, err = c.Compile("->x")
	require.NoError(t, err)
}

func TestFunctionDeclarationAndCall(t *testing.T) {
	symbols := compile(t, `:greet "hello" println : @greet @greet`)
	require.Contains(t, symbols, "greet")
	greet := symbols["greet"]
	require.Equal(t, byte(chunk.JumpToCallStackAddress), greet.Read(greet.Len()-1))

	main := symbols[MainSymbol]
	require.Equal(t, byte(chunk.PushJumpAddress), main.Read(0))
	require.Equal(t, byte(chunk.Jump), main.Read(1))
}

func TestCountedLoopLowering(t *testing.T) {
	symbols := compile(t, "++i do dup println loop")
	main := symbols[MainSymbol]
	// Create i; Create !i; Store i; Store !i; Load !i; Load i; GreaterThan; JumpIfFalse...
	require.Equal(t, byte(chunk.Create), main.Read(0))
	require.Equal(t, byte(chunk.Create), main.Read(2))
	require.Equal(t, byte(chunk.Store), main.Read(4))
	require.Equal(t, byte(chunk.Store), main.Read(6))
	require.Equal(t, byte(chunk.Load), main.Read(8))
	require.Equal(t, byte(chunk.Load), main.Read(10))
	require.Equal(t, byte(chunk.GreaterThan), main.Read(12))
	require.Equal(t, byte(chunk.JumpIfFalse), main.Read(13))
}

func TestWhileLoopLowering(t *testing.T) {
	symbols := compile(t, "++x while dup do pop loop")
	main := symbols[MainSymbol]
	// Create x; while head: None; ... condition ...; do: JumpIfFalse
	require.Equal(t, byte(chunk.Create), main.Read(0))
	require.Equal(t, byte(chunk.None), main.Read(2))
}

func TestIfElseLowering(t *testing.T) {
	symbols := compile(t, "true if 1 println else 2 println endif")
	main := symbols[MainSymbol]
	require.Equal(t, byte(chunk.Constant), main.Read(0)) // true
	require.Equal(t, byte(chunk.JumpIfFalse), main.Read(2))
}

func TestNestedIfIsSupported(t *testing.T) {
	_, err := (&Compiler{}).Compile("true if true if 1 println endif endif")
	require.NoError(t, err)
}

func TestMultipleElseIsError(t *testing.T) {
	var c Compiler
	_, err := c.Compile("true if 1 else 2 else 3 endif")
	require.Error(t, err)
	ce, ok := err.(*CompileError)
	require.True(t, ok)
	require.NotEmpty(t, ce.Errors)
}

func TestIdentifierAsInstructionIsError(t *testing.T) {
	var c Compiler
	_, err := c.Compile("somename")
	require.Error(t, err)
}

func TestErrorFormatting(t *testing.T) {
	var c Compiler
	_, err := c.Compile("somename")
	require.Contains(t, err.Error(), "Error at 'somename'")
}

func TestReuseAcrossCompileCalls(t *testing.T) {
	var c Compiler
	_, err := c.Compile("1 pop")
	require.NoError(t, err)
	symbols, err := c.Compile("true pop")
	require.NoError(t, err)
	main := symbols[MainSymbol]
	require.Equal(t, byte(chunk.Constant), main.Read(0))
}

func TestRepeatedLiteralDedupsToOneConstant(t *testing.T) {
	var src string
	for i := 0; i < 300; i++ {
		src += "1 pop "
	}
	var c Compiler
	symbols, err := c.Compile(src)
	require.NoError(t, err)
	main := symbols[MainSymbol]
	require.Len(t, main.Constants, 1, "same literal value dedups to one constant")
}

func TestUnterminatedFunctionIsError(t *testing.T) {
	var c Compiler
	_, err := c.Compile(":greet \"hello\" println")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unterminated function")
}

func TestUnterminatedIfIsError(t *testing.T) {
	var c Compiler
	_, err := c.Compile("true if 1 println")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unterminated if statement")
}

func TestUnterminatedCountedLoopIsError(t *testing.T) {
	var c Compiler
	_, err := c.Compile("0 ++i do 1 println")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unterminated do loop")
}

func TestUnterminatedWhileIsError(t *testing.T) {
	var c Compiler
	_, err := c.Compile("true while dup do pop")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unterminated while statement")
}
