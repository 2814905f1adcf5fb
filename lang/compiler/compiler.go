// Package compiler implements the single-pass shyll compiler (spec.md §4.3):
// source text in, one *chunk.Chunk per symbol out, with `!main` as the
// program's entry symbol. Control constructs are lowered with backpatched
// jump placeholders rather than the basic-block/CFG linearization that
// github.com/mna/nenuphar/lang/compiler builds; that approach doesn't fit a
// language with no closures or first-class functions, so the compiler's
// token-stream discipline (Advance/Consume/Error/ErrorAt) is instead grounded
// on original_source/shyll/compiler.cpp, adapted to emit named chunks for
// linking rather than inlining function bodies.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Shylie/shyll/lang/chunk"
	"github.com/Shylie/shyll/lang/scanner"
	"github.com/Shylie/shyll/lang/token"
	"github.com/Shylie/shyll/lang/value"
)

// MainSymbol is the name of the program's entry chunk.
const MainSymbol = "!main"

// Error is a single diagnostic produced while compiling, formatted as
// "[Line L] Error: message" or "[Line L] Error at 'lexeme': message".
type Error struct {
	Line    int
	Lexeme  string
	AtToken bool
	Message string
}

func (e Error) Error() string {
	if !e.AtToken {
		return fmt.Sprintf("[Line %d] Error: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[Line %d] Error at '%s': %s", e.Line, e.Lexeme, e.Message)
}

// CompileError collects every diagnostic produced by a single Compile call.
type CompileError struct {
	Errors []Error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	for i, err := range e.Errors {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Compiler turns a token stream into a table of named chunks. The zero
// Compiler is usable; call Compile to (re-)run it over a source string. A
// Compiler may be reused across calls: each Compile call resets all
// per-run state, matching shyll's REPL use (original_source/shyll/compiler.cpp
// resets its own state between successive top-level Compile invocations).
type Compiler struct {
	sc   scanner.Scanner
	peek token.Token

	symbols       map[string]*chunk.Chunk
	currentName   string
	currentChunk  *chunk.Chunk
	inFunction    bool
	functionStart token.Token

	errs []Error
}

// Compile scans and compiles src, returning the resulting symbol table. If
// any diagnostic was produced, the returned error is a non-nil *CompileError
// and the returned table reflects a best-effort partial compilation
// (diagnostics never stop compilation early, since shyll's compiler has no
// panic-mode recovery window: it always resumes at the very next token).
func (c *Compiler) Compile(src string) (map[string]*chunk.Chunk, error) {
	c.sc.Init(src)
	c.symbols = map[string]*chunk.Chunk{MainSymbol: chunk.New()}
	c.currentName = MainSymbol
	c.currentChunk = c.symbols[MainSymbol]
	c.inFunction = false
	c.errs = nil

	c.primeFirst()
	for {
		tok := c.instruction()
		if tok.Type == token.End {
			break
		}
	}

	if c.inFunction {
		c.errorAt(c.functionStart, "Unterminated function")
	}
	c.endSymbol()

	if len(c.errs) > 0 {
		return c.symbols, &CompileError{Errors: c.errs}
	}
	return c.symbols, nil
}

func (c *Compiler) primeFirst() {
	c.peek = c.sc.Scan()
	for c.peek.Type == token.Error {
		c.errorAt(c.peek, c.peek.Lexeme)
		c.peek = c.sc.Scan()
	}
}

// advance returns the current lookahead token and refills the lookahead by
// scanning ahead, reporting (but not stopping on) any scan errors.
func (c *Compiler) advance() token.Token {
	tok := c.peek
	c.peek = c.sc.Scan()
	for c.peek.Type == token.Error {
		c.errorAt(c.peek, c.peek.Lexeme)
		c.peek = c.sc.Scan()
	}
	return tok
}

func (c *Compiler) errorAt(tok token.Token, message string) {
	c.errs = append(c.errs, Error{
		Line:    tok.Line,
		Lexeme:  tok.Lexeme,
		AtToken: tok.Type != token.Error,
		Message: message,
	})
}

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.peek, message)
}

// endSymbol emits the terminator for whatever symbol is currently open: a
// Return for !main, or a JumpToCallStackAddress for any function symbol
// (spec.md §4.3 "End-of-symbol").
func (c *Compiler) endSymbol() {
	line := c.lastLine()
	if c.currentName == MainSymbol {
		c.currentChunk.WriteOp(chunk.Return, line)
	} else {
		c.currentChunk.WriteOp(chunk.JumpToCallStackAddress, line)
	}
}

func (c *Compiler) lastLine() int {
	if c.peek.Line > 0 {
		return c.peek.Line
	}
	return 1
}

// instruction consumes and compiles exactly one token's worth of source,
// returning that token. Constructs with their own internal loop (if, while,
// counted loop, function declaration) consume further tokens themselves
// before returning.
func (c *Compiler) instruction() token.Token {
	tok := c.advance()

	switch tok.Type {
	case token.Long:
		n, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
		c.emitConstant(value.NewLong(n), tok.Line)
	case token.Double:
		d, _ := strconv.ParseFloat(tok.Lexeme, 64)
		c.emitConstant(value.NewDouble(d), tok.Line)
	case token.String:
		c.emitConstant(value.NewString(tok.Lexeme[1:len(tok.Lexeme)-1]), tok.Line)
	case token.True:
		c.emitConstant(value.NewBool(true), tok.Line)
	case token.False:
		c.emitConstant(value.NewBool(false), tok.Line)

	case token.Add:
		c.currentChunk.WriteOp(chunk.Add, tok.Line)
	case token.Subtract:
		c.currentChunk.WriteOp(chunk.Subtract, tok.Line)
	case token.Multiply:
		c.currentChunk.WriteOp(chunk.Multiply, tok.Line)
	case token.Divide:
		c.currentChunk.WriteOp(chunk.Divide, tok.Line)
	case token.LessThan:
		c.currentChunk.WriteOp(chunk.LessThan, tok.Line)
	case token.LessThanEqual:
		c.currentChunk.WriteOp(chunk.LessThanEqual, tok.Line)
	case token.GreaterThan:
		c.currentChunk.WriteOp(chunk.GreaterThan, tok.Line)
	case token.GreaterThanEqual:
		c.currentChunk.WriteOp(chunk.GreaterThanEqual, tok.Line)
	case token.Equal:
		c.currentChunk.WriteOp(chunk.Equal, tok.Line)
	case token.NotEqual:
		c.currentChunk.WriteOp(chunk.NotEqual, tok.Line)
	case token.And:
		c.currentChunk.WriteOp(chunk.LogicalAnd, tok.Line)
	case token.Or:
		c.currentChunk.WriteOp(chunk.LogicalOr, tok.Line)
	case token.Not:
		c.currentChunk.WriteOp(chunk.LogicalNot, tok.Line)
	case token.Negate:
		c.currentChunk.WriteOp(chunk.Negate, tok.Line)
	case token.AsDoubleKw:
		c.currentChunk.WriteOp(chunk.AsDouble, tok.Line)
	case token.AsLongKw:
		c.currentChunk.WriteOp(chunk.AsLong, tok.Line)
	case token.AsStringKw:
		c.currentChunk.WriteOp(chunk.AsString, tok.Line)
	case token.Duplicate:
		c.currentChunk.WriteOp(chunk.Duplicate, tok.Line)
	case token.Pop:
		c.currentChunk.WriteOp(chunk.Pop, tok.Line)
	case token.Print:
		c.currentChunk.WriteOp(chunk.Print, tok.Line)
	case token.PrintLn:
		c.currentChunk.WriteOp(chunk.PrintLn, tok.Line)
	case token.Trace:
		c.currentChunk.WriteOp(chunk.Trace, tok.Line)
	case token.ShowTraceLog:
		c.currentChunk.WriteOp(chunk.ShowTraceLog, tok.Line)
	case token.ClearTraceLog:
		c.currentChunk.WriteOp(chunk.ClearTraceLog, tok.Line)

	case token.Load:
		c.variableOp(tok, chunk.Load, chunk.LoadLong)
	case token.Store:
		c.variableOp(tok, chunk.Store, chunk.StoreLong)
	case token.Create:
		c.createOp(tok)
	case token.Delete:
		c.variableOp(tok, chunk.Del, chunk.DelLong)

	case token.FunctionCall:
		c.functionCall(tok)
	case token.FunctionHeader:
		c.functionHeader(tok)

	case token.If:
		c.compileIf(tok)
	case token.While:
		c.compileWhile(tok)

	case token.Identifier:
		c.errorAt(tok, "Invalid use of an identifier")

	case token.Do, token.Loop, token.EndIf, token.Else, token.End, token.Error:
		// Not valid instruction-starters outside the constructs that consume
		// them directly; a stray occurrence is silently skipped, mirroring
		// original_source/shyll/compiler.cpp's unhandled-case fallthrough.
	}

	return tok
}

func (c *Compiler) emitConstant(v value.Value, line int) {
	offset, ok := c.currentChunk.AddConstant(v, line, chunk.Constant, chunk.ConstantLong)
	if !ok {
		c.errorAt(token.Token{Line: line}, "Too many constants in one chunk")
		return
	}
	_ = offset
}

// variableOp compiles the prefix forms ( ->name, <-name, --name ) that
// address a variable by its name stringified into the constants pool; Load,
// Store and Delete all require no whitespace between the operator and the
// identifier. spec.md §4.3's prose describes Create/Delete as postfix
// ("name ++", "name --"), but original_source/shyll/compiler.cpp implements
// all four variable ops uniformly as prefix (the switch dispatches on the
// operator token, then Consumes an Identifier) — see DESIGN.md for this
// resolution in the original's favor.
func (c *Compiler) variableOp(opTok token.Token, short, long chunk.Opcode) {
	if c.peek.Type != token.Identifier {
		c.errorAtCurrent("Expected an identifier")
		return
	}
	name := c.advance()
	if name.HadWhitespace {
		c.errorAt(opTok, "Invalid trailing whitespace")
		return
	}
	c.emitVariableConstant(name.Lexeme, opTok.Line, short, long)
}

func (c *Compiler) emitVariableConstant(name string, line int, short, long chunk.Opcode) {
	offset, ok := c.currentChunk.AddConstant(value.NewString(name), line, short, long)
	if !ok {
		c.errorAt(token.Token{Line: line}, "Too many constants in one chunk")
	}
	_ = offset
}

// createOp compiles `++name`: ordinary variable creation, or (if the name
// is immediately followed by `do`) the head of a counted loop.
func (c *Compiler) createOp(opTok token.Token) {
	if c.peek.Type != token.Identifier {
		c.errorAtCurrent("Expected an identifier")
		return
	}
	name := c.advance()
	if name.HadWhitespace {
		c.errorAt(opTok, "Invalid trailing whitespace")
		return
	}

	if c.peek.Type == token.Do {
		c.compileCountedLoop(opTok, name)
		return
	}

	c.emitVariableConstant(name.Lexeme, opTok.Line, chunk.Create, chunk.CreateLong)
}

// compileCountedLoop lowers `++name do ... loop` per spec.md §4.3's
// ten-step sequence, grounded on original_source/shyll/compiler.cpp's
// counted-loop lowering (there operating on an inlined function body; here
// on the current chunk directly, since shyll has no inlining).
func (c *Compiler) compileCountedLoop(createTok, nameTok token.Token) {
	doTok := c.advance() // consume `do`
	boundName := "!" + nameTok.Lexeme

	// 1-2: Create name; Create !name
	c.emitVariableConstant(nameTok.Lexeme, createTok.Line, chunk.Create, chunk.CreateLong)
	c.emitVariableConstant(boundName, createTok.Line, chunk.Create, chunk.CreateLong)
	// 3-4: Store name; Store !name (counter first, then upper bound, matching
	// the order the two values were pushed before `++`: bound beneath counter).
	c.emitVariableConstant(nameTok.Lexeme, createTok.Line, chunk.Store, chunk.StoreLong)
	c.emitVariableConstant(boundName, createTok.Line, chunk.Store, chunk.StoreLong)

	// 5: loop head
	head := c.currentChunk.Len()
	c.emitVariableConstant(boundName, doTok.Line, chunk.Load, chunk.LoadLong)
	c.emitVariableConstant(nameTok.Lexeme, doTok.Line, chunk.Load, chunk.LoadLong)
	c.currentChunk.WriteOp(chunk.GreaterThan, doTok.Line)
	endJump := c.emitJump(chunk.JumpIfFalse, doTok.Line)

	// 6: body, until `loop`
	for {
		if c.peek.Type == token.Loop {
			break
		}
		if c.peek.Type == token.End {
			c.errorAt(createTok, "Unterminated do loop")
			return
		}
		c.instruction()
	}
	loopTok := c.advance() // consume `loop`

	// 7: Load name; Constant 1L; Add; Store name
	c.emitVariableConstant(nameTok.Lexeme, loopTok.Line, chunk.Load, chunk.LoadLong)
	c.emitConstant(value.NewLong(1), loopTok.Line)
	c.currentChunk.WriteOp(chunk.Add, loopTok.Line)
	c.emitVariableConstant(nameTok.Lexeme, loopTok.Line, chunk.Store, chunk.StoreLong)

	// 8: Jump back to head
	back := c.emitJump(chunk.Jump, loopTok.Line)
	c.patchJumpTo(back, head)

	// 9: patch the early-exit jump to land here
	c.patchJumpHere(endJump)

	// 10: Del !name
	c.emitVariableConstant(boundName, loopTok.Line, chunk.Del, chunk.DelLong)
}

// compileWhile lowers `while <cond> do <body> loop`: a no-op marker at the
// head address (the unconditional re-jump target), the condition, a
// JumpIfFalse past the body, the body, an unconditional jump back to the
// head, and a patch of the JumpIfFalse to just past that jump.
func (c *Compiler) compileWhile(whileTok token.Token) {
	head := c.currentChunk.Len()
	c.currentChunk.WriteOp(chunk.None, whileTok.Line)

	for {
		if c.peek.Type == token.Do {
			break
		}
		if c.peek.Type == token.End {
			c.errorAt(whileTok, "Unterminated while statement")
			return
		}
		c.instruction()
	}
	doTok := c.advance() // consume `do`

	endJump := c.emitJump(chunk.JumpIfFalse, doTok.Line)

	for {
		if c.peek.Type == token.Loop {
			break
		}
		if c.peek.Type == token.End {
			c.errorAt(whileTok, "Unterminated while statement")
			return
		}
		c.instruction()
	}
	loopTok := c.advance() // consume `loop`

	back := c.emitJump(chunk.Jump, loopTok.Line)
	c.patchJumpTo(back, head)
	c.patchJumpHere(endJump)
}

// compileIf lowers `if <cond already on stack> do? ... [else ...] endif`.
// Only one `else` is permitted per if; a second is a compile error (spec.md
// §4.3: "multiple else after a patched if are errors"). Nested if is
// supported: each call tracks its own patch state, matching
// original_source/shyll/compiler.cpp's recursive Instruction() calls for
// the body of an if.
func (c *Compiler) compileIf(ifTok token.Token) {
	ifJump := c.emitJump(chunk.JumpIfFalse, ifTok.Line)
	patched := false
	var elseJump int

	for {
		tok := c.instruction()
		switch tok.Type {
		case token.Else:
			if patched {
				c.errorAt(tok, "Invalid else statement")
				continue
			}
			elseJump = c.emitJump(chunk.Jump, tok.Line)
			c.patchJumpHere(ifJump)
			patched = true
		case token.EndIf:
			if patched {
				c.patchJumpHere(elseJump)
			} else {
				c.patchJumpHere(ifJump)
			}
			return
		case token.End:
			c.errorAt(ifTok, "Unterminated if statement")
			return
		}
	}
}

// functionCall compiles `@name`: pushes the return address and an
// unconditional jump whose target the linker resolves from the symbol name
// attached as chunk metadata (spec.md §4.4).
func (c *Compiler) functionCall(atTok token.Token) {
	if c.peek.Type != token.Identifier {
		c.errorAtCurrent("Expected an identifier")
		return
	}
	name := c.advance()
	if name.HadWhitespace {
		c.errorAt(atTok, "Invalid trailing whitespace")
		return
	}
	c.currentChunk.WriteOp(chunk.PushJumpAddress, atTok.Line)
	operand := c.emitJump(chunk.Jump, atTok.Line)
	c.currentChunk.AddMeta(operand, value.NewString(name.Lexeme))
}

// functionHeader toggles between accumulating into a named function and
// accumulating back into !main. The first `:` of a pair requires a
// following identifier (the function's name); the second does not, since it
// unconditionally returns control to !main (spec.md §4.3's "implicit end at
// next `:` or EOF", resolved here as a toggle so that a bare closing `:` can
// be followed directly by further !main instructions — see DESIGN.md).
func (c *Compiler) functionHeader(colonTok token.Token) {
	if c.inFunction {
		c.endSymbol()
		c.currentName = MainSymbol
		c.currentChunk = c.symbols[MainSymbol]
		c.inFunction = false
		return
	}

	if c.peek.Type != token.Identifier {
		c.errorAtCurrent("Expected an identifier")
		return
	}
	name := c.advance()
	if name.HadWhitespace {
		c.errorAt(colonTok, "Invalid trailing whitespace")
		return
	}

	ch, exists := c.symbols[name.Lexeme]
	if !exists {
		ch = chunk.New()
		c.symbols[name.Lexeme] = ch
	}
	c.currentName = name.Lexeme
	c.currentChunk = ch
	c.inFunction = true
	c.functionStart = colonTok
}

// emitJump writes op followed by a placeholder 16-bit operand, returning the
// operand's offset for a later patchJumpHere/patchJumpTo call.
func (c *Compiler) emitJump(op chunk.Opcode, line int) int {
	c.currentChunk.WriteOp(op, line)
	return c.currentChunk.WriteLong(0xFFFF, line)
}

// patchJumpHere patches the jump operand at offset to target the chunk's
// current end.
func (c *Compiler) patchJumpHere(offset int) {
	c.patchJumpTo(offset, c.currentChunk.Len())
}

// patchJumpTo patches the jump operand at offset to a signed displacement
// from the byte following the operand to target.
func (c *Compiler) patchJumpTo(offset, target int) {
	displacement := target - (offset + 2)
	c.currentChunk.ModifyLong(offset, uint16(int16(displacement)))
}
