// Package linker implements the shyll linker (spec.md §4.4): it compiles
// source text via lang/compiler, concatenates the resulting per-symbol
// chunks into one flat chunk with !main first, and resolves every
// constant-index and call-site placeholder the compiler left behind as
// chunk metadata. Grounded on original_source/shyll/linker.cpp's Link
// method, extended with the sorted-iteration-order and builtin-symbol
// mechanisms SPEC_FULL.md §3/§4.4 add.
package linker

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/Shylie/shyll/lang/chunk"
	"github.com/Shylie/shyll/lang/compiler"
	"github.com/Shylie/shyll/lang/value"
)

// Error reports a linker-stage failure: a name collision with a builtin, or
// a call site naming a symbol that resolves to nothing.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// BuiltinSymbol is a synthetic symbol the linker can materialize on demand
// for a call site the compiled program references but never defines
// (SPEC_FULL.md §4.4's graphics/input hook). IsOp selects the form: if true,
// Op synthesizes `<Op>; JumpToCallStackAddress`; otherwise Const synthesizes
// `Constant <Const>; JumpToCallStackAddress`.
type BuiltinSymbol struct {
	Op    chunk.Opcode
	Const value.Value
	IsOp  bool
}

// Link compiles src and merges its symbols into one chunk, resolving every
// jump and constant-index placeholder. builtins may be nil.
func Link(src string, builtins map[string]BuiltinSymbol) (*chunk.Chunk, error) {
	var c compiler.Compiler
	symbols, err := c.Compile(src)
	if err != nil {
		return nil, err
	}
	return link(symbols, builtins)
}

func link(symbols map[string]*chunk.Chunk, builtins map[string]BuiltinSymbol) (*chunk.Chunk, error) {
	out := symbols[compiler.MainSymbol]
	if out == nil {
		out = chunk.New()
	}

	names := make([]string, 0, len(symbols))
	for name := range symbols {
		if name == compiler.MainSymbol {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)

	locs := make(map[string]int, len(names)+len(builtins))
	linkedBuiltins := make(map[string]bool, len(builtins))

	for _, name := range names {
		locs[name] = out.Append(symbols[name])
	}

	for name := range builtins {
		if _, exists := symbols[name]; exists {
			return nil, &Error{Message: fmt.Sprintf("Function '%s' already exists", name)}
		}
	}

	materialize := func(name string) (int, bool) {
		b, ok := builtins[name]
		if !ok {
			return 0, false
		}
		scratch := chunk.New()
		if b.IsOp {
			scratch.WriteOp(b.Op, 0)
		} else {
			scratch.AddConstant(b.Const, 0, chunk.Constant, chunk.ConstantLong)
		}
		scratch.WriteOp(chunk.JumpToCallStackAddress, 0)
		loc := out.Append(scratch)
		locs[name] = loc
		linkedBuiltins[name] = true
		return loc, true
	}

	for i := 0; i < out.Len(); i++ {
		meta, ok := out.GetMeta(i)
		if !ok {
			continue
		}
		name, isString := meta.AsString()
		if !isString {
			continue
		}

		if name == "!constant" {
			if v, ok := out.GetMeta(i + 1); ok {
				out.ModifyConstant(i+1, v)
			}
			i++
			continue
		}

		if loc, ok := locs[name]; ok {
			out.ModifyLong(i, uint16(int16(loc-i-2)))
			continue
		}

		if loc, ok := materialize(name); ok {
			out.ModifyLong(i, uint16(int16(loc-i-2)))
			continue
		}

		return nil, &Error{Message: fmt.Sprintf("Undefined function '%s'", name)}
	}

	return out, nil
}
