// Package vm implements the shyll stack machine (spec.md §4.5): a tight
// fetch-decode-execute loop over a linked chunk, an operand stack, a
// return-address stack, a name-keyed globals table, and a trace log.
// Grounded on original_source/shyll/vm.cpp's dispatch loop and error
// message text, adapted to the flat lang/value.Value sum and to
// github.com/dolthub/swiss's generic hash map for globals (in place of
// the source's std::map), following the teacher's (mna-nenuphar) use of
// the same package for its own globals-like tables.
package vm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dolthub/swiss"

	"github.com/Shylie/shyll/lang/chunk"
	"github.com/Shylie/shyll/lang/linker"
	"github.com/Shylie/shyll/lang/value"
)

// StackMax is the fixed capacity of the operand stack.
const StackMax = 512

// Result classifies how Interpret ended.
type Result int

const (
	Ok Result = iota
	CompileError
	LinkerError
	RuntimeError
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "ok"
	case CompileError:
		return "compile error"
	case LinkerError:
		return "linker error"
	case RuntimeError:
		return "runtime error"
	default:
		return "unknown result"
	}
}

// VM executes one linked chunk at a time. Construct one with New; the zero
// VM has no globals table and no output writers. Globals persist across Interpret calls (REPL mode) until Cleanup clears
// them.
type VM struct {
	Stdout io.Writer
	Stderr io.Writer

	chunk    *chunk.Chunk
	ip       int
	stack    [StackMax]value.Value
	stackTop int
	calls    []int
	globals  *swiss.Map[string, value.Value]
	traceLog strings.Builder
	err      value.Value

	Builtins map[string]linker.BuiltinSymbol
}

// New returns a ready-to-use VM writing Print/PrintLn/ShowTraceLog output to
// stdout and diagnostics to stderr.
func New(stdout, stderr io.Writer) *VM {
	return &VM{
		Stdout:  stdout,
		Stderr:  stderr,
		globals: swiss.NewMap[string, value.Value](16),
	}
}

// ErrorMessage returns the message set by the most recent failing Interpret
// call.
func (vm *VM) ErrorMessage() string {
	s, _ := vm.err.AsString()
	return s
}

// Cleanup resets the operand stack, return-address stack, trace log and
// error slot, and (if clearGlobals) the globals table (spec.md §3/§5).
func (vm *VM) Cleanup(clearGlobals bool) {
	vm.stackTop = 0
	vm.calls = vm.calls[:0]
	vm.traceLog.Reset()
	vm.err = value.Nil
	if clearGlobals {
		vm.globals = swiss.NewMap[string, value.Value](16)
	}
}

// Interpret links and executes src, reusing globals left over from a prior
// call. It resets the operand stack, return-address stack, trace log, and
// error slot on entry (spec.md §5), but never the globals table — callers
// wanting a clean slate call Cleanup(true) first.
func (vm *VM) Interpret(ctx context.Context, src string) Result {
	vm.Cleanup(false)

	merged, err := linker.Link(src, vm.Builtins)
	if err != nil {
		if _, ok := err.(*linker.Error); ok {
			vm.err = value.NewString(err.Error())
			return LinkerError
		}
		vm.err = value.NewString(err.Error())
		return CompileError
	}

	vm.chunk = merged
	vm.ip = 0
	return vm.run(ctx)
}

func (vm *VM) run(ctx context.Context) Result {
	for {
		select {
		case <-ctx.Done():
			vm.fail("Interpreter cancelled")
			return RuntimeError
		default:
		}

		if vm.ip >= vm.chunk.Len() {
			vm.fail("Program counter ran past the end of the program")
			return RuntimeError
		}

		op := chunk.Opcode(vm.chunk.Read(vm.ip))
		vm.ip++

		switch op {
		case chunk.Return:
			return Ok

		case chunk.Constant:
			idx := uint16(vm.chunk.Read(vm.ip))
			vm.ip++
			if res := vm.pushConstant(idx); res != Ok {
				return res
			}

		case chunk.ConstantLong:
			idx := vm.chunk.ReadLong(vm.ip)
			vm.ip += 2
			if res := vm.pushConstant(idx); res != Ok {
				return res
			}

		case chunk.Store:
			name := vm.constantNameShort()
			if res := vm.store(name); res != Ok {
				return res
			}
		case chunk.StoreLong:
			name := vm.constantNameLong()
			if res := vm.store(name); res != Ok {
				return res
			}

		case chunk.Load:
			name := vm.constantNameShort()
			if res := vm.load(name); res != Ok {
				return res
			}
		case chunk.LoadLong:
			name := vm.constantNameLong()
			if res := vm.load(name); res != Ok {
				return res
			}

		case chunk.Del:
			name := vm.constantNameShort()
			vm.globals.Delete(name)
		case chunk.DelLong:
			name := vm.constantNameLong()
			vm.globals.Delete(name)

		case chunk.Create:
			name := vm.constantNameShort()
			vm.create(name)
		case chunk.CreateLong:
			name := vm.constantNameLong()
			vm.create(name)

		case chunk.AsDouble:
			if res := vm.convertTop(value.ToDouble, "double"); res != Ok {
				return res
			}
		case chunk.AsLong:
			if res := vm.convertTop(value.ToLong, "long"); res != Ok {
				return res
			}
		case chunk.AsString:
			if res := vm.convertTop(value.ToStringValue, "string"); res != Ok {
				return res
			}

		case chunk.Add:
			if res := vm.binary(value.Add, "add"); res != Ok {
				return res
			}
		case chunk.Subtract:
			if res := vm.binary(value.Sub, "sub"); res != Ok {
				return res
			}
		case chunk.Multiply:
			if res := vm.binary(value.Mul, "mul"); res != Ok {
				return res
			}
		case chunk.Divide:
			if res := vm.binary(value.Div, "div"); res != Ok {
				return res
			}
		case chunk.LessThan:
			if res := vm.binary(value.Lt, "lt"); res != Ok {
				return res
			}
		case chunk.LessThanEqual:
			if res := vm.binary(value.Le, "lte"); res != Ok {
				return res
			}
		case chunk.GreaterThan:
			if res := vm.binary(value.Gt, "gt"); res != Ok {
				return res
			}
		case chunk.GreaterThanEqual:
			if res := vm.binary(value.Ge, "gte"); res != Ok {
				return res
			}
		case chunk.Equal:
			if res := vm.binary(value.Eq, "eq"); res != Ok {
				return res
			}
		case chunk.NotEqual:
			if res := vm.binary(value.Neq, "neq"); res != Ok {
				return res
			}
		case chunk.LogicalAnd:
			if res := vm.binary(value.And, "and"); res != Ok {
				return res
			}
		case chunk.LogicalOr:
			if res := vm.binary(value.Or, "or"); res != Ok {
				return res
			}

		case chunk.LogicalNot:
			if res := vm.unary(value.Not, "not"); res != Ok {
				return res
			}
		case chunk.Negate:
			if res := vm.unary(value.Negate, "neg"); res != Ok {
				return res
			}

		case chunk.Duplicate:
			if vm.stackTop < 1 {
				vm.fail("No value on stack to duplicate")
				return RuntimeError
			}
			if res := vm.push(vm.stack[vm.stackTop-1]); res != Ok {
				return res
			}

		case chunk.Pop:
			if vm.stackTop < 1 {
				vm.fail("No value on stack to pop")
				return RuntimeError
			}
			vm.stackTop--

		case chunk.Print:
			if vm.stackTop < 1 {
				vm.fail("No value on the stack to print")
				return RuntimeError
			}
			fmt.Fprint(vm.Stdout, vm.pop())

		case chunk.PrintLn:
			if vm.stackTop < 1 {
				vm.fail("No value on the stack to print")
				return RuntimeError
			}
			fmt.Fprintln(vm.Stdout, vm.pop())

		case chunk.Trace:
			if vm.stackTop < 1 {
				vm.fail("No value on the stack to trace")
				return RuntimeError
			}
			vm.traceLog.WriteString(vm.stack[vm.stackTop-1].String())
			vm.traceLog.WriteByte('\n')

		case chunk.ShowTraceLog:
			fmt.Fprint(vm.Stdout, vm.traceLog.String())

		case chunk.ClearTraceLog:
			vm.traceLog.Reset()

		case chunk.Jump:
			offset := int16(vm.chunk.ReadLong(vm.ip))
			vm.ip += 2
			vm.ip += int(offset)

		case chunk.JumpIfFalse:
			if vm.stackTop < 1 {
				vm.fail("No value on the stack for a conditional statement")
				return RuntimeError
			}
			offset := int16(vm.chunk.ReadLong(vm.ip))
			vm.ip += 2
			cond := vm.pop()
			b, ok := cond.AsBool()
			if !ok {
				vm.fail("Invalid arguments for conditional")
				return RuntimeError
			}
			if !b {
				vm.ip += int(offset)
			}

		case chunk.PushJumpAddress:
			vm.calls = append(vm.calls, vm.ip+3)

		case chunk.JumpToCallStackAddress:
			if len(vm.calls) == 0 {
				vm.fail("Call stack is empty, cannot jump")
				return RuntimeError
			}
			vm.ip = vm.calls[len(vm.calls)-1]
			vm.calls = vm.calls[:len(vm.calls)-1]

		case chunk.None:
			// no-op marker

		default:
			vm.fail(fmt.Sprintf("Unknown opcode %d", byte(op)))
			return RuntimeError
		}
	}
}

func (vm *VM) pushConstant(idx uint16) Result {
	c := vm.chunk.ReadConstant(idx)
	if !c.Valid() {
		vm.fail(fmt.Sprintf("Invalid constant pushed to stack: '%s'", c))
		return RuntimeError
	}
	return vm.push(c)
}

func (vm *VM) constantNameShort() string {
	idx := uint16(vm.chunk.Read(vm.ip))
	vm.ip++
	s, _ := vm.chunk.ReadConstant(idx).AsString()
	return s
}

func (vm *VM) constantNameLong() string {
	idx := vm.chunk.ReadLong(vm.ip)
	vm.ip += 2
	s, _ := vm.chunk.ReadConstant(idx).AsString()
	return s
}

func (vm *VM) store(name string) Result {
	if vm.stackTop < 1 {
		vm.fail(fmt.Sprintf("Not enough values on stack to store into variable '%s'", name))
		return RuntimeError
	}
	if _, ok := vm.globals.Get(name); !ok {
		vm.fail(fmt.Sprintf("Undeclared variable '%s'", name))
		return RuntimeError
	}
	vm.globals.Put(name, vm.pop())
	return Ok
}

func (vm *VM) load(name string) Result {
	v, ok := vm.globals.Get(name)
	if !ok {
		vm.fail(fmt.Sprintf("Undeclared variable '%s'", name))
		return RuntimeError
	}
	return vm.push(v)
}

func (vm *VM) create(name string) {
	if _, ok := vm.globals.Get(name); !ok {
		vm.globals.Put(name, value.Nil)
	}
}

func (vm *VM) convertTop(f func(value.Value) value.Value, label string) Result {
	if vm.stackTop < 1 {
		vm.fail("No value on the stack to convert")
		return RuntimeError
	}
	result := f(vm.stack[vm.stackTop-1])
	if !result.Valid() {
		vm.fail(fmt.Sprintf("Invalid conversion to %s", label))
		return RuntimeError
	}
	vm.stack[vm.stackTop-1] = result
	return Ok
}

func (vm *VM) binary(f func(a, b value.Value) value.Value, name string) Result {
	if vm.stackTop < 2 {
		vm.fail(fmt.Sprintf("Not enough values on stack to perform operation '%s'", name))
		return RuntimeError
	}
	b := vm.pop()
	a := vm.pop()
	result := f(a, b)
	if !result.Valid() {
		vm.fail(fmt.Sprintf("Invalid arguments for operation '%s'", name))
		return RuntimeError
	}
	return vm.push(result)
}

func (vm *VM) unary(f func(value.Value) value.Value, name string) Result {
	if vm.stackTop < 1 {
		vm.fail(fmt.Sprintf("Not enough values on stack to perform operation '%s'", name))
		return RuntimeError
	}
	a := vm.pop()
	result := f(a)
	if !result.Valid() {
		vm.fail(fmt.Sprintf("Invalid arguments for operation '%s'", name))
		return RuntimeError
	}
	return vm.push(result)
}

func (vm *VM) push(v value.Value) Result {
	if vm.stackTop >= StackMax {
		vm.fail("Operand stack overflow")
		return RuntimeError
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
	return Ok
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

// fail records message as the VM's error slot, prefixed with a call-stack
// trace (spec.md §7): one `[Line L] @<name-if-known>` line per pending
// return address, followed by `[Line L] <message>` for the faulting
// instruction. Symbol names for pending frames aren't retained post-link, so
// frames are reported by line only, consistent with how the merged chunk's
// meta no longer carries symbol names once resolved.
func (vm *VM) fail(message string) {
	var b strings.Builder
	for _, addr := range vm.calls {
		fmt.Fprintf(&b, "[Line %d] @\n", vm.chunk.ReadLine(addr))
	}
	fmt.Fprintf(&b, "[Line %d] %s", vm.chunk.ReadLine(vm.ip-1), message)
	vm.err = value.NewString(b.String())
}
