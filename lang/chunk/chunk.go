// Package chunk implements Chunk, the append-only bytecode buffer shared by
// the compiler, linker, and VM (spec.md §3, §4.2).
package chunk

import (
	"fmt"
	"io"
	"math"

	"github.com/Shylie/shyll/lang/value"
)

// U16Max is the largest index representable by a *Long constant operand,
// and the bound on the number of distinct constants a chunk may hold.
const U16Max = math.MaxUint16

// lineRun is one entry of the run-length-encoded line table: the next len
// code bytes all originate from source line line.
type lineRun struct {
	len  int
	line int
}

// Chunk is an append-only byte buffer holding bytecode, a deduplicated
// constants pool, a run-length-encoded offset→line table, and an
// offset→metadata side table used by the compiler and linker.
type Chunk struct {
	Code      []byte
	Constants []value.Value

	lines []lineRun
	meta  map[int]value.Value
}

// New returns an empty Chunk.
func New() *Chunk {
	return &Chunk{meta: make(map[int]value.Value)}
}

// Len returns the number of bytecode bytes written so far.
func (c *Chunk) Len() int { return len(c.Code) }

// Write appends a single byte, attributing it to line, and returns its
// offset.
func (c *Chunk) Write(b byte, line int) int {
	c.Code = append(c.Code, b)
	c.writeLine(line)
	return len(c.Code) - 1
}

// WriteOp appends an opcode byte, attributing it to line, and returns its
// offset.
func (c *Chunk) WriteOp(op Opcode, line int) int {
	return c.Write(byte(op), line)
}

// WriteLong appends a big-endian 16-bit word, attributing both bytes to
// line, and returns the offset of the first byte.
func (c *Chunk) WriteLong(word uint16, line int) int {
	c.Code = append(c.Code, byte(word>>8), byte(word))
	c.writeLine(line)
	c.writeLine(line)
	return len(c.Code) - 2
}

// constantMarker is the meta sentinel value the linker looks for (spec.md
// §4.3 "Constant tracking for linking", §4.4 step 5).
var constantMarker = value.NewString("!constant")

// AddConstant searches the constants pool for a value semantically equal to
// v. If found at index i, it emits opShort+i (i<=255) or opLong+i
// (i>255). If not found, it appends v to the pool (failing with ok=false if
// the pool is already at its U16Max capacity) and emits accordingly. It also
// attaches the !constant linker protocol metadata at the emitted opcode's
// offset (meta[k]="!constant", meta[k+1]=v), so that a linker merging this
// chunk with others can re-home the index into a shared pool. It returns the
// offset of the emitted opcode and whether the emission succeeded.
func (c *Chunk) AddConstant(v value.Value, line int, opShort, opLong Opcode) (offset int, ok bool) {
	offset = len(c.Code)
	for i, existing := range c.Constants {
		if v.Equal(existing) {
			c.emitConstantIndex(i, line, opShort, opLong)
			c.AddMeta(offset, constantMarker)
			c.AddMeta(offset+1, v)
			return offset, true
		}
	}

	if len(c.Constants) >= U16Max {
		return offset, false
	}

	idx := len(c.Constants)
	c.Constants = append(c.Constants, v)
	c.emitConstantIndex(idx, line, opShort, opLong)
	c.AddMeta(offset, constantMarker)
	c.AddMeta(offset+1, v)
	return offset, true
}

func (c *Chunk) emitConstantIndex(idx int, line int, opShort, opLong Opcode) {
	if idx > 255 {
		c.WriteOp(opLong, line)
		c.WriteLong(uint16(idx), line)
	} else {
		c.WriteOp(opShort, line)
		c.Write(byte(idx), line)
	}
}

// AddMeta attaches metadata v to byte offset.
func (c *Chunk) AddMeta(offset int, v value.Value) {
	c.meta[offset] = v
}

// GetMeta returns the metadata attached to offset and true, or the zero
// Value and false if none is attached.
func (c *Chunk) GetMeta(offset int) (value.Value, bool) {
	v, ok := c.meta[offset]
	return v, ok
}

// Modify overwrites the byte at offset.
func (c *Chunk) Modify(offset int, b byte) {
	c.Code[offset] = b
}

// ModifyLong overwrites the big-endian 16-bit word starting at offset.
func (c *Chunk) ModifyLong(offset int, word uint16) {
	c.Code[offset] = byte(word >> 8)
	c.Code[offset+1] = byte(word)
}

// ModifyConstant rewrites the operand at offset to index a constant equal to
// v in c's own pool, appending v first if no existing constant matches. Like
// original_source/shyll/chunk.cpp's ModifyConstant, the rewritten operand's
// width tracks the resulting index (1 byte if it fits in a byte, 2
// otherwise) rather than whatever width the site originally reserved; the
// linker (the only caller) relies on every linked symbol landing under 256
// merged constants in practice, as the original implementation does.
func (c *Chunk) ModifyConstant(offset int, v value.Value) {
	for i, existing := range c.Constants {
		if v.Equal(existing) {
			if i > 255 {
				c.ModifyLong(offset, uint16(i))
			} else {
				c.Modify(offset, byte(i))
			}
			return
		}
	}
	idx := len(c.Constants)
	c.Constants = append(c.Constants, v)
	if idx > 255 {
		c.ModifyLong(offset, uint16(idx))
	} else {
		c.Modify(offset, byte(idx))
	}
}

// Read returns the byte at offset.
func (c *Chunk) Read(offset int) byte { return c.Code[offset] }

// ReadLong returns the big-endian 16-bit word starting at offset.
func (c *Chunk) ReadLong(offset int) uint16 {
	return uint16(c.Code[offset])<<8 | uint16(c.Code[offset+1])
}

// ReadConstant returns the pooled constant at index.
func (c *Chunk) ReadConstant(index uint16) value.Value { return c.Constants[index] }

func (c *Chunk) writeLine(line int) {
	if n := len(c.lines); n > 0 && c.lines[n-1].line == line {
		c.lines[n-1].len++
		return
	}
	c.lines = append(c.lines, lineRun{len: 1, line: line})
}

// ReadLine returns the source line that the byte at offset originates from,
// or -1 if offset is out of range.
func (c *Chunk) ReadLine(offset int) int {
	total := 0
	for _, run := range c.lines {
		if offset < total+run.len {
			return run.line
		}
		total += run.len
	}
	return -1
}

// Append concatenates other's bytes, lines, and meta (offsets shifted by the
// receiver's current length) onto c, returning the offset at which other's
// first byte now lives. It does not touch either chunk's Constants pool:
// the linker relies entirely on the !constant meta protocol (spec.md §4.4)
// to repopulate constants in the merged chunk.
func (c *Chunk) Append(other *Chunk) (base int) {
	base = len(c.Code)
	c.Code = append(c.Code, other.Code...)
	c.lines = append(c.lines, other.lines...)
	for offset, v := range other.meta {
		c.meta[base+offset] = v
	}
	return base
}

// Disassemble writes a human-readable listing of c to w, labeled name.
func (c *Chunk) Disassemble(w io.Writer, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	var oldOffset, newOffset int
	for offset := 0; offset < len(c.Code); {
		dif := newOffset - oldOffset
		oldOffset = offset
		offset = c.DisassembleInstruction(w, offset, dif)
		newOffset = offset
	}
}

// DisassembleInstruction writes a listing of the single instruction at
// offset to w and returns the offset of the following instruction. dif is
// the byte length of the previously disassembled instruction, used to
// decide whether to repeat the source line number or print a continuation
// marker.
func (c *Chunk) DisassembleInstruction(w io.Writer, offset, dif int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if dif > 0 && offset > 0 && c.ReadLine(offset-dif) == c.ReadLine(offset) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.ReadLine(offset))
	}

	op := Opcode(c.Code[offset])
	switch op {
	case Return, None, AsDouble, AsLong, AsString, Add, Subtract, Multiply, Divide,
		LessThan, LessThanEqual, GreaterThan, GreaterThanEqual, Equal, NotEqual,
		LogicalAnd, LogicalOr, LogicalNot, Negate, Duplicate, Pop, Print, PrintLn,
		Trace, ShowTraceLog, ClearTraceLog, JumpToCallStackAddress, PushJumpAddress:
		return c.simpleInstruction(w, op, offset)

	case Constant, Store, Load, Del, Create:
		return c.constantInstruction(w, op, offset)

	case ConstantLong, StoreLong, LoadLong, DelLong, CreateLong:
		return c.constantInstructionLong(w, op, offset)

	case Jump, JumpIfFalse:
		return c.jumpInstruction(w, op, offset)

	default:
		fmt.Fprintf(w, "unknown opcode %d\n", c.Code[offset])
		return offset + 1
	}
}

func (c *Chunk) simpleInstruction(w io.Writer, op Opcode, offset int) int {
	fmt.Fprintf(w, "%-16s\n", op)
	return offset + 1
}

func (c *Chunk) constantInstruction(w io.Writer, op Opcode, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s%6d '%s'\n", op, idx, c.Constants[idx])
	return offset + 2
}

func (c *Chunk) constantInstructionLong(w io.Writer, op Opcode, offset int) int {
	idx := c.ReadLong(offset + 1)
	fmt.Fprintf(w, "%-16s%6d '%s'\n", op, idx, c.Constants[idx])
	return offset + 3
}

func (c *Chunk) jumpInstruction(w io.Writer, op Opcode, offset int) int {
	target := offset + 3 + int(int16(c.ReadLong(offset+1)))
	fmt.Fprintf(w, "%-16s  %04d", op, target)
	if meta, ok := c.GetMeta(offset + 1); ok {
		if name, ok := meta.AsString(); ok {
			fmt.Fprintf(w, "    @%s", name)
		}
	}
	fmt.Fprintln(w)
	return offset + 3
}
