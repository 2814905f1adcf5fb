package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shylie/shyll/lang/value"
)

func TestWriteAndRead(t *testing.T) {
	c := New()
	off := c.WriteOp(Add, 1)
	require.Equal(t, 0, off)
	require.Equal(t, byte(Add), c.Read(off))
	require.Equal(t, 1, c.Len())
}

func TestWriteLongBigEndian(t *testing.T) {
	c := New()
	off := c.WriteLong(0x1234, 1)
	require.Equal(t, byte(0x12), c.Read(off))
	require.Equal(t, byte(0x34), c.Read(off+1))
	require.Equal(t, uint16(0x1234), c.ReadLong(off))
}

func TestAddConstantDedup(t *testing.T) {
	c := New()
	off1, ok := c.AddConstant(value.NewLong(7), 1, Constant, ConstantLong)
	require.True(t, ok)
	off2, ok := c.AddConstant(value.NewLong(7), 1, Constant, ConstantLong)
	require.True(t, ok)
	require.Len(t, c.Constants, 1, "equal constants should be deduplicated")
	require.NotEqual(t, off1, off2, "each call still emits its own instruction")
}

func TestAddConstantForcesLongPast255(t *testing.T) {
	c := New()
	for i := 0; i < 256; i++ {
		_, ok := c.AddConstant(value.NewLong(int64(i)), 1, Constant, ConstantLong)
		require.True(t, ok)
	}
	off, ok := c.AddConstant(value.NewLong(256), 1, Constant, ConstantLong)
	require.True(t, ok)
	require.Equal(t, byte(ConstantLong), c.Read(off))
}

func TestAddConstantAttachesLinkerMeta(t *testing.T) {
	c := New()
	off, ok := c.AddConstant(value.NewString("x"), 1, Constant, ConstantLong)
	require.True(t, ok)
	marker, ok := c.GetMeta(off)
	require.True(t, ok)
	require.Equal(t, value.NewString("!constant"), marker)
	v, ok := c.GetMeta(off + 1)
	require.True(t, ok)
	require.Equal(t, value.NewString("x"), v)
}

func TestReadLineRLEAndOutOfRange(t *testing.T) {
	c := New()
	c.WriteOp(Return, 1)
	c.WriteOp(Return, 1)
	c.WriteOp(Return, 2)
	require.Equal(t, 1, c.ReadLine(0))
	require.Equal(t, 1, c.ReadLine(1))
	require.Equal(t, 2, c.ReadLine(2))
	require.Equal(t, -1, c.ReadLine(3))
}

func TestAppendShiftsMeta(t *testing.T) {
	a := New()
	a.WriteOp(Return, 1)

	b := New()
	off, _ := b.AddConstant(value.NewLong(1), 1, Constant, ConstantLong)
	_ = off

	base := a.Append(b)
	require.Equal(t, 1, base)
	_, ok := a.GetMeta(base)
	require.True(t, ok)
}

func TestModifyConstantWidth(t *testing.T) {
	c := New()
	c.Constants = append(c.Constants, value.NewLong(0))
	c.WriteLong(0xFFFF, 1)
	c.ModifyConstant(0, value.NewLong(0))
	// Index 0 fits in a byte, so only the first operand byte is rewritten.
	require.Equal(t, byte(0), c.Read(0))
	require.Equal(t, byte(0xFF), c.Read(1))
}

func TestDisassembleProducesOutput(t *testing.T) {
	c := New()
	c.AddConstant(value.NewLong(3), 1, Constant, ConstantLong)
	c.WriteOp(PrintLn, 1)
	c.WriteOp(Return, 1)

	var buf strings.Builder
	c.Disassemble(&buf, "!main")
	out := buf.String()
	require.Contains(t, out, "== !main ==")
	require.Contains(t, out, "OP_CONSTANT")
	require.Contains(t, out, "OP_PRINT_LN")
	require.Contains(t, out, "OP_RETURN")
}
