package value

// This file implements the cross-type operation table of spec.md §4.6,
// adapted from the operator overloads of original_source/shyll/value.cpp.
// Every operation that isn't explicitly allowed for the operand kinds
// returns Nil, which the VM treats as a runtime error at the call site.

// Add implements the `+` opcode: numeric addition (double if either operand
// is a double), or string concatenation if either operand is a string (the
// other stringified).
func Add(a, b Value) Value {
	switch {
	case a.kind == Long && b.kind == Long:
		return NewLong(a.l + b.l)
	case a.kind == Double && b.kind == Double:
		return NewDouble(a.d + b.d)
	case a.kind == Double && b.kind == Long:
		return NewDouble(a.d + float64(b.l))
	case a.kind == Long && b.kind == Double:
		return NewDouble(float64(a.l) + b.d)
	case a.kind == String || b.kind == String:
		if a.kind == None || b.kind == None {
			return Nil
		}
		return NewString(a.String() + b.String())
	default:
		return Nil
	}
}

// numericPair returns both operands widened to float64, whether both are
// Long (bothLong), and whether the pair is (long|double) x (long|double) (ok).
func numericPair(a, b Value) (x, y float64, bothLong bool, ok bool) {
	switch {
	case a.kind == Long && b.kind == Long:
		return float64(a.l), float64(b.l), true, true
	case a.kind == Double && b.kind == Double:
		return a.d, b.d, false, true
	case a.kind == Double && b.kind == Long:
		return a.d, float64(b.l), false, true
	case a.kind == Long && b.kind == Double:
		return float64(a.l), b.d, false, true
	default:
		return 0, 0, false, false
	}
}

// Sub implements the `-` opcode.
func Sub(a, b Value) Value {
	x, y, bothLong, ok := numericPair(a, b)
	if !ok {
		return Nil
	}
	if bothLong {
		return NewLong(a.l - b.l)
	}
	return NewDouble(x - y)
}

// Mul implements the `*` opcode.
func Mul(a, b Value) Value {
	x, y, bothLong, ok := numericPair(a, b)
	if !ok {
		return Nil
	}
	if bothLong {
		return NewLong(a.l * b.l)
	}
	return NewDouble(x * y)
}

// Div implements the `/` opcode. Integer division by zero produces Nil
// (surfaced by the VM as a runtime error); double division by zero follows
// IEEE-754 (yields +Inf/-Inf/NaN).
func Div(a, b Value) Value {
	x, y, bothLong, ok := numericPair(a, b)
	if !ok {
		return Nil
	}
	if bothLong {
		if b.l == 0 {
			return Nil
		}
		return NewLong(a.l / b.l)
	}
	return NewDouble(x / y)
}

// Lt, Le, Gt, Ge implement the ordering opcodes: numeric operands only,
// result is Bool.
func Lt(a, b Value) Value {
	x, y, _, ok := numericPair(a, b)
	if !ok {
		return Nil
	}
	return NewBool(x < y)
}

func Le(a, b Value) Value {
	x, y, _, ok := numericPair(a, b)
	if !ok {
		return Nil
	}
	return NewBool(x <= y)
}

func Gt(a, b Value) Value {
	x, y, _, ok := numericPair(a, b)
	if !ok {
		return Nil
	}
	return NewBool(x > y)
}

func Ge(a, b Value) Value {
	x, y, _, ok := numericPair(a, b)
	if !ok {
		return Nil
	}
	return NewBool(x >= y)
}

// Eq and Neq implement `==`/`!=`: both operands must be the same concrete
// type (one of double, long, string, bool); the result is Bool.
func Eq(a, b Value) Value {
	if a.kind != b.kind || a.kind == None {
		return Nil
	}
	return NewBool(a.Equal(b))
}

func Neq(a, b Value) Value {
	if a.kind != b.kind || a.kind == None {
		return Nil
	}
	return NewBool(!a.Equal(b))
}

// And and Or implement `and`/`or`: bool x bool only.
func And(a, b Value) Value {
	x, ok1 := a.AsBool()
	y, ok2 := b.AsBool()
	if !ok1 || !ok2 {
		return Nil
	}
	return NewBool(x && y)
}

func Or(a, b Value) Value {
	x, ok1 := a.AsBool()
	y, ok2 := b.AsBool()
	if !ok1 || !ok2 {
		return Nil
	}
	return NewBool(x || y)
}

// Not implements unary logical negation: bool only.
func Not(a Value) Value {
	x, ok := a.AsBool()
	if !ok {
		return Nil
	}
	return NewBool(!x)
}

// Negate implements unary numeric negation.
func Negate(a Value) Value {
	switch a.kind {
	case Long:
		return NewLong(-a.l)
	case Double:
		return NewDouble(-a.d)
	default:
		return Nil
	}
}

// ToDouble converts a numeric value to Double; already-Double is a no-op.
func ToDouble(a Value) Value {
	switch a.kind {
	case Double:
		return a
	case Long:
		return NewDouble(float64(a.l))
	default:
		return Nil
	}
}

// ToLong converts a numeric value to Long; already-Long is a no-op.
func ToLong(a Value) Value {
	switch a.kind {
	case Long:
		return a
	case Double:
		return NewLong(int64(a.d))
	default:
		return Nil
	}
}

// ToStringValue stringifies a, equivalent to concatenating a with an empty
// string; like that concatenation, it yields Nil for a None operand.
func ToStringValue(a Value) Value {
	if a.kind == None {
		return Nil
	}
	return NewString(a.String())
}
