package chunk

import "fmt"

// Opcode identifies a bytecode instruction, as enumerated in
// original_source/shyll/chunk.h and spec.md §4.5/§6.
type Opcode uint8

//nolint:revive
const (
	Return Opcode = iota
	None

	AsDouble
	AsLong
	AsString

	Constant
	ConstantLong

	Store
	StoreLong
	Load
	LoadLong
	Del
	DelLong
	Create
	CreateLong

	Add
	Subtract
	Multiply
	Divide
	LessThan
	LessThanEqual
	GreaterThan
	GreaterThanEqual
	Equal
	NotEqual
	LogicalAnd
	LogicalOr
	LogicalNot
	Negate

	Duplicate
	Pop

	Print
	PrintLn
	Trace
	ShowTraceLog
	ClearTraceLog

	Jump
	JumpIfFalse
	PushJumpAddress
	JumpToCallStackAddress

	maxOpcode
)

var opcodeNames = [...]string{
	Return:                 "OP_RETURN",
	None:                   "OP_NONE",
	AsDouble:               "OP_AS_DOUBLE",
	AsLong:                 "OP_AS_LONG",
	AsString:               "OP_AS_STRING",
	Constant:               "OP_CONSTANT",
	ConstantLong:           "OP_CONSTANT_LONG",
	Store:                  "OP_STORE",
	StoreLong:              "OP_STORE_LONG",
	Load:                   "OP_LOAD",
	LoadLong:               "OP_LOAD_LONG",
	Del:                    "OP_DEL",
	DelLong:                "OP_DEL_LONG",
	Create:                 "OP_CREATE",
	CreateLong:             "OP_CREATE_LONG",
	Add:                    "OP_ADD",
	Subtract:               "OP_SUBTRACT",
	Multiply:               "OP_MULTIPLY",
	Divide:                 "OP_DIVIDE",
	LessThan:               "OP_LESS",
	LessThanEqual:          "OP_LESS_EQUAL",
	GreaterThan:            "OP_GREATER",
	GreaterThanEqual:       "OP_GREATER_EQUAL",
	Equal:                  "OP_EQUAL",
	NotEqual:               "OP_NOT_EQUAL",
	LogicalAnd:             "OP_LOGICAL_AND",
	LogicalOr:              "OP_LOGICAL_OR",
	LogicalNot:             "OP_LOGICAL_NOT",
	Negate:                 "OP_NEGATE",
	Duplicate:              "OP_DUPLICATE",
	Pop:                    "OP_POP",
	Print:                  "OP_PRINT",
	PrintLn:                "OP_PRINT_LN",
	Trace:                  "OP_TRACE",
	ShowTraceLog:           "OP_SHOW_TRACELOG",
	ClearTraceLog:          "OP_CLEAR_TRACELOG",
	Jump:                   "OP_JUMP",
	JumpIfFalse:            "OP_JUMP_IF_FALSE",
	PushJumpAddress:        "OP_PUSH_JUMP_ADDRESS",
	JumpToCallStackAddress: "OP_JUMP_TO_CALL_STACK_ADDRESS",
}

func (op Opcode) String() string {
	if op < maxOpcode && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("unknown opcode (%d)", uint8(op))
}
