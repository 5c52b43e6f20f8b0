package vm

import (
	"errors"
	"fmt"

	"github.com/funvibe/walc/internal/evaluator"
)

// Sentinel errors; match with errors.Is. The arithmetic ones are shared with
// the tree-walk evaluator so a caller can test either path the same way.
var (
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrTruncatedOperand  = errors.New("truncated operand")
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrDivisionByZero    = evaluator.ErrDivisionByZero
	ErrMalformedResult   = errors.New("malformed result")
	ErrNonFiniteResult   = evaluator.ErrNonFiniteResult
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrStackOverflow     = errors.New("stack overflow")
	// ErrDepthExceeded is returned by the compiler, never by the machine.
	ErrDepthExceeded = evaluator.ErrDepthExceeded
)

// ErrorKind classifies VM faults.
type ErrorKind int

const (
	StackUnderflow ErrorKind = iota + 1
	TruncatedOperand
	UnknownOpcode
	DivisionByZero
	MalformedResult
	NonFiniteResult
	UndefinedVariable
	StackOverflow
)

var kindSentinels = map[ErrorKind]error{
	StackUnderflow:    ErrStackUnderflow,
	TruncatedOperand:  ErrTruncatedOperand,
	UnknownOpcode:     ErrUnknownOpcode,
	DivisionByZero:    ErrDivisionByZero,
	MalformedResult:   ErrMalformedResult,
	NonFiniteResult:   ErrNonFiniteResult,
	UndefinedVariable: ErrUndefinedVariable,
	StackOverflow:     ErrStackOverflow,
}

var kindNames = map[ErrorKind]string{
	StackUnderflow:    "StackUnderflow",
	TruncatedOperand:  "TruncatedOperand",
	UnknownOpcode:     "UnknownOpcode",
	DivisionByZero:    "DivisionByZero",
	MalformedResult:   "MalformedResult",
	NonFiniteResult:   "NonFiniteResult",
	UndefinedVariable: "UndefinedVariable",
	StackOverflow:     "StackOverflow",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// VMError is a terminal fault. Offset is the byte offset of the faulting
// instruction, or the stream length for MalformedResult.
type VMError struct {
	Kind   ErrorKind
	Offset int
	Op     Opcode
	Slot   int    // variable faults only
	Name   string // variable name, when the slot table is known
	Depth  int    // stack depth at the fault
}

func (e *VMError) Error() string {
	base := kindSentinels[e.Kind]
	if base == nil {
		base = errors.New("vm fault")
	}
	switch e.Kind {
	case MalformedResult:
		return fmt.Sprintf("%s: %d values left on the stack", base, e.Depth)
	case UnknownOpcode:
		return fmt.Sprintf("%s 0x%02x at offset %d", base, byte(e.Op), e.Offset)
	case UndefinedVariable:
		if e.Name != "" {
			return fmt.Sprintf("%s %s (slot %d) at offset %d", base, e.Name, e.Slot, e.Offset)
		}
		return fmt.Sprintf("%s in slot %d at offset %d", base, e.Slot, e.Offset)
	}
	return fmt.Sprintf("%s at offset %d (%s)", base, e.Offset, e.Op)
}

func (e *VMError) Unwrap() error {
	return kindSentinels[e.Kind]
}
