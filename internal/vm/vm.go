package vm

import (
	"errors"

	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/evaluator"
)

// State is the machine's lifecycle: Running until the stream is exhausted
// (Halted) or an instruction fails (Faulted). Both end states are terminal.
type State int

const (
	Running State = iota
	Halted
	Faulted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

// Initial operand stack capacity; the stack grows on demand up to maxStack.
const InitialStackSize = 64

// Machine executes one stream. It is not safe for concurrent use; each run
// owns its machine.
type Machine struct {
	code []byte
	ip   int

	stack    []float64
	maxStack int

	// Variable table indexed by slot; bound marks slots that were stored.
	slots []float64
	bound []bool
	names []string

	state  State
	result float64
	err    error
}

// Option configures a Machine.
type Option func(*Machine)

// WithMaxStack caps the operand stack; n <= 0 means config.DefaultMaxStack.
func WithMaxStack(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxStack = n
		}
	}
}

// WithNames attaches the slot table so faults can name variables.
func WithNames(names []string) Option {
	return func(m *Machine) { m.names = names }
}

func New(code []byte, opts ...Option) *Machine {
	m := &Machine{
		code:     code,
		stack:    make([]float64, 0, InitialStackSize),
		maxStack: config.DefaultMaxStack,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Interpret executes a stream on a fresh machine.
func Interpret(code []byte) (float64, error) {
	return New(code).Run()
}

// Run executes until the machine halts or faults.
func (m *Machine) Run() (float64, error) {
	for m.state == Running {
		m.Step()
	}
	return m.result, m.err
}

// Step executes one instruction, or finishes the run when the stream is
// exhausted. It is a no-op once the machine has halted or faulted.
func (m *Machine) Step() State {
	if m.state != Running {
		return m.state
	}
	if m.ip >= len(m.code) {
		m.finish()
		return m.state
	}

	offset := m.ip
	op := Opcode(m.code[offset])
	if !op.Valid() {
		m.fault(UnknownOpcode, offset, op)
		return m.state
	}
	operand := offset + 1
	if operand+op.OperandSize() > len(m.code) {
		m.fault(TruncatedOperand, offset, op)
		return m.state
	}
	m.ip = operand + op.OperandSize()

	switch op {
	case OP_PUSH:
		m.push(offset, op, readFloat(m.code, operand))
	case OP_STORE:
		m.store(offset, readSlot(m.code, operand))
	case OP_LOAD:
		m.load(offset, readSlot(m.code, operand))
	default:
		m.binary(offset, op)
	}
	return m.state
}

func (m *Machine) push(offset int, op Opcode, v float64) {
	if len(m.stack) >= m.maxStack {
		m.fault(StackOverflow, offset, op)
		return
	}
	m.stack = append(m.stack, v)
}

func (m *Machine) binary(offset int, op Opcode) {
	if len(m.stack) < 2 {
		m.fault(StackUnderflow, offset, op)
		return
	}
	kind, _ := op.Kind()
	n := len(m.stack)
	// b is on top: it was pushed by the right operand
	a, b := m.stack[n-2], m.stack[n-1]

	r, err := evaluator.Apply(kind, a, b)
	if err != nil {
		if errors.Is(err, ErrDivisionByZero) {
			m.fault(DivisionByZero, offset, op)
		} else {
			m.fault(NonFiniteResult, offset, op)
		}
		return
	}
	m.stack[n-2] = r
	m.stack = m.stack[:n-1]
}

func (m *Machine) store(offset int, slot uint16) {
	if len(m.stack) < 1 {
		m.fault(StackUnderflow, offset, OP_STORE)
		return
	}
	s := int(slot)
	if s >= len(m.slots) {
		m.slots = append(m.slots, make([]float64, s+1-len(m.slots))...)
		m.bound = append(m.bound, make([]bool, s+1-len(m.bound))...)
	}
	m.slots[s] = m.stack[len(m.stack)-1]
	m.bound[s] = true
}

func (m *Machine) load(offset int, slot uint16) {
	s := int(slot)
	if s >= len(m.bound) || !m.bound[s] {
		e := m.fault(UndefinedVariable, offset, OP_LOAD)
		e.Slot = s
		if s < len(m.names) {
			e.Name = m.names[s]
		}
		return
	}
	m.push(offset, OP_LOAD, m.slots[s])
}

func (m *Machine) finish() {
	if len(m.stack) != 1 {
		m.state = Faulted
		m.err = &VMError{Kind: MalformedResult, Offset: len(m.code), Depth: len(m.stack)}
		return
	}
	m.result = m.stack[0]
	m.state = Halted
}

func (m *Machine) fault(kind ErrorKind, offset int, op Opcode) *VMError {
	e := &VMError{Kind: kind, Offset: offset, Op: op, Slot: -1, Depth: len(m.stack)}
	m.state = Faulted
	m.err = e
	return e
}

// State returns the machine's current state.
func (m *Machine) State() State { return m.state }

// Result returns the value of a halted machine.
func (m *Machine) Result() float64 { return m.result }

// Err returns the fault of a faulted machine.
func (m *Machine) Err() error { return m.err }

// IP returns the offset of the next instruction.
func (m *Machine) IP() int { return m.ip }

// Stack returns a copy of the operand stack, bottom first.
func (m *Machine) Stack() []float64 {
	return append([]float64(nil), m.stack...)
}
