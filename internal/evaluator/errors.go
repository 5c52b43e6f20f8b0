package evaluator

import (
	"errors"
	"fmt"

	"github.com/funvibe/walc/internal/ast"
)

// Sentinel errors; match with errors.Is.
var (
	ErrDivisionByZero      = errors.New("cannot divide by zero")
	ErrUndefinedIdentifier = errors.New("undefined identifier")
	ErrNonFiniteResult     = errors.New("non-finite result")
	ErrDepthExceeded       = errors.New("maximum recursion depth exceeded")
)

// ErrorKind classifies evaluation failures.
type ErrorKind int

const (
	DivisionByZero ErrorKind = iota + 1
	UndefinedIdentifier
	NonFiniteResult
	DepthExceeded
)

var kindSentinels = map[ErrorKind]error{
	DivisionByZero:      ErrDivisionByZero,
	UndefinedIdentifier: ErrUndefinedIdentifier,
	NonFiniteResult:     ErrNonFiniteResult,
	DepthExceeded:       ErrDepthExceeded,
}

func (k ErrorKind) String() string {
	switch k {
	case DivisionByZero:
		return "DivisionByZero"
	case UndefinedIdentifier:
		return "UndefinedIdentifier"
	case NonFiniteResult:
		return "NonFiniteResult"
	case DepthExceeded:
		return "DepthExceeded"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// EvalError is returned by the tree-walk evaluator.
type EvalError struct {
	Kind ErrorKind
	Op   ast.OpKind // set for arithmetic faults
	Name string     // set for UndefinedIdentifier
}

func (e *EvalError) Error() string {
	base := kindSentinels[e.Kind]
	if base == nil {
		return "evaluation error: " + e.Kind.String()
	}
	switch {
	case e.Name != "":
		return fmt.Sprintf("%s: %s", base, e.Name)
	case e.Op != 0:
		return fmt.Sprintf("%s (%s)", base, e.Op)
	}
	return base.Error()
}

func (e *EvalError) Unwrap() error {
	return kindSentinels[e.Kind]
}

// KindOf maps an arithmetic sentinel returned by Apply to its ErrorKind.
func KindOf(err error) (ErrorKind, bool) {
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind, true
		}
	}
	return 0, false
}
