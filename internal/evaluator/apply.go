package evaluator

import (
	"fmt"
	"math"

	"github.com/funvibe/walc/internal/ast"
)

// Apply performs one arithmetic operation with the operand order of the tree:
// a is the left value, b the right. Both execution engines call it, so their
// successful results agree bit for bit.
//
// It returns ErrDivisionByZero when dividing by zero (of either sign) and
// ErrNonFiniteResult when the result overflows to infinity or is NaN.
func Apply(op ast.OpKind, a, b float64) (float64, error) {
	var r float64
	switch op {
	case ast.Add:
		r = a + b
	case ast.Subtract:
		r = a - b
	case ast.Multiply:
		r = a * b
	case ast.Divide:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		r = a / b
	case ast.Exponentiate:
		r = math.Pow(a, b)
	default:
		return 0, fmt.Errorf("unknown operator: %s", op)
	}
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0, ErrNonFiniteResult
	}
	return r, nil
}
