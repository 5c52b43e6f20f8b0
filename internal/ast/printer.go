package ast

import (
	"strconv"
	"strings"
)

// Operator precedence (higher = binds tighter)
var operatorPrecedence = map[OpKind]int{
	Add:          1,
	Subtract:     1,
	Multiply:     2,
	Divide:       2,
	Exponentiate: 3, // right-assoc
}

// assignPrecedence is below every operator, so an assignment nested in an
// operation is always parenthesized.
const assignPrecedence = 0

// Format renders the tree as an infix expression with the minimal parentheses
// needed to read it back with the usual precedence, e.g. "x = (1 + 2) * 3".
func Format(n Node) string {
	p := &printer{}
	p.printExpr(n, assignPrecedence, false)
	return p.sb.String()
}

type printer struct {
	sb strings.Builder
}

func (p *printer) printExpr(n Node, parentPrec int, isRight bool) {
	switch e := n.(type) {
	case *BinaryOp:
		prec := operatorPrecedence[e.Kind]
		needParens := prec < parentPrec
		if prec == parentPrec {
			if isRight && e.Kind != Exponentiate {
				needParens = true
			} else if !isRight && e.Kind == Exponentiate {
				needParens = true
			}
		}
		if needParens {
			p.sb.WriteString("(")
		}
		p.printExpr(e.Left, prec, false)
		p.sb.WriteString(" " + e.Kind.Symbol() + " ")
		p.printExpr(e.Right, prec, true)
		if needParens {
			p.sb.WriteString(")")
		}
	case *Assign:
		// Assignment is right-assoc: a = b = 1 needs no parentheses.
		needParens := parentPrec > assignPrecedence
		if needParens {
			p.sb.WriteString("(")
		}
		p.sb.WriteString(e.Identifier + " = ")
		p.printExpr(e.Expr, assignPrecedence, true)
		if needParens {
			p.sb.WriteString(")")
		}
	case *Number:
		p.sb.WriteString(strconv.FormatFloat(e.Value, 'g', -1, 64))
	case *Identifier:
		p.sb.WriteString(e.Name)
	case nil:
		p.sb.WriteString("<nil>")
	}
}
