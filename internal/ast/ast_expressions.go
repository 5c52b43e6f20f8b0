package ast

// Number is a numeric literal leaf, e.g. 3.1.
type Number struct {
	Value float64
}

func (n *Number) Accept(v Visitor) { v.VisitNumber(n) }
func (n *Number) node()            {}

// BinaryOp represents an infix arithmetic operation, e.g. 3.1 - 2.
// Left is evaluated before Right and is the first operand of the operator.
type BinaryOp struct {
	Kind  OpKind
	Left  Node
	Right Node
}

func (b *BinaryOp) Accept(v Visitor) { v.VisitBinaryOp(b) }
func (b *BinaryOp) node()            {}

// Assign binds Identifier to the value of Expr and yields that value, e.g. x = 3 ** 2.
type Assign struct {
	Identifier string
	Expr       Node
}

func (a *Assign) Accept(v Visitor) { v.VisitAssign(a) }
func (a *Assign) node()            {}

// Identifier reads a binding made earlier in the same run, e.g. x.
type Identifier struct {
	Name string
}

func (i *Identifier) Accept(v Visitor) { v.VisitIdentifier(i) }
func (i *Identifier) node()            {}

// NewNumber returns a Number leaf.
func NewNumber(value float64) *Number {
	return &Number{Value: value}
}

// NewBinary returns a BinaryOp node.
func NewBinary(kind OpKind, left, right Node) *BinaryOp {
	return &BinaryOp{Kind: kind, Left: left, Right: right}
}

// NewAssign returns an Assign node.
func NewAssign(identifier string, expr Node) *Assign {
	return &Assign{Identifier: identifier, Expr: expr}
}

// NewIdentifier returns an Identifier node.
func NewIdentifier(name string) *Identifier {
	return &Identifier{Name: name}
}
