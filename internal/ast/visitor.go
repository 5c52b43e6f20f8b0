package ast

// Visitor receives one callback per node kind.
type Visitor interface {
	VisitNumber(n *Number)
	VisitBinaryOp(n *BinaryOp)
	VisitAssign(n *Assign)
	VisitIdentifier(n *Identifier)
}

// Walk traverses the tree in post-order (left, right, then the node itself),
// which is the order both execution engines consume it in.
func Walk(n Node, v Visitor) {
	switch n := n.(type) {
	case *BinaryOp:
		Walk(n.Left, v)
		Walk(n.Right, v)
	case *Assign:
		Walk(n.Expr, v)
	case nil:
		return
	}
	n.Accept(v)
}

// Inspect calls fn for every node of the tree in post-order.
func Inspect(n Node, fn func(Node)) {
	Walk(n, inspector(fn))
}

type inspector func(Node)

func (f inspector) VisitNumber(n *Number)         { f(n) }
func (f inspector) VisitBinaryOp(n *BinaryOp)     { f(n) }
func (f inspector) VisitAssign(n *Assign)         { f(n) }
func (f inspector) VisitIdentifier(n *Identifier) { f(n) }

// Identifiers returns the distinct names read or written by the tree,
// in post-order of first appearance.
func Identifiers(n Node) []string {
	var names []string
	seen := make(map[string]bool)
	Inspect(n, func(node Node) {
		var name string
		switch node := node.(type) {
		case *Assign:
			name = node.Identifier
		case *Identifier:
			name = node.Name
		default:
			return
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	return names
}
