package backend

import (
	"context"
	"fmt"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/evaluator"
)

// TreeWalkBackend wraps the tree-walk evaluator
type TreeWalkBackend struct {
	MaxDepth int
}

// NewTreeWalk creates a new tree-walk backend
func NewTreeWalk(maxDepth int) *TreeWalkBackend {
	return &TreeWalkBackend{MaxDepth: maxDepth}
}

// Run evaluates the tree against a fresh environment
func (b *TreeWalkBackend) Run(ctx context.Context, tree ast.Node) (float64, error) {
	if tree == nil {
		return 0, fmt.Errorf("no tree to execute")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	eval := evaluator.New()
	eval.MaxDepth = b.MaxDepth
	return eval.Eval(tree, evaluator.NewEnvironment())
}

// Name returns the backend name
func (b *TreeWalkBackend) Name() string {
	return config.TreeWalkBackendName
}
