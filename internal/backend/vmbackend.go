package backend

import (
	"context"
	"fmt"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/vm"
)

// VMBackend generates bytecode and executes it on a fresh machine
type VMBackend struct {
	MaxDepth int
	MaxStack int
}

// NewVM creates a new VM backend
func NewVM(limits Limits) *VMBackend {
	return &VMBackend{MaxDepth: limits.MaxDepth, MaxStack: limits.MaxStack}
}

// Run compiles the tree and interprets the stream
func (b *VMBackend) Run(ctx context.Context, tree ast.Node) (float64, error) {
	if tree == nil {
		return 0, fmt.Errorf("no tree to execute")
	}
	p, err := vm.CompileDepth(tree, b.MaxDepth)
	if err != nil {
		return 0, fmt.Errorf("compilation failed: %w", err)
	}
	return b.RunCode(ctx, p.Code, p.Names)
}

// RunCode interprets a generated stream
func (b *VMBackend) RunCode(ctx context.Context, code []byte, names []string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	machine := vm.New(code, vm.WithMaxStack(b.MaxStack), vm.WithNames(names))
	return machine.Run()
}

// Name returns the backend name
func (b *VMBackend) Name() string {
	return config.VMBackendName
}
