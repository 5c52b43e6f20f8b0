// Package backend provides an interface for different execution backends.
// This allows switching between the tree-walk evaluator and the VM, or
// running both and comparing them.
package backend

import (
	"context"
	"fmt"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/config"
)

// Backend is the interface for execution backends
type Backend interface {
	// Run executes the tree and returns its value
	Run(ctx context.Context, tree ast.Node) (float64, error)

	// Name returns the backend name for display
	Name() string
}

// CodeRunner is implemented by backends that can execute an already
// generated stream without its tree.
type CodeRunner interface {
	RunCode(ctx context.Context, code []byte, names []string) (float64, error)
}

// Limits bounds a backend run.
type Limits struct {
	MaxDepth int
	MaxStack int
}

// LimitsFrom reads the engine limits of a configuration.
func LimitsFrom(cfg *config.Config) Limits {
	return Limits{MaxDepth: cfg.Engine.MaxDepth, MaxStack: cfg.Engine.MaxStack}
}

// ByName returns the backend registered under name: "treewalk", "vm" or "both".
func ByName(name string, limits Limits) (Backend, error) {
	switch name {
	case config.TreeWalkBackendName:
		return NewTreeWalk(limits.MaxDepth), nil
	case config.VMBackendName, "":
		return NewVM(limits), nil
	case config.DifferentialBackendName:
		return NewDifferential(NewTreeWalk(limits.MaxDepth), NewVM(limits)), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want %s, %s or %s)", name,
		config.TreeWalkBackendName, config.VMBackendName, config.DifferentialBackendName)
}
