package walc

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/funvibe/walc/internal/codec"
	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/evaluator"
	"github.com/funvibe/walc/internal/pipeline"
)

// Engine keeps variables between evaluations: values bound from Go and
// assignments made by earlier trees are visible to later ones.
type Engine struct {
	mu         sync.Mutex
	env        *evaluator.Environment
	marshaller *Marshaller
	maxDepth   int
}

// New creates an engine with no variables.
func New() *Engine {
	return &Engine{
		env:        evaluator.NewEnvironment(),
		marshaller: NewMarshaller(),
	}
}

// SetMaxDepth limits evaluation recursion; 0 keeps the default.
func (e *Engine) SetMaxDepth(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxDepth = n
}

// Bind makes a Go number available to trees under name.
func (e *Engine) Bind(name string, val interface{}) error {
	v, err := e.marshaller.ToValue(val)
	if err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}
	e.env.Set(name, v)
	return nil
}

// Get retrieves a variable as a float64.
func (e *Engine) Get(name string) (float64, error) {
	v, ok := e.env.Get(name)
	if !ok {
		return 0, fmt.Errorf("variable '%s' not found", name)
	}
	return v, nil
}

// GetAs retrieves a variable converted to the type of target, which must be
// a pointer.
func (e *Engine) GetAs(name string, target interface{}) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("GetAs needs a non-nil pointer, got %T", target)
	}
	v, err := e.Get(name)
	if err != nil {
		return err
	}
	out, err := e.marshaller.FromValue(v, ptr.Elem().Type())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	ptr.Elem().Set(reflect.ValueOf(out))
	return nil
}

// Variables returns the bound names in sorted order.
func (e *Engine) Variables() []string {
	return e.env.Names()
}

// Eval evaluates tree against the engine's variables.
func (e *Engine) Eval(tree Node) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev := evaluator.New()
	if e.maxDepth > 0 {
		ev.MaxDepth = e.maxDepth
	}
	return ev.Eval(tree, e.env)
}

// EvalSource decodes a tree from data in the named encoding ("" picks it
// from path, then JSON) and evaluates it against the engine's variables.
func (e *Engine) EvalSource(path, format string, data []byte) (float64, error) {
	ctx := pipeline.FromSource(context.Background(), path, format, data)
	p := pipeline.New(
		&codec.DecodeProcessor{},
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			if ctx.Failed() {
				return ctx
			}
			v, err := e.Eval(ctx.Tree)
			if err != nil {
				ctx.AddError(err)
				return ctx
			}
			ctx.SetResult(config.TreeWalkBackendName, v)
			return ctx
		}),
	)
	ctx = p.Run(ctx)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return ctx.Result, nil
}
