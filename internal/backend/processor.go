package backend

import (
	"fmt"

	"github.com/funvibe/walc/internal/logging"
	"github.com/funvibe/walc/internal/pipeline"
)

// ExecutionProcessor implements pipeline.Processor to run a Backend
type ExecutionProcessor struct {
	Backend Backend
}

// NewExecutionProcessor creates a new pipeline step for the given backend
func NewExecutionProcessor(b Backend) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't run execution
	if ctx.Failed() {
		return ctx
	}

	var (
		result float64
		err    error
	)
	runner, isRunner := p.Backend.(CodeRunner)
	switch {
	case ctx.Code != nil && isRunner:
		result, err = runner.RunCode(ctx.Context, ctx.Code, ctx.Names)
	case ctx.Tree != nil:
		result, err = p.Backend.Run(ctx.Context, ctx.Tree)
	case ctx.Code != nil:
		// Streams without a tree (bundles, stored programs) need a backend
		// that executes bytecode directly.
		err = fmt.Errorf("backend %s cannot execute bytecode without its tree", p.Backend.Name())
	default:
		err = fmt.Errorf("nothing to execute")
	}

	if err != nil {
		ctx.AddError(fmt.Errorf("%s: %w", p.Backend.Name(), err))
		return ctx
	}

	ctx.SetResult(p.Backend.Name(), result)
	logging.Get("backend").Debugf("run %s: %s returned %v in %s", ctx.RunID, p.Backend.Name(), result, ctx.Elapsed)
	return ctx
}
