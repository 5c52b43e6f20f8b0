package vm

import (
	"github.com/funvibe/walc/internal/logging"
	"github.com/funvibe/walc/internal/pipeline"
)

// CompileProcessor generates ctx.Code and ctx.Names from ctx.Tree.
type CompileProcessor struct {
	MaxDepth int
}

func (cp CompileProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Failed() || ctx.Tree == nil || ctx.Code != nil {
		return ctx
	}

	p, err := CompileDepth(ctx.Tree, cp.MaxDepth)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Code = p.Code
	ctx.Names = p.Names
	logging.Get("vm").Debugf("run %s: generated %d bytes, %d slots", ctx.RunID, len(p.Code), len(p.Names))
	return ctx
}
