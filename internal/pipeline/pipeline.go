// Package pipeline chains the steps of one run (decode, generate, execute)
// over a shared PipelineContext.
package pipeline

// Processor is one stage. A stage that finds ctx.Errors non-empty, or finds
// its input missing, returns ctx unchanged.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx *PipelineContext) *PipelineContext

func (f ProcessorFunc) Process(ctx *PipelineContext) *PipelineContext { return f(ctx) }

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Later stages still run so they can record what they skipped;
		// each one checks ctx.Errors itself.
	}
	return ctx
}
