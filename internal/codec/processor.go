package codec

import (
	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/logging"
	"github.com/funvibe/walc/internal/pipeline"
)

// DecodeProcessor turns ctx.Source into ctx.Tree. The format is taken from
// ctx.Format, then the file extension, then config.DefaultFormat.
type DecodeProcessor struct{}

func (DecodeProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Failed() || ctx.Tree != nil || ctx.Source == nil {
		return ctx
	}

	f, err := resolveFormat(ctx.Format, ctx.FilePath)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	tree, err := Decode(f, ctx.Source)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Format = string(f)
	ctx.Tree = tree
	logging.Get("codec").Debugf("run %s: decoded %d-byte %s tree", ctx.RunID, len(ctx.Source), f)
	return ctx
}

func resolveFormat(name, path string) (Format, error) {
	if name != "" {
		return ParseFormat(name)
	}
	if path != "" {
		return FormatForPath(path)
	}
	return ParseFormat(config.DefaultFormat)
}
