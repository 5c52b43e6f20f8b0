package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/funvibe/walc/internal/ast"
)

// PipelineContext carries one run through the stages. Each run gets its own
// context; nothing in it is shared between runs.
type PipelineContext struct {
	// Context bounds the run; stages check it between steps only.
	Context context.Context

	// RunID identifies the run in logs and batch reports.
	RunID string

	// FilePath is where Source came from, "" for stdin or in-memory input.
	FilePath string

	// Format is the tree format name of Source ("json", "yaml", "cbor").
	Format string

	// Source is the serialized tree.
	Source []byte

	// Tree is the decoded syntax tree.
	Tree ast.Node

	// Code and Names are the generated stream and its slot table.
	Code  []byte
	Names []string

	// Backend names the engine that produced Result.
	Backend string

	// Result is valid when HasResult is set.
	Result    float64
	HasResult bool

	Errors    []error
	StartedAt time.Time
	Elapsed   time.Duration
}

func NewPipelineContext(ctx context.Context) *PipelineContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &PipelineContext{
		Context:   ctx,
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// FromSource starts a run over serialized input.
func FromSource(ctx context.Context, path, format string, source []byte) *PipelineContext {
	pc := NewPipelineContext(ctx)
	pc.FilePath = path
	pc.Format = format
	pc.Source = source
	return pc
}

// FromTree starts a run over an already built tree.
func FromTree(ctx context.Context, tree ast.Node) *PipelineContext {
	pc := NewPipelineContext(ctx)
	pc.Tree = tree
	return pc
}

// FromCode starts a run over an already generated stream.
func FromCode(ctx context.Context, code []byte, names []string) *PipelineContext {
	pc := NewPipelineContext(ctx)
	pc.Code = code
	pc.Names = names
	return pc
}

// AddError records a failure; later stages skip.
func (c *PipelineContext) AddError(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// Failed reports whether any stage has failed.
func (c *PipelineContext) Failed() bool {
	return len(c.Errors) > 0
}

// Err returns the collected errors as one, or nil.
func (c *PipelineContext) Err() error {
	switch len(c.Errors) {
	case 0:
		return nil
	case 1:
		return c.Errors[0]
	}
	return errors.Join(c.Errors...)
}

// SetResult records a successful execution.
func (c *PipelineContext) SetResult(backend string, v float64) {
	c.Backend = backend
	c.Result = v
	c.HasResult = true
	c.Elapsed = time.Since(c.StartedAt)
}
