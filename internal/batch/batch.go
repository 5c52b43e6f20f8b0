// Package batch runs many independent programs concurrently. Every job gets
// its own pipeline context, so runs share no environment or stack.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/backend"
	"github.com/funvibe/walc/internal/codec"
	"github.com/funvibe/walc/internal/logging"
	"github.com/funvibe/walc/internal/pipeline"
)

// Job is one program: either a Tree, or serialized Source with its Path
// and/or Format.
type Job struct {
	Name   string
	Path   string
	Format string
	Source []byte
	Tree   ast.Node
}

// ErrNotStarted marks the Result of a job skipped because the run was cancelled.
var ErrNotStarted = errors.New("job not started")

// Result is the outcome of one job. Results are returned in job order.
type Result struct {
	Name    string
	RunID   string
	Value   float64
	Err     error
	Elapsed time.Duration
}

// OK reports whether the job produced a value.
func (r Result) OK() bool { return r.Err == nil }

// Runner executes jobs on a backend with at most Workers in flight.
type Runner struct {
	Backend backend.Backend
	Workers int
}

func NewRunner(b backend.Backend, workers int) *Runner {
	return &Runner{Backend: b, Workers: workers}
}

// Run executes every job. A failing job is reported in its Result and does
// not stop the others. When ctx ends early the returned error is its cause
// and every job that never ran has a Result wrapping ErrNotStarted.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log := logging.Get("batch")
	log.Infof("running %d jobs on %s with %d workers", len(jobs), r.Backend.Name(), workers)

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	next := 0
	for ; next < len(jobs); next++ {
		if gctx.Err() != nil {
			break
		}
		i, job := next, jobs[next]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = notStarted(job, err)
				return err
			}
			results[i] = r.runOne(gctx, job)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		for i := next; i < len(jobs); i++ {
			results[i] = notStarted(jobs[i], err)
		}
		log.Warningf("batch stopped: %v", err)
		return results, err
	}
	return results, nil
}

func notStarted(job Job, cause error) Result {
	return Result{Name: job.Name, Err: fmt.Errorf("%w: %w", ErrNotStarted, cause)}
}

func (r *Runner) runOne(ctx context.Context, job Job) Result {
	var pc *pipeline.PipelineContext
	if job.Tree != nil {
		pc = pipeline.FromTree(ctx, job.Tree)
	} else {
		pc = pipeline.FromSource(ctx, job.Path, job.Format, job.Source)
	}

	pc = pipeline.New(
		codec.DecodeProcessor{},
		backend.NewExecutionProcessor(r.Backend),
	).Run(pc)

	res := Result{Name: job.Name, RunID: pc.RunID, Elapsed: time.Since(pc.StartedAt)}
	if pc.Failed() {
		res.Err = pc.Err()
		logging.Get("batch").Debugf("job %s (%s) failed: %v", job.Name, pc.RunID, res.Err)
		return res
	}
	res.Value = pc.Result
	return res
}

// JobsFromFiles reads each path into a job named after the file. The tree
// format follows the extension.
func JobsFromFiles(paths []string) ([]Job, error) {
	jobs := make([]Job, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if _, err := codec.FormatForPath(path); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		jobs = append(jobs, Job{Name: path, Path: path, Source: data})
	}
	return jobs, nil
}

// Summarize counts successes and failures.
func Summarize(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
