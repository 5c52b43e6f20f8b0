package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/backend"
	"github.com/funvibe/walc/internal/batch"
	"github.com/funvibe/walc/internal/codec"
	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/conformance"
	"github.com/funvibe/walc/internal/logging"
	"github.com/funvibe/walc/internal/pipeline"
	"github.com/funvibe/walc/internal/rpc"
	"github.com/funvibe/walc/internal/store"
	"github.com/funvibe/walc/internal/vm"
)

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}

// treeFormat picks the tree encoding for path: --format, then the file
// extension, then the configured default.
func (a *app) treeFormat(path string) string {
	if a.opts.format != "" {
		return a.opts.format
	}
	if _, err := codec.FormatForPath(path); err == nil {
		return ""
	}
	return a.cfg.Codec.Format
}

func (a *app) isTreeFile(path string) bool {
	if a.opts.format != "" {
		return true
	}
	_, err := codec.FormatForPath(path)
	return err == nil
}

func (a *app) decodeTree(ctx context.Context, path string) (ast.Node, error) {
	data, err := a.readInput(path)
	if err != nil {
		return nil, err
	}
	pctx := pipeline.New(&codec.DecodeProcessor{}).Run(pipeline.FromSource(ctx, path, a.treeFormat(path), data))
	if err := pctx.Err(); err != nil {
		return nil, err
	}
	return pctx.Tree, nil
}

// loadProgram reads a bundle, a tree (compiled on the fly) or a bare stream.
func (a *app) loadProgram(ctx context.Context, path string) (*vm.Program, error) {
	if a.isTreeFile(path) {
		tree, err := a.decodeTree(ctx, path)
		if err != nil {
			return nil, err
		}
		return vm.CompileDepth(tree, a.limits.MaxDepth)
	}
	data, err := a.readInput(path)
	if err != nil {
		return nil, err
	}
	if vm.IsBundle(data) {
		b, err := vm.DeserializeBundle(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return b.Program(), nil
	}
	return &vm.Program{Code: data}, nil
}

func (a *app) onePath(command string) (string, error) {
	if len(a.args) != 1 {
		return "", usageError("%s takes exactly one file", command)
	}
	return a.args[0], nil
}

func (a *app) handleEval(ctx context.Context, command string) (bool, error) {
	if command != "eval" {
		return false, nil
	}
	path, err := a.onePath(command)
	if err != nil {
		return true, err
	}
	data, err := a.readInput(path)
	if err != nil {
		return true, err
	}
	b, err := backend.ByName(a.cfg.Engine.Backend, a.limits)
	if err != nil {
		return true, usageError("%v", err)
	}

	processors := []pipeline.Processor{&codec.DecodeProcessor{}}
	if b.Name() == config.VMBackendName {
		processors = append(processors, &vm.CompileProcessor{MaxDepth: a.limits.MaxDepth})
	}
	processors = append(processors, backend.NewExecutionProcessor(b))

	pctx := pipeline.New(processors...).Run(pipeline.FromSource(ctx, path, a.treeFormat(path), data))
	if err := pctx.Err(); err != nil {
		return true, err
	}
	logging.Get("cli").Debugf("run %s on %s took %s", pctx.RunID, pctx.Backend, pctx.Elapsed)
	fmt.Fprintln(a.stdout, formatValue(pctx.Result))
	return true, nil
}

func (a *app) handleCompile(ctx context.Context, command string) (bool, error) {
	if command != "compile" {
		return false, nil
	}
	path, err := a.onePath(command)
	if err != nil {
		return true, err
	}
	tree, err := a.decodeTree(ctx, path)
	if err != nil {
		return true, err
	}
	program, err := vm.CompileDepth(tree, a.limits.MaxDepth)
	if err != nil {
		return true, err
	}

	var out []byte
	if a.opts.raw {
		if len(program.Names) > 0 {
			logging.Get("cli").Noticef("bare stream drops the slot table for %s", strings.Join(program.Names, ", "))
		}
		out = program.Code
	} else {
		source, err := codec.Encode(codec.JSON, tree)
		if err != nil {
			return true, err
		}
		if out, err = vm.NewBundle(program, source).Serialize(); err != nil {
			return true, err
		}
	}

	dest := a.opts.output
	if dest == "" {
		if path == "-" {
			return true, usageError("compile from stdin needs -o")
		}
		ext := config.BundleExtension
		if a.opts.raw {
			ext = ".bin"
		}
		dest = strings.TrimSuffix(path, filepath.Ext(path)) + ext
	}
	if dest == "-" {
		_, err = a.stdout.Write(out)
		return true, err
	}
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return true, err
	}
	fmt.Fprintf(a.stderr, "wrote %d bytes to %s\n", len(out), dest)
	return true, nil
}

func (a *app) handleRun(ctx context.Context, command string) (bool, error) {
	if command != "run" {
		return false, nil
	}
	path, err := a.onePath(command)
	if err != nil {
		return true, err
	}
	program, err := a.loadProgram(ctx, path)
	if err != nil {
		return true, err
	}
	v, err := backend.NewVM(a.limits).RunCode(ctx, program.Code, program.Names)
	if err != nil {
		return true, err
	}
	fmt.Fprintln(a.stdout, formatValue(v))
	return true, nil
}

func (a *app) handleDisasm(ctx context.Context, command string) (bool, error) {
	if command != "disasm" {
		return false, nil
	}
	path, err := a.onePath(command)
	if err != nil {
		return true, err
	}
	program, err := a.loadProgram(ctx, path)
	if err != nil {
		return true, err
	}
	fmt.Fprint(a.stdout, vm.Disassemble(program.Code, filepath.Base(path), program.Names))
	return true, nil
}

func (a *app) handleCheck(ctx context.Context, command string) (bool, error) {
	if command != "check" {
		return false, nil
	}
	if len(a.args) == 0 {
		return true, usageError("check needs at least one file")
	}
	diff := backend.NewDifferential(backend.NewTreeWalk(a.limits.MaxDepth), backend.NewVM(a.limits))

	failed := 0
	for _, path := range a.args {
		tree, err := a.decodeTree(ctx, path)
		if err != nil {
			failed++
			fmt.Fprintf(a.stdout, "%s: %v\n", path, err)
			continue
		}
		v, err := diff.Run(ctx, tree)
		switch {
		case err == nil:
			fmt.Fprintf(a.stdout, "%s: ok %s\n", path, formatValue(v))
		case isMismatch(err):
			failed++
			fmt.Fprintf(a.stdout, "%s: MISMATCH %v\n", path, err)
		default:
			// both engines agree that the tree fails
			fmt.Fprintf(a.stdout, "%s: ok (%v)\n", path, err)
		}
	}
	if failed > 0 {
		return true, fmt.Errorf("%d of %d checks failed", failed, len(a.args))
	}
	return true, nil
}

func isMismatch(err error) bool {
	_, ok := err.(*backend.MismatchError)
	return ok
}

func (a *app) handleBatch(ctx context.Context, command string) (bool, error) {
	if command != "batch" {
		return false, nil
	}
	if len(a.args) == 0 {
		return true, usageError("batch needs at least one file")
	}
	jobs, err := batch.JobsFromFiles(a.args)
	if err != nil {
		return true, err
	}
	for i := range jobs {
		jobs[i].Format = a.treeFormat(jobs[i].Path)
	}
	b, err := backend.ByName(a.cfg.Engine.Backend, a.limits)
	if err != nil {
		return true, usageError("%v", err)
	}

	results, err := batch.NewRunner(b, a.cfg.Batch.Workers).Run(ctx, jobs)
	if err != nil {
		return true, err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, formatValue(r.Value), r.Elapsed)
		} else {
			fmt.Fprintf(tw, "%s\terror: %v\t%s\n", r.Name, r.Err, r.Elapsed)
		}
	}
	tw.Flush()

	ok, failed := batch.Summarize(results)
	fmt.Fprintf(a.stderr, "%d ok, %d failed\n", ok, failed)
	if failed > 0 {
		return true, fmt.Errorf("%d of %d runs failed", failed, len(results))
	}
	return true, nil
}

func (a *app) handleConform(ctx context.Context, command string) (bool, error) {
	if command != "conform" {
		return false, nil
	}
	path, err := a.onePath(command)
	if err != nil {
		return true, err
	}
	var cases []conformance.LoadedCase
	if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
		cases, err = conformance.LoadFile(path)
	} else {
		cases, err = conformance.LoadDir(path)
	}
	if err != nil {
		return true, err
	}

	results := conformance.NewRunner(a.limits).RunAll(ctx, cases)
	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Fprintf(a.stdout, "SKIP %s: %s\n", r.Case.ID(), r.SkipReason)
		case !r.Passed:
			fmt.Fprintf(a.stdout, "FAIL %s: %v\n", r.Case.ID(), r.Error)
		}
	}
	stats := conformance.ComputeStats(results)
	fmt.Fprintln(a.stdout, conformance.FormatStats(stats))
	if stats.Failed > 0 {
		return true, fmt.Errorf("%d conformance cases failed", stats.Failed)
	}
	return true, nil
}

func (a *app) handleStore(ctx context.Context, command string) (bool, error) {
	if command != "store" {
		return false, nil
	}
	if len(a.args) == 0 {
		return true, usageError("store needs a subcommand: put, get, list, run or rm")
	}
	sub, rest := a.args[0], a.args[1:]
	wantArgs := map[string]int{"put": 1, "get": 1, "list": 0, "run": 1, "rm": 1}
	n, ok := wantArgs[sub]
	if !ok {
		return true, usageError("unknown store subcommand %q", sub)
	}
	if len(rest) != n {
		return true, usageError("store %s takes %d argument(s)", sub, n)
	}

	st, err := store.Open(a.cfg.Store.Path, a.limits.MaxStack)
	if err != nil {
		return true, err
	}
	defer st.Close()

	switch sub {
	case "put":
		tree, err := a.decodeTree(ctx, rest[0])
		if err != nil {
			return true, err
		}
		p, err := st.Put(ctx, tree)
		if err != nil {
			return true, err
		}
		fmt.Fprintln(a.stdout, p.ID)
	case "get":
		p, err := st.Get(ctx, rest[0])
		if err != nil {
			return true, err
		}
		fmt.Fprintf(a.stdout, "id:      %s\ndigest:  %s\ncreated: %s\ntree:    %s\n",
			p.ID, p.Digest, p.Created.Format("2006-01-02 15:04:05"), ast.Format(p.Tree))
		fmt.Fprint(a.stdout, vm.Disassemble(p.Code, p.ID, p.Names))
	case "list":
		programs, err := st.List(ctx)
		if err != nil {
			return true, err
		}
		tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
		for _, p := range programs {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Created.Format("2006-01-02 15:04:05"), ast.Format(p.Tree))
		}
		tw.Flush()
	case "run":
		v, err := st.Run(ctx, rest[0])
		if err != nil {
			return true, err
		}
		fmt.Fprintln(a.stdout, formatValue(v))
	case "rm":
		if err := st.Delete(ctx, rest[0]); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (a *app) handleServe(ctx context.Context, command string) (bool, error) {
	if command != "serve" {
		return false, nil
	}
	if len(a.args) != 0 {
		return true, usageError("serve takes no arguments")
	}
	fmt.Fprintf(a.stderr, "serving %s on %s\n", rpc.ServiceName, a.cfg.Server.Listen)
	return true, rpc.NewServer(a.limits).ListenAndServe(ctx, a.cfg.Server.Listen)
}
