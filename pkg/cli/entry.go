// Package cli implements the walc command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/walc/internal/backend"
	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/logging"
)

const usage = `Usage: walc <command> [options] [args]

Commands:
  eval <tree>              evaluate a tree file ("-" for stdin)
  compile <tree> [-o out]  write a bundle (.walb), or the bare stream with -raw
  run <program>            run a bundle or bare stream on the virtual machine
  disasm <program|tree>    print the instruction listing
  check <tree>...          run both engines and compare results
  batch <tree>...          run many trees concurrently (-j workers)
  conform <dir>            run conformance suites on both engines
  store put|get|list|run|rm [arg]
                           manage compiled programs in the artifact store
  serve                    serve walc.v1.Engine over gRPC (--listen addr)
  version                  print the version

Options:
  --backend treewalk|vm|both   engine for eval and batch
  --format json|yaml|cbor      tree format when the extension does not say
  --config <file>              configuration file (default: walc.yaml/walc.toml lookup)
  --store <file>               artifact database
  -v, -vv                      more logging
`

// exitError carries a process exit status.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(format string, args ...interface{}) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

// options are the flags shared by every command.
type options struct {
	backend    string
	format     string
	configPath string
	storePath  string
	listen     string
	output     string
	workers    int
	raw        bool
	verbosity  int
}

type handler func(ctx context.Context, command string) (bool, error)

type app struct {
	args   []string // positional arguments after the command name
	opts   options
	cfg    *config.Config
	limits backend.Limits

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	color  bool
}

// Run executes the command line in os.Args and exits.
func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Main(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Main executes argv (program name first) and returns the exit status.
func Main(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, color: isTerminal(stderr)}

	if len(argv) < 2 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	command := argv[1]

	// help and version need neither flags nor a readable config
	for _, h := range []handler{a.handleHelp, a.handleVersion} {
		if handled, _ := h(ctx, command); handled {
			return 0
		}
	}

	if err := a.parseArgs(argv[2:]); err != nil {
		return a.report(err)
	}
	if err := a.loadConfig(); err != nil {
		return a.report(err)
	}

	handlers := []handler{
		a.handleEval,
		a.handleCompile,
		a.handleRun,
		a.handleDisasm,
		a.handleCheck,
		a.handleBatch,
		a.handleConform,
		a.handleStore,
		a.handleServe,
	}
	for _, h := range handlers {
		handled, err := h(ctx, command)
		if !handled {
			continue
		}
		if err != nil {
			return a.report(err)
		}
		return 0
	}
	return a.report(usageError("unknown command %q (see walc help)", command))
}

func (a *app) parseArgs(args []string) error {
	value := func(i *int, flag string) (string, error) {
		if *i+1 >= len(args) {
			return "", usageError("%s needs a value", flag)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		var err error
		switch arg {
		case "--backend", "-b":
			a.opts.backend, err = value(&i, arg)
		case "--format", "-f":
			a.opts.format, err = value(&i, arg)
		case "--config":
			a.opts.configPath, err = value(&i, arg)
		case "--store":
			a.opts.storePath, err = value(&i, arg)
		case "--listen":
			a.opts.listen, err = value(&i, arg)
		case "-o", "--output":
			a.opts.output, err = value(&i, arg)
		case "-j", "--workers":
			var s string
			if s, err = value(&i, arg); err == nil {
				if a.opts.workers, err = strconv.Atoi(s); err != nil || a.opts.workers < 1 {
					err = usageError("%s needs a positive integer, got %q", arg, s)
				}
			}
		case "-raw", "--raw":
			a.opts.raw = true
		case "-v", "--verbose":
			a.opts.verbosity++
		case "-vv":
			a.opts.verbosity += 2
		case "-q", "--quiet":
			a.opts.verbosity--
		case "-":
			a.args = append(a.args, arg)
		default:
			if strings.HasPrefix(arg, "-") {
				return usageError("unknown option %s", arg)
			}
			a.args = append(a.args, arg)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) loadConfig() error {
	var err error
	if a.opts.configPath != "" {
		a.cfg, err = config.LoadConfig(a.opts.configPath)
		if err == nil {
			err = a.cfg.ApplyEnv(os.LookupEnv)
		}
	} else {
		a.cfg, err = config.Load(".")
	}
	if err != nil {
		return err
	}

	if a.opts.backend != "" {
		a.cfg.Engine.Backend = a.opts.backend
	}
	if a.opts.storePath != "" {
		a.cfg.Store.Path = a.opts.storePath
	}
	if a.opts.listen != "" {
		a.cfg.Server.Listen = a.opts.listen
	}
	if a.opts.workers > 0 {
		a.cfg.Batch.Workers = a.opts.workers
	}
	a.limits = backend.LimitsFrom(a.cfg)

	logging.Configure(a.cfg.Log.Verbosity+a.opts.verbosity, a.cfg.Log.File)
	if a.cfg.Path != "" {
		logging.Get("cli").Debugf("using configuration %s", a.cfg.Path)
	}
	return nil
}

// report prints err and returns its exit status.
func (a *app) report(err error) int {
	prefix := "error:"
	if a.color {
		prefix = "\x1b[31merror:\x1b[0m"
	}
	fmt.Fprintf(a.stderr, "%s %s\n", prefix, err)

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.code == 2 {
			fmt.Fprintln(a.stderr, "run 'walc help' for usage")
		}
		return ee.code
	}
	return 1
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *app) handleHelp(_ context.Context, command string) (bool, error) {
	if command != "help" && command != "-help" && command != "--help" && command != "-h" {
		return false, nil
	}
	fmt.Fprint(a.stdout, usage)
	return true, nil
}

func (a *app) handleVersion(_ context.Context, command string) (bool, error) {
	switch command {
	case "version", "-version", "--version":
		fmt.Fprintln(a.stdout, "walc "+config.Version)
		return true, nil
	}
	return false, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
