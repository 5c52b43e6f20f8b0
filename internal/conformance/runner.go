package conformance

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/funvibe/walc/internal/backend"
	"github.com/funvibe/walc/internal/evaluator"
	"github.com/funvibe/walc/internal/vm"
)

// errorKinds maps an expectation's error name to the sentinel each engine
// must report. A nil sentinel means that engine has no such fault and its
// outcome is not checked for the case.
var errorKinds = map[string]struct{ treeWalk, vm error }{
	"DivisionByZero":      {evaluator.ErrDivisionByZero, vm.ErrDivisionByZero},
	"NonFiniteResult":     {evaluator.ErrNonFiniteResult, vm.ErrNonFiniteResult},
	"UndefinedIdentifier": {evaluator.ErrUndefinedIdentifier, vm.ErrUndefinedVariable},
	"DepthExceeded":       {evaluator.ErrDepthExceeded, vm.ErrDepthExceeded},
	"StackOverflow":       {nil, vm.ErrStackOverflow},
}

// CaseResult represents the outcome of running a single case
type CaseResult struct {
	Case       LoadedCase
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
}

// Runner executes conformance cases
type Runner struct {
	TreeWalk backend.Backend
	VM       backend.Backend
}

// NewRunner creates a runner with the given engine limits
func NewRunner(limits backend.Limits) *Runner {
	return &Runner{
		TreeWalk: backend.NewTreeWalk(limits.MaxDepth),
		VM:       backend.NewVM(limits),
	}
}

// Run executes a single case on both engines and checks the generator
func (r *Runner) Run(ctx context.Context, lc LoadedCase) CaseResult {
	if skipped, reason := lc.Case.IsSkipped(); skipped {
		return CaseResult{Case: lc, Skipped: true, SkipReason: reason}
	}

	if err := r.check(ctx, lc); err != nil {
		return CaseResult{Case: lc, Error: err}
	}
	return CaseResult{Case: lc, Passed: true}
}

func (r *Runner) check(ctx context.Context, lc LoadedCase) error {
	expect := lc.Case.Expect
	if expect.Code != "" || expect.Disasm != "" {
		if err := checkProgram(lc); err != nil {
			return err
		}
	}

	twValue, twErr := r.TreeWalk.Run(ctx, lc.Tree)
	vmValue, vmErr := r.VM.Run(ctx, lc.Tree)

	if expect.Error != "" {
		kinds := errorKinds[expect.Error]
		if err := expectError(r.TreeWalk.Name(), kinds.treeWalk, twValue, twErr); err != nil {
			return err
		}
		return expectError(r.VM.Name(), kinds.vm, vmValue, vmErr)
	}

	if twErr != nil {
		return fmt.Errorf("%s failed: %w", r.TreeWalk.Name(), twErr)
	}
	if vmErr != nil {
		return fmt.Errorf("%s failed: %w", r.VM.Name(), vmErr)
	}
	if math.Float64bits(twValue) != math.Float64bits(vmValue) {
		return fmt.Errorf("engines disagree: %s %v, %s %v", r.TreeWalk.Name(), twValue, r.VM.Name(), vmValue)
	}
	if !matches(twValue, *expect.Value, expect.Tolerance) {
		return fmt.Errorf("got %v, want %v", twValue, *expect.Value)
	}
	return nil
}

// checkProgram compares the generated stream against the expected bytes and listing.
func checkProgram(lc LoadedCase) error {
	expect := lc.Case.Expect
	program, err := vm.Compile(lc.Tree)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if expect.Code != "" {
		want, err := hex.DecodeString(strings.Join(strings.Fields(expect.Code), ""))
		if err != nil {
			return fmt.Errorf("bad code hex: %w", err)
		}
		if string(want) != string(program.Code) {
			return fmt.Errorf("generated % x, want % x", program.Code, want)
		}
	}
	if expect.Disasm != "" {
		listing := vm.Disassemble(program.Code, lc.Case.Name, program.Names)
		// drop the "== name ==" header
		_, body, _ := strings.Cut(listing, "\n")
		if strings.TrimSpace(body) != strings.TrimSpace(expect.Disasm) {
			return fmt.Errorf("disassembly:\n%s\nwant:\n%s", body, expect.Disasm)
		}
	}
	return nil
}

func expectError(engine string, sentinel error, v float64, err error) error {
	if sentinel == nil {
		return nil
	}
	if err == nil {
		return fmt.Errorf("%s returned %v, want error %v", engine, v, sentinel)
	}
	if !errors.Is(err, sentinel) {
		return fmt.Errorf("%s error %v, want %v", engine, err, sentinel)
	}
	return nil
}

func matches(got, want, tolerance float64) bool {
	if tolerance == 0 {
		return math.Float64bits(got) == math.Float64bits(want)
	}
	return math.Abs(got-want) <= tolerance
}

// RunAll executes all loaded cases
func (r *Runner) RunAll(ctx context.Context, cases []LoadedCase) []CaseResult {
	results := make([]CaseResult, len(cases))
	for i, lc := range cases {
		results[i] = r.Run(ctx, lc)
	}
	return results
}

// SummaryStats computes statistics from case results
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// ComputeStats generates statistics from case results
func ComputeStats(results []CaseResult) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, r := range results {
		if r.Skipped {
			stats.Skipped++
		} else if r.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// FormatStats returns a human-readable summary
func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}
