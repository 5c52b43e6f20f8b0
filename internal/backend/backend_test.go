package backend

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/codec"
	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/evaluator"
	"github.com/funvibe/walc/internal/pipeline"
	"github.com/funvibe/walc/internal/vm"
)

func num(v float64) ast.Node { return ast.NewNumber(v) }

func bin(k ast.OpKind, l, r ast.Node) ast.Node { return ast.NewBinary(k, l, r) }

func defaultLimits() Limits {
	return LimitsFrom(config.Default())
}

func TestBackendsAgree(t *testing.T) {
	trees := []ast.Node{
		bin(ast.Subtract, num(3.1), num(2)),
		bin(ast.Exponentiate, num(2), bin(ast.Exponentiate, num(3), num(2))),
		ast.NewAssign("x_var", bin(ast.Subtract, bin(ast.Exponentiate, num(3), num(-1)), num(1))),
		bin(ast.Divide, ast.NewAssign("n", num(7)), bin(ast.Add, ast.NewIdentifier("n"), num(0.5))),
	}
	ctx := context.Background()

	for _, tree := range trees {
		tw, err := NewTreeWalk(config.DefaultMaxDepth).Run(ctx, tree)
		if err != nil {
			t.Fatalf("treewalk %s: %v", ast.Format(tree), err)
		}
		v, err := NewVM(Limits{MaxStack: config.DefaultMaxStack}).Run(ctx, tree)
		if err != nil {
			t.Fatalf("vm %s: %v", ast.Format(tree), err)
		}
		if math.Float64bits(tw) != math.Float64bits(v) {
			t.Errorf("%s: treewalk %v, vm %v", ast.Format(tree), tw, v)
		}
		both, err := NewDifferential(NewTreeWalk(0), NewVM(Limits{})).Run(ctx, tree)
		if err != nil || both != tw {
			t.Errorf("differential %s = %v, %v", ast.Format(tree), both, err)
		}
	}
}

func TestDifferentialSharedFailure(t *testing.T) {
	b := NewDifferential(NewTreeWalk(0), NewVM(Limits{}))
	_, err := b.Run(context.Background(), bin(ast.Divide, num(1), num(0)))
	if !errors.Is(err, evaluator.ErrDivisionByZero) {
		t.Fatalf("error = %v, want division by zero", err)
	}
	var mismatch *MismatchError
	if errors.As(err, &mismatch) {
		t.Errorf("shared failure reported as mismatch")
	}
}

// constBackend always returns the same outcome.
type constBackend struct {
	name string
	v    float64
	err  error
}

func (c constBackend) Run(context.Context, ast.Node) (float64, error) { return c.v, c.err }
func (c constBackend) Name() string                                   { return c.name }

func TestDifferentialMismatch(t *testing.T) {
	tests := []struct {
		name        string
		left, right constBackend
		want        string
	}{
		{"values differ", constBackend{"a", 1, nil}, constBackend{"b", 2, nil}, "a returned 1, b returned 2"},
		{"signed zero", constBackend{"a", 0, nil}, constBackend{"b", math.Copysign(0, -1), nil}, "returned"},
		{"one fails", constBackend{"a", 1, nil}, constBackend{"b", 0, errors.New("boom")}, "b failed (boom)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDifferential(tt.left, tt.right).Run(context.Background(), num(1))
			var mismatch *MismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("error = %v, want *MismatchError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"treewalk", "vm", "both", ""} {
		b, err := ByName(name, defaultLimits())
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if name != "" && b.Name() != name {
			t.Errorf("ByName(%q).Name() = %q", name, b.Name())
		}
	}
	if _, err := ByName("jit", defaultLimits()); err == nil {
		t.Errorf("ByName(jit) should fail")
	}
}

func TestLimitsApply(t *testing.T) {
	var deep ast.Node = num(1)
	for i := 0; i < 40; i++ {
		deep = bin(ast.Add, deep, num(1))
	}
	if _, err := NewTreeWalk(10).Run(context.Background(), deep); !errors.Is(err, evaluator.ErrDepthExceeded) {
		t.Errorf("treewalk error = %v, want depth exceeded", err)
	}

	// right-leaning chain keeps every left operand on the stack
	var wide ast.Node = num(1)
	for i := 0; i < 40; i++ {
		wide = bin(ast.Add, num(1), wide)
	}
	if _, err := NewVM(Limits{MaxStack: 8}).Run(context.Background(), wide); !errors.Is(err, vm.ErrStackOverflow) {
		t.Errorf("vm error = %v, want stack overflow", err)
	}
}

func addChain(depth int) ast.Node {
	var n ast.Node = num(1)
	for d := 1; d < depth; d++ {
		n = bin(ast.Add, n, num(1))
	}
	return n
}

func TestDepthLimitSharedByBothEngines(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		depth  int
		fails  bool
	}{
		{"default limit exceeded", Limits{}, config.DefaultMaxDepth + 1, true},
		{"default limit reached", Limits{}, config.DefaultMaxDepth, false},
		{"small limit exceeded", Limits{MaxDepth: 10}, 11, true},
		{"small limit reached", Limits{MaxDepth: 10}, 10, false},
	}
	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := addChain(tt.depth)
			for _, name := range []string{config.TreeWalkBackendName, config.VMBackendName, config.DifferentialBackendName} {
				b, err := ByName(name, tt.limits)
				if err != nil {
					t.Fatalf("ByName(%s): %v", name, err)
				}
				v, err := b.Run(ctx, tree)
				if !tt.fails {
					if err != nil || v != float64(tt.depth) {
						t.Errorf("%s = %v, %v; want %d", name, v, err, tt.depth)
					}
					continue
				}
				var mismatch *MismatchError
				if errors.As(err, &mismatch) {
					t.Fatalf("%s reported a mismatch: %v", name, err)
				}
				if !errors.Is(err, evaluator.ErrDepthExceeded) {
					t.Errorf("%s error = %v, want depth exceeded", name, err)
				}
			}
		})
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewVM(Limits{}).Run(ctx, num(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("vm error = %v", err)
	}
	if _, err := NewTreeWalk(0).Run(ctx, num(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("treewalk error = %v", err)
	}
}

func TestExecutionPipeline(t *testing.T) {
	src := []byte(`{"Subtract":{"left":{"Number":{"value":3.1}},"right":{"Number":{"value":2}}}}`)

	for _, name := range []string{"treewalk", "vm", "both"} {
		b, _ := ByName(name, defaultLimits())
		p := pipeline.New(codec.DecodeProcessor{}, vm.CompileProcessor{}, NewExecutionProcessor(b))
		ctx := p.Run(pipeline.FromSource(context.Background(), "", "json", src))
		if ctx.Failed() {
			t.Fatalf("%s: %v", name, ctx.Err())
		}
		if !ctx.HasResult || ctx.Backend != name {
			t.Errorf("%s: result not recorded: %+v", name, ctx)
		}
		if len(ctx.Code) != 19 {
			t.Errorf("%s: code length %d", name, len(ctx.Code))
		}
	}
}

func TestExecutionFromCode(t *testing.T) {
	code := vm.Generate(bin(ast.Multiply, num(6), num(7)))

	ctx := NewExecutionProcessor(NewVM(Limits{})).Process(pipeline.FromCode(context.Background(), code, nil))
	if ctx.Failed() || ctx.Result != 42 {
		t.Errorf("vm from code = %v, %v", ctx.Result, ctx.Err())
	}

	ctx = NewExecutionProcessor(NewTreeWalk(0)).Process(pipeline.FromCode(context.Background(), code, nil))
	if !ctx.Failed() {
		t.Errorf("treewalk cannot run bytecode, expected failure")
	}
}

func TestExecutionSkipsAfterFailure(t *testing.T) {
	ctx := pipeline.FromSource(context.Background(), "", "json", []byte(`{"Nope":{}}`))
	ctx = pipeline.New(codec.DecodeProcessor{}, vm.CompileProcessor{}, NewExecutionProcessor(NewVM(Limits{}))).Run(ctx)
	if len(ctx.Errors) != 1 || ctx.HasResult {
		t.Errorf("errors = %v, has result %v", ctx.Errors, ctx.HasResult)
	}
}
