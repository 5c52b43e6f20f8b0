package walc_test

import (
	"errors"
	"math"
	"testing"

	"github.com/funvibe/walc/internal/evaluator"
	"github.com/funvibe/walc/internal/vm"
	"github.com/funvibe/walc/pkg/walc"
)

var threePointOne = 3.1

func TestBothPaths(t *testing.T) {
	tree := walc.Binary(walc.Subtract, walc.Number(threePointOne), walc.Number(2))

	direct, err := walc.Evaluate(tree)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	code, err := walc.Generate(tree)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(code) != 19 {
		t.Errorf("code length = %d, want 19", len(code))
	}
	viaVM, err := walc.Interpret(code)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	want := threePointOne - 2
	if math.Float64bits(direct) != math.Float64bits(want) || math.Float64bits(viaVM) != math.Float64bits(want) {
		t.Errorf("results %v / %v, want %v", direct, viaVM, want)
	}
}

func TestDivisionByZeroBothPaths(t *testing.T) {
	tree := walc.Binary(walc.Divide, walc.Number(1), walc.Number(0))
	if _, err := walc.Evaluate(tree); !errors.Is(err, evaluator.ErrDivisionByZero) {
		t.Errorf("Evaluate error = %v", err)
	}
	code, _ := walc.Generate(tree)
	if _, err := walc.Interpret(code); !errors.Is(err, vm.ErrDivisionByZero) {
		t.Errorf("Interpret error = %v", err)
	}
}

func TestEvaluateWith(t *testing.T) {
	env := map[string]float64{"x": 4}
	// y = x * 2
	v, err := walc.EvaluateWith(walc.Assign("y", walc.Binary(walc.Multiply, walc.Identifier("x"), walc.Number(2))), env)
	if err != nil || v != 8 {
		t.Fatalf("EvaluateWith = %v, %v", v, err)
	}
	if env["y"] != 8 || env["x"] != 4 {
		t.Errorf("env = %v", env)
	}

	if _, err := walc.EvaluateWith(walc.Identifier("z"), env); !errors.Is(err, evaluator.ErrUndefinedIdentifier) {
		t.Errorf("undefined error = %v", err)
	}
}

func TestTreeEncodings(t *testing.T) {
	tree := walc.Assign("x", walc.Binary(walc.Exponentiate, walc.Number(2), walc.Number(10)))
	for _, format := range []string{walc.JSON, walc.YAML, walc.CBOR} {
		data, err := walc.EncodeTree(format, tree)
		if err != nil {
			t.Fatalf("%s encode: %v", format, err)
		}
		back, err := walc.DecodeTree(format, data)
		if err != nil {
			t.Fatalf("%s decode: %v", format, err)
		}
		if !walc.Equal(tree, back) {
			t.Errorf("%s round trip: %s", format, walc.Format(back))
		}
	}
	if _, err := walc.DecodeTree("xml", nil); err == nil {
		t.Errorf("unknown format should fail")
	}
}

func TestEngine(t *testing.T) {
	e := walc.New()
	if err := e.Bind("rate", 3); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := e.Bind("name", "alice"); err == nil {
		t.Errorf("binding a string should fail")
	}

	// total = rate * 5
	if _, err := e.Eval(walc.Assign("total", walc.Binary(walc.Multiply, walc.Identifier("rate"), walc.Number(5)))); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	// assignments persist into later evaluations
	v, err := e.EvalSource("", "json", []byte(`{"Add":{"left":{"Identifier":{"name":"total"}},"right":{"Number":{"value":1}}}}`))
	if err != nil || v != 16 {
		t.Fatalf("EvalSource = %v, %v", v, err)
	}

	var total int
	if err := e.GetAs("total", &total); err != nil || total != 15 {
		t.Errorf("GetAs = %d, %v", total, err)
	}
	var small uint8
	if err := e.Bind("big", 1000); err != nil {
		t.Fatal(err)
	}
	if err := e.GetAs("big", &small); err == nil {
		t.Errorf("1000 should not fit in uint8")
	}
	if got := e.Variables(); len(got) != 3 || got[0] != "big" || got[1] != "rate" || got[2] != "total" {
		t.Errorf("Variables = %v", got)
	}
	if _, err := e.Get("missing"); err == nil {
		t.Errorf("missing variable should fail")
	}
}

func TestMarshaller(t *testing.T) {
	m := walc.NewMarshaller()
	f := float32(1.5)
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{7, 7, true},
		{uint16(9), 9, true},
		{&f, 1.5, true},
		{2.25, 2.25, true},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, err := m.ToValue(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ToValue(%v) = %v, %v", tt.in, got, err)
		}
	}
}
