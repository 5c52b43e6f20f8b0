package conformance

import (
	"context"
	"strings"
	"testing"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/backend"
	"github.com/funvibe/walc/internal/config"
)

func TestConformance(t *testing.T) {
	cases, err := LoadDir("testdata")
	if err != nil {
		t.Fatalf("Failed to load cases: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("No cases loaded")
	}

	runner := NewRunner(backend.LimitsFrom(config.Default()))
	results := runner.RunAll(context.Background(), cases)

	for _, result := range results {
		t.Run(result.Case.ID(), func(t *testing.T) {
			if result.Skipped {
				t.Skipf("Skipped: %s", result.SkipReason)
			} else if !result.Passed {
				t.Errorf("Case failed: %v", result.Error)
			}
		})
	}

	t.Log(FormatStats(ComputeStats(results)))
}

func TestLoadDirFindsBothFormats(t *testing.T) {
	cases, err := LoadDir("testdata")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	seen := map[string]bool{}
	for _, c := range cases {
		seen[c.File] = true
	}
	for _, file := range []string{"arithmetic.yaml", "errors.yaml", "variables.yaml", "literal.txtar", "assign.txtar"} {
		if !seen[file] {
			t.Errorf("no cases loaded from %s", file)
		}
	}
}

func TestParseArchive(t *testing.T) {
	data := []byte(`A comment.
-- tree.json --
{"Number":{"value":1}}
-- expect --
error: DivisionByZero
`)
	lc, err := ParseArchive("one.txtar", data)
	if err != nil {
		t.Fatalf("ParseArchive: %v", err)
	}
	if lc.Case.Name != "one" || lc.Case.Description != "A comment." {
		t.Errorf("case = %+v", lc.Case)
	}
	if !ast.Equal(lc.Tree, ast.NewNumber(1)) {
		t.Errorf("tree = %s", ast.Format(lc.Tree))
	}

	// a literal never divides by zero
	res := NewRunner(backend.Limits{}).Run(context.Background(), lc)
	if res.Passed || res.Error == nil {
		t.Errorf("case should fail: %+v", res)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
		want string
	}{
		{"archive without tree", func() error {
			_, err := ParseArchive("x.txtar", []byte("-- expect --\nvalue: 1\n"))
			return err
		}, "tree.json"},
		{"archive without expect", func() error {
			_, err := ParseArchive("x.txtar", []byte("-- tree.json --\n{\"Number\":{\"value\":1}}\n"))
			return err
		}, "expect"},
		{"suite unknown field", func() error {
			_, err := ParseSuite([]byte("name: s\ncases: []\nextra: 1\n"))
			return err
		}, "extra"},
		{"case without expectation", func() error {
			_, err := ParseSuite([]byte("name: s\ncases:\n  - name: c\n    tree: {Number: {value: 1}}\n    expect: {}\n"))
			return err
		}, "value or an error"},
		{"unknown error kind", func() error {
			_, err := ParseSuite([]byte("name: s\ncases:\n  - name: c\n    tree: {Number: {value: 1}}\n    expect: {error: Oops}\n"))
			return err
		}, "Oops"},
		{"bad tree", func() error {
			_, err := ParseSuite([]byte("name: s\ncases:\n  - name: c\n    tree: {Nmber: {value: 1}}\n    expect: {value: 1}\n"))
			return err
		}, "case c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestEngineLimitFaults(t *testing.T) {
	var deep ast.Node = ast.NewNumber(1)
	for i := 0; i < 30; i++ {
		deep = ast.NewBinary(ast.Add, ast.NewNumber(1), deep)
	}

	tests := []struct {
		kind   string
		limits backend.Limits
	}{
		// both engines refuse the tree past the depth limit
		{"DepthExceeded", backend.Limits{MaxDepth: 10, MaxStack: 64}},
		{"StackOverflow", backend.Limits{MaxStack: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			lc := LoadedCase{Case: Case{Name: tt.kind, Expect: Expectation{Error: tt.kind}}, Tree: deep}
			if res := NewRunner(tt.limits).Run(context.Background(), lc); !res.Passed {
				t.Errorf("%s: %v", tt.kind, res.Error)
			}
		})
	}
}

func TestSkippedCase(t *testing.T) {
	lc := LoadedCase{Case: Case{Name: "s", Skip: "not yet"}, Tree: ast.NewNumber(1)}
	res := NewRunner(backend.Limits{}).Run(context.Background(), lc)
	if !res.Skipped || res.SkipReason != "not yet" {
		t.Errorf("result = %+v", res)
	}
	if stats := ComputeStats([]CaseResult{res}); stats.Skipped != 1 || stats.Total != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
