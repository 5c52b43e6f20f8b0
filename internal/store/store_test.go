package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/vm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "programs.db"), config.DefaultMaxStack)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tree := ast.NewBinary(ast.Add, ast.NewAssign("x", ast.NewNumber(3)), ast.NewIdentifier("x"))

	p, err := s.Put(ctx, tree)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if p.ID == "" || p.Digest == "" {
		t.Fatalf("Put returned %+v", p)
	}

	got, err := s.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ast.Equal(got.Tree, tree) {
		t.Errorf("tree = %s, want %s", ast.Format(got.Tree), ast.Format(tree))
	}
	if string(got.Code) != string(vm.Generate(tree)) {
		t.Errorf("code = % x", got.Code)
	}
	if len(got.Names) != 1 || got.Names[0] != "x" {
		t.Errorf("names = %v", got.Names)
	}
	if !got.Created.Equal(p.Created) {
		t.Errorf("created = %v, want %v", got.Created, p.Created)
	}

	v, err := s.Run(ctx, p.ID)
	if err != nil || v != 6 {
		t.Errorf("Run = %v, %v; want 6", v, err)
	}
}

func TestPutDeduplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.Put(ctx, ast.NewBinary(ast.Add, ast.NewNumber(1), ast.NewNumber(2)))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	b, err := s.Put(ctx, ast.NewBinary(ast.Add, ast.NewNumber(1), ast.NewNumber(2)))
	if err != nil {
		t.Fatalf("Put again: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("duplicate program stored twice: %s, %s", a.ID, b.ID)
	}

	c, err := s.Put(ctx, ast.NewBinary(ast.Add, ast.NewNumber(2), ast.NewNumber(1)))
	if err != nil {
		t.Fatalf("Put other: %v", err)
	}
	if c.ID == a.ID {
		t.Errorf("different programs share an ID")
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List returned %d programs, want 2", len(all))
	}
}

func TestDeleteAndNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.Put(ctx, ast.NewNumber(5))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
	if _, err := s.Run(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Run(missing) = %v, want ErrNotFound", err)
	}
}

func TestRunReportsVMFaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.Put(ctx, ast.NewBinary(ast.Divide, ast.NewNumber(1), ast.NewNumber(0)))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Run(ctx, p.ID); !errors.Is(err, vm.ErrDivisionByZero) {
		t.Errorf("Run = %v, want division by zero", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open(":memory:", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	p, err := s.Put(context.Background(), ast.NewNumber(1))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Get(context.Background(), p.ID); err != nil {
		t.Errorf("Get: %v", err)
	}
}

func TestDigestSeparatesNames(t *testing.T) {
	if Digest([]byte{1}, []string{"ab", "c"}) == Digest([]byte{1}, []string{"a", "bc"}) {
		t.Errorf("digest ignores name boundaries")
	}
}
