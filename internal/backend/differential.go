package backend

import (
	"context"
	"fmt"
	"math"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/logging"
)

// MismatchError reports that two backends disagreed on a tree: their values
// differ bit for bit, or only one of them failed.
type MismatchError struct {
	Tree                  string
	Left, Right           string
	LeftValue, RightValue float64
	LeftError, RightError error
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("backends disagree on %s: %s %s, %s %s",
		e.Tree, e.Left, outcome(e.LeftValue, e.LeftError), e.Right, outcome(e.RightValue, e.RightError))
}

func outcome(v float64, err error) string {
	if err != nil {
		return "failed (" + err.Error() + ")"
	}
	return fmt.Sprintf("returned %v", v)
}

// DifferentialBackend runs two backends on every tree and returns the shared
// value, the shared failure (the left backend's error, since error
// granularity legitimately differs), or a *MismatchError.
type DifferentialBackend struct {
	Left, Right Backend
}

// NewDifferential creates a backend comparing left against right
func NewDifferential(left, right Backend) *DifferentialBackend {
	return &DifferentialBackend{Left: left, Right: right}
}

func (b *DifferentialBackend) Run(ctx context.Context, tree ast.Node) (float64, error) {
	lv, lerr := b.Left.Run(ctx, tree)
	rv, rerr := b.Right.Run(ctx, tree)

	switch {
	case lerr != nil && rerr != nil:
		logging.Get("backend").Debugf("%s and %s both failed: %v / %v", b.Left.Name(), b.Right.Name(), lerr, rerr)
		return 0, lerr
	case lerr == nil && rerr == nil && math.Float64bits(lv) == math.Float64bits(rv):
		return lv, nil
	}

	return 0, &MismatchError{
		Tree:       ast.Format(tree),
		Left:       b.Left.Name(),
		Right:      b.Right.Name(),
		LeftValue:  lv,
		RightValue: rv,
		LeftError:  lerr,
		RightError: rerr,
	}
}

func (b *DifferentialBackend) Name() string {
	return config.DifferentialBackendName
}
