package simplex

import (
	"errors"
	"math"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
	"gotest.tools/v3/assert"

	"github.com/ohowland/simpflex/internal/pkg/errs"
	"github.com/ohowland/simpflex/internal/pkg/optimize"
)

const tol = 1e-6

func near(a, b float64) bool {
	return math.Abs(a-b) < tol
}

func TestSolveInequalities(t *testing.T) {
	m := optimize.NewModel("ineq")
	x := m.AddVar("x")
	y := m.AddVar("y")
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, Sense: optimize.GreaterEq, RHS: 4}))
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}}, Sense: optimize.LessEq, RHS: 3}))
	assert.NilError(t, m.SetObjective([]optimize.Term{{Var: x, Coef: 2}, {Var: y, Coef: 3}}))

	sol, err := New(0, testr.New(t)).Solve(m)
	assert.NilError(t, err)
	assert.Equal(t, sol.Status, optimize.Optimal)
	assert.Assert(t, near(sol.Value(x), 3), "x=%v", sol.Value(x))
	assert.Assert(t, near(sol.Value(y), 1), "y=%v", sol.Value(y))
	assert.Assert(t, near(sol.Objective, 9), "obj=%v", sol.Objective)
}

func TestSolveEquality(t *testing.T) {
	m := optimize.NewModel("eq")
	x := m.AddVar("x")
	y := m.AddVar("y")
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}, {Var: y, Coef: -0.5}}, Sense: optimize.Equal}))
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}}, Sense: optimize.GreaterEq, RHS: 2}))
	assert.NilError(t, m.SetObjective([]optimize.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}))

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.NilError(t, err)
	assert.Assert(t, near(sol.Value(x), 2))
	assert.Assert(t, near(sol.Value(y), 4))
	assert.Assert(t, near(sol.Objective, 6))
}

func TestSolveNegativeRHS(t *testing.T) {
	m := optimize.NewModel("neg")
	x := m.AddVar("x")
	y := m.AddVar("y")
	// x - y <= -1  ->  y >= x + 1
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}, {Var: y, Coef: -1}}, Sense: optimize.LessEq, RHS: -1}))
	assert.NilError(t, m.SetObjective([]optimize.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}))

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.NilError(t, err)
	assert.Assert(t, near(sol.Value(x), 0))
	assert.Assert(t, near(sol.Value(y), 1))
}

func TestSolveUnusedVariableSitsAtZero(t *testing.T) {
	m := optimize.NewModel("unused")
	x := m.AddVar("x")
	z := m.AddVar("z")
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}, {Var: z, Coef: 0}}, Sense: optimize.GreaterEq, RHS: 1}))
	assert.NilError(t, m.SetObjective([]optimize.Term{{Var: x, Coef: 1}, {Var: z, Coef: 5}}))

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.NilError(t, err)
	assert.Assert(t, near(sol.Value(x), 1))
	assert.Equal(t, sol.Value(z), 0.0)
}

func TestSolveEmptyModel(t *testing.T) {
	m := optimize.NewModel("empty")
	m.AddVar("x")

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.NilError(t, err)
	assert.Equal(t, sol.Status, optimize.Optimal)
	assert.Equal(t, sol.Objective, 0.0)
}

func TestSolveInfeasible(t *testing.T) {
	m := optimize.NewModel("infeasible")
	x := m.AddVar("x")
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}}, Sense: optimize.LessEq, RHS: 1}))
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}}, Sense: optimize.GreaterEq, RHS: 2}))
	assert.NilError(t, m.SetObjective([]optimize.Term{{Var: x, Coef: 1}}))

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.Equal(t, sol.Status, optimize.Infeasible)

	var sErr *errs.SolverError
	assert.Assert(t, errors.As(err, &sErr))
	assert.Equal(t, sErr.Status, "Infeasible")
}

func TestSolveEmptyRowThatCannotHold(t *testing.T) {
	m := optimize.NewModel("demand")
	m.AddVar("x")
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Name: "load|p1|2020|h1", Sense: optimize.GreaterEq, RHS: 10}))

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.Equal(t, sol.Status, optimize.Infeasible)
	assert.ErrorContains(t, err, "load|p1|2020|h1")
}

func TestSolveUnbounded(t *testing.T) {
	m := optimize.NewModel("unbounded")
	x := m.AddVar("x")
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}}, Sense: optimize.GreaterEq, RHS: 1}))
	assert.NilError(t, m.SetObjective([]optimize.Term{{Var: x, Coef: -1}}))

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.Equal(t, sol.Status, optimize.Unbounded)
	assert.Assert(t, err != nil)
}

func TestSolveUnconstrainedNegativeCost(t *testing.T) {
	m := optimize.NewModel("free")
	x := m.AddVar("x")
	assert.NilError(t, m.SetObjective([]optimize.Term{{Var: x, Coef: -1}}))

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.Equal(t, sol.Status, optimize.Unbounded)
	assert.ErrorContains(t, err, "unconstrained")
}

func TestSolveMapsSolverFailure(t *testing.T) {
	orig := lpSolve
	defer func() { lpSolve = orig }()
	lpSolve = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		return 0, nil, lp.ErrSingular
	}

	m := optimize.NewModel("singular")
	x := m.AddVar("x")
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}}, Sense: optimize.GreaterEq, RHS: 1}))

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.Equal(t, sol.Status, optimize.Error)
	assert.Assert(t, errors.Is(err, lp.ErrSingular))
}

func TestSolveStartsFromArtificialBasis(t *testing.T) {
	orig := lpSolve
	defer func() { lpSolve = orig }()
	var calls int
	lpSolve = func(c []float64, a mat.Matrix, b []float64, tol float64, basic []int) (float64, []float64, error) {
		calls++
		rows, cols := a.Dims()
		assert.Equal(t, len(basic), rows)
		for i, j := range basic {
			assert.Equal(t, j, cols-rows+i)
			assert.Equal(t, a.At(i, j), 1.0)
		}
		return orig(c, a, b, tol, basic)
	}

	m := optimize.NewModel("basis")
	x := m.AddVar("x")
	y := m.AddVar("y")
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, Sense: optimize.Equal, RHS: 5}))
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}}, Sense: optimize.LessEq, RHS: 2}))
	assert.NilError(t, m.SetObjective([]optimize.Term{{Var: x, Coef: 1}, {Var: y, Coef: 2}}))

	sol, err := New(0, testr.New(t)).Solve(m)
	assert.NilError(t, err)
	assert.Equal(t, calls, 2)
	assert.Assert(t, near(sol.Value(x), 2))
	assert.Assert(t, near(sol.Value(y), 3))
	assert.Assert(t, near(sol.Objective, 8))
}

func TestSolveInfeasibleWrapsSentinel(t *testing.T) {
	m := optimize.NewModel("infeasible")
	x := m.AddVar("x")
	y := m.AddVar("y")
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, Sense: optimize.Equal, RHS: 1}))
	assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, Sense: optimize.GreaterEq, RHS: 3}))

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.Equal(t, sol.Status, optimize.Infeasible)
	assert.Assert(t, errors.Is(err, lp.ErrInfeasible))
}

// Repeated rows leave the constraint matrix rank deficient.
func TestSolveDependentRows(t *testing.T) {
	m := optimize.NewModel("dependent")
	x := m.AddVar("x")
	y := m.AddVar("y")
	for i := 0; i < 3; i++ {
		assert.NilError(t, m.AddConstraint(optimize.Constraint{Terms: []optimize.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, Sense: optimize.Equal, RHS: 4}))
	}
	assert.NilError(t, m.SetObjective([]optimize.Term{{Var: x, Coef: 3}, {Var: y, Coef: 1}}))

	sol, err := New(0, logr.Discard()).Solve(m)
	assert.NilError(t, err)
	assert.Assert(t, near(sol.Value(y), 4))
	assert.Assert(t, near(sol.Objective, 4))
}
