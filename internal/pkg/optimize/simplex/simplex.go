// Package simplex solves optimize models with gonum's simplex implementation.
package simplex

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/ohowland/simpflex/internal/pkg/optimize"
)

// DefaultTolerance is the optimality tolerance passed to lp.Simplex.
const DefaultTolerance = 1e-9

// Solver converts a model to standard form,
//
//	minimize c^T x  s.t.  A x = b, x >= 0
//
// with one slack column per inequality, and runs lp.Simplex.
//
// The constraint matrix is dense, so memory grows with rows times columns.
// Large inputs need a sparse backend behind optimize.Solver.
type Solver struct {
	tolerance float64
	log       logr.Logger
}

// New returns a Solver. A non-positive tolerance selects DefaultTolerance.
func New(tolerance float64, log logr.Logger) *Solver {
	if !(tolerance > 0) {
		tolerance = DefaultTolerance
	}
	return &Solver{tolerance: tolerance, log: log.WithName("simplex")}
}

type entry struct {
	col  int
	coef float64
}

type row struct {
	name    string
	entries []entry
	sense   optimize.Sense
	rhs     float64
}

// lpSolve is the standard form solve; tests replace it to simulate failures.
var lpSolve = func(c []float64, a mat.Matrix, b []float64, tol float64, basic []int) (float64, []float64, error) {
	return lp.Simplex(c, a, b, tol, basic)
}

// Penalty scales for the second phase, tried in order. Each is a multiple of
// one plus the largest absolute cost.
var penalties = []float64{1e3, 1e6, 1e9}

// Solve implements optimize.Solver.
//
// Every row gets an artificial column so the artificials form a feasible
// starting basis. A first pass minimizes the artificial sum and reports
// Infeasible when it cannot reach zero. A second pass minimizes the model
// cost with the artificials penalized, raising the penalty until they leave
// the solution.
func (s *Solver) Solve(m *optimize.Model) (optimize.Solution, error) {
	n := m.NumVars()
	cost := m.ObjectiveCoefficients()

	rows := make([]row, 0, len(m.Constraints()))
	used := make([]bool, n)
	for _, con := range m.Constraints() {
		r := row{name: con.Name, entries: merge(con.Terms), sense: con.Sense, rhs: con.RHS}
		if len(r.entries) == 0 {
			if trivial(r.sense, r.rhs) {
				continue
			}
			return optimize.Failed(optimize.Infeasible, fmt.Errorf("constraint %q has no variables and cannot hold", con.Name))
		}
		for _, e := range r.entries {
			used[e.col] = true
		}
		rows = append(rows, r)
	}

	// Variables outside every constraint sit at their lower bound unless their
	// cost makes the problem unbounded.
	column := make([]int, n)
	nCols := 0
	for v := 0; v < n; v++ {
		switch {
		case used[v]:
			column[v] = nCols
			nCols++
		case cost[v] < 0:
			return optimize.Failed(optimize.Unbounded, fmt.Errorf("variable %q is unconstrained with negative cost", m.VarName(optimize.Var(v))))
		default:
			column[v] = -1
		}
	}

	values := make([]float64, n)
	if len(rows) == 0 {
		return optimize.NewSolution(optimize.Optimal, 0, values), nil
	}

	nSlack := 0
	for _, r := range rows {
		if r.sense != optimize.Equal {
			nSlack++
		}
	}
	artificial := nCols + nSlack
	total := artificial + len(rows)

	c := make([]float64, total)
	cmax := 0.0
	for v := 0; v < n; v++ {
		if column[v] >= 0 {
			c[column[v]] = cost[v]
			cmax = math.Max(cmax, math.Abs(cost[v]))
		}
	}

	a := mat.NewDense(len(rows), total, nil)
	b := make([]float64, len(rows))
	basic := make([]int, len(rows))
	bmax := 0.0
	slack := nCols
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for _, e := range r.entries {
			a.Set(i, column[e.col], sign*e.coef)
		}
		switch r.sense {
		case optimize.LessEq:
			a.Set(i, slack, sign)
			slack++
		case optimize.GreaterEq:
			a.Set(i, slack, -sign)
			slack++
		}
		b[i] = sign * r.rhs
		bmax = math.Max(bmax, b[i])
		a.Set(i, artificial+i, 1)
		basic[i] = artificial + i
	}
	feasibility := 1e-7 * (1 + bmax)

	s.log.V(1).Info("solving standard form", "model", m.Name(), "rows", len(rows), "columns", total, "slacks", nSlack)

	phase1 := make([]float64, total)
	for i := artificial; i < total; i++ {
		phase1[i] = 1
	}
	residual, _, err := lpSolve(phase1, a, b, s.tolerance, basic)
	if err != nil {
		return s.failed(m, err)
	}
	if residual > feasibility {
		return s.failed(m, fmt.Errorf("artificial sum %g: %w", residual, lp.ErrInfeasible))
	}

	for _, scale := range penalties {
		penalty := scale * (1 + cmax)
		for i := artificial; i < total; i++ {
			c[i] = penalty
		}
		_, x, err := lpSolve(c, a, b, s.tolerance, basic)
		if err != nil {
			return s.failed(m, err)
		}
		left := 0.0
		for i := artificial; i < total; i++ {
			left += x[i]
		}
		if left > feasibility {
			s.log.V(1).Info("raising penalty", "model", m.Name(), "penalty", penalty, "artificial", left)
			continue
		}

		objective := 0.0
		for v := 0; v < n; v++ {
			if column[v] >= 0 {
				values[v] = x[column[v]]
				objective += cost[v] * values[v]
			}
		}
		return optimize.NewSolution(optimize.Optimal, objective, values), nil
	}
	return s.failed(m, errors.New("artificial columns stayed in the solution at every penalty"))
}

func (s *Solver) failed(m *optimize.Model, err error) (optimize.Solution, error) {
	status := optimize.Error
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		status = optimize.Infeasible
	case errors.Is(err, lp.ErrUnbounded):
		status = optimize.Unbounded
	}
	s.log.Info("solve failed", "model", m.Name(), "status", status.String(), "error", err.Error())
	return optimize.Failed(status, err)
}

// merge sums repeated variables and drops zero coefficients.
func merge(terms []optimize.Term) []entry {
	sum := make(map[int]float64, len(terms))
	for _, t := range terms {
		sum[int(t.Var)] += t.Coef
	}
	out := make([]entry, 0, len(sum))
	for v, coef := range sum {
		if coef != 0 {
			out = append(out, entry{col: v, coef: coef})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].col < out[j].col })
	return out
}

// trivial reports whether 0 sense rhs holds.
func trivial(sense optimize.Sense, rhs float64) bool {
	switch sense {
	case optimize.LessEq:
		return 0 <= rhs
	case optimize.GreaterEq:
		return 0 >= rhs
	default:
		return rhs == 0
	}
}
