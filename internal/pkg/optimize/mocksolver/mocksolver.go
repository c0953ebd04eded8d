// Package mocksolver is an optimize.Solver that returns preset values.
package mocksolver

import (
	"sync"

	"github.com/ohowland/simpflex/internal/pkg/optimize"
)

// MockSolver answers every Solve with Status and the values produced by
// Valuation. A nil Valuation solves every variable to zero.
type MockSolver struct {
	Status    optimize.Status
	Valuation func(m *optimize.Model, v optimize.Var) float64

	mux   sync.Mutex
	calls int
}

// Calls is the number of Solve invocations.
func (s *MockSolver) Calls() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.calls
}

// ByName values variables by the name they were created with.
func ByName(values map[string]float64) func(*optimize.Model, optimize.Var) float64 {
	return func(m *optimize.Model, v optimize.Var) float64 {
		return values[m.VarName(v)]
	}
}

// Solve implements optimize.Solver.
func (s *MockSolver) Solve(m *optimize.Model) (optimize.Solution, error) {
	s.mux.Lock()
	s.calls++
	s.mux.Unlock()

	if s.Status != optimize.Optimal {
		return optimize.Failed(s.Status, nil)
	}

	values := make([]float64, m.NumVars())
	if s.Valuation != nil {
		for v := range values {
			values[v] = s.Valuation(m, optimize.Var(v))
		}
	}
	sol := optimize.NewSolution(optimize.Optimal, 0, values)
	sol.Objective = sol.Evaluate(m.Objective())
	return sol, nil
}
