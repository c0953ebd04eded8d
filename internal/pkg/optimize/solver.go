package optimize

import (
	"fmt"

	"github.com/ohowland/simpflex/internal/pkg/errs"
)

// Status is the terminal state of a solve.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	Error
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText lets statuses appear as strings in JSON and BSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Solver solves a model. A solver that cannot reach an optimum returns a
// *errs.SolverError and a Solution holding only the status.
type Solver interface {
	Solve(m *Model) (Solution, error)
}

// Solution is the outcome of a solve.
type Solution struct {
	Status    Status
	Objective float64
	values    []float64
}

// NewSolution wraps solved variable values, indexed by Var.
func NewSolution(status Status, objective float64, values []float64) Solution {
	return Solution{Status: status, Objective: objective, values: values}
}

// Failed returns the Solution and error for a non-optimal solve.
func Failed(status Status, cause error) (Solution, error) {
	return Solution{Status: status}, &errs.SolverError{Status: status.String(), Err: cause}
}

// Value returns the solved value of v, or zero when v was not solved.
func (s Solution) Value(v Var) float64 {
	if v < 0 || int(v) >= len(s.values) {
		return 0
	}
	return s.values[v]
}

// Evaluate returns sum(Terms) at the solution.
func (s Solution) Evaluate(terms []Term) float64 {
	total := 0.0
	for _, t := range terms {
		total += t.Coef * s.Value(t.Var)
	}
	return total
}
