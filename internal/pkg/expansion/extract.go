package expansion

import (
	"math"

	"github.com/ohowland/simpflex/internal/pkg/errs"
	"github.com/ohowland/simpflex/internal/pkg/index"
	"github.com/ohowland/simpflex/internal/pkg/optimize"
)

// Decisions are the non-zero capacity and generation values of a solve.
type Decisions struct {
	Capacity   map[index.TCRY]float64
	Generation map[index.TCRYH]float64
}

// Extract keeps the solved values whose magnitude exceeds tolerance. A zero
// tolerance keeps every value that is not exactly zero.
func (p *Problem) Extract(sol optimize.Solution, tolerance float64) (Decisions, error) {
	if sol.Status != optimize.Optimal {
		return Decisions{}, &errs.SolverError{Status: sol.Status.String()}
	}

	d := Decisions{
		Capacity:   make(map[index.TCRY]float64),
		Generation: make(map[index.TCRYH]float64),
	}
	for _, k := range p.Spaces.TCRYH {
		if v := sol.Value(p.Generation[k]); math.Abs(v) > tolerance {
			d.Generation[k] = v
		}
	}
	for _, k := range p.Spaces.TCRY {
		if v := sol.Value(p.Capacity[k]); math.Abs(v) > tolerance {
			d.Capacity[k] = v
		}
	}
	return d, nil
}
