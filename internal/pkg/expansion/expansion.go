// Package expansion assembles the capacity expansion and dispatch linear
// program.
//
// Capacity variables exist for every valid (technology, class, region, year)
// and generation variables for every capacity key crossed with every time
// period. Resource technologies generate exactly their capacity factor times
// capacity; dispatchable technologies generate at most their capacity. Every
// (region, year, time) must meet its load, and must hold capacity, derated by
// capacity factor for resource technologies, of at least ReserveMargin times
// load. Capital and fixed costs are levelized with the capital recovery
// factor.
//
// Load is indexed by (region, time) only, so every model year shares one
// demand profile.
package expansion

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/ohowland/simpflex/internal/pkg/errs"
	"github.com/ohowland/simpflex/internal/pkg/index"
	"github.com/ohowland/simpflex/internal/pkg/optimize"
	"github.com/ohowland/simpflex/internal/pkg/profile"
	"github.com/ohowland/simpflex/internal/pkg/techcost"
	"github.com/ohowland/simpflex/internal/pkg/timeslice"
)

// DefaultReserveMargin is the required capacity over load.
const DefaultReserveMargin = 1.15

// Params are the scalar model parameters.
type Params struct {
	// CRF is the capital recovery factor.
	CRF float64
	// ReserveMargin multiplies load in the reserve-margin constraint.
	ReserveMargin float64
}

// Validate rejects non-positive parameters.
func (p Params) Validate() error {
	if !(p.CRF > 0) {
		return &errs.ConfigurationError{Field: "crf", Reason: "must be > 0"}
	}
	if !(p.ReserveMargin > 0) {
		return &errs.ConfigurationError{Field: "reserve_margin", Reason: "must be > 0"}
	}
	return nil
}

// Data is everything the model is built from.
type Data struct {
	Spaces    index.Spaces
	Costs     techcost.Table
	Load      profile.Load
	Resources profile.Resource
	Durations timeslice.Durations
}

// Problem is an assembled model with its variable handles.
type Problem struct {
	Model      *optimize.Model
	Spaces     index.Spaces
	Capacity   map[index.TCRY]optimize.Var
	Generation map[index.TCRYH]optimize.Var

	availability index.Availability
}

// IsResource reports whether the technology is capacity factor driven.
func (p *Problem) IsResource(tech string) bool {
	return p.availability.IsResource(tech)
}

type builder struct {
	data    Data
	params  Params
	problem *Problem
	log     logr.Logger
}

// Build creates variables, constraints and the objective. Any missing cost,
// load, duration or capacity factor aborts the build with a
// *errs.DataIntegrityError naming the key.
func Build(name string, d Data, p Params, log logr.Logger) (*Problem, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b := builder{
		data:   d,
		params: p,
		log:    log.WithName("expansion"),
		problem: &Problem{
			Model:        optimize.NewModel(name),
			Spaces:       d.Spaces,
			Capacity:     make(map[index.TCRY]optimize.Var, len(d.Spaces.TCRY)),
			Generation:   make(map[index.TCRYH]optimize.Var, len(d.Spaces.TCRYH)),
			availability: d.Resources.Availability(),
		},
	}

	b.addVariables()
	if err := b.addLinking(); err != nil {
		return nil, fmt.Errorf("linking constraints: %w", err)
	}
	if err := b.addRequirements(); err != nil {
		return nil, fmt.Errorf("demand and reserve constraints: %w", err)
	}
	if err := b.setObjective(); err != nil {
		return nil, fmt.Errorf("objective: %w", err)
	}

	b.log.V(1).Info("model assembled",
		"model", name,
		"capacityVars", len(b.problem.Capacity),
		"generationVars", len(b.problem.Generation),
		"constraints", len(b.problem.Model.Constraints()))

	return b.problem, nil
}

func (b *builder) addVariables() {
	m := b.problem.Model
	for _, k := range b.data.Spaces.TCRY {
		b.problem.Capacity[k] = m.AddVar(k.String())
	}
	for _, k := range b.data.Spaces.TCRYH {
		b.problem.Generation[k] = m.AddVar(k.String())
	}
}

func (b *builder) addLinking() error {
	m := b.problem.Model
	for _, k := range b.data.Spaces.TCRYH {
		gen := b.problem.Generation[k]
		capacity := b.problem.Capacity[k.TCRY()]

		if b.problem.IsResource(k.Tech) {
			cf, err := b.data.Resources.CapacityFactor(k.TCRH())
			if err != nil {
				return err
			}
			if err := m.AddConstraint(optimize.Constraint{
				Name:  "cf|" + k.String(),
				Terms: []optimize.Term{{Var: gen, Coef: 1}, {Var: capacity, Coef: -cf}},
				Sense: optimize.Equal,
			}); err != nil {
				return err
			}
			continue
		}

		if err := m.AddConstraint(optimize.Constraint{
			Name:  "maxgen|" + k.String(),
			Terms: []optimize.Term{{Var: gen, Coef: 1}, {Var: capacity, Coef: -1}},
			Sense: optimize.LessEq,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) addRequirements() error {
	m := b.problem.Model
	groups := b.data.Spaces.ByRegionYear()

	for _, k := range b.data.Spaces.RYH {
		load, err := b.data.Load.At(k.RH())
		if err != nil {
			return err
		}

		valid := groups[index.Group{Region: k.Region, Year: k.Year}]
		demand := make([]optimize.Term, 0, len(valid))
		reserve := make([]optimize.Term, 0, len(valid))
		for _, c := range valid {
			demand = append(demand, optimize.Term{Var: b.problem.Generation[c.At(k.Time)], Coef: 1})

			coef := 1.0
			if b.problem.IsResource(c.Tech) {
				coef, err = b.data.Resources.CapacityFactor(c.At(k.Time).TCRH())
				if err != nil {
					return err
				}
			}
			reserve = append(reserve, optimize.Term{Var: b.problem.Capacity[c], Coef: coef})
		}

		suffix := fmt.Sprintf("%s|%d|%s", k.Region, k.Year, k.Time)
		if err := m.AddConstraint(optimize.Constraint{
			Name:  "load|" + suffix,
			Terms: demand,
			Sense: optimize.GreaterEq,
			RHS:   load,
		}); err != nil {
			return err
		}
		if err := m.AddConstraint(optimize.Constraint{
			Name:  "reserve|" + suffix,
			Terms: reserve,
			Sense: optimize.GreaterEq,
			RHS:   b.params.ReserveMargin * load,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) setObjective() error {
	crf := b.params.CRF
	costs := b.data.Costs
	terms := make([]optimize.Term, 0, len(b.data.Spaces.TCRYH)+len(b.data.Spaces.TCRY))

	for _, k := range b.data.Spaces.TCRYH {
		tcy := k.TCRY().TCY()
		vom, err := costs.Variable(tcy)
		if err != nil {
			return err
		}
		fuel, err := costs.Fuel(tcy)
		if err != nil {
			return err
		}
		hours, err := b.data.Durations.Hours(k.Time)
		if err != nil {
			return err
		}
		terms = append(terms, optimize.Term{
			Var:  b.problem.Generation[k],
			Coef: (vom + fuel) * float64(hours) / crf,
		})
	}

	for _, k := range b.data.Spaces.TCRY {
		capital, err := costs.Capital(k.TCY())
		if err != nil {
			return err
		}
		fixed, err := costs.Fixed(k.TCY())
		if err != nil {
			return err
		}
		terms = append(terms, optimize.Term{
			Var:  b.problem.Capacity[k],
			Coef: capital + fixed/crf,
		})
	}

	return b.problem.Model.SetObjective(terms)
}
