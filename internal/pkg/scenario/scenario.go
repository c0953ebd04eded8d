// Package scenario runs the full pipeline for configured scenarios:
// aggregate, index, normalize, build, solve and extract.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ohowland/simpflex/internal/pkg/config"
	"github.com/ohowland/simpflex/internal/pkg/expansion"
	"github.com/ohowland/simpflex/internal/pkg/index"
	"github.com/ohowland/simpflex/internal/pkg/optimize"
	"github.com/ohowland/simpflex/internal/pkg/profile"
	"github.com/ohowland/simpflex/internal/pkg/techcost"
	"github.com/ohowland/simpflex/internal/pkg/timeslice"
)

// Inputs are the raw tables shared by every scenario. Runs never modify them.
type Inputs struct {
	Costs     []techcost.Record
	PeriodMap timeslice.PeriodMap
	Load      timeslice.HourlyTable
	Resources []timeslice.HourlyTable
}

// Result is the outcome of one scenario run.
type Result struct {
	RunID     uuid.UUID
	Scenario  config.Scenario
	Status    optimize.Status
	Objective float64
	Started   time.Time
	Finished  time.Time

	Spaces     index.Spaces
	Capacity   map[index.TCRY]float64
	Generation map[index.TCRYH]float64
}

// Runner executes scenarios against a solver.
type Runner struct {
	solver optimize.Solver
	log    logr.Logger

	// Export, when set, receives every model after it is built.
	Export func(s config.Scenario, m *optimize.Model) error
}

// NewRunner returns a Runner. The solver must be safe for concurrent use when
// RunAll is called.
func NewRunner(solver optimize.Solver, log logr.Logger) *Runner {
	return &Runner{
		solver: solver,
		log:    log.WithName("scenario"),
	}
}

// Prepare runs every stage up to model assembly.
func (r *Runner) Prepare(s config.Scenario, in Inputs) (expansion.Data, error) {
	log := r.log.WithValues("scenario", s.Name)

	costs, err := techcost.Normalize(in.Costs, s.Years, s.UnitScale)
	if err != nil {
		return expansion.Data{}, fmt.Errorf("tech costs: %w", err)
	}

	loadAgg, err := timeslice.Aggregate(in.PeriodMap, in.Load)
	if err != nil {
		return expansion.Data{}, fmt.Errorf("load: %w", err)
	}
	if loadAgg.Dropped > 0 {
		log.Info("hours outside the period map dropped", "table", "load", "hours", loadAgg.Dropped)
	}
	load, err := profile.NewLoad(loadAgg, s.Regions)
	if err != nil {
		return expansion.Data{}, fmt.Errorf("load: %w", err)
	}

	resAgg, err := timeslice.Aggregate(in.PeriodMap, in.Resources...)
	if err != nil {
		return expansion.Data{}, fmt.Errorf("resource profiles: %w", err)
	}
	if resAgg.Dropped > 0 {
		log.Info("hours outside the period map dropped", "table", "resource", "hours", resAgg.Dropped)
	}
	resources, err := profile.NewResource(resAgg, load.Regions())
	if err != nil {
		return expansion.Data{}, fmt.Errorf("resource profiles: %w", err)
	}

	years := s.Years
	if len(years) == 0 {
		years = index.YearsOf(costs.Keys())
	}

	spaces := index.Build(index.Inputs{
		Costs:     costs.Keys(),
		Regions:   load.Regions(),
		Years:     years,
		Times:     in.PeriodMap.Periods(),
		Resources: resources.Availability(),
	})
	log.V(1).Info("index spaces built",
		"tcy", len(spaces.TCY), "tcry", len(spaces.TCRY),
		"ryh", len(spaces.RYH), "tcryh", len(spaces.TCRYH))

	return expansion.Data{
		Spaces:    spaces,
		Costs:     costs,
		Load:      load,
		Resources: resources,
		Durations: in.PeriodMap.Durations(),
	}, nil
}

// Run executes one scenario. A failed solve returns the result with its
// status alongside the error.
func (r *Runner) Run(s config.Scenario, in Inputs) (Result, error) {
	res := Result{
		RunID:    uuid.New(),
		Scenario: s,
		Status:   optimize.Error,
		Started:  time.Now(),
	}
	log := r.log.WithValues("scenario", s.Name, "run", res.RunID)

	if err := s.Validate(); err != nil {
		return res, err
	}

	data, err := r.Prepare(s, in)
	if err != nil {
		return res, err
	}
	res.Spaces = data.Spaces

	problem, err := expansion.Build(s.Name, data, s.Params(), r.log)
	if err != nil {
		return res, err
	}
	if r.Export != nil {
		if err := r.Export(s, problem.Model); err != nil {
			return res, fmt.Errorf("export model: %w", err)
		}
	}

	log.Info("solving", "variables", problem.Model.NumVars(), "constraints", len(problem.Model.Constraints()))
	sol, err := r.solver.Solve(problem.Model)
	res.Status = sol.Status
	res.Finished = time.Now()
	if err != nil {
		log.Info("solve failed", "status", sol.Status.String())
		return res, err
	}

	decisions, err := problem.Extract(sol, s.ZeroTolerance)
	if err != nil {
		return res, err
	}
	res.Objective = sol.Objective
	res.Capacity = decisions.Capacity
	res.Generation = decisions.Generation

	log.Info("solved",
		"status", sol.Status.String(),
		"objective", sol.Objective,
		"elapsed", res.Finished.Sub(res.Started).String())
	return res, nil
}

// RunAll runs the scenarios concurrently and returns their results in input
// order. The first failure cancels scenarios that have not started.
func (r *Runner) RunAll(ctx context.Context, scenarios []config.Scenario, in Inputs) ([]Result, error) {
	results := make([]Result, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)

	for i, s := range scenarios {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.Run(s, in)
			results[i] = res
			if err != nil {
				return fmt.Errorf("scenario %s: %w", s.Name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
