package config

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/ohowland/simpflex/internal/pkg/errs"
	"github.com/ohowland/simpflex/internal/pkg/expansion"
	"github.com/ohowland/simpflex/internal/pkg/techcost"
)

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load("./testdata/simpflex.json")
	assert.NilError(t, err)

	assert.Equal(t, c.Inputs.Dir, "../../../../data")
	assert.Equal(t, c.Inputs.TechCost, "tech_cost.csv")
	assert.Equal(t, c.Inputs.PeriodMap, "time_map.csv")
	assert.DeepEqual(t, c.Inputs.Resources, []string{"wind.csv"})
	assert.Equal(t, c.Solver.Tolerance, 1e-9)
	assert.Equal(t, c.Server.Addr, ":8080")
	assert.Equal(t, c.Server.MaxRuns, 1000)
	assert.Equal(t, c.Sinks.MongoDB, "./config/mongodb/config.json")
	assert.Equal(t, c.Sinks.SQL, "")

	s := c.Resolved()
	assert.Equal(t, len(s), 2)

	assert.Equal(t, s[0].Name, "base")
	assert.Equal(t, s[0].CRF, 0.1)
	assert.Equal(t, s[0].ReserveMargin, expansion.DefaultReserveMargin)
	assert.Equal(t, s[0].UnitScale, techcost.KWToMW)
	assert.Equal(t, s[0].ZeroTolerance, 0.0)
	assert.DeepEqual(t, s[0].Regions, []string{"p1", "p2"})
	assert.DeepEqual(t, s[0].Years, []int{2020})

	assert.Equal(t, s[1].ReserveMargin, 1.3)
	assert.Equal(t, s[1].ZeroTolerance, 1e-7)
	assert.Equal(t, s[1].Params(), expansion.Params{CRF: 0.08, ReserveMargin: 1.3})
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("SIMPFLEX_SOLVER_TOLERANCE", "1e-6")
	t.Setenv("SIMPFLEX_INPUTS_DIR", "/srv/simpflex")

	c, err := Load("./testdata/simpflex.json")
	assert.NilError(t, err)
	assert.Equal(t, c.Solver.Tolerance, 1e-6)
	assert.Equal(t, c.Inputs.Dir, "/srv/simpflex")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("./testdata/absent.json")
	assert.ErrorContains(t, err, "read config")
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		file  string
		field string
	}{
		{"./testdata/nocrf.json", "crf"},
		{"./testdata/badmargin.json", "reserve_margin"},
		{"./testdata/noscenarios.json", "scenarios"},
	}
	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			_, err := Load(tc.file)

			var cErr *errs.ConfigurationError
			assert.Assert(t, errors.As(err, &cErr), "err=%v", err)
			assert.Equal(t, cErr.Field, tc.field)
		})
	}
}

func TestScenarioValidate(t *testing.T) {
	s := NewScenario("base", 0.1)
	assert.NilError(t, s.Validate())

	s.UnitScale = 0
	var cErr *errs.ConfigurationError
	assert.Assert(t, errors.As(s.Validate(), &cErr))
	assert.Equal(t, cErr.Field, "unit_scale")
	assert.Equal(t, cErr.Reason, "must be > 0")

	s = NewScenario("", 0.1)
	assert.Assert(t, errors.As(s.Validate(), &cErr))
	assert.Equal(t, cErr.Field, "name")

	s = NewScenario("base", 0.1)
	s.ZeroTolerance = -1
	assert.Assert(t, errors.As(s.Validate(), &cErr))
	assert.Equal(t, cErr.Field, "zero_tolerance")
}

func TestDuplicateScenarioName(t *testing.T) {
	crf := 0.1
	c := &Config{
		Inputs:    Inputs{Dir: ".", TechCost: "a", PeriodMap: "b", Load: "c"},
		Server:    Server{Addr: ":8080", MaxRuns: 10},
		Scenarios: []ScenarioFile{{Name: "x", CRF: &crf}, {Name: "x", CRF: &crf}},
	}

	var cErr *errs.ConfigurationError
	assert.Assert(t, errors.As(c.Validate(), &cErr))
	assert.Equal(t, cErr.Field, "scenarios")
}
