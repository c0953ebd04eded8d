// Package config loads the simpflex run configuration.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ohowland/simpflex/internal/pkg/errs"
	"github.com/ohowland/simpflex/internal/pkg/expansion"
	"github.com/ohowland/simpflex/internal/pkg/techcost"
)

// EnvPrefix prefixes environment overrides, e.g. SIMPFLEX_SOLVER_TOLERANCE.
const EnvPrefix = "SIMPFLEX"

// Config is the top level configuration file.
type Config struct {
	Inputs    Inputs         `mapstructure:"inputs"    json:"inputs"`
	Solver    Solver         `mapstructure:"solver"    json:"solver"`
	Scenarios []ScenarioFile `mapstructure:"scenarios" json:"scenarios"`
	Sinks     Sinks          `mapstructure:"sinks"     json:"sinks"`
	Server    Server         `mapstructure:"server"    json:"server"`
	Log       Log            `mapstructure:"log"       json:"log"`
	// LPFile, when set, receives a CPLEX LP dump of every built model.
	LPFile string `mapstructure:"lp_file" json:"lp_file"`

	resolved []Scenario
}

// Inputs names the input files, relative to Dir.
type Inputs struct {
	Dir       string   `mapstructure:"dir"        json:"dir"        validate:"required"`
	TechCost  string   `mapstructure:"tech_cost"  json:"tech_cost"  validate:"required"`
	PeriodMap string   `mapstructure:"period_map" json:"period_map" validate:"required"`
	Load      string   `mapstructure:"load"       json:"load"       validate:"required"`
	Resources []string `mapstructure:"resources"  json:"resources"`
}

// Solver configures the LP backend.
type Solver struct {
	Tolerance float64 `mapstructure:"tolerance" json:"tolerance" validate:"gte=0"`
}

// Sinks lists the config file of every enabled result sink. An empty path
// disables the sink.
type Sinks struct {
	MongoDB string `mapstructure:"mongodb" json:"mongodb"`
	SQL     string `mapstructure:"sql"     json:"sql"`
	NATS    string `mapstructure:"nats"    json:"nats"`
	Kafka   string `mapstructure:"kafka"   json:"kafka"`
	MQTT    string `mapstructure:"mqtt"    json:"mqtt"`
}

// Server configures the webservice.
type Server struct {
	Addr string `mapstructure:"addr" json:"addr" validate:"required"`
	// MaxRuns bounds the runs kept in memory; the oldest is evicted first.
	MaxRuns int `mapstructure:"max_runs" json:"max_runs" validate:"gt=0"`
}

// Log sets the stdr verbosity.
type Log struct {
	Verbosity int `mapstructure:"verbosity" json:"verbosity" validate:"gte=0"`
}

// Resolved returns the validated scenarios in file order.
func (c *Config) Resolved() []Scenario {
	out := make([]Scenario, len(c.resolved))
	copy(out, c.resolved)
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads a JSON configuration file. Any key can be overridden from the
// environment with the SIMPFLEX_ prefix and dots replaced by underscores.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("inputs.dir", ".")
	v.SetDefault("inputs.tech_cost", "tech_cost.csv")
	v.SetDefault("inputs.period_map", "time_map.csv")
	v.SetDefault("inputs.load", "load.csv")
	v.SetDefault("inputs.resources", []string{"wind.csv", "upv.csv"})
	v.SetDefault("solver.tolerance", 0.0)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_runs", 1000)
	v.SetDefault("log.verbosity", 0)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration and resolves scenario defaults.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return validationError(err)
	}
	if len(c.Scenarios) == 0 {
		return &errs.ConfigurationError{Field: "scenarios", Reason: "is empty"}
	}

	c.resolved = make([]Scenario, 0, len(c.Scenarios))
	seen := make(map[string]bool, len(c.Scenarios))
	for _, f := range c.Scenarios {
		s, err := f.Resolve()
		if err != nil {
			return err
		}
		if seen[s.Name] {
			return &errs.ConfigurationError{Field: "scenarios", Reason: "repeat name " + s.Name}
		}
		seen[s.Name] = true
		c.resolved = append(c.resolved, s)
	}
	return nil
}

// ScenarioFile is a scenario as written in a file or request body. Omitted
// optional fields take their defaults.
type ScenarioFile struct {
	Name          string   `mapstructure:"name"           json:"name"`
	Years         []int    `mapstructure:"years"          json:"years"`
	Regions       []string `mapstructure:"regions"        json:"regions"`
	CRF           *float64 `mapstructure:"crf"            json:"crf"`
	ReserveMargin *float64 `mapstructure:"reserve_margin" json:"reserve_margin"`
	UnitScale     *float64 `mapstructure:"unit_scale"     json:"unit_scale"`
	ZeroTolerance *float64 `mapstructure:"zero_tolerance" json:"zero_tolerance"`
}

// Resolve applies defaults and validates the scenario. CRF has no default.
func (f ScenarioFile) Resolve() (Scenario, error) {
	if f.CRF == nil {
		return Scenario{}, &errs.ConfigurationError{Field: "crf", Reason: "is required"}
	}
	s := NewScenario(f.Name, *f.CRF)
	s.Years = f.Years
	s.Regions = f.Regions
	if f.ReserveMargin != nil {
		s.ReserveMargin = *f.ReserveMargin
	}
	if f.UnitScale != nil {
		s.UnitScale = *f.UnitScale
	}
	if f.ZeroTolerance != nil {
		s.ZeroTolerance = *f.ZeroTolerance
	}
	return s, s.Validate()
}

// Scenario is one fully resolved model run.
type Scenario struct {
	Name          string   `json:"name"           validate:"required"`
	Years         []int    `json:"years"`
	Regions       []string `json:"regions"        validate:"dive,required"`
	CRF           float64  `json:"crf"            validate:"gt=0"`
	ReserveMargin float64  `json:"reserve_margin" validate:"gt=0"`
	UnitScale     float64  `json:"unit_scale"     validate:"gt=0"`
	// ZeroTolerance drops solved values with magnitude at or below it. Zero
	// keeps every value that is not exactly zero.
	ZeroTolerance float64 `json:"zero_tolerance" validate:"gte=0"`
}

// NewScenario returns a scenario with default reserve margin, per-kW cost
// basis and exact zero filtering.
func NewScenario(name string, crf float64) Scenario {
	return Scenario{
		Name:          name,
		CRF:           crf,
		ReserveMargin: expansion.DefaultReserveMargin,
		UnitScale:     techcost.KWToMW,
	}
}

// Validate reports the first invalid field as a *errs.ConfigurationError.
func (s Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return validationError(err)
	}
	return nil
}

// Params returns the model parameters of the scenario.
func (s Scenario) Params() expansion.Params {
	return expansion.Params{CRF: s.CRF, ReserveMargin: s.ReserveMargin}
}

func validationError(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	fe := fields[0]

	reason := "failed " + fe.Tag()
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "gt":
		reason = "must be > " + fe.Param()
	case "gte":
		reason = "must be >= " + fe.Param()
	}
	return &errs.ConfigurationError{Field: fe.Field(), Reason: reason}
}
