// Package techcost normalizes technology cost records into the per-MW lookups
// used by the objective.
package techcost

import (
	"github.com/ohowland/simpflex/internal/pkg/errs"
	"github.com/ohowland/simpflex/internal/pkg/index"
)

// KWToMW scales per-kW capital and fixed costs to a per-MW basis.
const KWToMW = 1000.0

// Record is one row of the technology cost table. Capital and fixed costs are
// in the input cost basis (per-kW unless configured otherwise).
type Record struct {
	Tech        string
	Class       string
	Year        int
	CapitalCost float64
	FixedOM     float64
	VariableOM  float64
	HeatRate    float64
	FuelPrice   float64
}

// Key returns the (technology, class, year) of the record.
func (r Record) Key() index.TCY {
	return index.TCY{Tech: r.Tech, Class: r.Class, Year: r.Year}
}

// FuelCost is heat rate times fuel price.
func (r Record) FuelCost() float64 {
	return r.HeatRate * r.FuelPrice
}

// Table holds normalized cost lookups keyed by (technology, class, year).
type Table struct {
	keys     []index.TCY
	capital  map[index.TCY]float64
	fixed    map[index.TCY]float64
	variable map[index.TCY]float64
	fuel     map[index.TCY]float64
}

// Normalize keeps the records whose year is in years (all records when years
// is empty), scales capital and fixed costs by unitScale and derives fuel
// cost.
func Normalize(records []Record, years []int, unitScale float64) (Table, error) {
	if !(unitScale > 0) {
		return Table{}, &errs.ConfigurationError{Field: "unit_scale", Reason: "must be > 0"}
	}

	keep := make(map[int]bool, len(years))
	for _, y := range years {
		keep[y] = true
	}

	t := Table{
		keys:     make([]index.TCY, 0, len(records)),
		capital:  make(map[index.TCY]float64, len(records)),
		fixed:    make(map[index.TCY]float64, len(records)),
		variable: make(map[index.TCY]float64, len(records)),
		fuel:     make(map[index.TCY]float64, len(records)),
	}
	for _, r := range records {
		if len(years) > 0 && !keep[r.Year] {
			continue
		}
		k := r.Key()
		if _, dup := t.capital[k]; dup {
			return Table{}, errs.Invalid("cost record", k, "duplicate")
		}
		t.keys = append(t.keys, k)
		t.capital[k] = r.CapitalCost * unitScale
		t.fixed[k] = r.FixedOM * unitScale
		t.variable[k] = r.VariableOM
		t.fuel[k] = r.FuelCost()
	}
	return t, nil
}

// Keys returns the (technology, class, year) keys in record order.
func (t Table) Keys() []index.TCY {
	out := make([]index.TCY, len(t.keys))
	copy(out, t.keys)
	return out
}

// Capital returns the per-MW capital cost.
func (t Table) Capital(k index.TCY) (float64, error) {
	return lookup(t.capital, "capital cost", k)
}

// Fixed returns the per-MW fixed O&M.
func (t Table) Fixed(k index.TCY) (float64, error) {
	return lookup(t.fixed, "fixed cost", k)
}

// Variable returns the variable O&M.
func (t Table) Variable(k index.TCY) (float64, error) {
	return lookup(t.variable, "variable cost", k)
}

// Fuel returns heat rate times fuel price.
func (t Table) Fuel(k index.TCY) (float64, error) {
	return lookup(t.fuel, "fuel cost", k)
}

func lookup(m map[index.TCY]float64, source string, k index.TCY) (float64, error) {
	v, ok := m[k]
	if !ok {
		return 0, errs.MissingKey(source, k)
	}
	return v, nil
}
