// Package profile reshapes aggregated period tables into the load and
// capacity factor lookups of the model.
package profile

import (
	"strings"

	"github.com/ohowland/simpflex/internal/pkg/errs"
	"github.com/ohowland/simpflex/internal/pkg/index"
	"github.com/ohowland/simpflex/internal/pkg/timeslice"
)

// Load is the period-average demand of every region. It is not indexed by
// year: every model year shares the same profile.
type Load struct {
	regions []string
	values  map[index.RH]float64
}

// NewLoad reads one column per region from the aggregated load table. An
// empty filter keeps every region; a filtered region missing from the table
// is an error.
func NewLoad(t timeslice.PeriodTable, filter []string) (Load, error) {
	regions := t.Columns
	if len(filter) > 0 {
		present := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			present[c] = true
		}
		for _, r := range filter {
			if !present[r] {
				return Load{}, errs.MissingKey("load region", r)
			}
		}
		regions = filter
	}

	l := Load{
		regions: make([]string, 0, len(regions)),
		values:  make(map[index.RH]float64, len(regions)*len(t.Times)),
	}
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		if seen[r] {
			continue
		}
		seen[r] = true
		l.regions = append(l.regions, r)
		for _, h := range t.Times {
			if v, ok := t.Mean(r, h); ok {
				l.values[index.RH{Region: r, Time: h}] = v
			}
		}
	}
	return l, nil
}

// Regions returns the modeled regions in column order.
func (l Load) Regions() []string {
	out := make([]string, len(l.regions))
	copy(out, l.regions)
	return out
}

// At returns the demand of a region in a period.
func (l Load) At(k index.RH) (float64, error) {
	v, ok := l.values[k]
	if !ok {
		return 0, errs.MissingKey("load", k)
	}
	return v, nil
}

// Resource holds period capacity factors of the resource technologies.
type Resource struct {
	availability index.Availability
	values       map[index.TCRH]float64
}

// ParseColumn splits a technology_class_region column name.
func ParseColumn(name string) (index.TCR, error) {
	parts := strings.Split(name, "_")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return index.TCR{}, errs.Invalid("resource column", name, "want technology_class_region")
	}
	return index.TCR{Tech: parts[0], Class: parts[1], Region: parts[2]}, nil
}

// NewResource reads the aggregated resource table. Columns outside the region
// filter carry no capacity factors, but their technology is still a resource
// technology, and it gets no capacity in the filtered regions.
func NewResource(t timeslice.PeriodTable, filter []string) (Resource, error) {
	keep := make(map[string]bool, len(filter))
	for _, r := range filter {
		keep[r] = true
	}

	keys := make([]index.TCR, 0, len(t.Columns))
	techs := make([]string, 0)
	values := make(map[index.TCRH]float64, len(t.Columns)*len(t.Times))
	for _, c := range t.Columns {
		k, err := ParseColumn(c)
		if err != nil {
			return Resource{}, err
		}
		techs = append(techs, k.Tech)
		if len(filter) > 0 && !keep[k.Region] {
			continue
		}
		keys = append(keys, k)
		for _, h := range t.Times {
			v, ok := t.Mean(c, h)
			if !ok {
				continue
			}
			values[index.TCRH{Tech: k.Tech, Class: k.Class, Region: k.Region, Time: h}] = v
		}
	}

	return Resource{
		availability: index.NewAvailability(keys, techs...),
		values:       values,
	}, nil
}

// Availability returns the resource technologies and their (tech, class,
// region) coverage.
func (r Resource) Availability() index.Availability {
	return r.availability
}

// CapacityFactor returns the period capacity factor of a resource class.
func (r Resource) CapacityFactor(k index.TCRH) (float64, error) {
	v, ok := r.values[k]
	if !ok {
		return 0, errs.MissingKey("capacity factor", k)
	}
	return v, nil
}
