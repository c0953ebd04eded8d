// Package index builds the sparse index spaces of the capacity expansion
// model.
//
// A capacity key (technology, class, region, year) is valid when the
// (technology, class, year) has a cost record and, for resource technologies,
// when the (technology, class, region) has a capacity factor profile.
// Dispatchable technologies are valid in every region.
package index

// Availability records which technologies are resource technologies and in
// which (technology, class, region) they have a profile.
type Availability struct {
	techs map[string]bool
	tcr   map[TCR]bool
	order []TCR
}

// NewAvailability builds an Availability from the profile keys. Duplicates
// are ignored. techs marks further resource technologies that have no key,
// so they stay resource technologies with no valid region.
func NewAvailability(keys []TCR, techs ...string) Availability {
	a := Availability{
		techs: make(map[string]bool),
		tcr:   make(map[TCR]bool),
		order: make([]TCR, 0, len(keys)),
	}
	for _, t := range techs {
		a.techs[t] = true
	}
	for _, k := range keys {
		if a.tcr[k] {
			continue
		}
		a.techs[k.Tech] = true
		a.tcr[k] = true
		a.order = append(a.order, k)
	}
	return a
}

// IsResource reports whether tech is capacity factor driven.
func (a Availability) IsResource(tech string) bool {
	return a.techs[tech]
}

// Has reports whether a profile exists for the key.
func (a Availability) Has(k TCR) bool {
	return a.tcr[k]
}

// Keys returns the available keys in insertion order.
func (a Availability) Keys() []TCR {
	out := make([]TCR, len(a.order))
	copy(out, a.order)
	return out
}

// Inputs collects everything the index spaces are derived from.
type Inputs struct {
	Costs     []TCY
	Regions   []string
	Years     []int
	Times     []string
	Resources Availability
}

// Spaces are the four index spaces of the model.
type Spaces struct {
	TCY   []TCY
	TCRY  []TCRY
	RYH   []RYH
	TCRYH []TCRYH
}

// Build derives the index spaces. Orders follow the inputs: cost records,
// then regions, then years, then times.
func Build(in Inputs) Spaces {
	tcy := make([]TCY, len(in.Costs))
	copy(tcy, in.Costs)

	tcry := make([]TCRY, 0, len(tcy)*len(in.Regions))
	for _, k := range tcy {
		for _, r := range in.Regions {
			if in.Resources.IsResource(k.Tech) && !in.Resources.Has(TCR{k.Tech, k.Class, r}) {
				continue
			}
			tcry = append(tcry, TCRY{Tech: k.Tech, Class: k.Class, Region: r, Year: k.Year})
		}
	}

	ryh := make([]RYH, 0, len(in.Regions)*len(in.Years)*len(in.Times))
	for _, r := range in.Regions {
		for _, y := range in.Years {
			for _, h := range in.Times {
				ryh = append(ryh, RYH{Region: r, Year: y, Time: h})
			}
		}
	}

	tcryh := make([]TCRYH, 0, len(tcry)*len(in.Times))
	for _, k := range tcry {
		for _, h := range in.Times {
			tcryh = append(tcryh, k.At(h))
		}
	}

	return Spaces{TCY: tcy, TCRY: tcry, RYH: ryh, TCRYH: tcryh}
}

// YearsOf returns the distinct years of the cost keys in first-seen order.
func YearsOf(keys []TCY) []int {
	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, k := range keys {
		if !seen[k.Year] {
			seen[k.Year] = true
			years = append(years, k.Year)
		}
	}
	return years
}

// Group is a (region, year) pair of a capacity key.
type Group struct {
	Region string
	Year   int
}

// ByRegionYear groups the capacity keys valid for each (region, year),
// preserving TCRY order inside every group.
func (s Spaces) ByRegionYear() map[Group][]TCRY {
	groups := make(map[Group][]TCRY)
	for _, k := range s.TCRY {
		g := Group{Region: k.Region, Year: k.Year}
		groups[g] = append(groups[g], k)
	}
	return groups
}
