package index

import (
	"testing"

	"gotest.tools/v3/assert"
)

func sampleInputs() Inputs {
	return Inputs{
		Costs: []TCY{
			{"gas-ct", "1", 2020},
			{"wind", "1", 2020},
			{"wind", "2", 2020},
		},
		Regions: []string{"p1", "p2"},
		Years:   []int{2020},
		Times:   []string{"h1", "h2"},
		Resources: NewAvailability([]TCR{
			{"wind", "1", "p1"},
			{"wind", "2", "p2"},
			{"wind", "1", "p1"},
		}),
	}
}

func TestBuildTCRYValidity(t *testing.T) {
	s := Build(sampleInputs())

	assert.DeepEqual(t, s.TCRY, []TCRY{
		{"gas-ct", "1", "p1", 2020},
		{"gas-ct", "1", "p2", 2020},
		{"wind", "1", "p1", 2020},
		{"wind", "2", "p2", 2020},
	})
}

func TestBuildTCRYHCrossesTimes(t *testing.T) {
	s := Build(sampleInputs())

	assert.Equal(t, len(s.TCRYH), len(s.TCRY)*2)
	assert.Equal(t, s.TCRYH[0], TCRYH{"gas-ct", "1", "p1", 2020, "h1"})
	assert.Equal(t, s.TCRYH[1], TCRYH{"gas-ct", "1", "p1", 2020, "h2"})
}

func TestBuildRYHIsFullCrossProduct(t *testing.T) {
	in := sampleInputs()
	in.Years = []int{2020, 2030}
	s := Build(in)

	assert.Equal(t, len(s.RYH), 2*2*2)
	assert.Equal(t, s.RYH[0], RYH{"p1", 2020, "h1"})
	assert.Equal(t, s.RYH[len(s.RYH)-1], RYH{"p2", 2030, "h2"})
}

func TestBuildIsDeterministic(t *testing.T) {
	a := Build(sampleInputs())
	b := Build(sampleInputs())
	assert.DeepEqual(t, a, b)
}

func TestBuildWithoutResources(t *testing.T) {
	in := sampleInputs()
	in.Resources = Availability{}
	s := Build(in)

	// every technology is treated as dispatchable in every region
	assert.Equal(t, len(s.TCRY), 3*2)
}

func TestAvailabilityKeysDeduplicated(t *testing.T) {
	a := sampleInputs().Resources
	assert.Equal(t, len(a.Keys()), 2)
	assert.Assert(t, a.IsResource("wind"))
	assert.Assert(t, !a.IsResource("gas-ct"))
}

func TestYearsOf(t *testing.T) {
	years := YearsOf([]TCY{{"a", "1", 2030}, {"b", "1", 2020}, {"a", "2", 2030}})
	assert.DeepEqual(t, years, []int{2030, 2020})
}

func TestByRegionYear(t *testing.T) {
	groups := Build(sampleInputs()).ByRegionYear()

	assert.DeepEqual(t, groups[Group{"p1", 2020}], []TCRY{
		{"gas-ct", "1", "p1", 2020},
		{"wind", "1", "p1", 2020},
	})
	assert.Equal(t, len(groups[Group{"p2", 2020}]), 2)
}

func TestKeyStrings(t *testing.T) {
	k := TCRYH{"wind", "1", "p1", 2020, "h3"}
	assert.Equal(t, k.String(), "wind|1|p1|2020|h3")
	assert.Equal(t, k.TCRY().TCY(), TCY{"wind", "1", 2020})
	assert.Equal(t, k.TCRH(), TCRH{"wind", "1", "p1", "h3"})
}
