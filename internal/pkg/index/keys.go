package index

import "strconv"

// TCY identifies a technology cost record.
type TCY struct {
	Tech  string
	Class string
	Year  int
}

// TCR identifies a resource technology class available in a region.
type TCR struct {
	Tech   string
	Class  string
	Region string
}

// TCRY identifies a capacity decision.
type TCRY struct {
	Tech   string
	Class  string
	Region string
	Year   int
}

// TCY drops the region.
func (k TCRY) TCY() TCY {
	return TCY{Tech: k.Tech, Class: k.Class, Year: k.Year}
}

// TCR drops the year.
func (k TCRY) TCR() TCR {
	return TCR{Tech: k.Tech, Class: k.Class, Region: k.Region}
}

// At extends the key with a time period.
func (k TCRY) At(time string) TCRYH {
	return TCRYH{Tech: k.Tech, Class: k.Class, Region: k.Region, Year: k.Year, Time: time}
}

func (k TCRY) String() string {
	return k.Tech + "|" + k.Class + "|" + k.Region + "|" + strconv.Itoa(k.Year)
}

// TCRYH identifies a generation decision.
type TCRYH struct {
	Tech   string
	Class  string
	Region string
	Year   int
	Time   string
}

// TCRY drops the time period.
func (k TCRYH) TCRY() TCRY {
	return TCRY{Tech: k.Tech, Class: k.Class, Region: k.Region, Year: k.Year}
}

// TCRH drops the year.
func (k TCRYH) TCRH() TCRH {
	return TCRH{Tech: k.Tech, Class: k.Class, Region: k.Region, Time: k.Time}
}

func (k TCRYH) String() string {
	return k.TCRY().String() + "|" + k.Time
}

// TCRH identifies a resource capacity factor.
type TCRH struct {
	Tech   string
	Class  string
	Region string
	Time   string
}

// RH identifies a load value.
type RH struct {
	Region string
	Time   string
}

// RYH identifies a demand and reserve-margin requirement.
type RYH struct {
	Region string
	Year   int
	Time   string
}

// RH drops the year; load is shared by every year.
func (k RYH) RH() RH {
	return RH{Region: k.Region, Time: k.Time}
}
