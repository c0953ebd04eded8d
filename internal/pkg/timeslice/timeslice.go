// Package timeslice collapses raw hourly series into representative time
// periods.
//
// A PeriodMap assigns every raw hour to a period label. The number of hours
// mapped to a period is its duration weight, and every series value of the
// aggregated table is the arithmetic mean of the raw hours in that period.
// Raw hours that the map does not cover are dropped from the mean and counted
// in PeriodTable.Dropped.
package timeslice

import (
	"github.com/ohowland/simpflex/internal/pkg/errs"
)

// Mapping assigns one raw hour to a time period.
type Mapping struct {
	Hour int
	Time string
}

// PeriodMap is the ordered hour -> period assignment.
type PeriodMap []Mapping

// Periods returns the period labels in the order they first appear.
func (m PeriodMap) Periods() []string {
	seen := make(map[string]bool)
	periods := make([]string, 0)
	for _, e := range m {
		if !seen[e.Time] {
			seen[e.Time] = true
			periods = append(periods, e.Time)
		}
	}
	return periods
}

// Durations returns the number of raw hours represented by each period.
func (m PeriodMap) Durations() Durations {
	d := make(Durations)
	seen := make(map[int]bool, len(m))
	for _, e := range m {
		if seen[e.Hour] {
			continue
		}
		seen[e.Hour] = true
		d[e.Time]++
	}
	return d
}

// Validate rejects maps that assign one hour to more than one period.
func (m PeriodMap) Validate() error {
	seen := make(map[int]string, len(m))
	for _, e := range m {
		if prev, ok := seen[e.Hour]; ok && prev != e.Time {
			return errs.Invalid("period map hour", e.Hour, "mapped to "+prev+" and "+e.Time)
		}
		seen[e.Hour] = e.Time
	}
	return nil
}

func (m PeriodMap) index() map[int]string {
	idx := make(map[int]string, len(m))
	for _, e := range m {
		idx[e.Hour] = e.Time
	}
	return idx
}

// Durations maps a period label to its hour count.
type Durations map[string]int

// Hours returns the duration weight of a period.
func (d Durations) Hours(time string) (int, error) {
	h, ok := d[time]
	if !ok {
		return 0, errs.MissingKey("period duration", time)
	}
	return h, nil
}

// Total is the number of raw hours covered by the map.
func (d Durations) Total() int {
	total := 0
	for _, h := range d {
		total += h
	}
	return total
}

// HourlyRow is one raw sample for every column of a HourlyTable.
type HourlyRow struct {
	Hour   int
	Values []float64
}

// HourlyTable is a raw per-hour table with one column per series.
type HourlyTable struct {
	Columns []string
	Rows    []HourlyRow
}

// PeriodTable holds per-period means of every aggregated column.
type PeriodTable struct {
	Columns []string
	// Times lists the periods that received at least one raw hour, in map order.
	Times []string
	// Dropped counts distinct raw hours absent from the period map.
	Dropped int

	means map[string]map[string]float64
}

// Mean returns the aggregated value of a column in a period.
func (t PeriodTable) Mean(column, time string) (float64, bool) {
	col, ok := t.means[column]
	if !ok {
		return 0, false
	}
	v, ok := col[time]
	return v, ok
}

type accumulator struct {
	sum   float64
	count int
}

// Aggregate concatenates the columns of every table, joins each raw hour to
// its period and averages each column per period. The inputs are not
// modified.
func Aggregate(m PeriodMap, tables ...HourlyTable) (PeriodTable, error) {
	if err := m.Validate(); err != nil {
		return PeriodTable{}, err
	}
	periodOf := m.index()

	columns := make([]string, 0)
	owner := make(map[string]bool)
	acc := make(map[string]map[string]*accumulator)
	unmapped := make(map[int]bool)
	populated := make(map[string]bool)

	for _, table := range tables {
		for _, c := range table.Columns {
			if owner[c] {
				return PeriodTable{}, errs.Invalid("hourly column", c, "appears in more than one table")
			}
			owner[c] = true
			columns = append(columns, c)
			acc[c] = make(map[string]*accumulator)
		}

		for _, row := range table.Rows {
			if len(row.Values) != len(table.Columns) {
				return PeriodTable{}, errs.Invalid("hourly row", row.Hour, "value count does not match columns")
			}
			period, ok := periodOf[row.Hour]
			if !ok {
				unmapped[row.Hour] = true
				continue
			}
			populated[period] = true
			for i, c := range table.Columns {
				a, ok := acc[c][period]
				if !ok {
					a = &accumulator{}
					acc[c][period] = a
				}
				a.sum += row.Values[i]
				a.count++
			}
		}
	}

	times := make([]string, 0)
	for _, p := range m.Periods() {
		if populated[p] {
			times = append(times, p)
		}
	}

	means := make(map[string]map[string]float64, len(columns))
	for _, c := range columns {
		means[c] = make(map[string]float64, len(acc[c]))
		for p, a := range acc[c] {
			means[c][p] = a.sum / float64(a.count)
		}
	}

	return PeriodTable{
		Columns: columns,
		Times:   times,
		Dropped: len(unmapped),
		means:   means,
	}, nil
}
