// Package csvinput reads the model input tables from CSV files.
//
// Expected files:
//
//	tech_cost.csv  tech,class,year,capcost,fom,vom,heatrate,fuelprice
//	time_map.csv   hour,time
//	load.csv       hour,<region>...
//	wind.csv ...   hour,<tech>_<class>_<region>...
//
// The long column names technology, capital_cost, fixed_om, variable_om,
// heat_rate and fuel_price are accepted as well.
package csvinput

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ohowland/simpflex/internal/pkg/config"
	"github.com/ohowland/simpflex/internal/pkg/errs"
	"github.com/ohowland/simpflex/internal/pkg/scenario"
	"github.com/ohowland/simpflex/internal/pkg/techcost"
	"github.com/ohowland/simpflex/internal/pkg/timeslice"
)

var aliases = map[string]string{
	"technology":   "tech",
	"capital_cost": "capcost",
	"fixed_om":     "fom",
	"variable_om":  "vom",
	"heat_rate":    "heatrate",
	"fuel_price":   "fuelprice",
}

var techCostColumns = []string{"tech", "class", "year", "capcost", "fom", "vom", "heatrate", "fuelprice"}

func readAll(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, errs.Invalid("csv", "header", "empty file")
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return header, rows[1:], nil
}

// columnIndex maps normalized column names to their position.
func columnIndex(header []string, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(h)
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		if _, dup := idx[name]; dup {
			return nil, errs.Invalid("csv column", h, "repeated")
		}
		idx[name] = i
	}
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			return nil, errs.MissingKey("csv column", c)
		}
	}
	return idx, nil
}

func parseFloat(line int, column, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errs.Invalid("csv value", fmt.Sprintf("line %d %s", line, column), err.Error())
	}
	return v, nil
}

func parseInt(line int, column, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errs.Invalid("csv value", fmt.Sprintf("line %d %s", line, column), err.Error())
	}
	return v, nil
}

// ReadTechCost reads technology cost records. Class is kept as text.
func ReadTechCost(r io.Reader) ([]techcost.Record, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, techCostColumns)
	if err != nil {
		return nil, err
	}

	records := make([]techcost.Record, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		year, err := parseInt(line, "year", row[idx["year"]])
		if err != nil {
			return nil, err
		}
		var nums [5]float64
		for j, c := range techCostColumns[3:] {
			if nums[j], err = parseFloat(line, c, row[idx[c]]); err != nil {
				return nil, err
			}
		}
		records = append(records, techcost.Record{
			Tech:        strings.TrimSpace(row[idx["tech"]]),
			Class:       strings.TrimSpace(row[idx["class"]]),
			Year:        year,
			CapitalCost: nums[0],
			FixedOM:     nums[1],
			VariableOM:  nums[2],
			HeatRate:    nums[3],
			FuelPrice:   nums[4],
		})
	}
	return records, nil
}

// ReadPeriodMap reads the hour to time period assignment.
func ReadPeriodMap(r io.Reader) (timeslice.PeriodMap, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, []string{"hour", "time"})
	if err != nil {
		return nil, err
	}

	m := make(timeslice.PeriodMap, 0, len(rows))
	for i, row := range rows {
		hour, err := parseInt(i+2, "hour", row[idx["hour"]])
		if err != nil {
			return nil, err
		}
		m = append(m, timeslice.Mapping{Hour: hour, Time: strings.TrimSpace(row[idx["time"]])})
	}
	return m, m.Validate()
}

// ReadHourly reads a table whose first column is the hour and whose other
// columns are series. Every hour may appear once.
func ReadHourly(r io.Reader) (timeslice.HourlyTable, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return timeslice.HourlyTable{}, err
	}
	if len(header) == 0 || strings.ToLower(header[0]) != "hour" {
		return timeslice.HourlyTable{}, errs.MissingKey("csv column", "hour")
	}

	t := timeslice.HourlyTable{
		Columns: header[1:],
		Rows:    make([]timeslice.HourlyRow, 0, len(rows)),
	}
	seen := make(map[int]int, len(rows))
	for i, row := range rows {
		line := i + 2
		hour, err := parseInt(line, "hour", row[0])
		if err != nil {
			return timeslice.HourlyTable{}, err
		}
		if prev, ok := seen[hour]; ok {
			return timeslice.HourlyTable{}, errs.Invalid("csv value", fmt.Sprintf("line %d hour", line), fmt.Sprintf("hour %d repeats line %d", hour, prev))
		}
		seen[hour] = line
		values := make([]float64, len(t.Columns))
		for j, c := range t.Columns {
			if values[j], err = parseFloat(line, c, row[j+1]); err != nil {
				return timeslice.HourlyTable{}, err
			}
		}
		t.Rows = append(t.Rows, timeslice.HourlyRow{Hour: hour, Values: values})
	}
	return t, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ReadDir reads every input file named by the configuration.
func ReadDir(c config.Inputs) (scenario.Inputs, error) {
	path := func(name string) string { return filepath.Join(c.Dir, name) }

	costs, err := readFile(path(c.TechCost), ReadTechCost)
	if err != nil {
		return scenario.Inputs{}, err
	}
	periods, err := readFile(path(c.PeriodMap), ReadPeriodMap)
	if err != nil {
		return scenario.Inputs{}, err
	}
	load, err := readFile(path(c.Load), ReadHourly)
	if err != nil {
		return scenario.Inputs{}, err
	}

	in := scenario.Inputs{Costs: costs, PeriodMap: periods, Load: load}
	for _, name := range c.Resources {
		t, err := readFile(path(name), ReadHourly)
		if err != nil {
			return scenario.Inputs{}, err
		}
		in.Resources = append(in.Resources, t)
	}
	return in, nil
}
