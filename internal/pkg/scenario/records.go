package scenario

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// CapacityRecord is one built capacity decision, in MW.
type CapacityRecord struct {
	Tech   string  `json:"tech"   bson:"tech"`
	Class  string  `json:"class"  bson:"class"`
	Region string  `json:"region" bson:"region"`
	Year   int     `json:"year"   bson:"year"`
	MW     float64 `json:"mw"     bson:"mw"`
}

// GenerationRecord is one period generation decision, in MW.
type GenerationRecord struct {
	Tech   string  `json:"tech"   bson:"tech"`
	Class  string  `json:"class"  bson:"class"`
	Region string  `json:"region" bson:"region"`
	Year   int     `json:"year"   bson:"year"`
	Time   string  `json:"time"   bson:"time"`
	MW     float64 `json:"mw"     bson:"mw"`
}

// CapacityRecords lists the non-zero capacity decisions in index order.
func (r Result) CapacityRecords() []CapacityRecord {
	out := make([]CapacityRecord, 0, len(r.Capacity))
	for _, k := range r.Spaces.TCRY {
		v, ok := r.Capacity[k]
		if !ok {
			continue
		}
		out = append(out, CapacityRecord{Tech: k.Tech, Class: k.Class, Region: k.Region, Year: k.Year, MW: v})
	}
	return out
}

// GenerationRecords lists the non-zero generation decisions in index order.
func (r Result) GenerationRecords() []GenerationRecord {
	out := make([]GenerationRecord, 0, len(r.Generation))
	for _, k := range r.Spaces.TCRYH {
		v, ok := r.Generation[k]
		if !ok {
			continue
		}
		out = append(out, GenerationRecord{Tech: k.Tech, Class: k.Class, Region: k.Region, Year: k.Year, Time: k.Time, MW: v})
	}
	return out
}

// TechCapacity is the total capacity of one technology.
type TechCapacity struct {
	Tech string  `json:"tech" bson:"tech"`
	MW   float64 `json:"mw"   bson:"mw"`
}

// CapacityByTech sums capacity over class, region and year, sorted by
// technology.
func (r Result) CapacityByTech() []TechCapacity {
	totals := make(map[string]float64)
	for k, v := range r.Capacity {
		totals[k.Tech] += v
	}
	out := make([]TechCapacity, 0, len(totals))
	for t, mw := range totals {
		out = append(out, TechCapacity{Tech: t, MW: mw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tech < out[j].Tech })
	return out
}

// Summary is the serializable header of a result.
type Summary struct {
	RunID     uuid.UUID      `json:"run_id"`
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	Objective float64        `json:"objective"`
	Started   time.Time      `json:"started"`
	Finished  time.Time      `json:"finished"`
	Capacity  []TechCapacity `json:"capacity"`
}

// Summary returns the result header with capacity totals by technology.
func (r Result) Summary() Summary {
	return Summary{
		RunID:     r.RunID,
		Name:      r.Scenario.Name,
		Status:    r.Status.String(),
		Objective: r.Objective,
		Started:   r.Started,
		Finished:  r.Finished,
		Capacity:  r.CapacityByTech(),
	}
}
