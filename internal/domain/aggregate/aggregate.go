// Package aggregate reduces a staff population into summary statistics.
package aggregate

import (
	"math"

	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/types"
)

const percent = 100

// GroupFilter optionally restricts aggregation to one subject.
type GroupFilter struct {
	Subject string `json:"subject"`
	Enabled bool   `json:"enabled"`
}

// All matches every record.
func All() GroupFilter { return GroupFilter{} }

// BySubject matches records whose subject equals s exactly.
func BySubject(s string) GroupFilter { return GroupFilter{Subject: s, Enabled: true} }

// Match reports whether r passes the filter.
func (f GroupFilter) Match(r model.StaffRecord) bool {
	return !f.Enabled || r.Subject == f.Subject
}

// Filter returns the records that pass f.
func Filter(records []model.StaffRecord, f GroupFilter) []model.StaffRecord {
	if !f.Enabled {
		return records
	}
	out := make([]model.StaffRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Aggregate computes mean and population standard deviation of age plus the
// graduate and senior rates (percent). An empty population yields zero
// metrics, which is a valid "no data" result.
func Aggregate(records []model.StaffRecord, f GroupFilter) types.Metrics {
	var (
		n, graduates, seniors int
		sum                   float64
	)
	for _, r := range records {
		if !f.Match(r) {
			continue
		}
		n++
		sum += float64(r.Age)
		if r.Education.IsGraduate() {
			graduates++
		}
		if r.Title.IsSenior() {
			seniors++
		}
	}
	if n == 0 {
		return types.Metrics{}
	}

	mean := sum / float64(n)
	var sq float64
	for _, r := range records {
		if !f.Match(r) {
			continue
		}
		d := float64(r.Age) - mean
		sq += d * d
	}

	return types.Metrics{
		MeanAge:         mean,
		AgeStdDev:       math.Sqrt(sq / float64(n)),
		GraduateRate:    float64(graduates) / float64(n) * percent,
		SeniorRate:      float64(seniors) / float64(n) * percent,
		PopulationCount: n,
	}
}

// Split partitions records by origin.
func Split(records []model.StaffRecord) (existing, simulated []model.StaffRecord) {
	for _, r := range records {
		if r.Origin == model.OriginSimulated {
			simulated = append(simulated, r)
		} else {
			existing = append(existing, r)
		}
	}
	return existing, simulated
}
