package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Summary gathers g and flattens every counter and gauge into name -> value,
// summing across label sets. Histograms report their sample count.
func Summary(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatherFailed, err)
	}

	out := make(map[string]float64, len(families))
	for _, f := range families {
		var total float64
		for _, m := range f.GetMetric() {
			total += sampleValue(f.GetType(), m)
		}
		out[f.GetName()] = total
	}
	return out, nil
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return 0
	}
}
