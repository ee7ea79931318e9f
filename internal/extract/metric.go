package extract

import (
	"math"
	"strconv"

	"xia2pipe/internal/catalogue"
)

// Metric is a nullable, always-finite float.
type Metric struct {
	value float64
	valid bool
}

// NewMetric wraps v; NaN and infinities become null.
func NewMetric(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Metric{}
	}
	return Metric{value: v, valid: true}
}

// Valid reports whether the metric holds a value.
func (m Metric) Valid() bool { return m.valid }

// Value returns the value and whether it is set.
func (m Metric) Value() (float64, bool) { return m.value, m.valid }

// Literal renders the metric for the catalogue.
func (m Metric) Literal() catalogue.Literal {
	if !m.valid {
		return catalogue.Null()
	}
	return catalogue.Float(m.value)
}

func (m Metric) String() string {
	if !m.valid {
		return "null"
	}
	return strconv.FormatFloat(m.value, 'f', -1, 64)
}

// metricSet records parsed metrics by name and tracks those dropped as NaN.
type metricSet struct {
	dropped []string
}

func (s *metricSet) set(dst *Metric, name string, v float64) {
	m := NewMetric(v)
	if !m.valid {
		s.dropped = append(s.dropped, name)
	}
	*dst = m
}

type namedMetric struct {
	name   string
	metric Metric
}

func missing(required []namedMetric) []string {
	var out []string
	for _, nm := range required {
		if !nm.metric.valid {
			out = append(out, nm.name)
		}
	}
	return out
}
