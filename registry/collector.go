package registry

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector bridges the registry to Prometheus: every numeric attribute of
// every registered object is exported as an untyped metric named from the
// object's domain, type and attribute, with the instance name as a label.
type Collector struct {
	registry *Registry
}

func NewCollector(r *Registry) *Collector {
	return &Collector{registry: r}
}

// Describe sends nothing: the metric set depends on what is registered at
// scrape time, so the collector is unchecked.
func (c *Collector) Describe(_ chan<- *prometheus.Desc) {}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, reg := range c.registry.registrations() {
		subsystem := metricName(reg.Name.Domain + "_" + reg.Name.Type())
		for _, attr := range reg.Object.ManagedAttributes() {
			value, ok := numericValue(attr.Eval())
			if !ok {
				continue
			}

			desc := prometheus.NewDesc(
				prometheus.BuildFQName("managed", subsystem, metricName(attr.Name)),
				attr.Description,
				[]string{"name"},
				nil,
			)
			metric, err := prometheus.NewConstMetric(desc, prometheus.UntypedValue, value, reg.Name.Name())
			if err != nil {
				continue
			}
			ch <- metric
		}
	}
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// metricName lowercases and replaces everything outside [a-z0-9_] so
// object-name fragments become valid Prometheus name parts.
func metricName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, s)
}
