package batch

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var ErrWriteMetrics = errors.New("failed to write metrics file")

// Collector holds the counters updated by a batch run. Each collector has its own registry so
// several runs, or tests, never collide on registration.
type Collector struct {
	registry     *prometheus.Registry
	LogCounter   *prometheus.CounterVec
	RowCounter   *prometheus.CounterVec
	FormatCount  *prometheus.CounterVec
	LinkCounter  prometheus.Counter
	RatedPlayers prometheus.Gauge
}

func NewCollector() *Collector {
	collector := &Collector{
		registry: prometheus.NewRegistry(),
		LogCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rglstats_logs_total", Help: "Logs handled by a batch operation"},
			[]string{"operation", "result"}),

		RowCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rglstats_class_stats_total", Help: "Player class stat rows extracted"},
			[]string{"class"}),

		FormatCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rglstats_log_format_total", Help: "Logs classified per format"},
			[]string{"format"}),

		LinkCounter: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "rglstats_link_candidates_total", Help: "Log to match candidates found"}),

		RatedPlayers: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "rglstats_rated_players", Help: "Players with a rating after the last run"}),
	}

	for _, metric := range []prometheus.Collector{
		collector.LogCounter,
		collector.RowCounter,
		collector.FormatCount,
		collector.LinkCounter,
		collector.RatedPlayers,
	} {
		collector.registry.MustRegister(metric)
	}

	return collector
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) observe(operation string, summary Summary) {
	c.LogCounter.With(prometheus.Labels{"operation": operation, "result": "processed"}).Add(float64(summary.Processed))
	c.LogCounter.With(prometheus.Labels{"operation": operation, "result": "skipped"}).Add(float64(summary.Skipped))
	c.LogCounter.With(prometheus.Labels{"operation": operation, "result": "filtered"}).Add(float64(summary.Filtered))
}

// WriteTextfile writes the current values in the node exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}

	if errWrite := prometheus.WriteToTextfile(path, c.registry); errWrite != nil {
		return errors.Join(errWrite, ErrWriteMetrics)
	}

	return nil
}
