// Package metrics collects per-batch Prometheus metrics and optionally pushes
// them to a Pushgateway when the batch ends.
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the Pushgateway job name.
const Job = "roadsync"

// Import results.
const (
	ImportOK      = "ok"
	ImportInvalid = "invalid"
	ImportFailed  = "failed"
)

// Collector holds the metrics of one invocation on its own registry.
type Collector struct {
	registry *prometheus.Registry

	roads        *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	imports      *prometheus.CounterVec
	batchErrors  prometheus.Gauge
	amount       prometheus.Gauge
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		roads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadsync_roads_total",
			Help: "Roads processed, by outcome status",
		}, []string{"status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roadsync_task_duration_seconds",
			Help:    "Duration of pipeline tasks in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"task"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadsync_imports_total",
			Help: "Table imports, by result",
		}, []string{"result"}),
		batchErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roadsync_batch_errors",
			Help: "Failed roads in the last batch",
		}),
		amount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roadsync_batch_amount_meters",
			Help: "Total length of the roads in the last batch in metres",
		}),
	}

	c.registry.MustRegister(c.roads, c.taskDuration, c.imports, c.batchErrors, c.amount)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordRoad counts a processed road.
func (c *Collector) RecordRoad(status string) {
	if c == nil {
		return
	}
	c.roads.WithLabelValues(status).Inc()
}

// ObserveTask records how long a task took.
func (c *Collector) ObserveTask(task string, d time.Duration) {
	if c == nil {
		return
	}
	c.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

// RecordImport counts a table import.
func (c *Collector) RecordImport(result string) {
	if c == nil {
		return
	}
	c.imports.WithLabelValues(result).Inc()
}

// SetBatch records the batch totals.
func (c *Collector) SetBatch(amountMeters int64, errors int) {
	if c == nil {
		return
	}
	c.amount.Set(float64(amountMeters))
	c.batchErrors.Set(float64(errors))
}

// Push sends the registry to a Pushgateway, grouped by command.
func (c *Collector) Push(ctx context.Context, url, command string) error {
	if c == nil || url == "" {
		return nil
	}
	err := push.New(url, Job).
		Gatherer(c.registry).
		Grouping("command", command).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
