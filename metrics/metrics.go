// Package metrics exports octree statistics and simulation timings to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gravityexperiment/gravsim/octree"
)

const namespace = "gravsim"

// A StatsSource provides the latest octree statistics. It must be safe to call from the
// goroutine serving scrapes.
type StatsSource interface {
	Stats() octree.Stats
}

// Collector reports the statistics of an octree on every scrape.
type Collector struct {
	source StatsSource

	cells, points, leaves, depth, overfull *prometheus.Desc
	failures, totalFailures                *prometheus.Desc
	pooled, allocated                      *prometheus.Desc
	occupancyMean, occupancyStdDev         *prometheus.Desc
	cellsAtDepth, pointsAtDepth            *prometheus.Desc
}

// NewCollector returns a collector over source.
func NewCollector(source StatsSource) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "octree", name), help, labels, nil)
	}
	return &Collector{
		source:          source,
		cells:           desc("cells", "Number of cells in the octree"),
		points:          desc("points", "Number of points held by the octree"),
		leaves:          desc("leaves", "Number of leaf cells"),
		depth:           desc("depth", "Depth of the deepest cell"),
		overfull:        desc("overfull_leaves", "Leaves over capacity that cannot subdivide further"),
		failures:        desc("redistribution_failures", "Points that could not be redistributed during the last tick"),
		totalFailures:   desc("redistribution_failures_total", "Points that could not be redistributed since creation"),
		pooled:          desc("pooled_cells", "Free cells waiting for reuse"),
		allocated:       desc("allocated_cells", "Cells currently in use"),
		occupancyMean:   desc("leaf_occupancy_mean", "Mean number of points per leaf"),
		occupancyStdDev: desc("leaf_occupancy_stddev", "Standard deviation of the number of points per leaf"),
		cellsAtDepth:    desc("depth_cells", "Number of cells at each depth", "depth"),
		pointsAtDepth:   desc("depth_points", "Number of points held at each depth", "depth"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.cells, c.points, c.leaves, c.depth, c.overfull,
		c.failures, c.totalFailures, c.pooled, c.allocated,
		c.occupancyMean, c.occupancyStdDev, c.cellsAtDepth, c.pointsAtDepth,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	gauge(c.cells, float64(s.CellCount))
	gauge(c.points, float64(s.PointCount))
	gauge(c.leaves, float64(s.LeafCount))
	gauge(c.depth, float64(s.Depth))
	gauge(c.overfull, float64(s.OverfullLeaves))
	gauge(c.failures, float64(s.RedistributionFailures))
	ch <- prometheus.MustNewConstMetric(c.totalFailures, prometheus.CounterValue, float64(s.TotalRedistributionFailures))
	gauge(c.pooled, float64(s.PooledCells))
	gauge(c.allocated, float64(s.AllocatedCells))
	gauge(c.occupancyMean, s.MeanLeafOccupancy)
	gauge(c.occupancyStdDev, s.LeafOccupancyStdDev)
	for depth, n := range s.CellCountAtDepth {
		gauge(c.cellsAtDepth, float64(n), strconv.Itoa(depth))
		gauge(c.pointsAtDepth, float64(s.PointCountAtDepth[depth]), strconv.Itoa(depth))
	}
}

// Registry holds the metrics of one simulation.
type Registry struct {
	registry     *prometheus.Registry
	stepDuration prometheus.Histogram
	forcesTime   prometheus.Histogram
	steps        prometheus.Counter
	reseeds      prometheus.Counter
}

// NewRegistry returns a registry exporting the octree statistics of source along with step
// timings and the Go runtime metrics.
func NewRegistry(source StatsSource) *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of simulation steps in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		forcesTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forces_duration_seconds",
			Help:      "Time spent computing forces in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of simulation steps",
		}),
		reseeds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reseeds_total",
			Help:      "Total number of octree rebuilds after membership changes",
		}),
	}
	r.registry.MustRegister(
		NewCollector(source),
		r.stepDuration,
		r.forcesTime,
		r.steps,
		r.reseeds,
		collectors.NewGoCollector(),
	)
	return r
}

// ObserveStep records a completed step and how long it and its force computation took.
func (r *Registry) ObserveStep(step, forces time.Duration) {
	r.steps.Inc()
	r.stepDuration.Observe(step.Seconds())
	r.forcesTime.Observe(forces.Seconds())
}

// ObserveReseed records an octree rebuild.
func (r *Registry) ObserveReseed() {
	r.reseeds.Inc()
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
