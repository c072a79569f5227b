// Package kernelcpu accounts per-process CPU time from scheduler context
// switch events. Every switch closes the outgoing task's running interval
// and opens one for the incoming task, using a single timestamp for both so
// adjacent intervals neither gap nor overlap. Process exit reaps all state
// for the dead pid; pids are recycled, and a stale entry would hand the
// successor its predecessor's history.
package kernelcpu

import (
	"strconv"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"

	"edgetrace/internal/logger"
	"edgetrace/internal/tracepoint"
	"edgetrace/internal/tracker"
)

const (
	// startCapacity bounds how many tasks can hold an open interval at
	// once; totalCapacity bounds how many tasks can carry an accumulated
	// total. When either fills, the affected task's accounting is simply
	// not produced.
	startCapacity = 10240
	totalCapacity = 10240
)

// Collector tracks per-process CPU time and exposes it as Prometheus
// metrics. Its handlers are called from concurrently running dispatch loops
// and must stay allocation-free and non-blocking on the hot path.
type Collector struct {
	totals  *tracker.KeyedAccumulator
	tracker *tracker.Tracker
	log     log.Logger

	cpuSecondsDesc *prometheus.Desc
	trackedDesc    *prometheus.Desc
	dropsDesc      *prometheus.Desc
}

// NewCollector creates a CPU-time collector.
func NewCollector() *Collector {
	totals := tracker.NewKeyedAccumulator(totalCapacity)
	return &Collector{
		totals:  totals,
		tracker: tracker.New(startCapacity, totals),
		log:     logger.GetSchedLogger(),
		cpuSecondsDesc: prometheus.NewDesc(
			"edgetrace_process_cpu_seconds_total",
			"Accumulated on-CPU time per process.",
			[]string{"pid"}, nil,
		),
		trackedDesc: prometheus.NewDesc(
			"edgetrace_cpu_tracked_processes",
			"Processes currently holding a CPU-time total.",
			nil, nil,
		),
		dropsDesc: prometheus.NewDesc(
			"edgetrace_cpu_store_dropped_inserts_total",
			"Inserts rejected by full CPU accounting stores.",
			[]string{"store"}, nil,
		),
	}
}

// HandleSchedSwitch processes one context switch. The idle task (pid 0) is
// never accounted.
func (c *Collector) HandleSchedSwitch(sw tracepoint.SchedSwitch, now uint64) error {
	if sw.PrevPID != 0 {
		c.tracker.End(sw.PrevPID, now)
	}
	if sw.NextPID != 0 {
		c.tracker.Begin(sw.NextPID, now)
	}
	return nil
}

// HandleProcessExit reaps all accounting state for the exiting pid. A
// terminated task never gets a matching switch-out cleanup, so without this
// the start store would collect dead pids forever and a recycled pid would
// inherit a dangling open interval.
func (c *Collector) HandleProcessExit(pid uint32, _ uint64) error {
	c.tracker.Reap(pid)
	return nil
}

// Total returns the accumulated CPU nanoseconds for pid.
func (c *Collector) Total(pid uint32) (uint64, bool) {
	return c.totals.Total(pid)
}

// RangeTotals iterates over all (pid, total ns) pairs until f returns false.
func (c *Collector) RangeTotals(f func(pid uint32, totalNs uint64) bool) {
	c.totals.Range(f)
}

// OpenIntervals returns how many tasks are currently marked running.
func (c *Collector) OpenIntervals() int {
	return c.tracker.Open()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpuSecondsDesc
	ch <- c.trackedDesc
	ch <- c.dropsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.totals.Range(func(pid uint32, totalNs uint64) bool {
		ch <- prometheus.MustNewConstMetric(
			c.cpuSecondsDesc, prometheus.CounterValue,
			float64(totalNs)/1e9,
			strconv.FormatUint(uint64(pid), 10),
		)
		return true
	})
	ch <- prometheus.MustNewConstMetric(
		c.trackedDesc, prometheus.GaugeValue, float64(c.totals.Len()),
	)
	ch <- prometheus.MustNewConstMetric(
		c.dropsDesc, prometheus.CounterValue, float64(c.tracker.StartDrops()), "starts",
	)
	ch <- prometheus.MustNewConstMetric(
		c.dropsDesc, prometheus.CounterValue, float64(c.totals.Drops()), "totals",
	)
}
