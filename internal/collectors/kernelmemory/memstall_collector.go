// Package kernelmemory measures the time the node spends stalled in
// synchronous direct reclaim. Begin/end events are keyed per pid while the
// stall is in flight, but the product is a single node-wide total, not a
// per-process breakdown.
package kernelmemory

import (
	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"

	"edgetrace/internal/logger"
	"edgetrace/internal/tracker"
)

// startCapacity bounds in-flight reclaim stalls. Entries are transient:
// begin/end pairs bracket one synchronous call, so the store drains itself.
const startCapacity = 1024

// Collector accumulates node-wide direct-reclaim stall time.
//
// There is deliberately no process-exit reap here: a reclaim begin/end pair
// is tightly scoped to one synchronous call, so a task is not expected to
// exit mid-reclaim. If the kernel ever delivers events in an order that
// strands a start entry, it sits in the bounded store until the pid is
// reused or capacity pressure drops it.
type Collector struct {
	stall   *tracker.GlobalAccumulator
	tracker *tracker.Tracker
	log     log.Logger

	stallSecondsDesc *prometheus.Desc
	inflightDesc     *prometheus.Desc
}

// NewCollector creates a memory-stall collector.
func NewCollector() *Collector {
	stall := tracker.NewGlobalAccumulator()
	return &Collector{
		stall:   stall,
		tracker: tracker.New(startCapacity, stall),
		log:     logger.GetMemoryLogger(),
		stallSecondsDesc: prometheus.NewDesc(
			"edgetrace_mem_stall_seconds_total",
			"Total time the node spent stalled on direct memory reclaim.",
			nil, nil,
		),
		inflightDesc: prometheus.NewDesc(
			"edgetrace_mem_reclaim_inflight",
			"Reclaim stalls currently in flight.",
			nil, nil,
		),
	}
}

// HandleReclaimBegin marks pid as entering direct reclaim at timestamp now.
func (c *Collector) HandleReclaimBegin(pid uint32, now uint64) error {
	c.tracker.Begin(pid, now)
	return nil
}

// HandleReclaimEnd closes pid's stall and folds the duration into the
// node-wide total. An end without a matching begin is ignored.
func (c *Collector) HandleReclaimEnd(pid uint32, now uint64) error {
	c.tracker.End(pid, now)
	return nil
}

// TotalStallNs returns the accumulated node-wide stall time.
func (c *Collector) TotalStallNs() uint64 {
	return c.stall.Total()
}

// Inflight returns the number of stalls currently open.
func (c *Collector) Inflight() int {
	return c.tracker.Open()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stallSecondsDesc
	ch <- c.inflightDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.stallSecondsDesc, prometheus.CounterValue,
		float64(c.stall.Total())/1e9,
	)
	ch <- prometheus.MustNewConstMetric(
		c.inflightDesc, prometheus.GaugeValue, float64(c.tracker.Open()),
	)
}
