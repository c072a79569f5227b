// Package kernelprocess surfaces process-exec events through a bounded
// ring. Publication never blocks the event source: when the consumer falls
// behind, records are dropped and the consumer sees a gap, not an error.
package kernelprocess

import (
	"context"
	"sync/atomic"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"

	"edgetrace/internal/logger"
	"edgetrace/internal/store"
)

// ExecRecord is the fixed-size record appended per exec event. Parent pid
// resolution is out of scope, so Ppid is always zero, and Argv carries a
// copy of the command name rather than the real argument vector.
type ExecRecord struct {
	Pid  uint32
	Ppid uint32
	Comm [16]byte
	Argv [256]byte
}

// execRecordSize matches the wire size of ExecRecord.
const execRecordSize = 4 + 4 + 16 + 256

// ringBytes sizes the ring at 16 MiB, expressed in whole records.
const ringBytes = 1 << 24

// CommString returns the command name without NUL padding.
func (r ExecRecord) CommString() string {
	return cstring(r.Comm[:])
}

// ArgvString returns the argv buffer without NUL padding.
func (r ExecRecord) ArgvString() string {
	return cstring(r.Argv[:])
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Collector publishes exec events into a bounded ring and drains them for
// the log and the exporter.
type Collector struct {
	ring *store.Ring[ExecRecord]
	log  log.Logger

	// Optional drain-side filters; zero values match everything.
	pidFilter  uint32
	commFilter string

	seen atomic.Uint64

	eventsDesc  *prometheus.Desc
	droppedDesc *prometheus.Desc
}

// NewCollector creates an exec collector with the default 16 MiB ring.
func NewCollector(pidFilter uint32, commFilter string) *Collector {
	return NewCollectorWithCapacity(ringBytes/execRecordSize, pidFilter, commFilter)
}

// NewCollectorWithCapacity creates an exec collector with an explicit ring
// capacity in records.
func NewCollectorWithCapacity(capacity int, pidFilter uint32, commFilter string) *Collector {
	c := &Collector{
		ring:       store.NewRing[ExecRecord](capacity),
		log:        logger.GetProcessLogger(),
		pidFilter:  pidFilter,
		commFilter: commFilter,
		eventsDesc: prometheus.NewDesc(
			"edgetrace_exec_events_total",
			"Process exec events observed by the consumer.",
			nil, nil,
		),
		droppedDesc: prometheus.NewDesc(
			"edgetrace_exec_events_dropped_total",
			"Process exec events dropped on a full ring.",
			nil, nil,
		),
	}
	return c
}

// HandleProcessExec reserves a ring slot for the exec event and submits it.
// On a full ring the event is dropped with no retry and no error to the
// event source.
func (c *Collector) HandleProcessExec(pid uint32, comm [16]byte) error {
	rec := ExecRecord{Pid: pid, Comm: comm}
	// True argument capture is not implemented; duplicate the command name.
	copy(rec.Argv[:], comm[:])
	c.ring.Publish(rec)
	return nil
}

// Drain consumes the ring until ctx is cancelled, logging each record that
// passes the filters. It is the single consumer of the ring.
func (c *Collector) Drain(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-c.ring.Events():
			if !ok {
				return nil
			}
			c.consume(rec)
		}
	}
}

func (c *Collector) consume(rec ExecRecord) {
	c.seen.Add(1)
	if c.pidFilter != 0 && rec.Pid != c.pidFilter {
		return
	}
	if c.commFilter != "" && rec.CommString() != c.commFilter {
		return
	}
	c.log.Info().
		Uint32("pid", rec.Pid).
		Str("comm", rec.CommString()).
		Str("argv", rec.ArgvString()).
		Msg("process exec")
}

// Next pops one record off the ring without blocking.
func (c *Collector) Next() (ExecRecord, bool) {
	return c.ring.Next()
}

// Drops returns how many exec events were rejected on a full ring.
func (c *Collector) Drops() uint64 {
	return c.ring.Drops()
}

// Close stops the ring's consumer channel. Call only after the event
// sources are stopped.
func (c *Collector) Close() {
	c.ring.Close()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.eventsDesc
	ch <- c.droppedDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.eventsDesc, prometheus.CounterValue, float64(c.seen.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		c.droppedDesc, prometheus.CounterValue, float64(c.ring.Drops()),
	)
}
