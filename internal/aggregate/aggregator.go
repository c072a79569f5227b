package aggregate

import (
	"context"
	"runtime"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"edgetrace/internal/collectors/kernelcpu"
	"edgetrace/internal/collectors/kernelmemory"
	"edgetrace/internal/collectors/kernelthermal"
)

// DefaultInterval is the poll period for all reducers.
const DefaultInterval = time.Second

// Aggregator polls the collectors and folds their counters into the shared
// snapshot and the node-level gauges. A nil collector disables its poller.
type Aggregator struct {
	CPU      *kernelcpu.Collector
	MemStall *kernelmemory.Collector
	Thermal  *kernelthermal.Collector

	Interval time.Duration
	Snapshot *Snapshot

	log log.Logger
}

// New creates an aggregator over the given collectors.
func New(cpu *kernelcpu.Collector, mem *kernelmemory.Collector, thermal *kernelthermal.Collector) *Aggregator {
	return &Aggregator{
		CPU:      cpu,
		MemStall: mem,
		Thermal:  thermal,
		Interval: DefaultInterval,
		Snapshot: &Snapshot{},
		log:      log.DefaultLogger,
	}
}

// Run drives all pollers until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.CPU != nil {
		g.Go(func() error { return a.pollCPU(ctx) })
	}
	if a.MemStall != nil {
		g.Go(func() error { return a.pollMemStall(ctx) })
	}
	g.Go(func() error { return a.pollMeminfo(ctx) })
	if a.Thermal != nil {
		g.Go(func() error { return a.pollThermal(ctx) })
	}
	g.Go(func() error { return a.report(ctx) })

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// pollCPU computes node CPU usage from the per-process totals. The kernel
// accounts CPU time per core, so one second of wall time on N cores is N
// seconds of CPU time; the interval is scaled accordingly.
func (a *Aggregator) pollCPU(ctx context.Context) error {
	numCPUs := float64(runtime.GOMAXPROCS(0))
	if numCPUs < 1 {
		numCPUs = float64(runtime.NumCPU())
	}
	intervalNS := uint64(a.Interval.Nanoseconds())
	scaledIntervalNS := uint64(float64(intervalNS) * numCPUs)

	lastCPU := make(map[uint32]uint64)
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var totalDelta uint64
			seen := make(map[uint32]uint64, len(lastCPU))
			a.CPU.RangeTotals(func(pid uint32, ns uint64) bool {
				if prev := lastCPU[pid]; ns > prev {
					totalDelta += ns - prev
				}
				seen[pid] = ns
				return true
			})
			// Reaped pids vanish from the totals; dropping them here keeps
			// the poll-side cache bounded too.
			lastCPU = seen

			percent := (float64(totalDelta) / float64(scaledIntervalNS)) * 100.0
			a.Snapshot.UpdateCPU(percent)
			nodeCPUPercent.Set(a.Snapshot.Read().CPUPercent)
		}
	}
}

// pollMemStall derives the share of wall time the node spent in direct
// reclaim from the global stall counter.
func (a *Aggregator) pollMemStall(ctx context.Context) error {
	intervalNS := float64(a.Interval.Nanoseconds())
	var lastStall uint64

	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stall := a.MemStall.TotalStallNs()
			delta := stall - lastStall
			lastStall = stall

			percent := float64(delta) / intervalNS * 100.0
			a.Snapshot.UpdateMemStall(percent)
			nodeMemStallPercent.Set(percent)
		}
	}
}

// pollMeminfo reads memory saturation from /proc/meminfo.
func (a *Aggregator) pollMeminfo(ctx context.Context) error {
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			usage, err := readMemoryUsage()
			if err != nil {
				a.log.Warn().Err(err).Msg("meminfo read failed")
				continue
			}
			a.Snapshot.UpdateMem(usage)
			nodeMemUsedPercent.Set(usage)
		}
	}
}

// pollThermal refreshes the thermal reading.
func (a *Aggregator) pollThermal(ctx context.Context) error {
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Snapshot.UpdateTemp(a.Thermal.Reading())
		}
	}
}

// report logs the unified view once per interval.
func (a *Aggregator) report(ctx context.Context) error {
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s := a.Snapshot.Read()
			a.log.Debug().
				Float64("cpu_percent", s.CPUPercent).
				Float64("mem_percent", s.MemPercent).
				Float64("mem_stall_percent", s.MemStallPercent).
				Float64("temp_c", s.TempC).
				Str("temp_status", s.TempStatus).
				Str("zone", s.ZoneName).
				Msg("node snapshot")
		}
	}
}
