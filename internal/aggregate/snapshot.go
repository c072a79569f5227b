// Package aggregate periodically reduces the collectors' raw counters into
// node-level readings: CPU usage, memory saturation and stall time, and the
// thermal status used for scheduling decisions.
package aggregate

import (
	"sync"

	"edgetrace/internal/collectors/kernelthermal"
)

// Snapshot holds the latest metrics from all local collectors. It is shared
// between the pollers and any display or push loop, so access goes through
// the RWMutex.
type Snapshot struct {
	CPUPercent      float64 // aggregated + clamped CPU usage
	MemPercent      float64 // memory saturation from /proc/meminfo
	MemStallPercent float64 // share of wall time stalled in direct reclaim
	TempC           float64
	TempStatus      string // SAFE/WARM/HOT/UNAVAILABLE
	ZoneName        string

	mu sync.RWMutex
}

// UpdateCPU updates the CPU metric with a hard clamp at 95%. Kernel-side
// accounting can spike slightly past 100% in virtualized environments, so
// we clamp rather than smooth.
func (s *Snapshot) UpdateCPU(v float64) {
	if v > 95 {
		v = 95
	}
	s.mu.Lock()
	s.CPUPercent = v
	s.mu.Unlock()
}

// UpdateMem updates the memory saturation percentage.
func (s *Snapshot) UpdateMem(v float64) {
	s.mu.Lock()
	s.MemPercent = v
	s.mu.Unlock()
}

// UpdateMemStall updates the reclaim-stall share of wall time.
func (s *Snapshot) UpdateMemStall(v float64) {
	s.mu.Lock()
	s.MemStallPercent = v
	s.mu.Unlock()
}

// UpdateTemp updates the thermal reading.
func (s *Snapshot) UpdateTemp(r kernelthermal.Reading) {
	s.mu.Lock()
	s.TempC = r.Celsius
	s.TempStatus = r.Status
	s.ZoneName = r.Zone
	s.mu.Unlock()
}

// Read returns a copy of the snapshot so readers never see half-written
// data.
func (s *Snapshot) Read() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		CPUPercent:      s.CPUPercent,
		MemPercent:      s.MemPercent,
		MemStallPercent: s.MemStallPercent,
		TempC:           s.TempC,
		TempStatus:      s.TempStatus,
		ZoneName:        s.ZoneName,
	}
}
