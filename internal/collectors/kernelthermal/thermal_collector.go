// Package kernelthermal tracks one thermal zone's temperature. Small edge
// boards expose one or two zones and the first to report is generally the
// CPU diode, so the collector latches the first zone name it sees and
// thereafter only refreshes the temperature, whichever zone reported it.
package kernelthermal

import (
	"sync/atomic"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"

	"edgetrace/internal/logger"
	"edgetrace/internal/tracepoint"
)

// Thermal pressure thresholds. Temperatures are normalized against the
// critical limit; crossing 0.6 marks the node WARM, 0.8 marks it HOT.
const (
	criticalCelsius = 100.0
	warmPressure    = 0.6
	hotPressure     = 0.8
)

// Reading is a point-in-time view of the tracked zone.
type Reading struct {
	Zone     string
	Celsius  float64
	Pressure float64
	Status   string // SAFE, WARM, HOT or UNAVAILABLE
}

// Collector is a single-slot thermal latch: the zone name is written at
// most once per collector lifetime, the temperature on every event.
type Collector struct {
	layout tracepoint.Layout
	log    log.Logger

	// zone is nil until the first event latches a name. The CAS publish
	// makes "first wins" exact even with handlers racing on different
	// execution units.
	zone         atomic.Pointer[[tracepoint.CommLen]byte]
	tempMillideg atomic.Uint32

	tempDesc *prometheus.Desc
}

// NewCollector creates a thermal collector decoding records with layout.
func NewCollector(layout tracepoint.Layout) *Collector {
	return &Collector{
		layout: layout,
		log:    logger.GetThermalLogger(),
		tempDesc: prometheus.NewDesc(
			"edgetrace_thermal_zone_temp_celsius",
			"Latest temperature of the tracked thermal zone.",
			[]string{"zone"}, nil,
		),
	}
}

// HandleThermalTemp decodes a raw thermal_temperature record, latches the
// zone name on the first event, and overwrites the latest temperature.
// Malformed records are dropped without touching the latch.
func (c *Collector) HandleThermalTemp(raw []byte) error {
	sample, err := c.layout.DecodeThermalTemp(raw)
	if err != nil {
		return err
	}

	if c.zone.Load() == nil {
		name := sample.Zone
		if c.zone.CompareAndSwap(nil, &name) {
			c.log.Info().Str("zone", sample.ZoneString()).Msg("thermal zone latched")
		}
	}
	c.tempMillideg.Store(sample.TempMillideg)
	return nil
}

// Captured reports whether a zone name has been latched yet.
func (c *Collector) Captured() bool {
	return c.zone.Load() != nil
}

// ZoneName returns the latched zone name, or "" before the first event.
func (c *Collector) ZoneName() string {
	name := c.zone.Load()
	if name == nil {
		return ""
	}
	var t tracepoint.ThermalTemp
	t.Zone = *name
	return t.ZoneString()
}

// TempMillideg returns the most recent temperature in millidegrees Celsius.
func (c *Collector) TempMillideg() uint32 {
	return c.tempMillideg.Load()
}

// Reading derives the current zone reading with its pressure status.
func (c *Collector) Reading() Reading {
	if !c.Captured() {
		return Reading{Status: "UNAVAILABLE"}
	}
	celsius := float64(c.tempMillideg.Load()) / 1000.0
	pressure := celsius / criticalCelsius
	status := "SAFE"
	switch {
	case pressure >= hotPressure:
		status = "HOT"
	case pressure >= warmPressure:
		status = "WARM"
	}
	return Reading{
		Zone:     c.ZoneName(),
		Celsius:  celsius,
		Pressure: pressure,
		Status:   status,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tempDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if !c.Captured() {
		return
	}
	ch <- prometheus.MustNewConstMetric(
		c.tempDesc, prometheus.GaugeValue,
		float64(c.tempMillideg.Load())/1000.0,
		c.ZoneName(),
	)
}
