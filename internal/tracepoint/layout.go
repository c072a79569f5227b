package tracepoint

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"
)

// Layout holds the per-hardware byte offsets of the fields we read out of
// raw trace records. The offsets are build-time constants per target, not
// runtime logic: the standard layout matches generic amd64 and the
// Raspberry Pi 5, the tegra layout matches the Jetson Orin Nano, whose
// records carry a 12-byte header instead of 8.
type Layout struct {
	Name string

	// sched_switch record offsets
	SchedPrevPID int
	SchedNextPID int

	// thermal_temperature record offsets
	ThermalDataLoc int
	ThermalTemp    int
}

var (
	// LayoutCore is the standard kernel record layout.
	LayoutCore = Layout{
		Name:           "core",
		SchedPrevPID:   24,
		SchedNextPID:   56,
		ThermalDataLoc: 8,
		ThermalTemp:    20,
	}

	// LayoutTegra is the Jetson Tegra record layout.
	LayoutTegra = Layout{
		Name:           "tegra",
		SchedPrevPID:   28,
		SchedNextPID:   64,
		ThermalDataLoc: 12,
		ThermalTemp:    24,
	}
)

// LayoutByName resolves an explicitly configured layout name.
func LayoutByName(name string) (Layout, bool) {
	switch name {
	case "core":
		return LayoutCore, true
	case "tegra":
		return LayoutTegra, true
	default:
		return Layout{}, false
	}
}

// LayoutForRelease picks the record layout for a kernel release string.
func LayoutForRelease(release string) Layout {
	if strings.Contains(release, "tegra") {
		return LayoutTegra
	}
	return LayoutCore
}

// DetectLayout picks the record layout for the running kernel.
func DetectLayout() Layout {
	release, err := os.ReadFile("/proc/sys/kernel/osrelease")
	if err != nil {
		return LayoutCore
	}
	return LayoutForRelease(strings.TrimSpace(string(release)))
}

// DecodeSchedSwitch extracts the outgoing and incoming pids from a raw
// sched_switch record.
func (l Layout) DecodeSchedSwitch(raw []byte) (SchedSwitch, error) {
	if len(raw) < l.SchedNextPID+4 {
		return SchedSwitch{}, fmt.Errorf("sched_switch record too short: %d bytes", len(raw))
	}
	return SchedSwitch{
		PrevPID: binary.LittleEndian.Uint32(raw[l.SchedPrevPID:]),
		NextPID: binary.LittleEndian.Uint32(raw[l.SchedNextPID:]),
	}, nil
}

// DecodeThermalTemp extracts the temperature and zone name from a raw
// thermal_temperature record. The zone name lives in the record's trailing
// data at an offset carried by the data-loc field; the offset is masked to
// its low 16 bits and bounds-checked so a corrupt record can never send the
// read outside the buffer.
func (l Layout) DecodeThermalTemp(raw []byte) (ThermalTemp, error) {
	if len(raw) < l.ThermalTemp+4 {
		return ThermalTemp{}, fmt.Errorf("thermal record too short: %d bytes", len(raw))
	}
	sample := ThermalTemp{
		TempMillideg: binary.LittleEndian.Uint32(raw[l.ThermalTemp:]),
	}

	dataLoc := binary.LittleEndian.Uint32(raw[l.ThermalDataLoc:])
	nameOff := int(dataLoc & 0xFFFF)
	if nameOff >= len(raw) {
		return ThermalTemp{}, fmt.Errorf("thermal zone name offset %d outside %d-byte record", nameOff, len(raw))
	}
	// Copy at most CommLen-1 bytes, stopping at the terminator, so the
	// result is always NUL-terminated like a probe-read string.
	name := raw[nameOff:]
	for i := 0; i < len(name) && i < CommLen-1; i++ {
		if name[i] == 0 {
			break
		}
		sample.Zone[i] = name[i]
	}
	return sample, nil
}

// DecodeComm extracts the fixed-size comm buffer at the front of a payload.
func DecodeComm(raw []byte) ([CommLen]byte, error) {
	var comm [CommLen]byte
	if len(raw) < CommLen {
		return comm, fmt.Errorf("comm payload too short: %d bytes", len(raw))
	}
	copy(comm[:], raw[:CommLen])
	return comm, nil
}
