// Package tracepoint defines the kernel trace events the collectors consume
// and the decoding of their raw records. Record field offsets vary per
// hardware target, so decoding is driven by a small constant layout table
// selected at startup instead of duplicating handlers per platform.
package tracepoint

// EventType identifies the originating tracepoint of a raw frame.
type EventType uint16

const (
	// EventSchedSwitch carries the outgoing and incoming entity ids of a
	// scheduler context switch in its payload.
	EventSchedSwitch EventType = iota + 1
	// EventProcessExit carries no payload; the exiting pid comes from the
	// frame's calling context.
	EventProcessExit
	// EventReclaimBegin and EventReclaimEnd bracket a synchronous
	// direct-reclaim stall; the stalled pid comes from the calling context.
	EventReclaimBegin
	EventReclaimEnd
	// EventThermalTemp carries a temperature sample plus a data-loc
	// reference to the zone name in the record's trailing data.
	EventThermalTemp
	// EventProcessExec carries the new process image's comm in its payload;
	// the pid comes from the calling context.
	EventProcessExec
)

// String returns the tracepoint name for logging.
func (t EventType) String() string {
	switch t {
	case EventSchedSwitch:
		return "sched/sched_switch"
	case EventProcessExit:
		return "sched/sched_process_exit"
	case EventReclaimBegin:
		return "vmscan/mm_vmscan_direct_reclaim_begin"
	case EventReclaimEnd:
		return "vmscan/mm_vmscan_direct_reclaim_end"
	case EventThermalTemp:
		return "thermal/thermal_temperature"
	case EventProcessExec:
		return "sched/sched_process_exec"
	default:
		return "unknown"
	}
}

// CommLen is the fixed size of a kernel task comm buffer.
const CommLen = 16

// SchedSwitch is a decoded scheduler context switch.
type SchedSwitch struct {
	PrevPID uint32 // task being switched out
	NextPID uint32 // task being switched in
}

// ThermalTemp is a decoded thermal zone temperature report.
type ThermalTemp struct {
	Zone         [CommLen]byte // NUL-padded zone name
	TempMillideg uint32
}

// ZoneString returns the zone name without NUL padding.
func (t ThermalTemp) ZoneString() string {
	return cstring(t.Zone[:])
}

// cstring interprets b as a NUL-terminated byte string.
func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
