// Package events routes raw trace frames to the registered collectors.
// Routing is the hot path: one timestamp read per frame, one decode, then
// fan-out to the handlers for that event family.
package events

import (
	"sync/atomic"
	"time"

	"github.com/phuslu/log"

	"edgetrace/internal/logger"
	"edgetrace/internal/tracepoint"
)

// SchedEventHandler consumes scheduler events.
type SchedEventHandler interface {
	HandleSchedSwitch(sw tracepoint.SchedSwitch, now uint64) error
	HandleProcessExit(pid uint32, now uint64) error
}

// MemoryEventHandler consumes direct-reclaim events.
type MemoryEventHandler interface {
	HandleReclaimBegin(pid uint32, now uint64) error
	HandleReclaimEnd(pid uint32, now uint64) error
}

// ThermalEventHandler consumes raw thermal records; decoding stays with the
// handler because the zone name lives in variable-length trailing data.
type ThermalEventHandler interface {
	HandleThermalTemp(raw []byte) error
}

// ProcessEventHandler consumes process-exec events.
type ProcessEventHandler interface {
	HandleProcessExec(pid uint32, comm [tracepoint.CommLen]byte) error
}

// monotonicBase anchors the monotonic clock used to timestamp frames.
var monotonicBase = time.Now()

func monotonicNow() uint64 {
	return uint64(time.Since(monotonicBase))
}

// Handler decodes frames with the configured record layout and dispatches
// them. A malformed frame is counted and dropped; it never fails the
// dispatch loop (the event source has no error channel to speak of).
type Handler struct {
	layout tracepoint.Layout
	log    log.Logger

	// Clock supplies the shared per-frame timestamp in nanoseconds.
	// Overridable in tests; defaults to a process-monotonic clock.
	Clock func() uint64

	schedHandlers   []SchedEventHandler
	memoryHandlers  []MemoryEventHandler
	thermalHandlers []ThermalEventHandler
	processHandlers []ProcessEventHandler

	malformed atomic.Uint64
}

// NewHandler creates a frame router for the given record layout.
func NewHandler(layout tracepoint.Layout) *Handler {
	return &Handler{
		layout: layout,
		log:    logger.GetEventLogger(),
		Clock:  monotonicNow,
	}
}

// RegisterSchedHandler adds a scheduler event consumer.
func (h *Handler) RegisterSchedHandler(handler SchedEventHandler) {
	h.schedHandlers = append(h.schedHandlers, handler)
}

// RegisterMemoryHandler adds a reclaim event consumer.
func (h *Handler) RegisterMemoryHandler(handler MemoryEventHandler) {
	h.memoryHandlers = append(h.memoryHandlers, handler)
}

// RegisterThermalHandler adds a thermal event consumer.
func (h *Handler) RegisterThermalHandler(handler ThermalEventHandler) {
	h.thermalHandlers = append(h.thermalHandlers, handler)
}

// RegisterProcessHandler adds an exec event consumer.
func (h *Handler) RegisterProcessHandler(handler ProcessEventHandler) {
	h.processHandlers = append(h.processHandlers, handler)
}

// Malformed returns how many frames failed to decode.
func (h *Handler) Malformed() uint64 {
	return h.malformed.Load()
}

// HandleFrame routes one raw frame. It always reports success to the
// dispatch loop; decode failures are counted, handler errors are logged.
func (h *Handler) HandleFrame(f tracepoint.Frame) error {
	switch f.Type {
	case tracepoint.EventSchedSwitch:
		sw, err := h.layout.DecodeSchedSwitch(f.Payload)
		if err != nil {
			h.dropMalformed(f, err)
			return nil
		}
		// One timestamp for both sides of the switch: the end of the
		// outgoing interval and the begin of the incoming one coincide.
		now := h.Clock()
		for _, handler := range h.schedHandlers {
			h.logHandlerErr(f, handler.HandleSchedSwitch(sw, now))
		}

	case tracepoint.EventProcessExit:
		now := h.Clock()
		for _, handler := range h.schedHandlers {
			h.logHandlerErr(f, handler.HandleProcessExit(f.PID, now))
		}

	case tracepoint.EventReclaimBegin:
		now := h.Clock()
		for _, handler := range h.memoryHandlers {
			h.logHandlerErr(f, handler.HandleReclaimBegin(f.PID, now))
		}

	case tracepoint.EventReclaimEnd:
		now := h.Clock()
		for _, handler := range h.memoryHandlers {
			h.logHandlerErr(f, handler.HandleReclaimEnd(f.PID, now))
		}

	case tracepoint.EventThermalTemp:
		for _, handler := range h.thermalHandlers {
			if err := handler.HandleThermalTemp(f.Payload); err != nil {
				h.dropMalformed(f, err)
			}
		}

	case tracepoint.EventProcessExec:
		comm, err := tracepoint.DecodeComm(f.Payload)
		if err != nil {
			h.dropMalformed(f, err)
			return nil
		}
		for _, handler := range h.processHandlers {
			h.logHandlerErr(f, handler.HandleProcessExec(f.PID, comm))
		}

	default:
		h.dropMalformed(f, nil)
	}
	return nil
}

func (h *Handler) dropMalformed(f tracepoint.Frame, err error) {
	h.malformed.Add(1)
	h.log.Debug().
		Str("event", f.Type.String()).
		Uint16("cpu", f.CPU).
		Err(err).
		Msg("dropped malformed frame")
}

func (h *Handler) logHandlerErr(f tracepoint.Frame, err error) {
	if err != nil {
		h.log.Warn().Str("event", f.Type.String()).Err(err).Msg("handler error")
	}
}
