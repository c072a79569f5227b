package tracepoint

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func TestFrameRoundtrip(t *testing.T) {
	frames := []Frame{
		{Type: EventSchedSwitch, CPU: 2, PID: 0, Payload: []byte{1, 2, 3, 4}},
		{Type: EventProcessExit, CPU: 0, PID: 4321},
		{Type: EventThermalTemp, CPU: 1, PID: 0, Payload: bytes.Repeat([]byte{0xAB}, 64)},
	}

	var buf bytes.Buffer
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	for i, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame %d failed: %v", i, err)
		}
		if got.Type != want.Type || got.CPU != want.CPU || got.PID != want.PID {
			t.Errorf("Frame %d header mismatch: got %+v, want %+v", i, got, want)
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("Frame %d payload mismatch", i)
		}
	}

	// A clean frame boundary is a clean EOF.
	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("Expected io.EOF at stream end, got %v", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	WriteFrame(&buf, Frame{Type: EventSchedSwitch, Payload: make([]byte, 32)})
	full := buf.Bytes()

	// Cut inside the header and inside the payload.
	for _, cut := range []int{4, frameHeaderLen + 5} {
		r := bytes.NewReader(full[:cut])
		if _, err := ReadFrame(r); err != io.ErrUnexpectedEOF {
			t.Errorf("Cut at %d: expected io.ErrUnexpectedEOF, got %v", cut, err)
		}
	}
}

func TestReadFrameRejectsHugePayload(t *testing.T) {
	var hdr [frameHeaderLen]byte
	binary.LittleEndian.PutUint16(hdr[0:], uint16(EventProcessExec))
	binary.LittleEndian.PutUint32(hdr[8:], maxFramePayload+1)
	if _, err := ReadFrame(bytes.NewReader(hdr[:])); err == nil {
		t.Error("Expected error for oversized payload length")
	}
}
