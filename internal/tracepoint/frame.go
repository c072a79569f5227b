package tracepoint

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame is one raw trace record as delivered by the external loader: the
// originating tracepoint, the execution unit it fired on, the calling
// context's pid for events that do not carry ids in their payload, and the
// raw record bytes.
type Frame struct {
	Type    EventType
	CPU     uint16
	PID     uint32
	Payload []byte
}

// frameHeaderLen is the fixed wire header: type u16, cpu u16, pid u32,
// payload length u32, all little-endian.
const frameHeaderLen = 12

// maxFramePayload rejects absurd length fields before allocating.
const maxFramePayload = 1 << 16

// WriteFrame writes f to w in wire format.
func WriteFrame(w io.Writer, f Frame) error {
	var hdr [frameHeaderLen]byte
	binary.LittleEndian.PutUint16(hdr[0:], uint16(f.Type))
	binary.LittleEndian.PutUint16(hdr[2:], f.CPU)
	binary.LittleEndian.PutUint32(hdr[4:], f.PID)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(f.Payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(f.Payload) == 0 {
		return nil
	}
	_, err := w.Write(f.Payload)
	return err
}

// ReadFrame reads one frame from r. It returns io.EOF cleanly at a frame
// boundary and io.ErrUnexpectedEOF for a truncated frame.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Frame{}, io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}

	f := Frame{
		Type: EventType(binary.LittleEndian.Uint16(hdr[0:])),
		CPU:  binary.LittleEndian.Uint16(hdr[2:]),
		PID:  binary.LittleEndian.Uint32(hdr[4:]),
	}
	payloadLen := binary.LittleEndian.Uint32(hdr[8:])
	if payloadLen > maxFramePayload {
		return Frame{}, fmt.Errorf("frame payload length %d exceeds limit", payloadLen)
	}
	if payloadLen > 0 {
		f.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return Frame{}, io.ErrUnexpectedEOF
		}
	}
	return f, nil
}
