package session

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"edgetrace/internal/tracepoint"
)

type countingHandler struct {
	mu     sync.Mutex
	frames []tracepoint.Frame
}

func (c *countingHandler) HandleFrame(f tracepoint.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *countingHandler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestManagerDispatchesFrames(t *testing.T) {
	var buf bytes.Buffer
	want := []tracepoint.Frame{
		{Type: tracepoint.EventProcessExit, PID: 10},
		{Type: tracepoint.EventReclaimBegin, PID: 20},
		{Type: tracepoint.EventReclaimEnd, PID: 20},
	}
	for _, f := range want {
		if err := tracepoint.WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	handler := &countingHandler{}
	m := NewManager(handler)
	m.AddSource(NewReaderSource("test", &buf))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if handler.count() != len(want) {
		t.Fatalf("Expected %d frames, got %d", len(want), handler.count())
	}
	for i, f := range handler.frames {
		if f.Type != want[i].Type || f.PID != want[i].PID {
			t.Errorf("Frame %d: got %+v, want %+v", i, f, want[i])
		}
	}
}

func TestManagerTruncatedSource(t *testing.T) {
	var buf bytes.Buffer
	tracepoint.WriteFrame(&buf, tracepoint.Frame{Type: tracepoint.EventProcessExit, PID: 1})
	full := buf.Bytes()

	// Cut the stream mid-frame; the loop warns and exits clean.
	r := bytes.NewReader(full[:len(full)-2])
	handler := &countingHandler{}
	m := NewManager(handler)
	m.AddSource(NewReaderSource("truncated", r))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Wait(); err != nil {
		t.Errorf("Truncated source should not fail the session: %v", err)
	}
	if handler.count() != 0 {
		t.Errorf("Expected no complete frames, got %d", handler.count())
	}
}

func TestManagerRequiresSources(t *testing.T) {
	m := NewManager(&countingHandler{})
	if err := m.Start(context.Background()); err == nil {
		t.Error("Start with no sources should fail")
	}
}

func TestManagerStop(t *testing.T) {
	// A source blocked in Read forever; Stop must unblock it via Close.
	pr, pw := io.Pipe()
	defer pw.Close()

	m := NewManager(&countingHandler{})
	m.AddSource(NewReaderSource("pipe", pr))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not unblock the dispatch loop")
	}
}
