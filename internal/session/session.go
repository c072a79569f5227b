// Package session owns the dispatch side of the pipeline: it reads raw
// trace frames from one or more sources and feeds them to the frame
// handler. Program loading and tracepoint attachment live in the external
// loader; a source here is just a stream of frames the loader produces.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"edgetrace/internal/logger"
	"edgetrace/internal/tracepoint"
)

// FrameHandler consumes decoded frames. HandleFrame must not block.
type FrameHandler interface {
	HandleFrame(f tracepoint.Frame) error
}

// Source delivers raw frames. Read blocks until a frame is available and
// returns io.EOF when the source is exhausted.
type Source interface {
	Name() string
	Read() (tracepoint.Frame, error)
	Close() error
}

// ReaderSource reads length-prefixed frames from an io.Reader, typically
// the loader's pipe.
type ReaderSource struct {
	name string
	r    *bufio.Reader
	c    io.Closer
}

// NewReaderSource wraps r as a frame source. If r is also an io.Closer it
// is closed when the source closes.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	src := &ReaderSource{name: name, r: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		src.c = c
	}
	return src
}

// OpenPipe opens the loader pipe at path as a frame source.
func OpenPipe(path string) (*ReaderSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace pipe %s: %w", path, err)
	}
	return NewReaderSource(path, f), nil
}

func (s *ReaderSource) Name() string {
	return s.name
}

func (s *ReaderSource) Read() (tracepoint.Frame, error) {
	return tracepoint.ReadFrame(s.r)
}

func (s *ReaderSource) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}

// Manager runs one dispatch loop per source and stops them together.
type Manager struct {
	handler FrameHandler
	sources []Source
	log     log.Logger

	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewManager creates a session manager feeding handler.
func NewManager(handler FrameHandler) *Manager {
	return &Manager{
		handler: handler,
		log:     logger.GetSessionLogger(),
	}
}

// AddSource registers a source. Must be called before Start.
func (m *Manager) AddSource(src Source) {
	m.sources = append(m.sources, src)
}

// Start launches the dispatch loops. It returns immediately; use Wait or
// Stop for teardown.
func (m *Manager) Start(ctx context.Context) error {
	if len(m.sources) == 0 {
		return errors.New("session: no sources registered")
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.group, ctx = errgroup.WithContext(ctx)

	for _, src := range m.sources {
		m.group.Go(func() error {
			defer src.Close()
			m.log.Info().Str("source", src.Name()).Msg("dispatch loop started")
			return m.dispatch(ctx, src)
		})
	}
	return nil
}

// dispatch pumps frames from one source until EOF or cancellation.
func (m *Manager) dispatch(ctx context.Context, src Source) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		frame, err := src.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				m.log.Info().Str("source", src.Name()).Msg("source drained")
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				m.log.Warn().Str("source", src.Name()).Msg("source truncated mid-frame")
				return nil
			}
			// Reads racing Close surface as file-already-closed.
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("session: read from %s: %w", src.Name(), err)
		}
		if err := m.handler.HandleFrame(frame); err != nil {
			m.log.Warn().Str("source", src.Name()).Err(err).Msg("frame handler error")
		}
	}
}

// Wait blocks until all dispatch loops finish.
func (m *Manager) Wait() error {
	if m.group == nil {
		return nil
	}
	return m.group.Wait()
}

// Stop cancels the dispatch loops, closes the sources to unblock pending
// reads, and waits for the loops to exit.
func (m *Manager) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}
	for _, src := range m.sources {
		src.Close()
	}
	return m.Wait()
}
