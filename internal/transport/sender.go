package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("sender closed")

// Sender delivers one payload line to the robot.
type Sender interface {
	Send(ctx context.Context, payload string) error
	Close() error
}

// WriterSender writes newline-terminated payloads to any io.Writer. If the
// writer is also an io.Closer, Close closes it.
type WriterSender struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewWriterSender wraps w.
func NewWriterSender(w io.Writer) *WriterSender { return &WriterSender{w: w} }

// Send writes payload followed by a newline. The payload itself must not
// contain one.
func (s *WriterSender) Send(ctx context.Context, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(payload, "\r\n") {
		return errors.New("payload must be a single line")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(s.w, payload+"\n"); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Close marks the sender closed and closes the underlying writer when it
// supports it. Repeated calls are no-ops.
func (s *WriterSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SerialSender is a WriterSender bound to an open serial port.
type SerialSender struct {
	*WriterSender
	path string
	opts PortOptions
}

// Open opens the serial device at path with opts.
func Open(path string, opts PortOptions) (*SerialSender, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	norm, _ := opts.Normalize()
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	slog.Info("serial port opened", "path", path, "mode", norm.String())
	return &SerialSender{WriterSender: NewWriterSender(port), path: path, opts: norm}, nil
}

// Path returns the device path.
func (s *SerialSender) Path() string { return s.path }

// Options returns the normalized port options.
func (s *SerialSender) Options() PortOptions { return s.opts }

// Send writes payload to the port and logs it.
func (s *SerialSender) Send(ctx context.Context, payload string) error {
	if err := s.WriterSender.Send(ctx, payload); err != nil {
		return err
	}
	slog.Debug("payload sent", "path", s.path, "bytes", len(payload)+1)
	return nil
}

// ListPorts returns the serial devices known to the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
