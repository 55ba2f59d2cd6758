// Package serialport implements the serial byte-stream transport a TKey
// client runs over, including discovery of attached devices by their USB
// identity.
package serialport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Defaults matching the device firmware's UART configuration.
const (
	DefaultBaudRate    = 62500
	DefaultReadTimeout = time.Second
)

// ErrClosed is returned for operations on a closed device.
var ErrClosed = errors.New("serial device is closed")

type settings struct {
	baudRate    int
	readTimeout time.Duration
}

// Option configures Open.
type Option func(*settings)

// WithBaudRate overrides the default baud rate.
func WithBaudRate(rate int) Option {
	return func(s *settings) {
		if rate > 0 {
			s.baudRate = rate
		}
	}
}

// WithReadTimeout overrides the default read timeout. Reads return whatever
// arrived (possibly nothing) once the timeout elapses.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.readTimeout = timeout
		}
	}
}

// Device is one open serial connection. Read and Write must not be used
// concurrently; the protocol layer above is strictly half-duplex.
type Device struct {
	name string

	mu   sync.Mutex
	port serial.Port
}

// Open opens the named serial device.
func Open(name string, opts ...Option) (*Device, error) {
	if name == "" {
		return nil, errors.New("serial device name is empty")
	}

	s := settings{
		baudRate:    DefaultBaudRate,
		readTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", name, err)
	}
	if err := port.SetReadTimeout(s.readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}

	return &Device{name: name, port: port}, nil
}

// Name returns the device path this connection was opened with.
func (d *Device) Name() string {
	return d.name
}

// IsOpen reports whether the connection is open.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port != nil
}

// Read reads up to len(p) bytes. On read timeout it returns the bytes
// received so far, possibly zero, with a nil error.
func (d *Device) Read(p []byte) (int, error) {
	port, err := d.currentPort()
	if err != nil {
		return 0, err
	}
	return port.Read(p)
}

// Write writes p to the device.
func (d *Device) Write(p []byte) (int, error) {
	port, err := d.currentPort()
	if err != nil {
		return 0, err
	}
	return port.Write(p)
}

// Close closes the connection. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	return err
}

func (d *Device) currentPort() (serial.Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return nil, ErrClosed
	}
	return d.port, nil
}
