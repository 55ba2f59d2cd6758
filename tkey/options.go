package tkey

import (
	"io"
	"time"

	"github.com/mchack-dev/go-tkey/proto"
)

// Defaults for serial communication and application loading.
const (
	// DefaultSpeed is the serial baud rate the device firmware expects.
	DefaultSpeed = 62500

	// DefaultTimeout is the serial read timeout.
	DefaultTimeout = time.Second

	// DefaultMaxAppSize is the largest application image accepted by the
	// observed firmware. Firmware versions may differ, so it is
	// configuration, not a protocol constant.
	DefaultMaxAppSize = 100 * 1024

	// MaxSecretSize is the largest user-supplied secret the load protocol
	// can carry.
	MaxSecretSize = 32
)

// Config holds the client configuration.
type Config struct {
	// Speed is the serial baud rate, used when the client opens the port
	// itself (Open, Run).
	Speed int

	// Timeout is the serial read timeout, used when the client opens the
	// port itself.
	Timeout time.Duration

	// MaxAppSize is the largest accepted application image in bytes.
	MaxAppSize int

	// FinalChunkCmd is the command used to mark the last data chunk of an
	// application load. The exact code depends on the firmware version.
	FinalChunkCmd proto.Command

	// Logger is used for operational logging (optional)
	Logger Logger

	// Trace receives a rendering of every frame sent and received (optional)
	Trace io.Writer

	// ProgressCallback is called during application loading (optional)
	ProgressCallback ProgressCallback
}

func defaultConfig() Config {
	return Config{
		Speed:         DefaultSpeed,
		Timeout:       DefaultTimeout,
		MaxAppSize:    DefaultMaxAppSize,
		FinalChunkCmd: proto.CmdLoadAppDataLast,
	}
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithSpeed sets the serial baud rate used by Open and Run.
func WithSpeed(speed int) Option {
	return func(c *Config) {
		if speed > 0 {
			c.Speed = speed
		}
	}
}

// WithTimeout sets the serial read timeout used by Open and Run.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithMaxAppSize overrides the maximum accepted application image size.
func WithMaxAppSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.MaxAppSize = size
		}
	}
}

// WithFinalChunkCommand overrides the command used to mark the final data
// chunk of an application load.
func WithFinalChunkCommand(cmd proto.Command) Option {
	return func(c *Config) {
		c.FinalChunkCmd = cmd
	}
}

// WithLogger sets a logger for client operations.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithFrameTrace writes a byte/bit/hex rendering of every frame exchanged
// with the device to w. Diagnostic output only.
func WithFrameTrace(w io.Writer) Option {
	return func(c *Config) {
		c.Trace = w
	}
}

// WithProgressCallback sets a callback to track application load progress.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// Load phases reported through ProgressCallback.
const (
	PhaseNegotiating = "negotiating"
	PhaseSecret      = "secret"
	PhaseStreaming   = "streaming"
	PhaseComplete    = "complete"
)

// Progress describes the state of an application load operation.
type Progress struct {
	// Phase is one of the Phase* constants
	Phase string

	// CurrentChunk is the number of chunks acknowledged so far
	CurrentChunk int

	// TotalChunks is the total number of data chunks for this image
	TotalChunks int

	// BytesSent is the number of image bytes delivered so far
	BytesSent int

	// Elapsed is the time since the load started
	Elapsed time.Duration
}

// ProgressCallback is called after each acknowledged protocol step during an
// application load. Implementations should return quickly; the next frame is
// not sent until the callback returns.
type ProgressCallback func(Progress)

// Logger is an optional logging interface, letting the client integrate with
// any logging framework.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
