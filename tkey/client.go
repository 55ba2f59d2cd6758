package tkey

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/mchack-dev/go-tkey/proto"
	"github.com/mchack-dev/go-tkey/serialport"
)

// Port is the byte-stream transport the client runs over. Read is expected
// to return fewer bytes than requested (possibly zero) once the transport's
// read timeout elapses.
//
// A Port must not be driven by more than one in-flight command at a time;
// the protocol is strictly half-duplex and the client holds no lock.
type Port interface {
	io.ReadWriter

	// IsOpen reports whether the transport is usable.
	IsOpen() bool
}

// TKey is a client for one device connection. It drives complete
// command/response cycles over the Port: one write, one blocking read, with
// the 3-bit frame ID correlating each response to its request.
//
// A TKey is not safe for concurrent use.
type TKey struct {
	port    Port
	config  Config
	frameID uint8
}

// New creates a client on an already-open transport.
//
// Example:
//
//	dev, err := serialport.Open("/dev/ttyACM0")
//	...
//	tk := tkey.New(dev, tkey.WithLogger(logger))
func New(port Port, opts ...Option) *TKey {
	if port == nil {
		panic("port cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &TKey{
		port:   port,
		config: cfg,
	}
}

// Open opens the named serial device and returns a client that owns the
// connection. Close releases it.
func Open(portName string, opts ...Option) (*TKey, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	dev, err := serialport.Open(portName,
		serialport.WithBaudRate(cfg.Speed),
		serialport.WithReadTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}

	return &TKey{port: dev, config: cfg}, nil
}

// Run opens the named serial device, calls fn with a connected client, and
// closes the device on every exit path.
//
// Example:
//
//	err := tkey.Run("/dev/ttyACM0", func(tk *tkey.TKey) error {
//	    udi, err := tk.GetUDIString()
//	    ...
//	})
func Run(portName string, fn func(*TKey) error, opts ...Option) error {
	tk, err := Open(portName, opts...)
	if err != nil {
		return err
	}
	defer func() {
		_ = tk.Close()
	}()

	return fn(tk)
}

// Close releases the underlying transport if the client can close it.
func (t *TKey) Close() error {
	if closer, ok := t.port.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Test reports whether the transport is open and usable.
func (t *TKey) Test() bool {
	return t.port.IsOpen()
}

// GetNameVersion retrieves the firmware name and version of the device. The
// name comes as two 4-byte ASCII fields, the version as a 32-bit integer.
func (t *TKey) GetNameVersion() (name0, name1 string, version uint32, err error) {
	resp, err := t.sendCommand(proto.CmdNameVersion, proto.EndpointFirmware, nil)
	if err != nil {
		return "", "", 0, err
	}
	if resp.Status != proto.StatusOK {
		return "", "", 0, fmt.Errorf("name_version: %w (status 0x%02x)", ErrCommandFailed, resp.Status)
	}
	if resp.Length < 12 {
		return "", "", 0, fmt.Errorf("%w: name_version response reported %d bytes, want 12",
			ErrProtocol, resp.Length)
	}

	data := resp.Payload
	name0 = strings.TrimRight(string(data[0:4]), "\x00 ")
	name1 = strings.TrimRight(string(data[4:8]), "\x00 ")
	version = binary.LittleEndian.Uint32(data[8:12])

	return name0, name1, version, nil
}

// sendCommand performs one complete request/response cycle: build the frame
// with a fresh frame ID, write it, read exactly one response of the class
// mirrored from the request, and validate the correlation fields. The
// response status is NOT checked here; callers decide how a NOK maps into
// their error taxonomy.
func (t *TKey) sendCommand(cmd proto.Command, endpoint uint8, data []byte) (*proto.Response, error) {
	if !t.port.IsOpen() {
		return nil, fmt.Errorf("%s: %w", cmd.Name, ErrNotConnected)
	}

	fid := t.nextFrameID()

	frame, err := proto.CreateFrame(cmd, fid, endpoint, cmd.Class, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name, err)
	}

	t.trace(frame, proto.CommandMarks(frame))
	t.logDebug("sending command", "cmd", cmd.Name, "frame_id", fid, "bytes", len(frame))

	if err := t.writeFull(frame); err != nil {
		return nil, fmt.Errorf("write %s: %w", cmd.Name, err)
	}

	return t.readResponse(cmd, fid, endpoint)
}

// readResponse reads one response frame for the given command and validates
// it against the request's frame ID and endpoint.
func (t *TKey) readResponse(cmd proto.Command, fid, endpoint uint8) (*proto.Response, error) {
	buf := make([]byte, proto.ResponseFrameOverhead+cmd.Class)
	if err := t.readFull(buf); err != nil {
		return nil, fmt.Errorf("read %s response: %w", cmd.Name, err)
	}

	t.trace(buf, proto.ResponseMarks(buf))

	resp, err := proto.ParseFrame(buf)
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", cmd.Name, err)
	}

	if resp.FrameID != fid {
		return nil, &FrameMismatchError{Field: "frame id", Want: fid, Got: resp.FrameID}
	}
	if resp.Endpoint != endpoint {
		return nil, &FrameMismatchError{Field: "endpoint", Want: endpoint, Got: resp.Endpoint}
	}
	if resp.Command.Code != cmd.Code {
		return nil, fmt.Errorf("%w: sent %s, response echoes %s",
			ErrProtocol, cmd.Name, resp.Command.Name)
	}

	t.logDebug("received response", "cmd", cmd.Name, "frame_id", fid,
		"status", resp.Status, "length", resp.Length)

	return resp, nil
}

// nextFrameID returns the current frame ID and advances the 3-bit sequence.
func (t *TKey) nextFrameID() uint8 {
	fid := t.frameID
	t.frameID = (t.frameID + 1) & proto.MaxFrameID
	return fid
}

// readFull fills buf from the transport. A zero-byte read means the
// transport timed out with the response still incomplete.
func (t *TKey) readFull(buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := t.port.Read(buf[read:])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("short read (%d of %d bytes): %w", read, len(buf), ErrTimeout)
		}
		read += n
	}
	return nil
}

func (t *TKey) writeFull(buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := t.port.Write(buf[written:])
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}

func (t *TKey) trace(frame []byte, marks map[int]string) {
	if t.config.Trace != nil {
		fmt.Fprint(t.config.Trace, proto.Dump(frame, marks))
	}
}

func (t *TKey) logDebug(msg string, keysAndValues ...interface{}) {
	if t.config.Logger != nil {
		t.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (t *TKey) logInfo(msg string, keysAndValues ...interface{}) {
	if t.config.Logger != nil {
		t.config.Logger.Info(msg, keysAndValues...)
	}
}
