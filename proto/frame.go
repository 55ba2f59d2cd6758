package proto

import "fmt"

// Header is the decoded form of the one-byte frame header.
//
// Bit layout:
//
//	[7..6]  tag, fixed protocol version marker
//	[5..3]  frame ID, chosen by the command sender, echoed in the response
//	[2..1]  endpoint number
//	[0]     response flag: 0 = command frame, 1 = response frame
type Header struct {
	FrameID  uint8
	Endpoint uint8
	Response bool
}

// Pack encodes the header into its wire byte.
func (h Header) Pack() (byte, error) {
	if h.FrameID > MaxFrameID {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFrameID, h.FrameID)
	}
	if h.Endpoint > MaxEndpoint {
		return 0, fmt.Errorf("%w: %d", ErrInvalidEndpoint, h.Endpoint)
	}

	b := byte(Tag<<6) | h.FrameID<<3 | h.Endpoint<<1
	if h.Response {
		b |= 0x01
	}
	return b, nil
}

// ParseHeader decodes a frame header byte. Fails with ErrInvalidTag if the
// tag bits do not carry the protocol version marker.
func ParseHeader(b byte) (Header, error) {
	if b>>6 != Tag {
		return Header{}, fmt.Errorf("%w: 0x%02x", ErrInvalidTag, b)
	}

	return Header{
		FrameID:  (b >> 3) & 0x07,
		Endpoint: (b >> 1) & 0x03,
		Response: b&0x01 != 0,
	}, nil
}

// Response is the decoded envelope of a received frame.
//
// Length is the number of significant payload bytes as reported by the
// device; Payload always spans the full length class, zero-padded. For a
// decoded command frame Length equals the class size and Status is OK.
type Response struct {
	FrameID  uint8
	Endpoint uint8
	Command  Command
	Status   byte
	Length   int
	Payload  []byte
}

// CreateFrame builds a command frame:
//
//	[header][command][payload zero-padded to class]
//
// class must be one of the four payload length classes and the payload must
// fit inside it. Pure and deterministic; the input payload is copied.
func CreateFrame(cmd Command, frameID, endpoint uint8, class int, payload []byte) ([]byte, error) {
	if !ValidClass(class) {
		return nil, fmt.Errorf("%w: no length class of %d bytes", ErrInvalidLength, class)
	}
	if len(payload) > class {
		return nil, fmt.Errorf("%w: %d byte payload exceeds class of %d bytes",
			ErrInvalidLength, len(payload), class)
	}

	hdr, err := Header{FrameID: frameID, Endpoint: endpoint}.Pack()
	if err != nil {
		return nil, err
	}

	frame := make([]byte, CommandFrameOverhead+class)
	frame[0] = hdr
	frame[1] = cmd.Code
	copy(frame[CommandFrameOverhead:], payload)

	return frame, nil
}

// CreateResponseFrame builds a response frame as the device would:
//
//	[header][command][status][length][payload zero-padded to class]
//
// The length field is set to len(data). Used by tests and device simulators;
// a host client only parses these.
func CreateResponseFrame(cmd Command, frameID, endpoint uint8, status byte, data []byte) ([]byte, error) {
	if len(data) > cmd.Class {
		return nil, fmt.Errorf("%w: %d byte payload exceeds class of %d bytes",
			ErrInvalidLength, len(data), cmd.Class)
	}

	hdr, err := Header{FrameID: frameID, Endpoint: endpoint, Response: true}.Pack()
	if err != nil {
		return nil, err
	}

	frame := make([]byte, ResponseFrameOverhead+cmd.Class)
	frame[0] = hdr
	frame[1] = cmd.Code
	frame[2] = status
	frame[3] = byte(len(data))
	copy(frame[ResponseFrameOverhead:], data)

	return frame, nil
}

// ParseFrame decodes a byte sequence into a Response envelope. It accepts
// both frame shapes: command frames (response flag clear) and response
// frames (flag set, with status and length fields). The length class is
// recovered from the total frame size.
func ParseFrame(buf []byte) (*Response, error) {
	if len(buf) < CommandFrameOverhead+ClassByte {
		return nil, fmt.Errorf("%w: %d bytes is shorter than any frame", ErrMalformedFrame, len(buf))
	}

	hdr, err := ParseHeader(buf[0])
	if err != nil {
		return nil, err
	}

	cmd, ok := CommandByCode(buf[1])
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownCommand, buf[1])
	}

	overhead := CommandFrameOverhead
	if hdr.Response {
		overhead = ResponseFrameOverhead
	}

	class := len(buf) - overhead
	if !ValidClass(class) {
		return nil, fmt.Errorf("%w: %d bytes does not match any length class", ErrMalformedFrame, len(buf))
	}

	resp := &Response{
		FrameID:  hdr.FrameID,
		Endpoint: hdr.Endpoint,
		Command:  cmd,
		Status:   StatusOK,
		Length:   class,
		Payload:  buf[overhead:],
	}

	if hdr.Response {
		resp.Status = buf[2]
		resp.Length = int(buf[3])
		if resp.Length > class {
			return nil, fmt.Errorf("%w: reported length %d exceeds %d byte class",
				ErrMalformedFrame, resp.Length, class)
		}
	}

	return resp, nil
}
