package proto

import "errors"

// Codec errors. All of them are detected without touching any transport.
var (
	// ErrInvalidLength indicates a payload longer than its length class, or
	// a length class outside {1, 4, 32, 128}.
	ErrInvalidLength = errors.New("invalid frame length")

	// ErrInvalidFrameID indicates a frame ID outside the 3-bit range [0,7].
	ErrInvalidFrameID = errors.New("frame id out of range")

	// ErrInvalidEndpoint indicates an endpoint outside the 2-bit range [0,3].
	ErrInvalidEndpoint = errors.New("endpoint out of range")

	// ErrInvalidTag indicates a header byte whose tag bits do not carry the
	// protocol version marker.
	ErrInvalidTag = errors.New("invalid protocol tag")

	// ErrMalformedFrame indicates a byte sequence that cannot be a frame:
	// too short, an impossible total size, or a reported length exceeding
	// the payload class.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownCommand indicates a command byte outside the known set.
	ErrUnknownCommand = errors.New("unknown command")
)
