package tkey

import (
	"errors"
	"fmt"
)

// Client and loader errors. Validation errors (ErrAppTooLarge,
// ErrSecretTooLong) are raised before any bytes reach the transport.
var (
	// ErrNotConnected indicates the transport is not open.
	ErrNotConnected = errors.New("transport is not open")

	// ErrTimeout indicates the device sent no (or not enough) response data
	// within the transport's read timeout.
	ErrTimeout = errors.New("timeout waiting for device response")

	// ErrProtocol indicates a response that violates the framing contract:
	// frame ID or endpoint mismatch, or an unexpected command echo.
	ErrProtocol = errors.New("protocol violation")

	// ErrCommandFailed indicates the device reported NOK for a command.
	ErrCommandFailed = errors.New("device rejected command")

	// ErrRejected indicates the device refused to start an application load.
	ErrRejected = errors.New("device rejected application load")

	// ErrChunkRejected indicates the device reported NOK for a data chunk
	// mid-transfer. No further chunks are sent.
	ErrChunkRejected = errors.New("device rejected application data chunk")

	// ErrAppTooLarge indicates an application image over the configured
	// maximum size.
	ErrAppTooLarge = errors.New("application image exceeds maximum size")

	// ErrSecretTooLong indicates a user-supplied secret over MaxSecretSize.
	ErrSecretTooLong = errors.New("user-supplied secret exceeds maximum size")

	// ErrDigestMismatch indicates the device received an image whose digest
	// differs from the local one.
	ErrDigestMismatch = errors.New("application digest mismatch")
)

// FrameMismatchError reports a response whose header does not correlate with
// the request that produced it.
type FrameMismatchError struct {
	Field string
	Want  uint8
	Got   uint8
}

func (e *FrameMismatchError) Error() string {
	return fmt.Sprintf("response %s mismatch: sent %d, got %d", e.Field, e.Want, e.Got)
}

func (e *FrameMismatchError) Unwrap() error { return ErrProtocol }

// DigestMismatchError reports differing local and device-side image digests.
type DigestMismatchError struct {
	Want []byte
	Got  []byte
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("digest mismatch: local %x, device %x", e.Want, e.Got)
}

func (e *DigestMismatchError) Unwrap() error { return ErrDigestMismatch }
