package tkey

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/blake2s"

	"github.com/mchack-dev/go-tkey/proto"
)

// chunkSize is the image bytes carried per LOAD_APP_DATA frame: the largest
// payload length class. A protocol constant, not tunable.
const chunkSize = proto.ClassLong

// loadState is a state of the application-load transfer machine.
type loadState int

const (
	stateIdle loadState = iota
	stateSizeNegotiated
	stateSecretSent
	stateStreaming
	stateCompleted
	stateFailed
)

func (s loadState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSizeNegotiated:
		return "size_negotiated"
	case stateSecretSent:
		return "secret_sent"
	case stateStreaming:
		return "streaming"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	}
	return fmt.Sprintf("loadState(%d)", int(s))
}

// loader holds the state of one application load. It is created per call
// and discarded on completion or failure; nothing survives across loads.
type loader struct {
	client *TKey
	image  []byte
	secret []byte

	state        loadState
	offset       int
	chunksAcked  int
	totalChunks  int
	started      time.Time
	deviceDigest []byte
}

// LoadApp uploads an application image to the device, optionally mixing in
// a user-supplied secret. The sequence is: size negotiation, optional
// secret delivery, then 128-byte data chunks each acknowledged before the
// next is sent. The final chunk is marked with the configured final-chunk
// command and its response carries the device's BLAKE2s digest of the
// received image, which is verified against a locally computed one.
//
// Size and secret limits are validated before any bytes are written. A
// failure at any point aborts the transfer; the device-side state after a
// partial load is undefined until the next load negotiation resets it.
func (t *TKey) LoadApp(image []byte, secret []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("load_app: empty application image")
	}
	if len(image) > t.config.MaxAppSize {
		return fmt.Errorf("load_app: image is %d bytes (max %d): %w",
			len(image), t.config.MaxAppSize, ErrAppTooLarge)
	}
	if len(secret) > MaxSecretSize {
		return fmt.Errorf("load_app: secret is %d bytes (max %d): %w",
			len(secret), MaxSecretSize, ErrSecretTooLong)
	}

	l := &loader{
		client:      t,
		image:       image,
		secret:      secret,
		state:       stateIdle,
		totalChunks: (len(image) + chunkSize - 1) / chunkSize,
		started:     time.Now(),
	}

	if err := l.run(); err != nil {
		return err
	}

	t.logInfo("application loaded", "bytes", len(image), "chunks", l.totalChunks,
		"elapsed", time.Since(l.started).String())

	return nil
}

// LoadAppFile reads an application image from the filesystem and loads it
// onto the device.
func (t *TKey) LoadAppFile(path string, secret []byte) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load_app: %w", err)
	}
	return t.LoadApp(image, secret)
}

// run drives the state machine to completion. Any step error moves the
// machine to stateFailed and aborts.
func (l *loader) run() error {
	for l.state != stateCompleted {
		if err := l.step(); err != nil {
			l.state = stateFailed
			return err
		}
	}
	return l.verifyDigest()
}

// step performs the single transition out of the current state.
func (l *loader) step() error {
	switch l.state {
	case stateIdle:
		return l.negotiateSize()
	case stateSizeNegotiated:
		if len(l.secret) > 0 {
			return l.sendSecret()
		}
		l.state = stateStreaming
		return nil
	case stateSecretSent:
		l.state = stateStreaming
		return nil
	case stateStreaming:
		return l.sendNextChunk()
	default:
		return fmt.Errorf("load_app: no transition out of state %s", l.state)
	}
}

// negotiateSize announces the total image size and whether a secret will
// follow.
func (l *loader) negotiateSize() error {
	payload := make([]byte, 5)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(len(l.image)))
	if len(l.secret) > 0 {
		payload[4] = 1
	}

	resp, err := l.client.sendCommand(proto.CmdLoadApp, proto.EndpointFirmware, payload)
	if err != nil {
		return err
	}
	if resp.Status != proto.StatusOK {
		return fmt.Errorf("load_app: %w (status 0x%02x)", ErrRejected, resp.Status)
	}

	l.state = stateSizeNegotiated
	l.report(PhaseNegotiating)

	return nil
}

// sendSecret delivers the user-supplied secret in its own frame.
func (l *loader) sendSecret() error {
	resp, err := l.client.sendCommand(proto.CmdLoadAppUSS, proto.EndpointFirmware, l.secret)
	if err != nil {
		return err
	}
	if resp.Status != proto.StatusOK {
		return fmt.Errorf("load_app: secret: %w (status 0x%02x)", ErrRejected, resp.Status)
	}

	l.state = stateSecretSent
	l.report(PhaseSecret)

	return nil
}

// sendNextChunk sends one data chunk and waits for its acknowledgment. The
// final chunk uses the configured final-chunk command; its response carries
// the device-side image digest.
func (l *loader) sendNextChunk() error {
	remaining := l.image[l.offset:]
	n := len(remaining)
	if n > chunkSize {
		n = chunkSize
	}
	last := l.offset+n == len(l.image)

	cmd := proto.CmdLoadAppData
	if last {
		cmd = l.client.config.FinalChunkCmd
	}

	resp, err := l.client.sendCommand(cmd, proto.EndpointFirmware, remaining[:n])
	if err != nil {
		return err
	}
	if resp.Status != proto.StatusOK {
		return fmt.Errorf("load_app: chunk %d/%d: %w (status 0x%02x)",
			l.chunksAcked+1, l.totalChunks, ErrChunkRejected, resp.Status)
	}

	l.offset += n
	l.chunksAcked++

	if last {
		if resp.Length != blake2s.Size {
			return fmt.Errorf("%w: final chunk response carried %d digest bytes, want %d",
				ErrProtocol, resp.Length, blake2s.Size)
		}
		l.deviceDigest = append([]byte(nil), resp.Payload[:blake2s.Size]...)
		l.state = stateCompleted
		l.report(PhaseComplete)
		return nil
	}

	l.report(PhaseStreaming)
	return nil
}

// verifyDigest compares the device-reported digest of the received image
// with a locally computed BLAKE2s digest.
func (l *loader) verifyDigest() error {
	sum := blake2s.Sum256(l.image)
	if !bytes.Equal(sum[:], l.deviceDigest) {
		return &DigestMismatchError{Want: sum[:], Got: l.deviceDigest}
	}
	return nil
}

func (l *loader) report(phase string) {
	if l.client.config.ProgressCallback == nil {
		return
	}
	l.client.config.ProgressCallback(Progress{
		Phase:        phase,
		CurrentChunk: l.chunksAcked,
		TotalChunks:  l.totalChunks,
		BytesSent:    l.offset,
		Elapsed:      time.Since(l.started),
	})
}
