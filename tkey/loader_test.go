package tkey

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/blake2s"

	"github.com/mchack-dev/go-tkey/proto"
)

func testImage(size int) []byte {
	image := make([]byte, size)
	for i := range image {
		image[i] = byte(i)
	}
	return image
}

// queueLoadResponses queues the full happy-path response sequence for
// LoadApp on a fresh client: size negotiation, optional secret ack, one ack
// per chunk, and the device digest on the final chunk.
func queueLoadResponses(t *testing.T, port *mockPort, image, secret []byte) {
	t.Helper()

	fid := uint8(0)
	next := func() uint8 {
		cur := fid
		fid = (fid + 1) & proto.MaxFrameID
		return cur
	}

	port.queueResponse(t, proto.CmdLoadApp, next(), proto.StatusOK, nil)
	if len(secret) > 0 {
		port.queueResponse(t, proto.CmdLoadAppUSS, next(), proto.StatusOK, nil)
	}

	digest := blake2s.Sum256(image)
	for sent := 0; sent < len(image); {
		n := len(image) - sent
		if n > chunkSize {
			n = chunkSize
		}
		sent += n

		if sent == len(image) {
			port.queueResponse(t, proto.CmdLoadAppDataLast, next(), proto.StatusOK, digest[:])
		} else {
			port.queueResponse(t, proto.CmdLoadAppData, next(), proto.StatusOK, nil)
		}
	}
}

func TestLoadApp(t *testing.T) {
	tests := []struct {
		name       string
		imageSize  int
		secret     []byte
		wantWrites int
	}{
		{"single partial chunk", 5, nil, 2},
		{"exactly one chunk", chunkSize, nil, 2},
		{"multiple chunks with tail", 300, nil, 4},
		{"with secret", 300, []byte("supersecret"), 5},
		{"frame id space wraps", chunkSize * 10, nil, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image := testImage(tt.imageSize)
			port := newMockPort()
			queueLoadResponses(t, port, image, tt.secret)

			tk := New(port)
			if err := tk.LoadApp(image, tt.secret); err != nil {
				t.Fatalf("LoadApp(): %v", err)
			}

			if len(port.writes) != tt.wantWrites {
				t.Errorf("wrote %d frames, want %d", len(port.writes), tt.wantWrites)
			}

			last := port.writes[len(port.writes)-1]
			if last[1] != proto.CmdLoadAppDataLast.Code {
				t.Errorf("final chunk command = 0x%02x, want 0x%02x",
					last[1], proto.CmdLoadAppDataLast.Code)
			}
		})
	}
}

func TestLoadAppSizeBoundary(t *testing.T) {
	const maxSize = 2 * chunkSize

	t.Run("exactly max succeeds", func(t *testing.T) {
		image := testImage(maxSize)
		port := newMockPort()
		queueLoadResponses(t, port, image, nil)

		tk := New(port, WithMaxAppSize(maxSize))
		if err := tk.LoadApp(image, nil); err != nil {
			t.Fatalf("LoadApp(): %v", err)
		}
	})

	t.Run("one byte over fails before any write", func(t *testing.T) {
		port := newMockPort()
		tk := New(port, WithMaxAppSize(maxSize))

		err := tk.LoadApp(testImage(maxSize+1), nil)
		if !errors.Is(err, ErrAppTooLarge) {
			t.Fatalf("LoadApp() error = %v, want ErrAppTooLarge", err)
		}
		if len(port.writes) != 0 {
			t.Errorf("wrote %d frames, want 0", len(port.writes))
		}
	})
}

func TestLoadAppSecretBoundary(t *testing.T) {
	t.Run("32 byte secret succeeds", func(t *testing.T) {
		image := testImage(10)
		secret := testImage(MaxSecretSize)
		port := newMockPort()
		queueLoadResponses(t, port, image, secret)

		tk := New(port)
		if err := tk.LoadApp(image, secret); err != nil {
			t.Fatalf("LoadApp(): %v", err)
		}
		if port.writes[1][1] != proto.CmdLoadAppUSS.Code {
			t.Errorf("second frame command = 0x%02x, want 0x%02x",
				port.writes[1][1], proto.CmdLoadAppUSS.Code)
		}
	})

	t.Run("33 byte secret fails before any write", func(t *testing.T) {
		port := newMockPort()
		tk := New(port)

		err := tk.LoadApp(testImage(10), testImage(MaxSecretSize+1))
		if !errors.Is(err, ErrSecretTooLong) {
			t.Fatalf("LoadApp() error = %v, want ErrSecretTooLong", err)
		}
		if len(port.writes) != 0 {
			t.Errorf("wrote %d frames, want 0", len(port.writes))
		}
	})
}

func TestLoadAppEmptyImage(t *testing.T) {
	port := newMockPort()
	tk := New(port)

	if err := tk.LoadApp(nil, nil); err == nil {
		t.Fatal("LoadApp(nil) succeeded, want error")
	}
	if len(port.writes) != 0 {
		t.Errorf("wrote %d frames, want 0", len(port.writes))
	}
}

func TestLoadAppRejected(t *testing.T) {
	port := newMockPort()
	port.queueResponse(t, proto.CmdLoadApp, 0, proto.StatusNOK, nil)

	tk := New(port)
	err := tk.LoadApp(testImage(300), nil)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("LoadApp() error = %v, want ErrRejected", err)
	}
	if len(port.writes) != 1 {
		t.Errorf("wrote %d frames after rejection, want 1", len(port.writes))
	}
}

func TestLoadAppChunkRejectedStopsTransfer(t *testing.T) {
	// Three chunks worth of image, but the first data chunk is rejected:
	// nothing after it may be sent.
	port := newMockPort()
	port.queueResponse(t, proto.CmdLoadApp, 0, proto.StatusOK, nil)
	port.queueResponse(t, proto.CmdLoadAppData, 1, proto.StatusNOK, nil)

	tk := New(port)
	err := tk.LoadApp(testImage(300), nil)
	if !errors.Is(err, ErrChunkRejected) {
		t.Fatalf("LoadApp() error = %v, want ErrChunkRejected", err)
	}
	if len(port.writes) != 2 {
		t.Errorf("wrote %d frames, want 2 (size negotiation + rejected chunk)", len(port.writes))
	}
}

func TestLoadAppTimeoutMidStream(t *testing.T) {
	// Acks for the negotiation and first chunk only; the device then goes
	// silent.
	port := newMockPort()
	port.queueResponse(t, proto.CmdLoadApp, 0, proto.StatusOK, nil)
	port.queueResponse(t, proto.CmdLoadAppData, 1, proto.StatusOK, nil)

	tk := New(port)
	err := tk.LoadApp(testImage(300), nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("LoadApp() error = %v, want ErrTimeout", err)
	}
	if len(port.writes) != 3 {
		t.Errorf("wrote %d frames, want 3", len(port.writes))
	}
}

func TestLoadAppDigestMismatch(t *testing.T) {
	image := testImage(5)
	port := newMockPort()
	port.queueResponse(t, proto.CmdLoadApp, 0, proto.StatusOK, nil)
	wrong := make([]byte, blake2s.Size)
	port.queueResponse(t, proto.CmdLoadAppDataLast, 1, proto.StatusOK, wrong)

	tk := New(port)
	err := tk.LoadApp(image, nil)
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("LoadApp() error = %v, want ErrDigestMismatch", err)
	}

	var mismatch *DigestMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("LoadApp() error = %T, want *DigestMismatchError", err)
	}
	sum := blake2s.Sum256(image)
	if string(mismatch.Want) != string(sum[:]) {
		t.Errorf("Want digest = %x, want %x", mismatch.Want, sum[:])
	}
}

func TestLoadAppMissingDigest(t *testing.T) {
	port := newMockPort()
	port.queueResponse(t, proto.CmdLoadApp, 0, proto.StatusOK, nil)
	port.queueResponse(t, proto.CmdLoadAppDataLast, 1, proto.StatusOK, nil)

	tk := New(port)
	if err := tk.LoadApp(testImage(5), nil); !errors.Is(err, ErrProtocol) {
		t.Fatalf("LoadApp() error = %v, want ErrProtocol", err)
	}
}

func TestLoadAppFinalChunkCommandOverride(t *testing.T) {
	image := testImage(5)
	port := newMockPort()
	port.queueResponse(t, proto.CmdLoadApp, 0, proto.StatusOK, nil)
	digest := blake2s.Sum256(image)
	port.queueResponse(t, proto.CmdLoadAppData, 1, proto.StatusOK, digest[:])

	tk := New(port, WithFinalChunkCommand(proto.CmdLoadAppData))
	if err := tk.LoadApp(image, nil); err != nil {
		t.Fatalf("LoadApp(): %v", err)
	}

	last := port.writes[len(port.writes)-1]
	if last[1] != proto.CmdLoadAppData.Code {
		t.Errorf("final chunk command = 0x%02x, want 0x%02x", last[1], proto.CmdLoadAppData.Code)
	}
}

func TestLoadAppProgress(t *testing.T) {
	image := testImage(300)
	port := newMockPort()
	queueLoadResponses(t, port, image, nil)

	var phases []string
	var lastProgress Progress
	tk := New(port, WithProgressCallback(func(p Progress) {
		phases = append(phases, p.Phase)
		lastProgress = p
	}))

	if err := tk.LoadApp(image, nil); err != nil {
		t.Fatalf("LoadApp(): %v", err)
	}

	want := []string{PhaseNegotiating, PhaseStreaming, PhaseStreaming, PhaseComplete}
	if len(phases) != len(want) {
		t.Fatalf("got %d progress reports %v, want %d", len(phases), phases, len(want))
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase %d = %q, want %q", i, phases[i], want[i])
		}
	}

	if lastProgress.BytesSent != len(image) {
		t.Errorf("final BytesSent = %d, want %d", lastProgress.BytesSent, len(image))
	}
	if lastProgress.CurrentChunk != 3 || lastProgress.TotalChunks != 3 {
		t.Errorf("final chunk count = %d/%d, want 3/3",
			lastProgress.CurrentChunk, lastProgress.TotalChunks)
	}
}

func TestLoadAppFile(t *testing.T) {
	image := testImage(200)
	path := filepath.Join(t.TempDir(), "app.bin")
	if err := os.WriteFile(path, image, 0o600); err != nil {
		t.Fatal(err)
	}

	port := newMockPort()
	queueLoadResponses(t, port, image, nil)

	tk := New(port)
	if err := tk.LoadAppFile(path, nil); err != nil {
		t.Fatalf("LoadAppFile(): %v", err)
	}
}

func TestLoadAppFileMissing(t *testing.T) {
	port := newMockPort()
	tk := New(port)

	if err := tk.LoadAppFile(filepath.Join(t.TempDir(), "nope.bin"), nil); err == nil {
		t.Fatal("LoadAppFile() succeeded on a missing file")
	}
	if len(port.writes) != 0 {
		t.Errorf("wrote %d frames, want 0", len(port.writes))
	}
}
