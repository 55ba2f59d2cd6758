// Package tkey provides a high-level client for a TKey hardware security
// device attached over a serial byte stream.
//
// # Overview
//
// The client drives complete command/response cycles on top of the framing
// codec in package proto:
//   - Querying firmware name and version
//   - Reading the unique device identifier (UDI)
//   - Loading an application image, with an optional user-supplied secret
//
// # Basic usage
//
// Open a device and query it:
//
//	tk, err := tkey.Open("/dev/ttyACM0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tk.Close()
//
//	name0, name1, version, err := tk.GetNameVersion()
//
// Or let the client manage the connection lifetime:
//
//	err := tkey.Run("/dev/ttyACM0", func(tk *tkey.TKey) error {
//	    return tk.LoadAppFile("app.bin", nil)
//	})
//
// # Transport independence
//
// New accepts any Port implementation, so the client works over mock
// transports in tests or anything else that moves bytes:
//
//	tk := tkey.New(myPort)
//
// # Configuration
//
// Behavior is adjusted with functional options:
//
//	tk, err := tkey.Open(portName,
//	    tkey.WithSpeed(62500),
//	    tkey.WithTimeout(time.Second),
//	    tkey.WithMaxAppSize(128*1024),
//	    tkey.WithLogger(myLogger),
//	    tkey.WithProgressCallback(progressFunc),
//	)
//
// # Concurrency
//
// The protocol is strictly synchronous and half-duplex: one frame in
// flight, the next write never issued before the matching read completes.
// A TKey (and its Port) must not be shared between goroutines without
// external serialization.
//
// # Error handling
//
// Failures are classified through sentinel errors (ErrTimeout, ErrProtocol,
// ErrCommandFailed, ErrRejected, ErrChunkRejected, ErrAppTooLarge,
// ErrSecretTooLong, ErrDigestMismatch) usable with errors.Is. Input
// validation errors are raised before any bytes reach the transport.
package tkey
