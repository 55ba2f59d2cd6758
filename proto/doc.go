// Package proto implements the TKey framing protocol codec.
//
// This package is pure: it builds and parses the fixed-layout binary frames
// exchanged with the device but performs no I/O.
//
// # Frame layout
//
// Every frame starts with a one-byte bit-packed header:
//
//	[7..6]  tag      fixed protocol version marker (Tag)
//	[5..3]  frame ID 3-bit sequence number, echoed by the device
//	[2..1]  endpoint logical destination inside the device
//	[0]     response 0 = command frame, 1 = response frame
//
// A command frame is the header, the command byte, and a payload zero-padded
// to the command's length class (1, 4, 32 or 128 bytes):
//
//	[HEADER][CMD][PAYLOAD...]
//
// A response frame echoes the command byte and frame ID, and inserts a
// status byte and a significant-length byte before the padded payload:
//
//	[HEADER][CMD][STATUS][LEN][PAYLOAD...]
//
// The length class is a fixed property of each command (see the Cmd*
// definitions), so the expected size of a response is known from the request
// that produced it.
//
// # Usage
//
// Build a command frame:
//
//	frame, err := proto.CreateFrame(proto.CmdGetUDI, frameID,
//	    proto.EndpointFirmware, proto.CmdGetUDI.Class, nil)
//
// Parse a received frame:
//
//	resp, err := proto.ParseFrame(buf)
//	if resp.Status != proto.StatusOK {
//	    // device rejected the command
//	}
//
// All validation failures are reported through the sentinel errors in
// errors.go and can be classified with errors.Is.
package proto
