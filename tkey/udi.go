package tkey

import (
	"encoding/binary"
	"fmt"

	"github.com/mchack-dev/go-tkey/proto"
)

// UDISize is the number of significant payload bytes carrying the UDI.
const UDISize = 8

// UDI is the Unique Device Identifier: the device's hardware identity
// record, burned in at provisioning time.
//
// On the wire it is two little-endian 32-bit words. The first packs
// reserved (4 bits), vendor ID (16 bits), product ID (6 bits) and product
// revision (6 bits); the second is the serial number.
type UDI struct {
	Reserved   uint8
	VendorID   uint16
	ProductID  uint8
	ProductRev uint8
	Serial     uint32
}

// ParseUDI unpacks a UDI from the significant bytes of a GET_UDI response
// payload.
func ParseUDI(raw []byte) (*UDI, error) {
	if len(raw) < UDISize {
		return nil, fmt.Errorf("%w: udi payload is %d bytes, want %d", ErrProtocol, len(raw), UDISize)
	}

	vpr := binary.LittleEndian.Uint32(raw[0:4])

	return &UDI{
		Reserved:   uint8((vpr >> 28) & 0x0f),
		VendorID:   uint16((vpr >> 12) & 0xffff),
		ProductID:  uint8((vpr >> 6) & 0x3f),
		ProductRev: uint8(vpr & 0x3f),
		Serial:     binary.LittleEndian.Uint32(raw[4:8]),
	}, nil
}

// String renders the UDI as a colon-separated hex string, e.g.
// "0:1337:2:1:00000042".
func (u *UDI) String() string {
	return fmt.Sprintf("%01x:%04x:%x:%x:%08x",
		u.Reserved, u.VendorID, u.ProductID, u.ProductRev, u.Serial)
}

// GetUDI retrieves the unique device identifier from the device.
func (t *TKey) GetUDI() (*UDI, error) {
	resp, err := t.sendCommand(proto.CmdGetUDI, proto.EndpointFirmware, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status != proto.StatusOK {
		return nil, fmt.Errorf("get_udi: %w (status 0x%02x)", ErrCommandFailed, resp.Status)
	}
	if resp.Length < UDISize {
		return nil, fmt.Errorf("%w: get_udi response reported %d bytes, want %d",
			ErrProtocol, resp.Length, UDISize)
	}

	return ParseUDI(resp.Payload[:UDISize])
}

// GetUDIString retrieves the unique device identifier as a hex string.
func (t *TKey) GetUDIString() (string, error) {
	udi, err := t.GetUDI()
	if err != nil {
		return "", err
	}
	return udi.String(), nil
}
