package tkey

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestParseUDI(t *testing.T) {
	tests := []struct {
		name   string
		vpr    uint32
		serial uint32
		want   UDI
	}{
		{
			name:   "test vendor device",
			vpr:    0x1337<<12 | 2<<6 | 1,
			serial: 0x42,
			want:   UDI{Reserved: 0, VendorID: 0x1337, ProductID: 2, ProductRev: 1, Serial: 66},
		},
		{
			name:   "all fields saturated",
			vpr:    0xf<<28 | 0xffff<<12 | 0x3f<<6 | 0x3f,
			serial: 0xffffffff,
			want:   UDI{Reserved: 0xf, VendorID: 0xffff, ProductID: 0x3f, ProductRev: 0x3f, Serial: 0xffffffff},
		},
		{
			name: "zero",
			want: UDI{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := make([]byte, UDISize)
			binary.LittleEndian.PutUint32(raw[0:4], tt.vpr)
			binary.LittleEndian.PutUint32(raw[4:8], tt.serial)

			udi, err := ParseUDI(raw)
			if err != nil {
				t.Fatalf("ParseUDI(): %v", err)
			}
			if *udi != tt.want {
				t.Errorf("ParseUDI() = %+v, want %+v", *udi, tt.want)
			}
		})
	}
}

func TestParseUDIShort(t *testing.T) {
	if _, err := ParseUDI(make([]byte, UDISize-1)); !errors.Is(err, ErrProtocol) {
		t.Errorf("ParseUDI() error = %v, want ErrProtocol", err)
	}
}

func TestUDIString(t *testing.T) {
	tests := []struct {
		name string
		udi  UDI
		want string
	}{
		{
			name: "test vendor device",
			udi:  UDI{Reserved: 0, VendorID: 0x1337, ProductID: 2, ProductRev: 1, Serial: 0x42},
			want: "0:1337:2:1:00000042",
		},
		{
			name: "serial zero padded",
			udi:  UDI{VendorID: 0x10, ProductID: 8, ProductRev: 3, Serial: 1},
			want: "0:0010:8:3:00000001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.udi.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
