package proto

// Tag is the fixed protocol version marker carried in the two top bits of
// every frame header byte. Any other value means the byte is not the start
// of a valid frame.
const Tag = 0x01

// Endpoint numbers. Endpoints 0 and 1 are hardware endpoints inside the
// device and are never addressed by a host client.
const (
	// EndpointHWInterface is the hardware interface FPGA (unused by hosts)
	EndpointHWInterface = 0

	// EndpointHWApp is the hardware application FPGA (unused by hosts)
	EndpointHWApp = 1

	// EndpointFirmware is the device firmware
	EndpointFirmware = 2

	// EndpointApp is the loaded device application
	EndpointApp = 3
)

// Response status codes.
const (
	// StatusOK indicates the device accepted and executed the command
	StatusOK = 0x00

	// StatusNOK indicates the device rejected the command
	StatusNOK = 0x01
)

// Payload length classes in bytes. Every frame carries exactly one of these
// payload sizes; shorter data is zero-padded up to the class.
const (
	ClassByte  = 1
	ClassWord  = 4
	ClassShort = 32
	ClassLong  = 128
)

// Frame overhead in bytes, excluding the payload.
const (
	// CommandFrameOverhead is header(1) + command(1)
	CommandFrameOverhead = 2

	// ResponseFrameOverhead is header(1) + command(1) + status(1) + length(1)
	ResponseFrameOverhead = 4
)

// MaxFrameID is the largest valid frame ID (3-bit sequence space).
const MaxFrameID = 7

// MaxEndpoint is the largest valid endpoint number (2-bit field).
const MaxEndpoint = 3

// Command describes one protocol command: its wire code and the payload
// length class used by both the command frame and its response.
type Command struct {
	Code  byte
	Class int
	Name  string
}

// The firmware command set. Responses echo the command code with the
// response flag set in the header.
var (
	CmdNameVersion     = Command{0x01, ClassShort, "name_version"}
	CmdLoadApp         = Command{0x03, ClassShort, "load_app"}
	CmdLoadAppData     = Command{0x04, ClassLong, "load_app_data"}
	CmdLoadAppUSS      = Command{0x05, ClassShort, "load_app_uss"}
	CmdLoadAppDataLast = Command{0x06, ClassLong, "load_app_data_last"}
	CmdGetUDI          = Command{0x08, ClassShort, "get_udi"}
)

var commands = []Command{
	CmdNameVersion,
	CmdLoadApp,
	CmdLoadAppData,
	CmdLoadAppUSS,
	CmdLoadAppDataLast,
	CmdGetUDI,
}

// CommandByCode returns the command definition for a wire code.
func CommandByCode(code byte) (Command, bool) {
	for _, c := range commands {
		if c.Code == code {
			return c, true
		}
	}
	return Command{}, false
}

// ValidClass reports whether n is one of the four payload length classes.
func ValidClass(n int) bool {
	switch n {
	case ClassByte, ClassWord, ClassShort, ClassLong:
		return true
	}
	return false
}
