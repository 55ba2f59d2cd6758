package proto

import (
	"fmt"
	"strings"
)

// Dump renders raw frame bytes as one row per byte with binary and hex
// columns, annotated with the given positional marks (0-based offsets).
// Purely presentational, for diagnostic logging.
//
//	Byte 001:  01001010  0x4a  <- Header
//	Byte 002:  00000001  0x01  <- Command
func Dump(frame []byte, marks map[int]string) string {
	var b strings.Builder
	for i, d := range frame {
		// Rows are 1-indexed for human output, marks stay 0-indexed.
		fmt.Fprintf(&b, "Byte %03d:  %08b  0x%02x", i+1, d, d)
		if mark, ok := marks[i]; ok {
			fmt.Fprintf(&b, "  <- %s", mark)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// CommandMarks returns the positional annotations for a command frame.
func CommandMarks(frame []byte) map[int]string {
	marks := map[int]string{0: "Header"}
	if len(frame) > 1 {
		marks[1] = "Command"
	}
	if len(frame) > 2 {
		marks[2] = "Data start"
	}
	return marks
}

// ResponseMarks returns the positional annotations for a response frame.
func ResponseMarks(frame []byte) map[int]string {
	marks := map[int]string{0: "Header"}
	if len(frame) > 1 {
		marks[1] = "Command"
	}
	if len(frame) > 2 {
		marks[2] = "Status"
	}
	if len(frame) > 3 {
		marks[3] = "Length"
	}
	if len(frame) > 4 {
		marks[4] = "Data start"
	}
	return marks
}
