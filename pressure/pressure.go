/*Package pressure reads the PRIM pressure box, an Arduino that streams
comma separated packets over a serial link.

Each packet is one line of the form

	<frame index>,<elapsed seconds>,<pressure mmHg>

optionally followed by a fourth field holding a CRC-16/XMODEM of the
payload as four hex digits.  Firmware older than v3 does not send the
checksum, so verification is opt-in.

When no hardware is attached, Simulator produces the same stream from a
sum-of-sines generator.
*/
package pressure

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/snksoft/crc"
)

var (
	// ErrShortLine is generated when a packet has fewer than 3 fields
	ErrShortLine = errors.New("packet has fewer than 3 fields")

	// ErrBadChecksum is generated when the CRC trailer does not match the payload
	ErrBadChecksum = errors.New("packet checksum mismatch")

	crcTable = crc.NewTable(crc.XMODEM)
)

// Sample is one pressure tick.
type Sample struct {
	// Index is the frame index as counted by the device
	Index int

	// Elapsed is seconds since the device began streaming, monotonic
	// within a session
	Elapsed float64

	// Value is the pressure reading in mmHg
	Value float64
}

// State describes the lifecycle of a sample source.
type State int

const (
	// Connected means the source is delivering samples
	Connected State = iota

	// Disconnected means the source went away mid-stream
	Disconnected

	// Faulted means the source hit an unrecoverable error
	Faulted
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Status pairs a State with the error that caused it, if any.
type Status struct {
	State State
	Err   error
}

// checksum computes the two-byte CRC over the payload in one line
func checksum(payload []byte) []byte {
	c := crcTable.InitCrc()
	c = crcTable.UpdateCrc(c, payload)
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, crcTable.CRC16(c))
	return out
}

// ParseLine decodes one serial line into a Sample.  verify controls
// whether a CRC trailer is required and checked.
func ParseLine(line string, verify bool) (Sample, error) {
	var s Sample
	line = strings.TrimSpace(line)
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 {
		return s, ErrShortLine
	}
	if verify {
		if len(parts) < 4 {
			return s, ErrBadChecksum
		}
		recv, err := hex.DecodeString(parts[3])
		if err != nil || len(recv) != 2 {
			return s, ErrBadChecksum
		}
		payload := strings.Join(parts[:3], ",")
		want := checksum([]byte(payload))
		if recv[0] != want[0] || recv[1] != want[1] {
			return s, ErrBadChecksum
		}
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return s, fmt.Errorf("bad index field %q: %w", parts[0], err)
	}
	elapsed, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return s, fmt.Errorf("bad time field %q: %w", parts[1], err)
	}
	value, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return s, fmt.Errorf("bad pressure field %q: %w", parts[2], err)
	}
	s.Index = idx
	s.Elapsed = elapsed
	s.Value = value
	return s, nil
}

// FormatLine encodes a sample as the device would send it, including the
// CRC trailer.  It exists for loopback testing and the simulator.
func FormatLine(s Sample) string {
	payload := fmt.Sprintf("%d,%.6f,%.6f", s.Index, s.Elapsed, s.Value)
	sum := checksum([]byte(payload))
	return fmt.Sprintf("%s,%02x%02x", payload, sum[0], sum[1])
}
