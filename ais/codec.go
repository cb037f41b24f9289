package ais

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// AIVDM message type 1 (Class A position report) field layout, per
// ITU-R M.1371. Coordinates are fixed point in 1/600000 degree; speed and
// course travel in tenths of a knot / tenths of a degree with sentinel
// values marking "not available".
const (
	payloadBits = 168

	speedNotAvailable      = 1023
	speedMax               = 1022
	courseNotAvailable     = 3600
	headingNotAvailable    = 511
	rateOfTurnNotAvailable = 128

	coordinateScale = 600000.0
)

var mmsiPattern = regexp.MustCompile(`^[0-9]{9}$`)

// ValidMMSI reports whether s is a well-formed 9-digit MMSI.
func ValidMMSI(s string) bool {
	return mmsiPattern.MatchString(s)
}

// Checksum calculates the NMEA checksum of a sentence body (the characters
// between '!' and '*').
func Checksum(body string) string {
	var checksum byte
	for i := 0; i < len(body); i++ {
		checksum ^= body[i]
	}
	return fmt.Sprintf("%02X", checksum)
}

// Encode builds a single-fragment AIVDM position report sentence.
//
// Speed and course are truncated to whole knots and degrees before field
// packing, so a decode of the result recovers them only to integer
// resolution. Coordinates round-trip within the fixed-point resolution of
// the format (well under 1e-4 degree). Encode is pure and performs no
// range validation beyond the MMSI shape.
func Encode(mmsi string, lat, lon, speed, course float64, timestamp time.Time) (string, error) {
	if !ValidMMSI(mmsi) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMMSI, mmsi)
	}
	mmsiValue, err := strconv.ParseUint(mmsi, 10, 32)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMMSI, mmsi)
	}

	speedField := uint64(int(speed)) * 10
	if speed < 0 {
		speedField = 0
	} else if speedField > speedMax {
		speedField = speedMax
	}
	courseField := (uint64(int(course)) * 10) % 3600

	var b bitBuffer
	b.put(1, 6) // message type 1: position report
	b.put(0, 2) // repeat indicator
	b.put(mmsiValue, 30)
	b.put(0, 4)                      // navigational status: under way using engine
	b.put(rateOfTurnNotAvailable, 8) // rate of turn
	b.put(speedField, 10)
	b.put(0, 1) // position accuracy
	b.putSigned(int64(math.Round(lon*coordinateScale)), 28)
	b.putSigned(int64(math.Round(lat*coordinateScale)), 27)
	b.put(courseField, 12)
	b.put(headingNotAvailable, 9)
	b.put(uint64(timestamp.UTC().Second()), 6)
	b.put(0, 2)  // special manoeuvre indicator
	b.put(0, 3)  // spare
	b.put(0, 1)  // RAIM
	b.put(0, 19) // radio status

	body := fmt.Sprintf("AIVDM,1,1,,A,%s,0", b.armor())
	return fmt.Sprintf("!%s*%s", body, Checksum(body)), nil
}

// Decode parses an AIVDM/AIVDO sentence back into a position report.
//
// A checksum mismatch does not fail the decode; real-world AIS reception
// is noisy and a mangled trailer often rides along with a usable payload.
// The mismatch is surfaced on Report.ChecksumOK so callers can enforce a
// stricter policy. Field-range validation is the ingester's concern.
func Decode(sentence string) (*Report, error) {
	raw := sentence
	sentence = strings.TrimSpace(sentence)

	if !strings.HasPrefix(sentence, "!AIVDM") && !strings.HasPrefix(sentence, "!AIVDO") {
		return nil, fmt.Errorf("%w: missing AIVDM framing", ErrDecode)
	}

	body, sum, found := strings.Cut(sentence[1:], "*")
	if !found || len(sum) != 2 {
		return nil, fmt.Errorf("%w: missing checksum trailer", ErrDecode)
	}
	checksumOK := strings.EqualFold(sum, Checksum(body))

	fields := strings.Split(body, ",")
	if len(fields) != 7 {
		return nil, fmt.Errorf("%w: expected 7 fields, got %d", ErrDecode, len(fields))
	}

	fragmentCount, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad fragment count %q", ErrDecode, fields[1])
	}
	fragmentNumber, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad fragment number %q", ErrDecode, fields[2])
	}
	if fragmentCount != 1 || fragmentNumber != 1 {
		return nil, fmt.Errorf("%w: multi-fragment sentences are not supported", ErrDecode)
	}

	bits, err := deArmor(fields[5])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(bits) < payloadBits {
		return nil, fmt.Errorf("%w: truncated payload (%d bits)", ErrDecode, len(bits))
	}

	// Types 1-3 share the Class A position report layout.
	messageType := int(bits.uint(0, 6))
	if messageType < 1 || messageType > 3 {
		return nil, fmt.Errorf("%w: unsupported message type %d", ErrDecode, messageType)
	}

	report := &Report{
		Type:       messageType,
		MMSI:       fmt.Sprintf("%09d", bits.uint(8, 30)),
		Lon:        float64(bits.int(61, 28)) / coordinateScale,
		Lat:        float64(bits.int(89, 27)) / coordinateScale,
		Raw:        raw,
		ChecksumOK: checksumOK,
	}

	if sog := bits.uint(50, 10); sog != speedNotAvailable {
		speed := float64(sog) / 10
		report.Speed = &speed
	}
	if cog := bits.uint(116, 12); cog != courseNotAvailable {
		course := float64(cog) / 10
		report.Course = &course
	}

	return report, nil
}

// bitBuffer accumulates big-endian bit fields for 6-bit armoring.
type bitBuffer struct {
	bits []byte
}

func (b *bitBuffer) put(value uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		b.bits = append(b.bits, byte((value>>uint(i))&1))
	}
}

// putSigned packs a two's-complement value into width bits.
func (b *bitBuffer) putSigned(value int64, width int) {
	b.put(uint64(value)&((1<<uint(width))-1), width)
}

// armor packs the accumulated bits into the 6-bit ASCII alphabet used by
// AIVDM payloads.
func (b *bitBuffer) armor() string {
	var sb strings.Builder
	for i := 0; i+6 <= len(b.bits); i += 6 {
		var v byte
		for j := 0; j < 6; j++ {
			v = v<<1 | b.bits[i+j]
		}
		if v < 40 {
			sb.WriteByte(v + 48)
		} else {
			sb.WriteByte(v + 56)
		}
	}
	return sb.String()
}

// bitField is a de-armored payload, one byte per bit.
type bitField []byte

func deArmor(payload string) (bitField, error) {
	bits := make(bitField, 0, len(payload)*6)
	for i := 0; i < len(payload); i++ {
		c := payload[i]
		if c < 48 || c > 119 || (c > 87 && c < 96) {
			return nil, fmt.Errorf("invalid payload character %q", c)
		}
		v := c - 48
		if v > 40 {
			v -= 8
		}
		for j := 5; j >= 0; j-- {
			bits = append(bits, (v>>uint(j))&1)
		}
	}
	return bits, nil
}

func (b bitField) uint(start, width int) uint64 {
	var v uint64
	for i := start; i < start+width; i++ {
		v = v<<1 | uint64(b[i])
	}
	return v
}

// int reads a two's-complement signed field.
func (b bitField) int(start, width int) int64 {
	v := b.uint(start, width)
	if v&(1<<uint(width-1)) != 0 {
		return int64(v) - (1 << uint(width))
	}
	return int64(v)
}
