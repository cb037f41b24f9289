package ais

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestEncodeValidatesMMSI(t *testing.T) {
	tests := []struct {
		name string
		mmsi string
		ok   bool
	}{
		{"valid", "123456789", true},
		{"leading zeros", "003456789", true},
		{"too short", "12345", false},
		{"too long", "1234567890", false},
		{"letters", "12345678A", false},
		{"empty", "", false},
		{"spaces", " 123456789", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.mmsi, 51.9, 4.4, 12.3, 87.6, time.Now())
			if tt.ok && err != nil {
				t.Errorf("Encode(%q) error = %v, want nil", tt.mmsi, err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidMMSI) {
				t.Errorf("Encode(%q) error = %v, want ErrInvalidMMSI", tt.mmsi, err)
			}
		})
	}
}

func TestEncodeSentenceShape(t *testing.T) {
	sentence, err := Encode("244660123", 51.9, 4.4, 12.3, 87.6, time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if !strings.HasPrefix(sentence, "!AIVDM,1,1,,A,") {
		t.Errorf("Sentence %q missing single-fragment AIVDM frame", sentence)
	}

	body, sum, found := strings.Cut(sentence[1:], "*")
	if !found {
		t.Fatalf("Sentence %q missing checksum trailer", sentence)
	}
	if sum != Checksum(body) {
		t.Errorf("Checksum %q does not verify against body", sum)
	}

	fields := strings.Split(body, ",")
	if len(fields) != 7 {
		t.Fatalf("Expected 7 fields, got %d", len(fields))
	}
	// A 168-bit type 1 payload armors to exactly 28 characters.
	if len(fields[5]) != 28 {
		t.Errorf("Payload length = %d, want 28", len(fields[5]))
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		lat    float64
		lon    float64
		speed  float64
		course float64
	}{
		{"north sea", 51.9, 4.4, 12.3, 87.6},
		{"equator origin", 0, 0, 20, 0},
		{"southern hemisphere", -33.86, 151.2, 14.9, 245.5},
		{"negative longitude", 37.7749, -122.4194, 8.2, 359.4},
		{"extreme south", -89.9, -179.9, 0.4, 180.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentence, err := Encode("244660123", tt.lat, tt.lon, tt.speed, tt.course, time.Now())
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			report, err := Decode(sentence)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if report.MMSI != "244660123" {
				t.Errorf("MMSI = %q, want 244660123", report.MMSI)
			}
			if !report.ChecksumOK {
				t.Error("Freshly encoded sentence should verify its checksum")
			}

			// Coordinates round-trip within the fixed-point resolution.
			if math.Abs(report.Lat-tt.lat) > 1e-4 {
				t.Errorf("Lat = %f, want %f within 1e-4", report.Lat, tt.lat)
			}
			if math.Abs(report.Lon-tt.lon) > 1e-4 {
				t.Errorf("Lon = %f, want %f within 1e-4", report.Lon, tt.lon)
			}

			// Speed and course are truncated to whole units on the wire,
			// so the round trip is lossy but bounded.
			if report.Speed == nil {
				t.Fatal("Speed should be available")
			}
			if math.Abs(*report.Speed-tt.speed) >= 1 {
				t.Errorf("Speed = %f, want within 1 knot of %f", *report.Speed, tt.speed)
			}
			if report.Course == nil {
				t.Fatal("Course should be available")
			}
			if math.Abs(*report.Course-tt.course) >= 1 {
				t.Errorf("Course = %f, want within 1 degree of %f", *report.Course, tt.course)
			}
		})
	}
}

func TestDecodeKnownSentence(t *testing.T) {
	report, err := Decode("!AIVDM,1,1,,A,15Muq;001oG?tTpE>nD4p?vN0TKH,0*11")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if !ValidMMSI(report.MMSI) {
		t.Errorf("MMSI %q is not 9 numeric digits", report.MMSI)
	}
	if report.Lat < -90 || report.Lat > 90 {
		t.Errorf("Lat %f out of range", report.Lat)
	}
	if report.Lon < -180 || report.Lon > 180 {
		t.Errorf("Lon %f out of range", report.Lon)
	}
}

func TestDecodeIsPermissiveAboutChecksum(t *testing.T) {
	sentence, err := Encode("244660123", 51.9, 4.4, 12.3, 87.6, time.Now())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	corrupted := sentence[:len(sentence)-2] + "XX"

	report, err := Decode(corrupted)
	if err != nil {
		t.Fatalf("Decode() should tolerate a bad checksum, got %v", err)
	}
	if report.ChecksumOK {
		t.Error("ChecksumOK should be false for a corrupted trailer")
	}
	if math.Abs(report.Lat-51.9) > 1e-4 {
		t.Errorf("Payload should still decode, got lat %f", report.Lat)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
	}{
		{"empty", ""},
		{"not a sentence", "hello world"},
		{"wrong talker", "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"},
		{"missing checksum", "!AIVDM,1,1,,A,15Muq;001oG?tTpE>nD4p?vN0TKH,0"},
		{"too few fields", "!AIVDM,1,1,,A,0*23"},
		{"multi-fragment", "!AIVDM,2,1,3,B,55P5TL01VIaAL@7WKO@mBplU@<PDhh000000001S;AJ::4A80?4i@E53,0*3E"},
		{"bad fragment count", "!AIVDM,x,1,,A,15Muq;001oG?tTpE>nD4p?vN0TKH,0*11"},
		{"truncated payload", "!AIVDM,1,1,,A,15Muq;0,0*11"},
		{"invalid payload character", "!AIVDM,1,1,,A,15Muq;001oG?tTpE>nD4p?v~0TKH,0*11"},
		{"unsupported message type", "!AIVDM,1,1,,A,55Muq;001oG?tTpE>nD4p?vN0TKH,0*11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.sentence); !errors.Is(err, ErrDecode) {
				t.Errorf("Decode(%q) error = %v, want ErrDecode", tt.sentence, err)
			}
		})
	}
}

func TestSpeedTruncationOnWire(t *testing.T) {
	sentence, err := Encode("244660123", 0, 0, 12.9, 271.7, time.Now())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	report, err := Decode(sentence)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if *report.Speed != 12 {
		t.Errorf("Speed = %f, want truncated 12", *report.Speed)
	}
	if *report.Course != 271 {
		t.Errorf("Course = %f, want truncated 271", *report.Course)
	}
}
