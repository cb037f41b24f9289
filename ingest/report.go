package ingest

import (
	"fmt"
	"io"
	"strings"
)

// QualityReport accumulates per-session message counters. It is owned by
// exactly one pipeline so concurrent sessions cannot cross-contaminate
// counts.
type QualityReport struct {
	TotalMessages      int
	MalformedEnvelopes int
	InvalidMMSI        int
	InvalidTimestamps  int
	MissingFields      int
	DecodeFailures     int
	InvalidCoordinates int
	Other              int

	StoredRecords   int
	StorageFailures int
}

// WriteTo renders the plain-text summary artifact written once per
// ingest session.
func (r QualityReport) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	sb.WriteString("Data Quality Report\n")
	sb.WriteString("===================\n")
	fmt.Fprintf(&sb, "Total messages processed: %d\n", r.TotalMessages)
	fmt.Fprintf(&sb, "Stored records:           %d\n", r.StoredRecords)
	fmt.Fprintf(&sb, "Malformed envelopes:      %d\n", r.MalformedEnvelopes)
	fmt.Fprintf(&sb, "Invalid MMSI:             %d\n", r.InvalidMMSI)
	fmt.Fprintf(&sb, "Invalid timestamps:       %d\n", r.InvalidTimestamps)
	fmt.Fprintf(&sb, "Missing fields:           %d\n", r.MissingFields)
	fmt.Fprintf(&sb, "Decode failures:          %d\n", r.DecodeFailures)
	fmt.Fprintf(&sb, "Invalid coordinates:      %d\n", r.InvalidCoordinates)
	fmt.Fprintf(&sb, "Storage failures:         %d\n", r.StorageFailures)
	fmt.Fprintf(&sb, "Other issues:             %d\n", r.Other)

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// Rejected returns the total number of messages or fragments rejected by
// any validation stage.
func (r QualityReport) Rejected() int {
	return r.MalformedEnvelopes + r.InvalidMMSI + r.InvalidTimestamps +
		r.MissingFields + r.DecodeFailures + r.InvalidCoordinates + r.Other
}
