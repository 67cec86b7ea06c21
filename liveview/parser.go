// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import (
	"bytes"
	"encoding/json"

	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
)

type (
	// Parser turns one wire line into typed samples. Each line is a JSON
	// object carrying a time field ("t_s" relative seconds or "timestamp_ns"
	// raw nanoseconds), an optional "sensor_id", and one or more numeric
	// channel fields. Unknown fields are ignored.
	//
	// A parser holds the per-session nanosecond rebase: the first valid raw
	// timestamp seen becomes the session zero and is immutable until Reset.
	// The parser is not thread-safe; it is owned by a single ingest loop.
	Parser struct {
		rebased bool
		baseNS  int64
	}
)

// Reserved field names that are never treated as channels.
const (
	fieldTimeSeconds = "t_s"
	fieldTimeNanos   = "timestamp_ns"
	fieldSensorID    = "sensor_id"
	fieldSampleRate  = "sample_rate_hz"
	fieldDecimation  = "decimation"
)

func reservedField(name string) bool {
	switch name {
	case fieldTimeSeconds, fieldTimeNanos, fieldSensorID,
		fieldSampleRate, fieldDecimation:
		return true
	}
	return false
}

// NewParser creates a parser for one stream session.
func NewParser() *Parser {
	return &Parser{}
}

// Reset clears the nanosecond rebase so the next session starts fresh.
func (p *Parser) Reset() {
	p.rebased = false
	p.baseNS = 0
}

// Parse decodes one line into samples, one per numeric channel field. All
// samples from a line share its timestamp and sensor ID. Parse never panics;
// failures are returned as recoverable errors for the caller to count.
func (p *Parser) Parse(line []byte) ([]Sample, error) {
	fields, err := decodeObject(line)
	if err != nil {
		return nil, err
	}

	ts, ok, err := p.timestamp(fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &errors.Error{
			Message:   "no usable time field",
			Kind:      errors.TimestampMissing,
			FieldName: fieldTimeSeconds,
		}
	}

	var sensor uint32
	if n, ok := fields[fieldSensorID]; ok {
		id, err := n.Int64()
		if err != nil || id < 0 {
			return nil, &errors.Error{
				Message:    "sensor_id is not a valid integer",
				Kind:       errors.PayloadMalformed,
				FieldName:  fieldSensorID,
				FieldValue: n.String(),
			}
		}
		sensor = uint32(id)
	}

	var samples []Sample
	for name, num := range fields {
		if reservedField(name) {
			continue
		}
		value, err := num.Float64()
		if err != nil {
			continue
		}
		samples = append(samples, Sample{
			Timestamp: ts,
			SensorID:  sensor,
			Channel:   name,
			Value:     value,
		})
	}

	if len(samples) == 0 {
		return nil, &errors.Error{
			Message: "no numeric channel field",
			Kind:    errors.PayloadMalformed,
		}
	}
	return samples, nil
}

// ParseHeader decodes an optional one-time header line. It reports false for
// anything that is not a header, including malformed lines; headers are
// best-effort and never fail the stream.
func (p *Parser) ParseHeader(line []byte) (StreamInfo, bool) {
	fields, err := decodeObject(line)
	if err != nil {
		return StreamInfo{}, false
	}

	var info StreamInfo
	var isHeader bool
	if n, ok := fields[fieldSampleRate]; ok {
		if hz, err := n.Float64(); err == nil {
			info.SampleRateHz = hz
			isHeader = true
		}
	}
	if n, ok := fields[fieldDecimation]; ok {
		if d, err := n.Int64(); err == nil {
			info.Decimation = int(d)
			isHeader = true
		}
	}

	// A line that also carries channel data is a sample, not a header.
	for name := range fields {
		if !reservedField(name) {
			return StreamInfo{}, false
		}
	}
	return info, isHeader
}

// timestamp resolves the session-relative time for a line, rebasing raw
// nanosecond fields against the first value seen this session.
func (p *Parser) timestamp(fields map[string]json.Number) (float64, bool, error) {
	if n, ok := fields[fieldTimeSeconds]; ok {
		t, err := n.Float64()
		if err != nil {
			return 0, false, &errors.Error{
				Message:    "t_s is not a valid float",
				Kind:       errors.PayloadMalformed,
				FieldName:  fieldTimeSeconds,
				FieldValue: n.String(),
			}
		}
		return t, true, nil
	}

	if n, ok := fields[fieldTimeNanos]; ok {
		ns, err := n.Int64()
		if err != nil {
			return 0, false, &errors.Error{
				Message:    "timestamp_ns is not a valid integer",
				Kind:       errors.PayloadMalformed,
				FieldName:  fieldTimeNanos,
				FieldValue: n.String(),
			}
		}
		if !p.rebased {
			p.rebased = true
			p.baseNS = ns
		}
		return float64(ns-p.baseNS) / 1e9, true, nil
	}

	return 0, false, nil
}

// decodeObject unmarshals a line into its numeric fields, preserving number
// text so integer nanosecond timestamps survive without float truncation.
func decodeObject(line []byte) (map[string]json.Number, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &errors.Error{
			Message:     "cannot decode line",
			Kind:        errors.PayloadMalformed,
			NestedError: err,
		}
	}

	fields := make(map[string]json.Number, len(raw))
	for name, value := range raw {
		if num, ok := value.(json.Number); ok {
			fields[name] = num
		}
	}
	return fields, nil
}
