// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import (
	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
)

type (
	// DecimationMode selects how a window is reduced for display.
	DecimationMode int
)

const (
	// Envelope emits each chunk's minimum and maximum with their original
	// timestamps, preserving transient spikes that plain subsampling would
	// erase. Suited to live plotting.
	Envelope DecimationMode = iota

	// Mean emits one averaged value per chunk at the chunk's center
	// timestamp. Cheaper and smoother; suited to spectral pre-processing
	// where spike preservation is not the goal.
	Mean
)

// String returns the mode name.
func (m DecimationMode) String() string {
	switch m {
	case Envelope:
		return "envelope"
	case Mean:
		return "mean"
	}
	return "unknown"
}

// ParseDecimationMode resolves a mode name from configuration.
func ParseDecimationMode(s string) (DecimationMode, error) {
	switch s {
	case "envelope":
		return Envelope, nil
	case "mean":
		return Mean, nil
	}
	return 0, &errors.Error{
		Message:       "unknown decimation mode",
		Kind:          errors.ConfigurationInvalid,
		PropertyName:  "DecimationMode",
		PropertyValue: s,
	}
}

// Decimate reduces a window to a bounded number of points. Series at or
// below maxPoints are returned as unchanged copies. Output length is at most
// maxPoints in Mean mode and at most 2*maxPoints in Envelope mode.
func Decimate(
	times, values []float64,
	maxPoints int,
	mode DecimationMode,
) ([]float64, []float64, error) {
	if maxPoints < 2 {
		return nil, nil, &errors.Error{
			Message:       "decimation target must be at least 2 points",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "MaxPoints",
			PropertyValue: maxPoints,
		}
	}
	if len(times) != len(values) {
		return nil, nil, &errors.Error{
			Message:      "times and values lengths differ",
			Kind:         errors.ArgumentInvalid,
			PropertyName: "values",
		}
	}

	n := len(values)
	if n <= maxPoints {
		outT := make([]float64, n)
		outV := make([]float64, n)
		copy(outT, times)
		copy(outV, values)
		return outT, outV, nil
	}

	// Chunk size is rounded up so the chunk count never exceeds maxPoints.
	step := (n + maxPoints - 1) / maxPoints

	switch mode {
	case Mean:
		outT, outV := decimateMean(times, values, step)
		return outT, outV, nil

	case Envelope:
		outT, outV := decimateEnvelope(times, values, step)
		return outT, outV, nil

	default:
		return nil, nil, &errors.Error{
			Message:       "unknown decimation mode",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "DecimationMode",
			PropertyValue: int(mode),
		}
	}
}

func decimateMean(times, values []float64, step int) ([]float64, []float64) {
	n := len(values)
	chunks := (n + step - 1) / step
	outT := make([]float64, 0, chunks)
	outV := make([]float64, 0, chunks)

	for start := 0; start < n; start += step {
		end := start + step
		if end > n {
			end = n
		}
		sum := 0.0
		for _, v := range values[start:end] {
			sum += v
		}
		outT = append(outT, times[start+(end-start)/2])
		outV = append(outV, sum/float64(end-start))
	}
	return outT, outV
}

func decimateEnvelope(times, values []float64, step int) ([]float64, []float64) {
	n := len(values)
	chunks := (n + step - 1) / step
	outT := make([]float64, 0, 2*chunks)
	outV := make([]float64, 0, 2*chunks)

	for start := 0; start < n; start += step {
		end := start + step
		if end > n {
			end = n
		}

		lo, hi := start, start
		for i := start + 1; i < end; i++ {
			if values[i] < values[lo] {
				lo = i
			}
			if values[i] > values[hi] {
				hi = i
			}
		}

		// Emit min and max in time order; a single extreme is emitted once.
		first, second := lo, hi
		if times[second] < times[first] {
			first, second = second, first
		}
		outT = append(outT, times[first])
		outV = append(outV, values[first])
		if second != first {
			outT = append(outT, times[second])
			outV = append(outV, values[second])
		}
	}
	return outT, outV
}
