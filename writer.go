// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edfplus

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encoder builds a complete EDF/EDF+ file in memory from a header, one
// sample array per ordinary signal and an optional annotation list.
type Encoder struct {
	hdr         Header
	signals     [][]float64
	annotations []Annotation
}

// NewEncoder creates an Encoder. signals holds physical sample values for
// the header's ordinary (non-annotation) signals, in header order. The
// annotation channel's content is generated from annotations; if the
// header declares no annotation channel and annotations are supplied, one
// is appended and sized automatically.
func NewEncoder(hdr Header, signals [][]float64, annotations []Annotation) *Encoder {
	return &Encoder{
		hdr:         hdr,
		signals:     signals,
		annotations: annotations,
	}
}

// Encode validates the inputs and returns the encoded file. On error no
// partial buffer is returned.
func (e *Encoder) Encode() ([]byte, error) {
	hdr := e.hdr
	hdr.Signals = append([]Signal(nil), e.hdr.Signals...)
	if hdr.Version == "" {
		hdr.Version = Version0
	}

	ordinary := make([]int, 0, len(hdr.Signals))
	annotationIndex := -1
	for i, signal := range hdr.Signals {
		if signal.IsAnnotation() {
			if annotationIndex < 0 {
				annotationIndex = i
			}
			continue
		}
		ordinary = append(ordinary, i)
	}
	if len(e.signals) != len(ordinary) {
		return nil, fmt.Errorf("%w: expected %d sample arrays, got %d", ErrShapeMismatch, len(ordinary), len(e.signals))
	}

	if len(e.annotations) > 0 && annotationIndex < 0 {
		hdr.Signals = append(hdr.Signals, Signal{
			Label:       AnnotationLabel,
			PhysicalMin: -1,
			PhysicalMax: 1,
			DigitalMin:  -32768,
			DigitalMax:  32767,
		})
		annotationIndex = len(hdr.Signals) - 1
	}

	dataRecords, err := e.resolveDataRecords(hdr, ordinary)
	if err != nil {
		return nil, err
	}
	hdr.DataRecords = dataRecords

	// Validate and pad the ordinary signal data up front so a failure
	// produces no partial output.
	samples := make([][]float64, len(ordinary))
	for j, i := range ordinary {
		signal := hdr.Signals[i]
		expected := signal.SamplesPerRecord * dataRecords
		data := e.signals[j]
		if len(data) > expected {
			return nil, fmt.Errorf("%w: signal %q has %d samples, capacity is %d", ErrDataTooLong, signal.Label, len(data), expected)
		}
		if len(data) < expected {
			padded := make([]float64, expected)
			copy(padded, data)
			data = padded
		}
		samples[j] = data
	}

	// Pre-encode every record's annotation block. The same blocks size the
	// annotation signal and are reused when emitting.
	var annotationBlocks [][]byte
	if annotationIndex >= 0 {
		annotationBlocks = make([][]byte, dataRecords)
		maxLen := 0
		for record := range annotationBlocks {
			block := encodeRecordTALs(record, hdr.DataRecordDuration, e.annotations)
			annotationBlocks[record] = block
			maxLen = max(maxLen, len(block))
		}

		annotationSignal := &hdr.Signals[annotationIndex]
		if annotationSignal.SamplesPerRecord == 0 {
			annotationSignal.SamplesPerRecord = (maxLen + 1) / 2
		} else if maxLen > annotationSignal.SamplesPerRecord*2 {
			return nil, fmt.Errorf("%w: a record needs %d bytes, capacity is %d",
				ErrAnnotationOverflow, maxLen, annotationSignal.SamplesPerRecord*2)
		}

		if len(e.annotations) > 0 && hdr.Reserved == "" {
			hdr.Reserved = ContinuousRecording
		}
	}

	hdr.SignalCount = len(hdr.Signals)
	hdr.HeaderBytes = fixedHeaderLen + len(hdr.Signals)*signalHeaderLen

	recordSize := 0
	for _, signal := range hdr.Signals {
		recordSize += signal.SamplesPerRecord * 2
	}

	buf := bytes.NewBuffer(make([]byte, 0, hdr.HeaderBytes+dataRecords*recordSize))
	buf.Write(encodeHeader(&hdr))

	var scratch [2]byte
	for record := 0; record < dataRecords; record++ {
		ordinalIndex := 0
		for i, signal := range hdr.Signals {
			if i == annotationIndex {
				block := annotationBlocks[record]
				buf.Write(block)
				for pad := len(block); pad < signal.SamplesPerRecord*2; pad++ {
					buf.WriteByte(0)
				}
				continue
			}

			data := samples[ordinalIndex][record*signal.SamplesPerRecord : (record+1)*signal.SamplesPerRecord]
			for _, sample := range data {
				digital := convertPhysicalToDigital(sample, signal.PhysicalMin, signal.PhysicalMax, signal.DigitalMin, signal.DigitalMax)
				binary.LittleEndian.PutUint16(scratch[:], uint16(digital))
				buf.Write(scratch[:])
			}
			ordinalIndex++
		}
	}

	return buf.Bytes(), nil
}

// resolveDataRecords determines the record count when the caller left it
// unset, from the first ordinary signal with a declared sample rate.
func (e *Encoder) resolveDataRecords(hdr Header, ordinary []int) (int, error) {
	if hdr.DataRecords > 0 {
		return hdr.DataRecords, nil
	}
	for j, i := range ordinary {
		if spr := hdr.Signals[i].SamplesPerRecord; spr > 0 {
			return (len(e.signals[j]) + spr - 1) / spr, nil
		}
	}
	return 0, fmt.Errorf("cannot determine data record count: set Header.DataRecords")
}

// convertPhysicalToDigital converts a physical value to a digital value
// using the calibration factors, rounding to the nearest step and clamping
// to the digital range.
func convertPhysicalToDigital(physical float64, pmin, pmax float64, dmin, dmax int) int16 {
	if pmax == pmin {
		return 0 // Avoid division by zero
	}
	digital := math.Round((physical-pmin)*float64(dmax-dmin)/(pmax-pmin) + float64(dmin))
	digital = math.Min(math.Max(digital, float64(dmin)), float64(dmax))
	return int16(digital)
}
