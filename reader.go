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
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Decoder reads EDF/EDF+ data from an in-memory buffer. The buffer is
// never mutated; parsed state is cached per instance, so a Decoder shared
// across goroutines needs external synchronization.
type Decoder struct {
	data        []byte
	hdr         *Header
	dataRecords int
	recordSize  int
	timestamps  []time.Duration
}

// New creates a Decoder for the given buffer, which must hold a complete
// EDF/EDF+ file. Gzip-compressed buffers (as produced by devices exporting
// .edf.gz) are inflated transparently.
func New(data []byte) (*Decoder, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("error opening gzip stream: %w", err)
		}
		defer zr.Close()

		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("error inflating gzip stream: %w", err)
		}
	}

	hdr, err := decodeHeader(data)
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	recordSize := 0
	for _, signal := range hdr.Signals {
		recordSize += signal.SamplesPerRecord * 2
	}

	// Writers that were interrupted before finalizing the header leave the
	// record count as -1; recover it from the buffer length. A trailing
	// partial record is ignored either way.
	dataRecords := hdr.DataRecords
	if recordSize > 0 {
		available := (len(data) - hdr.HeaderBytes) / recordSize
		if available < 0 {
			available = 0
		}
		if dataRecords < 0 || dataRecords > available {
			dataRecords = available
		}
	} else if dataRecords < 0 {
		dataRecords = 0
	}
	hdr.DataRecords = dataRecords

	return &Decoder{
		data:        data,
		hdr:         hdr,
		dataRecords: dataRecords,
		recordSize:  recordSize,
	}, nil
}

// Header returns a copy of the parsed header. Mutating the copy does not
// affect the Decoder's cached state.
func (d *Decoder) Header() Header {
	hdr := *d.hdr
	hdr.Signals = append([]Signal(nil), d.hdr.Signals...)
	return hdr
}

// DataRecords returns the number of complete data records in the buffer.
func (d *Decoder) DataRecords() int {
	return d.dataRecords
}

// ReadSignal reads all samples of the given signal as physical values.
func (d *Decoder) ReadSignal(signalIndex int) ([]float64, error) {
	return d.ReadSignalRange(signalIndex, 0, d.dataRecords)
}

// ReadSignalRange reads the samples of the given signal for records
// [from, to), concatenated in record order.
func (d *Decoder) ReadSignalRange(signalIndex, from, to int) ([]float64, error) {
	if signalIndex < 0 || signalIndex >= len(d.hdr.Signals) {
		return nil, fmt.Errorf("signal index %d out of range", signalIndex)
	}
	if err := d.checkRecordRange(from, to); err != nil {
		return nil, err
	}

	signal := d.hdr.Signals[signalIndex]
	if signal.IsAnnotation() {
		return nil, fmt.Errorf("signal %d is an annotation channel", signalIndex)
	}

	samples := make([]float64, 0, (to-from)*signal.SamplesPerRecord)
	for record := from; record < to; record++ {
		window := d.signalWindow(signalIndex, record)
		for i := 0; i < signal.SamplesPerRecord; i++ {
			digital := int16(binary.LittleEndian.Uint16(window[i*2:]))
			samples = append(samples, convertDigitalToPhysical(digital,
				signal.DigitalMin, signal.DigitalMax, signal.PhysicalMin, signal.PhysicalMax))
		}
	}

	return samples, nil
}

// ReadAnnotations reads the annotations of the whole recording, in storage
// order. A recording without an annotation channel yields no annotations.
func (d *Decoder) ReadAnnotations() ([]Annotation, error) {
	return d.ReadAnnotationsRange(0, d.dataRecords)
}

// ReadAnnotationsRange reads the annotations stored in records [from, to).
// Timekeeping TALs are consumed for record timing only and never returned.
func (d *Decoder) ReadAnnotationsRange(from, to int) ([]Annotation, error) {
	if err := d.checkRecordRange(from, to); err != nil {
		return nil, err
	}

	var annotations []Annotation
	for signalIndex, signal := range d.hdr.Signals {
		if !signal.IsAnnotation() {
			continue
		}
		for record := from; record < to; record++ {
			for _, t := range parseTALs(d.signalWindow(signalIndex, record)) {
				annotations = append(annotations, t.annotations()...)
			}
		}
	}

	return annotations, nil
}

// RecordTimestamp returns the given record's onset relative to the
// recording start. For continuous recordings this is simply
// record * DataRecordDuration; for discontinuous recordings it is
// recovered from the record's timekeeping TAL.
func (d *Decoder) RecordTimestamp(record int) (time.Duration, error) {
	timestamps, err := d.RecordTimestamps()
	if err != nil {
		return 0, err
	}
	if record < 0 || record >= len(timestamps) {
		return 0, fmt.Errorf("record index %d out of range", record)
	}
	return timestamps[record], nil
}

// RecordTimestamps returns the onsets of all records relative to the
// recording start. The table is computed once and cached.
func (d *Decoder) RecordTimestamps() ([]time.Duration, error) {
	if d.timestamps == nil {
		timestamps := make([]time.Duration, d.dataRecords)
		for record := range timestamps {
			timestamps[record] = d.recordOnset(record)
		}
		d.timestamps = timestamps
	}
	return append([]time.Duration(nil), d.timestamps...), nil
}

// recordOnset recovers one record's onset. The timekeeping TAL is
// authoritative, but some real-world files zero it out on every record; in
// that case any non-zero annotation onset in the record is a better guess
// than zero, and the nominal continuous-recording onset is the last resort.
func (d *Decoder) recordOnset(record int) time.Duration {
	nominal := time.Duration(record) * d.hdr.DataRecordDuration

	annotationIndex := -1
	for i, signal := range d.hdr.Signals {
		if signal.IsAnnotation() {
			annotationIndex = i
			break
		}
	}
	if annotationIndex < 0 {
		return nominal
	}

	tals := parseTALs(d.signalWindow(annotationIndex, record))
	if len(tals) == 0 {
		return nominal
	}
	if tals[0].onset != 0 || record == 0 {
		return tals[0].onset
	}
	for _, t := range tals {
		if t.onset != 0 {
			return t.onset
		}
	}
	return nominal
}

// signalWindow returns the byte window of one signal within one record.
func (d *Decoder) signalWindow(signalIndex, record int) []byte {
	offset := d.hdr.HeaderBytes + record*d.recordSize
	for _, signal := range d.hdr.Signals[:signalIndex] {
		offset += signal.SamplesPerRecord * 2
	}
	return d.data[offset : offset+d.hdr.Signals[signalIndex].SamplesPerRecord*2]
}

func (d *Decoder) checkRecordRange(from, to int) error {
	if from < 0 || to > d.dataRecords || from > to {
		return fmt.Errorf("record range [%d, %d) out of bounds for %d records", from, to, d.dataRecords)
	}
	return nil
}

// convertDigitalToPhysical converts a digital value from the data record to a physical value using the calibration factors.
func convertDigitalToPhysical(digital int16, dmin, dmax int, pmin, pmax float64) float64 {
	if dmax == dmin {
		return 0 // Avoid division by zero
	}
	return pmin + (float64(digital)-float64(dmin))*(pmax-pmin)/float64(dmax-dmin)
}
