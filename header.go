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
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	fixedHeaderLen  = 256 // Fixed portion of the header.
	signalHeaderLen = 256 // Additional header bytes per signal.
)

// Per-signal header field widths, in the order the fields appear. Each
// field occupies a contiguous run of signalCount*width bytes (all labels,
// then all transducer types, and so on) before the next field begins.
const (
	labelLen             = 16
	transducerLen        = 80
	physicalDimensionLen = 8
	physicalRangeLen     = 8
	digitalRangeLen      = 8
	prefilteringLen      = 80
	samplesPerRecordLen  = 8
	signalReservedLen    = 32
)

// decodeHeader parses the fixed-layout ASCII header at the start of b.
func decodeHeader(b []byte) (*Header, error) {
	if len(b) < fixedHeaderLen {
		return nil, fmt.Errorf("header truncated: %d bytes", len(b))
	}

	hdr := &Header{}
	hdr.Version = Version(strings.TrimSpace(string(b[0:8])))
	hdr.PatientID = strings.TrimSpace(string(b[8:88]))
	hdr.RecordingID = strings.TrimSpace(string(b[88:168]))

	startTime, err := parseStartTime(
		strings.TrimSpace(string(b[168:176])),
		strings.TrimSpace(string(b[176:184])))
	if err != nil {
		return nil, err
	}
	hdr.StartTime = startTime

	headerBytes, err := strconv.Atoi(strings.TrimSpace(string(b[184:192])))
	if err != nil {
		return nil, fmt.Errorf("error parsing header bytes: %w", err)
	}
	hdr.HeaderBytes = headerBytes

	hdr.Reserved = strings.TrimSpace(string(b[192:236]))

	dataRecords, err := strconv.Atoi(strings.TrimSpace(string(b[236:244])))
	if err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}
	hdr.DataRecords = dataRecords

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(b[244:252])), 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}
	hdr.DataRecordDuration = secondsToDuration(duration)

	signalCount, err := strconv.Atoi(strings.TrimSpace(string(b[252:256])))
	if err != nil {
		return nil, fmt.Errorf("error parsing signal count: %w", err)
	}
	hdr.SignalCount = signalCount

	if len(b) < fixedHeaderLen+signalCount*signalHeaderLen {
		return nil, fmt.Errorf("signal headers truncated: %d bytes for %d signals", len(b), signalCount)
	}

	hdr.Signals = make([]Signal, signalCount)

	off := fixedHeaderLen
	next := func(width int) string {
		s := strings.TrimSpace(string(b[off : off+width]))
		off += width
		return s
	}

	for i := range hdr.Signals {
		hdr.Signals[i].Label = next(labelLen)
	}
	for i := range hdr.Signals {
		hdr.Signals[i].TransducerType = next(transducerLen)
	}
	for i := range hdr.Signals {
		hdr.Signals[i].PhysicalDimension = next(physicalDimensionLen)
	}
	for i := range hdr.Signals {
		hdr.Signals[i].PhysicalMin = parseFloat(next(physicalRangeLen))
	}
	for i := range hdr.Signals {
		hdr.Signals[i].PhysicalMax = parseFloat(next(physicalRangeLen))
	}
	for i := range hdr.Signals {
		hdr.Signals[i].DigitalMin = parseInt(next(digitalRangeLen))
	}
	for i := range hdr.Signals {
		hdr.Signals[i].DigitalMax = parseInt(next(digitalRangeLen))
	}
	for i := range hdr.Signals {
		hdr.Signals[i].Prefiltering = next(prefilteringLen)
	}
	for i := range hdr.Signals {
		hdr.Signals[i].SamplesPerRecord = parseInt(next(samplesPerRecordLen))
	}
	for i := range hdr.Signals {
		hdr.Signals[i].Reserved = next(signalReservedLen)
	}

	return hdr, nil
}

// encodeHeader serializes the header in the fixed ASCII layout.
// HeaderBytes is recomputed from the signal count rather than trusting the
// caller-supplied value.
func encodeHeader(hdr *Header) []byte {
	var buf bytes.Buffer
	buf.Grow(fixedHeaderLen + len(hdr.Signals)*signalHeaderLen)

	writeField(&buf, string(hdr.Version), 8)
	writeField(&buf, hdr.PatientID, 80)
	writeField(&buf, hdr.RecordingID, 80)
	writeField(&buf, hdr.StartTime.Format("02.01.06"), 8)
	writeField(&buf, hdr.StartTime.Format("15.04.05"), 8)
	writeField(&buf, strconv.Itoa(fixedHeaderLen+len(hdr.Signals)*signalHeaderLen), 8)
	writeField(&buf, hdr.Reserved, 44)
	writeField(&buf, strconv.Itoa(hdr.DataRecords), 8)
	writeField(&buf, strconv.FormatFloat(hdr.DataRecordDuration.Seconds(), 'f', 6, 64), 8)
	writeField(&buf, strconv.Itoa(len(hdr.Signals)), 4)

	for _, signal := range hdr.Signals {
		writeField(&buf, signal.Label, labelLen)
	}
	for _, signal := range hdr.Signals {
		writeField(&buf, signal.TransducerType, transducerLen)
	}
	for _, signal := range hdr.Signals {
		writeField(&buf, signal.PhysicalDimension, physicalDimensionLen)
	}
	for _, signal := range hdr.Signals {
		writeField(&buf, formatPhysicalValue(signal.PhysicalMin), physicalRangeLen)
	}
	for _, signal := range hdr.Signals {
		writeField(&buf, formatPhysicalValue(signal.PhysicalMax), physicalRangeLen)
	}
	for _, signal := range hdr.Signals {
		writeField(&buf, strconv.Itoa(signal.DigitalMin), digitalRangeLen)
	}
	for _, signal := range hdr.Signals {
		writeField(&buf, strconv.Itoa(signal.DigitalMax), digitalRangeLen)
	}
	for _, signal := range hdr.Signals {
		writeField(&buf, signal.Prefiltering, prefilteringLen)
	}
	for _, signal := range hdr.Signals {
		writeField(&buf, strconv.Itoa(signal.SamplesPerRecord), samplesPerRecordLen)
	}
	for _, signal := range hdr.Signals {
		writeField(&buf, signal.Reserved, signalReservedLen)
	}

	return buf.Bytes()
}

// writeField writes s left-justified and space-padded to the given width.
// Overlong values are truncated, which the EDF standard permits.
func writeField(buf *bytes.Buffer, s string, width int) {
	if len(s) > width {
		s = s[:width]
	}
	buf.WriteString(s)
	for i := len(s); i < width; i++ {
		buf.WriteByte(' ')
	}
}

// parseStartTime parses the dd.mm.yy and hh.mm.ss header fields. Two-digit
// years at or above 85 are in the 1900s, per the EDF convention that no
// recording predates 1985.
func parseStartTime(dateStr, timeStr string) (time.Time, error) {
	var day, month, year int
	if _, err := fmt.Sscanf(dateStr, "%d.%d.%d", &day, &month, &year); err != nil {
		return time.Time{}, fmt.Errorf("error parsing start date: %w", err)
	}
	if year >= 85 {
		year += 1900
	} else {
		year += 2000
	}

	var hour, minute, second int
	if _, err := fmt.Sscanf(timeStr, "%d.%d.%d", &hour, &minute, &second); err != nil {
		return time.Time{}, fmt.Errorf("error parsing start time: %w", err)
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), nil
}

func formatPhysicalValue(val float64) string {
	// Try with 2 decimal places
	s := strconv.FormatFloat(val, 'f', 2, 64)
	if len(s) > physicalRangeLen {
		// Fall back to no decimal
		s = strconv.FormatFloat(val, 'f', 0, 64)
	}
	return s
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// secondsToDuration converts a decimal seconds value to a Duration,
// rounding to the nearest nanosecond so text round-trips are exact.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
