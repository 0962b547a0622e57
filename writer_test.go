// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edfplus_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/OpenPSG/edfplus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	flow := edfplus.Signal{
		Label:             "Flow",
		TransducerType:    "nasal cannula",
		PhysicalDimension: "L/s",
		PhysicalMin:       -1,
		PhysicalMax:       1,
		DigitalMin:        -32768,
		DigitalMax:        32767,
		SamplesPerRecord:  4,
	}
	hdr := testHeader(rampSignal(), flow)

	eeg := make([]float64, 512)
	for i := range eeg {
		eeg[i] = float64(i%1000) - 500
	}
	flowSamples := []float64{0.5, -0.5, 0.25, -0.25, 0.75, -0.75, 0.1, -0.1}

	annotations := []edfplus.Annotation{
		{Onset: 500 * time.Millisecond, Duration: 2 * time.Second, Text: "Central Apnea"},
		{Onset: 1500 * time.Millisecond, Text: "Lights off"},
	}

	data, err := edfplus.NewEncoder(hdr, [][]float64{eeg, flowSamples}, annotations).Encode()
	require.NoError(t, err)

	d, err := edfplus.New(data)
	require.NoError(t, err)

	got := d.Header()
	assert.Equal(t, edfplus.ContinuousRecording, got.Reserved)
	require.Equal(t, 3, got.SignalCount) // Two ordinary plus the annotation channel.

	gotEEG, err := d.ReadSignal(0)
	require.NoError(t, err)
	require.Len(t, gotEEG, 512)
	eegStep := (rampSignal().PhysicalMax - rampSignal().PhysicalMin) /
		float64(rampSignal().DigitalMax-rampSignal().DigitalMin)
	for i := range eeg {
		require.InDelta(t, eeg[i], gotEEG[i], eegStep)
	}

	gotFlow, err := d.ReadSignal(1)
	require.NoError(t, err)
	flowStep := (flow.PhysicalMax - flow.PhysicalMin) / float64(flow.DigitalMax-flow.DigitalMin)
	for i := range flowSamples {
		require.InDelta(t, flowSamples[i], gotFlow[i], flowStep)
	}

	gotAnnotations, err := d.ReadAnnotations()
	require.NoError(t, err)
	assert.Equal(t, annotations, gotAnnotations)
}

func TestQuantizationClamp(t *testing.T) {
	signal := rampSignal()
	signal.SamplesPerRecord = 4
	hdr := testHeader(signal)

	// First two samples are out of physical range and must clamp.
	data, err := edfplus.NewEncoder(hdr, [][]float64{{9999, -9999, 0, 500}}, nil).Encode()
	require.NoError(t, err)

	headerBytes := 256 + 256*1
	digital := func(i int) int16 {
		return int16(binary.LittleEndian.Uint16(data[headerBytes+i*2:]))
	}
	assert.Equal(t, int16(2047), digital(0))
	assert.Equal(t, int16(-2048), digital(1))
	assert.Equal(t, int16(2047), digital(3))
}

func TestShortSignalZeroPadded(t *testing.T) {
	signal := rampSignal()
	signal.SamplesPerRecord = 4
	hdr := testHeader(signal)
	hdr.DataRecords = 2

	data, err := edfplus.NewEncoder(hdr, [][]float64{{100, 200}}, nil).Encode()
	require.NoError(t, err)

	d, err := edfplus.New(data)
	require.NoError(t, err)

	got, err := d.ReadSignal(0)
	require.NoError(t, err)
	require.Len(t, got, 8)

	step := (signal.PhysicalMax - signal.PhysicalMin) / float64(signal.DigitalMax-signal.DigitalMin)
	require.InDelta(t, 100, got[0], step)
	require.InDelta(t, 200, got[1], step)
	for _, sample := range got[2:] {
		require.InDelta(t, 0, sample, step)
	}
}

func TestOversizedSignalData(t *testing.T) {
	signal := rampSignal()
	signal.SamplesPerRecord = 4
	hdr := testHeader(signal)
	hdr.DataRecords = 1

	data, err := edfplus.NewEncoder(hdr, [][]float64{make([]float64, 5)}, nil).Encode()
	require.ErrorIs(t, err, edfplus.ErrDataTooLong)
	assert.Nil(t, data)
}

func TestShapeMismatch(t *testing.T) {
	hdr := testHeader(rampSignal())

	_, err := edfplus.NewEncoder(hdr, [][]float64{make([]float64, 256), make([]float64, 256)}, nil).Encode()
	require.ErrorIs(t, err, edfplus.ErrShapeMismatch)

	_, err = edfplus.NewEncoder(hdr, nil, nil).Encode()
	require.ErrorIs(t, err, edfplus.ErrShapeMismatch)
}

func TestAnnotationAutoSizing(t *testing.T) {
	signal := rampSignal()
	signal.SamplesPerRecord = 2
	hdr := testHeader(signal)

	annotations := []edfplus.Annotation{
		{Onset: 500 * time.Millisecond, Duration: 17 * time.Second, Text: "Central Apnea"},
		{Onset: 700 * time.Millisecond, Text: "Another Event"},
	}

	data, err := edfplus.NewEncoder(hdr, [][]float64{make([]float64, 4)}, annotations).Encode()
	require.NoError(t, err)

	d, err := edfplus.New(data)
	require.NoError(t, err)

	got := d.Header()
	require.Len(t, got.Signals, 2)
	annotationSignal := got.Signals[1]
	assert.True(t, annotationSignal.IsAnnotation())

	// Record 0 holds the timekeeping TAL (9 bytes) plus both annotations
	// (29 and 22 bytes); its encoded length fixes the channel width at
	// ceil(maxBytes/2) samples.
	assert.Equal(t, 30, annotationSignal.SamplesPerRecord)

	gotAnnotations, err := d.ReadAnnotations()
	require.NoError(t, err)
	assert.Equal(t, annotations, gotAnnotations)
}

func TestAnnotationOverflow(t *testing.T) {
	signal := rampSignal()
	signal.SamplesPerRecord = 2
	annotationSignal := edfplus.Signal{
		Label:            edfplus.AnnotationLabel,
		PhysicalMin:      -1,
		PhysicalMax:      1,
		DigitalMin:       -32768,
		DigitalMax:       32767,
		SamplesPerRecord: 8, // 16 bytes, far too small for the text below.
	}
	hdr := testHeader(signal, annotationSignal)

	data, err := edfplus.NewEncoder(hdr, [][]float64{make([]float64, 2)}, []edfplus.Annotation{
		{Onset: 100 * time.Millisecond, Text: "An annotation that cannot possibly fit"},
	}).Encode()
	require.ErrorIs(t, err, edfplus.ErrAnnotationOverflow)
	assert.Nil(t, data)
}

func TestAnnotationWindowing(t *testing.T) {
	signal := rampSignal()
	signal.SamplesPerRecord = 2
	hdr := testHeader(signal)
	hdr.DataRecords = 2

	// Onset exactly on the record boundary: belongs to record 1's window
	// [1s, 2s), never record 0's.
	data, err := edfplus.NewEncoder(hdr, [][]float64{make([]float64, 4)}, []edfplus.Annotation{
		{Onset: time.Second, Text: "Boundary"},
	}).Encode()
	require.NoError(t, err)

	d, err := edfplus.New(data)
	require.NoError(t, err)

	first, err := d.ReadAnnotationsRange(0, 1)
	require.NoError(t, err)
	assert.Empty(t, first)

	second, err := d.ReadAnnotationsRange(1, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Boundary", second[0].Text)
	assert.Equal(t, time.Second, second[0].Onset)
}
