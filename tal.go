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
	"strconv"
	"strings"
	"time"
)

// TAL (Time-stamped Annotation List) wire markers.
const (
	talFieldSep    = 0x14 // Terminates the onset/duration field and each annotation text.
	talDurationSep = 0x15 // Separates onset from duration.
	talEnd         = 0x00 // Terminates a TAL.
)

// tal is one decoded Time-stamped Annotation List: an onset, an optional
// duration and zero or more annotation texts sharing them. A tal with no
// texts is a timekeeping TAL declaring the containing record's true onset.
type tal struct {
	onset       time.Duration
	duration    time.Duration
	hasDuration bool
	texts       []string
}

// parseTALs decodes the annotation byte window of one data record. The
// window holds zero or more TALs packed back to back, each terminated by a
// null byte, with any remaining space zero-filled.
func parseTALs(window []byte) []tal {
	var tals []tal
	for _, chunk := range bytes.Split(window, []byte{talEnd}) {
		if len(bytes.TrimSpace(chunk)) == 0 {
			continue
		}
		if t, ok := parseTAL(chunk); ok {
			tals = append(tals, t)
		}
	}
	return tals
}

// parseTAL decodes a single TAL. A valid TAL starts with an explicitly
// signed decimal onset; anything else is ignored as garbage.
func parseTAL(chunk []byte) (tal, bool) {
	if chunk[0] != '+' && chunk[0] != '-' {
		return tal{}, false
	}

	parts := strings.Split(string(chunk), string(rune(talFieldSep)))

	onsetStr, durationStr, hasDuration := strings.Cut(parts[0], string(rune(talDurationSep)))
	onset, err := strconv.ParseFloat(onsetStr, 64)
	if err != nil {
		return tal{}, false
	}

	t := tal{onset: secondsToDuration(onset)}
	if hasDuration {
		duration, err := strconv.ParseFloat(durationStr, 64)
		if err != nil {
			return tal{}, false
		}
		t.duration = secondsToDuration(duration)
		t.hasDuration = true
	}

	// Empty texts are timekeeping padding, not annotations.
	for _, text := range parts[1:] {
		if text != "" {
			t.texts = append(t.texts, text)
		}
	}

	return t, true
}

// annotations converts a decoded TAL into Annotation values, one per text.
// A timekeeping TAL yields none.
func (t tal) annotations() []Annotation {
	out := make([]Annotation, 0, len(t.texts))
	for _, text := range t.texts {
		out = append(out, Annotation{
			Onset:    t.onset,
			Duration: t.duration,
			Text:     text,
		})
	}
	return out
}

// encodeRecordTALs renders the annotation block for one data record: a
// timekeeping TAL declaring the record's nominal onset, then one TAL per
// annotation whose onset falls within the record's half-open time window.
func encodeRecordTALs(record int, recordDuration time.Duration, annotations []Annotation) []byte {
	start := time.Duration(record) * recordDuration
	end := start + recordDuration

	var buf bytes.Buffer
	buf.WriteString(formatTALTime(start))
	buf.WriteByte(talFieldSep)
	buf.WriteByte(talFieldSep)
	buf.WriteByte(talEnd)

	for _, annotation := range annotations {
		if annotation.Onset < start || annotation.Onset >= end {
			continue
		}
		buf.WriteString(formatTALTime(annotation.Onset))
		if annotation.Duration > 0 {
			buf.WriteByte(talDurationSep)
			buf.WriteString(strconv.FormatFloat(annotation.Duration.Seconds(), 'f', 3, 64))
		}
		buf.WriteByte(talFieldSep)
		buf.WriteString(annotation.Text)
		buf.WriteByte(talFieldSep)
		buf.WriteByte(talEnd)
	}

	return buf.Bytes()
}

// formatTALTime renders an onset with an explicit sign, as TALs require.
func formatTALTime(d time.Duration) string {
	s := strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
	if d >= 0 {
		s = "+" + s
	}
	return s
}
