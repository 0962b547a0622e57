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
	"strings"
	"time"
)

// PatientIdentity builds an EDF+ conformant local patient identification
// string for Header.PatientID. Zero-valued fields render as "X".
type PatientIdentity struct {
	HospitalCode string    // Hospital administration code
	Sex          string    // "M", "F" or empty if withheld
	Birthdate    time.Time // Zero if unknown
	Name         string    // Patient name
}

func (p PatientIdentity) String() string {
	return strings.Join([]string{
		identField(p.HospitalCode),
		identField(p.Sex),
		identDate(p.Birthdate),
		identField(p.Name),
	}, " ")
}

// RecordingIdentity builds an EDF+ conformant local recording
// identification string for Header.RecordingID.
type RecordingIdentity struct {
	StartDate      time.Time // Zero if unknown
	StudyCode      string    // Hospital administration code of the investigation
	TechnicianCode string    // Responsible investigator or technician
	EquipmentCode  string    // Equipment used
}

func (r RecordingIdentity) String() string {
	return strings.Join([]string{
		"Startdate",
		identDate(r.StartDate),
		identField(r.StudyCode),
		identField(r.TechnicianCode),
		identField(r.EquipmentCode),
	}, " ")
}

// identField escapes one identification subfield. Subfields are separated
// by spaces, so embedded spaces become underscores; a missing value is "X".
func identField(s string) string {
	if s == "" {
		return "X"
	}
	return strings.ReplaceAll(s, " ", "_")
}

func identDate(t time.Time) string {
	if t.IsZero() {
		return "X"
	}
	return strings.ToUpper(t.Format("02-Jan-2006"))
}
