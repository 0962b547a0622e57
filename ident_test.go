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
	"testing"
	"time"

	"github.com/OpenPSG/edfplus"
	"github.com/stretchr/testify/assert"
)

func TestPatientIdentity(t *testing.T) {
	identity := edfplus.PatientIdentity{
		HospitalCode: "MCH 0234567",
		Sex:          "F",
		Birthdate:    time.Date(1951, time.August, 2, 0, 0, 0, 0, time.UTC),
		Name:         "Haagse Harry",
	}
	assert.Equal(t, "MCH_0234567 F 02-AUG-1951 Haagse_Harry", identity.String())
}

func TestPatientIdentityEmpty(t *testing.T) {
	assert.Equal(t, "X X X X", edfplus.PatientIdentity{}.String())
}

func TestRecordingIdentity(t *testing.T) {
	identity := edfplus.RecordingIdentity{
		StartDate:      time.Date(2002, time.March, 2, 0, 0, 0, 0, time.UTC),
		StudyCode:      "PSG-1234/2002",
		TechnicianCode: "NN",
		EquipmentCode:  "Telemetry03",
	}
	assert.Equal(t, "Startdate 02-MAR-2002 PSG-1234/2002 NN Telemetry03", identity.String())
}

func TestRecordingIdentityEmpty(t *testing.T) {
	assert.Equal(t, "Startdate X X X X", edfplus.RecordingIdentity{}.String())
}
