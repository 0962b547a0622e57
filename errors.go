// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edfplus

import "errors"

var (
	// ErrShapeMismatch is returned when the number of supplied sample
	// arrays does not match the number of ordinary signals in the header.
	ErrShapeMismatch = errors.New("signal count mismatch")

	// ErrDataTooLong is returned when a signal's sample array exceeds
	// SamplesPerRecord * DataRecords. Short arrays are zero-padded instead.
	ErrDataTooLong = errors.New("signal data exceeds record capacity")

	// ErrAnnotationOverflow is returned when a record's encoded annotation
	// block does not fit the annotation signal's declared sample capacity.
	ErrAnnotationOverflow = errors.New("annotations exceed annotation signal capacity")
)
