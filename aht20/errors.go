// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package aht20

// NotCalibratedError reports that the sensor did not confirm its
// calibration after an initialization attempt.
type NotCalibratedError struct{}

func (e *NotCalibratedError) Error() string {
	return "aht20: sensor is not calibrated"
}

// ReadTimeoutError reports that the sensor stayed busy past the
// configured measurement timeout.
type ReadTimeoutError struct{}

func (e *ReadTimeoutError) Error() string {
	return "aht20: measurement did not finish in time"
}

// DataCorruptionError reports a CRC8 mismatch on a measurement read. The
// driver has already soft-reset the sensor once when this is returned;
// the caller decides whether to measure again.
type DataCorruptionError struct{}

func (e *DataCorruptionError) Error() string {
	return "aht20: measurement failed the CRC8 check"
}
