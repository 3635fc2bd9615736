// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package aht20 controls an AHT20 temperature and humidity sensor over
// I²C. The driver validates the factory calibration on startup, checks
// every measurement with the sensor's CRC8 and implements
// physic.SenseEnv. On a corrupt read it issues a single soft reset and
// reports the error; it never re-attempts the measurement on its own.
//
// Datasheet: http://www.aosong.com/userfiles/files/media/Data%20Sheet%20AHT20.pdf
package aht20
