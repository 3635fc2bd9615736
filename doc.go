// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package devices is a container for the device drivers of the
// multi-function-shield digital thermometer: the seg7 display driver, the
// button debouncer, the chargen frame encoder and the aht20 sensor, plus
// the segterm/segimg simulators and the shield application layer.
package devices
