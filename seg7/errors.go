// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package seg7

import "errors"

var (
	// ErrNotInitialized is returned when the driver is used before a
	// successful New/NewSPI, or when New is given nil hardware handles.
	ErrNotInitialized = errors.New("seg7: not initialized")
	// ErrInvalidParameters is returned by Send when the frame does not
	// hold exactly NumDigits entries.
	ErrInvalidParameters = errors.New("seg7: invalid parameters")
	// ErrSend is reserved for a transport that rejects a transfer.
	ErrSend = errors.New("seg7: send rejected by transport")
	// ErrBusy is reserved. The current design busy-waits in Send instead
	// of reporting contention.
	ErrBusy = errors.New("seg7: busy")
)
