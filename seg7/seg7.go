// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package seg7

import (
	"runtime"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
)

// NumDigits is the number of digit positions on the display.
const NumDigits = 4

// blankWord carries no segment data and no digit-select bit, so a pass
// transmitting it leaves the display dark for one refresh slot.
const blankWord uint16 = 0

// Brightness selects the duty-cycle divisor for one digit. A digit at
// divisor N is blanked for N refresh passes out of every N+1, which
// approximates analog brightness control digitally.
type Brightness uint8

const (
	Level5Max Brightness = 0
	Level4    Brightness = 1
	Level3    Brightness = 5
	Level2    Brightness = 15
	Level1Min Brightness = 30
	// AlwaysOn disables duty cycling for the digit: every refresh pass
	// transmits the real segment word.
	AlwaysOn Brightness = 255
)

// Transmitter starts an asynchronous transfer of one 16-bit display word.
// The transfer completes out of band: the platform (or the test harness)
// must invoke Dev.TransferComplete once the word is on the wire. There is
// exactly one production implementation, over SPI; tests substitute a
// fake.
type Transmitter interface {
	Transmit(word uint16) error
}

// refresh state machine states, one transition per Tick.
type state uint8

const (
	statePrepare state = iota
	stateStartSending
	stateWaitTransfer
	statePost
	stateWait
)

// frameBuffer is one publishable frame: a segment word and a brightness
// skip value per digit.
type frameBuffer struct {
	words [NumDigits]uint16
	skip  [NumDigits]uint8
}

// Dev drives a multiplexed 4-digit 7-segment display behind a serial
// latch. The application publishes frames with Send; the platform timer
// calls Tick at a fixed period and the serial layer calls TransferComplete
// when a word has been shifted out.
//
// Send may run concurrently with Tick. Everything else on Dev belongs to
// the tick context and must not be called concurrently with it.
type Dev struct {
	t  Transmitter
	cs gpio.PinOut

	// bufs is the double buffer. The slot indexed by active is read by
	// the refresh cycle; Send only ever writes the other one.
	bufs [2]frameBuffer
	// skipCount is owned exclusively by the refresh cycle.
	skipCount [NumDigits]uint8

	// active flips only in PREPARE, in tick context. frameReady is the
	// SPSC handoff: Send stores the inactive slot, then releases it with
	// frameReady.Store(true); PREPARE consumes it with an acquiring Load
	// before flipping. transferDone is set from the transfer-complete
	// callback and polled in WAIT_TRANSFER.
	active       atomic.Uint32
	frameReady   atomic.Bool
	transferDone atomic.Bool

	state state
	digit int
	cur   *frameBuffer

	initialized bool

	stop chan struct{}
	done chan struct{}
}

// New returns a display driver whose refresh cycle is driven externally:
// the caller wires Tick and TransferComplete into its timer and serial
// interrupt dispatch. Use NewSPI for the self-driving production setup.
func New(t Transmitter, cs gpio.PinOut, opts *Opts) (*Dev, error) {
	if t == nil || cs == nil {
		return nil, ErrNotInitialized
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{t: t, cs: cs}
	for i := range d.bufs[0].skip {
		d.bufs[0].skip[i] = uint8(AlwaysOn)
		d.bufs[1].skip[i] = uint8(AlwaysOn)
	}
	// Chip select idles high; a transaction asserts it low.
	if err := d.cs.Out(gpio.High); err != nil {
		return nil, err
	}
	d.initialized = true
	return d, nil
}

// Send publishes one frame: exactly NumDigits segment words and as many
// brightness levels. The frame becomes visible at the next safe swap
// point of the refresh cycle, never mid-transfer.
//
// At most one frame can be in flight: if a previously published frame has
// not been consumed yet, Send spins until the refresh cycle picks it up.
// The wait is bounded by one refresh step of the tick driver, so this is
// a blocking call of bounded but non-zero duration.
func (d *Dev) Send(words []uint16, levels []Brightness) error {
	if !d.initialized {
		return ErrNotInitialized
	}
	if len(words) != NumDigits || len(levels) != NumDigits {
		return ErrInvalidParameters
	}
	for d.frameReady.Load() {
		runtime.Gosched()
	}
	// The refresh cycle reads bufs[active] only, and it will not flip
	// active until frameReady is raised below, so this slot is provably
	// ours to write.
	inactive := &d.bufs[d.active.Load()^1]
	for i := range inactive.words {
		inactive.words[i] = words[i]
		inactive.skip[i] = uint8(levels[i])
	}
	d.frameReady.Store(true)
	return nil
}

// Tick advances the refresh state machine by one step. It is the periodic
// timer callback entry point and must only be called from one goroutine
// (the tick context).
func (d *Dev) Tick() {
	switch d.state {
	case statePrepare:
		// Sole swap point. Flipping here guarantees the in-progress
		// digit transaction always completes against a self-consistent
		// buffer.
		if d.frameReady.Load() {
			d.active.Store(d.active.Load() ^ 1)
			d.frameReady.Store(false)
		}
		d.cur = &d.bufs[d.active.Load()]
		_ = d.cs.Out(gpio.Low)
		d.state = stateStartSending

	case stateStartSending:
		d.transferDone.Store(false)
		lvl := Brightness(d.cur.skip[d.digit])
		if lvl == AlwaysOn || d.skipCount[d.digit] >= uint8(lvl) {
			_ = d.t.Transmit(d.cur.words[d.digit])
			d.skipCount[d.digit] = 0
		} else {
			_ = d.t.Transmit(blankWord)
			d.skipCount[d.digit]++
		}
		d.state = stateWaitTransfer

	case stateWaitTransfer:
		// Busy-poll, one probe per tick. Bounded by one serial word time.
		if d.transferDone.Load() {
			d.state = statePost
		}

	case statePost:
		_ = d.cs.Out(gpio.High)
		d.state = stateWait

	case stateWait:
		d.digit = (d.digit + 1) % NumDigits
		d.state = statePrepare
	}
}

// TransferComplete is the serial transfer-complete callback entry point.
// It may be called from any context.
func (d *Dev) TransferComplete() {
	d.transferDone.Store(true)
}

// Halt implements conn.Resource. It stops the internal tick driver if one
// was started by NewSPI and releases the chip-select line.
func (d *Dev) Halt() error {
	if d.stop != nil {
		close(d.stop)
		<-d.done
		d.stop = nil
	}
	return d.cs.Out(gpio.High)
}

func (d *Dev) String() string {
	return "seg7"
}
