// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package button debounces momentary switches wired active-low to GPIO
// pins. Raw edge notifications feed Registry.Interrupt; the application
// polls the stable logical state through State and Transition.
package button

import (
	"errors"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// DebounceWindow is the minimum elapsed time between accepted raw pin
// updates. Interrupts arriving inside the window are ignored.
const DebounceWindow = 20 * time.Millisecond

// maxButtons bounds the registry arena. The multi-function shield has
// three switches; eight leaves room for external wiring.
const maxButtons = 8

var ErrRegistryFull = errors.New("button: registry is full")

// State is the logical press state of a button.
type State uint8

const (
	Released State = iota
	ShortPress
)

func (s State) String() string {
	if s == ShortPress {
		return "short-press"
	}
	return "released"
}

// Event is the result of a Transition poll.
type Event uint8

const (
	// None reports no state change of interest.
	None Event = iota
	// ShortPressEvent reports a released-to-pressed transition.
	ShortPressEvent
)

// Button is one debounced switch. Handles are stable for the life of the
// registry; buttons are never removed.
//
// Interrupt runs on the pin-edge dispatch goroutine while State and
// Transition run on the polling goroutine, so everything the two sides
// share is atomic: the sampled level and the debounce timestamps. The
// logical state is owned by the polling side alone.
type Button struct {
	reg *Registry

	pin    gpio.PinIn
	number int

	// pressTime and releaseTime are nanosecond timestamps of the last
	// accepted press and release edges. levelLow is the level sampled on
	// the last accepted edge, true when logic low (pressed).
	pressTime   atomic.Int64
	releaseTime atomic.Int64
	levelLow    atomic.Bool

	state State
}

// Registry is a fixed-size arena of buttons sharing one interrupt entry
// point. Build it completely before enabling pin interrupts: Add is not
// safe against a concurrent Interrupt.
type Registry struct {
	now     func() time.Time
	buttons [maxButtons]Button
	n       int
}

// NewRegistry returns an empty registry using the wall clock (which is
// monotonic in Go) as its tick source.
func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// Add binds a button to its pin and records the initial logical state
// from an instantaneous reading. Logic low means pressed. The caller must
// not register the same pin twice; duplicates are not detected.
func (r *Registry) Add(p gpio.PinIn) (*Button, error) {
	if r.n >= len(r.buttons) {
		return nil, ErrRegistryFull
	}
	level := p.Read()
	b := &r.buttons[r.n]
	r.n++
	b.reg = r
	b.pin = p
	b.number = p.Number()
	b.state = Released
	b.levelLow.Store(level == gpio.Low)
	if level == gpio.Low {
		b.state = ShortPress
	}
	return b, nil
}

// Interrupt is the raw pin-change entry point, to be wired into the
// platform's GPIO interrupt dispatch. The pin is looked up by number with
// a linear scan; an unmatched number is a silent no-op, by design.
//
// An interrupt is only honored when both the last press and the last
// release are at least DebounceWindow old; the pin is then resampled and
// the matching timestamp updated. Anything inside the window is bounce.
func (r *Registry) Interrupt(number int) {
	b := r.lookup(number)
	if b == nil {
		return
	}
	now := r.now().UnixNano()
	if now-b.pressTime.Load() < int64(DebounceWindow) || now-b.releaseTime.Load() < int64(DebounceWindow) {
		return
	}
	low := b.pin.Read() == gpio.Low
	b.levelLow.Store(low)
	if low {
		b.pressTime.Store(now)
	} else {
		b.releaseTime.Store(now)
	}
}

func (r *Registry) lookup(number int) *Button {
	for i := 0; i < r.n; i++ {
		if r.buttons[i].number == number {
			return &r.buttons[i]
		}
	}
	return nil
}

// State resamples the pin and combines it with the last level captured by
// the interrupt handler: the button reports Released if either says
// not-pressed. The bias filters spurious presses when an edge fired but
// the level has already settled back high. The result is stored as the
// button's logical state.
func (b *Button) State() State {
	s := ShortPress
	if !b.levelLow.Load() || b.pin.Read() == gpio.High {
		s = Released
	}
	b.state = s
	return s
}

// Transition reports ShortPressEvent exactly on a released-to-pressed
// edge of the logical state and None otherwise. The freshly computed
// state is always stored, so interleaved State calls affect which edges
// Transition can still observe.
func (b *Button) Transition() Event {
	previous := b.state
	current := b.State()
	if previous == Released && current == ShortPress {
		return ShortPressEvent
	}
	return None
}
