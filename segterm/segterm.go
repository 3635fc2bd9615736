// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package segterm emulates the 4-digit 7-segment display on the terminal
// (stdout) using ANSI color codes. It consumes the same multiplexed word
// stream the real display receives, so duty-cycle dimming shows up as
// darker digits.
//
// Useful to run the thermometer on a desk with no shield attached.
package segterm

import (
	"bytes"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mfshield/devices/chargen"
	"github.com/mfshield/devices/seg7"
)

// Opts represents the options available for this display.
type Opts struct {
	// Writer receives the rendered output. Leave nil for stdout.
	Writer io.Writer
	// Palette maps colors to ANSI codes. Leave nil for the default.
	Palette *ansi256.Palette
	// RefreshInterval limits how often the terminal line is redrawn.
	// Zero redraws on every full sweep, which is only sensible in tests.
	RefreshInterval time.Duration
}

// Dev is a 7-segment display emulator that outputs to the console. It
// implements seg7.Transmitter.
type Dev struct {
	w        io.Writer
	palette  ansi256.Palette
	interval time.Duration
	complete func()

	mu         sync.Mutex
	pos        int
	codes      [seg7.NumDigits]byte
	lit        [seg7.NumDigits]int
	passes     [seg7.NumDigits]int
	lastRender time.Time
	buf        bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	w := opts.Writer
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d := &Dev{w: w, palette: *p, interval: opts.RefreshInterval}
	for i := range d.codes {
		d.codes[i] = chargen.Blank
	}
	return d
}

func (d *Dev) String() string {
	return "SegTerm"
}

// Complete registers the transfer-complete callback fired after every
// Transmit; wire it to the display driver's TransferComplete.
func (d *Dev) Complete(f func()) {
	d.complete = f
}

// Transmit implements seg7.Transmitter. A word with a digit-select bit
// updates that digit; the all-zero blank word counts as a skipped pass
// for the digit currently being multiplexed.
func (d *Dev) Transmit(word uint16) error {
	d.mu.Lock()
	if sel := byte(word); sel != 0 {
		for i := 0; i < seg7.NumDigits; i++ {
			if sel&(1<<i) != 0 {
				d.pos = i
				d.codes[i] = byte(word >> 8)
				d.lit[i]++
			}
		}
	}
	d.passes[d.pos]++
	var err error
	if d.pos == seg7.NumDigits-1 && (d.interval == 0 || time.Since(d.lastRender) >= d.interval) {
		err = d.render()
		d.lastRender = time.Now()
	}
	d.pos = (d.pos + 1) % seg7.NumDigits
	d.mu.Unlock()
	if d.complete != nil {
		d.complete()
	}
	return err
}

// Text returns what the display currently shows, with a '.' after any
// digit whose decimal point is lit.
func (d *Dev) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text()
}

func (d *Dev) text() string {
	out := make([]byte, 0, seg7.NumDigits+1)
	for _, code := range d.codes {
		out = append(out, chargen.Decode(code))
		if code&0x80 == 0 {
			out = append(out, '.')
		}
	}
	return string(out)
}

// render redraws the line: one brightness block per digit, then the
// decoded text. Designed to minimize allocations per call, the line is
// rewritten in place with a carriage return.
func (d *Dev) render() error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < seg7.NumDigits; i++ {
		ratio := 0.0
		if d.passes[i] > 0 {
			ratio = float64(d.lit[i]) / float64(d.passes[i])
		}
		d.lit[i] = 0
		d.passes[i] = 0
		c := color.NRGBA{R: uint8(255 * ratio), A: 255}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	_, _ = d.buf.WriteString(d.text())
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Halt implements conn.Resource. It resets the terminal attributes so
// the display is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

var _ seg7.Transmitter = &Dev{}
