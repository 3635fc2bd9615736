// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package seg7

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Opts holds the configuration options for the display driver.
type Opts struct {
	// TickPeriod is the refresh timer period used by NewSPI. A digit
	// transaction spans a handful of ticks, so the period must be short
	// enough that a full sweep of the display stays under the
	// persistence-of-vision threshold. Leave 0 to use the default.
	TickPeriod time.Duration
	// Frequency is the SPI clock used by NewSPI. Leave 0 to use the
	// default.
	Frequency physic.Frequency
}

// DefaultOpts matches the reference hardware: an 84MHz timer clock with
// prescaler 150 and auto-reload 1, about 3.6µs per tick.
var DefaultOpts = Opts{
	TickPeriod: 3595 * time.Nanosecond,
	Frequency:  8 * physic.MegaHertz,
}

// NewSPI returns a display driver over the given SPI port and chip-select
// pin, with an internal goroutine standing in for the platform's periodic
// timer. Call Halt to stop it.
func NewSPI(p spi.Port, cs gpio.PinOut, opts *Opts) (*Dev, error) {
	if p == nil || cs == nil {
		return nil, ErrNotInitialized
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	tick := opts.TickPeriod
	if tick == 0 {
		tick = DefaultOpts.TickPeriod
	}
	if tick < 0 {
		return nil, fmt.Errorf("%w: invalid tick period", ErrNotInitialized)
	}
	freq := opts.Frequency
	if freq == 0 {
		freq = DefaultOpts.Frequency
	}
	c, err := p.Connect(freq, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("seg7: %w", err)
	}
	t := &spiTransmitter{c: c}
	d, err := New(t, cs, opts)
	if err != nil {
		return nil, err
	}
	t.done = d.TransferComplete
	d.StartTicker(tick)
	return d, nil
}

// StartTicker drives Tick from a goroutine at the given period, standing
// in for the periodic timer interrupt. NewSPI calls it automatically;
// call it directly when driving an emulated transmitter built with New,
// after wiring its completion callback to TransferComplete. Halt stops
// the ticker. Calling it twice without an intervening Halt is a no-op.
func (d *Dev) StartTicker(period time.Duration) {
	if d.stop != nil {
		return
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-d.stop:
				return
			case <-t.C:
				d.Tick()
			}
		}
	}()
}

// spiTransmitter is the production Transmitter. spi.Conn.Tx is a blocking
// call, so the transfer runs on its own goroutine and reports completion
// through the driver's transfer-complete entry point, mirroring an
// interrupt-driven serial peripheral.
type spiTransmitter struct {
	c    spi.Conn
	done func()
}

func (t *spiTransmitter) Transmit(word uint16) error {
	go func() {
		w := []byte{byte(word >> 8), byte(word)}
		if err := t.c.Tx(w, nil); err != nil {
			log.Printf("seg7: transfer failed: %v", err)
		}
		t.done()
	}()
	return nil
}
