// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package seg7

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
)

// fakeTransmitter records every transmitted word and completes each
// transfer synchronously, so a digit transaction takes exactly 5 ticks.
type fakeTransmitter struct {
	dev   *Dev
	words []uint16
}

func (f *fakeTransmitter) Transmit(word uint16) error {
	f.words = append(f.words, word)
	if f.dev != nil {
		f.dev.TransferComplete()
	}
	return nil
}

const ticksPerDigit = 5

func newTestDev(t *testing.T) (*Dev, *fakeTransmitter, *gpiotest.Pin) {
	t.Helper()
	ft := &fakeTransmitter{}
	cs := &gpiotest.Pin{N: "CS", Num: 8, L: gpio.High}
	d, err := New(ft, cs, nil)
	if err != nil {
		t.Fatal(err)
	}
	ft.dev = d
	return d, ft, cs
}

// sweep runs one full refresh cycle over all digit positions.
func sweep(d *Dev) {
	for i := 0; i < ticksPerDigit*NumDigits; i++ {
		d.Tick()
	}
}

func TestNewNilHandles(t *testing.T) {
	cs := &gpiotest.Pin{N: "CS", Num: 8}
	if _, err := New(nil, cs, nil); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("New(nil transmitter) = %v, want ErrNotInitialized", err)
	}
	if _, err := New(&fakeTransmitter{}, nil, nil); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("New(nil cs) = %v, want ErrNotInitialized", err)
	}
}

func TestSendNotInitialized(t *testing.T) {
	var d Dev
	words := make([]uint16, NumDigits)
	levels := make([]Brightness, NumDigits)
	if err := d.Send(words, levels); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Send on zero Dev = %v, want ErrNotInitialized", err)
	}
}

func TestSendInvalidSize(t *testing.T) {
	d, _, _ := newTestDev(t)
	for _, n := range []int{0, 1, 3, 5} {
		if err := d.Send(make([]uint16, n), make([]Brightness, n)); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("Send with %d entries = %v, want ErrInvalidParameters", n, err)
		}
	}
	if err := d.Send(make([]uint16, NumDigits), make([]Brightness, 3)); !errors.Is(err, ErrInvalidParameters) {
		t.Error("Send with mismatched level count accepted")
	}
}

func TestRefreshTransmitsFrame(t *testing.T) {
	d, ft, cs := newTestDev(t)
	words := []uint16{0xC001, 0xF902, 0xA404, 0xB008}
	levels := []Brightness{AlwaysOn, AlwaysOn, AlwaysOn, AlwaysOn}
	if err := d.Send(words, levels); err != nil {
		t.Fatal(err)
	}
	sweep(d)
	if diff := cmp.Diff(words, ft.words); diff != "" {
		t.Errorf("transmitted words difference (-want +got):\n%s", diff)
	}
	if cs.L != gpio.High {
		t.Error("chip select not released after a full cycle")
	}
}

// A published frame must appear in full after one cycle; a later frame
// must fully replace it and no transmitted word may come from anywhere
// else.
func TestBufferSwapRoundTrip(t *testing.T) {
	d, ft, _ := newTestDev(t)
	always := []Brightness{AlwaysOn, AlwaysOn, AlwaysOn, AlwaysOn}
	frameA := []uint16{0xFF01, 0xFF02, 0xFF04, 0xFF08}
	frameB := []uint16{0xC001, 0xF902, 0x7F04, 0x9008}

	if err := d.Send(frameA, always); err != nil {
		t.Fatal(err)
	}
	sweep(d)
	if diff := cmp.Diff(frameA, ft.words); diff != "" {
		t.Errorf("first cycle difference (-want +got):\n%s", diff)
	}

	if err := d.Send(frameB, always); err != nil {
		t.Fatal(err)
	}
	sweep(d)
	sweep(d)
	got := ft.words[len(ft.words)-NumDigits:]
	if diff := cmp.Diff(frameB, got); diff != "" {
		t.Errorf("replacement cycle difference (-want +got):\n%s", diff)
	}
	inA := map[uint16]bool{}
	for _, w := range frameA {
		inA[w] = true
	}
	for _, w := range frameB {
		inA[w] = true
	}
	for i, w := range ft.words {
		if !inA[w] {
			t.Errorf("word %d: 0x%04x belongs to neither frame", i, w)
		}
	}
}

// Publishing mid-cycle must never tear a frame: each digit slot carries
// either the old or the new word for that position, never a stale mix
// once a full cycle has elapsed.
func TestSwapOnlyAtPreparePoint(t *testing.T) {
	d, ft, _ := newTestDev(t)
	always := []Brightness{AlwaysOn, AlwaysOn, AlwaysOn, AlwaysOn}
	frameA := []uint16{0xA000, 0xA001, 0xA002, 0xA003}
	frameB := []uint16{0xB000, 0xB001, 0xB002, 0xB003}

	if err := d.Send(frameA, always); err != nil {
		t.Fatal(err)
	}
	sweep(d)
	// Park the state machine in the middle of digit 1's transaction.
	for i := 0; i < ticksPerDigit+2; i++ {
		d.Tick()
	}
	if err := d.Send(frameB, always); err != nil {
		t.Fatal(err)
	}
	// Finish the interrupted cycle, then run a clean one.
	for i := 0; i < ticksPerDigit*(NumDigits-1)-2; i++ {
		d.Tick()
	}
	sweep(d)
	got := ft.words[len(ft.words)-NumDigits:]
	if diff := cmp.Diff(frameB, got); diff != "" {
		t.Errorf("cycle after mid-cycle publish (-want +got):\n%s", diff)
	}
}

func TestBrightnessDutyCycle(t *testing.T) {
	d, ft, _ := newTestDev(t)
	words := []uint16{0xC001, 0xF902, 0xA404, 0xB008}
	levels := []Brightness{AlwaysOn, Level4, Level3, Level5Max}
	if err := d.Send(words, levels); err != nil {
		t.Fatal(err)
	}
	const passes = 12
	for i := 0; i < passes; i++ {
		sweep(d)
	}
	lit := [NumDigits]int{}
	blank := [NumDigits]int{}
	for i, w := range ft.words {
		digit := i % NumDigits
		switch w {
		case words[digit]:
			lit[digit]++
		case blankWord:
			blank[digit]++
		default:
			t.Fatalf("word %d: unexpected 0x%04x", i, w)
		}
	}
	// AlwaysOn and divisor 0 never blank; divisor N shows 1 pass in N+1.
	want := [NumDigits]int{passes, passes / 2, passes / 6, passes}
	if diff := cmp.Diff(want, lit); diff != "" {
		t.Errorf("lit transmissions per digit (-want +got):\n%s", diff)
	}
	for digit, n := range blank {
		if n != passes-lit[digit] {
			t.Errorf("digit %d: %d blanks, want %d", digit, n, passes-lit[digit])
		}
	}
}

// Send enforces at most one frame in flight by spinning until the refresh
// cycle consumes the pending frame.
func TestSendSpinsOnPendingFrame(t *testing.T) {
	d, ft, _ := newTestDev(t)
	always := []Brightness{AlwaysOn, AlwaysOn, AlwaysOn, AlwaysOn}
	frameA := []uint16{0xA000, 0xA001, 0xA002, 0xA003}
	frameB := []uint16{0xB000, 0xB001, 0xB002, 0xB003}

	if err := d.Send(frameA, always); err != nil {
		t.Fatal(err)
	}
	done := make(chan error)
	go func() {
		done <- d.Send(frameB, always)
	}()
	select {
	case <-done:
		t.Fatal("second Send returned before the first frame was consumed")
	case <-time.After(10 * time.Millisecond):
	}
	for {
		d.Tick()
		select {
		case err := <-done:
			if err != nil {
				t.Fatal(err)
			}
			// Realign on a cycle boundary, then B must be on the wire.
			for d.state != statePrepare || d.digit != 0 {
				d.Tick()
			}
			sweep(d)
			sweep(d)
			got := ft.words[len(ft.words)-NumDigits:]
			if diff := cmp.Diff(frameB, got); diff != "" {
				t.Errorf("cycle after queued publish (-want +got):\n%s", diff)
			}
			return
		default:
		}
	}
}

func TestChipSelectFramesTransaction(t *testing.T) {
	d, _, cs := newTestDev(t)
	d.Tick() // PREPARE
	if cs.L != gpio.Low {
		t.Error("chip select not asserted in PREPARE")
	}
	d.Tick() // START_SENDING
	d.Tick() // WAIT_TRANSFER
	if cs.L != gpio.Low {
		t.Error("chip select released before the transfer ended")
	}
	d.Tick() // POST
	if cs.L != gpio.High {
		t.Error("chip select not released in POST")
	}
}

func TestNewSPI(t *testing.T) {
	port := &spitest.Record{}
	cs := &gpiotest.Pin{N: "CS", Num: 8}
	d, err := NewSPI(port, cs, &Opts{TickPeriod: 100 * time.Microsecond})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSPI(nil, cs, nil); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NewSPI(nil port) = %v, want ErrNotInitialized", err)
	}
	if _, err := NewSPI(port, cs, &Opts{TickPeriod: -time.Second}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NewSPI with negative tick period = %v, want ErrNotInitialized", err)
	}
}
