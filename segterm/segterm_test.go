// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package segterm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mfshield/devices/chargen"
	"github.com/mfshield/devices/seg7"
)

func TestTransmitDecodesSweep(t *testing.T) {
	var out bytes.Buffer
	d := New(&Opts{Writer: &out})
	words, err := chargen.Encode("C235", [seg7.NumDigits]bool{false, false, true, false})
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range words {
		if err := d.Transmit(w); err != nil {
			t.Fatal(err)
		}
	}
	if got := d.Text(); got != "C23.5" {
		t.Errorf("Text() = %q, want \"C23.5\"", got)
	}
	if !strings.Contains(out.String(), "C23.5") {
		t.Errorf("rendered output %q does not show the decoded text", out.String())
	}
}

func TestBlankPassKeepsLastCode(t *testing.T) {
	var out bytes.Buffer
	d := New(&Opts{Writer: &out})
	words, err := chargen.Encode("8888", [seg7.NumDigits]bool{})
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range words {
		_ = d.Transmit(w)
	}
	// A duty-cycled sweep blanks some digits; the emulator must keep
	// showing the last real code, dimmer, like a real display would to
	// the eye.
	_ = d.Transmit(words[0])
	_ = d.Transmit(0) // digit 1 skipped this pass
	_ = d.Transmit(words[2])
	_ = d.Transmit(words[3])
	if got := d.Text(); got != "8888" {
		t.Errorf("Text() after duty-cycled sweep = %q, want \"8888\"", got)
	}
}

func TestCompleteCallback(t *testing.T) {
	var out bytes.Buffer
	d := New(&Opts{Writer: &out})
	n := 0
	d.Complete(func() { n++ })
	_ = d.Transmit(0x8001)
	_ = d.Transmit(0)
	if n != 2 {
		t.Errorf("completion fired %d times, want 2", n)
	}
}

func TestHaltResetsTerminal(t *testing.T) {
	var out bytes.Buffer
	d := New(&Opts{Writer: &out})
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "\033[0m") {
		t.Error("Halt did not reset terminal attributes")
	}
}
