// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package chargen maps ASCII characters to the segment codes of a 4-digit
// common-anode 7-segment display and assembles the 16-bit words consumed
// by the seg7 driver.
//
// Segment codes are active low. Bit 7 is the decimal point (0 = on), bits
// 6 to 0 are segments G to A:
//
//	 --- A ---
//	|         |
//	F         B
//	|         |
//	 --- G ---
//	|         |
//	E         C
//	|         |
//	 --- D ---
//
// A display word carries the segment code in its upper byte and the digit
// select bit (1 << position) in its lower byte.
package chargen

import (
	"errors"

	"github.com/mfshield/devices/seg7"
)

// Blank is the code with every segment and the decimal point off. Any
// character without a mapping encodes as Blank.
const Blank byte = 0xFF

// pointMask clears bit 7 of a segment code to light the decimal point.
const pointMask byte = 1 << 7

var ErrBadLength = errors.New("chargen: text must have exactly one character per digit")

var codes = []struct {
	ch   byte
	code byte
}{
	{'0', 0xC0},
	{'1', 0xF9},
	{'2', 0xA4},
	{'3', 0xB0},
	{'4', 0x99},
	{'5', 0x92},
	{'6', 0x82},
	{'7', 0xF8},
	{'8', 0x80},
	{'9', 0x90},
	{'H', 0x89},
	{'h', 0x89},
	{'F', 0x8E},
	{'f', 0x8E},
	{'C', 0xC6},
	{'c', 0xC6},
	{'-', 0xBF},
}

// Code returns the segment code for ch, or Blank if the character has no
// 7-segment rendering.
func Code(ch byte) byte {
	for _, m := range codes {
		if m.ch == ch {
			return m.code
		}
	}
	return Blank
}

// Decode is the reverse lookup used by the simulators: it returns the
// character displayed by a segment code, ignoring the decimal point bit.
// Unknown patterns decode to a space.
func Decode(code byte) byte {
	code |= pointMask
	for _, m := range codes {
		if m.code == code {
			return m.ch
		}
	}
	return ' '
}

// Encode builds one display word per digit from a 4-character string and
// the per-digit decimal point statuses.
func Encode(text string, points [seg7.NumDigits]bool) ([seg7.NumDigits]uint16, error) {
	var words [seg7.NumDigits]uint16
	if len(text) != seg7.NumDigits {
		return words, ErrBadLength
	}
	for i := 0; i < seg7.NumDigits; i++ {
		code := Code(text[i])
		if points[i] {
			code &^= pointMask
		}
		words[i] = uint16(code)<<8 | 1<<i
	}
	return words, nil
}

// Display binds the encoder to a display driver.
type Display struct {
	dev *seg7.Dev
}

// NewDisplay returns a Display publishing through d.
func NewDisplay(d *seg7.Dev) (*Display, error) {
	if d == nil {
		return nil, seg7.ErrNotInitialized
	}
	return &Display{dev: d}, nil
}

// Show encodes text and publishes the frame. It inherits Send's blocking
// behavior: with a frame already pending it spins until the refresh cycle
// takes it.
func (s *Display) Show(text string, points [seg7.NumDigits]bool, levels [seg7.NumDigits]seg7.Brightness) error {
	words, err := Encode(text, points)
	if err != nil {
		return err
	}
	return s.dev.Send(words[:], levels[:])
}
