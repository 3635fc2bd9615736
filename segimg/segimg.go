// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package segimg renders a frame of the 4-digit 7-segment display into an
// image, for documentation screenshots and headless debugging of display
// content.
package segimg

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/mfshield/devices/seg7"
)

// Opts represents the rendering options.
type Opts struct {
	// On and Off are the colors of lit and dark segments. Leave nil for
	// LED red on near-black.
	On  color.Color
	Off color.Color
	// Background fills the canvas. Leave nil for black.
	Background color.Color
	// Caption is drawn centered under the digits when not empty.
	Caption string
}

// digit cell geometry, in pixels.
const (
	cellW     = 60.0
	cellH     = 100.0
	margin    = 14.0
	thickness = 8.0
	captionH  = 28.0
)

// Render draws one display frame. Each word carries the active-low
// segment code in its upper byte and the digit-select bit in its lower
// byte, exactly as transmitted to the real display.
func Render(words [seg7.NumDigits]uint16, opts *Opts) (image.Image, error) {
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.On == nil {
		o.On = color.NRGBA{R: 0xFF, G: 0x20, B: 0x10, A: 0xFF}
	}
	if o.Off == nil {
		o.Off = color.NRGBA{R: 0x28, G: 0x0A, B: 0x08, A: 0xFF}
	}
	if o.Background == nil {
		o.Background = color.Black
	}

	w := int(margin + seg7.NumDigits*(cellW+margin))
	h := int(margin*2 + cellH)
	if o.Caption != "" {
		h += captionH
	}
	dc := gg.NewContext(w, h)
	dc.SetColor(o.Background)
	dc.Clear()

	for _, word := range words {
		code := byte(word >> 8)
		for pos := 0; pos < seg7.NumDigits; pos++ {
			if byte(word)&(1<<pos) != 0 {
				x := margin + float64(pos)*(cellW+margin)
				drawDigit(dc, x, margin, code, &o)
			}
		}
	}

	if o.Caption != "" {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return nil, err
		}
		dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 16}))
		dc.SetColor(o.On)
		dc.DrawStringAnchored(o.Caption, float64(w)/2, float64(h)-captionH/2, 0.5, 0.5)
	}
	return dc.Image(), nil
}

// drawDigit draws the 7 segments and the decimal point of one digit at
// the given cell origin. Segment bits are active low, bit 0 = A through
// bit 6 = G, bit 7 = decimal point.
func drawDigit(dc *gg.Context, x, y float64, code byte, o *Opts) {
	seg := func(bit uint, x0, y0, x1, y1 float64) {
		if code&(1<<bit) == 0 {
			dc.SetColor(o.On)
		} else {
			dc.SetColor(o.Off)
		}
		dc.SetLineWidth(thickness)
		dc.DrawLine(x0, y0, x1, y1)
		dc.Stroke()
	}
	mid := y + cellH/2
	t := thickness
	seg(0, x+t, y+t/2, x+cellW-t, y+t/2)                // A
	seg(1, x+cellW-t/2, y+t, x+cellW-t/2, mid-t/2)      // B
	seg(2, x+cellW-t/2, mid+t/2, x+cellW-t/2, y+cellH-t) // C
	seg(3, x+t, y+cellH-t/2, x+cellW-t, y+cellH-t/2)    // D
	seg(4, x+t/2, mid+t/2, x+t/2, y+cellH-t)            // E
	seg(5, x+t/2, y+t, x+t/2, mid-t/2)                  // F
	seg(6, x+t, mid, x+cellW-t, mid)                    // G

	if code&(1<<7) == 0 {
		dc.SetColor(o.On)
	} else {
		dc.SetColor(o.Off)
	}
	dc.DrawCircle(x+cellW+margin/2, y+cellH, t/2)
	dc.Fill()
}
