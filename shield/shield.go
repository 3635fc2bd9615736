// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package shield is the application layer of the multi-function-shield
// thermometer: it cycles the display between Celsius, Fahrenheit and
// humidity on button presses and renders sensor failures as dashes.
package shield

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/mfshield/devices/button"
	"github.com/mfshield/devices/seg7"
)

// Mode selects what the display shows.
type Mode uint8

const (
	ModeCelsius Mode = iota
	ModeFahrenheit
	ModeHumidity
)

func (m Mode) String() string {
	switch m {
	case ModeCelsius:
		return "celsius"
	case ModeFahrenheit:
		return "fahrenheit"
	case ModeHumidity:
		return "humidity"
	}
	return "unknown"
}

// event is a detected button interaction.
type event uint8

const (
	eventNone event = iota
	eventButtonA
	eventButtonB
)

// Sensor is the measurement source. *aht20.Dev implements it.
type Sensor interface {
	Sense(e *physic.Env) error
}

// Screen is the display sink. *chargen.Display implements it.
type Screen interface {
	Show(text string, points [seg7.NumDigits]bool, levels [seg7.NumDigits]seg7.Brightness) error
}

// errorText shows when the sensor is unavailable or a value does not fit
// the display.
const errorText = "----"

// decimal point after the third character: values are shown times ten,
// "C235" reads as C 23.5.
var valuePoints = [seg7.NumDigits]bool{false, false, true, false}

// Thermometer owns the display mode state machine.
type Thermometer struct {
	screen Screen
	sensor Sensor
	a, b   *button.Button
	levels [seg7.NumDigits]seg7.Brightness
	log    *logrus.Entry

	mode     Mode
	env      physic.Env
	sensorOK bool
}

// New returns a thermometer starting in Celsius mode. Buttons may be nil,
// leaving the mode fixed.
func New(screen Screen, sensor Sensor, a, b *button.Button, brightness seg7.Brightness) *Thermometer {
	t := &Thermometer{
		screen: screen,
		sensor: sensor,
		a:      a,
		b:      b,
		log:    logrus.WithField("device", "thermometer"),
	}
	for i := range t.levels {
		t.levels[i] = brightness
	}
	return t
}

// Mode returns the current display mode.
func (t *Thermometer) Mode() Mode {
	return t.mode
}

// ReadSensor samples the sensor once. A failed read switches the display
// to the error pattern until the next successful one.
func (t *Thermometer) ReadSensor() {
	if err := t.sensor.Sense(&t.env); err != nil {
		t.log.WithError(err).Warn("sensor read failed")
		t.sensorOK = false
		return
	}
	t.sensorOK = true
}

// Step publishes the current value and then lets a detected button press
// advance the mode, so the press takes effect on the next refresh.
func (t *Thermometer) Step() error {
	if !t.sensorOK {
		// The error display absorbs presses: events are still consumed
		// every cycle so a press held across recovery cannot fire a stale
		// mode change.
		t.detectEvent()
		return t.screen.Show(errorText, [seg7.NumDigits]bool{}, t.levels)
	}
	text, err := t.text()
	if err != nil {
		return err
	}
	points := valuePoints
	if text == errorText {
		points = [seg7.NumDigits]bool{}
	}
	if err := t.screen.Show(text, points, t.levels); err != nil {
		return err
	}
	switch t.detectEvent() {
	case eventButtonA:
		t.mode = t.next(true)
		t.log.WithField("mode", t.mode).Debug("mode changed")
	case eventButtonB:
		t.mode = t.next(false)
		t.log.WithField("mode", t.mode).Debug("mode changed")
	}
	return nil
}

// text formats the current value as a 4-character string, the value times
// ten prefixed with the unit letter. Values that do not fit the three
// remaining characters show as dashes.
func (t *Thermometer) text() (string, error) {
	var unit byte
	var value float64
	switch t.mode {
	case ModeCelsius:
		unit, value = 'C', t.env.Temperature.Celsius()
	case ModeFahrenheit:
		unit, value = 'F', t.env.Temperature.Fahrenheit()
	case ModeHumidity:
		unit, value = 'H', float64(t.env.Humidity)/float64(physic.PercentRH)
	default:
		return errorText, nil
	}
	v := int(value * 10)
	if v < -99 || v > 999 {
		return errorText, nil
	}
	return fmt.Sprintf("%c%03d", unit, v), nil
}

// next walks the mode cycle; button A goes one way, button B the other.
func (t *Thermometer) next(forward bool) Mode {
	order := [3]Mode{ModeCelsius, ModeFahrenheit, ModeHumidity}
	for i, m := range order {
		if m != t.mode {
			continue
		}
		if forward {
			return order[(i+1)%len(order)]
		}
		return order[(i+len(order)-1)%len(order)]
	}
	return ModeCelsius
}

// detectEvent polls both buttons. A short press of A wins over a
// simultaneous press of B.
func (t *Thermometer) detectEvent() event {
	detected := eventNone
	if t.a != nil && t.a.Transition() == button.ShortPressEvent {
		detected = eventButtonA
	}
	if t.b != nil && t.b.Transition() == button.ShortPressEvent && detected == eventNone {
		detected = eventButtonB
	}
	return detected
}

// Run drives the thermometer until stop is closed: the sensor is sampled
// every sense period and the display refreshed every refresh period.
func (t *Thermometer) Run(stop <-chan struct{}, refresh, sense time.Duration) {
	t.log.WithFields(logrus.Fields{
		"refresh": refresh,
		"sense":   sense,
	}).Info("thermometer running")

	t.ReadSensor()
	senseTicker := time.NewTicker(sense)
	defer senseTicker.Stop()
	refreshTicker := time.NewTicker(refresh)
	defer refreshTicker.Stop()
	for {
		select {
		case <-stop:
			t.log.Info("thermometer stopped")
			return
		case <-senseTicker.C:
			t.ReadSensor()
		case <-refreshTicker.C:
			if err := t.Step(); err != nil {
				t.log.WithError(err).Error("display refresh failed")
			}
		}
	}
}

// WatchPins forwards edge notifications from the pins into the registry,
// standing in for the platform's GPIO interrupt dispatch. Pins must
// already be configured for edge detection.
func WatchPins(reg *button.Registry, stop <-chan struct{}, pins ...gpio.PinIn) {
	for _, p := range pins {
		go func(p gpio.PinIn) {
			for {
				select {
				case <-stop:
					return
				default:
				}
				if p.WaitForEdge(500 * time.Millisecond) {
					reg.Interrupt(p.Number())
				}
			}
		}(p)
	}
}
