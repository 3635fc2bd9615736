// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/mfshield/devices/aht20"
	"github.com/mfshield/devices/button"
	"github.com/mfshield/devices/chargen"
	"github.com/mfshield/devices/seg7"
	"github.com/mfshield/devices/segterm"
	"github.com/mfshield/devices/shield"
)

func run(configPath string, simulation bool, stop <-chan struct{}) error {
	cfg, err := shield.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if simulation {
		return runSimulation(cfg, stop)
	}
	return runHardware(cfg, stop)
}

func runHardware(cfg shield.Config, stop <-chan struct{}) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host init: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return fmt.Errorf("opening SPI port %q: %w", cfg.SPIPort, err)
	}
	defer port.Close()

	cs := gpioreg.ByName(cfg.ChipSelectPin)
	if cs == nil {
		return fmt.Errorf("chip select pin %q not found", cfg.ChipSelectPin)
	}
	display, err := seg7.NewSPI(port, cs, &seg7.Opts{TickPeriod: time.Duration(cfg.TickPeriod)})
	if err != nil {
		return err
	}
	defer display.Halt()

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return fmt.Errorf("opening I²C bus %q: %w", cfg.I2CBus, err)
	}
	defer bus.Close()
	sensor, err := aht20.NewI2C(bus, nil)
	if err != nil {
		return err
	}
	defer sensor.Halt()

	reg := button.NewRegistry()
	var pins []gpio.PinIn
	var btns [2]*button.Button
	for i, name := range []string{cfg.ButtonAPin, cfg.ButtonBPin} {
		p := gpioreg.ByName(name)
		if p == nil {
			return fmt.Errorf("button pin %q not found", name)
		}
		if err = p.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return fmt.Errorf("configuring button pin %q: %w", name, err)
		}
		if btns[i], err = reg.Add(p); err != nil {
			return err
		}
		pins = append(pins, p)
	}
	shield.WatchPins(reg, stop, pins...)

	screen, err := chargen.NewDisplay(display)
	if err != nil {
		return err
	}
	th := shield.New(screen, sensor, btns[0], btns[1], cfg.BrightnessLevel())
	th.Run(stop, time.Duration(cfg.RefreshPeriod), time.Duration(cfg.SensePeriod))
	return nil
}

// runSimulation runs without hardware: the display renders to the
// terminal, the sensor is a slow random walk around room conditions and
// typing "a" or "b" plus enter presses the corresponding button.
func runSimulation(cfg shield.Config, stop <-chan struct{}) error {
	term := segterm.New(&segterm.Opts{RefreshInterval: 100 * time.Millisecond})
	cs := &gpiotest.Pin{N: "CS"}
	display, err := seg7.New(term, cs, nil)
	if err != nil {
		return err
	}
	term.Complete(display.TransferComplete)
	// A real tick period would spin a core for nothing here; a sweep
	// every few milliseconds is far beyond what the eye needs.
	display.StartTicker(500 * time.Microsecond)
	defer display.Halt()
	defer term.Halt()

	reg := button.NewRegistry()
	pa := &gpiotest.Pin{N: "SW-A", Num: 1, L: gpio.High}
	pb := &gpiotest.Pin{N: "SW-B", Num: 2, L: gpio.High}
	a, err := reg.Add(pa)
	if err != nil {
		return err
	}
	b, err := reg.Add(pb)
	if err != nil {
		return err
	}
	go readKeys(reg, pa, pb, stop)

	screen, err := chargen.NewDisplay(display)
	if err != nil {
		return err
	}
	th := shield.New(screen, &simSensor{}, a, b, cfg.BrightnessLevel())
	th.Run(stop, time.Duration(cfg.RefreshPeriod), time.Duration(cfg.SensePeriod))
	return nil
}

// readKeys maps stdin lines to button presses.
func readKeys(reg *button.Registry, pa, pb *gpiotest.Pin, stop <-chan struct{}) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		select {
		case <-stop:
			return
		default:
		}
		var p *gpiotest.Pin
		switch sc.Text() {
		case "a", "A":
			p = pa
		case "b", "B":
			p = pb
		default:
			continue
		}
		// Hold the press past a full refresh period so the poll cannot
		// miss it.
		p.L = gpio.Low
		reg.Interrupt(p.Num)
		time.Sleep(250 * time.Millisecond)
		p.L = gpio.High
		reg.Interrupt(p.Num)
	}
}

// simSensor is a random walk around room conditions.
type simSensor struct {
	temp float64
	hum  float64
}

func (s *simSensor) Sense(e *physic.Env) error {
	if s.temp == 0 {
		s.temp, s.hum = 21.5, 48
		logrus.Info("simulated sensor started")
	}
	s.temp += (rand.Float64() - 0.5) / 5
	s.hum += rand.Float64() - 0.5
	e.Temperature = physic.ZeroCelsius + physic.Temperature(s.temp*float64(physic.Kelvin))
	e.Humidity = physic.RelativeHumidity(s.hum * float64(physic.PercentRH))
	return nil
}
