// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package aht20

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const deviceAddress = 0x38

// Commands per datasheet 5.3/5.4.
const (
	cmdStatus    byte = 0x71
	cmdInit      byte = 0xBE
	cmdMeasure   byte = 0xAC
	cmdSoftReset byte = 0xBA
)

const (
	bitBusy       byte = 1 << 7
	bitCalibrated byte = 1 << 3
)

var (
	argsInit    = []byte{cmdInit, 0x08, 0x00}
	argsMeasure = []byte{cmdMeasure, 0x33, 0x00}
)

// crc8Polynomial is x^8 + x^5 + x^4 + 1 with the x^8 term implied.
const crc8Polynomial = byte(0x31)

// Opts holds the configuration options for the sensor.
type Opts struct {
	// MeasurementReadTimeout bounds the busy-bit polling after the fixed
	// 80ms measurement delay. 0 means no timeout.
	MeasurementReadTimeout time.Duration
	// MeasurementWaitInterval is the pause between busy-bit polls. Leave
	// 0 to use the default.
	MeasurementWaitInterval time.Duration
	// ValidateData enables the CRC8 check on measurement reads.
	ValidateData bool
}

// DefaultOpts holds the default configuration options for the sensor.
var DefaultOpts = Opts{
	MeasurementReadTimeout:  150 * time.Millisecond,
	MeasurementWaitInterval: 10 * time.Millisecond,
	ValidateData:            true,
}

// Dev is an AHT20 sensor. It implements physic.SenseEnv.
type Dev struct {
	d    *i2c.Dev
	opts Opts

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewI2C returns a driver for the AHT20 on the given bus. It validates
// the sensor's calibration status and triggers the initialization
// sequence if the calibration bit is clear; if the bit still does not
// come up, a NotCalibratedError is returned. The Opts can be nil.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.MeasurementWaitInterval <= 0 {
		o.MeasurementWaitInterval = DefaultOpts.MeasurementWaitInterval
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: deviceAddress}, opts: o}
	if err := d.validateCalibration(); err != nil {
		return nil, err
	}
	return d, nil
}

// validateCalibration reads the status word and, when the calibration bit
// is clear, runs the datasheet initialization sequence once and rechecks.
func (d *Dev) validateCalibration() error {
	status, err := d.readStatus()
	if err != nil {
		return fmt.Errorf("aht20: could not read status: %w", err)
	}
	if status&bitCalibrated != 0 {
		return nil
	}
	if err := d.d.Tx(argsInit, nil); err != nil {
		return fmt.Errorf("aht20: could not calibrate: %w", err)
	}
	time.Sleep(10 * time.Millisecond) // per datasheet 5.4
	if status, err = d.readStatus(); err != nil {
		return fmt.Errorf("aht20: could not read status: %w", err)
	}
	if status&bitCalibrated == 0 {
		return &NotCalibratedError{}
	}
	return nil
}

func (d *Dev) readStatus() (byte, error) {
	var status [1]byte
	if err := d.d.Tx([]byte{cmdStatus}, status[:]); err != nil {
		return 0, err
	}
	return status[0], nil
}

// Sense implements physic.SenseEnv. It triggers one measurement and
// blocks for at least the 80ms conversion time. Pressure is always 0, the
// AHT20 does not measure it.
//
// If ValidateData is set and the CRC8 check fails, the sensor is
// soft-reset exactly once and a DataCorruptionError is returned without
// re-attempting the measurement.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.d.Tx(argsMeasure, nil); err != nil {
		return fmt.Errorf("aht20: could not trigger measurement: %w", err)
	}
	time.Sleep(80 * time.Millisecond) // conversion time per datasheet 5.4

	var data [7]byte
	end := time.Now().Add(d.opts.MeasurementReadTimeout)
	for d.opts.MeasurementReadTimeout <= 0 || time.Now().Before(end) {
		if err := d.d.Tx(nil, data[:]); err != nil {
			return fmt.Errorf("aht20: could not read measurement: %w", err)
		}
		if data[0]&bitBusy != 0 {
			time.Sleep(d.opts.MeasurementWaitInterval)
			continue
		}
		if d.opts.ValidateData && crc8(data[:6]) != data[6] {
			// Retry ceiling: one soft reset, no new measurement.
			_ = d.softReset()
			return &DataCorruptionError{}
		}
		if data[0]&bitCalibrated == 0 {
			return &NotCalibratedError{}
		}
		decode(data[:], e)
		return nil
	}
	return &ReadTimeoutError{}
}

// decode applies the datasheet 6.1/6.2 transformations to a raw
// measurement.
func decode(data []byte, e *physic.Env) {
	hRaw := uint32(data[1])<<12 | uint32(data[2])<<4 | uint32(data[3])>>4
	tRaw := uint32(data[3]&0x0F)<<16 | uint32(data[4])<<8 | uint32(data[5])

	humidityRH := float64(hRaw) / 1048576.0 * 100.0 // 2^20
	temperatureC := float64(tRaw)/1048576.0*200.0 - 50.0

	e.Humidity = physic.RelativeHumidity(humidityRH * float64(physic.PercentRH))
	e.Temperature = physic.Temperature(temperatureC*float64(physic.Kelvin)) + physic.ZeroCelsius
}

// SenseContinuous implements physic.SenseEnv. It returns a channel
// receiving a measurement every interval until Halt is called. Failed
// measurements are skipped.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wg.Add(1)

	sensing := make(chan physic.Env)
	stop := make(chan struct{})
	d.stop = stop
	go func() {
		defer d.wg.Done()
		defer close(sensing)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				var e physic.Env
				if err := d.Sense(&e); err != nil {
					continue
				}
				select {
				case sensing <- e:
				case <-stop:
					return
				}
			}
		}
	}()
	return sensing, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Humidity = 24 * physic.MilliRH
}

// SoftReset reboots and re-calibrates the sensor.
func (d *Dev) SoftReset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.softReset()
}

func (d *Dev) softReset() error {
	if err := d.d.Tx([]byte{cmdSoftReset}, nil); err != nil {
		return fmt.Errorf("aht20: could not soft reset: %w", err)
	}
	time.Sleep(20 * time.Millisecond) // per datasheet 5.5
	return nil
}

// Halt stops a SenseContinuous goroutine, if any.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	d.wg.Wait()
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("AHT20{%s}", d.d)
}

// crc8 is the AHT20's CRC: initial value 0xFF, polynomial 0x31.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ crc8Polynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

var _ physic.SenseEnv = &Dev{}
