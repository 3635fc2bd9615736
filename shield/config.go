// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package shield

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mfshield/devices/seg7"
)

// Duration wraps time.Duration so it round-trips through YAML in the
// "150ms" notation.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("shield: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config describes the hardware hookup and timing of the thermometer.
type Config struct {
	// SPIPort and I2CBus are registry names; empty selects the first
	// available one.
	SPIPort string `yaml:"spi_port"`
	I2CBus  string `yaml:"i2c_bus"`
	// Pin names as understood by gpioreg.
	ChipSelectPin string `yaml:"chip_select_pin"`
	ButtonAPin    string `yaml:"button_a_pin"`
	ButtonBPin    string `yaml:"button_b_pin"`
	// TickPeriod is the display multiplexing tick.
	TickPeriod Duration `yaml:"tick_period"`
	// SensePeriod is how often the sensor is sampled.
	SensePeriod Duration `yaml:"sense_period"`
	// RefreshPeriod is how often the displayed value and buttons are
	// polled.
	RefreshPeriod Duration `yaml:"refresh_period"`
	// Brightness is the display brightness, 1 (dimmest) to 5 (full).
	Brightness int `yaml:"brightness"`
}

// DefaultConfig returns the hookup of the multi-function shield on a
// Raspberry Pi.
func DefaultConfig() Config {
	return Config{
		ChipSelectPin: "GPIO8",
		ButtonAPin:    "GPIO17",
		ButtonBPin:    "GPIO27",
		TickPeriod:    Duration(seg7.DefaultOpts.TickPeriod),
		SensePeriod:   Duration(time.Second),
		RefreshPeriod: Duration(100 * time.Millisecond),
		Brightness:    5,
	}
}

// LoadConfig reads the configuration file. A missing file is created
// with the defaults so the user has something to edit.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err = SaveConfig(path, c); err != nil {
			return c, err
		}
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("shield: reading config: %w", err)
	}
	if err = yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("shield: parsing config: %w", err)
	}
	if err = c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

// SaveConfig writes the configuration file.
func SaveConfig(path string, c Config) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("shield: encoding config: %w", err)
	}
	if err = os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("shield: writing config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Brightness < 1 || c.Brightness > 5 {
		return fmt.Errorf("shield: brightness %d out of range 1..5", c.Brightness)
	}
	if c.TickPeriod <= 0 || c.SensePeriod <= 0 || c.RefreshPeriod <= 0 {
		return fmt.Errorf("shield: periods must be positive")
	}
	return nil
}

// BrightnessLevel maps the 1..5 configuration scale to a display level.
func (c *Config) BrightnessLevel() seg7.Brightness {
	switch c.Brightness {
	case 1:
		return seg7.Level1Min
	case 2:
		return seg7.Level2
	case 3:
		return seg7.Level3
	case 4:
		return seg7.Level4
	default:
		return seg7.Level5Max
	}
}
