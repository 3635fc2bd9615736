// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package aht20_test

import (
	"fmt"
	"log"

	"github.com/mfshield/devices/aht20"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Use i2creg I²C bus registry to find the first available I²C bus.
	b, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	d, err := aht20.NewI2C(b, nil)
	if err != nil {
		log.Fatal(err)
	}

	var e physic.Env
	if err := d.Sense(&e); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s %s\n", e.Temperature, e.Humidity)
}
