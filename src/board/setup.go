//go:build rp2040

/*
 * Copyright 2025 Ted Dunning
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package board brings up the Si5351 on an rp2040 board and programs the
// scan converter's pixel clock presets.
package board

import (
	"fmt"
	"machine"
	"time"

	tgsi5351 "github.com/chiefMarlin/tinygo-drivers/si5351"

	"clocksynth/src/si5351"
)

// Preset is one pixel clock, expressed as a ratio of the crystal.
type Preset struct {
	Name        string
	PLL         si5351.PLL
	Output      si5351.Output
	Numerator   uint32
	Denominator uint32
}

// Presets for a 27 MHz crystal.
var Presets = []Preset{
	{"480i/576i 27MHz", si5351.PLLA, 0, 1, 1},
	{"720p/1080i 74.25MHz", si5351.PLLA, 0, 11, 4},
	{"1080p 148.5MHz", si5351.PLLA, 0, 11, 2},
	{"480p 2x 54MHz", si5351.PLLA, 0, 2, 1},
}

// Clock is the configured generator.
type Clock struct {
	Dev *si5351.Device
}

// Setup configures I2C0, checks that the chip answers and loads its default
// register set.
func Setup() (*Clock, error) {
	// wait for the generator's own power-up
	time.Sleep(100 * time.Millisecond)

	err := machine.I2C0.Configure(machine.I2CConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to configure I2C0: %w", err)
	}

	probe := tgsi5351.New(machine.I2C0)
	connected, err := probe.Connected()
	if err != nil {
		return nil, fmt.Errorf("unable to read device status: %w", err)
	}
	if !connected {
		return nil, fmt.Errorf("unable to connect to Si5351 device")
	}

	cfg := si5351.DefaultConfig()
	cfg.Logf = func(format string, args ...interface{}) {
		fmt.Printf(format+"\n", args...)
	}
	dev := si5351.New(machine.I2C0, cfg)
	if err := dev.Init(); err != nil {
		return nil, err
	}
	return &Clock{Dev: dev}, nil
}

// Select programs preset p and waits for the PLL to lock.
func (c *Clock) Select(p Preset) error {
	plan, err := c.Dev.SetFracMult(p.PLL, p.Output, si5351.XTAL, 0, p.Numerator, p.Denominator, nil)
	if err != nil {
		return err
	}
	f, _ := plan.OutputFrequency().Float64()
	fmt.Printf("%s: CLK%d = %.3f kHz\n", p.Name, p.Output, f/1e3)
	return c.Dev.WaitLocked(p.PLL, 50*time.Millisecond)
}
