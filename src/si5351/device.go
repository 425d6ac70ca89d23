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

// Package si5351 plans and programs the PLL and multisynth dividers of a
// Si5351 clock generator over I2C.
//
// Planning (PlanFractional, PlanInteger, PlanExplicit) is pure and fully
// validated; Device.Apply then issues the register writes in the order the
// chip requires. A failed plan never touches the bus.
package si5351

import (
	"fmt"
	"time"

	"tinygo.org/x/drivers"
)

// Config describes how a Device is wired.
type Config struct {
	Address uint16
	XtalHz  uint32 // crystal frequency, used when ClockSource is XTAL

	// Logf receives diagnostics. Nil discards them.
	Logf func(format string, args ...interface{})
}

// DefaultConfig is a chip at DefaultAddress with a 27 MHz crystal.
func DefaultConfig() Config {
	return Config{
		Address: DefaultAddress,
		XtalHz:  27_000_000,
	}
}

func (c Config) Validate() error {
	if c.Address == 0 || c.Address > 0x7f {
		return fmt.Errorf("%w: address %#x", ErrBadConfig, c.Address)
	}
	if c.XtalHz < MinInputHz || c.XtalHz > MaxPLLInputHz {
		return fmt.Errorf("%w: crystal %d Hz", ErrBadConfig, c.XtalHz)
	}
	return nil
}

// Device is one Si5351 on an I2C bus. It is not safe for concurrent use and
// assumes nothing else reprograms the chip behind its back.
type Device struct {
	bus    drivers.I2C
	addr   uint16
	xtalHz uint32
	logf   func(format string, args ...interface{})

	// last feedback triple written to each PLL
	pll [2]pllState

	w [2]byte
	r [paramsBlockBytes]byte
}

type pllState struct {
	params Params
	valid  bool
}

// New returns a Device. Zero fields of cfg take their DefaultConfig values.
func New(bus drivers.I2C, cfg Config) *Device {
	def := DefaultConfig()
	if cfg.Address == 0 {
		cfg.Address = def.Address
	}
	if cfg.XtalHz == 0 {
		cfg.XtalHz = def.XtalHz
	}
	return &Device{
		bus:    bus,
		addr:   cfg.Address,
		xtalHz: cfg.XtalHz,
		logf:   cfg.Logf,
	}
}

const (
	initPolls    = 100
	initPollTime = time.Millisecond
)

// Init waits for the chip to finish its power-up and writes the default
// register set. Outputs are left disabled.
func (d *Device) Init() error {
	d.pll = [2]pllState{}
	ready := false
	for i := 0; i < initPolls; i++ {
		v, err := d.readReg(regDeviceStatus)
		if err != nil {
			return err
		}
		if v&statusSysInit == 0 {
			ready = true
			break
		}
		time.Sleep(initPollTime)
	}
	if !ready {
		return ErrNotReady
	}
	for _, r := range revBRegisters {
		if err := d.writeReg(r.addr, r.value); err != nil {
			return err
		}
	}
	return nil
}

// SetFracMult programs out to produce the source frequency times
// numerator/denominator using pll. clkinHz is only consulted for CLKIN. A
// non-nil cfg is programmed as given and the ratio is ignored.
func (d *Device) SetFracMult(pll PLL, out Output, src ClockSource, clkinHz, numerator, denominator uint32, cfg *MultisynthConfig) (Plan, error) {
	var (
		p   Plan
		err error
	)
	if cfg != nil {
		p, err = PlanExplicit(pll, out, src, d.sourceHz(src, clkinHz), *cfg)
	} else {
		p, err = PlanFractional(pll, out, src, d.sourceHz(src, clkinHz), numerator, denominator)
	}
	if err != nil {
		return Plan{}, err
	}
	if !p.Explicit {
		d.log("si5351: calculated output freq: %dHz", p.OutputHz)
	}
	return p, d.Apply(p)
}

// SetIntegerMult programs out to produce the source frequency times
// multiplier, divided by the post-divider rdiv.
func (d *Device) SetIntegerMult(pll PLL, out Output, src ClockSource, clkinHz, multiplier uint32, rdiv RDiv) (Plan, error) {
	p, err := PlanInteger(pll, out, src, d.sourceHz(src, clkinHz), multiplier, rdiv)
	if err != nil {
		return Plan{}, err
	}
	return p, d.Apply(p)
}

// Apply writes p. The PLL is only reset when its feedback divider changed.
func (d *Device) Apply(p Plan) error {
	for _, w := range p.Warnings {
		d.log("%v", w)
	}
	d.log("%v", p)

	if p.Bypass {
		if err := d.configureClock(p.PLL, p.Output, p.Source, true); err != nil {
			return err
		}
		if err := d.configurePLL(p.PLL, p.Source, 0); err != nil {
			return err
		}
	} else {
		if err := d.configurePLL(p.PLL, p.Source, p.Config.ClkinDiv); err != nil {
			return err
		}
		changed, err := d.setPLLParams(p.PLL, p.Config.MSN)
		if err != nil {
			return err
		}
		if err := d.setOutputDivider(p.Output, p.Divider); err != nil {
			return err
		}
		if err := d.configureClock(p.PLL, p.Output, p.Source, false); err != nil {
			return err
		}
		// resetting avoids an occasional lockup after a feedback change
		if changed {
			if err := d.resetPLL(p.PLL); err != nil {
				return err
			}
		}
	}
	if err := d.setRDiv(p.Output, p.Config.RDiv); err != nil {
		return err
	}
	return d.EnableOutput(p.Output)
}

// XtalHz is the configured crystal frequency.
func (d *Device) XtalHz() uint32 { return d.xtalHz }

func (d *Device) sourceHz(src ClockSource, clkinHz uint32) uint32 {
	if src == CLKIN {
		return clkinHz
	}
	return d.xtalHz
}

func (d *Device) log(format string, args ...interface{}) {
	if d.logf != nil {
		d.logf(format, args...)
	}
}
