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

package si5351

import (
	"fmt"
	"time"
)

func (d *Device) readReg(reg uint8) (uint8, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return 0, fmt.Errorf("si5351: read reg %d: %w", reg, err)
	}
	return d.r[0], nil
}

func (d *Device) readBlock(reg uint8) ([paramsBlockBytes]byte, error) {
	var b [paramsBlockBytes]byte
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:]); err != nil {
		return b, fmt.Errorf("si5351: read reg %d: %w", reg, err)
	}
	copy(b[:], d.r[:])
	return b, nil
}

func (d *Device) writeReg(reg, value uint8) error {
	d.w[0] = reg
	d.w[1] = value
	if err := d.bus.Tx(d.addr, d.w[:2], nil); err != nil {
		return fmt.Errorf("si5351: write reg %d: %w", reg, err)
	}
	return nil
}

// updateReg replaces the bits of reg selected by mask with value.
func (d *Device) updateReg(reg, mask, value uint8) error {
	v, err := d.readReg(reg)
	if err != nil {
		return err
	}
	return d.writeReg(reg, v&^mask|value&mask)
}

func (d *Device) writeBlock(base uint8, b [paramsBlockBytes]byte) error {
	for i, v := range b {
		if err := d.writeReg(base+uint8(i), v); err != nil {
			return err
		}
	}
	return nil
}

// configurePLL selects the PLL's reference and the shared CLKIN pre-divider.
func (d *Device) configurePLL(pll PLL, src ClockSource, clkinDiv uint8) error {
	bit := uint8(1) << (pllSrcShift + pll)
	return d.updateReg(regPLLSource, bit|clkinDivMask,
		uint8(src)<<(pllSrcShift+pll)|clkinDiv<<clkinDivShift)
}

// setPLLParams writes the feedback divider unless it already holds p, and
// reports whether anything was written.
func (d *Device) setPLLParams(pll PLL, p Params) (bool, error) {
	st := &d.pll[pll]
	if st.valid && st.params == p {
		return false, nil
	}
	st.valid = false
	if err := d.writeBlock(regMSNABase+uint8(pll)*paramsBlockBytes, p.encode()); err != nil {
		return false, err
	}
	var fbInt uint8
	if p.Integer() {
		fbInt = clkIntMode
		d.log("si5351: %v feedback multisynth in integer mode", pll)
	}
	if err := d.updateReg(regClk6Control+uint8(pll), clkIntMode, fbInt); err != nil {
		return false, err
	}
	*st = pllState{params: p, valid: true}
	return true, nil
}

func (d *Device) setOutputDivider(out Output, div OutputDivider) error {
	switch div := div.(type) {
	case SimpleDivider:
		return d.writeReg(regMS6+uint8(out-6), uint8(div))
	case FullDivider:
		b := div.encode()
		if div.DivBy4 {
			b[2] |= divBy4Field << msDivBy4Shift
		}
		if err := d.writeBlock(regMS0Base+uint8(out)*paramsBlockBytes, b); err != nil {
			return err
		}
		var msInt uint8
		if div.Integer() {
			msInt = clkIntMode
			d.log("si5351: CLK%d output multisynth in integer mode", out)
		}
		return d.updateReg(regClk0Control+uint8(out), clkIntMode, msInt)
	default:
		return fmt.Errorf("%w: no divider for output %d", ErrRangeExceeded, out)
	}
}

// configureClock powers the output up and routes it from the multisynth fed
// by pll, or straight from src when bypass is set.
func (d *Device) configureClock(pll PLL, out Output, src ClockSource, bypass bool) error {
	outSrc := uint8(clkSrcMS)
	if bypass {
		outSrc = uint8(src)
	}
	return d.updateReg(regClk0Control+uint8(out),
		clkPowerDown|1<<clkMSSrcShift|clkSrcMask|clkDrive8mA,
		uint8(pll)<<clkMSSrcShift|outSrc<<clkSrcShift|clkDrive8mA)
}

func (d *Device) resetPLL(pll PLL) error {
	return d.writeReg(regPLLReset, 1<<(pllResetShift+2*uint8(pll)))
}

func (d *Device) setRDiv(out Output, r RDiv) error {
	if !out.simple() {
		return d.updateReg(regMS0Base+uint8(out)*paramsBlockBytes+2, msRDivMask, uint8(r)<<msRDivShift)
	}
	shift := 4 * uint8(out-6)
	return d.updateReg(regClk67OutDiv, 7<<shift, uint8(r)<<shift)
}

// EnableOutput clears the output's disable bit.
func (d *Device) EnableOutput(out Output) error {
	if out >= NumOutputs {
		return fmt.Errorf("%w: no such output %d", ErrRangeExceeded, out)
	}
	return d.updateReg(regOutputEnable, 1<<out, 0)
}

// DisableOutput sets the output's disable bit. Its configuration is kept.
func (d *Device) DisableOutput(out Output) error {
	if out >= NumOutputs {
		return fmt.Errorf("%w: no such output %d", ErrRangeExceeded, out)
	}
	return d.updateReg(regOutputEnable, 1<<out, 1<<out)
}

// ReadPLLParams reads back the feedback divider of pll.
func (d *Device) ReadPLLParams(pll PLL) (Params, error) {
	if pll > PLLB {
		return Params{}, fmt.Errorf("%w: no such PLL %d", ErrRangeExceeded, pll)
	}
	b, err := d.readBlock(regMSNABase + uint8(pll)*paramsBlockBytes)
	if err != nil {
		return Params{}, err
	}
	return decodeParams(b), nil
}

// ReadOutputDivider reads back the multisynth divider and post-divider of out.
func (d *Device) ReadOutputDivider(out Output) (OutputDivider, RDiv, error) {
	if out >= NumOutputs {
		return nil, 0, fmt.Errorf("%w: no such output %d", ErrRangeExceeded, out)
	}
	if out.simple() {
		v, err := d.readReg(regMS6 + uint8(out-6))
		if err != nil {
			return nil, 0, err
		}
		r, err := d.readReg(regClk67OutDiv)
		if err != nil {
			return nil, 0, err
		}
		return SimpleDivider(v), RDiv(r>>(4*uint8(out-6))) & 7, nil
	}
	b, err := d.readBlock(regMS0Base + uint8(out)*paramsBlockBytes)
	if err != nil {
		return nil, 0, err
	}
	div := FullDivider{
		Params: decodeParams(b),
		DivBy4: (b[2]>>msDivBy4Shift)&divBy4Field == divBy4Field,
	}
	return div, RDiv(b[2]&msRDivMask) >> msRDivShift, nil
}

// Status is the decoded device status register.
type Status struct {
	SysInit     bool // still initializing
	LossOfLockA bool
	LossOfLockB bool
	LossOfClkin bool
	LossOfXtal  bool
	RevID       uint8
}

// Locked reports whether pll is locked.
func (s Status) Locked(pll PLL) bool {
	if pll == PLLB {
		return !s.LossOfLockB
	}
	return !s.LossOfLockA
}

func (d *Device) Status() (Status, error) {
	v, err := d.readReg(regDeviceStatus)
	if err != nil {
		return Status{}, err
	}
	return Status{
		SysInit:     v&statusSysInit != 0,
		LossOfLockB: v&statusLOLB != 0,
		LossOfLockA: v&statusLOLA != 0,
		LossOfClkin: v&statusLOSClkin != 0,
		LossOfXtal:  v&statusLOSXtal != 0,
		RevID:       v & statusRevIDMask,
	}, nil
}

// WaitLocked polls the status register until pll reports lock.
func (d *Device) WaitLocked(pll PLL, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		s, err := d.Status()
		if err != nil {
			return err
		}
		if !s.SysInit && s.Locked(pll) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %v", ErrNotLocked, pll)
		}
		time.Sleep(time.Millisecond)
	}
}
