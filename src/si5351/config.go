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

import "fmt"

// ClockSource selects the reference that feeds a PLL.
type ClockSource uint8

const (
	XTAL ClockSource = iota
	CLKIN
)

func (s ClockSource) String() string {
	switch s {
	case XTAL:
		return "xtal"
	case CLKIN:
		return "clkin"
	default:
		return fmt.Sprintf("ClockSource(%d)", uint8(s))
	}
}

// PLL is one of the two feedback PLLs.
type PLL uint8

const (
	PLLA PLL = iota
	PLLB
)

func (p PLL) String() string {
	switch p {
	case PLLA:
		return "PLLA"
	case PLLB:
		return "PLLB"
	default:
		return fmt.Sprintf("PLL(%d)", uint8(p))
	}
}

// Output is a clock output, 0 through 7.
type Output uint8

const NumOutputs = 8

// simple reports whether the output uses the integer-only MS6/MS7 divider.
func (o Output) simple() bool { return o >= 6 }

// RDiv is the 3-bit output post-divider selector, dividing by 1<<RDiv.
type RDiv uint8

const (
	RDiv1 RDiv = iota
	RDiv2
	RDiv4
	RDiv8
	RDiv16
	RDiv32
	RDiv64
	RDiv128
)

// Divisor returns the division ratio selected by r.
func (r RDiv) Divisor() uint32 { return 1 << r }

// RDivFor returns the selector for a power-of-two divisor between 1 and 128.
func RDivFor(divisor uint32) (RDiv, error) {
	for r := RDiv1; r <= RDiv128; r++ {
		if r.Divisor() == divisor {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: output post-divider %d is not a power of two in 1..128", ErrRangeExceeded, divisor)
}

// Params is a P1/P2/P3 register triple encoding the ratio a + b/c.
type Params struct {
	P1, P2, P3 uint32
}

// ParamsFor encodes a + b/c. The caller guarantees a >= 4 and 0 < c.
func ParamsFor(a, b, c uint32) Params {
	f := (128 * uint64(b)) / uint64(c)
	return Params{
		P1: uint32(128*uint64(a) + f - 512),
		P2: uint32(128*uint64(b) - uint64(c)*f),
		P3: c,
	}
}

// Integer reports whether the integer-mode bit must be set for p.
func (p Params) Integer() bool { return p.P1%256 == 0 }

func (p Params) validate(what string) error {
	if p.P1 > maxP1 {
		return fmt.Errorf("%w: %s P1 %d exceeds 18 bits", ErrRangeExceeded, what, p.P1)
	}
	if p.P2 > maxP2 {
		return fmt.Errorf("%w: %s P2 %d exceeds 20 bits", ErrRangeExceeded, what, p.P2)
	}
	if p.P3 == 0 || p.P3 > MaxDenominator {
		return fmt.Errorf("%w: %s P3 %d outside 1..%d", ErrRangeExceeded, what, p.P3, MaxDenominator)
	}
	return nil
}

// encode lays p out in the chip's 8-byte multisynth block. The high bits of
// byte 2 are left for the caller (divide-by-4 and R divider on outputs).
func (p Params) encode() [paramsBlockBytes]byte {
	return [paramsBlockBytes]byte{
		byte(p.P3 >> 8),
		byte(p.P3),
		byte(p.P1>>16) & 0x3,
		byte(p.P1 >> 8),
		byte(p.P1),
		byte((p.P3>>16)&0xf)<<4 | byte((p.P2>>16)&0xf),
		byte(p.P2 >> 8),
		byte(p.P2),
	}
}

// decodeParams is the inverse of encode.
func decodeParams(b [paramsBlockBytes]byte) Params {
	return Params{
		P1: uint32(b[2]&0x3)<<16 | uint32(b[3])<<8 | uint32(b[4]),
		P2: uint32(b[5]&0xf)<<16 | uint32(b[6])<<8 | uint32(b[7]),
		P3: uint32(b[5]>>4)<<16 | uint32(b[0])<<8 | uint32(b[1]),
	}
}

// MultisynthConfig is the complete configuration of one PLL and output pair.
type MultisynthConfig struct {
	MSN      Params // PLL feedback divider
	MS       Params // output multisynth divider, P1 is the plain ratio on outputs 6 and 7
	DivBy4   bool
	ClkinDiv uint8 // 0=÷1, 1=÷2, 2=÷4, 3=÷8
	RDiv     RDiv
}

func (c MultisynthConfig) validate(out Output) error {
	if c.ClkinDiv > 3 {
		return fmt.Errorf("%w: input pre-divider selector %d", ErrRangeExceeded, c.ClkinDiv)
	}
	if c.RDiv > RDiv128 {
		return fmt.Errorf("%w: output post-divider selector %d", ErrRangeExceeded, c.RDiv)
	}
	if err := c.MSN.validate("feedback"); err != nil {
		return err
	}
	_, err := c.outputDivider(out)
	return err
}

// outputDivider picks the register format for out.
func (c MultisynthConfig) outputDivider(out Output) (OutputDivider, error) {
	if !out.simple() {
		if err := c.MS.validate("output"); err != nil {
			return nil, err
		}
		return FullDivider{Params: c.MS, DivBy4: c.DivBy4}, nil
	}
	if c.DivBy4 {
		return nil, fmt.Errorf("%w: divide-by-4 is not available on output %d", ErrRangeExceeded, out)
	}
	// MS6 and MS7 hold the divide ratio itself in P1
	if c.MS.P2 != 0 {
		return nil, fmt.Errorf("%w: output %d takes an integer divider only", ErrRangeExceeded, out)
	}
	div := c.MS.P1
	if div < MinSimpleDivider || div > MaxSimpleDivider || div%2 != 0 {
		return nil, fmt.Errorf("%w: output %d divider %d not even in %d..%d",
			ErrRangeExceeded, out, div, MinSimpleDivider, MaxSimpleDivider)
	}
	return SimpleDivider(div), nil
}

// OutputDivider is the register form of an output multisynth. Outputs 0..5
// take a FullDivider, outputs 6 and 7 a SimpleDivider.
type OutputDivider interface {
	isOutputDivider()
}

// SimpleDivider is the integer divide ratio written to MS6 or MS7.
type SimpleDivider uint8

// FullDivider is the fractional divider of outputs 0..5.
type FullDivider struct {
	Params
	DivBy4 bool
}

func (SimpleDivider) isOutputDivider() {}
func (FullDivider) isOutputDivider()   {}
