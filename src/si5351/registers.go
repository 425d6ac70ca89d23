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

// Register addresses.
const (
	regDeviceStatus = 0
	regOutputEnable = 3
	regPLLSource    = 15
	regClk0Control  = 16
	regClk6Control  = 22 // bit 6 is FBA_INT, CLK7 control bit 6 is FBB_INT
	regMSNABase     = 26
	regMS0Base      = 42
	regMS6          = 90
	regClk67OutDiv  = 92
	regPLLReset     = 177
)

// Bits and fields.
const (
	clkPowerDown  = 1 << 7
	clkIntMode    = 1 << 6
	clkMSSrcShift = 5
	clkSrcShift   = 2
	clkSrcMask    = 3 << clkSrcShift
	clkDrive8mA   = 3
	clkSrcMS      = 3

	pllSrcShift      = 2
	clkinDivShift    = 6
	clkinDivMask     = 3 << clkinDivShift
	msDivBy4Shift    = 2
	msRDivShift      = 4
	msRDivMask       = 7 << msRDivShift
	pllResetShift    = 5
	statusSysInit    = 1 << 7
	statusLOLB       = 1 << 6
	statusLOLA       = 1 << 5
	statusLOSClkin   = 1 << 4
	statusLOSXtal    = 1 << 3
	statusRevIDMask  = 3
	divBy4Field      = 3
	paramsBlockBytes = 8
)

// Chip limits.
const (
	MinInputHz       = 10_000_000
	MaxPLLInputHz    = 40_000_000
	MaxOutputHz      = 160_000_000
	DivBy4OutputHz   = 150_000_000
	VCOCenterHz      = 750_000_000
	MaxDenominator   = 1<<20 - 1
	MaxOutputDivider = 2048
	MinFeedbackInt   = 8
	MaxFeedbackInt   = 90
	MaxSimpleDivider = 254
	MinSimpleDivider = 6

	maxP1 = 1<<18 - 1
	maxP2 = 1<<20 - 1
)

// DefaultAddress is the I2C address of the Si5351 with A0 tied low.
const DefaultAddress = 0x60

type register struct {
	addr, value uint8
}

// revBRegisters is written once by Init. Outputs start powered down and
// disabled, both PLLs fed from the crystal.
var revBRegisters = []register{
	{0x02, 0x0B}, // interrupt status mask
	{0x03, 0xFF}, // all outputs disabled
	{0x07, 0x01},
	{0x09, 0xFF}, // ignore OEB pin
	{0x0F, 0x04}, // CLKIN div, PLL source select
	{0x10, 0x8C}, // CLK0..7 powered down, MS source, min drive
	{0x11, 0x8C},
	{0x12, 0x8C},
	{0x13, 0x8C},
	{0x14, 0x8C},
	{0x15, 0x8C},
	{0x16, 0x8C},
	{0x17, 0x8C},
	// MSNA
	{0x1A, 0x00},
	{0x1B, 0x01},
	{0x1C, 0x00},
	{0x1D, 0x0D},
	{0x1E, 0x00},
	{0x1F, 0x00},
	{0x20, 0x00},
	{0x21, 0x00},
	// MSNB
	{0x22, 0x00},
	{0x23, 0x01},
	{0x24, 0x00},
	{0x25, 0x10},
	{0x26, 0x00},
	{0x27, 0x00},
	{0x28, 0x00},
	{0x29, 0x00},
	// MS0
	{0x2A, 0x00},
	{0x2B, 0x00},
	{0x2C, 0x00},
	{0x2D, 0x00},
	{0x2E, 0x00},
	{0x2F, 0x00},
	{0x30, 0x00},
	{0x31, 0x00},
	// MS2
	{0x3A, 0x00},
	{0x3B, 0x00},
	{0x3C, 0x00},
	{0x3D, 0x00},
	{0x3E, 0x00},
	{0x3F, 0x00},
	{0x40, 0x00},
	{0x41, 0x00},
	// MS4
	{0x4A, 0x00},
	{0x4B, 0x00},
	{0x4C, 0x00},
	{0x4D, 0x00},
	{0x4E, 0x00},
	{0x4F, 0x00},
	{0x50, 0x00},
	{0x51, 0x00},
	// MS6
	{0x5A, 0x06},
	{0x5B, 0x00},
	// spread spectrum off
	{0x95, 0x00},
	{0x96, 0x00},
	{0x97, 0x00},
	{0x98, 0x00},
	{0x99, 0x00},
	{0x9A, 0x00},
	{0x9B, 0x00},
	// VCXO
	{0xA2, 0x00},
	{0xA3, 0x00},
	{0xA4, 0x00},
	{0xB7, 0x12}, // crystal load capacitance
	{0xBB, 0xC2}, // fanout enable
}
