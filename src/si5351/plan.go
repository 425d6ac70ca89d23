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
	"math/big"

	"clocksynth/src/support"
)

// Plan is a fully validated programming sequence for one PLL and output.
// Building a Plan touches no hardware; Device.Apply writes it.
type Plan struct {
	PLL      PLL
	Output   Output
	Source   ClockSource
	SourceHz uint32

	Config  MultisynthConfig
	Divider OutputDivider // nil when Bypass is set

	// Bypass routes the source straight to the output without the PLL.
	Bypass bool
	// Explicit is set when Config was supplied by the caller.
	Explicit bool

	// OutputHz is the planner's own integer estimate of the output
	// frequency before the post-divider. It is zero for explicit plans.
	OutputHz uint32
	// MSA is the integer output divider the planner chose.
	MSA uint32

	Warnings []error
}

/*
PlanFractional derives the PLL feedback and output multisynth parameters that
produce sourceHz * numerator / denominator on the given output.

The ratio is reduced first, so any multiple of a ratio yields the same plan.
The output divider is the even integer nearest to VCOCenterHz / f_out, which
keeps output jitter low; above DivBy4OutputHz, or when that divider would be 4
or less, the output runs in divide-by-4 mode instead. Everything left over is
absorbed by the fractional feedback divider

	prediv * ms_a * numerator / denominator = msn_a + msn_b / msn_c

which is reduced again so that msn_c is as small as possible. msn_c must fit
in the 20 bit P3 field.

The output frequency used for these decisions is computed as
(sourceHz*10/denominator)*numerator/10. That keeps one extra decimal digit
through the truncating division and can undershoot the exact value by less
than numerator/10 + 1 Hz.
*/
func PlanFractional(pll PLL, out Output, src ClockSource, sourceHz, numerator, denominator uint32) (Plan, error) {
	p := Plan{PLL: pll, Output: out, Source: src, SourceHz: sourceHz}
	if err := checkRouting(pll, out, src); err != nil {
		return Plan{}, err
	}
	if numerator == 0 || denominator == 0 {
		return Plan{}, fmt.Errorf("%w: %d/%d", ErrInvalidRatio, numerator, denominator)
	}

	g := support.GCD(uint64(numerator), uint64(denominator))
	num, den := uint64(numerator)/g, uint64(denominator)/g

	prediv, sel := inputDivider(sourceHz)
	p.Config.ClkinDiv = sel

	outHz := ((uint64(sourceHz)*10/den)*num) / 10
	if err := checkSource(sourceHz); err != nil {
		return Plan{}, err
	}
	if outHz > MaxOutputHz {
		return Plan{}, fmt.Errorf("%w: output %d Hz above %d Hz", ErrRangeExceeded, outHz, MaxOutputHz)
	}
	if outHz < 100 {
		return Plan{}, fmt.Errorf("%w: output %d Hz too low", ErrRangeExceeded, outHz)
	}
	p.OutputHz = uint32(outHz)

	// even output divider for lowest jitter
	outdivX100 := VCOCenterHz / (outHz / 100)
	msA := 2 * ((outdivX100 + 100) / 200)
	if msA >= MaxOutputDivider {
		return Plan{}, fmt.Errorf("%w: output divider %d", ErrRangeExceeded, msA)
	}
	if outHz >= DivBy4OutputHz || msA <= 4 {
		msA = 4
		p.Config.DivBy4 = true
		p.Config.MS = Params{P3: 1}
	} else {
		p.Config.MS = msParams(out, uint32(msA))
	}
	p.MSA = uint32(msA)

	num = uint64(prediv) * msA * num
	g = support.GCD(num, den)
	num, den = num/g, den/g
	msnA, msnB, msnC := num/den, num%den, den
	if msnC > MaxDenominator {
		return Plan{}, fmt.Errorf("%w: feedback denominator %d exceeds 20 bits", ErrRangeExceeded, msnC)
	}
	if msnA < 4 || msnA > maxP1 {
		return Plan{}, fmt.Errorf("%w: feedback divider %d", ErrRangeExceeded, msnA)
	}
	p.Config.MSN = ParamsFor(uint32(msnA), uint32(msnB), uint32(msnC))

	if err := p.Config.MSN.validate("feedback"); err != nil {
		return Plan{}, err
	}
	div, err := p.Config.outputDivider(out)
	if err != nil {
		return Plan{}, err
	}
	p.Divider = div
	return p, nil
}

/*
PlanInteger derives an integer-only configuration for sourceHz * multiplier.

A multiplier of 1 bypasses the PLL entirely. Otherwise the feedback divider is
rounded to a multiple of 2 * prediv * multiplier so that both dividers come
out even. A feedback divider outside [MinFeedbackInt, MaxFeedbackInt] is
reported as a warning only; one below 16 is doubled. When the resulting output
divider would be below 4 both dividers are doubled again, and an output
divider of exactly 4 uses divide-by-4 mode.
*/
func PlanInteger(pll PLL, out Output, src ClockSource, sourceHz, multiplier uint32, rdiv RDiv) (Plan, error) {
	p := Plan{PLL: pll, Output: out, Source: src, SourceHz: sourceHz}
	if err := checkRouting(pll, out, src); err != nil {
		return Plan{}, err
	}
	outHz := uint64(sourceHz) * uint64(multiplier)
	if err := checkSource(sourceHz); err != nil {
		return Plan{}, err
	}
	if multiplier == 0 || outHz > MaxOutputHz {
		return Plan{}, fmt.Errorf("%w: source %d Hz, multiplier %d", ErrRangeExceeded, sourceHz, multiplier)
	}
	if rdiv > RDiv128 {
		return Plan{}, fmt.Errorf("%w: output post-divider selector %d", ErrRangeExceeded, rdiv)
	}
	p.Config.RDiv = rdiv
	p.OutputHz = uint32(outHz)

	if multiplier == 1 {
		p.Bypass = true
		return p, nil
	}

	prediv, sel := inputDivider(sourceHz)
	p.Config.ClkinDiv = sel

	// even feedback divider for lowest jitter
	optim := 2 * prediv * multiplier
	fbdivX100 := VCOCenterHz / ((sourceHz / prediv) / 100)
	msnA := optim * ((fbdivX100 + (optim/2)*100) / (optim * 100))

	if msnA < MinFeedbackInt || msnA > MaxFeedbackInt {
		p.Warnings = append(p.Warnings, fmt.Errorf("%w: msn_a %d", ErrFeedbackDividerOutOfRange, msnA))
	} else if msnA < 16 {
		msnA *= 2
	}

	msA := msnA / (multiplier * prediv)
	if msA < 4 {
		msnA *= 2
		msA *= 2
	}
	if msnA < 4 || msnA > maxP1 {
		return Plan{}, fmt.Errorf("%w: feedback divider %d", ErrRangeExceeded, msnA)
	}
	p.Config.MSN = Params{P1: 128*msnA - 512, P3: 1}

	// 6 and 8 work in integer mode as well
	if msA == 4 {
		p.Config.DivBy4 = true
		p.Config.MS = Params{P3: 1}
	} else {
		p.Config.MS = msParams(out, msA)
	}
	p.MSA = msA

	if err := p.Config.MSN.validate("feedback"); err != nil {
		return Plan{}, err
	}
	div, err := p.Config.outputDivider(out)
	if err != nil {
		return Plan{}, err
	}
	p.Divider = div
	return p, nil
}

// PlanExplicit wraps a precomputed configuration. It is only checked
// against the register field widths.
func PlanExplicit(pll PLL, out Output, src ClockSource, sourceHz uint32, cfg MultisynthConfig) (Plan, error) {
	if err := checkRouting(pll, out, src); err != nil {
		return Plan{}, err
	}
	if err := cfg.validate(out); err != nil {
		return Plan{}, err
	}
	div, err := cfg.outputDivider(out)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		PLL:      pll,
		Output:   out,
		Source:   src,
		SourceHz: sourceHz,
		Config:   cfg,
		Divider:  div,
		Explicit: true,
	}, nil
}

// inputDivider returns the smallest CLKIN pre-divider that keeps the PLL
// input at or below MaxPLLInputHz, and its register selector.
func inputDivider(sourceHz uint32) (div uint32, sel uint8) {
	div = sourceHz/MaxPLLInputHz + 1
	switch {
	case div > 4:
		return 8, 3
	case div > 2:
		return 4, 2
	default:
		return div, uint8(div - 1)
	}
}

// checkSource rejects references the chip cannot take, including those too
// fast for the largest CLKIN pre-divider.
func checkSource(sourceHz uint32) error {
	if sourceHz < MinInputHz {
		return fmt.Errorf("%w: source %d Hz below %d Hz", ErrRangeExceeded, sourceHz, MinInputHz)
	}
	if sourceHz/8 > MaxPLLInputHz {
		return fmt.Errorf("%w: source %d Hz above %d Hz even divided by 8", ErrRangeExceeded, sourceHz, MaxPLLInputHz)
	}
	return nil
}

// msParams is the output multisynth setting for an even integer divider.
// Outputs 6 and 7 take the ratio itself.
func msParams(out Output, msA uint32) Params {
	if out.simple() {
		return Params{P1: msA}
	}
	return Params{P1: 128*msA - 512, P3: 1}
}

func checkRouting(pll PLL, out Output, src ClockSource) error {
	if pll > PLLB {
		return fmt.Errorf("%w: no such PLL %d", ErrRangeExceeded, pll)
	}
	if out >= NumOutputs {
		return fmt.Errorf("%w: no such output %d", ErrRangeExceeded, out)
	}
	if src > CLKIN {
		return fmt.Errorf("%w: no such clock source %d", ErrRangeExceeded, src)
	}
	return nil
}

// Ratio returns a + b/c for the triple, or zero for an unset one. From the
// encoding, (P1+512)*P3 + P2 = 128*(a*c + b).
func (p Params) Ratio() *big.Rat {
	if p.P3 == 0 {
		return new(big.Rat)
	}
	n := new(big.Int).SetUint64(uint64(p.P1) + 512)
	n.Mul(n, new(big.Int).SetUint64(uint64(p.P3)))
	n.Add(n, new(big.Int).SetUint64(uint64(p.P2)))
	return new(big.Rat).SetFrac(n, new(big.Int).SetUint64(128*uint64(p.P3)))
}

// VCOFrequency is the exact PLL frequency the plan produces, or zero for a
// bypassed output.
func (p Plan) VCOFrequency() *big.Rat {
	if p.Bypass {
		return new(big.Rat)
	}
	f := new(big.Rat).SetFrac64(int64(p.SourceHz), 1<<p.Config.ClkinDiv)
	return f.Mul(f, p.Config.MSN.Ratio())
}

// OutputFrequency is the exact frequency on the output pin.
func (p Plan) OutputFrequency() *big.Rat {
	if p.Bypass {
		return new(big.Rat).SetFrac64(int64(p.SourceHz), int64(p.Config.RDiv.Divisor()))
	}
	var div *big.Rat
	switch d := p.Divider.(type) {
	case SimpleDivider:
		div = new(big.Rat).SetInt64(int64(d))
	case FullDivider:
		if d.DivBy4 {
			div = new(big.Rat).SetInt64(4)
		} else {
			div = d.Ratio()
		}
	default:
		return new(big.Rat)
	}
	if div.Sign() == 0 {
		return new(big.Rat)
	}
	f := p.VCOFrequency()
	f.Quo(f, div)
	return f.Quo(f, new(big.Rat).SetInt64(int64(p.Config.RDiv.Divisor())))
}

func (p Plan) String() string {
	if p.Bypass {
		return fmt.Sprintf("%v -> CLK%d bypass from %v (%d Hz)", p.PLL, p.Output, p.Source, p.SourceHz)
	}
	c := p.Config
	return fmt.Sprintf("%v -> CLK%d from %v: VCO %s MHz (srcdiv=%d, ms_a=%d) msn=%d/%d/%d ms=%d/%d/%d divby4=%t rdiv=%d",
		p.PLL, p.Output, p.Source, mhz(p.VCOFrequency()),
		1<<c.ClkinDiv, p.MSA, c.MSN.P1, c.MSN.P2, c.MSN.P3, c.MS.P1, c.MS.P2, c.MS.P3, c.DivBy4, c.RDiv.Divisor())
}

func mhz(f *big.Rat) string {
	return new(big.Rat).Quo(f, big.NewRat(1_000_000, 1)).FloatString(3)
}
