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

package script

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"periph.io/x/conn/v3/physic"

	"clocksynth/src/si5351"
	"clocksynth/src/support"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"init", Command{Op: "init"}},
		{"STATUS", Command{Op: "status"}},
		{"disable 3", Command{Op: "disable", Output: 3}},
		{"enable clk7", Command{Op: "enable", Output: 7}},
		{"dump pll B", Command{Op: "dump", Dump: "pll", PLL: si5351.PLLB}},
		{"dump clk 6", Command{Op: "dump", Dump: "clk", Output: 6}},
		{"frac A 0 xtal 0 27 25", Command{
			Op: "frac", PLL: si5351.PLLA, Source: si5351.XTAL, Numerator: 27, Denominator: 25,
		}},
		{"int b clk2 clkin 24.576MHz 4 2", Command{
			Op: "int", PLL: si5351.PLLB, Output: 2, Source: si5351.CLKIN,
			Clkin: 24576 * physic.KiloHertz, Multiplier: 4, RDiv: si5351.RDiv2,
		}},
		{"int A 1 clkin 27000000 2", Command{
			Op: "int", PLL: si5351.PLLA, Output: 1, Source: si5351.CLKIN,
			Clkin: 27 * physic.MegaHertz, Multiplier: 2,
		}},
		{"freq A 1 xtal 0 74.25MHz  # 720p", Command{
			Op: "freq", PLL: si5351.PLLA, Output: 1, Target: 74250 * physic.KiloHertz,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			c := qt.New(t)
			got, ok, err := Parse(tt.line)
			c.Assert(err, qt.IsNil)
			c.Assert(ok, qt.IsTrue)
			c.Assert(got, qt.Equals, tt.want)
		})
	}
}

func TestParseBlank(t *testing.T) {
	c := qt.New(t)
	for _, line := range []string{"", "   ", "# nothing here"} {
		_, ok, err := Parse(line)
		c.Assert(err, qt.IsNil)
		c.Assert(ok, qt.IsFalse, qt.Commentf("%q", line))
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{
		"bogus",
		"init now",
		"enable 8",
		"dump foo 1",
		"frac A 0 xtal 0 27",
		"frac C 0 xtal 0 1 1",
		"frac A 0 pll 0 1 1",
		"frac A 0 xtal 7Q 1 1",
		"frac A 0 clkin -1MHz 1 1000",
		"frac A 0 clkin 5GHz 1 1",
		"frac A 0 xtal 0 -1 1",
		`frac A 0 xtal 0 1 "2`,
		"int A 0 xtal 0",
		"freq A 0 xtal 0 fast",
	} {
		t.Run(line, func(t *testing.T) {
			c := qt.New(t)
			_, _, err := Parse(line)
			c.Assert(err, qt.ErrorIs, ErrSyntax)
		})
	}

	c := qt.New(t)
	_, _, err := Parse("int A 0 xtal 0 2 3")
	c.Assert(err, qt.ErrorIs, si5351.ErrRangeExceeded)
}

func TestParseAll(t *testing.T) {
	c := qt.New(t)
	cmds, err := ParseAll(strings.NewReader("# setup\ninit\n\nfrac A 0 xtal 0 1 1\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(cmds, qt.HasLen, 2)
	c.Assert(cmds[1].Op, qt.Equals, "frac")

	_, err = ParseAll(strings.NewReader("init\nfrac A\n"))
	c.Assert(err, qt.ErrorMatches, "line 2: .*")
	c.Assert(err, qt.ErrorIs, ErrSyntax)
}

const session = `
init
frac A 0 xtal 0 11 4
int B 7 xtal 0 2 8
freq A 1 xtal 0 74.25MHz
dump pll A
dump clk 7
status
disable 0
`

func TestRunner(t *testing.T) {
	c := qt.New(t)
	bus := support.NewMemBus(si5351.DefaultAddress)
	var out strings.Builder
	r := &Runner{Dev: si5351.New(bus, si5351.DefaultConfig()), Out: &out}

	cmds, err := ParseAll(strings.NewReader(session))
	c.Assert(err, qt.IsNil)
	c.Assert(r.RunAll(cmds), qt.IsNil)

	got := out.String()
	c.Assert(got, qt.Contains, "CLK0: 74250000.000 Hz")
	c.Assert(got, qt.Contains, "CLK7: 6750000.000 Hz")
	c.Assert(got, qt.Contains, "ratio 11/4, error 0.000000 Hz")
	c.Assert(got, qt.Contains, "CLK1: 74250000.000 Hz")
	c.Assert(got, qt.Contains, "PLLA: p1=3008 p2=0 p3=2")
	c.Assert(got, qt.Contains, "CLK7: div=14 rdiv=8")
	c.Assert(got, qt.Contains, "sys_init=false lol_a=false lol_b=false")

	// CLK1 reuses the PLL A setting of CLK0
	c.Assert(bus.WritesTo(177), qt.Equals, 2)
	// enabled 0, 1 and 7, then disabled 0
	c.Assert(bus.Regs[3], qt.Equals, byte(0x7d))
}

func TestRunnerError(t *testing.T) {
	c := qt.New(t)
	bus := support.NewMemBus(si5351.DefaultAddress)
	var out strings.Builder
	r := &Runner{Dev: si5351.New(bus, si5351.DefaultConfig()), Out: &out}

	cmds, err := ParseAll(strings.NewReader("init\nfrac A 0 xtal 0 8 1\n"))
	c.Assert(err, qt.IsNil)
	err = r.RunAll(cmds)
	c.Assert(err, qt.ErrorIs, si5351.ErrRangeExceeded)
	c.Assert(err, qt.ErrorMatches, `command 2 \(frac\): .*`)
	c.Assert(out.String(), qt.Equals, "")
}
