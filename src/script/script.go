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

// Package script runs small clock planning scripts against a Si5351.
//
// One command per line, shell-style quoting, # starts a comment:
//
//	init
//	frac A 0 xtal 0 27 25          # PLL A, CLK0, 27/25 of the crystal
//	int B 2 clkin 24.576MHz 4 2    # CLK2 = CLKIN*4/2
//	freq A 1 xtal 0 74.25MHz
//	disable 3
//	dump pll A
//	dump clk 1
//	status
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"periph.io/x/conn/v3/physic"

	"clocksynth/src/si5351"
)

var ErrSyntax = errors.New("script: syntax error")

// Command is one parsed script line.
type Command struct {
	Op     string
	PLL    si5351.PLL
	Output si5351.Output
	Source si5351.ClockSource
	Clkin  physic.Frequency

	Numerator, Denominator uint32 // frac
	Multiplier             uint32 // int
	RDiv                   si5351.RDiv
	Target                 physic.Frequency // freq

	Dump string // "pll" or "clk"
}

// Parse reads one line. ok is false for blank and comment-only lines.
func Parse(line string) (cmd Command, ok bool, err error) {
	args, err := shlex.Split(line)
	if err != nil {
		return Command{}, false, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if len(args) == 0 {
		return Command{}, false, nil
	}
	cmd.Op = strings.ToLower(args[0])
	args = args[1:]
	switch cmd.Op {
	case "init", "status":
		err = arity(cmd.Op, args, 0)
	case "enable", "disable":
		if err = arity(cmd.Op, args, 1); err == nil {
			cmd.Output, err = parseOutput(args[0])
		}
	case "dump":
		if err = arity(cmd.Op, args, 2); err != nil {
			break
		}
		cmd.Dump = strings.ToLower(args[0])
		switch cmd.Dump {
		case "pll":
			cmd.PLL, err = parsePLL(args[1])
		case "clk":
			cmd.Output, err = parseOutput(args[1])
		default:
			err = fmt.Errorf("%w: dump pll|clk, not %q", ErrSyntax, args[0])
		}
	case "frac":
		if err = arity(cmd.Op, args, 6); err != nil {
			break
		}
		if err = cmd.parseRoute(args); err != nil {
			break
		}
		if cmd.Numerator, err = parseUint(args[4]); err != nil {
			break
		}
		cmd.Denominator, err = parseUint(args[5])
	case "int":
		if len(args) != 5 && len(args) != 6 {
			err = fmt.Errorf("%w: int takes 5 or 6 arguments", ErrSyntax)
			break
		}
		if err = cmd.parseRoute(args); err != nil {
			break
		}
		if cmd.Multiplier, err = parseUint(args[4]); err != nil {
			break
		}
		if len(args) == 6 {
			var div uint32
			if div, err = parseUint(args[5]); err != nil {
				break
			}
			cmd.RDiv, err = si5351.RDivFor(div)
		}
	case "freq":
		if err = arity(cmd.Op, args, 5); err != nil {
			break
		}
		if err = cmd.parseRoute(args); err != nil {
			break
		}
		if err = cmd.Target.Set(args[4]); err != nil {
			err = fmt.Errorf("%w: target: %v", ErrSyntax, err)
		}
	default:
		err = fmt.Errorf("%w: unknown command %q", ErrSyntax, cmd.Op)
	}
	if err != nil {
		return Command{}, false, err
	}
	return cmd, true, nil
}

// parseRoute reads the leading "<pll> <out> <src> <clkin>" arguments.
func (c *Command) parseRoute(args []string) error {
	var err error
	if c.PLL, err = parsePLL(args[0]); err != nil {
		return err
	}
	if c.Output, err = parseOutput(args[1]); err != nil {
		return err
	}
	switch strings.ToLower(args[2]) {
	case "xtal":
		c.Source = si5351.XTAL
	case "clkin":
		c.Source = si5351.CLKIN
	default:
		return fmt.Errorf("%w: source xtal|clkin, not %q", ErrSyntax, args[2])
	}
	if err := c.Clkin.Set(args[3]); err != nil {
		return fmt.Errorf("%w: clkin: %v", ErrSyntax, err)
	}
	if c.Clkin < 0 || c.Clkin/physic.Hertz > math.MaxUint32 {
		return fmt.Errorf("%w: clkin %v out of range", ErrSyntax, c.Clkin)
	}
	return nil
}

func arity(op string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s takes %d arguments, got %d", ErrSyntax, op, n, len(args))
	}
	return nil
}

func parsePLL(s string) (si5351.PLL, error) {
	switch strings.ToUpper(s) {
	case "A", "PLLA":
		return si5351.PLLA, nil
	case "B", "PLLB":
		return si5351.PLLB, nil
	}
	return 0, fmt.Errorf("%w: PLL A|B, not %q", ErrSyntax, s)
}

func parseOutput(s string) (si5351.Output, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "clk"), 10, 8)
	if err != nil || n >= si5351.NumOutputs {
		return 0, fmt.Errorf("%w: output 0..7, not %q", ErrSyntax, s)
	}
	return si5351.Output(n), nil
}

func parseUint(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return uint32(n), nil
}

// ParseAll reads a whole script.
func ParseAll(r io.Reader) ([]Command, error) {
	var cmds []Command
	s := bufio.NewScanner(r)
	for n := 1; s.Scan(); n++ {
		c, ok, err := Parse(s.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if ok {
			cmds = append(cmds, c)
		}
	}
	return cmds, s.Err()
}

// Runner executes commands on a device and reports to Out.
type Runner struct {
	Dev *si5351.Device
	Out io.Writer

	// LockTimeout bounds the wait for PLL lock after programming. Zero
	// skips the wait.
	LockTimeout time.Duration
}

func (r *Runner) Run(c Command) error {
	d := r.Dev
	switch c.Op {
	case "init":
		return d.Init()
	case "status":
		s, err := d.Status()
		if err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "sys_init=%t lol_a=%t lol_b=%t los_clkin=%t los_xtal=%t rev=%d\n",
			s.SysInit, s.LossOfLockA, s.LossOfLockB, s.LossOfClkin, s.LossOfXtal, s.RevID)
		return nil
	case "enable":
		return d.EnableOutput(c.Output)
	case "disable":
		return d.DisableOutput(c.Output)
	case "dump":
		return r.dump(c)
	case "frac":
		p, err := d.SetFracMult(c.PLL, c.Output, c.Source, hz(c.Clkin), c.Numerator, c.Denominator, nil)
		return r.report(p, err)
	case "int":
		p, err := d.SetIntegerMult(c.PLL, c.Output, c.Source, hz(c.Clkin), c.Multiplier, c.RDiv)
		return r.report(p, err)
	case "freq":
		src := hz(c.Clkin)
		if c.Source == si5351.XTAL {
			src = d.XtalHz()
		}
		num, den, errHz, err := si5351.RatioFor(src, float64(c.Target)/float64(physic.Hertz))
		if err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "%v: ratio %d/%d, error %.6f Hz\n", c.Target, num, den, errHz)
		p, err := d.SetFracMult(c.PLL, c.Output, c.Source, hz(c.Clkin), num, den, nil)
		return r.report(p, err)
	}
	return fmt.Errorf("%w: unknown command %q", ErrSyntax, c.Op)
}

func (r *Runner) RunAll(cmds []Command) error {
	for i, c := range cmds {
		if err := r.Run(c); err != nil {
			return fmt.Errorf("command %d (%s): %w", i+1, c.Op, err)
		}
	}
	return nil
}

func (r *Runner) report(p si5351.Plan, err error) error {
	if err != nil {
		return err
	}
	f, _ := p.OutputFrequency().Float64()
	fmt.Fprintf(r.Out, "%v\nCLK%d: %.3f Hz\n", p, p.Output, f)
	if r.LockTimeout > 0 && !p.Bypass {
		return r.Dev.WaitLocked(p.PLL, r.LockTimeout)
	}
	return nil
}

func (r *Runner) dump(c Command) error {
	if c.Dump == "pll" {
		p, err := r.Dev.ReadPLLParams(c.PLL)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "%v: p1=%d p2=%d p3=%d\n", c.PLL, p.P1, p.P2, p.P3)
		return nil
	}
	div, rdiv, err := r.Dev.ReadOutputDivider(c.Output)
	if err != nil {
		return err
	}
	switch div := div.(type) {
	case si5351.SimpleDivider:
		fmt.Fprintf(r.Out, "CLK%d: div=%d rdiv=%d\n", c.Output, div, rdiv.Divisor())
	case si5351.FullDivider:
		fmt.Fprintf(r.Out, "CLK%d: p1=%d p2=%d p3=%d divby4=%t rdiv=%d\n",
			c.Output, div.P1, div.P2, div.P3, div.DivBy4, rdiv.Divisor())
	}
	return nil
}

func hz(f physic.Frequency) uint32 {
	return uint32(f / physic.Hertz)
}
