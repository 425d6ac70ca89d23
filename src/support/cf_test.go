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

package support

import (
	"math"
	"math/big"
	"testing"
)

func Test_continuedFraction(t *testing.T) {
	type args struct {
		a, b, e, f, max_denominator uint64
	}
	tests := []struct {
		name  string
		args  args
		wantC uint64
		wantD uint64
	}{
		{
			name:  "base case",
			args:  args{a: 10, b: 1, e: 1, max_denominator: 100},
			wantC: 10,
			wantD: 1,
		},
		{
			name:  "null case",
			args:  args{a: 0, b: 1, e: 1, max_denominator: 100},
			wantC: 0,
			wantD: 1,
		},
		{
			name:  "exact division",
			args:  args{a: 63, b: 9, e: 0, f: 1, max_denominator: 10},
			wantC: 7,
			wantD: 1,
		},
		{
			name:  "exact answer",
			args:  args{a: 27, b: 25, e: 0, f: 1, max_denominator: 100},
			wantC: 27,
			wantD: 25,
		},
		{
			name:  "limited depth",
			args:  args{a: 2300, b: 500, e: 0, f: 1, max_denominator: 7},
			wantC: 23,
			wantD: 5,
		},
		{
			name:  "less limited depth",
			args:  args{a: 2301, b: 500, e: 0, f: 1, max_denominator: 97},
			wantC: 23,
			wantD: 5,
		},
		{
			name:  "almost unlimited depth",
			args:  args{a: 451, b: 98, e: 0, f: 1, max_denominator: 99},
			wantC: 451,
			wantD: 98,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotC, gotD := continuedFraction(tt.args.a, tt.args.b, tt.args.e, tt.args.f, tt.args.max_denominator)
			if gotC != tt.wantC {
				t.Errorf("continuedFraction() gotC = %v, want %v", gotC, tt.wantC)
			}
			if gotD != tt.wantD {
				t.Errorf("continuedFraction() gotD = %v, want %v", gotD, tt.wantD)
			}
		})
	}
}

func Test_limit(t *testing.T) {
	maxD := [][]uint64{
		{5, 3, 1},
		{7, 22, 7},
		{10, 22, 7},
		{105, 22, 7},
		{106, 333, 106},
		{110, 333, 106},
		{113, 355, 113},
		{1000, 355, 113},
		{10000, 355, 113},
		{33000, 355, 113},
		{33102, 103993, 33102},
		{33200, 103993, 33102},
		{33215, 104348, 33215},
		{50000, 104348, 33215},
		{100_000, 312689, 99532},
	}
	last := big.NewRat(10, 1)
	target := big.NewRat(314159265358, 100_000_000_000)
	for i := 0; i < len(maxD); i++ {
		a, b := continuedFraction(314159265358, 100_000_000_000, 0, 1, maxD[i][0])
		eps := new(big.Rat).Sub(big.NewRat(int64(a), int64(b)), target)
		eps.Abs(eps)
		// a larger denominator never makes the approximation worse
		if eps.Cmp(last) > 0 {
			t.Errorf("at %d, error increased from %s to %s", maxD[i][0], last.FloatString(10), eps.FloatString(10))
		}
		last.Set(eps)

		if a != maxD[i][1] || b != maxD[i][2] {
			t.Errorf("%d => %d, %d, but wanted %v", maxD[i][0], a, b, maxD[i][1:])
		}
	}
}

func Test_nearest_fraction_pixel_clocks(t *testing.T) {
	// common video pixel clocks against a 27MHz crystal
	clocks := []float64{25_175_000, 65_000_000, 74_250_000 / 1.001, 108_000_000, 148_500_000}
	ref := 27e6
	for _, f := range clocks {
		c, d, _ := NearestFraction(uint64(math.Round(f*1e3)), uint64(ref*1e3), 1<<20-1)
		if d > 1<<20-1 {
			t.Errorf("%.3f: denominator %d too big", f, d)
		}
		f1 := ref * float64(c) / float64(d)
		if math.Abs(f1-f) > 1e-3 {
			t.Errorf("%.3f: excessive error: Δf = %.6f", f, f1-f)
		}
	}
}

func Test_nearest_fraction(t *testing.T) {
	type args struct {
		a               uint64
		b               uint64
		max_denominator uint64
	}
	tests := []struct {
		name    string
		args    args
		wantC   uint64
		wantD   uint64
		wantEps float64
	}{
		{"exact division", args{a: 3879 * 1712, b: 1712, max_denominator: 20}, 3879, 1, 0},
		{"famous pi", args{a: uint64(math.Round(math.Pi * 3879)), b: 3879, max_denominator: 100}, 22, 7, math.Round(math.Pi*3879)/3879 - 22.0/7.0},
		{"famous pi, larger", args{a: uint64(math.Round(math.Pi * 3879)), b: 3879, max_denominator: 110}, 333, 106, math.Round(math.Pi*3879)/3879 - 333.0/106.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotC, gotD, gotEps := NearestFraction(tt.args.a, tt.args.b, tt.args.max_denominator)
			if gotC != tt.wantC {
				t.Errorf("NearestFraction() gotC = %v, want %v", gotC, tt.wantC)
			}
			if gotD != tt.wantD {
				t.Errorf("NearestFraction() gotD = %v, want %v", gotD, tt.wantD)
			}
			if gotEps != tt.wantEps {
				t.Errorf("NearestFraction() gotEps = %v, want %v", gotEps, tt.wantEps)
			}
		})
	}
}

func Test_gcd(t *testing.T) {
	tests := [][3]uint64{
		{27, 25, 1},
		{756, 25, 1},
		{110, 4, 2},
		{48, 18, 6},
		{0, 7, 7},
		{7, 0, 7},
		{0, 0, 1},
	}
	for _, tt := range tests {
		if g := GCD(tt[0], tt[1]); g != tt[2] {
			t.Errorf("GCD(%d, %d) = %d, want %d", tt[0], tt[1], g, tt[2])
		}
	}
}
