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
	"math"

	"clocksynth/src/support"
)

/*
RatioFor finds numerator/denominator such that sourceHz * numerator /
denominator is as close to targetHz as the fractional planner can express.

The denominator is limited to 20 bits. PlanFractional only ever divides it
further, so any ratio returned here leaves msn_c in range. errHz is the
signed difference between the target and the frequency the ratio produces.
*/
func RatioFor(sourceHz uint32, targetHz float64) (numerator, denominator uint32, errHz float64, err error) {
	if sourceHz < MinInputHz {
		return 0, 0, 0, fmt.Errorf("%w: source %d Hz below %d Hz", ErrRangeExceeded, sourceHz, MinInputHz)
	}
	if !(targetHz > 0) || targetHz > MaxOutputHz {
		return 0, 0, 0, fmt.Errorf("%w: target %.3f Hz", ErrRangeExceeded, targetHz)
	}
	// millihertz resolution
	a := uint64(math.Round(targetHz * 1e3))
	b := uint64(sourceHz) * 1e3
	c, d, eps := support.NearestFraction(a, b, MaxDenominator)
	if c == 0 {
		return 0, 0, 0, fmt.Errorf("%w: target %.3f Hz rounds to zero", ErrInvalidRatio, targetHz)
	}
	return uint32(c), uint32(d), eps * float64(sourceHz), nil
}
