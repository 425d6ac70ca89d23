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

/*
NearestFraction finds the best approximation c/d ≈ a/b with d <= max_denominator
and returns c, d and the error a/b - c/d as floating point.

The approximation is the last convergent of the continued fraction of a/b whose
denominator still fits. A Si5351 feedback or output divider is a + b/c with c
limited to 20 bits, so a target frequency that is not an exact ratio of the
reference has to be squeezed into that denominator. Simply fixing c at 2^20-1
quantizes badly at low output frequencies; the convergents are the best
rational approximations for their size and land within a fraction of a hertz
across the whole output range.
*/
func NearestFraction(a, b, max_denominator uint64) (c, d uint64, eps float64) {
	c, d = continuedFraction(a, b, 0, 1, max_denominator)
	eps = float64(a)/float64(b) - float64(c)/float64(d)
	return c, d, eps
}

/*
continuedFraction returns the rational value of the continued fraction of a/b,
cut off before the denominator would pass max_denominator.

Any rational a/b can be written as

	cf(a, b) = floor(a/b) + rem(a/b) / b = floor(a/b) + 1 / cf(b, rem(a/b))

The recursion carries the last two denominators e, f (starting at 0, 1) so the
denominator of the next convergent is known before descending.
*/
func continuedFraction(a, b, e, f, max_denominator uint64) (c, d uint64) {
	term := a / b
	denom := f + term*e
	if denom > max_denominator {
		return 1, 0
	}
	ax := a - term*b
	if ax == 0 {
		return term, 1
	}
	// a / b = term + 1/cf(b, ax) = (term*cx + dx) / cx
	cx, dx := continuedFraction(b, ax, denom, e, max_denominator)
	return term*cx + dx, cx
}

// GCD is the greatest common divisor of a and b. GCD(0, 0) is 1 so that it
// is always safe to divide by.
func GCD(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}
