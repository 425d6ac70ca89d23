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

import "errors"

var (
	// ErrInvalidRatio is returned for a zero numerator or denominator.
	ErrInvalidRatio = errors.New("si5351: invalid ratio numerator/denominator")

	// ErrRangeExceeded covers every frequency and register field limit. The
	// caller has to pick different parameters.
	ErrRangeExceeded = errors.New("si5351: range exceeded")

	// ErrFeedbackDividerOutOfRange is a warning from the integer planner. It
	// is reported in Plan.Warnings and does not stop programming.
	ErrFeedbackDividerOutOfRange = errors.New("si5351: feedback divider out of range")

	ErrNotReady  = errors.New("si5351: device did not finish initialization")
	ErrNotLocked = errors.New("si5351: PLL did not lock")
	ErrBadConfig = errors.New("si5351: invalid device configuration")
)
