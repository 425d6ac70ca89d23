//go:build rp2040

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

package main

import (
	"fmt"
	"machine"
	"time"

	"clocksynth/src/board"
)

func main() {
	clock, err := board.Setup()
	if err != nil {
		panic("failed setup: " + err.Error())
	}

	button := machine.Pin(10)
	button.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	current := 0
	if err := clock.Select(board.Presets[current]); err != nil {
		fmt.Printf("preset %s: %s\n", board.Presets[current].Name, err)
	}

	ticker := time.NewTicker(2 * time.Second)
	pressed := false
	for {
		select {
		case <-ticker.C:
			s, err := clock.Dev.Status()
			if err != nil {
				fmt.Printf("status: %s\n", err)
				continue
			}
			if !s.Locked(board.Presets[current].PLL) {
				fmt.Printf("%s: PLL unlocked\n", board.Presets[current].Name)
			}
		default:
		}

		// active low, step to the next preset on release
		down := !button.Get()
		if pressed && !down {
			current = (current + 1) % len(board.Presets)
			if err := clock.Select(board.Presets[current]); err != nil {
				fmt.Printf("preset %s: %s\n", board.Presets[current].Name, err)
			}
		}
		pressed = down
		time.Sleep(20 * time.Millisecond)
	}
}
