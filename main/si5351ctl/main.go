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

// Command si5351ctl programs a Si5351 on a host I2C bus from planning script
// lines, given as arguments or read from a file.
//
//	si5351ctl -bus 1 -xtal 27MHz init "frac A 0 xtal 0 27 25" status
//	si5351ctl -dry-run -f presets.txt
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"clocksynth/src/script"
	"clocksynth/src/si5351"
	"clocksynth/src/support"
)

func main() {
	busName := flag.String("bus", "", "I2C bus name or number (default: first bus)")
	addr := flag.Uint("addr", si5351.DefaultAddress, "device address")
	xtal := 27 * physic.MegaHertz
	flag.Var(&xtal, "xtal", "crystal frequency")
	file := flag.String("f", "", "script file, - for stdin")
	dryRun := flag.Bool("dry-run", false, "plan against an in-memory register file and print the writes")
	lock := flag.Duration("lock", 100*time.Millisecond, "wait this long for PLL lock after programming, 0 to skip")
	verbose := flag.Bool("v", false, "log planner diagnostics")
	flag.Parse()

	cmds, err := loadScript(*file, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	if len(cmds) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := si5351.Config{
		Address: uint16(*addr),
		XtalHz:  uint32(xtal / physic.Hertz),
	}
	if *verbose {
		cfg.Logf = log.Printf
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	var (
		bus drivers.I2C
		mem *support.MemBus
	)
	if *dryRun {
		mem = support.NewMemBus(cfg.Address)
		bus = mem
		*lock = 0
	} else {
		if _, err := host.Init(); err != nil {
			log.Fatal(err)
		}
		b, err := i2creg.Open(*busName)
		if err != nil {
			log.Fatal(err)
		}
		defer b.Close()
		bus = b
	}

	r := &script.Runner{
		Dev:         si5351.New(bus, cfg),
		Out:         os.Stdout,
		LockTimeout: *lock,
	}
	err = r.RunAll(cmds)
	if mem != nil {
		for _, w := range mem.Writes {
			fmt.Println(w)
		}
	}
	if err != nil {
		log.Fatal(err)
	}
}

func loadScript(file string, args []string) ([]script.Command, error) {
	switch file {
	case "":
		return script.ParseAll(strings.NewReader(strings.Join(args, "\n")))
	case "-":
		return script.ParseAll(os.Stdin)
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return script.ParseAll(f)
}
