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
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
)

// RegWrite is one register write seen by a MemBus.
type RegWrite struct {
	Reg, Value byte
}

func (w RegWrite) String() string {
	return fmt.Sprintf("reg %3d <- %#02x", w.Reg, w.Value)
}

// MemBus is an in-memory device with 256 byte-wide registers at a single
// I2C address. Register pointers auto-increment like on most register-mapped
// chips. Every write is logged, which makes it suitable for dry runs.
type MemBus struct {
	Addr   uint16
	Regs   [256]byte
	Writes []RegWrite

	// Err, when set, fails every transaction.
	Err error
}

var ErrNoDevice = errors.New("membus: no device at address")

func NewMemBus(addr uint16) *MemBus {
	return &MemBus{Addr: addr}
}

// Tx implements drivers.I2C.
func (m *MemBus) Tx(addr uint16, w, r []byte) error {
	if m.Err != nil {
		return m.Err
	}
	if addr != m.Addr {
		return fmt.Errorf("%w %#x", ErrNoDevice, addr)
	}
	if len(w) == 0 {
		return errors.New("membus: missing register address")
	}
	reg := w[0]
	for _, v := range w[1:] {
		m.Regs[reg] = v
		m.Writes = append(m.Writes, RegWrite{Reg: reg, Value: v})
		reg++
	}
	for i := range r {
		r[i] = m.Regs[reg]
		reg++
	}
	return nil
}

// WritesTo counts the logged writes to reg.
func (m *MemBus) WritesTo(reg byte) int {
	n := 0
	for _, w := range m.Writes {
		if w.Reg == reg {
			n++
		}
	}
	return n
}

// ClearLog forgets the logged writes but keeps the register contents.
func (m *MemBus) ClearLog() {
	m.Writes = m.Writes[:0]
}

var _ drivers.I2C = (*MemBus)(nil)
