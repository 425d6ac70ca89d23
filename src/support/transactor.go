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

import "tinygo.org/x/drivers"

// Transactor is a byte-oriented I2C master, the kind found in small FPGA
// soft cores: a transaction is a start condition with the address and
// direction, followed by single bytes. last marks the final byte, so the
// master can send a stop (on write) or a NACK and stop (on read).
type Transactor interface {
	Begin(addr uint16, read bool) error
	Put(b byte, last bool) error
	Get(last bool) (byte, error)
}

// TxBus adapts a Transactor to the drivers.I2C interface.
func TxBus(t Transactor) *TransactorBus {
	return &TransactorBus{t: t}
}

type TransactorBus struct {
	t Transactor
}

// Tx writes w and then, with a repeated start, reads len(r) bytes.
func (b *TransactorBus) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		if err := b.t.Begin(addr, false); err != nil {
			return err
		}
		for i, v := range w {
			if err := b.t.Put(v, i == len(w)-1 && len(r) == 0); err != nil {
				return err
			}
		}
	}
	if len(r) > 0 {
		if err := b.t.Begin(addr, true); err != nil {
			return err
		}
		for i := range r {
			v, err := b.t.Get(i == len(r)-1)
			if err != nil {
				return err
			}
			r[i] = v
		}
	}
	return nil
}

var _ drivers.I2C = (*TransactorBus)(nil)
