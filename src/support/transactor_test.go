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
	"reflect"
	"testing"
)

// opLog records the byte-level calls made through a Transactor.
type opLog struct {
	ops   []string
	reads []byte
	err   error
}

func (l *opLog) Begin(addr uint16, read bool) error {
	l.ops = append(l.ops, fmt.Sprintf("start %#x read=%t", addr, read))
	return l.err
}

func (l *opLog) Put(b byte, last bool) error {
	l.ops = append(l.ops, fmt.Sprintf("put %#x last=%t", b, last))
	return nil
}

func (l *opLog) Get(last bool) (byte, error) {
	l.ops = append(l.ops, fmt.Sprintf("get last=%t", last))
	b := l.reads[0]
	l.reads = l.reads[1:]
	return b, nil
}

func Test_txbus_write(t *testing.T) {
	l := &opLog{}
	if err := TxBus(l).Tx(0x60, []byte{177, 0x20}, nil); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"start 0x60 read=false",
		"put 0xb1 last=false",
		"put 0x20 last=true",
	}
	if !reflect.DeepEqual(l.ops, want) {
		t.Errorf("got %q, want %q", l.ops, want)
	}
}

func Test_txbus_read(t *testing.T) {
	l := &opLog{reads: []byte{0x11, 0x22}}
	r := make([]byte, 2)
	if err := TxBus(l).Tx(0x60, []byte{26}, r); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"start 0x60 read=false",
		"put 0x1a last=false",
		"start 0x60 read=true",
		"get last=false",
		"get last=true",
	}
	if !reflect.DeepEqual(l.ops, want) {
		t.Errorf("got %q, want %q", l.ops, want)
	}
	if r[0] != 0x11 || r[1] != 0x22 {
		t.Errorf("read %x", r)
	}
}

func Test_txbus_error(t *testing.T) {
	boom := errors.New("nack")
	l := &opLog{err: boom}
	if err := TxBus(l).Tx(0x60, []byte{3, 0}, nil); !errors.Is(err, boom) {
		t.Errorf("got %v, want %v", err, boom)
	}
	if len(l.ops) != 1 {
		t.Errorf("bytes sent after failed start: %q", l.ops)
	}
}

func Test_membus(t *testing.T) {
	m := NewMemBus(0x60)
	if err := m.Tx(0x60, []byte{26, 1, 2, 3}, nil); err != nil {
		t.Fatal(err)
	}
	r := make([]byte, 3)
	if err := m.Tx(0x60, []byte{26}, r); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r, []byte{1, 2, 3}) {
		t.Errorf("read back %v", r)
	}
	if len(m.Writes) != 3 || m.WritesTo(27) != 1 || m.Writes[2] != (RegWrite{28, 3}) {
		t.Errorf("write log %v", m.Writes)
	}
	m.ClearLog()
	if len(m.Writes) != 0 || m.Regs[28] != 3 {
		t.Errorf("ClearLog lost registers or kept the log")
	}
	if err := m.Tx(0x61, []byte{0}, r); !errors.Is(err, ErrNoDevice) {
		t.Errorf("wrong address: %v", err)
	}
}
