// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import (
	"bytes"
)

// Bytes stores variable length values back to back in Data. Value i is
// Data[Offsets[i] : Offsets[i]+Lengths[i]].
type Bytes struct {
	Data    []byte
	Offsets []uint32
	Lengths []uint32
}

func NewBytes(vs ...[]byte) *Bytes {
	a := &Bytes{}
	a.Append(vs)
	return a
}

func NewBytesFromStrings(vs ...string) *Bytes {
	a := &Bytes{}
	for _, v := range vs {
		a.AppendOnce([]byte(v))
	}
	return a
}

func (a *Bytes) Len() int {
	return len(a.Offsets)
}

func (a *Bytes) Reset() {
	a.Offsets = a.Offsets[:0]
	a.Lengths = a.Lengths[:0]
	a.Data = a.Data[:0]
}

func (a *Bytes) Window(start, end int) *Bytes {
	return &Bytes{
		Data:    a.Data,
		Offsets: a.Offsets[start:end],
		Lengths: a.Lengths[start:end],
	}
}

func (a *Bytes) AppendOnce(v []byte) {
	o := uint32(len(a.Data))
	a.Offsets = append(a.Offsets, o)
	a.Data = append(a.Data, v...)
	a.Lengths = append(a.Lengths, uint32(len(v)))
}

func (a *Bytes) Append(vs [][]byte) {
	o := uint32(len(a.Data))
	for _, v := range vs {
		a.Offsets = append(a.Offsets, o)
		a.Data = append(a.Data, v...)
		o += uint32(len(v))
		a.Lengths = append(a.Lengths, uint32(len(v)))
	}
}

func (a *Bytes) Get(n int64) []byte {
	offset := a.Offsets[n]
	return a.Data[offset : offset+a.Lengths[n]]
}

// Consistent reports whether offsets and lengths agree and every value
// lies inside Data.
func (a *Bytes) Consistent() bool {
	if len(a.Offsets) != len(a.Lengths) {
		return false
	}
	for i, o := range a.Offsets {
		if uint64(o)+uint64(a.Lengths[i]) > uint64(len(a.Data)) {
			return false
		}
	}
	return true
}

func (a *Bytes) String() string {
	var buf bytes.Buffer

	buf.WriteByte('[')
	j := len(a.Offsets) - 1
	for i, o := range a.Offsets {
		buf.Write(a.Data[o : o+a.Lengths[i]])
		if i != j {
			buf.WriteByte(' ')
		}
	}
	buf.WriteByte(']')
	return buf.String()
}
