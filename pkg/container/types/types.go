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
	"fmt"
)

type T uint8

const (
	// any family
	T_any T = 0

	// bool family
	T_bool T = 10

	// numeric/integer family
	T_int8   T = 20
	T_int16  T = 21
	T_int32  T = 22
	T_int64  T = 23
	T_uint8  T = 25
	T_uint16 T = 26
	T_uint32 T = 27
	T_uint64 T = 28

	// numeric/float family
	T_float32 T = 30
	T_float64 T = 31

	// string family
	T_char    T = 40
	T_varchar T = 41
)

type Type struct {
	Oid T
	// Size of a fixed width element in bytes, 0 for variable length.
	Size int32
	// Width is the declared length of char/varchar.
	Width int32
}

type Ints interface {
	int8 | int16 | int32 | int64
}

type UInts interface {
	uint8 | uint16 | uint32 | uint64
}

type Floats interface {
	float32 | float64
}

type Number interface {
	Ints | UInts | Floats
}

// FixedSizeT is the closed set of fixed width element kinds a column can store.
type FixedSizeT interface {
	bool | Number
}

var Types map[string]T = map[string]T{
	"bool": T_bool,

	"tinyint":  T_int8,
	"smallint": T_int16,
	"int":      T_int32,
	"integer":  T_int32,
	"bigint":   T_int64,

	"tinyint unsigned":  T_uint8,
	"smallint unsigned": T_uint16,
	"int unsigned":      T_uint32,
	"integer unsigned":  T_uint32,
	"bigint unsigned":   T_uint64,

	"float":  T_float32,
	"double": T_float64,

	"char":    T_char,
	"varchar": T_varchar,
}

func New(oid T, width int32) Type {
	return Type{Oid: oid, Size: int32(oid.FixedLength()), Width: width}
}

func (t T) ToType() Type {
	return New(t, 0)
}

// TypeOf returns the kind stored in a []V column.
func TypeOf[V FixedSizeT]() T {
	var v V
	switch any(v).(type) {
	case bool:
		return T_bool
	case int8:
		return T_int8
	case int16:
		return T_int16
	case int32:
		return T_int32
	case int64:
		return T_int64
	case uint8:
		return T_uint8
	case uint16:
		return T_uint16
	case uint32:
		return T_uint32
	case uint64:
		return T_uint64
	case float32:
		return T_float32
	default:
		return T_float64
	}
}

func (t Type) IsVarlen() bool {
	return t.Oid.IsVarlen()
}

func (t Type) String() string {
	return t.Oid.String()
}

func (t Type) Eq(b Type) bool {
	return t.Oid == b.Oid && t.Width == b.Width
}

func (t T) IsVarlen() bool {
	return t == T_char || t == T_varchar
}

func (t T) IsFixedLen() bool {
	return t.FixedLength() > 0
}

// FixedLength returns the element size in bytes, 0 for string kinds
// and -1 for an unknown kind.
func (t T) FixedLength() int {
	switch t {
	case T_bool, T_int8, T_uint8:
		return 1
	case T_int16, T_uint16:
		return 2
	case T_int32, T_uint32, T_float32:
		return 4
	case T_int64, T_uint64, T_float64:
		return 8
	case T_char, T_varchar:
		return 0
	}
	return -1
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "TINYINT"
	case T_int16:
		return "SMALLINT"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_uint8:
		return "TINYINT UNSIGNED"
	case T_uint16:
		return "SMALLINT UNSIGNED"
	case T_uint32:
		return "INT UNSIGNED"
	case T_uint64:
		return "BIGINT UNSIGNED"
	case T_float32:
		return "FLOAT"
	case T_float64:
		return "DOUBLE"
	case T_char:
		return "CHAR"
	case T_varchar:
		return "VARCHAR"
	}
	return fmt.Sprintf("unexpected type: %d", t)
}

// FixedKinds lists every fixed width kind.
var FixedKinds = []T{
	T_bool,
	T_int8, T_int16, T_int32, T_int64,
	T_uint8, T_uint16, T_uint32, T_uint64,
	T_float32, T_float64,
}
