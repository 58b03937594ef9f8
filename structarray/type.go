// Package structarray implements growable arrays of fixed-layout packed
// records.
//
// A Schema describes the members of one record (name, numeric storage type
// and component count) and derives byte offsets and the record stride. An
// Array stores records contiguously in a single byte slice so the payload
// can be handed to the GPU as is, or moved to another goroutine with
// Serialize.
//
// Vertex schemas widen 8- and 16-bit members to the two- or four-component
// formats WebGPU can fetch, and align every member to four bytes. Element
// schemas are packed tightly.
package structarray

import (
	"fmt"
	"math"
)

// Type is the numeric storage type of a record member.
type Type uint8

// Storage types.
const (
	Int8 Type = iota + 1
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
)

// Size returns the size in bytes of one component.
func (t Type) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	default:
		return 0
	}
}

// String returns the name of the type.
func (t Type) String() string {
	switch t {
	case Int8:
		return "Int8"
	case Uint8:
		return "Uint8"
	case Int16:
		return "Int16"
	case Uint16:
		return "Uint16"
	case Int32:
		return "Int32"
	case Uint32:
		return "Uint32"
	case Float32:
		return "Float32"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Valid reports whether t is one of the defined storage types.
func (t Type) Valid() bool {
	return t >= Int8 && t <= Float32
}

// Range returns the smallest and largest value the type can store.
func (t Type) Range() (lo, hi float64) {
	switch t {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Uint8:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Uint16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Uint32:
		return 0, math.MaxUint32
	default:
		return -math.MaxFloat32, math.MaxFloat32
	}
}

// Quantize converts v to the value the type would store: integers are
// rounded half away from zero and saturated to the type range, NaN becomes
// zero. Float32 values are only narrowed.
func (t Type) Quantize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if t == Float32 {
		return float64(float32(v))
	}
	lo, hi := t.Range()
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
