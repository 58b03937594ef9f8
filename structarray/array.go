package structarray

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Array errors.
var (
	// ErrPayloadSize is returned when a serialized payload does not hold
	// exactly Length records.
	ErrPayloadSize = errors.New("structarray: payload size does not match length")

	// ErrTooManyValues is returned by EmplaceBack when more values are given
	// than the schema has components.
	ErrTooManyValues = errors.New("structarray: too many values for record")
)

// minCapacity is the record capacity allocated on first growth.
const minCapacity = 128

// Array is a growable sequence of records laid out by a Schema.
//
// Array is not safe for concurrent use. It is owned by the goroutine that
// builds it until Serialize moves its payload out.
type Array struct {
	schema *Schema
	data   []byte
	length int
}

// New returns an empty array for schema.
func New(schema *Schema) *Array {
	return &Array{schema: schema}
}

// Schema returns the array's schema.
func (a *Array) Schema() *Schema { return a.schema }

// Len returns the number of records.
func (a *Array) Len() int { return a.length }

// Cap returns the number of records the backing storage can hold.
func (a *Array) Cap() int { return len(a.data) / a.schema.stride }

// Bytes returns the written records. The slice aliases the array storage.
func (a *Array) Bytes() []byte { return a.data[:a.length*a.schema.stride] }

// reserve grows the backing storage to hold at least n records.
func (a *Array) reserve(n int) {
	if n <= a.Cap() {
		return
	}
	c := a.Cap() + a.Cap()/2
	if c < minCapacity {
		c = minCapacity
	}
	if c < n {
		c = n
	}
	grown := make([]byte, c*a.schema.stride)
	copy(grown, a.data[:a.length*a.schema.stride])
	a.data = grown
}

// Resize sets the number of records to n. New records are zero. Shrinking
// zeroes the dropped records so a later grow starts from zero again.
func (a *Array) Resize(n int) {
	if n < 0 {
		n = 0
	}
	if n < a.length {
		clear(a.data[n*a.schema.stride : a.length*a.schema.stride])
	}
	a.reserve(n)
	a.length = n
}

// EmplaceBack appends one record built from values, which fill the members'
// components in declaration order. Missing trailing values stay zero. It
// returns the index of the new record.
func (a *Array) EmplaceBack(values ...float64) int {
	i := a.length
	a.Resize(i + 1)

	k := 0
	for m := range a.schema.fields {
		for c := 0; c < a.schema.fields[m].Components; c++ {
			if k == len(values) {
				return i
			}
			a.Set(i, m, c, values[k])
			k++
		}
	}
	if k < len(values) {
		panic(fmt.Errorf("%w: got %d", ErrTooManyValues, len(values)))
	}
	return i
}

// Set stores v in component c of member m of record i, quantized to the
// member's storage type.
func (a *Array) Set(i, m, c int, v float64) {
	f := &a.schema.fields[m]
	off := i*a.schema.stride + f.offset + c*f.Type.Size()
	put(a.data[off:], f.Type, f.Type.Quantize(v))
}

// Get returns component c of member m of record i.
func (a *Array) Get(i, m, c int) float64 {
	f := &a.schema.fields[m]
	off := i*a.schema.stride + f.offset + c*f.Type.Size()
	return get(a.data[off:], f.Type)
}

// Trim shrinks the backing storage to exactly Len records.
func (a *Array) Trim() {
	n := a.length * a.schema.stride
	if n == len(a.data) {
		return
	}
	trimmed := make([]byte, n)
	copy(trimmed, a.data[:n])
	a.data = trimmed
}

func put(b []byte, t Type, v float64) {
	switch t {
	case Int8:
		b[0] = byte(int8(v))
	case Uint8:
		b[0] = uint8(v)
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	}
}

func get(b []byte, t Type) float64 {
	switch t {
	case Int8:
		return float64(int8(b[0]))
	case Uint8:
		return float64(b[0])
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return 0
	}
}
