package structarray

import "fmt"

// Serialized is the transferable form of an Array: its raw payload plus the
// schema needed to interpret it.
type Serialized struct {
	Usage   Usage
	Members []Member
	Length  int
	Data    []byte
}

// Serialize trims the array and moves its payload into a Serialized value.
// The array is left empty and keeps no reference to the payload.
func (a *Array) Serialize() Serialized {
	a.Trim()
	s := Serialized{
		Usage:   a.schema.usage,
		Members: a.schema.Members(),
		Length:  a.length,
		Data:    a.data,
	}
	a.data = nil
	a.length = 0
	return s
}

// FromSerialized rebuilds an array from its transferable form. The array
// takes ownership of s.Data.
func FromSerialized(s Serialized) (*Array, error) {
	schema, err := NewSchema(s.Usage, s.Members...)
	if err != nil {
		return nil, err
	}
	if s.Length < 0 || len(s.Data) != s.Length*schema.stride {
		return nil, fmt.Errorf("%w: %d bytes for %d records of %d bytes",
			ErrPayloadSize, len(s.Data), s.Length, schema.stride)
	}
	return &Array{schema: schema, data: s.Data, length: s.Length}, nil
}
