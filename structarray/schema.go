package structarray

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// Schema errors.
var (
	// ErrEmptySchema is returned when a schema has no members.
	ErrEmptySchema = errors.New("structarray: schema has no members")

	// ErrInvalidMember is returned for a member with an empty name, an
	// unknown type or a component count outside 1..4.
	ErrInvalidMember = errors.New("structarray: invalid member")

	// ErrDuplicateMember is returned when two members share a name.
	ErrDuplicateMember = errors.New("structarray: duplicate member name")
)

// Usage selects how a schema lays out its members.
type Usage uint8

const (
	// UsageVertex lays members out as WebGPU vertex attributes.
	UsageVertex Usage = iota
	// UsageElement packs members tightly, for index data.
	UsageElement
)

// String returns the name of the usage.
func (u Usage) String() string {
	switch u {
	case UsageVertex:
		return "Vertex"
	case UsageElement:
		return "Element"
	default:
		return fmt.Sprintf("Usage(%d)", int(u))
	}
}

// vertexAlignment is the byte alignment of vertex members and strides.
const vertexAlignment = 4

// Member describes one named field of a record.
type Member struct {
	Name       string
	Type       Type
	Components int
}

// field is a member with its resolved layout.
type field struct {
	Member

	// offset is the byte offset of the first component in the record.
	offset int

	// slots is the number of stored components; it is larger than
	// Components when a vertex member is widened.
	slots int
}

// Schema is the resolved layout of a record.
type Schema struct {
	usage  Usage
	fields []field
	index  map[string]int
	stride int
}

// NewSchema resolves the layout of members for the given usage.
func NewSchema(usage Usage, members ...Member) (*Schema, error) {
	if len(members) == 0 {
		return nil, ErrEmptySchema
	}

	s := &Schema{
		usage:  usage,
		fields: make([]field, 0, len(members)),
		index:  make(map[string]int, len(members)),
	}

	offset := 0
	maxSize := 1
	for _, m := range members {
		if m.Name == "" || !m.Type.Valid() || m.Components < 1 || m.Components > 4 {
			return nil, fmt.Errorf("%w: %q %s x%d", ErrInvalidMember, m.Name, m.Type, m.Components)
		}
		if _, dup := s.index[m.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateMember, m.Name)
		}

		size := m.Type.Size()
		align := size
		slots := m.Components
		if usage == UsageVertex {
			align = vertexAlignment
			slots = VertexSlots(m.Type, m.Components)
		}
		if size > maxSize {
			maxSize = size
		}

		offset = alignUp(offset, align)
		s.index[m.Name] = len(s.fields)
		s.fields = append(s.fields, field{Member: m, offset: offset, slots: slots})
		offset += size * slots
	}

	if usage == UsageVertex {
		s.stride = alignUp(offset, vertexAlignment)
	} else {
		s.stride = alignUp(offset, maxSize)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. It is meant for
// package-level layouts.
func MustSchema(usage Usage, members ...Member) *Schema {
	s, err := NewSchema(usage, members...)
	if err != nil {
		panic(err)
	}
	return s
}

// VertexSlots returns the component count a vertex member of type t is
// stored and fetched with. 8- and 16-bit members widen to the component
// counts WebGPU vertex formats support.
func VertexSlots(t Type, components int) int {
	if t.Size() >= 4 {
		return components
	}
	if components <= 2 {
		return 2
	}
	return 4
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// Usage returns the layout usage.
func (s *Schema) Usage() Usage { return s.usage }

// Stride returns the size of one record in bytes.
func (s *Schema) Stride() int { return s.stride }

// NumMembers returns the number of members.
func (s *Schema) NumMembers() int { return len(s.fields) }

// Members returns a copy of the member declarations in order.
func (s *Schema) Members() []Member {
	out := make([]Member, len(s.fields))
	for i := range s.fields {
		out[i] = s.fields[i].Member
	}
	return out
}

// Member returns the declaration of member i.
func (s *Schema) Member(i int) Member { return s.fields[i].Member }

// Offset returns the byte offset of member i within a record.
func (s *Schema) Offset(i int) int { return s.fields[i].offset }

// Lookup returns the index of the named member.
func (s *Schema) Lookup(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Equal reports whether both schemas produce the same layout.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.usage != o.usage || s.stride != o.stride || len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

// VertexFormat returns the WebGPU vertex format used to fetch member i.
func (s *Schema) VertexFormat(i int) gputypes.VertexFormat {
	f := s.fields[i]
	return vertexFormat(f.Type, f.slots)
}

// VertexBufferLayout describes the schema as one vertex buffer whose
// attributes occupy consecutive shader locations starting at firstLocation.
func (s *Schema) VertexBufferLayout(firstLocation uint32) gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, len(s.fields))
	for i := range s.fields {
		attrs[i] = gputypes.VertexAttribute{
			Format:         s.VertexFormat(i),
			Offset:         uint64(s.fields[i].offset),
			ShaderLocation: firstLocation + uint32(i),
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(s.stride), //nolint:gosec // stride is small and non-negative
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

func vertexFormat(t Type, slots int) gputypes.VertexFormat {
	switch t {
	case Int8:
		if slots <= 2 {
			return gputypes.VertexFormatSint8x2
		}
		return gputypes.VertexFormatSint8x4
	case Uint8:
		if slots <= 2 {
			return gputypes.VertexFormatUint8x2
		}
		return gputypes.VertexFormatUint8x4
	case Int16:
		if slots <= 2 {
			return gputypes.VertexFormatSint16x2
		}
		return gputypes.VertexFormatSint16x4
	case Uint16:
		if slots <= 2 {
			return gputypes.VertexFormatUint16x2
		}
		return gputypes.VertexFormatUint16x4
	case Int32:
		return [...]gputypes.VertexFormat{
			gputypes.VertexFormatSint32, gputypes.VertexFormatSint32x2,
			gputypes.VertexFormatSint32x3, gputypes.VertexFormatSint32x4,
		}[slots-1]
	case Uint32:
		return [...]gputypes.VertexFormat{
			gputypes.VertexFormatUint32, gputypes.VertexFormatUint32x2,
			gputypes.VertexFormatUint32x3, gputypes.VertexFormatUint32x4,
		}[slots-1]
	default:
		return [...]gputypes.VertexFormat{
			gputypes.VertexFormatFloat32, gputypes.VertexFormatFloat32x2,
			gputypes.VertexFormatFloat32x3, gputypes.VertexFormatFloat32x4,
		}[slots-1]
	}
}
