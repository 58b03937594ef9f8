package bucket

import (
	"fmt"
	"sort"

	"github.com/gogpu/bucket/structarray"
	"github.com/gogpu/bucket/style"
)

// Array names within a SerializedGroup.
const (
	ArrayLayoutVertex = "layoutVertex"
	ArrayElement      = "element"
	ArrayElement2     = "element2"
	// ArrayPaintPrefix is followed by the child layer ID.
	ArrayPaintPrefix = "paint:"
)

// Serialized is the transferable form of a built bucket.
type Serialized struct {
	Type        string
	Zoom        float64
	Overscaling int
	LayerIDs    []string
	// Arrays maps a buffer kind to its chunks in order.
	Arrays map[string][]SerializedGroup
}

// SerializedGroup is the transferable form of one chunk.
type SerializedGroup struct {
	Index  int
	Arrays map[string]structarray.Serialized
}

// Serialize moves every chunk into a Serialized value. The bucket drops
// its chunks and keeps no reference to the payloads.
func (b *Bucket) Serialize() *Serialized {
	s := &Serialized{
		Type:        b.typ,
		Zoom:        b.zoom,
		Overscaling: b.opts.overscaling,
		LayerIDs:    make([]string, len(b.layers)),
		Arrays:      make(map[string][]SerializedGroup, len(b.groups)),
	}
	for i, l := range b.layers {
		s.LayerIDs[i] = l.ID()
	}

	for kind, groups := range b.groups {
		out := make([]SerializedGroup, len(groups))
		for i, g := range groups {
			sg := SerializedGroup{Index: g.Index, Arrays: make(map[string]structarray.Serialized, 3+len(g.Paint))}
			sg.Arrays[ArrayLayoutVertex] = g.Vertex.Serialize()
			if g.Element != nil {
				sg.Arrays[ArrayElement] = g.Element.Serialize()
			}
			if g.Element2 != nil {
				sg.Arrays[ArrayElement2] = g.Element2.Serialize()
			}
			for li, p := range g.Paint {
				if p != nil {
					sg.Arrays[ArrayPaintPrefix+s.LayerIDs[li]] = p.Serialize()
				}
			}
			out[i] = sg
		}
		s.Arrays[kind] = out
	}
	b.groups = make(map[string][]*ArrayGroup, len(b.interfaces))
	return s
}

// Transferables returns every raw payload of s, in kind, chunk and array
// name order.
func (s *Serialized) Transferables() [][]byte {
	kinds := make([]string, 0, len(s.Arrays))
	for kind := range s.Arrays {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var out [][]byte
	for _, kind := range kinds {
		for _, sg := range s.Arrays[kind] {
			names := make([]string, 0, len(sg.Arrays))
			for name := range sg.Arrays {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if data := sg.Arrays[name].Data; len(data) > 0 {
					out = append(out, data)
				}
			}
		}
	}
	return out
}

// Deserialize rebuilds a bucket on the render side from its transferred
// form. layers must be the child layers the bucket was built with, in the
// same order. The bucket takes ownership of the payloads.
func Deserialize(s *Serialized, layers []style.ChildLayer, opts ...Option) (*Bucket, error) {
	if len(layers) != len(s.LayerIDs) {
		return nil, fmt.Errorf("%w: %d layers, want %d", ErrLayerMismatch, len(layers), len(s.LayerIDs))
	}
	for i, l := range layers {
		if l.ID() != s.LayerIDs[i] {
			return nil, fmt.Errorf("%w: layer %d is %q, want %q", ErrLayerMismatch, i, l.ID(), s.LayerIDs[i])
		}
	}

	opts = append([]Option{WithOverscaling(s.Overscaling)}, opts...)
	b, err := New(s.Type, layers, nil, s.Zoom, opts...)
	if err != nil {
		return nil, err
	}

	for kind, sgs := range s.Arrays {
		ks, ok := b.schemas[kind]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
		}
		groups := make([]*ArrayGroup, len(sgs))
		for i, sg := range sgs {
			if sg.Index != i {
				return nil, fmt.Errorf("%w: %s chunk %d has index %d", ErrInvalidPayload, kind, i, sg.Index)
			}
			g, err := restoreGroup(ks, sg, s.LayerIDs)
			if err != nil {
				return nil, fmt.Errorf("%s chunk %d: %w", kind, i, err)
			}
			groups[i] = g
		}
		b.groups[kind] = groups
	}
	return b, nil
}

func restoreGroup(ks *kindSchemas, sg SerializedGroup, layerIDs []string) (*ArrayGroup, error) {
	g := &ArrayGroup{Index: sg.Index, Paint: make([]*structarray.Array, len(ks.paint))}
	known := 0

	restore := func(name string, want *structarray.Schema) (*structarray.Array, error) {
		ser, ok := sg.Arrays[name]
		if want == nil {
			if ok {
				return nil, fmt.Errorf("%w: unexpected array %q", ErrInvalidPayload, name)
			}
			return nil, nil
		}
		known++
		if !ok {
			return nil, fmt.Errorf("%w: missing array %q", ErrInvalidPayload, name)
		}
		a, err := structarray.FromSerialized(ser)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, name, err)
		}
		if !a.Schema().Equal(want) {
			return nil, fmt.Errorf("%w: %s has a different layout", ErrInvalidPayload, name)
		}
		return a, nil
	}

	var err error
	if g.Vertex, err = restore(ArrayLayoutVertex, ks.vertex); err != nil {
		return nil, err
	}
	if g.Element, err = restore(ArrayElement, ks.element); err != nil {
		return nil, err
	}
	if g.Element2, err = restore(ArrayElement2, ks.element2); err != nil {
		return nil, err
	}
	if g.Len() > MaxVertices {
		return nil, fmt.Errorf("%w: %d vertices", ErrInvalidPayload, g.Len())
	}
	for li, want := range ks.paint {
		name := ArrayPaintPrefix + layerIDs[li]
		if g.Paint[li], err = restore(name, want); err != nil {
			return nil, err
		}
		if g.Paint[li] != nil && g.Paint[li].Len() != g.Len() {
			return nil, fmt.Errorf("%w: %s has %d records for %d vertices", ErrInvalidPayload, name, g.Paint[li].Len(), g.Len())
		}
	}
	if known != len(sg.Arrays) {
		return nil, fmt.Errorf("%w: %d unknown arrays", ErrInvalidPayload, len(sg.Arrays)-known)
	}
	return g, nil
}
