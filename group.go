package bucket

import (
	"fmt"

	"github.com/gogpu/bucket/structarray"
)

// MaxVertices is the number of vertices one chunk can index with 16-bit
// indices.
const MaxVertices = 65535

// ArrayGroup is one chunk of a buffer kind: vertices, their indices and one
// paint array per child layer.
type ArrayGroup struct {
	// Index is the position of the chunk in its kind's sequence.
	Index    int
	Vertex   *structarray.Array
	Element  *structarray.Array
	Element2 *structarray.Array
	// Paint holds one array per child layer, in child layer order. It is
	// nil for layers without per-vertex attributes.
	Paint []*structarray.Array
}

// Len returns the number of vertices in the chunk.
func (g *ArrayGroup) Len() int { return g.Vertex.Len() }

func (g *ArrayGroup) arrays() []*structarray.Array {
	out := []*structarray.Array{g.Vertex, g.Element, g.Element2}
	return append(out, g.Paint...)
}

func (g *ArrayGroup) trim() {
	for _, a := range g.arrays() {
		if a != nil {
			a.Trim()
		}
	}
}

// Cursor addresses a vertex position within a kind's chunk sequence.
type Cursor struct {
	Group int
	Index int
}

// kindSchemas holds the record layouts of one buffer kind.
type kindSchemas struct {
	vertex   *structarray.Schema
	element  *structarray.Schema
	element2 *structarray.Schema
	paint    []*structarray.Schema
}

func (ks *kindSchemas) newGroup(index int) *ArrayGroup {
	g := &ArrayGroup{
		Index:  index,
		Vertex: structarray.New(ks.vertex),
		Paint:  make([]*structarray.Array, len(ks.paint)),
	}
	if ks.element != nil {
		g.Element = structarray.New(ks.element)
	}
	if ks.element2 != nil {
		g.Element2 = structarray.New(ks.element2)
	}
	for i, s := range ks.paint {
		if s != nil {
			g.Paint[i] = structarray.New(s)
		}
	}
	return g
}

// EnsureCapacity returns the chunk of kind that the next n vertices must be
// appended to. It opens a new chunk when the kind has none or the last one
// cannot take n more vertices. A full chunk is never returned again.
func (b *Bucket) EnsureCapacity(kind string, n int) (*ArrayGroup, error) {
	ks, ok := b.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if n > MaxVertices {
		return nil, fmt.Errorf("%w: %d vertices", ErrPrimitiveTooLarge, n)
	}

	groups := b.groups[kind]
	if len(groups) > 0 {
		if last := groups[len(groups)-1]; last.Len()+n <= MaxVertices {
			return last, nil
		}
	}

	g := ks.newGroup(len(groups))
	b.groups[kind] = append(groups, g)
	Logger().Debug("bucket: chunk opened", "type", b.typ, "kind", kind, "index", g.Index)
	return g, nil
}

// Cursor returns the position the next vertex of kind will be written at,
// as seen before any new chunk is opened. Variants take it before appending
// a feature and pass it to FillPaintValues.
func (b *Bucket) Cursor(kind string) Cursor {
	groups := b.groups[kind]
	if len(groups) == 0 {
		return Cursor{}
	}
	last := len(groups) - 1
	return Cursor{Group: last, Index: groups[last].Len()}
}
