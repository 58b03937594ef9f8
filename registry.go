package bucket

import (
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/gogpu/bucket/attribute"
	"github.com/gogpu/bucket/structarray"
)

// ProgramInterface declares one buffer kind of a geometry variant: the
// vertex layout, the index arrays and the paint properties its shader
// program reads.
type ProgramInterface struct {
	// Name is the buffer kind, e.g. "circle".
	Name string
	// Layout lists the vertex layout members.
	Layout []structarray.Member
	// ElementComponents is the number of indices per primary element
	// (3 for triangles, 2 for segments), or 0 for none.
	ElementComponents int
	// Element2Components is the same for the secondary element array.
	Element2Components int
	// Paint lists the paint properties that may be stored per vertex.
	Paint []attribute.Paint
}

// Variant is the geometry-specific half of a bucket: it declares buffer
// kinds and turns features into vertices and elements.
//
// AddFeature must reserve capacity with EnsureCapacity before appending,
// and fill paint values with FillPaintValues from a cursor taken before
// its first append. It returns ErrInvalidGeometry, before appending
// anything, for features it cannot draw.
type Variant interface {
	ProgramInterfaces() []ProgramInterface
	AddFeature(b *Bucket, f *geojson.Feature) error
	// ElementCount returns the number of indices to draw from the primary
	// element array of g.
	ElementCount(kind string, g *ArrayGroup) int
}

var (
	variantsMu sync.RWMutex
	variants   = make(map[string]Variant)
)

// Register makes a geometry variant available under a bucket type.
// If Register is called twice with the same type or if v is nil, it panics.
func Register(typ string, v Variant) {
	variantsMu.Lock()
	defer variantsMu.Unlock()
	if v == nil {
		panic("bucket: Register variant is nil")
	}
	if _, dup := variants[typ]; dup {
		panic("bucket: Register called twice for variant " + typ)
	}
	variants[typ] = v
}

// Lookup returns the variant registered for typ.
func Lookup(typ string) (Variant, error) {
	variantsMu.RLock()
	v, ok := variants[typ]
	variantsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return v, nil
}

// Types returns a sorted list of the registered bucket types.
func Types() []string {
	variantsMu.RLock()
	defer variantsMu.RUnlock()
	list := make([]string, 0, len(variants))
	for typ := range variants {
		list = append(list, typ)
	}
	sort.Strings(list)
	return list
}
