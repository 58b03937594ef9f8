package bucket

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gogpu/bucket/attribute"
	"github.com/gogpu/bucket/internal/tessellate"
	"github.com/gogpu/bucket/structarray"
	"github.com/gogpu/bucket/style"
)

// KindFill is the buffer kind of fill buckets.
const KindFill = "fill"

func init() {
	Register("fill", fillVariant{})
}

var fillInterfaces = []ProgramInterface{{
	Name:               KindFill,
	Layout:             []structarray.Member{{Name: "a_pos", Type: structarray.Int16, Components: 2}},
	ElementComponents:  3,
	Element2Components: 2,
	Paint: []attribute.Paint{
		{Name: "a_color", Property: "fill-color", Components: 4, Type: structarray.Uint8, Multiplier: 255},
		{Name: "a_outline_color", Property: "fill-outline-color", Components: 4, Type: structarray.Uint8, Multiplier: 255},
		{Name: "a_opacity", Property: "fill-opacity", Components: 1, Type: structarray.Uint8, Multiplier: 255},
	},
}}

// fillVariant draws polygons with fan triangles for a stencil pass and
// outline segments in the secondary element array.
type fillVariant struct{}

func (fillVariant) ProgramInterfaces() []ProgramInterface { return fillInterfaces }

func (fillVariant) AddFeature(b *Bucket, f *geojson.Feature) error {
	var polygons []orb.Polygon
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{g}
	case orb.MultiPolygon:
		polygons = g
	default:
		return fmt.Errorf("%w: fill needs polygons, got %s", ErrInvalidGeometry, geometryType(f.Geometry))
	}

	resume := b.Cursor(KindFill)
	for _, poly := range polygons {
		if err := addPolygon(b, poly); err != nil {
			return err
		}
	}
	return b.FillPaintValues(KindFill, style.Globals{Zoom: b.zoom}, f.Properties, resume)
}

// addPolygon appends the rings of one polygon to a single chunk.
func addPolygon(b *Bucket, poly orb.Polygon) error {
	var rings [][]tessellate.Point
	total := 0
	for _, r := range LoadGeometry(poly) {
		ring := toTessPoints(r)
		n := tessellate.RingLen(ring)
		if n < 3 || tessellate.SignedArea(ring[:n]) == 0 {
			continue
		}
		rings = append(rings, ring[:n])
		total += n
	}
	if total == 0 {
		return nil
	}

	g, err := b.EnsureCapacity(KindFill, total)
	if err != nil {
		return err
	}
	for _, ring := range rings {
		start := g.Len()
		for _, p := range ring {
			g.Vertex.EmplaceBack(p.X, p.Y)
		}
		n := len(ring)
		for k := 0; k < n; k++ {
			g.Element2.EmplaceBack(float64(start+k), float64(start+(k+1)%n))
		}
		for _, t := range tessellate.Fan(ring) {
			g.Element.EmplaceBack(float64(start+t[0]), float64(start+t[1]), float64(start+t[2]))
		}
	}
	return nil
}

func (fillVariant) ElementCount(_ string, g *ArrayGroup) int {
	return g.Element.Len() * 3
}

func toTessPoints(ring []orb.Point) []tessellate.Point {
	out := make([]tessellate.Point, len(ring))
	for i, p := range ring {
		out[i] = tessellate.Point{X: p[0], Y: p[1]}
	}
	return out
}
