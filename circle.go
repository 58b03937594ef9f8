package bucket

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/gogpu/bucket/attribute"
	"github.com/gogpu/bucket/structarray"
	"github.com/gogpu/bucket/style"
)

// KindCircle is the buffer kind of circle buckets.
const KindCircle = "circle"

func init() {
	Register("circle", circleVariant{})
}

var circleInterfaces = []ProgramInterface{{
	Name:              KindCircle,
	Layout:            []structarray.Member{{Name: "a_pos", Type: structarray.Int16, Components: 2}},
	ElementComponents: 3,
	Paint: []attribute.Paint{
		{Name: "a_color", Property: "circle-color", Components: 4, Type: structarray.Uint8, Multiplier: 255},
		{Name: "a_radius", Property: "circle-radius", Components: 1, Type: structarray.Uint16, Multiplier: 10, Precision: "mediump"},
		{Name: "a_blur", Property: "circle-blur", Components: 1, Type: structarray.Uint16, Multiplier: 10},
		{Name: "a_opacity", Property: "circle-opacity", Components: 1, Type: structarray.Uint16, Multiplier: 255},
	},
}}

// circleExtrude lists the quad corners each circle center is expanded to.
var circleExtrude = [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

// circleVariant draws every point as a quad the fragment shader rounds.
type circleVariant struct{}

func (circleVariant) ProgramInterfaces() []ProgramInterface { return circleInterfaces }

// AddFeature appends four vertices and two triangles per point. Points
// outside the tile are dropped since a neighboring tile draws them.
func (circleVariant) AddFeature(b *Bucket, f *geojson.Feature) error {
	rings := LoadGeometry(f.Geometry)
	if len(rings) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidGeometry, geometryType(f.Geometry))
	}

	resume := b.Cursor(KindCircle)
	for _, ring := range rings {
		for _, p := range ring {
			x, y := p[0], p[1]
			if x < 0 || x >= Extent || y < 0 || y >= Extent {
				continue
			}
			g, err := b.EnsureCapacity(KindCircle, 4)
			if err != nil {
				return err
			}
			i := float64(g.Len())
			// The low bit of each coordinate is the quad corner; the
			// shader recovers the extrusion as mod(a_pos, 2) * 2 - 1.
			for _, e := range circleExtrude {
				g.Vertex.EmplaceBack(2*x+(e[0]+1)/2, 2*y+(e[1]+1)/2)
			}
			g.Element.EmplaceBack(i, i+1, i+2)
			g.Element.EmplaceBack(i, i+3, i+2)
		}
	}
	return b.FillPaintValues(KindCircle, style.Globals{Zoom: b.zoom}, f.Properties, resume)
}

func (circleVariant) ElementCount(_ string, g *ArrayGroup) int {
	return g.Element.Len() * 3
}
