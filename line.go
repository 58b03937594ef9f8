package bucket

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gogpu/bucket/attribute"
	"github.com/gogpu/bucket/internal/tessellate"
	"github.com/gogpu/bucket/structarray"
	"github.com/gogpu/bucket/style"
)

// KindLine is the buffer kind of line buckets.
const KindLine = "line"

// Extrusion normals are stored as 63*n + 128 in one byte per axis.
const lineExtrudeScale = 63

// Distance along the line is stored in 14 bits at half resolution.
const (
	lineDistanceScale = 0.5
	maxLineDistance   = 1<<14 - 1
)

func init() {
	Register("line", lineVariant{miterLimit: tessellate.DefaultMiterLimit})
}

var lineInterfaces = []ProgramInterface{{
	Name: KindLine,
	Layout: []structarray.Member{
		{Name: "a_pos", Type: structarray.Int16, Components: 2},
		{Name: "a_data", Type: structarray.Uint8, Components: 4},
	},
	ElementComponents: 3,
	Paint: []attribute.Paint{
		{Name: "a_color", Property: "line-color", Components: 4, Type: structarray.Uint8, Multiplier: 255},
		{Name: "a_opacity", Property: "line-opacity", Components: 1, Type: structarray.Uint8, Multiplier: 255},
		{Name: "a_width", Property: "line-width", Components: 1, Type: structarray.Uint16, Multiplier: 2},
		{Name: "a_blur", Property: "line-blur", Components: 1, Type: structarray.Uint16, Multiplier: 10},
	},
}}

// lineVariant extrudes lines into triangle strips, two vertices per join.
type lineVariant struct {
	miterLimit float64
}

func (lineVariant) ProgramInterfaces() []ProgramInterface { return lineInterfaces }

func (v lineVariant) AddFeature(b *Bucket, f *geojson.Feature) error {
	switch f.Geometry.(type) {
	case orb.LineString, orb.MultiLineString, orb.Ring, orb.Polygon, orb.MultiPolygon:
	default:
		return fmt.Errorf("%w: line needs lines or polygons, got %s", ErrInvalidGeometry, geometryType(f.Geometry))
	}

	resume := b.Cursor(KindLine)
	for _, line := range LoadGeometry(f.Geometry) {
		if err := v.addLine(b, toTessPoints(line)); err != nil {
			return err
		}
	}
	return b.FillPaintValues(KindLine, style.Globals{Zoom: b.zoom}, f.Properties, resume)
}

func (v lineVariant) addLine(b *Bucket, line []tessellate.Point) error {
	joins := tessellate.Joins(line, v.miterLimit)
	if len(joins) == 0 {
		return nil
	}
	g, err := b.EnsureCapacity(KindLine, 2*len(joins))
	if err != nil {
		return err
	}

	for k, j := range joins {
		base := g.Len()
		addLineVertex(g, j, j.Extrude, 1)
		addLineVertex(g, j, j.Extrude.Neg(), 0)
		if k > 0 {
			prev := base - 2
			g.Element.EmplaceBack(float64(prev), float64(prev+1), float64(base))
			g.Element.EmplaceBack(float64(prev+1), float64(base), float64(base+1))
		}
	}
	return nil
}

// addLineVertex appends one side of a join. The low bit of the y
// coordinate tells the shader which side the vertex is on.
func addLineVertex(g *ArrayGroup, j tessellate.Join, extrude tessellate.Vec2, up float64) {
	dist := min(int(math.Round(j.Distance*lineDistanceScale)), maxLineDistance)
	g.Vertex.EmplaceBack(
		2*j.Point.X, 2*j.Point.Y+up,
		math.Round(lineExtrudeScale*extrude.X)+128,
		math.Round(lineExtrudeScale*extrude.Y)+128,
		float64(int(j.Dir+1)|(dist&0x3f)<<2),
		float64(dist>>6),
	)
}

func (lineVariant) ElementCount(_ string, g *ArrayGroup) int {
	return g.Element.Len() * 3
}
