package bucket

import (
	"math"
	"sync"

	"github.com/paulmach/orb"
)

// Extent is the coordinate range of one tile: features are expected in
// [0, Extent) on both axes, with a buffer around the edges.
const Extent = 8192

// Loaded coordinates fit 16 bits minus the bit variants reserve for flags.
const (
	minCoord = -16384
	maxCoord = 16383
)

var clampOnce sync.Once

// LoadGeometry flattens g into rings of integer points within the 16-bit
// range vertex layouts can hold. Points and lines each form one ring,
// polygons contribute one ring per boundary, collections are flattened.
// Out-of-range coordinates are clamped; the first clamp is logged.
func LoadGeometry(g orb.Geometry) [][]orb.Point {
	var rings [][]orb.Point
	appendGeometry(&rings, g)
	return rings
}

func appendGeometry(rings *[][]orb.Point, g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		*rings = append(*rings, loadPoints([]orb.Point{g}))
	case orb.MultiPoint:
		for _, p := range g {
			*rings = append(*rings, loadPoints([]orb.Point{p}))
		}
	case orb.LineString:
		*rings = append(*rings, loadPoints(g))
	case orb.MultiLineString:
		for _, ls := range g {
			*rings = append(*rings, loadPoints(ls))
		}
	case orb.Ring:
		*rings = append(*rings, loadPoints(g))
	case orb.Polygon:
		for _, r := range g {
			*rings = append(*rings, loadPoints(r))
		}
	case orb.MultiPolygon:
		for _, p := range g {
			appendGeometry(rings, p)
		}
	case orb.Collection:
		for _, c := range g {
			appendGeometry(rings, c)
		}
	}
}

func loadPoints(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = orb.Point{loadCoord(p[0]), loadCoord(p[1])}
	}
	return out
}

func loadCoord(v float64) float64 {
	r := math.Round(v)
	if r >= minCoord && r <= maxCoord {
		return r
	}
	clampOnce.Do(func() {
		Logger().Warn("bucket: geometry exceeds allowed extent, reduce your vector tile buffer size", "value", v)
	})
	return max(minCoord, min(maxCoord, r))
}

// geometryType names g for error messages.
func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}
