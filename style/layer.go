// Package style provides the style-layer capabilities the bucket builder
// queries, and a reference implementation of Mapbox-style layers.
//
// The builder never reads style internals. It sees a child layer only
// through Properties (paint-property constancy, stop zoom levels,
// interpolation positions and values) and ChildLayer (identity,
// recalculation and feature filtering). Layer is a small evaluator of
// constant, zoom, property and zoom-and-property stop functions that
// satisfies both.
package style

import (
	"math"
	"time"

	"github.com/paulmach/orb/geojson"
)

// Globals is the global evaluation context of a paint value.
type Globals struct {
	Zoom float64
}

// ZoomHistory records zoom movement for cross-fading transitions.
type ZoomHistory struct {
	LastIntegerZoom     float64
	LastIntegerZoomTime time.Time
	LastZoom            float64
}

// StaticZoomHistory returns a history that never advances, so
// recalculation skips all cross-zoom transition logic.
func StaticZoomHistory() ZoomHistory {
	return ZoomHistory{LastIntegerZoom: math.Inf(1)}
}

// Properties answers the paint-property questions the attribute
// classification needs. Implementations must be safe to query repeatedly
// and must not change between classification and population.
type Properties interface {
	// IsPaintValueFeatureConstant reports whether the property value does
	// not depend on feature properties.
	IsPaintValueFeatureConstant(name string) bool

	// IsPaintValueZoomConstant reports whether the property value does not
	// depend on zoom.
	IsPaintValueZoomConstant(name string) bool

	// PaintValueStopZoomLevels returns the ascending zoom breakpoints of a
	// zoom-dependent property.
	PaintValueStopZoomLevels(name string) []float64

	// PaintInterpolationT returns the fractional stop index of zoom within
	// the property's zoom breakpoints.
	PaintInterpolationT(name string, zoom float64) float64

	// PaintValue evaluates the property. Colors are premultiplied RGBA in
	// [0, 1]; numbers have one component.
	PaintValue(name string, globals Globals, props map[string]any) []float64
}

// ChildLayer is a style layer variant whose features share geometry with
// the other children of a bucket.
type ChildLayer interface {
	Properties

	// ID returns the unique layer identifier.
	ID() string

	// Recalculate prepares paint values for zoom.
	Recalculate(zoom float64, history ZoomHistory)

	// Filter reports whether the feature belongs to the layer.
	Filter(f *geojson.Feature) bool
}
