package style

import (
	"maps"

	"github.com/paulmach/orb/geojson"
)

// defaults holds the document default of each paint property the built-in
// bucket kinds read. Colors are premultiplied.
var defaults = map[string]*Function{
	"circle-color":       Constant(0, 0, 0, 1),
	"circle-radius":      Constant(5),
	"circle-blur":        Constant(0),
	"circle-opacity":     Constant(1),
	"fill-color":         Constant(0, 0, 0, 1),
	"fill-outline-color": Constant(0, 0, 0, 1),
	"fill-opacity":       Constant(1),
	"line-color":         Constant(0, 0, 0, 1),
	"line-opacity":       Constant(1),
	"line-width":         Constant(1),
	"line-blur":          Constant(0),
}

// Layer is a style layer: identity, source binding, zoom range, filter and
// paint properties.
//
// A Layer satisfies ChildLayer. Paint properties it does not set evaluate
// to their document default.
type Layer struct {
	id          string
	typ         string
	ref         string
	source      string
	sourceLayer string
	minZoom     float64
	maxZoom     float64
	filter      Filter
	paint       map[string]*Function

	zoom    float64
	history ZoomHistory
}

// NewLayer returns a layer of the given type. The layer has no filter and
// spans every zoom.
func NewLayer(id, typ string, paint map[string]*Function) *Layer {
	return &Layer{
		id:      id,
		typ:     typ,
		maxZoom: 24,
		filter:  acceptAll,
		paint:   maps.Clone(paint),
	}
}

// ID returns the unique layer identifier.
func (l *Layer) ID() string { return l.id }

// Type returns the layer type, such as "circle", "fill" or "line".
func (l *Layer) Type() string { return l.typ }

// Ref returns the identifier of the layer this one shares layout with, or "".
func (l *Layer) Ref() string { return l.ref }

// Source returns the source name.
func (l *Layer) Source() string { return l.source }

// SourceLayer returns the source layer the features come from.
func (l *Layer) SourceLayer() string { return l.sourceLayer }

// ZoomRange returns the layer's minimum and maximum zoom.
func (l *Layer) ZoomRange() (minZoom, maxZoom float64) { return l.minZoom, l.maxZoom }

// Zoom returns the zoom of the last recalculation.
func (l *Layer) Zoom() float64 { return l.zoom }

// SetFilter replaces the layer filter. A nil filter accepts every feature.
func (l *Layer) SetFilter(f Filter) {
	if f == nil {
		f = acceptAll
	}
	l.filter = f
}

// SetPaint sets one paint property.
func (l *Layer) SetPaint(name string, fn *Function) {
	if l.paint == nil {
		l.paint = make(map[string]*Function)
	}
	l.paint[name] = fn
}

// Paint returns the function of a paint property, falling back to the
// document default.
func (l *Layer) Paint(name string) *Function {
	if fn, ok := l.paint[name]; ok {
		return fn
	}
	if fn, ok := defaults[name]; ok {
		return fn
	}
	return Constant(0)
}

// Recalculate records the zoom paint values are prepared for.
func (l *Layer) Recalculate(zoom float64, history ZoomHistory) {
	l.zoom = zoom
	l.history = history
}

// Filter reports whether the feature passes the layer filter.
func (l *Layer) Filter(f *geojson.Feature) bool {
	return l.filter(f)
}

// IsPaintValueFeatureConstant implements Properties.
func (l *Layer) IsPaintValueFeatureConstant(name string) bool {
	return l.Paint(name).IsFeatureConstant()
}

// IsPaintValueZoomConstant implements Properties.
func (l *Layer) IsPaintValueZoomConstant(name string) bool {
	return l.Paint(name).IsZoomConstant()
}

// PaintValueStopZoomLevels implements Properties.
func (l *Layer) PaintValueStopZoomLevels(name string) []float64 {
	return l.Paint(name).StopZoomLevels()
}

// PaintInterpolationT implements Properties.
func (l *Layer) PaintInterpolationT(name string, zoom float64) float64 {
	return l.Paint(name).InterpolationT(zoom)
}

// PaintValue implements Properties.
func (l *Layer) PaintValue(name string, globals Globals, props map[string]any) []float64 {
	return l.Paint(name).Evaluate(globals.Zoom, props)
}

// Group orders layers into buckets: each base layer followed by the layers
// that reference it, in document order. References to unknown layers form
// no group.
func Group(layers []*Layer) [][]*Layer {
	index := make(map[string]int)
	var groups [][]*Layer
	for _, l := range layers {
		if l.ref == "" {
			index[l.id] = len(groups)
			groups = append(groups, []*Layer{l})
		}
	}
	for _, l := range layers {
		if l.ref == "" {
			continue
		}
		if i, ok := index[l.ref]; ok {
			groups[i] = append(groups[i], l)
		}
	}
	return groups
}

// Children converts a group into the child layers a bucket takes.
func Children(group []*Layer) []ChildLayer {
	out := make([]ChildLayer, len(group))
	for i, l := range group {
		out[i] = l
	}
	return out
}
