package style

import (
	"math"
	"slices"
)

// FunctionType selects how a function maps its input onto stop outputs.
type FunctionType uint8

const (
	// Exponential interpolates between neighboring stops.
	Exponential FunctionType = iota
	// Interval steps to the output of the stop just below the input.
	Interval
	// Categorical matches the input exactly against stop inputs.
	Categorical
	// Identity uses the feature property itself as the output.
	Identity
)

// String returns the style-document name of the function type.
func (t FunctionType) String() string {
	switch t {
	case Exponential:
		return "exponential"
	case Interval:
		return "interval"
	case Categorical:
		return "categorical"
	case Identity:
		return "identity"
	default:
		return "unknown"
	}
}

// Stop is one breakpoint of a function. Zoom is the breakpoint zoom of
// zoom and zoom-and-property functions; Input is the property value of
// property and zoom-and-property functions (float64, string or bool).
type Stop struct {
	Zoom  float64
	Input any
	Value []float64
}

// Function is a paint-property value: a constant, or a stop function of
// zoom, of one feature property, or of both.
type Function struct {
	Type     FunctionType
	Base     float64
	Property string
	Stops    []Stop
	Default  []float64

	constant []float64
	zoomed   bool
}

// Constant returns a function that always evaluates to v.
func Constant(v ...float64) *Function {
	if len(v) == 0 {
		v = []float64{0}
	}
	return &Function{constant: slices.Clone(v), Base: 1}
}

// ZoomStops returns a zoom function. Stops must be ascending by Zoom.
func ZoomStops(typ FunctionType, base float64, stops ...Stop) *Function {
	return &Function{Type: typ, Base: base, Stops: stops, zoomed: true}
}

// PropertyStops returns a function of one feature property.
func PropertyStops(typ FunctionType, base float64, property string, stops ...Stop) *Function {
	return &Function{Type: typ, Base: base, Property: property, Stops: stops}
}

// CompositeStops returns a function of zoom and one feature property. Stops
// must be ascending by Zoom, then by Input.
func CompositeStops(typ FunctionType, base float64, property string, stops ...Stop) *Function {
	return &Function{Type: typ, Base: base, Property: property, Stops: stops, zoomed: true}
}

// IsFeatureConstant reports whether the value is the same for every feature.
func (f *Function) IsFeatureConstant() bool {
	return f.constant != nil || f.Property == ""
}

// IsZoomConstant reports whether the value is the same at every zoom.
func (f *Function) IsZoomConstant() bool {
	return f.constant != nil || !f.zoomed
}

// StopZoomLevels returns the distinct ascending stop zooms of a
// zoom-dependent function, and nil otherwise.
func (f *Function) StopZoomLevels() []float64 {
	if f.IsZoomConstant() {
		return nil
	}
	levels := make([]float64, 0, len(f.Stops))
	for _, s := range f.Stops {
		if n := len(levels); n == 0 || levels[n-1] != s.Zoom {
			levels = append(levels, s.Zoom)
		}
	}
	return levels
}

// InterpolationT returns the fractional position of zoom within the stop
// zoom levels: integer part is the lower stop index, fractional part the
// interpolation factor toward the next stop.
func (f *Function) InterpolationT(zoom float64) float64 {
	levels := f.StopZoomLevels()
	if len(levels) == 0 || zoom <= levels[0] {
		return 0
	}
	last := len(levels) - 1
	if zoom >= levels[last] {
		return float64(last)
	}
	i := lowerIndex(levels, zoom)
	if f.Type == Interval {
		return float64(i)
	}
	return float64(i) + interpolationFactor(zoom, f.Base, levels[i], levels[i+1])
}

// Evaluate returns the value for the zoom and feature properties.
func (f *Function) Evaluate(zoom float64, props map[string]any) []float64 {
	switch {
	case f.constant != nil:
		return slices.Clone(f.constant)
	case f.Property == "":
		return f.evaluateZoom(zoom)
	case !f.zoomed:
		return f.evaluateProperty(f.Stops, props)
	default:
		return f.evaluateComposite(zoom, props)
	}
}

func (f *Function) evaluateZoom(zoom float64) []float64 {
	if len(f.Stops) == 0 {
		return slices.Clone(f.Default)
	}
	inputs := make([]float64, len(f.Stops))
	for i, s := range f.Stops {
		inputs[i] = s.Zoom
	}
	return f.interpolate(f.Stops, inputs, zoom)
}

func (f *Function) evaluateProperty(stops []Stop, props map[string]any) []float64 {
	in, ok := props[f.Property]
	if !ok {
		return f.fallback(stops)
	}

	switch f.Type {
	case Identity:
		if v, ok := identityValue(in); ok {
			return v
		}
		return f.fallback(stops)

	case Categorical:
		for _, s := range stops {
			if equalInputs(s.Input, in) {
				return slices.Clone(s.Value)
			}
		}
		return f.fallback(stops)

	default:
		x, ok := toFloat(in)
		if !ok {
			return f.fallback(stops)
		}
		inputs := make([]float64, len(stops))
		for i, s := range stops {
			inputs[i], _ = toFloat(s.Input)
		}
		return f.interpolate(stops, inputs, x)
	}
}

// evaluateComposite evaluates the property function at each stop zoom,
// then interpolates the results by zoom.
func (f *Function) evaluateComposite(zoom float64, props map[string]any) []float64 {
	levels := f.StopZoomLevels()
	if len(levels) == 0 {
		return slices.Clone(f.Default)
	}
	byZoom := make([]Stop, len(levels))
	for i, z := range levels {
		var stops []Stop
		for _, s := range f.Stops {
			if s.Zoom == z {
				stops = append(stops, s)
			}
		}
		byZoom[i] = Stop{Zoom: z, Value: f.evaluateProperty(stops, props)}
	}
	zf := &Function{Type: Exponential, Base: f.Base}
	if f.Type == Interval {
		zf.Type = Interval
	}
	return zf.interpolate(byZoom, levels, zoom)
}

func (f *Function) interpolate(stops []Stop, inputs []float64, x float64) []float64 {
	if len(stops) == 0 {
		return slices.Clone(f.Default)
	}
	if x <= inputs[0] {
		return slices.Clone(stops[0].Value)
	}
	last := len(stops) - 1
	if x >= inputs[last] {
		return slices.Clone(stops[last].Value)
	}
	i := lowerIndex(inputs, x)
	if f.Type == Interval {
		return slices.Clone(stops[i].Value)
	}
	t := interpolationFactor(x, f.Base, inputs[i], inputs[i+1])
	return lerp(stops[i].Value, stops[i+1].Value, t)
}

func (f *Function) fallback(stops []Stop) []float64 {
	if f.Default != nil {
		return slices.Clone(f.Default)
	}
	if len(stops) > 0 {
		return make([]float64, len(stops[0].Value))
	}
	return []float64{0}
}

// lowerIndex returns the index of the last input <= x. inputs[0] <= x <
// inputs[len-1] must hold.
func lowerIndex(inputs []float64, x float64) int {
	i := 0
	for i+1 < len(inputs) && inputs[i+1] <= x {
		i++
	}
	return i
}

func interpolationFactor(x, base, lower, upper float64) float64 {
	diff := upper - lower
	if diff == 0 {
		return 0
	}
	progress := x - lower
	if base == 1 || base <= 0 {
		return progress / diff
	}
	return (math.Pow(base, progress) - 1) / (math.Pow(base, diff) - 1)
}

func lerp(a, b []float64, t float64) []float64 {
	out := make([]float64, max(len(a), len(b)))
	for i := range out {
		var x, y float64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		out[i] = x + (y-x)*t
	}
	return out
}

func identityValue(v any) ([]float64, bool) {
	switch v := v.(type) {
	case float64:
		return []float64{v}, true
	case int:
		return []float64{float64(v)}, true
	case bool:
		if v {
			return []float64{1}, true
		}
		return []float64{0}, true
	case string:
		c, err := ParseColor(v)
		if err != nil {
			return nil, false
		}
		return c.Premultiply().Vec(), true
	default:
		return nil, false
	}
}

func equalInputs(a, b any) bool {
	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		return ok && x == y
	}
	switch a := a.(type) {
	case string:
		b, ok := b.(string)
		return ok && a == b
	case bool:
		b, ok := b.(bool)
		return ok && a == b
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
