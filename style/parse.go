package style

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Parse errors.
var (
	// ErrInvalidDocument is returned when a style document is malformed.
	ErrInvalidDocument = errors.New("style: invalid document")

	// ErrUnknownRef is returned when a layer references a missing layer.
	ErrUnknownRef = errors.New("style: layer references unknown layer")
)

// ParseJSON parses the layers of a JSON style document. The input is either
// a full document with a "layers" array or a bare layer array.
func ParseJSON(data []byte) ([]*Layer, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return parseDocument(doc)
}

// ParseYAML parses the layers of a style document written in YAML, with the
// same structure as ParseJSON accepts.
func ParseYAML(data []byte) ([]*Layer, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return parseDocument(doc)
}

func parseDocument(doc any) ([]*Layer, error) {
	raw, ok := doc.([]any)
	if !ok {
		m, isMap := doc.(map[string]any)
		if !isMap {
			return nil, fmt.Errorf("%w: expected object or array", ErrInvalidDocument)
		}
		raw, ok = m["layers"].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: missing layers array", ErrInvalidDocument)
		}
	}

	layers := make([]*Layer, 0, len(raw))
	byID := make(map[string]*Layer, len(raw))
	for i, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: layer %d is not an object", ErrInvalidDocument, i)
		}
		l, err := parseLayer(m)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if _, dup := byID[l.id]; dup {
			return nil, fmt.Errorf("%w: duplicate layer id %q", ErrInvalidDocument, l.id)
		}
		byID[l.id] = l
		layers = append(layers, l)
	}

	// A referencing layer inherits its base layer's layout properties.
	for _, l := range layers {
		if l.ref == "" {
			continue
		}
		base, ok := byID[l.ref]
		if !ok || base.ref != "" {
			return nil, fmt.Errorf("%w: %q -> %q", ErrUnknownRef, l.id, l.ref)
		}
		l.typ = base.typ
		l.source = base.source
		l.sourceLayer = base.sourceLayer
		l.minZoom = base.minZoom
		l.maxZoom = base.maxZoom
		l.filter = base.filter
	}
	return layers, nil
}

func parseLayer(m map[string]any) (*Layer, error) {
	id, _ := m["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidDocument)
	}
	l := NewLayer(id, "", nil)
	l.typ, _ = m["type"].(string)
	l.ref, _ = m["ref"].(string)
	l.source, _ = m["source"].(string)
	l.sourceLayer, _ = m["source-layer"].(string)
	if l.ref == "" && l.typ == "" {
		return nil, fmt.Errorf("%w: layer %q has no type", ErrInvalidDocument, id)
	}
	if z, ok := toFloat(m["minzoom"]); ok {
		l.minZoom = z
	}
	if z, ok := toFloat(m["maxzoom"]); ok {
		l.maxZoom = z
	}

	if raw, ok := m["filter"]; ok {
		expr, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: layer %q filter is not an array", ErrInvalidFilter, id)
		}
		f, err := CompileFilter(expr)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", id, err)
		}
		l.filter = f
	}

	if raw, ok := m["paint"]; ok {
		paint, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: layer %q paint is not an object", ErrInvalidDocument, id)
		}
		for name, v := range paint {
			fn, err := ParseFunction(v)
			if err != nil {
				return nil, fmt.Errorf("layer %q paint %q: %w", id, name, err)
			}
			l.SetPaint(name, fn)
		}
	}
	return l, nil
}

// ParseFunction parses a decoded paint value: a number, a color string, a
// number array, or a stop-function object.
func ParseFunction(v any) (*Function, error) {
	m, ok := v.(map[string]any)
	if !ok {
		value, err := parseValue(v)
		if err != nil {
			return nil, err
		}
		return Constant(value...), nil
	}

	rawStops, ok := m["stops"].([]any)
	if !ok || len(rawStops) == 0 {
		return nil, fmt.Errorf("%w: function without stops", ErrInvalidDocument)
	}

	f := &Function{Base: 1}
	if b, ok := toFloat(m["base"]); ok {
		f.Base = b
	}
	f.Property, _ = m["property"].(string)
	if t, ok := m["type"].(string); ok {
		switch t {
		case "exponential":
			f.Type = Exponential
		case "interval":
			f.Type = Interval
		case "categorical":
			f.Type = Categorical
		case "identity":
			f.Type = Identity
		default:
			return nil, fmt.Errorf("%w: unknown function type %q", ErrInvalidDocument, t)
		}
	}
	if d, ok := m["default"]; ok {
		value, err := parseValue(d)
		if err != nil {
			return nil, err
		}
		f.Default = value
	}

	for _, rs := range rawStops {
		pair, ok := rs.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: stop %v is not a pair", ErrInvalidDocument, rs)
		}
		value, err := parseValue(pair[1])
		if err != nil {
			return nil, err
		}
		s := Stop{Value: value}
		switch in := pair[0].(type) {
		case map[string]any:
			z, ok := toFloat(in["zoom"])
			if !ok {
				return nil, fmt.Errorf("%w: composite stop without zoom", ErrInvalidDocument)
			}
			s.Zoom, s.Input = z, normalizeInput(in["value"])
			f.zoomed = true
		default:
			if f.Property == "" {
				z, ok := toFloat(in)
				if !ok {
					return nil, fmt.Errorf("%w: zoom stop input %v", ErrInvalidDocument, in)
				}
				s.Zoom = z
				f.zoomed = true
			} else {
				s.Input = normalizeInput(in)
			}
		}
		f.Stops = append(f.Stops, s)
	}

	slices.SortStableFunc(f.Stops, func(a, b Stop) int {
		switch {
		case a.Zoom < b.Zoom:
			return -1
		case a.Zoom > b.Zoom:
			return 1
		}
		return 0
	})
	return f, nil
}

// normalizeInput converts decoded numbers to float64.
func normalizeInput(v any) any {
	if x, ok := toFloat(v); ok {
		return x
	}
	return v
}

func parseValue(v any) ([]float64, error) {
	switch v := v.(type) {
	case string:
		c, err := ParseColor(v)
		if err != nil {
			return nil, err
		}
		return c.Premultiply().Vec(), nil
	case bool:
		if v {
			return []float64{1}, nil
		}
		return []float64{0}, nil
	case []any:
		out := make([]float64, len(v))
		for i, e := range v {
			x, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("%w: array element %v is not a number", ErrInvalidDocument, e)
			}
			out[i] = x
		}
		return out, nil
	default:
		x, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: value %v", ErrInvalidDocument, v)
		}
		return []float64{x}, nil
	}
}
