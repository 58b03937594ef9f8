package attribute

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/gogpu/bucket/shader"
	"github.com/gogpu/bucket/structarray"
	"github.com/gogpu/bucket/style"
)

// Classification maps a buffer kind to the per-layer results, in child
// layer order.
type Classification map[string][]*LayerAttributes

// Layer returns the result for one kind and layer, or nil.
func (c Classification) Layer(kind, layerID string) *LayerAttributes {
	for _, la := range c[kind] {
		if la.LayerID == layerID {
			return la
		}
	}
	return nil
}

// Classify decides the strategy of every declared paint attribute of every
// layer at zoom, and renders the pragma table of each (kind, layer) with d.
// decls maps a buffer kind to its declared paint attributes.
func Classify(decls map[string][]Paint, layers []Layer, zoom float64, d shader.Dialect) (Classification, error) {
	if len(layers) == 0 {
		return nil, ErrNoChildLayers
	}
	if d == nil {
		d = shader.GLSL{}
	}

	kinds := make([]string, 0, len(decls))
	for kind := range decls {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	c := make(Classification, len(decls))
	for _, kind := range kinds {
		for _, p := range decls[kind] {
			if err := p.check(); err != nil {
				return nil, fmt.Errorf("kind %s: %w", kind, err)
			}
		}
		results := make([]*LayerAttributes, len(layers))
		for i, l := range layers {
			results[i] = classifyLayer(decls[kind], l, zoom, d)
		}
		c[kind] = results
	}
	return c, nil
}

func classifyLayer(paints []Paint, l Layer, zoom float64, d shader.Dialect) *LayerAttributes {
	la := &LayerAttributes{
		LayerID:    l.ID(),
		Pragmas:    shader.NewTable(),
		Strategies: make(map[string]Strategy, len(paints)),
	}
	slot := 0

	for _, p := range paints {
		decl := shader.Decl{
			Name:       p.VarName(),
			Precision:  p.precision(),
			Components: p.Components,
			Multiplier: p.multiplier(),
		}

		switch {
		case l.IsPaintValueFeatureConstant(p.Property) && l.IsPaintValueZoomConstant(p.Property):
			la.Strategies[p.Name] = Uniform
			la.Uniforms = append(la.Uniforms, UniformDescriptor{
				Name:       "u_" + decl.Name,
				Components: p.Components,
				Value: func(l style.Properties, g style.Globals) []float64 {
					return p.value(l, g, nil)
				},
			})

		case l.IsPaintValueZoomConstant(p.Property):
			la.Strategies[p.Name] = PerVertex
			la.Attributes = append(la.Attributes, Attribute{
				Name:       p.Name,
				Property:   p.Property,
				Components: p.Components,
				Type:       p.Type,
				Multiplier: p.multiplier(),
				Precision:  p.precision(),
				Strategy:   PerVertex,
				Value:      p.value,
			})

		default:
			window, offset := StopWindow(l.PaintValueStopZoomLevels(p.Property), zoom)
			la.Uniforms = append(la.Uniforms, UniformDescriptor{
				Name:       "u_" + decl.Name + "_t",
				Components: 1,
				Value: func(l style.Properties, g style.Globals) []float64 {
					return []float64{InterpolationT(l.PaintInterpolationT(p.Property, g.Zoom), offset)}
				},
			})
			if p.Components == 1 {
				la.Strategies[p.Name] = Packed
				la.Attributes = append(la.Attributes, packedAttribute(p, window))
			} else {
				la.Strategies[p.Name] = Split
				for k, z := range window {
					la.Attributes = append(la.Attributes, splitAttribute(p, k, z))
				}
			}
		}

		decl.Binding = la.Strategies[p.Name].binding()
		decl.Slot = slot
		decl.Input = inputScalar(p.Type)
		if decl.Binding == shader.BindZoomPacked {
			decl.InputSlots = structarray.VertexSlots(p.Type, WindowSize)
		} else {
			decl.InputSlots = structarray.VertexSlots(p.Type, p.Components)
		}
		if decl.Binding != shader.BindAttribute {
			slot++
		}
		d.Emit(la.Pragmas, decl)
	}
	return la
}

// inputScalar returns the component type the vertex format of t delivers.
func inputScalar(t structarray.Type) shader.Scalar {
	switch t {
	case structarray.Int8, structarray.Int16, structarray.Int32:
		return shader.Sint
	case structarray.Uint8, structarray.Uint16, structarray.Uint32:
		return shader.Uint
	default:
		return shader.Float
	}
}

// packedAttribute samples the first component of p at each window zoom.
func packedAttribute(p Paint, window [WindowSize]float64) Attribute {
	zooms := window[:]
	return Attribute{
		Name:       p.Name,
		Property:   p.Property,
		Components: WindowSize,
		Type:       p.Type,
		Multiplier: p.multiplier(),
		Precision:  p.precision(),
		Strategy:   Packed,
		Zooms:      zooms,
		Value: func(l style.Properties, g style.Globals, props map[string]any) []float64 {
			out := make([]float64, WindowSize)
			for i, z := range zooms {
				g.Zoom = z
				if v := p.value(l, g, props); len(v) > 0 {
					out[i] = v[0]
				}
			}
			return out
		},
	}
}

// splitAttribute samples every component of p at window zoom k.
func splitAttribute(p Paint, k int, zoom float64) Attribute {
	return Attribute{
		Name:       p.Name + strconv.Itoa(k),
		Property:   p.Property,
		Components: p.Components,
		Type:       p.Type,
		Multiplier: p.multiplier(),
		Precision:  p.precision(),
		Strategy:   Split,
		Zooms:      []float64{zoom},
		Value: func(l style.Properties, g style.Globals, props map[string]any) []float64 {
			g.Zoom = zoom
			return p.value(l, g, props)
		},
	}
}
