// Package attribute decides how each paint property of each child style
// layer reaches the shader, and describes the resulting per-vertex
// attributes and per-draw uniforms.
//
// A property that is the same for every feature at every zoom becomes a
// uniform. A zoom-constant property that varies by feature becomes a
// per-vertex attribute. A zoom-dependent property is sampled at four zoom
// stops around the bucket zoom and interpolated in the shader, packed into
// one vec4 attribute when it has one component, or split across four
// attributes when it has more.
//
// Attribute values are stored as fixed-point integers: population
// multiplies by the attribute's multiplier and the shader divides by it.
package attribute

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/bucket/shader"
	"github.com/gogpu/bucket/structarray"
	"github.com/gogpu/bucket/style"
)

// Classification errors. Both indicate a programming error in the caller.
var (
	// ErrAttributePrefix is returned when a declared input name lacks
	// Prefix.
	ErrAttributePrefix = errors.New("attribute: input name must start with \"a_\"")

	// ErrNoChildLayers is returned when classification runs before any
	// child layer is known.
	ErrNoChildLayers = errors.New("attribute: no child layers")

	// ErrInvalidPaint is returned for a declaration with an unusable
	// component count or storage type.
	ErrInvalidPaint = errors.New("attribute: invalid paint declaration")
)

// Prefix starts every vertex input name.
const Prefix = "a_"

// Layer is the read-only view of a child layer classification needs.
type Layer interface {
	ID() string
	style.Properties
}

// ValueFunc evaluates an attribute for one feature.
type ValueFunc func(l style.Properties, g style.Globals, props map[string]any) []float64

// UniformFunc evaluates a uniform once per draw.
type UniformFunc func(l style.Properties, g style.Globals) []float64

// Paint declares a paint property a geometry variant can store per vertex.
type Paint struct {
	// Name is the vertex input name, e.g. "a_color".
	Name string
	// Property is the style paint property, e.g. "circle-color".
	Property string
	// Components is the number of value components, 1 to 4.
	Components int
	// Type is the storage type of each component.
	Type structarray.Type
	// Multiplier scales values into fixed point; zero means 1.
	Multiplier float64
	// Precision is the shader precision qualifier; empty means lowp.
	Precision string
	// Value overrides evaluation of Property when set.
	Value ValueFunc
}

// VarName returns the shader variable name, Name without Prefix.
func (p Paint) VarName() string {
	return strings.TrimPrefix(p.Name, Prefix)
}

func (p Paint) multiplier() float64 {
	if p.Multiplier == 0 {
		return 1
	}
	return p.Multiplier
}

func (p Paint) precision() string {
	if p.Precision == "" {
		return "lowp"
	}
	return p.Precision
}

func (p Paint) value(l style.Properties, g style.Globals, props map[string]any) []float64 {
	if p.Value != nil {
		return p.Value(l, g, props)
	}
	return l.PaintValue(p.Property, g, props)
}

func (p Paint) check() error {
	if !strings.HasPrefix(p.Name, Prefix) || len(p.Name) == len(Prefix) {
		return fmt.Errorf("%w: %q", ErrAttributePrefix, p.Name)
	}
	if p.Components < 1 || p.Components > 4 || !p.Type.Valid() {
		return fmt.Errorf("%w: %s has %d %s components", ErrInvalidPaint, p.Name, p.Components, p.Type)
	}
	return nil
}

// Strategy is the encoding chosen for one paint property of one layer.
type Strategy uint8

const (
	// Uniform passes a value that is constant across features and zoom.
	Uniform Strategy = iota
	// PerVertex stores a zoom-constant, feature-dependent value per vertex.
	PerVertex
	// Packed stores four zoom samples of a one-component value in one
	// four-component attribute.
	Packed
	// Split stores four zoom samples of a multi-component value in four
	// attributes.
	Split
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Uniform:
		return "uniform"
	case PerVertex:
		return "attribute"
	case Packed:
		return "packed"
	case Split:
		return "split"
	default:
		return "Strategy(" + strconv.Itoa(int(s)) + ")"
	}
}

func (s Strategy) binding() shader.Binding {
	switch s {
	case PerVertex:
		return shader.BindAttribute
	case Packed:
		return shader.BindZoomPacked
	case Split:
		return shader.BindZoomSplit
	default:
		return shader.BindUniform
	}
}

// Attribute describes one per-vertex input of a layer's paint array.
type Attribute struct {
	Name       string
	Property   string
	Components int
	Type       structarray.Type
	Multiplier float64
	Precision  string
	Strategy   Strategy
	// Zooms holds the sampled window zooms of Packed and Split attributes.
	// A Split attribute samples only Zooms[0].
	Zooms []float64
	Value ValueFunc
}

// Member returns the paint-array member storing the attribute.
func (a Attribute) Member() structarray.Member {
	return structarray.Member{Name: a.Name, Type: a.Type, Components: a.Components}
}

// Encode returns the fixed-point values to store for v.
func (a Attribute) Encode(v []float64) []float64 {
	out := make([]float64, a.Components)
	for i := range out {
		if i < len(v) {
			out[i] = Encode(v[i], a.Multiplier, a.Type)
		}
	}
	return out
}

// UniformDescriptor describes one per-draw input of a layer.
type UniformDescriptor struct {
	Name       string
	Components int
	Value      UniformFunc
}

// LayerAttributes is the classification result for one child layer of one
// buffer kind.
type LayerAttributes struct {
	LayerID    string
	Attributes []Attribute
	Uniforms   []UniformDescriptor
	Pragmas    shader.Table
	// Strategies maps every declared input name to its strategy.
	Strategies map[string]Strategy
}

// Members returns the paint-array members in attribute order.
func (la *LayerAttributes) Members() []structarray.Member {
	members := make([]structarray.Member, len(la.Attributes))
	for i, a := range la.Attributes {
		members[i] = a.Member()
	}
	return members
}

// Encode returns the stored fixed-point form of v for multiplier m and
// storage type t: round(v*m), saturated to t's range.
func Encode(v, m float64, t structarray.Type) float64 {
	if m == 0 {
		m = 1
	}
	return t.Quantize(v * m)
}

// Decode recovers a value from its stored form, as the shader does.
func Decode(stored, m float64) float64 {
	if m == 0 {
		m = 1
	}
	return stored / m
}
