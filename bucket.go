package bucket

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/wgpu/hal"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/gogpu/bucket/attribute"
	"github.com/gogpu/bucket/gpu"
	"github.com/gogpu/bucket/shader"
	"github.com/gogpu/bucket/structarray"
	"github.com/gogpu/bucket/style"
)

// Bucket holds the GPU-ready geometry of one base style layer of one tile,
// plus the paint data of every child layer that shares it.
//
// A Bucket is built on one goroutine, moved to the render goroutine with
// Serialize and Deserialize, and uploaded and destroyed there. It is not
// safe for concurrent use.
type Bucket struct {
	typ      string
	variant  Variant
	zoom     float64
	layers   []style.ChildLayer
	features []*geojson.Feature
	opts     options

	interfaces     []ProgramInterface
	classification attribute.Classification
	schemas        map[string]*kindSchemas
	groups         map[string][]*ArrayGroup

	device  hal.Device
	buffers map[string][]*gpu.BufferGroup
}

// New returns a bucket of type typ for the child layers at zoom, with the
// paint attributes of every layer classified. The first layer is the base
// layer: its filter selects the features Build adds. Layer IDs must be
// unique.
func New(typ string, layers []style.ChildLayer, features []*geojson.Feature, zoom float64, opts ...Option) (*Bucket, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	v, err := Lookup(typ)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(layers))
	for _, l := range layers {
		if ids[l.ID()] {
			return nil, fmt.Errorf("%w: duplicate layer id %q", ErrLayerMismatch, l.ID())
		}
		ids[l.ID()] = true
	}

	b := &Bucket{
		typ:        typ,
		variant:    v,
		zoom:       zoom,
		layers:     layers,
		features:   features,
		opts:       o,
		interfaces: v.ProgramInterfaces(),
	}

	decls := make(map[string][]attribute.Paint, len(b.interfaces))
	for _, pi := range b.interfaces {
		decls[pi.Name] = pi.Paint
	}
	attrLayers := make([]attribute.Layer, len(layers))
	for i, l := range layers {
		attrLayers[i] = l
	}
	b.classification, err = attribute.Classify(decls, attrLayers, zoom, o.dialect)
	if err != nil {
		return nil, fmt.Errorf("bucket %s: %w", typ, err)
	}

	if o.validate {
		for _, kind := range b.Kinds() {
			for _, la := range b.classification[kind] {
				if err := shader.Validate(o.dialect, la.Pragmas, o.cache); err != nil {
					return nil, fmt.Errorf("bucket %s: layer %s: %w", typ, la.LayerID, err)
				}
			}
		}
	}

	if err := b.CreateArrays(); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateArrays derives the record layouts of every buffer kind from the
// variant's declarations and the classified attributes, and drops all
// chunks.
func (b *Bucket) CreateArrays() error {
	b.schemas = make(map[string]*kindSchemas, len(b.interfaces))
	b.groups = make(map[string][]*ArrayGroup, len(b.interfaces))

	for _, pi := range b.interfaces {
		ks := &kindSchemas{paint: make([]*structarray.Schema, len(b.layers))}
		var err error
		if ks.vertex, err = structarray.NewSchema(structarray.UsageVertex, pi.Layout...); err != nil {
			return fmt.Errorf("bucket %s: kind %s layout: %w", b.typ, pi.Name, err)
		}
		if ks.element, err = elementSchema(pi.ElementComponents); err != nil {
			return fmt.Errorf("bucket %s: kind %s elements: %w", b.typ, pi.Name, err)
		}
		if ks.element2, err = elementSchema(pi.Element2Components); err != nil {
			return fmt.Errorf("bucket %s: kind %s elements2: %w", b.typ, pi.Name, err)
		}
		for i, la := range b.classification[pi.Name] {
			if len(la.Attributes) == 0 {
				continue
			}
			if ks.paint[i], err = structarray.NewSchema(structarray.UsageVertex, la.Members()...); err != nil {
				return fmt.Errorf("bucket %s: kind %s paint %s: %w", b.typ, pi.Name, la.LayerID, err)
			}
		}
		b.schemas[pi.Name] = ks
	}
	return nil
}

// Element layouts shared by every bucket: line segments and triangles.
var (
	segmentSchema = structarray.MustSchema(structarray.UsageElement,
		structarray.Member{Name: "vertices", Type: structarray.Uint16, Components: 2})
	triangleSchema = structarray.MustSchema(structarray.UsageElement,
		structarray.Member{Name: "vertices", Type: structarray.Uint16, Components: 3})
)

func elementSchema(components int) (*structarray.Schema, error) {
	switch components {
	case 0:
		return nil, nil
	case 2:
		return segmentSchema, nil
	case 3:
		return triangleSchema, nil
	}
	return structarray.NewSchema(structarray.UsageElement,
		structarray.Member{Name: "vertices", Type: structarray.Uint16, Components: components})
}

// Build fills the bucket from its features. Every child layer is
// recalculated at the bucket zoom, features rejected by the base layer
// filter are ignored and the rest are handed to the variant. A feature the
// variant rejects with ErrInvalidGeometry is skipped. Any other error
// discards every chunk and is returned.
func (b *Bucket) Build() error {
	if err := b.CreateArrays(); err != nil {
		return err
	}

	history := style.StaticZoomHistory()
	for _, l := range b.layers {
		l.Recalculate(b.zoom, history)
	}

	base := b.layers[0]
	var added, skipped int
	for i, f := range b.features {
		if f == nil || !base.Filter(f) {
			continue
		}
		if err := b.variant.AddFeature(b, f); err != nil {
			if errors.Is(err, ErrInvalidGeometry) {
				skipped++
				Logger().Warn("bucket: feature skipped", "type", b.typ, "layer", base.ID(), "feature", i, "err", err)
				continue
			}
			b.groups = make(map[string][]*ArrayGroup, len(b.interfaces))
			return fmt.Errorf("bucket %s: feature %d: %w", b.typ, i, err)
		}
		added++
	}
	b.Trim()

	attrs := []any{"type", b.typ, "layer", base.ID(), "zoom", b.zoom, "features", added, "skipped", skipped}
	for _, kind := range b.Kinds() {
		attrs = append(attrs, kind+"Chunks", len(b.groups[kind]))
	}
	if b.opts.hasTile {
		attrs = append(attrs, "tile", b.opts.tile)
	}
	Logger().Debug("bucket: built", attrs...)
	return nil
}

// Trim shrinks every array's storage to its written length.
func (b *Bucket) Trim() {
	for _, groups := range b.groups {
		for _, g := range groups {
			g.trim()
		}
	}
}

// IsEmpty reports whether no kind holds any vertex.
func (b *Bucket) IsEmpty() bool {
	for _, groups := range b.groups {
		for _, g := range groups {
			if g.Len() > 0 {
				return false
			}
		}
	}
	return true
}

// Type returns the bucket type.
func (b *Bucket) Type() string { return b.typ }

// Zoom returns the zoom the bucket is built for.
func (b *Bucket) Zoom() float64 { return b.zoom }

// Overscaling returns the overscale factor.
func (b *Bucket) Overscaling() int { return b.opts.overscaling }

// Tile returns the tile set with WithTile.
func (b *Bucket) Tile() (maptile.Tile, bool) { return b.opts.tile, b.opts.hasTile }

// Layers returns the child layers, base layer first.
func (b *Bucket) Layers() []style.ChildLayer { return b.layers }

// Kinds returns the sorted buffer kinds of the bucket's variant.
func (b *Bucket) Kinds() []string {
	kinds := make([]string, 0, len(b.interfaces))
	for _, pi := range b.interfaces {
		kinds = append(kinds, pi.Name)
	}
	sort.Strings(kinds)
	return kinds
}

// Groups returns the chunks of kind in order.
func (b *Bucket) Groups(kind string) []*ArrayGroup { return b.groups[kind] }

// ElementCount returns the number of indices to draw from the primary
// element array of g.
func (b *Bucket) ElementCount(kind string, g *ArrayGroup) int {
	return b.variant.ElementCount(kind, g)
}

// Attributes returns the classification of one child layer for kind, or
// nil for an unknown kind or layer.
func (b *Bucket) Attributes(kind, layerID string) *attribute.LayerAttributes {
	return b.classification.Layer(kind, layerID)
}

// Pragmas returns the shader pragma table of one child layer for kind.
func (b *Bucket) Pragmas(kind, layerID string) (shader.Table, bool) {
	la := b.classification.Layer(kind, layerID)
	if la == nil {
		return shader.Table{}, false
	}
	return la.Pragmas, true
}

// UniformValues evaluates the uniforms of one child layer for a draw.
func (b *Bucket) UniformValues(kind, layerID string, globals style.Globals) (map[string][]float64, error) {
	la := b.classification.Layer(kind, layerID)
	if la == nil {
		return nil, fmt.Errorf("%w: %q layer %q", ErrUnknownKind, kind, layerID)
	}
	var layer style.ChildLayer
	for _, l := range b.layers {
		if l.ID() == layerID {
			layer = l
			break
		}
	}
	values := make(map[string][]float64, len(la.Uniforms))
	for _, u := range la.Uniforms {
		values[u.Name] = u.Value(layer, globals)
	}
	return values, nil
}
