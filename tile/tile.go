// Package tile decodes Mapbox Vector Tiles into the features buckets are
// built from.
//
// Decoded geometries are rescaled from the layer extent (usually 4096) to
// the 8192 bucket extent, so features can be handed to bucket.New as is.
package tile

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/gogpu/bucket"
)

// ErrDecode is returned for tile data that is not a vector tile.
var ErrDecode = errors.New("tile: invalid vector tile")

// defaultExtent is the extent of layers that do not declare one.
const defaultExtent = 4096

var gzipMagic = []byte{0x1f, 0x8b}

// Layer is one decoded source layer.
type Layer struct {
	Name string
	// Extent is the extent the layer was encoded with.
	Extent   uint32
	Features []*geojson.Feature
}

// Tile holds the decoded layers of one tile in encoding order.
type Tile struct {
	Layers []*Layer
}

// Layer returns the named source layer, or nil.
func (t *Tile) Layer(name string) *Layer {
	for _, l := range t.Layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Features returns the features of the named source layer.
func (t *Tile) Features(name string) []*geojson.Feature {
	if l := t.Layer(name); l != nil {
		return l.Features
	}
	return nil
}

// Decode parses a vector tile, gzip-compressed or not, and rescales every
// layer to the bucket extent. Empty data decodes to an empty tile.
func Decode(data []byte) (*Tile, error) {
	if len(data) == 0 {
		return &Tile{}, nil
	}

	var (
		layers mvt.Layers
		err    error
	)
	if bytes.HasPrefix(data, gzipMagic) {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	t := &Tile{Layers: make([]*Layer, 0, len(layers))}
	for _, l := range layers {
		extent := l.Extent
		if extent == 0 {
			extent = defaultExtent
		}
		scale := float64(bucket.Extent) / float64(extent)
		rescale := orb.Projection(func(p orb.Point) orb.Point {
			return orb.Point{p[0] * scale, p[1] * scale}
		})
		for _, f := range l.Features {
			if f.Geometry != nil && scale != 1 {
				f.Geometry = project.Geometry(f.Geometry, rescale)
			}
		}
		t.Layers = append(t.Layers, &Layer{Name: l.Name, Extent: extent, Features: l.Features})
	}
	return t, nil
}
