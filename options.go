package bucket

import (
	"github.com/paulmach/orb/maptile"

	"github.com/gogpu/bucket/shader"
)

// Option configures a Bucket during creation.
//
// Example:
//
//	b, err := bucket.New("circle", layers, features, 14,
//	    bucket.WithTile(maptile.New(8716, 5688, 14)),
//	    bucket.WithDialect(shader.WGSL{}))
type Option func(*options)

// options holds optional configuration for Bucket creation.
type options struct {
	overscaling int
	tile        maptile.Tile
	hasTile     bool
	dialect     shader.Dialect
	validate    bool
	cache       *shader.Cache
}

// defaultOptions returns the default bucket options.
func defaultOptions() options {
	return options{
		overscaling: 1,
		dialect:     shader.GLSL{},
	}
}

// WithOverscaling sets the overscale factor of a tile rendered past its
// source zoom. Values below 1 are ignored.
func WithOverscaling(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.overscaling = n
		}
	}
}

// WithTile records the tile the bucket is built for. It is used for log
// context only.
func WithTile(t maptile.Tile) Option {
	return func(o *options) {
		o.tile = t
		o.hasTile = true
	}
}

// WithDialect selects the shader language pragma tables are rendered in.
// The default is GLSL.
func WithDialect(d shader.Dialect) Option {
	return func(o *options) {
		if d != nil {
			o.dialect = d
		}
	}
}

// WithShaderValidation checks every pragma table when the bucket is
// created. Results are memoized in c, which may be shared by many buckets
// and may be nil.
//
// Example:
//
//	cache, _ := shader.NewCache(1 << 20)
//	defer cache.Close()
//	b, err := bucket.New("fill", layers, features, 14,
//	    bucket.WithDialect(shader.WGSL{}),
//	    bucket.WithShaderValidation(cache))
func WithShaderValidation(c *shader.Cache) Option {
	return func(o *options) {
		o.validate = true
		o.cache = c
	}
}
