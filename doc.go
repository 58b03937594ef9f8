// Package bucket converts map tile features into GPU-ready vertex, index
// and paint buffers.
//
// # Overview
//
// A Bucket holds the geometry of one base style layer of one tile and the
// paint data of every child layer that shares that geometry. Building a
// bucket runs in a worker goroutine; the result is moved to the render
// goroutine and uploaded there:
//
//	b, err := bucket.New("circle", style.Children(group), features, 14)
//	if err != nil { ... }
//	if err := b.Build(); err != nil { ... }
//	ch <- b.Serialize() // move to the render goroutine
//
//	// render goroutine
//	rb, err := bucket.Deserialize(<-ch, style.Children(group))
//	if err != nil { ... }
//	err = rb.Upload(device, queue)
//	defer rb.Destroy()
//
// # Paint attributes
//
// When a bucket is created, each paint property of each child layer is
// classified (see package attribute): constant values become uniforms,
// values that vary by feature are stored per vertex, and zoom-dependent
// values are sampled at four zoom stops and interpolated in the shader.
// Pragmas returns the shader text each child layer needs for its choice.
//
// # Chunks
//
// Vertices are indexed with 16 bits, so every buffer kind is split into
// chunks of at most 65535 vertices. A primitive never spans two chunks.
// Variants reserve room with EnsureCapacity and fill paint values for the
// vertices a feature added with FillPaintValues.
//
// # Geometry variants
//
// The circle, fill and line variants are registered by default. Other
// variants can be added with Register.
package bucket
