package bucket

import (
	"fmt"

	"github.com/gogpu/bucket/style"
)

// FillPaintValues writes the per-vertex paint values of one feature into
// every vertex appended to kind since resume.
//
// For every child layer with per-vertex attributes, each attribute is
// evaluated once for props. The layer's paint array of every chunk from
// resume.Group on is grown to the chunk's vertex count, and the encoded
// values are written from resume.Index in the first chunk, and from 0 in
// later ones, up to the chunk end.
func (b *Bucket) FillPaintValues(kind string, globals style.Globals, props map[string]any, resume Cursor) error {
	if _, ok := b.schemas[kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	groups := b.groups[kind]

	for li, la := range b.classification[kind] {
		if len(la.Attributes) == 0 {
			continue
		}
		values := make([][]float64, len(la.Attributes))
		for ai, a := range la.Attributes {
			values[ai] = a.Encode(a.Value(b.layers[li], globals, props))
		}

		for gi := resume.Group; gi < len(groups); gi++ {
			g := groups[gi]
			paint := g.Paint[li]
			n := g.Len()
			start := 0
			if gi == resume.Group {
				start = resume.Index
			}
			paint.Resize(n)
			for i := start; i < n; i++ {
				for ai, v := range values {
					for c, x := range v {
						paint.Set(i, ai, c, x)
					}
				}
			}
		}
	}
	return nil
}
