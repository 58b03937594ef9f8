package bucket

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/bucket/gpu"
	"github.com/gogpu/bucket/structarray"
)

// Upload realizes every chunk as GPU buffers with their vertex buffer
// layouts. It must run on the goroutine that owns the device. Empty chunks
// get no buffers. On failure every buffer created so far is destroyed.
func (b *Bucket) Upload(device hal.Device, queue hal.Queue) error {
	if b.buffers != nil {
		return ErrUploaded
	}

	buffers := make(map[string][]*gpu.BufferGroup, len(b.groups))
	for _, kind := range b.Kinds() {
		for _, g := range b.groups[kind] {
			if g.Len() == 0 {
				continue
			}
			paint := make(map[string]*structarray.Array, len(g.Paint))
			for li, p := range g.Paint {
				if p != nil {
					paint[b.layers[li].ID()] = p
				}
			}
			bg, err := gpu.NewBufferGroup(device, queue, gpu.GroupData{
				Label:    fmt.Sprintf("%s %s chunk %d", b.typ, kind, g.Index),
				Vertex:   g.Vertex,
				Element:  g.Element,
				Element2: g.Element2,
				Paint:    paint,
			})
			if err != nil {
				destroyAll(device, buffers)
				return fmt.Errorf("bucket %s: upload: %w", b.typ, err)
			}
			buffers[kind] = append(buffers[kind], bg)
		}
	}

	b.device = device
	b.buffers = buffers
	return nil
}

// Buffers returns the GPU buffers of kind, one per non-empty chunk.
func (b *Bucket) Buffers(kind string) []*gpu.BufferGroup { return b.buffers[kind] }

// Destroy releases every GPU buffer of the bucket. It returns
// ErrNotUploaded when Upload has not run or Destroy already ran.
func (b *Bucket) Destroy() error {
	if b.buffers == nil {
		return ErrNotUploaded
	}
	destroyAll(b.device, b.buffers)
	b.buffers = nil
	b.device = nil
	return nil
}

func destroyAll(device hal.Device, buffers map[string][]*gpu.BufferGroup) {
	for _, groups := range buffers {
		for _, g := range groups {
			g.Destroy(device)
		}
	}
}
