// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu realizes transferred bucket chunks as GPU buffers.
//
// Each chunk becomes one vertex buffer, up to two index buffers and one
// paint buffer per child layer, plus the vertex buffer layouts a render
// pipeline binds them with. The layouts play the role vertex-array objects
// play in GL: the geometry layout starts at shader location 0 and every
// paint layout continues after it, so a draw binds the geometry buffer and
// the paint buffer of the layer being drawn.
//
// All functions must run on the goroutine that owns the device.
package gpu

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/bucket/structarray"
)

// ErrEmptyGroup is returned when a chunk has no vertices to upload.
var ErrEmptyGroup = errors.New("gpu: chunk has no vertices")

// copyAlignment is the size granularity of queue buffer writes.
const copyAlignment = 4

// GroupData is the content of one chunk to realize. Element, Element2 and
// individual paint arrays may be nil.
type GroupData struct {
	Label    string
	Vertex   *structarray.Array
	Element  *structarray.Array
	Element2 *structarray.Array
	// Paint maps a child layer ID to its paint array.
	Paint map[string]*structarray.Array
}

// BufferGroup holds the GPU buffers of one chunk.
type BufferGroup struct {
	Vertex   hal.Buffer
	Element  hal.Buffer
	Element2 hal.Buffer
	Paint    map[string]hal.Buffer

	VertexLayout gputypes.VertexBufferLayout
	PaintLayouts map[string]gputypes.VertexBufferLayout

	VertexCount   int
	IndexCount    int
	Index2Count   int
	IndexFormat   gputypes.IndexFormat
	destroyed     bool
	uploadedBytes int
}

// NewBufferGroup creates and fills the buffers of one chunk. On failure
// every buffer created so far is destroyed.
func NewBufferGroup(device hal.Device, queue hal.Queue, d GroupData) (*BufferGroup, error) {
	if d.Vertex == nil || d.Vertex.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyGroup, d.Label)
	}

	g := &BufferGroup{
		Paint:        make(map[string]hal.Buffer, len(d.Paint)),
		PaintLayouts: make(map[string]gputypes.VertexBufferLayout, len(d.Paint)),
		VertexCount:  d.Vertex.Len(),
		IndexFormat:  gputypes.IndexFormatUint16,
	}

	var err error
	g.Vertex, err = g.upload(device, queue, d.Label+" vertices", d.Vertex.Bytes(), gputypes.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	g.VertexLayout = d.Vertex.Schema().VertexBufferLayout(0)
	paintLocation := uint32(d.Vertex.Schema().NumMembers())

	if d.Element != nil && d.Element.Len() > 0 {
		g.Element, err = g.upload(device, queue, d.Label+" elements", d.Element.Bytes(), gputypes.BufferUsageIndex)
		if err != nil {
			g.Destroy(device)
			return nil, err
		}
		g.IndexCount = indexCount(d.Element)
	}
	if d.Element2 != nil && d.Element2.Len() > 0 {
		g.Element2, err = g.upload(device, queue, d.Label+" elements2", d.Element2.Bytes(), gputypes.BufferUsageIndex)
		if err != nil {
			g.Destroy(device)
			return nil, err
		}
		g.Index2Count = indexCount(d.Element2)
	}

	ids := make([]string, 0, len(d.Paint))
	for id := range d.Paint {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		a := d.Paint[id]
		if a == nil || a.Len() == 0 {
			continue
		}
		buf, err := g.upload(device, queue, d.Label+" paint "+id, a.Bytes(), gputypes.BufferUsageVertex)
		if err != nil {
			g.Destroy(device)
			return nil, err
		}
		g.Paint[id] = buf
		g.PaintLayouts[id] = a.Schema().VertexBufferLayout(paintLocation)
	}

	slogger().Debug("gpu: chunk uploaded",
		"label", d.Label,
		"vertices", g.VertexCount,
		"indices", g.IndexCount,
		"paintLayers", len(g.Paint),
		"bytes", g.uploadedBytes)
	return g, nil
}

// upload creates a GPU buffer and uploads data, padding its size to the
// copy alignment.
func (g *BufferGroup) upload(device hal.Device, queue hal.Queue, label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	if pad := len(data) % copyAlignment; pad != 0 {
		padded := make([]byte, len(data)+copyAlignment-pad)
		copy(padded, data)
		data = padded
	}
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	queue.WriteBuffer(buf, 0, data)
	g.uploadedBytes += len(data)
	return buf, nil
}

func indexCount(a *structarray.Array) int {
	per := 0
	for _, m := range a.Schema().Members() {
		per += m.Components
	}
	return a.Len() * per
}

// Bytes returns the number of bytes uploaded, including alignment padding.
func (g *BufferGroup) Bytes() int { return g.uploadedBytes }

// Destroyed reports whether Destroy has run.
func (g *BufferGroup) Destroyed() bool { return g.destroyed }

// Destroy releases every buffer of the group. Later calls do nothing.
func (g *BufferGroup) Destroy(device hal.Device) {
	if g.destroyed {
		return
	}
	g.destroyed = true
	for _, b := range []hal.Buffer{g.Vertex, g.Element, g.Element2} {
		if b != nil {
			device.DestroyBuffer(b)
		}
	}
	for id, b := range g.Paint {
		device.DestroyBuffer(b)
		delete(g.Paint, id)
	}
	g.Vertex, g.Element, g.Element2 = nil, nil, nil
}
