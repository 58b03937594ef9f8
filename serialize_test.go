package bucket

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gogpu/bucket/style"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func builtFillBucket(t *testing.T) (*Bucket, []style.ChildLayer) {
	t.Helper()
	layers := []style.ChildLayer{
		style.NewLayer("water", "fill", map[string]*style.Function{
			"fill-color": style.PropertyStops(style.Identity, 1, "color"),
		}),
		style.NewLayer("water-outline", "fill", nil),
	}
	square := orb.Polygon{
		{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {0, 0}},
		{{25, 25}, {25, 75}, {75, 75}, {75, 25}, {25, 25}},
	}
	f1 := geojson.NewFeature(square)
	f1.Properties["color"] = "#ff0000"
	f2 := geojson.NewFeature(orb.Polygon{{{200, 200}, {300, 200}, {300, 300}, {200, 200}}})
	f2.Properties["color"] = "#0000ff"

	b, err := New("fill", layers, []*geojson.Feature{f1, f2}, 12, WithOverscaling(2))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}
	return b, layers
}

func TestFillGeometry(t *testing.T) {
	b, _ := builtFillBucket(t)
	g := b.Groups(KindFill)[0]

	// 4 outer + 4 hole + 3 triangle vertices.
	if g.Len() != 11 {
		t.Errorf("vertices = %d, want 11", g.Len())
	}
	if g.Element.Len() != 5 {
		t.Errorf("triangles = %d, want 5", g.Element.Len())
	}
	if g.Element2.Len() != 11 {
		t.Errorf("outline segments = %d, want 11", g.Element2.Len())
	}
	if got := b.ElementCount(KindFill, g); got != 15 {
		t.Errorf("ElementCount() = %d, want 15", got)
	}
	// The hole's outline closes on its own first vertex.
	if a, b := g.Element2.Get(7, 0, 0), g.Element2.Get(7, 0, 1); a != 7 || b != 4 {
		t.Errorf("hole closing segment = (%v, %v), want (7, 4)", a, b)
	}

	color, _ := g.Paint[0].Schema().Lookup("a_color")
	if got := g.Paint[0].Get(0, color, 0); got != 255 {
		t.Errorf("first feature red = %v, want 255", got)
	}
	if got := g.Paint[0].Get(8, color, 2); got != 255 {
		t.Errorf("second feature blue = %v, want 255", got)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	b, layers := builtFillBucket(t)
	g := b.Groups(KindFill)[0]
	vertex := bytes.Clone(g.Vertex.Bytes())
	element := bytes.Clone(g.Element.Bytes())
	paint := bytes.Clone(g.Paint[0].Bytes())

	s := b.Serialize()
	if !b.IsEmpty() || len(b.Groups(KindFill)) != 0 {
		t.Error("Serialize must move the chunks out of the bucket")
	}
	if s.Type != "fill" || s.Zoom != 12 || s.Overscaling != 2 {
		t.Errorf("header = %s %v %d", s.Type, s.Zoom, s.Overscaling)
	}
	sg := s.Arrays[KindFill][0]
	for _, name := range []string{ArrayLayoutVertex, ArrayElement, ArrayElement2, ArrayPaintPrefix + "water"} {
		if _, ok := sg.Arrays[name]; !ok {
			t.Errorf("missing serialized array %q", name)
		}
	}
	if _, ok := sg.Arrays[ArrayPaintPrefix+"water-outline"]; ok {
		t.Error("a layer without attributes must not serialize a paint array")
	}
	if got := len(s.Transferables()); got != 4 {
		t.Errorf("Transferables() = %d payloads, want 4", got)
	}

	rb, err := Deserialize(s, layers)
	if err != nil {
		t.Fatalf("Deserialize() = %v", err)
	}
	if rb.Overscaling() != 2 || rb.Zoom() != 12 {
		t.Errorf("restored overscaling/zoom = %d/%v", rb.Overscaling(), rb.Zoom())
	}
	groups := rb.Groups(KindFill)
	if len(groups) != 1 || groups[0].Len() != 11 {
		t.Fatalf("restored chunks = %d", len(groups))
	}
	rg := groups[0]
	if !bytes.Equal(rg.Vertex.Bytes(), vertex) || !bytes.Equal(rg.Element.Bytes(), element) || !bytes.Equal(rg.Paint[0].Bytes(), paint) {
		t.Error("restored payloads differ from the built ones")
	}
	if rg.Paint[1] != nil {
		t.Error("restored layer without attributes must have no paint array")
	}
}

func TestSerializeRoundTripMultiChunk(t *testing.T) {
	const n = 16384
	features := make([]*geojson.Feature, n)
	for i := range features {
		features[i] = circleFeature(float64(i%8000), float64(i/8000), map[string]any{"r": float64(i%50 + 1)})
	}
	b := newTestBucket(t, "circle", features...)
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}

	type payload struct{ vertex, element, paint []byte }
	var built []payload
	var counts []int
	for _, g := range b.Groups(KindCircle) {
		built = append(built, payload{
			vertex:  bytes.Clone(g.Vertex.Bytes()),
			element: bytes.Clone(g.Element.Bytes()),
			paint:   bytes.Clone(g.Paint[0].Bytes()),
		})
		counts = append(counts, b.ElementCount(KindCircle, g))
	}
	if len(built) != 2 {
		t.Fatalf("built chunks = %d, want 2", len(built))
	}

	s := b.Serialize()
	if got := len(s.Arrays[KindCircle]); got != 2 {
		t.Fatalf("serialized chunks = %d, want 2", got)
	}
	rb, err := Deserialize(s, b.Layers())
	if err != nil {
		t.Fatalf("Deserialize() = %v", err)
	}

	groups := rb.Groups(KindCircle)
	if len(groups) != len(built) {
		t.Fatalf("restored chunks = %d, want %d", len(groups), len(built))
	}
	for i, g := range groups {
		if g.Index != i {
			t.Errorf("chunk %d: Index = %d", i, g.Index)
		}
		if want := []int{65532, 4}[i]; g.Len() != want {
			t.Errorf("chunk %d: vertices = %d, want %d", i, g.Len(), want)
		}
		if got := rb.ElementCount(KindCircle, g); got != counts[i] {
			t.Errorf("chunk %d: ElementCount() = %d, want %d", i, got, counts[i])
		}
		if !bytes.Equal(g.Vertex.Bytes(), built[i].vertex) {
			t.Errorf("chunk %d: vertex payload differs", i)
		}
		if !bytes.Equal(g.Element.Bytes(), built[i].element) {
			t.Errorf("chunk %d: element payload differs", i)
		}
		if !bytes.Equal(g.Paint[0].Bytes(), built[i].paint) {
			t.Errorf("chunk %d: paint payload differs", i)
		}
	}
}

func TestDeserializeErrors(t *testing.T) {
	b, layers := builtFillBucket(t)
	s := b.Serialize()

	if _, err := Deserialize(s, layers[:1]); !errors.Is(err, ErrLayerMismatch) {
		t.Errorf("layer count err = %v, want ErrLayerMismatch", err)
	}
	swapped := []style.ChildLayer{layers[1], layers[0]}
	if _, err := Deserialize(s, swapped); !errors.Is(err, ErrLayerMismatch) {
		t.Errorf("layer order err = %v, want ErrLayerMismatch", err)
	}

	vertex := s.Arrays[KindFill][0].Arrays[ArrayLayoutVertex]
	truncated := vertex
	truncated.Data = vertex.Data[:len(vertex.Data)-1]
	s.Arrays[KindFill][0].Arrays[ArrayLayoutVertex] = truncated
	if _, err := Deserialize(s, layers); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("truncated payload err = %v, want ErrInvalidPayload", err)
	}
	s.Arrays[KindFill][0].Arrays[ArrayLayoutVertex] = vertex

	delete(s.Arrays[KindFill][0].Arrays, ArrayPaintPrefix+"water")
	if _, err := Deserialize(s, layers); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("missing paint err = %v, want ErrInvalidPayload", err)
	}

	s.Type = "nope"
	if _, err := Deserialize(s, layers); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type err = %v, want ErrUnknownType", err)
	}
}

func TestUploadAndDestroy(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	b, layers := builtFillBucket(t)
	rb, err := Deserialize(b.Serialize(), layers)
	if err != nil {
		t.Fatalf("Deserialize() = %v", err)
	}

	if err := rb.Destroy(); !errors.Is(err, ErrNotUploaded) {
		t.Errorf("Destroy() before Upload = %v, want ErrNotUploaded", err)
	}
	if err := rb.Upload(device, queue); err != nil {
		t.Fatalf("Upload() = %v", err)
	}
	if err := rb.Upload(device, queue); !errors.Is(err, ErrUploaded) {
		t.Errorf("second Upload() = %v, want ErrUploaded", err)
	}

	buffers := rb.Buffers(KindFill)
	if len(buffers) != 1 {
		t.Fatalf("buffer groups = %d, want 1", len(buffers))
	}
	bg := buffers[0]
	if bg.Vertex == nil || bg.Element == nil || bg.Element2 == nil {
		t.Error("expected vertex, element and outline buffers")
	}
	if bg.IndexCount != 15 || bg.Index2Count != 22 {
		t.Errorf("index counts = %d, %d, want 15, 22", bg.IndexCount, bg.Index2Count)
	}
	if _, ok := bg.Paint["water"]; !ok || len(bg.Paint) != 1 {
		t.Errorf("paint buffers = %v, want water only", bg.Paint)
	}
	if layout := bg.PaintLayouts["water"]; layout.Attributes[0].ShaderLocation != 1 {
		t.Errorf("first paint location = %d, want 1", layout.Attributes[0].ShaderLocation)
	}

	if err := rb.Destroy(); err != nil {
		t.Fatalf("Destroy() = %v", err)
	}
	if !bg.Destroyed() {
		t.Error("Destroy must release the buffer groups")
	}
	if err := rb.Destroy(); !errors.Is(err, ErrNotUploaded) {
		t.Errorf("second Destroy() = %v, want ErrNotUploaded", err)
	}
}
