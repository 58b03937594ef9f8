package bucket

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gogpu/bucket/attribute"
	"github.com/gogpu/bucket/shader"
	"github.com/gogpu/bucket/structarray"
	"github.com/gogpu/bucket/style"
)

// pointVariant writes one vertex per point and no elements.
type pointVariant struct{}

const kindPoint = "point"

func init() {
	Register("testpoint", pointVariant{})
}

func (pointVariant) ProgramInterfaces() []ProgramInterface {
	return []ProgramInterface{{
		Name:   kindPoint,
		Layout: []structarray.Member{{Name: "a_pos", Type: structarray.Int16, Components: 2}},
		Paint: []attribute.Paint{
			{Name: "a_radius", Property: "circle-radius", Components: 1, Type: structarray.Uint16, Multiplier: 10},
		},
	}}
}

func (pointVariant) AddFeature(b *Bucket, f *geojson.Feature) error {
	rings := LoadGeometry(f.Geometry)
	if len(rings) == 0 {
		return ErrInvalidGeometry
	}
	resume := b.Cursor(kindPoint)
	for _, ring := range rings {
		for _, p := range ring {
			g, err := b.EnsureCapacity(kindPoint, 1)
			if err != nil {
				return err
			}
			g.Vertex.EmplaceBack(p[0], p[1])
		}
	}
	return b.FillPaintValues(kindPoint, style.Globals{Zoom: b.Zoom()}, f.Properties, resume)
}

func (pointVariant) ElementCount(string, *ArrayGroup) int { return 0 }

func circleFeature(x, y float64, props map[string]any) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{x, y})
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

// radiusLayer stores circle-radius per vertex from the "r" property.
func radiusLayer(id, typ string) *style.Layer {
	return style.NewLayer(id, typ, map[string]*style.Function{
		"circle-radius": style.PropertyStops(style.Identity, 1, "r"),
	})
}

func newTestBucket(t *testing.T, typ string, features ...*geojson.Feature) *Bucket {
	t.Helper()
	b, err := New(typ, []style.ChildLayer{radiusLayer(typ+"-layer", typ)}, features, 14)
	if err != nil {
		t.Fatalf("New(%q) = %v", typ, err)
	}
	return b
}

func TestChunkingSplitsAt65535(t *testing.T) {
	const n = 70000
	features := make([]*geojson.Feature, n)
	for i := range features {
		features[i] = circleFeature(float64(i%8192), float64(i/8192), map[string]any{"r": float64(i % 100)})
	}
	b := newTestBucket(t, "testpoint", features...)
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}

	groups := b.Groups(kindPoint)
	if len(groups) != 2 {
		t.Fatalf("chunks = %d, want 2", len(groups))
	}
	for i, want := range []int{65535, 4465} {
		g := groups[i]
		if g.Index != i {
			t.Errorf("chunk %d Index = %d", i, g.Index)
		}
		if g.Len() != want {
			t.Errorf("chunk %d len = %d, want %d", i, g.Len(), want)
		}
		if g.Vertex.Cap() != g.Len() {
			t.Errorf("chunk %d vertex cap = %d, want trimmed %d", i, g.Vertex.Cap(), g.Len())
		}
		if p := g.Paint[0]; p.Len() != want || p.Cap() != want {
			t.Errorf("chunk %d paint len/cap = %d/%d, want %d", i, p.Len(), p.Cap(), want)
		}
	}

	// Feature 65535 is the first vertex of the second chunk.
	if got := groups[1].Paint[0].Get(0, 0, 0); got != float64(65535%100)*10 {
		t.Errorf("second chunk first radius = %v, want %v", got, float64(65535%100)*10)
	}
	if got := groups[0].Paint[0].Get(65534, 0, 0); got != float64(65534%100)*10 {
		t.Errorf("first chunk last radius = %v, want %v", got, float64(65534%100)*10)
	}
}

func TestChunksNeverExceedLimit(t *testing.T) {
	// 16384 circles need 65536 vertices: the last circle opens a chunk.
	const n = 16384
	features := make([]*geojson.Feature, n)
	for i := range features {
		features[i] = circleFeature(float64(i%8000), float64(i/8000), map[string]any{"r": float64(i%50 + 1)})
	}
	b := newTestBucket(t, "circle", features...)
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}

	groups := b.Groups(KindCircle)
	if len(groups) != 2 {
		t.Fatalf("chunks = %d, want 2", len(groups))
	}
	if groups[0].Len() != 65532 || groups[1].Len() != 4 {
		t.Errorf("chunk lens = %d, %d, want 65532, 4", groups[0].Len(), groups[1].Len())
	}

	// Every vertex carries the radius of the feature it belongs to.
	feature := 0
	for _, g := range groups {
		if g.Len() > MaxVertices {
			t.Fatalf("chunk %d has %d vertices", g.Index, g.Len())
		}
		radius, _ := g.Paint[0].Schema().Lookup("a_radius")
		for v := 0; v < g.Len(); v++ {
			want := float64(feature%50+1) * 10
			if got := g.Paint[0].Get(v, radius, 0); got != want {
				t.Fatalf("chunk %d vertex %d radius = %v, want %v", g.Index, v, got, want)
			}
			if v%4 == 3 {
				feature++
			}
		}
	}
}

func TestFillPaintValuesResumesAcrossChunks(t *testing.T) {
	// 16382 circles leave room for exactly one more circle in chunk 0.
	var features []*geojson.Feature
	for i := 0; i < 16382; i++ {
		features = append(features, circleFeature(1, 1, map[string]any{"r": 1.0}))
	}
	multi := geojson.NewFeature(orb.MultiPoint{{2, 2}, {3, 3}})
	multi.Properties["r"] = 2.0
	features = append(features, multi, circleFeature(4, 4, map[string]any{"r": 3.0}))

	b := newTestBucket(t, "circle", features...)
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}
	groups := b.Groups(KindCircle)
	if len(groups) != 2 {
		t.Fatalf("chunks = %d, want 2", len(groups))
	}

	radius, _ := groups[0].Paint[0].Schema().Lookup("a_radius")
	radii := func(g *ArrayGroup, from, to int) []float64 {
		var out []float64
		for v := from; v < to; v++ {
			out = append(out, g.Paint[0].Get(v, radius, 0))
		}
		return out
	}

	// The multipoint spans the end of chunk 0 and the start of chunk 1.
	if diff := cmp.Diff([]float64{10, 10, 10, 10, 20, 20, 20, 20}, radii(groups[0], 65524, 65532)); diff != "" {
		t.Errorf("chunk 0 tail radii (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{20, 20, 20, 20, 30, 30, 30, 30}, radii(groups[1], 0, 8)); diff != "" {
		t.Errorf("chunk 1 radii (-want +got):\n%s", diff)
	}
}

func TestCircleGeometry(t *testing.T) {
	b := newTestBucket(t, "circle",
		circleFeature(100, 200, nil),
		circleFeature(-1, 10, nil),   // outside the tile
		circleFeature(10, 8192, nil), // outside the tile
	)
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}
	g := b.Groups(KindCircle)[0]
	if g.Len() != 4 {
		t.Fatalf("vertices = %d, want 4", g.Len())
	}

	var pos [][2]float64
	for v := 0; v < 4; v++ {
		pos = append(pos, [2]float64{g.Vertex.Get(v, 0, 0), g.Vertex.Get(v, 0, 1)})
	}
	want := [][2]float64{{200, 400}, {201, 400}, {201, 401}, {200, 401}}
	if diff := cmp.Diff(want, pos); diff != "" {
		t.Errorf("a_pos (-want +got):\n%s", diff)
	}

	var tris [][3]float64
	for e := 0; e < g.Element.Len(); e++ {
		tris = append(tris, [3]float64{g.Element.Get(e, 0, 0), g.Element.Get(e, 0, 1), g.Element.Get(e, 0, 2)})
	}
	if diff := cmp.Diff([][3]float64{{0, 1, 2}, {0, 3, 2}}, tris); diff != "" {
		t.Errorf("triangles (-want +got):\n%s", diff)
	}
	if got := b.ElementCount(KindCircle, g); got != 6 {
		t.Errorf("ElementCount() = %d, want 6", got)
	}
}

func TestBuildFiltersFeatures(t *testing.T) {
	base := radiusLayer("base", "circle")
	filter, err := style.CompileFilter([]any{"==", "kind", "keep"})
	if err != nil {
		t.Fatalf("CompileFilter() = %v", err)
	}
	base.SetFilter(filter)

	features := []*geojson.Feature{
		circleFeature(1, 1, map[string]any{"kind": "keep"}),
		circleFeature(2, 2, map[string]any{"kind": "drop"}),
		circleFeature(3, 3, map[string]any{"kind": "keep"}),
	}
	b, err := New("circle", []style.ChildLayer{base}, features, 10)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}
	if got := b.Groups(KindCircle)[0].Len(); got != 8 {
		t.Errorf("vertices = %d, want 8", got)
	}
	if base.Zoom() != 10 {
		t.Errorf("layer recalculated at %v, want 10", base.Zoom())
	}
}

func TestBuildSkipsInvalidGeometry(t *testing.T) {
	b := newTestBucket(t, "fill",
		circleFeature(1, 1, nil),
		geojson.NewFeature(orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 0}}}),
	)
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}
	if b.IsEmpty() {
		t.Fatal("expected the polygon to be added")
	}
	if got := b.Groups(KindFill)[0].Len(); got != 3 {
		t.Errorf("vertices = %d, want 3", got)
	}
}

func TestBuildAbortsOnPrimitiveTooLarge(t *testing.T) {
	ring := make(orb.Ring, 0, MaxVertices+2)
	for i := 0; i <= MaxVertices; i++ {
		ring = append(ring, orb.Point{float64(i % 8000), float64(i / 8000)})
	}
	b := newTestBucket(t, "fill",
		geojson.NewFeature(orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 0}}}),
		geojson.NewFeature(orb.Polygon{ring}),
	)
	err := b.Build()
	if !errors.Is(err, ErrPrimitiveTooLarge) {
		t.Fatalf("Build() = %v, want ErrPrimitiveTooLarge", err)
	}
	if !b.IsEmpty() || len(b.Groups(KindFill)) != 0 {
		t.Error("a failed build must discard every chunk")
	}
}

func TestEnsureCapacity(t *testing.T) {
	b := newTestBucket(t, "circle")

	if _, err := b.EnsureCapacity("nope", 1); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown kind err = %v, want ErrUnknownKind", err)
	}
	if _, err := b.EnsureCapacity(KindCircle, MaxVertices+1); !errors.Is(err, ErrPrimitiveTooLarge) {
		t.Errorf("oversized err = %v, want ErrPrimitiveTooLarge", err)
	}

	g0, err := b.EnsureCapacity(KindCircle, MaxVertices)
	if err != nil {
		t.Fatalf("EnsureCapacity(max) = %v", err)
	}
	g0.Vertex.Resize(MaxVertices - 1)
	if g, _ := b.EnsureCapacity(KindCircle, 1); g != g0 {
		t.Error("a chunk with room must be reused")
	}
	if c := b.Cursor(KindCircle); c != (Cursor{Group: 0, Index: MaxVertices - 1}) {
		t.Errorf("Cursor() = %+v", c)
	}
	g1, _ := b.EnsureCapacity(KindCircle, 2)
	if g1 == g0 || g1.Index != 1 {
		t.Errorf("expected a new chunk with index 1, got index %d", g1.Index)
	}
	if c := b.Cursor(KindCircle); c != (Cursor{Group: 1, Index: 0}) {
		t.Errorf("Cursor() = %+v", c)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New("nope", []style.ChildLayer{radiusLayer("a", "nope")}, nil, 0); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type err = %v, want ErrUnknownType", err)
	}
	if _, err := New("circle", nil, nil, 0); !errors.Is(err, attribute.ErrNoChildLayers) {
		t.Errorf("no layers err = %v, want attribute.ErrNoChildLayers", err)
	}
	// Paint arrays are keyed by layer ID, so two layers cannot share one.
	dup := []style.ChildLayer{radiusLayer("dup", "circle"), radiusLayer("dup", "circle")}
	if _, err := New("circle", dup, nil, 0); !errors.Is(err, ErrLayerMismatch) {
		t.Errorf("duplicate layer id err = %v, want ErrLayerMismatch", err)
	}
}

func TestClassificationPerLayer(t *testing.T) {
	base := style.NewLayer("base", "circle", map[string]*style.Function{
		"circle-color":  style.Constant(1, 0, 0, 1),
		"circle-radius": style.PropertyStops(style.Identity, 1, "r"),
		"circle-opacity": style.ZoomStops(style.Exponential, 1,
			style.Stop{Zoom: 10, Value: []float64{0}},
			style.Stop{Zoom: 20, Value: []float64{1}}),
	})
	child := style.NewLayer("child", "circle", nil)

	b, err := New("circle", []style.ChildLayer{base, child}, []*geojson.Feature{circleFeature(5, 5, map[string]any{"r": 4.0})}, 14)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}

	la := b.Attributes(KindCircle, "base")
	want := map[string]attribute.Strategy{
		"a_color":   attribute.Uniform,
		"a_radius":  attribute.PerVertex,
		"a_blur":    attribute.Uniform,
		"a_opacity": attribute.Packed,
	}
	if diff := cmp.Diff(want, la.Strategies); diff != "" {
		t.Errorf("base strategies (-want +got):\n%s", diff)
	}

	// The child layer keeps every default constant: no paint array.
	g := b.Groups(KindCircle)[0]
	if g.Paint[1] != nil {
		t.Error("child layer without attributes must have no paint array")
	}

	opacity, _ := g.Paint[0].Schema().Lookup("a_opacity")
	var packed []float64
	for c := 0; c < 4; c++ {
		packed = append(packed, g.Paint[0].Get(3, opacity, c))
	}
	if diff := cmp.Diff([]float64{0, 255, 255, 255}, packed); diff != "" {
		t.Errorf("packed opacity (-want +got):\n%s", diff)
	}

	values, err := b.UniformValues(KindCircle, "base", style.Globals{Zoom: 15})
	if err != nil {
		t.Fatalf("UniformValues() = %v", err)
	}
	if diff := cmp.Diff([]float64{1, 0, 0, 1}, values["u_color"]); diff != "" {
		t.Errorf("u_color (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0.5}, values["u_opacity_t"]); diff != "" {
		t.Errorf("u_opacity_t (-want +got):\n%s", diff)
	}
	if _, err := b.UniformValues(KindCircle, "missing", style.Globals{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("missing layer err = %v", err)
	}

	tbl, ok := b.Pragmas(KindCircle, "base")
	if !ok {
		t.Fatal("Pragmas() found no table")
	}
	def, _ := tbl.Get(shader.Vertex, shader.Define, "color")
	if def != "uniform lowp vec4 u_color;" {
		t.Errorf("define(color) = %q", def)
	}
}

func TestShaderValidation(t *testing.T) {
	cache, err := shader.NewCache(1 << 20)
	if err != nil {
		t.Fatalf("NewCache() = %v", err)
	}
	defer cache.Close()

	for _, typ := range []string{"circle", "fill", "line"} {
		b, err := New(typ, []style.ChildLayer{radiusLayer(typ, typ)}, nil, 14, WithShaderValidation(cache))
		if err != nil {
			t.Fatalf("New(%q) with GLSL validation = %v", typ, err)
		}
		if b.Overscaling() != 1 {
			t.Errorf("Overscaling() = %d, want 1", b.Overscaling())
		}
	}
}

func TestFillSkipsZeroAreaRings(t *testing.T) {
	layers := []style.ChildLayer{style.NewLayer("parcels", "fill", nil)}
	flat := geojson.NewFeature(orb.Polygon{{{0, 0}, {10, 0}, {20, 0}, {0, 0}}})
	tri := geojson.NewFeature(orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 0}},
		{{2, 2}, {2, 2}, {2, 2}, {2, 2}},
	})
	b, err := New("fill", layers, []*geojson.Feature{flat, tri}, 14)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}

	groups := b.Groups(KindFill)
	if len(groups) != 1 {
		t.Fatalf("chunks = %d, want 1", len(groups))
	}
	g := groups[0]
	if g.Len() != 3 || g.Element.Len() != 1 || g.Element2.Len() != 3 {
		t.Errorf("vertices/triangles/segments = %d/%d/%d, want 3/1/3", g.Len(), g.Element.Len(), g.Element2.Len())
	}
	if g.Element.Schema() != triangleSchema || g.Element2.Schema() != segmentSchema {
		t.Error("fill element arrays must use the shared triangle and segment layouts")
	}
}

func TestWGSLPaintInputsMatchLayout(t *testing.T) {
	layers := []style.ChildLayer{style.NewLayer("parcels", "fill", map[string]*style.Function{
		"fill-opacity": style.PropertyStops(style.Identity, 1, "o"),
	})}
	f := geojson.NewFeature(orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 0}}})
	f.Properties["o"] = 0.5
	b, err := New("fill", layers, []*geojson.Feature{f}, 14, WithDialect(shader.WGSL{}))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("Build() = %v", err)
	}

	paint := b.Groups(KindFill)[0].Paint[0]
	i, ok := paint.Schema().Lookup("a_opacity")
	if !ok {
		t.Fatal("a_opacity not stored per vertex")
	}
	if got := paint.Schema().VertexFormat(i); got != gputypes.VertexFormatUint8x2 {
		t.Errorf("a_opacity format = %v, want Uint8x2", got)
	}
	if got := paint.Get(0, i, 0); got != 128 {
		t.Errorf("stored opacity = %v, want 128", got)
	}

	p, _ := b.Pragmas(KindFill, "parcels")
	define, _ := p.Get(shader.Vertex, shader.Define, "opacity")
	if want := "var<private> a_opacity: vec2<u32>;"; !strings.Contains(define, want) {
		t.Errorf("define %q does not contain %q", define, want)
	}
	initialize, _ := p.Get(shader.Vertex, shader.Initialize, "opacity")
	if want := "opacity = f32(a_opacity.x) / 255.0;"; initialize != want {
		t.Errorf("initialize = %q, want %q", initialize, want)
	}
}
