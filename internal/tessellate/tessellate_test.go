package tessellate

import (
	"math"
	"testing"
)

func TestFanSquare(t *testing.T) {
	ring := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	tris := Fan(ring)
	if len(tris) != 2 {
		t.Fatalf("Fan() = %d triangles, want 2", len(tris))
	}
	if tris[0] != (Triangle{0, 1, 2}) || tris[1] != (Triangle{0, 2, 3}) {
		t.Errorf("Fan() = %v", tris)
	}
	if RingLen(ring) != 4 {
		t.Errorf("RingLen() = %d, want 4", RingLen(ring))
	}
}

func TestFanSkipsDegenerate(t *testing.T) {
	// The first triangle is collinear.
	ring := []Point{{0, 0}, {5, 0}, {10, 0}, {10, 10}}
	tris := Fan(ring)
	if len(tris) != 1 || tris[0] != (Triangle{0, 2, 3}) {
		t.Errorf("Fan() = %v, want [[0 2 3]]", tris)
	}
}

func TestFanTooShort(t *testing.T) {
	tests := [][]Point{
		nil,
		{{0, 0}},
		{{0, 0}, {1, 1}},
		{{0, 0}, {1, 1}, {0, 0}},
	}
	for _, ring := range tests {
		if tris := Fan(ring); tris != nil {
			t.Errorf("Fan(%v) = %v, want nil", ring, tris)
		}
	}
}

func TestFanCoverageConcave(t *testing.T) {
	// An L shape: fan triangles cover its area exactly once by winding.
	ring := []Point{{0, 0}, {20, 0}, {20, 10}, {10, 10}, {10, 20}, {0, 20}}
	var area float64
	for _, tri := range Fan(ring) {
		a, b, c := ring[tri[0]], ring[tri[1]], ring[tri[2]]
		area += b.Sub(a).Cross(c.Sub(a)) / 2
	}
	if want := SignedArea(ring) / 2; math.Abs(area-want) > 1e-9 {
		t.Errorf("signed fan area = %v, want %v", area, want)
	}
}

func TestJoinsStraight(t *testing.T) {
	joins := Joins([]Point{{0, 0}, {10, 0}, {10, 0}, {20, 0}}, 0)
	if len(joins) != 3 {
		t.Fatalf("len(joins) = %d, want 3", len(joins))
	}
	if joins[0].Dir != -1 || joins[2].Dir != 1 || joins[1].Dir != 0 {
		t.Errorf("dirs = %v %v %v", joins[0].Dir, joins[1].Dir, joins[2].Dir)
	}
	for i, j := range joins {
		if math.Abs(j.Extrude.X) > 1e-9 || math.Abs(j.Extrude.Y-1) > 1e-9 {
			t.Errorf("join %d extrude = %v, want (0, 1)", i, j.Extrude)
		}
	}
	if joins[2].Distance != 20 {
		t.Errorf("end distance = %v, want 20", joins[2].Distance)
	}
}

func TestJoinsMiter(t *testing.T) {
	// A right angle: miter length sqrt(2) is within the default limit.
	joins := Joins([]Point{{0, 0}, {10, 0}, {10, 10}}, DefaultMiterLimit)
	if len(joins) != 3 {
		t.Fatalf("len(joins) = %d, want 3", len(joins))
	}
	if got := joins[1].Extrude.Length(); math.Abs(got-math.Sqrt2) > 1e-9 {
		t.Errorf("miter length = %v, want sqrt(2)", got)
	}
}

func TestJoinsBevel(t *testing.T) {
	// A hairpin exceeds any sane miter limit.
	joins := Joins([]Point{{0, 0}, {10, 0}, {0, 1}}, DefaultMiterLimit)
	if len(joins) != 4 {
		t.Fatalf("len(joins) = %d, want 4 (bevel splits the corner)", len(joins))
	}
	if joins[1].Point != joins[2].Point {
		t.Error("bevel joins must share their point")
	}
}

func TestJoinsDegenerate(t *testing.T) {
	if joins := Joins([]Point{{3, 3}, {3, 3}}, 0); joins != nil {
		t.Errorf("Joins(single point) = %v, want nil", joins)
	}
}
