package tessellate

// Triangle holds three vertex indices relative to the first vertex of the
// ring it was built from.
type Triangle [3]int

// Fan triangulates a ring as a fan around its first vertex, emitting
// (0, i, i+1) for every following edge. A closing point equal to the first
// is ignored. Degenerate triangles are skipped.
func Fan(ring []Point) []Triangle {
	n := len(ring)
	if n > 1 && ring[n-1] == ring[0] {
		n--
	}
	if n < 3 {
		return nil
	}

	tris := make([]Triangle, 0, n-2)
	v0 := ring[0]
	for i := 1; i+1 < n; i++ {
		// Skip degenerate triangles using cross product (2x area)
		if ring[i].Sub(v0).Cross(ring[i+1].Sub(v0)) == 0 {
			continue
		}
		tris = append(tris, Triangle{0, i, i + 1})
	}
	return tris
}

// RingLen returns the number of distinct vertices of a ring, dropping a
// closing point equal to the first.
func RingLen(ring []Point) int {
	n := len(ring)
	if n > 1 && ring[n-1] == ring[0] {
		n--
	}
	return n
}

// SignedArea returns twice the signed area of a ring. Positive rings wind
// counter-clockwise in a y-up frame.
func SignedArea(ring []Point) float64 {
	var sum float64
	n := len(ring)
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum
}
