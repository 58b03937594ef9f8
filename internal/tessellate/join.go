package tessellate

// DefaultMiterLimit is the miter length, in line half-widths, past which a
// join is beveled.
const DefaultMiterLimit = 2.0

// Join is one extruded position along a line.
type Join struct {
	Point Point
	// Extrude is the offset direction for the left side, scaled by the
	// miter length. The right side uses its negation.
	Extrude Vec2
	// Dir is -1 at the line start, 1 at the line end, 0 elsewhere.
	Dir float64
	// Distance is the length of the line up to Point.
	Distance float64
}

// Joins expands a polyline into extrusion joins. Repeated points are
// dropped. Interior vertices get a miter join, or two bevel joins when
// the miter would exceed miterLimit. Lines with fewer than two distinct
// points produce no joins.
func Joins(line []Point, miterLimit float64) []Join {
	pts := dedupe(line)
	if len(pts) < 2 {
		return nil
	}
	if miterLimit <= 0 {
		miterLimit = DefaultMiterLimit
	}

	joins := make([]Join, 0, len(pts)+2)
	var distance float64
	last := len(pts) - 1

	for i, p := range pts {
		if i > 0 {
			distance += p.Distance(pts[i-1])
		}

		var prevNormal, nextNormal Vec2
		if i > 0 {
			prevNormal = p.Sub(pts[i-1]).Normalize().Perp()
		}
		if i < last {
			nextNormal = pts[i+1].Sub(p).Normalize().Perp()
		}

		switch i {
		case 0:
			joins = append(joins, Join{Point: p, Extrude: nextNormal, Dir: -1, Distance: distance})
		case last:
			joins = append(joins, Join{Point: p, Extrude: prevNormal, Dir: 1, Distance: distance})
		default:
			joinNormal := prevNormal.Add(nextNormal).Normalize()
			cosHalf := joinNormal.Dot(nextNormal)
			if cosHalf > 1e-6 && 1/cosHalf <= miterLimit {
				joins = append(joins, Join{Point: p, Extrude: joinNormal.Scale(1 / cosHalf), Distance: distance})
				continue
			}
			joins = append(joins,
				Join{Point: p, Extrude: prevNormal, Distance: distance},
				Join{Point: p, Extrude: nextNormal, Distance: distance},
			)
		}
	}
	return joins
}

func dedupe(line []Point) []Point {
	out := make([]Point, 0, len(line))
	for i, p := range line {
		if i > 0 && p == line[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}
