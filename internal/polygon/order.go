// Package polygon canonicalizes the vertex order of SOLID outlines.
//
// SOLID records list their corners in no particular order. OrderCCW sorts
// them by angle around the centroid, which is exact for convex outlines and
// a heuristic for anything else.
package polygon

import (
	"log/slog"
	"math"
	"sort"

	"dxf-mesh-renderer/internal/geom"
)

// ReliableCount is the vertex count the centroid sort is known to handle.
const ReliableCount = 4

// Centroid returns the arithmetic mean of points. It is the origin for an
// empty slice.
func Centroid(points []geom.Point) geom.Point {
	var c geom.Point
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c.X += p.X
		c.Y += p.Y
		c.Z += p.Z
	}
	n := float64(len(points))
	c.X /= n
	c.Y /= n
	c.Z /= n
	return c
}

// OrderCCW returns a counter-clockwise permutation of points, sorted by
// ascending atan2 angle around the centroid. Points at equal angles keep
// their input order. The input slice is not modified.
func OrderCCW(points []geom.Point) []geom.Point {
	if len(points) != ReliableCount {
		slog.Warn("polygon ordering may be unreliable for non-convex shapes", "points", len(points))
	}

	c := Centroid(points)
	type keyed struct {
		p     geom.Point
		angle float64
	}
	ks := make([]keyed, len(points))
	for i, p := range points {
		ks[i] = keyed{p: p, angle: math.Atan2(p.Y-c.Y, p.X-c.X)}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		return ks[i].angle < ks[j].angle
	})

	out := make([]geom.Point, len(ks))
	for i, k := range ks {
		out[i] = k.p
	}
	return out
}

// SignedArea is the shoelace area of the closed outline in the XY plane.
// It is positive for counter-clockwise order and zero for degenerate input.
func SignedArea(points []geom.Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	var a float64
	for i := 0; i < n; i++ {
		p, q := points[i], points[(i+1)%n]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}
