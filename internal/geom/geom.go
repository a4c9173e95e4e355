// Package geom holds the point and placement types shared by the mesh
// pipeline.
package geom

import (
	"math"

	"dxf-mesh-renderer/internal/mathutil"
)

// Point is a drawing-space coordinate. Z is 0 when the source omits it.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point) Vec3() mathutil.Vec3 {
	return mathutil.Vec3{p.X, p.Y, p.Z}
}

func FromVec3(v mathutil.Vec3) Point {
	return Point{X: v[0], Y: v[1], Z: v[2]}
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Transform places local (block-space) geometry in the drawing.
// It is applied as scale, then rotation about the origin, then translation.
type Transform struct {
	Position Point
	XScale   float64
	YScale   float64
	Rotation float64 // degrees, counter-clockwise
}

// Identity returns the placement that leaves geometry unchanged.
func Identity() Transform {
	return Transform{XScale: 1, YScale: 1}
}

// Apply2D scales and rotates p in the XY plane. Z is carried through and
// the translation is not applied.
func (t Transform) Apply2D(p Point) Point {
	r := mathutil.RotZ(mathutil.Deg2Rad(t.Rotation))
	v := r.MulVec3(mathutil.Vec3{p.X * t.XScale, p.Y * t.YScale, 0})
	return Point{X: v[0], Y: v[1], Z: p.Z}
}

// Translate adds the transform position to p.
func (t Transform) Translate(p Point) Point {
	return p.Add(t.Position)
}

// Apply runs the full scale → rotate → translate sequence on p.
func (t Transform) Apply(p Point) Point {
	return t.Translate(t.Apply2D(p))
}

// IsFinite reports whether every component of the transform is a finite number.
func (t Transform) IsFinite() bool {
	for _, f := range []float64{t.Position.X, t.Position.Y, t.Position.Z, t.XScale, t.YScale, t.Rotation} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
