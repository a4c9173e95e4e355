package solid

import (
	"math"

	"dxf-mesh-renderer/internal/aci"
	"dxf-mesh-renderer/internal/geom"
	"dxf-mesh-renderer/internal/mathutil"
)

// IndexBuffer holds triangle indices in the narrowest width that fits the
// largest index. Exactly one of U16 and U32 is set.
type IndexBuffer struct {
	U16 []uint16
	U32 []uint32
}

// newIndexBuffer picks 16-bit storage when the largest index is at most
// 0xFFFF, else 32-bit.
func newIndexBuffer(indices []int) IndexBuffer {
	maxIndex := 0
	for _, i := range indices {
		if i > maxIndex {
			maxIndex = i
		}
	}
	if maxIndex > math.MaxUint16 {
		b := make([]uint32, len(indices))
		for k, i := range indices {
			b[k] = uint32(i)
		}
		return IndexBuffer{U32: b}
	}
	b := make([]uint16, len(indices))
	for k, i := range indices {
		b[k] = uint16(i)
	}
	return IndexBuffer{U16: b}
}

// Width is 16 or 32.
func (b IndexBuffer) Width() int {
	if b.U32 != nil {
		return 32
	}
	return 16
}

func (b IndexBuffer) Len() int {
	if b.U32 != nil {
		return len(b.U32)
	}
	return len(b.U16)
}

func (b IndexBuffer) At(i int) uint32 {
	if b.U32 != nil {
		return b.U32[i]
	}
	return uint32(b.U16[i])
}

// Max returns the largest index, 0 for an empty buffer.
func (b IndexBuffer) Max() uint32 {
	var m uint32
	for i := 0; i < b.Len(); i++ {
		if v := b.At(i); v > m {
			m = v
		}
	}
	return m
}

// Mesh is an indexed triangle mesh with one flat fill color. It is built
// fresh per SOLID and not modified afterwards.
type Mesh struct {
	// Positions holds x, y, z per vertex.
	Positions []float32
	Indices   IndexBuffer

	Color      aci.Color
	ColorIndex int

	// DoubleSided and Unlit are always true: CAD fills are visible from
	// both sides and ignore scene lighting.
	DoubleSided bool
	Unlit       bool
}

func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

func (m *Mesh) TriangleCount() int {
	return m.Indices.Len() / 3
}

// Vertex returns vertex i as a point.
func (m *Mesh) Vertex(i int) geom.Point {
	return geom.Point{
		X: float64(m.Positions[3*i]),
		Y: float64(m.Positions[3*i+1]),
		Z: float64(m.Positions[3*i+2]),
	}
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() (lo, hi geom.Point) {
	if m.VertexCount() == 0 {
		return
	}
	mn := m.Vertex(0).Vec3()
	mx := mn
	for i := 1; i < m.VertexCount(); i++ {
		v := m.Vertex(i).Vec3()
		mn = mn.Min(v)
		mx = mx.Max(v)
	}
	return geom.FromVec3(mn), geom.FromVec3(mx)
}

// Triangle returns the corners of triangle t.
func (m *Mesh) Triangle(t int) [3]mathutil.Vec3 {
	var tri [3]mathutil.Vec3
	for k := 0; k < 3; k++ {
		tri[k] = m.Vertex(int(m.Indices.At(3*t + k))).Vec3()
	}
	return tri
}
