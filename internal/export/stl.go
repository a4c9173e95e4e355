package export

import (
	"fmt"
	"io"

	"dxf-mesh-renderer/internal/mathutil"
	"dxf-mesh-renderer/internal/scene"

	"github.com/hschendel/stl"
)

// Solid flattens every built mesh into one STL solid. STL carries no color.
func Solid(sc *scene.Scene) *stl.Solid {
	s := &stl.Solid{Name: "dxf-mesh-renderer"}
	for _, r := range sc.Meshes() {
		m := r.Mesh
		for t := 0; t < m.TriangleCount(); t++ {
			tri := m.Triangle(t)
			n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0])).Normalize()
			s.Triangles = append(s.Triangles, stl.Triangle{
				Normal:   vec(n),
				Vertices: [3]stl.Vec3{vec(tri[0]), vec(tri[1]), vec(tri[2])},
			})
		}
	}
	return s
}

func vec(v mathutil.Vec3) stl.Vec3 {
	return stl.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// WriteSTL writes sc as binary STL.
func WriteSTL(w io.Writer, sc *scene.Scene) error {
	if err := Solid(sc).WriteAll(w); err != nil {
		return fmt.Errorf("export: stl: %w", err)
	}
	return nil
}
