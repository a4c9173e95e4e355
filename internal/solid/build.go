// Package solid turns SOLID outlines into renderable triangle meshes.
package solid

import (
	"errors"
	"fmt"

	"dxf-mesh-renderer/internal/aci"
	"dxf-mesh-renderer/internal/geom"
	"dxf-mesh-renderer/internal/polygon"
	"dxf-mesh-renderer/internal/triangulate"
)

var (
	ErrInvalidGeometry     = errors.New("invalid geometry")
	ErrTriangulationFailed = errors.New("triangulation failed")
)

// Options control placement and coloring of one mesh.
type Options struct {
	Transform geom.Transform

	// CustomColorIndex overrides the entity's own color index when set.
	CustomColorIndex *int

	ColorMode aci.Mode
}

// DefaultOptions returns an identity placement with sign-tolerant color
// resolution.
func DefaultOptions() Options {
	return Options{
		Transform: geom.Identity(),
		ColorMode: aci.SignTolerant,
	}
}

// Build triangulates one SOLID outline.
//
// The color index is checked before any geometry work. Scale and rotation
// are applied before triangulation; translation only touches the finished
// vertex buffer.
func Build(points []geom.Point, colorIndex int, opts Options) (*Mesh, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("solid: %w: no points", ErrInvalidGeometry)
	}
	if !opts.Transform.IsFinite() {
		return nil, fmt.Errorf("solid: %w: non-finite transform", ErrInvalidGeometry)
	}

	effective := colorIndex
	if opts.CustomColorIndex != nil {
		effective = *opts.CustomColorIndex
	}
	if err := aci.Validate(effective, opts.ColorMode); err != nil {
		return nil, fmt.Errorf("solid: %w", err)
	}

	ordered := polygon.OrderCCW(points)

	flat2D := make([]float64, 0, 2*len(ordered))
	local := make([]geom.Point, len(ordered))
	for i, p := range ordered {
		q := opts.Transform.Apply2D(p)
		flat2D = append(flat2D, q.X, q.Y)
		local[i] = q
	}

	indices, err := triangulate.Earcut(flat2D)
	if err != nil {
		return nil, fmt.Errorf("solid: %w: %w", ErrTriangulationFailed, err)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("solid: %w: %d points, area %g",
			ErrTriangulationFailed, len(ordered), polygon.SignedArea(local))
	}

	positions := make([]float32, 0, 3*len(local))
	for _, p := range local {
		w := opts.Transform.Translate(p)
		positions = append(positions, float32(w.X), float32(w.Y), float32(w.Z))
	}

	color, err := aci.Resolve(effective, opts.ColorMode)
	if err != nil {
		return nil, fmt.Errorf("solid: %w", err)
	}

	return &Mesh{
		Positions:   positions,
		Indices:     newIndexBuffer(indices),
		Color:       color,
		ColorIndex:  effective,
		DoubleSided: true,
		Unlit:       true,
	}, nil
}
