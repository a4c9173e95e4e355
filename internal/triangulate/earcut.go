// Package triangulate wraps the ear-clipping triangulator used for SOLID
// outlines.
package triangulate

import (
	"errors"
	"fmt"

	"github.com/rclancey/earcut"
)

// ErrIndexCount is returned when the triangulator hands back an index list
// that is not a whole number of triangles.
var ErrIndexCount = errors.New("triangle index count is not a multiple of 3")

// Earcut triangulates a simple polygon given as flat [x0, y0, x1, y1, ...]
// coordinates. The returned indices reference vertices in input order, three
// per triangle. A degenerate outline yields an empty, non-nil result.
func Earcut(coords []float64) ([]int, error) {
	if len(coords)%2 != 0 {
		return nil, fmt.Errorf("triangulate: odd coordinate count %d", len(coords))
	}
	if len(coords) < 6 {
		return []int{}, nil
	}

	indices, err := earcut.Earcut(coords, nil, 2)
	if err != nil {
		return nil, fmt.Errorf("triangulate: %d vertices: %w", len(coords)/2, err)
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("triangulate: %w (got %d)", ErrIndexCount, len(indices))
	}
	if indices == nil {
		indices = []int{}
	}
	return indices, nil
}
