package export

import (
	"encoding/json"
	"fmt"
	"io"

	"dxf-mesh-renderer/internal/scene"
)

// Geometry is one solid in the buffer-geometry form the browser viewer
// loads directly into typed arrays.
type Geometry struct {
	Handle     string    `json:"handle"`
	Layer      string    `json:"layer,omitempty"`
	Block      string    `json:"block,omitempty"`
	Color      string    `json:"color"`
	ColorIndex int       `json:"colorIndex"`
	IndexWidth int       `json:"indexWidth"`
	Positions  []float32 `json:"positions"`
	Indices    []uint32  `json:"indices"`
}

// Bundle is the JSON export document.
type Bundle struct {
	Geometries []Geometry    `json:"geometries"`
	Summary    scene.Summary `json:"summary"`
	Errors     []string      `json:"errors,omitempty"`
}

// NewBundle collects the built meshes of sc.
func NewBundle(sc *scene.Scene) Bundle {
	b := Bundle{
		Geometries: []Geometry{},
		Summary:    sc.Summary(),
		Errors:     sc.ErrorStrings(0),
	}
	for _, r := range sc.Meshes() {
		m := r.Mesh
		idx := make([]uint32, m.Indices.Len())
		for i := range idx {
			idx[i] = m.Indices.At(i)
		}
		b.Geometries = append(b.Geometries, Geometry{
			Handle:     r.Handle,
			Layer:      r.Layer,
			Block:      r.Block,
			Color:      m.Color.Hex(),
			ColorIndex: m.ColorIndex,
			IndexWidth: m.Indices.Width(),
			Positions:  m.Positions,
			Indices:    idx,
		})
	}
	return b
}

// WriteJSON writes sc as a Bundle.
func WriteJSON(w io.Writer, sc *scene.Scene) error {
	if err := json.NewEncoder(w).Encode(NewBundle(sc)); err != nil {
		return fmt.Errorf("export: json: %w", err)
	}
	return nil
}
