package export

import (
	"fmt"
	"io"

	"dxf-mesh-renderer/internal/aci"
	"dxf-mesh-renderer/internal/scene"
	"dxf-mesh-renderer/internal/solid"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const unlitExtension = "KHR_materials_unlit"

// Document builds a glTF document with one mesh and node per built solid.
// The fill color travels as COLOR_0 over a white base color; solids sharing
// an ACI color share a material.
func Document(sc *scene.Scene) *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "dxf-mesh-renderer"

	materials := make(map[aci.Color]int)
	unlit := false

	for _, r := range sc.Meshes() {
		m := r.Mesh
		mat, ok := materials[m.Color]
		if !ok {
			mat = len(doc.Materials)
			materials[m.Color] = mat
			doc.Materials = append(doc.Materials, material(m))
			unlit = unlit || m.Unlit
		}

		positions := make([][3]float32, m.VertexCount())
		colors := make([][4]float32, m.VertexCount())
		rgba := m.Color.Float4()
		for i := range positions {
			copy(positions[i][:], m.Positions[i*3:i*3+3])
			colors[i] = rgba
		}

		var indices int
		if m.Indices.Width() == 16 {
			indices = modeler.WriteIndices(doc, m.Indices.U16)
		} else {
			indices = modeler.WriteIndices(doc, m.Indices.U32)
		}

		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name: meshName(r),
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]int{
					gltf.POSITION: modeler.WritePosition(doc, positions),
					gltf.COLOR_0:  modeler.WriteColor(doc, colors),
				},
				Indices:  gltf.Index(indices),
				Material: gltf.Index(mat),
			}},
		})
		node := len(doc.Nodes)
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: meshName(r), Mesh: gltf.Index(len(doc.Meshes) - 1)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, node)
	}

	if unlit {
		doc.ExtensionsUsed = append(doc.ExtensionsUsed, unlitExtension)
	}
	return doc
}

func material(m *solid.Mesh) *gltf.Material {
	mat := &gltf.Material{
		Name:        m.Color.Hex(),
		DoubleSided: m.DoubleSided,
		AlphaMode:   gltf.AlphaOpaque,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
	}
	if m.Unlit {
		mat.Extensions = gltf.Extensions{unlitExtension: map[string]any{}}
	}
	return mat
}

func meshName(r scene.Result) string {
	if r.Insert != "" {
		return fmt.Sprintf("%s/%s/%s", r.Insert, r.Block, r.Handle)
	}
	if r.Handle != "" {
		return r.Handle
	}
	return fmt.Sprintf("solid-%d", r.Index)
}

// WriteGLB writes sc as binary glTF.
func WriteGLB(w io.Writer, sc *scene.Scene) error {
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(Document(sc)); err != nil {
		return fmt.Errorf("export: glb: %w", err)
	}
	return nil
}

// SaveGLB writes sc to a .glb file.
func SaveGLB(path string, sc *scene.Scene) error {
	return gltf.SaveBinary(Document(sc), path)
}
