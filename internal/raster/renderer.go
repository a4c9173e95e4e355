package raster

import (
	"image"
	"image/color"
	"math"

	"dxf-mesh-renderer/internal/postprocess"
	"dxf-mesh-renderer/internal/scene"
)

// Background is the preview clear color.
var Background = color.NRGBA{A: 255}

// Margin is the border, in output pixels, kept clear around the drawing.
const Margin = 16

// View maps drawing coordinates to pixels for a square target.
type View struct {
	CenterX, CenterY float64
	Scale            float64 // pixels per drawing unit
	Size             int
}

// FitView centers the scene bounds in a size x size target, keeping aspect
// ratio and margin pixels clear on the longer axis.
func FitView(sc *scene.Scene, size, margin int) View {
	v := View{Size: size, Scale: 1}
	lo, hi, ok := sc.Bounds()
	if !ok {
		return v
	}
	v.CenterX = (lo.X + hi.X) / 2
	v.CenterY = (lo.Y + hi.Y) / 2

	span := math.Max(hi.X-lo.X, hi.Y-lo.Y)
	if span < 0.001 {
		span = 0.001
	}
	usable := float64(size - 2*margin)
	if usable < 1 {
		usable = 1
	}
	v.Scale = usable / span
	return v
}

// Project returns pixel coordinates for a drawing point. Drawing Y grows up,
// image Y grows down.
func (v View) Project(x, y float64) (px, py float64) {
	half := float64(v.Size) / 2
	return half + (x-v.CenterX)*v.Scale, half - (y-v.CenterY)*v.Scale
}

// RenderScene draws every built mesh top-down in its ACI color at
// size*supersample pixels square.
func RenderScene(sc *scene.Scene, size, supersample int) *image.NRGBA {
	if supersample < 1 {
		supersample = 1
	}
	renderSize := size * supersample
	fb := NewFrameBuffer(renderSize, renderSize, Background)
	view := FitView(sc, renderSize, Margin*supersample)

	for _, r := range sc.Meshes() {
		m := r.Mesh
		c := m.Color.NRGBA()
		for t := 0; t < m.TriangleCount(); t++ {
			tri := m.Triangle(t)
			var p [3][3]float64
			for k := 0; k < 3; k++ {
				p[k][0], p[k][1] = view.Project(tri[k][0], tri[k][1])
				p[k][2] = tri[k][2]
			}
			FillTriangle(fb, p, c)
		}
	}
	return fb.Image()
}

// Preview renders sc supersampled and reduces it to size x size.
func Preview(sc *scene.Scene, size, supersample int) *image.NRGBA {
	img := RenderScene(sc, size, supersample)
	if supersample > 1 {
		img = postprocess.Downsample(img, size)
	}
	return img
}
