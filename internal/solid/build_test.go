package solid

import (
	"math"
	"math/rand"
	"testing"

	"dxf-mesh-renderer/internal/aci"
	"dxf-mesh-renderer/internal/geom"
	"dxf-mesh-renderer/internal/polygon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unitSquare = []geom.Point{
	{X: 0.5, Y: 0.5},
	{X: -0.5, Y: -0.5},
	{X: -0.5, Y: 0.5},
	{X: 0.5, Y: -0.5},
}

func intPtr(i int) *int { return &i }

func TestBuildSquare(t *testing.T) {
	m, err := Build(unitSquare, 1, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 4, m.VertexCount())
	assert.Equal(t, 2, m.TriangleCount())
	assert.Equal(t, 16, m.Indices.Width())
	assert.Equal(t, "#ff0000", m.Color.Hex())
	assert.True(t, m.DoubleSided)
	assert.True(t, m.Unlit)
	for i := 0; i < m.Indices.Len(); i++ {
		assert.Less(t, int(m.Indices.At(i)), m.VertexCount())
	}
}

func TestBuildTransformOrder(t *testing.T) {
	tr := geom.Transform{Position: geom.Point{X: 5}, XScale: 2, YScale: 1, Rotation: 90}
	opts := DefaultOptions()
	opts.Transform = tr

	m, err := Build(unitSquare, 3, opts)
	require.NoError(t, err)

	// Expected vertices: canonical order, then scale, rotate, translate by hand.
	th := math.Pi / 2
	ordered := polygon.OrderCCW(unitSquare)
	require.Equal(t, len(ordered), m.VertexCount())
	for i, p := range ordered {
		xs, ys := p.X*2, p.Y*1
		x := xs*math.Cos(th) - ys*math.Sin(th) + 5
		y := xs*math.Sin(th) + ys*math.Cos(th)
		got := m.Vertex(i)
		assert.InDelta(t, x, got.X, 1e-6, "vertex %d x", i)
		assert.InDelta(t, y, got.Y, 1e-6, "vertex %d y", i)
		assert.Equal(t, 0.0, got.Z)
	}

	// 2x1 scaled square rotated a quarter turn: 1 wide, 2 tall, centred on (5, 0).
	lo, hi := m.Bounds()
	assert.InDelta(t, 4.5, lo.X, 1e-6)
	assert.InDelta(t, 5.5, hi.X, 1e-6)
	assert.InDelta(t, -1, lo.Y, 1e-6)
	assert.InDelta(t, 1, hi.Y, 1e-6)

	require.Equal(t, 6, m.Indices.Len())
}

func TestBuildKeepsZ(t *testing.T) {
	pts := []geom.Point{{X: 0, Y: 0, Z: 3}, {X: 1, Y: 0, Z: 3}, {X: 1, Y: 1, Z: 3}, {X: 0, Y: 1, Z: 3}}
	opts := DefaultOptions()
	opts.Transform.Position = geom.Point{Z: 2}
	m, err := Build(pts, 7, opts)
	require.NoError(t, err)
	for i := 0; i < m.VertexCount(); i++ {
		assert.Equal(t, 5.0, m.Vertex(i).Z)
	}
}

func TestBuildRejectsEmptyPoints(t *testing.T) {
	_, err := Build(nil, 1, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	_, err = Build([]geom.Point{}, 1, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestBuildRejectsColorBeforeGeometry(t *testing.T) {
	// Collinear points would fail triangulation; the color check must win.
	line := []geom.Point{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	_, err := Build(line, 0, DefaultOptions())
	assert.ErrorIs(t, err, aci.ErrInvalidColorIndex)
	assert.NotErrorIs(t, err, ErrTriangulationFailed)

	_, err = Build(unitSquare, 256, DefaultOptions())
	assert.ErrorIs(t, err, aci.ErrInvalidColorIndex)
}

func TestBuildColorModes(t *testing.T) {
	m, err := Build(unitSquare, -5, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "#0000ff", m.Color.Hex())

	strict := DefaultOptions()
	strict.ColorMode = aci.Strict
	_, err = Build(unitSquare, -5, strict)
	assert.ErrorIs(t, err, aci.ErrInvalidColorIndex)
}

func TestBuildCustomColor(t *testing.T) {
	opts := DefaultOptions()
	opts.CustomColorIndex = intPtr(3)
	m, err := Build(unitSquare, 1, opts)
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", m.Color.Hex())
	assert.Equal(t, 3, m.ColorIndex)

	// The override is what gets validated.
	opts.CustomColorIndex = intPtr(0)
	_, err = Build(unitSquare, 1, opts)
	assert.ErrorIs(t, err, aci.ErrInvalidColorIndex)
}

func TestBuildDegenerateFailsTriangulation(t *testing.T) {
	line := []geom.Point{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	_, err := Build(line, 1, DefaultOptions())
	assert.ErrorIs(t, err, ErrTriangulationFailed)

	opts := DefaultOptions()
	opts.Transform.YScale = 0
	_, err = Build(unitSquare, 1, opts)
	assert.ErrorIs(t, err, ErrTriangulationFailed)
}

func TestBuildNonFiniteTransform(t *testing.T) {
	opts := DefaultOptions()
	opts.Transform.Rotation = math.NaN()
	_, err := Build(unitSquare, 1, opts)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestBuildIsIdempotent(t *testing.T) {
	opts := DefaultOptions()
	opts.Transform = geom.Transform{Position: geom.Point{X: 1, Y: 2, Z: 3}, XScale: 3, YScale: 0.5, Rotation: 30}
	a, err := Build(unitSquare, 42, opts)
	require.NoError(t, err)
	b, err := Build(unitSquare, 42, opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildShuffledInputSameMesh(t *testing.T) {
	ref, err := Build(unitSquare, 2, DefaultOptions())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		in := append([]geom.Point(nil), unitSquare...)
		rng.Shuffle(len(in), func(a, b int) { in[a], in[b] = in[b], in[a] })
		m, err := Build(in, 2, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, ref, m)
	}
}

func TestIndexBufferWidth(t *testing.T) {
	b := newIndexBuffer([]int{0, 1, 65535})
	assert.Equal(t, 16, b.Width())
	assert.Nil(t, b.U32)
	assert.Equal(t, uint32(65535), b.Max())

	b = newIndexBuffer([]int{0, 65536, 1})
	assert.Equal(t, 32, b.Width())
	assert.Nil(t, b.U16)
	assert.Equal(t, uint32(65536), b.At(1))
	assert.Equal(t, 3, b.Len())
}

func TestBuildLargePolygonUses32BitIndices(t *testing.T) {
	if testing.Short() {
		t.Skip("large triangulation")
	}
	// One vertex past what 16-bit indices can address.
	const n = 65537
	pts := make([]geom.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / n
		pts[i] = geom.Point{X: 1e6 * math.Cos(a), Y: 1e6 * math.Sin(a)}
	}
	m, err := Build(pts, 1, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 32, m.Indices.Width())
	assert.Equal(t, uint32(0x10000), m.Indices.Max())
	assert.Equal(t, 0, m.Indices.Len()%3)
}
