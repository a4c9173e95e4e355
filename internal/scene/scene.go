// Package scene turns a decoded drawing into the list of meshes handed to a
// renderer.
//
// Every qualifying entity is built independently. A failure is recorded on
// that entity's Result and assembly moves on, so one malformed SOLID never
// costs the rest of the drawing.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"dxf-mesh-renderer/internal/aci"
	"dxf-mesh-renderer/internal/dxf"
	"dxf-mesh-renderer/internal/geom"
	"dxf-mesh-renderer/internal/solid"
)

var ErrUnknownBlock = errors.New("unknown block")

// Options control assembly.
type Options struct {
	ColorMode aci.Mode

	// Workers > 1 builds meshes in parallel. Result order is unaffected.
	Workers int

	// Layers restricts assembly to the named layers; empty means all.
	Layers []string

	// ExpandInserts builds the SOLIDs of blocks referenced by INSERT.
	ExpandInserts bool

	Logger *slog.Logger
}

// DefaultOptions builds with sign-tolerant colors, expands inserts and
// uses every CPU.
func DefaultOptions() Options {
	return Options{
		ColorMode:     aci.SignTolerant,
		Workers:       runtime.NumCPU(),
		ExpandInserts: true,
	}
}

// Result is the outcome for one SOLID, either top-level or reached through
// an INSERT.
type Result struct {
	// Index is the position of the top-level entity in the drawing.
	Index  int
	Handle string
	Layer  string
	Type   dxf.EntityType

	// Block and Insert are set for SOLIDs placed by an INSERT.
	Block  string
	Insert string

	Mesh *solid.Mesh
	Err  error
}

// Scene is the assembled drawing. Results are in drawing order.
type Scene struct {
	Results []Result

	// Skipped counts entities of types that produce no mesh.
	Skipped map[dxf.EntityType]int
}

// job is one mesh to build, resolved up front so workers share nothing.
type job struct {
	res       Result
	points    []geom.Point
	color     int
	transform geom.Transform
	custom    *int
}

// Assemble builds every SOLID in doc, plus block SOLIDs placed by INSERT when
// ExpandInserts is set.
func Assemble(doc *dxf.Document, opts Options) *Scene {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	layers := make(map[string]bool, len(opts.Layers))
	for _, l := range opts.Layers {
		layers[l] = true
	}

	sc := &Scene{Skipped: make(map[dxf.EntityType]int)}
	var jobs []job

	for i, e := range doc.Entities {
		if len(layers) > 0 && !layers[e.Layer] {
			sc.Skipped[e.Type]++
			continue
		}
		base := Result{Index: i, Handle: e.Handle, Layer: e.Layer, Type: e.Type}

		switch {
		case e.Type == dxf.SolidType:
			if e.Err != nil {
				base.Err = e.Err
				jobs = append(jobs, job{res: base})
				continue
			}
			jobs = append(jobs, job{
				res:       base,
				points:    e.Solid.Points,
				color:     e.Solid.ColorIndex,
				transform: geom.Identity(),
			})

		case e.Type == dxf.InsertType && opts.ExpandInserts:
			if e.Err != nil {
				base.Err = e.Err
				jobs = append(jobs, job{res: base})
				continue
			}
			jobs = append(jobs, insertJobs(doc, base, e.Insert)...)

		default:
			sc.Skipped[e.Type]++
		}
	}

	sc.Results = make([]Result, len(jobs))
	run(jobs, sc.Results, opts)

	for _, r := range sc.Results {
		if r.Err != nil {
			log.Warn("skipping entity", "index", r.Index, "handle", r.Handle, "type", r.Type, "block", r.Block, "err", r.Err)
		}
	}
	return sc
}

// insertJobs expands one INSERT into a job per SOLID of its block. Block
// geometry is taken relative to the block base point. The insert's color,
// when present, overrides the block entity colors.
func insertJobs(doc *dxf.Document, base Result, in *dxf.Insert) []job {
	base.Insert = base.Handle
	base.Block = in.Name
	blk, ok := doc.Blocks[in.Name]
	if !ok {
		base.Err = fmt.Errorf("scene: %w %q", ErrUnknownBlock, in.Name)
		return []job{{res: base}}
	}

	var custom *int
	if in.HasColor {
		c := in.ColorIndex
		custom = &c
	}

	var jobs []job
	for _, be := range blk.Entities {
		if be.Type != dxf.SolidType {
			continue
		}
		res := base
		res.Handle = be.Handle
		res.Type = be.Type
		if be.Err != nil {
			res.Err = be.Err
			jobs = append(jobs, job{res: res})
			continue
		}
		jobs = append(jobs, job{
			res:       res,
			points:    relativeTo(be.Solid.Points, blk.Position),
			color:     be.Solid.ColorIndex,
			transform: in.Transform(),
			custom:    custom,
		})
	}
	return jobs
}

func relativeTo(points []geom.Point, base geom.Point) []geom.Point {
	if base == (geom.Point{}) {
		return points
	}
	out := make([]geom.Point, len(points))
	for i, p := range points {
		out[i] = geom.Point{X: p.X - base.X, Y: p.Y - base.Y, Z: p.Z - base.Z}
	}
	return out
}

// run builds jobs into out (same index), in parallel when opts.Workers > 1.
func run(jobs []job, out []Result, opts Options) {
	workers := opts.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers <= 1 {
		for i := range jobs {
			out[i] = build(jobs[i], opts.ColorMode)
		}
		return
	}

	idxChan := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxChan {
				out[idx] = build(jobs[idx], opts.ColorMode)
			}
		}()
	}
	for i := range jobs {
		idxChan <- i
	}
	close(idxChan)
	wg.Wait()
}

func build(j job, mode aci.Mode) Result {
	res := j.res
	if res.Err != nil {
		return res
	}
	m, err := solid.Build(j.points, j.color, solid.Options{
		Transform:        j.transform,
		CustomColorIndex: j.custom,
		ColorMode:        mode,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Mesh = m
	return res
}

// Meshes returns the successful results in order.
func (sc *Scene) Meshes() []Result {
	var out []Result
	for _, r := range sc.Results {
		if r.Mesh != nil {
			out = append(out, r)
		}
	}
	return out
}

// Failures returns the failed results in order.
func (sc *Scene) Failures() []Result {
	var out []Result
	for _, r := range sc.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Bounds is the bounding box of every built mesh. ok is false when nothing
// was built.
func (sc *Scene) Bounds() (lo, hi geom.Point, ok bool) {
	for _, r := range sc.Results {
		if r.Mesh == nil || r.Mesh.VertexCount() == 0 {
			continue
		}
		mlo, mhi := r.Mesh.Bounds()
		if !ok {
			lo, hi, ok = mlo, mhi, true
			continue
		}
		lo = geom.FromVec3(lo.Vec3().Min(mlo.Vec3()))
		hi = geom.FromVec3(hi.Vec3().Max(mhi.Vec3()))
	}
	return lo, hi, ok
}

// Summary counts outcomes and groups failures by cause.
type Summary struct {
	Built     int            `json:"built"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Triangles int            `json:"triangles"`
	Reasons   map[string]int `json:"reasons,omitempty"`
}

var reasons = []struct {
	name string
	err  error
}{
	{"invalid_color_index_type", aci.ErrInvalidColorIndexType},
	{"invalid_color_index", aci.ErrInvalidColorIndex},
	{"invalid_geometry", solid.ErrInvalidGeometry},
	{"triangulation_failed", solid.ErrTriangulationFailed},
	{"unknown_block", ErrUnknownBlock},
	{"malformed", dxf.ErrMalformed},
}

// Reason names the sentinel behind err, or "other".
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return "other"
}

func (sc *Scene) Summary() Summary {
	s := Summary{}
	for _, r := range sc.Results {
		if r.Mesh != nil {
			s.Built++
			s.Triangles += r.Mesh.TriangleCount()
			continue
		}
		s.Failed++
		if s.Reasons == nil {
			s.Reasons = make(map[string]int)
		}
		s.Reasons[Reason(r.Err)]++
	}
	for _, n := range sc.Skipped {
		s.Skipped += n
	}
	return s
}

// ErrorStrings lists failure messages in drawing order, at most limit of
// them (all when limit <= 0).
func (sc *Scene) ErrorStrings(limit int) []string {
	var out []string
	for _, r := range sc.Failures() {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, fmt.Sprintf("%d %s %s: %v", r.Index, r.Handle, r.Type, r.Err))
	}
	return out
}

// SkippedTypes returns the skipped entity types in name order.
func (sc *Scene) SkippedTypes() []dxf.EntityType {
	types := make([]dxf.EntityType, 0, len(sc.Skipped))
	for t := range sc.Skipped {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
