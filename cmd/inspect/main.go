package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"dxf-mesh-renderer/internal/aci"
	"dxf-mesh-renderer/internal/dxf"
	"dxf-mesh-renderer/internal/polygon"
	"dxf-mesh-renderer/internal/scene"
)

func main() {
	strict := flag.Bool("strict", false, "Reject negative color indices")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: inspect [-strict] <file|url>")
		os.Exit(2)
	}
	src := flag.Arg(0)

	doc, issues, err := dxf.Load(context.Background(), src)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	counts := doc.Counts()
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	fmt.Printf("Entities: %d, Blocks: %d\n", len(doc.Entities), len(doc.Blocks))
	for _, t := range types {
		fmt.Printf("  %-12s %d\n", t, counts[dxf.EntityType(t)])
	}

	if len(issues) > 0 {
		fmt.Printf("\nIngest issues (%d):\n", len(issues))
		for _, is := range issues {
			fmt.Printf("  %v\n", is)
		}
	}

	opts := scene.DefaultOptions()
	if *strict {
		opts.ColorMode = aci.Strict
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	sc := scene.Assemble(doc, opts)

	fmt.Printf("\nSolids (%s colors):\n", opts.ColorMode)
	for _, r := range sc.Results {
		where := r.Handle
		if r.Insert != "" {
			where = fmt.Sprintf("%s via %s[%s]", r.Handle, r.Insert, r.Block)
		}
		if r.Err != nil {
			fmt.Printf("  [%d] %s: FAILED %s (%v)\n", r.Index, where, scene.Reason(r.Err), r.Err)
			continue
		}
		m := r.Mesh
		lo, hi := m.Bounds()
		note := ""
		if m.VertexCount() != polygon.ReliableCount {
			note = " (ordering may be unreliable)"
		}
		fmt.Printf("  [%d] %s: points=%d tris=%d index=u%d color=%d %s%s\n",
			r.Index, where, m.VertexCount(), m.TriangleCount(), m.Indices.Width(), m.ColorIndex, m.Color.Hex(), note)
		fmt.Printf("    BBox: X[%.3f, %.3f] Y[%.3f, %.3f] Z[%.3f, %.3f]\n", lo.X, hi.X, lo.Y, hi.Y, lo.Z, hi.Z)
	}

	sum := sc.Summary()
	fmt.Printf("\nBuilt: %d, Failed: %d, Skipped: %d, Triangles: %d\n", sum.Built, sum.Failed, sum.Skipped, sum.Triangles)
	reasons := make([]string, 0, len(sum.Reasons))
	for r := range sum.Reasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("  %-26s %d\n", r, sum.Reasons[r])
	}
}
