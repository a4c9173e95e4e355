package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dxf-mesh-renderer/internal/dxf"
	"dxf-mesh-renderer/internal/export"
	"dxf-mesh-renderer/internal/raster"
	"dxf-mesh-renderer/internal/scene"
)

// ErrOverwriteSource is returned when an output path would replace one of
// the run's input drawings.
var ErrOverwriteSource = errors.New("batch: output would overwrite a source drawing")

// Config holds all shared settings for a batch run.
type Config struct {
	OutputDir string

	Meshes []export.Format
	Images []raster.ImageFormat

	PreviewSize int
	Supersample int
	Workers     int

	// Scene options apply per document. Documents already run in parallel,
	// so Scene.Workers is usually 1.
	Scene scene.Options

	// Progress receives a rate line every 2s; nil disables it.
	Progress io.Writer
}

// Result holds the outcome of processing one document. Success means the
// document loaded and every output was written; entity failures inside it
// are counted in Summary.
type Result struct {
	Name    string        `json:"name"`
	Source  string        `json:"source"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Summary scene.Summary `json:"summary"`
	Outputs []string      `json:"outputs,omitempty"`
	Issues  []string      `json:"issues,omitempty"`
}

// ParseFormats splits format names into mesh and image formats.
func ParseFormats(names []string) ([]export.Format, []raster.ImageFormat, error) {
	var meshes []export.Format
	var images []raster.ImageFormat
	for _, n := range names {
		if f, err := export.ParseFormat(n); err == nil {
			meshes = append(meshes, f)
			continue
		}
		f, err := raster.ParseImageFormat(n)
		if err != nil {
			return nil, nil, fmt.Errorf("batch: format %q: %w", n, err)
		}
		images = append(images, f)
	}
	return meshes, images, nil
}

// Discover lists the drawings at path: the file itself, or every .json and
// .json.gz file directly inside a directory, sorted by name.
func Discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == "manifest.json" {
			continue
		}
		n := strings.ToLower(e.Name())
		if strings.HasSuffix(n, ".json") || strings.HasSuffix(n, ".json.gz") {
			out = append(out, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Name is the output base name for a source path or URL.
func Name(src string) string {
	base := src
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		return "drawing"
	}
	return base
}

// UniqueNames returns one output base name per source. Sources that share a
// base name (a.json and a.json.gz) get numeric suffixes in source order:
// a, a-2, a-3.
func UniqueNames(sources []string) []string {
	names := make([]string, len(sources))
	taken := make(map[string]bool, len(sources))
	for i, src := range sources {
		base := Name(src)
		name := base
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// sourcePaths returns the cleaned absolute paths of local sources.
func sourcePaths(sources []string) map[string]bool {
	paths := make(map[string]bool, len(sources))
	for _, src := range sources {
		if dxf.IsURL(src) {
			continue
		}
		if abs, err := filepath.Abs(src); err == nil {
			paths[abs] = true
		}
	}
	return paths
}

// Run processes all sources using a worker pool. Results are in source order.
func Run(ctx context.Context, cfg Config, sources []string) []Result {
	total := len(sources)
	results := make([]Result, total)
	names := UniqueNames(sources)
	protected := sourcePaths(sources)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.Progress != nil {
		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						elapsed := time.Since(start).Seconds()
						rate := float64(p) / elapsed
						fmt.Fprintf(cfg.Progress, "  [%d/%d] %.1f drawings/sec\n", p, total, rate)
					}
				}
			}
		}()
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	// Worker pool
	srcChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range srcChan {
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Name: names[idx], Source: sources[idx], Error: err.Error()}
				} else {
					results[idx] = processDocument(ctx, cfg, sources[idx], names[idx], protected)
				}
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range sources {
		srcChan <- i
	}
	close(srcChan)

	wg.Wait()
	close(done)

	return results
}

// outputPath joins rel onto the output directory, refusing paths that
// point at a source drawing.
func outputPath(cfg Config, rel string, protected map[string]bool) (string, error) {
	path := filepath.Join(cfg.OutputDir, rel)
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("batch: %w", err)
	}
	if protected[abs] {
		return "", fmt.Errorf("%w: %s", ErrOverwriteSource, path)
	}
	return path, nil
}

func processDocument(ctx context.Context, cfg Config, src, name string, protected map[string]bool) Result {
	res := Result{Name: name, Source: src}

	doc, issues, err := dxf.Load(ctx, src)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	for _, is := range issues {
		res.Issues = append(res.Issues, is.Error())
	}

	sc := scene.Assemble(doc, cfg.Scene)
	res.Summary = sc.Summary()

	for _, f := range cfg.Meshes {
		rel := res.Name + "." + string(f)
		path, err := outputPath(cfg, rel, protected)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		if err := export.Save(path, f, sc); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Outputs = append(res.Outputs, rel)
	}

	if len(cfg.Images) > 0 {
		img := raster.Preview(sc, cfg.PreviewSize, cfg.Supersample)
		for _, f := range cfg.Images {
			rel := res.Name + "." + string(f)
			path, err := outputPath(cfg, rel, protected)
			if err != nil {
				res.Error = err.Error()
				return res
			}
			if err := raster.Save(path, img, f); err != nil {
				res.Error = err.Error()
				return res
			}
			res.Outputs = append(res.Outputs, rel)
		}
	}

	res.Success = true
	return res
}
