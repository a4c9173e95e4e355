package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"dxf-mesh-renderer/internal/aci"
	"dxf-mesh-renderer/internal/batch"
	"dxf-mesh-renderer/internal/config"
	"dxf-mesh-renderer/internal/scene"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config .json or .toml file")
	testN := flag.Int("test", 0, "Convert only the first N drawings")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	inputDir := flag.String("input", "", "Drawing file or directory of .json/.json.gz drawings (default: .)")
	outputDir := flag.String("output", "", "Output directory (default: out)")
	formats := flag.String("formats", "", "Comma separated outputs: glb,stl,json,webp,tga,png (default: glb,webp)")
	size := flag.Int("size", 0, "Preview image size in pixels (default: 512)")
	strict := flag.Bool("strict", false, "Reject negative color indices instead of using their magnitude")
	layers := flag.String("layers", "", "Comma separated layers to convert (default: all)")
	verbose := flag.Bool("v", false, "Log every skipped entity")

	flag.Parse()

	level := slog.LevelError
	if *verbose {
		level = slog.LevelWarn
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		InputDir:  *inputDir,
		OutputDir: *outputDir,
		Formats:   *formats,
		Workers:   *workers,
		Size:      *size,
		Strict:    *strict,
		Layers:    *layers,
	})

	meshes, images, err := batch.ParseFormats(cfg.Formats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	mode, err := aci.ParseMode(cfg.ColorMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sources, err := batch.Discover(cfg.InputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Limit for testing
	if *testN > 0 && *testN < len(sources) {
		sources = sources[:*testN]
	}

	if len(sources) == 0 {
		fmt.Println("No drawings to convert.")
		os.Exit(0)
	}

	// Print summary
	suffix := ""
	if *testN > 0 {
		suffix = fmt.Sprintf(" (TEST: first %d)", *testN)
	}

	fmt.Printf("DXF SOLID mesh renderer → %s%s\n", strings.Join(cfg.Formats, ", "), suffix)
	fmt.Printf("Drawings: %d, Workers: %d, Colors: %s\n", len(sources), cfg.Workers, mode)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()

	// Run batch
	batchCfg := batch.Config{
		OutputDir:   cfg.OutputDir,
		Meshes:      meshes,
		Images:      images,
		PreviewSize: cfg.PreviewSize,
		Supersample: cfg.Supersample,
		Workers:     cfg.Workers,
		Scene: scene.Options{
			ColorMode:     mode,
			Workers:       1,
			Layers:        cfg.Layers,
			ExpandInserts: *cfg.ExpandInserts,
			Logger:        log,
		},
		Progress: os.Stdout,
	}

	results := batch.Run(ctx, batchCfg, sources)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var total scene.Summary
	var errors []batch.Result
	for _, r := range results {
		total.Built += r.Summary.Built
		total.Failed += r.Summary.Failed
		total.Skipped += r.Summary.Skipped
		total.Triangles += r.Summary.Triangles
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Converted: %d/%d\n", success, len(sources))
	fmt.Printf("Solids: %d built, %d failed, %d other entities skipped, %d triangles\n",
		total.Built, total.Failed, total.Skipped, total.Triangles)

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := 20
		if len(errors) < limit {
			limit = len(errors)
		}
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
