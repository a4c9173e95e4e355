// Package server exposes drawing conversion over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"dxf-mesh-renderer/internal/aci"
	"dxf-mesh-renderer/internal/config"
	"dxf-mesh-renderer/internal/dxf"
	"dxf-mesh-renderer/internal/export"
	"dxf-mesh-renderer/internal/raster"
	"dxf-mesh-renderer/internal/scene"
	"dxf-mesh-renderer/internal/store"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// Options configure the conversion handlers.
type Options struct {
	Scene       scene.Options
	PreviewSize int
	Supersample int

	// MaxRenderSize caps PreviewSize*Supersample per request.
	MaxRenderSize int
	// MaxDrawingBytes caps the decompressed request drawing.
	MaxDrawingBytes int64

	// AccessLog receives one line per request; nil means stdout.
	AccessLog io.Writer
	Logger    *slog.Logger
}

type Server struct {
	jobs *store.Store
	opts Options
	log  *slog.Logger
}

func New(jobs *store.Store, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Scene.Logger == nil {
		opts.Scene.Logger = log
	}
	if opts.PreviewSize <= 0 {
		opts.PreviewSize = 512
	}
	if opts.Supersample <= 0 {
		opts.Supersample = 2
	}
	if opts.MaxRenderSize <= 0 {
		opts.MaxRenderSize = 4096
	}
	if opts.MaxDrawingBytes <= 0 {
		opts.MaxDrawingBytes = 64 << 20
	}
	return &Server{jobs: jobs, opts: opts, log: log}
}

// App builds the fiber application with every route registered.
func (s *Server) App(cfg config.Server) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    cfg.BodyLimitMB << 20,
		AppName:      "DXF Mesh Renderer",
	})

	access := s.opts.AccessLog
	if access == nil {
		access = os.Stdout
	}
	app.Use(recover.New())
	app.Use(Logger(access))

	app.Get("/health/live", s.Live)
	app.Get("/health/ready", s.Ready)

	app.Post("/convert", s.Convert)
	app.Get("/jobs", s.ListJobs)
	app.Get("/jobs/:id", s.GetJob)
	return app
}

func (s *Server) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// Ready reports ready once the job store answers.
func (s *Server) Ready(c fiber.Ctx) error {
	if err := s.jobs.Ping(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "ready",
	})
}

// Convert reads a drawing from the request body and answers with it
// converted to ?format= (glb, stl, json, webp, tga or png).
// ?strict=true rejects negative color indices, ?layers=a,b filters layers
// and ?size= sets the preview size.
func (s *Server) Convert(c fiber.Ctx) error {
	name := c.Query("format", string(export.GLB))
	mesh, meshErr := export.ParseFormat(name)
	image, imageErr := raster.ParseImageFormat(name)
	if meshErr != nil && imageErr != nil {
		return badRequest(c, meshErr)
	}

	opts := s.opts.Scene
	if strict, _ := strconv.ParseBool(c.Query("strict")); strict {
		opts.ColorMode = aci.Strict
	}
	if layers := c.Query("layers"); layers != "" {
		opts.Layers = strings.Split(layers, ",")
	}
	maxSize := s.opts.MaxRenderSize / s.opts.Supersample
	size := s.opts.PreviewSize
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return badRequest(c, errors.New("size must be a positive integer"))
		}
		size = n
	}
	if imageErr == nil && size > maxSize {
		return badRequest(c, fmt.Errorf("size must be at most %d", maxSize))
	}

	doc, _, err := dxf.DecodeLimit(bytes.NewReader(c.Body()), s.opts.MaxDrawingBytes)
	if err != nil {
		if errors.Is(err, dxf.ErrTooLarge) {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": err.Error()})
		}
		return badRequest(c, err)
	}
	sc := scene.Assemble(doc, opts)
	sum := sc.Summary()

	var buf bytes.Buffer
	var contentType string
	if meshErr == nil {
		err = export.Write(&buf, mesh, sc)
		contentType = mesh.ContentType()
	} else {
		err = raster.Encode(&buf, raster.Preview(sc, size, s.opts.Supersample), image)
		contentType = image.ContentType()
	}
	if err != nil {
		s.log.Error("convert failed", "format", name, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	job, err := s.jobs.Save(c.Context(), store.Job{
		Source:    c.Get("X-Source", "upload"),
		Format:    strings.ToLower(name),
		Built:     sum.Built,
		Failed:    sum.Failed,
		Skipped:   sum.Skipped,
		Triangles: sum.Triangles,
		Errors:    sc.ErrorStrings(100),
	})
	if err != nil {
		s.log.Error("job not recorded", "err", err)
	} else {
		c.Set("X-Job-ID", job.ID)
	}
	s.log.Info("converted", "format", name, "built", sum.Built, "failed", sum.Failed, "bytes", buf.Len())

	c.Set(fiber.HeaderContentType, contentType)
	c.Set("X-Solids-Built", strconv.Itoa(sum.Built))
	c.Set("X-Solids-Failed", strconv.Itoa(sum.Failed))
	return c.Send(buf.Bytes())
}

func (s *Server) GetJob(c fiber.Ctx) error {
	job, err := s.jobs.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(job)
}

// ListJobs returns the most recent jobs, ?limit= of them (default 50).
func (s *Server) ListJobs(c fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 {
		return badRequest(c, errors.New("limit must be a positive integer"))
	}
	jobs, err := s.jobs.Recent(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(jobs)
}

func badRequest(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

// Shutdown stops app, waiting up to timeout for open requests.
func Shutdown(app *fiber.App, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return app.ShutdownWithContext(ctx)
}
