package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dxf-mesh-renderer/internal/config"
	"dxf-mesh-renderer/internal/dxf"
	"dxf-mesh-renderer/internal/export"
	"dxf-mesh-renderer/internal/scene"
	"dxf-mesh-renderer/internal/store"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const drawing = `{"entities": [
	{"type": "SOLID", "handle": "A", "layer": "WALLS", "colorIndex": 1, "points": [{"x": 0, "y": 0}, {"x": 1, "y": 0}, {"x": 1, "y": 1}, {"x": 0, "y": 1}]},
	{"type": "SOLID", "handle": "B", "layer": "FURN", "colorIndex": -3, "points": [{"x": 2, "y": 0}, {"x": 3, "y": 0}, {"x": 2, "y": 1}]},
	{"type": "SOLID", "handle": "C", "layer": "WALLS", "points": []}
]}`

type fixture struct {
	app  *fiber.App
	jobs *store.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWith(t, func(*Options) {})
}

func newFixtureWith(t *testing.T, edit func(*Options)) fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	jobs := store.New(db)
	require.NoError(t, jobs.Init(context.Background()))

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := scene.DefaultOptions()
	opts.Workers = 1
	srvOpts := Options{
		Scene:       opts,
		PreviewSize: 32,
		Supersample: 1,
		AccessLog:   io.Discard,
		Logger:      quiet,
	}
	edit(&srvOpts)
	srv := New(jobs, srvOpts)
	var cfg config.Config
	cfg.Resolve(config.Flags{})
	return fixture{app: srv.App(cfg.Server), jobs: jobs}
}

func (f fixture) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := f.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second, FailOnTimeout: true})
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func convert(t *testing.T, f fixture, query, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/convert"+query, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return f.do(t, req)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status": "alive"}`, string(body))

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status": "ready"}`, string(body))
}

func TestConvertJSON(t *testing.T) {
	f := newFixture(t)
	resp, body := convert(t, f, "?format=json", drawing)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "2", resp.Header.Get("X-Solids-Built"))
	assert.Equal(t, "1", resp.Header.Get("X-Solids-Failed"))

	var b export.Bundle
	require.NoError(t, json.Unmarshal(body, &b))
	require.Len(t, b.Geometries, 2)
	assert.Equal(t, "#00ff00", b.Geometries[1].Color, "negative index resolves by magnitude")

	id := resp.Header.Get("X-Job-ID")
	require.NotEmpty(t, id)
	job, err := f.jobs.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "json", job.Format)
	assert.Equal(t, 2, job.Built)
	assert.Equal(t, 1, job.Failed)
	require.Len(t, job.Errors, 1)
	assert.Contains(t, job.Errors[0], "invalid geometry")
}

func TestConvertStrictAndLayers(t *testing.T) {
	f := newFixture(t)
	resp, _ := convert(t, f, "?format=json&strict=true", drawing)
	assert.Equal(t, "1", resp.Header.Get("X-Solids-Built"))
	assert.Equal(t, "2", resp.Header.Get("X-Solids-Failed"))

	resp, _ = convert(t, f, "?format=json&layers=FURN", drawing)
	assert.Equal(t, "1", resp.Header.Get("X-Solids-Built"))
	assert.Equal(t, "0", resp.Header.Get("X-Solids-Failed"))
}

func TestConvertBinaryFormats(t *testing.T) {
	f := newFixture(t)

	resp, body := convert(t, f, "", drawing)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "model/gltf-binary", resp.Header.Get("Content-Type"))
	assert.Equal(t, "glTF", string(body[:4]))

	resp, body = convert(t, f, "?format=stl", drawing)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body, 84+50*3, "binary STL with three triangles")

	resp, body = convert(t, f, "?format=png&size=16", drawing)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "\x89PNG", string(body[:4]))
}

func TestConvertBadRequests(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct{ query, body string }{
		{"?format=obj", drawing},
		{"?format=png&size=0", drawing},
		{"?format=json", "{not json"},
	} {
		resp, body := convert(t, f, tc.query, tc.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.query)
		assert.Contains(t, string(body), `"error"`)
	}

	jobs, err := f.jobs.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs, "rejected requests leave no job")
}

func TestConvertLimits(t *testing.T) {
	f := newFixtureWith(t, func(o *Options) {
		o.Supersample = 2
		o.MaxRenderSize = 64
		o.MaxDrawingBytes = int64(len(drawing))
	})

	resp, _ := convert(t, f, "?format=png&size=32", drawing)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "32*2 is within the render cap")

	resp, body := convert(t, f, "?format=png&size=33", drawing)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "at most 32")

	resp, _ = convert(t, f, "?format=webp&size=4096", drawing)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = convert(t, f, "?format=json&size=4096", drawing)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "mesh formats ignore size")

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte(strings.Repeat(" ", 64) + drawing))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.Less(t, gz.Len(), len(drawing))

	resp, body = convert(t, f, "?format=json", gz.String())
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Contains(t, string(body), dxf.ErrTooLarge.Error())

	jobs, err := f.jobs.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestJobs(t *testing.T) {
	f := newFixture(t)
	resp, _ := convert(t, f, "?format=json", drawing)
	id := resp.Header.Get("X-Job-ID")
	convert(t, f, "?format=stl", drawing)

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var job store.Job
	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, id, job.ID)

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/jobs?limit=5", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jobs []store.Job
	require.NoError(t, json.Unmarshal(body, &jobs))
	assert.Len(t, jobs, 2)

	resp, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/jobs?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
