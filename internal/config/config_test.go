package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := write(t, "config.json", `{
		"input_dir": "drawings",
		"formats": ["stl"],
		"color_mode": "strict",
		"expand_inserts": false,
		"server": {"addr": ":9000", "body_limit_mb": 8}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "drawings", cfg.InputDir)
	assert.Equal(t, []string{"stl"}, cfg.Formats)
	assert.Equal(t, "strict", cfg.ColorMode)
	require.NotNil(t, cfg.ExpandInserts)
	assert.False(t, *cfg.ExpandInserts)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Server.BodyLimitMB)
}

func TestLoadTOML(t *testing.T) {
	path := write(t, "config.toml", `
input_dir = "drawings"
output_dir = "renders"
formats = ["glb", "png"]
preview_size = 256
layers = ["WALLS", "FURN"]

[server]
db_path = "/tmp/jobs.db"
read_timeout = 30
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "renders", cfg.OutputDir)
	assert.Equal(t, []string{"glb", "png"}, cfg.Formats)
	assert.Equal(t, 256, cfg.PreviewSize)
	assert.Equal(t, []string{"WALLS", "FURN"}, cfg.Layers)
	assert.Equal(t, "/tmp/jobs.db", cfg.Server.DBPath)
	assert.Equal(t, 30, cfg.Server.ReadTimeout)
	assert.Nil(t, cfg.ExpandInserts)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "config: read")

	_, err = Load(write(t, "bad.toml", "formats = ["))
	assert.ErrorContains(t, err, "config: parse")

	_, err = Load(write(t, "bad.json", "{"))
	assert.ErrorContains(t, err, "config: parse")
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JOBS_DB_PATH", "")
	t.Setenv("READ_TIMEOUT", "")
	t.Setenv("WRITE_TIMEOUT", "")

	var cfg Config
	cfg.Resolve(Flags{})
	assert.Equal(t, ".", cfg.InputDir)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, []string{"glb", "webp"}, cfg.Formats)
	assert.Equal(t, 512, cfg.PreviewSize)
	assert.Equal(t, 2, cfg.Supersample)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, "tolerant", cfg.ColorMode)
	assert.True(t, *cfg.ExpandInserts)
	assert.Equal(t, Server{
		Addr:          ":3001",
		DBPath:        filepath.Join("data", "jobs.db"),
		ReadTimeout:   10,
		WriteTimeout:  10,
		BodyLimitMB:   64,
		MaxRenderSize: 4096,
	}, cfg.Server)
}

func TestResolveFlagsOverride(t *testing.T) {
	cfg := Config{InputDir: "a", Formats: []string{"glb"}, Workers: 2}
	cfg.Resolve(Flags{
		InputDir: "b",
		Formats:  "stl, json,,",
		Workers:  7,
		Size:     128,
		Strict:   true,
		Layers:   "0,WALLS",
	})
	assert.Equal(t, "b", cfg.InputDir)
	assert.Equal(t, []string{"stl", "json"}, cfg.Formats)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, 128, cfg.PreviewSize)
	assert.Equal(t, "strict", cfg.ColorMode)
	assert.Equal(t, []string{"0", "WALLS"}, cfg.Layers)
}

func TestResolveServerEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("JOBS_DB_PATH", "/var/lib/jobs.db")
	t.Setenv("READ_TIMEOUT", "nope")
	t.Setenv("WRITE_TIMEOUT", "45")

	cfg := Config{Server: Server{Addr: ":1", ReadTimeout: 5}}
	cfg.Resolve(Flags{})
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/var/lib/jobs.db", cfg.Server.DBPath)
	assert.Equal(t, 5, cfg.Server.ReadTimeout, "unparseable env keeps file value")
	assert.Equal(t, 45, cfg.Server.WriteTimeout)
}
