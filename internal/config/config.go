package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds input/output paths, build settings and server settings.
type Config struct {
	// Paths
	InputDir  string `json:"input_dir" toml:"input_dir"`
	OutputDir string `json:"output_dir" toml:"output_dir"`

	// Outputs: any of glb, stl, json, webp, tga, png
	Formats     []string `json:"formats" toml:"formats"`
	PreviewSize int      `json:"preview_size" toml:"preview_size"`
	Supersample int      `json:"supersample" toml:"supersample"`

	// Build settings
	Workers       int      `json:"workers" toml:"workers"`
	ColorMode     string   `json:"color_mode" toml:"color_mode"`
	Layers        []string `json:"layers" toml:"layers"`
	ExpandInserts *bool    `json:"expand_inserts" toml:"expand_inserts"`

	Server Server `json:"server" toml:"server"`
}

// Server configures cmd/server.
type Server struct {
	Addr   string `json:"addr" toml:"addr"`
	DBPath string `json:"db_path" toml:"db_path"`

	// Timeouts in seconds
	ReadTimeout  int `json:"read_timeout" toml:"read_timeout"`
	WriteTimeout int `json:"write_timeout" toml:"write_timeout"`

	// BodyLimitMB caps the request body and the decompressed drawing.
	BodyLimitMB int `json:"body_limit_mb" toml:"body_limit_mb"`

	// MaxRenderSize caps the preview side after supersampling.
	MaxRenderSize int `json:"max_render_size" toml:"max_render_size"`
}

// Load reads a .json or .toml config file. Fields not set in the file keep
// their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir  string
	OutputDir string
	Formats   string // comma separated
	Workers   int
	Size      int
	Strict    bool
	Layers    string // comma separated
}

// Resolve applies flags, then fills any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Formats != "" {
		c.Formats = splitList(flags.Formats)
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Size > 0 {
		c.PreviewSize = flags.Size
	}
	if flags.Strict {
		c.ColorMode = "strict"
	}
	if flags.Layers != "" {
		c.Layers = splitList(flags.Layers)
	}

	if c.InputDir == "" {
		c.InputDir = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if len(c.Formats) == 0 {
		c.Formats = []string{"glb", "webp"}
	}
	if c.PreviewSize <= 0 {
		c.PreviewSize = 512
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ColorMode == "" {
		c.ColorMode = "tolerant"
	}
	if c.ExpandInserts == nil {
		expand := true
		c.ExpandInserts = &expand
	}
	c.Server.resolve()
}

// resolve fills server defaults; PORT and JOBS_DB_PATH win over the file.
func (s *Server) resolve() {
	if port := getEnv("PORT", ""); port != "" {
		s.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	s.DBPath = getEnv("JOBS_DB_PATH", s.DBPath)
	s.ReadTimeout = getEnvAsInt("READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", s.WriteTimeout)

	if s.Addr == "" {
		s.Addr = ":3001"
	}
	if s.DBPath == "" {
		s.DBPath = filepath.Join("data", "jobs.db")
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = 10
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 10
	}
	if s.BodyLimitMB <= 0 {
		s.BodyLimitMB = 64
	}
	if s.MaxRenderSize <= 0 {
		s.MaxRenderSize = 4096
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
