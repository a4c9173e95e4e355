// Package export writes assembled scenes in formats other renderers load.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dxf-mesh-renderer/internal/scene"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Format names an output encoding.
type Format string

const (
	GLB  Format = "glb"
	STL  Format = "stl"
	JSON Format = "json"
)

// Formats lists the mesh formats in a stable order.
var Formats = []Format{GLB, STL, JSON}

// ParseFormat accepts a format name in any case, with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	switch f {
	case GLB, STL, JSON:
		return f, nil
	}
	return "", fmt.Errorf("export: %w %q", ErrUnknownFormat, s)
}

// ContentType is the media type served for f.
func (f Format) ContentType() string {
	switch f {
	case GLB:
		return "model/gltf-binary"
	case STL:
		return "model/stl"
	}
	return "application/json"
}

// Write encodes sc to w in format f.
func Write(w io.Writer, f Format, sc *scene.Scene) error {
	switch f {
	case GLB:
		return WriteGLB(w, sc)
	case STL:
		return WriteSTL(w, sc)
	case JSON:
		return WriteJSON(w, sc)
	}
	return fmt.Errorf("export: %w %q", ErrUnknownFormat, f)
}

// Save writes sc to path, creating parent directories.
func Save(path string, f Format, sc *scene.Scene) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(out, f, sc); err != nil {
		out.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return out.Close()
}
