// Package dxf ingests the JSON form of a DXF drawing (as produced by
// dxf-parser) into typed entities.
//
// Validation happens here, at the boundary: SOLID and INSERT records either
// carry a checked payload or an error, so the mesh pipeline only ever sees
// well-formed points and integral color indices.
package dxf

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"dxf-mesh-renderer/internal/aci"
	"dxf-mesh-renderer/internal/geom"
	"dxf-mesh-renderer/internal/solid"

	"github.com/klauspost/compress/gzip"
)

var ErrMalformed = errors.New("malformed entity")

// ErrTooLarge is returned by DecodeLimit when the decompressed drawing
// exceeds its limit.
var ErrTooLarge = errors.New("drawing too large")

type rawBlock struct {
	Name     string           `json:"name"`
	Position map[string]any   `json:"position"`
	Entities []map[string]any `json:"entities"`
}

type rawDocument struct {
	Entities []map[string]any    `json:"entities"`
	Blocks   map[string]rawBlock `json:"blocks"`
	Tables   map[string]any      `json:"tables"`
	Header   map[string]any      `json:"header"`
	Headers  map[string]any      `json:"headers"`
}

// Decode reads a drawing from r, transparently gunzipping it when the
// stream starts with the gzip magic bytes. Malformed JSON is an error;
// malformed entities are kept with Err set and also returned as issues.
func Decode(r io.Reader) (*Document, []Issue, error) {
	return DecodeLimit(r, 0)
}

// DecodeLimit is Decode with a cap on the drawing size in bytes, counted
// after decompression. A limit <= 0 means no cap.
func DecodeLimit(r io.Reader, limit int64) (*Document, []Issue, error) {
	r, err := maybeGunzip(r)
	if err != nil {
		return nil, nil, err
	}
	if limit > 0 {
		r = &capReader{r: io.LimitReader(r, limit+1), limit: limit}
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw rawDocument
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("dxf: decode: %w", err)
	}

	doc := &Document{
		Blocks: make(map[string]Block, len(raw.Blocks)),
		Tables: raw.Tables,
		Header: raw.Header,
	}
	if doc.Header == nil {
		doc.Header = raw.Headers
	}

	var issues []Issue
	doc.Entities, issues = decodeEntities("", raw.Entities)

	for key, rb := range raw.Blocks {
		name := rb.Name
		if name == "" {
			name = key
		}
		b := Block{Name: name}
		if rb.Position != nil {
			p, err := point(rb.Position)
			if err != nil {
				issues = append(issues, Issue{Block: name, Index: -1, Err: fmt.Errorf("block position: %w", err)})
			}
			b.Position = p
		}
		var bi []Issue
		b.Entities, bi = decodeEntities(name, rb.Entities)
		issues = append(issues, bi...)
		doc.Blocks[key] = b
	}

	return doc, issues, nil
}

// capReader fails once more than limit bytes have been read.
type capReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.limit {
		return n, fmt.Errorf("%w: over %d bytes", ErrTooLarge, c.limit)
	}
	return n, err
}

func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("dxf: read: %w", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("dxf: gzip: %w", err)
		}
		return zr, nil
	}
	return br, nil
}

func decodeEntities(block string, raws []map[string]any) ([]Entity, []Issue) {
	out := make([]Entity, len(raws))
	var issues []Issue
	for i, raw := range raws {
		e := entity(raw)
		out[i] = e
		if e.Err != nil {
			issues = append(issues, Issue{Block: block, Index: i, Handle: e.Handle, Type: e.Type, Err: e.Err})
		}
	}
	return out, issues
}

func entity(raw map[string]any) Entity {
	e := Entity{Raw: raw}
	e.Type = EntityType(str(raw["type"]))
	e.Handle = str(raw["handle"])
	e.Layer = str(raw["layer"])

	switch e.Type {
	case "":
		e.Err = fmt.Errorf("%w: missing type", ErrMalformed)
	case SolidType:
		e.Solid, e.Err = decodeSolid(raw)
	case InsertType:
		e.Insert, e.Err = decodeInsert(raw)
	}
	return e
}

func decodeSolid(raw map[string]any) (*Solid, error) {
	s := &Solid{}
	if v, ok := raw["points"]; ok && v != nil {
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: points is %T, want array", solid.ErrInvalidGeometry, v)
		}
		s.Points = make([]geom.Point, 0, len(list))
		for i, pv := range list {
			m, ok := pv.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: point %d is %T", solid.ErrInvalidGeometry, i, pv)
			}
			p, err := point(m)
			if err != nil {
				return nil, fmt.Errorf("point %d: %w", i, err)
			}
			s.Points = append(s.Points, p)
		}
	}

	if v, ok := raw["colorIndex"]; ok {
		idx, err := aci.Integer(v)
		if err != nil {
			return nil, err
		}
		s.ColorIndex, s.HasColor = idx, true
	}
	return s, nil
}

func decodeInsert(raw map[string]any) (*Insert, error) {
	in := &Insert{XScale: 1, YScale: 1}
	in.Name = str(raw["name"])
	if in.Name == "" {
		return nil, fmt.Errorf("%w: insert without block name", ErrMalformed)
	}
	if v, ok := raw["position"].(map[string]any); ok {
		p, err := point(v)
		if err != nil {
			return nil, fmt.Errorf("position: %w", err)
		}
		in.Position = p
	}

	for key, dst := range map[string]*float64{"xScale": &in.XScale, "yScale": &in.YScale, "rotation": &in.Rotation} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		f, ok := number(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a number", ErrMalformed, key)
		}
		*dst = f
	}

	if v, ok := raw["colorIndex"]; ok {
		idx, err := aci.Integer(v)
		if err != nil {
			return nil, err
		}
		in.ColorIndex, in.HasColor = idx, true
	}
	return in, nil
}

// point reads {x, y, z}; x and y are required, z defaults to 0.
func point(m map[string]any) (geom.Point, error) {
	var p geom.Point
	var ok bool
	if p.X, ok = number(m["x"]); !ok {
		return p, fmt.Errorf("%w: x is %v", solid.ErrInvalidGeometry, m["x"])
	}
	if p.Y, ok = number(m["y"]); !ok {
		return p, fmt.Errorf("%w: y is %v", solid.ErrInvalidGeometry, m["y"])
	}
	if z, present := m["z"]; present && z != nil {
		if p.Z, ok = number(z); !ok {
			return p, fmt.Errorf("%w: z is %v", solid.ErrInvalidGeometry, z)
		}
	}
	return p, nil
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return ""
}
