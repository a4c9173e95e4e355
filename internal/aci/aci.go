// Package aci resolves AutoCAD Color Index values to RGB colors.
//
// The palette is bundled as aci.json and decoded once on first use. Index 0
// (ByBlock) and anything above 255 are never looked up.
package aci

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"sync"
)

var (
	ErrInvalidColorIndex     = errors.New("invalid color index")
	ErrInvalidColorIndexType = errors.New("color index is not an integer")
)

const (
	MinIndex = 1
	MaxIndex = 255
)

// Mode selects how negative indices are treated. Entity records may carry a
// negative index to mark a layer that is switched off; some callers want
// that rejected, others want the magnitude.
type Mode int

const (
	// Strict rejects anything outside [1, 255], including negatives.
	Strict Mode = iota
	// SignTolerant takes the absolute value before the range check.
	SignTolerant
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case SignTolerant:
		return "tolerant"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode accepts "strict" or "tolerant" (empty means tolerant).
func ParseMode(s string) (Mode, error) {
	switch s {
	case "strict":
		return Strict, nil
	case "", "tolerant", "sign-tolerant":
		return SignTolerant, nil
	}
	return 0, fmt.Errorf("aci: unknown color mode %q", s)
}

// Color is an opaque 8-bit RGB color.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Float4 returns the color as RGBA components in [0, 1].
func (c Color) Float4() [4]float32 {
	return [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, 1}
}

func parseHex(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, fmt.Errorf("aci: bad color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("aci: bad color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

//go:embed aci.json
var tableJSON []byte

// table is decoded once and never written afterwards.
var table = sync.OnceValues(func() ([MaxIndex + 1]Color, error) {
	var t [MaxIndex + 1]Color
	var raw map[string]string
	if err := json.Unmarshal(tableJSON, &raw); err != nil {
		return t, fmt.Errorf("aci: parse table: %w", err)
	}
	for i := MinIndex; i <= MaxIndex; i++ {
		s, ok := raw[strconv.Itoa(i)]
		if !ok {
			return t, fmt.Errorf("aci: table has no entry %d", i)
		}
		c, err := parseHex(s)
		if err != nil {
			return t, err
		}
		t[i] = c
	}
	return t, nil
})

// Lookup returns the table color for index in [1, 255].
func Lookup(index int) (Color, bool) {
	if index < MinIndex || index > MaxIndex {
		return Color{}, false
	}
	t, err := table()
	if err != nil {
		// The table is compiled in; a decode failure is a build defect.
		panic(err)
	}
	return t[index], true
}

// Validate checks index against [1, 255] under mode.
func Validate(index int, mode Mode) error {
	v := index
	if mode == SignTolerant && v < 0 {
		v = -v
	}
	if v < MinIndex || v > MaxIndex {
		return fmt.Errorf("aci: %w %d (mode %s)", ErrInvalidColorIndex, index, mode)
	}
	return nil
}

// Resolve validates index under mode and returns its color.
func Resolve(index int, mode Mode) (Color, error) {
	if err := Validate(index, mode); err != nil {
		return Color{}, err
	}
	if index < 0 {
		index = -index
	}
	c, _ := Lookup(index)
	return c, nil
}

// Integer converts a loosely typed value (as decoded from JSON) to an
// integral color index. Floating values must have no fractional part.
func Integer(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return intFromFloat(float64(n), v)
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return intFromFloat(float64(n), v)
	case float32:
		return intFromFloat(float64(n), v)
	case float64:
		return intFromFloat(n, v)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("aci: %w: %q", ErrInvalidColorIndexType, string(n))
		}
		return intFromFloat(f, v)
	}
	return 0, fmt.Errorf("aci: %w: %T", ErrInvalidColorIndexType, v)
}

func intFromFloat(f float64, orig any) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("aci: %w: %v", ErrInvalidColorIndexType, orig)
	}
	// Anything this large is out of range anyway; clamp so the int
	// conversion stays defined.
	if f > math.MaxInt32 {
		f = math.MaxInt32
	} else if f < math.MinInt32 {
		f = math.MinInt32
	}
	return int(f), nil
}

// ResolveValue is Resolve for loosely typed input.
func ResolveValue(v any, mode Mode) (Color, error) {
	index, err := Integer(v)
	if err != nil {
		return Color{}, err
	}
	return Resolve(index, mode)
}
