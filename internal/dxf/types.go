package dxf

import (
	"fmt"

	"dxf-mesh-renderer/internal/geom"
)

// EntityType is the DXF entity type name ("SOLID", "INSERT", ...).
type EntityType string

const (
	Line       EntityType = "LINE"
	LWPolyline EntityType = "LWPOLYLINE"
	Circle     EntityType = "CIRCLE"
	Arc        EntityType = "ARC"
	SolidType  EntityType = "SOLID"
	InsertType EntityType = "INSERT"
	Attrib     EntityType = "ATTRIB"
	Attdef     EntityType = "ATTDEF"
	Text       EntityType = "TEXT"
	MText      EntityType = "MTEXT"
	Hatch      EntityType = "HATCH"
	Dimension  EntityType = "DIMENSION"
	Leader     EntityType = "LEADER"
	Viewport   EntityType = "VIEWPORT"
	Wipeout    EntityType = "WIPEOUT"
)

// Solid is the validated payload of a SOLID entity.
type Solid struct {
	Points     []geom.Point
	ColorIndex int
	HasColor   bool
}

// Insert places a block with its own scale, rotation and optional color.
type Insert struct {
	Name       string
	Position   geom.Point
	XScale     float64
	YScale     float64
	Rotation   float64 // degrees
	ColorIndex int
	HasColor   bool
}

// Transform returns the placement the insert applies to block geometry.
func (in *Insert) Transform() geom.Transform {
	return geom.Transform{
		Position: in.Position,
		XScale:   in.XScale,
		YScale:   in.YScale,
		Rotation: in.Rotation,
	}
}

// Entity is one record of the entities section. Solid or Insert is set for
// those types when the record validated; Err holds the reason when it did not.
type Entity struct {
	Type   EntityType
	Handle string
	Layer  string

	Solid  *Solid
	Insert *Insert

	// Raw keeps every field of the source record.
	Raw map[string]any
	Err error
}

// Block is a named group of entities referenced by INSERT.
type Block struct {
	Name     string
	Position geom.Point
	Entities []Entity
}

// Document is a parsed drawing. It is read-only once decoded.
type Document struct {
	Entities []Entity
	Blocks   map[string]Block
	Tables   map[string]any
	Header   map[string]any
}

// Counts returns the number of top-level entities per type.
func (d *Document) Counts() map[EntityType]int {
	c := make(map[EntityType]int)
	for _, e := range d.Entities {
		c[e.Type]++
	}
	return c
}

// Issue records an entity that failed validation at ingest.
type Issue struct {
	Block  string // empty for top-level entities
	Index  int
	Handle string
	Type   EntityType
	Err    error
}

func (is Issue) Error() string {
	where := fmt.Sprintf("entity %d", is.Index)
	if is.Block != "" {
		where = fmt.Sprintf("block %q entity %d", is.Block, is.Index)
	}
	if is.Handle != "" {
		where += " (" + is.Handle + ")"
	}
	return fmt.Sprintf("%s %s: %v", where, is.Type, is.Err)
}

func (is Issue) Unwrap() error {
	return is.Err
}
