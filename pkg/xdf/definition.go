// Package xdf parses XDF calibration definitions.
//
// A definition maps named parameters (constants, flags, tables and
// patches) to addresses, encodings and conversion formulas. Several
// structural dialects exist in the wild; the parser tolerates missing
// sections and unknown attributes, and skips individual elements it
// cannot build, recording a warning for each.
package xdf

import (
	"fmt"

	"github.com/tosih/xdf-exporter/pkg/models"
)

// Element is one of *Constant, *Flag, *Table or *Patch.
type Element interface {
	Kind() models.ElementKind
	Name() string
	isElement()
}

// Category is a named element group.
type Category struct {
	ID   int64
	Name string
}

// Definition is a parsed XDF definition.
type Definition struct {
	Name       string
	Source     string
	Base       BaseOffset
	Categories []Category

	// Elements holds every element in declaration order.
	Elements []Element

	// Warnings holds elements skipped while parsing.
	Warnings []models.Warning
}

// Info returns the definition identity carried by extraction results.
func (d *Definition) Info() models.DefinitionInfo {
	return models.DefinitionInfo{
		Name:       d.Name,
		Source:     d.Source,
		BaseOffset: d.Base.Offset,
		Subtract:   d.Base.Subtract,
	}
}

// Constants returns the constants in declaration order.
func (d *Definition) Constants() []*Constant {
	var out []*Constant
	for _, e := range d.Elements {
		if c, ok := e.(*Constant); ok {
			out = append(out, c)
		}
	}
	return out
}

// Flags returns the flags in declaration order.
func (d *Definition) Flags() []*Flag {
	var out []*Flag
	for _, e := range d.Elements {
		if f, ok := e.(*Flag); ok {
			out = append(out, f)
		}
	}
	return out
}

// Tables returns the tables in declaration order.
func (d *Definition) Tables() []*Table {
	var out []*Table
	for _, e := range d.Elements {
		if t, ok := e.(*Table); ok {
			out = append(out, t)
		}
	}
	return out
}

// Patches returns the patches in declaration order.
func (d *Definition) Patches() []*Patch {
	var out []*Patch
	for _, e := range d.Elements {
		if p, ok := e.(*Patch); ok {
			out = append(out, p)
		}
	}
	return out
}

// Category returns the name of the category with the given id.
func (d *Definition) Category(id int64) (string, bool) {
	for _, c := range d.Categories {
		if c.ID == id {
			return c.Name, true
		}
	}
	return "", false
}

// Constant is a scalar parameter.
type Constant struct {
	Title    string
	Category string
	Units    string
	Decimals int
	Address  models.AddressSpec
	Formula  string
	Min, Max *float64
}

// Flag is a single-bit parameter tested against an 8-bit value.
type Flag struct {
	Title    string
	Category string
	Address  models.AddressSpec
	Mask     uint8
}

// Axis describes one table axis. X and Y axes are label sequences of
// Count elements; the Z axis is the Rows x Cols data matrix.
type Axis struct {
	Role     models.AxisRole
	Address  *models.AddressSpec
	Count    int
	Rows     int
	Cols     int
	Formula  string
	Units    string
	Decimals int
	Labels   []float64

	// MajorStride and MinorStride, in bits, override the element width as
	// the step between rows (major) and between cells (minor) when non-zero.
	MajorStride int
	MinorStride int

	ColumnMajor bool
}

// Present reports whether the axis was declared at all.
func (a *Axis) Present() bool {
	return a.Address != nil || len(a.Labels) > 0 || a.Count > 0
}

// Table is a lookup table made of two label axes and a data matrix.
type Table struct {
	Title    string
	Category string
	Decimals int
	X, Y, Z  Axis
}

// Dims returns the declared matrix dimensions. Z row and column counts
// take precedence; Y and X counts are the fallback.
func (t *Table) Dims() (rows, cols int) {
	rows, cols = t.Z.Rows, t.Z.Cols
	if rows <= 1 && cols <= 1 {
		if t.Y.Count > 0 {
			rows = t.Y.Count
		}
		if t.X.Count > 0 {
			cols = t.X.Count
		}
	}
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return rows, cols
}

// PatchEntry is one comparison point of a patch.
type PatchEntry struct {
	Name    string
	Address models.AddressSpec
	Size    int
	Applied []byte
	Base    []byte
}

// Patch is an optional binary modification.
type Patch struct {
	Title       string
	Category    string
	Description string
	Entries     []PatchEntry
}

func (*Constant) Kind() models.ElementKind { return models.ElementConstant }
func (*Flag) Kind() models.ElementKind     { return models.ElementFlag }
func (*Table) Kind() models.ElementKind    { return models.ElementTable }
func (*Patch) Kind() models.ElementKind    { return models.ElementPatch }

func (c *Constant) Name() string { return c.Title }
func (f *Flag) Name() string     { return f.Title }
func (t *Table) Name() string    { return t.Title }
func (p *Patch) Name() string    { return p.Title }

func (*Constant) isElement() {}
func (*Flag) isElement()     {}
func (*Table) isElement()    {}
func (*Patch) isElement()    {}

// ParseError is the fatal DefinitionParseError.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("xdf: could not parse definition %q: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
