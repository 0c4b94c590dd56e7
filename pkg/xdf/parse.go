package xdf

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tosih/xdf-exporter/pkg/models"
)

// ErrNoElements is wrapped by a ParseError when a document holds no
// recognizable definition element of any kind.
var ErrNoElements = errors.New("no recognizable definition elements")

// ErrGeometry is returned for an axis whose counts or strides exceed
// MaxCount or MaxStrideBits.
var ErrGeometry = errors.New("axis geometry out of bounds")

// Limits on declared axis geometry. They keep a table's cell count and
// byte span representable whatever the definition claims.
const (
	MaxCount      = 1 << 16
	MaxStrideBits = 1 << 24
)

const (
	tagHeader   = "XDFHEADER"
	tagConstant = "XDFCONSTANT"
	tagFlag     = "XDFFLAG"
	tagTable    = "XDFTABLE"
	tagPatch    = "XDFPATCH"
	tagAxis     = "XDFAXIS"
	tagEntry    = "XDFPATCHENTRY"

	defaultDecimals = 2
)

// ParseFile parses the definition at path.
func ParseFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Err: err}
	}
	return Parse(filepath.Base(path), data)
}

// Parse parses definition bytes. source names the definition when the
// document carries no title. Parse fails only on malformed XML or when no
// element of any kind is recognizable; otherwise it returns everything it
// could build, with a warning for every element it skipped.
func Parse(source string, data []byte) (*Definition, error) {
	root, err := ParseTree(data)
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	p := &parser{
		def: &Definition{Source: source},
	}
	doc := &Node{Children: []*Node{root}}

	recognized := false
	doc.walk(func(n *Node) bool {
		switch n.Name {
		case tagHeader:
			recognized = true
			return false
		case tagConstant, tagFlag, tagTable, tagPatch:
			recognized = true
		}
		return true
	})
	if !recognized {
		return nil, &ParseError{Source: source, Err: ErrNoElements}
	}

	p.header(doc)
	p.categories(doc)
	doc.walk(func(n *Node) bool {
		switch n.Name {
		case tagConstant:
			p.add(models.ElementConstant, n, func() (Element, error) { return p.constant(n) })
		case tagFlag:
			p.add(models.ElementFlag, n, func() (Element, error) { return p.flag(n) })
		case tagTable:
			p.add(models.ElementTable, n, func() (Element, error) { return p.table(n) })
		case tagPatch:
			p.add(models.ElementPatch, n, func() (Element, error) { return p.patch(n) })
		case tagHeader:
			return false
		default:
			return true
		}
		return false
	})
	return p.def, nil
}

type parser struct {
	def *Definition
	ref models.Ref // element being parsed
}

func (p *parser) warn(kind models.WarningKind, format string, args ...interface{}) {
	p.def.Warnings = append(p.def.Warnings, models.Warning{
		Kind:     kind,
		Severity: models.SeverityWarning,
		Target:   p.ref,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (p *parser) add(kind models.ElementKind, n *Node, build func() (Element, error)) {
	p.ref = models.Ref{Kind: kind, Title: title(n), Index: -1}

	elem, err := build()
	if err != nil {
		var aerr *AddressResolutionError
		if errors.As(err, &aerr) {
			p.warn(models.KindAddressResolution, "skipped: %v", err)
			return
		}
		p.warn(models.KindElementSkipped, "skipped: %v", err)
		return
	}
	p.def.Elements = append(p.def.Elements, elem)
}

func lookupSelf(n *Node, tag string) *Node {
	if n.Name == tag {
		return n
	}
	return n.Find(tag)
}

func (p *parser) header(doc *Node) {
	h := lookupSelf(doc, tagHeader)
	p.def.Name = h.LookupText("deftitle", "title", "name")
	if p.def.Name == "" {
		p.def.Name = strings.TrimSuffix(p.def.Source, filepath.Ext(p.def.Source))
	}

	scope := h
	if scope == nil {
		scope = doc
	}
	if b := scope.Find("BASEOFFSET"); b != nil {
		if off, ok := attrInt(b, "offset"); ok {
			p.def.Base.Offset = off
		}
		if sub, ok := b.Attr("subtract"); ok {
			p.def.Base.Subtract = sub == "1" || strings.EqualFold(sub, "true")
		}
	}
	if p.def.Base.Offset == 0 {
		if off, ok := textInt(scope, "baseoffset"); ok {
			p.def.Base.Offset = off
		}
	}
}

func (p *parser) categories(doc *Node) {
	for _, c := range doc.FindAll("CATEGORY") {
		id, ok := attrInt(c, "index")
		if !ok {
			continue
		}
		name, ok := c.Attr("name")
		if !ok {
			name = fmt.Sprintf("Category %d", id)
		}
		p.def.Categories = append(p.def.Categories, Category{ID: id, Name: name})
	}
}

func (p *parser) category(n *Node) string {
	id, ok := attrInt(n.Lookup("CATEGORYMEM"), "category")
	if !ok {
		return models.Uncategorized
	}
	if name, ok := p.def.Category(id); ok {
		return name
	}
	return models.Uncategorized
}

func title(n *Node) string {
	if s := n.LookupText("title", "name", "label", "desc"); s != "" {
		return s
	}
	if s, ok := n.Attr("name"); ok {
		return s
	}
	return "Unknown"
}

// decimals reads the element's own decimalpl; nested axes carry theirs.
func decimals(n *Node, def int) int {
	c := n.Child("decimalpl")
	if c == nil {
		return def
	}
	if v, err := parseInt(c.Text); err == nil && v >= 0 {
		return int(v)
	}
	return def
}

func equation(n *Node) string {
	s, _ := n.Lookup("MATH").Attr("equation")
	return s
}

func (p *parser) constant(n *Node) (*Constant, error) {
	spec, err := Resolve(n)
	if err != nil {
		return nil, err
	}
	return &Constant{
		Title:    title(n),
		Category: p.category(n),
		Units:    n.LookupText("units"),
		Decimals: decimals(n, defaultDecimals),
		Address:  spec,
		Formula:  equation(n),
		Min:      textFloat(n, "min"),
		Max:      textFloat(n, "max"),
	}, nil
}

func (p *parser) flag(n *Node) (*Flag, error) {
	spec, err := Resolve(n)
	if err != nil {
		return nil, err
	}
	spec.Width = 8
	spec.Signed = false

	mask := int64(0x01)
	if m, ok := textInt(n, "mask"); ok {
		mask = m
	}
	if mask <= 0 || mask > 0xff {
		return nil, fmt.Errorf("mask 0x%X does not select a bit of an 8-bit value", mask)
	}
	return &Flag{
		Title:    title(n),
		Category: p.category(n),
		Address:  spec,
		Mask:     uint8(mask),
	}, nil
}

func (p *parser) table(n *Node) (*Table, error) {
	t := &Table{
		Title:    title(n),
		Category: p.category(n),
		Decimals: decimals(n, defaultDecimals),
	}

	var zerr error
	seen := make(map[models.AxisRole]bool)
	for _, a := range n.FindAll(tagAxis) {
		id, _ := a.Attr("id")
		role := models.AxisRole(strings.ToLower(id))
		switch role {
		case models.AxisX, models.AxisY, models.AxisZ:
		default:
			p.warn(models.KindElementSkipped, "ignored axis with unknown id %q", id)
			continue
		}
		if seen[role] {
			p.warn(models.KindElementSkipped, "ignored duplicate %s axis", role)
			continue
		}
		seen[role] = true

		axis, err := p.axis(a, role, t.Decimals)
		switch role {
		case models.AxisX:
			t.X = axis
		case models.AxisY:
			t.Y = axis
		case models.AxisZ:
			t.Z = axis
			zerr = err
		}
		if errors.Is(err, ErrGeometry) {
			return nil, err
		}
		if err != nil && role != models.AxisZ {
			var aerr *AddressResolutionError
			if errors.As(err, &aerr) && aerr.Reason != "" {
				p.warn(models.KindAddressResolution, "%s axis: %v", role, err)
			}
		}
	}

	switch {
	case !seen[models.AxisZ]:
		return nil, fmt.Errorf("table has no z axis")
	case zerr != nil:
		return nil, zerr
	}
	t.Decimals = t.Z.Decimals
	t.Z.Rows, t.Z.Cols = t.Dims()
	t.Z.Count = t.Z.Rows * t.Z.Cols
	return t, nil
}

func (p *parser) axis(a *Node, role models.AxisRole, tableDecimals int) (Axis, error) {
	e := embedded(a)
	ax := Axis{
		Role:        role,
		Units:       a.LookupText("units"),
		Decimals:    decimals(a, tableDecimals),
		Formula:     equation(a),
		ColumnMajor: typeFlags(a)&FlagColumnMajor != 0,
	}
	for _, f := range []struct {
		v     *int
		name  string
		limit int64
	}{
		{&ax.Rows, "mmedrowcount", MaxCount},
		{&ax.Cols, "mmedcolcount", MaxCount},
		{&ax.MajorStride, "mmedmajorstridebits", MaxStrideBits},
		{&ax.MinorStride, "mmedminorstridebits", MaxStrideBits},
	} {
		v, ok := attrInt(e, f.name)
		if !ok || v <= 0 {
			continue
		}
		if v > f.limit {
			return ax, fmt.Errorf("%s axis %s %d exceeds %d: %w", role, f.name, v, f.limit, ErrGeometry)
		}
		*f.v = int(v)
	}
	for _, l := range a.FindAll("LABEL") {
		if v, ok := attrFloat(l, "value"); ok {
			ax.Labels = append(ax.Labels, v)
		}
	}
	if v, ok := textInt(a, "indexcount"); ok && v > 0 {
		if v > MaxCount {
			return ax, fmt.Errorf("%s axis indexcount %d exceeds %d: %w", role, v, MaxCount, ErrGeometry)
		}
		ax.Count = int(v)
	}

	spec, err := Resolve(a)
	if err == nil {
		ax.Address = &spec
	}
	if ax.Count == 0 && len(ax.Labels) > 0 {
		ax.Count = len(ax.Labels)
	}
	return ax, err
}

func (p *parser) patch(n *Node) (*Patch, error) {
	pt := &Patch{
		Title:       title(n),
		Category:    p.category(n),
		Description: normalizeNewlines(n.LookupText("description")),
	}
	for i, e := range n.FindAll(tagEntry) {
		entry, err := patchEntry(e)
		if err != nil {
			p.warn(models.KindPatchMismatch, "entry %d skipped: %v", i, err)
			continue
		}
		pt.Entries = append(pt.Entries, entry)
	}
	if len(pt.Entries) == 0 {
		return nil, fmt.Errorf("patch has no usable %s", tagEntry)
	}
	return pt, nil
}

func patchEntry(e *Node) (PatchEntry, error) {
	spec, err := Resolve(e)
	if err != nil {
		return PatchEntry{}, err
	}
	spec.Width = 8
	spec.Signed = false

	name, ok := e.Attr("name")
	if !ok {
		name = "Unknown"
	}
	applied, err := hexAttr(e, "patchdata")
	if err != nil {
		return PatchEntry{}, err
	}
	base, err := hexAttr(e, "basedata")
	if err != nil {
		return PatchEntry{}, err
	}
	if len(applied) == 0 && len(base) == 0 {
		return PatchEntry{}, fmt.Errorf("entry %q has neither patch nor base data", name)
	}

	size := 0
	if v, ok := attrInt(e, "datasize"); ok {
		size = int(v)
	}
	if size == 0 {
		size = len(applied)
		if size == 0 {
			size = len(base)
		}
	}
	for _, pat := range [][]byte{applied, base} {
		if len(pat) != 0 && len(pat) != size {
			return PatchEntry{}, fmt.Errorf("entry %q: pattern of %d bytes does not match datasize %d", name, len(pat), size)
		}
	}
	return PatchEntry{
		Name:    name,
		Address: spec,
		Size:    size,
		Applied: applied,
		Base:    base,
	}, nil
}

func hexAttr(n *Node, name string) ([]byte, error) {
	s, ok := n.Attr(name)
	if !ok {
		return nil, nil
	}
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
