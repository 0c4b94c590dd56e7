package xdf

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/tosih/xdf-exporter/pkg/models"
)

func loadSample(t *testing.T) *Definition {
	t.Helper()
	def, err := ParseFile(filepath.Join("testdata", "sample.xdf"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	return def
}

func TestParseHeader(t *testing.T) {
	def := loadSample(t)

	if def.Name != "M2.1 Test" {
		t.Errorf("Name = %q, want %q", def.Name, "M2.1 Test")
	}
	if def.Source != "sample.xdf" {
		t.Errorf("Source = %q", def.Source)
	}
	if def.Base != (BaseOffset{Offset: 0x100, Subtract: true}) {
		t.Errorf("Base = %+v", def.Base)
	}
	if got := def.Base.FileOffset(0x3D42); got != 0x3C42 {
		t.Errorf("FileOffset(0x3D42) = 0x%X, want 0x3C42", got)
	}
	if len(def.Categories) != 3 {
		t.Fatalf("got %d categories, want 3", len(def.Categories))
	}
	if name, ok := def.Category(2); !ok || name != "Idle" {
		t.Errorf("Category(2) = %q, %v", name, ok)
	}
}

func TestParseElements(t *testing.T) {
	def := loadSample(t)

	consts := def.Constants()
	if len(consts) != 1 {
		t.Fatalf("got %d constants, want 1", len(consts))
	}
	c := consts[0]
	want := models.AddressSpec{Raw: 0x3D42, Width: 16}
	if c.Title != "Rev Limit" || c.Category != "Ignition" || c.Units != "RPM" {
		t.Errorf("constant = %+v", c)
	}
	if c.Address != want {
		t.Errorf("constant address = %v, want %v", c.Address, want)
	}
	if c.Decimals != 0 || c.Formula != "X/10" {
		t.Errorf("constant decimals=%d formula=%q", c.Decimals, c.Formula)
	}
	if c.Min == nil || *c.Min != 0 || c.Max == nil || *c.Max != 8000 {
		t.Errorf("constant range = %v..%v", c.Min, c.Max)
	}

	flags := def.Flags()
	if len(flags) != 1 {
		t.Fatalf("got %d flags, want 1", len(flags))
	}
	f := flags[0]
	if f.Mask != 0x80 || f.Address.Width != 8 || f.Category != models.Uncategorized {
		t.Errorf("flag = %+v", f)
	}

	tables := def.Tables()
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}
	tbl := tables[0]
	if tbl.Title != "Ignition Timing" || tbl.Category != "Ignition" || tbl.Decimals != 1 {
		t.Errorf("table = %q %q decimals=%d", tbl.Title, tbl.Category, tbl.Decimals)
	}
	if rows, cols := tbl.Dims(); rows != 2 || cols != 4 {
		t.Errorf("Dims() = %d x %d, want 2 x 4", rows, cols)
	}
	if tbl.Z.Address == nil || !tbl.Z.Address.Signed || tbl.Z.Address.Raw != 0x2200 {
		t.Errorf("z address = %v", tbl.Z.Address)
	}
	if tbl.X.Address == nil || tbl.X.Count != 4 || tbl.X.Formula != "X*40" || tbl.X.MajorStride != 0 {
		t.Errorf("x axis = %+v", tbl.X)
	}
	if tbl.Y.Address != nil || tbl.Y.Count != 2 {
		t.Errorf("y axis = %+v", tbl.Y)
	}
	if len(tbl.Y.Labels) != 2 || tbl.Y.Labels[1] != 20.5 {
		t.Errorf("y labels = %v", tbl.Y.Labels)
	}

	patches := def.Patches()
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}
	p := patches[0]
	if p.Description != "Line one\nLine two" {
		t.Errorf("description = %q", p.Description)
	}
	if len(p.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(p.Entries))
	}
	e := p.Entries[0]
	if e.Name != "Jump" || e.Size != 2 || e.Address.Raw != 0x4100 {
		t.Errorf("entry = %+v", e)
	}
	if string(e.Applied) != "\x00\x00" || string(e.Base) != "\x12\x34" {
		t.Errorf("entry data = % X / % X", e.Applied, e.Base)
	}
}

func TestParseOrder(t *testing.T) {
	def := loadSample(t)

	var kinds []models.ElementKind
	for _, e := range def.Elements {
		kinds = append(kinds, e.Kind())
	}
	want := []models.ElementKind{
		models.ElementConstant,
		models.ElementFlag,
		models.ElementTable,
		models.ElementPatch,
	}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("element %d is %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestParseWarnings(t *testing.T) {
	def := loadSample(t)

	if n := models.Count(def.Warnings, models.KindAddressResolution); n != 1 {
		t.Errorf("got %d AddressResolution warnings, want 1: %v", n, def.Warnings)
	}
	if n := models.Count(def.Warnings, models.KindPatchMismatch); n != 1 {
		t.Errorf("got %d PatchMismatch warnings, want 1: %v", n, def.Warnings)
	}
	for _, w := range def.Warnings {
		if w.Kind == models.KindAddressResolution {
			if w.Target.Title != "Broken Table" || w.Target.Index != -1 {
				t.Errorf("warning target = %+v", w.Target)
			}
		}
	}
}

func TestParseFailures(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
	}{
		{"malformed", "<XDFFORMAT><XDFCONSTANT></XDFFORMAT>"},
		{"empty", ""},
		{"unrecognized", "<root><thing/></root>"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.name+".xdf", []byte(tc.data))
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if perr.Source != tc.name+".xdf" {
				t.Errorf("Source = %q", perr.Source)
			}
		})
	}

	_, err := Parse("x.xdf", []byte("<root><thing/></root>"))
	if !errors.Is(err, ErrNoElements) {
		t.Errorf("err = %v, want ErrNoElements", err)
	}
}

func TestParseMinimal(t *testing.T) {
	const doc = `<XDFFORMAT>
  <XDFCONSTANT>
    <name>Idle Speed</name>
    <mem>0x20</mem>
  </XDFCONSTANT>
</XDFFORMAT>`
	def, err := Parse("m21.xdf", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if def.Name != "m21" {
		t.Errorf("Name = %q, want file stem", def.Name)
	}
	c := def.Constants()
	if len(c) != 1 {
		t.Fatalf("got %d constants", len(c))
	}
	if c[0].Title != "Idle Speed" || c[0].Address.Raw != 0x20 || c[0].Address.Width != 8 {
		t.Errorf("constant = %+v", c[0])
	}
	if c[0].Decimals != 2 || c[0].Category != models.Uncategorized {
		t.Errorf("defaults = decimals %d, category %q", c[0].Decimals, c[0].Category)
	}
}

func TestParseGeometryLimits(t *testing.T) {
	const table = `<XDFFORMAT>
  <XDFCONSTANT>
    <title>Idle</title>
    <EMBEDDEDDATA mmedaddress="0x10" mmedelementsizebits="8" />
  </XDFCONSTANT>
  <XDFTABLE>
    <title>Huge</title>
    <XDFAXIS id="x">%s</XDFAXIS>
    <XDFAXIS id="z">
      <EMBEDDEDDATA mmedaddress="0x100" mmedelementsizebits="8" %s />
    </XDFAXIS>
  </XDFTABLE>
</XDFFORMAT>`
	for _, tc := range []struct {
		name  string
		xaxis string
		zattr string
		skip  bool
	}{
		{"huge-colcount", "", `mmedrowcount="2" mmedcolcount="0x4000000000000000"`, true},
		{"huge-rowcount", "", `mmedrowcount="65537" mmedcolcount="2"`, true},
		{"huge-stride", "", `mmedrowcount="2" mmedcolcount="2" mmedmajorstridebits="0x7FFFFFFFFFFFFFFF"`, true},
		{"huge-indexcount", "<indexcount>99999999999</indexcount>", `mmedrowcount="2" mmedcolcount="2"`, true},
		{"at-limit", "", `mmedrowcount="65536" mmedcolcount="2"`, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			doc := fmt.Sprintf(table, tc.xaxis, tc.zattr)
			def, err := Parse(tc.name+".xdf", []byte(doc))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(def.Constants()) != 1 {
				t.Errorf("got %d constants, want 1", len(def.Constants()))
			}
			n := models.Count(def.Warnings, models.KindElementSkipped)
			if !tc.skip {
				if len(def.Tables()) != 1 || n != 0 {
					t.Errorf("got %d tables and %d skipped warnings, want 1 and 0", len(def.Tables()), n)
				}
				return
			}
			if len(def.Tables()) != 0 {
				t.Errorf("got %d tables, want the oversized table skipped", len(def.Tables()))
			}
			if n != 1 {
				t.Errorf("got %d ElementSkipped warnings, want 1: %v", n, def.Warnings)
			}
		})
	}
}

func TestResolveStrategies(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		want models.AddressSpec
	}{
		{
			"embedded",
			`<XDFCONSTANT><EMBEDDEDDATA mmedaddress="0x10" mmedelementsizebits="16" mmedtypeflags="0x03"/></XDFCONSTANT>`,
			models.AddressSpec{Raw: 0x10, Width: 16, Signed: true, LittleEndian: true},
		},
		{
			"typeflags",
			`<XDFCONSTANT><EMBEDDEDDATA mmedtypeflags="0x02" address="0x20"/></XDFCONSTANT>`,
			models.AddressSpec{Raw: 0x20, Width: 8, Signed: true},
		},
		{
			"attribute",
			`<XDFFLAG address="48" sizebits="32"/>`,
			models.AddressSpec{Raw: 48, Width: 32},
		},
		{
			"child",
			`<XDFCONSTANT><addr>0x40</addr></XDFCONSTANT>`,
			models.AddressSpec{Raw: 0x40, Width: 8},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			n, err := ParseTree([]byte(tc.doc))
			if err != nil {
				t.Fatal(err)
			}
			got, err := Resolve(n)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tc.want {
				t.Errorf("Resolve = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		doc    string
		reason bool
	}{
		{"none", `<XDFCONSTANT><title>A</title></XDFCONSTANT>`, false},
		{"width", `<XDFCONSTANT><EMBEDDEDDATA mmedaddress="0x10" mmedelementsizebits="12"/></XDFCONSTANT>`, true},
		{"negative", `<XDFCONSTANT address="-4"/>`, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			n, err := ParseTree([]byte(tc.doc))
			if err != nil {
				t.Fatal(err)
			}
			_, err = Resolve(n)
			var aerr *AddressResolutionError
			if !errors.As(err, &aerr) {
				t.Fatalf("err = %v, want *AddressResolutionError", err)
			}
			if (aerr.Reason != "") != tc.reason {
				t.Errorf("Reason = %q", aerr.Reason)
			}
			if !tc.reason && len(aerr.Tried) != len(Strategies) {
				t.Errorf("Tried = %v", aerr.Tried)
			}
		})
	}
}

func TestBaseOffset(t *testing.T) {
	for _, tc := range []struct {
		name string
		base BaseOffset
		raw  int64
		want int64
	}{
		{"subtract", BaseOffset{Offset: 32768, Subtract: true}, 0x8000, 0},
		{"add", BaseOffset{Offset: 0x48000}, 0, 0x48000},
		{"below-base", BaseOffset{Offset: 0x100, Subtract: true}, 0x10, -0xF0},
		{"zero", BaseOffset{}, 0x1234, 0x1234},
		{"add-saturates", BaseOffset{Offset: 0x100}, math.MaxInt64, math.MaxInt64},
		{"subtract-negative-saturates", BaseOffset{Offset: -0x100, Subtract: true}, math.MaxInt64 - 1, math.MaxInt64},
		{"subtract-saturates", BaseOffset{Offset: 0x100, Subtract: true}, math.MinInt64 + 1, math.MinInt64},
		{"subtract-min-offset", BaseOffset{Offset: math.MinInt64, Subtract: true}, 0, math.MaxInt64},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.base.FileOffset(tc.raw); got != tc.want {
				t.Errorf("FileOffset(0x%X) = 0x%X, want 0x%X", tc.raw, got, tc.want)
			}
		})
	}
}
