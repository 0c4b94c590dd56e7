package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/tosih/xdf-exporter/pkg/models"
)

func sample() *models.ExtractionResult {
	z := models.AddressSpec{Raw: 0x2200, Width: 8, Signed: true}
	tbl := models.Table{
		Title:        "Ignition | Timing",
		Category:     "Ignition",
		Decimals:     1,
		DeclaredRows: 2,
		DeclaredCols: 3,
		Orientation:  models.RowMajor,
		X:            models.Axis{Role: models.AxisX, Count: 3, Decimals: 0, Values: []float64{1000, 2000, 3000}, Source: models.SourceMemory},
		Y:            models.Axis{Role: models.AxisY, Count: 2, Decimals: 1, Values: []float64{10, 20.5}, Source: models.SourceLabels},
		Z:            models.Axis{Role: models.AxisZ, Count: 6, Address: &z, Units: "deg", Source: models.SourceMemory},
	}
	tbl.SetData([][]float64{{1.25, 2, 3}, {4, 5, 6.75}})

	return &models.ExtractionResult{
		Firmware:   models.Identity{Name: "car.bin", Size: 65536, MD5: "abc", SHA256: "def"},
		Definition: models.DefinitionInfo{Name: "M2.1", BaseOffset: 0x8000, Subtract: true},
		Constants: []models.Constant{{
			Title: "Rev Limit", Category: "Engine", Units: "RPM", Decimals: 0,
			Address: models.AddressSpec{Raw: 0x3C42, Width: 16}, Raw: 6000, Value: 6000.4,
		}},
		Flags: []models.Flag{{
			Title: "Lambda", Category: "Fuel", Address: models.AddressSpec{Raw: 0x10, Width: 8}, Mask: 0x80, Set: true,
		}},
		Tables: []models.Table{tbl},
		Patches: []models.Patch{{
			Title: "Immo Off", Description: "Disables the immobilizer", Status: models.PatchPartial,
			Entries: []models.PatchEntry{{Name: "e", Size: 1, Applied: []byte{0xAA}, Current: []byte{0x01}, Match: models.MatchNone}},
		}},
		Warnings: []models.Warning{
			{Kind: models.KindZeroFill, Severity: models.SeverityWarning, Target: models.Ref{Kind: models.ElementTable, Title: "Ignition | Timing", Index: 0}, Message: "mostly zero"},
			{Kind: models.KindUnusualSize, Severity: models.SeverityInfo, Target: models.Ref{Kind: models.ElementFirmware, Index: -1}, Message: "odd size"},
		},
	}
}

func TestFormatValue(t *testing.T) {
	for _, tc := range []struct {
		v        float64
		decimals int
		want     string
	}{
		{6000.4, 0, "6000"},
		{2.5, 0, "3"},
		{1.234, 2, "1.23"},
		{-0.5, 1, "-0.5"},
		{3, 3, "3.000"},
	} {
		if got := FormatValue(tc.v, tc.decimals); got != tc.want {
			t.Errorf("FormatValue(%v, %d) = %q, want %q", tc.v, tc.decimals, got, tc.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"txt": Text, "TEXT": Text, ".json": JSON, "markdown": Markdown, "md": Markdown, "csv": CSV,
	} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat accepted xml")
	}
	if f, err := FormatFromPath("out/report.MD"); err != nil || f != Markdown {
		t.Errorf("FormatFromPath = %q, %v", f, err)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sample(), Options{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"SOURCE FILE: car.bin",
		"SOURCE DEFINITION: M2.1",
		"MD5 Checksum: abc",
		"SCALAR: Rev Limit",
		"6000 RPM",
		"Set\n",
		"TABLE: Ignition | Timing",
		"Values: [1000, 2000, 3000]",
		"Row 1 (20.5): [4.0, 5.0, 6.8]",
		"Min: 1.2 deg",
		"WARNING [ZeroFill]: mostly zero",
		"Found 1 of 1 tables",
		"PARTIALLY APPLIED PATCHES",
		"[INFO] UnusualSize",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output does not contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Exported:") {
		t.Error("zero timestamp was written")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := WriteJSON(&buf, sample(), Options{Generated: ts}); err != nil {
		t.Fatal(err)
	}
	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Metadata.BaseOffset != "-0x8000" || doc.Metadata.Exported == nil {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if doc.Statistics.Tables != 1 || doc.Statistics.Warnings != 2 {
		t.Errorf("statistics = %+v", doc.Statistics)
	}
	if doc.Scalars[0].Value != 6000 || doc.Scalars[0].Address != "0x3C42" {
		t.Errorf("scalar = %+v", doc.Scalars[0])
	}
	if doc.Flags[0].Mask != "0x80" || !doc.Flags[0].IsSet {
		t.Errorf("flag = %+v", doc.Flags[0])
	}
	tbl := doc.Tables[0]
	if tbl.Data[0][0] != 1.3 || tbl.Data[1][2] != 6.8 {
		t.Errorf("data = %v", tbl.Data)
	}
	if !tbl.Format.Signed || tbl.Format.Bits != 8 || tbl.Dimensions.Cols != 3 {
		t.Errorf("format = %+v, dimensions = %+v", tbl.Format, tbl.Dimensions)
	}
	if addr := tbl.Axes["z"].Address; addr == nil || *addr != "0x2200" {
		t.Errorf("z address = %v", addr)
	}
	if tbl.Axes["y"].Source != "labels" {
		t.Errorf("y source = %q", tbl.Axes["y"].Source)
	}
	if p := doc.Patches[0]; p.Status != "partial" || p.Entries[0].Current != "01" {
		t.Errorf("patch = %+v", p)
	}
	if len(doc.Warnings) != 2 || doc.Warnings[1].Severity != models.SeverityInfo {
		t.Errorf("warnings = %+v", doc.Warnings)
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, sample(), Options{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"| Rev Limit | 6000 | RPM | Engine | `0x3C42` |",
		"| Lambda | Set | Fuel | `0x0010` |",
		`### 1. Ignition | Timing`,
		"| Y \\ X | 1000 | 2000 | 3000 |",
		"| 20.5 | 4.0 | 5.0 | 6.8 |",
		"> **ZeroFill:** mostly zero",
		"- Partially Applied: 1",
		"| info | UnusualSize |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output does not contain %q:\n%s", want, out)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	res := sample()
	res.Tables = append(res.Tables, res.Tables[0])

	var buf bytes.Buffer
	if err := WriteCSV(&buf, res); err != nil {
		t.Fatal(err)
	}
	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	var blocks, rows int
	for _, rec := range recs {
		switch {
		case strings.HasPrefix(rec[0], "# Ignition"):
			blocks++
		case rec[0] == "10.0" || rec[0] == "20.5":
			rows++
			if len(rec) != 4 {
				t.Errorf("row %v has %d fields, want 4", rec, len(rec))
			}
		}
	}
	if blocks != 2 || rows != 4 {
		t.Errorf("got %d blocks and %d rows, want 2 and 4", blocks, rows)
	}
}

func TestTablesToCSV(t *testing.T) {
	pterm.DisableOutput()
	defer pterm.EnableOutput()

	res := sample()
	other := res.Tables[0]
	other.Title = "Fuel Map"
	res.Tables = append(res.Tables, other, res.Tables[0])

	dir := t.TempDir()
	paths, err := TablesToCSV(dir, res, "timing")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "ignition_timing.csv"),
		filepath.Join(dir, "ignition_timing_2.csv"),
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
		if _, err := os.Stat(want[i]); err != nil {
			t.Error(err)
		}
	}
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out.txt", "out.json", "out.md", "out.csv"} {
		path := filepath.Join(dir, name)
		if err := ToFile(path, sample(), Options{}); err != nil {
			t.Errorf("ToFile(%s): %v", name, err)
			continue
		}
		if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
			t.Errorf("%s not written", name)
		}
	}
	if err := ToFile(filepath.Join(dir, "out.xml"), sample(), Options{}); err == nil {
		t.Error("ToFile accepted an unknown extension")
	}
}

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("source_definition")) {
		t.Errorf("schema does not describe metadata: %s", data)
	}
}
