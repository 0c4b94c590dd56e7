package renderer

import (
	"os"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/tosih/xdf-exporter/pkg/models"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	pterm.DisableOutput()
	os.Exit(m.Run())
}

func sampleTable() *models.Table {
	t := &models.Table{
		Title:    "Fuel",
		Decimals: 1,
		X:        models.Axis{Role: models.AxisX, Units: "RPM", Values: []float64{800, 1600, 2400}},
		Y:        models.Axis{Role: models.AxisY, Values: []float64{10, 20}},
		Z:        models.Axis{Role: models.AxisZ, Units: "ms"},
	}
	t.SetData([][]float64{{1, 2, 3}, {4, 5, 6.5}})
	return t
}

func TestBuildTableStringValues(t *testing.T) {
	out := BuildTableString(sampleTable(), ModeValues)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	for _, want := range []string{"800", "1600", "2400"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("header %q missing %q", lines[0], want)
		}
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[3]), "20") || !strings.Contains(lines[3], "6.5") {
		t.Errorf("last row = %q", lines[3])
	}
}

func TestBuildTableStringModes(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{ModeHeatmap, "Heatmap:"},
		{ModeSymbols, "Legend:"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			out := BuildTableString(sampleTable(), tt.mode)
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestBuildTableStringIndexHeaders(t *testing.T) {
	tbl := &models.Table{Title: "Bare"}
	tbl.SetData([][]float64{{7, 7}})
	out := BuildTableString(tbl, ModeSymbols)
	if !strings.Contains(out, "·") {
		t.Errorf("uniform table should use the flat symbol:\n%s", out)
	}
	header := strings.SplitN(out, "\n", 2)[0]
	if !strings.Contains(header, "0") || !strings.Contains(header, "1") {
		t.Errorf("header %q should fall back to indices", header)
	}
}

func TestSymbolForValue(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "░"},
		{30, "▒"},
		{60, "▓"},
		{100, "█"},
	}
	for _, tt := range tests {
		if got := getSymbolForValue(tt.value, 0, 100); !strings.Contains(got, tt.want) {
			t.Errorf("getSymbolForValue(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("# Title\n\nSome *text*.\n", 40)
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "text") {
		t.Errorf("rendered output missing content:\n%s", out)
	}
}

func TestShowResultDoesNotPanic(t *testing.T) {
	res := &models.ExtractionResult{
		Definition: models.DefinitionInfo{Name: "Test"},
		Constants:  []models.Constant{{Title: "C", Value: 1}},
		Flags:      []models.Flag{{Title: "F", Set: true}},
		Tables:     []models.Table{*sampleTable()},
		Patches: []models.Patch{{
			Title:   "P",
			Status:  models.PatchApplied,
			Entries: []models.PatchEntry{{Name: "E", Current: []byte{1, 2}, Match: models.MatchApplied}},
		}},
		Warnings: []models.Warning{
			{Kind: models.KindZeroFill, Severity: models.SeverityError},
			{Kind: models.KindUniform, Severity: models.SeverityWarning},
			{Kind: models.KindUnusualSize, Severity: models.SeverityInfo},
		},
	}
	ShowResult(res, ModeValues)
	ListTables(res)
}
