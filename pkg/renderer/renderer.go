package renderer

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/tosih/xdf-exporter/pkg/export"
	"github.com/tosih/xdf-exporter/pkg/models"
)

// Display modes of a table matrix.
const (
	ModeValues  = "values"
	ModeHeatmap = "heatmap"
	ModeSymbols = "symbols"
)

// RenderTable displays a table in a box titled with its geometry and range.
func RenderTable(t *models.Table, displayMode string) {
	title := fmt.Sprintf("%s | %dx%d | Range: %s-%s %s",
		t.Title, t.Rows(), t.Cols(),
		export.FormatValue(t.Stats.Min, t.Decimals), export.FormatValue(t.Stats.Max, t.Decimals), t.Z.Units)
	if t.Z.Address != nil {
		title = fmt.Sprintf("%s | Address: 0x%04X", title, t.Z.Address.Raw)
	}
	pterm.DefaultBox.WithTitle(title).WithTitleTopLeft().Println(BuildTableString(t, displayMode))
}

// BuildTableString creates a formatted string representation of the table.
// Column headers are X-axis values and row headers Y-axis values when
// the table has them, indices otherwise.
func BuildTableString(t *models.Table, displayMode string) string {
	var result strings.Builder
	lo, hi := t.Stats.Min, t.Stats.Max

	width := 4
	if displayMode == ModeValues {
		width = cellWidth(t)
	}
	rowLabels := make([]string, t.Rows())
	labelWidth := 5
	for i := range rowLabels {
		rowLabels[i] = axisLabel(&t.Y, i)
		if len(rowLabels[i]) > labelWidth {
			labelWidth = len(rowLabels[i])
		}
	}

	// Header
	result.WriteString(fmt.Sprintf("%*s |", labelWidth, axisName(&t.Y, "Y")+"\\"+axisName(&t.X, "X")))
	for j := 0; j < t.Cols(); j++ {
		result.WriteString(fmt.Sprintf("%*s", width, truncateLabel(axisLabel(&t.X, j), width-1)))
	}
	result.WriteString("\n")
	result.WriteString(strings.Repeat(" ", labelWidth) + " |" + strings.Repeat("-", t.Cols()*width) + "\n")

	// Data rows
	for i, row := range t.Data {
		result.WriteString(fmt.Sprintf("%*s |", labelWidth, rowLabels[i]))
		for _, value := range row {
			switch displayMode {
			case ModeValues:
				result.WriteString(getColorStyle(value, lo, hi).Sprintf("%*s", width, export.FormatValue(value, t.Decimals)))
			case ModeHeatmap:
				result.WriteString(getHeatmapBlock(value, lo, hi) + strings.Repeat(" ", width-2))
			default:
				symbol := getSymbolForValue(value, lo, hi)
				result.WriteString(strings.Repeat(symbol, width))
			}
		}
		result.WriteString("\n")
	}

	// Legend
	switch displayMode {
	case ModeHeatmap:
		result.WriteString("\n" + getHeatmapLegend())
	case ModeSymbols:
		result.WriteString("\nLegend: ")
		result.WriteString(pterm.FgCyan.Sprint("░") + " Low  ")
		result.WriteString(pterm.FgGreen.Sprint("▒") + " Med  ")
		result.WriteString(pterm.FgYellow.Sprint("▓") + " High  ")
		result.WriteString(pterm.FgRed.Sprint("█") + " Max")
	}
	return result.String()
}

func axisName(a *models.Axis, def string) string {
	if a.Units != "" {
		return a.Units
	}
	return def
}

func axisLabel(a *models.Axis, i int) string {
	if i < len(a.Values) {
		return export.FormatValue(a.Values[i], a.Decimals)
	}
	return fmt.Sprint(i)
}

func truncateLabel(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func cellWidth(t *models.Table) int {
	w := 6
	for _, row := range t.Data {
		for _, v := range row {
			if n := len(export.FormatValue(v, t.Decimals)) + 1; n > w {
				w = n
			}
		}
	}
	return w
}

func normalize(value, min, max float64) float64 {
	return (value - min) / (max - min)
}

func getHeatmapBlock(value, min, max float64) string {
	if max == min {
		return pterm.BgGray.Sprint("  ")
	}
	switch n := normalize(value, min, max); {
	case n < 0.2:
		return pterm.NewStyle(pterm.BgBlue, pterm.FgWhite).Sprint("▄▄")
	case n < 0.4:
		return pterm.NewStyle(pterm.BgCyan, pterm.FgBlack).Sprint("▄▄")
	case n < 0.6:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgBlack).Sprint("▄▄")
	case n < 0.8:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack).Sprint("▄▄")
	default:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite).Sprint("▄▄")
	}
}

func getHeatmapLegend() string {
	var result strings.Builder
	result.WriteString("Heatmap: ")
	result.WriteString(pterm.NewStyle(pterm.BgBlue, pterm.FgWhite).Sprint("▄▄") + " Very Low  ")
	result.WriteString(pterm.NewStyle(pterm.BgCyan, pterm.FgBlack).Sprint("▄▄") + " Low  ")
	result.WriteString(pterm.NewStyle(pterm.BgGreen, pterm.FgBlack).Sprint("▄▄") + " Medium  ")
	result.WriteString(pterm.NewStyle(pterm.BgYellow, pterm.FgBlack).Sprint("▄▄") + " High  ")
	result.WriteString(pterm.NewStyle(pterm.BgRed, pterm.FgWhite).Sprint("▄▄") + " Very High")
	return result.String()
}

func getSymbolForValue(value, min, max float64) string {
	if max == min {
		return pterm.FgGray.Sprint("·")
	}
	switch n := normalize(value, min, max); {
	case n < 0.25:
		return pterm.FgCyan.Sprint("░")
	case n < 0.5:
		return pterm.FgGreen.Sprint("▒")
	case n < 0.75:
		return pterm.FgYellow.Sprint("▓")
	default:
		return pterm.FgRed.Sprint("█")
	}
}

func getColorStyle(value, min, max float64) *pterm.Style {
	if max == min {
		return pterm.NewStyle(pterm.FgGray)
	}
	switch n := normalize(value, min, max); {
	case n < 0.25:
		return pterm.NewStyle(pterm.FgCyan)
	case n < 0.5:
		return pterm.NewStyle(pterm.FgGreen)
	case n < 0.75:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgRed)
	}
}

// ListTables displays the tables of a result in a summary table.
func ListTables(res *models.ExtractionResult) {
	pterm.DefaultHeader.WithFullWidth().Println("Tables in " + res.Definition.Name)

	data := [][]string{
		{"#", "Title", "Category", "Address", "Size", "Unit", "Range", "Warnings"},
	}
	for i, t := range res.Tables {
		addr := "-"
		if t.Z.Address != nil {
			addr = fmt.Sprintf("0x%04X", t.Z.Address.Raw)
		}
		n := 0
		for _, w := range res.Warnings {
			if w.Target.Kind == models.ElementTable && w.Target.Index == i {
				n++
			}
		}
		data = append(data, []string{
			fmt.Sprint(i),
			t.Title,
			t.Category,
			addr,
			fmt.Sprintf("%dx%d", t.Rows(), t.Cols()),
			t.Z.Units,
			fmt.Sprintf("%s-%s", export.FormatValue(t.Stats.Min, t.Decimals), export.FormatValue(t.Stats.Max, t.Decimals)),
			fmt.Sprint(n),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
