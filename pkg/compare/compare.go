package compare

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/tosih/xdf-exporter/pkg/export"
	"github.com/tosih/xdf-exporter/pkg/models"
)

// ValueChange is a scalar whose value differs between two results.
type ValueChange struct {
	Title    string
	Units    string
	Decimals int
	Old, New float64
}

// FlagChange is a flag whose state differs between two results.
type FlagChange struct {
	Title    string
	Old, New bool
}

// PatchChange is a patch whose status differs between two results.
type PatchChange struct {
	Title    string
	Old, New models.PatchStatus
}

// TableDiff holds the cell differences of one table. Diff is nil when the
// two tables were read with different shapes.
type TableDiff struct {
	Title       string
	Units       string
	Decimals    int
	Diff        [][]float64
	Shape       [2][2]int
	Changed     int
	Total       int
	Mean        float64
	MaxIncrease float64
	MaxDecrease float64
}

// Mismatched reports whether the tables could not be compared cell by cell.
func (d *TableDiff) Mismatched() bool { return d.Diff == nil }

// Report is the difference between two extraction results of the same
// definition. Elements present in only one result are listed by kind and
// title, with " #n" added for the n-th repeat of a title.
type Report struct {
	Constants []ValueChange
	Flags     []FlagChange
	Tables    []TableDiff
	Patches   []PatchChange
	OnlyA     []string
	OnlyB     []string
}

// Empty reports whether the two results hold identical values.
func (r *Report) Empty() bool {
	return len(r.Constants) == 0 && len(r.Flags) == 0 && len(r.Tables) == 0 &&
		len(r.Patches) == 0 && len(r.OnlyA) == 0 && len(r.OnlyB) == 0
}

// Diff compares b against a. Elements are matched by kind, title and
// occurrence: the second "Idle" of a matches the second "Idle" of b, and is
// reported as "Idle #2".
func Diff(a, b *models.ExtractionResult) *Report {
	r := &Report{}

	pair(r, "scalar", a.Constants, b.Constants, func(c *models.Constant) string { return c.Title },
		func(name string, c, o *models.Constant) {
			if o.Value != c.Value {
				r.Constants = append(r.Constants, ValueChange{
					Title: name, Units: c.Units, Decimals: c.Decimals, Old: c.Value, New: o.Value,
				})
			}
		})
	pair(r, "flag", a.Flags, b.Flags, func(f *models.Flag) string { return f.Title },
		func(name string, f, o *models.Flag) {
			if o.Set != f.Set {
				r.Flags = append(r.Flags, FlagChange{Title: name, Old: f.Set, New: o.Set})
			}
		})
	pair(r, "table", a.Tables, b.Tables, func(t *models.Table) string { return t.Title },
		func(name string, t, o *models.Table) {
			if d := compareTable(t, o); d.Mismatched() || d.Changed > 0 {
				d.Title = name
				r.Tables = append(r.Tables, d)
			}
		})
	pair(r, "patch", a.Patches, b.Patches, func(p *models.Patch) string { return p.Title },
		func(name string, p, o *models.Patch) {
			if o.Status != p.Status {
				r.Patches = append(r.Patches, PatchChange{Title: name, Old: p.Status, New: o.Status})
			}
		})
	return r
}

// occurrence identifies the n-th element (from 1) carrying a title.
type occurrence struct {
	title string
	n     int
}

func (o occurrence) String() string {
	if o.n > 1 {
		return fmt.Sprintf("%s #%d", o.title, o.n)
	}
	return o.title
}

type keyed[T any] struct {
	key  occurrence
	item *T
}

func occurrences[T any](items []T, title func(*T) string) []keyed[T] {
	count := make(map[string]int)
	out := make([]keyed[T], len(items))
	for i := range items {
		t := title(&items[i])
		count[t]++
		out[i] = keyed[T]{key: occurrence{title: t, n: count[t]}, item: &items[i]}
	}
	return out
}

// pair matches the elements of a and b of one kind, calls both for every
// matched pair and records the unmatched ones in r.
func pair[T any](r *Report, kind string, a, b []T, title func(*T) string, both func(name string, x, y *T)) {
	bs := occurrences(b, title)
	rest := make(map[occurrence]*T, len(bs))
	for _, k := range bs {
		rest[k.key] = k.item
	}
	for _, k := range occurrences(a, title) {
		o, ok := rest[k.key]
		if !ok {
			r.OnlyA = append(r.OnlyA, kind+" "+k.key.String())
			continue
		}
		delete(rest, k.key)
		both(k.key.String(), k.item, o)
	}
	for _, k := range bs {
		if _, ok := rest[k.key]; ok {
			r.OnlyB = append(r.OnlyB, kind+" "+k.key.String())
		}
	}
}

func compareTable(a, b *models.Table) TableDiff {
	d := TableDiff{
		Title:    a.Title,
		Units:    a.Z.Units,
		Decimals: a.Decimals,
		Shape:    [2][2]int{{a.Rows(), a.Cols()}, {b.Rows(), b.Cols()}},
	}
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return d
	}
	d.Diff = compareTableData(a.Data, b.Data)

	var total float64
	for _, row := range d.Diff {
		for _, v := range row {
			d.Total++
			if v == 0 {
				continue
			}
			d.Changed++
			total += v
			if v > d.MaxIncrease {
				d.MaxIncrease = v
			}
			if v < d.MaxDecrease {
				d.MaxDecrease = v
			}
		}
	}
	if d.Changed > 0 {
		d.Mean = total / float64(d.Changed)
	}
	return d
}

func compareTableData(data1, data2 [][]float64) [][]float64 {
	diff := make([][]float64, len(data1))
	for i := range data1 {
		diff[i] = make([]float64, len(data1[i]))
		for j := range data1[i] {
			diff[i][j] = data2[i][j] - data1[i][j]
		}
	}
	return diff
}

// Display prints a report. Changed tables are drawn as a difference map.
func Display(r *Report, nameA, nameB string) {
	pterm.DefaultHeader.WithFullWidth().Println("Calibration Comparison")
	pterm.Info.Printf("A: %s\n", nameA)
	pterm.Info.Printf("B: %s\n", nameB)

	if r.Empty() {
		pterm.Success.Println("No differences found")
		return
	}

	if len(r.Constants) > 0 {
		pterm.DefaultSection.Println("Scalars")
		data := [][]string{{"Title", "A", "B", "Change", "Unit"}}
		for _, c := range r.Constants {
			data = append(data, []string{
				c.Title,
				export.FormatValue(c.Old, c.Decimals),
				export.FormatValue(c.New, c.Decimals),
				diffStyle(c.New - c.Old).Sprint(export.FormatValue(c.New-c.Old, c.Decimals)),
				c.Units,
			})
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	if len(r.Flags) > 0 {
		pterm.DefaultSection.Println("Flags")
		data := [][]string{{"Title", "A", "B"}}
		for _, f := range r.Flags {
			data = append(data, []string{f.Title, flagState(f.Old), flagState(f.New)})
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	if len(r.Patches) > 0 {
		pterm.DefaultSection.Println("Patches")
		data := [][]string{{"Title", "A", "B"}}
		for _, p := range r.Patches {
			data = append(data, []string{p.Title, string(p.Old), string(p.New)})
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	for i := range r.Tables {
		displayTable(&r.Tables[i])
	}

	for _, s := range r.OnlyA {
		pterm.Warning.Printf("Only in A: %s\n", s)
	}
	for _, s := range r.OnlyB {
		pterm.Warning.Printf("Only in B: %s\n", s)
	}
}

func flagState(set bool) string {
	return models.Flag{Set: set}.State()
}

func diffStyle(d float64) *pterm.Style {
	switch {
	case d > 0:
		return pterm.NewStyle(pterm.FgRed)
	case d < 0:
		return pterm.NewStyle(pterm.FgBlue)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

func displayTable(d *TableDiff) {
	pterm.Println()
	pterm.DefaultSection.Printf("Comparing: %s\n", d.Title)
	if d.Mismatched() {
		pterm.Warning.Printf("Shape differs: %dx%d vs %dx%d\n",
			d.Shape[0][0], d.Shape[0][1], d.Shape[1][0], d.Shape[1][1])
		return
	}

	pterm.Info.Printf("Changed cells: %d / %d (%.1f%%)\n",
		d.Changed, d.Total, float64(d.Changed)/float64(d.Total)*100)
	pterm.Info.Printf("Average change: %s %s\n", export.FormatValue(d.Mean, d.Decimals), d.Units)
	pterm.Info.Printf("Max increase: %s %s\n", export.FormatValue(d.MaxIncrease, d.Decimals), d.Units)
	pterm.Info.Printf("Max decrease: %s %s\n", export.FormatValue(d.MaxDecrease, d.Decimals), d.Units)

	pterm.Println("\nDifference Map (B - A):")
	pterm.DefaultBox.Println(VisualizeDifferences(d.Diff))
}

// VisualizeDifferences draws a difference matrix with one symbol per cell.
func VisualizeDifferences(diff [][]float64) string {
	var result strings.Builder

	// Find max absolute difference for scaling
	maxAbs := 0.0
	for _, row := range diff {
		for _, v := range row {
			if v < 0 {
				v = -v
			}
			if v > maxAbs {
				maxAbs = v
			}
		}
	}

	cols := 0
	if len(diff) > 0 {
		cols = len(diff[0])
	}
	result.WriteString("      |")
	for j := 0; j < cols; j++ {
		result.WriteString(fmt.Sprintf("%-3d", j))
	}
	result.WriteString("\n")
	result.WriteString("      |" + strings.Repeat("-", cols*3) + "\n")

	for i, row := range diff {
		result.WriteString(fmt.Sprintf("  %3d |", i))
		for _, v := range row {
			result.WriteString(getDiffSymbol(v, maxAbs))
		}
		result.WriteString("\n")
	}

	// Legend
	result.WriteString("\nLegend: ")
	result.WriteString(pterm.FgBlue.Sprint("▼▼") + " Large Decrease  ")
	result.WriteString(pterm.FgCyan.Sprint("▼ ") + " Small Decrease  ")
	result.WriteString(pterm.FgGray.Sprint("··") + " No Change  ")
	result.WriteString(pterm.FgYellow.Sprint("▲ ") + " Small Increase  ")
	result.WriteString(pterm.FgRed.Sprint("▲▲") + " Large Increase")
	return result.String()
}

func getDiffSymbol(val, maxAbs float64) string {
	if val == 0 {
		return pterm.FgGray.Sprint("·· ")
	}

	normalized := val / maxAbs

	if normalized < -0.5 {
		return pterm.FgBlue.Sprint("▼▼ ")
	} else if normalized < -0.1 {
		return pterm.FgCyan.Sprint("▼  ")
	} else if normalized > 0.5 {
		return pterm.FgRed.Sprint("▲▲ ")
	} else if normalized > 0.1 {
		return pterm.FgYellow.Sprint("▲  ")
	}

	return pterm.FgGray.Sprint("·  ")
}
