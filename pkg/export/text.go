package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tosih/xdf-exporter/pkg/models"
)

var (
	rule     = strings.Repeat("=", 60)
	thinRule = strings.Repeat("-", 40)
)

// WriteText writes the reference-tool style text report.
func WriteText(w io.Writer, res *models.ExtractionResult, opts Options) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...interface{}) { fmt.Fprintf(bw, format, args...) }
	section := func(title string) { p("\n%s\n%s\n%s\n\n", rule, title, rule) }

	p("%s\nTunerPro Bin Data Export\n%s\n", rule, rule)
	p("SOURCE FILE: %s\n", res.Firmware.Name)
	p("SOURCE DEFINITION: %s\n", res.Definition.Name)
	p("Binary Size: %d bytes\n", res.Firmware.Size)
	p("MD5 Checksum: %s\n", res.Firmware.MD5)
	p("SHA-256: %s\n", res.Firmware.SHA256)
	if !opts.Generated.IsZero() {
		p("Exported: %s\n", opts.Generated.Format("2006-01-02 15:04:05"))
	}
	p("Exporter: xdf-exporter v%s\n%s\n", Version, rule)

	if len(res.Constants) > 0 {
		section("SCALAR VALUES")
		for _, c := range res.Constants {
			v := FormatValue(c.Value, c.Decimals)
			if c.Units != "" {
				v += " " + c.Units
			}
			p("SCALAR: %-48s %22s\n", truncate(c.Title, 48), v)
		}
	}

	if len(res.Flags) > 0 {
		section("FLAG VALUES")
		for _, f := range res.Flags {
			p("FLAG: %-50s %20s\n", f.Title, f.State())
		}
	}

	if len(res.Tables) > 0 {
		section("TABLE DATA (FULL EXTRACTION)")
		for i := range res.Tables {
			writeTextTable(p, &res.Tables[i], tableWarnings(res, i))
		}
		if zeros := zeroTables(res); len(zeros) > 0 {
			section("DATA VALIDATION WARNINGS")
			p("Found %d of %d tables with zero-filled values:\n\n", len(zeros), len(res.Tables))
			for i, title := range zeros {
				if i == 10 {
					p("  ... and %d more\n", len(zeros)-10)
					break
				}
				p("  * %s\n", title)
			}
			p("\nThis strongly suggests a definition/firmware mismatch.\n")
			p("Verify you are using the correct definition for this binary.\n")
		}
	}

	if len(res.Patches) > 0 {
		writeTextPatches(p, section, res)
	}

	if len(res.Warnings) > 0 {
		section("WARNINGS")
		for _, wn := range res.Warnings {
			p("[%s] %s %s: %s\n", strings.ToUpper(wn.Severity.String()), wn.Kind, wn.Target, wn.Message)
		}
	}
	return bw.Flush()
}

func writeTextTable(p func(string, ...interface{}), t *models.Table, warnings []models.Warning) {
	p("TABLE: %s\n", t.Title)
	p("  Category: %s\n", t.Category)
	for _, ax := range []struct {
		name string
		axis *models.Axis
	}{{"X-Axis", &t.X}, {"Y-Axis", &t.Y}} {
		if ax.axis.Count == 0 {
			continue
		}
		p("  %s: %d points", ax.name, ax.axis.Count)
		if ax.axis.Units != "" {
			p(" (%s)", ax.axis.Units)
		}
		p("\n    Values: [%s]\n", formatValues(ax.axis.Values, ax.axis.Decimals))
	}
	if t.Z.Units != "" {
		p("  Data Unit: %s\n", t.Z.Units)
	}

	unit := ""
	if t.Z.Units != "" {
		unit = " " + t.Z.Units
	}
	p("  Statistics:\n")
	p("    Min: %s%s\n", FormatValue(t.Stats.Min, t.Decimals), unit)
	p("    Max: %s%s\n", FormatValue(t.Stats.Max, t.Decimals), unit)
	p("    Avg: %s%s\n", FormatValue(t.Stats.Mean, t.Decimals), unit)
	p("    Unique Values: %d\n", t.Stats.Unique)
	if t.Orientation == models.ColumnMajor {
		p("  Storage: column-major (verify against the reference tool)\n")
	}
	for _, w := range warnings {
		p("  WARNING [%s]: %s\n", w.Kind, w.Message)
	}

	p("  Data Matrix (%d rows x %d cols):\n", t.Rows(), t.Cols())
	for i, row := range t.Data {
		label := ""
		if i < len(t.Y.Values) {
			label = fmt.Sprintf(" (%s)", FormatValue(t.Y.Values[i], t.Y.Decimals))
		}
		p("    Row %d%s: [%s]\n", i, label, formatValues(row, t.Decimals))
	}
	p("\n")
}

func writeTextPatches(p func(string, ...interface{}), section func(string), res *models.ExtractionResult) {
	applied := patchesByStatus(res, models.PatchApplied)
	notApplied := patchesByStatus(res, models.PatchNotApplied)
	partial := patchesByStatus(res, models.PatchPartial)
	unknown := patchesByStatus(res, models.PatchUnknown)

	section("PATCHES")
	p("Total Patches: %d\n", len(res.Patches))
	p("  Applied: %d\n", len(applied))
	p("  Not Applied: %d\n", len(notApplied))
	if len(partial) > 0 {
		p("  Partial: %d\n", len(partial))
	}
	if len(unknown) > 0 {
		p("  Unknown: %d\n", len(unknown))
	}
	p("\n%s\n\n", strings.Repeat("-", 60))

	group := func(title string, ps []models.Patch, note string) {
		if len(ps) == 0 {
			return
		}
		p("%s:\n%s\n", title, thinRule)
		for _, pt := range ps {
			p("  %s\n", pt.Title)
			switch {
			case note != "":
				p("    -> %s\n", note)
			case pt.Description != "":
				p("    -> %s\n", truncate(pt.Description, 200))
			}
		}
		p("\n")
	}
	group("APPLIED PATCHES", applied, "")
	group("NOT APPLIED PATCHES", notApplied, "")
	group("PARTIALLY APPLIED PATCHES", partial, "WARNING: patch may be corrupted or incompletely applied")
	group("UNKNOWN PATCHES", unknown, "bytes match neither the patched nor the original data")
}
